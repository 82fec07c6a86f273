package trader

import (
	"context"
	"sync"
	"time"

	"signal_trader/internal/models"
	"signal_trader/internal/positions"
)

// Exchange — контракт биржевого клиента, который потребляет трейдер.
// Все операции уже обёрнуты rate-limit'ом и ретраями на стороне клиента.
type Exchange interface {
	LoadMarkets(ctx context.Context) error
	AvailableUSDT(ctx context.Context) (float64, error)
	CreateMarketBuy(ctx context.Context, symbol string, quoteAmount float64, clientOID string) (string, error)
	CreateMarketSell(ctx context.Context, symbol string, baseQty float64, clientOID string) (string, error)
	FetchOrder(ctx context.Context, orderID, symbol string) (*models.Order, error)
	CancelOrder(ctx context.Context, orderID, symbol string) error
}

// Notifier — fire-and-forget уведомления; ошибки отправки не попадают
// в поток управления трейдера.
type Notifier interface {
	Send(ctx context.Context, chatID int64, msg string)
	Sendf(ctx context.Context, chatID int64, format string, args ...any)
}

type Config struct {
	ID          string
	NotifyChat  int64
	BuyTimeout  time.Duration
	SellTimeout time.Duration
}

// Trader обслуживает одну учётку: по одному локу на символ, весь workflow
// buy/sell от проверки баланса до записи в леджер идёт под этим локом.
// Сигналы по разным символам (или та же пара на другой учётке) идут параллельно.
type Trader struct {
	id     string
	chatID int64

	ex     Exchange
	ledger *positions.Ledger
	n      Notifier

	buyTimeout  time.Duration
	sellTimeout time.Duration

	// интервал опроса fill-вотчера; в тестах укорачивается
	pollInterval time.Duration

	lockMu sync.Mutex
	locks  map[string]*sync.Mutex
}

func New(cfg Config, ex Exchange, ledger *positions.Ledger, n Notifier) *Trader {
	return &Trader{
		id:           cfg.ID,
		chatID:       cfg.NotifyChat,
		ex:           ex,
		ledger:       ledger,
		n:            n,
		buyTimeout:   cfg.BuyTimeout,
		sellTimeout:  cfg.SellTimeout,
		pollInterval: time.Second,
		locks:        make(map[string]*sync.Mutex),
	}
}

func (t *Trader) ID() string    { return t.id }
func (t *Trader) ChatID() int64 { return t.chatID }

// Warmup обязан отработать до первого сигнала: без метаданных инструментов
// нельзя корректно поставить sell-ордер.
func (t *Trader) Warmup(ctx context.Context) error {
	return t.ex.LoadMarkets(ctx)
}

// symbolLock — арена локов: лок на символ создаётся под коротким guard'ом
// при первой встрече и живёт до конца процесса.
func (t *Trader) symbolLock(symbol string) *sync.Mutex {
	t.lockMu.Lock()
	defer t.lockMu.Unlock()
	l, ok := t.locks[symbol]
	if !ok {
		l = &sync.Mutex{}
		t.locks[symbol] = l
	}
	return l
}

// Handle обрабатывает один сигнал от начала до конца под локом символа,
// так что пересекающиеся сигналы по одной паре строго последовательны.
func (t *Trader) Handle(ctx context.Context, sig models.Signal) {
	lock := t.symbolLock(sig.Symbol)
	lock.Lock()
	defer lock.Unlock()

	switch sig.Kind {
	case models.SignalBuy:
		t.handleBuy(ctx, sig)
	case models.SignalSell:
		t.handleSell(ctx, sig)
	}
}
