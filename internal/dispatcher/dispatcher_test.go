package dispatcher

import (
	"context"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signal_trader/internal/models"
	"signal_trader/internal/positions"
	"signal_trader/internal/trader"
	"signal_trader/pkg/logger"
)

func TestMain(m *testing.M) {
	if err := logger.Init(); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

type stubExchange struct{}

func (stubExchange) LoadMarkets(context.Context) error             { return nil }
func (stubExchange) AvailableUSDT(context.Context) (float64, error) { return 0, nil }
func (stubExchange) CreateMarketBuy(context.Context, string, float64, string) (string, error) {
	return "", nil
}
func (stubExchange) CreateMarketSell(context.Context, string, float64, string) (string, error) {
	return "", nil
}
func (stubExchange) FetchOrder(context.Context, string, string) (*models.Order, error) {
	return &models.Order{Status: models.OrderFilled}, nil
}
func (stubExchange) CancelOrder(context.Context, string, string) error { return nil }

// emptyStore — позиций нет; FindOpen по panicSymbol валит обработчик,
// чтобы проверить изоляцию паники.
type emptyStore struct {
	panicSymbol string
}

func (s *emptyStore) FindOpen(_ context.Context, _, symbol string) (*models.Position, error) {
	if s.panicSymbol != "" && symbol == s.panicSymbol {
		panic("store blew up")
	}
	return nil, nil
}
func (s *emptyStore) ListOpen(context.Context, string) ([]*models.Position, error) { return nil, nil }
func (s *emptyStore) Insert(context.Context, *models.Position) error               { return nil }
func (s *emptyStore) Update(context.Context, *models.Position) error               { return nil }

type recordingNotifier struct {
	mu    sync.Mutex
	delay time.Duration
	msgs  []string
	chats []int64
}

func (n *recordingNotifier) Send(_ context.Context, chatID int64, msg string) {
	if n.delay > 0 {
		time.Sleep(n.delay)
	}
	n.mu.Lock()
	n.msgs = append(n.msgs, msg)
	n.chats = append(n.chats, chatID)
	n.mu.Unlock()
}

func (n *recordingNotifier) Sendf(ctx context.Context, chatID int64, format string, args ...any) {
	n.Send(ctx, chatID, format)
}

func (n *recordingNotifier) countFor(chatID int64) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	c := 0
	for _, id := range n.chats {
		if id == chatID {
			c++
		}
	}
	return c
}

func (n *recordingNotifier) total() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.msgs)
}

func (n *recordingNotifier) contains(sub string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, m := range n.msgs {
		if strings.Contains(m, sub) {
			return true
		}
	}
	return false
}

func newTestDispatcher(store positions.Store, n trader.Notifier, ids ...string) *Dispatcher {
	traders := make(map[string]*trader.Trader, len(ids))
	for i, id := range ids {
		traders[id] = trader.New(trader.Config{
			ID:          id,
			NotifyChat:  int64(i + 1),
			BuyTimeout:  time.Second,
			SellTimeout: time.Second,
		}, stubExchange{}, positions.NewLedger(store), n)
	}
	return New(traders)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestEmptyTargetsFanOutToAllTraders(t *testing.T) {
	n := &recordingNotifier{}
	d := newTestDispatcher(&emptyStore{}, n, "alpha", "beta")
	d.Start(context.Background())

	d.Enqueue(models.Signal{Kind: models.SignalSell, Symbol: "BTCUSDT"})

	// sell без позиции — по одному уведомлению на каждого трейдера
	waitFor(t, func() bool { return n.countFor(1) == 1 && n.countFor(2) == 1 })
	require.NoError(t, d.Stop(context.Background()))
}

func TestExplicitTargetsOnly(t *testing.T) {
	n := &recordingNotifier{}
	d := newTestDispatcher(&emptyStore{}, n, "alpha", "beta")
	d.Start(context.Background())

	d.Enqueue(models.Signal{Kind: models.SignalSell, Symbol: "BTCUSDT", Targets: []string{"alpha"}})

	waitFor(t, func() bool { return n.countFor(1) == 1 })
	require.NoError(t, d.Stop(context.Background()))
	assert.Equal(t, 0, n.countFor(2))
}

func TestUnknownTargetSkipped(t *testing.T) {
	n := &recordingNotifier{}
	d := newTestDispatcher(&emptyStore{}, n, "alpha")
	d.Start(context.Background())

	d.Enqueue(models.Signal{Kind: models.SignalSell, Symbol: "BTCUSDT", Targets: []string{"ghost", "alpha"}})

	// неизвестная цель не мешает остальным
	waitFor(t, func() bool { return n.countFor(1) == 1 })
	require.NoError(t, d.Stop(context.Background()))
}

func TestHandlerPanicDoesNotKillConsumeLoop(t *testing.T) {
	n := &recordingNotifier{}
	d := newTestDispatcher(&emptyStore{panicSymbol: "BOOMUSDT"}, n, "alpha")
	d.Start(context.Background())

	d.Enqueue(models.Signal{Kind: models.SignalSell, Symbol: "BOOMUSDT"})
	d.Enqueue(models.Signal{Kind: models.SignalSell, Symbol: "BTCUSDT"})

	// второй сигнал обработан несмотря на панику первого
	waitFor(t, func() bool { return n.contains("No open position") })
	require.NoError(t, d.Stop(context.Background()))
}

func TestStopDrainsQueueAndWaitsHandlers(t *testing.T) {
	n := &recordingNotifier{delay: 20 * time.Millisecond}
	d := newTestDispatcher(&emptyStore{}, n, "alpha")
	d.Start(context.Background())

	for i := 0; i < 5; i++ {
		d.Enqueue(models.Signal{Kind: models.SignalSell, Symbol: "BTCUSDT"})
	}

	require.NoError(t, d.Stop(context.Background()))
	assert.Equal(t, 5, n.total())

	// после Stop сигналы отбрасываются
	d.Enqueue(models.Signal{Kind: models.SignalSell, Symbol: "BTCUSDT"})
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 5, n.total())
}

func TestStopHonorsContextDeadline(t *testing.T) {
	n := &recordingNotifier{delay: 500 * time.Millisecond}
	d := newTestDispatcher(&emptyStore{}, n, "alpha")
	d.Start(context.Background())

	d.Enqueue(models.Signal{Kind: models.SignalSell, Symbol: "BTCUSDT"})
	time.Sleep(20 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, d.Stop(ctx), context.DeadlineExceeded)
}
