package service

import (
	"context"
	"fmt"
	"strings"

	"signal_trader/internal/exchange"
	"signal_trader/internal/modules/config"
	"signal_trader/internal/positions"
	"signal_trader/pkg/logger"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Telegram — пассивный нотифайер + одна команда /positions.
// Без токена работает вхолостую: сообщения уходят в лог.
type Telegram struct {
	bot   *tgbot.BotAPI
	chats map[int64]string // chat id -> account id

	store positions.Store
	feed  *exchange.PriceFeed
}

func NewTelegram(cfg *config.Config, store positions.Store, feed *exchange.PriceFeed) (*Telegram, error) {
	t := &Telegram{
		chats: make(map[int64]string, len(cfg.Traders)),
		store: store,
		feed:  feed,
	}
	for _, tc := range cfg.Traders {
		if tc.NotifyChat != 0 {
			t.chats[tc.NotifyChat] = tc.ID
		}
	}

	if cfg.Telegram.Token == "" {
		logger.Info("telegram: no token, notifications go to log only")
		return t, nil
	}
	b, err := tgbot.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		return nil, err
	}
	t.bot = b
	return t, nil
}

// Send глотает ошибки отправки: уведомления не влияют на поток ядра.
func (t *Telegram) Send(ctx context.Context, chatID int64, msg string) {
	if t == nil || t.bot == nil || chatID == 0 {
		logger.Info("notify[%d]: %s", chatID, msg)
		return
	}
	if _, err := t.bot.Send(tgbot.NewMessage(chatID, msg)); err != nil {
		logger.Error("telegram: send to %d failed: %v", chatID, err)
	}
}

func (t *Telegram) Sendf(ctx context.Context, chatID int64, format string, args ...any) {
	t.Send(ctx, chatID, fmt.Sprintf(format, args...))
}

// Start: long-polling только ради команды /positions.
func (t *Telegram) Start(ctx context.Context) {
	if t == nil || t.bot == nil {
		return
	}

	u := tgbot.NewUpdate(0)
	u.Timeout = 30
	u.AllowedUpdates = []string{"message"}

	updates := t.bot.GetUpdatesChan(u)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case upd := <-updates:
				if upd.Message == nil || upd.Message.Chat == nil || !upd.Message.IsCommand() {
					continue
				}
				accountID, ok := t.chats[upd.Message.Chat.ID]
				if !ok {
					continue
				}
				switch upd.Message.Command() {
				case "positions":
					go t.handlePositions(ctx, upd.Message.Chat.ID, accountID)
				}
			}
		}
	}()
}

func (t *Telegram) Stop() {}

// /positions — открытые позиции учётки; нереализованный P/L считается
// по последней цене из тикер-стрима, если она есть.
func (t *Telegram) handlePositions(ctx context.Context, chatID int64, accountID string) {
	poss, err := t.store.ListOpen(ctx, accountID)
	if err != nil {
		t.Sendf(ctx, chatID, "❗️ Failed to fetch positions: %v", err)
		return
	}
	if len(poss) == 0 {
		t.Send(ctx, chatID, "📭 No open positions")
		return
	}

	var b strings.Builder
	b.WriteString("📊 Open positions:\n")
	for _, p := range poss {
		fmt.Fprintf(&b, "- %s • %.8g @ VWAP $%.2f • spent $%.2f",
			p.Symbol, p.Qty, p.AvgCostUsdt, p.TotalBuyAmount)
		if last := t.feed.Price(p.Symbol); last > 0 {
			upnl := (last - p.AvgCostUsdt) * p.Qty
			fmt.Fprintf(&b, " • last $%.2f • uP/L %+.2f", last, upnl)
		}
		b.WriteString("\n")
	}
	t.Send(ctx, chatID, b.String())
}
