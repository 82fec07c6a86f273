package trader

import (
	"context"
	"errors"

	"signal_trader/internal/metrics"
	"signal_trader/internal/models"
	"signal_trader/pkg/logger"

	"github.com/google/uuid"
)

func (t *Trader) handleBuy(ctx context.Context, sig models.Signal) {
	// баланс — best-effort guard: между проверкой и постановкой он может
	// измениться, авторитетный отказ остаётся за биржей
	balance, err := t.ex.AvailableUSDT(ctx)
	if err != nil {
		logger.Error("trader %s: get balance for %s: %v", t.id, sig.Symbol, err)
		metrics.OrdersTotal.WithLabelValues("buy", "failed").Inc()
		t.n.Sendf(ctx, t.chatID, "❌ BUY failed • %s", sig.Symbol)
		return
	}
	if sig.Amount > balance {
		t.n.Sendf(ctx, t.chatID, "ℹ️ Insufficient USDT for %s buy • %.2f USDT required", sig.Symbol, sig.Amount)
		return
	}
	logger.Info("trader %s: handling buy signal %s %.2f USDT", t.id, sig.Symbol, sig.Amount)

	clientOID := uuid.New().String()
	t.n.Sendf(ctx, t.chatID, "🔔 BUY sent • %s • %.2f USDT", sig.Symbol, sig.Amount)

	orderID, err := t.ex.CreateMarketBuy(ctx, sig.Symbol, sig.Amount, clientOID)
	if err != nil {
		logger.Error("trader %s: market buy %s: %v", t.id, sig.Symbol, err)
		metrics.OrdersTotal.WithLabelValues("buy", "failed").Inc()
		t.n.Sendf(ctx, t.chatID, "❌ BUY failed • %s", sig.Symbol)
		return
	}

	ord, err := t.awaitFill(ctx, orderID, sig.Symbol, t.buyTimeout)
	if err != nil {
		t.n.Sendf(ctx, t.chatID, "❌ BUY failed • %s", sig.Symbol)
		if errors.Is(err, ErrFillTimeout) {
			metrics.FillTimeouts.WithLabelValues("buy").Inc()
			metrics.OrdersTotal.WithLabelValues("buy", "timeout").Inc()
		} else {
			logger.Error("trader %s: await buy fill %s: %v", t.id, sig.Symbol, err)
			metrics.OrdersTotal.WithLabelValues("buy", "failed").Inc()
		}
		// зависший ордер снимаем best-effort; леджер не трогаем —
		// позиции без подтверждённого филла не существует
		if cErr := t.ex.CancelOrder(ctx, orderID, sig.Symbol); cErr != nil {
			logger.Error("trader %s: cancel order %s: %v", t.id, orderID, cErr)
			t.n.Sendf(ctx, t.chatID, "⚠️ Failed to cancel order %s for %s", orderID, sig.Symbol)
			return
		}
		t.n.Sendf(ctx, t.chatID, "Successfully cancelled order %s for %s", orderID, sig.Symbol)
		return
	}

	// леджер коммитим до успешного уведомления: падение между ними может
	// максимум потерять сообщение, но не запись
	pos, created, err := t.ledger.ApplyBuyFill(ctx, t.id, sig.Symbol, ord.FilledQty, ord.AvgPrice, ord.Cost, ord.FeeCost)
	if err != nil {
		logger.Error("trader %s: apply buy fill %s: %v", t.id, sig.Symbol, err)
		t.n.Sendf(ctx, t.chatID, "⚠️ BUY filled but ledger update failed • %s • order %s", sig.Symbol, orderID)
		return
	}
	metrics.OrdersTotal.WithLabelValues("buy", "filled").Inc()

	newBalance := balance - sig.Amount
	feePct := 0.0
	if sig.Amount > 0 {
		feePct = ord.FeeCost / sig.Amount * 100
	}
	t.n.Sendf(ctx, t.chatID,
		"✅ BUY filled • +%.8g %s @ $%.2f\n"+
			"• Order Cost: $%.2f (targeted $%.2f)\n"+
			"• Fee: $%.5g (%.2f%%)\n"+
			"• Remaining Balance: $%.2f",
		ord.FilledQty, sig.Base(), ord.AvgPrice,
		ord.Cost, sig.Amount,
		ord.FeeCost, feePct,
		newBalance,
	)
	if !created {
		t.n.Sendf(ctx, t.chatID, "📈 Added %.8g → total %.8g • new VWAP $%.2f",
			ord.FilledQty, pos.Qty, pos.AvgCostUsdt)
	}
}
