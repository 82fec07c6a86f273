package trader

import (
	"context"
	"errors"
	"fmt"

	"signal_trader/internal/metrics"
	"signal_trader/internal/models"
	"signal_trader/pkg/logger"

	"github.com/google/uuid"
)

func (t *Trader) handleSell(ctx context.Context, sig models.Signal) {
	pos, err := t.ledger.Open(ctx, t.id, sig.Symbol)
	if err != nil {
		logger.Error("trader %s: find open position %s: %v", t.id, sig.Symbol, err)
		t.n.Sendf(ctx, t.chatID, "⚠️ SELL skipped • %s • position lookup failed", sig.Symbol)
		return
	}
	if pos == nil {
		// нечего продавать — штатный ответ, не ошибка; ни одного вызова биржи
		t.n.Sendf(ctx, t.chatID, "ℹ️ No open position for %s", sig.Symbol)
		return
	}
	logger.Info("trader %s: handling sell signal %s qty=%.8g", t.id, sig.Symbol, pos.Qty)

	clientOID := uuid.New().String()
	t.n.Sendf(ctx, t.chatID, "🔔 SELL sent • %s • %.8g %s", sig.Symbol, pos.Qty, sig.Base())

	// продаём весь остаток позиции одним ордером
	orderID, err := t.ex.CreateMarketSell(ctx, sig.Symbol, pos.Qty, clientOID)
	if err != nil {
		logger.Error("trader %s: market sell %s: %v", t.id, sig.Symbol, err)
		metrics.OrdersTotal.WithLabelValues("sell", "failed").Inc()
		t.n.Sendf(ctx, t.chatID, "❌ SELL failed • %s", sig.Symbol)
		return
	}

	ord, err := t.awaitFill(ctx, orderID, sig.Symbol, t.sellTimeout)
	if err != nil {
		// таймаут или ошибка биржи: открытую позицию не трогаем,
		// частичные филлы не реконсилируем
		if errors.Is(err, ErrFillTimeout) {
			metrics.FillTimeouts.WithLabelValues("sell").Inc()
			metrics.OrdersTotal.WithLabelValues("sell", "timeout").Inc()
		} else {
			logger.Error("trader %s: await sell fill %s: %v", t.id, sig.Symbol, err)
			metrics.OrdersTotal.WithLabelValues("sell", "failed").Inc()
		}
		t.n.Sendf(ctx, t.chatID, "❌ SELL failed • %s", sig.Symbol)
		return
	}

	pos, err = t.ledger.ApplySellFill(ctx, t.id, sig.Symbol, ord.Cost, ord.FeeCost)
	if err != nil {
		logger.Error("trader %s: apply sell fill %s: %v", t.id, sig.Symbol, err)
		t.n.Sendf(ctx, t.chatID, "⚠️ SELL filled but ledger update failed • %s • order %s", sig.Symbol, orderID)
		return
	}
	metrics.OrdersTotal.WithLabelValues("sell", "filled").Inc()

	pnl := pos.RealizedPnl
	pnlPct := 0.0
	if pos.TotalBuyAmount > 0 {
		pnlPct = pnl / pos.TotalBuyAmount * 100
	}
	avgSell := 0.0
	if pos.Qty > 0 {
		avgSell = pos.TotalSellAmount / pos.Qty
	}

	// баланс после продажи — только для сообщения, best-effort
	balanceLine := ""
	if balance, bErr := t.ex.AvailableUSDT(ctx); bErr == nil {
		balanceLine = fmt.Sprintf("\n• Current USDT Balance: $%.2f", balance)
	}

	t.n.Sendf(ctx, t.chatID,
		"✅ SELL filled • Sold %.8g %s at avg sell $%.2f\n"+
			"• Total BUY Cost: $%.2f (avg buy $%.2f)\n"+
			"• Total SELL Proceeds: $%.2f\n"+
			"• Realised P/L: %+.2f USDT (%+.2f%%)\n"+
			"• Fees: Buy Fee $%.5g + Sell Fee $%.5g%s",
		pos.Qty, sig.Base(), avgSell,
		pos.TotalBuyAmount, pos.AvgCostUsdt,
		pos.TotalSellAmount,
		pnl, pnlPct,
		pos.TotalBuyFees, pos.TotalSellFees,
		balanceLine,
	)
}
