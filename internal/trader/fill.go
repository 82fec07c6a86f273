package trader

import (
	"context"
	"errors"
	"time"

	"signal_trader/internal/models"
)

// ErrFillTimeout — ордер не дошёл до терминального состояния за бюджет времени.
var ErrFillTimeout = errors.New("order fill timeout")

// awaitFill опрашивает ордер раз в секунду, пока биржа не вернёт filled либо
// не истечёт timeout. Ошибка FetchOrder после ретраев уходит наружу как есть.
// Частично исполненный ордер терминальным успехом не считается.
func (t *Trader) awaitFill(ctx context.Context, orderID, symbol string, timeout time.Duration) (*models.Order, error) {
	remaining := timeout
	for remaining > 0 {
		ord, err := t.ex.FetchOrder(ctx, orderID, symbol)
		if err != nil {
			return nil, err
		}
		if ord.Filled() {
			return ord, nil
		}

		select {
		case <-time.After(t.pollInterval):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		remaining -= t.pollInterval
	}
	return nil, ErrFillTimeout
}
