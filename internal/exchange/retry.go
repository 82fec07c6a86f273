package exchange

import (
	"context"
	"time"

	"signal_trader/internal/metrics"
)

const (
	defaultRetryAttempts = 3
	defaultRetryDelay    = 500 * time.Millisecond
)

// Retry исполняет fn до maxAttempts раз с паузой delay, 2·delay, 4·delay, …
// между попытками. После исчерпания попыток наружу уходит последняя ошибка.
// Ретраи слепые: идемпотентность обеспечивают сами операции (fetch/cancel)
// либо clientOid на постановке ордера.
func Retry[T any](
	ctx context.Context,
	maxAttempts int,
	initialDelay time.Duration,
	fn func(ctx context.Context) (T, error),
) (T, error) {
	var zero T

	delay := initialDelay
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		out, err := fn(ctx)
		if err == nil {
			return out, nil
		}
		lastErr = err
		if attempt == maxAttempts-1 {
			break
		}
		metrics.ExchangeRetries.Inc()
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return zero, ctx.Err()
		}
		delay *= 2
	}
	return zero, lastErr
}
