package exchange

import (
	"context"
	"time"
)

// RateLimiter — общий на все учётки семафор исходящих вызовов биржи.
// Слот возвращается через cooldown после завершения вызова, так что
// устойчивый темп ограничен N вызовами в секунду, а не только N
// одновременными вызовами.
type RateLimiter struct {
	slots    chan struct{}
	cooldown time.Duration
}

func NewRateLimiter(n int) *RateLimiter {
	if n <= 0 {
		n = 1
	}
	return &RateLimiter{
		slots:    make(chan struct{}, n),
		cooldown: time.Second,
	}
}

// Acquire блокирует вызывающего до свободного слота.
func (l *RateLimiter) Acquire(ctx context.Context) error {
	select {
	case l.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release возвращает слот после паузы cooldown.
func (l *RateLimiter) Release() {
	time.AfterFunc(l.cooldown, func() {
		<-l.slots
	})
}
