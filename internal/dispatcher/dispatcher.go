package dispatcher

import (
	"context"
	"sync"
	"sync/atomic"

	"signal_trader/internal/metrics"
	"signal_trader/internal/models"
	"signal_trader/internal/trader"
	"signal_trader/pkg/logger"
)

// Dispatcher — одна FIFO-очередь сигналов на процесс. Consume-цикл забирает
// сигналы строго в порядке постановки и раздаёт каждый целевым трейдерам
// отдельными горутинами, не дожидаясь завершения. Порядок гарантирован
// только на деqueue; обработка сериализуется локом (аккаунт, символ).
type Dispatcher struct {
	mu     sync.Mutex
	cond   *sync.Cond
	queue  []models.Signal
	closed bool

	// неизменяемый после конструирования реестр трейдеров
	traders map[string]*trader.Trader

	started atomic.Bool
	done    chan struct{}  // consume-цикл завершился
	wg      sync.WaitGroup // запущенные задачи обработчиков
}

func New(traders map[string]*trader.Trader) *Dispatcher {
	d := &Dispatcher{
		traders: traders,
		done:    make(chan struct{}),
	}
	d.cond = sync.NewCond(&d.mu)
	return d
}

// Enqueue никогда не блокирует: очередь не ограничена.
// После Stop новые сигналы молча отбрасываются.
func (d *Dispatcher) Enqueue(sig models.Signal) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		logger.Info("dispatcher: closed, dropping %s %s", sig.Kind, sig.Symbol)
		return
	}
	d.queue = append(d.queue, sig)
	metrics.SignalsTotal.WithLabelValues(string(sig.Kind)).Inc()
	d.cond.Signal()
}

func (d *Dispatcher) Start(ctx context.Context) {
	if !d.started.CompareAndSwap(false, true) {
		return
	}
	go d.consume(ctx)
}

func (d *Dispatcher) consume(ctx context.Context) {
	defer close(d.done)
	for {
		sig, ok := d.next()
		if !ok {
			return
		}
		d.fanOut(ctx, sig)
	}
}

func (d *Dispatcher) next() (models.Signal, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for len(d.queue) == 0 && !d.closed {
		d.cond.Wait()
	}
	if len(d.queue) == 0 {
		return models.Signal{}, false
	}
	sig := d.queue[0]
	d.queue = d.queue[1:]
	return sig, true
}

func (d *Dispatcher) fanOut(ctx context.Context, sig models.Signal) {
	targets := sig.Targets
	if len(targets) == 0 {
		targets = make([]string, 0, len(d.traders))
		for id := range d.traders {
			targets = append(targets, id)
		}
	}

	for _, id := range targets {
		tr, ok := d.traders[id]
		if !ok {
			// неизвестная цель — молча пропускаем, остальные цели обрабатываем
			logger.Info("dispatcher: unknown trader %q, target skipped", id)
			metrics.UnknownTargets.Inc()
			continue
		}

		d.wg.Add(1)
		go func(tr *trader.Trader) {
			defer d.wg.Done()
			// паника одного обработчика не должна ронять процесс
			// и тем более consume-цикл
			defer func() {
				if r := recover(); r != nil {
					logger.Error("trader %s: panic on %s %s: %v", tr.ID(), sig.Kind, sig.Symbol, r)
				}
			}()
			tr.Handle(ctx, sig)
		}(tr)
	}
}

// Stop запрещает новые сигналы, дочитывает очередь и дожидается всех
// запущенных обработчиков (или дедлайна ctx).
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.cond.Broadcast()
	d.mu.Unlock()

	finished := make(chan struct{})
	go func() {
		if d.started.Load() {
			<-d.done
		}
		d.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
