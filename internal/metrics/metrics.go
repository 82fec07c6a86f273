package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	SignalsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trader_signals_total",
			Help: "Signals accepted into the dispatcher queue",
		},
		[]string{"type"},
	)

	// result: filled | failed | timeout
	OrdersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trader_orders_total",
			Help: "Order outcomes per side",
		},
		[]string{"side", "result"},
	)

	ExchangeRetries = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "trader_exchange_retries_total",
			Help: "Retried exchange calls",
		},
	)

	FillTimeouts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trader_fill_timeouts_total",
			Help: "Orders that never reached a terminal state before the deadline",
		},
		[]string{"side"},
	)

	UnknownTargets = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "trader_unknown_targets_total",
			Help: "Signal targets with no configured trader",
		},
	)
)

func init() {
	prometheus.MustRegister(
		SignalsTotal,
		OrdersTotal,
		ExchangeRetries,
		FillTimeouts,
		UnknownTargets,
	)
}

func Handler() http.Handler {
	return promhttp.Handler()
}
