// Package metrics exposes Prometheus counters the trader updates while
// running. They are registered in init() and served by the dashboard at
// /metrics in the Prometheus text exposition format.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	ordersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trader_orders_total",
			Help: "Orders placed, by kind and side",
		},
		[]string{"kind", "side"},
	)

	tradesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trader_trades_total",
			Help: "Completed trades by result (profit|loss|failed)",
		},
		[]string{"result"},
	)

	openPositions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "trader_open_positions",
			Help: "Bracket trades currently tracked in the registry",
		},
	)

	cancelFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "trader_cancel_failures_total",
			Help: "Exit-leg cancellations the broker rejected",
		},
	)

	ticksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "trader_ticks_total",
			Help: "Market data ticks ingested into the price cache",
		},
	)
)

func init() {
	prometheus.MustRegister(ordersTotal, tradesTotal, openPositions, cancelFailures, ticksTotal)
}

func OrderPlaced(kind, side string)  { ordersTotal.WithLabelValues(kind, side).Inc() }
func TradeClosed(result string)      { tradesTotal.WithLabelValues(result).Inc() }
func SetOpenPositions(n int)         { openPositions.Set(float64(n)) }
func CancelFailed()                  { cancelFailures.Inc() }
func TickIngested()                  { ticksTotal.Inc() }
