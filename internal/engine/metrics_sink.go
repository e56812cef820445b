package engine

import (
	"context"

	"bracket-trader/internal/metrics"
	"bracket-trader/internal/positions"
)

// MetricsSink feeds the Prometheus counters from the trade lifecycle
// stream. It holds the registry so the open-positions gauge tracks the
// real count rather than a running delta.
type MetricsSink struct {
	reg *positions.Registry
}

var _ EventSink = (*MetricsSink)(nil)

func NewMetricsSink(reg *positions.Registry) *MetricsSink {
	return &MetricsSink{reg: reg}
}

func (s *MetricsSink) Publish(_ context.Context, ev Event) {
	switch ev.Type {
	case EventTargetHit:
		metrics.TradeClosed("profit")
	case EventStopHit:
		metrics.TradeClosed("loss")
	case EventTradeFailed:
		metrics.TradeClosed("failed")
	case EventCancelFailed:
		metrics.CancelFailed()
	}
	// Workers settle the registry before publishing terminal events, so
	// this samples the post-close position count.
	metrics.SetOpenPositions(s.reg.Len())
}
