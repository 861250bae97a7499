package chainfeed

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric/global"
	"go.opentelemetry.io/otel/metric/instrument"

	"github.com/chainwatch-labs/evm-watchdog/internal/watchdog"
	"github.com/chainwatch-labs/evm-watchdog/pkg/metrics"
)

// metricsSet holds the per-chain otel instruments for a Subscriber.
type metricsSet struct {
	baseAttrs  []attribute.KeyValue
	height     instrument.Int64Histogram
	eventCount instrument.Int64Counter
}

func newMetricsSet(chain Chain) *metricsSet {
	meter := global.MeterProvider().Meter("evmwatchdog")
	base := append([]attribute.KeyValue{
		attribute.String("chain", chain.Name),
		attribute.Int64("chain_id", int64(chain.ChainID)),
	}, metrics.BaseAttrs...)

	height, _ := meter.Int64Histogram("evmwatchdog.chainfeed.block_height")
	eventCount, _ := meter.Int64Counter("evmwatchdog.chainfeed.events_decoded")

	return &metricsSet{baseAttrs: base, height: height, eventCount: eventCount}
}

func (m *metricsSet) observeHeight(ctx context.Context, height uint64) {
	if m.height == nil {
		return
	}
	m.height.Record(ctx, int64(height), m.baseAttrs...)
}

func (m *metricsSet) observeEvent(ctx context.Context, kind watchdog.EventKind) {
	if m.eventCount == nil {
		return
	}
	attrs := append(append([]attribute.KeyValue{}, m.baseAttrs...), attribute.String("event_kind", kind.String()))
	m.eventCount.Add(ctx, 1, attrs...)
}
