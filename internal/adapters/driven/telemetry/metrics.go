package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	apimetric "go.opentelemetry.io/otel/metric"

	"github.com/custodia-labs/listings-cli/internal/core/domain"
	"github.com/custodia-labs/listings-cli/internal/core/ports/driven"
)

// MeterName scopes the instruments below.
const MeterName = "github.com/custodia-labs/listings-cli/sync"

// AttrOutcome labels each observation with how the sync ended.
const AttrOutcome = attribute.Key("outcome")

// SyncMetrics records listings sync observations.
type SyncMetrics struct {
	invocations apimetric.Int64Counter
	duration    apimetric.Float64Histogram
	records     apimetric.Int64Counter
}

var _ driven.SyncMetrics = (*SyncMetrics)(nil)

// NewSyncMetrics creates the sync instruments on mp.
func NewSyncMetrics(mp apimetric.MeterProvider) (*SyncMetrics, error) {
	meter := mp.Meter(MeterName)

	invocations, err := meter.Int64Counter("listings.sync.invocations",
		apimetric.WithDescription("Listings syncs by outcome"),
		apimetric.WithUnit("{sync}"))
	if err != nil {
		return nil, fmt.Errorf("create invocations counter: %w", err)
	}

	duration, err := meter.Float64Histogram("listings.sync.duration",
		apimetric.WithDescription("Wall time of a listings sync"),
		apimetric.WithUnit("ms"))
	if err != nil {
		return nil, fmt.Errorf("create duration histogram: %w", err)
	}

	records, err := meter.Int64Counter("listings.sync.records",
		apimetric.WithDescription("Listings written to the cache by refreshes"),
		apimetric.WithUnit("{listing}"))
	if err != nil {
		return nil, fmt.Errorf("create records counter: %w", err)
	}

	return &SyncMetrics{
		invocations: invocations,
		duration:    duration,
		records:     records,
	}, nil
}

// RecordSync implements driven.SyncMetrics.
func (m *SyncMetrics) RecordSync(ctx context.Context, outcome domain.SyncOutcome, d time.Duration, records int) {
	attrs := apimetric.WithAttributes(AttrOutcome.String(string(outcome)))
	m.invocations.Add(ctx, 1, attrs)
	m.duration.Record(ctx, float64(d)/float64(time.Millisecond), attrs)
	if records > 0 {
		m.records.Add(ctx, int64(records), attrs)
	}
}
