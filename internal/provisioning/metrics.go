package provisioning

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/darasa/darasa/internal/observability/metrics"
)

// Metrics holds the provisioning instruments. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	provisioned   metric.Int64Counter
	failures      metric.Int64Counter
	setupDuration metric.Float64Histogram
}

// NewMetrics creates the provisioning instruments on the given meter.
func NewMetrics(m *metrics.Meter) (*Metrics, error) {
	provisioned, err := m.Counter("tenants_provisioned_total", "Tenants whose setup chain completed")
	if err != nil {
		return nil, err
	}
	failures, err := m.Counter("tenant_setup_failures_total", "Tenant setup chains that ended in a stage failure")
	if err != nil {
		return nil, err
	}
	duration, err := m.Histogram("tenant_setup_duration_seconds", "Wall-clock duration from tenant creation to seeding completion", "s")
	if err != nil {
		return nil, err
	}
	return &Metrics{provisioned: provisioned, failures: failures, setupDuration: duration}, nil
}

func (m *Metrics) recordCompleted(ctx context.Context, d time.Duration) {
	if m == nil {
		return
	}
	m.provisioned.Add(ctx, 1)
	m.setupDuration.Record(ctx, d.Seconds())
}

func (m *Metrics) recordFailure(ctx context.Context, stage Stage) {
	if m == nil {
		return
	}
	m.failures.Add(ctx, 1, metric.WithAttributes(attribute.String("stage", string(stage))))
}
