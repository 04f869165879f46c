package license

import (
	"fmt"

	"go.opentelemetry.io/otel/metric"
)

// Metrics holds OpenTelemetry metrics for license validation.
type Metrics struct {
	ValidationsTotal metric.Int64Counter
}

// NewMetrics creates the validation metrics on the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	validations, err := meter.Int64Counter("license_validations_total",
		metric.WithDescription("License validation attempts by outcome"))
	if err != nil {
		return nil, fmt.Errorf("failed to create validation counter: %w", err)
	}
	return &Metrics{ValidationsTotal: validations}, nil
}
