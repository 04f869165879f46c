package http

import (
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the counters for the auth surface.
type Metrics struct {
	LoginsTotal metric.Int64Counter
}

// NewMetrics creates the counters on the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	logins, err := meter.Int64Counter("auth_logins_total",
		metric.WithDescription("PIN login attempts by outcome"))
	if err != nil {
		return nil, err
	}
	return &Metrics{LoginsTotal: logins}, nil
}
