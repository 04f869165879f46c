package flow

import (
	"fmt"

	"go.opentelemetry.io/otel/metric"
)

// Metrics holds OpenTelemetry metrics for the routing gate.
type Metrics struct {
	RouteTransitions metric.Int64Counter
}

// NewMetrics creates the gate metrics on the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	transitions, err := meter.Int64Counter("flow_route_transitions_total",
		metric.WithDescription("Number of route transitions emitted by the authorization gate"))
	if err != nil {
		return nil, fmt.Errorf("failed to create route transition counter: %w", err)
	}
	return &Metrics{RouteTransitions: transitions}, nil
}
