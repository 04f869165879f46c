package flow

import (
	"context"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Gate owns the AppState, applies events through the reducer and interprets
// the resulting effects by notifying route subscribers. It is the only writer
// of the composite state; components apply events after their own persisted
// slice is durably written.
type Gate struct {
	mu      sync.Mutex
	state   AppState
	logger  *slog.Logger
	metrics *Metrics

	subMu  sync.Mutex
	subs   map[int]chan Route
	nextID int
}

// NewGate constructs a Gate in the boot (Suspend) state.
func NewGate(logger *slog.Logger) *Gate {
	return &Gate{
		state:  NewState(),
		logger: logger.With(slog.String("component", "flow_gate")),
		subs:   make(map[int]chan Route),
	}
}

// SetMetrics attaches route-transition metrics. Nil-safe at call sites.
func (g *Gate) SetMetrics(m *Metrics) {
	g.metrics = m
}

// Apply reduces the event into the state and executes the effects. It returns
// the route after the reduction.
func (g *Gate) Apply(e Event) Route {
	g.mu.Lock()
	prev := g.state.Route
	next, effects := Reduce(g.state, e)
	g.state = next
	g.mu.Unlock()

	for _, effect := range effects {
		switch eff := effect.(type) {
		case Navigate:
			g.logger.Info("route changed",
				slog.String("from", string(prev)),
				slog.String("to", string(eff.To)))
			if g.metrics != nil && g.metrics.RouteTransitions != nil {
				g.metrics.RouteTransitions.Add(context.Background(), 1,
					metric.WithAttributes(
						attribute.String("from", string(prev)),
						attribute.String("to", string(eff.To)),
					))
			}
			g.notify(eff.To)
		}
	}

	return next.Route
}

// Route returns the current route.
func (g *Gate) Route() Route {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state.Route
}

// State returns a copy of the current composite state.
func (g *Gate) State() AppState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Subscribe returns a channel that receives every route change and a cancel
// function. The channel is buffered; a slow consumer drops updates rather
// than blocking the gate.
func (g *Gate) Subscribe() (<-chan Route, func()) {
	g.subMu.Lock()
	defer g.subMu.Unlock()

	id := g.nextID
	g.nextID++
	ch := make(chan Route, 8)
	g.subs[id] = ch

	cancel := func() {
		g.subMu.Lock()
		defer g.subMu.Unlock()
		if _, ok := g.subs[id]; ok {
			delete(g.subs, id)
			close(ch)
		}
	}
	return ch, cancel
}

func (g *Gate) notify(route Route) {
	g.subMu.Lock()
	defer g.subMu.Unlock()
	for _, ch := range g.subs {
		select {
		case ch <- route:
		default:
		}
	}
}
