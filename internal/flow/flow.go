// Package flow implements the terminal's routing state machine. A pure
// reducer combines the persisted facts (intro seen, license validity, session
// presence) into exactly one destination, and a Gate interprets the resulting
// effects so screens never flash or loop.
package flow

import (
	"lemonpos/pkg/contracts/domain"
)

// Route is the single screen the terminal is allowed to show.
type Route string

const (
	// RouteSuspend renders nothing while the persisted slices are still
	// being read or a validation is in flight. It exists so the terminal
	// never guesses a destination.
	RouteSuspend     Route = "suspend"
	RouteIntro       Route = "intro"
	RouteLicenseGate Route = "license_gate"
	RouteLogin       Route = "login"
	RouteMain        Route = "main"
)

// AppState is the in-memory composite the gate reduces to a route. It has no
// persistence of its own; it is reconstructed from the persisted slices on
// every cold start.
type AppState struct {
	// Loaded is false until the intro flag and the cached license key have
	// both been read from storage.
	Loaded         bool
	IntroSeen      bool
	Validity       domain.Validity
	SessionPresent bool
	Route          Route
}

// NewState returns the boot state: nothing loaded, validity unknown.
func NewState() AppState {
	return AppState{
		Validity: domain.Validity{State: domain.ValidityUnknown},
		Route:    RouteSuspend,
	}
}

// Event mutates AppState through Reduce. Events are applied by the component
// that owns the corresponding persisted slice, after its storage write has
// been durably applied.
type Event interface{ isEvent() }

// SlicesLoaded reports that the boot-time reads of the persisted slices have
// completed.
type SlicesLoaded struct {
	IntroSeen      bool
	SessionPresent bool
}

// IntroCompleted reports that the onboarding intro has been acknowledged and
// the flag persisted.
type IntroCompleted struct{}

// ValidityChanged reports a license validity transition.
type ValidityChanged struct {
	Validity domain.Validity
}

// SessionChanged reports that an employee session appeared or disappeared.
type SessionChanged struct {
	Present bool
}

// FlowReset reports that the persisted slices were wiped by the explicit
// "reset app flow" operation.
type FlowReset struct{}

func (SlicesLoaded) isEvent()    {}
func (IntroCompleted) isEvent()  {}
func (ValidityChanged) isEvent() {}
func (SessionChanged) isEvent()  {}
func (FlowReset) isEvent()       {}

// Effect is a side effect the interpreter must execute after a reduction.
type Effect interface{ isEffect() }

// Navigate tells the screen layer to move to the given route.
type Navigate struct {
	To Route
}

func (Navigate) isEffect() {}

// routeFor is the transition table; the first matching row wins.
//
//	loaded      validity    session   route
//	false       any         any       Suspend
//	-  intro=f  any         any       Intro
//	-  intro=t  Validating  any       Suspend
//	-  intro=t  Unknown     any       Suspend
//	-  intro=t  Invalid     any       LicenseGate
//	-  intro=t  Valid       false     Login
//	-  intro=t  Valid       true      Main
func routeFor(s AppState) Route {
	switch {
	case !s.Loaded:
		return RouteSuspend
	case !s.IntroSeen:
		return RouteIntro
	case s.Validity.State == domain.ValidityValidating,
		s.Validity.State == domain.ValidityUnknown:
		return RouteSuspend
	case s.Validity.State == domain.ValidityInvalid:
		return RouteLicenseGate
	case !s.SessionPresent:
		return RouteLogin
	default:
		return RouteMain
	}
}

// Reduce applies an event to the state and returns the next state plus the
// effects to execute. It is pure: no I/O, no clock, no logging.
func Reduce(s AppState, e Event) (AppState, []Effect) {
	prev := s

	switch ev := e.(type) {
	case SlicesLoaded:
		s.Loaded = true
		s.IntroSeen = ev.IntroSeen
		s.SessionPresent = ev.SessionPresent
	case IntroCompleted:
		s.IntroSeen = true
	case ValidityChanged:
		s.Validity = ev.Validity
	case SessionChanged:
		s.SessionPresent = ev.Present
	case FlowReset:
		s = NewState()
		s.Loaded = true
	}

	next := routeFor(s)

	// Guard rules, applied after the table. A user sitting on the license
	// gate whose key just turned valid is sent to Login rather than left
	// stranded; a validity collapse anywhere else evicts to the gate at
	// once.
	if _, ok := e.(ValidityChanged); ok {
		switch {
		case prev.Route == RouteLicenseGate && s.Validity.Valid():
			next = RouteLogin
		case prev.Route != RouteLicenseGate && s.Validity.State == domain.ValidityInvalid && s.Loaded && s.IntroSeen:
			next = RouteLicenseGate
		}
	}

	s.Route = next

	var effects []Effect
	if next != prev.Route {
		effects = append(effects, Navigate{To: next})
	}
	return s, effects
}
