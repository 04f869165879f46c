// Package domain contains the core domain models for the Lemon POS terminal.
// These types serve as the Single Source of Truth (SSOT) for all layers of the application.
package domain

// Tenant is the business entity that owns the license and one or more branches.
type Tenant struct {
	ID   int64   `json:"id"`
	Name string  `json:"name"`
	Logo *string `json:"logo"`
}

// Subscription describes the commercial state of the tenant's plan.
type Subscription struct {
	Active          bool   `json:"active"`
	Plan            string `json:"plan"`
	DaysRemaining   int    `json:"days_remaining"`
	RequiresUpgrade bool   `json:"requires_upgrade"`
}

// ValidityState represents the license validation state machine.
// Unknown means "not yet checked" and must never be conflated with an
// explicit rejection.
type ValidityState string

const (
	ValidityUnknown    ValidityState = "unknown"
	ValidityValidating ValidityState = "validating"
	ValidityValid      ValidityState = "valid"
	ValidityInvalid    ValidityState = "invalid"
)

// Validity is a tagged union over ValidityState. Reason is populated only
// when State is ValidityInvalid.
type Validity struct {
	State  ValidityState `json:"state"`
	Reason string        `json:"reason,omitempty"`
}

// Invalid constructs an invalid validity with the given reason.
func Invalid(reason string) Validity {
	return Validity{State: ValidityInvalid, Reason: reason}
}

// Valid reports whether the license was confirmed valid by the last check.
func (v Validity) Valid() bool {
	return v.State == ValidityValid
}

// LicenseRecord is the in-memory view of the installation's license.
// The key is persisted locally if and only if the most recent validation
// attempt returned valid.
type LicenseRecord struct {
	Key          string        `json:"key"`
	Tenant       *Tenant       `json:"tenant,omitempty"`
	Subscription *Subscription `json:"subscription,omitempty"`
	Validity     Validity      `json:"validity"`
}

// License error codes shared between transport and services.
const (
	ErrCodeInvalidLicense   = "INVALID_LICENSE"
	ErrCodeNetworkError     = "NETWORK_ERROR"
	ErrCodeActivationFailed = "ACTIVATION_FAILED"
	ErrCodeValidationFailed = "VALIDATION_FAILED"
)
