// Package license performs the license-validation protocol against the tenant
// backend and maintains the local license cache.
//
// The cached key obeys a single invariant: it is persisted if and only if the
// most recent validation attempt returned valid. An explicit server rejection
// purges it; a connectivity failure retains it, because the local cache may
// still be correct and the failure transient. That asymmetry is deliberate.
package license

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"lemonpos/internal/backend"
	"lemonpos/internal/flow"
	"lemonpos/internal/store"
	"lemonpos/pkg/contracts/domain"
)

// reasonInvalidKey is the default rejection reason when the server gives none,
// and the resting state when no key is cached at all.
const reasonInvalidKey = "Invalid license key"

// BackendClient is the slice of the backend client the validator needs.
type BackendClient interface {
	ValidateLicense(ctx context.Context, req backend.ValidateRequest) (*backend.ValidateResponse, error)
	Endpoint(path string) string
}

// Validator runs validations and owns the license slice of the persisted
// store. Overlapping validations are not deduplicated; the last response to
// resolve wins.
type Validator struct {
	store   *store.Store
	client  BackendClient
	gate    *flow.Gate
	logger  *slog.Logger
	metrics *Metrics

	mu     sync.RWMutex
	record domain.LicenseRecord
}

// NewValidator constructs a Validator. The gate receives a ValidityChanged
// event on every transition, after the corresponding storage write.
func NewValidator(st *store.Store, client BackendClient, gate *flow.Gate, logger *slog.Logger) *Validator {
	return &Validator{
		store:  st,
		client: client,
		gate:   gate,
		logger: logger.With(slog.String("component", "license")),
		record: domain.LicenseRecord{
			Validity: domain.Validity{State: domain.ValidityUnknown},
		},
	}
}

// SetMetrics attaches validation metrics.
func (v *Validator) SetMetrics(m *Metrics) {
	v.metrics = m
}

// Record returns a copy of the current license record.
func (v *Validator) Record() domain.LicenseRecord {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.record
}

// CachedKey returns the locally persisted license key, if any.
func (v *Validator) CachedKey() (string, bool) {
	key, ok := v.store.GetString(store.KeyLicenseKey)
	return key, ok && key != ""
}

// Bootstrap resolves the boot-time validity. With a cached key it re-validates
// against the backend using the resolved device id; without one it settles on
// Invalid without any network call, since there is nothing to validate.
func (v *Validator) Bootstrap(ctx context.Context, deviceID string) {
	key, ok := v.CachedKey()
	if !ok {
		v.logger.InfoContext(ctx, "no cached license key, skipping validation")
		v.setValidity(domain.Invalid(reasonInvalidKey), "", nil, nil)
		return
	}

	v.logger.InfoContext(ctx, "revalidating cached license key")
	v.Validate(ctx, key, deviceID, "", "")
}

// Validate runs one validation attempt and returns whether the license is
// valid. The outcome is also published as validator state, which is what the
// routing gate consumes; the error return exists for callers that log.
func (v *Validator) Validate(ctx context.Context, key, deviceID, email, password string) (bool, error) {
	v.setValidity(domain.Validity{State: domain.ValidityValidating}, key, nil, nil)

	resp, err := v.client.ValidateLicense(ctx, backend.ValidateRequest{
		LicenseKey: key,
		DeviceID:   deviceID,
		Email:      email,
		Password:   password,
	})
	if err != nil {
		// Transport or parse failure: the cached key is retained. The
		// reason names the unreachable endpoint so the operator can see
		// what was attempted.
		endpoint := v.client.Endpoint("/v1/license/validate")
		reason := fmt.Sprintf("Could not reach license service at %s", endpoint)
		v.logger.WarnContext(ctx, "license validation failed to complete",
			slog.String("endpoint", endpoint),
			slog.String("error", err.Error()))
		v.count(ctx, "connectivity_failure")
		v.setValidity(domain.Invalid(reason), key, nil, nil)
		return false, err
	}

	if !resp.IsValid {
		// Explicit rejection: purge the cached key before exposing the
		// state transition, so storage is never behind memory.
		reason := resp.Reason
		if reason == "" {
			reason = reasonInvalidKey
		}
		if err := v.store.Delete(store.KeyLicenseKey); err != nil {
			v.logger.ErrorContext(ctx, "failed to remove rejected license key",
				slog.String("error", err.Error()))
		}
		v.logger.InfoContext(ctx, "license rejected by server",
			slog.String("reason", reason))
		v.count(ctx, "rejected")
		v.setValidity(domain.Invalid(reason), "", nil, nil)
		return false, nil
	}

	// Valid: persist key (and owner email on activation) before the state
	// transition is visible to the gate.
	if err := v.store.SetString(store.KeyLicenseKey, key); err != nil {
		v.logger.ErrorContext(ctx, "failed to persist license key",
			slog.String("error", err.Error()))
	}
	if email != "" {
		if err := v.store.SetString(store.KeyOwnerEmail, email); err != nil {
			v.logger.ErrorContext(ctx, "failed to persist owner email",
				slog.String("error", err.Error()))
		}
	}

	v.logger.InfoContext(ctx, "license validated",
		slog.Bool("has_tenant", resp.Tenant != nil),
		slog.Bool("has_subscription", resp.Subscription != nil))
	v.count(ctx, "valid")
	v.setValidity(domain.Validity{State: domain.ValidityValid}, key, resp.Tenant, resp.Subscription)
	return true, nil
}

// Reset clears the in-memory record back to unknown. Used by the app-flow
// reset after the persisted slices are wiped.
func (v *Validator) Reset() {
	v.mu.Lock()
	v.record = domain.LicenseRecord{
		Validity: domain.Validity{State: domain.ValidityUnknown},
	}
	v.mu.Unlock()
}

// setValidity updates the record and publishes the transition to the gate.
// Both happen under the same lock so overlapping validations cannot leave the
// record reporting one response while the gate's last event carries another.
func (v *Validator) setValidity(validity domain.Validity, key string, tenant *domain.Tenant, sub *domain.Subscription) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.record = domain.LicenseRecord{
		Key:          key,
		Tenant:       tenant,
		Subscription: sub,
		Validity:     validity,
	}
	if v.gate != nil {
		v.gate.Apply(flow.ValidityChanged{Validity: validity})
	}
}

func (v *Validator) count(ctx context.Context, outcome string) {
	if v.metrics != nil && v.metrics.ValidationsTotal != nil {
		v.metrics.ValidationsTotal.Add(ctx, 1,
			metric.WithAttributes(attribute.String("outcome", outcome)))
	}
}
