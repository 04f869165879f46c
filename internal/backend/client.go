// Package backend implements the HTTP client for the tenant cloud backend:
// license validation, employee PIN login and shift operations.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"lemonpos/internal/config"
	"lemonpos/pkg/contracts/domain"
)

// Sentinel errors for in-band rejections the caller must distinguish from
// transport failures.
var (
	// ErrPINRejected is returned when the backend rejects the PIN for the
	// given employee.
	ErrPINRejected = errors.New("pin rejected")
)

// Client talks to the tenant cloud backend.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

// New constructs a Client from configuration.
func New(cfg config.BackendConfig, logger *slog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		http:    &http.Client{Timeout: cfg.Timeout},
		logger:  logger.With(slog.String("component", "backend")),
	}
}

// Endpoint returns the absolute URL for a backend path. Connectivity error
// messages surface it so the operator can see which host was unreachable.
func (c *Client) Endpoint(path string) string {
	return c.baseURL + path
}

// The backend speaks camelCase JSON. The payload types below are the wire
// shapes; domain types are built from them so local tag conventions never
// leak into the protocol.

type tenantPayload struct {
	ID   int64   `json:"id"`
	Name string  `json:"name"`
	Logo *string `json:"logo"`
}

func (p *tenantPayload) toDomain() *domain.Tenant {
	if p == nil {
		return nil
	}
	return &domain.Tenant{ID: p.ID, Name: p.Name, Logo: p.Logo}
}

type subscriptionPayload struct {
	Active          bool   `json:"active"`
	Plan            string `json:"plan"`
	DaysRemaining   int    `json:"daysRemaining"`
	RequiresUpgrade bool   `json:"requiresUpgrade"`
}

func (p *subscriptionPayload) toDomain() *domain.Subscription {
	if p == nil {
		return nil
	}
	return &domain.Subscription{
		Active:          p.Active,
		Plan:            p.Plan,
		DaysRemaining:   p.DaysRemaining,
		RequiresUpgrade: p.RequiresUpgrade,
	}
}

type employeePayload struct {
	ID          int64       `json:"id"`
	Name        string      `json:"name"`
	Role        domain.Role `json:"role"`
	BranchID    *int64      `json:"branchId"`
	Permissions []string    `json:"permissions"`
}

func (p employeePayload) toDomain() domain.Employee {
	return domain.Employee{
		ID:          p.ID,
		Name:        p.Name,
		Role:        p.Role,
		BranchID:    p.BranchID,
		Permissions: p.Permissions,
	}
}

type shiftPayload struct {
	ID          int64     `json:"id"`
	EmployeeID  int64     `json:"employeeId"`
	BranchID    *int64    `json:"branchId"`
	OpeningCash string    `json:"openingCash"`
	StartedAt   time.Time `json:"startedAt"`
}

func (p shiftPayload) toDomain() *domain.Shift {
	return &domain.Shift{
		ID:          p.ID,
		EmployeeID:  p.EmployeeID,
		BranchID:    p.BranchID,
		OpeningCash: p.OpeningCash,
		StartedAt:   p.StartedAt,
	}
}

// ValidateRequest is the license validation request payload. Email and
// password are carried only on first-time activation flows.
type ValidateRequest struct {
	LicenseKey string `json:"licenseKey"`
	DeviceID   string `json:"deviceId"`
	Email      string `json:"email,omitempty"`
	Password   string `json:"password,omitempty"`
}

// ValidateResponse is the structured license validation outcome, already
// mapped to domain types.
type ValidateResponse struct {
	IsValid      bool
	Tenant       *domain.Tenant
	Subscription *domain.Subscription
	Reason       string
}

type validatePayload struct {
	IsValid      bool                 `json:"isValid"`
	Tenant       *tenantPayload       `json:"tenant"`
	Subscription *subscriptionPayload `json:"subscription"`
	Reason       string               `json:"reason"`
}

// ValidateLicense performs the license validation call. An explicit server
// rejection is an in-band response (IsValid=false), not an error; errors mean
// the request could not complete or the response could not be parsed.
func (c *Client) ValidateLicense(ctx context.Context, req ValidateRequest) (*ValidateResponse, error) {
	var resp validatePayload
	if err := c.postJSON(ctx, "/v1/license/validate", req, &resp); err != nil {
		return nil, err
	}
	return &ValidateResponse{
		IsValid:      resp.IsValid,
		Tenant:       resp.Tenant.toDomain(),
		Subscription: resp.Subscription.toDomain(),
		Reason:       resp.Reason,
	}, nil
}

// loginRequest is the employee PIN login payload.
type loginRequest struct {
	PIN        string `json:"pin"`
	EmployeeID int64  `json:"employeeId"`
}

// LoginPIN authenticates an employee by PIN. A mismatch yields ErrPINRejected.
func (c *Client) LoginPIN(ctx context.Context, employeeID int64, pin string) (*domain.Employee, error) {
	var payload employeePayload
	err := c.postJSON(ctx, "/v1/auth/pin", loginRequest{PIN: pin, EmployeeID: employeeID}, &payload)
	if err != nil {
		var se *statusError
		if errors.As(err, &se) && se.code == http.StatusUnauthorized {
			return nil, ErrPINRejected
		}
		return nil, err
	}
	employee := payload.toDomain()
	return &employee, nil
}

// ActiveShift queries for the employee's open shift. Absence of a shift is
// (nil, nil), not an error.
func (c *Client) ActiveShift(ctx context.Context, employeeID int64) (*domain.Shift, error) {
	url := c.Endpoint(fmt.Sprintf("/v1/shifts/active?employeeId=%d", employeeID))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to query active shift: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &statusError{code: resp.StatusCode, endpoint: url}
	}

	var payload shiftPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to parse shift response: %w", err)
	}
	return payload.toDomain(), nil
}

// CreateShiftRequest is the shift creation payload.
type CreateShiftRequest struct {
	EmployeeID  int64  `json:"employeeId"`
	BranchID    *int64 `json:"branchId"`
	OpeningCash string `json:"openingCash"`
}

// CreateShift opens a shift with the declared opening cash amount. The result
// is not required for routing; callers may discard it.
func (c *Client) CreateShift(ctx context.Context, req CreateShiftRequest) (*domain.Shift, error) {
	var payload shiftPayload
	if err := c.postJSON(ctx, "/v1/shifts", req, &payload); err != nil {
		return nil, err
	}
	return payload.toDomain(), nil
}

// statusError carries a non-2xx backend status.
type statusError struct {
	code     int
	endpoint string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("backend returned status %d for %s", e.code, e.endpoint)
}

// postJSON issues a JSON POST and decodes the response into out.
func (c *Client) postJSON(ctx context.Context, path string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	url := c.Endpoint(path)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return &statusError{code: resp.StatusCode, endpoint: url}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to parse response from %s: %w", url, err)
	}
	return nil
}
