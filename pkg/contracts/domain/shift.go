package domain

import "time"

// Shift is a bounded work period for an employee, opened with a declared
// opening cash amount. Shifts are owned by the backend; the terminal only
// observes them right after login and optionally creates one.
type Shift struct {
	ID          int64     `json:"id"`
	EmployeeID  int64     `json:"employee_id"`
	BranchID    *int64    `json:"branch_id"`
	OpeningCash string    `json:"opening_cash"`
	StartedAt   time.Time `json:"started_at"`
}
