package domain

// Role identifies an employee's role at a branch.
type Role string

const (
	RoleOwner   Role = "owner"
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleCashier Role = "cashier"
)

// Employee is the locally persisted record identifying the signed-in staff
// member. Role-derived flags are pure projections of Role and are never
// stored independently.
type Employee struct {
	ID          int64    `json:"id"`
	Name        string   `json:"name"`
	Role        Role     `json:"role"`
	BranchID    *int64   `json:"branch_id"`
	Permissions []string `json:"permissions"`
}

// IsAdmin reports whether the employee has tenant-wide administrative rights.
func (e Employee) IsAdmin() bool {
	return e.Role == RoleAdmin || e.Role == RoleOwner
}

// IsManager reports whether the employee manages a branch.
func (e Employee) IsManager() bool {
	return e.Role == RoleManager
}

// IsCashier reports whether the employee operates the register only.
func (e Employee) IsCashier() bool {
	return e.Role == RoleCashier
}

// CanManage reports whether the employee may reach management screens.
func (e Employee) CanManage() bool {
	return e.IsAdmin() || e.IsManager()
}

// HasPermission reports whether the employee carries the named permission.
func (e Employee) HasPermission(name string) bool {
	for _, p := range e.Permissions {
		if p == name {
			return true
		}
	}
	return false
}
