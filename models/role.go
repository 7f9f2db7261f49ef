package models

import "fmt"

// Role is the closed set of identities a connection or customer can hold.
type Role string

const (
	RoleCasual              Role = "CASUAL"
	RoleSubscriber          Role = "SUBSCRIBER"
	RoleStaffRepresentative Role = "STAFF_REPRESENTATIVE"
	RoleStaffManager        Role = "STAFF_MANAGER"
)

// ParseRole accepts the canonical names plus the short staff aliases used in config files.
func ParseRole(s string) (Role, error) {
	switch s {
	case string(RoleCasual), "casual":
		return RoleCasual, nil
	case string(RoleSubscriber), "subscriber":
		return RoleSubscriber, nil
	case string(RoleStaffRepresentative), "representative", "staff":
		return RoleStaffRepresentative, nil
	case string(RoleStaffManager), "manager":
		return RoleStaffManager, nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

func (r Role) IsStaff() bool {
	return r == RoleStaffRepresentative || r == RoleStaffManager
}

func (r Role) IsManager() bool {
	return r == RoleStaffManager
}
