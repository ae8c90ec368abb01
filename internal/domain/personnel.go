package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrInvalidRole is returned for roles outside the known set.
var ErrInvalidRole = errors.New("invalid role")

// Role is an application role stored in user_roles.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleSupervisor Role = "supervisor"
	RoleTechnician Role = "tecnico"
	RoleReader     Role = "lector"
)

// ParseRole validates a role label.
func ParseRole(raw string) (Role, error) {
	switch role := Role(FoldLabel(raw)); role {
	case RoleAdmin, RoleSupervisor, RoleTechnician, RoleReader:
		return role, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidRole, raw)
	}
}

// Person is a member of the maintenance staff.
type Person struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Position  string    `json:"position"`
	Phone     string    `json:"phone"`
	Active    bool      `json:"active"`
	Role      Role      `json:"role,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate checks the fields a person record needs.
func (p Person) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrValidation)
	}
	if email := strings.TrimSpace(p.Email); email != "" && !strings.Contains(email, "@") {
		return fmt.Errorf("%w: email %q is not valid", ErrValidation, email)
	}
	return nil
}
