package project

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Role is the part a dataset plays in an analysis.
type Role string

const (
	RoleCurrent     Role = "current"
	RoleHistorical  Role = "historical"
	RoleMaintenance Role = "maintenance"
)

// Roles lists every role in analysis order.
var Roles = []Role{RoleCurrent, RoleHistorical, RoleMaintenance}

// ErrUnknownRole is returned for a role name other than current, historical or maintenance.
var ErrUnknownRole = errors.New("unknown dataset role")

// ParseRole accepts a role name, case-insensitively.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Roles {
		if r == known {
			return r, nil
		}
	}
	return "", fmt.Errorf("%q: %w (want current, historical or maintenance)", s, ErrUnknownRole)
}

// Dataset is a survey file registered with a project.
type Dataset struct {
	ID      string    `json:"id"`
	Role    Role      `json:"role"`
	Path    string    `json:"path"`
	Name    string    `json:"name"`
	Sheet   string    `json:"sheet,omitempty"`
	Columns []string  `json:"columns"`
	Rows    int       `json:"rows"`
	AddedAt time.Time `json:"added_at"`
}
