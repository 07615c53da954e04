package rbac

import (
	"fmt"
	"strings"

	"github.com/noah-isme/school-portal-api/internal/models"
	appErrors "github.com/noah-isme/school-portal-api/pkg/errors"
)

// Mode selects where a staff member's permission set comes from.
type Mode string

const (
	// ModeIdentityFirst uses the account's own permission set when it is
	// non-empty and the role bindings otherwise.
	ModeIdentityFirst Mode = "identity_first"
	// ModeRoleOnly always derives permissions from the role table.
	ModeRoleOnly Mode = "role_only"
)

// ParseMode validates a configured mode.
func ParseMode(raw string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(raw))) {
	case ModeIdentityFirst, "":
		return ModeIdentityFirst, nil
	case ModeRoleOnly:
		return ModeRoleOnly, nil
	}
	return "", fmt.Errorf("unknown permission source %q", raw)
}

// Authorizer resolves and checks permissions against a RoleTable.
type Authorizer struct {
	table RoleTable
	mode  Mode
}

// NewAuthorizer binds a table and mode.
func NewAuthorizer(table RoleTable, mode Mode) *Authorizer {
	if mode == "" {
		mode = ModeIdentityFirst
	}
	return &Authorizer{table: table, mode: mode}
}

// Table exposes the underlying read-only table.
func (a *Authorizer) Table() RoleTable {
	return a.table
}

// Mode returns the configured permission source.
func (a *Authorizer) Mode() Mode {
	return a.mode
}

// EffectivePermissions returns the resolved set for identity. Students
// never hold permissions.
func (a *Authorizer) EffectivePermissions(identity *models.Identity) []models.Permission {
	if !identity.IsStaff() {
		return []models.Permission{}
	}
	if a.mode == ModeIdentityFirst {
		if overrides := identity.Staff.PermissionOverrides(); len(overrides) > 0 {
			set := make(map[models.Permission]struct{}, len(overrides))
			for _, p := range overrides {
				set[p] = struct{}{}
			}
			return sortedPermissions(set)
		}
	}
	return a.table.Permissions(identity.Staff.Role)
}

// HasPermission reports whether identity holds perm.
func (a *Authorizer) HasPermission(identity *models.Identity, perm models.Permission) bool {
	if !identity.IsStaff() {
		return false
	}
	if a.mode == ModeIdentityFirst {
		if overrides := identity.Staff.PermissionOverrides(); len(overrides) > 0 {
			for _, p := range overrides {
				if p == perm {
					return true
				}
			}
			return false
		}
	}
	return a.table.Grants(identity.Staff.Role, perm)
}

// CheckPermission fails with Forbidden unless identity holds perm.
func (a *Authorizer) CheckPermission(identity *models.Identity, perm models.Permission) error {
	if identity == nil {
		return appErrors.ErrUnauthenticated
	}
	if !identity.IsStaff() {
		return appErrors.Clone(appErrors.ErrForbidden, "only staff may perform this operation")
	}
	if !a.HasPermission(identity, perm) {
		return appErrors.Clone(appErrors.ErrForbidden, fmt.Sprintf("missing permission: %s", perm))
	}
	return nil
}

// CheckAnyPermission fails with Forbidden unless identity holds at least one of perms.
func (a *Authorizer) CheckAnyPermission(identity *models.Identity, perms ...models.Permission) error {
	if identity == nil {
		return appErrors.ErrUnauthenticated
	}
	if !identity.IsStaff() {
		return appErrors.Clone(appErrors.ErrForbidden, "only staff may perform this operation")
	}
	for _, p := range perms {
		if a.HasPermission(identity, p) {
			return nil
		}
	}
	names := make([]string, len(perms))
	for i, p := range perms {
		names[i] = string(p)
	}
	return appErrors.Clone(appErrors.ErrForbidden, fmt.Sprintf("missing permission: one of %s", strings.Join(names, ", ")))
}
