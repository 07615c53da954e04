package rbac

import (
	"sort"

	"github.com/noah-isme/school-portal-api/internal/models"
)

// RoleTable is the read-only view of role to permission bindings.
type RoleTable interface {
	Roles() []models.Role
	Permissions(role models.Role) []models.Permission
	Grants(role models.Role, perm models.Permission) bool
}

// Table is an immutable RoleTable. Build it once and share it by reference.
type Table struct {
	roles    []models.Role
	bindings map[models.Role]map[models.Permission]struct{}
}

// NewTable copies bindings into an immutable table.
func NewTable(bindings map[models.Role][]models.Permission) *Table {
	t := &Table{bindings: make(map[models.Role]map[models.Permission]struct{}, len(bindings))}
	for role, perms := range bindings {
		set := make(map[models.Permission]struct{}, len(perms))
		for _, p := range perms {
			set[p] = struct{}{}
		}
		t.bindings[role] = set
		t.roles = append(t.roles, role)
	}
	sort.Slice(t.roles, func(i, j int) bool { return t.roles[i] < t.roles[j] })
	return t
}

// DefaultTable builds the table from DefaultBindings.
func DefaultTable() *Table {
	return NewTable(DefaultBindings())
}

// Roles returns the roles known to the table in a stable order.
func (t *Table) Roles() []models.Role {
	out := make([]models.Role, len(t.roles))
	copy(out, t.roles)
	return out
}

// Permissions returns a sorted copy of the permissions bound to role.
func (t *Table) Permissions(role models.Role) []models.Permission {
	return sortedPermissions(t.bindings[role])
}

// Grants reports whether role holds perm.
func (t *Table) Grants(role models.Role, perm models.Permission) bool {
	_, ok := t.bindings[role][perm]
	return ok
}

func sortedPermissions(set map[models.Permission]struct{}) []models.Permission {
	out := make([]models.Permission, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
