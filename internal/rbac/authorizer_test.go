package rbac

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/school-portal-api/internal/models"
	appErrors "github.com/noah-isme/school-portal-api/pkg/errors"
)

func withOverrides(role models.Role, perms ...string) *models.Identity {
	return models.NewStaffIdentity(&models.Staff{ID: "s-1", Role: role, Permissions: perms, Active: true})
}

func TestStudentsNeverHoldPermissions(t *testing.T) {
	permissive := NewTable(map[models.Role][]models.Permission{
		models.RoleStudent: {PermGradesRead, PermSystemAdmin},
	})
	for _, table := range []RoleTable{DefaultTable(), permissive} {
		for _, mode := range []Mode{ModeIdentityFirst, ModeRoleOnly} {
			authz := NewAuthorizer(table, mode)
			for _, info := range Catalogue() {
				err := authz.CheckPermission(student("stu-1"), info.Name)
				require.Error(t, err)
				assert.ErrorIs(t, err, appErrors.ErrForbidden)
				assert.Equal(t, "only staff may perform this operation", appErrors.FromError(err).Message)
			}
			assert.Error(t, authz.CheckPermission(student("stu-1"), "made:up"))
			assert.Empty(t, authz.EffectivePermissions(student("stu-1")))
		}
	}
}

func TestRoleDerivedPermissions(t *testing.T) {
	authz := NewAuthorizer(DefaultTable(), ModeRoleOnly)

	assert.NoError(t, authz.CheckPermission(staff("p", models.RolePrincipal), PermUserManageRoles))
	err := authz.CheckPermission(staff("t", models.RoleTeacher), PermReportsAccess)
	require.Error(t, err)
	assert.Equal(t, "missing permission: reports:access", appErrors.FromError(err).Message)

	for _, info := range Catalogue() {
		assert.NoError(t, authz.CheckPermission(staff("a", models.RoleAdmin), info.Name))
	}
}

func TestIdentityFirstPrefersOverrides(t *testing.T) {
	teacher := withOverrides(models.RoleTeacher, string(PermReportsAccess))

	authz := NewAuthorizer(DefaultTable(), ModeIdentityFirst)
	assert.NoError(t, authz.CheckPermission(teacher, PermReportsAccess))
	// role-derived grants are not merged in when overrides exist
	assert.ErrorIs(t, authz.CheckPermission(teacher, PermAssignmentsGrade), appErrors.ErrForbidden)
	assert.Equal(t, []models.Permission{PermReportsAccess}, authz.EffectivePermissions(teacher))

	// no overrides falls back to the role
	plain := withOverrides(models.RoleTeacher)
	assert.NoError(t, authz.CheckPermission(plain, PermAssignmentsGrade))
}

func TestRoleOnlyIgnoresOverrides(t *testing.T) {
	teacher := withOverrides(models.RoleTeacher, string(PermReportsAccess))

	authz := NewAuthorizer(DefaultTable(), ModeRoleOnly)
	assert.ErrorIs(t, authz.CheckPermission(teacher, PermReportsAccess), appErrors.ErrForbidden)
	assert.NoError(t, authz.CheckPermission(teacher, PermAssignmentsGrade))
	assert.Equal(t, DefaultTable().Permissions(models.RoleTeacher), authz.EffectivePermissions(teacher))
}

func TestCheckAnyPermission(t *testing.T) {
	authz := NewAuthorizer(DefaultTable(), ModeIdentityFirst)
	assert.NoError(t, authz.CheckAnyPermission(staff("p", models.RolePrincipal), PermSystemAdmin, PermUserManageRoles))
	err := authz.CheckAnyPermission(staff("t", models.RoleTeacher), PermSystemAdmin, PermUserManageRoles)
	require.Error(t, err)
	assert.Contains(t, appErrors.FromError(err).Message, "system:admin, user:manage_roles")
	assert.ErrorIs(t, authz.CheckAnyPermission(nil, PermSystemAdmin), appErrors.ErrUnauthenticated)
}

func TestSubstituteTable(t *testing.T) {
	table := NewTable(map[models.Role][]models.Permission{models.RoleTeacher: {PermSystemAdmin}})
	authz := NewAuthorizer(table, ModeRoleOnly)
	assert.NoError(t, authz.CheckPermission(staff("t", models.RoleTeacher), PermSystemAdmin))
	assert.Error(t, authz.CheckPermission(staff("a", models.RoleAdmin), PermSystemAdmin))
}

func TestTableIsImmutable(t *testing.T) {
	bindings := map[models.Role][]models.Permission{models.RoleTeacher: {PermGradesRead}}
	table := NewTable(bindings)
	bindings[models.RoleTeacher][0] = PermSystemAdmin
	bindings[models.RoleAdmin] = []models.Permission{PermSystemAdmin}

	assert.True(t, table.Grants(models.RoleTeacher, PermGradesRead))
	assert.False(t, table.Grants(models.RoleTeacher, PermSystemAdmin))
	assert.Equal(t, []models.Role{models.RoleTeacher}, table.Roles())

	perms := table.Permissions(models.RoleTeacher)
	perms[0] = PermSystemAdmin
	assert.Equal(t, []models.Permission{PermGradesRead}, table.Permissions(models.RoleTeacher))
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("ROLE_ONLY")
	require.NoError(t, err)
	assert.Equal(t, ModeRoleOnly, m)

	m, err = ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, ModeIdentityFirst, m)

	_, err = ParseMode("merged")
	assert.Error(t, err)
}

func TestDefaultBindingsOnlyUseKnownPermissions(t *testing.T) {
	for role, perms := range DefaultBindings() {
		for _, p := range perms {
			assert.True(t, Known(p), "role %s binds unknown permission %s", role, p)
		}
	}
}
