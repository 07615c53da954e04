package rbac

import "github.com/noah-isme/school-portal-api/internal/models"

// Permission catalogue.
const (
	PermSystemAdmin       models.Permission = "system:admin"
	PermUserRead          models.Permission = "user:read"
	PermUserManageRoles   models.Permission = "user:manage_roles"
	PermStudentsRead      models.Permission = "students:read"
	PermStudentsManage    models.Permission = "students:manage"
	PermAssignmentsCreate models.Permission = "assignments:create"
	PermAssignmentsGrade  models.Permission = "assignments:grade"
	PermGradesRead        models.Permission = "grades:read"
	PermGradesExport      models.Permission = "grades:export"
	PermReportsAccess     models.Permission = "reports:access"
	PermScheduleManage    models.Permission = "schedule:manage"
)

// PermissionInfo documents a permission for the catalogue endpoint.
type PermissionInfo struct {
	Name        models.Permission `json:"name"`
	Description string            `json:"description"`
}

var catalogue = []PermissionInfo{
	{PermSystemAdmin, "Full administrative access"},
	{PermUserRead, "View staff accounts"},
	{PermUserManageRoles, "Assign roles to staff accounts"},
	{PermStudentsRead, "View student records"},
	{PermStudentsManage, "Create, update and remove student records"},
	{PermAssignmentsCreate, "Create and manage assignments"},
	{PermAssignmentsGrade, "Grade submissions"},
	{PermGradesRead, "View grade ledgers"},
	{PermGradesExport, "Export grade reports"},
	{PermReportsAccess, "Access reports and analytics"},
	{PermScheduleManage, "Manage classes and schedules"},
}

// Catalogue returns every known permission with its description.
func Catalogue() []PermissionInfo {
	out := make([]PermissionInfo, len(catalogue))
	copy(out, catalogue)
	return out
}

// Known reports whether p is part of the catalogue.
func Known(p models.Permission) bool {
	for _, info := range catalogue {
		if info.Name == p {
			return true
		}
	}
	return false
}

// DefaultBindings is the role to permission mapping loaded at startup.
func DefaultBindings() map[models.Role][]models.Permission {
	all := make([]models.Permission, 0, len(catalogue))
	for _, info := range catalogue {
		all = append(all, info.Name)
	}
	return map[models.Role][]models.Permission{
		models.RoleAdmin: all,
		models.RolePrincipal: {
			PermUserRead, PermUserManageRoles,
			PermStudentsRead, PermStudentsManage,
			PermAssignmentsCreate, PermAssignmentsGrade,
			PermGradesRead, PermGradesExport,
			PermReportsAccess, PermScheduleManage,
		},
		models.RoleDirector: {
			PermUserRead,
			PermStudentsRead, PermStudentsManage,
			PermGradesRead, PermGradesExport,
			PermReportsAccess, PermScheduleManage,
		},
		models.RoleHeadTeacher: {
			PermUserRead,
			PermStudentsRead,
			PermAssignmentsCreate, PermAssignmentsGrade,
			PermGradesRead, PermGradesExport,
			PermReportsAccess, PermScheduleManage,
		},
		models.RoleTeacher: {
			PermStudentsRead,
			PermAssignmentsCreate, PermAssignmentsGrade,
			PermGradesRead,
		},
		models.RoleStudent: {},
	}
}
