package dto

import "github.com/noah-isme/school-portal-api/internal/models"

// CheckPermissionsRequest asks which of the listed permissions the caller holds.
type CheckPermissionsRequest struct {
	Permissions []models.Permission `json:"permissions" validate:"required,min=1,dive,required"`
}

// UpdateRoleRequest reassigns a staff role.
type UpdateRoleRequest struct {
	Role   models.Role `json:"role" validate:"required,oneof=admin principal director head_teacher teacher"`
	Reason string      `json:"reason" validate:"max=500"`
}

// RolePermissions is one row of the role table.
type RolePermissions struct {
	Role        models.Role         `json:"role"`
	Permissions []models.Permission `json:"permissions"`
}

// PermissionSummary describes the caller's effective permissions.
type PermissionSummary struct {
	Kind        models.IdentityKind `json:"kind"`
	Role        models.Role         `json:"role"`
	Source      string              `json:"source"`
	Permissions []models.Permission `json:"permissions"`
}
