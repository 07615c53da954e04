package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/school-portal-api/internal/dto"
	"github.com/noah-isme/school-portal-api/internal/models"
	"github.com/noah-isme/school-portal-api/internal/rbac"
	appErrors "github.com/noah-isme/school-portal-api/pkg/errors"
)

type roleStaffRepository interface {
	FindByID(ctx context.Context, id string) (*models.Staff, error)
	UpdateRole(ctx context.Context, id string, role models.Role, updatedAt time.Time) error
}

type auditStore interface {
	Create(ctx context.Context, log *models.AuditLog) error
	ListByResource(ctx context.Context, resource, resourceID, action string, limit int) ([]models.AuditLog, error)
}

// Permission source labels reported by Me.
const (
	PermissionSourceOverrides = "overrides"
	PermissionSourceRole      = "role"
	PermissionSourceNone      = "none"
)

// PermissionService exposes the permission catalogue and manages staff roles.
type PermissionService struct {
	staff      roleStaffRepository
	audit      auditStore
	authorizer *rbac.Authorizer
	validator  *validator.Validate
	logger     *zap.Logger
	now        func() time.Time
}

// NewPermissionService constructs a PermissionService.
func NewPermissionService(staff roleStaffRepository, audit auditStore, authorizer *rbac.Authorizer, validate *validator.Validate, logger *zap.Logger) *PermissionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PermissionService{
		staff:      staff,
		audit:      audit,
		authorizer: authorizer,
		validator:  validate,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Catalogue lists every known permission.
func (s *PermissionService) Catalogue() []rbac.PermissionInfo {
	return rbac.Catalogue()
}

// Roles returns the role table.
func (s *PermissionService) Roles() []dto.RolePermissions {
	table := s.authorizer.Table()
	roles := table.Roles()
	out := make([]dto.RolePermissions, 0, len(roles))
	for _, role := range roles {
		out = append(out, dto.RolePermissions{Role: role, Permissions: table.Permissions(role)})
	}
	return out
}

// Me describes where the caller's permissions come from.
func (s *PermissionService) Me(identity *models.Identity) (*dto.PermissionSummary, error) {
	if identity == nil {
		return nil, appErrors.ErrUnauthenticated
	}
	summary := &dto.PermissionSummary{
		Kind:        identity.Kind,
		Role:        identity.Role(),
		Source:      PermissionSourceNone,
		Permissions: s.authorizer.EffectivePermissions(identity),
	}
	if identity.IsStaff() {
		summary.Source = PermissionSourceRole
		if s.authorizer.Mode() == rbac.ModeIdentityFirst && len(identity.Staff.PermissionOverrides()) > 0 {
			summary.Source = PermissionSourceOverrides
		}
	}
	return summary, nil
}

// Check reports, per requested permission, whether the caller holds it.
func (s *PermissionService) Check(identity *models.Identity, req dto.CheckPermissionsRequest) (map[models.Permission]bool, error) {
	if identity == nil {
		return nil, appErrors.ErrUnauthenticated
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid permission check payload")
	}
	result := make(map[models.Permission]bool, len(req.Permissions))
	for _, p := range req.Permissions {
		result[p] = s.authorizer.HasPermission(identity, p)
	}
	return result, nil
}

// UpdateRole re-assigns a staff member's role. Granting the admin role
// additionally requires system:admin, and nobody may change their own role.
func (s *PermissionService) UpdateRole(ctx context.Context, actor *models.Identity, staffID string, req dto.UpdateRoleRequest) (*models.UserInfo, error) {
	if err := s.authorizer.CheckPermission(actor, rbac.PermUserManageRoles); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid role payload")
	}
	if actor.ID() == staffID {
		return nil, appErrors.Clone(appErrors.ErrInvalidInput, "you cannot change your own role")
	}
	if req.Role == models.RoleAdmin {
		if err := s.authorizer.CheckPermission(actor, rbac.PermSystemAdmin); err != nil {
			return nil, err
		}
	}

	staff, err := s.staff.FindByID(ctx, staffID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "staff not found")
		}
		return nil, appErrors.Internal(err, "failed to load staff")
	}

	previous := staff.Role
	if previous != req.Role {
		if err := s.staff.UpdateRole(ctx, staff.ID, req.Role, s.now()); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "staff not found")
			}
			return nil, appErrors.Internal(err, "failed to update role")
		}
		staff.Role = req.Role

		entry := models.NewAuditLog(actor, models.AuditActionRoleChange, "staff", staff.ID)
		if err := entry.SetValues(
			map[string]string{"role": string(previous)},
			map[string]string{"role": string(req.Role), "reason": req.Reason},
		); err != nil {
			s.logger.Warn("failed to encode role change values", zap.String("staff_id", staff.ID), zap.Error(err))
		}
		if err := s.audit.Create(ctx, entry); err != nil {
			s.logger.Warn("failed to record role change", zap.String("staff_id", staff.ID), zap.Error(err))
		}
		s.logger.Info("staff role changed",
			zap.String("staff_id", staff.ID),
			zap.String("from", string(previous)),
			zap.String("to", string(req.Role)),
			zap.String("by", actor.ID()),
		)
	}

	identity := models.NewStaffIdentity(staff)
	info := models.NewUserInfo(identity, s.authorizer.EffectivePermissions(identity))
	return &info, nil
}

// RoleHistory returns the recorded role changes of a staff member, newest first.
func (s *PermissionService) RoleHistory(ctx context.Context, actor *models.Identity, staffID string) ([]models.AuditLog, error) {
	if err := s.authorizer.CheckAnyPermission(actor, rbac.PermUserRead, rbac.PermUserManageRoles); err != nil {
		return nil, err
	}
	logs, err := s.audit.ListByResource(ctx, "staff", staffID, models.AuditActionRoleChange, 50)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load role history")
	}
	if logs == nil {
		logs = []models.AuditLog{}
	}
	return logs, nil
}
