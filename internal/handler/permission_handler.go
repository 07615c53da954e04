package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/school-portal-api/internal/dto"
	"github.com/noah-isme/school-portal-api/internal/models"
	"github.com/noah-isme/school-portal-api/internal/rbac"
	"github.com/noah-isme/school-portal-api/pkg/response"
)

type permissionService interface {
	Catalogue() []rbac.PermissionInfo
	Roles() []dto.RolePermissions
	Me(identity *models.Identity) (*dto.PermissionSummary, error)
	Check(identity *models.Identity, req dto.CheckPermissionsRequest) (map[models.Permission]bool, error)
	UpdateRole(ctx context.Context, actor *models.Identity, staffID string, req dto.UpdateRoleRequest) (*models.UserInfo, error)
	RoleHistory(ctx context.Context, actor *models.Identity, staffID string) ([]models.AuditLog, error)
}

// PermissionHandler exposes the permission catalogue and role management.
type PermissionHandler struct {
	service permissionService
}

// NewPermissionHandler constructs PermissionHandler.
func NewPermissionHandler(svc permissionService) *PermissionHandler {
	return &PermissionHandler{service: svc}
}

// Catalogue godoc
// @Summary List known permissions
// @Tags Permissions
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /permissions [get]
func (h *PermissionHandler) Catalogue(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.service.Catalogue(), nil)
}

// Roles godoc
// @Summary Role to permission table
// @Tags Permissions
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /permissions/roles [get]
func (h *PermissionHandler) Roles(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.service.Roles(), nil)
}

// Me godoc
// @Summary Effective permissions of the caller
// @Tags Permissions
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /permissions/me [get]
func (h *PermissionHandler) Me(c *gin.Context) {
	identity := identityFromContext(c)
	if identity == nil {
		return
	}
	summary, err := h.service.Me(identity)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}

// Check godoc
// @Summary Check permissions
// @Tags Permissions
// @Accept json
// @Produce json
// @Param payload body dto.CheckPermissionsRequest true "Permissions to check"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /permissions/check [post]
func (h *PermissionHandler) Check(c *gin.Context) {
	identity := identityFromContext(c)
	if identity == nil {
		return
	}
	var req dto.CheckPermissionsRequest
	if !bindJSON(c, &req, "invalid payload") {
		return
	}
	result, err := h.service.Check(identity, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// UpdateRole godoc
// @Summary Change a staff member's role
// @Tags Permissions
// @Accept json
// @Produce json
// @Param id path string true "Staff ID"
// @Param payload body dto.UpdateRoleRequest true "New role"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /permissions/users/{id}/role [put]
func (h *PermissionHandler) UpdateRole(c *gin.Context) {
	actor := identityFromContext(c)
	if actor == nil {
		return
	}
	var req dto.UpdateRoleRequest
	if !bindJSON(c, &req, "invalid payload") {
		return
	}
	user, err := h.service.UpdateRole(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, user, nil)
}

// RoleHistory godoc
// @Summary Role change history of a staff member
// @Tags Permissions
// @Produce json
// @Param id path string true "Staff ID"
// @Success 200 {object} response.Envelope
// @Router /permissions/users/{id}/role-history [get]
func (h *PermissionHandler) RoleHistory(c *gin.Context) {
	actor := identityFromContext(c)
	if actor == nil {
		return
	}
	logs, err := h.service.RoleHistory(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, logs, nil)
}
