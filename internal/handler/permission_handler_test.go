package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/school-portal-api/internal/dto"
	"github.com/noah-isme/school-portal-api/internal/models"
	"github.com/noah-isme/school-portal-api/internal/rbac"
	appErrors "github.com/noah-isme/school-portal-api/pkg/errors"
)

type permissionServiceMock struct {
	roleReq  dto.UpdateRoleRequest
	roleFor  string
	roleErr  error
	checkReq dto.CheckPermissionsRequest
}

func (m *permissionServiceMock) Catalogue() []rbac.PermissionInfo {
	return rbac.Catalogue()
}

func (m *permissionServiceMock) Roles() []dto.RolePermissions {
	return []dto.RolePermissions{{Role: models.RoleTeacher, Permissions: []models.Permission{rbac.PermAssignmentsGrade}}}
}

func (m *permissionServiceMock) Me(identity *models.Identity) (*dto.PermissionSummary, error) {
	return &dto.PermissionSummary{Kind: identity.Kind, Role: identity.Role(), Permissions: []models.Permission{}}, nil
}

func (m *permissionServiceMock) Check(identity *models.Identity, req dto.CheckPermissionsRequest) (map[models.Permission]bool, error) {
	m.checkReq = req
	out := make(map[models.Permission]bool, len(req.Permissions))
	for _, p := range req.Permissions {
		out[p] = p == rbac.PermAssignmentsGrade
	}
	return out, nil
}

func (m *permissionServiceMock) UpdateRole(ctx context.Context, actor *models.Identity, staffID string, req dto.UpdateRoleRequest) (*models.UserInfo, error) {
	m.roleFor = staffID
	m.roleReq = req
	if m.roleErr != nil {
		return nil, m.roleErr
	}
	return &models.UserInfo{ID: staffID, Role: req.Role}, nil
}

func (m *permissionServiceMock) RoleHistory(ctx context.Context, actor *models.Identity, staffID string) ([]models.AuditLog, error) {
	return []models.AuditLog{}, nil
}

func TestPermissionHandlerCheck(t *testing.T) {
	mockSvc := &permissionServiceMock{}
	c, w := newGinContext(http.MethodPost, "/permissions/check", []byte(`{"permissions":["assignments:grade","system:admin"]}`))
	withIdentity(c, teacherIdentity)

	NewPermissionHandler(mockSvc).Check(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"assignments:grade":true,"system:admin":false}`, string(decode(t, w).Data))
	assert.Len(t, mockSvc.checkReq.Permissions, 2)
}

func TestPermissionHandlerUpdateRole(t *testing.T) {
	mockSvc := &permissionServiceMock{}
	c, w := newGinContext(http.MethodPut, "/permissions/users/staff-2/role", []byte(`{"role":"head_teacher","reason":"promotion"}`))
	c.Params = gin.Params{{Key: "id", Value: "staff-2"}}
	withIdentity(c, teacherIdentity)

	NewPermissionHandler(mockSvc).UpdateRole(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "staff-2", mockSvc.roleFor)
	assert.Equal(t, models.RoleHeadTeacher, mockSvc.roleReq.Role)
	assert.Equal(t, "promotion", mockSvc.roleReq.Reason)
}

func TestPermissionHandlerUpdateRoleForbidden(t *testing.T) {
	mockSvc := &permissionServiceMock{roleErr: appErrors.ErrForbidden}
	c, w := newGinContext(http.MethodPut, "/permissions/users/staff-2/role", []byte(`{"role":"admin"}`))
	c.Params = gin.Params{{Key: "id", Value: "staff-2"}}
	withIdentity(c, teacherIdentity)

	NewPermissionHandler(mockSvc).UpdateRole(c)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestPermissionHandlerCatalogueAndRoles(t *testing.T) {
	h := NewPermissionHandler(&permissionServiceMock{})

	c, w := newGinContext(http.MethodGet, "/permissions", nil)
	h.Catalogue(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(decode(t, w).Data), `"name":"user:manage_roles"`)

	c, w = newGinContext(http.MethodGet, "/permissions/roles", nil)
	h.Roles(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(decode(t, w).Data), `"role":"teacher"`)
}
