package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/school-portal-api/internal/models"
	"github.com/noah-isme/school-portal-api/internal/rbac"
	"github.com/noah-isme/school-portal-api/pkg/response"
)

// RequireRoles admits identities whose role is in roles. Students pass only
// when models.RoleStudent is listed.
func RequireRoles(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := rbac.CheckRole(CurrentIdentity(c), roles...); err != nil {
			response.Abort(c, err)
			return
		}
		c.Next()
	}
}

// RequirePermission admits staff holding perm.
func RequirePermission(authorizer *rbac.Authorizer, perm models.Permission) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := authorizer.CheckPermission(CurrentIdentity(c), perm); err != nil {
			response.Abort(c, err)
			return
		}
		c.Next()
	}
}

// RequireAnyPermission admits staff holding at least one of perms.
func RequireAnyPermission(authorizer *rbac.Authorizer, perms ...models.Permission) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := authorizer.CheckAnyPermission(CurrentIdentity(c), perms...); err != nil {
			response.Abort(c, err)
			return
		}
		c.Next()
	}
}

// RequireOwnResource limits students to records of kind whose id is in the
// named path parameter. Staff pass through.
func RequireOwnResource(kind models.IdentityKind, param string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := rbac.CheckSelf(CurrentIdentity(c), kind, c.Param(param)); err != nil {
			response.Abort(c, err)
			return
		}
		c.Next()
	}
}
