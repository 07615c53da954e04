package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/school-portal-api/internal/models"
	appErrors "github.com/noah-isme/school-portal-api/pkg/errors"
	"github.com/noah-isme/school-portal-api/pkg/logger"
	"github.com/noah-isme/school-portal-api/pkg/response"
)

// ContextUserKey is the gin context key storing the resolved *models.Identity.
const ContextUserKey = "currentIdentity"

// Authenticator turns a bearer token into an identity.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*models.Identity, error)
}

// Authenticate requires a valid bearer token whose account still exists.
func Authenticate(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := BearerToken(c.GetHeader("Authorization"))
		if err != nil {
			response.Abort(c, err)
			return
		}

		identity, err := auth.Authenticate(c.Request.Context(), token)
		if err != nil {
			response.Abort(c, err)
			return
		}

		SetIdentity(c, identity)
		c.Next()
	}
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, error) {
	if header == "" {
		return "", appErrors.Clone(appErrors.ErrUnauthenticated, "access token required")
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", appErrors.Clone(appErrors.ErrUnauthenticated, "invalid authorization header")
	}
	return strings.TrimSpace(parts[1]), nil
}

// SetIdentity stores identity on the request and exposes it to the request logger.
func SetIdentity(c *gin.Context, identity *models.Identity) {
	c.Set(ContextUserKey, identity)
	c.Set(logger.ContextPrincipalKind, string(identity.Kind))
	c.Set(logger.ContextPrincipalID, identity.ID())
}

// CurrentIdentity returns the identity stored by Authenticate, or nil.
func CurrentIdentity(c *gin.Context) *models.Identity {
	value, exists := c.Get(ContextUserKey)
	if !exists {
		return nil
	}
	identity, ok := value.(*models.Identity)
	if !ok {
		return nil
	}
	return identity
}
