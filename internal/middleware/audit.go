package middleware

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/school-portal-api/internal/models"
)

// AuditWriter persists audit records.
type AuditWriter interface {
	Create(ctx context.Context, log *models.AuditLog) error
}

// Audit records successful calls of the wrapped route. idParam names the
// path parameter holding the resource id and may be empty.
func Audit(writer AuditWriter, logger *zap.Logger, action, resource, idParam string) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		if writer == nil || status >= 400 {
			return
		}

		var resourceID string
		if idParam != "" {
			resourceID = c.Param(idParam)
		}
		entry := models.NewAuditLog(CurrentIdentity(c), action, resource, resourceID)
		entry.IPAddress = c.ClientIP()
		entry.UserAgent = c.GetHeader("User-Agent")
		if err := entry.SetValues(nil, map[string]interface{}{
			"path":       c.FullPath(),
			"method":     c.Request.Method,
			"status":     status,
			"latency_ms": time.Since(start).Milliseconds(),
		}); err != nil {
			logger.Warn("failed to encode audit values", zap.String("action", action), zap.Error(err))
		}

		if err := writer.Create(c.Request.Context(), entry); err != nil {
			logger.Warn("failed to record audit log", zap.String("action", action), zap.String("resource", resource), zap.Error(err))
		}
	}
}
