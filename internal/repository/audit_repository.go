package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/school-portal-api/internal/models"
	"github.com/noah-isme/school-portal-api/pkg/database"
	"github.com/noah-isme/school-portal-api/pkg/middleware/requestid"
)

// AuditRepository stores audit trail entries.
type AuditRepository struct {
	db *sqlx.DB
}

// NewAuditRepository constructs an AuditRepository.
func NewAuditRepository(db *sqlx.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Create inserts an audit log entry, tagging it with the request ID carried
// by ctx when the entry has none.
func (r *AuditRepository) Create(ctx context.Context, log *models.AuditLog) error {
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	if log.RequestID == "" {
		log.RequestID = requestid.FromContext(ctx)
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO audit_logs (id, actor_kind, actor_id, action, resource, resource_id, old_values, new_values, ip_address, user_agent, request_id, created_at)
        VALUES (:id, :actor_kind, :actor_id, :action, :resource, :resource_id, :old_values, :new_values, :ip_address, :user_agent, :request_id, :created_at)`
	if _, err := database.Conn(ctx, r.db).NamedExecContext(ctx, query, log); err != nil {
		return fmt.Errorf("create audit log: %w", err)
	}
	return nil
}

// ListByResource returns audit entries for a resource, newest first.
func (r *AuditRepository) ListByResource(ctx context.Context, resource, resourceID, action string, limit int) ([]models.AuditLog, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	query := `SELECT id, actor_kind, actor_id, action, resource, resource_id, old_values, new_values, ip_address, user_agent, request_id, created_at
        FROM audit_logs WHERE resource = $1 AND resource_id = $2`
	args := []interface{}{resource, resourceID}
	if action != "" {
		args = append(args, action)
		query += " AND action = $3"
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT %d", limit)

	var logs []models.AuditLog
	if err := database.Conn(ctx, r.db).SelectContext(ctx, &logs, query, args...); err != nil {
		return nil, fmt.Errorf("list audit logs: %w", err)
	}
	return logs, nil
}
