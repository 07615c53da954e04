package models

import (
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx/types"
)

// Audit actions.
const (
	AuditActionLogin            = "LOGIN"
	AuditActionPasswordChange   = "PASSWORD_CHANGE"
	AuditActionStaffRegister    = "STAFF_REGISTER"
	AuditActionRoleChange       = "ROLE_CHANGE"
	AuditActionGrade            = "GRADE"
	AuditActionStudentCreate    = "STUDENT_CREATE"
	AuditActionStudentDelete    = "STUDENT_DELETE"
	AuditActionEnrollmentStatus = "ENROLLMENT_STATUS"
	AuditActionCreate           = "CREATE"
	AuditActionUpdate           = "UPDATE"
	AuditActionDelete           = "DELETE"
)

// AuditLog represents an audit trail record.
type AuditLog struct {
	ID         string             `db:"id" json:"id"`
	ActorKind  *IdentityKind      `db:"actor_kind" json:"actor_kind,omitempty"`
	ActorID    *string            `db:"actor_id" json:"actor_id,omitempty"`
	Action     string             `db:"action" json:"action"`
	Resource   string             `db:"resource" json:"resource"`
	ResourceID *string            `db:"resource_id" json:"resource_id,omitempty"`
	OldValues  types.NullJSONText `db:"old_values" json:"old_values,omitempty"`
	NewValues  types.NullJSONText `db:"new_values" json:"new_values,omitempty"`
	IPAddress  string             `db:"ip_address" json:"ip_address"`
	UserAgent  string             `db:"user_agent" json:"user_agent"`
	RequestID  string             `db:"request_id" json:"request_id,omitempty"`
	CreatedAt  time.Time          `db:"created_at" json:"created_at"`
}

// NewAuditLog fills in the actor from identity when present.
func NewAuditLog(actor *Identity, action, resource, resourceID string) *AuditLog {
	log := &AuditLog{Action: action, Resource: resource}
	if actor != nil && actor.ID() != "" {
		kind := actor.Kind
		id := actor.ID()
		log.ActorKind = &kind
		log.ActorID = &id
	}
	if resourceID != "" {
		log.ResourceID = &resourceID
	}
	return log
}

// SetValues records JSON snapshots of the before and after state.
func (l *AuditLog) SetValues(oldValues, newValues interface{}) error {
	if oldValues != nil {
		raw, err := json.Marshal(oldValues)
		if err != nil {
			return err
		}
		l.OldValues = types.NullJSONText{JSONText: raw, Valid: true}
	}
	if newValues != nil {
		raw, err := json.Marshal(newValues)
		if err != nil {
			return err
		}
		l.NewValues = types.NullJSONText{JSONText: raw, Valid: true}
	}
	return nil
}
