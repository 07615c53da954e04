package models

import "time"

// NotificationType enumerates realtime event types.
type NotificationType string

const (
	NotificationAssignment NotificationType = "assignment"
	NotificationSubmission NotificationType = "submission"
	NotificationGrade      NotificationType = "grade"
	NotificationSystem     NotificationType = "system"
)

// Notification is an event pushed to one room.
type Notification struct {
	Room      string                 `json:"room"`
	Type      NotificationType       `json:"type"`
	Message   string                 `json:"message"`
	Data      map[string]interface{} `json:"data,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	RequestID string                 `json:"request_id,omitempty"`
}
