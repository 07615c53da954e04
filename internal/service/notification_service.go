package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/school-portal-api/internal/models"
	"github.com/noah-isme/school-portal-api/internal/realtime"
	"github.com/noah-isme/school-portal-api/pkg/jobs"
	"github.com/noah-isme/school-portal-api/pkg/middleware/requestid"
)

// JobTypeNotification is the queue job type carrying a models.Notification.
const JobTypeNotification = "notification.publish"

type notificationPublisher interface {
	Publish(ctx context.Context, n models.Notification) error
}

type notificationQueue interface {
	Register(jobType string, handler jobs.Handler)
	Enqueue(job jobs.Job) error
}

// NotificationService queues realtime notifications and publishes them from
// queue workers so callers never wait on delivery.
type NotificationService struct {
	queue     notificationQueue
	publisher notificationPublisher
	metrics   *MetricsService
	logger    *zap.Logger
	enabled   bool
	now       func() time.Time
}

// NewNotificationService wires the queue handler for notification jobs.
func NewNotificationService(queue notificationQueue, publisher notificationPublisher, metrics *MetricsService, logger *zap.Logger, enabled bool) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &NotificationService{
		queue:     queue,
		publisher: publisher,
		metrics:   metrics,
		logger:    logger,
		enabled:   enabled && queue != nil && publisher != nil,
		now:       func() time.Time { return time.Now().UTC() },
	}
	if s.enabled {
		queue.Register(JobTypeNotification, s.handle)
	}
	return s
}

// Notify queues a notification for room, tagged with the request ID carried
// by ctx. Failures are logged, never returned.
func (s *NotificationService) Notify(ctx context.Context, room string, kind models.NotificationType, message string, data map[string]interface{}) {
	if s == nil || !s.enabled {
		return
	}
	n := models.Notification{
		Room:      room,
		Type:      kind,
		Message:   message,
		Data:      data,
		Timestamp: s.now(),
		RequestID: requestid.FromContext(ctx),
	}
	if err := s.queue.Enqueue(jobs.Job{Type: JobTypeNotification, Payload: n}); err != nil {
		s.logger.Warn("failed to queue notification", zap.String("room", room), zap.String("request_id", n.RequestID), zap.Error(err))
	}
}

// NotifyStudent queues a notification for one student.
func (s *NotificationService) NotifyStudent(ctx context.Context, studentID string, kind models.NotificationType, message string, data map[string]interface{}) {
	s.Notify(ctx, realtime.UserRoom(models.KindStudent, studentID), kind, message, data)
}

// NotifyStaff queues a notification for one staff member.
func (s *NotificationService) NotifyStaff(ctx context.Context, staffID string, kind models.NotificationType, message string, data map[string]interface{}) {
	s.Notify(ctx, realtime.UserRoom(models.KindStaff, staffID), kind, message, data)
}

// NotifyClasses queues one notification per class room.
func (s *NotificationService) NotifyClasses(ctx context.Context, classIDs []string, kind models.NotificationType, message string, data map[string]interface{}) {
	for _, id := range classIDs {
		s.Notify(ctx, realtime.ClassRoom(id), kind, message, data)
	}
}

func (s *NotificationService) handle(ctx context.Context, job jobs.Job) error {
	n, ok := job.Payload.(models.Notification)
	if !ok {
		s.logger.Error("unexpected notification payload", zap.String("job_id", job.ID))
		return nil
	}
	if err := s.publisher.Publish(ctx, n); err != nil {
		return fmt.Errorf("publish notification (request %s): %w", n.RequestID, err)
	}
	s.metrics.NotificationPublished(string(n.Type))
	return nil
}
