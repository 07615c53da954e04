package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/school-portal-api/internal/dto"
	"github.com/noah-isme/school-portal-api/internal/models"
	"github.com/noah-isme/school-portal-api/internal/rbac"
	"github.com/noah-isme/school-portal-api/internal/repository"
	appErrors "github.com/noah-isme/school-portal-api/pkg/errors"
)

type studentRepository interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
	Create(ctx context.Context, student *models.Student) error
	UpdateEnrollmentStatus(ctx context.Context, id string, status models.EnrollmentStatus, updatedAt time.Time) error
	Delete(ctx context.Context, id string) error
}

type enrollmentCounter interface {
	FindByID(ctx context.Context, id string) (*models.Class, error)
	AdjustEnrollment(ctx context.Context, id string, delta int) error
}

// StudentService handles student records and keeps class enrollment counts in step.
type StudentService struct {
	students   studentRepository
	classes    enrollmentCounter
	tx         transactor
	audit      auditWriter
	authorizer *rbac.Authorizer
	validator  *validator.Validate
	logger     *zap.Logger
	now        func() time.Time
}

// NewStudentService constructs the student service.
func NewStudentService(students studentRepository, classes enrollmentCounter, tx transactor, audit auditWriter, authorizer *rbac.Authorizer, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{
		students:   students,
		classes:    classes,
		tx:         tx,
		audit:      audit,
		authorizer: authorizer,
		validator:  validate,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Create registers a student and increments the class enrollment in one transaction.
func (s *StudentService) Create(ctx context.Context, actor *models.Identity, req dto.CreateStudentRequest) (*models.Student, error) {
	if err := s.authorizer.CheckPermission(actor, rbac.PermStudentsManage); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}

	student := &models.Student{
		StudentID:        strings.TrimSpace(req.StudentID),
		FirstName:        req.FirstName,
		LastName:         req.LastName,
		ClassID:          req.ClassID,
		GradeLevel:       req.GradeLevel,
		EnrollmentStatus: models.EnrollmentEnrolled,
	}
	if email := strings.ToLower(strings.TrimSpace(req.Email)); email != "" {
		student.Email = &email
	}

	err := s.tx.WithinTx(ctx, func(txCtx context.Context) error {
		class, err := s.classes.FindByID(txCtx, req.ClassID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrInvalidInput, "class not found")
			}
			return err
		}
		if class.Capacity > 0 && class.CurrentEnrollment >= class.Capacity {
			return appErrors.Clone(appErrors.ErrInvalidState, "class is at capacity")
		}
		if err := s.students.Create(txCtx, student); err != nil {
			return err
		}
		return s.classes.AdjustEnrollment(txCtx, class.ID, 1)
	})
	if err != nil {
		var appErr *appErrors.Error
		switch {
		case errors.As(err, &appErr):
			return nil, appErr
		case errors.Is(err, repository.ErrDuplicate):
			return nil, appErrors.Clone(appErrors.ErrConflict, "student ID already exists")
		}
		return nil, appErrors.Internal(err, "failed to create student")
	}

	entry := models.NewAuditLog(actor, models.AuditActionStudentCreate, "student", student.ID)
	s.writeAudit(ctx, entry, nil, map[string]string{"student_id": student.StudentID, "class_id": student.ClassID})
	return student, nil
}

// Get returns a student. Students may only read their own record.
func (s *StudentService) Get(ctx context.Context, viewer *models.Identity, id string) (*models.Student, error) {
	if viewer == nil {
		return nil, appErrors.ErrUnauthenticated
	}
	if viewer.IsStudent() {
		if err := rbac.CheckSelf(viewer, models.KindStudent, id); err != nil {
			return nil, err
		}
	} else if err := s.authorizer.CheckPermission(viewer, rbac.PermStudentsRead); err != nil {
		return nil, err
	}
	return s.load(ctx, id)
}

// UpdateStatus changes a student's enrollment status and records the change.
func (s *StudentService) UpdateStatus(ctx context.Context, actor *models.Identity, id string, req dto.UpdateEnrollmentStatusRequest) (*models.Student, error) {
	if err := s.authorizer.CheckPermission(actor, rbac.PermStudentsManage); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid status payload")
	}

	student, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if student.EnrollmentStatus == req.Status {
		return student, nil
	}

	previous := student.EnrollmentStatus
	updatedAt := s.now()
	if err := s.students.UpdateEnrollmentStatus(ctx, id, req.Status, updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Internal(err, "failed to update enrollment status")
	}
	student.EnrollmentStatus = req.Status
	student.UpdatedAt = updatedAt

	entry := models.NewAuditLog(actor, models.AuditActionEnrollmentStatus, "student", id)
	s.writeAudit(ctx, entry,
		map[string]string{"status": string(previous)},
		map[string]string{"status": string(req.Status), "reason": req.Reason},
	)
	return student, nil
}

// Delete removes a student and decrements the class enrollment in one transaction.
func (s *StudentService) Delete(ctx context.Context, actor *models.Identity, id string) error {
	if err := s.authorizer.CheckPermission(actor, rbac.PermStudentsManage); err != nil {
		return err
	}

	var removed *models.Student
	err := s.tx.WithinTx(ctx, func(txCtx context.Context) error {
		student, err := s.students.FindByID(txCtx, id)
		if err != nil {
			return err
		}
		if err := s.students.Delete(txCtx, id); err != nil {
			return err
		}
		removed = student
		return s.classes.AdjustEnrollment(txCtx, student.ClassID, -1)
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return appErrors.Internal(err, "failed to delete student")
	}

	entry := models.NewAuditLog(actor, models.AuditActionStudentDelete, "student", id)
	s.writeAudit(ctx, entry, map[string]string{"student_id": removed.StudentID, "class_id": removed.ClassID}, nil)
	return nil
}

func (s *StudentService) load(ctx context.Context, id string) (*models.Student, error) {
	student, err := s.students.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Internal(err, "failed to load student")
	}
	return student, nil
}

func (s *StudentService) writeAudit(ctx context.Context, entry *models.AuditLog, oldValues, newValues interface{}) {
	if s.audit == nil {
		return
	}
	if err := entry.SetValues(oldValues, newValues); err != nil {
		s.logger.Warn("failed to encode audit values", zap.String("action", entry.Action), zap.Error(err))
	}
	if err := s.audit.Create(ctx, entry); err != nil {
		s.logger.Warn("failed to record audit log", zap.String("action", entry.Action), zap.Error(err))
	}
}
