package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/school-portal-api/internal/dto"
	"github.com/noah-isme/school-portal-api/internal/models"
	"github.com/noah-isme/school-portal-api/internal/rbac"
	"github.com/noah-isme/school-portal-api/internal/repository"
	appErrors "github.com/noah-isme/school-portal-api/pkg/errors"
)

type classRepository interface {
	FindByID(ctx context.Context, id string) (*models.Class, error)
	Create(ctx context.Context, class *models.Class) error
}

// ClassService manages classes.
type ClassService struct {
	classes    classRepository
	authorizer *rbac.Authorizer
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewClassService constructs the class service.
func NewClassService(classes classRepository, authorizer *rbac.Authorizer, validate *validator.Validate, logger *zap.Logger) *ClassService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClassService{classes: classes, authorizer: authorizer, validator: validate, logger: logger}
}

// Create stores a class with no students enrolled.
func (s *ClassService) Create(ctx context.Context, actor *models.Identity, req dto.CreateClassRequest) (*models.Class, error) {
	if err := s.authorizer.CheckPermission(actor, rbac.PermScheduleManage); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid class payload")
	}

	class := &models.Class{
		Name:              req.Name,
		GradeLevel:        req.GradeLevel,
		Section:           req.Section,
		AcademicYear:      req.AcademicYear,
		HomeroomTeacherID: req.HomeroomTeacherID,
		Capacity:          req.Capacity,
	}
	if class.Capacity == 0 {
		class.Capacity = 30
	}
	if err := s.classes.Create(ctx, class); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "a class with this name already exists for the academic year")
		}
		return nil, appErrors.Internal(err, "failed to create class")
	}
	return class, nil
}

// Get returns a class by id.
func (s *ClassService) Get(ctx context.Context, id string) (*models.Class, error) {
	class, err := s.classes.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Internal(err, "failed to load class")
	}
	return class, nil
}
