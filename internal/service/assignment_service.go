package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/noah-isme/school-portal-api/internal/dto"
	"github.com/noah-isme/school-portal-api/internal/models"
	"github.com/noah-isme/school-portal-api/internal/rbac"
	appErrors "github.com/noah-isme/school-portal-api/pkg/errors"
)

type assignmentRepository interface {
	FindByID(ctx context.Context, id string) (*models.Assignment, error)
	List(ctx context.Context, filter models.AssignmentFilter) ([]models.Assignment, int, error)
	Create(ctx context.Context, assignment *models.Assignment) error
	Update(ctx context.Context, assignment *models.Assignment) error
	Delete(ctx context.Context, id string) error
}

type assignmentSubmissionReader interface {
	FindByAssignmentAndStudent(ctx context.Context, assignmentID, studentID string) (*models.Submission, error)
	ListByAssignment(ctx context.Context, assignmentID string) ([]models.Submission, error)
}

type classNotifier interface {
	NotifyClasses(ctx context.Context, classIDs []string, kind models.NotificationType, message string, data map[string]interface{})
}

// AssignmentService manages assignment authoring and the per-role views of it.
type AssignmentService struct {
	assignments assignmentRepository
	submissions assignmentSubmissionReader
	authorizer  *rbac.Authorizer
	notifier    classNotifier
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewAssignmentService constructs an AssignmentService.
func NewAssignmentService(assignments assignmentRepository, submissions assignmentSubmissionReader, authorizer *rbac.Authorizer, notifier classNotifier, validate *validator.Validate, logger *zap.Logger) *AssignmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &AssignmentService{
		assignments: assignments,
		submissions: submissions,
		authorizer:  authorizer,
		notifier:    notifier,
		validator:   validate,
		logger:      logger,
	}
}

// Create stores a new assignment owned by the calling staff member.
func (s *AssignmentService) Create(ctx context.Context, identity *models.Identity, req dto.CreateAssignmentRequest) (*models.Assignment, error) {
	if err := s.authorizer.CheckPermission(identity, rbac.PermAssignmentsCreate); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assignment payload")
	}

	assignment := &models.Assignment{
		Title:        req.Title,
		Description:  req.Description,
		Instructions: req.Instructions,
		CourseID:     req.CourseID,
		TeacherID:    identity.ID(),
		ClassIDs:     pq.StringArray(req.ClassIDs),
		Type:         req.Type,
		TotalPoints:  req.TotalPoints,
		Attempts:     req.Attempts,
		StartDate:    req.StartDate,
		DueDate:      req.DueDate,
		AllowLate:    req.AllowLate != nil && *req.AllowLate,
		LatePenalty:  req.LatePenalty,
		Published:    req.Publish,
	}
	if assignment.Attempts == 0 {
		assignment.Attempts = 1
	}

	if err := s.assignments.Create(ctx, assignment); err != nil {
		return nil, appErrors.Internal(err, "failed to create assignment")
	}
	if assignment.Published {
		s.announce(ctx, assignment)
	}
	return assignment, nil
}

// List returns the assignments visible to identity: teachers see their own,
// students see published work assigned to their class, other staff see all.
func (s *AssignmentService) List(ctx context.Context, identity *models.Identity, filter models.AssignmentFilter) ([]models.Assignment, int, error) {
	if identity == nil {
		return nil, 0, appErrors.ErrUnauthenticated
	}
	switch {
	case identity.IsStudent():
		filter.ClassID = identity.Student.ClassID
		filter.PublishedOnly = true
		filter.TeacherID = ""
	case identity.Role() == models.RoleTeacher:
		filter.TeacherID = identity.ID()
	}

	assignments, total, err := s.assignments.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Internal(err, "failed to list assignments")
	}
	if assignments == nil {
		assignments = []models.Assignment{}
	}
	return assignments, total, nil
}

// Get returns one assignment. Students receive their own submission with it
// and cannot see drafts or work assigned to other classes.
func (s *AssignmentService) Get(ctx context.Context, identity *models.Identity, id string) (*dto.AssignmentDetail, error) {
	if identity == nil {
		return nil, appErrors.ErrUnauthenticated
	}
	assignment, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	detail := &dto.AssignmentDetail{Assignment: *assignment}
	if !identity.IsStudent() {
		return detail, nil
	}
	if !assignment.Published || !assignment.AssignedToClass(identity.Student.ClassID) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
	}

	submission, err := s.submissions.FindByAssignmentAndStudent(ctx, assignment.ID, identity.ID())
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Internal(err, "failed to load submission")
	}
	detail.Submission = submission
	return detail, nil
}

// Update patches an assignment. Once published, its point total and attempt
// limit are frozen.
func (s *AssignmentService) Update(ctx context.Context, identity *models.Identity, id string, req dto.UpdateAssignmentRequest) (*models.Assignment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assignment payload")
	}
	assignment, err := s.loadOwned(ctx, identity, id)
	if err != nil {
		return nil, err
	}

	if assignment.Published {
		if req.TotalPoints != nil && *req.TotalPoints != assignment.TotalPoints {
			return nil, appErrors.Clone(appErrors.ErrInvalidState, "total points cannot change after an assignment is published")
		}
		if req.Attempts != nil && *req.Attempts != assignment.Attempts {
			return nil, appErrors.Clone(appErrors.ErrInvalidState, "attempts cannot change after an assignment is published")
		}
	}

	applyAssignmentPatch(assignment, req)
	if !assignment.DueDate.After(assignment.StartDate) {
		return nil, appErrors.Clone(appErrors.ErrInvalidInput, "due date must be after the start date")
	}

	if err := s.assignments.Update(ctx, assignment); err != nil {
		return nil, s.writeError(err, "failed to update assignment")
	}
	return assignment, nil
}

// Delete removes a draft assignment.
func (s *AssignmentService) Delete(ctx context.Context, identity *models.Identity, id string) error {
	assignment, err := s.loadOwned(ctx, identity, id)
	if err != nil {
		return err
	}
	if assignment.Published {
		return appErrors.Clone(appErrors.ErrInvalidState, "published assignments cannot be deleted")
	}
	if err := s.assignments.Delete(ctx, assignment.ID); err != nil {
		return s.writeError(err, "failed to delete assignment")
	}
	return nil
}

// Publish makes an assignment visible to its classes. Publishing twice is a no-op.
func (s *AssignmentService) Publish(ctx context.Context, identity *models.Identity, id string) (*models.Assignment, error) {
	assignment, err := s.loadOwned(ctx, identity, id)
	if err != nil {
		return nil, err
	}
	if assignment.Published {
		return assignment, nil
	}

	assignment.Published = true
	if err := s.assignments.Update(ctx, assignment); err != nil {
		return nil, s.writeError(err, "failed to publish assignment")
	}
	s.announce(ctx, assignment)
	return assignment, nil
}

// ListSubmissions returns every submission for an assignment.
func (s *AssignmentService) ListSubmissions(ctx context.Context, identity *models.Identity, id string) ([]models.Submission, error) {
	assignment, err := s.loadOwned(ctx, identity, id)
	if err != nil {
		return nil, err
	}
	submissions, err := s.submissions.ListByAssignment(ctx, assignment.ID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list submissions")
	}
	if submissions == nil {
		submissions = []models.Submission{}
	}
	return submissions, nil
}

func (s *AssignmentService) load(ctx context.Context, id string) (*models.Assignment, error) {
	assignment, err := s.assignments.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return nil, appErrors.Internal(err, "failed to load assignment")
	}
	return assignment, nil
}

func (s *AssignmentService) loadOwned(ctx context.Context, identity *models.Identity, id string) (*models.Assignment, error) {
	if identity == nil {
		return nil, appErrors.ErrUnauthenticated
	}
	if !identity.IsStaff() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only staff may manage assignments")
	}
	assignment, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := rbac.TeacherOwnership.Check(identity, assignment.TeacherID); err != nil {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "teachers may only manage their own assignments")
	}
	return assignment, nil
}

func (s *AssignmentService) announce(ctx context.Context, a *models.Assignment) {
	if s.notifier == nil {
		return
	}
	s.notifier.NotifyClasses(ctx, a.ClassIDs, models.NotificationAssignment,
		fmt.Sprintf("New assignment: %s", a.Title),
		map[string]interface{}{
			"assignment_id": a.ID,
			"course_id":     a.CourseID,
			"due_date":      a.DueDate.Format(time.RFC3339),
		})
}

func (s *AssignmentService) writeError(err error, message string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
	}
	return appErrors.Internal(err, message)
}

func applyAssignmentPatch(a *models.Assignment, req dto.UpdateAssignmentRequest) {
	if req.Title != nil {
		a.Title = *req.Title
	}
	if req.Description != nil {
		a.Description = *req.Description
	}
	if req.Instructions != nil {
		a.Instructions = *req.Instructions
	}
	if req.ClassIDs != nil {
		a.ClassIDs = pq.StringArray(req.ClassIDs)
	}
	if req.TotalPoints != nil {
		a.TotalPoints = *req.TotalPoints
	}
	if req.Attempts != nil {
		a.Attempts = *req.Attempts
	}
	if req.StartDate != nil {
		a.StartDate = *req.StartDate
	}
	if req.DueDate != nil {
		a.DueDate = *req.DueDate
	}
	if req.AllowLate != nil {
		a.AllowLate = *req.AllowLate
	}
	if req.LatePenalty != nil {
		a.LatePenalty = req.LatePenalty
	}
}
