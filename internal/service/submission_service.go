package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx/types"
	"go.uber.org/zap"

	"github.com/noah-isme/school-portal-api/internal/dto"
	"github.com/noah-isme/school-portal-api/internal/models"
	"github.com/noah-isme/school-portal-api/internal/repository"
	appErrors "github.com/noah-isme/school-portal-api/pkg/errors"
)

type submissionRepository interface {
	FindByID(ctx context.Context, id string) (*models.Submission, error)
	FindByAssignmentAndStudent(ctx context.Context, assignmentID, studentID string) (*models.Submission, error)
	ListByAssignment(ctx context.Context, assignmentID string) ([]models.Submission, error)
	Create(ctx context.Context, submission *models.Submission) error
	Resubmit(ctx context.Context, submission *models.Submission) error
}

type staffNotifier interface {
	NotifyStaff(ctx context.Context, staffID string, kind models.NotificationType, message string, data map[string]interface{})
}

// SubmissionService accepts student submissions and enforces the attempt ceiling.
type SubmissionService struct {
	submissions submissionRepository
	assignments assignmentReader
	notifier    staffNotifier
	validator   *validator.Validate
	logger      *zap.Logger
	now         func() time.Time
}

// NewSubmissionService constructs a SubmissionService. notifier may be nil.
func NewSubmissionService(submissions submissionRepository, assignments assignmentReader, notifier staffNotifier, validate *validator.Validate, logger *zap.Logger) *SubmissionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &SubmissionService{
		submissions: submissions,
		assignments: assignments,
		notifier:    notifier,
		validator:   validate,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Submit records a student's answer. The first call creates attempt 1, later
// calls overwrite the same row with the next attempt until the assignment's
// attempt limit is reached.
func (s *SubmissionService) Submit(ctx context.Context, identity *models.Identity, assignmentID string, req dto.SubmitAssignmentRequest) (*models.Submission, error) {
	if identity == nil {
		return nil, appErrors.ErrUnauthenticated
	}
	if !identity.IsStudent() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only students may submit assignments")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid submission payload")
	}

	assignment, err := s.assignments.FindByID(ctx, assignmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return nil, appErrors.Internal(err, "failed to load assignment")
	}
	student := identity.Student
	if !assignment.Published || !assignment.AssignedToClass(student.ClassID) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
	}

	now := s.now()
	late := assignment.PastDue(now)
	if late && !assignment.AllowLate {
		return nil, appErrors.Clone(appErrors.ErrInvalidInput, "the due date has passed and late submissions are not accepted")
	}

	answers, err := encodeAnswers(req)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrInvalidInput, "answers must be a JSON object")
	}

	existing, err := s.submissions.FindByAssignmentAndStudent(ctx, assignment.ID, student.ID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Internal(err, "failed to load submission")
	}

	var submission *models.Submission
	if existing == nil {
		submission = &models.Submission{
			AssignmentID:  assignment.ID,
			StudentID:     student.ID,
			AttemptNumber: 1,
			Answers:       answers,
			SubmittedAt:   now,
			IsLate:        late,
			Status:        models.SubmissionSubmitted,
		}
		if err := s.submissions.Create(ctx, submission); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return nil, appErrors.Clone(appErrors.ErrConflict, "a submission for this assignment is already being recorded")
			}
			return nil, appErrors.Internal(err, "failed to create submission")
		}
	} else {
		if existing.AttemptNumber >= maxAttempts(assignment) {
			return nil, appErrors.Clone(appErrors.ErrInvalidInput, "maximum attempts reached")
		}
		submission = existing
		submission.AttemptNumber++
		submission.Answers = answers
		submission.SubmittedAt = now
		submission.IsLate = late
		if err := s.submissions.Resubmit(ctx, submission); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "submission not found")
			}
			return nil, appErrors.Internal(err, "failed to update submission")
		}
	}

	s.logger.Info("assignment submitted",
		zap.String("assignment_id", assignment.ID),
		zap.String("student_id", student.ID),
		zap.Int("attempt", submission.AttemptNumber),
		zap.Bool("late", submission.IsLate),
	)

	if s.notifier != nil {
		s.notifier.NotifyStaff(ctx, assignment.TeacherID, models.NotificationSubmission,
			fmt.Sprintf("%s submitted %s", student.FullName(), assignment.Title),
			map[string]interface{}{
				"assignment_id":  assignment.ID,
				"submission_id":  submission.ID,
				"student_id":     student.ID,
				"attempt_number": submission.AttemptNumber,
				"is_late":        submission.IsLate,
			})
	}
	return submission, nil
}

// Get returns one submission. Students see only their own.
func (s *SubmissionService) Get(ctx context.Context, identity *models.Identity, submissionID string) (*models.Submission, error) {
	if identity == nil {
		return nil, appErrors.ErrUnauthenticated
	}
	submission, err := s.submissions.FindByID(ctx, submissionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "submission not found")
		}
		return nil, appErrors.Internal(err, "failed to load submission")
	}
	if identity.IsStudent() && submission.StudentID != identity.ID() {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "submission not found")
	}
	return submission, nil
}

func maxAttempts(a *models.Assignment) int {
	if a.Attempts <= 0 {
		return 1
	}
	return a.Attempts
}

func encodeAnswers(req dto.SubmitAssignmentRequest) (types.JSONText, error) {
	payload := req.Answers
	if payload == nil {
		payload = map[string]interface{}{}
	}
	if req.Content != "" {
		payload["content"] = req.Content
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return types.JSONText(raw), nil
}
