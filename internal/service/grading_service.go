package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/school-portal-api/internal/dto"
	"github.com/noah-isme/school-portal-api/internal/models"
	"github.com/noah-isme/school-portal-api/internal/rbac"
	appErrors "github.com/noah-isme/school-portal-api/pkg/errors"
)

type gradingSubmissionRepository interface {
	FindByID(ctx context.Context, id string) (*models.Submission, error)
	SaveGrade(ctx context.Context, submissionID string, grade models.SubmissionGrade) error
}

type assignmentReader interface {
	FindByID(ctx context.Context, id string) (*models.Assignment, error)
}

type gradeLedgerRepository interface {
	FindByStudentAndAssignment(ctx context.Context, studentID, assignmentID string) (*models.GradeEntry, error)
	Upsert(ctx context.Context, entry *models.GradeEntry) error
}

type transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type cacheInvalidator interface {
	Invalidate(ctx context.Context, keys ...string) error
}

type studentNotifier interface {
	NotifyStudent(ctx context.Context, studentID string, kind models.NotificationType, message string, data map[string]interface{})
}

// GradeResult is the outcome of grading one submission.
type GradeResult struct {
	Submission *models.Submission `json:"submission"`
	Entry      *models.GradeEntry `json:"grade_entry"`
}

// GradingService grades submissions and keeps the grade ledger in step with
// the grade embedded in each submission.
type GradingService struct {
	submissions gradingSubmissionRepository
	assignments assignmentReader
	ledger      gradeLedgerRepository
	tx          transactor
	audit       auditWriter
	cache       cacheInvalidator
	notifier    studentNotifier
	metrics     *MetricsService
	validator   *validator.Validate
	logger      *zap.Logger
	now         func() time.Time
}

// GradingDeps groups the optional collaborators of GradingService.
type GradingDeps struct {
	Audit    auditWriter
	Cache    cacheInvalidator
	Notifier studentNotifier
	Metrics  *MetricsService
}

// NewGradingService constructs a GradingService.
func NewGradingService(submissions gradingSubmissionRepository, assignments assignmentReader, ledger gradeLedgerRepository, tx transactor, deps GradingDeps, validate *validator.Validate, logger *zap.Logger) *GradingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &GradingService{
		submissions: submissions,
		assignments: assignments,
		ledger:      ledger,
		tx:          tx,
		audit:       deps.Audit,
		cache:       deps.Cache,
		notifier:    deps.Notifier,
		metrics:     deps.Metrics,
		validator:   validate,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// GradeSubmission records a grade on a submission and upserts the matching
// ledger entry in the same transaction.
func (s *GradingService) GradeSubmission(ctx context.Context, grader *models.Identity, submissionID string, req dto.GradeSubmissionRequest) (*GradeResult, error) {
	result, err := s.gradeSubmission(ctx, grader, submissionID, req)
	s.metrics.ObserveGrading(gradingOutcome(err), percentageOf(result))
	return result, err
}

func (s *GradingService) gradeSubmission(ctx context.Context, grader *models.Identity, submissionID string, req dto.GradeSubmissionRequest) (*GradeResult, error) {
	if grader == nil {
		return nil, appErrors.ErrUnauthenticated
	}
	if !grader.IsStaff() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only staff may grade submissions")
	}

	submission, err := s.submissions.FindByID(ctx, submissionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "submission not found")
		}
		return nil, appErrors.Internal(err, "failed to load submission")
	}

	assignment, err := s.assignments.FindByID(ctx, submission.AssignmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return nil, appErrors.Internal(err, "failed to load assignment")
	}

	if err := rbac.TeacherOwnership.Check(grader, assignment.TeacherID); err != nil {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "teachers may only grade submissions for their own assignments")
	}

	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grading payload")
	}

	maxScore := assignment.TotalPoints
	score := *req.Score
	if err := validateScore(score, maxScore, req.RubricScores); err != nil {
		return nil, err
	}

	gradedAt := s.now()
	graderID := grader.ID()
	percentage := ComputePercentage(score, maxScore)
	grade := models.SubmissionGrade{
		Score:        score,
		MaxScore:     maxScore,
		Percentage:   percentage,
		LetterGrade:  LetterGrade(percentage),
		Comments:     req.Comments,
		RubricScores: models.RubricScores(req.RubricScores),
		GradedAt:     &gradedAt,
		GradedBy:     &graderID,
	}
	previous := submission.SubmissionGrade
	wasGraded := submission.Graded()

	var entry *models.GradeEntry
	err = s.tx.WithinTx(ctx, func(txCtx context.Context) error {
		if err := s.submissions.SaveGrade(txCtx, submission.ID, grade); err != nil {
			return err
		}

		existing, err := s.ledger.FindByStudentAndAssignment(txCtx, submission.StudentID, assignment.ID)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return err
		}
		entry = s.ledgerEntry(existing, submission, assignment, grade, req)
		return s.ledger.Upsert(txCtx, entry)
	})
	if err != nil {
		return nil, appErrors.Internal(err, "failed to record grade")
	}

	submission.SubmissionGrade = grade
	submission.Status = models.SubmissionGraded
	submission.UpdatedAt = gradedAt

	s.afterGrade(ctx, grader, submission, assignment, previous, wasGraded)
	return &GradeResult{Submission: submission, Entry: entry}, nil
}

// ledgerEntry overwrites an existing entry's grade fields in place, or builds
// a new entry with the semester and academic year inferred from the grading
// date unless the request names them.
func (s *GradingService) ledgerEntry(existing *models.GradeEntry, submission *models.Submission, assignment *models.Assignment, grade models.SubmissionGrade, req dto.GradeSubmissionRequest) *models.GradeEntry {
	entry := existing
	if entry == nil {
		entry = &models.GradeEntry{
			StudentID:    submission.StudentID,
			CourseID:     assignment.CourseID,
			AssignmentID: assignment.ID,
			Semester:     InferSemester(*grade.GradedAt),
			AcademicYear: InferAcademicYear(*grade.GradedAt),
		}
	}
	if req.Semester != "" {
		entry.Semester = req.Semester
	}
	if req.AcademicYear != "" {
		entry.AcademicYear = req.AcademicYear
	}
	entry.SubmissionID = submission.ID
	entry.Score = grade.Score
	entry.MaxScore = grade.MaxScore
	entry.Percentage = grade.Percentage
	entry.LetterGrade = grade.LetterGrade
	entry.Comments = grade.Comments
	entry.GradedBy = *grade.GradedBy
	entry.GradedAt = *grade.GradedAt
	return entry
}

func (s *GradingService) afterGrade(ctx context.Context, grader *models.Identity, submission *models.Submission, assignment *models.Assignment, previous models.SubmissionGrade, wasGraded bool) {
	if s.audit != nil {
		entry := models.NewAuditLog(grader, models.AuditActionGrade, "submission", submission.ID)
		var oldValues interface{}
		if wasGraded {
			oldValues = gradeSnapshot(previous)
		}
		if err := entry.SetValues(oldValues, gradeSnapshot(submission.SubmissionGrade)); err != nil {
			s.logger.Warn("failed to encode grade audit values", zap.Error(err))
		}
		if err := s.audit.Create(ctx, entry); err != nil {
			s.logger.Warn("failed to record grade audit log", zap.String("submission_id", submission.ID), zap.Error(err))
		}
	}

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, StudentGradesCacheKey(submission.StudentID)); err != nil {
			s.logger.Warn("failed to invalidate grade cache", zap.String("student_id", submission.StudentID), zap.Error(err))
		}
	}

	if s.notifier != nil {
		s.notifier.NotifyStudent(ctx, submission.StudentID, models.NotificationGrade,
			fmt.Sprintf("%s has been graded", assignment.Title),
			map[string]interface{}{
				"assignment_id": assignment.ID,
				"submission_id": submission.ID,
				"score":         submission.Score,
				"max_score":     submission.MaxScore,
				"percentage":    submission.Percentage,
				"letter_grade":  submission.LetterGrade,
			})
	}
}

func validateScore(score, maxScore float64, rubric []models.RubricScore) error {
	if maxScore <= 0 {
		return appErrors.Clone(appErrors.ErrInvalidState, "cannot compute a percentage against a zero-point assignment")
	}
	if score < 0 {
		return appErrors.Clone(appErrors.ErrInvalidInput, "score cannot be negative")
	}
	if score > maxScore {
		return appErrors.Clone(appErrors.ErrInvalidInput, fmt.Sprintf("score cannot exceed the assignment total of %g", maxScore))
	}
	for _, item := range rubric {
		if item.Score < 0 || item.Score > item.MaxScore {
			return appErrors.Clone(appErrors.ErrInvalidInput, fmt.Sprintf("rubric score for %q must be between 0 and %g", item.Criteria, item.MaxScore))
		}
	}
	return nil
}

func gradeSnapshot(g models.SubmissionGrade) map[string]interface{} {
	return map[string]interface{}{
		"score":        g.Score,
		"max_score":    g.MaxScore,
		"percentage":   g.Percentage,
		"letter_grade": g.LetterGrade,
	}
}

func gradingOutcome(err error) string {
	switch {
	case err == nil:
		return GradingOutcomeSuccess
	case errors.Is(err, appErrors.ErrForbidden), errors.Is(err, appErrors.ErrUnauthenticated):
		return GradingOutcomeForbidden
	case errors.Is(err, appErrors.ErrNotFound):
		return GradingOutcomeNotFound
	case errors.Is(err, appErrors.ErrInvalidInput), errors.Is(err, appErrors.ErrInvalidState), errors.Is(err, appErrors.ErrValidation):
		return GradingOutcomeInvalid
	default:
		return GradingOutcomeError
	}
}

func percentageOf(result *GradeResult) float64 {
	if result == nil || result.Submission == nil {
		return 0
	}
	return result.Submission.Percentage
}
