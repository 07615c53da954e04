package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/school-portal-api/internal/models"
	"github.com/noah-isme/school-portal-api/pkg/database"
)

const submissionColumns = `id, assignment_id, student_id, attempt_number, answers, submitted_at, is_late, status,
        grade_score, grade_max_score, grade_percentage, grade_letter, grade_comments, grade_rubric, graded_at, graded_by, created_at, updated_at`

// SubmissionRepository persists submissions and their embedded grades.
type SubmissionRepository struct {
	db *sqlx.DB
}

// NewSubmissionRepository constructs a SubmissionRepository.
func NewSubmissionRepository(db *sqlx.DB) *SubmissionRepository {
	return &SubmissionRepository{db: db}
}

// FindByID fetches a submission by id.
func (r *SubmissionRepository) FindByID(ctx context.Context, id string) (*models.Submission, error) {
	return r.findOne(ctx, "find submission by id", `SELECT `+submissionColumns+` FROM submissions WHERE id = $1 LIMIT 1`, id)
}

// FindByAssignmentAndStudent fetches the submission a student made for an assignment.
func (r *SubmissionRepository) FindByAssignmentAndStudent(ctx context.Context, assignmentID, studentID string) (*models.Submission, error) {
	return r.findOne(ctx, "find submission by assignment and student",
		`SELECT `+submissionColumns+` FROM submissions WHERE assignment_id = $1 AND student_id = $2 LIMIT 1`, assignmentID, studentID)
}

func (r *SubmissionRepository) findOne(ctx context.Context, op, query string, args ...interface{}) (*models.Submission, error) {
	var submission models.Submission
	if err := database.Conn(ctx, r.db).GetContext(ctx, &submission, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &submission, nil
}

// ListByAssignment returns every submission for an assignment, latest first.
func (r *SubmissionRepository) ListByAssignment(ctx context.Context, assignmentID string) ([]models.Submission, error) {
	query := `SELECT ` + submissionColumns + ` FROM submissions WHERE assignment_id = $1 ORDER BY submitted_at DESC`
	var submissions []models.Submission
	if err := database.Conn(ctx, r.db).SelectContext(ctx, &submissions, query, assignmentID); err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	return submissions, nil
}

// Create inserts a first attempt.
func (r *SubmissionRepository) Create(ctx context.Context, submission *models.Submission) error {
	if submission.ID == "" {
		submission.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	submission.CreatedAt = now
	submission.UpdatedAt = now
	if submission.Status == "" {
		submission.Status = models.SubmissionSubmitted
	}
	if len(submission.Answers) == 0 {
		submission.Answers = []byte("{}")
	}

	const query = `INSERT INTO submissions (id, assignment_id, student_id, attempt_number, answers, submitted_at, is_late, status, created_at, updated_at)
        VALUES (:id, :assignment_id, :student_id, :attempt_number, :answers, :submitted_at, :is_late, :status, :created_at, :updated_at)`
	if _, err := database.Conn(ctx, r.db).NamedExecContext(ctx, query, submission); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("create submission: %w", err)
	}
	return nil
}

// Resubmit records a new attempt. The embedded grade stays in place so it
// keeps matching the ledger entry until the attempt is graded again.
func (r *SubmissionRepository) Resubmit(ctx context.Context, submission *models.Submission) error {
	submission.UpdatedAt = time.Now().UTC()
	submission.Status = models.SubmissionSubmitted

	const query = `UPDATE submissions SET attempt_number = :attempt_number, answers = :answers, submitted_at = :submitted_at, is_late = :is_late,
        status = :status, updated_at = :updated_at WHERE id = :id`
	res, err := database.Conn(ctx, r.db).NamedExecContext(ctx, query, submission)
	if err != nil {
		return fmt.Errorf("resubmit submission: %w", err)
	}
	return requireAffected(res)
}

// SaveGrade writes the embedded grade and marks the submission graded.
func (r *SubmissionRepository) SaveGrade(ctx context.Context, submissionID string, grade models.SubmissionGrade) error {
	const query = `UPDATE submissions SET grade_score = $2, grade_max_score = $3, grade_percentage = $4, grade_letter = $5,
        grade_comments = $6, grade_rubric = $7, graded_at = $8, graded_by = $9, status = $10, updated_at = $8 WHERE id = $1`
	res, err := database.Conn(ctx, r.db).ExecContext(ctx, query, submissionID, grade.Score, grade.MaxScore, grade.Percentage,
		grade.LetterGrade, grade.Comments, grade.RubricScores, grade.GradedAt, grade.GradedBy, models.SubmissionGraded)
	if err != nil {
		return fmt.Errorf("save submission grade: %w", err)
	}
	return requireAffected(res)
}
