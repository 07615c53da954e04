package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/school-portal-api/internal/models"
	"github.com/noah-isme/school-portal-api/pkg/database"
)

const gradeLedgerColumns = `id, student_id, course_id, assignment_id, submission_id, score, max_score, percentage, letter_grade, semester, academic_year, graded_by, graded_at, comments, created_at, updated_at`

// GradeLedgerRepository persists the per-student grade ledger.
type GradeLedgerRepository struct {
	db *sqlx.DB
}

// NewGradeLedgerRepository constructs a GradeLedgerRepository.
func NewGradeLedgerRepository(db *sqlx.DB) *GradeLedgerRepository {
	return &GradeLedgerRepository{db: db}
}

// FindByStudentAndAssignment returns the ledger entry for a (student, assignment) pair.
func (r *GradeLedgerRepository) FindByStudentAndAssignment(ctx context.Context, studentID, assignmentID string) (*models.GradeEntry, error) {
	const query = `SELECT ` + gradeLedgerColumns + ` FROM grade_ledger WHERE student_id = $1 AND assignment_id = $2 LIMIT 1`
	var entry models.GradeEntry
	if err := database.Conn(ctx, r.db).GetContext(ctx, &entry, query, studentID, assignmentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("find grade entry: %w", err)
	}
	return &entry, nil
}

// Upsert inserts the entry or overwrites the existing one for the same
// (student, assignment). The stored id and created_at are written back.
func (r *GradeLedgerRepository) Upsert(ctx context.Context, entry *models.GradeEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	entry.UpdatedAt = now

	const query = `INSERT INTO grade_ledger (id, student_id, course_id, assignment_id, submission_id, score, max_score, percentage, letter_grade, semester, academic_year, graded_by, graded_at, comments, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $15)
        ON CONFLICT ON CONSTRAINT uq_grade_ledger_student_assignment DO UPDATE SET
        submission_id = EXCLUDED.submission_id, score = EXCLUDED.score, max_score = EXCLUDED.max_score, percentage = EXCLUDED.percentage,
        letter_grade = EXCLUDED.letter_grade, semester = EXCLUDED.semester, academic_year = EXCLUDED.academic_year,
        graded_by = EXCLUDED.graded_by, graded_at = EXCLUDED.graded_at, comments = EXCLUDED.comments, updated_at = EXCLUDED.updated_at
        RETURNING id, created_at`
	row := database.Conn(ctx, r.db).QueryRowxContext(ctx, query, entry.ID, entry.StudentID, entry.CourseID, entry.AssignmentID, entry.SubmissionID,
		entry.Score, entry.MaxScore, entry.Percentage, entry.LetterGrade, entry.Semester, entry.AcademicYear, entry.GradedBy, entry.GradedAt,
		entry.Comments, now)
	if err := row.Scan(&entry.ID, &entry.CreatedAt); err != nil {
		return fmt.Errorf("upsert grade entry: %w", err)
	}
	return nil
}

// ListByStudent returns ledger entries joined with their assignment titles.
func (r *GradeLedgerRepository) ListByStudent(ctx context.Context, filter models.GradeLedgerFilter) ([]models.GradeEntryDetail, error) {
	conditions := []string{"g.student_id = $1"}
	args := []interface{}{filter.StudentID}
	if filter.CourseID != "" {
		args = append(args, filter.CourseID)
		conditions = append(conditions, fmt.Sprintf("g.course_id = $%d", len(args)))
	}
	if filter.Semester != "" {
		args = append(args, filter.Semester)
		conditions = append(conditions, fmt.Sprintf("g.semester = $%d", len(args)))
	}
	if filter.AcademicYear != "" {
		args = append(args, filter.AcademicYear)
		conditions = append(conditions, fmt.Sprintf("g.academic_year = $%d", len(args)))
	}

	query := `SELECT g.id, g.student_id, g.course_id, g.assignment_id, g.submission_id, g.score, g.max_score, g.percentage, g.letter_grade,
        g.semester, g.academic_year, g.graded_by, g.graded_at, g.comments, g.created_at, g.updated_at, a.title AS assignment_title
        FROM grade_ledger g JOIN assignments a ON a.id = g.assignment_id WHERE ` + strings.Join(conditions, " AND ") + ` ORDER BY g.graded_at DESC`

	var entries []models.GradeEntryDetail
	if err := database.Conn(ctx, r.db).SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, fmt.Errorf("list grade entries: %w", err)
	}
	return entries, nil
}
