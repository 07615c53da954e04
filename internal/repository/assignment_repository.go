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
	"github.com/lib/pq"

	"github.com/noah-isme/school-portal-api/internal/models"
	"github.com/noah-isme/school-portal-api/pkg/database"
)

const assignmentColumns = `id, title, description, instructions, course_id, teacher_id, class_ids, type, total_points, attempts, start_date, due_date, allow_late, late_penalty, is_published, created_at, updated_at`

// AssignmentRepository persists assignments.
type AssignmentRepository struct {
	db *sqlx.DB
}

// NewAssignmentRepository constructs an AssignmentRepository.
func NewAssignmentRepository(db *sqlx.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

// FindByID fetches an assignment by id.
func (r *AssignmentRepository) FindByID(ctx context.Context, id string) (*models.Assignment, error) {
	const query = `SELECT ` + assignmentColumns + ` FROM assignments WHERE id = $1 LIMIT 1`
	var assignment models.Assignment
	if err := database.Conn(ctx, r.db).GetContext(ctx, &assignment, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("find assignment by id: %w", err)
	}
	return &assignment, nil
}

// List returns assignments matching the filter with the total count.
func (r *AssignmentRepository) List(ctx context.Context, filter models.AssignmentFilter) ([]models.Assignment, int, error) {
	conditions := []string{"1=1"}
	args := []interface{}{}

	if filter.TeacherID != "" {
		args = append(args, filter.TeacherID)
		conditions = append(conditions, fmt.Sprintf("teacher_id = $%d", len(args)))
	}
	if filter.ClassID != "" {
		args = append(args, filter.ClassID)
		conditions = append(conditions, fmt.Sprintf("$%d = ANY(class_ids)", len(args)))
	}
	if filter.CourseID != "" {
		args = append(args, filter.CourseID)
		conditions = append(conditions, fmt.Sprintf("course_id = $%d", len(args)))
	}
	if filter.PublishedOnly {
		conditions = append(conditions, "is_published = TRUE")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	if size > 100 {
		size = 100
	}
	offset := (page - 1) * size

	where := strings.Join(conditions, " AND ")
	query := fmt.Sprintf("SELECT %s FROM assignments WHERE %s ORDER BY due_date DESC LIMIT %d OFFSET %d", assignmentColumns, where, size, offset)

	conn := database.Conn(ctx, r.db)
	var assignments []models.Assignment
	if err := conn.SelectContext(ctx, &assignments, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list assignments: %w", err)
	}

	var total int
	if err := conn.GetContext(ctx, &total, "SELECT COUNT(*) FROM assignments WHERE "+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count assignments: %w", err)
	}
	return assignments, total, nil
}

// Create inserts an assignment.
func (r *AssignmentRepository) Create(ctx context.Context, assignment *models.Assignment) error {
	if assignment.ID == "" {
		assignment.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	assignment.CreatedAt = now
	assignment.UpdatedAt = now
	if assignment.ClassIDs == nil {
		assignment.ClassIDs = pq.StringArray{}
	}

	const query = `INSERT INTO assignments (id, title, description, instructions, course_id, teacher_id, class_ids, type, total_points, attempts, start_date, due_date, allow_late, late_penalty, is_published, created_at, updated_at)
        VALUES (:id, :title, :description, :instructions, :course_id, :teacher_id, :class_ids, :type, :total_points, :attempts, :start_date, :due_date, :allow_late, :late_penalty, :is_published, :created_at, :updated_at)`
	if _, err := database.Conn(ctx, r.db).NamedExecContext(ctx, query, assignment); err != nil {
		return fmt.Errorf("create assignment: %w", err)
	}
	return nil
}

// Update overwrites the mutable columns of an assignment.
func (r *AssignmentRepository) Update(ctx context.Context, assignment *models.Assignment) error {
	assignment.UpdatedAt = time.Now().UTC()
	const query = `UPDATE assignments SET title = :title, description = :description, instructions = :instructions, class_ids = :class_ids,
        total_points = :total_points, attempts = :attempts, start_date = :start_date, due_date = :due_date, allow_late = :allow_late,
        late_penalty = :late_penalty, is_published = :is_published, updated_at = :updated_at WHERE id = :id`
	res, err := database.Conn(ctx, r.db).NamedExecContext(ctx, query, assignment)
	if err != nil {
		return fmt.Errorf("update assignment: %w", err)
	}
	return requireAffected(res)
}

// Delete removes an assignment and, by cascade, its submissions.
func (r *AssignmentRepository) Delete(ctx context.Context, id string) error {
	res, err := database.Conn(ctx, r.db).ExecContext(ctx, `DELETE FROM assignments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete assignment: %w", err)
	}
	return requireAffected(res)
}
