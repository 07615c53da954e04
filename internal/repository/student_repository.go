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

const studentColumns = `id, student_id, first_name, last_name, email, class_id, grade_level, enrollment_status, created_at, updated_at`

// StudentRepository manages persistence for student records.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// FindByID returns a student by primary key.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.Student, error) {
	return r.findOne(ctx, "find student by id", `SELECT `+studentColumns+` FROM students WHERE id = $1 LIMIT 1`, id)
}

// FindByStudentID returns a student by external student identifier.
func (r *StudentRepository) FindByStudentID(ctx context.Context, studentID string) (*models.Student, error) {
	return r.findOne(ctx, "find student by student id", `SELECT `+studentColumns+` FROM students WHERE student_id = $1 LIMIT 1`, studentID)
}

func (r *StudentRepository) findOne(ctx context.Context, op, query string, arg interface{}) (*models.Student, error) {
	var student models.Student
	if err := database.Conn(ctx, r.db).GetContext(ctx, &student, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &student, nil
}

// Create inserts a student record.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	student.CreatedAt = now
	student.UpdatedAt = now
	if student.EnrollmentStatus == "" {
		student.EnrollmentStatus = models.EnrollmentEnrolled
	}

	const query = `INSERT INTO students (id, student_id, first_name, last_name, email, class_id, grade_level, enrollment_status, created_at, updated_at)
        VALUES (:id, :student_id, :first_name, :last_name, :email, :class_id, :grade_level, :enrollment_status, :created_at, :updated_at)`
	if _, err := database.Conn(ctx, r.db).NamedExecContext(ctx, query, student); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("create student: %w", err)
	}
	return nil
}

// UpdateEnrollmentStatus changes a student's enrollment status.
func (r *StudentRepository) UpdateEnrollmentStatus(ctx context.Context, id string, status models.EnrollmentStatus, updatedAt time.Time) error {
	const query = `UPDATE students SET enrollment_status = $2, updated_at = $3 WHERE id = $1`
	res, err := database.Conn(ctx, r.db).ExecContext(ctx, query, id, status, updatedAt)
	if err != nil {
		return fmt.Errorf("update enrollment status: %w", err)
	}
	return requireAffected(res)
}

// Delete removes a student record.
func (r *StudentRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM students WHERE id = $1`
	res, err := database.Conn(ctx, r.db).ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete student: %w", err)
	}
	return requireAffected(res)
}
