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

const classColumns = `id, name, grade_level, section, academic_year, homeroom_teacher_id, capacity, current_enrollment, created_at, updated_at`

// ClassRepository persists classes.
type ClassRepository struct {
	db *sqlx.DB
}

// NewClassRepository constructs a ClassRepository.
func NewClassRepository(db *sqlx.DB) *ClassRepository {
	return &ClassRepository{db: db}
}

// FindByID fetches a class.
func (r *ClassRepository) FindByID(ctx context.Context, id string) (*models.Class, error) {
	const query = `SELECT ` + classColumns + ` FROM classes WHERE id = $1 LIMIT 1`
	var class models.Class
	if err := database.Conn(ctx, r.db).GetContext(ctx, &class, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("find class by id: %w", err)
	}
	return &class, nil
}

// Create inserts a class.
func (r *ClassRepository) Create(ctx context.Context, class *models.Class) error {
	if class.ID == "" {
		class.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	class.CreatedAt = now
	class.UpdatedAt = now

	const query = `INSERT INTO classes (id, name, grade_level, section, academic_year, homeroom_teacher_id, capacity, current_enrollment, created_at, updated_at)
        VALUES (:id, :name, :grade_level, :section, :academic_year, :homeroom_teacher_id, :capacity, :current_enrollment, :created_at, :updated_at)`
	if _, err := database.Conn(ctx, r.db).NamedExecContext(ctx, query, class); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("create class: %w", err)
	}
	return nil
}

// AdjustEnrollment adds delta to the enrollment counter, never going below zero.
func (r *ClassRepository) AdjustEnrollment(ctx context.Context, id string, delta int) error {
	const query = `UPDATE classes SET current_enrollment = GREATEST(current_enrollment + $2, 0), updated_at = NOW() WHERE id = $1`
	res, err := database.Conn(ctx, r.db).ExecContext(ctx, query, id, delta)
	if err != nil {
		return fmt.Errorf("adjust class enrollment: %w", err)
	}
	return requireAffected(res)
}
