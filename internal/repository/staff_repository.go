package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/school-portal-api/internal/models"
	"github.com/noah-isme/school-portal-api/pkg/database"
)

// ErrDuplicate is returned when a unique constraint rejects a write.
var ErrDuplicate = errors.New("duplicate record")

const staffColumns = `id, staff_id, email, password_hash, first_name, last_name, role, department, permissions, is_active, last_login, created_at, updated_at`

// StaffRepository provides database access for staff accounts.
type StaffRepository struct {
	db *sqlx.DB
}

// NewStaffRepository creates a new instance of StaffRepository.
func NewStaffRepository(db *sqlx.DB) *StaffRepository {
	return &StaffRepository{db: db}
}

// FindByID returns a staff account by primary key.
func (r *StaffRepository) FindByID(ctx context.Context, id string) (*models.Staff, error) {
	return r.findOne(ctx, "find staff by id", `SELECT `+staffColumns+` FROM staff WHERE id = $1 LIMIT 1`, id)
}

// FindByStaffID returns a staff account by external staff identifier.
func (r *StaffRepository) FindByStaffID(ctx context.Context, staffID string) (*models.Staff, error) {
	return r.findOne(ctx, "find staff by staff id", `SELECT `+staffColumns+` FROM staff WHERE staff_id = $1 LIMIT 1`, staffID)
}

// FindByEmail returns a staff account by email, case-insensitively.
func (r *StaffRepository) FindByEmail(ctx context.Context, email string) (*models.Staff, error) {
	return r.findOne(ctx, "find staff by email", `SELECT `+staffColumns+` FROM staff WHERE LOWER(email) = LOWER($1) LIMIT 1`, email)
}

func (r *StaffRepository) findOne(ctx context.Context, op, query string, arg interface{}) (*models.Staff, error) {
	var staff models.Staff
	if err := database.Conn(ctx, r.db).GetContext(ctx, &staff, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &staff, nil
}

// Create inserts a staff account.
func (r *StaffRepository) Create(ctx context.Context, staff *models.Staff) error {
	if staff.ID == "" {
		staff.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	staff.CreatedAt = now
	staff.UpdatedAt = now
	if staff.Permissions == nil {
		staff.Permissions = pq.StringArray{}
	}

	const query = `INSERT INTO staff (id, staff_id, email, password_hash, first_name, last_name, role, department, permissions, is_active, created_at, updated_at)
        VALUES (:id, :staff_id, :email, :password_hash, :first_name, :last_name, :role, :department, :permissions, :is_active, :created_at, :updated_at)`
	if _, err := database.Conn(ctx, r.db).NamedExecContext(ctx, query, staff); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("create staff: %w", err)
	}
	return nil
}

// UpdateLastLogin stamps the last successful login.
func (r *StaffRepository) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	const query = `UPDATE staff SET last_login = $2, updated_at = $2 WHERE id = $1`
	if _, err := database.Conn(ctx, r.db).ExecContext(ctx, query, id, ts); err != nil {
		return fmt.Errorf("update last login: %w", err)
	}
	return nil
}

// UpdatePassword replaces the stored password hash.
func (r *StaffRepository) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	const query = `UPDATE staff SET password_hash = $2, updated_at = $3 WHERE id = $1`
	if _, err := database.Conn(ctx, r.db).ExecContext(ctx, query, id, passwordHash, updatedAt); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

// UpdateRole reassigns the role of a staff account.
func (r *StaffRepository) UpdateRole(ctx context.Context, id string, role models.Role, updatedAt time.Time) error {
	const query = `UPDATE staff SET role = $2, updated_at = $3 WHERE id = $1`
	res, err := database.Conn(ctx, r.db).ExecContext(ctx, query, id, role, updatedAt)
	if err != nil {
		return fmt.Errorf("update role: %w", err)
	}
	return requireAffected(res)
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

func requireAffected(res sql.Result) error {
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
