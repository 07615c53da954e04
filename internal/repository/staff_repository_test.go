package repository

import (
	"context"
	"database/sql"
	"regexp"
	"strings"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/school-portal-api/internal/models"
)

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "sqlmock")
	return sqlxdb, mock, func() {
		db.Close()
	}
}

func columns(list string) []string {
	parts := strings.Split(list, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		out = append(out, strings.TrimSpace(p))
	}
	return out
}

func TestStaffFindByStaffID(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewStaffRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows(columns(staffColumns)).
		AddRow("s1", "T-001", "t@school.test", "hash", "Tia", "Teacher", "teacher", "Science", "{reports:access}", true, nil, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM staff WHERE staff_id = $1 LIMIT 1")).
		WithArgs("T-001").
		WillReturnRows(rows)

	staff, err := repo.FindByStaffID(context.Background(), "T-001")
	require.NoError(t, err)
	assert.Equal(t, models.RoleTeacher, staff.Role)
	assert.Equal(t, []models.Permission{"reports:access"}, staff.PermissionOverrides())
	assert.Nil(t, staff.LastLogin)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStaffFindByEmailNotFound(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewStaffRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE LOWER(email) = LOWER($1)")).
		WithArgs("missing@school.test").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByEmail(context.Background(), "missing@school.test")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStaffCreateDuplicate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewStaffRepository(db)

	mock.ExpectExec("INSERT INTO staff").WillReturnError(&pq.Error{Code: "23505"})

	err := repo.Create(context.Background(), &models.Staff{StaffID: "T-001", Email: "t@school.test", Role: models.RoleTeacher, Active: true})
	assert.ErrorIs(t, err, ErrDuplicate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStaffUpdateRole(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewStaffRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE staff SET role = $2")).
		WithArgs("s1", models.RoleHeadTeacher, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE staff SET role = $2")).
		WithArgs("ghost", models.RoleTeacher, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.UpdateRole(context.Background(), "s1", models.RoleHeadTeacher, time.Now()))
	assert.ErrorIs(t, repo.UpdateRole(context.Background(), "ghost", models.RoleTeacher, time.Now()), sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
