package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/school-portal-api/internal/models"
)

func TestGradeLedgerUpsertKeepsExistingID(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewGradeLedgerRepository(db)

	created := time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("ON CONFLICT ON CONSTRAINT uq_grade_ledger_student_assignment DO UPDATE")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow("existing", created))

	entry := &models.GradeEntry{StudentID: "st1", AssignmentID: "a1", SubmissionID: "sub1", CourseID: "ENG", Score: 9, MaxScore: 10,
		Percentage: 90, LetterGrade: "A", Semester: models.SemesterFall, AcademicYear: "2024-2025", GradedBy: "t1", GradedAt: time.Now()}
	require.NoError(t, repo.Upsert(context.Background(), entry))
	assert.Equal(t, "existing", entry.ID)
	assert.Equal(t, created, entry.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGradeLedgerListByStudent(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewGradeLedgerRepository(db)

	now := time.Now()
	cols := append(columns(gradeLedgerColumns), "assignment_title")
	rows := sqlmock.NewRows(cols).
		AddRow("g1", "st1", "ENG", "a1", "sub1", 9.0, 10.0, 90.0, "A", "fall", "2024-2025", "t1", now, "", now, now, "Essay")
	mock.ExpectQuery(regexp.QuoteMeta("WHERE g.student_id = $1 AND g.semester = $2 AND g.academic_year = $3 ORDER BY g.graded_at DESC")).
		WithArgs("st1", models.SemesterFall, "2024-2025").
		WillReturnRows(rows)

	entries, err := repo.ListByStudent(context.Background(), models.GradeLedgerFilter{StudentID: "st1", Semester: models.SemesterFall, AcademicYear: "2024-2025"})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Essay", entries[0].AssignmentTitle)
	assert.Equal(t, 90.0, entries[0].Percentage)
	assert.NoError(t, mock.ExpectationsWereMet())
}
