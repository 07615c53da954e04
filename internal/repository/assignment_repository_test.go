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

func TestAssignmentListFilters(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows(columns(assignmentColumns)).
		AddRow("a1", "Essay", "", "", "ENG-10", "t1", "{c1,c2}", "homework", 100.0, 1, now, now.Add(time.Hour), true, nil, true, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM assignments WHERE 1=1 AND teacher_id = $1 AND $2 = ANY(class_ids) AND is_published = TRUE ORDER BY due_date DESC LIMIT 100 OFFSET 100")).
		WithArgs("t1", "c1").
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM assignments WHERE 1=1 AND teacher_id = $1 AND $2 = ANY(class_ids) AND is_published = TRUE")).
		WithArgs("t1", "c1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(101))

	items, total, err := repo.List(context.Background(), models.AssignmentFilter{TeacherID: "t1", ClassID: "c1", PublishedOnly: true, Page: 2, PageSize: 500})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 101, total)
	assert.True(t, items[0].AssignedToClass("c2"))
	assert.Nil(t, items[0].LatePenalty)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignmentCreateAndDelete(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	mock.ExpectExec("INSERT INTO assignments").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM assignments WHERE id = $1")).WithArgs(sqlmock.AnyArg()).WillReturnResult(sqlmock.NewResult(0, 1))

	assignment := &models.Assignment{Title: "Lab 1", CourseID: "CHEM", TeacherID: "t1", Type: models.AssignmentLab, TotalPoints: 20, Attempts: 1}
	require.NoError(t, repo.Create(context.Background(), assignment))
	assert.NotEmpty(t, assignment.ID)
	assert.NotNil(t, assignment.ClassIDs)
	require.NoError(t, repo.Delete(context.Background(), assignment.ID))
	assert.NoError(t, mock.ExpectationsWereMet())
}
