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

func TestSubmissionFindByIDScansEmbeddedGrade(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSubmissionRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows(columns(submissionColumns)).
		AddRow("sub1", "a1", "st1", 1, []byte(`{"q1":"b"}`), now, false, "graded",
			85.0, 100.0, 85.0, "B", "good", []byte(`[{"criteria":"clarity","score":8,"maxScore":10}]`), now, "t1", now, now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM submissions WHERE id = $1 LIMIT 1")).
		WithArgs("sub1").
		WillReturnRows(rows)

	submission, err := repo.FindByID(context.Background(), "sub1")
	require.NoError(t, err)
	assert.True(t, submission.Graded())
	assert.Equal(t, "B", submission.LetterGrade)
	require.Len(t, submission.RubricScores, 1)
	assert.Equal(t, 10.0, submission.RubricScores[0].MaxScore)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionSaveGrade(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSubmissionRepository(db)

	gradedAt := time.Now()
	grader := "t1"
	mock.ExpectExec(regexp.QuoteMeta("UPDATE submissions SET grade_score = $2")).
		WithArgs("sub1", 42.0, 50.0, 84.0, "B", "", sqlmock.AnyArg(), gradedAt, &grader, models.SubmissionGraded).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.SaveGrade(context.Background(), "sub1", models.SubmissionGrade{
		Score: 42, MaxScore: 50, Percentage: 84, LetterGrade: "B", GradedAt: &gradedAt, GradedBy: &grader,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionResubmitKeepsGrade(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSubmissionRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("status = ?, updated_at = ? WHERE id = ?")).
		WithArgs(2, sqlmock.AnyArg(), sqlmock.AnyArg(), false, models.SubmissionSubmitted, sqlmock.AnyArg(), "sub1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	gradedAt := time.Now()
	submission := &models.Submission{ID: "sub1", AttemptNumber: 2, Answers: []byte(`{}`), Status: models.SubmissionGraded,
		SubmissionGrade: models.SubmissionGrade{Score: 10, LetterGrade: "F", GradedAt: &gradedAt}}
	require.NoError(t, repo.Resubmit(context.Background(), submission))
	assert.True(t, submission.Graded())
	assert.Equal(t, 10.0, submission.Score)
	assert.Equal(t, models.SubmissionSubmitted, submission.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}
