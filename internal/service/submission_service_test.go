package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/school-portal-api/internal/dto"
	"github.com/noah-isme/school-portal-api/internal/models"
	appErrors "github.com/noah-isme/school-portal-api/pkg/errors"
)

var submissionClock = time.Date(2024, time.March, 10, 12, 0, 0, 0, time.UTC)

func newSubmissionFixture(attempts int, due time.Time, allowLate bool) (*SubmissionService, *memSubmissions, *fakeNotifier, *models.Identity) {
	assignments := newMemAssignments(
		&models.Assignment{
			ID:        "asg-1",
			Title:     "Lab report",
			TeacherID: "teacher-1",
			ClassIDs:  []string{"class-1"},
			Attempts:  attempts,
			DueDate:   due,
			AllowLate: allowLate,
			Published: true,
		},
		&models.Assignment{ID: "draft", TeacherID: "teacher-1", ClassIDs: []string{"class-1"}, Attempts: 1, DueDate: due},
		&models.Assignment{ID: "other-class", TeacherID: "teacher-1", ClassIDs: []string{"class-9"}, Attempts: 1, DueDate: due, Published: true},
	)
	submissions := newMemSubmissions()
	notifier := &fakeNotifier{}
	svc := NewSubmissionService(submissions, assignments, notifier, nil, nil)
	svc.now = func() time.Time { return submissionClock }
	student := models.NewStudentIdentity(&models.Student{ID: "student-1", StudentID: "S-001", FirstName: "Ada", LastName: "Lovelace", ClassID: "class-1"})
	return svc, submissions, notifier, student
}

func TestSubmitEnforcesAttemptCeiling(t *testing.T) {
	for _, attempts := range []int{1, 3} {
		svc, submissions, _, student := newSubmissionFixture(attempts, submissionClock.Add(24*time.Hour), false)
		ctx := context.Background()

		for i := 1; i <= attempts; i++ {
			sub, err := svc.Submit(ctx, student, "asg-1", dto.SubmitAssignmentRequest{Content: "attempt"})
			require.NoError(t, err)
			assert.Equal(t, i, sub.AttemptNumber)
			assert.Equal(t, models.SubmissionSubmitted, sub.Status)
		}

		_, err := svc.Submit(ctx, student, "asg-1", dto.SubmitAssignmentRequest{Answers: map[string]interface{}{"q1": "b"}})
		require.Error(t, err)
		assert.True(t, errors.Is(err, appErrors.ErrInvalidInput))
		assert.Equal(t, "maximum attempts reached", appErrors.FromError(err).Message)

		stored, err := submissions.FindByAssignmentAndStudent(ctx, "asg-1", "student-1")
		require.NoError(t, err)
		assert.Equal(t, attempts, stored.AttemptNumber)
		assert.Len(t, submissions.byID, 1)
	}
}

func TestResubmitKeepsGradeAndReplacesAnswers(t *testing.T) {
	svc, submissions, _, student := newSubmissionFixture(2, submissionClock.Add(time.Hour), false)
	ctx := context.Background()

	first, err := svc.Submit(ctx, student, "asg-1", dto.SubmitAssignmentRequest{Content: "draft"})
	require.NoError(t, err)
	gradedAt := submissionClock
	require.NoError(t, submissions.SaveGrade(ctx, first.ID, models.SubmissionGrade{Score: 40, MaxScore: 100, GradedAt: &gradedAt}))

	second, err := svc.Submit(ctx, student, "asg-1", dto.SubmitAssignmentRequest{Content: "final"})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 2, second.AttemptNumber)
	assert.Equal(t, models.SubmissionSubmitted, second.Status)
	assert.True(t, second.Graded())
	assert.Equal(t, 40.0, second.Score)
	assert.JSONEq(t, `{"content":"final"}`, string(second.Answers))
}

func TestSubmitLateHandling(t *testing.T) {
	ctx := context.Background()

	svc, _, _, student := newSubmissionFixture(1, submissionClock.Add(-time.Hour), false)
	_, err := svc.Submit(ctx, student, "asg-1", dto.SubmitAssignmentRequest{Content: "late"})
	assert.True(t, errors.Is(err, appErrors.ErrInvalidInput))

	svc, _, _, student = newSubmissionFixture(1, submissionClock.Add(-time.Hour), true)
	sub, err := svc.Submit(ctx, student, "asg-1", dto.SubmitAssignmentRequest{Content: "late"})
	require.NoError(t, err)
	assert.True(t, sub.IsLate)
}

func TestSubmitHidesUnavailableAssignments(t *testing.T) {
	svc, _, _, student := newSubmissionFixture(1, submissionClock.Add(time.Hour), false)
	ctx := context.Background()

	for _, id := range []string{"draft", "other-class", "missing"} {
		_, err := svc.Submit(ctx, student, id, dto.SubmitAssignmentRequest{})
		assert.True(t, errors.Is(err, appErrors.ErrNotFound), id)
	}

	teacher := models.NewStaffIdentity(&models.Staff{ID: "teacher-1", Role: models.RoleTeacher})
	_, err := svc.Submit(ctx, teacher, "asg-1", dto.SubmitAssignmentRequest{})
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))
}

func TestSubmitNotifiesOwningTeacher(t *testing.T) {
	svc, _, notifier, student := newSubmissionFixture(1, submissionClock.Add(time.Hour), false)

	_, err := svc.Submit(context.Background(), student, "asg-1", dto.SubmitAssignmentRequest{Content: "done"})
	require.NoError(t, err)
	require.Len(t, notifier.sent, 1)
	assert.Equal(t, "staff:teacher-1", notifier.sent[0].Room)
	assert.Equal(t, models.NotificationSubmission, notifier.sent[0].Type)
	assert.Equal(t, "Ada Lovelace submitted Lab report", notifier.sent[0].Message)
}

func TestGetSubmissionScopesStudents(t *testing.T) {
	svc, _, _, student := newSubmissionFixture(1, submissionClock.Add(time.Hour), false)
	ctx := context.Background()

	sub, err := svc.Submit(ctx, student, "asg-1", dto.SubmitAssignmentRequest{})
	require.NoError(t, err)

	got, err := svc.Get(ctx, student, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, sub.ID, got.ID)

	other := models.NewStudentIdentity(&models.Student{ID: "student-2", ClassID: "class-1"})
	_, err = svc.Get(ctx, other, sub.ID)
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}
