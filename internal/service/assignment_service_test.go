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
	"github.com/noah-isme/school-portal-api/internal/rbac"
	appErrors "github.com/noah-isme/school-portal-api/pkg/errors"
)

type assignmentFixture struct {
	service     *AssignmentService
	assignments *memAssignments
	submissions *memSubmissions
	notifier    *fakeNotifier
	owner       *models.Identity
	stranger    *models.Identity
	principal   *models.Identity
	student     *models.Identity
}

func newAssignmentFixture() *assignmentFixture {
	start := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	f := &assignmentFixture{
		assignments: newMemAssignments(
			&models.Assignment{ID: "draft", Title: "Draft", TeacherID: "teacher-1", ClassIDs: []string{"class-1"}, TotalPoints: 50, Attempts: 1, StartDate: start, DueDate: start.Add(72 * time.Hour)},
			&models.Assignment{ID: "live", Title: "Live", TeacherID: "teacher-1", ClassIDs: []string{"class-1"}, TotalPoints: 100, Attempts: 2, StartDate: start, DueDate: start.Add(72 * time.Hour), Published: true},
			&models.Assignment{ID: "elsewhere", Title: "Elsewhere", TeacherID: "teacher-2", ClassIDs: []string{"class-2"}, TotalPoints: 10, Attempts: 1, StartDate: start, DueDate: start.Add(time.Hour), Published: true},
		),
		submissions: newMemSubmissions(&models.Submission{ID: "sub-1", AssignmentID: "live", StudentID: "student-1", AttemptNumber: 1, Status: models.SubmissionSubmitted}),
		notifier:    &fakeNotifier{},
		owner:       models.NewStaffIdentity(&models.Staff{ID: "teacher-1", Role: models.RoleTeacher}),
		stranger:    models.NewStaffIdentity(&models.Staff{ID: "teacher-2", Role: models.RoleTeacher}),
		principal:   models.NewStaffIdentity(&models.Staff{ID: "principal-1", Role: models.RolePrincipal}),
		student:     models.NewStudentIdentity(&models.Student{ID: "student-1", ClassID: "class-1"}),
	}
	f.service = NewAssignmentService(f.assignments, f.submissions, rbac.NewAuthorizer(rbac.DefaultTable(), rbac.ModeIdentityFirst), f.notifier, nil, nil)
	return f
}

func TestCreateAssignment(t *testing.T) {
	f := newAssignmentFixture()
	ctx := context.Background()
	start := time.Date(2024, time.April, 1, 0, 0, 0, 0, time.UTC)

	req := dto.CreateAssignmentRequest{
		Title:       "Essay",
		CourseID:    "course-1",
		ClassIDs:    []string{"class-1", "class-2"},
		Type:        models.AssignmentHomework,
		TotalPoints: 20,
		StartDate:   start,
		DueDate:     start.Add(48 * time.Hour),
		Publish:     true,
	}
	created, err := f.service.Create(ctx, f.owner, req)
	require.NoError(t, err)
	assert.Equal(t, "teacher-1", created.TeacherID)
	assert.Equal(t, 1, created.Attempts)
	assert.Len(t, f.notifier.sent, 2)

	_, err = f.service.Create(ctx, f.student, req)
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))

	director := models.NewStaffIdentity(&models.Staff{ID: "director-1", Role: models.RoleDirector})
	_, err = f.service.Create(ctx, director, req)
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))

	req.DueDate = start.Add(-time.Hour)
	_, err = f.service.Create(ctx, f.owner, req)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestListAssignmentsPerRole(t *testing.T) {
	f := newAssignmentFixture()
	ctx := context.Background()

	own, total, err := f.service.List(ctx, f.owner, models.AssignmentFilter{})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	for _, a := range own {
		assert.Equal(t, "teacher-1", a.TeacherID)
	}

	visible, _, err := f.service.List(ctx, f.student, models.AssignmentFilter{TeacherID: "teacher-2"})
	require.NoError(t, err)
	require.Len(t, visible, 1)
	assert.Equal(t, "live", visible[0].ID)

	all, _, err := f.service.List(ctx, f.principal, models.AssignmentFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestGetAssignmentForStudent(t *testing.T) {
	f := newAssignmentFixture()
	ctx := context.Background()

	detail, err := f.service.Get(ctx, f.student, "live")
	require.NoError(t, err)
	require.NotNil(t, detail.Submission)
	assert.Equal(t, "sub-1", detail.Submission.ID)

	for _, id := range []string{"draft", "elsewhere", "missing"} {
		_, err := f.service.Get(ctx, f.student, id)
		assert.True(t, errors.Is(err, appErrors.ErrNotFound), id)
	}

	detail, err = f.service.Get(ctx, f.stranger, "draft")
	require.NoError(t, err)
	assert.Nil(t, detail.Submission)
}

func TestUpdateAssignmentRules(t *testing.T) {
	f := newAssignmentFixture()
	ctx := context.Background()

	title := "Renamed"
	updated, err := f.service.Update(ctx, f.owner, "live", dto.UpdateAssignmentRequest{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Title)

	points := 80.0
	_, err = f.service.Update(ctx, f.owner, "live", dto.UpdateAssignmentRequest{TotalPoints: &points})
	assert.True(t, errors.Is(err, appErrors.ErrInvalidState))

	attempts := 5
	_, err = f.service.Update(ctx, f.owner, "live", dto.UpdateAssignmentRequest{Attempts: &attempts})
	assert.True(t, errors.Is(err, appErrors.ErrInvalidState))

	updated, err = f.service.Update(ctx, f.owner, "draft", dto.UpdateAssignmentRequest{TotalPoints: &points, Attempts: &attempts})
	require.NoError(t, err)
	assert.Equal(t, 80.0, updated.TotalPoints)
	assert.Equal(t, 5, updated.Attempts)

	_, err = f.service.Update(ctx, f.stranger, "draft", dto.UpdateAssignmentRequest{Title: &title})
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))

	_, err = f.service.Update(ctx, f.principal, "draft", dto.UpdateAssignmentRequest{Title: &title})
	assert.NoError(t, err)

	early := time.Date(2023, time.January, 1, 0, 0, 0, 0, time.UTC)
	_, err = f.service.Update(ctx, f.owner, "draft", dto.UpdateAssignmentRequest{DueDate: &early})
	assert.True(t, errors.Is(err, appErrors.ErrInvalidInput))
}

func TestDeleteAndPublishAssignment(t *testing.T) {
	f := newAssignmentFixture()
	ctx := context.Background()

	err := f.service.Delete(ctx, f.owner, "live")
	assert.True(t, errors.Is(err, appErrors.ErrInvalidState))

	err = f.service.Delete(ctx, f.stranger, "draft")
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))

	published, err := f.service.Publish(ctx, f.owner, "draft")
	require.NoError(t, err)
	assert.True(t, published.Published)
	require.Len(t, f.notifier.sent, 1)
	assert.Equal(t, "class:class-1", f.notifier.sent[0].Room)

	_, err = f.service.Publish(ctx, f.owner, "draft")
	require.NoError(t, err)
	assert.Len(t, f.notifier.sent, 1)

	err = f.service.Delete(ctx, f.owner, "draft")
	assert.True(t, errors.Is(err, appErrors.ErrInvalidState))
}

func TestDeleteDraftAssignment(t *testing.T) {
	f := newAssignmentFixture()
	require.NoError(t, f.service.Delete(context.Background(), f.owner, "draft"))
	_, err := f.assignments.FindByID(context.Background(), "draft")
	assert.Error(t, err)
}

func TestListSubmissionsRequiresOwnership(t *testing.T) {
	f := newAssignmentFixture()
	ctx := context.Background()

	subs, err := f.service.ListSubmissions(ctx, f.owner, "live")
	require.NoError(t, err)
	assert.Len(t, subs, 1)

	_, err = f.service.ListSubmissions(ctx, f.stranger, "live")
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))

	_, err = f.service.ListSubmissions(ctx, f.student, "live")
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))

	empty, err := f.service.ListSubmissions(ctx, f.principal, "draft")
	require.NoError(t, err)
	assert.Empty(t, empty)
}
