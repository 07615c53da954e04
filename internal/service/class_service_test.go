package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/school-portal-api/internal/dto"
	"github.com/noah-isme/school-portal-api/internal/models"
	"github.com/noah-isme/school-portal-api/internal/rbac"
	appErrors "github.com/noah-isme/school-portal-api/pkg/errors"
)

func TestClassServiceCreateAndGet(t *testing.T) {
	classes := newMemClasses()
	svc := NewClassService(classes, rbac.NewAuthorizer(rbac.DefaultTable(), rbac.ModeIdentityFirst), nil, nil)
	ctx := context.Background()
	director := models.NewStaffIdentity(&models.Staff{ID: "director-1", Role: models.RoleDirector})

	class, err := svc.Create(ctx, director, dto.CreateClassRequest{Name: "8C", GradeLevel: "8", AcademicYear: "2024-2025"})
	require.NoError(t, err)
	assert.Equal(t, 30, class.Capacity)
	assert.Zero(t, class.CurrentEnrollment)

	got, err := svc.Get(ctx, class.ID)
	require.NoError(t, err)
	assert.Equal(t, "8C", got.Name)

	_, err = svc.Get(ctx, "missing")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	teacher := models.NewStaffIdentity(&models.Staff{ID: "teacher-1", Role: models.RoleTeacher})
	_, err = svc.Create(ctx, teacher, dto.CreateClassRequest{Name: "8D", GradeLevel: "8", AcademicYear: "2024-2025"})
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))

	_, err = svc.Create(ctx, director, dto.CreateClassRequest{Name: "8E", GradeLevel: "8", AcademicYear: "2024"})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}
