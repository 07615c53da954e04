package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/school-portal-api/internal/models"
	"github.com/noah-isme/school-portal-api/internal/service"
	"github.com/noah-isme/school-portal-api/pkg/response"
)

type gradeService interface {
	ListStudentGrades(ctx context.Context, viewer *models.Identity, filter models.GradeLedgerFilter) ([]models.GradeEntryDetail, error)
	ExportStudentGrades(ctx context.Context, viewer *models.Identity, filter models.GradeLedgerFilter, rawFormat string) (*service.GradeReport, error)
}

// GradeHandler serves grade ledger endpoints.
type GradeHandler struct {
	service gradeService
}

// NewGradeHandler constructs GradeHandler.
func NewGradeHandler(svc gradeService) *GradeHandler {
	return &GradeHandler{service: svc}
}

// ListByStudent godoc
// @Summary List a student's grades
// @Tags Grades
// @Produce json
// @Param id path string true "Student record ID"
// @Param courseId query string false "Course"
// @Param semester query string false "fall, spring or summer"
// @Param academicYear query string false "e.g. 2024-2025"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /grades/students/{id} [get]
func (h *GradeHandler) ListByStudent(c *gin.Context) {
	viewer := identityFromContext(c)
	if viewer == nil {
		return
	}
	entries, err := h.service.ListStudentGrades(c.Request.Context(), viewer, ledgerFilter(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}

// Export godoc
// @Summary Export a student's grades
// @Tags Grades
// @Produce application/pdf
// @Produce text/csv
// @Param id path string true "Student record ID"
// @Param format query string false "csv or pdf"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Router /grades/students/{id}/export [get]
func (h *GradeHandler) Export(c *gin.Context) {
	viewer := identityFromContext(c)
	if viewer == nil {
		return
	}
	report, err := h.service.ExportStudentGrades(c.Request.Context(), viewer, ledgerFilter(c), c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", report.Filename))
	c.Data(http.StatusOK, report.ContentType, report.Body)
}

func ledgerFilter(c *gin.Context) models.GradeLedgerFilter {
	return models.GradeLedgerFilter{
		StudentID:    c.Param("id"),
		CourseID:     c.Query("courseId"),
		Semester:     models.Semester(c.Query("semester")),
		AcademicYear: c.Query("academicYear"),
	}
}
