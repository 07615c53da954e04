package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/school-portal-api/internal/dto"
	"github.com/noah-isme/school-portal-api/internal/models"
	"github.com/noah-isme/school-portal-api/pkg/response"
)

type studentService interface {
	Create(ctx context.Context, actor *models.Identity, req dto.CreateStudentRequest) (*models.Student, error)
	Get(ctx context.Context, viewer *models.Identity, id string) (*models.Student, error)
	UpdateStatus(ctx context.Context, actor *models.Identity, id string, req dto.UpdateEnrollmentStatusRequest) (*models.Student, error)
	Delete(ctx context.Context, actor *models.Identity, id string) error
}

// StudentHandler exposes student endpoints.
type StudentHandler struct {
	students studentService
}

// NewStudentHandler constructs StudentHandler.
func NewStudentHandler(students studentService) *StudentHandler {
	return &StudentHandler{students: students}
}

// Create godoc
// @Summary Enrol a student
// @Tags Students
// @Accept json
// @Produce json
// @Param payload body dto.CreateStudentRequest true "Student payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /students [post]
func (h *StudentHandler) Create(c *gin.Context) {
	actor := identityFromContext(c)
	if actor == nil {
		return
	}
	var req dto.CreateStudentRequest
	if !bindJSON(c, &req, "invalid student payload") {
		return
	}
	student, err := h.students.Create(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, student)
}

// Get godoc
// @Summary Get student detail
// @Tags Students
// @Produce json
// @Param id path string true "Student record ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id} [get]
func (h *StudentHandler) Get(c *gin.Context) {
	viewer := identityFromContext(c)
	if viewer == nil {
		return
	}
	student, err := h.students.Get(c.Request.Context(), viewer, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student, nil)
}

// UpdateStatus godoc
// @Summary Change enrollment status
// @Tags Students
// @Accept json
// @Produce json
// @Param id path string true "Student record ID"
// @Param payload body dto.UpdateEnrollmentStatusRequest true "Status"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/status [put]
func (h *StudentHandler) UpdateStatus(c *gin.Context) {
	actor := identityFromContext(c)
	if actor == nil {
		return
	}
	var req dto.UpdateEnrollmentStatusRequest
	if !bindJSON(c, &req, "invalid status payload") {
		return
	}
	student, err := h.students.UpdateStatus(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student, nil)
}

// Delete godoc
// @Summary Delete student
// @Tags Students
// @Param id path string true "Student record ID"
// @Success 204 {object} response.Envelope
// @Router /students/{id} [delete]
func (h *StudentHandler) Delete(c *gin.Context) {
	actor := identityFromContext(c)
	if actor == nil {
		return
	}
	if err := h.students.Delete(c.Request.Context(), actor, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
