package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/school-portal-api/internal/dto"
	"github.com/noah-isme/school-portal-api/internal/models"
	"github.com/noah-isme/school-portal-api/pkg/response"
)

type assignmentService interface {
	Create(ctx context.Context, identity *models.Identity, req dto.CreateAssignmentRequest) (*models.Assignment, error)
	List(ctx context.Context, identity *models.Identity, filter models.AssignmentFilter) ([]models.Assignment, int, error)
	Get(ctx context.Context, identity *models.Identity, id string) (*dto.AssignmentDetail, error)
	Update(ctx context.Context, identity *models.Identity, id string, req dto.UpdateAssignmentRequest) (*models.Assignment, error)
	Delete(ctx context.Context, identity *models.Identity, id string) error
	Publish(ctx context.Context, identity *models.Identity, id string) (*models.Assignment, error)
	ListSubmissions(ctx context.Context, identity *models.Identity, id string) ([]models.Submission, error)
}

// AssignmentHandler exposes assignment endpoints.
type AssignmentHandler struct {
	service assignmentService
}

// NewAssignmentHandler constructs AssignmentHandler.
func NewAssignmentHandler(svc assignmentService) *AssignmentHandler {
	return &AssignmentHandler{service: svc}
}

// List godoc
// @Summary List assignments
// @Description Teachers see their own assignments, students see published work for their class
// @Tags Assignments
// @Produce json
// @Param classId query string false "Filter by class"
// @Param courseId query string false "Filter by course"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /learning/assignments [get]
func (h *AssignmentHandler) List(c *gin.Context) {
	identity := identityFromContext(c)
	if identity == nil {
		return
	}
	filter := models.AssignmentFilter{
		ClassID:  c.Query("classId"),
		CourseID: c.Query("courseId"),
		Page:     queryInt(c, "page", 1),
		PageSize: queryInt(c, "limit", 20),
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 || filter.PageSize > 100 {
		filter.PageSize = 20
	}

	assignments, total, err := h.service.List(c.Request.Context(), identity, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, assignments, &response.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total})
}

// Create godoc
// @Summary Create assignment
// @Tags Assignments
// @Accept json
// @Produce json
// @Param payload body dto.CreateAssignmentRequest true "Assignment payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /learning/assignments [post]
func (h *AssignmentHandler) Create(c *gin.Context) {
	identity := identityFromContext(c)
	if identity == nil {
		return
	}
	var req dto.CreateAssignmentRequest
	if !bindJSON(c, &req, "invalid assignment payload") {
		return
	}
	assignment, err := h.service.Create(c.Request.Context(), identity, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, assignment)
}

// Get godoc
// @Summary Get assignment detail
// @Tags Assignments
// @Produce json
// @Param id path string true "Assignment ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /learning/assignments/{id} [get]
func (h *AssignmentHandler) Get(c *gin.Context) {
	identity := identityFromContext(c)
	if identity == nil {
		return
	}
	detail, err := h.service.Get(c.Request.Context(), identity, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// Update godoc
// @Summary Update assignment
// @Tags Assignments
// @Accept json
// @Produce json
// @Param id path string true "Assignment ID"
// @Param payload body dto.UpdateAssignmentRequest true "Fields to change"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /learning/assignments/{id} [put]
func (h *AssignmentHandler) Update(c *gin.Context) {
	identity := identityFromContext(c)
	if identity == nil {
		return
	}
	var req dto.UpdateAssignmentRequest
	if !bindJSON(c, &req, "invalid assignment payload") {
		return
	}
	assignment, err := h.service.Update(c.Request.Context(), identity, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, assignment, nil)
}

// Delete godoc
// @Summary Delete a draft assignment
// @Tags Assignments
// @Param id path string true "Assignment ID"
// @Success 204 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /learning/assignments/{id} [delete]
func (h *AssignmentHandler) Delete(c *gin.Context) {
	identity := identityFromContext(c)
	if identity == nil {
		return
	}
	if err := h.service.Delete(c.Request.Context(), identity, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Publish godoc
// @Summary Publish assignment
// @Tags Assignments
// @Produce json
// @Param id path string true "Assignment ID"
// @Success 200 {object} response.Envelope
// @Router /learning/assignments/{id}/publish [post]
func (h *AssignmentHandler) Publish(c *gin.Context) {
	identity := identityFromContext(c)
	if identity == nil {
		return
	}
	assignment, err := h.service.Publish(c.Request.Context(), identity, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, assignment, nil)
}

// ListSubmissions godoc
// @Summary List submissions of an assignment
// @Tags Assignments
// @Produce json
// @Param id path string true "Assignment ID"
// @Success 200 {object} response.Envelope
// @Router /learning/assignments/{id}/submissions [get]
func (h *AssignmentHandler) ListSubmissions(c *gin.Context) {
	identity := identityFromContext(c)
	if identity == nil {
		return
	}
	submissions, err := h.service.ListSubmissions(c.Request.Context(), identity, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, submissions, nil)
}
