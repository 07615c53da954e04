package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/school-portal-api/internal/dto"
	"github.com/noah-isme/school-portal-api/internal/models"
	"github.com/noah-isme/school-portal-api/internal/service"
	"github.com/noah-isme/school-portal-api/pkg/response"
)

type submissionService interface {
	Submit(ctx context.Context, identity *models.Identity, assignmentID string, req dto.SubmitAssignmentRequest) (*models.Submission, error)
	Get(ctx context.Context, identity *models.Identity, submissionID string) (*models.Submission, error)
}

type gradingService interface {
	GradeSubmission(ctx context.Context, grader *models.Identity, submissionID string, req dto.GradeSubmissionRequest) (*service.GradeResult, error)
}

// SubmissionHandler handles student submissions and their grading.
type SubmissionHandler struct {
	submissions submissionService
	grading     gradingService
}

// NewSubmissionHandler constructs SubmissionHandler.
func NewSubmissionHandler(submissions submissionService, grading gradingService) *SubmissionHandler {
	return &SubmissionHandler{submissions: submissions, grading: grading}
}

// Submit godoc
// @Summary Submit an assignment
// @Description Creates the first attempt or replaces the answers of the existing one while attempts remain
// @Tags Submissions
// @Accept json
// @Produce json
// @Param id path string true "Assignment ID"
// @Param payload body dto.SubmitAssignmentRequest true "Answers"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /learning/assignments/{id}/submit [post]
func (h *SubmissionHandler) Submit(c *gin.Context) {
	identity := identityFromContext(c)
	if identity == nil {
		return
	}
	var req dto.SubmitAssignmentRequest
	if !bindJSON(c, &req, "invalid submission payload") {
		return
	}
	submission, err := h.submissions.Submit(c.Request.Context(), identity, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	status := http.StatusCreated
	if submission.AttemptNumber > 1 {
		status = http.StatusOK
	}
	response.JSON(c, status, submission, nil)
}

// Get godoc
// @Summary Get submission
// @Tags Submissions
// @Produce json
// @Param submissionId path string true "Submission ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /learning/submissions/{submissionId} [get]
func (h *SubmissionHandler) Get(c *gin.Context) {
	identity := identityFromContext(c)
	if identity == nil {
		return
	}
	submission, err := h.submissions.Get(c.Request.Context(), identity, c.Param("submissionId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, submission, nil)
}

// Grade godoc
// @Summary Grade a submission
// @Description Records the grade on the submission and upserts the student's grade ledger entry
// @Tags Submissions
// @Accept json
// @Produce json
// @Param submissionId path string true "Submission ID"
// @Param payload body dto.GradeSubmissionRequest true "Grade"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /assignments/submissions/{submissionId}/grade [put]
func (h *SubmissionHandler) Grade(c *gin.Context) {
	grader := identityFromContext(c)
	if grader == nil {
		return
	}
	var req dto.GradeSubmissionRequest
	if !bindJSON(c, &req, "invalid grade payload") {
		return
	}
	result, err := h.grading.GradeSubmission(c.Request.Context(), grader, c.Param("submissionId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusOK, "submission graded", result)
}
