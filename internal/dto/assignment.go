package dto

import (
	"time"

	"github.com/noah-isme/school-portal-api/internal/models"
)

// CreateAssignmentRequest defines a new assignment.
type CreateAssignmentRequest struct {
	Title        string                `json:"title" validate:"required,max=200"`
	Description  string                `json:"description"`
	Instructions string                `json:"instructions"`
	CourseID     string                `json:"courseId" validate:"required"`
	ClassIDs     []string              `json:"classIds" validate:"required,min=1,dive,required"`
	Type         models.AssignmentType `json:"type" validate:"required,oneof=homework project quiz exam presentation lab"`
	TotalPoints  float64               `json:"totalPoints" validate:"gte=0"`
	Attempts     int                   `json:"attempts" validate:"omitempty,gte=1,lte=20"`
	StartDate    time.Time             `json:"startDate" validate:"required"`
	DueDate      time.Time             `json:"dueDate" validate:"required,gtfield=StartDate"`
	AllowLate    *bool                 `json:"allowLate"`
	LatePenalty  *float64              `json:"latePenalty" validate:"omitempty,gte=0,lte=100"`
	Publish      bool                  `json:"publish"`
}

// UpdateAssignmentRequest patches an assignment. Nil fields are unchanged.
type UpdateAssignmentRequest struct {
	Title        *string    `json:"title" validate:"omitempty,max=200"`
	Description  *string    `json:"description"`
	Instructions *string    `json:"instructions"`
	ClassIDs     []string   `json:"classIds" validate:"omitempty,dive,required"`
	TotalPoints  *float64   `json:"totalPoints" validate:"omitempty,gte=0"`
	Attempts     *int       `json:"attempts" validate:"omitempty,gte=1,lte=20"`
	StartDate    *time.Time `json:"startDate"`
	DueDate      *time.Time `json:"dueDate"`
	AllowLate    *bool      `json:"allowLate"`
	LatePenalty  *float64   `json:"latePenalty" validate:"omitempty,gte=0,lte=100"`
}

// AssignmentDetail is the student view of an assignment with their own submission.
type AssignmentDetail struct {
	models.Assignment
	Submission *models.Submission `json:"submission,omitempty"`
}
