package dto

import "github.com/noah-isme/school-portal-api/internal/models"

// GradeSubmissionRequest is the grading payload.
type GradeSubmissionRequest struct {
	Score        *float64             `json:"score" validate:"required"`
	Comments     string               `json:"comments" validate:"max=5000"`
	RubricScores []models.RubricScore `json:"rubricScores" validate:"omitempty,dive"`
	Semester     models.Semester      `json:"semester" validate:"omitempty,oneof=fall spring summer"`
	AcademicYear string               `json:"academicYear" validate:"omitempty,len=9"`
}

// SubmitAssignmentRequest carries a student's answers.
type SubmitAssignmentRequest struct {
	Answers map[string]interface{} `json:"answers"`
	Content string                 `json:"content"`
}
