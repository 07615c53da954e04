package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/jmoiron/sqlx/types"
)

// SubmissionStatus is the submission lifecycle state.
type SubmissionStatus string

const (
	SubmissionSubmitted SubmissionStatus = "submitted"
	SubmissionGraded    SubmissionStatus = "graded"
	SubmissionReturned  SubmissionStatus = "returned"
)

// RubricScore is one criterion of a rubric breakdown.
type RubricScore struct {
	Criteria string  `json:"criteria" validate:"required"`
	Score    float64 `json:"score" validate:"gte=0"`
	MaxScore float64 `json:"maxScore" validate:"gt=0"`
	Weight   float64 `json:"weight,omitempty" validate:"gte=0"`
}

// RubricScores is stored as a JSONB array.
type RubricScores []RubricScore

// Value implements driver.Valuer.
func (r RubricScores) Value() (driver.Value, error) {
	if r == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(r)
}

// Scan implements sql.Scanner.
func (r *RubricScores) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*r = nil
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return errors.New("rubric scores: unsupported source type")
	}
	return json.Unmarshal(raw, r)
}

// SubmissionGrade is the grade embedded in a submission row.
type SubmissionGrade struct {
	Score        float64      `db:"grade_score" json:"score"`
	MaxScore     float64      `db:"grade_max_score" json:"max_score"`
	Percentage   float64      `db:"grade_percentage" json:"percentage"`
	LetterGrade  string       `db:"grade_letter" json:"letter_grade,omitempty"`
	Comments     string       `db:"grade_comments" json:"comments,omitempty"`
	RubricScores RubricScores `db:"grade_rubric" json:"rubric_scores,omitempty"`
	GradedAt     *time.Time   `db:"graded_at" json:"graded_at,omitempty"`
	GradedBy     *string      `db:"graded_by" json:"graded_by,omitempty"`
}

// Submission is a student's answer to an assignment.
type Submission struct {
	ID              string           `db:"id" json:"id"`
	AssignmentID    string           `db:"assignment_id" json:"assignment_id"`
	StudentID       string           `db:"student_id" json:"student_id"`
	AttemptNumber   int              `db:"attempt_number" json:"attempt_number"`
	Answers         types.JSONText   `db:"answers" json:"answers,omitempty"`
	SubmittedAt     time.Time        `db:"submitted_at" json:"submitted_at"`
	IsLate          bool             `db:"is_late" json:"is_late"`
	Status          SubmissionStatus `db:"status" json:"status"`
	SubmissionGrade `json:"grade"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// Graded reports whether a grade has been recorded.
func (s *Submission) Graded() bool {
	return s.GradedAt != nil
}
