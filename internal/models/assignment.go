package models

import (
	"time"

	"github.com/lib/pq"
)

// AssignmentType enumerates assignment formats.
type AssignmentType string

const (
	AssignmentHomework     AssignmentType = "homework"
	AssignmentProject      AssignmentType = "project"
	AssignmentQuiz         AssignmentType = "quiz"
	AssignmentExam         AssignmentType = "exam"
	AssignmentPresentation AssignmentType = "presentation"
	AssignmentLab          AssignmentType = "lab"
)

// Assignment is a piece of coursework owned by a teacher.
type Assignment struct {
	ID           string         `db:"id" json:"id"`
	Title        string         `db:"title" json:"title"`
	Description  string         `db:"description" json:"description,omitempty"`
	Instructions string         `db:"instructions" json:"instructions,omitempty"`
	CourseID     string         `db:"course_id" json:"course_id"`
	TeacherID    string         `db:"teacher_id" json:"teacher_id"`
	ClassIDs     pq.StringArray `db:"class_ids" json:"class_ids"`
	Type         AssignmentType `db:"type" json:"type"`
	TotalPoints  float64        `db:"total_points" json:"total_points"`
	Attempts     int            `db:"attempts" json:"attempts"`
	StartDate    time.Time      `db:"start_date" json:"start_date"`
	DueDate      time.Time      `db:"due_date" json:"due_date"`
	AllowLate    bool           `db:"allow_late" json:"allow_late"`
	LatePenalty  *float64       `db:"late_penalty" json:"late_penalty,omitempty"`
	Published    bool           `db:"is_published" json:"is_published"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at" json:"updated_at"`
}

// AssignedToClass reports whether the assignment targets classID.
func (a *Assignment) AssignedToClass(classID string) bool {
	for _, id := range a.ClassIDs {
		if id == classID {
			return true
		}
	}
	return false
}

// PastDue reports whether now is after the due date.
func (a *Assignment) PastDue(now time.Time) bool {
	return now.After(a.DueDate)
}

// AssignmentFilter narrows assignment listings.
type AssignmentFilter struct {
	TeacherID     string
	ClassID       string
	CourseID      string
	PublishedOnly bool
	Page          int
	PageSize      int
}
