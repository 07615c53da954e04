package models

import "time"

// Semester names a term of the academic year.
type Semester string

const (
	SemesterFall   Semester = "fall"
	SemesterSpring Semester = "spring"
	SemesterSummer Semester = "summer"
)

// Valid reports whether s is a known semester.
func (s Semester) Valid() bool {
	return s == SemesterFall || s == SemesterSpring || s == SemesterSummer
}

// GradeEntry is the ledger record kept per (student, assignment).
type GradeEntry struct {
	ID           string    `db:"id" json:"id"`
	StudentID    string    `db:"student_id" json:"student_id"`
	CourseID     string    `db:"course_id" json:"course_id"`
	AssignmentID string    `db:"assignment_id" json:"assignment_id"`
	SubmissionID string    `db:"submission_id" json:"submission_id"`
	Score        float64   `db:"score" json:"score"`
	MaxScore     float64   `db:"max_score" json:"max_score"`
	Percentage   float64   `db:"percentage" json:"percentage"`
	LetterGrade  string    `db:"letter_grade" json:"letter_grade"`
	Semester     Semester  `db:"semester" json:"semester"`
	AcademicYear string    `db:"academic_year" json:"academic_year"`
	GradedBy     string    `db:"graded_by" json:"graded_by"`
	GradedAt     time.Time `db:"graded_at" json:"graded_at"`
	Comments     string    `db:"comments" json:"comments,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// GradeEntryDetail joins a ledger entry with its assignment title.
type GradeEntryDetail struct {
	GradeEntry
	AssignmentTitle string `db:"assignment_title" json:"assignment_title"`
}

// GradeLedgerFilter narrows ledger listings.
type GradeLedgerFilter struct {
	StudentID    string
	CourseID     string
	Semester     Semester
	AcademicYear string
}
