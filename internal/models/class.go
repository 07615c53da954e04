package models

import "time"

// Class is a cohort of students.
type Class struct {
	ID                string    `db:"id" json:"id"`
	Name              string    `db:"name" json:"name"`
	GradeLevel        string    `db:"grade_level" json:"grade_level"`
	Section           string    `db:"section" json:"section,omitempty"`
	AcademicYear      string    `db:"academic_year" json:"academic_year"`
	HomeroomTeacherID *string   `db:"homeroom_teacher_id" json:"homeroom_teacher_id,omitempty"`
	Capacity          int       `db:"capacity" json:"capacity"`
	CurrentEnrollment int       `db:"current_enrollment" json:"current_enrollment"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time `db:"updated_at" json:"updated_at"`
}
