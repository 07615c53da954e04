package dto

import "github.com/noah-isme/school-portal-api/internal/models"

// CreateStudentRequest registers a student in a class.
type CreateStudentRequest struct {
	StudentID  string `json:"studentId" validate:"required,max=32"`
	FirstName  string `json:"firstName" validate:"required"`
	LastName   string `json:"lastName" validate:"required"`
	Email      string `json:"email" validate:"omitempty,email"`
	ClassID    string `json:"classId" validate:"required"`
	GradeLevel string `json:"gradeLevel" validate:"required"`
}

// UpdateEnrollmentStatusRequest changes a student's enrollment status.
type UpdateEnrollmentStatusRequest struct {
	Status models.EnrollmentStatus `json:"status" validate:"required,oneof=enrolled suspended transferred graduated withdrawn"`
	Reason string                  `json:"reason" validate:"max=500"`
}

// CreateClassRequest defines a class.
type CreateClassRequest struct {
	Name              string  `json:"name" validate:"required,max=100"`
	GradeLevel        string  `json:"gradeLevel" validate:"required"`
	Section           string  `json:"section"`
	AcademicYear      string  `json:"academicYear" validate:"required,len=9"`
	HomeroomTeacherID *string `json:"homeroomTeacherId"`
	Capacity          int     `json:"capacity" validate:"omitempty,gte=1,lte=200"`
}
