package dto

import "github.com/noah-isme/school-portal-api/internal/models"

// LoginRequest holds credentials. Identifier is a staff ID or email for
// staff, and the student ID for students.
type LoginRequest struct {
	Identifier string              `json:"identifier" validate:"required"`
	Password   string              `json:"password" validate:"required"`
	UserType   models.IdentityKind `json:"userType" validate:"required,oneof=staff student"`
	IP         string              `json:"-"`
	UserAgent  string              `json:"-"`
}

// RegisterRequest is a self-registration payload. Only staff may register.
type RegisterRequest struct {
	UserType   models.IdentityKind `json:"userType" validate:"required"`
	StaffID    string              `json:"staffId" validate:"required,max=32"`
	Email      string              `json:"email" validate:"required,email"`
	Password   string              `json:"password" validate:"required,min=6"`
	FirstName  string              `json:"firstName" validate:"required"`
	LastName   string              `json:"lastName" validate:"required"`
	Role       models.Role         `json:"role" validate:"omitempty,oneof=admin principal director head_teacher teacher"`
	Department string              `json:"department"`
}

// ChangePasswordRequest updates a staff password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=6"`
}
