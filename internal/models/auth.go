package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the bearer token payload.
type Claims struct {
	UserID string       `json:"user_id"`
	Kind   IdentityKind `json:"user_kind"`
	jwt.RegisteredClaims
}

// LoginResponse returns the issued token and account info.
type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresIn int64     `json:"expires_in"`
	IssuedAt  time.Time `json:"issued_at"`
	User      UserInfo  `json:"user"`
}

// UserInfo describes an authenticated account in responses.
type UserInfo struct {
	ID          string       `json:"id"`
	Kind        IdentityKind `json:"kind"`
	Role        Role         `json:"role"`
	Name        string       `json:"name"`
	Email       string       `json:"email,omitempty"`
	StaffID     string       `json:"staff_id,omitempty"`
	StudentID   string       `json:"student_id,omitempty"`
	ClassID     string       `json:"class_id,omitempty"`
	Permissions []Permission `json:"permissions,omitempty"`
}

// NewUserInfo projects an identity into its public shape.
func NewUserInfo(identity *Identity, permissions []Permission) UserInfo {
	info := UserInfo{
		ID:          identity.ID(),
		Kind:        identity.Kind,
		Role:        identity.Role(),
		Name:        identity.DisplayName(),
		Permissions: permissions,
	}
	switch {
	case identity.IsStaff():
		info.Email = identity.Staff.Email
		info.StaffID = identity.Staff.StaffID
	case identity.IsStudent():
		info.StudentID = identity.Student.StudentID
		info.ClassID = identity.Student.ClassID
		if identity.Student.Email != nil {
			info.Email = *identity.Student.Email
		}
	}
	return info
}
