package models

import (
	"strings"
	"time"

	"github.com/lib/pq"
)

// IdentityKind is the coarse partition of accounts.
type IdentityKind string

const (
	KindStaff   IdentityKind = "staff"
	KindStudent IdentityKind = "student"
)

// Valid reports whether k is a known kind.
func (k IdentityKind) Valid() bool {
	return k == KindStaff || k == KindStudent
}

// Role is a position drawn from a fixed set. Students always carry RoleStudent.
type Role string

const (
	RoleAdmin       Role = "admin"
	RolePrincipal   Role = "principal"
	RoleDirector    Role = "director"
	RoleHeadTeacher Role = "head_teacher"
	RoleTeacher     Role = "teacher"
	RoleStudent     Role = "student"
)

// StaffRoles lists the roles a staff account can hold.
func StaffRoles() []Role {
	return []Role{RoleAdmin, RolePrincipal, RoleDirector, RoleHeadTeacher, RoleTeacher}
}

// IsStaffRole reports whether r can be assigned to a staff account.
func (r Role) IsStaffRole() bool {
	for _, candidate := range StaffRoles() {
		if r == candidate {
			return true
		}
	}
	return false
}

// Permission is a capability string such as "reports:access".
type Permission string

// Staff is a staff account.
type Staff struct {
	ID           string         `db:"id" json:"id"`
	StaffID      string         `db:"staff_id" json:"staff_id"`
	Email        string         `db:"email" json:"email"`
	PasswordHash string         `db:"password_hash" json:"-"`
	FirstName    string         `db:"first_name" json:"first_name"`
	LastName     string         `db:"last_name" json:"last_name"`
	Role         Role           `db:"role" json:"role"`
	Department   string         `db:"department" json:"department,omitempty"`
	Permissions  pq.StringArray `db:"permissions" json:"permissions,omitempty"`
	Active       bool           `db:"is_active" json:"is_active"`
	LastLogin    *time.Time     `db:"last_login" json:"last_login,omitempty"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at" json:"updated_at"`
}

// FullName joins first and last name.
func (s *Staff) FullName() string {
	return strings.TrimSpace(s.FirstName + " " + s.LastName)
}

// PermissionOverrides returns the per-account permission set, if any.
func (s *Staff) PermissionOverrides() []Permission {
	if len(s.Permissions) == 0 {
		return nil
	}
	out := make([]Permission, 0, len(s.Permissions))
	for _, p := range s.Permissions {
		out = append(out, Permission(p))
	}
	return out
}

// EnrollmentStatus tracks a student's standing.
type EnrollmentStatus string

const (
	EnrollmentEnrolled    EnrollmentStatus = "enrolled"
	EnrollmentSuspended   EnrollmentStatus = "suspended"
	EnrollmentTransferred EnrollmentStatus = "transferred"
	EnrollmentGraduated   EnrollmentStatus = "graduated"
	EnrollmentWithdrawn   EnrollmentStatus = "withdrawn"
)

// Student is a student account. The login credential equals StudentID.
type Student struct {
	ID               string           `db:"id" json:"id"`
	StudentID        string           `db:"student_id" json:"student_id"`
	FirstName        string           `db:"first_name" json:"first_name"`
	LastName         string           `db:"last_name" json:"last_name"`
	Email            *string          `db:"email" json:"email,omitempty"`
	ClassID          string           `db:"class_id" json:"class_id"`
	GradeLevel       string           `db:"grade_level" json:"grade_level"`
	EnrollmentStatus EnrollmentStatus `db:"enrollment_status" json:"enrollment_status"`
	CreatedAt        time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time        `db:"updated_at" json:"updated_at"`
}

// FullName joins first and last name.
func (s *Student) FullName() string {
	return strings.TrimSpace(s.FirstName + " " + s.LastName)
}

// Enrolled reports whether the student may sign in.
func (s *Student) Enrolled() bool {
	return s.EnrollmentStatus == EnrollmentEnrolled
}

// Identity is the resolved principal of a request: exactly one of Staff or
// Student is set, selected by Kind.
type Identity struct {
	Kind    IdentityKind
	Staff   *Staff
	Student *Student
}

// NewStaffIdentity wraps a staff account.
func NewStaffIdentity(s *Staff) *Identity {
	return &Identity{Kind: KindStaff, Staff: s}
}

// NewStudentIdentity wraps a student account.
func NewStudentIdentity(s *Student) *Identity {
	return &Identity{Kind: KindStudent, Student: s}
}

// IsStaff reports whether the identity is a staff account.
func (i *Identity) IsStaff() bool {
	return i != nil && i.Kind == KindStaff && i.Staff != nil
}

// IsStudent reports whether the identity is a student account.
func (i *Identity) IsStudent() bool {
	return i != nil && i.Kind == KindStudent && i.Student != nil
}

// ID returns the internal record identifier.
func (i *Identity) ID() string {
	switch {
	case i.IsStaff():
		return i.Staff.ID
	case i.IsStudent():
		return i.Student.ID
	}
	return ""
}

// Role returns the staff role, RoleStudent for students, or "" when unknown.
func (i *Identity) Role() Role {
	switch {
	case i.IsStaff():
		return i.Staff.Role
	case i.IsStudent():
		return RoleStudent
	}
	return ""
}

// DisplayName returns the account's full name.
func (i *Identity) DisplayName() string {
	switch {
	case i.IsStaff():
		return i.Staff.FullName()
	case i.IsStudent():
		return i.Student.FullName()
	}
	return ""
}
