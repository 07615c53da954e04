package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIdentityVariants(t *testing.T) {
	staff := NewStaffIdentity(&Staff{ID: "st-1", FirstName: "Maria", LastName: "Souza", Role: RoleTeacher})
	assert.True(t, staff.IsStaff())
	assert.False(t, staff.IsStudent())
	assert.Equal(t, "st-1", staff.ID())
	assert.Equal(t, RoleTeacher, staff.Role())
	assert.Equal(t, "Maria Souza", staff.DisplayName())

	student := NewStudentIdentity(&Student{ID: "stu-1", FirstName: "Ana"})
	assert.True(t, student.IsStudent())
	assert.Equal(t, RoleStudent, student.Role())
	assert.Equal(t, "Ana", student.DisplayName())
}

func TestIdentityMismatchedVariant(t *testing.T) {
	broken := &Identity{Kind: KindStaff, Student: &Student{ID: "stu-1"}}
	assert.False(t, broken.IsStaff())
	assert.False(t, broken.IsStudent())
	assert.Equal(t, Role(""), broken.Role())
	assert.Equal(t, "", broken.ID())

	var none *Identity
	assert.False(t, none.IsStaff())
}

func TestStaffRoles(t *testing.T) {
	assert.True(t, RoleHeadTeacher.IsStaffRole())
	assert.False(t, RoleStudent.IsStaffRole())
	assert.False(t, Role("janitor").IsStaffRole())
	assert.Nil(t, (&Staff{}).PermissionOverrides())
	assert.Equal(t, []Permission{"reports:access"}, (&Staff{Permissions: []string{"reports:access"}}).PermissionOverrides())
}
