package rbac

import (
	"fmt"
	"strings"

	"github.com/noah-isme/school-portal-api/internal/models"
	appErrors "github.com/noah-isme/school-portal-api/pkg/errors"
)

// CheckRole succeeds when a student identity meets an allow-list containing
// RoleStudent, or a staff identity's role is in the allow-list.
func CheckRole(identity *models.Identity, allowed ...models.Role) error {
	if identity == nil {
		return appErrors.ErrUnauthenticated
	}

	var role models.Role
	switch {
	case identity.IsStudent():
		role = models.RoleStudent
	case identity.IsStaff():
		role = identity.Staff.Role
	default:
		return appErrors.Clone(appErrors.ErrForbidden, "unrecognised account type")
	}

	for _, r := range allowed {
		if r == role {
			return nil
		}
	}

	names := make([]string, len(allowed))
	for i, r := range allowed {
		names[i] = string(r)
	}
	return appErrors.Clone(appErrors.ErrForbidden, fmt.Sprintf("access denied: requires role %s", strings.Join(names, " or ")))
}

// CheckSelf restricts students to records of their own kind that carry their
// own identifier. Staff pass unconditionally.
func CheckSelf(identity *models.Identity, kind models.IdentityKind, resourceID string) error {
	if identity == nil {
		return appErrors.ErrUnauthenticated
	}
	if identity.IsStudent() && kind == models.KindStudent && resourceID != identity.ID() {
		return appErrors.Clone(appErrors.ErrForbidden, "students may only access their own records")
	}
	return nil
}

// Ownership is a reusable owner predicate: identities whose role is
// restricted must own the resource, every other role passes.
type Ownership struct {
	restricted map[models.Role]struct{}
}

// NewOwnership restricts the given roles to resources they own.
func NewOwnership(restricted ...models.Role) Ownership {
	set := make(map[models.Role]struct{}, len(restricted))
	for _, r := range restricted {
		set[r] = struct{}{}
	}
	return Ownership{restricted: set}
}

// TeacherOwnership limits teachers to their own assignments and submissions
// on those assignments. Higher roles are unrestricted.
var TeacherOwnership = NewOwnership(models.RoleTeacher)

// Check compares ownerID with the identity when its role is restricted.
func (o Ownership) Check(identity *models.Identity, ownerID string) error {
	if identity == nil {
		return appErrors.ErrUnauthenticated
	}
	if _, ok := o.restricted[identity.Role()]; !ok {
		return nil
	}
	if ownerID == "" || ownerID != identity.ID() {
		return appErrors.Clone(appErrors.ErrForbidden, fmt.Sprintf("access denied: %s may only act on resources they own", identity.Role()))
	}
	return nil
}

// Owns reports whether Check would pass.
func (o Ownership) Owns(identity *models.Identity, ownerID string) bool {
	return o.Check(identity, ownerID) == nil
}
