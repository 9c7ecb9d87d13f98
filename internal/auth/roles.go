package auth

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/ciepi/portal-service/internal/domain"
)

// Permission names a guarded staff capability.
type Permission string

const (
	PermManageCapacitaciones Permission = "capacitaciones:manage"
	PermManageEvents         Permission = "events:manage"
	PermWriteBlog            Permission = "blog:write"
	PermViewRegistrants      Permission = "registrants:view"
	PermViewContact          Permission = "contact:view"
	PermIssueTokens          Permission = "verification:issue"
)

// RolePolicy maps staff roles to granted permissions. It is built once at
// startup and passed into route registration; handlers never consult
// globals.
type RolePolicy map[domain.StaffRole]map[Permission]struct{}

// DefaultRolePolicy returns the static policy table for the portal.
func DefaultRolePolicy() RolePolicy {
	editor := []Permission{PermWriteBlog, PermManageEvents, PermViewContact}
	admin := []Permission{
		PermManageCapacitaciones, PermManageEvents, PermWriteBlog,
		PermViewRegistrants, PermViewContact, PermIssueTokens,
	}

	policy := RolePolicy{}
	policy.grant(domain.StaffRoleEditor, editor...)
	policy.grant(domain.StaffRoleAdmin, admin...)
	return policy
}

func (p RolePolicy) grant(role domain.StaffRole, perms ...Permission) {
	granted, ok := p[role]
	if !ok {
		granted = make(map[Permission]struct{}, len(perms))
		p[role] = granted
	}
	for _, perm := range perms {
		granted[perm] = struct{}{}
	}
}

// Allows reports whether the role holds the permission.
func (p RolePolicy) Allows(role domain.StaffRole, perm Permission) bool {
	granted, ok := p[role]
	if !ok {
		return false
	}
	_, ok = granted[perm]
	return ok
}

// Require returns middleware enforcing a permission against the policy.
func Require(policy RolePolicy, perm Permission) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return fiber.NewError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
		}
		if !policy.Allows(principal.Staff.Role, perm) {
			return fiber.NewError(http.StatusForbidden, "insufficient role")
		}
		return c.Next()
	}
}
