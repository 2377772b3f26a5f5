package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/deskline/helpdesk/internal/domain"
	apperrors "github.com/deskline/helpdesk/pkg/util/errorutil"
)

// RequireRoles ensures the principal holds one of the allowed roles.
func RequireRoles(allowed ...domain.Role) fiber.Handler {
	allowedSet := make(map[domain.Role]struct{}, len(allowed))
	for _, role := range allowed {
		allowedSet[role] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if _, exists := allowedSet[principal.Role]; !exists {
			return apperrors.NewForbidden("insufficient role")
		}
		return c.Next()
	}
}

// RequireStaff allows every staff role.
func RequireStaff() fiber.Handler {
	return RequireRoles(domain.StaffRoles...)
}

// RequireManagement allows MANAGER and above.
func RequireManagement() fiber.Handler {
	return RequireRoles(domain.ManagementRoles...)
}

// RequireAdmin allows ADMIN and SUPER_ADMIN.
func RequireAdmin() fiber.Handler {
	return RequireRoles(domain.RoleAdmin, domain.RoleSuperAdmin)
}

// RequireCustomer allows only customers.
func RequireCustomer() fiber.Handler {
	return RequireRoles(domain.RoleCustomer)
}
