package middleware

import (
	"errors"
	"strings"

	"baburchi-admin/internal/service"

	"github.com/gofiber/fiber/v2"
)

// RequireAuth validates the bearer token against the account's live session and stores the
// user in the request locals. A "token" query parameter is accepted for websocket upgrades.
func RequireAuth(auth service.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString, err := bearerToken(c)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": err.Error()})
		}

		session, err := auth.ValidateToken(c.UserContext(), tokenString)
		if err != nil {
			switch {
			case errors.Is(err, service.ErrSessionReplaced), errors.Is(err, service.ErrSessionTimeout),
				errors.Is(err, service.ErrUserInactive):
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": err.Error()})
			case errors.Is(err, service.ErrUserNotFound):
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "User not found"})
			default:
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid or expired token"})
			}
		}

		c.Locals("user_id", session.User.ID)
		c.Locals("user_email", session.User.Email)
		c.Locals("user_name", session.User.Name)
		c.Locals("user_role", session.User.Role)
		c.Locals("user_privileges", session.Privileges)

		return c.Next()
	}
}

func bearerToken(c *fiber.Ctx) (string, error) {
	authHeader := c.Get(fiber.HeaderAuthorization)
	if authHeader == "" {
		if token := c.Query("token"); token != "" {
			return token, nil
		}
		return "", errors.New("Missing authorization token")
	}

	parts := strings.Fields(authHeader)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", errors.New("Invalid authorization format. Use: Bearer <token>")
	}
	return parts[1], nil
}

// RequirePrivilege checks if the authenticated user has the required privilege
func RequirePrivilege(requiredPrivilege string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		privileges, ok := c.Locals("user_privileges").([]string)
		if !ok {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "No privileges found"})
		}

		for _, p := range privileges {
			if p == requiredPrivilege {
				return c.Next()
			}
		}

		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Forbidden: requires '" + requiredPrivilege + "' privilege",
		})
	}
}

// RequireAnyPrivilege checks if the user has at least one of the specified privileges
func RequireAnyPrivilege(requiredPrivileges ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		privileges, ok := c.Locals("user_privileges").([]string)
		if !ok {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "No privileges found"})
		}

		for _, userPriv := range privileges {
			for _, reqPriv := range requiredPrivileges {
				if userPriv == reqPriv {
					return c.Next()
				}
			}
		}

		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Forbidden: requires one of " + strings.Join(requiredPrivileges, ", ") + " privileges",
		})
	}
}
