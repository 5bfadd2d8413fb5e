package middleware

import (
	"strings"

	"clinicpay/internal/config"
	"clinicpay/internal/core/domain"
	"clinicpay/internal/pkg/jwt"
	"clinicpay/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// AuthMiddleware creates authentication middleware
func AuthMiddleware(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var accessToken string

		// 1. Try to get token from cookie first
		accessToken = c.Cookies("access_token")

		// 2. If not in cookie, try Authorization header
		if accessToken == "" {
			authHeader := c.Get("Authorization")
			if authHeader != "" && strings.HasPrefix(authHeader, "Bearer ") {
				accessToken = strings.TrimPrefix(authHeader, "Bearer ")
			}
		}

		// 3. No token found
		if accessToken == "" {
			return response.Unauthorized(c, "Access token required")
		}

		// 4. Validate token
		claims, err := jwt.ValidateAccessToken(accessToken, cfg.JWT.Secret)
		if err != nil {
			if err == jwt.ErrTokenExpired {
				return response.Unauthorized(c, "Access token expired")
			}
			return response.Unauthorized(c, "Invalid access token")
		}

		// 5. Set user info in context
		c.Locals("userID", claims.UserID)
		c.Locals("username", claims.Username)
		c.Locals("role", claims.Role)
		c.Locals("clinicID", claims.ClinicID)

		return c.Next()
	}
}

// RoleMiddleware creates role-based authorization middleware
func RoleMiddleware(allowedRoles ...domain.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		role, ok := c.Locals("role").(string)
		if !ok {
			return response.Unauthorized(c, "Unauthorized")
		}

		// Check if user's role is in allowed roles
		for _, allowedRole := range allowedRoles {
			if domain.Role(role) == allowedRole {
				return c.Next()
			}
		}

		return response.Forbidden(c, "You don't have permission to access this resource")
	}
}

// AdminOnly middleware allows only ADMIN role
func AdminOnly() fiber.Handler {
	return RoleMiddleware(domain.RoleAdmin)
}

// ClinicOnly middleware allows only CLINIC role
func ClinicOnly() fiber.Handler {
	return RoleMiddleware(domain.RoleClinic)
}

// PatientOnly middleware allows only PATIENT role
func PatientOnly() fiber.Handler {
	return RoleMiddleware(domain.RolePatient)
}

// ActorFromContext builds the acting identity from the values set by AuthMiddleware
func ActorFromContext(c *fiber.Ctx) domain.Actor {
	actor := domain.Actor{}
	if userID, ok := c.Locals("userID").(uint); ok {
		actor.UserID = userID
	}
	if role, ok := c.Locals("role").(string); ok {
		actor.Role = domain.Role(role)
	}
	if clinicID, ok := c.Locals("clinicID").(uint); ok {
		actor.ClinicID = clinicID
	}
	return actor
}
