package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

// LoginKey is the context key holding the authenticated login
const LoginKey ContextKey = "login"

// ExtractLogin pulls the X-User-Login header into the request context.
// Authentication itself happens upstream; the service trusts the header.
func ExtractLogin() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if login := c.Request().Header.Get("X-User-Login"); login != "" {
				c.Set(string(LoginKey), login)
			}
			return next(c)
		}
	}
}

// RequireLogin rejects requests without an X-User-Login header. Used on
// routes that record who acted: approvals, comments, ownership.
func RequireLogin() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if Login(c) == "" {
				return c.JSON(http.StatusUnauthorized, map[string]string{
					"error": "X-User-Login header is required",
				})
			}
			return next(c)
		}
	}
}

// Login returns the login stored by ExtractLogin, or ""
func Login(c echo.Context) string {
	login, _ := c.Get(string(LoginKey)).(string)
	return login
}
