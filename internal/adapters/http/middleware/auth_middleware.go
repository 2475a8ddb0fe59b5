package middleware

import (
	"errors"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/abdirisakgelle/taskplus/internal/domain"
	"github.com/abdirisakgelle/taskplus/internal/infrastructure/auth"
)

type Mode string

const (
	ModeNone Mode = "none"
	ModeJWT  Mode = "jwt"
)

// HeaderUserID carries the caller identity when authentication is disabled.
const HeaderUserID = "X-User-ID"

func ParseAuthMode(raw string) (Mode, error) {
	mode := Mode(strings.ToLower(strings.TrimSpace(raw)))
	switch mode {
	case "":
		return ModeNone, nil
	case ModeNone, ModeJWT:
		return mode, nil
	default:
		return "", errors.New("invalid auth mode")
	}
}

// AuthMiddleware resolves the caller. In none mode the X-User-ID header is
// trusted as is; in jwt mode the Bearer token handler is required.
func AuthMiddleware(mode Mode, jwtHandler echo.MiddlewareFunc) (echo.MiddlewareFunc, error) {
	if mode == ModeJWT && jwtHandler == nil {
		return nil, errors.New("jwt middleware is required when auth mode is jwt")
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			switch mode {
			case ModeNone:
				if id := strings.TrimSpace(c.Request().Header.Get(HeaderUserID)); id != "" {
					c.Set(auth.UserIDKey, id)
				}
				return next(c)
			case ModeJWT:
				return jwtHandler(next)(c)
			default:
				return errors.New("invalid auth mode")
			}
		}
	}, nil
}

// UserID returns the authenticated caller, or "" when there is none.
func UserID(c echo.Context) string {
	id, _ := c.Get(auth.UserIDKey).(string)
	return id
}

// RequireAuthenticated rejects requests without a resolved caller.
func RequireAuthenticated(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if UserID(c) == "" {
			return domain.ErrUnauthenticated
		}
		return next(c)
	}
}
