package middleware

import (
	"context"
	"errors"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/abdirisakgelle/taskplus/internal/domain"
	"github.com/abdirisakgelle/taskplus/internal/ports"
)

type AccessChecker interface {
	RequireAll(ctx context.Context, userID string, keys ...domain.PermissionKey) error
	RequireAny(ctx context.Context, userID string, keys ...domain.PermissionKey) error
	RequirePage(ctx context.Context, userID string, permission domain.PermissionKey, page int, section string) error
}

// Authorizer gates routes on the caller's effective permissions. A failed
// access lookup is logged and answered with 403.
type Authorizer struct {
	checker AccessChecker
	metrics ports.Metrics
	logger  ports.Logger
}

func NewAuthorizer(checker AccessChecker, metrics ports.Metrics, logger ports.Logger) *Authorizer {
	return &Authorizer{checker: checker, metrics: metrics, logger: logger}
}

func (a *Authorizer) RequirePermission(keys ...domain.PermissionKey) echo.MiddlewareFunc {
	return a.gate(keys, func(ctx context.Context, userID string, _ echo.Context) error {
		return a.checker.RequireAll(ctx, userID, keys...)
	})
}

func (a *Authorizer) RequireAnyPermission(keys ...domain.PermissionKey) echo.MiddlewareFunc {
	return a.gate(keys, func(ctx context.Context, userID string, _ echo.Context) error {
		return a.checker.RequireAny(ctx, userID, keys...)
	})
}

// RequirePageAccess reads the page from ?page= (default 1) and the section
// from ?section=.
func (a *Authorizer) RequirePageAccess(permission domain.PermissionKey) echo.MiddlewareFunc {
	return a.gate([]domain.PermissionKey{permission}, func(ctx context.Context, userID string, c echo.Context) error {
		page := 1
		if raw := c.QueryParam("page"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 {
				verr := &domain.ValidationError{}
				verr.Add("page", "invalid_value", "page must be a positive integer")
				return verr
			}
			page = n
		}
		return a.checker.RequirePage(ctx, userID, permission, page, c.QueryParam("section"))
	})
}

type check func(ctx context.Context, userID string, c echo.Context) error

func (a *Authorizer) gate(keys []domain.PermissionKey, fn check) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userID := UserID(c)
			if userID == "" {
				return domain.ErrUnauthenticated
			}
			ctx := c.Request().Context()
			err := fn(ctx, userID, c)
			switch {
			case err == nil:
				return next(c)
			case errors.Is(err, domain.ErrInvalidInput):
				return err
			case errors.Is(err, domain.ErrPermissionDeny):
				var pageErr *domain.PageAccessDeniedError
				if errors.As(err, &pageErr) {
					a.metrics.AccessDenied("page")
				} else {
					a.metrics.AccessDenied("permission")
				}
				return err
			default:
				a.logger.Error(ctx, "access lookup failed", "user_id", userID, "error", err)
				a.metrics.AccessDenied("lookup_error")
				return &domain.ForbiddenError{Required: keys}
			}
		}
	}
}
