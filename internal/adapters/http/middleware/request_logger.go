package middleware

import (
	"time"

	"github.com/labstack/echo/v4"

	"github.com/abdirisakgelle/taskplus/internal/ports"
)

func RequestLogger(logger ports.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			started := time.Now()
			err := next(c)
			if err != nil {
				// Let the error handler write the response so the status is final.
				c.Error(err)
			}
			duration := time.Since(started)
			ctx := c.Request().Context()
			args := []any{
				"method", c.Request().Method,
				"path", c.Request().URL.Path,
				"route_pattern", c.Path(),
				"status", c.Response().Status,
				"duration", duration.String(),
				"request_id", c.Response().Header().Get(echo.HeaderXRequestID),
			}
			if userID := UserID(c); userID != "" {
				args = append(args, "user_id", userID)
			}
			if c.Response().Status >= 500 {
				logger.Error(ctx, "http request", append(args, "error", err)...)
			} else {
				logger.Info(ctx, "http request", args...)
			}
			return nil
		}
	}
}
