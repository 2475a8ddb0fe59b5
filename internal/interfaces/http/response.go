package http

import (
	"errors"
	"fmt"
	stdhttp "net/http"

	"github.com/labstack/echo/v4"

	"github.com/abdirisakgelle/taskplus/internal/domain"
	"github.com/abdirisakgelle/taskplus/internal/ports"
)

type envelope struct {
	OK    bool         `json:"ok"`
	Data  any          `json:"data,omitempty"`
	Meta  any          `json:"meta,omitempty"`
	Error *errorDetail `json:"error,omitempty"`
}

type errorDetail struct {
	Message string              `json:"message"`
	Errors  []domain.FieldError `json:"errors,omitempty"`
	Details any                 `json:"details,omitempty"`
}

func ok(c echo.Context, status int, data any) error {
	return c.JSON(status, envelope{OK: true, Data: data})
}

func okWithMeta(c echo.Context, data, meta any) error {
	return c.JSON(stdhttp.StatusOK, envelope{OK: true, Data: data, Meta: meta})
}

func fail(c echo.Context, status int, detail errorDetail) error {
	return c.JSON(status, envelope{OK: false, Error: &detail})
}

var errInvalidPayload = echo.NewHTTPError(stdhttp.StatusBadRequest, "invalid payload")

// ErrorHandler maps domain errors to the response envelope. Internal error
// text is only exposed when echo runs in debug mode.
func ErrorHandler(logger ports.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		status, detail := classify(err)
		if status == stdhttp.StatusInternalServerError {
			logger.Error(c.Request().Context(), "unhandled error", "error", err, "path", c.Request().URL.Path)
			if c.Echo().Debug {
				detail.Details = map[string]string{"detail": err.Error()}
			}
		}
		if c.Request().Method == stdhttp.MethodHead {
			_ = c.NoContent(status)
			return
		}
		_ = fail(c, status, detail)
	}
}

func classify(err error) (int, errorDetail) {
	var (
		validation *domain.ValidationError
		unknown    *domain.UnknownKeysError
		forbidden  *domain.ForbiddenError
		pageDenied *domain.PageAccessDeniedError
		transition *domain.TransitionError
		httpErr    *echo.HTTPError
	)
	switch {
	case errors.As(err, &validation):
		return stdhttp.StatusBadRequest, errorDetail{Message: "validation failed", Errors: validation.Errors}
	case errors.As(err, &transition):
		return stdhttp.StatusBadRequest, errorDetail{
			Message: "invalid transition",
			Errors:  []domain.FieldError{transition.FieldError()},
			Details: map[string]any{"from": transition.From, "to": transition.To},
		}
	case errors.As(err, &unknown):
		details := map[string]any{}
		if len(unknown.InvalidRoles) > 0 {
			details["invalidRoles"] = unknown.InvalidRoles
		}
		if len(unknown.InvalidPerms) > 0 {
			details["invalidPerms"] = unknown.InvalidPerms
		}
		return stdhttp.StatusBadRequest, errorDetail{Message: "unknown role or permission keys", Details: details}
	case errors.Is(err, domain.ErrInvalidInput):
		return stdhttp.StatusBadRequest, errorDetail{Message: err.Error()}
	case errors.As(err, &pageDenied):
		return stdhttp.StatusForbidden, errorDetail{
			Message: "page access denied",
			Details: map[string]any{
				"permission": pageDenied.Permission,
				"page":       pageDenied.Page,
				"section":    pageDenied.Section,
			},
		}
	case errors.As(err, &forbidden):
		return stdhttp.StatusForbidden, errorDetail{
			Message: "forbidden",
			Details: map[string]any{"required": forbidden.Required},
		}
	case errors.Is(err, domain.ErrPermissionDeny):
		return stdhttp.StatusForbidden, errorDetail{Message: "forbidden"}
	case errors.Is(err, domain.ErrInvalidCredentials):
		return stdhttp.StatusUnauthorized, errorDetail{Message: "invalid credentials"}
	case errors.Is(err, domain.ErrUnauthenticated):
		return stdhttp.StatusUnauthorized, errorDetail{Message: "authentication required"}
	case errors.Is(err, domain.ErrNotFound):
		return stdhttp.StatusNotFound, errorDetail{Message: "not found"}
	case errors.Is(err, domain.ErrConflict):
		return stdhttp.StatusConflict, errorDetail{Message: "conflict"}
	case errors.As(err, &httpErr):
		msg := stdhttp.StatusText(httpErr.Code)
		if s, isString := httpErr.Message.(string); isString {
			msg = s
		} else if httpErr.Message != nil {
			msg = fmt.Sprint(httpErr.Message)
		}
		return httpErr.Code, errorDetail{Message: msg}
	default:
		return stdhttp.StatusInternalServerError, errorDetail{Message: "internal error"}
	}
}
