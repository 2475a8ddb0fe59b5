package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdirisakgelle/taskplus/internal/domain"
	"github.com/abdirisakgelle/taskplus/internal/infrastructure/auth"
)

func TestAuthMiddleware_NoneTrustsHeader(t *testing.T) {
	mw, err := AuthMiddleware(ModeNone, nil)
	require.NoError(t, err)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderUserID, "u1")
	c := e.NewContext(req, httptest.NewRecorder())

	var seen string
	h := mw(func(c echo.Context) error {
		seen = UserID(c)
		return c.NoContent(http.StatusOK)
	})

	require.NoError(t, h(c))
	assert.Equal(t, "u1", seen)
}

func TestAuthMiddleware_JWTDelegates(t *testing.T) {
	jwtCalled := false
	mockJWT := func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			jwtCalled = true
			c.Set(auth.UserIDKey, "u2")
			return next(c)
		}
	}

	mw, err := AuthMiddleware(ModeJWT, mockJWT)
	require.NoError(t, err)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderUserID, "spoofed")
	c := e.NewContext(req, httptest.NewRecorder())

	h := mw(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	require.NoError(t, h(c))
	assert.True(t, jwtCalled)
	assert.Equal(t, "u2", UserID(c))
}

func TestAuthMiddleware_JWTRequiresHandler(t *testing.T) {
	mw, err := AuthMiddleware(ModeJWT, nil)
	assert.Nil(t, mw)
	assert.Error(t, err)
}

func TestParseAuthMode(t *testing.T) {
	mode, err := ParseAuthMode("")
	require.NoError(t, err)
	assert.Equal(t, ModeNone, mode)

	mode, err = ParseAuthMode(" JWT ")
	require.NoError(t, err)
	assert.Equal(t, ModeJWT, mode)

	_, err = ParseAuthMode("cognito")
	assert.Error(t, err)
}

func TestRequireAuthenticated(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())

	h := RequireAuthenticated(func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	assert.ErrorIs(t, h(c), domain.ErrUnauthenticated)

	c.Set(auth.UserIDKey, "u1")
	assert.NoError(t, h(c))
}
