package http

import (
	"context"
	stdhttp "net/http"

	"github.com/labstack/echo/v4"

	"github.com/abdirisakgelle/taskplus/internal/adapters/http/middleware"
	"github.com/abdirisakgelle/taskplus/internal/application"
	"github.com/abdirisakgelle/taskplus/internal/domain"
)

type AuthService interface {
	Login(ctx context.Context, identifier, password string) (application.Session, error)
	Me(ctx context.Context, userID string) (application.Session, error)
}

type AuthHandler struct{ service AuthService }

func NewAuthHandler(service AuthService) *AuthHandler {
	return &AuthHandler{service: service}
}

func (h *AuthHandler) Login(c echo.Context) error {
	var req struct {
		Identifier string `json:"identifier"`
		Password   string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		return errInvalidPayload
	}
	session, err := h.service.Login(c.Request().Context(), req.Identifier, req.Password)
	if err != nil {
		return err
	}
	return ok(c, stdhttp.StatusOK, session)
}

func (h *AuthHandler) Me(c echo.Context) error {
	session, err := h.service.Me(c.Request().Context(), middleware.UserID(c))
	if err != nil {
		return err
	}
	return ok(c, stdhttp.StatusOK, session)
}

type RegistryService interface {
	GroupedPermissions(ctx context.Context) (map[string][]domain.Permission, error)
	ListRoles(ctx context.Context) ([]domain.Role, error)
	CreateRole(ctx context.Context, role domain.Role) error
	UpdateRole(ctx context.Context, role domain.Role) error
}

type AccessService interface {
	Load(ctx context.Context, userID string) (*domain.UserAccess, []domain.Role, error)
	Effective(ctx context.Context, userID string) (domain.EffectiveAccess, error)
	RequireAll(ctx context.Context, userID string, keys ...domain.PermissionKey) error
	GetUserAccess(ctx context.Context, userID string) (application.UserAccessView, error)
	UpsertUserAccess(ctx context.Context, userID string, patch application.AccessPatch) (domain.UserAccess, error)
	PageRestriction(ctx context.Context, userID string, permission domain.PermissionKey) (*domain.PageAccessRule, error)
}

type AccessHandler struct {
	registry RegistryService
	access   AccessService
}

func NewAccessHandler(registry RegistryService, access AccessService) *AccessHandler {
	return &AccessHandler{registry: registry, access: access}
}

func (h *AccessHandler) ListPermissions(c echo.Context) error {
	grouped, err := h.registry.GroupedPermissions(c.Request().Context())
	if err != nil {
		return err
	}
	return ok(c, stdhttp.StatusOK, grouped)
}

func (h *AccessHandler) ListRoles(c echo.Context) error {
	roles, err := h.registry.ListRoles(c.Request().Context())
	if err != nil {
		return err
	}
	return ok(c, stdhttp.StatusOK, roles)
}

type roleRequest struct {
	Key         domain.RoleKey         `json:"key"`
	Label       string                 `json:"label"`
	Description string                 `json:"description"`
	Permissions []domain.PermissionKey `json:"permissions"`
}

func (h *AccessHandler) CreateRole(c echo.Context) error {
	var req roleRequest
	if err := c.Bind(&req); err != nil {
		return errInvalidPayload
	}
	role := domain.Role{Key: req.Key, Label: req.Label, Description: req.Description, Permissions: req.Permissions}
	if err := h.registry.CreateRole(c.Request().Context(), role); err != nil {
		return err
	}
	return ok(c, stdhttp.StatusCreated, role)
}

func (h *AccessHandler) UpdateRole(c echo.Context) error {
	var req roleRequest
	if err := c.Bind(&req); err != nil {
		return errInvalidPayload
	}
	role := domain.Role{
		Key:         domain.RoleKey(c.Param("roleKey")),
		Label:       req.Label,
		Description: req.Description,
		Permissions: req.Permissions,
	}
	if err := h.registry.UpdateRole(c.Request().Context(), role); err != nil {
		return err
	}
	return ok(c, stdhttp.StatusOK, role)
}

func (h *AccessHandler) GetUserAccess(c echo.Context) error {
	view, err := h.access.GetUserAccess(c.Request().Context(), c.Param("userId"))
	if err != nil {
		return err
	}
	return ok(c, stdhttp.StatusOK, view)
}

func (h *AccessHandler) UpsertUserAccess(c echo.Context) error {
	var req struct {
		Roles                  *[]domain.RoleKey        `json:"roles"`
		PermsExtra             *[]domain.PermissionKey  `json:"permsExtra"`
		PermsDenied            *[]domain.PermissionKey  `json:"permsDenied"`
		HomeRoute              *string                  `json:"homeRoute"`
		PageAccess             *[]domain.PageAccessRule `json:"pageAccess"`
		DepartmentRestrictions *[]string                `json:"departmentRestrictions"`
		SectionRestrictions    *[]string                `json:"sectionRestrictions"`
	}
	if err := c.Bind(&req); err != nil {
		return errInvalidPayload
	}
	access, err := h.access.UpsertUserAccess(c.Request().Context(), c.Param("userId"), application.AccessPatch{
		Roles:                  req.Roles,
		PermsExtra:             req.PermsExtra,
		PermsDenied:            req.PermsDenied,
		HomeRoute:              req.HomeRoute,
		PageAccess:             req.PageAccess,
		DepartmentRestrictions: req.DepartmentRestrictions,
		SectionRestrictions:    req.SectionRestrictions,
	})
	if err != nil {
		return err
	}
	return ok(c, stdhttp.StatusOK, access)
}

// PageRestriction is readable by access managers and by the user it concerns.
// A missing rule is answered with data null.
func (h *AccessHandler) PageRestriction(c echo.Context) error {
	ctx := c.Request().Context()
	callerID := middleware.UserID(c)
	userID := c.Param("userId")
	if callerID != userID {
		if err := h.access.RequireAll(ctx, callerID, domain.PermAccessManage); err != nil {
			return err
		}
	}
	rule, err := h.access.PageRestriction(ctx, userID, domain.PermissionKey(c.Param("permission")))
	if err != nil {
		return err
	}
	if rule == nil {
		return c.JSON(stdhttp.StatusOK, map[string]any{"ok": true, "data": nil})
	}
	return ok(c, stdhttp.StatusOK, rule)
}

func (h *AccessHandler) MyEffectiveAccess(c echo.Context) error {
	eff, err := h.access.Effective(c.Request().Context(), middleware.UserID(c))
	if err != nil {
		return err
	}
	return ok(c, stdhttp.StatusOK, map[string]any{
		"permissions": eff.Permissions.Sorted(),
		"roles":       nonNil(eff.Roles),
		"homeRoute":   eff.HomeRouteOrDefault(),
	})
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
