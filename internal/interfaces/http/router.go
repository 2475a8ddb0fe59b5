package http

import (
	stdhttp "net/http"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"

	"github.com/abdirisakgelle/taskplus/internal/adapters/http/middleware"
	"github.com/abdirisakgelle/taskplus/internal/domain"
	"github.com/abdirisakgelle/taskplus/internal/ports"
)

type Middleware struct {
	Auth          echo.MiddlewareFunc
	XRay          echo.MiddlewareFunc
	RequestLogger echo.MiddlewareFunc
}

type Handlers struct {
	Auth          *AuthHandler
	Access        *AccessHandler
	Tickets       *TicketsHandler
	Support       *SupportHandler
	Notifications *NotificationsHandler
	// Metrics is served on GET /metrics when set.
	Metrics stdhttp.Handler
}

type RouterOptions struct {
	Debug      bool
	Logger     ports.Logger
	Authorizer *middleware.Authorizer
}

func newEcho(m Middleware, opts RouterOptions) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Debug = opts.Debug
	e.HTTPErrorHandler = ErrorHandler(opts.Logger)
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	if m.XRay != nil {
		e.Use(m.XRay)
	}
	if m.RequestLogger != nil {
		e.Use(m.RequestLogger)
	}
	return e
}

// NewRouter wires every route. Login is public; everything else under /api
// runs behind the auth middleware and a permission gate.
func NewRouter(h Handlers, m Middleware, opts RouterOptions) *echo.Echo {
	e := newEcho(m, opts)
	authz := opts.Authorizer

	e.GET("/health", func(c echo.Context) error {
		return ok(c, stdhttp.StatusOK, map[string]string{"status": "ok"})
	})
	if h.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(h.Metrics))
	}

	e.POST("/api/auth/login", h.Auth.Login)

	api := e.Group("/api")
	if m.Auth != nil {
		api.Use(m.Auth)
	}
	api.Use(middleware.RequireAuthenticated)

	api.GET("/auth/me", h.Auth.Me)

	manage := authz.RequirePermission(domain.PermAccessManage)
	api.GET("/access/permissions", h.Access.ListPermissions, manage)
	api.GET("/access/roles", h.Access.ListRoles, manage)
	api.POST("/access/roles", h.Access.CreateRole, manage)
	api.PUT("/access/roles/:roleKey", h.Access.UpdateRole, manage)
	api.GET("/access/users/:userId", h.Access.GetUserAccess, manage)
	api.POST("/access/users/:userId", h.Access.UpsertUserAccess, manage)
	api.GET("/access/page-restrictions/:userId/:permission", h.Access.PageRestriction)
	api.GET("/access/me/effective", h.Access.MyEffectiveAccess)

	tickets := authz.RequirePermission(domain.PermSupportTickets)
	api.GET("/tickets", h.Tickets.List, authz.RequirePageAccess(domain.PermSupportTickets))
	api.POST("/tickets", h.Tickets.Create, tickets)
	api.POST("/tickets/import", h.Tickets.Import, authz.RequirePermission(domain.PermSupportManage))
	api.GET("/tickets/:ticket_id", h.Tickets.Get, tickets)
	api.PATCH("/tickets/:ticket_id", h.Tickets.Update, tickets)
	api.PATCH("/tickets/:ticket_id/reopen", h.Tickets.Reopen, tickets)
	api.DELETE("/tickets/:ticket_id", h.Tickets.Delete, authz.RequirePermission(domain.PermSupportManage))

	followUps := authz.RequireAnyPermission(domain.PermSupportFollowUps, domain.PermSupportTickets)
	api.GET("/tickets/:ticket_id/follow-ups", h.Support.ListFollowUps, followUps)
	api.POST("/tickets/:ticket_id/follow-ups", h.Support.CreateFollowUp, followUps)
	api.PATCH("/tickets/:ticket_id/follow-ups/:followUpId", h.Support.UpdateFollowUp, followUps)

	reviews := authz.RequirePermission(domain.PermSupportReviews)
	api.GET("/tickets/:ticket_id/reviews", h.Support.ListReviews, reviews)
	api.POST("/tickets/:ticket_id/reviews", h.Support.CreateReview, reviews)
	api.GET("/reviews/stuck-tickets", h.Tickets.StuckTickets, reviews)

	inbox := authz.RequirePermission(domain.PermNotificationsView)
	api.GET("/notifications", h.Notifications.List, inbox)
	api.PATCH("/notifications/:id/read", h.Notifications.MarkRead, inbox)

	return e
}
