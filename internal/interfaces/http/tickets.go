package http

import (
	"context"
	stdhttp "net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/abdirisakgelle/taskplus/internal/adapters/http/middleware"
	"github.com/abdirisakgelle/taskplus/internal/application"
	"github.com/abdirisakgelle/taskplus/internal/domain"
)

type TicketService interface {
	Create(ctx context.Context, callerID string, input domain.Ticket, opts application.CreateOptions) (domain.Ticket, error)
	Update(ctx context.Context, ticketID int64, patch application.TicketPatch) (domain.Ticket, error)
	Reopen(ctx context.Context, ticketID int64) (domain.Ticket, error)
	Get(ctx context.Context, ticketID int64) (application.TicketView, error)
	List(ctx context.Context, access *domain.UserAccess, q application.ListQuery) ([]application.TicketView, application.PageMeta, error)
	Delete(ctx context.Context, ticketID int64) error
	ListStuck(ctx context.Context) ([]domain.Ticket, error)
}

type TicketsHandler struct {
	tickets TicketService
	access  AccessService
}

func NewTicketsHandler(tickets TicketService, access AccessService) *TicketsHandler {
	return &TicketsHandler{tickets: tickets, access: access}
}

// ticketRequest is the wire shape of create and update bodies. A client
// supplied first_call_resolution is accepted and ignored.
type ticketRequest struct {
	CustomerPhone        *string                      `json:"customer_phone"`
	CustomerLocation     *string                      `json:"customer_location"`
	CommunicationChannel *domain.CommunicationChannel `json:"communication_channel"`
	DeviceType           *string                      `json:"device_type"`
	IssueCategory        *domain.IssueCategory        `json:"issue_category"`
	IssueType            *string                      `json:"issue_type"`
	IssueDescription     *string                      `json:"issue_description"`
	AgentID              *int64                       `json:"agent_id"`
	ResolutionStatus     *domain.ResolutionStatus     `json:"resolution_status"`
	FirstCallResolution  *domain.FCR                  `json:"first_call_resolution"`
	FCROverride          *domain.FCR                  `json:"fcr_override"`
}

func (r ticketRequest) ticket() domain.Ticket {
	return domain.Ticket{
		CustomerPhone:        deref(r.CustomerPhone),
		CustomerLocation:     deref(r.CustomerLocation),
		CommunicationChannel: deref(r.CommunicationChannel),
		DeviceType:           deref(r.DeviceType),
		IssueCategory:        deref(r.IssueCategory),
		IssueType:            deref(r.IssueType),
		IssueDescription:     r.IssueDescription,
		AgentID:              r.AgentID,
		ResolutionStatus:     deref(r.ResolutionStatus),
	}
}

func (r ticketRequest) patch() application.TicketPatch {
	return application.TicketPatch{
		CustomerPhone:        r.CustomerPhone,
		CustomerLocation:     r.CustomerLocation,
		CommunicationChannel: r.CommunicationChannel,
		DeviceType:           r.DeviceType,
		IssueCategory:        r.IssueCategory,
		IssueType:            r.IssueType,
		IssueDescription:     r.IssueDescription,
		AgentID:              r.AgentID,
		ResolutionStatus:     r.ResolutionStatus,
		FCROverride:          r.FCROverride,
	}
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}

func (h *TicketsHandler) Create(c echo.Context) error {
	var req ticketRequest
	if err := c.Bind(&req); err != nil {
		return errInvalidPayload
	}
	ticket, err := h.tickets.Create(c.Request().Context(), middleware.UserID(c), req.ticket(), application.CreateOptions{})
	if err != nil {
		return err
	}
	return ok(c, stdhttp.StatusCreated, ticket)
}

type importFailure struct {
	Index   int                 `json:"index"`
	Message string              `json:"message"`
	Errors  []domain.FieldError `json:"errors,omitempty"`
}

// Import creates tickets in bulk, keeping each supplied resolution_status.
// Rows fail independently.
func (h *TicketsHandler) Import(c echo.Context) error {
	var req struct {
		Tickets []ticketRequest `json:"tickets"`
	}
	if err := c.Bind(&req); err != nil {
		return errInvalidPayload
	}
	if len(req.Tickets) == 0 {
		verr := &domain.ValidationError{}
		verr.Add("tickets", "required", "at least one ticket is required")
		return verr
	}
	ctx := c.Request().Context()
	callerID := middleware.UserID(c)
	created := make([]domain.Ticket, 0, len(req.Tickets))
	failed := []importFailure{}
	for i, row := range req.Tickets {
		ticket, err := h.tickets.Create(ctx, callerID, row.ticket(), application.CreateOptions{Import: true})
		if err != nil {
			status, detail := classify(err)
			if status == stdhttp.StatusInternalServerError {
				return err
			}
			failed = append(failed, importFailure{Index: i, Message: detail.Message, Errors: detail.Errors})
			continue
		}
		created = append(created, ticket)
	}
	return ok(c, stdhttp.StatusCreated, map[string]any{"created": created, "failed": failed})
}

func (h *TicketsHandler) List(c echo.Context) error {
	ctx := c.Request().Context()
	q := application.ListQuery{Status: domain.ResolutionStatus(c.QueryParam("status"))}
	verr := &domain.ValidationError{}
	switch q.Status {
	case "", domain.StatusPending, domain.StatusInProgress, domain.StatusCompleted:
	default:
		verr.Add("status", "invalid_value", "must be one of: Pending In-Progress Completed")
	}
	q.Page = queryInt(c, "page", verr)
	q.Limit = queryInt(c, "limit", verr)
	if err := verr.OrNil(); err != nil {
		return err
	}
	access, _, err := h.access.Load(ctx, middleware.UserID(c))
	if err != nil {
		return err
	}
	views, meta, err := h.tickets.List(ctx, access, q)
	if err != nil {
		return err
	}
	return okWithMeta(c, views, meta)
}

func (h *TicketsHandler) Get(c echo.Context) error {
	id, err := ticketID(c)
	if err != nil {
		return err
	}
	view, err := h.tickets.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return ok(c, stdhttp.StatusOK, view)
}

// Update applies a partial update. Recording a QA fcr_override needs
// support.reviews on top of the route's own gate.
func (h *TicketsHandler) Update(c echo.Context) error {
	id, err := ticketID(c)
	if err != nil {
		return err
	}
	var req ticketRequest
	if err := c.Bind(&req); err != nil {
		return errInvalidPayload
	}
	ctx := c.Request().Context()
	if req.FCROverride != nil {
		if err := h.access.RequireAll(ctx, middleware.UserID(c), domain.PermSupportReviews); err != nil {
			return err
		}
	}
	ticket, err := h.tickets.Update(ctx, id, req.patch())
	if err != nil {
		return err
	}
	return ok(c, stdhttp.StatusOK, ticket)
}

func (h *TicketsHandler) Reopen(c echo.Context) error {
	id, err := ticketID(c)
	if err != nil {
		return err
	}
	ticket, err := h.tickets.Reopen(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return ok(c, stdhttp.StatusOK, ticket)
}

func (h *TicketsHandler) Delete(c echo.Context) error {
	id, err := ticketID(c)
	if err != nil {
		return err
	}
	if err := h.tickets.Delete(c.Request().Context(), id); err != nil {
		return err
	}
	return ok(c, stdhttp.StatusOK, map[string]int64{"ticket_id": id})
}

func (h *TicketsHandler) StuckTickets(c echo.Context) error {
	stuck, err := h.tickets.ListStuck(c.Request().Context())
	if err != nil {
		return err
	}
	return ok(c, stdhttp.StatusOK, stuck)
}

type FollowUpService interface {
	Create(ctx context.Context, followUp domain.FollowUp) (domain.FollowUp, error)
	ListByTicket(ctx context.Context, ticketID int64) ([]domain.FollowUp, error)
	Update(ctx context.Context, ticketID, followUpID int64, patch application.FollowUpPatch) (domain.FollowUp, error)
}

type ReviewService interface {
	Create(ctx context.Context, review domain.Review) (domain.Review, error)
	ListByTicket(ctx context.Context, ticketID int64) ([]domain.Review, error)
}

type SupportHandler struct {
	followUps FollowUpService
	reviews   ReviewService
}

func NewSupportHandler(followUps FollowUpService, reviews ReviewService) *SupportHandler {
	return &SupportHandler{followUps: followUps, reviews: reviews}
}

func (h *SupportHandler) ListFollowUps(c echo.Context) error {
	id, err := ticketID(c)
	if err != nil {
		return err
	}
	followUps, err := h.followUps.ListByTicket(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return ok(c, stdhttp.StatusOK, nonNil(followUps))
}

func (h *SupportHandler) CreateFollowUp(c echo.Context) error {
	id, err := ticketID(c)
	if err != nil {
		return err
	}
	var req struct {
		FollowUpAgentID *int64     `json:"follow_up_agent_id"`
		FollowUpDate    *time.Time `json:"follow_up_date"`
		IssueSolved     *bool      `json:"issue_solved"`
		Satisfied       *bool      `json:"satisfied"`
		RepeatedIssue   bool       `json:"repeated_issue"`
		FollowUpNotes   string     `json:"follow_up_notes"`
	}
	if err := c.Bind(&req); err != nil {
		return errInvalidPayload
	}
	followUp, err := h.followUps.Create(c.Request().Context(), domain.FollowUp{
		TicketID:        id,
		FollowUpAgentID: req.FollowUpAgentID,
		FollowUpDate:    deref(req.FollowUpDate),
		IssueSolved:     req.IssueSolved,
		Satisfied:       req.Satisfied,
		RepeatedIssue:   req.RepeatedIssue,
		FollowUpNotes:   req.FollowUpNotes,
	})
	if err != nil {
		return err
	}
	return ok(c, stdhttp.StatusCreated, followUp)
}

func (h *SupportHandler) UpdateFollowUp(c echo.Context) error {
	id, err := ticketID(c)
	if err != nil {
		return err
	}
	followUpID, err := pathID(c, "followUpId")
	if err != nil {
		return err
	}
	var req struct {
		IssueSolved   *bool   `json:"issue_solved"`
		Satisfied     *bool   `json:"satisfied"`
		RepeatedIssue *bool   `json:"repeated_issue"`
		FollowUpNotes *string `json:"follow_up_notes"`
	}
	if err := c.Bind(&req); err != nil {
		return errInvalidPayload
	}
	followUp, err := h.followUps.Update(c.Request().Context(), id, followUpID, application.FollowUpPatch{
		IssueSolved:   req.IssueSolved,
		Satisfied:     req.Satisfied,
		RepeatedIssue: req.RepeatedIssue,
		FollowUpNotes: req.FollowUpNotes,
	})
	if err != nil {
		return err
	}
	return ok(c, stdhttp.StatusOK, followUp)
}

func (h *SupportHandler) ListReviews(c echo.Context) error {
	id, err := ticketID(c)
	if err != nil {
		return err
	}
	reviews, err := h.reviews.ListByTicket(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return ok(c, stdhttp.StatusOK, nonNil(reviews))
}

func (h *SupportHandler) CreateReview(c echo.Context) error {
	id, err := ticketID(c)
	if err != nil {
		return err
	}
	var req struct {
		ReviewerID *int64 `json:"reviewer_id"`
		Resolved   *bool  `json:"resolved"`
		Notes      string `json:"notes"`
	}
	if err := c.Bind(&req); err != nil {
		return errInvalidPayload
	}
	review, err := h.reviews.Create(c.Request().Context(), domain.Review{
		TicketID:   id,
		ReviewerID: req.ReviewerID,
		Resolved:   req.Resolved,
		Notes:      req.Notes,
	})
	if err != nil {
		return err
	}
	return ok(c, stdhttp.StatusCreated, review)
}

type NotificationService interface {
	ListForUser(ctx context.Context, userID string) ([]domain.Notification, error)
	MarkRead(ctx context.Context, userID string, notificationID int64) error
}

type NotificationsHandler struct{ service NotificationService }

func NewNotificationsHandler(service NotificationService) *NotificationsHandler {
	return &NotificationsHandler{service: service}
}

func (h *NotificationsHandler) List(c echo.Context) error {
	notifications, err := h.service.ListForUser(c.Request().Context(), middleware.UserID(c))
	if err != nil {
		return err
	}
	return ok(c, stdhttp.StatusOK, nonNil(notifications))
}

func (h *NotificationsHandler) MarkRead(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := h.service.MarkRead(c.Request().Context(), middleware.UserID(c), id); err != nil {
		return err
	}
	return ok(c, stdhttp.StatusOK, map[string]any{"notification_id": id, "read": true})
}

func ticketID(c echo.Context) (int64, error) {
	return pathID(c, "ticket_id")
}

func pathID(c echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id < 1 {
		verr := &domain.ValidationError{}
		verr.Add(name, "invalid_value", "must be a positive integer")
		return 0, verr
	}
	return id, nil
}

// queryInt returns 0 when the parameter is absent.
func queryInt(c echo.Context, name string, verr *domain.ValidationError) int {
	raw := c.QueryParam(name)
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		verr.Add(name, "invalid_value", "must be a positive integer")
		return 0
	}
	return n
}
