package application

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/abdirisakgelle/taskplus/internal/domain"
	"github.com/abdirisakgelle/taskplus/internal/ports"
)

const (
	SeqTicket       = "ticket"
	SeqFollowUp     = "follow_up"
	SeqReview       = "review"
	SeqNotification = "notification"
)

type TicketServiceDeps struct {
	Tickets   ports.TicketRepository
	FollowUps ports.FollowUpRepository
	Users     ports.UserRepository
	Employees ports.EmployeeRepository
	Counters  ports.CounterRepository
	Notifier  ports.Notifier
	Metrics   ports.Metrics
	Logger    ports.Logger
	Now       func() time.Time
}

type TicketService struct {
	tickets   ports.TicketRepository
	followUps ports.FollowUpRepository
	users     ports.UserRepository
	employees ports.EmployeeRepository
	counters  ports.CounterRepository
	notifier  ports.Notifier
	metrics   ports.Metrics
	logger    ports.Logger
	now       func() time.Time
}

func NewTicketService(deps TicketServiceDeps) *TicketService {
	now := deps.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &TicketService{
		tickets:   deps.Tickets,
		followUps: deps.FollowUps,
		users:     deps.Users,
		employees: deps.Employees,
		counters:  deps.Counters,
		notifier:  deps.Notifier,
		metrics:   deps.Metrics,
		logger:    deps.Logger,
		now:       now,
	}
}

type TicketView struct {
	domain.Ticket
	TicketState domain.TicketState `json:"ticket_state"`
}

type CreateOptions struct {
	// Import keeps a supplied resolution_status instead of forcing Pending.
	Import bool
}

// Create validates input, assigns the agent and stores a new ticket.
// first_call_resolution is always derived from the status.
func (s *TicketService) Create(ctx context.Context, callerID string, input domain.Ticket, opts CreateOptions) (domain.Ticket, error) {
	if err := domain.ValidateTicket(input); err != nil {
		return domain.Ticket{}, err
	}
	agentID, err := s.resolveAgent(ctx, callerID, input.AgentID)
	if err != nil {
		return domain.Ticket{}, err
	}
	id, err := s.counters.Next(ctx, SeqTicket)
	if err != nil {
		return domain.Ticket{}, fmt.Errorf("allocate ticket id: %w", err)
	}

	status := domain.StatusPending
	if opts.Import && input.ResolutionStatus != "" {
		status = input.ResolutionStatus
	}
	ticket := input
	ticket.TicketID = id
	ticket.AgentID = agentID
	ticket.ResolutionStatus = ""
	ticket.FCROverride = nil
	completed := ticket.SetStatus(status)
	now := s.now()
	ticket.CreatedAt = now
	ticket.UpdatedAt = now

	if err := s.tickets.Create(ctx, ticket); err != nil {
		return domain.Ticket{}, err
	}
	s.metrics.TicketCreated()
	if completed {
		s.createAutoFollowUp(ctx, ticket)
	}
	if ticket.AgentID != nil {
		s.notify(ctx, *ticket.AgentID, ticket.TicketID, "ticket_assigned",
			"New ticket assigned", fmt.Sprintf("Ticket #%d (%s) was assigned to you", ticket.TicketID, ticket.IssueCategory))
	}
	return ticket, nil
}

// resolveAgent prefers the caller's own employee record. An explicit agent id
// is only used when the caller has none.
func (s *TicketService) resolveAgent(ctx context.Context, callerID string, requested *int64) (*int64, error) {
	if callerID != "" {
		user, err := s.users.GetByID(ctx, callerID)
		switch {
		case err == nil && user.EmployeeID != nil:
			id := *user.EmployeeID
			return &id, nil
		case err != nil && !errors.Is(err, domain.ErrNotFound):
			s.logger.Warn(ctx, "caller lookup failed during agent resolution", "user_id", callerID, "error", err)
		}
	}
	if requested == nil {
		return nil, nil
	}
	if err := s.checkAgent(ctx, *requested); err != nil {
		return nil, err
	}
	id := *requested
	return &id, nil
}

func (s *TicketService) checkAgent(ctx context.Context, agentID int64) error {
	if _, err := s.employees.GetByID(ctx, agentID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			verr := &domain.ValidationError{}
			verr.Add("agent_id", "not_found", fmt.Sprintf("employee %d does not exist", agentID))
			return verr
		}
		return err
	}
	return nil
}

// TicketPatch holds the fields of a partial update. Nil fields are left
// untouched. first_call_resolution is deliberately absent.
type TicketPatch struct {
	CustomerPhone        *string
	CustomerLocation     *string
	CommunicationChannel *domain.CommunicationChannel
	DeviceType           *string
	IssueCategory        *domain.IssueCategory
	IssueType            *string
	IssueDescription     *string
	AgentID              *int64
	ResolutionStatus     *domain.ResolutionStatus
	FCROverride          *domain.FCR
}

func (p TicketPatch) apply(t *domain.Ticket) {
	if p.CustomerPhone != nil {
		t.CustomerPhone = *p.CustomerPhone
	}
	if p.CustomerLocation != nil {
		t.CustomerLocation = *p.CustomerLocation
	}
	if p.CommunicationChannel != nil {
		t.CommunicationChannel = *p.CommunicationChannel
	}
	if p.DeviceType != nil {
		t.DeviceType = *p.DeviceType
	}
	if p.IssueCategory != nil {
		t.IssueCategory = *p.IssueCategory
	}
	if p.IssueType != nil {
		t.IssueType = *p.IssueType
	}
	if p.IssueDescription != nil {
		v := *p.IssueDescription
		t.IssueDescription = &v
	}
	if p.AgentID != nil {
		id := *p.AgentID
		t.AgentID = &id
	}
	if p.FCROverride != nil {
		v := *p.FCROverride
		t.FCROverride = &v
	}
}

// Update applies a patch and runs the lifecycle rules. Entering Completed
// creates one follow-up; a failure there is logged and does not fail the update.
func (s *TicketService) Update(ctx context.Context, ticketID int64, patch TicketPatch) (domain.Ticket, error) {
	current, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return domain.Ticket{}, err
	}
	next := current
	patch.apply(&next)
	target := current.ResolutionStatus
	if patch.ResolutionStatus != nil {
		target = *patch.ResolutionStatus
	}

	candidate := next
	candidate.ResolutionStatus = target
	if err := domain.ValidateTicket(candidate); err != nil {
		return domain.Ticket{}, err
	}
	if err := domain.CheckTransition(current.ResolutionStatus, target); err != nil {
		return domain.Ticket{}, err
	}
	if patch.AgentID != nil && (current.AgentID == nil || *current.AgentID != *patch.AgentID) {
		if err := s.checkAgent(ctx, *patch.AgentID); err != nil {
			return domain.Ticket{}, err
		}
	}

	completed := next.SetStatus(target)
	next.UpdatedAt = s.now()
	if err := s.tickets.Put(ctx, next); err != nil {
		return domain.Ticket{}, err
	}
	if current.ResolutionStatus != target {
		s.metrics.TicketTransition(current.ResolutionStatus, target)
	}
	if completed {
		s.createAutoFollowUp(ctx, next)
		if next.AgentID != nil {
			s.notify(ctx, *next.AgentID, next.TicketID, "ticket_completed",
				"Ticket completed", fmt.Sprintf("Ticket #%d was completed; a follow-up was scheduled", next.TicketID))
		}
	}
	return next, nil
}

// Reopen returns the ticket to Pending with FCR No. Reopening a Pending
// ticket succeeds without writing.
func (s *TicketService) Reopen(ctx context.Context, ticketID int64) (domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return domain.Ticket{}, err
	}
	from := ticket.ResolutionStatus
	if !ticket.Reopen() {
		return ticket, nil
	}
	ticket.UpdatedAt = s.now()
	if err := s.tickets.Put(ctx, ticket); err != nil {
		return domain.Ticket{}, err
	}
	if from != ticket.ResolutionStatus {
		s.metrics.TicketTransition(from, ticket.ResolutionStatus)
	}
	if ticket.AgentID != nil {
		s.notify(ctx, *ticket.AgentID, ticket.TicketID, "ticket_reopened",
			"Ticket reopened", fmt.Sprintf("Ticket #%d was reopened", ticket.TicketID))
	}
	return ticket, nil
}

func (s *TicketService) createAutoFollowUp(ctx context.Context, ticket domain.Ticket) {
	id, err := s.counters.Next(ctx, SeqFollowUp)
	if err != nil {
		s.sideEffectFailed(ctx, "follow_up", ticket.TicketID, err)
		return
	}
	followUp := domain.FollowUp{
		FollowUpID:      id,
		TicketID:        ticket.TicketID,
		FollowUpAgentID: ticket.AgentID,
		FollowUpDate:    s.now(),
		RepeatedIssue:   false,
	}
	if err := s.followUps.Create(ctx, followUp); err != nil {
		s.sideEffectFailed(ctx, "follow_up", ticket.TicketID, err)
		return
	}
	s.metrics.FollowUpCreated("auto")
}

func (s *TicketService) sideEffectFailed(ctx context.Context, kind string, ticketID int64, err error) {
	s.metrics.SideEffectFailed(kind)
	s.logger.Error(ctx, "ticket side effect failed", "kind", kind, "ticket_id", ticketID, "error", err)
}

func (s *TicketService) notify(ctx context.Context, employeeID, ticketID int64, kind, title, message string) {
	s.notifier.Notify(ctx, domain.Notification{
		EmployeeID: employeeID,
		Type:       kind,
		Title:      title,
		Message:    message,
		TicketID:   ticketID,
		CreatedAt:  s.now(),
	})
}

func (s *TicketService) Get(ctx context.Context, ticketID int64) (TicketView, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return TicketView{}, err
	}
	return s.view(ctx, ticket)
}

func (s *TicketService) view(ctx context.Context, ticket domain.Ticket) (TicketView, error) {
	followUps, err := s.followUps.ListByTicket(ctx, ticket.TicketID)
	if err != nil {
		return TicketView{}, err
	}
	return TicketView{Ticket: ticket, TicketState: domain.DeriveTicketState(ticket, domain.LatestFollowUp(followUps))}, nil
}

type ListQuery struct {
	Status domain.ResolutionStatus
	Page   int
	Limit  int
}

type PageMeta struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
}

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// List returns tickets visible under the caller's department and section
// restrictions, newest first.
func (s *TicketService) List(ctx context.Context, access *domain.UserAccess, q ListQuery) ([]TicketView, PageMeta, error) {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = defaultPageSize
	}
	q.Limit = min(q.Limit, maxPageSize)

	tickets, err := s.tickets.List(ctx, q.Status)
	if err != nil {
		return nil, PageMeta{}, err
	}
	scopes := map[int64]domain.ResourceScope{}
	visible := tickets[:0]
	for _, t := range tickets {
		scope := domain.ResourceScope{}
		if t.AgentID != nil {
			scope, err = s.agentScope(ctx, *t.AgentID, scopes)
			if err != nil {
				return nil, PageMeta{}, err
			}
		}
		if domain.InScope(access, scope) {
			visible = append(visible, t)
		}
	}
	slices.SortFunc(visible, func(a, b domain.Ticket) int { return cmp.Compare(b.TicketID, a.TicketID) })

	meta := PageMeta{Page: q.Page, Limit: q.Limit, Total: len(visible)}
	start := min((q.Page-1)*q.Limit, len(visible))
	end := min(start+q.Limit, len(visible))
	views := make([]TicketView, 0, end-start)
	for _, t := range visible[start:end] {
		v, err := s.view(ctx, t)
		if err != nil {
			return nil, PageMeta{}, err
		}
		views = append(views, v)
	}
	return views, meta, nil
}

func (s *TicketService) agentScope(ctx context.Context, agentID int64, cache map[int64]domain.ResourceScope) (domain.ResourceScope, error) {
	if scope, ok := cache[agentID]; ok {
		return scope, nil
	}
	employee, err := s.employees.GetByID(ctx, agentID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return domain.ResourceScope{}, err
	}
	scope := domain.ResourceScope{DepartmentID: employee.DepartmentID, SectionID: employee.SectionID}
	cache[agentID] = scope
	return scope, nil
}

// Delete removes a ticket and cascades to its follow-ups and reviews.
func (s *TicketService) Delete(ctx context.Context, ticketID int64) error {
	if _, err := s.tickets.GetByID(ctx, ticketID); err != nil {
		return err
	}
	return s.tickets.Delete(ctx, ticketID)
}

// ListStuck returns non-completed tickets without updates for StuckThreshold.
func (s *TicketService) ListStuck(ctx context.Context) ([]domain.Ticket, error) {
	now := s.now()
	stale, err := s.tickets.ListStale(ctx, now.Add(-domain.StuckThreshold))
	if err != nil {
		return nil, err
	}
	stuck := make([]domain.Ticket, 0, len(stale))
	for _, t := range stale {
		if t.IsStuck(now) {
			stuck = append(stuck, t)
		}
	}
	slices.SortFunc(stuck, func(a, b domain.Ticket) int { return a.UpdatedAt.Compare(b.UpdatedAt) })
	return stuck, nil
}

// NotifyStuck alerts the assigned agent of every stuck ticket and returns how
// many notifications were dispatched.
func (s *TicketService) NotifyStuck(ctx context.Context) (int, error) {
	stuck, err := s.ListStuck(ctx)
	if err != nil {
		return 0, err
	}
	sent := 0
	for _, t := range stuck {
		if t.AgentID == nil {
			continue
		}
		s.notify(ctx, *t.AgentID, t.TicketID, "ticket_stuck", "Ticket needs attention",
			fmt.Sprintf("Ticket #%d has not been updated since %s", t.TicketID, t.UpdatedAt.Format(time.RFC3339)))
		sent++
	}
	return sent, nil
}
