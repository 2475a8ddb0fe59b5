package application

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/abdirisakgelle/taskplus/internal/domain"
	"github.com/abdirisakgelle/taskplus/internal/ports"
)

type FollowUpService struct {
	tickets   ports.TicketRepository
	followUps ports.FollowUpRepository
	counters  ports.CounterRepository
	metrics   ports.Metrics
}

func NewFollowUpService(tickets ports.TicketRepository, followUps ports.FollowUpRepository, counters ports.CounterRepository, metrics ports.Metrics) *FollowUpService {
	return &FollowUpService{tickets: tickets, followUps: followUps, counters: counters, metrics: metrics}
}

func (s *FollowUpService) Create(ctx context.Context, followUp domain.FollowUp) (domain.FollowUp, error) {
	if followUp.TicketID <= 0 {
		return domain.FollowUp{}, domain.ErrInvalidInput
	}
	if _, err := s.tickets.GetByID(ctx, followUp.TicketID); err != nil {
		return domain.FollowUp{}, err
	}
	id, err := s.counters.Next(ctx, SeqFollowUp)
	if err != nil {
		return domain.FollowUp{}, fmt.Errorf("allocate follow-up id: %w", err)
	}
	followUp.FollowUpID = id
	if followUp.FollowUpDate.IsZero() {
		followUp.FollowUpDate = time.Now().UTC()
	}
	followUp.FollowUpNotes = strings.TrimSpace(followUp.FollowUpNotes)
	if err := s.followUps.Create(ctx, followUp); err != nil {
		return domain.FollowUp{}, err
	}
	s.metrics.FollowUpCreated("manual")
	return followUp, nil
}

func (s *FollowUpService) ListByTicket(ctx context.Context, ticketID int64) ([]domain.FollowUp, error) {
	if _, err := s.tickets.GetByID(ctx, ticketID); err != nil {
		return nil, err
	}
	return s.followUps.ListByTicket(ctx, ticketID)
}

type FollowUpPatch struct {
	IssueSolved   *bool
	Satisfied     *bool
	RepeatedIssue *bool
	FollowUpNotes *string
}

func (s *FollowUpService) Update(ctx context.Context, ticketID, followUpID int64, patch FollowUpPatch) (domain.FollowUp, error) {
	followUps, err := s.followUps.ListByTicket(ctx, ticketID)
	if err != nil {
		return domain.FollowUp{}, err
	}
	var target *domain.FollowUp
	for i := range followUps {
		if followUps[i].FollowUpID == followUpID {
			target = &followUps[i]
			break
		}
	}
	if target == nil {
		return domain.FollowUp{}, domain.ErrNotFound
	}
	if patch.IssueSolved != nil {
		v := *patch.IssueSolved
		target.IssueSolved = &v
	}
	if patch.Satisfied != nil {
		v := *patch.Satisfied
		target.Satisfied = &v
	}
	if patch.RepeatedIssue != nil {
		target.RepeatedIssue = *patch.RepeatedIssue
	}
	if patch.FollowUpNotes != nil {
		target.FollowUpNotes = strings.TrimSpace(*patch.FollowUpNotes)
	}
	if err := s.followUps.Put(ctx, *target); err != nil {
		return domain.FollowUp{}, err
	}
	return *target, nil
}

type ReviewService struct {
	tickets  ports.TicketRepository
	reviews  ports.ReviewRepository
	counters ports.CounterRepository
}

func NewReviewService(tickets ports.TicketRepository, reviews ports.ReviewRepository, counters ports.CounterRepository) *ReviewService {
	return &ReviewService{tickets: tickets, reviews: reviews, counters: counters}
}

func (s *ReviewService) Create(ctx context.Context, review domain.Review) (domain.Review, error) {
	if review.TicketID <= 0 {
		return domain.Review{}, domain.ErrInvalidInput
	}
	if _, err := s.tickets.GetByID(ctx, review.TicketID); err != nil {
		return domain.Review{}, err
	}
	id, err := s.counters.Next(ctx, SeqReview)
	if err != nil {
		return domain.Review{}, fmt.Errorf("allocate review id: %w", err)
	}
	review.ReviewID = id
	if review.ReviewDate.IsZero() {
		review.ReviewDate = time.Now().UTC()
	}
	if err := s.reviews.Create(ctx, review); err != nil {
		return domain.Review{}, err
	}
	return review, nil
}

func (s *ReviewService) ListByTicket(ctx context.Context, ticketID int64) ([]domain.Review, error) {
	if _, err := s.tickets.GetByID(ctx, ticketID); err != nil {
		return nil, err
	}
	return s.reviews.ListByTicket(ctx, ticketID)
}

type NotificationService struct {
	users         ports.UserRepository
	notifications ports.NotificationRepository
}

func NewNotificationService(users ports.UserRepository, notifications ports.NotificationRepository) *NotificationService {
	return &NotificationService{users: users, notifications: notifications}
}

// ListForUser returns the notifications of the user's employee record. Users
// without an employee record have none.
func (s *NotificationService) ListForUser(ctx context.Context, userID string) ([]domain.Notification, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.EmployeeID == nil {
		return []domain.Notification{}, nil
	}
	return s.notifications.ListByEmployee(ctx, *user.EmployeeID)
}

func (s *NotificationService) MarkRead(ctx context.Context, userID string, notificationID int64) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if user.EmployeeID == nil {
		return domain.ErrNotFound
	}
	return s.notifications.MarkRead(ctx, *user.EmployeeID, notificationID)
}
