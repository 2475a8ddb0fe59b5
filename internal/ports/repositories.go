package ports

import (
	"context"
	"time"

	"github.com/abdirisakgelle/taskplus/internal/domain"
)

type PermissionRepository interface {
	Put(ctx context.Context, permission domain.Permission) error
	List(ctx context.Context) ([]domain.Permission, error)
}

type RoleRepository interface {
	Create(ctx context.Context, role domain.Role) error
	Update(ctx context.Context, role domain.Role) error
	Put(ctx context.Context, role domain.Role) error
	List(ctx context.Context) ([]domain.Role, error)
}

type UserRepository interface {
	Create(ctx context.Context, user domain.User) error
	GetByID(ctx context.Context, userID string) (domain.User, error)
	GetByIdentifier(ctx context.Context, identifier string) (domain.User, error)
}

type EmployeeRepository interface {
	Put(ctx context.Context, employee domain.Employee) error
	GetByID(ctx context.Context, employeeID int64) (domain.Employee, error)
}

// UserAccessRepository returns domain.ErrNotFound when no record exists.
type UserAccessRepository interface {
	Get(ctx context.Context, userID string) (domain.UserAccess, error)
	Put(ctx context.Context, access domain.UserAccess) error
}

// CounterRepository hands out monotonically increasing ids per sequence.
type CounterRepository interface {
	Next(ctx context.Context, sequence string) (int64, error)
}

type TicketRepository interface {
	Create(ctx context.Context, ticket domain.Ticket) error
	Put(ctx context.Context, ticket domain.Ticket) error
	GetByID(ctx context.Context, ticketID int64) (domain.Ticket, error)
	List(ctx context.Context, status domain.ResolutionStatus) ([]domain.Ticket, error)
	ListStale(ctx context.Context, updatedBefore time.Time) ([]domain.Ticket, error)
	// Delete removes the ticket together with its follow-ups and reviews.
	Delete(ctx context.Context, ticketID int64) error
}

type FollowUpRepository interface {
	Create(ctx context.Context, followUp domain.FollowUp) error
	Put(ctx context.Context, followUp domain.FollowUp) error
	ListByTicket(ctx context.Context, ticketID int64) ([]domain.FollowUp, error)
}

type ReviewRepository interface {
	Create(ctx context.Context, review domain.Review) error
	ListByTicket(ctx context.Context, ticketID int64) ([]domain.Review, error)
}

type NotificationRepository interface {
	Create(ctx context.Context, notification domain.Notification) error
	ListByEmployee(ctx context.Context, employeeID int64) ([]domain.Notification, error)
	MarkRead(ctx context.Context, employeeID, notificationID int64) error
}
