package ports

import (
	"context"

	"github.com/abdirisakgelle/taskplus/internal/domain"
)

type Logger interface {
	Info(ctx context.Context, msg string, args ...any)
	Error(ctx context.Context, msg string, args ...any)
	Warn(ctx context.Context, msg string, args ...any)
	Debug(ctx context.Context, msg string, args ...any)
}

type Metrics interface {
	TicketCreated()
	TicketTransition(from, to domain.ResolutionStatus)
	FollowUpCreated(origin string)
	SideEffectFailed(kind string)
	AccessDenied(reason string)
}

// Notifier delivers notifications on a best-effort basis. Implementations
// must not block the caller.
type Notifier interface {
	Notify(ctx context.Context, notification domain.Notification)
}

type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

type TokenIssuer interface {
	Issue(userID string) (string, error)
}
