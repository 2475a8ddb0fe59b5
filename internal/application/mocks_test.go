package application

import (
	"context"
	"sync"
	"time"

	"github.com/abdirisakgelle/taskplus/internal/domain"
	"github.com/stretchr/testify/mock"
)

type permissionRepoMock struct{ mock.Mock }

func (m *permissionRepoMock) Put(ctx context.Context, permission domain.Permission) error {
	args := m.Called(ctx, permission)
	return args.Error(0)
}

func (m *permissionRepoMock) List(ctx context.Context) ([]domain.Permission, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Permission), args.Error(1)
}

type roleRepoMock struct{ mock.Mock }

func (m *roleRepoMock) Create(ctx context.Context, role domain.Role) error {
	args := m.Called(ctx, role)
	return args.Error(0)
}

func (m *roleRepoMock) Update(ctx context.Context, role domain.Role) error {
	args := m.Called(ctx, role)
	return args.Error(0)
}

func (m *roleRepoMock) Put(ctx context.Context, role domain.Role) error {
	args := m.Called(ctx, role)
	return args.Error(0)
}

func (m *roleRepoMock) List(ctx context.Context) ([]domain.Role, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Role), args.Error(1)
}

type userRepoMock struct{ mock.Mock }

func (m *userRepoMock) Create(ctx context.Context, user domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *userRepoMock) GetByID(ctx context.Context, userID string) (domain.User, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(domain.User), args.Error(1)
}

func (m *userRepoMock) GetByIdentifier(ctx context.Context, identifier string) (domain.User, error) {
	args := m.Called(ctx, identifier)
	return args.Get(0).(domain.User), args.Error(1)
}

type employeeRepoMock struct{ mock.Mock }

func (m *employeeRepoMock) Put(ctx context.Context, employee domain.Employee) error {
	args := m.Called(ctx, employee)
	return args.Error(0)
}

func (m *employeeRepoMock) GetByID(ctx context.Context, employeeID int64) (domain.Employee, error) {
	args := m.Called(ctx, employeeID)
	return args.Get(0).(domain.Employee), args.Error(1)
}

type accessRepoMock struct{ mock.Mock }

func (m *accessRepoMock) Get(ctx context.Context, userID string) (domain.UserAccess, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(domain.UserAccess), args.Error(1)
}

func (m *accessRepoMock) Put(ctx context.Context, access domain.UserAccess) error {
	args := m.Called(ctx, access)
	return args.Error(0)
}

type counterRepoMock struct{ mock.Mock }

func (m *counterRepoMock) Next(ctx context.Context, sequence string) (int64, error) {
	args := m.Called(ctx, sequence)
	return args.Get(0).(int64), args.Error(1)
}

type ticketRepoMock struct{ mock.Mock }

func (m *ticketRepoMock) Create(ctx context.Context, ticket domain.Ticket) error {
	args := m.Called(ctx, ticket)
	return args.Error(0)
}

func (m *ticketRepoMock) Put(ctx context.Context, ticket domain.Ticket) error {
	args := m.Called(ctx, ticket)
	return args.Error(0)
}

func (m *ticketRepoMock) GetByID(ctx context.Context, ticketID int64) (domain.Ticket, error) {
	args := m.Called(ctx, ticketID)
	return args.Get(0).(domain.Ticket), args.Error(1)
}

func (m *ticketRepoMock) List(ctx context.Context, status domain.ResolutionStatus) ([]domain.Ticket, error) {
	args := m.Called(ctx, status)
	return args.Get(0).([]domain.Ticket), args.Error(1)
}

func (m *ticketRepoMock) ListStale(ctx context.Context, updatedBefore time.Time) ([]domain.Ticket, error) {
	args := m.Called(ctx, updatedBefore)
	return args.Get(0).([]domain.Ticket), args.Error(1)
}

func (m *ticketRepoMock) Delete(ctx context.Context, ticketID int64) error {
	args := m.Called(ctx, ticketID)
	return args.Error(0)
}

type followUpRepoMock struct{ mock.Mock }

func (m *followUpRepoMock) Create(ctx context.Context, followUp domain.FollowUp) error {
	args := m.Called(ctx, followUp)
	return args.Error(0)
}

func (m *followUpRepoMock) Put(ctx context.Context, followUp domain.FollowUp) error {
	args := m.Called(ctx, followUp)
	return args.Error(0)
}

func (m *followUpRepoMock) ListByTicket(ctx context.Context, ticketID int64) ([]domain.FollowUp, error) {
	args := m.Called(ctx, ticketID)
	return args.Get(0).([]domain.FollowUp), args.Error(1)
}

type reviewRepoMock struct{ mock.Mock }

func (m *reviewRepoMock) Create(ctx context.Context, review domain.Review) error {
	args := m.Called(ctx, review)
	return args.Error(0)
}

func (m *reviewRepoMock) ListByTicket(ctx context.Context, ticketID int64) ([]domain.Review, error) {
	args := m.Called(ctx, ticketID)
	return args.Get(0).([]domain.Review), args.Error(1)
}

type notifierStub struct {
	mu   sync.Mutex
	sent []domain.Notification
}

func (n *notifierStub) Notify(_ context.Context, notification domain.Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, notification)
}

type metricsStub struct {
	transitions []string
	followUps   map[string]int
	failures    map[string]int
}

func newMetricsStub() *metricsStub {
	return &metricsStub{followUps: map[string]int{}, failures: map[string]int{}}
}

func (m *metricsStub) TicketCreated() {}
func (m *metricsStub) TicketTransition(from, to domain.ResolutionStatus) {
	m.transitions = append(m.transitions, string(from)+"->"+string(to))
}
func (m *metricsStub) FollowUpCreated(origin string) { m.followUps[origin]++ }
func (m *metricsStub) SideEffectFailed(kind string)  { m.failures[kind]++ }
func (m *metricsStub) AccessDenied(string)           {}

type mockLogger struct {
	errors []string
}

func (m *mockLogger) Info(context.Context, string, ...any) {}
func (m *mockLogger) Error(_ context.Context, msg string, _ ...any) {
	m.errors = append(m.errors, msg)
}
func (m *mockLogger) Warn(context.Context, string, ...any)  {}
func (m *mockLogger) Debug(context.Context, string, ...any) {}

type hasherStub struct{}

func (hasherStub) Hash(password string) (string, error) { return "hashed:" + password, nil }
func (hasherStub) Compare(hash, password string) error {
	if hash != "hashed:"+password {
		return domain.ErrInvalidCredentials
	}
	return nil
}

type tokenStub struct{}

func (tokenStub) Issue(userID string) (string, error) { return "token-" + userID, nil }
