package notifier

import (
	"context"
	"fmt"
	"sync"

	"github.com/aws/aws-xray-sdk-go/xray"

	"github.com/abdirisakgelle/taskplus/internal/domain"
	"github.com/abdirisakgelle/taskplus/internal/ports"
)

const sequence = "notification"

// Dispatcher persists notifications on a background worker. Notify never
// blocks: when the buffer is full the notification is dropped and counted.
// In inline mode Notify stores the notification itself before returning.
type Dispatcher struct {
	repo     ports.NotificationRepository
	counters ports.CounterRepository
	metrics  ports.Metrics
	logger   ports.Logger

	queue chan domain.Notification
	done  chan struct{}

	mu     sync.RWMutex
	closed bool
	inline bool
}

func NewDispatcher(repo ports.NotificationRepository, counters ports.CounterRepository, metrics ports.Metrics, logger ports.Logger, buffer int) *Dispatcher {
	if buffer < 1 {
		buffer = 1
	}
	return &Dispatcher{
		repo:     repo,
		counters: counters,
		metrics:  metrics,
		logger:   logger,
		queue:    make(chan domain.Notification, buffer),
		done:     make(chan struct{}),
	}
}

func (d *Dispatcher) Start() {
	go d.run()
}

// Inline switches to synchronous delivery on the caller's context. Lambda
// uses it because the environment can freeze between invocations with work
// still queued. Call it before the first Notify and instead of Start.
func (d *Dispatcher) Inline() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.inline = true
}

func (d *Dispatcher) Notify(ctx context.Context, n domain.Notification) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.drop(ctx, n, "dispatcher closed")
		return
	}
	if d.inline {
		if err := d.deliver(ctx, n); err != nil {
			d.failed(ctx, n, err)
		}
		return
	}
	select {
	case d.queue <- n:
	default:
		d.drop(ctx, n, "queue full")
	}
}

func (d *Dispatcher) drop(ctx context.Context, n domain.Notification, reason string) {
	d.metrics.SideEffectFailed("notification")
	d.logger.Warn(ctx, "notification dropped", "reason", reason, "type", n.Type, "employee_id", n.EmployeeID, "ticket_id", n.TicketID)
}

// Close stops accepting notifications and waits until queued ones are stored
// or ctx expires.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()
	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) run() {
	defer close(d.done)
	for n := range d.queue {
		ctx, seg := xray.BeginSegment(context.Background(), "notification-dispatch")
		err := d.deliver(ctx, n)
		if err != nil {
			d.failed(ctx, n, err)
		}
		seg.Close(err)
	}
}

func (d *Dispatcher) failed(ctx context.Context, n domain.Notification, err error) {
	d.metrics.SideEffectFailed("notification")
	d.logger.Error(ctx, "notification delivery failed", "type", n.Type, "employee_id", n.EmployeeID, "error", err)
}

func (d *Dispatcher) deliver(ctx context.Context, n domain.Notification) error {
	id, err := d.counters.Next(ctx, sequence)
	if err != nil {
		return fmt.Errorf("allocate notification id: %w", err)
	}
	n.NotificationID = id
	return d.repo.Create(ctx, n)
}
