package scheduler

import (
	"context"
	"time"

	"github.com/aws/aws-xray-sdk-go/xray"
	"github.com/robfig/cron/v3"

	"github.com/abdirisakgelle/taskplus/internal/ports"
)

type StuckTicketNotifier interface {
	NotifyStuck(ctx context.Context) (int, error)
}

// Scheduler runs periodic maintenance jobs.
type Scheduler struct {
	cron    *cron.Cron
	tickets StuckTicketNotifier
	logger  ports.Logger
	timeout time.Duration
}

func New(tickets StuckTicketNotifier, logger ports.Logger) *Scheduler {
	return &Scheduler{
		cron:    cron.New(cron.WithLocation(time.UTC)),
		tickets: tickets,
		logger:  logger,
		timeout: 2 * time.Minute,
	}
}

// ScheduleStuckTickets registers the stuck-ticket sweep, e.g. "@every 30m".
func (s *Scheduler) ScheduleStuckTickets(spec string) error {
	_, err := s.cron.AddFunc(spec, func() { s.SweepStuckTickets(context.Background()) })
	return err
}

func (s *Scheduler) SweepStuckTickets(parent context.Context) {
	ctx, cancel := context.WithTimeout(parent, s.timeout)
	defer cancel()
	ctx, seg := xray.BeginSegment(ctx, "stuck-ticket-sweep")
	sent, err := s.tickets.NotifyStuck(ctx)
	seg.Close(err)
	if err != nil {
		s.logger.Error(ctx, "stuck ticket sweep failed", "error", err)
		return
	}
	s.logger.Info(ctx, "stuck ticket sweep finished", "notified", sent)
}

func (s *Scheduler) Start() { s.cron.Start() }

// Stop waits for a running job to finish or ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
}
