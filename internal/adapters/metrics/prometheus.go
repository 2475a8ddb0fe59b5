package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/abdirisakgelle/taskplus/internal/domain"
)

// Prometheus implements ports.Metrics on its own registry.
type Prometheus struct {
	registry          *prometheus.Registry
	ticketsCreated    prometheus.Counter
	transitions       *prometheus.CounterVec
	followUps         *prometheus.CounterVec
	sideEffectFailure *prometheus.CounterVec
	accessDenied      *prometheus.CounterVec
}

func NewPrometheus() *Prometheus {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)
	return &Prometheus{
		registry: reg,
		ticketsCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "taskplus_tickets_created_total",
			Help: "Total number of tickets created",
		}),
		transitions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "taskplus_ticket_transitions_total",
			Help: "Resolution status transitions",
		}, []string{"from", "to"}),
		followUps: f.NewCounterVec(prometheus.CounterOpts{
			Name: "taskplus_follow_ups_created_total",
			Help: "Follow-ups created, by origin",
		}, []string{"origin"}),
		sideEffectFailure: f.NewCounterVec(prometheus.CounterOpts{
			Name: "taskplus_side_effect_failures_total",
			Help: "Best-effort side effects that failed",
		}, []string{"kind"}),
		accessDenied: f.NewCounterVec(prometheus.CounterOpts{
			Name: "taskplus_access_denied_total",
			Help: "Requests rejected by access gates",
		}, []string{"reason"}),
	}
}

func (p *Prometheus) TicketCreated() { p.ticketsCreated.Inc() }

func (p *Prometheus) TicketTransition(from, to domain.ResolutionStatus) {
	p.transitions.WithLabelValues(string(from), string(to)).Inc()
}

func (p *Prometheus) FollowUpCreated(origin string) { p.followUps.WithLabelValues(origin).Inc() }

func (p *Prometheus) SideEffectFailed(kind string) { p.sideEffectFailure.WithLabelValues(kind).Inc() }

func (p *Prometheus) AccessDenied(reason string) { p.accessDenied.WithLabelValues(reason).Inc() }

func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}
