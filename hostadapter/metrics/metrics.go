// Package metrics exposes prometheus client_golang instrumentation over an
// engine.Engine's event stream: a counter per emitted event name plus
// counters of polls created, participants registered, interactions and
// outcomes determined, scraped by the serve command's /metrics endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/infimum-network/infimum/engine"
)

// Registry bundles the collectors this package registers, so callers can
// wire them into a custom prometheus.Registerer or the default one.
type Registry struct {
	EventsTotal        *prometheus.CounterVec
	PollsCreated       prometheus.Counter
	ParticipantsTotal  prometheus.Counter
	InteractionsTotal  prometheus.Counter
	OutcomesDetermined prometheus.Counter
}

// New constructs a Registry and registers its collectors against reg.
func New(reg prometheus.Registerer) *Registry {
	r := &Registry{
		EventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "infimum",
			Name:      "events_total",
			Help:      "Total engine events emitted, labeled by event name.",
		}, []string{"event"}),
		PollsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "infimum",
			Name:      "polls_created_total",
			Help:      "Total polls created.",
		}),
		ParticipantsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "infimum",
			Name:      "participants_registered_total",
			Help:      "Total participant registrations accepted across all polls.",
		}),
		InteractionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "infimum",
			Name:      "interactions_total",
			Help:      "Total interactions accepted across all polls.",
		}),
		OutcomesDetermined: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "infimum",
			Name:      "outcomes_determined_total",
			Help:      "Total polls that reached a determined outcome.",
		}),
	}

	reg.MustRegister(r.EventsTotal, r.PollsCreated, r.ParticipantsTotal, r.InteractionsTotal, r.OutcomesDetermined)
	return r
}

// Observe subscribes to e's event stream and updates the registry's
// collectors as events arrive.
func (r *Registry) Observe(e *engine.Engine) {
	e.Subscribe(func(ev engine.Event) {
		r.EventsTotal.WithLabelValues(ev.EventName()).Inc()

		switch ev.(type) {
		case engine.PollCreated:
			r.PollsCreated.Inc()
		case engine.ParticipantRegistered:
			r.ParticipantsTotal.Inc()
		case engine.PollInteraction:
			r.InteractionsTotal.Inc()
		case engine.PollOutcome:
			r.OutcomesDetermined.Inc()
		}
	})
}
