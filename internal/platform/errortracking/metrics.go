package errortracking

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Event outcomes recorded by the events counter.
const (
	outcomeSent    = "sent"
	outcomeDropped = "dropped"
	outcomeFailed  = "failed"
)

// Metrics holds error tracking metrics. A nil *Metrics records nothing.
type Metrics struct {
	activeContexts prometheus.Gauge
	contextResets  prometheus.Counter
	events         *prometheus.CounterVec
}

// NewMetrics creates the metrics and registers them with reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		activeContexts: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "errortracking",
			Name:      "active_contexts",
			Help:      "Number of request contexts currently held in attribute stores.",
		}),
		contextResets: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "errortracking",
			Name:      "context_resets_total",
			Help:      "Number of request contexts replaced by a reset.",
		}),
		events: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "errortracking",
			Name:      "events_total",
			Help:      "Events handed to the client, by outcome.",
		}, []string{"outcome"}),
	}
}

func (m *Metrics) contextOpened() {
	if m != nil {
		m.activeContexts.Inc()
	}
}

func (m *Metrics) contextClosed() {
	if m != nil {
		m.activeContexts.Dec()
	}
}

func (m *Metrics) contextReset() {
	if m != nil {
		m.contextResets.Inc()
	}
}

func (m *Metrics) event(outcome string) {
	if m != nil {
		m.events.WithLabelValues(outcome).Inc()
	}
}
