// Package metrics exposes Prometheus counters for the list service.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is the metrics surface used by sessions and workers.
type Recorder interface {
	RecordCommand(command string, err error)
	RecordEvent(kind string)
	RecordRefresh(duration time.Duration, err error)
	RecordPush(ok bool)
	SessionOpened()
	SessionClosed()
}

// Collector is the Prometheus implementation of Recorder.
type Collector struct {
	commands       *prometheus.CounterVec
	events         *prometheus.CounterVec
	refreshLatency prometheus.Histogram
	refreshFail    prometheus.Counter
	push           *prometheus.CounterVec
	sessions       prometheus.Gauge
}

// NewCollector creates a Collector and registers it with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "groceries_commands_total",
			Help: "List commands by name and outcome.",
		}, []string{"command", "outcome"}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "groceries_change_events_total",
			Help: "Change events applied to sessions, by kind.",
		}, []string{"kind"}),
		refreshLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "groceries_refresh_latency_seconds",
			Help:    "Latency of full list refreshes.",
			Buckets: prometheus.DefBuckets,
		}),
		refreshFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "groceries_refresh_fail_total",
			Help: "Failed full list refreshes.",
		}),
		push: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "groceries_push_total",
			Help: "Web push deliveries by outcome.",
		}, []string{"outcome"}),
		sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "groceries_active_sessions",
			Help: "Sessions currently open.",
		}),
	}

	reg.MustRegister(
		c.commands,
		c.events,
		c.refreshLatency,
		c.refreshFail,
		c.push,
		c.sessions,
	)
	return c
}

func outcome(ok bool) string {
	if ok {
		return "ok"
	}
	return "error"
}

// RecordCommand counts a command and whether it failed.
func (c *Collector) RecordCommand(command string, err error) {
	c.commands.WithLabelValues(command, outcome(err == nil)).Inc()
}

// RecordEvent counts an applied change event.
func (c *Collector) RecordEvent(kind string) {
	c.events.WithLabelValues(kind).Inc()
}

// RecordRefresh observes a refresh.
func (c *Collector) RecordRefresh(duration time.Duration, err error) {
	if err != nil {
		c.refreshFail.Inc()
		return
	}
	c.refreshLatency.Observe(duration.Seconds())
}

// RecordPush counts a push delivery.
func (c *Collector) RecordPush(ok bool) {
	c.push.WithLabelValues(outcome(ok)).Inc()
}

func (c *Collector) SessionOpened() { c.sessions.Inc() }
func (c *Collector) SessionClosed() { c.sessions.Dec() }

// Handler returns the scrape handler for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Nop discards everything. The terminal client uses it.
type Nop struct{}

func (Nop) RecordCommand(string, error)        {}
func (Nop) RecordEvent(string)                 {}
func (Nop) RecordRefresh(time.Duration, error) {}
func (Nop) RecordPush(bool)                    {}
func (Nop) SessionOpened()                     {}
func (Nop) SessionClosed()                     {}

var (
	_ Recorder = (*Collector)(nil)
	_ Recorder = Nop{}
)
