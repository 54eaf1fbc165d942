package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service counters on a dedicated registry.
type Metrics struct {
	Registry     *prometheus.Registry
	ToolCalls    *prometheus.CounterVec
	ResearchRuns *prometheus.CounterVec
	CacheLookups *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		ToolCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scira_tool_calls_total",
			Help: "Research agent tool invocations by tool and outcome.",
		}, []string{"tool", "outcome"}),
		ResearchRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scira_research_runs_total",
			Help: "Research runs by final status.",
		}, []string{"status"}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scira_wrapped_cache_lookups_total",
			Help: "X-Wrapped cache lookups by result.",
		}, []string{"result"}),
	}
	m.Registry.MustRegister(m.ToolCalls, m.ResearchRuns, m.CacheLookups)
	return m
}

// ObserveToolCall matches research.Engine.OnToolCall.
func (m *Metrics) ObserveToolCall(tool string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.ToolCalls.WithLabelValues(tool, outcome).Inc()
}

// ObserveCacheLookup matches wrapped.Builder.OnCacheLookup.
func (m *Metrics) ObserveCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookups.WithLabelValues(result).Inc()
}

func (m *Metrics) observeRun(err error) {
	status := "completed"
	if err != nil {
		status = "failed"
	}
	m.ResearchRuns.WithLabelValues(status).Inc()
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}
