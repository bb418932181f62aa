// Package metrics exposes Prometheus instrumentation for dialog turns, model
// invocations, tool executions and context compaction, plus a per-session
// token ledger.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder receives observations from the engine, turn executor and runner.
type Recorder interface {
	ObserveTurn(outcome string, d time.Duration)
	ObserveModelCall(agent, outcome string, d time.Duration)
	ObserveRetry(agent, reason string)
	ObserveTokens(agent string, prompt, completion int)
	ObserveToolCall(tool, outcome string)
	ObserveCompaction(outcome string)
	ObserveSessionLoad(d time.Duration)
}

// Nop discards all observations.
type Nop struct{}

func (Nop) ObserveTurn(string, time.Duration)              {}
func (Nop) ObserveModelCall(string, string, time.Duration) {}
func (Nop) ObserveRetry(string, string)                    {}
func (Nop) ObserveTokens(string, int, int)                 {}
func (Nop) ObserveToolCall(string, string)                 {}
func (Nop) ObserveCompaction(string)                       {}
func (Nop) ObserveSessionLoad(time.Duration)               {}

// OrNop returns r, or Nop when r is nil.
func OrNop(r Recorder) Recorder {
	if r == nil {
		return Nop{}
	}

	return r
}

// Prometheus implements Recorder with Prometheus collectors.
type Prometheus struct {
	turnsTotal          *prometheus.CounterVec
	turnDuration        prometheus.Histogram
	modelCallsTotal     *prometheus.CounterVec
	modelCallDuration   *prometheus.HistogramVec
	retriesTotal        *prometheus.CounterVec
	tokensTotal         *prometheus.CounterVec
	toolCallsTotal      *prometheus.CounterVec
	compactionsTotal    *prometheus.CounterVec
	sessionLoadDuration prometheus.Histogram
}

// NewPrometheus creates the collectors and registers them with reg.
func NewPrometheus(reg prometheus.Registerer) (*Prometheus, error) {
	p := &Prometheus{
		turnsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "coopdesk",
				Name:      "turns_total",
				Help:      "Total dialog turns by outcome.",
			},
			[]string{"outcome"},
		),
		turnDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "coopdesk",
				Name:      "turn_duration_seconds",
				Help:      "End-to-end dialog turn duration in seconds.",
				Buckets:   prometheus.DefBuckets,
			},
		),
		modelCallsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "coopdesk",
				Name:      "model_calls_total",
				Help:      "Total model invocations by agent and outcome.",
			},
			[]string{"agent", "outcome"},
		),
		modelCallDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "coopdesk",
				Name:      "model_call_duration_seconds",
				Help:      "Model invocation latency in seconds by agent.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"agent"},
		),
		retriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "coopdesk",
				Name:      "output_retries_total",
				Help:      "Re-prompts issued by output guards, by agent and reason.",
			},
			[]string{"agent", "reason"},
		),
		tokensTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "coopdesk",
				Name:      "tokens_total",
				Help:      "Model tokens consumed by agent and kind.",
			},
			[]string{"agent", "kind"},
		),
		toolCallsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "coopdesk",
				Name:      "tool_calls_total",
				Help:      "Tool executions by tool and outcome.",
			},
			[]string{"tool", "outcome"},
		),
		compactionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "coopdesk",
				Name:      "compactions_total",
				Help:      "Context compaction attempts by outcome.",
			},
			[]string{"outcome"},
		),
		sessionLoadDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "coopdesk",
				Name:      "session_load_duration_seconds",
				Help:      "Checkpoint load duration in seconds.",
				Buckets:   prometheus.DefBuckets,
			},
		),
	}

	for _, c := range []prometheus.Collector{
		p.turnsTotal, p.turnDuration, p.modelCallsTotal, p.modelCallDuration,
		p.retriesTotal, p.tokensTotal, p.toolCallsTotal, p.compactionsTotal,
		p.sessionLoadDuration,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	return p, nil
}

func (p *Prometheus) ObserveTurn(outcome string, d time.Duration) {
	p.turnsTotal.WithLabelValues(outcome).Inc()
	p.turnDuration.Observe(d.Seconds())
}

func (p *Prometheus) ObserveModelCall(agent, outcome string, d time.Duration) {
	p.modelCallsTotal.WithLabelValues(agent, outcome).Inc()
	p.modelCallDuration.WithLabelValues(agent).Observe(d.Seconds())
}

func (p *Prometheus) ObserveRetry(agent, reason string) {
	p.retriesTotal.WithLabelValues(agent, reason).Inc()
}

func (p *Prometheus) ObserveTokens(agent string, prompt, completion int) {
	p.tokensTotal.WithLabelValues(agent, "prompt").Add(float64(prompt))
	p.tokensTotal.WithLabelValues(agent, "completion").Add(float64(completion))
}

func (p *Prometheus) ObserveToolCall(tool, outcome string) {
	p.toolCallsTotal.WithLabelValues(tool, outcome).Inc()
}

func (p *Prometheus) ObserveCompaction(outcome string) {
	p.compactionsTotal.WithLabelValues(outcome).Inc()
}

func (p *Prometheus) ObserveSessionLoad(d time.Duration) {
	p.sessionLoadDuration.Observe(d.Seconds())
}
