package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheus_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()

	p, err := NewPrometheus(reg)
	require.NoError(t, err)

	p.ObserveTurn("ok", 10*time.Millisecond)
	p.ObserveTurn("ok", 20*time.Millisecond)
	p.ObserveRetry("certificados", "forced_tool_use")
	p.ObserveTokens("primary", 100, 20)
	p.ObserveToolCall("verify_code", "error")

	assert.Equal(t, float64(2), testutil.ToFloat64(p.turnsTotal.WithLabelValues("ok")))
	assert.Equal(t, float64(1), testutil.ToFloat64(p.retriesTotal.WithLabelValues("certificados", "forced_tool_use")))
	assert.Equal(t, float64(100), testutil.ToFloat64(p.tokensTotal.WithLabelValues("primary", "prompt")))
	assert.Equal(t, float64(20), testutil.ToFloat64(p.tokensTotal.WithLabelValues("primary", "completion")))
	assert.Equal(t, float64(1), testutil.ToFloat64(p.toolCallsTotal.WithLabelValues("verify_code", "error")))
}

func TestNewPrometheus_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()

	_, err := NewPrometheus(reg)
	require.NoError(t, err)

	_, err = NewPrometheus(reg)
	assert.Error(t, err)
}

func TestTokenLedger(t *testing.T) {
	l := NewTokenLedger()

	l.Add("s1", 10, 5, 0)
	got := l.Add("s1", 20, 5, 30)
	l.Add("s2", 1, 1, 2)

	assert.Equal(t, TokenTotals{Prompt: 30, Completion: 10, Total: 45, Calls: 2}, got)
	assert.Equal(t, 2, l.Get("s2").Total)

	l.Forget("s1")
	assert.Zero(t, l.Get("s1"))
}
