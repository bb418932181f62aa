package compaction

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/hupe1980/coopdesk/core"
	"github.com/hupe1980/coopdesk/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func call(id, name string) core.FunctionCall {
	return core.FunctionCall{ID: id, Name: name, Arguments: `{}`}
}

// conversation builds: user, assistant(call), tool, assistant, user, assistant, user, assistant.
func conversation() []core.Message {
	c := call("c1", "consultar_vivienda")

	return []core.Message{
		core.NewUserMessage("hola, quiero información de vivienda"),
		core.NewFunctionCallMessage("vivienda", "", c),
		core.NewToolResultMessage("vivienda", c, "subsidios disponibles", nil),
		core.NewAssistantMessage("vivienda", "Hay subsidios disponibles"),
		core.NewUserMessage("mi cédula es 1234567890"),
		core.NewAssistantMessage("vivienda", "Gracias"),
		core.NewUserMessage("¿y los plazos?"),
		core.NewAssistantMessage("vivienda", "Hasta 20 años"),
	}
}

func TestEstimateTokens(t *testing.T) {
	msgs := []core.Message{core.NewUserMessage(strings.Repeat("a", 40))}
	assert.Equal(t, 10, EstimateTokens(msgs, nil))
	assert.Equal(t, 11, EstimateTokens(msgs, &core.Summary{Text: "abcd"}))
	assert.Equal(t, 0, EstimateTokens(nil, nil))
}

func TestCutIndex(t *testing.T) {
	msgs := conversation()

	tests := []struct {
		name       string
		keepRecent int
		cut        int
		ok         bool
	}{
		{name: "keep two", keepRecent: 2, cut: 6, ok: true},
		{name: "keep three", keepRecent: 3, cut: 4, ok: true},
		{name: "keep everything", keepRecent: 8, ok: false},
		{name: "keep none", keepRecent: 0, cut: 6, ok: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cut, ok := CutIndex(msgs, tt.keepRecent)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.cut, cut)
		})
	}
}

func TestCutIndex_NeverSplitsPairs(t *testing.T) {
	c := call("c9", "verify_code")
	msgs := []core.Message{
		core.NewUserMessage("uno"),
		core.NewFunctionCallMessage("certificados", "", c),
		// A user message between a call and its result is not a safe cut.
		core.NewUserMessage("dos"),
		core.NewToolResultMessage("certificados", c, "ok", nil),
		core.NewAssistantMessage("certificados", "listo"),
	}

	_, ok := CutIndex(msgs, 1)
	assert.False(t, ok)
}

func TestCompact_WithinBudgetIsNoop(t *testing.T) {
	llm := model.NewScriptedModel("sum")
	c := New(llm, func(o *Options) { o.MaxTokens = 10_000 })

	u, ok, err := c.Compact(context.Background(), core.State{Messages: conversation()})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, u.Remove)
	assert.Equal(t, 0, llm.Calls())
}

func TestCompact_FoldsPrefixIntoSummary(t *testing.T) {
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	llm := model.NewScriptedModel("sum", model.Reply("(a) vivienda (b) cédula 1234567890 (c) preguntó plazos"))
	c := New(llm, func(o *Options) {
		o.MaxTokens = 10
		o.KeepRecent = 2
		o.Now = func() time.Time { return now }
	})

	state := core.State{
		Messages: conversation(),
		Context:  &core.Summary{Text: "resumen anterior", CompactedMessages: 4, Compactions: 1},
	}

	u, ok, err := c.Compact(context.Background(), state)
	require.NoError(t, err)
	require.True(t, ok)

	assert.Len(t, u.Remove, 6)
	require.NotNil(t, u.Context)
	assert.Contains(t, u.Context.Text, "1234567890")
	assert.Equal(t, 10, u.Context.CompactedMessages)
	assert.Equal(t, 2, u.Context.Compactions)
	assert.Equal(t, now, u.Context.UpdatedAt)

	next := core.Apply(state, u)
	require.Len(t, next.Messages, 2)
	assert.Equal(t, core.RoleUser, next.Messages[0].Role())
	require.NoError(t, core.CheckPairing(next.Messages))

	req := llm.Requests()[0]
	assert.Equal(t, 512, req.MaxOutputTokens)
	prompt := core.Message{Content: req.Contents[len(req.Contents)-1]}.Text()
	assert.Contains(t, prompt, "resumen anterior")
	assert.Contains(t, prompt, "mi cédula es 1234567890")
	assert.NotContains(t, prompt, "Hasta 20 años")
	assert.Contains(t, req.Instructions, "(c)")
}

func TestCompact_TruncatesSummary(t *testing.T) {
	llm := model.NewScriptedModel("sum", model.Reply(strings.Repeat("x", 100)))
	c := New(llm, func(o *Options) {
		o.MaxTokens = 1
		o.KeepRecent = 2
		o.SummaryMaxTokens = 5
	})

	u, ok, err := c.Compact(context.Background(), core.State{Messages: conversation()})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Len(t, u.Context.Text, 20)
}

func TestCompact_NoSafeCutSkips(t *testing.T) {
	llm := model.NewScriptedModel("sum")
	c := New(llm, func(o *Options) {
		o.MaxTokens = 1
		o.KeepRecent = 10
	})

	_, ok, err := c.Compact(context.Background(), core.State{Messages: conversation()})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 0, llm.Calls())
}

func TestCompact_SummarizerFailure(t *testing.T) {
	llm := model.NewScriptedModel("sum", model.Fail(errors.New("quota")))
	c := New(llm, func(o *Options) {
		o.MaxTokens = 1
		o.KeepRecent = 2
	})

	u, ok, err := c.Compact(context.Background(), core.State{Messages: conversation()})
	require.ErrorIs(t, err, ErrSummarizer)
	assert.False(t, ok)
	assert.Nil(t, u.Context)
}

func TestCompact_EmptySummary(t *testing.T) {
	llm := model.NewScriptedModel("sum", model.Empty())
	c := New(llm, func(o *Options) {
		o.MaxTokens = 1
		o.KeepRecent = 2
	})

	_, ok, err := c.Compact(context.Background(), core.State{Messages: conversation()})
	require.ErrorIs(t, err, ErrEmptySummary)
	assert.False(t, ok)
}
