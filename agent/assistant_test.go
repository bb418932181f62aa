package agent

import (
	"errors"
	"testing"

	"github.com/hupe1980/coopdesk/core"
	"github.com/hupe1980/coopdesk/metrics"
	"github.com/hupe1980/coopdesk/model"
	"github.com/hupe1980/coopdesk/tool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lastContentText(req model.Request) string {
	c := req.Contents[len(req.Contents)-1]
	return core.Message{Content: c}.Text()
}

func TestAssistant_PlainReply(t *testing.T) {
	llm := model.NewScriptedModel("m", model.Reply("Hola, ¿en qué te ayudo?"))
	a := NewAssistant("primary", llm, func(o *Options) {
		o.Instruction = NewInstructionFromText("Eres {{.Agent}}.")
	})

	res, err := a.Invoke(newTestInvocation(core.NewUserMessage("hola")))
	require.NoError(t, err)

	assert.Equal(t, "Hola, ¿en qué te ayudo?", res.Message.Text())
	assert.Equal(t, "primary", res.Message.Author)
	assert.Equal(t, core.RoleAssistant, res.Message.Role())
	assert.Equal(t, 1, res.Attempts)
	assert.False(t, res.Failed())
	assert.Equal(t, "Eres primary.", llm.Requests()[0].Instructions)
}

func TestAssistant_DegenerateOutputRetriedWithDirective(t *testing.T) {
	llm := model.NewScriptedModel("m", model.Empty(), model.Reply("Claro"))
	a := NewAssistant("vivienda", llm)

	inv := newTestInvocation(core.NewUserMessage("quiero un crédito de vivienda"))
	res, err := a.Invoke(inv)
	require.NoError(t, err)

	assert.Equal(t, "Claro", res.Message.Text())
	assert.Equal(t, 2, res.Attempts)

	reqs := llm.Requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, "quiero un crédito de vivienda", lastContentText(reqs[0]))
	assert.Equal(t, DirectiveRealOutput, lastContentText(reqs[1]))

	// The directive never leaks into the invocation state.
	require.Len(t, inv.State.Messages, 1)
	assert.Equal(t, "quiero un crédito de vivienda", inv.State.Messages[0].Text())
}

func TestAssistant_RetriesAreBounded(t *testing.T) {
	tests := []struct {
		name       string
		maxRetries int
		calls      int
	}{
		{name: "no retries", maxRetries: 0, calls: 1},
		{name: "default", maxRetries: 1, calls: 2},
		{name: "three", maxRetries: 3, calls: 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			llm := model.NewScriptedModel("m").Otherwise(model.Empty())
			a := NewAssistant("credito", llm, func(o *Options) { o.MaxRetries = tt.maxRetries })

			res, err := a.Invoke(newTestInvocation(core.NewUserMessage("hola")))
			require.NoError(t, err)

			assert.Equal(t, tt.calls, llm.Calls())
			assert.Equal(t, tt.calls, res.Attempts)
			assert.Equal(t, DefaultApologyText, res.Message.Text())
			assert.False(t, res.Failed())
		})
	}
}

func TestAssistant_ModelErrorBecomesApology(t *testing.T) {
	boom := errors.New("timeout")
	llm := model.NewScriptedModel("m", model.Fail(boom), model.Reply("never"))
	a := NewAssistant("nominas", llm, func(o *Options) { o.MaxRetries = 3 })

	res, err := a.Invoke(newTestInvocation(core.NewUserMessage("hola")))
	require.NoError(t, err)

	assert.True(t, res.Failed())
	assert.ErrorIs(t, res.Err, boom)
	assert.Equal(t, 1, llm.Calls())
	assert.Equal(t, DefaultErrorText, res.Message.Text())
	assert.Contains(t, res.Message.Metadata[MetadataError], "timeout")
}

func TestAssistant_ForcedToolUse(t *testing.T) {
	ts := tool.MustToolset(tool.Domain(tool.NewFunctionTool("request_verification_code", "", map[string]any{"type": "object"}, nil)))

	newCert := func(llm model.Model) *Assistant {
		return NewAssistant("certificados", llm, func(o *Options) {
			o.Toolset = ts
			o.Guards = append(o.Guards, NewForcedToolUseGuard(nil))
		})
	}

	t.Run("identifier without call is retried", func(t *testing.T) {
		llm := model.NewScriptedModel("m",
			model.Reply("Un momento por favor"),
			model.CallTool("c1", "request_verification_code", `{"cedula":"1234567890"}`),
		)

		res, err := newCert(llm).Invoke(newTestInvocation(core.NewUserMessage("mi cédula es 1234567890")))
		require.NoError(t, err)

		assert.Equal(t, 2, res.Attempts)
		assert.True(t, res.Message.HasFunctionCalls())
		assert.Equal(t, DirectiveUseTool, lastContentText(llm.Requests()[1]))
	})

	t.Run("no identifier", func(t *testing.T) {
		llm := model.NewScriptedModel("m", model.Reply("¿Cuál es tu cédula?"))

		res, err := newCert(llm).Invoke(newTestInvocation(core.NewUserMessage("quiero un certificado")))
		require.NoError(t, err)
		assert.Equal(t, 1, res.Attempts)
	})

	t.Run("identifier already acted upon", func(t *testing.T) {
		call := core.FunctionCall{ID: "c1", Name: "request_verification_code", Arguments: `{"cedula":"1234567890"}`}
		history := []core.Message{
			core.NewUserMessage("1234567890"),
			core.NewFunctionCallMessage("certificados", "", call),
			core.NewToolResultMessage("certificados", call, "código enviado", nil),
		}

		llm := model.NewScriptedModel("m", model.Reply("Te envié un código"))

		res, err := newCert(llm).Invoke(newTestInvocation(history...))
		require.NoError(t, err)
		assert.Equal(t, 1, res.Attempts)
		assert.Equal(t, "Te envié un código", res.Message.Text())
	})

	t.Run("text kept after exhausting retries", func(t *testing.T) {
		llm := model.NewScriptedModel("m").Otherwise(model.Reply("Solo texto"))

		res, err := newCert(llm).Invoke(newTestInvocation(core.NewUserMessage("123456")))
		require.NoError(t, err)
		assert.Equal(t, 2, res.Attempts)
		assert.Equal(t, "Solo texto", res.Message.Text())
	})
}

func TestAssistant_TokenLedger(t *testing.T) {
	ledger := metrics.NewTokenLedger()
	llm := model.NewScriptedModel("m", model.Reply("uno"), model.Reply("dos"))
	a := NewAssistant("primary", llm, func(o *Options) { o.Ledger = ledger })

	inv := newTestInvocation(core.NewUserMessage("hola"))

	res, err := a.Invoke(inv)
	require.NoError(t, err)
	assert.Equal(t, 15, res.Usage.TotalTokens)

	_, err = a.Invoke(inv)
	require.NoError(t, err)

	totals := ledger.Get("test-session")
	assert.Equal(t, 30, totals.Total)
	assert.Equal(t, 20, totals.Prompt)
	assert.Equal(t, 2, totals.Calls)
}

func TestAssistant_InstructionErrorIsReturned(t *testing.T) {
	llm := model.NewScriptedModel("m", model.Reply("x"))
	a := NewAssistant("primary", llm, func(o *Options) {
		o.Instruction = NewInstructionFromProvider(mockProvider{err: errors.New("boom")})
	})

	_, err := a.Invoke(newTestInvocation(core.NewUserMessage("hola")))
	require.Error(t, err)
	assert.Equal(t, 0, llm.Calls())
}

func TestResult_Update(t *testing.T) {
	msg := core.NewAssistantMessage("primary", "hola")
	u := Result{Message: msg}.Update()

	require.Len(t, u.Messages, 1)
	assert.Equal(t, msg.ID, u.Messages[0].ID)
	assert.Nil(t, u.Dialog)
	assert.Nil(t, u.Context)
}
