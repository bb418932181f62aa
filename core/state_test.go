package core

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -------------------- Message Merge Tests --------------------

func TestMergeMessages_AppendsNewIDs(t *testing.T) {
	a := NewUserMessage("hola")
	b := NewAssistantMessage("primary", "buenos días")

	out := MergeMessages(nil, []Message{a, b})

	require.Len(t, out, 2)
	assert.Equal(t, a.ID, out[0].ID)
	assert.Equal(t, b.ID, out[1].ID)
}

func TestMergeMessages_ReplacesInPlace(t *testing.T) {
	a := NewUserMessage("uno")
	b := NewAssistantMessage("primary", "dos")
	c := NewUserMessage("tres")

	replacement := b
	replacement.Content = Content{Role: RoleAssistant, Parts: []Part{TextPart{Text: "dos bis"}}}

	out := MergeMessages([]Message{a, b, c}, []Message{replacement})

	require.Len(t, out, 3)
	assert.Equal(t, "dos bis", out[1].Text())
	assert.Equal(t, c.ID, out[2].ID)
}

func TestApply_IsIdempotentForMessages(t *testing.T) {
	u := Update{Messages: []Message{NewUserMessage("hola"), NewAssistantMessage("primary", "hola!")}}

	once := Apply(State{}, u)
	twice := Apply(once, u)

	assert.Equal(t, once.Messages, twice.Messages)
}

func TestApply_IsIdempotentForMessagesWithoutID(t *testing.T) {
	anon := NewAssistantMessage("primary", "hola!")
	anon.ID = ""

	u := Update{Messages: []Message{NewUserMessage("hola"), anon}}

	once := Apply(State{}, u)
	twice := Apply(once, u)

	require.Len(t, once.Messages, 2)
	assert.NotEmpty(t, once.Messages[1].ID)
	assert.Equal(t, once.Messages, twice.Messages)
	assert.Empty(t, u.Messages[1].ID)
}

func TestApply_DoesNotMutateInput(t *testing.T) {
	base := State{Messages: []Message{NewUserMessage("a")}, DialogStack: []string{"vivienda"}}

	_ = Apply(base, Update{Messages: []Message{NewUserMessage("b")}, Dialog: Pop()})

	assert.Len(t, base.Messages, 1)
	assert.Equal(t, []string{"vivienda"}, base.DialogStack)
}

func TestApply_RemoveRunsBeforeMerge(t *testing.T) {
	a := NewUserMessage("a")
	b := NewUserMessage("b")
	c := NewUserMessage("c")

	out := Apply(State{Messages: []Message{a, b}}, Update{Remove: []string{a.ID}, Messages: []Message{c}})

	require.Len(t, out.Messages, 2)
	assert.Equal(t, b.ID, out.Messages[0].ID)
	assert.Equal(t, c.ID, out.Messages[1].ID)
}

// -------------------- Dialog Stack Tests --------------------

func TestUpdateDialogStack(t *testing.T) {
	tests := []struct {
		name  string
		stack []string
		op    *string
		want  []string
	}{
		{name: "nil is no-op", stack: []string{"nominas"}, op: nil, want: []string{"nominas"}},
		{name: "push", stack: []string{"nominas"}, op: Push("vivienda"), want: []string{"nominas", "vivienda"}},
		{name: "pop", stack: []string{"nominas", "vivienda"}, op: Pop(), want: []string{"nominas"}},
		{name: "pop empty", stack: nil, op: Pop(), want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := UpdateDialogStack(append([]string(nil), tt.stack...), tt.op)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestApply_StackNeverNegative(t *testing.T) {
	s := State{}
	for i := 0; i < 5; i++ {
		s = Apply(s, Update{Dialog: Pop()})
	}

	assert.Empty(t, s.DialogStack)

	s = Apply(s, Update{Dialog: Push("certificados")})
	active, ok := s.Active()
	require.True(t, ok)
	assert.Equal(t, "certificados", active)
}

func TestApply_ReplacesContext(t *testing.T) {
	s := Apply(State{}, Update{Context: &Summary{Text: "resumen", Compactions: 1}})
	require.NotNil(t, s.Context)
	assert.Equal(t, "resumen", s.Context.Text)

	s2 := Apply(s, Update{})
	assert.Equal(t, "resumen", s2.Context.Text)
}

// -------------------- Serialization Tests --------------------

func TestState_JSONPreservesPartTypes(t *testing.T) {
	call := FunctionCall{ID: "call-1", Name: "to_certificados", Arguments: `{"request":"certificado"}`}
	s := State{
		Messages: []Message{
			NewUserMessage("necesito un certificado"),
			NewFunctionCallMessage("primary", "", call),
			NewToolResultMessage("primary", call, "ok", nil),
		},
		DialogStack: []string{"certificados"},
	}

	data, err := json.Marshal(s)
	require.NoError(t, err)

	var decoded State
	require.NoError(t, json.Unmarshal(data, &decoded))

	require.Len(t, decoded.Messages, 3)
	assert.Equal(t, []FunctionCall{call}, decoded.Messages[1].FunctionCalls())
	resp := decoded.Messages[2].FunctionResponses()
	require.Len(t, resp, 1)
	assert.Equal(t, "call-1", resp[0].ID)
	assert.Equal(t, "ok", resp[0].Response)
	assert.Equal(t, []string{"certificados"}, decoded.DialogStack)
}

func TestContent_UnmarshalRejectsUnknownPart(t *testing.T) {
	var c Content
	err := json.Unmarshal([]byte(`{"role":"assistant","parts":[{"type":"image"}]}`), &c)
	assert.Error(t, err)
}
