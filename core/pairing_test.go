package core

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckPairing(t *testing.T) {
	c1 := FunctionCall{ID: "c1", Name: "consultar_vivienda"}
	c2 := FunctionCall{ID: "c2", Name: "consultar_vivienda"}

	t.Run("valid history", func(t *testing.T) {
		msgs := []Message{
			NewUserMessage("q"),
			NewFunctionCallMessage("vivienda", "", c1, c2),
			NewToolResultMessage("vivienda", c1, "r1", nil),
			NewToolResultMessage("vivienda", c2, "r2", nil),
			NewAssistantMessage("vivienda", "listo"),
		}
		assert.NoError(t, CheckClosed(msgs))
	})

	t.Run("pending at tail allowed for CheckPairing only", func(t *testing.T) {
		msgs := []Message{NewUserMessage("q"), NewFunctionCallMessage("vivienda", "", c1)}
		assert.NoError(t, CheckPairing(msgs))
		assert.Error(t, CheckClosed(msgs))
	})

	t.Run("unanswered before next assistant", func(t *testing.T) {
		msgs := []Message{
			NewFunctionCallMessage("vivienda", "", c1),
			NewAssistantMessage("vivienda", "hola"),
		}

		var pe *PairingError
		require.True(t, errors.As(CheckPairing(msgs), &pe))
		assert.Equal(t, "c1", pe.CallID)
	})

	t.Run("orphan result", func(t *testing.T) {
		msgs := []Message{NewUserMessage("q"), NewToolResultMessage("vivienda", c1, "r1", nil)}
		assert.Error(t, CheckPairing(msgs))
	})

	t.Run("answered twice", func(t *testing.T) {
		msgs := []Message{
			NewFunctionCallMessage("vivienda", "", c1),
			NewToolResultMessage("vivienda", c1, "r1", nil),
			NewToolResultMessage("vivienda", c1, "r1", nil),
		}
		assert.Error(t, CheckPairing(msgs))
	})
}

func TestPendingCalls(t *testing.T) {
	c1 := FunctionCall{ID: "c1", Name: "a"}
	c2 := FunctionCall{ID: "c2", Name: "b"}

	msgs := []Message{
		NewFunctionCallMessage("x", "", c1, c2),
		NewToolResultMessage("x", c1, "ok", nil),
	}

	assert.Equal(t, []FunctionCall{c2}, PendingCalls(msgs))
	assert.Nil(t, PendingCalls([]Message{NewUserMessage("q")}))
}

func TestMessage_IsDegenerate(t *testing.T) {
	assert.True(t, NewAssistantMessage("a", "   ").IsDegenerate())
	assert.False(t, NewAssistantMessage("a", "hola").IsDegenerate())
	assert.False(t, NewFunctionCallMessage("a", "", FunctionCall{ID: "1", Name: "t"}).IsDegenerate())
}

func TestCallBudget(t *testing.T) {
	b := NewCallBudget(2)
	require.NoError(t, b.Spend())
	require.NoError(t, b.Spend())
	assert.Equal(t, 0, b.Left())

	assert.ErrorIs(t, b.Spend(), ErrModelCallLimit)
	assert.Equal(t, 2, b.Spent())

	assert.Equal(t, -1, NewCallBudget(0).Left())
}
