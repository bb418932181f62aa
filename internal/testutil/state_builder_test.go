package testutil

import (
	"testing"

	"github.com/hupe1980/coopdesk/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateBuilder(t *testing.T) {
	st := NewStateBuilder().
		User("necesito un certificado").
		Delegate("certificados").
		Specialist("certificados", "¿Cuál es tu cédula?").
		Summary("resumen", 4).
		Build()

	require.Len(t, st.Messages, 4)
	assert.Equal(t, []string{"certificados"}, st.DialogStack)
	assert.Equal(t, "resumen", st.Context.Text)
	require.NoError(t, core.CheckClosed(st.Messages))

	active, ok := st.Active()
	require.True(t, ok)
	assert.Equal(t, "certificados", active)
}

func TestStateBuilder_PendingCall(t *testing.T) {
	st := NewStateBuilder().User("hola").PendingCall("primary", "to_vivienda", "{}").Build()

	assert.Error(t, core.CheckClosed(st.Messages))
	assert.NoError(t, core.CheckPairing(st.Messages))
	assert.Len(t, core.PendingCalls(st.Messages), 1)
}
