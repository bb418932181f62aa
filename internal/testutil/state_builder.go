package testutil

import (
	"fmt"

	"github.com/hupe1980/coopdesk/core"
)

// StateBuilder provides a fluent helper for constructing conversation states.
// Example:
//
//	st := testutil.NewStateBuilder().
//		User("necesito un certificado").
//		Delegate("certificados").
//		Specialist("certificados", "¿Cuál es tu cédula?").
//		Build()
//
// Tool call IDs are generated as call-1, call-2, ... in order.
type StateBuilder struct {
	msgs    []core.Message
	stack   []string
	summary *core.Summary
	calls   int
}

// NewStateBuilder creates an empty builder.
func NewStateBuilder() *StateBuilder { return &StateBuilder{} }

// User appends a user message (chainable).
func (b *StateBuilder) User(text string) *StateBuilder {
	b.msgs = append(b.msgs, core.NewUserMessage(text))
	return b
}

// Assistant appends a text message authored by author (chainable).
func (b *StateBuilder) Assistant(author, text string) *StateBuilder {
	b.msgs = append(b.msgs, core.NewAssistantMessage(author, text))
	return b
}

// Specialist appends a text message of specialist (chainable). The specialist
// must already be active.
func (b *StateBuilder) Specialist(specialist, text string) *StateBuilder {
	return b.Assistant(specialist, text)
}

// ToolRound appends a call of name by author with args and its answered
// result (chainable).
func (b *StateBuilder) ToolRound(author, name, args string, result any) *StateBuilder {
	call := b.nextCall(name, args)

	b.msgs = append(b.msgs,
		core.NewFunctionCallMessage(author, "", call),
		core.NewToolResultMessage(author, call, result, nil),
	)

	return b
}

// PendingCall appends an unanswered call of name by author (chainable). The
// resulting state is not closed.
func (b *StateBuilder) PendingCall(author, name, args string) *StateBuilder {
	b.msgs = append(b.msgs, core.NewFunctionCallMessage(author, "", b.nextCall(name, args)))
	return b
}

// Delegate records a completed hand-off from the primary to specialist and
// pushes it on the dialog stack (chainable).
func (b *StateBuilder) Delegate(specialist string) *StateBuilder {
	b.ToolRound("primary", "to_"+specialist, `{"request":"consulta"}`, "handoff:"+specialist)
	b.stack = append(b.stack, specialist)

	return b
}

// Summary sets the compaction summary (chainable).
func (b *StateBuilder) Summary(text string, compacted int) *StateBuilder {
	b.summary = &core.Summary{Text: text, CompactedMessages: compacted, Compactions: 1}
	return b
}

// Padding appends n user/assistant exchanges of the given text (chainable).
func (b *StateBuilder) Padding(n int, text string) *StateBuilder {
	for i := range n {
		b.User(fmt.Sprintf("%s %d", text, i))
		b.Assistant("primary", fmt.Sprintf("respuesta %d: %s", i, text))
	}

	return b
}

// Build returns the accumulated state.
func (b *StateBuilder) Build() core.State {
	st := core.State{
		Messages:    append([]core.Message(nil), b.msgs...),
		DialogStack: append([]string(nil), b.stack...),
	}

	if b.summary != nil {
		sum := *b.summary
		st.Context = &sum
	}

	return st
}

func (b *StateBuilder) nextCall(name, args string) core.FunctionCall {
	b.calls++
	return core.FunctionCall{ID: fmt.Sprintf("call-%d", b.calls), Name: name, Arguments: args}
}
