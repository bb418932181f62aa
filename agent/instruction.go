package agent

import "github.com/hupe1980/coopdesk/flow"

// Provider supplies dynamic instruction text at runtime.
// Implementations can derive instructions from the invocation (session,
// active specialist, running summary).
type Provider interface {
	Instruction(*flow.Invocation) (string, error)
}

// Func is a functional adapter to allow ordinary functions to be used as Providers.
type Func func(*flow.Invocation) (string, error)

// Instruction implements Provider.
func (f Func) Instruction(inv *flow.Invocation) (string, error) { return f(inv) }

// Instruction represents either a static instruction string or a dynamic provider.
// The resolved text is rendered as a template afterwards, so static text may
// reference {{.Time}}, {{.Agent}} or {{.Summary}}.
type Instruction struct {
	text     string
	provider Provider
}

// NewInstructionFromText creates an Instruction from a static string.
func NewInstructionFromText(text string) Instruction { return Instruction{text: text} }

// NewInstructionFromProvider creates an Instruction from a dynamic provider.
func NewInstructionFromProvider(p Provider) Instruction { return Instruction{provider: p} }

// NewInstructionFromFunc creates an Instruction from a function.
func NewInstructionFromFunc(f func(*flow.Invocation) (string, error)) Instruction {
	return Instruction{provider: Func(f)}
}

// IsStatic returns true if the instruction is backed by a static string.
func (i Instruction) IsStatic() bool { return i.provider == nil }

// Resolve returns the instruction text, invoking the provider if needed.
func (i Instruction) Resolve(inv *flow.Invocation) (string, error) {
	if i.provider != nil {
		return i.provider.Instruction(inv)
	}

	return i.text, nil
}
