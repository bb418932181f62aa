package model

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/hupe1980/coopdesk/core"
)

// ErrScriptExhausted is returned once a ScriptedModel has replayed every step.
var ErrScriptExhausted = errors.New("scripted model: no steps left")

// Step produces one scripted model output from the request it receives.
type Step func(req Request) (Response, error)

// ScriptedModel is a deterministic in-memory Model that replays a fixed
// sequence of steps, one per Generate call. It records every request it sees.
type ScriptedModel struct {
	info Info

	mu       sync.Mutex
	steps    []Step
	requests []Request
	fallback Step
}

// NewScriptedModel creates a scripted model replaying steps in order.
func NewScriptedModel(name string, steps ...Step) *ScriptedModel {
	return &ScriptedModel{
		info:  Info{Name: name, Provider: "scripted", SupportsTools: true},
		steps: steps,
	}
}

// Then appends further steps (chainable).
func (m *ScriptedModel) Then(steps ...Step) *ScriptedModel {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.steps = append(m.steps, steps...)

	return m
}

// Otherwise sets the step used once the script is exhausted (chainable).
func (m *ScriptedModel) Otherwise(step Step) *ScriptedModel {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.fallback = step

	return m
}

// Generate implements Model.
func (m *ScriptedModel) Generate(ctx context.Context, req Request) (<-chan Response, <-chan error) {
	respCh := make(chan Response, 1)
	errCh := make(chan error, 1)

	m.mu.Lock()
	m.requests = append(m.requests, req)

	var step Step

	if len(m.steps) > 0 {
		step, m.steps = m.steps[0], m.steps[1:]
	} else {
		step = m.fallback
	}
	m.mu.Unlock()

	go func() {
		defer close(respCh)
		defer close(errCh)

		if err := ctx.Err(); err != nil {
			errCh <- err
			return
		}

		if step == nil {
			errCh <- ErrScriptExhausted
			return
		}

		resp, err := step(req)
		if err != nil {
			errCh <- err
			return
		}

		respCh <- resp
	}()

	return respCh, errCh
}

// Info implements Model.
func (m *ScriptedModel) Info() Info { return m.info }

// Requests returns a copy of all requests received so far.
func (m *ScriptedModel) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]Request(nil), m.requests...)
}

// Calls returns the number of Generate invocations so far.
func (m *ScriptedModel) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.requests)
}

// Remaining returns the number of unplayed steps.
func (m *ScriptedModel) Remaining() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.steps)
}

// Reply returns a step answering with plain text.
func Reply(text string) Step {
	return func(Request) (Response, error) {
		return Response{
			Content:      core.Content{Role: core.RoleAssistant, Parts: []core.Part{core.TextPart{Text: text}}},
			FinishReason: "stop",
			Usage:        &TokenUsage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
		}, nil
	}
}

// Empty returns a step producing a degenerate output (no text, no calls).
func Empty() Step {
	return func(Request) (Response, error) {
		return Response{Content: core.Content{Role: core.RoleAssistant}, FinishReason: "stop"}, nil
	}
}

// CallTool returns a step requesting a single tool call. args is marshalled
// verbatim as the argument payload.
func CallTool(id, name, args string) Step {
	return CallTools(core.FunctionCall{ID: id, Name: name, Arguments: args})
}

// CallTools returns a step requesting several tool calls at once.
func CallTools(calls ...core.FunctionCall) Step {
	return func(Request) (Response, error) {
		parts := make([]core.Part, 0, len(calls))
		for _, c := range calls {
			parts = append(parts, core.FunctionCallPart{FunctionCall: c})
		}

		return Response{
			Content:      core.Content{Role: core.RoleAssistant, Parts: parts},
			FinishReason: "tool_calls",
			Usage:        &TokenUsage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
		}, nil
	}
}

// Fail returns a step failing with err.
func Fail(err error) Step {
	return func(Request) (Response, error) {
		return Response{}, fmt.Errorf("scripted failure: %w", err)
	}
}
