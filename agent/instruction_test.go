package agent

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hupe1980/coopdesk/core"
	"github.com/hupe1980/coopdesk/flow"
	"github.com/hupe1980/coopdesk/logging"
)

type mockProvider struct {
	text string
	err  error
}

func (m mockProvider) Instruction(*flow.Invocation) (string, error) { return m.text, m.err }

func newTestInvocation(msgs ...core.Message) *flow.Invocation {
	return &flow.Invocation{
		Context:   context.Background(),
		SessionID: "test-session",
		Agent:     "TestAgent",
		State:     core.State{Messages: msgs},
		Now:       time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC),
		Logger:    logging.NoOpLogger{},
	}
}

func TestInstruction_Static(t *testing.T) {
	inst := NewInstructionFromText("static instruction")
	if !inst.IsStatic() {
		t.Fatalf("expected static instruction")
	}
	got, err := inst.Resolve(newTestInvocation())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "static instruction" {
		t.Fatalf("expected 'static instruction', got %q", got)
	}
}

func TestInstruction_NewInstructionFromFunc(t *testing.T) {
	inst := NewInstructionFromFunc(func(inv *flow.Invocation) (string, error) { return "dynamic for " + inv.Agent, nil })
	if inst.IsStatic() {
		t.Fatalf("expected dynamic instruction")
	}
	got, err := inst.Resolve(newTestInvocation())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "dynamic for TestAgent" {
		t.Fatalf("expected 'dynamic for TestAgent', got %q", got)
	}
}

func TestInstruction_NewInstructionFromProvider(t *testing.T) {
	inst := NewInstructionFromProvider(mockProvider{text: "provider text"})
	if inst.IsStatic() {
		t.Fatalf("expected dynamic instruction")
	}
	got, err := inst.Resolve(newTestInvocation())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "provider text" {
		t.Fatalf("expected 'provider text', got %q", got)
	}
}

func TestInstruction_ErrorPropagation(t *testing.T) {
	expectedErr := errors.New("boom")
	inst := NewInstructionFromProvider(mockProvider{err: expectedErr})
	_, err := inst.Resolve(newTestInvocation())
	if err == nil {
		t.Fatalf("expected error, got nil")
	}
	if !errors.Is(err, expectedErr) {
		t.Fatalf("expected error %v, got %v", expectedErr, err)
	}
}
