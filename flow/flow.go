// Package flow builds model requests for a dialog node and executes the tool
// calls a node's model requests.
//
// Request building is a pipeline of RequestProcessors (instructions, running
// summary, history, tools) so specialists can share or extend it. Tool calls
// are executed sequentially, in call order, by SequentialExecutor.
package flow

import (
	"context"
	"time"

	"github.com/hupe1980/coopdesk/core"
	"github.com/hupe1980/coopdesk/logging"
	"github.com/hupe1980/coopdesk/model"
	"github.com/hupe1980/coopdesk/tool"
)

// Invocation carries the per-call view of a turn handed to processors and
// executors. State is a snapshot and must not be mutated.
type Invocation struct {
	Context   context.Context
	SessionID string
	Agent     string
	State     core.State
	Now       time.Time
	Logger    logging.Logger
	Artifacts core.ArtifactStore
}

// Log returns the invocation logger, never nil.
func (inv *Invocation) Log() logging.Logger { return logging.OrNoOp(inv.Logger) }

// TemplateData exposes the values available to instruction templates.
func (inv *Invocation) TemplateData() map[string]any {
	data := map[string]any{
		"Agent":     inv.Agent,
		"SessionID": inv.SessionID,
		"Time":      inv.Now.Format("2006-01-02 15:04"),
		"Summary":   "",
	}

	if inv.State.Context != nil {
		data["Summary"] = inv.State.Context.Text
	}

	return data
}

// FlowAgent is the view of an assistant the request pipeline needs.
type FlowAgent interface {
	// Name returns the node name of the assistant.
	Name() string

	// ResolveInstructions returns the raw (untemplated) system prompt.
	ResolveInstructions(inv *Invocation) (string, error)

	// Toolset returns the capabilities exposed to the model.
	Toolset() *tool.Toolset

	// MaxHistoryMessages bounds the replayed history; 0 means unbounded.
	MaxHistoryMessages() int
}

// RequestProcessor processes the request before it is sent to the model.
type RequestProcessor interface {
	// Name returns the processor's identifier.
	Name() string
	// ProcessRequest modifies the request before model execution.
	ProcessRequest(inv *Invocation, req *model.Request, agent FlowAgent) error
}

// DefaultProcessors returns the standard pipeline.
func DefaultProcessors() []RequestProcessor {
	return []RequestProcessor{
		NewInstructionsProcessor(),
		NewSummaryProcessor(),
		NewContentsProcessor(),
		NewToolsProcessor(),
	}
}

// BuildRequest runs processors in order over an empty request.
func BuildRequest(inv *Invocation, agent FlowAgent, processors []RequestProcessor) (model.Request, error) {
	var req model.Request

	for _, p := range processors {
		if err := p.ProcessRequest(inv, &req, agent); err != nil {
			return model.Request{}, &ProcessorError{Processor: p.Name(), Err: err}
		}
	}

	return req, nil
}

// ProcessorError reports which request processor failed.
type ProcessorError struct {
	Processor string
	Err       error
}

func (e *ProcessorError) Error() string {
	return "request processor " + e.Processor + " failed: " + e.Err.Error()
}

func (e *ProcessorError) Unwrap() error { return e.Err }
