package flow

import (
	"encoding/json"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/hupe1980/coopdesk/core"
	"github.com/hupe1980/coopdesk/metrics"
	"github.com/hupe1980/coopdesk/tool"
)

// ErrToolNotFound is reported for calls naming a tool the node does not expose.
var ErrToolNotFound = errors.New("tool not found")

// ExecutionReport summarizes one batch of tool executions.
type ExecutionReport struct {
	// Results holds exactly one tool result message per call, in call order.
	Results []core.Message
	// Executed counts calls that resolved to a callable domain tool.
	Executed int
	// Failed counts executed calls that returned an error or panicked.
	Failed int
}

// SequentialExecutor executes tool calls one at a time in call order. It
// never panics: tool panics are recovered and reported as error results.
type SequentialExecutor struct {
	recorder metrics.Recorder
}

// NewSequentialExecutor constructs an executor. recorder may be nil.
func NewSequentialExecutor(recorder metrics.Recorder) *SequentialExecutor {
	return &SequentialExecutor{recorder: metrics.OrNop(recorder)}
}

// Execute runs calls against toolset and returns one result message per call.
// Calls that do not name a domain capability get an error result without
// execution. A cancelled context yields error results for the remaining calls.
func (e *SequentialExecutor) Execute(inv *Invocation, toolset *tool.Toolset, calls []core.FunctionCall) ExecutionReport {
	report := ExecutionReport{Results: make([]core.Message, 0, len(calls))}
	batchStart := time.Now()

	for _, fc := range calls {
		if err := inv.Context.Err(); err != nil {
			report.Results = append(report.Results, core.NewToolResultMessage(inv.Agent, fc, nil, err))
			continue
		}

		capb, ok := toolset.Lookup(fc.Name)
		if !ok || capb.Kind != tool.KindDomain {
			err := &tool.ToolError{Tool: fc.Name, Message: fmt.Sprintf("%s: %s", ErrToolNotFound, fc.Name), Code: tool.CodeNotFound, Err: ErrToolNotFound}
			if ok {
				err.Message = fmt.Sprintf("%s must be the only call in its message", fc.Name)
			}

			inv.Log().Warn("agent.function.unavailable", "agent", inv.Agent, "function", fc.Name, "function_call_id", fc.ID)
			e.recorder.ObserveToolCall(fc.Name, "not_found")
			report.Results = append(report.Results, core.NewToolResultMessage(inv.Agent, fc, nil, err))

			continue
		}

		report.Executed++

		toolCtx := core.NewToolContext(inv.Context, inv.SessionID, inv.Agent, fc.ID, inv.Logger, inv.Artifacts)

		start := time.Now()

		var (
			result any
			err    error
		)

		func() { // panic safety
			defer func() {
				if r := recover(); r != nil {
					err = panicError(fc.Name, r)
					inv.Log().Error("agent.function.panic", "agent", inv.Agent, "function", fc.Name, "recover", fmt.Sprint(r), "stack", string(debug.Stack()))
				}
			}()

			result, err = executeTool(capb.Tool, toolCtx, fc.Arguments)
		}()

		outcome := "ok"
		if err != nil {
			outcome = "error"
			report.Failed++
		}

		inv.Log().Info(
			"agent.function.executed",
			"agent", inv.Agent,
			"function", fc.Name,
			"duration_ms", time.Since(start).Milliseconds(),
			"error", err != nil,
		)

		e.recorder.ObserveToolCall(fc.Name, outcome)
		report.Results = append(report.Results, core.NewToolResultMessage(inv.Agent, fc, result, err))
	}

	inv.Log().Debug(
		"agent.functions.batch.complete",
		"agent", inv.Agent,
		"count", len(calls),
		"executed", report.Executed,
		"duration_ms", time.Since(batchStart).Milliseconds(),
	)

	return report
}

// panicError converts a recovered panic value to a tool error.
func panicError(name string, r any) error {
	return &tool.ToolError{Tool: name, Message: fmt.Sprintf("panic recovered: %v", r), Code: tool.CodePanic}
}

// executeTool decodes the JSON argument payload and calls impl.
func executeTool(impl tool.Tool, toolCtx *core.ToolContext, args string) (any, error) {
	argMap := map[string]any{}

	if args != "" {
		if err := json.Unmarshal([]byte(args), &argMap); err != nil {
			return nil, &tool.ToolError{Tool: impl.Name(), Message: fmt.Sprintf("failed to unmarshal args: %v", err), Code: tool.CodeValidation, Err: err}
		}
	}

	return impl.Call(toolCtx, argMap)
}
