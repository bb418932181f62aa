package agent

import (
	"fmt"
	"time"

	"github.com/hupe1980/coopdesk/core"
	"github.com/hupe1980/coopdesk/flow"
	"github.com/hupe1980/coopdesk/logging"
	"github.com/hupe1980/coopdesk/metrics"
	"github.com/hupe1980/coopdesk/model"
	"github.com/hupe1980/coopdesk/tool"
)

const (
	// DefaultApologyText replaces an output that stayed degenerate after all retries.
	DefaultApologyText = "Lo siento, no pude procesar tu solicitud en este momento. ¿Podrías repetirla con otras palabras?"
	// DefaultErrorText replaces the output of a failed model call.
	DefaultErrorText = "Lo siento, tuve un problema técnico al procesar tu mensaje. Por favor intenta de nuevo en unos minutos."
)

// MetadataError is the Message.Metadata key holding the error behind an apology.
const MetadataError = "error"

// Options configures an Assistant instance.
//
// Use functional options with NewAssistant to override defaults.
type Options struct {
	Instruction        Instruction
	Toolset            *tool.Toolset
	Guards             []Guard
	MaxRetries         int
	MaxHistoryMessages int
	Processors         []flow.RequestProcessor
	Logger             logging.Logger
	Recorder           metrics.Recorder
	Ledger             *metrics.TokenLedger
	ApologyText        string
	ErrorText          string
}

// Assistant is the turn executor of one dialog node: it builds a request from
// the conversation, calls its model and retries outputs rejected by a guard.
//
// An Assistant holds no per-session state and is safe for concurrent use.
type Assistant struct {
	name               string
	llm                model.Model
	instruction        Instruction
	toolset            *tool.Toolset
	guards             []Guard
	maxRetries         int
	maxHistoryMessages int
	processors         []flow.RequestProcessor
	logger             logging.Logger
	recorder           metrics.Recorder
	ledger             *metrics.TokenLedger
	apologyText        string
	errorText          string
}

// NewAssistant creates an assistant with sensible defaults.
//
// Defaults: one retry, the degenerate output guard, the default request
// pipeline, no history bound and an empty toolset.
func NewAssistant(name string, llm model.Model, optFns ...func(o *Options)) *Assistant {
	opts := Options{
		Instruction: NewInstructionFromText(fmt.Sprintf("Eres %s, un asistente de la cooperativa.", name)),
		Guards:      []Guard{DegenerateOutputGuard{}},
		MaxRetries:  1,
		Processors:  flow.DefaultProcessors(),
		ApologyText: DefaultApologyText,
		ErrorText:   DefaultErrorText,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}

	if opts.Toolset == nil {
		opts.Toolset = tool.MustToolset()
	}

	return &Assistant{
		name:               name,
		llm:                llm,
		instruction:        opts.Instruction,
		toolset:            opts.Toolset,
		guards:             opts.Guards,
		maxRetries:         opts.MaxRetries,
		maxHistoryMessages: opts.MaxHistoryMessages,
		processors:         opts.Processors,
		logger:             logging.OrNoOp(opts.Logger),
		recorder:           metrics.OrNop(opts.Recorder),
		ledger:             opts.Ledger,
		apologyText:        opts.ApologyText,
		errorText:          opts.ErrorText,
	}
}

// Name returns the node name of the assistant.
func (a *Assistant) Name() string { return a.name }

// Model returns the language model backing the assistant.
func (a *Assistant) Model() model.Model { return a.llm }

// Toolset returns the capabilities exposed to the model.
func (a *Assistant) Toolset() *tool.Toolset { return a.toolset }

// MaxHistoryMessages returns the history bound; 0 means unbounded.
func (a *Assistant) MaxHistoryMessages() int { return a.maxHistoryMessages }

// ResolveInstructions returns the raw system prompt.
func (a *Assistant) ResolveInstructions(inv *flow.Invocation) (string, error) {
	return a.instruction.Resolve(inv)
}

// Result is the outcome of one Invoke.
type Result struct {
	// Message is the accepted assistant output, or an apology.
	Message core.Message
	// Attempts counts model invocations, including the failed one if any.
	Attempts int
	// Usage sums the token usage reported over all attempts.
	Usage model.TokenUsage
	// Err is the model error absorbed into an apology.
	Err error
}

// Failed reports whether the model call failed and Message is an apology.
func (r Result) Failed() bool { return r.Err != nil }

// Update returns the partial state update carrying the output.
func (r Result) Update() core.Update {
	return core.Update{Messages: []core.Message{r.Message}}
}

// awaitingOutput is the retry loop state: the assistant is waiting for an
// acceptable output and has already retried attempt times.
type awaitingOutput struct {
	attempt int
}

// Invoke runs the assistant over inv.State and returns its output.
//
// Guards are consulted in order after every model call; the first one that
// rejects the output appends its directive to a private copy of the history
// and the model is called again, at most MaxRetries times. The invocation
// state is never modified. A model failure is not retried: it yields an
// apology carrying the error in its metadata.
//
// The returned error is reserved for request construction failures.
func (a *Assistant) Invoke(inv *flow.Invocation) (Result, error) {
	var (
		res     Result
		history = inv.State.Messages
		state   = awaitingOutput{}
	)

	for {
		view := *inv
		view.Agent = a.name
		view.State.Messages = history

		req, err := flow.BuildRequest(&view, a, a.processors)
		if err != nil {
			return Result{}, fmt.Errorf("agent %s: %w", a.name, err)
		}

		start := time.Now()
		resp, err := model.Generate(inv.Context, a.llm, req)
		res.Attempts++

		if err != nil {
			a.recorder.ObserveModelCall(a.name, "error", time.Since(start))
			a.logger.Error(
				"agent.invoke.model_error",
				"agent", a.name,
				"model", a.llm.Info().Name,
				"session", inv.SessionID,
				"attempt", state.attempt,
				"error", err,
			)

			res.Err = err
			res.Message = a.apology(inv, a.errorText)
			res.Message.Metadata = map[string]string{MetadataError: err.Error()}

			return res, nil
		}

		a.recorder.ObserveModelCall(a.name, "ok", time.Since(start))
		a.recordUsage(inv, resp.Usage, &res.Usage)

		out := a.output(inv, resp)

		guard, directive, retry := a.check(inv.State.Messages, out)
		if !retry {
			res.Message = out
			break
		}

		if state.attempt >= a.maxRetries {
			a.logger.Warn("agent.invoke.retries_exhausted", "agent", a.name, "guard", guard, "attempts", res.Attempts)

			if out.IsDegenerate() {
				out = a.apology(inv, a.apologyText)
			}

			res.Message = out

			break
		}

		a.logger.Info("agent.invoke.retry", "agent", a.name, "guard", guard, "attempt", state.attempt+1)
		a.recorder.ObserveRetry(a.name, guard)

		history = append(history[:len(history):len(history)], core.NewUserMessage(directive))
		state = awaitingOutput{attempt: state.attempt + 1}
	}

	a.logOutput(inv, res)

	return res, nil
}

func (a *Assistant) check(history []core.Message, out core.Message) (string, string, bool) {
	for _, g := range a.guards {
		if directive, retry := g.Check(history, out); retry {
			return g.Name(), directive, true
		}
	}

	return "", "", false
}

func (a *Assistant) output(inv *flow.Invocation, resp model.Response) core.Message {
	content := resp.Content
	content.Role = core.RoleAssistant

	return core.Message{
		ID:        core.NewID(),
		Author:    a.name,
		Content:   content,
		Timestamp: a.now(inv),
	}
}

func (a *Assistant) apology(inv *flow.Invocation, text string) core.Message {
	msg := core.NewAssistantMessage(a.name, text)
	msg.Timestamp = a.now(inv)

	return msg
}

func (a *Assistant) now(inv *flow.Invocation) time.Time {
	if inv.Now.IsZero() {
		return time.Now().UTC()
	}

	return inv.Now
}

func (a *Assistant) recordUsage(inv *flow.Invocation, usage *model.TokenUsage, sum *model.TokenUsage) {
	if usage == nil {
		return
	}

	sum.PromptTokens += usage.PromptTokens
	sum.CompletionTokens += usage.CompletionTokens
	sum.TotalTokens += usage.TotalTokens

	a.recorder.ObserveTokens(a.name, usage.PromptTokens, usage.CompletionTokens)

	keyvals := []any{
		"agent", a.name,
		"session", inv.SessionID,
		"prompt", usage.PromptTokens,
		"completion", usage.CompletionTokens,
		"total", usage.TotalTokens,
	}

	if a.ledger != nil {
		totals := a.ledger.Add(inv.SessionID, usage.PromptTokens, usage.CompletionTokens, usage.TotalTokens)
		keyvals = append(keyvals, "session_total", totals.Total, "session_calls", totals.Calls)
	}

	a.logger.Info("agent.tokens", keyvals...)
}

func (a *Assistant) logOutput(inv *flow.Invocation, res Result) {
	calls := res.Message.FunctionCalls()
	if len(calls) == 0 {
		a.logger.Info("agent.invoke.text", "agent", a.name, "session", inv.SessionID, "attempts", res.Attempts)
		return
	}

	for _, c := range calls {
		a.logger.Info(
			"agent.invoke.tool_call",
			"agent", a.name,
			"session", inv.SessionID,
			"function", c.Name,
			"function_call_id", c.ID,
			"attempts", res.Attempts,
		)
	}
}
