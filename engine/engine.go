package engine

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/hupe1980/coopdesk/agent"
	"github.com/hupe1980/coopdesk/core"
	"github.com/hupe1980/coopdesk/flow"
	"github.com/hupe1980/coopdesk/logging"
	"github.com/hupe1980/coopdesk/metrics"
	"github.com/hupe1980/coopdesk/tool"
)

// Node names. Specialist nodes are named after the specialist; see EnterNode
// and ToolsNode for the derived names.
const (
	NodeStart      = "__start__"
	NodeEnd        = "__end__"
	NodePrimary    = "primary"
	NodeLeaveSkill = "leave_skill"
)

// EnterNode returns the name of the node that hands control to specialist.
func EnterNode(specialist string) string { return "enter_" + specialist }

// ToolsNode returns the name of the node executing specialist's tool calls.
func ToolsNode(specialist string) string { return specialist + "_tools" }

// ErrUnknownSpecialist is returned by New when a delegation targets a
// specialist that was not registered.
var ErrUnknownSpecialist = errors.New("unknown specialist")

// errNotExecuted answers calls that were superseded by a routing decision.
var errNotExecuted = errors.New("not executed: control was transferred before this call ran")

// Compactor shrinks the history before routing. compaction.Compactor
// implements it.
type Compactor interface {
	Compact(ctx context.Context, state core.State) (core.Update, bool, error)
}

const (
	// DefaultResumeText answers the escalation call when a specialist hands back control.
	DefaultResumeText = "Resuming dialog with the host assistant. Please reflect on the past conversation and assist the user as needed."
	// DefaultApologyText closes turns that could not be completed.
	DefaultApologyText = "Lo siento, no pude completar tu solicitud. ¿Podrías intentarlo de nuevo o reformularla?"
)

// DefaultHandoffText answers the delegation call that enters specialist.
func DefaultHandoffText(specialist string) string {
	return fmt.Sprintf("The assistant is now the %s specialist. Reflect on the conversation above: the user's intent is not yet satisfied. "+
		"Use the provided tools to help the user; the task is not complete until the appropriate tool has been invoked successfully. "+
		"If the user changes their mind or needs help with something else, call %s so the host assistant can take over. "+
		"Do not mention who you are, just act on behalf of the assistant.", specialist, tool.EscalationName)
}

// Options configures an Engine.
type Options struct {
	// MaxModelCalls bounds specialist and primary invocations per turn. 0 is unbounded.
	MaxModelCalls int
	Compactor     Compactor
	Executor      *flow.SequentialExecutor
	Hooks         Hooks
	Artifacts     core.ArtifactStore
	Logger        logging.Logger
	Recorder      metrics.Recorder
	HandoffText   func(specialist string) string
	ResumeText    string
	ApologyText   string
	Now           func() time.Time
}

// Engine drives one conversation turn through the delegation state machine:
//
//	start -> primary | <S>
//	primary -> enter_<S> | end
//	enter_<S> -> <S>
//	<S> -> <S>_tools | leave_skill | end
//	<S>_tools -> <S> | end
//	leave_skill -> primary
//
// A session with an active specialist resumes directly at that specialist.
// Every node returns a core.Update which is merged with core.Apply.
//
// The Engine keeps no per-session state and is safe for concurrent use;
// callers must serialize turns of the same session.
type Engine struct {
	primary     *agent.Assistant
	specialists map[string]*agent.Assistant
	opts        Options
	executor    *flow.SequentialExecutor
	logger      logging.Logger
	recorder    metrics.Recorder
}

// New creates an engine. Every delegation target of the primary toolset must
// be one of specialists.
func New(primary *agent.Assistant, specialists []*agent.Assistant, optFns ...func(o *Options)) (*Engine, error) {
	opts := Options{
		MaxModelCalls: 12,
		HandoffText:   DefaultHandoffText,
		ResumeText:    DefaultResumeText,
		ApologyText:   DefaultApologyText,
		Now:           func() time.Time { return time.Now().UTC() },
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if primary == nil {
		return nil, errors.New("engine: primary assistant is required")
	}

	e := &Engine{
		primary:     primary,
		specialists: make(map[string]*agent.Assistant, len(specialists)),
		opts:        opts,
		logger:      logging.OrNoOp(opts.Logger),
		recorder:    metrics.OrNop(opts.Recorder),
	}

	e.executor = opts.Executor
	if e.executor == nil {
		e.executor = flow.NewSequentialExecutor(e.recorder)
	}

	for _, s := range specialists {
		if s.Name() == NodePrimary || s.Name() == NodeLeaveSkill {
			return nil, fmt.Errorf("engine: specialist name %q is reserved", s.Name())
		}

		if _, dup := e.specialists[s.Name()]; dup {
			return nil, fmt.Errorf("engine: duplicate specialist %q", s.Name())
		}

		e.specialists[s.Name()] = s
	}

	for _, target := range primary.Toolset().Targets() {
		if _, ok := e.specialists[target]; !ok {
			return nil, fmt.Errorf("engine: %w %q", ErrUnknownSpecialist, target)
		}
	}

	return e, nil
}

// Specialists returns the registered specialist names, sorted.
func (e *Engine) Specialists() []string {
	return slices.Sorted(maps.Keys(e.specialists))
}

// TurnResult describes a completed turn.
type TurnResult struct {
	// Reply is the text of the final assistant message.
	Reply string
	// Path lists the nodes visited, in order, without start and end.
	Path []string
	// ModelCalls counts model invocations including retries.
	ModelCalls int
	// Active is the specialist left on top of the dialog stack, if any.
	Active string
	// Compacted reports whether the history was compacted at the start.
	Compacted bool
}

// turn is the mutable bookkeeping of one RunTurn.
type turn struct {
	ctx       context.Context
	sessionID string
	state     core.State
	budget    *core.CallBudget
	result    TurnResult
}

// RunTurn appends userText to state and runs the state machine until the
// turn ends. The returned state always ends with an assistant text message
// and satisfies core.CheckClosed. The input state is not modified.
//
// The returned error is reserved for failures that leave no valid state,
// such as a request that cannot be built.
func (e *Engine) RunTurn(ctx context.Context, sessionID string, state core.State, userText string) (core.State, TurnResult, error) {
	t := &turn{
		ctx:       ctx,
		sessionID: sessionID,
		state:     state.Clone(),
		budget:    core.NewCallBudget(e.opts.MaxModelCalls),
	}

	t.state = core.Apply(t.state, core.Update{Messages: e.interrupted(t.state)})
	t.state = core.Apply(t.state, core.Update{Messages: []core.Message{core.NewUserMessage(userText)}})

	node := NodeStart

	for node != NodeEnd {
		if node != NodeStart {
			t.result.Path = append(t.result.Path, node)
		}

		e.opts.Hooks.nodeEnter(ctx, node, t.state)

		update, next, err := e.step(t, node)
		if err != nil {
			e.logger.Error("engine.node.error", "session", sessionID, "node", node, "error", err)
			return state, t.result, fmt.Errorf("engine: node %s: %w", node, err)
		}

		t.state = core.Apply(t.state, update)

		e.opts.Hooks.nodeLeave(ctx, node, update, next)

		node = next
	}

	if last, ok := core.LastAssistant(t.state.Messages); ok {
		t.result.Reply = last.Text()
	}

	t.result.Active, _ = t.state.Active()

	return t.state, t.result, nil
}

func (e *Engine) step(t *turn, node string) (core.Update, string, error) {
	switch {
	case node == NodeStart:
		return e.start(t)
	case node == NodePrimary:
		return e.runPrimary(t)
	case node == NodeLeaveSkill:
		return e.leaveSkill(t)
	case strings.HasPrefix(node, "enter_"):
		return e.enter(t, strings.TrimPrefix(node, "enter_"))
	case strings.HasSuffix(node, "_tools"):
		if s, ok := e.specialists[strings.TrimSuffix(node, "_tools")]; ok {
			return e.runTools(t, s)
		}
	}

	if s, ok := e.specialists[node]; ok {
		return e.runSpecialist(t, s)
	}

	return core.Update{}, "", fmt.Errorf("%w: node %q", ErrUnknownSpecialist, node)
}

// start compacts the history and resumes the active specialist, if any.
func (e *Engine) start(t *turn) (core.Update, string, error) {
	var update core.Update

	if e.opts.Compactor != nil {
		u, ok, err := e.opts.Compactor.Compact(t.ctx, t.state)
		if err != nil {
			e.logger.Warn("engine.compaction.failed", "session", t.sessionID, "error", err)
		} else if ok {
			update = u
			t.result.Compacted = true
		}
	}

	active, ok := t.state.Active()
	if !ok {
		return update, NodePrimary, nil
	}

	if _, known := e.specialists[active]; !known {
		e.logger.Warn("engine.stack.unknown_specialist", "session", t.sessionID, "specialist", active)
		update.Dialog = core.Pop()

		return update, NodePrimary, nil
	}

	return update, active, nil
}

func (e *Engine) runPrimary(t *turn) (core.Update, string, error) {
	res, update, done, err := e.invoke(t, e.primary)
	if err != nil || done {
		return update, NodeEnd, err
	}

	route := e.primary.Toolset().Classify(res.Message)

	switch route.Kind {
	case tool.RouteNone:
		return update, NodeEnd, nil
	case tool.RouteDelegate:
		return update, EnterNode(route.Target), nil
	default:
		e.logger.Warn("engine.primary.unroutable", "session", t.sessionID, "calls", callNames(route.Calls))

		for _, c := range route.Calls {
			err := &tool.ToolError{Tool: c.Name, Message: fmt.Sprintf("%s: %s", flow.ErrToolNotFound, c.Name), Code: tool.CodeNotFound, Err: flow.ErrToolNotFound}
			update.Messages = append(update.Messages, e.answer(t, NodePrimary, c, nil, err))
		}

		update.Messages = append(update.Messages, e.apology(NodePrimary))

		return update, NodeEnd, nil
	}
}

// enter answers every pending call: the first delegation to specialist gets
// the hand-off text, the others are reported as not executed.
func (e *Engine) enter(t *turn, specialist string) (core.Update, string, error) {
	if _, ok := e.specialists[specialist]; !ok {
		return core.Update{}, "", fmt.Errorf("%w %q", ErrUnknownSpecialist, specialist)
	}

	node := EnterNode(specialist)
	update := core.Update{Dialog: core.Push(specialist)}
	handedOff := false

	for _, c := range core.PendingCalls(t.state.Messages) {
		capb, ok := e.primary.Toolset().Lookup(c.Name)
		if !handedOff && ok && capb.Kind == tool.KindDelegation && capb.Target == specialist {
			update.Messages = append(update.Messages, e.answer(t, node, c, e.opts.HandoffText(specialist), nil))
			handedOff = true

			continue
		}

		update.Messages = append(update.Messages, e.answer(t, node, c, nil, errNotExecuted))
	}

	e.logger.Info("engine.specialist.enter", "session", t.sessionID, "specialist", specialist)

	return update, specialist, nil
}

func (e *Engine) runSpecialist(t *turn, s *agent.Assistant) (core.Update, string, error) {
	res, update, done, err := e.invoke(t, s)
	if err != nil || done {
		return update, NodeEnd, err
	}

	switch route := s.Toolset().Classify(res.Message); route.Kind {
	case tool.RouteNone:
		return update, NodeEnd, nil
	case tool.RouteEscalate:
		return update, NodeLeaveSkill, nil
	default:
		return update, ToolsNode(s.Name()), nil
	}
}

// runTools executes the pending calls of the specialist's last output.
func (e *Engine) runTools(t *turn, s *agent.Assistant) (core.Update, string, error) {
	node := ToolsNode(s.Name())
	calls := core.PendingCalls(t.state.Messages)

	report := e.executor.Execute(e.invocation(t, s.Name()), s.Toolset(), calls)

	for i, c := range calls {
		e.opts.Hooks.toolCall(t.ctx, node, c, report.Results[i])
	}

	update := core.Update{Messages: report.Results}

	if report.Executed == 0 {
		e.logger.Warn("engine.tools.none_executable", "session", t.sessionID, "specialist", s.Name(), "calls", callNames(calls))
		update.Messages = append(update.Messages, e.apology(node))

		return update, NodeEnd, nil
	}

	return update, s.Name(), nil
}

// leaveSkill answers the pending calls, pops the specialist and returns to
// the primary assistant.
func (e *Engine) leaveSkill(t *turn) (core.Update, string, error) {
	active, _ := t.state.Active()
	update := core.Update{Dialog: core.Pop()}
	resumed := false

	for _, c := range core.PendingCalls(t.state.Messages) {
		if !resumed && c.Name == tool.EscalationName {
			update.Messages = append(update.Messages, e.answer(t, NodeLeaveSkill, c, e.opts.ResumeText, nil))
			resumed = true

			continue
		}

		update.Messages = append(update.Messages, e.answer(t, NodeLeaveSkill, c, nil, errNotExecuted))
	}

	e.logger.Info("engine.specialist.leave", "session", t.sessionID, "specialist", active)

	return update, NodePrimary, nil
}

// invoke runs a model-backed node. done reports that the turn must end with
// the returned update, either because the call budget is spent or because
// the model failed.
func (e *Engine) invoke(t *turn, a *agent.Assistant) (agent.Result, core.Update, bool, error) {
	if err := t.budget.Spend(); err != nil {
		e.logger.Warn("engine.model_call_limit", "session", t.sessionID, "node", a.Name(), "error", err)
		return agent.Result{}, core.Update{Messages: []core.Message{e.apology(a.Name())}}, true, nil
	}

	res, err := a.Invoke(e.invocation(t, a.Name()))
	t.result.ModelCalls += res.Attempts

	if err != nil {
		return res, core.Update{}, true, err
	}

	return res, res.Update(), res.Failed(), nil
}

func (e *Engine) invocation(t *turn, agentName string) *flow.Invocation {
	return &flow.Invocation{
		Context:   t.ctx,
		SessionID: t.sessionID,
		Agent:     agentName,
		State:     t.state,
		Now:       e.opts.Now(),
		Logger:    e.logger,
		Artifacts: e.opts.Artifacts,
	}
}

func (e *Engine) answer(t *turn, node string, c core.FunctionCall, result any, err error) core.Message {
	msg := core.NewToolResultMessage(node, c, result, err)
	e.opts.Hooks.toolCall(t.ctx, node, c, msg)

	return msg
}

func (e *Engine) apology(author string) core.Message {
	msg := core.NewAssistantMessage(author, e.opts.ApologyText)
	msg.Timestamp = e.opts.Now()

	return msg
}

// interrupted answers calls left pending by an aborted earlier turn so the
// new user message does not break pairing.
func (e *Engine) interrupted(state core.State) []core.Message {
	pending := core.PendingCalls(state.Messages)
	if len(pending) == 0 {
		return nil
	}

	e.logger.Warn("engine.pending_calls.interrupted", "count", len(pending))

	out := make([]core.Message, 0, len(pending))
	for _, c := range pending {
		out = append(out, core.NewToolResultMessage(NodeStart, c, nil, errors.New("interrupted: the previous turn ended before this call ran")))
	}

	return out
}

func callNames(calls []core.FunctionCall) []string {
	names := make([]string, 0, len(calls))
	for _, c := range calls {
		names = append(names, c.Name)
	}

	return names
}
