// Package engine runs a conversation turn through the delegation state
// machine of the cooperative assistant.
//
// # Nodes
//
// The primary assistant routes the user to a specialist by calling one of its
// delegation tools (to_<specialist>). Control then passes through these
// nodes:
//
//   - enter_<S> answers the delegation call with a hand-off message and
//     pushes S on the dialog stack.
//   - <S> runs the specialist. A text answer ends the turn, a call to
//     complete_or_escalate leaves the specialist and any other call is
//     executed by <S>_tools.
//   - <S>_tools executes domain tool calls sequentially and loops back to <S>.
//   - leave_skill answers the escalation call, pops the stack and returns to
//     the primary assistant, which may route again in the same turn.
//
// While the stack is non-empty, the next turn starts directly at the top
// specialist, so a multi-step flow such as code verification continues where
// it left off.
//
// # Invariants
//
// Every tool call is answered before the next model call, so the history
// satisfies core.CheckPairing at every model invocation and core.CheckClosed
// at the end of a turn. Each turn ends with an assistant text message: the
// model's reply, or an apology when a model fails, when a call cannot be
// executed, or when the per-turn model call budget is spent.
package engine
