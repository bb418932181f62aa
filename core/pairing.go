package core

import "fmt"

// PairingError reports a broken tool-call/tool-result pairing in a history.
type PairingError struct {
	CallID string
	Index  int
	Reason string
}

func (e *PairingError) Error() string {
	return fmt.Sprintf("tool pairing violated at message %d (call %q): %s", e.Index, e.CallID, e.Reason)
}

// CheckPairing verifies that every tool call is answered exactly once, by a
// tool result placed after it and before the next assistant message, and
// that no tool result exists without an originating call.
//
// Calls issued by the final assistant message may still be pending; callers
// validating a finished turn should use CheckClosed.
func CheckPairing(msgs []Message) error {
	return checkPairing(msgs, false)
}

// CheckClosed is CheckPairing with no pending calls allowed at the end.
func CheckClosed(msgs []Message) error {
	return checkPairing(msgs, true)
}

func checkPairing(msgs []Message, closed bool) error {
	pending := map[string]int{}
	answered := map[string]bool{}

	for i, m := range msgs {
		switch m.Role() {
		case RoleAssistant:
			for id, at := range pending {
				return &PairingError{CallID: id, Index: at, Reason: "call not answered before next assistant message"}
			}

			for _, c := range m.FunctionCalls() {
				if _, dup := pending[c.ID]; dup || answered[c.ID] {
					return &PairingError{CallID: c.ID, Index: i, Reason: "duplicate call id"}
				}

				pending[c.ID] = i
			}
		case RoleTool:
			for _, r := range m.FunctionResponses() {
				if answered[r.ID] {
					return &PairingError{CallID: r.ID, Index: i, Reason: "call answered twice"}
				}

				if _, ok := pending[r.ID]; !ok {
					return &PairingError{CallID: r.ID, Index: i, Reason: "result without originating call"}
				}

				delete(pending, r.ID)
				answered[r.ID] = true
			}
		case RoleUser:
			for id, at := range pending {
				return &PairingError{CallID: id, Index: at, Reason: "call not answered before user input"}
			}
		}
	}

	if closed {
		for id, at := range pending {
			return &PairingError{CallID: id, Index: at, Reason: "call left unanswered"}
		}
	}

	return nil
}

// PendingCalls returns the calls of the latest assistant message that have no
// result yet, in call order.
func PendingCalls(msgs []Message) []FunctionCall {
	last := -1

	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role() == RoleAssistant {
			last = i
			break
		}
	}

	if last < 0 {
		return nil
	}

	answered := map[string]bool{}

	for _, m := range msgs[last+1:] {
		for _, r := range m.FunctionResponses() {
			answered[r.ID] = true
		}
	}

	var out []FunctionCall

	for _, c := range msgs[last].FunctionCalls() {
		if !answered[c.ID] {
			out = append(out, c)
		}
	}

	return out
}
