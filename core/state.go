package core

import "time"

// PopDialog is the Update.Dialog sentinel that drops the active specialist.
const PopDialog = "pop"

// Summary is the compaction artifact carried in State.Context. Text holds the
// running summary of everything compacted out of the message history so far.
type Summary struct {
	Text              string    `json:"text"`
	CompactedMessages int       `json:"compacted_messages"`
	Compactions       int       `json:"compactions"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// State is the per-session conversation state persisted between turns.
//
// Messages is ordered and load-bearing: every tool result must follow the
// assistant message that issued its call. DialogStack lists active specialist
// names, innermost last.
type State struct {
	Messages    []Message `json:"messages"`
	DialogStack []string  `json:"dialog_stack"`
	Context     *Summary  `json:"context,omitempty"`
}

// Update is the partial state returned by a graph node. Zero fields leave the
// corresponding state field untouched.
type Update struct {
	// Messages are merged by ID.
	Messages []Message
	// Remove lists message IDs to drop before merging.
	Remove []string
	// Dialog pushes a specialist name, or pops with PopDialog. Nil is a no-op.
	Dialog *string
	// Context replaces the compaction summary when non-nil.
	Context *Summary
}

// Push returns a Dialog value pushing name.
func Push(name string) *string { return &name }

// Pop returns a Dialog value popping the active specialist.
func Pop() *string {
	p := PopDialog
	return &p
}

// Active returns the innermost active specialist.
func (s State) Active() (string, bool) {
	if len(s.DialogStack) == 0 {
		return "", false
	}

	return s.DialogStack[len(s.DialogStack)-1], true
}

// Clone returns a copy safe for independent mutation of its slices.
func (s State) Clone() State {
	c := State{
		Messages:    append([]Message(nil), s.Messages...),
		DialogStack: append([]string(nil), s.DialogStack...),
	}

	if s.Context != nil {
		sum := *s.Context
		c.Context = &sum
	}

	return c
}

// Apply merges an update into state and returns the new state. The input is
// never mutated. Removals run first, then message merges, then the dialog
// stack operation, then the context replacement.
func Apply(s State, u Update) State {
	out := s.Clone()

	if len(u.Remove) > 0 {
		drop := make(map[string]struct{}, len(u.Remove))
		for _, id := range u.Remove {
			drop[id] = struct{}{}
		}

		kept := out.Messages[:0]

		for _, m := range out.Messages {
			if _, ok := drop[m.ID]; !ok {
				kept = append(kept, m)
			}
		}

		out.Messages = kept
	}

	out.Messages = MergeMessages(out.Messages, u.Messages)
	out.DialogStack = UpdateDialogStack(out.DialogStack, u.Dialog)

	if u.Context != nil {
		sum := *u.Context
		out.Context = &sum
	}

	return out
}

// MergeMessages merges incoming into existing by ID: an incoming message whose
// ID already exists replaces the earlier entry in place, any other is appended
// in arrival order. A message without ID gets its ContentID.
func MergeMessages(existing, incoming []Message) []Message {
	if len(incoming) == 0 {
		return existing
	}

	index := make(map[string]int, len(existing)+len(incoming))
	for i, m := range existing {
		index[m.ID] = i
	}

	out := existing

	for _, m := range incoming {
		if m.ID == "" {
			m.ID = ContentID(m)
		}

		if i, ok := index[m.ID]; ok {
			out[i] = m
			continue
		}

		index[m.ID] = len(out)
		out = append(out, m)
	}

	return out
}

// UpdateDialogStack applies a stack operation. A nil op leaves the stack as is,
// PopDialog drops the top entry (popping an empty stack is a no-op) and any
// other value is pushed.
func UpdateDialogStack(stack []string, op *string) []string {
	if op == nil {
		return stack
	}

	if *op == PopDialog {
		if len(stack) == 0 {
			return stack
		}

		return stack[:len(stack)-1]
	}

	return append(stack, *op)
}
