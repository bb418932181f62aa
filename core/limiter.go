package core

import (
	"errors"
	"fmt"
)

// ErrModelCallLimit is returned once a turn exhausts its model call budget.
var ErrModelCallLimit = errors.New("model call limit exceeded")

// CallBudget counts the model invocations of one turn. A specialist that
// keeps requesting tools ends the turn once the budget is spent.
//
// A CallBudget belongs to a single turn and is not safe for concurrent use.
type CallBudget struct {
	limit int
	spent int
}

// NewCallBudget creates a budget of limit calls. 0 is unbounded.
func NewCallBudget(limit int) *CallBudget {
	return &CallBudget{limit: limit}
}

// Spend records one call. It fails without recording when the budget is
// already exhausted.
func (b *CallBudget) Spend() error {
	if b.limit > 0 && b.spent >= b.limit {
		return fmt.Errorf("%w: %d", ErrModelCallLimit, b.limit)
	}

	b.spent++

	return nil
}

// Spent returns the number of recorded calls.
func (b *CallBudget) Spent() int { return b.spent }

// Left returns the calls still available, or -1 when unbounded.
func (b *CallBudget) Left() int {
	if b.limit == 0 {
		return -1
	}

	return b.limit - b.spent
}
