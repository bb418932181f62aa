package metrics

import "sync"

// TokenTotals is the cumulative token usage of one session.
type TokenTotals struct {
	Prompt     int
	Completion int
	Total      int
	Calls      int
}

// TokenLedger accumulates token usage per session for the lifetime of the
// process. Totals are not persisted.
type TokenLedger struct {
	mu     sync.Mutex
	totals map[string]TokenTotals
}

// NewTokenLedger creates an empty ledger.
func NewTokenLedger() *TokenLedger {
	return &TokenLedger{totals: map[string]TokenTotals{}}
}

// Add records one model call and returns the updated cumulative totals.
func (l *TokenLedger) Add(sessionID string, prompt, completion, total int) TokenTotals {
	if total == 0 {
		total = prompt + completion
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	t := l.totals[sessionID]
	t.Prompt += prompt
	t.Completion += completion
	t.Total += total
	t.Calls++
	l.totals[sessionID] = t

	return t
}

// Get returns the totals recorded for a session.
func (l *TokenLedger) Get(sessionID string) TokenTotals {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.totals[sessionID]
}

// Forget drops the totals of a session.
func (l *TokenLedger) Forget(sessionID string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.totals, sessionID)
}
