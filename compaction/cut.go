package compaction

import "github.com/hupe1980/coopdesk/core"

// CutIndex returns the largest index c with 0 < c <= len(msgs)-keepRecent such
// that msgs[c] is a user message and no tool call is split from its result by
// the cut. ok is false when no such index exists.
func CutIndex(msgs []core.Message, keepRecent int) (c int, ok bool) {
	if keepRecent < 0 {
		keepRecent = 0
	}

	for c = len(msgs) - keepRecent; c > 0; c-- {
		if c >= len(msgs) || msgs[c].Role() != core.RoleUser {
			continue
		}

		if safeCut(msgs, c) {
			return c, true
		}
	}

	return 0, false
}

// safeCut reports whether every call before c is answered before c and no
// result at or after c answers a call before c.
func safeCut(msgs []core.Message, c int) bool {
	before := map[string]bool{}

	for _, m := range msgs[:c] {
		for _, fc := range m.FunctionCalls() {
			before[fc.ID] = false
		}

		for _, fr := range m.FunctionResponses() {
			if _, ok := before[fr.ID]; ok {
				before[fr.ID] = true
			}
		}
	}

	for _, answered := range before {
		if !answered {
			return false
		}
	}

	for _, m := range msgs[c:] {
		for _, fr := range m.FunctionResponses() {
			if _, ok := before[fr.ID]; ok {
				return false
			}
		}
	}

	return true
}
