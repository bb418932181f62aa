package agent

import (
	"regexp"
	"strings"

	"github.com/hupe1980/coopdesk/core"
	"github.com/hupe1980/coopdesk/tool"
)

// DirectiveRealOutput is the synthetic user directive sent after a degenerate output.
const DirectiveRealOutput = "Respond with a real output."

// DirectiveUseTool is the synthetic user directive sent when the user supplied
// an identifier but the output requested no tool.
const DirectiveUseTool = "The user provided an identifier or verification code. Call the appropriate tool now instead of answering in text."

// DefaultIdentifierPattern matches a national ID (5 to 12 digits), which also
// covers 6-digit verification codes.
var DefaultIdentifierPattern = regexp.MustCompile(`(^|\D)\d{5,12}(\D|$)`)

// Guard inspects an assistant output and decides whether it must be retried.
// history is the real conversation, without any synthetic directives.
type Guard interface {
	Name() string
	Check(history []core.Message, out core.Message) (directive string, retry bool)
}

// DegenerateOutputGuard rejects outputs with neither tool calls nor text.
type DegenerateOutputGuard struct{}

// Name implements Guard.
func (DegenerateOutputGuard) Name() string { return "degenerate_output" }

// Check implements Guard.
func (DegenerateOutputGuard) Check(_ []core.Message, out core.Message) (string, bool) {
	if out.IsDegenerate() {
		return DirectiveRealOutput, true
	}

	return "", false
}

// ForcedToolUseGuard rejects text-only outputs when the latest human message
// carries an identifier matching Pattern and no domain tool has answered
// since that message.
type ForcedToolUseGuard struct {
	Pattern   *regexp.Regexp
	Directive string
}

// NewForcedToolUseGuard creates the guard. A nil pattern selects
// DefaultIdentifierPattern.
func NewForcedToolUseGuard(pattern *regexp.Regexp) *ForcedToolUseGuard {
	if pattern == nil {
		pattern = DefaultIdentifierPattern
	}

	return &ForcedToolUseGuard{Pattern: pattern, Directive: DirectiveUseTool}
}

// Name implements Guard.
func (g *ForcedToolUseGuard) Name() string { return "forced_tool_use" }

// Check implements Guard.
func (g *ForcedToolUseGuard) Check(history []core.Message, out core.Message) (string, bool) {
	if out.HasFunctionCalls() {
		return "", false
	}

	text, ok := core.LastUserText(history)
	if !ok || !g.Pattern.MatchString(text) {
		return "", false
	}

	if domainResultSinceLastUser(history) {
		return "", false
	}

	return g.Directive, true
}

func domainResultSinceLastUser(history []core.Message) bool {
	for i := len(history) - 1; i >= 0; i-- {
		m := history[i]
		if m.Role() == core.RoleUser {
			return false
		}

		for _, fr := range m.FunctionResponses() {
			if !strings.HasPrefix(fr.Name, tool.DelegationPrefix) && fr.Name != tool.EscalationName {
				return true
			}
		}
	}

	return false
}
