package tool

import "github.com/hupe1980/coopdesk/core"

// EscalationName is the name of the tool a specialist calls to hand control
// back to the primary assistant.
const EscalationName = "complete_or_escalate"

// EscalationArgs are the arguments of an escalation call.
type EscalationArgs struct {
	Cancel bool   `json:"cancel"`
	Reason string `json:"reason"`
}

type escalationTool struct{}

// NewEscalation builds the escalation capability shared by all specialists.
func NewEscalation() Capability {
	return Capability{Tool: escalationTool{}, Kind: KindEscalation}
}

func (escalationTool) Name() string { return EscalationName }

func (escalationTool) Description() string {
	return "Mark the current task as completed and/or escalate control of the dialog to the main assistant, " +
		"who can re-route the dialog based on the user's needs. Use it when the user changes topic, " +
		"cancels the task, or the request is outside your department."
}

func (escalationTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"cancel": map[string]any{
				"type":        "boolean",
				"description": "True when the task is finished or abandoned.",
			},
			"reason": map[string]any{
				"type":        "string",
				"description": "Why control is returned, e.g. \"User changed their mind about the current task.\"",
			},
		},
		"required": []string{"reason"},
	}
}

func (escalationTool) Call(*core.ToolContext, map[string]any) (any, error) {
	return nil, ErrRoutedByEngine
}
