package tool

import (
	"errors"

	"github.com/hupe1980/coopdesk/core"
)

// ErrRoutedByEngine is returned when a routing tool is executed directly.
// Delegation and escalation calls are answered by the dialog engine.
var ErrRoutedByEngine = errors.New("routing tool is handled by the dialog engine")

// DelegationPrefix prefixes every delegation tool name.
const DelegationPrefix = "to_"

// DelegationArgs are the arguments of a delegation call.
type DelegationArgs struct {
	Request string `json:"request" description:"The user's specific query or need for the specialist."`
}

// delegationTool requests a hand-off to a named specialist.
type delegationTool struct {
	target      string
	description string
}

// NewDelegation builds the delegation capability for target. The tool is
// named "to_<target>".
func NewDelegation(target, description string) Capability {
	return Capability{
		Tool:   &delegationTool{target: target, description: description},
		Kind:   KindDelegation,
		Target: target,
	}
}

func (t *delegationTool) Name() string { return DelegationPrefix + t.target }

func (t *delegationTool) Description() string { return t.description }

func (t *delegationTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"request": map[string]any{
				"type":        "string",
				"description": "The user's specific query or need for the specialist.",
			},
		},
		"required": []string{"request"},
	}
}

func (t *delegationTool) Call(*core.ToolContext, map[string]any) (any, error) {
	return nil, ErrRoutedByEngine
}
