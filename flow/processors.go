package flow

import (
	"fmt"
	"strings"

	"github.com/hupe1980/coopdesk/core"
	internalutil "github.com/hupe1980/coopdesk/internal/util"
	"github.com/hupe1980/coopdesk/model"
)

// InstructionsProcessor resolves and renders the system prompt.
type InstructionsProcessor struct{}

// NewInstructionsProcessor creates a new instructions processor.
func NewInstructionsProcessor() *InstructionsProcessor { return &InstructionsProcessor{} }

// Name returns the processor's identifier.
func (p *InstructionsProcessor) Name() string { return "instructions" }

// ProcessRequest renders the agent instructions with the invocation template data.
func (p *InstructionsProcessor) ProcessRequest(inv *Invocation, req *model.Request, agent FlowAgent) error {
	instructions, err := agent.ResolveInstructions(inv)
	if err != nil {
		return fmt.Errorf("failed to resolve instruction: %w", err)
	}

	inv.Log().Debug("agent.instruction.resolved", "agent", agent.Name(), "length", len(instructions))

	req.Instructions, err = internalutil.RenderTemplate(instructions, inv.TemplateData())
	if err != nil {
		return fmt.Errorf("failed to render template: %w", err)
	}

	return nil
}

// SummaryProcessor appends the running conversation summary to the
// instructions so compacted context stays visible to every node.
type SummaryProcessor struct{}

// NewSummaryProcessor creates a new summary processor.
func NewSummaryProcessor() *SummaryProcessor { return &SummaryProcessor{} }

// Name returns the processor's identifier.
func (p *SummaryProcessor) Name() string { return "summary" }

// ProcessRequest appends the summary section when a summary exists.
func (p *SummaryProcessor) ProcessRequest(inv *Invocation, req *model.Request, _ FlowAgent) error {
	sum := inv.State.Context
	if sum == nil || strings.TrimSpace(sum.Text) == "" {
		return nil
	}

	req.Instructions = strings.TrimRight(req.Instructions, "\n") +
		"\n\n## Resumen de la conversación previa\n" + sum.Text

	return nil
}

// ContentsProcessor places the system content first, followed by the
// conversation history.
type ContentsProcessor struct{}

// NewContentsProcessor creates a new contents processor.
func NewContentsProcessor() *ContentsProcessor { return &ContentsProcessor{} }

// Name returns the processor's identifier.
func (p *ContentsProcessor) Name() string { return "contents" }

// ProcessRequest sets req.Contents.
func (p *ContentsProcessor) ProcessRequest(inv *Invocation, req *model.Request, agent FlowAgent) error {
	history := TrimHistory(inv.State.Messages, agent.MaxHistoryMessages())

	contents := make([]core.Content, 0, len(history)+1)
	if req.Instructions != "" {
		contents = append(contents, core.Content{
			Role:  core.RoleSystem,
			Parts: []core.Part{core.TextPart{Text: req.Instructions}},
		})
	}

	for _, m := range history {
		if len(m.Content.Parts) > 0 {
			contents = append(contents, m.Content)
		}
	}

	req.Contents = contents

	return nil
}

// TrimHistory keeps roughly the last max messages. The kept window always
// starts at a user message so no tool result is separated from its call. A
// max of 0 keeps everything.
func TrimHistory(msgs []core.Message, max int) []core.Message {
	if max <= 0 || len(msgs) <= max {
		return msgs
	}

	for i := len(msgs) - max; i < len(msgs); i++ {
		if msgs[i].Role() == core.RoleUser {
			return msgs[i:]
		}
	}

	for i := len(msgs) - max - 1; i >= 0; i-- {
		if msgs[i].Role() == core.RoleUser {
			return msgs[i:]
		}
	}

	return msgs
}

// ToolsProcessor exposes the agent's capabilities as tool definitions.
type ToolsProcessor struct{}

// NewToolsProcessor creates a new tools processor.
func NewToolsProcessor() *ToolsProcessor { return &ToolsProcessor{} }

// Name returns the processor's identifier.
func (p *ToolsProcessor) Name() string { return "tools" }

// ProcessRequest sets req.Tools.
func (p *ToolsProcessor) ProcessRequest(_ *Invocation, req *model.Request, agent FlowAgent) error {
	req.Tools = agent.Toolset().Definitions()
	return nil
}
