package department

import (
	"errors"
	"fmt"

	"github.com/hupe1980/coopdesk/agent"
	"github.com/hupe1980/coopdesk/knowledge"
	"github.com/hupe1980/coopdesk/logging"
	"github.com/hupe1980/coopdesk/metrics"
	"github.com/hupe1980/coopdesk/model"
	"github.com/hupe1980/coopdesk/tool"
	"github.com/hupe1980/coopdesk/verification"
)

// Deps are the collaborators shared by all assistants.
type Deps struct {
	Model model.Model
	// Index answers the knowledge tools. Required.
	Index knowledge.Index
	// Gate backs the certificates specialist; without it that department is
	// not built and the primary cannot delegate to it.
	Gate *verification.Gate

	MaxRetries         int
	MaxHistoryMessages int
	Logger             logging.Logger
	Recorder           metrics.Recorder
	Ledger             *metrics.TokenLedger
}

// Build creates the primary assistant and the specialists of departments. A
// nil departments builds the whole Catalog.
func Build(deps Deps, departments []Department) (*agent.Assistant, []*agent.Assistant, error) {
	if deps.Model == nil {
		return nil, nil, errors.New("department: model is required")
	}

	if deps.Index == nil {
		return nil, nil, errors.New("department: knowledge index is required")
	}

	if departments == nil {
		departments = Catalog()
	}

	var (
		specialists []*agent.Assistant
		delegations []tool.Capability
	)

	for _, d := range departments {
		caps, guards, ok := d.capabilities(deps)
		if !ok {
			logging.OrNoOp(deps.Logger).Warn("department.skipped", "department", d.Name, "reason", "no verification gate")
			continue
		}

		ts, err := tool.NewToolset(append(caps, tool.NewEscalation())...)
		if err != nil {
			return nil, nil, fmt.Errorf("department %s: %w", d.Name, err)
		}

		specialists = append(specialists, agent.NewAssistant(d.Name, deps.Model, deps.options(d.Prompt, ts, guards)))
		delegations = append(delegations, tool.NewDelegation(d.Name, d.Handoff))
	}

	ts, err := tool.NewToolset(delegations...)
	if err != nil {
		return nil, nil, fmt.Errorf("primary: %w", err)
	}

	primary := agent.NewAssistant("primary", deps.Model, deps.options(PrimaryPrompt, ts, nil))

	return primary, specialists, nil
}

func (d Department) capabilities(deps Deps) ([]tool.Capability, []agent.Guard, bool) {
	var caps []tool.Capability

	if d.Search != "" {
		caps = append(caps, tool.Domain(knowledge.NewSearchTool(deps.Index, d.Name, d.Search)))
	}

	if d.Name != Certificados {
		return caps, nil, true
	}

	if deps.Gate == nil {
		return nil, nil, false
	}

	for _, t := range deps.Gate.Tools() {
		caps = append(caps, tool.Domain(t))
	}

	guards := []agent.Guard{agent.DegenerateOutputGuard{}, agent.NewForcedToolUseGuard(nil)}

	return caps, guards, true
}

func (deps Deps) options(prompt string, ts *tool.Toolset, guards []agent.Guard) func(o *agent.Options) {
	return func(o *agent.Options) {
		o.Instruction = agent.NewInstructionFromText(prompt)
		o.Toolset = ts
		o.MaxRetries = deps.MaxRetries
		o.MaxHistoryMessages = deps.MaxHistoryMessages
		o.Logger = deps.Logger
		o.Recorder = deps.Recorder
		o.Ledger = deps.Ledger

		if guards != nil {
			o.Guards = guards
		}
	}
}
