package tool

import (
	"fmt"

	"github.com/hupe1980/coopdesk/core"
	"github.com/hupe1980/coopdesk/model"
)

// Kind tags how the dialog engine treats a call to a capability.
type Kind int

const (
	// KindDomain tools are executed and their result appended to the history.
	KindDomain Kind = iota
	// KindDelegation tools hand control to a specialist (Capability.Target).
	KindDelegation
	// KindEscalation tools return control from a specialist to the primary.
	KindEscalation
)

func (k Kind) String() string {
	switch k {
	case KindDomain:
		return "domain"
	case KindDelegation:
		return "delegation"
	case KindEscalation:
		return "escalation"
	default:
		return "unknown"
	}
}

// Capability is a tool together with its routing kind. Target names the
// specialist entered by a delegation capability.
type Capability struct {
	Tool   Tool
	Kind   Kind
	Target string
}

// Domain wraps t as an executable domain capability.
func Domain(t Tool) Capability { return Capability{Tool: t, Kind: KindDomain} }

// Toolset is the immutable set of capabilities bound to one dialog node. It
// is resolved once at construction so routing never depends on runtime type
// inspection of tool values.
type Toolset struct {
	caps  []Capability
	index map[string]int
}

// NewToolset validates names and builds the set.
func NewToolset(caps ...Capability) (*Toolset, error) {
	ts := &Toolset{index: make(map[string]int, len(caps))}

	for _, c := range caps {
		if c.Tool == nil {
			return nil, fmt.Errorf("capability without tool")
		}

		name := c.Tool.Name()
		if _, dup := ts.index[name]; dup {
			return nil, fmt.Errorf("duplicate tool name %q", name)
		}

		if c.Kind == KindDelegation && c.Target == "" {
			return nil, fmt.Errorf("delegation tool %q has no target", name)
		}

		ts.index[name] = len(ts.caps)
		ts.caps = append(ts.caps, c)
	}

	return ts, nil
}

// MustToolset is NewToolset that panics on error. Intended for static wiring.
func MustToolset(caps ...Capability) *Toolset {
	ts, err := NewToolset(caps...)
	if err != nil {
		panic(err)
	}

	return ts
}

// Lookup returns the capability registered under name.
func (ts *Toolset) Lookup(name string) (Capability, bool) {
	if ts == nil {
		return Capability{}, false
	}

	i, ok := ts.index[name]
	if !ok {
		return Capability{}, false
	}

	return ts.caps[i], true
}

// Len returns the number of capabilities.
func (ts *Toolset) Len() int {
	if ts == nil {
		return 0
	}

	return len(ts.caps)
}

// Targets returns the delegation targets in registration order.
func (ts *Toolset) Targets() []string {
	if ts == nil {
		return nil
	}

	var out []string

	for _, c := range ts.caps {
		if c.Kind == KindDelegation {
			out = append(out, c.Target)
		}
	}

	return out
}

// Definitions renders the capabilities as model tool definitions.
func (ts *Toolset) Definitions() []model.ToolDefinition {
	if ts == nil {
		return nil
	}

	defs := make([]model.ToolDefinition, 0, len(ts.caps))

	for _, c := range ts.caps {
		defs = append(defs, model.ToolDefinition{
			Type: "function",
			Function: model.FunctionDefinition{
				Name:        c.Tool.Name(),
				Description: c.Tool.Description(),
				Parameters:  c.Tool.Parameters(),
			},
		})
	}

	return defs
}

// RouteKind is the outcome of classifying an assistant output.
type RouteKind int

const (
	// RouteNone means the output carries no tool calls; the turn ends.
	RouteNone RouteKind = iota
	// RouteEscalate means at least one call targets the escalation capability.
	RouteEscalate
	// RouteDelegate means a call targets a delegation capability.
	RouteDelegate
	// RouteTools means the calls are domain or unrecognized tool calls.
	RouteTools
)

func (k RouteKind) String() string {
	switch k {
	case RouteNone:
		return "none"
	case RouteEscalate:
		return "escalate"
	case RouteDelegate:
		return "delegate"
	case RouteTools:
		return "tools"
	default:
		return "unknown"
	}
}

// Route is the classification of one assistant output.
type Route struct {
	Kind RouteKind
	// Target is the specialist named by the first delegation call.
	Target string
	// Call is the escalation or delegation call that decided the route.
	Call core.FunctionCall
	// Calls are all calls of the output in order.
	Calls []core.FunctionCall
}

// Classify decides the route of an assistant output. Escalation is detected
// by membership across all calls, not just the first. Otherwise the first
// delegation call wins; any remaining calls are domain tool calls.
func (ts *Toolset) Classify(msg core.Message) Route {
	calls := msg.FunctionCalls()
	if len(calls) == 0 {
		return Route{Kind: RouteNone}
	}

	for _, c := range calls {
		if capb, ok := ts.Lookup(c.Name); ok && capb.Kind == KindEscalation {
			return Route{Kind: RouteEscalate, Call: c, Calls: calls}
		}
	}

	for _, c := range calls {
		if capb, ok := ts.Lookup(c.Name); ok && capb.Kind == KindDelegation {
			return Route{Kind: RouteDelegate, Target: capb.Target, Call: c, Calls: calls}
		}
	}

	return Route{Kind: RouteTools, Calls: calls}
}
