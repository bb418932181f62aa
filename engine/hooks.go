package engine

import (
	"context"

	"github.com/hupe1980/coopdesk/core"
	"github.com/hupe1980/coopdesk/logging"
)

// Hooks observe the state machine without influencing it.
//
// Hooks run synchronously on the turn goroutine, so they should be fast.
// Every field is optional.
type Hooks struct {
	// OnNodeEnter runs before a node executes, with the state it will see.
	OnNodeEnter func(ctx context.Context, node string, state core.State)

	// OnNodeLeave runs after a node executes, with the update it produced
	// and the node the machine moves to next.
	OnNodeLeave func(ctx context.Context, node string, update core.Update, next string)

	// OnToolCall runs for every answered call, executed or synthesized.
	OnToolCall func(ctx context.Context, node string, call core.FunctionCall, result core.Message)
}

func (h Hooks) nodeEnter(ctx context.Context, node string, state core.State) {
	if h.OnNodeEnter != nil {
		h.OnNodeEnter(ctx, node, state)
	}
}

func (h Hooks) nodeLeave(ctx context.Context, node string, update core.Update, next string) {
	if h.OnNodeLeave != nil {
		h.OnNodeLeave(ctx, node, update, next)
	}
}

func (h Hooks) toolCall(ctx context.Context, node string, call core.FunctionCall, result core.Message) {
	if h.OnToolCall != nil {
		h.OnToolCall(ctx, node, call, result)
	}
}

// ChainHooks combines hooks; each callback runs in the given order.
func ChainHooks(hooks ...Hooks) Hooks {
	return Hooks{
		OnNodeEnter: func(ctx context.Context, node string, state core.State) {
			for _, h := range hooks {
				h.nodeEnter(ctx, node, state)
			}
		},
		OnNodeLeave: func(ctx context.Context, node string, update core.Update, next string) {
			for _, h := range hooks {
				h.nodeLeave(ctx, node, update, next)
			}
		},
		OnToolCall: func(ctx context.Context, node string, call core.FunctionCall, result core.Message) {
			for _, h := range hooks {
				h.toolCall(ctx, node, call, result)
			}
		},
	}
}

// LoggingHooks logs node transitions and tool results at debug level.
func LoggingHooks(logger logging.Logger) Hooks {
	logger = logging.OrNoOp(logger)

	return Hooks{
		OnNodeEnter: func(_ context.Context, node string, state core.State) {
			logger.Debug("engine.node.enter", "node", node, "messages", len(state.Messages), "stack", len(state.DialogStack))
		},
		OnNodeLeave: func(_ context.Context, node string, update core.Update, next string) {
			logger.Debug("engine.node.leave", "node", node, "next", next, "messages", len(update.Messages))
		},
		OnToolCall: func(_ context.Context, node string, call core.FunctionCall, result core.Message) {
			failed := false
			for _, fr := range result.FunctionResponses() {
				failed = failed || fr.Error != ""
			}

			logger.Debug("engine.tool.answered", "node", node, "function", call.Name, "function_call_id", call.ID, "error", failed)
		},
	}
}
