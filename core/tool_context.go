package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/hupe1980/coopdesk/logging"
)

// ErrArtifactStoreNotConfigured is returned by artifact helpers when the tool
// context was built without a store.
var ErrArtifactStoreNotConfigured = errors.New("artifact store not configured")

// ToolContext provides a constrained surface for tool implementations invoked
// on behalf of a specialist. It scopes every side effect to the session and
// the function call being answered.
type ToolContext struct {
	ctx            context.Context
	sessionID      string
	agentName      string
	functionCallID string
	artifacts      ArtifactStore
	logger         logging.Logger
}

// NewToolContext constructs a tool context for one function call. logger and
// artifacts may be nil.
func NewToolContext(ctx context.Context, sessionID, agentName, functionCallID string, logger logging.Logger, artifacts ArtifactStore) *ToolContext {
	return &ToolContext{
		ctx:            ctx,
		sessionID:      sessionID,
		agentName:      agentName,
		functionCallID: functionCallID,
		artifacts:      artifacts,
		logger:         logging.OrNoOp(logger),
	}
}

// Context returns the context associated with the tool invocation.
func (tc *ToolContext) Context() context.Context { return tc.ctx }

// SessionID returns the session ID associated with the tool invocation.
func (tc *ToolContext) SessionID() string { return tc.sessionID }

// AgentName returns the specialist that requested the call.
func (tc *ToolContext) AgentName() string { return tc.agentName }

// FunctionCallID returns the id of the call being answered.
func (tc *ToolContext) FunctionCallID() string { return tc.functionCallID }

// LogDebug logs msg with the session, specialist and call id attached.
func (tc *ToolContext) LogDebug(msg string, args ...any) { tc.logger.Debug(msg, tc.scoped(args)...) }

// LogInfo logs msg with the session, specialist and call id attached.
func (tc *ToolContext) LogInfo(msg string, args ...any) { tc.logger.Info(msg, tc.scoped(args)...) }

// LogWarn logs msg with the session, specialist and call id attached.
func (tc *ToolContext) LogWarn(msg string, args ...any) { tc.logger.Warn(msg, tc.scoped(args)...) }

func (tc *ToolContext) scoped(args []any) []any {
	out := make([]any, 0, len(args)+6)
	out = append(out, "session", tc.sessionID, "agent", tc.agentName, "function_call_id", tc.functionCallID)

	return append(out, args...)
}

// SaveArtifact persists artifact bytes under the session scope.
func (tc *ToolContext) SaveArtifact(id string, data []byte) error {
	if tc.artifacts == nil {
		return ErrArtifactStoreNotConfigured
	}

	if err := tc.artifacts.Save(tc.ctx, tc.sessionID, id, data); err != nil {
		return err
	}

	tc.LogDebug("tool.artifact.saved", "artifact_id", id, "bytes", len(data))

	return nil
}

// LoadArtifact retrieves a persisted artifact by id.
func (tc *ToolContext) LoadArtifact(id string) ([]byte, error) {
	if tc.artifacts == nil {
		return nil, ErrArtifactStoreNotConfigured
	}

	return tc.artifacts.Get(tc.ctx, tc.sessionID, id)
}

// ListArtifacts returns artifact IDs stored for the session.
func (tc *ToolContext) ListArtifacts() ([]string, error) {
	if tc.artifacts == nil {
		return nil, ErrArtifactStoreNotConfigured
	}

	return tc.artifacts.List(tc.ctx, tc.sessionID)
}

// Validate performs a structural sanity check of the context.
func (tc *ToolContext) Validate() error {
	if tc.ctx == nil || tc.sessionID == "" || tc.functionCallID == "" {
		return fmt.Errorf("invalid ToolContext: session %q call %q", tc.sessionID, tc.functionCallID)
	}

	return nil
}
