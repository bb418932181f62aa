package runner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/hupe1980/coopdesk/core"
	"github.com/hupe1980/coopdesk/engine"
	"github.com/hupe1980/coopdesk/logging"
	"github.com/hupe1980/coopdesk/metrics"
	"github.com/hupe1980/coopdesk/session"
)

var (
	// ErrEmptyMessage is returned for blank user input.
	ErrEmptyMessage = errors.New("message is empty")
	// ErrInvalidSession is returned for an empty session id.
	ErrInvalidSession = errors.New("session id is required")
	// ErrNoActiveTurn is returned by Cancel when the session is idle.
	ErrNoActiveTurn = errors.New("no active turn")
)

// Options holds dependency and configuration overrides passed to New.
type Options struct {
	// Store persists conversation state between turns.
	Store core.Checkpointer
	// Locks serializes turns per session. Share it with other runners of the
	// same process; configure a distributed locker for several processes.
	Locks *session.Locks
	// TurnTimeout bounds one turn. 0 disables the bound.
	TurnTimeout time.Duration
	Logger      logging.Logger
	Recorder    metrics.Recorder
	// Ledger is cleared on Reset.
	Ledger *metrics.TokenLedger
}

// Reply is the outcome of one turn.
type Reply struct {
	SessionID  string        `json:"session_id"`
	Text       string        `json:"text"`
	Active     string        `json:"active,omitempty"`
	Path       []string      `json:"path"`
	ModelCalls int           `json:"model_calls"`
	Compacted  bool          `json:"compacted,omitempty"`
	Duration   time.Duration `json:"duration"`
}

// Runner coordinates turns: it serializes them per session, loads and saves
// state, and tracks in-flight turns for cancellation. Public methods are safe
// for concurrent use.
type Runner struct {
	engine      *engine.Engine
	store       core.Checkpointer
	locks       *session.Locks
	turnTimeout time.Duration
	logger      logging.Logger
	recorder    metrics.Recorder
	ledger      *metrics.TokenLedger

	mu         sync.Mutex
	activeRuns map[string]context.CancelFunc
}

// New constructs a Runner with optional overrides.
func New(eng *engine.Engine, optFns ...func(o *Options)) *Runner {
	opts := Options{
		Store: session.NewInMemoryStore(),
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Locks == nil {
		opts.Locks = session.NewLocks(session.WithLogger(opts.Logger))
	}

	return &Runner{
		engine:      eng,
		store:       opts.Store,
		locks:       opts.Locks,
		turnTimeout: opts.TurnTimeout,
		logger:      logging.OrNoOp(opts.Logger),
		recorder:    metrics.OrNop(opts.Recorder),
		ledger:      opts.Ledger,
		activeRuns:  make(map[string]context.CancelFunc),
	}
}

// Chat runs one turn of sessionID with the user's text and returns the reply.
// Turns of the same session are serialized; a session seen for the first
// time starts with an empty state.
func (r *Runner) Chat(ctx context.Context, sessionID, text string) (Reply, error) {
	if sessionID == "" {
		return Reply{}, ErrInvalidSession
	}

	if strings.TrimSpace(text) == "" {
		return Reply{}, ErrEmptyMessage
	}

	start := time.Now()

	var reply Reply

	err := r.locks.WithLock(ctx, sessionID, func(ctx context.Context) error {
		state, err := r.load(ctx, sessionID)
		if err != nil {
			return err
		}

		runCtx, cancel := r.runContext(ctx, sessionID)
		defer r.finish(sessionID, cancel)

		next, res, err := r.engine.RunTurn(runCtx, sessionID, state, text)
		if err != nil {
			return fmt.Errorf("turn failed: %w", err)
		}

		// The turn ended with an answer even when it was cancelled; persist it
		// with the caller context.
		if err := r.store.Save(ctx, sessionID, &next); err != nil {
			return fmt.Errorf("failed to save session: %w", err)
		}

		reply = Reply{
			SessionID:  sessionID,
			Text:       res.Reply,
			Active:     res.Active,
			Path:       res.Path,
			ModelCalls: res.ModelCalls,
			Compacted:  res.Compacted,
		}

		return nil
	})

	reply.Duration = time.Since(start)

	if err != nil {
		r.recorder.ObserveTurn("error", reply.Duration)
		r.logger.Error("runner.turn.error", "session", sessionID, "error", err)

		return Reply{}, err
	}

	r.recorder.ObserveTurn("ok", reply.Duration)
	r.logger.Info(
		"runner.turn.completed",
		"session", sessionID,
		"active", reply.Active,
		"model_calls", reply.ModelCalls,
		"duration_ms", reply.Duration.Milliseconds(),
	)

	return reply, nil
}

func (r *Runner) load(ctx context.Context, sessionID string) (core.State, error) {
	start := time.Now()

	state, err := r.store.Load(ctx, sessionID)

	r.recorder.ObserveSessionLoad(time.Since(start))

	if errors.Is(err, core.ErrSessionNotFound) {
		r.logger.Debug("runner.session.created", "session", sessionID)
		return core.State{}, nil
	}

	if err != nil {
		return core.State{}, fmt.Errorf("failed to load session: %w", err)
	}

	return *state, nil
}

func (r *Runner) runContext(ctx context.Context, sessionID string) (context.Context, context.CancelFunc) {
	var (
		runCtx context.Context
		cancel context.CancelFunc
	)

	if r.turnTimeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, r.turnTimeout)
	} else {
		runCtx, cancel = context.WithCancel(ctx)
	}

	r.mu.Lock()
	r.activeRuns[sessionID] = cancel
	r.mu.Unlock()

	return runCtx, cancel
}

func (r *Runner) finish(sessionID string, cancel context.CancelFunc) {
	cancel()

	r.mu.Lock()
	delete(r.activeRuns, sessionID)
	r.mu.Unlock()
}

// Cancel aborts the in-flight turn of sessionID. The turn still ends with an
// apology and its state is saved.
func (r *Runner) Cancel(sessionID string) error {
	r.mu.Lock()
	cancel, exists := r.activeRuns[sessionID]
	r.mu.Unlock()

	if !exists {
		return fmt.Errorf("%w for session %s", ErrNoActiveTurn, sessionID)
	}

	cancel()

	return nil
}

// History returns the stored state of sessionID.
func (r *Runner) History(ctx context.Context, sessionID string) (*core.State, error) {
	return r.store.Load(ctx, sessionID)
}

// Reset forgets sessionID: its state and token totals.
func (r *Runner) Reset(ctx context.Context, sessionID string) error {
	return r.locks.WithLock(ctx, sessionID, func(ctx context.Context) error {
		if err := r.store.Delete(ctx, sessionID); err != nil {
			return fmt.Errorf("failed to delete session: %w", err)
		}

		if r.ledger != nil {
			r.ledger.Forget(sessionID)
		}

		r.logger.Info("runner.session.reset", "session", sessionID)

		return nil
	})
}
