// Package coopdesk wires the dialog engine, the department assistants and
// their stores from a config.Config. The CLI and the HTTP API are built on it;
// embedders that need finer control can assemble the packages themselves.
package coopdesk

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	sdkanthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	backend "github.com/redis/go-redis/v9"

	"github.com/hupe1980/coopdesk/artifact"
	"github.com/hupe1980/coopdesk/certificate"
	"github.com/hupe1980/coopdesk/compaction"
	"github.com/hupe1980/coopdesk/config"
	"github.com/hupe1980/coopdesk/core"
	"github.com/hupe1980/coopdesk/department"
	"github.com/hupe1980/coopdesk/engine"
	"github.com/hupe1980/coopdesk/internal/httpapi"
	"github.com/hupe1980/coopdesk/knowledge"
	"github.com/hupe1980/coopdesk/logging"
	"github.com/hupe1980/coopdesk/metrics"
	"github.com/hupe1980/coopdesk/model"
	"github.com/hupe1980/coopdesk/model/anthropic"
	"github.com/hupe1980/coopdesk/model/openai"
	"github.com/hupe1980/coopdesk/runner"
	"github.com/hupe1980/coopdesk/session"
	redisstore "github.com/hupe1980/coopdesk/session/redis"
	"github.com/hupe1980/coopdesk/session/sqlite"
	"github.com/hupe1980/coopdesk/verification"
)

// ScriptedReply is the answer of the scripted provider, used for demos
// without model credentials.
const ScriptedReply = "Hola, soy el asistente virtual de COOTRADECUN (modo de demostración). ¿En qué puedo ayudarte?"

// Options overrides collaborators that the configuration cannot express.
type Options struct {
	// Model replaces the configured provider.
	Model model.Model
	// Summarizer replaces the compaction model. Defaults to Model.
	Summarizer model.Model
	Logger     logging.Logger
	// Registry receives the metrics when metrics are enabled. A fresh
	// registry with the Go and process collectors is used when nil.
	Registry *prometheus.Registry
	Ledger   certificate.Ledger
	// Directory resolves the contact of an associate. Defaults to the
	// configured fixed contact.
	Directory verification.Directory
	Verifier  verification.Verifier
	Artifacts core.ArtifactStore
}

// Desk is a fully wired assistant.
type Desk struct {
	Runner    *runner.Runner
	Engine    *engine.Engine
	Artifacts core.ArtifactStore
	Logger    logging.Logger

	cfg      *config.Config
	registry *prometheus.Registry
	closers  []io.Closer
}

// New validates cfg and builds a Desk. Close releases its stores.
func New(cfg *config.Config, optFns ...func(o *Options)) (*Desk, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	opts := Options{
		Ledger:    certificate.SampleLedger(),
		Directory: verification.StaticDirectory{Fallback: cfg.Verification.Contact},
		Verifier:  verification.NewMockVerifier(cfg.Verification.MockCode),
		Artifacts: artifact.NewInMemoryStore(),
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	d := &Desk{cfg: cfg, Artifacts: opts.Artifacts}

	if err := d.build(opts); err != nil {
		_ = d.Close()
		return nil, err
	}

	return d, nil
}

func (d *Desk) build(opts Options) error {
	cfg := d.cfg

	logger := opts.Logger
	if logger == nil {
		l, err := logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Redact: cfg.Log.Redact})
		if err != nil {
			return fmt.Errorf("logging: %w", err)
		}

		logger = l
	}

	d.Logger = logger

	var recorder metrics.Recorder = metrics.Nop{}

	if cfg.Metrics.Enabled {
		d.registry = opts.Registry
		if d.registry == nil {
			d.registry = prometheus.NewRegistry()
			d.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		}

		p, err := metrics.NewPrometheus(d.registry)
		if err != nil {
			return fmt.Errorf("metrics: %w", err)
		}

		recorder = p
	}

	llm := opts.Model
	if llm == nil {
		var err error
		if llm, err = newModel(cfg.Model, cfg.Model.Name); err != nil {
			return err
		}
	}

	summarizer := opts.Summarizer
	if summarizer == nil {
		summarizer = llm
		if opts.Model == nil && cfg.Model.SummaryName != "" {
			var err error
			if summarizer, err = newModel(cfg.Model, cfg.Model.SummaryName); err != nil {
				return err
			}
		}
	}

	store, records, locker, err := d.stores()
	if err != nil {
		return err
	}

	lockOpts := []session.LocksOption{session.WithLogger(logger)}
	if locker != nil {
		lockOpts = append(lockOpts, session.WithLocker(locker, cfg.Store.LockTTL))
	}

	locks := session.NewLocks(lockOpts...)

	index := knowledge.NewInMemoryIndex()
	if err := loadKnowledge(index, cfg.Knowledge.Dir, logger); err != nil {
		return err
	}

	generator := certificate.NewTemplateGenerator(opts.Ledger, d.Artifacts, func(o *certificate.GeneratorOptions) {
		o.Logger = logger
	})

	gate := verification.NewGate(records, opts.Directory, opts.Verifier, generator, func(o *verification.Options) {
		o.Locks = locks
		o.CountryCode = cfg.Verification.CountryCode
		o.Logger = logger
	})

	ledger := metrics.NewTokenLedger()

	primary, specialists, err := department.Build(department.Deps{
		Model:              llm,
		Index:              index,
		Gate:               gate,
		MaxRetries:         cfg.Turn.MaxRetries,
		MaxHistoryMessages: cfg.Turn.MaxHistoryMessages,
		Logger:             logger,
		Recorder:           recorder,
		Ledger:             ledger,
	}, nil)
	if err != nil {
		return err
	}

	d.Engine, err = engine.New(primary, specialists, func(o *engine.Options) {
		o.MaxModelCalls = cfg.Turn.MaxModelCalls
		o.Artifacts = d.Artifacts
		o.Logger = logger
		o.Recorder = recorder

		if cfg.Compaction.Enabled {
			o.Compactor = compaction.New(summarizer, func(o *compaction.Options) {
				o.MaxTokens = cfg.Compaction.MaxTokens
				o.KeepRecent = cfg.Compaction.KeepRecent
				o.SummaryMaxTokens = cfg.Compaction.SummaryMaxTokens
				o.Logger = logger
				o.Recorder = recorder
			})
		}
	})
	if err != nil {
		return err
	}

	d.Runner = runner.New(d.Engine, func(o *runner.Options) {
		o.Store = store
		o.Locks = locks
		o.Logger = logger
		o.Recorder = recorder
		o.Ledger = ledger
		o.TurnTimeout = cfg.Turn.Timeout
	})

	logger.Info(
		"coopdesk.ready",
		"provider", llm.Info().Provider,
		"model", llm.Info().Name,
		"store", cfg.Store.Backend,
		"specialists", d.Engine.Specialists(),
		"knowledge", index.Departments(),
	)

	return nil
}

// stores opens the configured checkpoint store, the verification record
// store and, for redis, the distributed locker.
func (d *Desk) stores() (core.Checkpointer, verification.RecordStore, session.Locker, error) {
	cfg := d.cfg

	switch cfg.Store.Backend {
	case "redis":
		client := backend.NewClient(&backend.Options{
			Addr:     cfg.Store.Redis.Addr,
			Password: cfg.Store.Redis.Password,
			DB:       cfg.Store.Redis.DB,
		})
		d.closers = append(d.closers, client)

		store := redisstore.NewFromClient(client, redisstore.WithTTL(cfg.Store.TTL))
		records := verification.NewRedisRecordStore(client, cfg.Verification.TTL)

		return store, records, redisstore.NewLocker(client, "coopdesk:lock:"), nil
	case "sqlite":
		store, err := sqlite.Open(cfg.Store.SQLite.Path)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("sqlite store: %w", err)
		}

		d.closers = append(d.closers, store)

		return store, verification.NewMemoryRecordStore(cfg.Verification.TTL), nil, nil
	default:
		return session.NewInMemoryStore(), verification.NewMemoryRecordStore(cfg.Verification.TTL), nil, nil
	}
}

func newModel(cfg config.ModelConfig, name string) (model.Model, error) {
	switch cfg.Provider {
	case "openai":
		return openai.NewModel(func(o *openai.Options) {
			o.Model = name
			o.Temperature = cfg.Temperature
			o.MaxCompletionTokens = int64(cfg.MaxTokens)
			o.APIKey = cfg.APIKey
			o.BaseURL = cfg.BaseURL
		}), nil
	case "anthropic":
		return anthropic.NewModel(func(o *anthropic.Options) {
			o.Model = sdkanthropic.Model(name)
			o.Temperature = cfg.Temperature
			o.MaxTokens = int64(cfg.MaxTokens)
			o.APIKey = cfg.APIKey
			o.BaseURL = cfg.BaseURL
		}), nil
	case "scripted":
		return model.NewScriptedModel("scripted").Otherwise(model.Reply(ScriptedReply)), nil
	default:
		return nil, fmt.Errorf("unknown model provider %q", cfg.Provider)
	}
}

// loadKnowledge indexes dir, or the bundled sample documents when dir is
// empty or missing.
func loadKnowledge(index *knowledge.InMemoryIndex, dir string, logger logging.Logger) error {
	var (
		n   int
		err error
	)

	_, statErr := os.Stat(dir)

	switch {
	case dir == "":
		n, err = knowledge.LoadSample(index)
	case errors.Is(statErr, os.ErrNotExist):
		logger.Warn("coopdesk.knowledge.missing", "dir", dir, "fallback", "sample")
		n, err = knowledge.LoadSample(index)
	default:
		n, err = knowledge.LoadDir(index, dir)
	}

	if err != nil {
		return fmt.Errorf("knowledge: %w", err)
	}

	logger.Info("coopdesk.knowledge.loaded", "dir", dir, "chunks", n, "departments", index.Departments())

	return nil
}

// requestGrace is added to the turn timeout to bound an HTTP request.
const requestGrace = 10 * time.Second

// Handler returns the HTTP API of the desk. /metrics is served when metrics
// are enabled.
func (d *Desk) Handler() http.Handler {
	return httpapi.NewHandler(d.Runner, func(o *httpapi.Options) {
		o.Logger = d.Logger
		if d.cfg.Turn.Timeout > 0 {
			// Leaves room to save the turn after the model gave up.
			o.Timeout = d.cfg.Turn.Timeout + requestGrace
		}

		if d.registry != nil {
			o.Gatherer = d.registry
		}
	})
}

// Chat runs one turn. It is a shorthand for d.Runner.Chat.
func (d *Desk) Chat(ctx context.Context, sessionID, text string) (runner.Reply, error) {
	return d.Runner.Chat(ctx, sessionID, text)
}

// Close releases the stores opened by New.
func (d *Desk) Close() error {
	var errs []error

	for _, c := range d.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	d.closers = nil

	return errors.Join(errs...)
}
