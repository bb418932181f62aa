package compaction

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hupe1980/coopdesk/core"
	"github.com/hupe1980/coopdesk/logging"
	"github.com/hupe1980/coopdesk/metrics"
	"github.com/hupe1980/coopdesk/model"
)

// ErrSummarizer wraps failures of the summarizer model.
var ErrSummarizer = errors.New("summarizer failed")

// ErrEmptySummary is reported when the summarizer returns no text.
var ErrEmptySummary = errors.New("summarizer returned an empty summary")

const summaryInstructions = `Eres el encargado de resumir conversaciones de atención al asociado de una cooperativa.
Escribe un resumen en español con exactamente estas tres secciones:

(a) Contexto general: el tema de la conversación y las áreas consultadas.
(b) Entidades e identificadores: nombres, números de cédula, códigos, montos, fechas y referencias, copiados textualmente.
(c) Última acción: lo último que el asociado intentó hacer o solicitó.

Si existe un resumen previo, amplíalo con la nueva información sin descartar nada de lo que sigue siendo relevante.
Responde solo con el resumen.`

// Options configures a Compactor.
type Options struct {
	// MaxTokens is the estimated history size above which compaction runs.
	MaxTokens int
	// KeepRecent is the minimum number of trailing messages kept verbatim.
	KeepRecent int
	// SummaryMaxTokens bounds the summary length.
	SummaryMaxTokens int
	Estimator        Estimator
	Logger           logging.Logger
	Recorder         metrics.Recorder
	Now              func() time.Time
}

// Compactor folds the oldest part of a long history into a running summary.
type Compactor struct {
	summarizer model.Model
	opts       Options
	logger     logging.Logger
	recorder   metrics.Recorder
}

// New creates a Compactor using summarizer to write summaries.
//
// Defaults: MaxTokens 6000, KeepRecent 6, SummaryMaxTokens 512.
func New(summarizer model.Model, optFns ...func(o *Options)) *Compactor {
	opts := Options{
		MaxTokens:        6000,
		KeepRecent:       6,
		SummaryMaxTokens: 512,
		Estimator:        EstimateTokens,
		Now:              func() time.Time { return time.Now().UTC() },
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Compactor{
		summarizer: summarizer,
		opts:       opts,
		logger:     logging.OrNoOp(opts.Logger),
		recorder:   metrics.OrNop(opts.Recorder),
	}
}

// Compact returns an update that removes the oldest messages and records
// their summary, or ok=false when the state is within budget or has no
// pairing-safe cut. On error the state must be left untouched.
func (c *Compactor) Compact(ctx context.Context, state core.State) (core.Update, bool, error) {
	estimate := c.opts.Estimator(state.Messages, state.Context)
	if estimate <= c.opts.MaxTokens {
		return core.Update{}, false, nil
	}

	cut, ok := CutIndex(state.Messages, c.opts.KeepRecent)
	if !ok {
		c.logger.Warn(
			"compaction.skipped.no_safe_cut",
			"messages", len(state.Messages),
			"estimate", estimate,
			"max_tokens", c.opts.MaxTokens,
		)
		c.recorder.ObserveCompaction("skipped")

		return core.Update{}, false, nil
	}

	if err := core.CheckPairing(state.Messages[cut:]); err != nil {
		c.recorder.ObserveCompaction("invalid")
		return core.Update{}, false, fmt.Errorf("compaction would break pairing: %w", err)
	}

	resp, err := model.Generate(ctx, c.summarizer, c.request(state.Context, state.Messages[:cut]))
	if err != nil {
		c.logger.Error("compaction.summarizer.error", "error", err)
		c.recorder.ObserveCompaction("error")

		return core.Update{}, false, fmt.Errorf("%w: %w", ErrSummarizer, err)
	}

	text := strings.TrimSpace(core.Message{Content: resp.Content}.Text())
	if text == "" {
		c.recorder.ObserveCompaction("error")
		return core.Update{}, false, ErrEmptySummary
	}

	text = truncateTokens(text, c.opts.SummaryMaxTokens)

	sum := core.Summary{Text: text, CompactedMessages: cut, Compactions: 1, UpdatedAt: c.opts.Now()}
	if prev := state.Context; prev != nil {
		sum.CompactedMessages += prev.CompactedMessages
		sum.Compactions += prev.Compactions
	}

	remove := make([]string, 0, cut)
	for _, m := range state.Messages[:cut] {
		remove = append(remove, m.ID)
	}

	c.logger.Info(
		"compaction.applied",
		"removed", cut,
		"kept", len(state.Messages)-cut,
		"estimate_before", estimate,
		"estimate_after", c.opts.Estimator(state.Messages[cut:], &sum),
	)
	c.recorder.ObserveCompaction("applied")

	return core.Update{Remove: remove, Context: &sum}, true, nil
}

// request renders the compacted prefix as a plain transcript so the
// summarizer never receives unpaired tool messages.
func (c *Compactor) request(prev *core.Summary, msgs []core.Message) model.Request {
	var sb strings.Builder

	if prev != nil && strings.TrimSpace(prev.Text) != "" {
		sb.WriteString("Resumen previo:\n")
		sb.WriteString(prev.Text)
		sb.WriteString("\n\n")
	}

	sb.WriteString("Conversación a resumir:\n")

	for _, m := range msgs {
		writeTranscriptLine(&sb, m)
	}

	return model.Request{
		Instructions: summaryInstructions,
		Contents: []core.Content{
			{Role: core.RoleSystem, Parts: []core.Part{core.TextPart{Text: summaryInstructions}}},
			{Role: core.RoleUser, Parts: []core.Part{core.TextPart{Text: sb.String()}}},
		},
		MaxOutputTokens: c.opts.SummaryMaxTokens,
	}
}

func writeTranscriptLine(sb *strings.Builder, m core.Message) {
	switch m.Role() {
	case core.RoleUser:
		fmt.Fprintf(sb, "Asociado: %s\n", m.Text())
	case core.RoleAssistant:
		if text := strings.TrimSpace(m.Text()); text != "" {
			fmt.Fprintf(sb, "Asistente (%s): %s\n", m.Author, text)
		}

		for _, fc := range m.FunctionCalls() {
			fmt.Fprintf(sb, "Asistente (%s) llamó %s %s\n", m.Author, fc.Name, fc.Arguments)
		}
	case core.RoleTool:
		for _, fr := range m.FunctionResponses() {
			fmt.Fprintf(sb, "Resultado de %s: %s\n", fr.Name, model.RenderToolResult(fr))
		}
	}
}
