package logging

import (
	"fmt"
	"io"
	"os"
	"regexp"
	"time"

	"github.com/rs/zerolog"
)

// Config configures the zerolog backend built by New.
type Config struct {
	Level  string    // debug, info, warn, error
	Format string    // json or console
	Output io.Writer // defaults to os.Stderr
	Redact bool      // mask secrets and verification codes
}

// ZerologAdapter implements Logger on top of zerolog.
type ZerologAdapter struct {
	logger zerolog.Logger
}

// NewZerologAdapter wraps an existing zerolog.Logger.
func NewZerologAdapter(l zerolog.Logger) *ZerologAdapter {
	return &ZerologAdapter{logger: l}
}

// New builds a zerolog-backed Logger from cfg. Unknown levels fall back to info.
func New(cfg Config) (*ZerologAdapter, error) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}

	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	if cfg.Redact {
		out = NewRedactor().Wrap(out)
	}

	switch cfg.Format {
	case "", "json":
	case "console":
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}

	l := zerolog.New(out).Level(level).With().Timestamp().Logger()

	return NewZerologAdapter(l), nil
}

// Debug logs a debug message.
func (z *ZerologAdapter) Debug(msg string, args ...any) { z.emit(z.logger.Debug(), msg, args) }

// Info logs an informational message.
func (z *ZerologAdapter) Info(msg string, args ...any) { z.emit(z.logger.Info(), msg, args) }

// Warn logs a warning message.
func (z *ZerologAdapter) Warn(msg string, args ...any) { z.emit(z.logger.Warn(), msg, args) }

// Error logs an error message.
func (z *ZerologAdapter) Error(msg string, args ...any) { z.emit(z.logger.Error(), msg, args) }

func (z *ZerologAdapter) emit(ev *zerolog.Event, msg string, args []any) {
	if ev == nil {
		return
	}

	for i := 0; i < len(args); i += 2 {
		key, ok := args[i].(string)
		if !ok {
			key = fmt.Sprint(args[i])
		}

		if i+1 >= len(args) {
			ev = ev.Str("!BADKEY", key)
			break
		}

		switch v := args[i+1].(type) {
		case error:
			ev = ev.AnErr(key, v)
		case time.Duration:
			ev = ev.Dur(key, v)
		default:
			ev = ev.Interface(key, v)
		}
	}

	ev.Msg(msg)
}

// Redactor masks sensitive values in log output.
type Redactor struct {
	rules []redaction
}

type redaction struct {
	re   *regexp.Regexp
	repl string
}

// NewRedactor creates a redactor for API keys, bearer tokens and
// verification codes passed as structured fields.
func NewRedactor() *Redactor {
	return &Redactor{
		rules: []redaction{
			{re: regexp.MustCompile(`sk-ant-[a-zA-Z0-9_-]{20,}`), repl: "[REDACTED]"},
			{re: regexp.MustCompile(`sk-[a-zA-Z0-9_-]{20,}`), repl: "[REDACTED]"},
			{re: regexp.MustCompile(`Bearer\s+[a-zA-Z0-9._-]+`), repl: "Bearer [REDACTED]"},
			{re: regexp.MustCompile(`"(code|codigo)":"[^"]*"`), repl: `"$1":"[REDACTED]"`},
		},
	}
}

// Redact masks every configured pattern in s.
func (r *Redactor) Redact(s string) string {
	for _, rule := range r.rules {
		s = rule.re.ReplaceAllString(s, rule.repl)
	}

	return s
}

// Wrap returns a writer that redacts before writing to w.
func (r *Redactor) Wrap(w io.Writer) io.Writer {
	return &redactingWriter{w: w, r: r}
}

type redactingWriter struct {
	w io.Writer
	r *Redactor
}

func (rw *redactingWriter) Write(p []byte) (int, error) {
	if _, err := rw.w.Write([]byte(rw.r.Redact(string(p)))); err != nil {
		return 0, err
	}

	return len(p), nil
}
