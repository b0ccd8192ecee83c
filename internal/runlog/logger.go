// Package runlog provides structured JSON logging for pipeline runs.
package runlog

import (
	"io"
	"os"
	"strings"
	"time"
	"unicode"

	"github.com/rs/zerolog"
)

// sanitizeString strips control characters and ANSI escape sequences before
// logging. Registry entry names, descriptions, and URLs are
// publisher-controlled: a crafted value must not be able to clear or
// repaint the terminal of whoever tails the run log.
func sanitizeString(s string) string {
	// Fast path: most strings have no control characters.
	clean := true
	for _, r := range s {
		if r != '\t' && r != '\n' && (unicode.IsControl(r) || r == '\x1b') {
			clean = false
			break
		}
	}
	if clean {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))
	inEscape := false
	for _, r := range s {
		if inEscape {
			// ANSI escape sequences end with a letter.
			if (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') {
				inEscape = false
			}
			continue
		}
		if r == '\x1b' {
			inEscape = true
			continue
		}
		if r != '\t' && r != '\n' && unicode.IsControl(r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Logger handles structured run logging using zerolog.
type Logger struct {
	zl         zerolog.Logger
	fileHandle *os.File // non-nil if logging to file
}

// New creates a run logger. The caller should call Close when done.
func New(format, output, filePath string) (*Logger, error) {
	var writers []io.Writer

	if output == "stdout" || output == "both" {
		if format == "text" {
			writers = append(writers, zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
		} else {
			writers = append(writers, os.Stdout)
		}
	}

	var fileHandle *os.File
	if output == "file" || output == "both" {
		f, err := os.OpenFile(filePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600) //nolint:gosec // G304: path validated by config layer
		if err != nil {
			return nil, err
		}
		writers = append(writers, f)
		fileHandle = f
	}

	if len(writers) == 0 {
		writers = append(writers, os.Stdout)
	}

	var w io.Writer
	if len(writers) == 1 {
		w = writers[0]
	} else {
		w = zerolog.MultiLevelWriter(writers...)
	}

	zl := zerolog.New(w).With().
		Timestamp().
		Str("component", "scorecard").
		Logger()

	return &Logger{zl: zl, fileHandle: fileHandle}, nil
}

// NewNop returns a no-op logger that discards all events.
func NewNop() *Logger {
	return &Logger{zl: zerolog.Nop()}
}

// Close releases the log file handle, if any.
func (l *Logger) Close() error {
	if l.fileHandle != nil {
		return l.fileHandle.Close()
	}
	return nil
}

// RunStart logs the beginning of a pipeline run.
func (l *Logger) RunStart(runID string, entryCount int, authenticated bool) {
	l.zl.Info().
		Str("event", "run_start").
		Str("run_id", runID).
		Int("entries", entryCount).
		Bool("authenticated", authenticated).
		Msg("run started")
}

// Stage logs a pipeline stage transition.
func (l *Logger) Stage(name string) {
	l.zl.Info().
		Str("event", "stage").
		Str("stage", name).
		Msg("stage started")
}

// LookupOK logs one successful repository enrichment.
func (l *Logger) LookupOK(entry, owner, repo string, duration time.Duration) {
	l.zl.Debug().
		Str("event", "lookup_ok").
		Str("entry", sanitizeString(entry)).
		Str("repo", sanitizeString(owner+"/"+repo)).
		Dur("duration_ms", duration).
		Msg("repository enriched")
}

// LookupFailed logs a failed lookup with its classified error kind. The
// entry still proceeds to scoring with unknown signals.
func (l *Logger) LookupFailed(entry, kind string, err error) {
	l.zl.Warn().
		Str("event", "lookup_failed").
		Str("entry", sanitizeString(entry)).
		Str("kind", kind).
		Err(err).
		Msg("lookup failed, signals unknown")
}

// BudgetWait logs a lookup that had to wait on the shared call budget.
func (l *Logger) BudgetWait(entry string, wait time.Duration) {
	l.zl.Debug().
		Str("event", "budget_wait").
		Str("entry", sanitizeString(entry)).
		Dur("wait_ms", wait).
		Msg("waited for call budget")
}

// CacheHit logs a fresh cache entry being reused instead of spending budget.
func (l *Logger) CacheHit(entry string) {
	l.zl.Debug().
		Str("event", "cache_hit").
		Str("entry", sanitizeString(entry)).
		Msg("cache hit")
}

// EntryInvalid logs a malformed snapshot entry excluded from scoring.
func (l *Logger) EntryInvalid(position int, reason string) {
	l.zl.Warn().
		Str("event", "entry_invalid").
		Int("position", position).
		Str("reason", sanitizeString(reason)).
		Msg("entry excluded")
}

// DeadlineReached logs the run ceiling firing with lookups still pending.
func (l *Logger) DeadlineReached(pending int) {
	l.zl.Warn().
		Str("event", "deadline").
		Int("pending", pending).
		Msg("run ceiling reached, remaining entries marked unknown")
}

// RunComplete logs the end of a run.
func (l *Logger) RunComplete(runID string, scored, flagged int, elapsed time.Duration) {
	l.zl.Info().
		Str("event", "run_complete").
		Str("run_id", runID).
		Int("scored", scored).
		Int("flagged", flagged).
		Dur("elapsed_ms", elapsed).
		Msg("run complete")
}

// Fatal logs a run-fatal error (scoring invariant violations and the like).
func (l *Logger) Fatal(err error) {
	l.zl.Error().
		Str("event", "fatal").
		Err(err).
		Msg("run failed")
}
