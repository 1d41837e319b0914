// Package report provides Reporter implementations for progress and error
// narration.
package report

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/jzx17/gojobs/pkg/types"
)

// LogReporter forwards reports to a structured logger
type LogReporter struct {
	logger *slog.Logger
}

// NewLogReporter creates a reporter backed by logger, or slog.Default()
func NewLogReporter(logger *slog.Logger) *LogReporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogReporter{logger: logger}
}

// Report logs message at info level, or error level when isError is set
func (r *LogReporter) Report(message string, isError bool) {
	if isError {
		r.logger.Error(message)
		return
	}
	r.logger.Info(message)
}

// Discard ignores every report
var Discard types.Reporter = types.ReporterFunc(func(string, bool) {})

// TerminalReporter keeps progress on a single rewritten line and prints
// errors on their own line so they stay visible
type TerminalReporter struct {
	mu    sync.Mutex
	out   io.Writer
	width int
}

// NewTerminalReporter writes to out, truncating progress lines to width
// columns (0 means 70)
func NewTerminalReporter(out io.Writer, width int) *TerminalReporter {
	if width <= 0 {
		width = 70
	}
	return &TerminalReporter{out: out, width: width}
}

// Report implements types.Reporter
func (r *TerminalReporter) Report(message string, isError bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if isError {
		_, _ = fmt.Fprintf(r.out, "\r%s\rERROR: %s\n", strings.Repeat(" ", r.width), message)
		return
	}
	_, _ = fmt.Fprintf(r.out, "\r%-*s", r.width, truncate(message, r.width))
}

// truncate cuts s to at most n runes
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

// Multi fans every report out to each reporter in order
func Multi(reporters ...types.Reporter) types.Reporter {
	return types.ReporterFunc(func(message string, isError bool) {
		for _, r := range reporters {
			if r != nil {
				r.Report(message, isError)
			}
		}
	})
}

// ErrorsOnly forwards error reports to r and drops progress
func ErrorsOnly(r types.Reporter) types.Reporter {
	r = OrDiscard(r)
	return types.ReporterFunc(func(message string, isError bool) {
		if isError {
			r.Report(message, true)
		}
	})
}

// OrDiscard returns r, or Discard when r is nil
func OrDiscard(r types.Reporter) types.Reporter {
	if r == nil {
		return Discard
	}
	return r
}
