package diag

import (
	"context"
	"log/slog"
	"os"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// TimingEnvVar gates phase timing output. Unset, Timing is a no-op.
const TimingEnvVar = "POINTLINE_L2_TIMING"

func timingEnabled() bool {
	return os.Getenv(TimingEnvVar) != ""
}

// Timing records named phase timers for one run and logs them at Debug
// level when POINTLINE_L2_TIMING is set. It is safe for use by a single
// goroutine at a time, matching how a single replay call drives it.
type Timing struct {
	enabled bool
	logger  *slog.Logger
	printer *message.Printer
	runID   string
}

// NewTiming builds a Timing bound to runID, reading the gating env var
// once at construction.
func NewTiming(logger *slog.Logger, runID string) *Timing {
	if logger == nil {
		logger = slog.Default()
	}
	return &Timing{
		enabled: timingEnabled(),
		logger:  logger,
		printer: message.NewPrinter(language.English),
		runID:   runID,
	}
}

// Enabled reports whether timing output is active for this run.
func (t *Timing) Enabled() bool {
	return t != nil && t.enabled
}

// Phase times a single labeled section. Call the returned func when the
// section completes; it logs nothing unless timing is enabled.
func (t *Timing) Phase(label string) func() {
	if !t.Enabled() {
		return func() {}
	}
	start := time.Now()
	return func() {
		t.logger.Debug("l2replay timing", "run_id", t.runID, "phase", label, "elapsed", time.Since(start))
	}
}

// LogThroughput logs a comma-grouped rows-processed/elapsed figure for a
// completed phase, e.g. "replay_between processed 1,204,330 rows in 842ms".
func (t *Timing) LogThroughput(ctx context.Context, label string, rows int, elapsed time.Duration) {
	if !t.Enabled() {
		return
	}
	msg := t.printer.Sprintf("%s processed %d rows in %s", label, rows, elapsed)
	t.logger.DebugContext(ctx, msg, "run_id", t.runID, "phase", label, "rows", rows, "elapsed", elapsed)
}
