package facade

import (
	"log/slog"

	"github.com/rickgao/l2replay/internal/progress"
	"github.com/rickgao/l2replay/internal/store"
)

// Deps are the collaborators every façade call is wired against. A caller
// builds one Deps (typically from cmd/l2replay's config-driven setup) and
// reuses it across calls; each call still owns its own Book/state.
type Deps struct {
	Updates     store.UpdatesSource
	Checkpoints store.CheckpointStore
	Logger      *slog.Logger

	// Progress, when set, receives frames during BuildStateCheckpoints.
	// Nil is the default and fully supported — the feed is observational.
	Progress *progress.Broadcaster
}

func (d Deps) logger() *slog.Logger {
	if d.Logger == nil {
		return slog.Default()
	}
	return d.Logger
}

// BookParams selects sparse or dense book storage. The zero value means
// sparse; setting any field switches to a bounded dense array, matching
// config.DenseBookConfig.Enabled()'s all-or-nothing convention.
type BookParams struct {
	DenseMinPriceInt int64
	DenseMaxPriceInt int64
	DenseTickSizeInt int64
}

func (p BookParams) enabled() bool {
	return p.DenseMinPriceInt != 0 || p.DenseMaxPriceInt != 0 || p.DenseTickSizeInt != 0
}
