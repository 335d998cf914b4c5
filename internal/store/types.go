package store

import (
	"context"
	"log/slog"

	"github.com/rickgao/l2replay/internal/catalog"
	"github.com/rickgao/l2replay/internal/diag"
	"github.com/rickgao/l2replay/internal/model"
	"github.com/rickgao/l2replay/internal/replay"
)

// ScanParams prunes an updates scan down to the partitions (and, within
// them, the rows) a replay call actually needs.
type ScanParams struct {
	Exchange   string
	ExchangeID int16

	// SymbolID nil scans every symbol partition under the date range —
	// the shape BuildStateCheckpoints needs; single-symbol calls always
	// set it.
	SymbolID *int64

	StartDate      int32 // days since Unix epoch, inclusive
	EndDate        int32 // days since Unix epoch, inclusive
	MaxTSInclusive int64

	// MinPosExclusive, when set, drops every row at or before this
	// position — the resume-from-checkpoint predicate (spec.md §4.5).
	MinPosExclusive *model.StreamPos

	// AssumeSorted skips the in-memory sort of the scanned rows, for
	// callers that already know their source files are written in
	// stream-position order.
	AssumeSorted bool
}

// UpdatesSource is the external-source adapter contract (spec.md §4.6):
// something that can produce update rows, in global stream-position
// order, pruned to a window.
type UpdatesSource interface {
	Scan(ctx context.Context, params ScanParams) (replay.Source[model.CheckpointMeta], error)
}

// CheckpointStore reads the most recent durable checkpoint at or before a
// point in time, and writes new checkpoint rows idempotently.
type CheckpointStore interface {
	LatestCheckpoint(ctx context.Context, exchange string, exchangeID int16, symbolID int64, tsLocalUS int64) (*model.Checkpoint, error)
	WriteCheckpointRows(ctx context.Context, rows []model.CheckpointRow) (int, error)
}

// ParquetStore is the Hive-partitioned-directory implementation of both
// UpdatesSource and CheckpointStore.
type ParquetStore struct {
	updatesRoot     string
	checkpointsRoot string
	concurrency     int
	logger          *slog.Logger
	catalog         catalog.Catalog
	timing          *diag.Timing
	schemaPrinter   *diag.SchemaPrinter
}

// Option configures a ParquetStore.
type Option func(*ParquetStore)

// WithConcurrency bounds how many partition files Scan reads in parallel.
// The default is 4.
func WithConcurrency(n int) Option {
	return func(s *ParquetStore) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithLogger attaches a logger; nil falls back to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *ParquetStore) { s.logger = logger }
}

// WithCatalog attaches an optional accelerator for LatestCheckpoint and
// WriteCheckpointRows. Leaving it unset (or passing nil) falls back to
// plain filesystem directory scans — the catalog never gates correctness.
func WithCatalog(c catalog.Catalog) Option {
	return func(s *ParquetStore) { s.catalog = c }
}

// WithTiming attaches phase timers (POINTLINE_L2_TIMING-gated) around
// Scan and LatestCheckpoint. Nil (the default) disables timing entirely.
func WithTiming(t *diag.Timing) Option {
	return func(s *ParquetStore) { s.timing = t }
}

// WithSchemaPrinter attaches a one-shot schema print (POINTLINE_L2_DEBUG-
// gated) of the first updates batch a Scan decodes.
func WithSchemaPrinter(p *diag.SchemaPrinter) Option {
	return func(s *ParquetStore) { s.schemaPrinter = p }
}

func (s *ParquetStore) phase(label string) func() {
	if s.timing == nil {
		return func() {}
	}
	return s.timing.Phase(label)
}

// NewParquetStore builds a store rooted at updatesRoot (for Scan) and
// checkpointsRoot (for the checkpoint table). Either may be empty if the
// caller never exercises that half of the interface.
func NewParquetStore(updatesRoot, checkpointsRoot string, opts ...Option) *ParquetStore {
	s := &ParquetStore{
		updatesRoot:     updatesRoot,
		checkpointsRoot: checkpointsRoot,
		concurrency:     4,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}
