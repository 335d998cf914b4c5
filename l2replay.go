// Package l2replay reconstructs L2 order-book state from a partitioned
// stream of updates. It re-exports internal/facade's three store-backed
// entry points (SnapshotAt, ReplayBetween, BuildStateCheckpoints) plus the
// in-memory callback API (Replay) as the module's public surface.
package l2replay

import (
	"context"
	"iter"

	"github.com/apache/arrow-go/v18/arrow"

	"github.com/rickgao/l2replay/internal/book"
	"github.com/rickgao/l2replay/internal/facade"
	"github.com/rickgao/l2replay/internal/model"
	"github.com/rickgao/l2replay/internal/progress"
	"github.com/rickgao/l2replay/internal/store"
)

// Deps are the collaborators every call below is wired against.
type Deps = facade.Deps

// BookParams selects sparse (the zero value) or dense book storage.
type BookParams = facade.BookParams

// UpdatesSource and CheckpointStore are the two collaborator interfaces a
// Deps value is built from; store.ParquetStore implements both.
type UpdatesSource = store.UpdatesSource
type CheckpointStore = store.CheckpointStore

// Snapshot is the book state returned by SnapshotAt.
type Snapshot = model.Snapshot

// Level is one price/size pair.
type Level = model.Level

// Update is one incremental book change, or one row of a full-book
// re-send when IsSnapshot is true.
type Update = model.L2Update

// Book is the read-only view of book state a Replay callback observes.
type Book = book.Book

// StreamPos totally orders updates in the global stream.
type StreamPos = model.StreamPos

// Broadcaster fans progress frames from BuildStateCheckpoints out to any
// number of websocket subscribers.
type Broadcaster = progress.Broadcaster

// Progress is one frame published during a BuildStateCheckpoints run.
type Progress = progress.Frame

// ErrNoCadence is returned by ReplayBetween and BuildStateCheckpoints when
// neither EveryUS nor EveryUpdates is set to a positive value.
var ErrNoCadence = facade.ErrNoCadence

// ErrExchangeRequired is returned by BuildStateCheckpoints when Exchange
// is left empty.
var ErrExchangeRequired = facade.ErrExchangeRequired

// NewParquetStore builds a store.ParquetStore, the Hive-partitioned
// implementation of both UpdatesSource and CheckpointStore.
func NewParquetStore(updatesRoot, checkpointsRoot string, opts ...store.Option) *store.ParquetStore {
	return store.NewParquetStore(updatesRoot, checkpointsRoot, opts...)
}

// SnapshotAtParams selects the symbol and point in time to reconstruct.
type SnapshotAtParams = facade.SnapshotAtParams

// SnapshotAt reconstructs book state at a single point in time.
func SnapshotAt(ctx context.Context, deps Deps, params SnapshotAtParams) (Snapshot, error) {
	return facade.SnapshotAt(ctx, deps, params)
}

// ReplayBetweenParams selects the symbol and window to replay.
type ReplayBetweenParams = facade.ReplayBetweenParams

// ReplayBetween emits one row per cadence-triggered timestamp group
// across a time window, as an Arrow record matching columnar.ReplaySchema.
func ReplayBetween(ctx context.Context, deps Deps, params ReplayBetweenParams) (arrow.Record, error) {
	return facade.ReplayBetween(ctx, deps, params)
}

// BuildStateCheckpointsParams selects the scope of a bulk checkpoint
// rebuild.
type BuildStateCheckpointsParams = facade.BuildStateCheckpointsParams

// BuildStateCheckpoints performs a bulk replay over a date range and
// writes checkpoint rows to the configured CheckpointStore.
func BuildStateCheckpoints(ctx context.Context, deps Deps, params BuildStateCheckpointsParams) (int, error) {
	return facade.BuildStateCheckpoints(ctx, deps, params)
}

// OnUpdate observes book state at the moment a Replay group closes.
type OnUpdate = facade.OnUpdate

// ReplayParams configures the in-memory callback-based Replay call.
type ReplayParams = facade.ReplayParams

// Replay drives an in-memory update sequence through a single book,
// without touching any UpdatesSource or CheckpointStore.
func Replay(updates iter.Seq[Update], params ReplayParams) error {
	return facade.Replay(updates, params)
}

// ReplaySlice is a convenience wrapper over Replay for callers holding a
// plain slice rather than an iterator.
func ReplaySlice(updates []Update, params ReplayParams) error {
	return facade.ReplaySlice(updates, params)
}
