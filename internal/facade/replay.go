package facade

import (
	"fmt"
	"iter"

	"github.com/rickgao/l2replay/internal/book"
	"github.com/rickgao/l2replay/internal/model"
	"github.com/rickgao/l2replay/internal/replay"
)

// OnUpdate is called with a read-only view of the book at the moment a
// group closes. Both OnSnapshot and OnCheckpoint use this shape; either
// may be nil.
type OnUpdate func(b book.Book, pos model.StreamPos) error

// ReplayParams configures the callback-based Replay entry point, the
// closest match in this package to the original source's replay.rs
// function: no store, no checkpoint seeding, no columnar output — just an
// in-memory update sequence folded through one book with two optional
// observer callbacks.
type ReplayParams struct {
	EveryUS      *int64
	EveryUpdates *uint64

	ValidateMonotonic bool

	Book BookParams

	OnSnapshot   OnUpdate
	OnCheckpoint OnUpdate
}

// sourceFromSeq adapts an iter.Seq[model.L2Update] to a replay.Source so
// Replay can drive it through the same Run loop as every other entry
// point, without materializing the sequence into a slice first.
type sourceFromSeq struct {
	next func() (model.L2Update, bool)
	stop func()
}

func newSourceFromSeq(seq iter.Seq[model.L2Update]) *sourceFromSeq {
	next, stop := iter.Pull(seq)
	return &sourceFromSeq{next: next, stop: stop}
}

func (s *sourceFromSeq) Next() (replay.Item[struct{}], bool, error) {
	u, ok := s.next()
	if !ok {
		return replay.Item[struct{}]{}, false, nil
	}
	return replay.Item[struct{}]{Update: u}, true, nil
}

// Replay drives updates through a single in-memory book, invoking
// OnSnapshot whenever a snapshot group closes and OnCheckpoint whenever
// cadence fires for a closed timestamp group. It does not touch a
// store.UpdatesSource or store.CheckpointStore at all: callers that want
// checkpoint seeding or partitioned scanning should use SnapshotAt or
// ReplayBetween instead.
func Replay(updates iter.Seq[model.L2Update], params ReplayParams) error {
	b, err := newBook(params.Book, nil)
	if err != nil {
		return fmt.Errorf("facade: replay: %w", err)
	}

	src := newSourceFromSeq(updates)
	defer src.stop()

	var onSnapshot, onCheckpoint replay.Emitter[struct{}]
	if params.OnSnapshot != nil {
		onSnapshot = func(b book.Book, pos model.StreamPos, _ struct{}) error {
			return params.OnSnapshot(b, pos)
		}
	}
	if params.OnCheckpoint != nil {
		onCheckpoint = func(b book.Book, pos model.StreamPos, _ struct{}) error {
			return params.OnCheckpoint(b, pos)
		}
	}

	opts := replay.Options[struct{}]{
		ValidateMonotonic: params.ValidateMonotonic,
		EveryUS:           params.EveryUS,
		EveryUpdates:      params.EveryUpdates,
	}

	if err := replay.Run(b, src, opts, onSnapshot, onCheckpoint); err != nil {
		return fmt.Errorf("facade: replay: %w", err)
	}
	return nil
}

// ReplaySlice is a convenience wrapper over Replay for callers holding a
// plain slice rather than an iterator.
func ReplaySlice(updates []model.L2Update, params ReplayParams) error {
	return Replay(func(yield func(model.L2Update) bool) {
		for _, u := range updates {
			if !yield(u) {
				return
			}
		}
	}, params)
}
