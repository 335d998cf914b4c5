package replay

import (
	"fmt"

	"github.com/rickgao/l2replay/internal/book"
	"github.com/rickgao/l2replay/internal/model"
)

// OrderViolationError is returned by Run when ValidateMonotonic is set and
// two consecutive updates are not in non-decreasing stream-position order.
type OrderViolationError struct {
	Previous model.StreamPos
	Current  model.StreamPos
}

func (e *OrderViolationError) Error() string {
	return fmt.Sprintf("replay: updates out of order: previous=%+v current=%+v", e.Previous, e.Current)
}

// Item pairs one update with whatever per-row metadata its source carries
// alongside it. BuildStateCheckpoints scans a multi-symbol stream and needs
// each row's (exchange_id, symbol_id). SnapshotAt and ReplayBetween scan
// one symbol at a time but run over the same model.CheckpointMeta items
// the store yields; only the Replay callback API carries no extra
// metadata (M = struct{}).
type Item[M any] struct {
	Update model.L2Update
	Meta   M
}

// Source yields Items in strictly non-decreasing stream-position order
// (enforced by Run when Options.ValidateMonotonic is set). Next returns
// ok == false once exhausted.
type Source[M any] interface {
	Next() (item Item[M], ok bool, err error)
}

// SliceSource adapts a pre-materialized, already-ordered slice of Items
// into a Source, for callers (store.ParquetStore.Scan) that read and sort
// an entire bounded scan window up front.
type SliceSource[M any] struct {
	items []Item[M]
	idx   int
}

// NewSliceSource wraps items, which must already be in the order Run
// should see them.
func NewSliceSource[M any](items []Item[M]) *SliceSource[M] {
	return &SliceSource[M]{items: items}
}

func (s *SliceSource[M]) Next() (Item[M], bool, error) {
	if s.idx >= len(s.items) {
		var zero Item[M]
		return zero, false, nil
	}
	item := s.items[s.idx]
	s.idx++
	return item, true, nil
}

// Emitter receives a read-only view of the book at the moment a group
// closes. meta is the metadata of the last update folded into b — the row
// that established pos.
type Emitter[M any] func(b book.Book, pos model.StreamPos, meta M) error

// Options configures one Run of the replay driver.
type Options[M any] struct {
	ValidateMonotonic bool
	EveryUS           *int64
	EveryUpdates      *uint64

	// ShouldCount reports whether an update counts toward the
	// count-based cadence trigger. Nil counts every update
	// (the Replay/BuildStateCheckpoints shape); ReplayBetween supplies a
	// filter so updates before its window's start don't count.
	ShouldCount func(u model.L2Update) bool

	// ShouldEmit gates whether a closed group is actually emitted. It is
	// checked before the cadence, so a group it rejects neither emits nor
	// advances the cadence state. Nil always emits.
	// ReplayBetween uses this to suppress emissions for groups that
	// closed entirely before its window's start.
	ShouldEmit func(pos model.StreamPos) bool

	// SkipUpdate drops a row before it reaches the book or the cadence
	// counters at all, as BuildStateCheckpoints does for rows outside its
	// [start_ts, end_ts] window.
	SkipUpdate func(u model.L2Update) bool
}

func (o Options[M]) shouldCount(u model.L2Update) bool {
	if o.ShouldCount == nil {
		return true
	}
	return o.ShouldCount(u)
}

func (o Options[M]) shouldEmit(pos model.StreamPos) bool {
	if o.ShouldEmit == nil {
		return true
	}
	return o.ShouldEmit(pos)
}

func (o Options[M]) skipUpdate(u model.L2Update) bool {
	if o.SkipUpdate == nil {
		return false
	}
	return o.SkipUpdate(u)
}

// Run drives b through every Item in src, calling onSnapshot when a
// snapshot group closes and onCheckpoint whenever cadence fires for a
// closed timestamp group, then performs one final emission check for the
// last group after src is exhausted. Both callbacks may be nil.
func Run[M any](b book.Book, src Source[M], opts Options[M], onSnapshot, onCheckpoint Emitter[M]) error {
	var reset SnapshotReset
	var cadence CadenceState

	var snapshotPos model.StreamPos
	var hasSnapshotPos bool

	var lastPos model.StreamPos
	var hasLastPos bool
	var lastMeta M
	var hasPrevKey bool
	var prevKey model.StreamPos

	for {
		item, ok, err := src.Next()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		u := item.Update

		currentKey := u.Pos()
		if opts.ValidateMonotonic {
			if hasPrevKey && currentKey.Less(prevKey) {
				return &OrderViolationError{Previous: prevKey, Current: currentKey}
			}
			prevKey = currentKey
			hasPrevKey = true
		}

		if opts.skipUpdate(u) {
			continue
		}

		if hasLastPos && u.TSLocalUS != lastPos.TSLocalUS {
			if err := emitGroup(b, lastPos, lastMeta, hasSnapshotPos, snapshotPos, &cadence, opts, onSnapshot, onCheckpoint); err != nil {
				return err
			}
			hasSnapshotPos = false
		}

		if err := reset.Apply(b, u); err != nil {
			return err
		}

		pos := u.Pos()
		if u.IsSnapshot {
			snapshotPos = pos
			hasSnapshotPos = true
		} else {
			// A non-snapshot row closes any open snapshot group immediately,
			// even within the same ts_local_us, so a later boundary crossing
			// never re-surfaces a group that already closed.
			hasSnapshotPos = false
		}

		cadence.RecordUpdate(opts.shouldCount(u))
		lastPos = pos
		hasLastPos = true
		lastMeta = item.Meta
	}

	if hasLastPos {
		if err := emitGroup(b, lastPos, lastMeta, hasSnapshotPos, snapshotPos, &cadence, opts, onSnapshot, onCheckpoint); err != nil {
			return err
		}
	}
	return nil
}

func emitGroup[M any](
	b book.Book,
	pos model.StreamPos,
	meta M,
	hasSnapshotPos bool,
	snapshotPos model.StreamPos,
	cadence *CadenceState,
	opts Options[M],
	onSnapshot, onCheckpoint Emitter[M],
) error {
	if hasSnapshotPos && onSnapshot != nil {
		if err := onSnapshot(b, snapshotPos, meta); err != nil {
			return err
		}
	}

	if opts.shouldEmit(pos) && cadence.ShouldEmit(pos.TSLocalUS, opts.EveryUS, opts.EveryUpdates) {
		if onCheckpoint != nil {
			if err := onCheckpoint(b, pos, meta); err != nil {
				return err
			}
		}
	}
	return nil
}
