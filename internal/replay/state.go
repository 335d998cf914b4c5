package replay

import (
	"github.com/rickgao/l2replay/internal/book"
	"github.com/rickgao/l2replay/internal/model"
)

// snapshotGroupKey identifies a run of full-book re-send rows that belong
// to the same reset: (ts_local_us, file_id). A full book reset happens
// once on the first row of a new group, not on every row within it.
type snapshotGroupKey struct {
	tsLocalUS int64
	fileID    int32
}

// SnapshotReset tracks the currently-open snapshot group (if any) and
// applies one update to a book, resetting the book exactly once per group.
type SnapshotReset struct {
	key    snapshotGroupKey
	hasKey bool
}

// Apply folds u into b, resetting b when u opens a new snapshot group.
// Non-snapshot rows close any open group.
func (r *SnapshotReset) Apply(b book.Book, u model.L2Update) error {
	if u.IsSnapshot {
		key := snapshotGroupKey{tsLocalUS: u.TSLocalUS, fileID: u.FileID}
		if !r.hasKey || r.key != key {
			b.Reset()
			r.key = key
			r.hasKey = true
		}
	} else {
		r.hasKey = false
	}
	return b.ApplyUpdate(u)
}

// CadenceState tracks how long it has been, in both wall-clock stream time
// and update count, since the last emission.
type CadenceState struct {
	lastEmitTS       int64
	hasLastEmitTS    bool
	updatesSinceEmit uint64
}

// RecordUpdate advances the update counter when shouldCount is true. Some
// call sites (ReplayBetween) only count updates at or after the window's
// start so cadence doesn't fire early off rows used solely to seed state.
func (c *CadenceState) RecordUpdate(shouldCount bool) {
	if shouldCount {
		c.updatesSinceEmit++
	}
}

// ShouldEmit reports whether cadence fires for the group closing at posTS,
// given a time-based interval, a count-based interval, or both (either one
// firing is sufficient). A nil bound disables that trigger. On firing, it
// resets both counters against posTS.
func (c *CadenceState) ShouldEmit(posTS int64, everyUS *int64, everyUpdates *uint64) bool {
	if !c.hasLastEmitTS {
		c.lastEmitTS = posTS
		c.hasLastEmitTS = true
	}

	emit := false
	if everyUS != nil && posTS-c.lastEmitTS >= *everyUS {
		emit = true
	}
	if everyUpdates != nil && *everyUpdates > 0 && c.updatesSinceEmit >= *everyUpdates {
		emit = true
	}

	if emit {
		c.lastEmitTS = posTS
		c.updatesSinceEmit = 0
	}
	return emit
}
