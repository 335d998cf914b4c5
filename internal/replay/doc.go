// Package replay implements the boundary-atomic update-folding algorithm
// shared by every replay entry point: SnapshotAt, ReplayBetween, Replay,
// and BuildStateCheckpoints all drive the same Run loop, parameterized by
// what triggers emission and what per-row metadata travels alongside an
// update.
//
// The core invariant (spec P1/P2): all updates sharing a ts_local_us apply
// to the book before any emission considered for that timestamp happens.
// Run detects the boundary by comparing the incoming update's timestamp to
// the previous update's, emits for the timestamp that just closed, then
// applies the incoming update. A final emission check runs once after the
// source is exhausted, for the last open group.
package replay
