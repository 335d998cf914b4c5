// Package facade wires internal/store and internal/replay into the public
// API named in spec.md §4.7: SnapshotAt, ReplayBetween,
// BuildStateCheckpoints, plus the callback-based Replay retained from the
// original source's replay.rs. Each call builds its own Book and hands it
// to replay.Run, which holds that call's SnapshotReset and CadenceState —
// every call below is independent and shares no mutable state with any
// other.
package facade
