// Package progress broadcasts observational frames for long-running
// build_state_checkpoints calls to any number of websocket subscribers.
// It is purely observational: a Broadcaster with zero subscribers is a
// correctly functioning no-op, and nothing downstream of a replay call
// ever waits on it.
package progress
