package diag

import "github.com/google/uuid"

// NewRunID returns a fresh correlation id for one facade call, threaded
// through every log line that call produces.
func NewRunID() uuid.UUID {
	return uuid.New()
}
