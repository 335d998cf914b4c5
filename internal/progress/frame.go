package progress

import "github.com/google/uuid"

// Frame is one JSON progress update pushed to subscribers during a bulk
// build_state_checkpoints run.
type Frame struct {
	RunID             uuid.UUID `json:"run_id"`
	RowsScanned       int64     `json:"rows_scanned"`
	RowsWritten       int64     `json:"rows_written"`
	PartitionsTouched int64     `json:"partitions_touched"`
}
