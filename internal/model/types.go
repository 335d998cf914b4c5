package model

import "fmt"

// Side identifies which side of the book an update or level belongs to.
type Side uint8

const (
	SideBid Side = 0
	SideAsk Side = 1
)

// Valid reports whether s is a known side value.
func (s Side) Valid() bool {
	return s == SideBid || s == SideAsk
}

func (s Side) String() string {
	switch s {
	case SideBid:
		return "bid"
	case SideAsk:
		return "ask"
	default:
		return fmt.Sprintf("side(%d)", uint8(s))
	}
}

// L2Update is one incremental change to an aggregated price level, or one
// row of a full-book re-send when IsSnapshot is true. Values are immutable
// once decoded from a record batch.
type L2Update struct {
	TSLocalUS      int64
	IngestSeq      int32
	FileLineNumber int32
	FileID         int32
	IsSnapshot     bool
	Side           Side
	PriceInt       int64
	SizeInt        int64
}

// Pos extracts this update's position in the global stream.
func (u L2Update) Pos() StreamPos {
	return StreamPos{
		TSLocalUS:      u.TSLocalUS,
		IngestSeq:      u.IngestSeq,
		FileID:         u.FileID,
		FileLineNumber: u.FileLineNumber,
	}
}

// StreamPos totally orders updates lexicographically over
// (ts_local_us, ingest_seq, file_id, file_line_number). It uniquely
// identifies a single update in the global stream.
type StreamPos struct {
	TSLocalUS      int64
	IngestSeq      int32
	FileID         int32
	FileLineNumber int32
}

// Compare returns -1, 0, or 1 as p orders before, equal to, or after other.
func (p StreamPos) Compare(other StreamPos) int {
	if p.TSLocalUS != other.TSLocalUS {
		return cmpInt64(p.TSLocalUS, other.TSLocalUS)
	}
	if p.IngestSeq != other.IngestSeq {
		return cmpInt32(p.IngestSeq, other.IngestSeq)
	}
	if p.FileID != other.FileID {
		return cmpInt32(p.FileID, other.FileID)
	}
	return cmpInt32(p.FileLineNumber, other.FileLineNumber)
}

// Less reports whether p orders strictly before other.
func (p StreamPos) Less(other StreamPos) bool {
	return p.Compare(other) < 0
}

// AfterPredicate reports whether u is strictly greater than pos under the
// four-key lexicographic order (spec.md §4.5's resume-from-checkpoint
// predicate), for enforcement after source-level pushdown.
func AfterPredicate(u L2Update, pos StreamPos) bool {
	return u.Pos().Compare(pos) > 0
}

func cmpInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func cmpInt32(a, b int32) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// Level is one price/size pair as produced by Book.Levels or stored in a
// Checkpoint's bids/asks lists.
type Level struct {
	PriceInt int64
	SizeInt  int64
}

// CheckpointMeta carries the identity columns that travel alongside an
// update when scanning for a bulk checkpoint build, where exchange_id and
// symbol_id may vary row-to-row (unlike the single-symbol replay calls).
type CheckpointMeta struct {
	ExchangeID int16
	SymbolID   int64
}

// Checkpoint is a durable book state used to seed a later replay.
type Checkpoint struct {
	Pos  StreamPos
	Bids []Level
	Asks []Level
}

// Snapshot is the final book state returned by SnapshotAt.
type Snapshot struct {
	ExchangeID int16
	SymbolID   int64
	TSLocalUS  int64
	Bids       []Level
	Asks       []Level
}

// CheckpointRow is one emitted row of the durable checkpoint table,
// partitioned by (exchange, date).
type CheckpointRow struct {
	Exchange       string
	ExchangeID     int16
	SymbolID       int64
	DateDays       int32 // days since Unix epoch (date32)
	TSLocalUS      int64
	Bids           []Level
	Asks           []Level
	FileID         int32
	IngestSeq      int32
	FileLineNumber int32
	CheckpointKind string
}

// CheckpointKindPeriodic is the only checkpoint_kind value currently
// produced by BuildStateCheckpoints.
const CheckpointKindPeriodic = "periodic"

// PartitionKey identifies one checkpoint partition: the unit the store
// deletes-then-rewrites for an idempotent rebuild.
type PartitionKey struct {
	Exchange string
	DateDays int32
	SymbolID int64
}
