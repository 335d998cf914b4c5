package columnar

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/rickgao/l2replay/internal/model"
)

// appendLevels writes one row's worth of (price_int, size_int) pairs into
// a list<struct> builder: Append(true) opens the new list slot, then each
// level is pushed onto the struct's field builders.
func appendLevels(lb *array.ListBuilder, levels []model.Level) {
	lb.Append(true)
	sb := lb.ValueBuilder().(*array.StructBuilder)
	priceBuilder := sb.FieldBuilder(0).(*array.Int64Builder)
	sizeBuilder := sb.FieldBuilder(1).(*array.Int64Builder)
	for _, lvl := range levels {
		sb.Append(true)
		priceBuilder.Append(lvl.PriceInt)
		sizeBuilder.Append(lvl.SizeInt)
	}
}

// ReplayBatchBuilder accumulates ReplayBetween's emitted rows and finishes
// them into one Arrow record batch matching ReplaySchema.
type ReplayBatchBuilder struct {
	rb *array.RecordBuilder
	n  int
}

// NewReplayBatchBuilder allocates a builder for ReplaySchema using alloc,
// or memory.NewGoAllocator() if alloc is nil.
func NewReplayBatchBuilder(alloc memory.Allocator) *ReplayBatchBuilder {
	if alloc == nil {
		alloc = memory.NewGoAllocator()
	}
	return &ReplayBatchBuilder{rb: array.NewRecordBuilder(alloc, ReplaySchema)}
}

// Append adds one emitted book state to the batch.
func (b *ReplayBatchBuilder) Append(exchangeID int16, symbolID int64, pos model.StreamPos, bids, asks []model.Level) {
	rb := b.rb
	rb.Field(0).(*array.Int16Builder).Append(exchangeID)
	rb.Field(1).(*array.Int64Builder).Append(symbolID)
	rb.Field(2).(*array.Int64Builder).Append(pos.TSLocalUS)
	rb.Field(3).(*array.Int32Builder).Append(pos.IngestSeq)
	rb.Field(4).(*array.Int32Builder).Append(pos.FileLineNumber)
	rb.Field(5).(*array.Int32Builder).Append(pos.FileID)
	appendLevels(rb.Field(6).(*array.ListBuilder), bids)
	appendLevels(rb.Field(7).(*array.ListBuilder), asks)
	b.n++
}

// Len reports how many rows have been appended so far.
func (b *ReplayBatchBuilder) Len() int { return b.n }

// NewRecord finishes the batch. The builder must not be reused afterward.
func (b *ReplayBatchBuilder) NewRecord() arrow.Record {
	return b.rb.NewRecord()
}

// Release frees the builder's underlying buffers.
func (b *ReplayBatchBuilder) Release() { b.rb.Release() }

// BuildCheckpointBatch builds one Arrow record batch matching
// CheckpointSchema from a set of checkpoint rows, as produced by one pass
// of BuildStateCheckpoints.
func BuildCheckpointBatch(rows []model.CheckpointRow, alloc memory.Allocator) arrow.Record {
	if alloc == nil {
		alloc = memory.NewGoAllocator()
	}
	rb := array.NewRecordBuilder(alloc, CheckpointSchema)
	defer rb.Release()

	exchangeB := rb.Field(0).(*array.StringBuilder)
	exchangeIDB := rb.Field(1).(*array.Int16Builder)
	symbolIDB := rb.Field(2).(*array.Int64Builder)
	dateB := rb.Field(3).(*array.Date32Builder)
	tsB := rb.Field(4).(*array.Int64Builder)
	bidsB := rb.Field(5).(*array.ListBuilder)
	asksB := rb.Field(6).(*array.ListBuilder)
	fileIDB := rb.Field(7).(*array.Int32Builder)
	ingestSeqB := rb.Field(8).(*array.Int32Builder)
	fileLineB := rb.Field(9).(*array.Int32Builder)
	kindB := rb.Field(10).(*array.StringBuilder)

	for _, row := range rows {
		exchangeB.Append(row.Exchange)
		exchangeIDB.Append(row.ExchangeID)
		symbolIDB.Append(row.SymbolID)
		dateB.Append(arrow.Date32(row.DateDays))
		tsB.Append(row.TSLocalUS)
		appendLevels(bidsB, row.Bids)
		appendLevels(asksB, row.Asks)
		fileIDB.Append(row.FileID)
		ingestSeqB.Append(row.IngestSeq)
		fileLineB.Append(row.FileLineNumber)
		kindB.Append(row.CheckpointKind)
	}

	return rb.NewRecord()
}
