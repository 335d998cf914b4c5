package columnar

import (
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/rickgao/l2replay/internal/model"
)

var updatesInputSchema = arrow.NewSchema([]arrow.Field{
	{Name: "ts_local_us", Type: arrow.PrimitiveTypes.Int64},
	{Name: "ingest_seq", Type: arrow.PrimitiveTypes.Int32},
	{Name: "file_line_number", Type: arrow.PrimitiveTypes.Int32},
	{Name: "is_snapshot", Type: arrow.FixedWidthTypes.Boolean},
	{Name: "side", Type: arrow.PrimitiveTypes.Uint8},
	{Name: "price_int", Type: arrow.PrimitiveTypes.Int64},
	{Name: "size_int", Type: arrow.PrimitiveTypes.Int64},
	{Name: "file_id", Type: arrow.PrimitiveTypes.Int32},
}, nil)

func buildUpdatesRecord(t *testing.T, updates []model.L2Update) arrow.Record {
	t.Helper()
	mem := memory.NewGoAllocator()
	rb := array.NewRecordBuilder(mem, updatesInputSchema)
	defer rb.Release()

	ts := rb.Field(0).(*array.Int64Builder)
	seq := rb.Field(1).(*array.Int32Builder)
	line := rb.Field(2).(*array.Int32Builder)
	snap := rb.Field(3).(*array.BooleanBuilder)
	side := rb.Field(4).(*array.Uint8Builder)
	price := rb.Field(5).(*array.Int64Builder)
	size := rb.Field(6).(*array.Int64Builder)
	fileID := rb.Field(7).(*array.Int32Builder)

	for _, u := range updates {
		ts.Append(u.TSLocalUS)
		seq.Append(u.IngestSeq)
		line.Append(u.FileLineNumber)
		snap.Append(u.IsSnapshot)
		side.Append(uint8(u.Side))
		price.Append(u.PriceInt)
		size.Append(u.SizeInt)
		fileID.Append(u.FileID)
	}

	return rb.NewRecord()
}

func TestDecodeUpdatesRoundTrip(t *testing.T) {
	want := []model.L2Update{
		{TSLocalUS: 100, IngestSeq: 1, FileLineNumber: 5, IsSnapshot: false, Side: model.SideBid, PriceInt: 10, SizeInt: 3, FileID: 2},
		{TSLocalUS: 101, IngestSeq: 2, FileLineNumber: 6, IsSnapshot: true, Side: model.SideAsk, PriceInt: 11, SizeInt: 0, FileID: 2},
	}
	rec := buildUpdatesRecord(t, want)
	defer rec.Release()

	cols, err := DecodeUpdates(rec)
	if err != nil {
		t.Fatalf("DecodeUpdates: %v", err)
	}

	for i, w := range want {
		got, err := cols.UpdateAt(i)
		if err != nil {
			t.Fatalf("UpdateAt(%d): %v", i, err)
		}
		if got != w {
			t.Errorf("row %d = %+v, want %+v", i, got, w)
		}
	}
}

func TestSideValueRejectsNegativeInt8(t *testing.T) {
	mem := memory.NewGoAllocator()
	b := array.NewInt8Builder(mem)
	defer b.Release()
	b.Append(-1)
	arr := b.NewArray()
	defer arr.Release()

	if _, err := sideValue(arr, 0); err == nil {
		t.Fatal("expected an error for a negative int8 side value")
	}
}

func TestReplayBatchBuilderRoundTrip(t *testing.T) {
	b := NewReplayBatchBuilder(nil)
	defer b.Release()

	pos := model.StreamPos{TSLocalUS: 100, IngestSeq: 1, FileID: 2, FileLineNumber: 3}
	bids := []model.Level{{PriceInt: 10, SizeInt: 1}, {PriceInt: 9, SizeInt: 2}}
	asks := []model.Level{{PriceInt: 11, SizeInt: 3}}
	b.Append(7, 42, pos, bids, asks)

	if b.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", b.Len())
	}

	rec := b.NewRecord()
	defer rec.Release()

	if rec.NumRows() != 1 {
		t.Fatalf("NumRows() = %d, want 1", rec.NumRows())
	}

	gotBids, err := DecodeLevels(rec, "bids", 0)
	if err != nil {
		t.Fatalf("DecodeLevels(bids): %v", err)
	}
	if len(gotBids) != len(bids) {
		t.Fatalf("len(gotBids) = %d, want %d", len(gotBids), len(bids))
	}
	for i, lvl := range bids {
		if gotBids[i] != lvl {
			t.Errorf("gotBids[%d] = %+v, want %+v", i, gotBids[i], lvl)
		}
	}
}

func TestBuildCheckpointBatchRoundTrip(t *testing.T) {
	rows := []model.CheckpointRow{
		{
			Exchange:       "kalshi",
			ExchangeID:     1,
			SymbolID:       99,
			DateDays:       20000,
			TSLocalUS:      123456,
			Bids:           []model.Level{{PriceInt: 5, SizeInt: 1}},
			Asks:           []model.Level{{PriceInt: 6, SizeInt: 2}},
			FileID:         3,
			IngestSeq:      4,
			FileLineNumber: 5,
			CheckpointKind: model.CheckpointKindPeriodic,
		},
	}

	rec := BuildCheckpointBatch(rows, nil)
	defer rec.Release()

	if rec.NumRows() != 1 {
		t.Fatalf("NumRows() = %d, want 1", rec.NumRows())
	}

	asks, err := DecodeLevels(rec, "asks", 0)
	if err != nil {
		t.Fatalf("DecodeLevels(asks): %v", err)
	}
	if len(asks) != 1 || asks[0] != rows[0].Asks[0] {
		t.Fatalf("asks = %+v, want %+v", asks, rows[0].Asks)
	}
}
