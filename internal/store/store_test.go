package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/rickgao/l2replay/internal/model"
)

var testUpdatesSchema = arrow.NewSchema([]arrow.Field{
	{Name: "ts_local_us", Type: arrow.PrimitiveTypes.Int64},
	{Name: "ingest_seq", Type: arrow.PrimitiveTypes.Int32},
	{Name: "file_line_number", Type: arrow.PrimitiveTypes.Int32},
	{Name: "is_snapshot", Type: arrow.FixedWidthTypes.Boolean},
	{Name: "side", Type: arrow.PrimitiveTypes.Uint8},
	{Name: "price_int", Type: arrow.PrimitiveTypes.Int64},
	{Name: "size_int", Type: arrow.PrimitiveTypes.Int64},
	{Name: "file_id", Type: arrow.PrimitiveTypes.Int32},
}, nil)

func writeTestUpdatesFile(t *testing.T, path string, updates []model.L2Update) {
	t.Helper()
	mem := memory.NewGoAllocator()
	rb := array.NewRecordBuilder(mem, testUpdatesSchema)
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

	rec := rb.NewRecord()
	defer rec.Release()

	if err := writeParquetFile(path, rec); err != nil {
		t.Fatalf("writeParquetFile(%s): %v", path, err)
	}
}

func TestScanPrunesToSymbolAndDateAndOrdersRows(t *testing.T) {
	root := t.TempDir()

	dayA := filepath.Join(root, "exchange=kalshi", "date=2024-01-01", "symbol_id=1")
	dayB := filepath.Join(root, "exchange=kalshi", "date=2024-01-02", "symbol_id=1")
	otherSymbol := filepath.Join(root, "exchange=kalshi", "date=2024-01-01", "symbol_id=2")

	mkdirAllT(t, dayA)
	mkdirAllT(t, dayB)
	mkdirAllT(t, otherSymbol)

	writeTestUpdatesFile(t, filepath.Join(dayA, "part-1.parquet"), []model.L2Update{
		{TSLocalUS: 200, IngestSeq: 1, FileLineNumber: 1, FileID: 1, Side: model.SideBid, PriceInt: 10, SizeInt: 5},
	})
	writeTestUpdatesFile(t, filepath.Join(dayA, "part-0.parquet"), []model.L2Update{
		{TSLocalUS: 100, IngestSeq: 1, FileLineNumber: 1, FileID: 1, Side: model.SideBid, PriceInt: 9, SizeInt: 4},
	})
	writeTestUpdatesFile(t, filepath.Join(dayB, "part-0.parquet"), []model.L2Update{
		{TSLocalUS: 300, IngestSeq: 1, FileLineNumber: 1, FileID: 1, Side: model.SideBid, PriceInt: 11, SizeInt: 6},
	})
	writeTestUpdatesFile(t, filepath.Join(otherSymbol, "part-0.parquet"), []model.L2Update{
		{TSLocalUS: 50, IngestSeq: 1, FileLineNumber: 1, FileID: 1, Side: model.SideBid, PriceInt: 1, SizeInt: 1},
	})

	startDate, err := ParseDateDays("2024-01-01")
	if err != nil {
		t.Fatalf("parseDateDays: %v", err)
	}
	endDate, err := ParseDateDays("2024-01-02")
	if err != nil {
		t.Fatalf("parseDateDays: %v", err)
	}

	symbolID := int64(1)
	s := NewParquetStore(root, "")
	src, err := s.Scan(context.Background(), ScanParams{
		Exchange:       "kalshi",
		ExchangeID:     7,
		SymbolID:       &symbolID,
		StartDate:      startDate,
		EndDate:        endDate,
		MaxTSInclusive: 1_000_000,
	})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}

	var got []model.L2Update
	for {
		item, ok, err := src.Next()
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if !ok {
			break
		}
		if item.Meta.SymbolID != symbolID || item.Meta.ExchangeID != 7 {
			t.Fatalf("unexpected meta %+v", item.Meta)
		}
		got = append(got, item.Update)
	}

	wantTS := []int64{100, 200, 300}
	if len(got) != len(wantTS) {
		t.Fatalf("got %d rows, want %d", len(got), len(wantTS))
	}
	for i, ts := range wantTS {
		if got[i].TSLocalUS != ts {
			t.Errorf("row %d ts = %d, want %d", i, got[i].TSLocalUS, ts)
		}
	}
}

func TestScanAppliesMaxTSAndMinPosFilters(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "exchange=kalshi", "date=2024-01-01", "symbol_id=1")
	mkdirAllT(t, dir)

	writeTestUpdatesFile(t, filepath.Join(dir, "part-0.parquet"), []model.L2Update{
		{TSLocalUS: 100, IngestSeq: 1, FileLineNumber: 1, FileID: 1, Side: model.SideBid, PriceInt: 1, SizeInt: 1},
		{TSLocalUS: 200, IngestSeq: 1, FileLineNumber: 2, FileID: 1, Side: model.SideBid, PriceInt: 2, SizeInt: 1},
		{TSLocalUS: 300, IngestSeq: 1, FileLineNumber: 3, FileID: 1, Side: model.SideBid, PriceInt: 3, SizeInt: 1},
	})

	startDate, _ := ParseDateDays("2024-01-01")
	endDate, _ := ParseDateDays("2024-01-01")
	symbolID := int64(1)
	minPos := model.StreamPos{TSLocalUS: 100, IngestSeq: 1, FileID: 1, FileLineNumber: 1}

	s := NewParquetStore(root, "")
	src, err := s.Scan(context.Background(), ScanParams{
		Exchange:        "kalshi",
		SymbolID:        &symbolID,
		StartDate:       startDate,
		EndDate:         endDate,
		MaxTSInclusive:  200,
		MinPosExclusive: &minPos,
	})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}

	var got []int64
	for {
		item, ok, err := src.Next()
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if !ok {
			break
		}
		got = append(got, item.Update.TSLocalUS)
	}
	if len(got) != 1 || got[0] != 200 {
		t.Fatalf("got %v, want [200]", got)
	}
}

func TestWriteCheckpointRowsThenLatestCheckpoint(t *testing.T) {
	root := t.TempDir()
	s := NewParquetStore("", root)

	dateDays, err := ParseDateDays("2024-01-01")
	if err != nil {
		t.Fatalf("parseDateDays: %v", err)
	}

	rows := []model.CheckpointRow{
		{
			Exchange:       "kalshi",
			ExchangeID:     7,
			SymbolID:       1,
			DateDays:       dateDays,
			TSLocalUS:      100,
			Bids:           []model.Level{{PriceInt: 9, SizeInt: 1}},
			Asks:           []model.Level{{PriceInt: 10, SizeInt: 2}},
			FileID:         1,
			IngestSeq:      1,
			FileLineNumber: 1,
			CheckpointKind: model.CheckpointKindPeriodic,
		},
		{
			Exchange:       "kalshi",
			ExchangeID:     7,
			SymbolID:       1,
			DateDays:       dateDays,
			TSLocalUS:      200,
			Bids:           []model.Level{{PriceInt: 11, SizeInt: 3}},
			Asks:           []model.Level{{PriceInt: 12, SizeInt: 4}},
			FileID:         1,
			IngestSeq:      2,
			FileLineNumber: 2,
			CheckpointKind: model.CheckpointKindPeriodic,
		},
	}

	n, err := s.WriteCheckpointRows(context.Background(), rows)
	if err != nil {
		t.Fatalf("WriteCheckpointRows: %v", err)
	}
	if n != 2 {
		t.Fatalf("wrote %d rows, want 2", n)
	}

	ckpt, err := s.LatestCheckpoint(context.Background(), "kalshi", 7, 1, 150)
	if err != nil {
		t.Fatalf("LatestCheckpoint: %v", err)
	}
	if ckpt == nil {
		t.Fatal("expected a checkpoint at or before ts=150")
	}
	if ckpt.Pos.TSLocalUS != 100 {
		t.Errorf("Pos.TSLocalUS = %d, want 100", ckpt.Pos.TSLocalUS)
	}

	ckpt, err = s.LatestCheckpoint(context.Background(), "kalshi", 7, 1, 250)
	if err != nil {
		t.Fatalf("LatestCheckpoint: %v", err)
	}
	if ckpt == nil || ckpt.Pos.TSLocalUS != 200 {
		t.Fatalf("expected checkpoint at ts=200, got %+v", ckpt)
	}

	if _, err := s.LatestCheckpoint(context.Background(), "kalshi", 7, 99, 250); err != nil {
		t.Fatalf("LatestCheckpoint for unknown symbol: %v", err)
	}

	rewrite := []model.CheckpointRow{
		{
			Exchange:       "kalshi",
			ExchangeID:     7,
			SymbolID:       1,
			DateDays:       dateDays,
			TSLocalUS:      400,
			Bids:           []model.Level{{PriceInt: 20, SizeInt: 1}},
			Asks:           nil,
			FileID:         1,
			IngestSeq:      3,
			FileLineNumber: 3,
			CheckpointKind: model.CheckpointKindPeriodic,
		},
	}
	if _, err := s.WriteCheckpointRows(context.Background(), rewrite); err != nil {
		t.Fatalf("WriteCheckpointRows (rewrite): %v", err)
	}

	ckpt, err = s.LatestCheckpoint(context.Background(), "kalshi", 7, 1, 250)
	if err != nil {
		t.Fatalf("LatestCheckpoint after rewrite: %v", err)
	}
	if ckpt != nil {
		t.Fatalf("expected the stale ts=200 row to be gone after rewrite, got %+v", ckpt)
	}
}

func TestWriteCheckpointRowsPreservesOtherSymbolsInSharedPartition(t *testing.T) {
	root := t.TempDir()
	s := NewParquetStore("", root)

	dateDays, err := ParseDateDays("2024-01-01")
	if err != nil {
		t.Fatalf("parseDateDays: %v", err)
	}

	initial := []model.CheckpointRow{
		{
			Exchange: "kalshi", ExchangeID: 7, SymbolID: 1, DateDays: dateDays,
			TSLocalUS: 100, Bids: []model.Level{{PriceInt: 9, SizeInt: 1}},
			FileID: 1, IngestSeq: 1, FileLineNumber: 1, CheckpointKind: model.CheckpointKindPeriodic,
		},
		{
			Exchange: "kalshi", ExchangeID: 7, SymbolID: 2, DateDays: dateDays,
			TSLocalUS: 150, Bids: []model.Level{{PriceInt: 20, SizeInt: 2}},
			FileID: 1, IngestSeq: 1, FileLineNumber: 1, CheckpointKind: model.CheckpointKindPeriodic,
		},
	}
	if _, err := s.WriteCheckpointRows(context.Background(), initial); err != nil {
		t.Fatalf("WriteCheckpointRows (initial): %v", err)
	}

	// Rebuild scoped to symbol 1 only, as BuildStateCheckpoints does when
	// SymbolID is set.
	rebuild := []model.CheckpointRow{
		{
			Exchange: "kalshi", ExchangeID: 7, SymbolID: 1, DateDays: dateDays,
			TSLocalUS: 400, Bids: []model.Level{{PriceInt: 30, SizeInt: 3}},
			FileID: 2, IngestSeq: 1, FileLineNumber: 1, CheckpointKind: model.CheckpointKindPeriodic,
		},
	}
	if _, err := s.WriteCheckpointRows(context.Background(), rebuild); err != nil {
		t.Fatalf("WriteCheckpointRows (rebuild symbol 1): %v", err)
	}

	ckpt, err := s.LatestCheckpoint(context.Background(), "kalshi", 7, 2, 1000)
	if err != nil {
		t.Fatalf("LatestCheckpoint symbol 2: %v", err)
	}
	if ckpt == nil || ckpt.Pos.TSLocalUS != 150 {
		t.Fatalf("expected symbol 2's untouched checkpoint to survive the symbol 1 rebuild, got %+v", ckpt)
	}

	ckpt, err = s.LatestCheckpoint(context.Background(), "kalshi", 7, 1, 1000)
	if err != nil {
		t.Fatalf("LatestCheckpoint symbol 1: %v", err)
	}
	if ckpt == nil || ckpt.Pos.TSLocalUS != 400 {
		t.Fatalf("expected symbol 1's old row replaced by the rebuild, got %+v", ckpt)
	}
}

func mkdirAllT(t *testing.T, dir string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("MkdirAll(%s): %v", dir, err)
	}
}
