package book

import (
	"testing"

	"github.com/rickgao/l2replay/internal/model"
)

func TestNewDenseValidation(t *testing.T) {
	tests := []struct {
		name                     string
		minPrice, maxPrice, tick int64
		wantErr                  bool
	}{
		{"valid range", 100, 110, 1, false},
		{"zero tick", 100, 110, 0, true},
		{"negative tick", 100, 110, -1, true},
		{"inverted range", 110, 100, 1, true},
		{"misaligned range", 100, 111, 2, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewDense(tt.minPrice, tt.maxPrice, tt.tick, nil)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewDense(%d,%d,%d) err = %v, wantErr %v", tt.minPrice, tt.maxPrice, tt.tick, err, tt.wantErr)
			}
		})
	}
}

func newTestDense(t *testing.T) *Dense {
	t.Helper()
	d, err := NewDense(100, 110, 1, nil)
	if err != nil {
		t.Fatalf("NewDense: %v", err)
	}
	return d
}

func TestDenseApplyAndClearRescansBound(t *testing.T) {
	d := newTestDense(t)

	for _, p := range []int64{102, 104, 106} {
		if err := d.ApplyUpdate(upd(model.SideBid, p, 1)); err != nil {
			t.Fatalf("apply: %v", err)
		}
	}
	if d.BidsLen() != 3 {
		t.Fatalf("BidsLen = %d, want 3", d.BidsLen())
	}

	// Clearing the max-bound index must rescan inward to the next nonzero.
	if err := d.ApplyUpdate(upd(model.SideBid, 106, 0)); err != nil {
		t.Fatalf("apply clear: %v", err)
	}
	bids, _ := d.Levels()
	if len(bids) != 2 || bids[0].PriceInt != 104 {
		t.Fatalf("bids after clearing top = %+v, want best=104", bids)
	}

	// Clearing the min-bound index must rescan inward to the next nonzero.
	if err := d.ApplyUpdate(upd(model.SideBid, 102, 0)); err != nil {
		t.Fatalf("apply clear: %v", err)
	}
	bids, _ = d.Levels()
	if len(bids) != 1 || bids[0].PriceInt != 104 {
		t.Fatalf("bids after clearing bottom = %+v, want only 104", bids)
	}

	// Clearing the last level drops the range entirely.
	if err := d.ApplyUpdate(upd(model.SideBid, 104, 0)); err != nil {
		t.Fatalf("apply clear: %v", err)
	}
	bids, _ = d.Levels()
	if len(bids) != 0 || d.BidsLen() != 0 {
		t.Fatalf("expected empty bid side, got %+v len=%d", bids, d.BidsLen())
	}
}

func TestDenseLevelsOrdering(t *testing.T) {
	d := newTestDense(t)
	for _, p := range []int64{108, 102, 105} {
		if err := d.ApplyUpdate(upd(model.SideBid, p, 1)); err != nil {
			t.Fatalf("apply: %v", err)
		}
	}
	for _, p := range []int64{103, 109} {
		if err := d.ApplyUpdate(upd(model.SideAsk, p, 1)); err != nil {
			t.Fatalf("apply: %v", err)
		}
	}

	bids, asks := d.Levels()
	wantBids := []int64{108, 105, 102}
	wantAsks := []int64{103, 109}

	for i, p := range wantBids {
		if bids[i].PriceInt != p {
			t.Errorf("bids[%d] = %d, want %d", i, bids[i].PriceInt, p)
		}
	}
	for i, p := range wantAsks {
		if asks[i].PriceInt != p {
			t.Errorf("asks[%d] = %d, want %d", i, asks[i].PriceInt, p)
		}
	}
}

func TestDenseOutOfRangeIsDroppedNotErrored(t *testing.T) {
	d := newTestDense(t)
	if err := d.ApplyUpdate(upd(model.SideBid, 1, 1)); err != nil {
		t.Fatalf("out-of-range update should not error, got %v", err)
	}
	if d.BidsLen() != 0 {
		t.Fatalf("expected out-of-range update to be dropped, BidsLen = %d", d.BidsLen())
	}
}

func TestDenseSeedFromLevelsReplacesContents(t *testing.T) {
	d := newTestDense(t)
	if err := d.ApplyUpdate(upd(model.SideBid, 101, 1)); err != nil {
		t.Fatalf("apply: %v", err)
	}

	d.SeedFromLevels(
		[]model.Level{{PriceInt: 102, SizeInt: 5}},
		[]model.Level{{PriceInt: 103, SizeInt: 6}},
	)

	if _, ok := d.BidAt(101); ok {
		t.Fatal("expected prior bid cleared by seed")
	}
	if size, ok := d.BidAt(102); !ok || size != 5 {
		t.Fatalf("BidAt(102) = %d, %v; want 5, true", size, ok)
	}
	if size, ok := d.AskAt(103); !ok || size != 6 {
		t.Fatalf("AskAt(103) = %d, %v; want 6, true", size, ok)
	}
}

func TestDenseApplyUpdateInvalidSide(t *testing.T) {
	d := newTestDense(t)
	if err := d.ApplyUpdate(upd(model.Side(9), 101, 1)); err == nil {
		t.Fatal("expected error for invalid side")
	}
}
