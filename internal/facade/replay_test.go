package facade

import (
	"slices"
	"testing"

	"github.com/rickgao/l2replay/internal/book"
	"github.com/rickgao/l2replay/internal/model"
)

func TestReplayInvokesBothCallbacks(t *testing.T) {
	updates := []model.L2Update{
		{TSLocalUS: 100, IsSnapshot: true, FileID: 1, Side: model.SideBid, PriceInt: 10_00, SizeInt: 1},
		{TSLocalUS: 200, Side: model.SideBid, PriceInt: 11_00, SizeInt: 2},
	}

	var snapshotCalls, checkpointCalls int
	every := uint64(1)

	err := ReplaySlice(updates, ReplayParams{
		EveryUpdates: &every,
		OnSnapshot: func(b book.Book, pos model.StreamPos) error {
			snapshotCalls++
			return nil
		},
		OnCheckpoint: func(b book.Book, pos model.StreamPos) error {
			checkpointCalls++
			return nil
		},
	})
	if err != nil {
		t.Fatalf("ReplaySlice: %v", err)
	}
	if snapshotCalls != 1 {
		t.Fatalf("expected 1 snapshot callback (ts=100 group closing), got %d", snapshotCalls)
	}
	if checkpointCalls != 2 {
		t.Fatalf("expected 2 checkpoint callbacks (boundary + final flush), got %d", checkpointCalls)
	}
}

func TestReplayNilCallbacksAreOptional(t *testing.T) {
	updates := []model.L2Update{
		{TSLocalUS: 100, Side: model.SideBid, PriceInt: 10_00, SizeInt: 1},
	}
	if err := ReplaySlice(updates, ReplayParams{}); err != nil {
		t.Fatalf("ReplaySlice with nil callbacks: %v", err)
	}
}

func TestReplayOverIteratorSequence(t *testing.T) {
	updates := []model.L2Update{
		{TSLocalUS: 100, Side: model.SideBid, PriceInt: 10_00, SizeInt: 1},
		{TSLocalUS: 200, Side: model.SideBid, PriceInt: 11_00, SizeInt: 1},
	}
	var seenPos []int64
	every := uint64(1)

	err := Replay(slices.Values(updates), ReplayParams{
		EveryUpdates: &every,
		OnCheckpoint: func(b book.Book, pos model.StreamPos) error {
			seenPos = append(seenPos, pos.TSLocalUS)
			return nil
		},
	})
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	if len(seenPos) != 2 || seenPos[0] != 100 || seenPos[1] != 200 {
		t.Fatalf("unexpected checkpoint positions: %v", seenPos)
	}
}

func TestReplayValidateMonotonicRejectsOutOfOrderUpdates(t *testing.T) {
	updates := []model.L2Update{
		{TSLocalUS: 200, Side: model.SideBid, PriceInt: 10_00, SizeInt: 1},
		{TSLocalUS: 100, Side: model.SideBid, PriceInt: 11_00, SizeInt: 1},
	}
	err := ReplaySlice(updates, ReplayParams{ValidateMonotonic: true})
	if err == nil {
		t.Fatal("expected an order-violation error, got nil")
	}
}
