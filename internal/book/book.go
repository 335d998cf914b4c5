package book

import (
	"fmt"
	"sort"

	"github.com/rickgao/l2replay/internal/model"
)

// Book is the mutable order-book state a Replayer folds updates into.
// Implementations hold only aggregated size per price level, never
// individual orders.
type Book interface {
	// Reset clears all levels on both sides, as on a snapshot-group boundary.
	Reset()

	// ApplyUpdate folds one update into the book. A zero SizeInt removes the
	// level; otherwise it sets (replaces) the level's size.
	ApplyUpdate(u model.L2Update) error

	// SeedFromLevels replaces the book's contents wholesale, as when seeding
	// from a durable Checkpoint.
	SeedFromLevels(bids, asks []model.Level)

	// Levels returns a snapshot of both sides: bids sorted by descending
	// price (best bid first), asks sorted by ascending price (best ask
	// first). Levels with zero size are never included.
	Levels() (bids, asks []model.Level)

	BidsLen() int
	AsksLen() int

	BidAt(priceInt int64) (sizeInt int64, ok bool)
	AskAt(priceInt int64) (sizeInt int64, ok bool)
}

// Sparse is a map-backed Book: it allocates no more storage than the
// number of distinct price levels ever populated, at the cost of sorting
// on every call to Levels. This is the default storage for symbols with no
// configured dense-book range.
type Sparse struct {
	bids map[int64]int64
	asks map[int64]int64
}

// NewSparse returns an empty Sparse book.
func NewSparse() *Sparse {
	return &Sparse{
		bids: make(map[int64]int64),
		asks: make(map[int64]int64),
	}
}

func (b *Sparse) Reset() {
	for k := range b.bids {
		delete(b.bids, k)
	}
	for k := range b.asks {
		delete(b.asks, k)
	}
}

func (b *Sparse) ApplyUpdate(u model.L2Update) error {
	side, err := b.sideMap(u.Side)
	if err != nil {
		return err
	}
	if u.SizeInt == 0 {
		delete(side, u.PriceInt)
	} else {
		side[u.PriceInt] = u.SizeInt
	}
	return nil
}

func (b *Sparse) sideMap(side model.Side) (map[int64]int64, error) {
	switch side {
	case model.SideBid:
		return b.bids, nil
	case model.SideAsk:
		return b.asks, nil
	default:
		return nil, fmt.Errorf("book: invalid side %d", side)
	}
}

func (b *Sparse) SeedFromLevels(bids, asks []model.Level) {
	b.Reset()
	for _, lvl := range bids {
		b.bids[lvl.PriceInt] = lvl.SizeInt
	}
	for _, lvl := range asks {
		b.asks[lvl.PriceInt] = lvl.SizeInt
	}
}

func (b *Sparse) Levels() (bids, asks []model.Level) {
	bids = sortedLevels(b.bids, true)
	asks = sortedLevels(b.asks, false)
	return bids, asks
}

func sortedLevels(m map[int64]int64, descending bool) []model.Level {
	prices := make([]int64, 0, len(m))
	for p := range m {
		prices = append(prices, p)
	}
	if descending {
		sort.Slice(prices, func(i, j int) bool { return prices[i] > prices[j] })
	} else {
		sort.Slice(prices, func(i, j int) bool { return prices[i] < prices[j] })
	}
	out := make([]model.Level, 0, len(prices))
	for _, p := range prices {
		out = append(out, model.Level{PriceInt: p, SizeInt: m[p]})
	}
	return out
}

func (b *Sparse) BidsLen() int { return len(b.bids) }
func (b *Sparse) AsksLen() int { return len(b.asks) }

func (b *Sparse) BidAt(priceInt int64) (int64, bool) {
	v, ok := b.bids[priceInt]
	return v, ok
}

func (b *Sparse) AskAt(priceInt int64) (int64, bool) {
	v, ok := b.asks[priceInt]
	return v, ok
}
