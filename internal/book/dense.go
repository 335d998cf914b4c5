package book

import (
	"fmt"
	"log/slog"

	"github.com/rickgao/l2replay/internal/model"
)

// Dense is a fixed-range array Book. It trades the Sparse book's unbounded
// price range for O(1) apply/lookup and a Levels scan over only the
// [min, max] index window actually touched, at the cost of needing
// the symbol's tick size and price bound up front.
type Dense struct {
	logger *slog.Logger

	minPriceInt  int64
	maxPriceInt  int64
	tickSizeInt  int64
	bids         []int64
	asks         []int64
	bidsLen      int
	asksLen      int
	bidMinIdx    int
	bidMaxIdx    int
	bidHasRange  bool
	askMinIdx    int
	askMaxIdx    int
	askHasRange  bool
	warnedBidOOB bool
	warnedAskOOB bool
}

// NewDense builds an empty Dense book spanning [minPriceInt, maxPriceInt]
// at tickSizeInt granularity. It returns an error if tickSizeInt is not
// positive, the range is inverted, or the range does not divide evenly by
// the tick size (mirroring the validation the original pointline engine
// performs before allocating the backing arrays).
func NewDense(minPriceInt, maxPriceInt, tickSizeInt int64, logger *slog.Logger) (*Dense, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if tickSizeInt <= 0 {
		return nil, fmt.Errorf("book: tick_size_int must be > 0, got %d", tickSizeInt)
	}
	if maxPriceInt < minPriceInt {
		return nil, fmt.Errorf("book: max_price_int %d must be >= min_price_int %d", maxPriceInt, minPriceInt)
	}
	rangeInt := maxPriceInt - minPriceInt
	if rangeInt%tickSizeInt != 0 {
		return nil, fmt.Errorf("book: price range %d must align with tick_size_int %d", rangeInt, tickSizeInt)
	}
	length := rangeInt/tickSizeInt + 1

	return &Dense{
		logger:      logger,
		minPriceInt: minPriceInt,
		maxPriceInt: maxPriceInt,
		tickSizeInt: tickSizeInt,
		bids:        make([]int64, length),
		asks:        make([]int64, length),
	}, nil
}

func (d *Dense) Reset() {
	for i := range d.bids {
		d.bids[i] = 0
	}
	for i := range d.asks {
		d.asks[i] = 0
	}
	d.bidsLen = 0
	d.asksLen = 0
	d.bidHasRange = false
	d.askHasRange = false
}

func (d *Dense) priceToIndex(priceInt int64) (int, bool) {
	if priceInt < d.minPriceInt || priceInt > d.maxPriceInt {
		return 0, false
	}
	offset := priceInt - d.minPriceInt
	if offset%d.tickSizeInt != 0 {
		return 0, false
	}
	return int(offset / d.tickSizeInt), true
}

func (d *Dense) ApplyUpdate(u model.L2Update) error {
	if !u.Side.Valid() {
		return fmt.Errorf("book: invalid side %d", u.Side)
	}

	idx, ok := d.priceToIndex(u.PriceInt)
	if !ok {
		d.warnOutOfRange(u.Side, u.PriceInt)
		return nil
	}

	switch u.Side {
	case model.SideBid:
		d.bidHasRange = applyIndex(d.bids, idx, u.SizeInt, &d.bidsLen, &d.bidMinIdx, &d.bidMaxIdx, d.bidHasRange)
	case model.SideAsk:
		d.askHasRange = applyIndex(d.asks, idx, u.SizeInt, &d.asksLen, &d.askMinIdx, &d.askMaxIdx, d.askHasRange)
	}
	return nil
}

// applyIndex sets or clears side[idx], maintaining len and the [min,max]
// touched-index window. On clearing the index that currently anchors the
// window, it rescans from that index inward, toward the other bound, to
// find the new bound.
func applyIndex(side []int64, idx int, sizeInt int64, length *int, minIdx, maxIdx *int, hasRange bool) bool {
	prev := side[idx]
	if sizeInt == 0 {
		if prev == 0 {
			return hasRange
		}
		side[idx] = 0
		*length--
		if !hasRange {
			return hasRange
		}
		if idx == *minIdx {
			if next, ok := findNextNonzero(side, idx, 1); ok {
				*minIdx = next
			} else {
				return false
			}
		}
		if idx == *maxIdx {
			if next, ok := findNextNonzero(side, idx, -1); ok {
				*maxIdx = next
			} else {
				return false
			}
		}
		return true
	}

	if prev == 0 {
		*length++
		if !hasRange {
			*minIdx, *maxIdx = idx, idx
			hasRange = true
		} else {
			if idx < *minIdx {
				*minIdx = idx
			}
			if idx > *maxIdx {
				*maxIdx = idx
			}
		}
	}
	side[idx] = sizeInt
	return hasRange
}

func findNextNonzero(side []int64, start, direction int) (int, bool) {
	if direction >= 0 {
		for idx := start + 1; idx < len(side); idx++ {
			if side[idx] != 0 {
				return idx, true
			}
		}
		return 0, false
	}
	for idx := start - 1; idx >= 0; idx-- {
		if side[idx] != 0 {
			return idx, true
		}
	}
	return 0, false
}

func (d *Dense) warnOutOfRange(side model.Side, priceInt int64) {
	flag := &d.warnedBidOOB
	if side == model.SideAsk {
		flag = &d.warnedAskOOB
	}
	if *flag {
		return
	}
	*flag = true
	d.logger.Warn("dense book ignoring out-of-range price",
		"side", side.String(),
		"price_int", priceInt,
		"min_price_int", d.minPriceInt,
		"max_price_int", d.maxPriceInt,
		"tick_size_int", d.tickSizeInt,
	)
}

func (d *Dense) SeedFromLevels(bids, asks []model.Level) {
	d.Reset()
	for _, lvl := range bids {
		d.seedOne(model.SideBid, lvl)
	}
	for _, lvl := range asks {
		d.seedOne(model.SideAsk, lvl)
	}
}

func (d *Dense) seedOne(side model.Side, lvl model.Level) {
	idx, ok := d.priceToIndex(lvl.PriceInt)
	if !ok {
		d.warnOutOfRange(side, lvl.PriceInt)
		return
	}
	switch side {
	case model.SideBid:
		d.bidHasRange = applyIndex(d.bids, idx, lvl.SizeInt, &d.bidsLen, &d.bidMinIdx, &d.bidMaxIdx, d.bidHasRange)
	case model.SideAsk:
		d.askHasRange = applyIndex(d.asks, idx, lvl.SizeInt, &d.asksLen, &d.askMinIdx, &d.askMaxIdx, d.askHasRange)
	}
}

func (d *Dense) Levels() (bids, asks []model.Level) {
	bids = make([]model.Level, 0, d.bidsLen)
	if d.bidHasRange {
		for idx := d.bidMaxIdx; idx >= d.bidMinIdx; idx-- {
			if size := d.bids[idx]; size != 0 {
				bids = append(bids, model.Level{PriceInt: d.indexToPrice(idx), SizeInt: size})
			}
		}
	}

	asks = make([]model.Level, 0, d.asksLen)
	if d.askHasRange {
		for idx := d.askMinIdx; idx <= d.askMaxIdx; idx++ {
			if size := d.asks[idx]; size != 0 {
				asks = append(asks, model.Level{PriceInt: d.indexToPrice(idx), SizeInt: size})
			}
		}
	}
	return bids, asks
}

func (d *Dense) indexToPrice(idx int) int64 {
	return d.minPriceInt + int64(idx)*d.tickSizeInt
}

func (d *Dense) BidsLen() int { return d.bidsLen }
func (d *Dense) AsksLen() int { return d.asksLen }

func (d *Dense) BidAt(priceInt int64) (int64, bool) {
	idx, ok := d.priceToIndex(priceInt)
	if !ok {
		return 0, false
	}
	size := d.bids[idx]
	return size, size != 0
}

func (d *Dense) AskAt(priceInt int64) (int64, bool) {
	idx, ok := d.priceToIndex(priceInt)
	if !ok {
		return 0, false
	}
	size := d.asks[idx]
	return size, size != 0
}
