package facade

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/apache/arrow-go/v18/arrow"

	"github.com/rickgao/l2replay/internal/book"
	"github.com/rickgao/l2replay/internal/columnar"
	"github.com/rickgao/l2replay/internal/diag"
	"github.com/rickgao/l2replay/internal/model"
	"github.com/rickgao/l2replay/internal/replay"
	"github.com/rickgao/l2replay/internal/store"
)

// ErrNoCadence is returned when neither EveryUS nor EveryUpdates is set to
// a positive value — spec.md §4.7 requires at least one.
var ErrNoCadence = errors.New("facade: at least one of every_us or every_updates must be set to a positive value")

// ErrInvalidDateRange is returned when a start date (or timestamp) falls
// after the corresponding end, surfaced before any scan I/O.
var ErrInvalidDateRange = errors.New("facade: start date is after end date")

// ReplayBetweenParams mirrors spec.md §4.7's replay_between signature.
type ReplayBetweenParams struct {
	Exchange   string
	ExchangeID int16
	SymbolID   int64

	StartTS int64
	EndTS   int64

	EveryUS      *int64
	EveryUpdates *uint64

	Book BookParams
}

func (p ReplayBetweenParams) hasCadence() bool {
	if p.EveryUS != nil && *p.EveryUS > 0 {
		return true
	}
	if p.EveryUpdates != nil && *p.EveryUpdates > 0 {
		return true
	}
	return false
}

// ReplayBetween emits one row per cadence-triggered timestamp group
// between StartTS and EndTS (inclusive of groups closing at StartTS or
// later), seeded from the nearest checkpoint at or before StartTS. The
// returned record matches columnar.ReplaySchema.
func ReplayBetween(ctx context.Context, deps Deps, params ReplayBetweenParams) (arrow.Record, error) {
	if !params.hasCadence() {
		return nil, ErrNoCadence
	}
	if params.StartTS > params.EndTS {
		return nil, ErrInvalidDateRange
	}

	runID := diag.NewRunID()
	logger := deps.logger().With("run_id", runID, "op", "replay_between", "symbol_id", params.SymbolID)
	timing := diag.NewTiming(logger, runID.String())

	startDate := store.DateDaysFromTS(params.StartTS)
	endDate := store.DateDaysFromTS(params.EndTS)

	b, err := newBook(params.Book, logger)
	if err != nil {
		return nil, fmt.Errorf("facade: replay_between: %w", err)
	}

	var minPos *model.StreamPos
	if deps.Checkpoints != nil {
		done := timing.Phase("replay_between latest_checkpoint")
		ckpt, err := deps.Checkpoints.LatestCheckpoint(ctx, params.Exchange, params.ExchangeID, params.SymbolID, params.StartTS)
		done()
		if err != nil {
			return nil, fmt.Errorf("facade: replay_between: latest checkpoint: %w", err)
		}
		if ckpt != nil {
			b.SeedFromLevels(ckpt.Bids, ckpt.Asks)
			minPos = &ckpt.Pos
		}
	}

	symbolID := params.SymbolID
	scanParams := store.ScanParams{
		Exchange:        params.Exchange,
		ExchangeID:      params.ExchangeID,
		SymbolID:        &symbolID,
		StartDate:       startDate,
		EndDate:         endDate,
		MaxTSInclusive:  params.EndTS,
		MinPosExclusive: minPos,
	}

	done := timing.Phase("replay_between scan")
	src, err := deps.Updates.Scan(ctx, scanParams)
	done()
	if err != nil {
		return nil, fmt.Errorf("facade: replay_between: scan: %w", err)
	}

	builder := columnar.NewReplayBatchBuilder(nil)
	emit := func(bk book.Book, pos model.StreamPos, _ model.CheckpointMeta) error {
		bids, asks := bk.Levels()
		builder.Append(params.ExchangeID, params.SymbolID, pos, bids, asks)
		return nil
	}

	opts := replay.Options[model.CheckpointMeta]{
		EveryUS:      params.EveryUS,
		EveryUpdates: params.EveryUpdates,
		ShouldCount: func(u model.L2Update) bool {
			return u.TSLocalUS >= params.StartTS
		},
		ShouldEmit: func(pos model.StreamPos) bool {
			return pos.TSLocalUS >= params.StartTS
		},
	}

	replayStart := time.Now()
	err = replay.Run(b, src, opts, nil, emit)
	elapsed := time.Since(replayStart)
	if err != nil {
		builder.Release()
		return nil, fmt.Errorf("facade: replay_between: replay: %w", err)
	}

	rows := builder.Len()
	rec := builder.NewRecord()
	builder.Release()
	timing.LogThroughput(ctx, "replay_between", rows, elapsed)
	return rec, nil
}
