package facade

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rickgao/l2replay/internal/book"
	"github.com/rickgao/l2replay/internal/diag"
	"github.com/rickgao/l2replay/internal/model"
	"github.com/rickgao/l2replay/internal/progress"
	"github.com/rickgao/l2replay/internal/replay"
	"github.com/rickgao/l2replay/internal/store"
)

// ErrExchangeRequired is returned when BuildStateCheckpointsParams.Exchange
// is empty — spec.md §4.7 requires it for the bulk rebuild.
var ErrExchangeRequired = errors.New("facade: build_state_checkpoints: exchange is required")

// BuildStateCheckpointsParams mirrors spec.md §4.7's build_state_checkpoints
// signature. SymbolID is nil for a full bulk rebuild spanning every symbol
// partition in [StartDate, EndDate]; set it to scope the rebuild to one
// symbol.
type BuildStateCheckpointsParams struct {
	Exchange   string
	ExchangeID int16
	SymbolID   *int64

	StartDate int32
	EndDate   int32

	EveryUS           *int64
	EveryUpdates      *uint64
	ValidateMonotonic bool
	AssumeSorted      bool

	Book BookParams
}

func (p BuildStateCheckpointsParams) hasCadence() bool {
	if p.EveryUS != nil && *p.EveryUS > 0 {
		return true
	}
	if p.EveryUpdates != nil && *p.EveryUpdates > 0 {
		return true
	}
	return false
}

// BuildStateCheckpoints performs a full-range bulk replay over every update
// in [StartDate, EndDate], writes one checkpoint row per cadence-triggered
// timestamp group to the configured CheckpointStore (an idempotent
// rewrite of the (exchange, date) partitions touched), and returns the
// number of rows written.
func BuildStateCheckpoints(ctx context.Context, deps Deps, params BuildStateCheckpointsParams) (int, error) {
	if params.Exchange == "" {
		return 0, ErrExchangeRequired
	}
	if !params.hasCadence() {
		return 0, ErrNoCadence
	}
	if params.StartDate > params.EndDate {
		return 0, ErrInvalidDateRange
	}

	runID := diag.NewRunID()
	logger := deps.logger().With("run_id", runID, "op", "build_state_checkpoints", "exchange", params.Exchange)
	timing := diag.NewTiming(logger, runID.String())

	b, err := newBook(params.Book, logger)
	if err != nil {
		return 0, fmt.Errorf("facade: build_state_checkpoints: %w", err)
	}

	startTS := store.DateBoundsTS(params.StartDate, false)
	endTS := store.DateBoundsTS(params.EndDate, true)

	scanParams := store.ScanParams{
		Exchange:       params.Exchange,
		ExchangeID:     params.ExchangeID,
		SymbolID:       params.SymbolID,
		StartDate:      params.StartDate,
		EndDate:        params.EndDate,
		MaxTSInclusive: endTS,
		AssumeSorted:   params.AssumeSorted,
	}

	done := timing.Phase("build_state_checkpoints scan")
	src, err := deps.Updates.Scan(ctx, scanParams)
	done()
	if err != nil {
		return 0, fmt.Errorf("facade: build_state_checkpoints: scan: %w", err)
	}

	var rows []model.CheckpointRow
	var rowsScanned int64
	emit := func(bk book.Book, pos model.StreamPos, meta model.CheckpointMeta) error {
		bids, asks := bk.Levels()
		rows = append(rows, model.CheckpointRow{
			Exchange:       params.Exchange,
			ExchangeID:     meta.ExchangeID,
			SymbolID:       meta.SymbolID,
			DateDays:       store.DateDaysFromTS(pos.TSLocalUS),
			TSLocalUS:      pos.TSLocalUS,
			Bids:           bids,
			Asks:           asks,
			FileID:         pos.FileID,
			IngestSeq:      pos.IngestSeq,
			FileLineNumber: pos.FileLineNumber,
			CheckpointKind: model.CheckpointKindPeriodic,
		})
		if deps.Progress != nil {
			deps.Progress.Publish(progress.Frame{
				RunID:       runID,
				RowsScanned: rowsScanned,
				RowsWritten: int64(len(rows)),
			})
		}
		return nil
	}

	opts := replay.Options[model.CheckpointMeta]{
		ValidateMonotonic: params.ValidateMonotonic,
		EveryUS:           params.EveryUS,
		EveryUpdates:      params.EveryUpdates,
		// SkipUpdate runs once per scanned row regardless of outcome, so it
		// doubles as the progress feed's rows_scanned counter.
		SkipUpdate: func(u model.L2Update) bool {
			rowsScanned++
			return u.TSLocalUS < startTS || u.TSLocalUS > endTS
		},
	}

	replayStart := time.Now()
	err = replay.Run(b, src, opts, nil, emit)
	elapsed := time.Since(replayStart)
	if err != nil {
		return 0, fmt.Errorf("facade: build_state_checkpoints: replay: %w", err)
	}

	if len(rows) == 0 {
		timing.LogThroughput(ctx, "build_state_checkpoints", 0, elapsed)
		return 0, nil
	}

	done = timing.Phase("build_state_checkpoints write")
	written, err := deps.Checkpoints.WriteCheckpointRows(ctx, rows)
	done()
	if err != nil {
		return written, fmt.Errorf("facade: build_state_checkpoints: write: %w", err)
	}

	if deps.Progress != nil {
		partitions := distinctPartitionCount(rows)
		deps.Progress.Publish(progress.Frame{
			RunID:             runID,
			RowsScanned:       rowsScanned,
			RowsWritten:       int64(written),
			PartitionsTouched: int64(partitions),
		})
	}

	timing.LogThroughput(ctx, "build_state_checkpoints", written, elapsed)
	return written, nil
}

// distinctPartitionCount counts the (exchange, date) checkpoint partitions
// a set of rows touches — the unit WriteCheckpointRows deletes and
// rewrites, not a per-symbol count, since one partition file holds every
// symbol's rows for that day.
func distinctPartitionCount(rows []model.CheckpointRow) int {
	type partitionGroupKey struct {
		Exchange string
		DateDays int32
	}
	seen := make(map[partitionGroupKey]struct{})
	for _, row := range rows {
		seen[partitionGroupKey{Exchange: row.Exchange, DateDays: row.DateDays}] = struct{}{}
	}
	return len(seen)
}
