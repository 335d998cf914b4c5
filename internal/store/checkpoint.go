package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/apache/arrow-go/v18/arrow"

	"github.com/rickgao/l2replay/internal/catalog"
	"github.com/rickgao/l2replay/internal/columnar"
	"github.com/rickgao/l2replay/internal/model"
)

// LatestCheckpoint returns the most recent checkpoint at or before
// tsLocalUS for (exchange, symbolID). When a catalog is configured it is
// consulted first for a direct file-path lookup; a miss or catalog error
// falls back to scanning checkpoint partitions from the target date
// backwards. A partition is date-scoped, not symbol-scoped, so several
// symbols' rows can share one file; the first partition (most recent date
// not after the target) that contains any qualifying row for this symbol
// holds the answer, since every row in an earlier partition necessarily
// has a smaller ts_local_us.
func (s *ParquetStore) LatestCheckpoint(ctx context.Context, exchange string, exchangeID int16, symbolID int64, tsLocalUS int64) (*model.Checkpoint, error) {
	done := s.phase("store_latest_checkpoint")
	defer done()

	targetDate := DateDaysFromTS(tsLocalUS)

	if s.catalog != nil {
		if ckpt, found, err := s.latestCheckpointFromCatalog(ctx, exchange, exchangeID, symbolID, tsLocalUS, targetDate); err == nil && found {
			return ckpt, nil
		}
	}

	dirs, err := checkpointPartitionDirs(s.checkpointsRoot)
	if err != nil {
		return nil, err
	}

	type candidate struct {
		dir  string
		date int32
	}
	var candidates []candidate
	for _, dir := range dirs {
		exDir, dateDir := filepath.Split(filepath.Clean(dir))
		if filepath.Base(filepath.Clean(exDir)) != "exchange="+exchange {
			continue
		}
		days, ok := parseDatePartitionValue(dateDir)
		if !ok || days > targetDate {
			continue
		}
		candidates = append(candidates, candidate{dir: dir, date: days})
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].date > candidates[j].date })

	for _, c := range candidates {
		files, err := listParquetFiles(c.dir)
		if err != nil {
			return nil, err
		}
		var best *model.Checkpoint
		for _, f := range files {
			err := readParquetFile(ctx, f, func(rec arrow.Record) error {
				rows, err := columnar.DecodeCheckpointRows(rec)
				if err != nil {
					return err
				}
				for _, row := range rows {
					if row.ExchangeID != exchangeID || row.SymbolID != symbolID {
						continue
					}
					if row.TSLocalUS > tsLocalUS {
						continue
					}
					pos := model.StreamPos{
						TSLocalUS:      row.TSLocalUS,
						IngestSeq:      row.IngestSeq,
						FileID:         row.FileID,
						FileLineNumber: row.FileLineNumber,
					}
					if best == nil || pos.Compare(best.Pos) > 0 {
						best = &model.Checkpoint{Pos: pos, Bids: row.Bids, Asks: row.Asks}
					}
				}
				return nil
			})
			if err != nil {
				return nil, fmt.Errorf("store: reading checkpoint %s: %w", f, err)
			}
		}
		if best != nil {
			return best, nil
		}
	}
	return nil, nil
}

// latestCheckpointFromCatalog answers LatestCheckpoint from a single
// catalog-indicated file instead of walking the partition tree.
func (s *ParquetStore) latestCheckpointFromCatalog(ctx context.Context, exchange string, exchangeID int16, symbolID int64, tsLocalUS int64, targetDate int32) (*model.Checkpoint, bool, error) {
	rec, ok, err := s.catalog.LatestPartition(ctx, exchange, symbolID, targetDate)
	if err != nil || !ok {
		return nil, false, err
	}

	var best *model.Checkpoint
	err = readParquetFile(ctx, rec.FilePath, func(arrowRec arrow.Record) error {
		rows, err := columnar.DecodeCheckpointRows(arrowRec)
		if err != nil {
			return err
		}
		for _, row := range rows {
			if row.ExchangeID != exchangeID || row.SymbolID != symbolID {
				continue
			}
			if row.TSLocalUS > tsLocalUS {
				continue
			}
			pos := model.StreamPos{
				TSLocalUS:      row.TSLocalUS,
				IngestSeq:      row.IngestSeq,
				FileID:         row.FileID,
				FileLineNumber: row.FileLineNumber,
			}
			if best == nil || pos.Compare(best.Pos) > 0 {
				best = &model.Checkpoint{Pos: pos, Bids: row.Bids, Asks: row.Asks}
			}
		}
		return nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("store: reading cataloged checkpoint %s: %w", rec.FilePath, err)
	}
	if best == nil {
		return nil, false, nil
	}
	return best, true, nil
}

// WriteCheckpointRows performs an idempotent rebuild scoped to the
// (exchange, date, symbol_id) triples rows touches. A checkpoint partition
// directory is shared by every symbol_id for that date, so for each
// (exchange, date) group this reads any existing partition file, drops the
// rows belonging to a touched symbol (rows is that symbol's full
// replacement contribution), and writes back the untouched symbols' rows
// unioned with rows — never destroying another symbol's checkpoints in the
// same partition.
func (s *ParquetStore) WriteCheckpointRows(ctx context.Context, rows []model.CheckpointRow) (int, error) {
	type partitionGroupKey struct {
		Exchange string
		DateDays int32
	}
	groups := make(map[partitionGroupKey][]model.CheckpointRow)
	var order []partitionGroupKey
	for _, row := range rows {
		key := partitionGroupKey{Exchange: row.Exchange, DateDays: row.DateDays}
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], row)
	}

	written := 0
	for _, key := range order {
		dir := checkpointPartitionDir(s.checkpointsRoot, key.Exchange, key.DateDays)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return written, fmt.Errorf("store: creating partition dir %s: %w", dir, err)
		}

		groupRows := groups[key]
		touchedSymbols := make(map[int64]struct{}, len(groupRows))
		for _, row := range groupRows {
			touchedSymbols[row.SymbolID] = struct{}{}
		}

		existing, err := listParquetFiles(dir)
		if err != nil {
			return written, err
		}
		var preserved []model.CheckpointRow
		for _, f := range existing {
			err := readParquetFile(ctx, f, func(rec arrow.Record) error {
				fileRows, err := columnar.DecodeCheckpointRows(rec)
				if err != nil {
					return err
				}
				for _, row := range fileRows {
					if _, touched := touchedSymbols[row.SymbolID]; touched {
						continue
					}
					preserved = append(preserved, row)
				}
				return nil
			})
			if err != nil {
				return written, fmt.Errorf("store: reading existing checkpoint %s: %w", f, err)
			}
			if err := os.Remove(f); err != nil {
				return written, fmt.Errorf("store: removing stale checkpoint file %s: %w", f, err)
			}
		}

		allRows := append(preserved, groupRows...)
		rec := columnar.BuildCheckpointBatch(allRows, nil)
		path := filepath.Join(dir, "part-0.parquet")
		if err := writeParquetFile(path, rec); err != nil {
			rec.Release()
			return written, err
		}
		rec.Release()
		written += len(groupRows)

		if s.catalog != nil {
			if err := s.upsertCatalogPartitions(ctx, path, allRows); err != nil {
				return written, err
			}
		}
	}
	return written, nil
}

// upsertCatalogPartitions records one catalog row per symbol present in a
// just-written checkpoint partition file, each keyed to that file and the
// symbol's best (highest StreamPos) row within it.
func (s *ParquetStore) upsertCatalogPartitions(ctx context.Context, path string, rows []model.CheckpointRow) error {
	type bySymbol struct {
		count int64
		best  model.CheckpointRow
	}
	bySymbolID := make(map[int64]*bySymbol)
	var order []int64
	for _, row := range rows {
		acc, ok := bySymbolID[row.SymbolID]
		if !ok {
			acc = &bySymbol{}
			bySymbolID[row.SymbolID] = acc
			order = append(order, row.SymbolID)
		}
		acc.count++
		bestPos := model.StreamPos{
			TSLocalUS:      acc.best.TSLocalUS,
			IngestSeq:      acc.best.IngestSeq,
			FileID:         acc.best.FileID,
			FileLineNumber: acc.best.FileLineNumber,
		}
		rowPos := model.StreamPos{
			TSLocalUS:      row.TSLocalUS,
			IngestSeq:      row.IngestSeq,
			FileID:         row.FileID,
			FileLineNumber: row.FileLineNumber,
		}
		if acc.count == 1 || rowPos.Compare(bestPos) > 0 {
			acc.best = row
		}
	}

	for _, symbolID := range order {
		acc := bySymbolID[symbolID]
		err := s.catalog.UpsertPartition(ctx, catalog.PartitionRecord{
			Exchange: acc.best.Exchange,
			DateDays: acc.best.DateDays,
			SymbolID: symbolID,
			FilePath: path,
			RowCount: acc.count,
			LatestPos: model.StreamPos{
				TSLocalUS:      acc.best.TSLocalUS,
				IngestSeq:      acc.best.IngestSeq,
				FileID:         acc.best.FileID,
				FileLineNumber: acc.best.FileLineNumber,
			},
		})
		if err != nil {
			return fmt.Errorf("store: upserting catalog partition for symbol %d: %w", symbolID, err)
		}
	}
	return nil
}

