package store

import (
	"context"
	"fmt"
	"sort"

	"github.com/apache/arrow-go/v18/arrow"
	"golang.org/x/sync/errgroup"

	"github.com/rickgao/l2replay/internal/columnar"
	"github.com/rickgao/l2replay/internal/model"
	"github.com/rickgao/l2replay/internal/replay"
)

// Scan implements UpdatesSource: it locates every partition file the
// pruning predicate matches, reads them concurrently (bounded by the
// store's configured concurrency), filters and merges their rows, and
// returns them as one ordered replay.Source.
//
// Partition directories encode exchange, date, and symbol_id, so a row's
// CheckpointMeta is derived from the file's partition path rather than
// decoded from a per-row column — updates files carry no exchange_id or
// symbol_id column of their own.
func (s *ParquetStore) Scan(ctx context.Context, params ScanParams) (replay.Source[model.CheckpointMeta], error) {
	done := s.phase("store_scan")
	defer done()

	files, err := updatesPartitionFiles(s.updatesRoot, params.Exchange, params.StartDate, params.EndDate, params.SymbolID)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return replay.NewSliceSource[model.CheckpointMeta](nil), nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	results := make([][]replay.Item[model.CheckpointMeta], len(files))
	for i, pf := range files {
		i, pf := i, pf
		g.Go(func() error {
			rows, err := s.scanOneFile(gctx, pf, params)
			if err != nil {
				return fmt.Errorf("store: scanning %s: %w", pf.path, err)
			}
			results[i] = rows
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var merged []replay.Item[model.CheckpointMeta]
	for _, rows := range results {
		merged = append(merged, rows...)
	}

	if !params.AssumeSorted {
		sort.Slice(merged, func(i, j int) bool {
			return merged[i].Update.Pos().Less(merged[j].Update.Pos())
		})
	}

	return replay.NewSliceSource(merged), nil
}

// scanOneFile decodes every row of one partition file into Items, applying
// the timestamp ceiling and resume-from-checkpoint floor inline so rows
// that can never survive Run's pruning are never merged or sorted.
func (s *ParquetStore) scanOneFile(ctx context.Context, pf partitionFile, params ScanParams) ([]replay.Item[model.CheckpointMeta], error) {
	meta := model.CheckpointMeta{ExchangeID: params.ExchangeID, SymbolID: pf.symbolID}

	var rows []replay.Item[model.CheckpointMeta]
	err := readParquetFile(ctx, pf.path, func(rec arrow.Record) error {
		if s.schemaPrinter != nil {
			s.schemaPrinter.Print(s.logger, "l2_updates", rec.Schema())
		}
		cols, err := columnar.DecodeUpdates(rec)
		if err != nil {
			return err
		}
		for row := 0; row < int(rec.NumRows()); row++ {
			u, err := cols.UpdateAt(row)
			if err != nil {
				return err
			}
			if u.TSLocalUS > params.MaxTSInclusive {
				continue
			}
			if params.MinPosExclusive != nil && !model.AfterPredicate(u, *params.MinPosExclusive) {
				continue
			}
			rows = append(rows, replay.Item[model.CheckpointMeta]{Update: u, Meta: meta})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}
