package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/ipc"

	"github.com/rickgao/l2replay/internal/catalog"
	"github.com/rickgao/l2replay/internal/config"
	"github.com/rickgao/l2replay/internal/diag"
	"github.com/rickgao/l2replay/internal/progress"
	"github.com/rickgao/l2replay/internal/store"
	"github.com/rickgao/l2replay/internal/version"

	"github.com/rickgao/l2replay"
)

func main() {
	configPath := flag.String("config", "configs/l2replay.local.yaml", "path to config file")
	op := flag.String("op", "", "operation to run: snapshot-at, replay-between, build-checkpoints")
	exchangeID := flag.Int("exchange-id", 0, "numeric exchange id")
	symbolID := flag.Int64("symbol-id", 0, "symbol id (required for snapshot-at and replay-between)")
	ts := flag.Int64("ts", 0, "ts_local_us for snapshot-at")
	startTS := flag.Int64("start-ts", 0, "window start ts_local_us for replay-between")
	endTS := flag.Int64("end-ts", 0, "window end ts_local_us for replay-between")
	startDate := flag.String("start-date", "", "window start date YYYY-MM-DD for build-checkpoints")
	endDate := flag.String("end-date", "", "window end date YYYY-MM-DD for build-checkpoints")
	outPath := flag.String("out", "", "file to write the replay-between Arrow IPC record to (stdout if empty)")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	logger.Info("starting l2replay",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
		"op", *op,
	)

	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	var cat catalog.Catalog
	if cfg.Store.CatalogDSN != "" {
		pg, err := catalog.Connect(ctx, cfg.Store.CatalogDSN, logger)
		if err != nil {
			logger.Error("failed to connect to catalog", "error", err)
			os.Exit(1)
		}
		defer pg.Close()
		if err := pg.EnsureSchema(ctx); err != nil {
			logger.Error("failed to ensure catalog schema", "error", err)
			os.Exit(1)
		}
		cat = pg
		logger.Info("catalog connected")
	}

	runID := diag.NewRunID()
	timing := diag.NewTiming(logger, runID.String())
	schemaPrinter := diag.NewSchemaPrinter()

	storeOpts := []store.Option{
		store.WithConcurrency(cfg.Store.Concurrency),
		store.WithLogger(logger),
		store.WithTiming(timing),
		store.WithSchemaPrinter(schemaPrinter),
	}
	if cat != nil {
		storeOpts = append(storeOpts, store.WithCatalog(cat))
	}
	parquetStore := store.NewParquetStore(cfg.Store.UpdatesPath, cfg.Store.CheckpointPath, storeOpts...)

	broadcaster := progress.NewBroadcaster(logger)

	metricsMux := http.NewServeMux()
	metricsMux.HandleFunc(cfg.Metrics.Path, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]int{"subscribers": broadcaster.SubscriberCount()})
	})
	metricsMux.Handle("/progress", broadcaster)
	metricsServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Metrics.Port),
		Handler: metricsMux,
	}
	go func() {
		logger.Info("starting metrics/progress server", "port", cfg.Metrics.Port)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server error", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		metricsServer.Shutdown(shutdownCtx)
	}()

	deps := l2replay.Deps{
		Updates:     parquetStore,
		Checkpoints: parquetStore,
		Logger:      logger,
		Progress:    broadcaster,
	}
	book := l2replay.BookParams{
		DenseMinPriceInt: cfg.DenseBook.MinPriceInt,
		DenseMaxPriceInt: cfg.DenseBook.MaxPriceInt,
		DenseTickSizeInt: cfg.DenseBook.TickSizeInt,
	}

	switch *op {
	case "snapshot-at":
		snap, err := l2replay.SnapshotAt(ctx, deps, l2replay.SnapshotAtParams{
			Exchange:   cfg.Store.Exchange,
			ExchangeID: int16(*exchangeID),
			SymbolID:   *symbolID,
			TSLocalUS:  *ts,
			Book:       book,
		})
		if err != nil {
			logger.Error("snapshot_at failed", "error", err)
			os.Exit(1)
		}
		json.NewEncoder(os.Stdout).Encode(snap)

	case "replay-between":
		rec, err := l2replay.ReplayBetween(ctx, deps, l2replay.ReplayBetweenParams{
			Exchange:     cfg.Store.Exchange,
			ExchangeID:   int16(*exchangeID),
			SymbolID:     *symbolID,
			StartTS:      *startTS,
			EndTS:        *endTS,
			EveryUS:      cfg.Cadence.EveryUS,
			EveryUpdates: cfg.Cadence.EveryUpdates,
			Book:         book,
		})
		if err != nil {
			logger.Error("replay_between failed", "error", err)
			os.Exit(1)
		}
		defer rec.Release()
		if err := writeRecord(rec, *outPath); err != nil {
			logger.Error("failed to write replay-between record", "error", err)
			os.Exit(1)
		}

	case "build-checkpoints":
		startDays, err := parseDateFlag(*startDate)
		if err != nil {
			logger.Error("invalid start-date", "error", err)
			os.Exit(1)
		}
		endDays, err := parseDateFlag(*endDate)
		if err != nil {
			logger.Error("invalid end-date", "error", err)
			os.Exit(1)
		}
		written, err := l2replay.BuildStateCheckpoints(ctx, deps, l2replay.BuildStateCheckpointsParams{
			Exchange:          cfg.Store.Exchange,
			ExchangeID:        int16(*exchangeID),
			StartDate:         startDays,
			EndDate:           endDays,
			EveryUS:           cfg.Cadence.EveryUS,
			EveryUpdates:      cfg.Cadence.EveryUpdates,
			ValidateMonotonic: cfg.Replay.ValidateMonotonic,
			Book:              book,
		})
		if err != nil {
			logger.Error("build_state_checkpoints failed", "error", err)
			os.Exit(1)
		}
		logger.Info("build_state_checkpoints complete", "rows_written", written)

	default:
		logger.Error("unknown or missing -op", "op", *op)
		fmt.Fprintln(os.Stderr, "usage: l2replay -op={snapshot-at,replay-between,build-checkpoints} -config=path [flags]")
		os.Exit(1)
	}

	logger.Info("l2replay finished")
}

func parseDateFlag(s string) (int32, error) {
	if s == "" {
		return 0, errors.New("date flag is required for build-checkpoints")
	}
	return store.ParseDateDays(s)
}

// writeRecord serializes rec as Arrow IPC, to path if set or stdout
// otherwise.
func writeRecord(rec arrow.Record, path string) error {
	out := os.Stdout
	if path != "" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	w, err := ipc.NewFileWriter(out, ipc.WithSchema(rec.Schema()))
	if err != nil {
		return fmt.Errorf("open ipc writer: %w", err)
	}
	if err := w.Write(rec); err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	return w.Close()
}
