package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rickgao/l2replay/internal/model"
)

// PartitionRecord is one row of the checkpoint_partitions table: the
// latest known state of a single (exchange, date, symbol_id) partition.
type PartitionRecord struct {
	Exchange  string
	DateDays  int32
	SymbolID  int64
	FilePath  string
	RowCount  int64
	LatestPos model.StreamPos
}

// Catalog is the store-level accelerator contract. Implementations must
// treat every method as best-effort: a caller that gets an error should
// fall back to directly scanning the partition tree.
type Catalog interface {
	// LatestPartition returns the most recent partition record for
	// (exchange, symbolID) whose date is not after dateDays, or ok=false
	// if none is known to the catalog.
	LatestPartition(ctx context.Context, exchange string, symbolID int64, dateDays int32) (rec PartitionRecord, ok bool, err error)
	UpsertPartition(ctx context.Context, rec PartitionRecord) error
	Close()
}

// PostgresCatalog is the pgx-backed Catalog implementation.
type PostgresCatalog struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// Connect opens a pool against dsn (a full postgres:// connection string,
// as produced by a deployment's secrets manager) and verifies it with a
// ping, the same two-step shape as the teacher's database.Connect.
func Connect(ctx context.Context, dsn string, logger *slog.Logger) (*PostgresCatalog, error) {
	if logger == nil {
		logger = slog.Default()
	}

	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("catalog: parse connection string: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("catalog: create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("catalog: ping database: %w", err)
	}

	return &PostgresCatalog{pool: pool, logger: logger}, nil
}

// EnsureSchema creates the checkpoint_partitions table if it does not
// already exist. Safe to call on every process start.
func (c *PostgresCatalog) EnsureSchema(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS checkpoint_partitions (
	exchange    text NOT NULL,
	date        date NOT NULL,
	symbol_id   bigint NOT NULL,
	file_path   text NOT NULL,
	row_count   bigint NOT NULL,
	latest_ts   bigint NOT NULL,
	latest_seq  integer NOT NULL,
	latest_file integer NOT NULL,
	latest_line integer NOT NULL,
	updated_at  timestamptz NOT NULL DEFAULT now(),
	PRIMARY KEY (exchange, date, symbol_id)
)`
	if _, err := c.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("catalog: ensure schema: %w", err)
	}
	return nil
}

// LatestPartition returns the most recent row at or before dateDays for
// (exchange, symbolID), ordered by date descending.
func (c *PostgresCatalog) LatestPartition(ctx context.Context, exchange string, symbolID int64, dateDays int32) (PartitionRecord, bool, error) {
	const q = `
SELECT date, file_path, row_count, latest_ts, latest_seq, latest_file, latest_line
FROM checkpoint_partitions
WHERE exchange = $1 AND symbol_id = $2 AND date <= to_timestamp($3 * 86400)::date
ORDER BY date DESC
LIMIT 1`

	row := c.pool.QueryRow(ctx, q, exchange, symbolID, dateDays)

	var rec PartitionRecord
	rec.Exchange = exchange
	rec.SymbolID = symbolID
	var date int32
	err := row.Scan(&date, &rec.FilePath, &rec.RowCount,
		&rec.LatestPos.TSLocalUS, &rec.LatestPos.IngestSeq, &rec.LatestPos.FileID, &rec.LatestPos.FileLineNumber)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PartitionRecord{}, false, nil
		}
		return PartitionRecord{}, false, fmt.Errorf("catalog: query latest partition: %w", err)
	}
	rec.DateDays = date
	return rec, true, nil
}

// UpsertPartition records or replaces the catalog row for one partition,
// called in the same step that rewrites its Parquet file.
func (c *PostgresCatalog) UpsertPartition(ctx context.Context, rec PartitionRecord) error {
	const q = `
INSERT INTO checkpoint_partitions
	(exchange, date, symbol_id, file_path, row_count, latest_ts, latest_seq, latest_file, latest_line, updated_at)
VALUES
	($1, to_timestamp($2 * 86400)::date, $3, $4, $5, $6, $7, $8, $9, now())
ON CONFLICT (exchange, date, symbol_id) DO UPDATE SET
	file_path = EXCLUDED.file_path,
	row_count = EXCLUDED.row_count,
	latest_ts = EXCLUDED.latest_ts,
	latest_seq = EXCLUDED.latest_seq,
	latest_file = EXCLUDED.latest_file,
	latest_line = EXCLUDED.latest_line,
	updated_at = now()`

	_, err := c.pool.Exec(ctx, q,
		rec.Exchange, rec.DateDays, rec.SymbolID, rec.FilePath, rec.RowCount,
		rec.LatestPos.TSLocalUS, rec.LatestPos.IngestSeq, rec.LatestPos.FileID, rec.LatestPos.FileLineNumber)
	if err != nil {
		return fmt.Errorf("catalog: upsert partition: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (c *PostgresCatalog) Close() {
	c.pool.Close()
}
