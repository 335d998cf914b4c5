package store

import (
	"context"
	"fmt"
	"os"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
)

// readParquetFile reads every row of path into record batches, handing
// each to fn in turn. fn must not retain the record past its call.
func readParquetFile(ctx context.Context, path string, fn func(arrow.Record) error) error {
	rdr, err := file.OpenParquetFile(path, false)
	if err != nil {
		return fmt.Errorf("store: open %s: %w", path, err)
	}
	defer rdr.Close()

	arrowRdr, err := pqarrow.NewFileReader(rdr, pqarrow.ArrowReadProperties{}, memory.DefaultAllocator)
	if err != nil {
		return fmt.Errorf("store: arrow reader for %s: %w", path, err)
	}

	table, err := arrowRdr.ReadTable(ctx)
	if err != nil {
		return fmt.Errorf("store: read table from %s: %w", path, err)
	}
	defer table.Release()

	tr := array.NewTableReader(table, table.NumRows())
	defer tr.Release()
	for tr.Next() {
		rec := tr.Record()
		if err := fn(rec); err != nil {
			return err
		}
	}
	return nil
}

// writeParquetFile writes rec to path as a single row group, ZSTD
// compressed at level 3. The parent directory must already exist. An
// existing file at path is overwritten.
func writeParquetFile(path string, rec arrow.Record) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("store: create %s: %w", path, err)
	}
	defer f.Close()

	props := parquet.NewWriterProperties(
		parquet.WithCompression(compress.Codecs.Zstd),
		parquet.WithCompressionLevel(3),
	)
	arrowProps := pqarrow.DefaultWriterProps()

	writer, err := pqarrow.NewFileWriter(rec.Schema(), f, props, arrowProps)
	if err != nil {
		return fmt.Errorf("store: new parquet writer for %s: %w", path, err)
	}
	if err := writer.Write(rec); err != nil {
		writer.Close()
		return fmt.Errorf("store: write record to %s: %w", path, err)
	}
	return writer.Close()
}
