// Package store is the external-source adapter (spec.md §4.6): it reads a
// Hive-partitioned Parquet directory tree of update rows, pruning by
// partition before ever opening a file, and writes the durable checkpoint
// table produced by BuildStateCheckpoints.
//
// Partition layout:
//
//	<updatesRoot>/exchange=<exchange>/date=<YYYY-MM-DD>/symbol_id=<id>/*.parquet
//	<checkpointsRoot>/exchange=<exchange>/date=<YYYY-MM-DD>/*.parquet
//
// This is the Go-native analog of the original engine's Delta Lake tables:
// no transaction log, but the same partition-pruned scan and the same
// idempotent delete-then-append rebuild per (exchange, date, symbol_id).
package store
