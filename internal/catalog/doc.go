// Package catalog provides an optional Postgres-backed index of checkpoint
// partitions, accelerating LatestCheckpoint lookups against
// internal/store.ParquetStore without it having to list and open every
// candidate partition directory. Absence of a configured DSN (or any
// catalog error) falls back to the store's own filesystem scan — the
// catalog coordinates store-level bookkeeping, never replay correctness.
package catalog
