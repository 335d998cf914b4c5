// Package columnar bridges Arrow record batches and the model package: it
// decodes update rows read from a partitioned Parquet source into
// model.L2Update (and, for the multi-symbol checkpoint-build scan, the
// accompanying model.CheckpointMeta), and builds the two output schemas
// the facade produces (ReplayBetween's batch, BuildStateCheckpoints' rows)
// back into Arrow record batches ready to hand to a Parquet writer.
//
// Everything here works in terms of scaled integers and raw Arrow arrays;
// no floating point and no copy beyond what a builder requires.
package columnar
