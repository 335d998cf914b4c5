package columnar

import "github.com/apache/arrow-go/v18/arrow"

// levelStructType is the (price_int, size_int) pair backing every bids/asks
// column, an Arrow list<struct> in every schema below.
var levelStructType = arrow.StructOf(
	arrow.Field{Name: "price_int", Type: arrow.PrimitiveTypes.Int64},
	arrow.Field{Name: "size_int", Type: arrow.PrimitiveTypes.Int64},
)

var levelListType = arrow.ListOfField(arrow.Field{
	Name:     "item",
	Type:     levelStructType,
	Nullable: true,
})

// updateFieldNames are the columns every updates-partition Parquet file is
// expected to carry, whether scanned for single-symbol replay or for a
// multi-symbol checkpoint build (which additionally reads exchange_id and
// symbol_id, absent here since single-symbol scans already know both from
// their call arguments and partition pruning).
var updateFieldNames = []string{
	"ts_local_us",
	"ingest_seq",
	"file_line_number",
	"is_snapshot",
	"side",
	"price_int",
	"size_int",
	"file_id",
}

// checkpointUpdateFieldNames additionally carries exchange_id and
// symbol_id, since a checkpoint build scans every symbol of an exchange
// in one pass.
var checkpointUpdateFieldNames = append([]string{"exchange_id", "symbol_id"}, updateFieldNames...)

// ReplaySchema is the output schema of ReplayBetween: one row per emitted
// book state.
var ReplaySchema = arrow.NewSchema([]arrow.Field{
	{Name: "exchange_id", Type: arrow.PrimitiveTypes.Int16},
	{Name: "symbol_id", Type: arrow.PrimitiveTypes.Int64},
	{Name: "ts_local_us", Type: arrow.PrimitiveTypes.Int64},
	{Name: "ingest_seq", Type: arrow.PrimitiveTypes.Int32},
	{Name: "file_line_number", Type: arrow.PrimitiveTypes.Int32},
	{Name: "file_id", Type: arrow.PrimitiveTypes.Int32},
	{Name: "bids", Type: levelListType, Nullable: true},
	{Name: "asks", Type: levelListType, Nullable: true},
}, nil)

// CheckpointSchema is the output schema of BuildStateCheckpoints, and the
// schema of the durable checkpoint table partitioned by (exchange, date).
var CheckpointSchema = arrow.NewSchema([]arrow.Field{
	{Name: "exchange", Type: arrow.BinaryTypes.String},
	{Name: "exchange_id", Type: arrow.PrimitiveTypes.Int16},
	{Name: "symbol_id", Type: arrow.PrimitiveTypes.Int64},
	{Name: "date", Type: arrow.FixedWidthTypes.Date32},
	{Name: "ts_local_us", Type: arrow.PrimitiveTypes.Int64},
	{Name: "bids", Type: levelListType, Nullable: true},
	{Name: "asks", Type: levelListType, Nullable: true},
	{Name: "file_id", Type: arrow.PrimitiveTypes.Int32},
	{Name: "ingest_seq", Type: arrow.PrimitiveTypes.Int32},
	{Name: "file_line_number", Type: arrow.PrimitiveTypes.Int32},
	{Name: "checkpoint_kind", Type: arrow.BinaryTypes.String},
}, nil)
