package columnar

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"

	"github.com/rickgao/l2replay/internal/model"
)

func columnByName(rec arrow.Record, name string) (arrow.Array, error) {
	indices := rec.Schema().FieldIndices(name)
	if len(indices) == 0 {
		return nil, fmt.Errorf("columnar: missing column %q", name)
	}
	return rec.Column(indices[0]), nil
}

func int64Column(rec arrow.Record, name string) (*array.Int64, error) {
	col, err := columnByName(rec, name)
	if err != nil {
		return nil, err
	}
	typed, ok := col.(*array.Int64)
	if !ok {
		return nil, fmt.Errorf("columnar: column %q has unexpected type %T", name, col)
	}
	return typed, nil
}

func int32Column(rec arrow.Record, name string) (*array.Int32, error) {
	col, err := columnByName(rec, name)
	if err != nil {
		return nil, err
	}
	typed, ok := col.(*array.Int32)
	if !ok {
		return nil, fmt.Errorf("columnar: column %q has unexpected type %T", name, col)
	}
	return typed, nil
}

func int16Column(rec arrow.Record, name string) (*array.Int16, error) {
	col, err := columnByName(rec, name)
	if err != nil {
		return nil, err
	}
	typed, ok := col.(*array.Int16)
	if !ok {
		return nil, fmt.Errorf("columnar: column %q has unexpected type %T", name, col)
	}
	return typed, nil
}

func stringColumn(rec arrow.Record, name string) (*array.String, error) {
	col, err := columnByName(rec, name)
	if err != nil {
		return nil, err
	}
	typed, ok := col.(*array.String)
	if !ok {
		return nil, fmt.Errorf("columnar: column %q has unexpected type %T", name, col)
	}
	return typed, nil
}

func date32Column(rec arrow.Record, name string) (*array.Date32, error) {
	col, err := columnByName(rec, name)
	if err != nil {
		return nil, err
	}
	typed, ok := col.(*array.Date32)
	if !ok {
		return nil, fmt.Errorf("columnar: column %q has unexpected type %T", name, col)
	}
	return typed, nil
}

func boolColumn(rec arrow.Record, name string) (*array.Boolean, error) {
	col, err := columnByName(rec, name)
	if err != nil {
		return nil, err
	}
	typed, ok := col.(*array.Boolean)
	if !ok {
		return nil, fmt.Errorf("columnar: column %q has unexpected type %T", name, col)
	}
	return typed, nil
}

// sideValue decodes one row of the "side" column, accepting either a
// uint8 or an int8 physical type (some writers emit the latter), and
// rejecting a negative int8 the way the source engine does.
func sideValue(col arrow.Array, row int) (model.Side, error) {
	if u, ok := col.(*array.Uint8); ok {
		return model.Side(u.Value(row)), nil
	}
	if i, ok := col.(*array.Int8); ok {
		v := i.Value(row)
		if v < 0 {
			return 0, fmt.Errorf("columnar: column side has negative value %d", v)
		}
		return model.Side(v), nil
	}
	return 0, fmt.Errorf("columnar: column side has unexpected type %T", col)
}

// UpdateColumns holds the typed per-column arrays of one updates batch, so
// a row can be decoded with no further type assertions.
type UpdateColumns struct {
	tsLocalUS      *array.Int64
	ingestSeq      *array.Int32
	fileLineNumber *array.Int32
	isSnapshot     *array.Boolean
	side           arrow.Array
	priceInt       *array.Int64
	sizeInt        *array.Int64
	fileID         *array.Int32
}

// DecodeUpdates resolves every column UpdateAt needs out of rec once, so a
// batch's rows can then be decoded in a tight loop.
func DecodeUpdates(rec arrow.Record) (*UpdateColumns, error) {
	cols := &UpdateColumns{}
	var err error
	if cols.tsLocalUS, err = int64Column(rec, "ts_local_us"); err != nil {
		return nil, err
	}
	if cols.ingestSeq, err = int32Column(rec, "ingest_seq"); err != nil {
		return nil, err
	}
	if cols.fileLineNumber, err = int32Column(rec, "file_line_number"); err != nil {
		return nil, err
	}
	if cols.isSnapshot, err = boolColumn(rec, "is_snapshot"); err != nil {
		return nil, err
	}
	if cols.side, err = columnByName(rec, "side"); err != nil {
		return nil, err
	}
	if cols.priceInt, err = int64Column(rec, "price_int"); err != nil {
		return nil, err
	}
	if cols.sizeInt, err = int64Column(rec, "size_int"); err != nil {
		return nil, err
	}
	if cols.fileID, err = int32Column(rec, "file_id"); err != nil {
		return nil, err
	}
	return cols, nil
}

// UpdateAt decodes row into an L2Update.
func (c *UpdateColumns) UpdateAt(row int) (model.L2Update, error) {
	side, err := sideValue(c.side, row)
	if err != nil {
		return model.L2Update{}, err
	}
	return model.L2Update{
		TSLocalUS:      c.tsLocalUS.Value(row),
		IngestSeq:      c.ingestSeq.Value(row),
		FileLineNumber: c.fileLineNumber.Value(row),
		FileID:         c.fileID.Value(row),
		IsSnapshot:     c.isSnapshot.Value(row),
		Side:           side,
		PriceInt:       c.priceInt.Value(row),
		SizeInt:        c.sizeInt.Value(row),
	}, nil
}

// CheckpointUpdateColumns additionally carries the exchange_id/symbol_id
// columns a multi-symbol checkpoint-build scan reads alongside each row.
type CheckpointUpdateColumns struct {
	UpdateColumns
	exchangeID *array.Int16
	symbolID   *array.Int64
}

// DecodeCheckpointUpdates is DecodeUpdates plus the identity columns.
func DecodeCheckpointUpdates(rec arrow.Record) (*CheckpointUpdateColumns, error) {
	base, err := DecodeUpdates(rec)
	if err != nil {
		return nil, err
	}
	cols := &CheckpointUpdateColumns{UpdateColumns: *base}
	if cols.exchangeID, err = int16Column(rec, "exchange_id"); err != nil {
		return nil, err
	}
	if cols.symbolID, err = int64Column(rec, "symbol_id"); err != nil {
		return nil, err
	}
	return cols, nil
}

// At decodes row into its identity metadata and its update.
func (c *CheckpointUpdateColumns) At(row int) (model.CheckpointMeta, model.L2Update, error) {
	u, err := c.UpdateAt(row)
	if err != nil {
		return model.CheckpointMeta{}, model.L2Update{}, err
	}
	meta := model.CheckpointMeta{
		ExchangeID: c.exchangeID.Value(row),
		SymbolID:   c.symbolID.Value(row),
	}
	return meta, u, nil
}

// DecodeLevels reads the list<struct{price_int,size_int}> column named
// name at row, returning no levels for a null list rather than an error.
func DecodeLevels(rec arrow.Record, name string, row int) ([]model.Level, error) {
	col, err := columnByName(rec, name)
	if err != nil {
		return nil, err
	}
	list, ok := col.(*array.List)
	if !ok {
		return nil, fmt.Errorf("columnar: column %q has unexpected type %T", name, col)
	}
	return levelsFromList(list, row)
}

func levelsFromList(list *array.List, row int) ([]model.Level, error) {
	if list.IsNull(row) {
		return nil, nil
	}
	start, end := list.ValueOffsets(row)
	values := list.ListValues()
	structArr, ok := values.(*array.Struct)
	if !ok {
		return nil, fmt.Errorf("columnar: list values are not a struct array, got %T", values)
	}
	return levelsFromStruct(structArr, int(start), int(end))
}

// DecodeCheckpointRows decodes every row of a checkpoint-table record batch
// (matching CheckpointSchema) into CheckpointRow values.
func DecodeCheckpointRows(rec arrow.Record) ([]model.CheckpointRow, error) {
	exchangeCol, err := stringColumn(rec, "exchange")
	if err != nil {
		return nil, err
	}
	exchangeIDCol, err := int16Column(rec, "exchange_id")
	if err != nil {
		return nil, err
	}
	symbolIDCol, err := int64Column(rec, "symbol_id")
	if err != nil {
		return nil, err
	}
	dateCol, err := date32Column(rec, "date")
	if err != nil {
		return nil, err
	}
	tsCol, err := int64Column(rec, "ts_local_us")
	if err != nil {
		return nil, err
	}
	fileIDCol, err := int32Column(rec, "file_id")
	if err != nil {
		return nil, err
	}
	ingestSeqCol, err := int32Column(rec, "ingest_seq")
	if err != nil {
		return nil, err
	}
	fileLineCol, err := int32Column(rec, "file_line_number")
	if err != nil {
		return nil, err
	}
	kindCol, err := stringColumn(rec, "checkpoint_kind")
	if err != nil {
		return nil, err
	}

	rows := make([]model.CheckpointRow, 0, rec.NumRows())
	for row := 0; row < int(rec.NumRows()); row++ {
		bids, err := DecodeLevels(rec, "bids", row)
		if err != nil {
			return nil, err
		}
		asks, err := DecodeLevels(rec, "asks", row)
		if err != nil {
			return nil, err
		}
		rows = append(rows, model.CheckpointRow{
			Exchange:       exchangeCol.Value(row),
			ExchangeID:     exchangeIDCol.Value(row),
			SymbolID:       symbolIDCol.Value(row),
			DateDays:       int32(dateCol.Value(row)),
			TSLocalUS:      tsCol.Value(row),
			Bids:           bids,
			Asks:           asks,
			FileID:         fileIDCol.Value(row),
			IngestSeq:      ingestSeqCol.Value(row),
			FileLineNumber: fileLineCol.Value(row),
			CheckpointKind: kindCol.Value(row),
		})
	}
	return rows, nil
}

func levelsFromStruct(structArr *array.Struct, start, end int) ([]model.Level, error) {
	prices, ok := structArr.Field(0).(*array.Int64)
	if !ok {
		return nil, fmt.Errorf("columnar: price_int field has unexpected type %T", structArr.Field(0))
	}
	sizes, ok := structArr.Field(1).(*array.Int64)
	if !ok {
		return nil, fmt.Errorf("columnar: size_int field has unexpected type %T", structArr.Field(1))
	}

	levels := make([]model.Level, 0, end-start)
	for row := start; row < end; row++ {
		if structArr.IsNull(row) {
			continue
		}
		levels = append(levels, model.Level{PriceInt: prices.Value(row), SizeInt: sizes.Value(row)})
	}
	return levels, nil
}
