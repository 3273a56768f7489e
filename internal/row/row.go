// Package row implements the fixed-length binary row codec: serializing a
// tuple of values into a schema's fixed-size storage slot and reading
// individual columns back out of it without deserializing the whole row.
package row

import (
	"bytes"
	"encoding/binary"
	"math"

	"github.com/minifish-org/tegdb-sub001/internal/catalog"
	"github.com/minifish-org/tegdb-sub001/internal/dberr"
	"github.com/minifish-org/tegdb-sub001/internal/sqlast"
)

// SerializeRow encodes values (one per schema.Columns entry, in order) into
// a buffer of exactly schema.RecordSize bytes.
//
// The record carries no per-row null flags: NULL in a nullable column is
// stored as an all-zero payload slot, and an all-zero slot in a nullable
// column reads back as NULL. The zero value of a nullable column (0, 0.0,
// '', an all-zero vector) is therefore indistinguishable from NULL;
// columns that must round-trip zeros declare NOT NULL.
func SerializeRow(values []sqlast.Value, schema *catalog.Schema) ([]byte, error) {
	if len(values) != len(schema.Columns) {
		return nil, dberr.NewSchemaError("expected %d column values for table %q, got %d", len(schema.Columns), schema.Name, len(values))
	}
	buf := make([]byte, schema.RecordSize)
	for i, col := range schema.Columns {
		v := values[i]
		if v.IsNull() {
			if !col.Nullable {
				return nil, &dberr.ConstraintViolationError{Table: schema.Name, Column: col.Name, Kind: dberr.ConstraintNotNull}
			}
			// Slot stays zeroed.
			continue
		}
		if err := encodeValue(buf[col.StorageOffset:col.StorageOffset+col.StorageSize], v, col); err != nil {
			return nil, err
		}
	}
	return buf, nil
}

func encodeValue(slot []byte, v sqlast.Value, col catalog.Column) error {
	switch col.Type.Kind {
	case sqlast.TypeInteger:
		if v.Kind != sqlast.KindInteger {
			return dberr.NewTypeError("column %q expects INTEGER, got %s", col.Name, v.Kind)
		}
		binary.BigEndian.PutUint64(slot, uint64(v.Int))
	case sqlast.TypeReal:
		f, ok := asFloat(v)
		if !ok {
			return dberr.NewTypeError("column %q expects REAL, got %s", col.Name, v.Kind)
		}
		binary.BigEndian.PutUint64(slot, math.Float64bits(f))
	case sqlast.TypeText:
		if v.Kind != sqlast.KindText {
			return dberr.NewTypeError("column %q expects TEXT, got %s", col.Name, v.Kind)
		}
		if len(v.Text) > len(slot) {
			return dberr.NewTypeError("column %q: text value exceeds declared length %d", col.Name, len(slot))
		}
		copy(slot, v.Text)
		// remaining bytes are already zero (NUL) from make([]byte, ...)
	case sqlast.TypeBlob:
		if v.Kind != sqlast.KindBlob {
			return dberr.NewTypeError("column %q expects BLOB, got %s", col.Name, v.Kind)
		}
		if len(v.Blob) > len(slot) {
			return dberr.NewTypeError("column %q: blob value exceeds declared length %d", col.Name, len(slot))
		}
		copy(slot, v.Blob)
	case sqlast.TypeVector:
		if v.Kind != sqlast.KindVector {
			return dberr.NewTypeError("column %q expects VECTOR, got %s", col.Name, v.Kind)
		}
		if len(v.Vector)*8 != len(slot) {
			return dberr.NewTypeError("column %q: expected vector of dimension %d, got %d", col.Name, len(slot)/8, len(v.Vector))
		}
		for i, f := range v.Vector {
			binary.BigEndian.PutUint64(slot[i*8:i*8+8], math.Float64bits(f))
		}
	default:
		return dberr.NewSchemaError("column %q has unknown type kind", col.Name)
	}
	return nil
}

func asFloat(v sqlast.Value) (float64, bool) {
	switch v.Kind {
	case sqlast.KindInteger:
		return float64(v.Int), true
	case sqlast.KindReal:
		return v.Real, true
	default:
		return 0, false
	}
}

func decodeValue(slot []byte, col catalog.Column) (sqlast.Value, error) {
	switch col.Type.Kind {
	case sqlast.TypeInteger:
		return sqlast.Integer(int64(binary.BigEndian.Uint64(slot))), nil
	case sqlast.TypeReal:
		return sqlast.Real(math.Float64frombits(binary.BigEndian.Uint64(slot))), nil
	case sqlast.TypeText:
		return sqlast.Text(string(bytes.TrimRight(slot, "\x00"))), nil
	case sqlast.TypeBlob:
		out := make([]byte, len(slot))
		copy(out, slot)
		return sqlast.Blob(out), nil
	case sqlast.TypeVector:
		vec := make([]float64, len(slot)/8)
		for i := range vec {
			vec[i] = math.Float64frombits(binary.BigEndian.Uint64(slot[i*8 : i*8+8]))
		}
		return sqlast.Vector(vec), nil
	default:
		return sqlast.Null, dberr.NewSchemaError("column %q has unknown type kind", col.Name)
	}
}

// GetColumnByIndex decodes a single column out of a serialized row without
// touching any other column's bytes. An all-zero slot in a nullable column
// is NULL (see SerializeRow).
func GetColumnByIndex(data []byte, schema *catalog.Schema, i int) (sqlast.Value, error) {
	if i < 0 || i >= len(schema.Columns) {
		return sqlast.Null, dberr.NewSchemaError("column index %d out of range for table %q", i, schema.Name)
	}
	col := schema.Columns[i]
	if col.StorageOffset+col.StorageSize > len(data) {
		return sqlast.Null, dberr.ErrCorrupted
	}
	slot := data[col.StorageOffset : col.StorageOffset+col.StorageSize]
	if col.Nullable && allZero(slot) {
		return sqlast.Null, nil
	}
	return decodeValue(slot, col)
}

func allZero(b []byte) bool {
	for _, c := range b {
		if c != 0 {
			return false
		}
	}
	return true
}

// GetColumn decodes the named column.
func GetColumn(data []byte, schema *catalog.Schema, name string) (sqlast.Value, error) {
	i := schema.ColumnIndex(name)
	if i < 0 {
		return sqlast.Null, dberr.NewSchemaError("table %q has no column %q", schema.Name, name)
	}
	return GetColumnByIndex(data, schema, i)
}

// GetColumns decodes exactly the named columns, in the order requested.
// The executor uses this for SELECT column projection so a row with many
// columns only pays for the ones a query actually asked for.
func GetColumns(data []byte, schema *catalog.Schema, names []string) ([]sqlast.Value, error) {
	out := make([]sqlast.Value, len(names))
	for i, name := range names {
		v, err := GetColumn(data, schema, name)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// DeserializeFull decodes every column, in schema order.
func DeserializeFull(data []byte, schema *catalog.Schema) ([]sqlast.Value, error) {
	out := make([]sqlast.Value, len(schema.Columns))
	for i := range schema.Columns {
		v, err := GetColumnByIndex(data, schema, i)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
