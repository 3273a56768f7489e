// Package keyenc encodes primary key values into the byte strings used as
// storage-engine keys, preserving SQL ordering under plain byte comparison
// so a table scan can walk the key directory in primary-key order without
// decoding rows.
package keyenc

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/minifish-org/tegdb-sub001/internal/sqlast"
)

const sep = ':'

// TablePrefix returns the key prefix shared by every row of table, i.e.
// "<table>:".
func TablePrefix(table string) []byte {
	b := make([]byte, 0, len(table)+1)
	b = append(b, table...)
	b = append(b, sep)
	return b
}

// PrefixUpperBound returns the smallest key that sorts strictly after every
// key beginning with prefix, used as the exclusive upper bound of a
// full-table range scan. It returns (nil, false) for the degenerate
// all-0xFF prefix, signalling "scan to end of directory" instead.
func PrefixUpperBound(prefix []byte) ([]byte, bool) {
	out := make([]byte, len(prefix))
	copy(out, prefix)
	for i := len(out) - 1; i >= 0; i-- {
		if out[i] != 0xFF {
			out[i]++
			return out[:i+1], true
		}
	}
	return nil, false
}

// EncodePK appends the sortable encoding of a primary-key value to the
// table's key prefix, producing the full storage-engine key for a row.
func EncodePK(table string, pk sqlast.Value) ([]byte, error) {
	enc, err := EncodeValue(pk)
	if err != nil {
		return nil, err
	}
	key := TablePrefix(table)
	return append(key, enc...), nil
}

// EncodeValue encodes a single scalar value into its order-preserving byte
// representation. Integer and Real always occupy 8 bytes; Text is encoded
// as its raw UTF-8 bytes, which already compare lexicographically.
func EncodeValue(v sqlast.Value) ([]byte, error) {
	switch v.Kind {
	case sqlast.KindInteger:
		return encodeInt(v.Int), nil
	case sqlast.KindReal:
		return encodeReal(v.Real), nil
	case sqlast.KindText:
		return []byte(v.Text), nil
	default:
		return nil, fmt.Errorf("tegdb: value of kind %s cannot be used as a primary key", v.Kind)
	}
}

// encodeInt produces a big-endian two's-complement encoding with the sign
// bit flipped, so unsigned byte comparison matches signed integer ordering:
// the most negative int64 sorts first, the most positive sorts last.
func encodeInt(v int64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(v)^(1<<63))
	return b
}

// DecodeInt reverses encodeInt.
func DecodeInt(b []byte) int64 {
	return int64(binary.BigEndian.Uint64(b) ^ (1 << 63))
}

// encodeReal produces a big-endian IEEE-754 encoding transformed for total
// ordering: for non-negative floats the sign bit is set, for negative
// floats every bit is flipped. This is the standard trick for making
// float64 bit patterns compare correctly as unsigned integers.
func encodeReal(v float64) []byte {
	bits := math.Float64bits(v)
	if bits&(1<<63) != 0 {
		bits = ^bits
	} else {
		bits |= 1 << 63
	}
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, bits)
	return b
}

// DecodeReal reverses encodeReal.
func DecodeReal(b []byte) float64 {
	bits := binary.BigEndian.Uint64(b)
	if bits&(1<<63) != 0 {
		bits &^= 1 << 63
	} else {
		bits = ^bits
	}
	return math.Float64frombits(bits)
}
