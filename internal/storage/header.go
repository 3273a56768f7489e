package storage

import (
	"encoding/binary"

	"github.com/minifish-org/tegdb-sub001/internal/dberr"
)

const (
	// HeaderSize is the fixed size of the log file header.
	HeaderSize = 64

	// FormatVersion is the only version this engine accepts; older versions
	// are a migration problem, not a recovery path.
	FormatVersion uint16 = 2

	bigEndianMarker byte = 1
)

var magic = [6]byte{'T', 'E', 'G', 'D', 'B', 0}

// Header is the fixed 64-byte preamble of a log file.
type Header struct {
	Version      uint16
	FeatureFlags uint32
	MaxKeySize   uint32
	MaxValueSize uint32
	ValidDataEnd uint64
}

// Encode renders h as the 64-byte on-disk header layout.
func (h Header) Encode() [HeaderSize]byte {
	var buf [HeaderSize]byte
	copy(buf[0:6], magic[:])
	binary.BigEndian.PutUint16(buf[6:8], h.Version)
	binary.BigEndian.PutUint32(buf[8:12], h.FeatureFlags)
	binary.BigEndian.PutUint32(buf[12:16], h.MaxKeySize)
	binary.BigEndian.PutUint32(buf[16:20], h.MaxValueSize)
	buf[20] = bigEndianMarker
	binary.BigEndian.PutUint64(buf[21:29], h.ValidDataEnd)
	// buf[29:64] stays zero: reserved.
	return buf
}

// DecodeHeader validates and parses a 64-byte header buffer.
func DecodeHeader(buf []byte) (Header, error) {
	if len(buf) < HeaderSize {
		return Header{}, dberr.ErrCorruptHeader
	}
	if string(buf[0:6]) != string(magic[:]) {
		return Header{}, dberr.ErrInvalidMagic
	}
	version := binary.BigEndian.Uint16(buf[6:8])
	if version != FormatVersion {
		return Header{}, dberr.ErrUnsupportedVers
	}
	if buf[20] != bigEndianMarker {
		return Header{}, dberr.ErrCorruptHeader
	}
	return Header{
		Version:      version,
		FeatureFlags: binary.BigEndian.Uint32(buf[8:12]),
		MaxKeySize:   binary.BigEndian.Uint32(buf[12:16]),
		MaxValueSize: binary.BigEndian.Uint32(buf[16:20]),
		ValidDataEnd: binary.BigEndian.Uint64(buf[21:29]),
	}, nil
}
