package storage

import (
	"encoding/binary"

	"github.com/minifish-org/tegdb-sub001/internal/dberr"
)

// entryHeaderSize is the size of the two length fields preceding key/value
// bytes: key_len (u32 BE) | value_len (u32 BE).
const entryHeaderSize = 8

// commitMarkerKey is the reserved sentinel key that terminates a durable
// transaction boundary; its value is always empty.
const commitMarkerKey = "__TX_COMMIT__"

// encodeEntry renders a key/value pair in the on-disk entry format:
// u32 BE key_len | u32 BE value_len | key | value.
func encodeEntry(key, value []byte) []byte {
	buf := make([]byte, entryHeaderSize+len(key)+len(value))
	binary.BigEndian.PutUint32(buf[0:4], uint32(len(key)))
	binary.BigEndian.PutUint32(buf[4:8], uint32(len(value)))
	copy(buf[8:8+len(key)], key)
	copy(buf[8+len(key):], value)
	return buf
}

// encodeCommitMarker renders the reserved commit-marker entry.
func encodeCommitMarker() []byte {
	return encodeEntry([]byte(commitMarkerKey), nil)
}

// decodedEntry is one parsed log entry plus its position in the file.
type decodedEntry struct {
	Key         []byte
	Value       []byte
	IsTombstone bool
	IsCommit    bool
	Offset      uint64 // offset of the entry's first byte
	NextOffset  uint64 // offset immediately following this entry
}

// decodeEntryAt parses one entry starting at offset within buf (buf holds
// the file contents from some base onward; offset is relative to buf's
// start). It returns dberr.ErrCorrupted if the entry is truncated or its
// declared lengths run past the end of buf; the caller treats this as
// "stop scanning here", not a fatal error.
func decodeEntryAt(buf []byte, offset int) (decodedEntry, error) {
	if offset+entryHeaderSize > len(buf) {
		return decodedEntry{}, dberr.ErrCorrupted
	}
	keyLen := binary.BigEndian.Uint32(buf[offset : offset+4])
	valueLen := binary.BigEndian.Uint32(buf[offset+4 : offset+8])
	if keyLen == 0 {
		// No entry ever carries an empty key; a zero key length means the
		// scan has run into zeroed (preallocated or truncated) space.
		return decodedEntry{}, dberr.ErrCorrupted
	}
	start := offset + entryHeaderSize
	keyEnd := start + int(keyLen)
	valueEnd := keyEnd + int(valueLen)
	if keyEnd < start || valueEnd < keyEnd || valueEnd > len(buf) {
		return decodedEntry{}, dberr.ErrCorrupted
	}
	key := buf[start:keyEnd]
	value := buf[keyEnd:valueEnd]
	return decodedEntry{
		Key:         key,
		Value:       value,
		IsTombstone: valueLen == 0 && string(key) != commitMarkerKey,
		IsCommit:    string(key) == commitMarkerKey && valueLen == 0,
		Offset:      uint64(offset),
		NextOffset:  uint64(valueEnd),
	}, nil
}
