// Package storage implements the append-only log engine: on-disk log
// format, in-memory key directory with an inline/on-disk value hybrid,
// crash recovery, and the transaction layer built on atomic commit markers.
package storage

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/minifish-org/tegdb-sub001/internal/dberr"
	"github.com/minifish-org/tegdb-sub001/internal/dblog"
	"github.com/minifish-org/tegdb-sub001/internal/metrics"
)

// Options tunes engine limits and preallocation; see internal/config for
// the TOML-backed loader that produces one of these.
type Options struct {
	MaxKeySize           uint32
	MaxValueSize         uint32
	InlineValueThreshold uint32
	PreallocateSize      int64
}

// DefaultOptions returns the limits a fresh database is opened with when no
// tegdb.toml is present.
func DefaultOptions() Options {
	return Options{
		MaxKeySize:           4 << 10,
		MaxValueSize:         16 << 20,
		InlineValueThreshold: 256,
	}
}

// Engine owns the log file, the in-memory key directory, and the exclusive
// file lock. A single Engine must not be shared across goroutines without
// external synchronization beyond what it provides internally; a database
// handle is effectively single-threaded.
type Engine struct {
	mu          sync.Mutex
	file        *os.File
	path        string
	dir         *directory
	header      Header
	writeOffset uint64
	opts        Options
	log         zerolog.Logger
}

// Open opens (or creates) the log file at path, runs recovery if it already
// contains data, and returns a ready Engine. Open fails with
// dberr.ErrFileLocked if another process already holds the file's lock.
func Open(path string, opts Options) (*Engine, error) {
	log := dblog.WithComponent("storage")

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("tegdb: open log file %s: %w", path, err)
	}
	if err := lockFile(f); err != nil {
		f.Close()
		return nil, err
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("tegdb: stat log file %s: %w", path, err)
	}

	e := &Engine{file: f, path: path, dir: newDirectory(), opts: opts, log: log}

	if info.Size() == 0 {
		if err := e.initFresh(); err != nil {
			f.Close()
			return nil, err
		}
		log.Info().Str("path", path).Msg("initialized new log file")
	} else {
		if err := e.recover(); err != nil {
			f.Close()
			return nil, err
		}
		log.Info().Str("path", path).Uint64("valid_data_end", e.header.ValidDataEnd).Int("keys", e.dir.Len()).Msg("recovered log file")
	}

	if opts.PreallocateSize > 0 {
		if err := e.preallocate(opts.PreallocateSize); err != nil {
			f.Close()
			return nil, err
		}
	}

	return e, nil
}

func (e *Engine) initFresh() error {
	e.header = Header{
		Version:      FormatVersion,
		MaxKeySize:   e.opts.MaxKeySize,
		MaxValueSize: e.opts.MaxValueSize,
		ValidDataEnd: HeaderSize,
	}
	buf := e.header.Encode()
	if _, err := e.file.WriteAt(buf[:], 0); err != nil {
		return fmt.Errorf("tegdb: write fresh header: %w", err)
	}
	e.writeOffset = HeaderSize
	return nil
}

// recover scans entries from offset 64, rebuilds the directory, and rolls
// back everything staged since the last commit marker (or since the start,
// if none appears at all).
func (e *Engine) recover() error {
	info, err := e.file.Stat()
	if err != nil {
		return fmt.Errorf("tegdb: stat log file: %w", err)
	}
	size := info.Size()
	if size < HeaderSize {
		return dberr.ErrCorruptHeader
	}
	buf := make([]byte, size)
	if _, err := e.file.ReadAt(buf, 0); err != nil {
		return fmt.Errorf("tegdb: read log file: %w", err)
	}
	hdr, err := DecodeHeader(buf[:HeaderSize])
	if err != nil {
		return err
	}
	e.header = hdr

	type undoEntry struct {
		key  []byte
		had  bool
		prev ValuePointer
	}
	var undo []undoEntry
	durableOffset := uint64(HeaderSize)
	offset := HeaderSize

	for offset < len(buf) {
		de, derr := decodeEntryAt(buf, offset)
		if derr != nil {
			// Malformed tail: stop scanning here.
			break
		}
		if de.IsCommit {
			undo = undo[:0]
			durableOffset = de.NextOffset
			offset = int(de.NextOffset)
			continue
		}
		prev, had := e.dir.Get(de.Key)
		keyCopy := append([]byte(nil), de.Key...)
		undo = append(undo, undoEntry{key: keyCopy, had: had, prev: prev})
		if de.IsTombstone {
			e.dir.Delete(de.Key)
		} else {
			e.dir.Put(de.Key, e.pointerFor(de.Value, de.Offset))
		}
		offset = int(de.NextOffset)
	}

	// Roll back anything staged after the last durable commit marker,
	// including the case where no commit marker ever appeared.
	for i := len(undo) - 1; i >= 0; i-- {
		u := undo[i]
		if u.had {
			e.dir.Put(u.key, u.prev)
		} else {
			e.dir.Delete(u.key)
		}
		metrics.RecoveryRollbacksTotal.Inc()
	}

	e.writeOffset = durableOffset
	e.header.ValidDataEnd = durableOffset
	// Drop the uncommitted/corrupt tail from disk. Leaving it in place
	// would let a shorter future commit overwrite only part of it, and the
	// surviving stale bytes past that commit's marker could parse as
	// entries on a later open.
	if uint64(size) > durableOffset {
		if err := e.file.Truncate(int64(durableOffset)); err != nil {
			return fmt.Errorf("%w: truncate recovered tail: %v", dberr.ErrIO, err)
		}
	}
	if e.opts.MaxKeySize != 0 {
		e.header.MaxKeySize = e.opts.MaxKeySize
	} else {
		e.opts.MaxKeySize = e.header.MaxKeySize
	}
	if e.opts.MaxValueSize != 0 {
		e.header.MaxValueSize = e.opts.MaxValueSize
	} else {
		e.opts.MaxValueSize = e.header.MaxValueSize
	}
	return e.writeHeader()
}

// pointerFor decides whether value should be cached inline based on the
// configured threshold.
func (e *Engine) pointerFor(value []byte, offset uint64) ValuePointer {
	p := ValuePointer{Offset: offset, Length: uint32(len(value))}
	if uint32(len(value)) <= e.opts.InlineValueThreshold {
		cached := make([]byte, len(value))
		copy(cached, value)
		p.Inline = cached
	}
	return p
}

func (e *Engine) writeHeader() error {
	buf := e.header.Encode()
	_, err := e.file.WriteAt(buf[:], 0)
	return err
}

func (e *Engine) preallocate(size int64) error {
	info, err := e.file.Stat()
	if err != nil {
		return err
	}
	if info.Size() >= size {
		return nil
	}
	return e.file.Truncate(size)
}

// set appends an entry (value_len > 0 unless this is a tombstone) and
// updates the directory. The caller (Transaction) is responsible for undo
// bookkeeping; set itself performs no fsync.
func (e *Engine) set(key, value []byte) error {
	if len(key) == 0 {
		return fmt.Errorf("tegdb: empty key")
	}
	if uint32(len(key)) > e.opts.MaxKeySize {
		return dberr.ErrKeyTooLarge
	}
	if uint32(len(value)) > e.opts.MaxValueSize {
		return dberr.ErrValueTooLarge
	}
	entryOffset := e.writeOffset
	buf := encodeEntry(key, value)
	if _, err := e.file.WriteAt(buf, int64(entryOffset)); err != nil {
		return fmt.Errorf("%w: %v", dberr.ErrIO, err)
	}
	e.writeOffset += uint64(len(buf))
	e.dir.Put(key, e.pointerFor(value, entryOffset))
	metrics.AppendsTotal.Inc()
	return nil
}

// delete appends a tombstone and removes key from the directory.
func (e *Engine) delete(key []byte) error {
	if uint32(len(key)) > e.opts.MaxKeySize {
		return dberr.ErrKeyTooLarge
	}
	buf := encodeEntry(key, nil)
	if _, err := e.file.WriteAt(buf, int64(e.writeOffset)); err != nil {
		return fmt.Errorf("%w: %v", dberr.ErrIO, err)
	}
	e.writeOffset += uint64(len(buf))
	e.dir.Delete(key)
	metrics.AppendsTotal.Inc()
	return nil
}

// appendCommitMarker writes the reserved commit-marker entry, advancing the
// logical end of the log but not fsyncing; callers call Flush afterward.
func (e *Engine) appendCommitMarker() error {
	buf := encodeCommitMarker()
	if _, err := e.file.WriteAt(buf, int64(e.writeOffset)); err != nil {
		return fmt.Errorf("%w: %v", dberr.ErrIO, err)
	}
	e.writeOffset += uint64(len(buf))
	return nil
}

// Flush fsyncs the log file and advances valid_data_end to the current
// logical write offset, in that order, so the header never advertises
// bytes that are not yet durable.
func (e *Engine) Flush() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.flushLocked()
}

func (e *Engine) flushLocked() error {
	start := time.Now()
	if err := e.file.Sync(); err != nil {
		return fmt.Errorf("%w: fsync: %v", dberr.ErrIO, err)
	}
	metrics.FsyncDuration.Observe(time.Since(start).Seconds())
	e.header.ValidDataEnd = e.writeOffset
	if err := e.writeHeader(); err != nil {
		return fmt.Errorf("%w: header rewrite: %v", dberr.ErrIO, err)
	}
	if err := e.file.Sync(); err != nil {
		return fmt.Errorf("%w: fsync header: %v", dberr.ErrIO, err)
	}
	metrics.FlushesTotal.Inc()
	return nil
}

// Get returns the value stored for key, reading through the in-memory
// directory: inline pointers return their cached bytes, on-disk pointers
// perform one positional read.
func (e *Engine) Get(key []byte) ([]byte, bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.getLocked(key)
}

func (e *Engine) getLocked(key []byte) ([]byte, bool, error) {
	p, ok := e.dir.Get(key)
	if !ok {
		return nil, false, nil
	}
	if p.IsInline() {
		return p.Inline, true, nil
	}
	buf := make([]byte, p.Length)
	if _, err := e.file.ReadAt(buf, int64(p.Offset)+entryHeaderSize+int64(len(key))); err != nil {
		return nil, false, fmt.Errorf("%w: %v", dberr.ErrIO, err)
	}
	return buf, true, nil
}

// Len reports the number of live keys in the directory.
func (e *Engine) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dir.Len()
}

// IsEmpty reports whether the directory has no live keys.
func (e *Engine) IsEmpty() bool { return e.Len() == 0 }

// Entry is one key/value pair yielded by Scan.
type Entry struct {
	Key   []byte
	Value []byte
}

// Scan returns every live entry with key in [start, end) in ascending byte
// order, decoded eagerly into a slice. A nil end scans to the end of the
// directory. Callers that need early termination use ScanFunc instead,
// which stops as soon as the callback asks it to.
func (e *Engine) Scan(start, end []byte) ([]Entry, error) {
	var out []Entry
	err := e.ScanFunc(start, end, func(key, value []byte) (bool, error) {
		out = append(out, Entry{Key: append([]byte(nil), key...), Value: append([]byte(nil), value...)})
		return true, nil
	})
	return out, err
}

// ScanFunc walks [start, end) in ascending key order, calling fn for each
// live entry. fn returns (continue, error); returning continue=false stops
// the scan early without error.
func (e *Engine) ScanFunc(start, end []byte, fn func(key, value []byte) (bool, error)) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	var outerErr error
	e.dir.Range(start, end, func(key []byte, ptr ValuePointer) bool {
		var value []byte
		if ptr.IsInline() {
			value = ptr.Inline
		} else {
			buf := make([]byte, ptr.Length)
			if _, err := e.file.ReadAt(buf, int64(ptr.Offset)+entryHeaderSize+int64(len(key))); err != nil {
				outerErr = fmt.Errorf("%w: %v", dberr.ErrIO, err)
				return false
			}
			value = buf
		}
		cont, err := fn(key, value)
		if err != nil {
			outerErr = err
			return false
		}
		return cont
	})
	return outerErr
}

// Close releases the file lock and closes the underlying file. It does not
// flush; callers should Flush before Close if pending writes must be
// durable.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	unlockErr := unlockFile(e.file)
	closeErr := e.file.Close()
	if closeErr != nil {
		return fmt.Errorf("tegdb: close log file: %w", closeErr)
	}
	return unlockErr
}

// Begin starts a new transaction handle over this engine. Only one
// transaction should be active at a time; the engine does not itself
// enforce this beyond what the caller (the tegdb.Database facade)
// guarantees.
func (e *Engine) Begin() *Transaction {
	e.mu.Lock()
	start := e.writeOffset
	e.mu.Unlock()
	return &Transaction{
		id:          uuid.NewString(),
		engine:      e,
		state:       TxActive,
		startOffset: start,
	}
}

// Compact rewrites the log keeping only live entries, then atomically swaps
// the rewritten file in place of the original. It is an offline operation:
// the caller must guarantee no transaction is active. The temporary file
// carries a random suffix so a crash mid-compaction never collides with a
// live log.
func (e *Engine) Compact() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	tmpPath := fmt.Sprintf("%s.compact-%s", e.path, uuid.NewString())
	tmp, err := os.OpenFile(tmpPath, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("tegdb: create compaction file: %w", err)
	}
	cleanup := func() {
		tmp.Close()
		os.Remove(tmpPath)
	}

	offset := uint64(HeaderSize)
	newDir := newDirectory()
	var scanErr error
	e.dir.Range(nil, nil, func(key []byte, ptr ValuePointer) bool {
		var value []byte
		if ptr.IsInline() {
			value = ptr.Inline
		} else {
			buf := make([]byte, ptr.Length)
			if _, err := e.file.ReadAt(buf, int64(ptr.Offset)+entryHeaderSize+int64(len(key))); err != nil {
				scanErr = fmt.Errorf("%w: %v", dberr.ErrIO, err)
				return false
			}
			value = buf
		}
		buf := encodeEntry(key, value)
		if _, err := tmp.WriteAt(buf, int64(offset)); err != nil {
			scanErr = fmt.Errorf("%w: %v", dberr.ErrIO, err)
			return false
		}
		newDir.Put(key, ValuePointer{Offset: offset, Length: uint32(len(value)), Inline: ptr.Inline})
		offset += uint64(len(buf))
		return true
	})
	if scanErr != nil {
		cleanup()
		return scanErr
	}

	marker := encodeCommitMarker()
	if _, err := tmp.WriteAt(marker, int64(offset)); err != nil {
		cleanup()
		return fmt.Errorf("%w: %v", dberr.ErrIO, err)
	}
	offset += uint64(len(marker))

	hdr := Header{
		Version:      FormatVersion,
		MaxKeySize:   e.opts.MaxKeySize,
		MaxValueSize: e.opts.MaxValueSize,
		ValidDataEnd: offset,
	}
	hbuf := hdr.Encode()
	if _, err := tmp.WriteAt(hbuf[:], 0); err != nil {
		cleanup()
		return fmt.Errorf("%w: %v", dberr.ErrIO, err)
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("%w: fsync compaction file: %v", dberr.ErrIO, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("tegdb: close compaction file: %w", err)
	}

	if err := os.Rename(tmpPath, e.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("tegdb: swap compacted log: %w", err)
	}

	// Reopen the swapped file under the same handle slot; the old file
	// object still references the unlinked original.
	unlockFile(e.file)
	e.file.Close()
	f, err := os.OpenFile(e.path, os.O_RDWR, 0o644)
	if err != nil {
		return fmt.Errorf("tegdb: reopen compacted log: %w", err)
	}
	if err := lockFile(f); err != nil {
		f.Close()
		return err
	}
	e.file = f
	e.dir = newDir
	e.header = hdr
	e.writeOffset = offset
	e.log.Info().Uint64("valid_data_end", offset).Int("keys", newDir.Len()).Msg("compacted log file")
	return nil
}
