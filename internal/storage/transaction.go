package storage

import (
	"fmt"

	"github.com/minifish-org/tegdb-sub001/internal/dberr"
)

// TxState is the one-way state machine a Transaction moves through:
// Active -> Committed or Active -> RolledBack, never back.
type TxState uint8

const (
	TxActive TxState = iota
	TxCommitted
	TxRolledBack
)

func (s TxState) String() string {
	switch s {
	case TxActive:
		return "Active"
	case TxCommitted:
		return "Committed"
	case TxRolledBack:
		return "RolledBack"
	default:
		return "Unknown"
	}
}

type undoEntry struct {
	key  []byte
	had  bool
	prev ValuePointer
}

// Transaction is a scoped handle borrowed from an Engine. It stages
// set/delete mutations, applying each one to the shared key directory
// immediately (read-your-own-writes) while recording an undo entry so
// Rollback can restore prior state without touching disk.
type Transaction struct {
	id          string
	engine      *Engine
	state       TxState
	undo        []undoEntry
	startOffset uint64 // engine write offset at Begin; Rollback rewinds to it
	dirty       bool   // true once at least one entry has been appended since the last commit marker
}

// ID returns the transaction's diagnostic identifier (a UUID), surfaced in
// logs and error messages. It is not part of any on-disk format.
func (tx *Transaction) ID() string { return tx.id }

// State reports the transaction's current lifecycle state.
func (tx *Transaction) State() TxState { return tx.state }

func (tx *Transaction) requireActive() error {
	if tx.state != TxActive {
		return fmt.Errorf("%w: transaction %s is %s", dberr.ErrTransactionState, tx.id, tx.state)
	}
	return nil
}

// Set stages a write: it is visible to this transaction's own subsequent
// reads (and to any other reader of the shared directory) immediately, but
// is not durable until Commit succeeds.
func (tx *Transaction) Set(key, value []byte) error {
	if err := tx.requireActive(); err != nil {
		return err
	}
	tx.engine.mu.Lock()
	defer tx.engine.mu.Unlock()

	prev, had := tx.engine.dir.Get(key)
	if err := tx.engine.set(key, value); err != nil {
		return err
	}
	tx.undo = append(tx.undo, undoEntry{key: append([]byte(nil), key...), had: had, prev: prev})
	tx.dirty = true
	return nil
}

// Delete stages a tombstone write, symmetric to Set.
func (tx *Transaction) Delete(key []byte) error {
	if err := tx.requireActive(); err != nil {
		return err
	}
	tx.engine.mu.Lock()
	defer tx.engine.mu.Unlock()

	prev, had := tx.engine.dir.Get(key)
	if !had {
		// Deleting an absent key is a no-op but still legal; record nothing
		// to undo since nothing changes.
		return nil
	}
	if err := tx.engine.delete(key); err != nil {
		return err
	}
	tx.undo = append(tx.undo, undoEntry{key: append([]byte(nil), key...), had: had, prev: prev})
	tx.dirty = true
	return nil
}

// Get reads through the shared directory, seeing this transaction's own
// staged writes.
func (tx *Transaction) Get(key []byte) ([]byte, bool, error) {
	if err := tx.requireActive(); err != nil {
		return nil, false, err
	}
	tx.engine.mu.Lock()
	defer tx.engine.mu.Unlock()
	return tx.engine.getLocked(key)
}

// ScanFunc walks [start, end) the same way Engine.ScanFunc does, observing
// this transaction's own staged writes.
func (tx *Transaction) ScanFunc(start, end []byte, fn func(key, value []byte) (bool, error)) error {
	if err := tx.requireActive(); err != nil {
		return err
	}
	return tx.engine.ScanFunc(start, end, fn)
}

// Commit appends a commit marker, fsyncs, clears the undo log, and marks
// the transaction Committed. On fsync failure the transaction remains
// Active so the caller may retry.
func (tx *Transaction) Commit() error {
	if err := tx.requireActive(); err != nil {
		return err
	}
	tx.engine.mu.Lock()
	defer tx.engine.mu.Unlock()

	if tx.dirty {
		if err := tx.engine.appendCommitMarker(); err != nil {
			return err
		}
		if err := tx.engine.flushLocked(); err != nil {
			return err
		}
	}
	tx.undo = nil
	tx.state = TxCommitted
	return nil
}

// Rollback applies the undo log in reverse to the directory and marks the
// transaction RolledBack. The engine's logical write offset is rewound to
// where this transaction started and the file is truncated there, so no
// byte of a rolled-back entry survives on disk: a shorter entry committed
// afterward can never leave a stale tail past its commit marker for a
// future recovery scan to misread.
func (tx *Transaction) Rollback() error {
	if tx.state != TxActive {
		return nil
	}
	tx.engine.mu.Lock()
	defer tx.engine.mu.Unlock()

	for i := len(tx.undo) - 1; i >= 0; i-- {
		u := tx.undo[i]
		if u.had {
			tx.engine.dir.Put(u.key, u.prev)
		} else {
			tx.engine.dir.Delete(u.key)
		}
	}
	tx.engine.writeOffset = tx.startOffset
	tx.undo = nil
	wasDirty := tx.dirty
	tx.dirty = false
	tx.state = TxRolledBack
	if wasDirty {
		if err := tx.engine.file.Truncate(int64(tx.startOffset)); err != nil {
			return fmt.Errorf("%w: truncate rolled-back tail: %v", dberr.ErrIO, err)
		}
	}
	return nil
}
