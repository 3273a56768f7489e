package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minifish-org/tegdb-sub001/internal/dberr"
)

func openTest(t *testing.T) (*Engine, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "engine.tegdb")
	eng, err := Open(path, DefaultOptions())
	require.NoError(t, err)
	t.Cleanup(func() { eng.Close() })
	return eng, path
}

func TestSetGetAndDelete(t *testing.T) {
	eng, _ := openTest(t)
	require.NoError(t, eng.set([]byte("a"), []byte("1")))

	v, ok, err := eng.Get([]byte("a"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("1"), v)

	require.NoError(t, eng.delete([]byte("a")))
	_, ok, err = eng.Get([]byte("a"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestScanFuncOrderedRange(t *testing.T) {
	eng, _ := openTest(t)
	for _, k := range []string{"a", "b", "c"} {
		require.NoError(t, eng.set([]byte(k), []byte(k)))
	}

	var seen []string
	err := eng.ScanFunc([]byte("a"), []byte("c"), func(key, value []byte) (bool, error) {
		seen = append(seen, string(key))
		return true, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, seen)
}

func TestScanFuncEarlyStop(t *testing.T) {
	eng, _ := openTest(t)
	for _, k := range []string{"a", "b", "c"} {
		require.NoError(t, eng.set([]byte(k), []byte(k)))
	}

	var seen []string
	err := eng.ScanFunc(nil, nil, func(key, value []byte) (bool, error) {
		seen = append(seen, string(key))
		return len(seen) < 2, nil
	})
	require.NoError(t, err)
	assert.Len(t, seen, 2)
}

func TestValueAboveInlineThresholdReadsFromDisk(t *testing.T) {
	eng, _ := openTest(t)
	big := make([]byte, DefaultOptions().InlineValueThreshold+1)
	for i := range big {
		big[i] = byte(i)
	}
	require.NoError(t, eng.set([]byte("k"), big))
	v, ok, err := eng.Get([]byte("k"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, big, v)
}

func TestKeyTooLarge(t *testing.T) {
	eng, _ := openTest(t)
	opts := DefaultOptions()
	big := make([]byte, opts.MaxKeySize+1)
	err := eng.set(big, []byte("v"))
	assert.ErrorIs(t, err, dberr.ErrKeyTooLarge)
}

func TestLenAndIsEmpty(t *testing.T) {
	eng, _ := openTest(t)
	assert.True(t, eng.IsEmpty())
	require.NoError(t, eng.set([]byte("a"), []byte("1")))
	assert.Equal(t, 1, eng.Len())
	assert.False(t, eng.IsEmpty())
}

func TestReopenRecoversCommittedData(t *testing.T) {
	eng, path := openTest(t)
	tx := eng.Begin()
	require.NoError(t, tx.Set([]byte("a"), []byte("1")))
	require.NoError(t, tx.Commit())
	require.NoError(t, eng.Close())

	eng2, err := Open(path, DefaultOptions())
	require.NoError(t, err)
	defer eng2.Close()

	v, ok, err := eng2.Get([]byte("a"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("1"), v)
}

func TestCompactDropsDeadEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "compact.tegdb")
	eng, err := Open(path, DefaultOptions())
	require.NoError(t, err)

	tx := eng.Begin()
	for i := 0; i < 10; i++ {
		require.NoError(t, tx.Set([]byte{byte('a' + i)}, []byte("v")))
	}
	require.NoError(t, tx.Commit())
	tx = eng.Begin()
	for i := 0; i < 9; i++ {
		require.NoError(t, tx.Delete([]byte{byte('a' + i)}))
	}
	require.NoError(t, tx.Commit())

	before, err := os.Stat(path)
	require.NoError(t, err)
	require.NoError(t, eng.Compact())
	after, err := os.Stat(path)
	require.NoError(t, err)
	assert.Less(t, after.Size(), before.Size())

	v, ok, err := eng.Get([]byte("j"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("v"), v)
	assert.Equal(t, 1, eng.Len())
	require.NoError(t, eng.Close())

	// The compacted file must survive a reopen on its own.
	eng2, err := Open(path, DefaultOptions())
	require.NoError(t, err)
	defer eng2.Close()
	assert.Equal(t, 1, eng2.Len())
}

func TestReopenDiscardsUncommittedTail(t *testing.T) {
	eng, path := openTest(t)
	tx := eng.Begin()
	require.NoError(t, tx.Set([]byte("a"), []byte("1")))
	// no commit: simulate a crash before the commit marker was written.
	require.NoError(t, eng.Close())

	eng2, err := Open(path, DefaultOptions())
	require.NoError(t, err)
	defer eng2.Close()

	_, ok, err := eng2.Get([]byte("a"))
	require.NoError(t, err)
	assert.False(t, ok, "uncommitted writes must not survive a reopen")
}

func TestRecoveryTruncatesUncommittedTail(t *testing.T) {
	eng, path := openTest(t)
	tx := eng.Begin()
	require.NoError(t, tx.Set([]byte("keep"), []byte("1")))
	require.NoError(t, tx.Commit())
	committed, err := os.Stat(path)
	require.NoError(t, err)

	tx = eng.Begin()
	require.NoError(t, tx.Set([]byte("lost"), make([]byte, 2048)))
	// no commit: crash leaves the big entry on disk past the last marker.
	require.NoError(t, eng.Close())

	crashed, err := os.Stat(path)
	require.NoError(t, err)
	require.Greater(t, crashed.Size(), committed.Size())

	eng2, err := Open(path, DefaultOptions())
	require.NoError(t, err)
	require.NoError(t, eng2.Close())

	// Recovery rolls the tail back in memory and drops it from disk, so a
	// shorter commit after this reopen can never leave stale bytes of the
	// crashed entry past its own marker.
	recovered, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, committed.Size(), recovered.Size())
}
