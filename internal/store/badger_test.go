package store

import (
	"context"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBadgerStore(t *testing.T) Store {
	t.Helper()

	s, err := OpenBadger("")
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = s.Close()
	})
	return s
}

func TestBadgerStore(t *testing.T) {
	testStoreContract(t, newTestBadgerStore)
}

func TestBadgerStore_PersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := OpenBadger(dir)
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, newSnapshot("2025-03-01", 1000, "Persisted"), false))
	require.NoError(t, s.Close())

	reopened, err := OpenBadger(dir)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.GetLatest(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Persisted", got.Data[0].Title)
}

func TestBadgerStore_ValuesAreCompressed(t *testing.T) {
	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	require.NoError(t, err)
	defer db.Close()

	s, err := NewBadgerStore(db)
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	in := newSnapshot("2025-03-01", 1000, "Video")
	require.NoError(t, s.Save(ctx, in, false))

	var raw []byte
	err = db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(snapshotKey("2025-03-01"))
		if err != nil {
			return err
		}
		raw, err = item.ValueCopy(nil)
		return err
	})
	require.NoError(t, err)

	// zstd frame magic number
	require.GreaterOrEqual(t, len(raw), 4)
	assert.Equal(t, []byte{0x28, 0xB5, 0x2F, 0xFD}, raw[:4])

	// NewBadgerStore does not own the database.
	require.NoError(t, s.Close())
	assert.False(t, db.IsClosed())
}

func TestTimestampKey_SortsByCaptureTime(t *testing.T) {
	earlier := string(timestampKey(999, "2025-03-09"))
	later := string(timestampKey(1000, "2025-03-01"))
	assert.Less(t, earlier, later)
}
