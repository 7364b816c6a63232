package store

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"

	"github.com/ad-tracker/performance-snapshots-go/internal/models"
	"github.com/ad-tracker/performance-snapshots-go/pkg/logger"
)

// Key prefixes for BadgerDB storage
const (
	snapshotKeyPrefix  = "snapshot:"
	timestampKeyPrefix = "snapshot_ts:"
)

// BadgerStore implements Store on an embedded BadgerDB. Values are zstd-compressed JSON.
// A secondary index keyed by capture timestamp serves GetLatest without a full scan.
type BadgerStore struct {
	db    *badger.DB
	codec *codec
	owned bool
}

// OpenBadger opens (or creates) a BadgerDB in dir. An empty dir opens an in-memory database.
func OpenBadger(dir string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dir).WithLogger(badgerLogger{logger.Named("badger").Sugar()})
	if dir == "" {
		opts = opts.WithInMemory(true)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}

	s, err := NewBadgerStore(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	s.owned = true
	return s, nil
}

// NewBadgerStore wraps an already open BadgerDB. Close does not close db.
func NewBadgerStore(db *badger.DB) (*BadgerStore, error) {
	c, err := newCodec()
	if err != nil {
		return nil, err
	}
	return &BadgerStore{db: db, codec: c}, nil
}

func snapshotKey(date string) []byte {
	return []byte(snapshotKeyPrefix + date)
}

// timestampKey sorts lexically by capture time; the date suffix keeps keys unique.
func timestampKey(captureTimestamp int64, date string) []byte {
	return []byte(fmt.Sprintf("%s%020d:%s", timestampKeyPrefix, captureTimestamp, date))
}

func (s *BadgerStore) Save(ctx context.Context, snapshot *models.Snapshot, overwrite bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := s.codec.encode(snapshot)
	if err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		key := snapshotKey(snapshot.SnapshotDate)

		existing, err := s.readSnapshot(txn, key)
		switch {
		case errors.Is(err, ErrNotFound):
		case err != nil:
			return err
		case !overwrite:
			return fmt.Errorf("save snapshot %s: %w", snapshot.SnapshotDate, ErrDuplicateDate)
		default:
			if err := txn.Delete(timestampKey(existing.CaptureTimestamp, existing.SnapshotDate)); err != nil {
				return fmt.Errorf("delete timestamp index: %w", err)
			}
		}

		if err := txn.Set(key, data); err != nil {
			return fmt.Errorf("set snapshot: %w", err)
		}

		if err := txn.Set(timestampKey(snapshot.CaptureTimestamp, snapshot.SnapshotDate), []byte(snapshot.SnapshotDate)); err != nil {
			return fmt.Errorf("set timestamp index: %w", err)
		}

		return nil
	})
}

func (s *BadgerStore) Get(ctx context.Context, date string) (*models.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var snapshot *models.Snapshot
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		snapshot, err = s.readSnapshot(txn, snapshotKey(date))
		return err
	})
	if err != nil {
		return nil, err
	}
	return snapshot, nil
}

func (s *BadgerStore) GetLatest(ctx context.Context) (*models.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var snapshot *models.Snapshot
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = []byte(timestampKeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		// Reverse iteration starts at the largest key under the prefix.
		it.Seek(append([]byte(timestampKeyPrefix), 0xFF))
		if !it.ValidForPrefix(opts.Prefix) {
			return ErrNotFound
		}

		date, err := it.Item().ValueCopy(nil)
		if err != nil {
			return fmt.Errorf("read timestamp index: %w", err)
		}

		snapshot, err = s.readSnapshot(txn, snapshotKey(string(date)))
		return err
	})
	if err != nil {
		return nil, err
	}
	return snapshot, nil
}

func (s *BadgerStore) ListDates(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dates := []string{}
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(snapshotKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			dates = append(dates, string(it.Item().Key()[len(prefix):]))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list snapshot dates: %w", err)
	}

	// YYYY-MM-DD keys iterate in ascending date order.
	slices.Reverse(dates)
	return dates, nil
}

func (s *BadgerStore) Delete(ctx context.Context, date string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	deleted := false
	err := s.db.Update(func(txn *badger.Txn) error {
		key := snapshotKey(date)

		existing, err := s.readSnapshot(txn, key)
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		if err := txn.Delete(key); err != nil {
			return fmt.Errorf("delete snapshot: %w", err)
		}
		if err := txn.Delete(timestampKey(existing.CaptureTimestamp, existing.SnapshotDate)); err != nil {
			return fmt.Errorf("delete timestamp index: %w", err)
		}

		deleted = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return deleted, nil
}

// GetStorageStats sizes snapshots by their stored (compressed) value length.
func (s *BadgerStore) GetStorageStats(ctx context.Context) (*models.StorageStats, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	stats := &models.StorageStats{}
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(snapshotKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			date := string(item.Key()[len(prefix):])

			if stats.OldestDate == "" {
				stats.OldestDate = date
			}
			stats.LatestDate = date
			stats.TotalSnapshots++
			stats.StorageUsageBytes += item.ValueSize()
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("collect storage stats: %w", err)
	}
	return stats, nil
}

func (s *BadgerStore) ClearAll(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var keys [][]byte
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for _, prefix := range [][]byte{[]byte(snapshotKeyPrefix), []byte(timestampKeyPrefix)} {
			for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
				keys = append(keys, it.Item().KeyCopy(nil))
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("list snapshot keys: %w", err)
	}

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()

	for _, key := range keys {
		if err := wb.Delete(key); err != nil {
			return fmt.Errorf("clear snapshots: %w", err)
		}
	}

	if err := wb.Flush(); err != nil {
		return fmt.Errorf("clear snapshots: %w", err)
	}
	return nil
}

func (s *BadgerStore) Ping(_ context.Context) error {
	if s.db.IsClosed() {
		return errors.New("badger database is closed")
	}
	return nil
}

func (s *BadgerStore) Close() error {
	s.codec.close()
	if s.owned {
		return s.db.Close()
	}
	return nil
}

func (s *BadgerStore) readSnapshot(txn *badger.Txn, key []byte) (*models.Snapshot, error) {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get snapshot: %w", err)
	}

	var snapshot *models.Snapshot
	err = item.Value(func(val []byte) error {
		var err error
		snapshot, err = s.codec.decode(val)
		return err
	})
	if err != nil {
		return nil, err
	}
	return snapshot, nil
}

// badgerLogger routes badger's internal logging through zap.
type badgerLogger struct {
	*zap.SugaredLogger
}

func (l badgerLogger) Warningf(format string, args ...interface{}) {
	l.Warnf(format, args...)
}
