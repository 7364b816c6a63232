package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ad-tracker/performance-snapshots-go/internal/db"
	"github.com/ad-tracker/performance-snapshots-go/internal/models"
)

// PostgresStore implements Store on the performance_snapshots table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a store on an existing pool. Close does not close the pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const snapshotColumns = `to_char(snapshot_date, 'YYYY-MM-DD'), capture_timestamp, data, source`

func (s *PostgresStore) Save(ctx context.Context, snapshot *models.Snapshot, overwrite bool) error {
	date, err := time.Parse(models.SnapshotDateLayout, snapshot.SnapshotDate)
	if err != nil {
		return fmt.Errorf("parse snapshot date %q: %w", snapshot.SnapshotDate, err)
	}

	data, err := json.Marshal(snapshot.Data)
	if err != nil {
		return fmt.Errorf("marshal snapshot rows: %w", err)
	}

	query := `
		INSERT INTO performance_snapshots (snapshot_date, capture_timestamp, data, source, content_hash)
		VALUES ($1, $2, $3, $4, $5)
	`
	if overwrite {
		query += `
		ON CONFLICT (snapshot_date) DO UPDATE SET
			capture_timestamp = EXCLUDED.capture_timestamp,
			data = EXCLUDED.data,
			source = EXCLUDED.source,
			content_hash = EXCLUDED.content_hash,
			updated_at = NOW()
		`
	}

	_, err = s.pool.Exec(ctx, query,
		date,
		snapshot.CaptureTimestamp,
		data,
		string(snapshot.Source),
		db.GenerateContentHash(data),
	)
	if err != nil {
		err = db.WrapError(err, "save snapshot")
		if db.IsDuplicateKey(err) {
			return fmt.Errorf("save snapshot %s: %w", snapshot.SnapshotDate, ErrDuplicateDate)
		}
		return err
	}

	return nil
}

func (s *PostgresStore) Get(ctx context.Context, date string) (*models.Snapshot, error) {
	day, err := time.Parse(models.SnapshotDateLayout, date)
	if err != nil {
		// Not a valid key, so nothing can be stored under it.
		return nil, ErrNotFound
	}

	query := `SELECT ` + snapshotColumns + ` FROM performance_snapshots WHERE snapshot_date = $1`

	snapshot, err := scanSnapshot(s.pool.QueryRow(ctx, query, day))
	if err != nil {
		return nil, mapReadError(err, "get snapshot")
	}
	return snapshot, nil
}

func (s *PostgresStore) GetLatest(ctx context.Context) (*models.Snapshot, error) {
	query := `
		SELECT ` + snapshotColumns + `
		FROM performance_snapshots
		ORDER BY capture_timestamp DESC, snapshot_date DESC
		LIMIT 1
	`

	snapshot, err := scanSnapshot(s.pool.QueryRow(ctx, query))
	if err != nil {
		return nil, mapReadError(err, "get latest snapshot")
	}
	return snapshot, nil
}

func (s *PostgresStore) ListDates(ctx context.Context) ([]string, error) {
	query := `SELECT to_char(snapshot_date, 'YYYY-MM-DD') FROM performance_snapshots ORDER BY snapshot_date DESC`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, db.WrapError(err, "list snapshot dates")
	}

	dates, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, db.WrapError(err, "scan snapshot dates")
	}
	if dates == nil {
		dates = []string{}
	}
	return dates, nil
}

func (s *PostgresStore) Delete(ctx context.Context, date string) (bool, error) {
	day, err := time.Parse(models.SnapshotDateLayout, date)
	if err != nil {
		return false, nil
	}

	tag, err := s.pool.Exec(ctx, `DELETE FROM performance_snapshots WHERE snapshot_date = $1`, day)
	if err != nil {
		return false, db.WrapError(err, "delete snapshot")
	}
	return tag.RowsAffected() > 0, nil
}

// GetStorageStats sizes snapshots by the text length of their stored rows.
func (s *PostgresStore) GetStorageStats(ctx context.Context) (*models.StorageStats, error) {
	query := `
		SELECT
			COUNT(*),
			to_char(MIN(snapshot_date), 'YYYY-MM-DD'),
			to_char(MAX(snapshot_date), 'YYYY-MM-DD'),
			COALESCE(SUM(octet_length(data::text)), 0)
		FROM performance_snapshots
	`

	var (
		stats          models.StorageStats
		oldest, latest *string
	)

	err := s.pool.QueryRow(ctx, query).Scan(&stats.TotalSnapshots, &oldest, &latest, &stats.StorageUsageBytes)
	if err != nil {
		return nil, db.WrapError(err, "collect storage stats")
	}

	if oldest != nil {
		stats.OldestDate = *oldest
	}
	if latest != nil {
		stats.LatestDate = *latest
	}
	return &stats, nil
}

func (s *PostgresStore) ClearAll(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM performance_snapshots`); err != nil {
		return db.WrapError(err, "clear snapshots")
	}
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresStore) Close() error {
	return nil
}

func scanSnapshot(row pgx.Row) (*models.Snapshot, error) {
	var (
		snapshot models.Snapshot
		data     []byte
		source   string
	)

	if err := row.Scan(&snapshot.SnapshotDate, &snapshot.CaptureTimestamp, &data, &source); err != nil {
		return nil, err
	}

	if err := json.Unmarshal(data, &snapshot.Data); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot rows: %w", err)
	}
	snapshot.Source = models.SnapshotSource(source)

	return &snapshot, nil
}

func mapReadError(err error, operation string) error {
	err = db.WrapError(err, operation)
	if errors.Is(err, db.ErrNotFound) {
		return fmt.Errorf("%s: %w", operation, ErrNotFound)
	}
	return err
}
