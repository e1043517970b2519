// Package storage persists serialized sketch images to SQLite.
package storage

import (
	"context"
	"database/sql"

	"github.com/cockroachdb/errors"
	"github.com/dustin/go-humanize"
	_ "modernc.org/sqlite"

	"github.com/sahithikokkula/Hackathon-E6Data/sketchd/pkg/sketcherr"
	"github.com/sahithikokkula/Hackathon-E6Data/sketchd/pkg/sketches"
)

// Snapshot is a stored sketch image.
type Snapshot struct {
	Name      string
	Family    sketches.Family
	ValueType sketches.ValueType
	Data      []byte
	CreatedAt int64
}

// SnapshotInfo describes a stored snapshot without its data.
type SnapshotInfo struct {
	Name      string             `json:"name"`
	Family    sketches.Family    `json:"family"`
	ValueType sketches.ValueType `json:"type,omitempty"`
	Size      int                `json:"size"`
	HumanSize string             `json:"humanSize"`
	CreatedAt int64              `json:"createdAt"`
}

// Store keeps the latest snapshot of each sketch name.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the SQLite database at path.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrapf(err, "open sqlite db %s", path)
	}
	// Pragmas for concurrent readers
	for _, p := range []string{"PRAGMA journal_mode=WAL;", "PRAGMA synchronous=NORMAL;"} {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, errors.Wrapf(err, "apply %s", p)
		}
	}
	if err := EnsureTables(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func EnsureTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS sketch_snapshots (
		name TEXT PRIMARY KEY,
		family TEXT NOT NULL,
		value_type TEXT NOT NULL DEFAULT '',
		sketch_data BLOB NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);`)
	return errors.Wrap(err, "ensure snapshot table")
}

// Save stores snap, replacing any earlier snapshot of the same name.
func (s *Store) Save(ctx context.Context, snap Snapshot) (SnapshotInfo, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sketch_snapshots(name, family, value_type, sketch_data, created_at)
		VALUES(?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(name)
		DO UPDATE SET family=excluded.family, value_type=excluded.value_type,
			sketch_data=excluded.sketch_data, created_at=CURRENT_TIMESTAMP`,
		snap.Name, snap.Family.String(), snap.ValueType.String(), snap.Data)
	if err != nil {
		return SnapshotInfo{}, errors.Wrapf(err, "save snapshot %q", snap.Name)
	}
	return SnapshotInfo{
		Name:      snap.Name,
		Family:    snap.Family,
		ValueType: snap.ValueType,
		Size:      len(snap.Data),
		HumanSize: humanize.Bytes(uint64(len(snap.Data))),
	}, nil
}

// Get returns the snapshot stored under name.
func (s *Store) Get(ctx context.Context, name string) (*Snapshot, error) {
	var (
		family, vt string
		snap       = Snapshot{Name: name}
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT family, value_type, sketch_data, CAST(strftime('%s', created_at) AS INTEGER)
		FROM sketch_snapshots WHERE name = ?`, name).Scan(&family, &vt, &snap.Data, &snap.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sketcherr.NotFoundf("no snapshot named %q", name)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "get snapshot %q", name)
	}
	if snap.Family, snap.ValueType, err = parseKind(family, vt); err != nil {
		return nil, errors.Wrapf(err, "snapshot %q", name)
	}
	return &snap, nil
}

// List returns every stored snapshot, sorted by name.
func (s *Store) List(ctx context.Context) ([]SnapshotInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, family, value_type, length(sketch_data),
		       CAST(strftime('%s', created_at) AS INTEGER)
		FROM sketch_snapshots
		ORDER BY name`)
	if err != nil {
		return nil, errors.Wrap(err, "list snapshots")
	}
	defer rows.Close()

	out := []SnapshotInfo{}
	for rows.Next() {
		var (
			info       SnapshotInfo
			family, vt string
		)
		if err := rows.Scan(&info.Name, &family, &vt, &info.Size, &info.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "scan snapshot")
		}
		if info.Family, info.ValueType, err = parseKind(family, vt); err != nil {
			return nil, errors.Wrapf(err, "snapshot %q", info.Name)
		}
		info.HumanSize = humanize.Bytes(uint64(info.Size))
		out = append(out, info)
	}
	return out, rows.Err()
}

func parseKind(family, vt string) (sketches.Family, sketches.ValueType, error) {
	f, ok := sketches.ParseFamily(family)
	if !ok {
		return 0, 0, errors.Newf("unknown family %q", family)
	}
	t, _ := sketches.ParseValueType(vt)
	return f, t, nil
}
