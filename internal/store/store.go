// Package store persists fetched spec snapshots in a SQLite database
// so analyze can diff the two most recent snapshots of a registered
// spec without the caller juggling files.
package store

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"specsync/internal/logging"
)

// Snapshot is one stored spec document. Body is kept out of the
// listing queries and loaded separately.
type Snapshot struct {
	ID           string
	SpecName     string
	FetchedAt    time.Time
	SHA256       string
	Flavor       string
	SubjectCount int
}

// ErrDuplicate is returned by Record when the body matches the most
// recent snapshot for the same spec.
var ErrDuplicate = errors.New("snapshot matches latest stored body")

// ErrNotFound is returned when a snapshot id or spec name has no rows.
var ErrNotFound = errors.New("snapshot not found")

// Store wraps the snapshot database.
type Store struct {
	conn    *sql.DB
	logger  *logging.Logger
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

// Open opens or creates the snapshot database at dir/snapshots.db.
func Open(dir string, logger *logging.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating store directory: %w", err)
	}
	dbPath := filepath.Join(dir, "snapshots.db")

	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening snapshot database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, fmt.Errorf("setting pragma: %w", err)
		}
	}

	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("initializing snapshot schema: %w", err)
	}

	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("initializing compressor: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("initializing decompressor: %w", err)
	}

	logger.Debug("Snapshot store opened", map[string]interface{}{
		"path": dbPath,
	})

	return &Store{conn: conn, logger: logger, encoder: encoder, decoder: decoder}, nil
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS snapshots (
	id            TEXT PRIMARY KEY,
	spec_name     TEXT NOT NULL,
	fetched_at    INTEGER NOT NULL,
	sha256        TEXT NOT NULL,
	flavor        TEXT NOT NULL,
	subject_count INTEGER NOT NULL,
	body          BLOB NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_snapshots_spec_time
	ON snapshots(spec_name, fetched_at DESC);
`

// Close closes the database and releases the codec resources.
func (s *Store) Close() error {
	s.encoder.Close()
	s.decoder.Close()
	return s.conn.Close()
}

// Record stores a snapshot body and returns its metadata. Bodies are
// zstd-compressed at rest. Recording the same body twice in a row for
// a spec returns ErrDuplicate without writing.
func (s *Store) Record(specName, flavor string, subjectCount int, body []byte) (*Snapshot, error) {
	digest := sha256.Sum256(body)
	sum := hex.EncodeToString(digest[:])

	if latest, err := s.Latest(specName); err == nil && latest.SHA256 == sum {
		return nil, ErrDuplicate
	} else if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	snap := &Snapshot{
		ID:           uuid.NewString(),
		SpecName:     specName,
		FetchedAt:    time.Now().UTC(),
		SHA256:       sum,
		Flavor:       flavor,
		SubjectCount: subjectCount,
	}

	compressed := s.encoder.EncodeAll(body, nil)

	_, err := s.conn.Exec(
		`INSERT INTO snapshots (id, spec_name, fetched_at, sha256, flavor, subject_count, body)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		snap.ID, snap.SpecName, snap.FetchedAt.UnixNano(), snap.SHA256, snap.Flavor,
		snap.SubjectCount, compressed,
	)
	if err != nil {
		return nil, fmt.Errorf("recording snapshot for %s: %w", specName, err)
	}

	s.logger.Info("Snapshot recorded", map[string]interface{}{
		"spec":     specName,
		"id":       snap.ID,
		"sha256":   sum[:12],
		"subjects": subjectCount,
	})

	return snap, nil
}

// List returns the snapshots for a spec, newest first.
func (s *Store) List(specName string) ([]Snapshot, error) {
	rows, err := s.conn.Query(
		`SELECT id, spec_name, fetched_at, sha256, flavor, subject_count
		 FROM snapshots WHERE spec_name = ?
		 ORDER BY fetched_at DESC, id`,
		specName,
	)
	if err != nil {
		return nil, fmt.Errorf("listing snapshots for %s: %w", specName, err)
	}
	defer rows.Close()

	return scanSnapshots(rows)
}

// Latest returns the most recent snapshot for a spec.
func (s *Store) Latest(specName string) (*Snapshot, error) {
	snaps, err := s.LatestN(specName, 1)
	if err != nil {
		return nil, err
	}
	return &snaps[0], nil
}

// LatestTwo returns the two most recent snapshots for a spec, newest
// first. analyze --spec diffs [1] (older) against [0] (newer).
func (s *Store) LatestTwo(specName string) (newer, older *Snapshot, err error) {
	snaps, err := s.LatestN(specName, 2)
	if err != nil {
		return nil, nil, err
	}
	if len(snaps) < 2 {
		return nil, nil, fmt.Errorf("spec %s has %d snapshot(s), need 2 to compare: %w",
			specName, len(snaps), ErrNotFound)
	}
	return &snaps[0], &snaps[1], nil
}

// LatestN returns up to n most recent snapshots, newest first.
// Returns ErrNotFound when the spec has no snapshots at all.
func (s *Store) LatestN(specName string, n int) ([]Snapshot, error) {
	rows, err := s.conn.Query(
		`SELECT id, spec_name, fetched_at, sha256, flavor, subject_count
		 FROM snapshots WHERE spec_name = ?
		 ORDER BY fetched_at DESC, id LIMIT ?`,
		specName, n,
	)
	if err != nil {
		return nil, fmt.Errorf("querying snapshots for %s: %w", specName, err)
	}
	defer rows.Close()

	snaps, err := scanSnapshots(rows)
	if err != nil {
		return nil, err
	}
	if len(snaps) == 0 {
		return nil, fmt.Errorf("spec %s: %w", specName, ErrNotFound)
	}
	return snaps, nil
}

// Body loads and decompresses a snapshot body by id.
func (s *Store) Body(id string) ([]byte, error) {
	var compressed []byte
	err := s.conn.QueryRow(`SELECT body FROM snapshots WHERE id = ?`, id).Scan(&compressed)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("snapshot %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("loading snapshot %s: %w", id, err)
	}

	body, err := s.decoder.DecodeAll(compressed, nil)
	if err != nil {
		return nil, fmt.Errorf("decompressing snapshot %s: %w", id, err)
	}
	return body, nil
}

// SpecNames returns the distinct spec names with at least one
// snapshot, sorted.
func (s *Store) SpecNames() ([]string, error) {
	rows, err := s.conn.Query(`SELECT DISTINCT spec_name FROM snapshots ORDER BY spec_name`)
	if err != nil {
		return nil, fmt.Errorf("listing spec names: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func scanSnapshots(rows *sql.Rows) ([]Snapshot, error) {
	var snaps []Snapshot
	for rows.Next() {
		var snap Snapshot
		var fetchedAt int64
		if err := rows.Scan(&snap.ID, &snap.SpecName, &fetchedAt, &snap.SHA256,
			&snap.Flavor, &snap.SubjectCount); err != nil {
			return nil, err
		}
		snap.FetchedAt = time.Unix(0, fetchedAt).UTC()
		snaps = append(snaps, snap)
	}
	return snaps, rows.Err()
}
