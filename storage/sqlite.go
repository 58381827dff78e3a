package storage

import (
	"database/sql"
	"fmt"
	"math/rand"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"quietroute.dev/quiet/model"
)

type SQLiteConfig struct {
	OnDisk    bool
	Directory string
}

type SQLiteStore struct {
	SQLiteConfig

	db  *sql.DB
	rng *rand.Rand
}

func NewSQLiteStore(cfg ...SQLiteConfig) (*SQLiteStore, error) {
	onDisk := false
	directory := ""
	if len(cfg) > 0 {
		onDisk = cfg[0].OnDisk
		directory = cfg[0].Directory
	}

	sourceName := ":memory:"
	if onDisk {
		if directory == "" {
			return nil, fmt.Errorf("on-disk store requires a directory")
		}
		sourceName = filepath.Join(directory, "ridership.db")
	}

	db, err := sql.Open("sqlite3", sourceName)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	_, err = db.Exec(`
CREATE TABLE IF NOT EXISTS observation (
    part TEXT NOT NULL,
    complex_id INTEGER NOT NULL,
    ts TIMESTAMP NOT NULL,
    ridership INTEGER NOT NULL,
    hour INTEGER NOT NULL,
    dow INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS observation_bucket ON observation (dow, hour);
CREATE INDEX IF NOT EXISTS observation_part ON observation (part);`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating observation table: %w", err)
	}

	return &SQLiteStore{
		SQLiteConfig: SQLiteConfig{
			OnDisk:    onDisk,
			Directory: directory,
		},
		db:  db,
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
	}, nil
}

func (s *SQLiteStore) WriteObservations(partition model.Partition, obs []model.Observation) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	stmt, err := tx.Prepare(`
INSERT INTO observation (part, complex_id, ts, ridership, hour, dow)
VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, o := range obs {
		_, err = stmt.Exec(
			string(partition),
			o.ComplexID,
			o.Timestamp,
			o.Ridership,
			o.Timestamp.Hour(),
			mondayWeekday(int(o.Timestamp.Weekday())),
		)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("inserting observation: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing observations: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Observations(partition model.Partition) ([]model.Observation, error) {
	rows, err := s.db.Query(`
SELECT complex_id, ts, ridership
FROM observation
WHERE part = ?
ORDER BY ts, complex_id`, string(partition))
	if err != nil {
		return nil, fmt.Errorf("listing observations: %w", err)
	}
	defer rows.Close()

	obs := []model.Observation{}
	for rows.Next() {
		var o model.Observation
		if err := rows.Scan(&o.ComplexID, &o.Timestamp, &o.Ridership); err != nil {
			return nil, fmt.Errorf("scanning observation: %w", err)
		}
		obs = append(obs, o)
	}
	return obs, rows.Err()
}

func (s *SQLiteStore) SampleSnapshot(hour, weekday int) ([]model.SnapshotEntry, error) {
	queries := []struct {
		where  string
		params []interface{}
	}{
		{"WHERE hour = ? AND dow = ?", []interface{}{hour, weekday}},
		{"WHERE dow = ?", []interface{}{weekday}},
		{"", nil},
	}

	for _, q := range queries {
		candidates, err := s.snapshotCandidates(q.where, q.params)
		if err != nil {
			return nil, err
		}
		if len(candidates) > 0 {
			return samplePerComplex(candidates, s.rng), nil
		}
	}
	return []model.SnapshotEntry{}, nil
}

func (s *SQLiteStore) snapshotCandidates(where string, params []interface{}) ([]model.SnapshotEntry, error) {
	query := "SELECT complex_id, ridership FROM observation"
	if where != "" {
		query += " " + where
	}

	rows, err := s.db.Query(query, params...)
	if err != nil {
		return nil, fmt.Errorf("querying snapshot candidates: %w", err)
	}
	defer rows.Close()

	candidates := []model.SnapshotEntry{}
	for rows.Next() {
		var c model.SnapshotEntry
		if err := rows.Scan(&c.ComplexID, &c.Ridership); err != nil {
			return nil, fmt.Errorf("scanning snapshot candidate: %w", err)
		}
		candidates = append(candidates, c)
	}
	return candidates, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
