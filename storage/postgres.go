package storage

import (
	"database/sql"
	"fmt"
	"math/rand"
	"time"

	_ "github.com/lib/pq"

	"quietroute.dev/quiet/model"
)

type PostgresStore struct {
	db  *sql.DB
	rng *rand.Rand
}

func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	_, err = db.Exec(`
CREATE TABLE IF NOT EXISTS observation (
    part TEXT NOT NULL,
    complex_id BIGINT NOT NULL,
    ts TIMESTAMP NOT NULL,
    ridership BIGINT NOT NULL,
    hour INT NOT NULL,
    dow INT NOT NULL
);

CREATE INDEX IF NOT EXISTS observation_bucket ON observation (dow, hour);
CREATE INDEX IF NOT EXISTS observation_part ON observation (part);`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating observation table: %w", err)
	}

	return &PostgresStore{
		db:  db,
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
	}, nil
}

func (s *PostgresStore) WriteObservations(partition model.Partition, obs []model.Observation) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	stmt, err := tx.Prepare(`
INSERT INTO observation (part, complex_id, ts, ridership, hour, dow)
VALUES ($1, $2, $3, $4, $5, $6)`)
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

func (s *PostgresStore) Observations(partition model.Partition) ([]model.Observation, error) {
	rows, err := s.db.Query(`
SELECT complex_id, ts, ridership
FROM observation
WHERE part = $1
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

func (s *PostgresStore) SampleSnapshot(hour, weekday int) ([]model.SnapshotEntry, error) {
	queries := []struct {
		where  string
		params []interface{}
	}{
		{"WHERE hour = $1 AND dow = $2", []interface{}{hour, weekday}},
		{"WHERE dow = $1", []interface{}{weekday}},
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

func (s *PostgresStore) snapshotCandidates(where string, params []interface{}) ([]model.SnapshotEntry, error) {
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

func (s *PostgresStore) Close() error {
	return s.db.Close()
}
