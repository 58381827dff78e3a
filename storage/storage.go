// Package storage archives cleaned ridership observations and serves
// the snapshot sampling the prediction path runs on.
package storage

import (
	"math/rand"
	"sort"

	"quietroute.dev/quiet/model"
)

type ObservationStore interface {
	// Appends cleaned observations to a partition of the archive.
	WriteObservations(partition model.Partition, obs []model.Observation) error

	// Retrieves a partition's observations, ordered by
	// (timestamp, complex id).
	Observations(partition model.Partition) ([]model.Observation, error)

	// Samples a ridership snapshot for a prediction cycle: one
	// archived observation per complex, preferring rows recorded
	// at the given hour and weekday (Monday = 0). Falls back to
	// same-weekday rows, then to any rows. An empty archive
	// yields an empty snapshot, not an error.
	SampleSnapshot(hour, weekday int) ([]model.SnapshotEntry, error)

	Close() error
}

// Picks one random entry per complex from candidate rows. Output is
// ordered by complex id.
func samplePerComplex(candidates []model.SnapshotEntry, rng *rand.Rand) []model.SnapshotEntry {
	byComplex := map[int64][]float64{}
	for _, c := range candidates {
		byComplex[c.ComplexID] = append(byComplex[c.ComplexID], c.Ridership)
	}

	snapshot := make([]model.SnapshotEntry, 0, len(byComplex))
	for complexID, values := range byComplex {
		snapshot = append(snapshot, model.SnapshotEntry{
			ComplexID: complexID,
			Ridership: values[rng.Intn(len(values))],
		})
	}
	sort.Slice(snapshot, func(i, j int) bool {
		return snapshot[i].ComplexID < snapshot[j].ComplexID
	})
	return snapshot
}

// Weekday with Monday as 0, matching the feature encoding.
func mondayWeekday(wd int) int {
	return (wd + 6) % 7
}
