package storage

import (
	"math/rand"
	"sort"
	"sync"
	"time"

	"quietroute.dev/quiet/model"
)

// In memory implementation of ObservationStore below

type MemoryStore struct {
	mu         sync.RWMutex
	partitions map[model.Partition][]model.Observation
	rng        *rand.Rand
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		partitions: map[model.Partition][]model.Observation{},
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (s *MemoryStore) WriteObservations(partition model.Partition, obs []model.Observation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.partitions[partition] = append(s.partitions[partition], obs...)
	return nil
}

func (s *MemoryStore) Observations(partition model.Partition) ([]model.Observation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	obs := make([]model.Observation, len(s.partitions[partition]))
	copy(obs, s.partitions[partition])
	sort.Slice(obs, func(i, j int) bool {
		if !obs[i].Timestamp.Equal(obs[j].Timestamp) {
			return obs[i].Timestamp.Before(obs[j].Timestamp)
		}
		return obs[i].ComplexID < obs[j].ComplexID
	})
	return obs, nil
}

func (s *MemoryStore) SampleSnapshot(hour, weekday int) ([]model.SnapshotEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := []model.Observation{}
	for _, obs := range s.partitions {
		all = append(all, obs...)
	}

	match := func(o model.Observation) bool {
		return o.Timestamp.Hour() == hour &&
			mondayWeekday(int(o.Timestamp.Weekday())) == weekday
	}
	candidates := filterObservations(all, match)
	if len(candidates) == 0 {
		candidates = filterObservations(all, func(o model.Observation) bool {
			return mondayWeekday(int(o.Timestamp.Weekday())) == weekday
		})
	}
	if len(candidates) == 0 {
		candidates = filterObservations(all, func(model.Observation) bool { return true })
	}

	return samplePerComplex(candidates, s.rng), nil
}

func (s *MemoryStore) Close() error {
	return nil
}

func filterObservations(obs []model.Observation, keep func(model.Observation) bool) []model.SnapshotEntry {
	out := []model.SnapshotEntry{}
	for _, o := range obs {
		if keep(o) {
			out = append(out, model.SnapshotEntry{
				ComplexID: o.ComplexID,
				Ridership: float64(o.Ridership),
			})
		}
	}
	return out
}
