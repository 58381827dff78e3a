// Package pipeline turns raw multi-year ridership logs into
// leakage-free train/validation/test partitions plus the artifacts
// the predictor depends on: the node mapping, per-station statistics
// and the directed edge list. Statistics and the mapping are computed
// from the training partition only; validation and test records never
// contribute.
package pipeline

import (
	"log"
	"math"
	"sort"
	"time"

	"quietroute.dev/quiet/graph"
	"quietroute.dev/quiet/model"
)

// Mode value the pipeline restricts to. Rows with an empty mode
// column are kept; the column is optional in older log dumps.
const subwayMode = "subway"

// Clean filters raw records to subway rows, sums duplicate
// (timestamp, complex) buckets, and sorts by (timestamp, complex).
func Clean(records []model.RidershipRecord) []model.Observation {
	type key struct {
		ts        time.Time
		complexID int64
	}

	sums := map[key]int64{}
	for _, rec := range records {
		if rec.Mode != "" && rec.Mode != subwayMode {
			continue
		}
		sums[key{rec.Timestamp, rec.ComplexID}] += rec.Ridership
	}

	obs := make([]model.Observation, 0, len(sums))
	for k, ridership := range sums {
		obs = append(obs, model.Observation{
			ComplexID: k.complexID,
			Timestamp: k.ts,
			Ridership: ridership,
		})
	}
	sort.Slice(obs, func(i, j int) bool {
		if !obs[i].Timestamp.Equal(obs[j].Timestamp) {
			return obs[i].Timestamp.Before(obs[j].Timestamp)
		}
		return obs[i].ComplexID < obs[j].ComplexID
	})
	return obs
}

// ComputeStats derives per-complex mean and sample standard deviation
// from training observations. A complex with a single observation
// gets std 1.0.
func ComputeStats(train []model.Observation) []model.StationStat {
	sums := map[int64]float64{}
	counts := map[int64]int{}
	for _, o := range train {
		sums[o.ComplexID] += float64(o.Ridership)
		counts[o.ComplexID]++
	}

	means := map[int64]float64{}
	for id, sum := range sums {
		means[id] = sum / float64(counts[id])
	}

	sqDiffs := map[int64]float64{}
	for _, o := range train {
		d := float64(o.Ridership) - means[o.ComplexID]
		sqDiffs[o.ComplexID] += d * d
	}

	stats := make([]model.StationStat, 0, len(means))
	for id, mean := range means {
		std := 1.0
		if counts[id] > 1 {
			std = math.Sqrt(sqDiffs[id] / float64(counts[id]-1))
		}
		stats = append(stats, model.StationStat{ComplexID: id, Mean: mean, Std: std})
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].ComplexID < stats[j].ComplexID })
	return stats
}

// EdgeCoverage reports how many of the given edges have both
// endpoints in the mapping. A low fraction indicates the schedule and
// the ridership logs disagree about the station universe; it is a
// sanity metric, not a failure.
func EdgeCoverage(edges []model.Edge, m *graph.NodeMapping) (valid, total int) {
	total = len(edges)
	for _, e := range edges {
		_, okFrom := m.NodeID(e.FromComplexID)
		_, okTo := m.NodeID(e.ToComplexID)
		if okFrom && okTo {
			valid++
		}
	}
	return valid, total
}

// Config for a full pipeline run.
type Config struct {
	Split SplitConfig
}

// Result of a full pipeline run: the partitions, the artifacts, and
// per-partition feature rows ready for training.
type Result struct {
	Splits  Splits
	Mapping *graph.NodeMapping
	Stats   []model.StationStat
	Edges   []model.Edge

	DroppedEdges int
	ValidEdges   int

	TrainFeatures      []FeatureRow
	ValidationFeatures []FeatureRow
	TestFeatures       []FeatureRow
}

// Run executes the whole preprocessing pass: clean, split, compute
// train-only statistics and the node mapping, build edges from trip
// stop sequences, and engineer features per partition.
func Run(records []model.RidershipRecord, trips []model.TripStop, cfg Config) (*Result, error) {
	obs := Clean(records)

	splits, err := Split(obs, cfg.Split)
	if err != nil {
		return nil, err
	}

	trainComplexes := make([]int64, 0, len(splits.Train))
	for _, o := range splits.Train {
		trainComplexes = append(trainComplexes, o.ComplexID)
	}
	mapping := graph.BuildNodeMapping(trainComplexes)
	stats := ComputeStats(splits.Train)

	edges, droppedEdges := graph.BuildComplexEdges(trips, mapping)
	if droppedEdges > 0 {
		log.Printf("pipeline: dropped %d edges with unmapped endpoints", droppedEdges)
	}
	valid, total := EdgeCoverage(edges, mapping)
	log.Printf("pipeline: %d/%d edges valid for current node mapping", valid, total)

	statIndex := map[int64]model.StationStat{}
	for _, s := range stats {
		statIndex[s.ComplexID] = s
	}

	res := &Result{
		Splits:       splits,
		Mapping:      mapping,
		Stats:        stats,
		Edges:        edges,
		DroppedEdges: droppedEdges,
		ValidEdges:   valid,
	}

	var droppedRows int
	res.TrainFeatures, droppedRows = BuildFeatures(splits.Train, statIndex, mapping)
	if droppedRows > 0 {
		// Can't happen for the train partition; the mapping is
		// built from it.
		log.Printf("pipeline: dropped %d train rows outside node mapping", droppedRows)
	}
	res.ValidationFeatures, droppedRows = BuildFeatures(splits.Validation, statIndex, mapping)
	if droppedRows > 0 {
		log.Printf("pipeline: dropped %d validation rows outside node mapping", droppedRows)
	}
	res.TestFeatures, droppedRows = BuildFeatures(splits.Test, statIndex, mapping)
	if droppedRows > 0 {
		log.Printf("pipeline: dropped %d test rows outside node mapping", droppedRows)
	}

	return res, nil
}
