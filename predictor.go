// Package quiet predicts near-term tap-ins per station complex and
// scores candidate routes by predicted crowding.
package quiet

import (
	"fmt"
	"log"
	"time"

	"quietroute.dev/quiet/graph"
	"quietroute.dev/quiet/model"
	"quietroute.dev/quiet/parse"
	"quietroute.dev/quiet/pipeline"
)

// Predictor runs the trained model over the station graph. All state
// is loaded at construction and immutable afterwards, so a Predictor
// is safe for concurrent use.
type Predictor struct {
	mapping *graph.NodeMapping
	stats   map[int64]model.StationStat
	fwd     []graph.Edge
	rev     []graph.Edge
	weights *Weights
}

// NewPredictor loads the durable artifacts and the trained weights.
// Any missing or malformed artifact, and any weight-shape mismatch,
// fails here rather than at prediction time.
func NewPredictor(cfg *Config) (*Predictor, error) {
	table, err := parse.ReadNodeMappingFile(cfg.Artifacts.Mapping)
	if err != nil {
		return nil, fmt.Errorf("loading node mapping: %w", err)
	}
	mapping, err := graph.FromTable(table)
	if err != nil {
		return nil, fmt.Errorf("building node mapping: %w", err)
	}

	stats, err := parse.ReadStatsFile(cfg.Artifacts.Stats)
	if err != nil {
		return nil, fmt.Errorf("loading stats: %w", err)
	}

	edges, err := parse.ReadEdgesFile(cfg.Artifacts.Edges)
	if err != nil {
		return nil, fmt.Errorf("loading edges: %w", err)
	}

	weights, err := LoadWeights(cfg.Artifacts.Weights)
	if err != nil {
		return nil, fmt.Errorf("loading weights: %w", err)
	}

	return newPredictor(mapping, stats, edges, weights, cfg.Model)
}

func newPredictor(
	mapping *graph.NodeMapping,
	stats map[int64]model.StationStat,
	edges []model.Edge,
	weights *Weights,
	mc ModelConfig,
) (*Predictor, error) {

	if err := weights.Validate(mapping.Len(), mc.InDim, mc.HiddenDim, mc.EmbDim); err != nil {
		return nil, fmt.Errorf("validating weights: %w", err)
	}

	mapped, dropped := graph.MapEdges(edges, mapping)
	if dropped > 0 {
		log.Printf("predictor: dropped %d edges with unmapped endpoints", dropped)
	}

	n := mapping.Len()
	return &Predictor{
		mapping: mapping,
		stats:   stats,
		fwd:     graph.WithSelfLoops(mapped, n),
		rev:     graph.WithSelfLoops(graph.Reverse(mapped), n),
		weights: weights,
	}, nil
}

// Predict returns a predicted tap-in value for every mapped complex.
//
// Stations absent from the snapshot, and stations without training
// statistics, keep a zero ridership feature ("unobserved this cycle"),
// so an empty snapshot degrades to a prediction from time-of-week
// signal alone rather than an error.
func (p *Predictor) Predict(snapshot []model.SnapshotEntry, t time.Time) map[int64]float64 {
	n := p.mapping.Len()

	sinHour, cosHour := pipeline.CyclicalHour(t)
	sinDow, cosDow := pipeline.CyclicalWeekday(t)

	x := make([][]float64, n)
	for i := 0; i < n; i++ {
		x[i] = []float64{0, sinHour, cosHour, sinDow, cosDow}
	}

	for _, entry := range snapshot {
		node, ok := p.mapping.NodeID(entry.ComplexID)
		if !ok {
			continue
		}
		// Without training statistics a raw count can't be z-scored;
		// the station stays at the unobserved zero.
		stat, ok := p.stats[entry.ComplexID]
		if !ok {
			continue
		}
		x[node][0] = pipeline.Normalize(entry.Ridership, stat, true)
	}

	y := p.weights.forward(x, p.fwd, p.rev)

	predictions := make(map[int64]float64, n)
	for node := 0; node < n; node++ {
		complexID, _ := p.mapping.ComplexID(node)

		pred := y[node]
		if stat, ok := p.stats[complexID]; ok {
			pred = pred*stat.Std + stat.Mean
		}
		if pred < 0 {
			pred = 0
		}
		predictions[complexID] = pred
	}
	return predictions
}

// Stations returns the complex ids the predictor knows about, in
// node-index order.
func (p *Predictor) Stations() []int64 {
	return p.mapping.ComplexIDs()
}
