package quiet

import (
	"math"
	"sort"

	"quietroute.dev/quiet/model"
)

// Quiet score returned when a route has no resolvable stations or no
// predictions exist at all.
const DefaultQuietScore = 5

// Congestion assumed for a station missing from the prediction map.
const neutralCongestion = 0.5

// Decay constant for the position-weighted variant: contributions
// halve roughly every 4 stops, reflecting that near-term stations
// dominate rider experience. The average journey runs about 6 stops.
const decayStops = 6.0

// CongestionScorer turns a prediction map into per-station congestion
// percentiles and per-route quiet scores. It is immutable once built;
// build a fresh one per prediction cycle.
type CongestionScorer struct {
	predictions map[int64]float64
	sorted      []float64
	directory   *StationDirectory
}

func NewCongestionScorer(predictions map[int64]float64, directory *StationDirectory) *CongestionScorer {
	sorted := make([]float64, 0, len(predictions))
	for _, v := range predictions {
		sorted = append(sorted, v)
	}
	sort.Float64s(sorted)

	return &CongestionScorer{
		predictions: predictions,
		sorted:      sorted,
		directory:   directory,
	}
}

// StationScore is the percentile rank of a station's predicted
// tap-ins among all predicted stations: 0.0 least busy, 1.0 busiest.
// The busiest of N stations scores (N-1)/N. Stations without a
// prediction get a neutral 0.5.
func (s *CongestionScorer) StationScore(complexID int64) float64 {
	v, ok := s.predictions[complexID]
	if !ok {
		return neutralCongestion
	}
	// SearchFloat64s returns the count of values strictly below v.
	below := sort.SearchFloat64s(s.sorted, v)
	return float64(below) / float64(len(s.sorted))
}

// RouteScore averages congestion over the resolved departure and
// arrival stations of a route's transit legs, then inverts and scales
// to an integer in [0, 10]. Unresolved station names are excluded
// from the average; a route with no resolved stations gets the
// neutral default.
func (s *CongestionScorer) RouteScore(route model.Route) int {
	scores := []float64{}
	for _, leg := range route.TransitLegs() {
		for _, name := range []string{leg.Departure, leg.Arrival} {
			complexID, ok := s.directory.Resolve(name)
			if !ok {
				continue
			}
			scores = append(scores, s.StationScore(complexID))
		}
	}

	if len(scores) == 0 {
		return DefaultQuietScore
	}
	return quietScore(mean(scores))
}

// SequenceScore scores an explicit ordered station sequence, weighting
// each station's congestion by exp(-i/6) for its position i from the
// route's start before averaging.
func (s *CongestionScorer) SequenceScore(complexIDs []int64) int {
	if len(complexIDs) == 0 {
		return DefaultQuietScore
	}

	contributions := make([]float64, len(complexIDs))
	for i, complexID := range complexIDs {
		decay := math.Exp(-float64(i) / decayStops)
		contributions[i] = s.StationScore(complexID) * decay
	}
	return quietScore(mean(contributions))
}

// Inverts average congestion and scales to the integer range [0, 10]:
// high congestion means a low quiet score.
func quietScore(congestion float64) int {
	score := int((1.0 - congestion) * 10)
	if score < 0 {
		return 0
	}
	if score > 10 {
		return 10
	}
	return score
}

func mean(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
