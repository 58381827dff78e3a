package pipeline

import (
	"math"
	"time"

	"quietroute.dev/quiet/graph"
	"quietroute.dev/quiet/model"
)

// Small positive floor added to std before dividing; a station whose
// training ridership never varies must not blow up the z-score.
const stdEpsilon = 1e-6

// FeatureRow is one engineered training example: normalized ridership
// plus cyclical time-of-day and day-of-week encodings, keyed by node.
type FeatureRow struct {
	NodeID        int
	ComplexID     int64
	Timestamp     time.Time
	RidershipNorm float64
	SinHour       float64
	CosHour       float64
	SinDow        float64
	CosDow        float64
}

// Normalize z-scores a ridership count against a station's training
// statistics. Stations unseen in training default to mean 0, std 1.
func Normalize(ridership float64, stat model.StationStat, ok bool) float64 {
	if !ok {
		stat = model.StationStat{Mean: 0, Std: 1}
	}
	return (ridership - stat.Mean) / (stat.Std + stdEpsilon)
}

// CyclicalHour encodes hour-of-day on the unit circle, period 24.
// Sine/cosine pairs avoid the discontinuity at midnight.
func CyclicalHour(t time.Time) (sin, cos float64) {
	h := float64(t.Hour())
	return math.Sin(2 * math.Pi * h / 24), math.Cos(2 * math.Pi * h / 24)
}

// CyclicalWeekday encodes day-of-week on the unit circle, period 7,
// with Monday as 0.
func CyclicalWeekday(t time.Time) (sin, cos float64) {
	d := float64((int(t.Weekday()) + 6) % 7)
	return math.Sin(2 * math.Pi * d / 7), math.Cos(2 * math.Pi * d / 7)
}

// BuildFeatures engineers feature rows for a partition. Rows whose
// complex is outside the node mapping are dropped; the count of
// dropped rows is returned alongside.
func BuildFeatures(
	obs []model.Observation,
	stats map[int64]model.StationStat,
	m *graph.NodeMapping,
) ([]FeatureRow, int) {

	rows := make([]FeatureRow, 0, len(obs))
	dropped := 0
	for _, o := range obs {
		node, ok := m.NodeID(o.ComplexID)
		if !ok {
			dropped++
			continue
		}

		stat, ok := stats[o.ComplexID]
		sinHour, cosHour := CyclicalHour(o.Timestamp)
		sinDow, cosDow := CyclicalWeekday(o.Timestamp)

		rows = append(rows, FeatureRow{
			NodeID:        node,
			ComplexID:     o.ComplexID,
			Timestamp:     o.Timestamp,
			RidershipNorm: Normalize(float64(o.Ridership), stat, ok),
			SinHour:       sinHour,
			CosHour:       cosHour,
			SinDow:        sinDow,
			CosDow:        cosDow,
		})
	}
	return rows, dropped
}
