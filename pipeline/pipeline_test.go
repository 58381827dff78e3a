package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quietroute.dev/quiet/graph"
	"quietroute.dev/quiet/model"
)

func obsAt(complexID int64, ts time.Time, ridership int64) model.Observation {
	return model.Observation{ComplexID: complexID, Timestamp: ts, Ridership: ridership}
}

func TestClean(t *testing.T) {
	nine := time.Date(2024, 7, 4, 9, 0, 0, 0, time.UTC)
	ten := time.Date(2024, 7, 4, 10, 0, 0, 0, time.UTC)

	records := []model.RidershipRecord{
		{Timestamp: ten, ComplexID: 7, Ridership: 5, Mode: "subway"},
		{Timestamp: nine, ComplexID: 7, Ridership: 10, Mode: "subway"},
		{Timestamp: nine, ComplexID: 7, Ridership: 3, Mode: "subway"},
		{Timestamp: nine, ComplexID: 14, Ridership: 50, Mode: "bus"},
		{Timestamp: nine, ComplexID: 14, Ridership: 2, Mode: ""},
	}

	assert.Equal(t, []model.Observation{
		obsAt(7, nine, 13),
		obsAt(14, nine, 2),
		obsAt(7, ten, 5),
	}, Clean(records))
}

func TestComputeStats(t *testing.T) {
	ts := time.Date(2023, 1, 2, 9, 0, 0, 0, time.UTC)

	stats := ComputeStats([]model.Observation{
		obsAt(7, ts, 2),
		obsAt(7, ts.Add(time.Hour), 4),
		obsAt(7, ts.Add(2*time.Hour), 6),
		obsAt(14, ts, 100),
	})

	require.Len(t, stats, 2)

	assert.Equal(t, int64(7), stats[0].ComplexID)
	assert.InDelta(t, 4.0, stats[0].Mean, 1e-9)
	assert.InDelta(t, 2.0, stats[0].Std, 1e-9)

	// Single observation: sample std undefined, defaults to 1.
	assert.Equal(t, int64(14), stats[1].ComplexID)
	assert.InDelta(t, 100.0, stats[1].Mean, 1e-9)
	assert.InDelta(t, 1.0, stats[1].Std, 1e-9)
}

func TestSplitCalendar(t *testing.T) {
	obs := []model.Observation{
		obsAt(7, time.Date(2021, 3, 1, 9, 0, 0, 0, time.UTC), 1),
		obsAt(7, time.Date(2022, 3, 1, 9, 0, 0, 0, time.UTC), 2),
		obsAt(7, time.Date(2023, 3, 1, 9, 0, 0, 0, time.UTC), 3),
		obsAt(7, time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC), 4),
	}

	s, err := Split(obs, SplitConfig{Policy: SplitCalendar, TrainEndYear: 2022})
	require.NoError(t, err)

	assert.Equal(t, []model.Observation{obs[0], obs[1]}, s.Train)
	assert.Equal(t, []model.Observation{obs[2]}, s.Validation)
	assert.Equal(t, []model.Observation{obs[3]}, s.Test)
}

func TestSplitStratified(t *testing.T) {
	obs := []model.Observation{}
	for i := 0; i < 10; i++ {
		obs = append(obs, obsAt(int64(i), time.Date(2022, 1, 1+i, 9, 0, 0, 0, time.UTC), 1))
	}
	for i := 0; i < 40; i++ {
		obs = append(obs, obsAt(int64(i), time.Date(2023, 1, 1, 9, 0, 0, 0, time.UTC).Add(time.Duration(i)*time.Hour), 1))
	}

	cfg := SplitConfig{Policy: SplitStratified, EarlyEndYear: 2022, Seed: 42}
	s, err := Split(obs, cfg)
	require.NoError(t, err)

	// 10 early rows all train, plus 37.5% of the 40 late rows. 2.5% of
	// 40 truncates to 1 validation row.
	assert.Len(t, s.Train, 10+15)
	assert.Len(t, s.Validation, 1)
	assert.Len(t, s.Test, 24)

	for _, o := range s.Train[:10] {
		assert.Equal(t, 2022, o.Timestamp.Year())
	}
	for _, o := range append(s.Validation, s.Test...) {
		assert.Equal(t, 2023, o.Timestamp.Year())
	}

	// Fixed seed: identical assignment on a second run.
	again, err := Split(obs, cfg)
	require.NoError(t, err)
	assert.Equal(t, s, again)
}

func TestSplitUnknownPolicy(t *testing.T) {
	_, err := Split(nil, SplitConfig{Policy: "chronological"})
	assert.Error(t, err)
}

func TestNormalize(t *testing.T) {
	stat := model.StationStat{Mean: 10, Std: 2}
	assert.InDelta(t, 2.5, Normalize(15, stat, true), 1e-5)

	// Unseen station falls back to mean 0, std 1.
	assert.InDelta(t, 15, Normalize(15, model.StationStat{}, false), 1e-4)
}

func TestCyclicalEncodings(t *testing.T) {
	// Midnight on a Monday: both encodings at angle zero.
	monday := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	sinH, cosH := CyclicalHour(monday)
	assert.InDelta(t, 0, sinH, 1e-9)
	assert.InDelta(t, 1, cosH, 1e-9)
	sinD, cosD := CyclicalWeekday(monday)
	assert.InDelta(t, 0, sinD, 1e-9)
	assert.InDelta(t, 1, cosD, 1e-9)

	// 6am is a quarter turn around the day.
	sinH, cosH = CyclicalHour(monday.Add(6 * time.Hour))
	assert.InDelta(t, 1, sinH, 1e-9)
	assert.InDelta(t, 0, cosH, 1e-9)

	// 23:59 sits next to midnight on the circle.
	sinH, cosH = CyclicalHour(time.Date(2024, 7, 1, 23, 59, 0, 0, time.UTC))
	s0, c0 := CyclicalHour(monday)
	assert.InDelta(t, s0, sinH, 0.3)
	assert.InDelta(t, c0, cosH, 0.05)

	// Sunday is day 6.
	sunday := time.Date(2024, 7, 7, 0, 0, 0, 0, time.UTC)
	sinD, cosD = CyclicalWeekday(sunday)
	assert.InDelta(t, -0.7818, sinD, 1e-4)
	assert.InDelta(t, 0.6235, cosD, 1e-4)
}

func TestBuildFeatures(t *testing.T) {
	m := graph.BuildNodeMapping([]int64{7, 14})
	stats := map[int64]model.StationStat{
		7: {ComplexID: 7, Mean: 10, Std: 2},
	}

	ts := time.Date(2024, 7, 1, 6, 0, 0, 0, time.UTC)
	rows, dropped := BuildFeatures([]model.Observation{
		obsAt(7, ts, 14),
		obsAt(14, ts, 5),
		obsAt(99, ts, 5),
	}, stats, m)

	assert.Equal(t, 1, dropped)
	require.Len(t, rows, 2)

	assert.Equal(t, 0, rows[0].NodeID)
	assert.InDelta(t, 2.0, rows[0].RidershipNorm, 1e-5)
	assert.InDelta(t, 1.0, rows[0].SinHour, 1e-9)
	assert.InDelta(t, 0.0, rows[0].CosHour, 1e-9)

	// No stats for complex 14: normalized against mean 0, std 1.
	assert.Equal(t, 1, rows[1].NodeID)
	assert.InDelta(t, 5.0, rows[1].RidershipNorm, 1e-4)
}

func TestEdgeCoverage(t *testing.T) {
	m := graph.BuildNodeMapping([]int64{7, 14})
	valid, total := EdgeCoverage([]model.Edge{
		{FromComplexID: 7, ToComplexID: 14},
		{FromComplexID: 14, ToComplexID: 99},
	}, m)
	assert.Equal(t, 1, valid)
	assert.Equal(t, 2, total)
}

func TestRun(t *testing.T) {
	records := []model.RidershipRecord{}
	base := time.Date(2022, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 20; i++ {
		records = append(records, model.RidershipRecord{
			Timestamp: base.Add(time.Duration(i) * time.Hour),
			ComplexID: 10,
			Ridership: int64(100 + i),
			Mode:      "subway",
		})
		records = append(records, model.RidershipRecord{
			Timestamp: base.Add(time.Duration(i) * time.Hour),
			ComplexID: 11,
			Ridership: int64(50 + i),
			Mode:      "subway",
		})
	}
	// Later records for one additional station the mapping must not
	// pick up: it only ever appears outside the training years.
	records = append(records, model.RidershipRecord{
		Timestamp: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC),
		ComplexID: 99,
		Ridership: 7,
		Mode:      "subway",
	})

	trips := []model.TripStop{
		{TripID: "a", StopSequence: 1, ComplexID: 10},
		{TripID: "a", StopSequence: 2, ComplexID: 11},
		{TripID: "a", StopSequence: 3, ComplexID: 99},
	}

	res, err := Run(records, trips, Config{
		Split: SplitConfig{Policy: SplitCalendar, TrainEndYear: 2022},
	})
	require.NoError(t, err)

	assert.Equal(t, []int64{10, 11}, res.Mapping.ComplexIDs())
	require.Len(t, res.Stats, 2)
	assert.Equal(t, int64(10), res.Stats[0].ComplexID)
	assert.InDelta(t, 109.5, res.Stats[0].Mean, 1e-9)

	// 10->11 survives; 11->99 is dropped with the unmapped complex.
	assert.Equal(t, []model.Edge{{FromComplexID: 10, ToComplexID: 11}}, res.Edges)
	assert.Equal(t, 1, res.DroppedEdges)
	assert.Equal(t, 1, res.ValidEdges)

	assert.Len(t, res.TrainFeatures, 40)
	assert.Empty(t, res.ValidationFeatures)
	// The 2024 record for complex 99 is outside the mapping.
	assert.Empty(t, res.TestFeatures)
}

func TestStatsIgnoreLaterPartitions(t *testing.T) {
	base := time.Date(2022, 3, 1, 0, 0, 0, 0, time.UTC)
	records := []model.RidershipRecord{
		{Timestamp: base, ComplexID: 10, Ridership: 100, Mode: "subway"},
		{Timestamp: base.Add(time.Hour), ComplexID: 10, Ridership: 102, Mode: "subway"},
	}
	cfg := Config{Split: SplitConfig{Policy: SplitCalendar, TrainEndYear: 2022}}

	before, err := Run(records, nil, cfg)
	require.NoError(t, err)

	// A wild test-year outlier must leave training statistics alone.
	records = append(records, model.RidershipRecord{
		Timestamp: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC),
		ComplexID: 10,
		Ridership: 1000000,
		Mode:      "subway",
	})
	after, err := Run(records, nil, cfg)
	require.NoError(t, err)

	assert.Equal(t, before.Stats, after.Stats)
	assert.Equal(t, before.Mapping.Table(), after.Mapping.Table())
}
