package parse

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/pkg/errors"

	"quietroute.dev/quiet/model"
)

type tripStopCSV struct {
	TripID       string `csv:"trip_id"`
	StopSequence uint32 `csv:"stop_sequence"`
	ComplexID    int64  `csv:"complex_id"`
}

// ParseTripStops reads a scheduled-trips table: one row per stop
// visit, ordered within each trip by stop_sequence. The returned
// slice is sorted by (trip_id, stop_sequence) so consecutive rows of
// a trip are adjacent.
func ParseTripStops(data io.Reader) ([]model.TripStop, error) {
	stops := []model.TripStop{}
	seq := map[string]map[uint32]bool{}

	i := -1
	err := gocsv.UnmarshalToCallbackWithError(data, func(ts *tripStopCSV) error {
		i += 1
		if ts.TripID == "" {
			return fmt.Errorf("missing trip_id (row %d)", i+1)
		}

		if seq[ts.TripID] == nil {
			seq[ts.TripID] = map[uint32]bool{}
		}
		if seq[ts.TripID][ts.StopSequence] {
			return fmt.Errorf(
				"duplicate stop_sequence %d for trip_id '%s' (row %d)",
				ts.StopSequence, ts.TripID, i+1,
			)
		}
		seq[ts.TripID][ts.StopSequence] = true

		stops = append(stops, model.TripStop{
			TripID:       ts.TripID,
			StopSequence: ts.StopSequence,
			ComplexID:    ts.ComplexID,
		})
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "unmarshaling trip stops csv")
	}

	sort.SliceStable(stops, func(i, j int) bool {
		cmp := strings.Compare(stops[i].TripID, stops[j].TripID)
		if cmp < 0 {
			return true
		}
		if cmp == 0 {
			return stops[i].StopSequence < stops[j].StopSequence
		}
		return false
	})

	return stops, nil
}
