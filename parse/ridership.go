package parse

import (
	"io"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/pkg/errors"

	"quietroute.dev/quiet/model"
)

// Timestamp layout used by the ridership logs.
const ridershipTimeLayout = "01/02/2006 03:04:05 PM"

type ridershipCSV struct {
	Timestamp string `csv:"transit_timestamp"`
	ComplexID int64  `csv:"station_complex_id"`
	Ridership string `csv:"ridership"`
	Transfers string `csv:"transfers"`
	Mode      string `csv:"transit_mode"`
}

// ParseRidership reads a raw ridership log. Count fields are coerced
// to non-negative integers (thousands separators stripped, garbage
// treated as zero). A malformed timestamp is a hard error; everything
// downstream keys on it.
func ParseRidership(data io.Reader) ([]model.RidershipRecord, error) {
	records := []model.RidershipRecord{}

	i := -1
	err := gocsv.UnmarshalToCallbackWithError(data, func(row *ridershipCSV) error {
		i += 1

		ts, err := time.Parse(ridershipTimeLayout, row.Timestamp)
		if err != nil {
			return errors.Wrapf(err, "parsing transit_timestamp (row %d)", i+1)
		}

		records = append(records, model.RidershipRecord{
			Timestamp: ts,
			ComplexID: row.ComplexID,
			Ridership: coerceCount(row.Ridership),
			Transfers: coerceCount(row.Transfers),
			Mode:      row.Mode,
		})
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "unmarshaling ridership csv")
	}

	return records, nil
}
