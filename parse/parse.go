// Package parse reads and writes the tabular files the engine runs
// on: raw ridership logs, scheduled trip stop sequences, and the
// durable artifacts consumed at serving time (node mapping, station
// statistics, directed edges, snapshots, station names).
package parse

import (
	"io"
	"strconv"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/spkg/bom"
)

func init() {
	// LazyCSVReader required (at least) to survive sloppy use of
	// quotes. The BOM reader strips unicode BOMs if present.
	gocsv.SetCSVReader(func(in io.Reader) gocsv.CSVReader {
		return gocsv.LazyCSVReader(bom.NewReader(in))
	})
}

// Coerces a raw count field to a non-negative integer. Counts in the
// source logs may carry thousands separators; anything unparsable
// counts as zero.
func coerceCount(s string) int64 {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return 0
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
