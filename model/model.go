package model

import (
	"time"
)

// Holds all external facing types and constants.

// Partition identifies which split of the historical archive an
// observation belongs to.
type Partition string

const (
	PartitionTrain      Partition = "train"
	PartitionValidation Partition = "validation"
	PartitionTest       Partition = "test"
)

// A single cleaned ridership observation: tap-ins recorded at a
// station complex during one time bucket.
type Observation struct {
	ComplexID int64
	Timestamp time.Time
	Ridership int64
}

// A raw ridership log row, before cleaning. Ridership and Transfers
// have already been coerced to non-negative integers; Mode is kept so
// the pipeline can restrict to subway rows.
type RidershipRecord struct {
	Timestamp time.Time
	ComplexID int64
	Ridership int64
	Transfers int64
	Mode      string
}

// One stop visit within a scheduled trip. Consecutive visits of the
// same trip define operational adjacency between complexes.
type TripStop struct {
	TripID       string
	StopSequence uint32
	ComplexID    int64
}

// A directed edge between two station complexes, as persisted in the
// edge artifact.
type Edge struct {
	FromComplexID int64
	ToComplexID   int64
}

// Per-complex normalization statistics, computed from the training
// partition only.
type StationStat struct {
	ComplexID int64
	Mean      float64
	Std       float64
}

// One row of a ridership snapshot handed to the predictor: current
// tap-ins at a complex for the ongoing cycle.
type SnapshotEntry struct {
	ComplexID int64
	Ridership float64
}

// Maps a canonical station name to its complex.
type StationName struct {
	Name      string
	ComplexID int64
}

type LegKind int

const (
	LegTransit LegKind = iota
	LegWalk
)

// A single leg of a candidate route. Transit legs carry line and
// endpoint station names; walk legs carry distance.
type Leg struct {
	Kind      LegKind       `json:"kind"`
	Line      string        `json:"line,omitempty"`
	Departure string        `json:"departure,omitempty"`
	Arrival   string        `json:"arrival,omitempty"`
	StopCount int           `json:"stop_count,omitempty"`
	Distance  float64       `json:"distance_meters,omitempty"`
	Duration  time.Duration `json:"duration"`
}

// A candidate route as returned by an external journey planner. The
// quiet score is derived from the legs, never stored.
type Route struct {
	Legs []Leg `json:"legs"`
}

// TransitLegs returns the legs that ride a line, in order.
func (r Route) TransitLegs() []Leg {
	legs := []Leg{}
	for _, leg := range r.Legs {
		if leg.Kind == LegTransit {
			legs = append(legs, leg)
		}
	}
	return legs
}
