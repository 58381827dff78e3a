package parse

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/pkg/errors"

	"quietroute.dev/quiet/model"
)

// Codecs for the durable artifacts produced by preprocessing and
// consumed by the predictor. All of them are small tabular files.

type nodeMappingCSV struct {
	ComplexID int64 `csv:"complex_id"`
	NodeID    int   `csv:"node_id"`
}

// ReadNodeMapping loads the complex-id to node-index bijection. The
// mapping must be dense: node ids exactly cover [0, n) with no
// duplicates on either side.
func ReadNodeMapping(data io.Reader) (map[int64]int, error) {
	mapping := map[int64]int{}
	seenNode := map[int]bool{}

	i := -1
	err := gocsv.UnmarshalToCallbackWithError(data, func(row *nodeMappingCSV) error {
		i += 1
		if _, ok := mapping[row.ComplexID]; ok {
			return fmt.Errorf("duplicate complex_id %d (row %d)", row.ComplexID, i+1)
		}
		if seenNode[row.NodeID] {
			return fmt.Errorf("duplicate node_id %d (row %d)", row.NodeID, i+1)
		}
		if row.NodeID < 0 {
			return fmt.Errorf("negative node_id %d (row %d)", row.NodeID, i+1)
		}
		mapping[row.ComplexID] = row.NodeID
		seenNode[row.NodeID] = true
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "unmarshaling node mapping csv")
	}

	for node := 0; node < len(mapping); node++ {
		if !seenNode[node] {
			return nil, fmt.Errorf("node mapping not dense: missing node_id %d", node)
		}
	}

	return mapping, nil
}

// WriteNodeMapping persists a node mapping, ordered by node id.
func WriteNodeMapping(w io.Writer, mapping map[int64]int) error {
	rows := make([]nodeMappingCSV, 0, len(mapping))
	for complexID, nodeID := range mapping {
		rows = append(rows, nodeMappingCSV{ComplexID: complexID, NodeID: nodeID})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].NodeID < rows[j].NodeID })
	return errors.Wrap(gocsv.Marshal(&rows, w), "marshaling node mapping csv")
}

type stationStatCSV struct {
	ComplexID int64   `csv:"station_complex_id"`
	Mean      float64 `csv:"mean"`
	Std       float64 `csv:"std"`
}

// ReadStats loads per-station normalization statistics.
func ReadStats(data io.Reader) (map[int64]model.StationStat, error) {
	stats := map[int64]model.StationStat{}

	i := -1
	err := gocsv.UnmarshalToCallbackWithError(data, func(row *stationStatCSV) error {
		i += 1
		if _, ok := stats[row.ComplexID]; ok {
			return fmt.Errorf("duplicate station_complex_id %d (row %d)", row.ComplexID, i+1)
		}
		stats[row.ComplexID] = model.StationStat{
			ComplexID: row.ComplexID,
			Mean:      row.Mean,
			Std:       row.Std,
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "unmarshaling stats csv")
	}

	return stats, nil
}

// WriteStats persists station statistics, ordered by complex id.
func WriteStats(w io.Writer, stats []model.StationStat) error {
	rows := make([]stationStatCSV, 0, len(stats))
	for _, s := range stats {
		rows = append(rows, stationStatCSV{ComplexID: s.ComplexID, Mean: s.Mean, Std: s.Std})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].ComplexID < rows[j].ComplexID })
	return errors.Wrap(gocsv.Marshal(&rows, w), "marshaling stats csv")
}

type edgeCSV struct {
	FromComplexID int64 `csv:"from_complex_id"`
	ToComplexID   int64 `csv:"to_complex_id"`
}

// ReadEdges loads the directed complex-to-complex edge list.
func ReadEdges(data io.Reader) ([]model.Edge, error) {
	edges := []model.Edge{}
	err := gocsv.UnmarshalToCallbackWithError(data, func(row *edgeCSV) error {
		edges = append(edges, model.Edge{
			FromComplexID: row.FromComplexID,
			ToComplexID:   row.ToComplexID,
		})
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "unmarshaling edges csv")
	}
	return edges, nil
}

// WriteEdges persists the directed edge list in the order given.
func WriteEdges(w io.Writer, edges []model.Edge) error {
	rows := make([]edgeCSV, 0, len(edges))
	for _, e := range edges {
		rows = append(rows, edgeCSV{FromComplexID: e.FromComplexID, ToComplexID: e.ToComplexID})
	}
	return errors.Wrap(gocsv.Marshal(&rows, w), "marshaling edges csv")
}

type snapshotCSV struct {
	ComplexID int64  `csv:"station_complex_id"`
	Ridership string `csv:"ridership"`
}

// ReadSnapshot loads a caller-supplied ridership snapshot: one row
// per station for the current cycle. Counts are coerced like the raw
// logs.
func ReadSnapshot(data io.Reader) ([]model.SnapshotEntry, error) {
	entries := []model.SnapshotEntry{}
	err := gocsv.UnmarshalToCallbackWithError(data, func(row *snapshotCSV) error {
		entries = append(entries, model.SnapshotEntry{
			ComplexID: row.ComplexID,
			Ridership: float64(coerceCount(row.Ridership)),
		})
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "unmarshaling snapshot csv")
	}
	return entries, nil
}

type stationNameCSV struct {
	Name      string `csv:"stop_name"`
	ComplexID int64  `csv:"complex_id"`
}

// ReadStationNames loads the canonical stop-name directory used for
// free-text station resolution. Later duplicates of a name lose.
func ReadStationNames(data io.Reader) ([]model.StationName, error) {
	names := []model.StationName{}
	seen := map[string]bool{}
	err := gocsv.UnmarshalToCallbackWithError(data, func(row *stationNameCSV) error {
		name := strings.TrimSpace(row.Name)
		if name == "" || seen[name] {
			return nil
		}
		seen[name] = true
		names = append(names, model.StationName{Name: name, ComplexID: row.ComplexID})
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "unmarshaling station names csv")
	}
	return names, nil
}

// File wrappers for the loaders the serving path uses.

func ReadNodeMappingFile(path string) (map[int64]int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadNodeMapping(f)
}

func ReadStatsFile(path string) (map[int64]model.StationStat, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadStats(f)
}

func ReadEdgesFile(path string) ([]model.Edge, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadEdges(f)
}

func ReadStationNamesFile(path string) ([]model.StationName, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadStationNames(f)
}
