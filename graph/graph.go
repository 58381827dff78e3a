// Package graph builds the station-complex graph the predictor runs
// message passing over: a deterministic complex-id to node-index
// mapping, and directed edges derived from consecutive stop visits
// within scheduled trips.
package graph

import (
	"fmt"
	"sort"

	"quietroute.dev/quiet/model"
)

// NodeMapping is a bijection from complex id to a dense node index in
// [0, n). It is built once from training data and read-only after.
type NodeMapping struct {
	toNode    map[int64]int
	toComplex []int64
}

// BuildNodeMapping assigns node indices by sorting the given complex
// ids ascending and enumerating them. Duplicates are ignored. The
// result is identical across runs for identical input sets.
func BuildNodeMapping(complexIDs []int64) *NodeMapping {
	seen := map[int64]bool{}
	unique := []int64{}
	for _, id := range complexIDs {
		if !seen[id] {
			seen[id] = true
			unique = append(unique, id)
		}
	}
	sort.Slice(unique, func(i, j int) bool { return unique[i] < unique[j] })

	toNode := make(map[int64]int, len(unique))
	for node, id := range unique {
		toNode[id] = node
	}
	return &NodeMapping{toNode: toNode, toComplex: unique}
}

// FromTable reconstructs a mapping from persisted complex-id to
// node-id pairs. The table must be dense over [0, n).
func FromTable(table map[int64]int) (*NodeMapping, error) {
	toComplex := make([]int64, len(table))
	seen := make([]bool, len(table))
	for complexID, node := range table {
		if node < 0 || node >= len(table) {
			return nil, fmt.Errorf("node_id %d out of range [0, %d)", node, len(table))
		}
		if seen[node] {
			return nil, fmt.Errorf("duplicate node_id %d", node)
		}
		seen[node] = true
		toComplex[node] = complexID
	}

	toNode := make(map[int64]int, len(table))
	for complexID, node := range table {
		toNode[complexID] = node
	}
	return &NodeMapping{toNode: toNode, toComplex: toComplex}, nil
}

// NodeID returns the node index for a complex id.
func (m *NodeMapping) NodeID(complexID int64) (int, bool) {
	node, ok := m.toNode[complexID]
	return node, ok
}

// ComplexID returns the complex id at a node index.
func (m *NodeMapping) ComplexID(node int) (int64, bool) {
	if node < 0 || node >= len(m.toComplex) {
		return 0, false
	}
	return m.toComplex[node], true
}

// Len returns the number of mapped complexes.
func (m *NodeMapping) Len() int {
	return len(m.toComplex)
}

// ComplexIDs returns all mapped complex ids in node-index order.
func (m *NodeMapping) ComplexIDs() []int64 {
	ids := make([]int64, len(m.toComplex))
	copy(ids, m.toComplex)
	return ids
}

// Table returns the mapping as a plain complex-id to node-id table,
// for persistence.
func (m *NodeMapping) Table() map[int64]int {
	table := make(map[int64]int, len(m.toNode))
	for complexID, node := range m.toNode {
		table[complexID] = node
	}
	return table
}

// Edge is a directed (source, destination) pair of node indices.
// Edges are stored in flat arrays rather than adjacency structures;
// the graph is small and the predictor only ever scans them.
type Edge struct {
	From int
	To   int
}

// BuildComplexEdges derives the directed edge artifact from trip stop
// sequences: one edge per pair of consecutive stops within a trip,
// deduplicated. An edge touching a complex outside the mapping is
// dropped; the dropped count is returned alongside.
func BuildComplexEdges(stops []model.TripStop, m *NodeMapping) ([]model.Edge, int) {
	edges := []model.Edge{}
	seen := map[model.Edge]bool{}
	dropped := 0

	for i := 1; i < len(stops); i++ {
		if stops[i].TripID != stops[i-1].TripID {
			continue
		}
		e := model.Edge{
			FromComplexID: stops[i-1].ComplexID,
			ToComplexID:   stops[i].ComplexID,
		}
		if _, ok := m.NodeID(e.FromComplexID); !ok {
			dropped++
			continue
		}
		if _, ok := m.NodeID(e.ToComplexID); !ok {
			dropped++
			continue
		}
		if seen[e] {
			continue
		}
		seen[e] = true
		edges = append(edges, e)
	}

	return edges, dropped
}

// MapEdges translates complex-id edges to node-index edges, dropping
// and counting any edge with an unmapped endpoint.
func MapEdges(edges []model.Edge, m *NodeMapping) ([]Edge, int) {
	mapped := make([]Edge, 0, len(edges))
	dropped := 0
	for _, e := range edges {
		from, okFrom := m.NodeID(e.FromComplexID)
		to, okTo := m.NodeID(e.ToComplexID)
		if !okFrom || !okTo {
			dropped++
			continue
		}
		mapped = append(mapped, Edge{From: from, To: to})
	}
	return mapped, dropped
}

// Reverse returns the element-wise swapped edge array.
func Reverse(edges []Edge) []Edge {
	rev := make([]Edge, len(edges))
	for i, e := range edges {
		rev[i] = Edge{From: e.To, To: e.From}
	}
	return rev
}

// WithSelfLoops appends a self-loop for every node. Self-loops keep a
// node's own state in the neighborhood mean and stabilize message
// passing.
func WithSelfLoops(edges []Edge, numNodes int) []Edge {
	out := make([]Edge, 0, len(edges)+numNodes)
	out = append(out, edges...)
	for i := 0; i < numNodes; i++ {
		out = append(out, Edge{From: i, To: i})
	}
	return out
}
