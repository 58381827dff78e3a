package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quietroute.dev/quiet/model"
)

func TestBuildNodeMapping(t *testing.T) {
	m := BuildNodeMapping([]int64{611, 7, 14, 7, 611})

	assert.Equal(t, 3, m.Len())
	assert.Equal(t, []int64{7, 14, 611}, m.ComplexIDs())

	node, ok := m.NodeID(14)
	assert.True(t, ok)
	assert.Equal(t, 1, node)

	complexID, ok := m.ComplexID(2)
	assert.True(t, ok)
	assert.Equal(t, int64(611), complexID)

	_, ok = m.NodeID(999)
	assert.False(t, ok)
	_, ok = m.ComplexID(3)
	assert.False(t, ok)
	_, ok = m.ComplexID(-1)
	assert.False(t, ok)

	// Same set, different order and duplication: identical mapping.
	again := BuildNodeMapping([]int64{7, 611, 611, 14})
	assert.Equal(t, m.Table(), again.Table())
}

func TestFromTable(t *testing.T) {
	m, err := FromTable(map[int64]int{7: 0, 14: 1, 611: 2})
	require.NoError(t, err)
	assert.Equal(t, []int64{7, 14, 611}, m.ComplexIDs())

	_, err = FromTable(map[int64]int{7: 0, 14: 2})
	assert.Error(t, err)

	_, err = FromTable(map[int64]int{7: -1, 14: 0})
	assert.Error(t, err)
}

func TestBuildComplexEdges(t *testing.T) {
	m := BuildNodeMapping([]int64{10, 11, 20})

	stops := []model.TripStop{
		{TripID: "a", StopSequence: 1, ComplexID: 10},
		{TripID: "a", StopSequence: 2, ComplexID: 11},
		{TripID: "a", StopSequence: 3, ComplexID: 20},
		{TripID: "b", StopSequence: 1, ComplexID: 10},
		{TripID: "b", StopSequence: 2, ComplexID: 11},
		{TripID: "c", StopSequence: 1, ComplexID: 11},
		{TripID: "c", StopSequence: 2, ComplexID: 99},
		{TripID: "c", StopSequence: 3, ComplexID: 20},
	}

	edges, dropped := BuildComplexEdges(stops, m)

	// a: 10->11, 11->20. b repeats 10->11. c contributes nothing: both
	// of its pairs touch the unmapped complex 99.
	assert.Equal(t, []model.Edge{
		{FromComplexID: 10, ToComplexID: 11},
		{FromComplexID: 11, ToComplexID: 20},
	}, edges)
	assert.Equal(t, 2, dropped)
}

func TestBuildComplexEdgesNoCrossTripEdges(t *testing.T) {
	m := BuildNodeMapping([]int64{10, 20})

	edges, dropped := BuildComplexEdges([]model.TripStop{
		{TripID: "a", StopSequence: 1, ComplexID: 10},
		{TripID: "b", StopSequence: 1, ComplexID: 20},
	}, m)

	assert.Empty(t, edges)
	assert.Equal(t, 0, dropped)
}

func TestMapEdges(t *testing.T) {
	m := BuildNodeMapping([]int64{10, 11, 20})

	mapped, dropped := MapEdges([]model.Edge{
		{FromComplexID: 10, ToComplexID: 11},
		{FromComplexID: 11, ToComplexID: 99},
		{FromComplexID: 20, ToComplexID: 10},
	}, m)

	assert.Equal(t, []Edge{{From: 0, To: 1}, {From: 2, To: 0}}, mapped)
	assert.Equal(t, 1, dropped)
}

func TestReverse(t *testing.T) {
	rev := Reverse([]Edge{{From: 0, To: 1}, {From: 2, To: 0}})
	assert.Equal(t, []Edge{{From: 1, To: 0}, {From: 0, To: 2}}, rev)
}

func TestWithSelfLoops(t *testing.T) {
	out := WithSelfLoops([]Edge{{From: 0, To: 1}}, 3)
	assert.Equal(t, []Edge{
		{From: 0, To: 1},
		{From: 0, To: 0},
		{From: 1, To: 1},
		{From: 2, To: 2},
	}, out)
}
