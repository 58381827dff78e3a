package quiet

// Shared fixtures for the package tests.

func zeroMatrix(rows, cols int) [][]float64 {
	m := make([][]float64, rows)
	for i := range m {
		m[i] = make([]float64, cols)
	}
	return m
}

// A weight blob of the right shape with every parameter zero. Forward
// passes through it produce zero for every node, which makes
// denormalization and clamping behavior easy to pin down.
func newTestWeights(numNodes, inDim, hiddenDim, embDim int) *Weights {
	layer := func(in int) SAGEWeights {
		return SAGEWeights{
			Self:  zeroMatrix(hiddenDim, in),
			Neigh: zeroMatrix(hiddenDim, in),
			Bias:  make([]float64, hiddenDim),
		}
	}

	d0 := inDim + embDim
	return &Weights{
		NumNodes:  numNodes,
		InDim:     inDim,
		HiddenDim: hiddenDim,
		EmbDim:    embDim,
		Embedding: zeroMatrix(numNodes, embDim),
		In1:       layer(d0),
		In2:       layer(hiddenDim),
		Out1:      layer(d0),
		Out2:      layer(hiddenDim),
		Project: LinearWeights{
			Weight: zeroMatrix(1, 2*hiddenDim),
			Bias:   []float64{0},
		},
	}
}
