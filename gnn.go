package quiet

import (
	"quietroute.dev/quiet/graph"
)

// Directed dual-stack message passing: two independent 2-layer
// mean-aggregation stacks, one over incoming edges and one over the
// reversed set, each with a residual connection between its layers.
// The stack outputs are concatenated and projected to a scalar per
// node. Node features arrive already concatenated with the learned
// per-node embedding.

func (w *Weights) forward(x [][]float64, fwd, rev []graph.Edge) []float64 {
	// Append the learned embedding to every node's features.
	h0 := make([][]float64, len(x))
	for i := range x {
		h0[i] = append(append([]float64{}, x[i]...), w.Embedding[i]...)
	}

	in1 := reluAll(sageConv(w.In1, h0, fwd))
	in2 := reluAll(sageConv(w.In2, in1, fwd))
	hIn := addAll(in2, in1) // residual

	out1 := reluAll(sageConv(w.Out1, h0, rev))
	out2 := reluAll(sageConv(w.Out2, out1, rev))
	hOut := addAll(out2, out1) // residual

	y := make([]float64, len(x))
	for i := range x {
		cat := append(append([]float64{}, hIn[i]...), hOut[i]...)
		y[i] = dot(w.Project.Weight[0], cat) + w.Project.Bias[0]
	}
	return y
}

// One mean-aggregation convolution: each node combines a transform of
// its own state with a transform of the mean over states flowing in
// along the edges.
func sageConv(w SAGEWeights, x [][]float64, edges []graph.Edge) [][]float64 {
	n := len(x)
	if n == 0 {
		return nil
	}
	dim := len(x[0])

	sums := make([][]float64, n)
	counts := make([]int, n)
	for _, e := range edges {
		if sums[e.To] == nil {
			sums[e.To] = make([]float64, dim)
		}
		for k, v := range x[e.From] {
			sums[e.To][k] += v
		}
		counts[e.To]++
	}

	out := make([][]float64, n)
	for i := 0; i < n; i++ {
		h := matVec(w.Self, x[i])
		if counts[i] > 0 {
			mean := sums[i]
			inv := 1.0 / float64(counts[i])
			for k := range mean {
				mean[k] *= inv
			}
			agg := matVec(w.Neigh, mean)
			for k := range h {
				h[k] += agg[k]
			}
		}
		for k := range h {
			h[k] += w.Bias[k]
		}
		out[i] = h
	}
	return out
}

func matVec(m [][]float64, v []float64) []float64 {
	out := make([]float64, len(m))
	for i, row := range m {
		out[i] = dot(row, v)
	}
	return out
}

func dot(a, b []float64) float64 {
	var sum float64
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

func reluAll(x [][]float64) [][]float64 {
	for _, row := range x {
		for i, v := range row {
			if v < 0 {
				row[i] = 0
			}
		}
	}
	return x
}

func addAll(a, b [][]float64) [][]float64 {
	out := make([][]float64, len(a))
	for i := range a {
		row := make([]float64, len(a[i]))
		for k := range a[i] {
			row[k] = a[i][k] + b[i][k]
		}
		out[i] = row
	}
	return out
}
