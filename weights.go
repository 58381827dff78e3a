package quiet

import (
	"encoding/json"
	"fmt"
	"os"
)

// Trained parameters for one message-passing layer: a transform for
// the node's own state, one for the aggregated neighborhood mean, and
// a bias. Matrices are row-major, [out][in].
type SAGEWeights struct {
	Self  [][]float64 `json:"self"`
	Neigh [][]float64 `json:"neigh"`
	Bias  []float64   `json:"bias"`
}

type LinearWeights struct {
	Weight [][]float64 `json:"weight"`
	Bias   []float64   `json:"bias"`
}

// Weights is the trained-parameter blob for the predictor. The
// declared dimensions must match both the loaded node mapping and the
// configured architecture exactly; a mismatch is a fatal load error.
type Weights struct {
	NumNodes  int `json:"num_nodes"`
	InDim     int `json:"in_dim"`
	HiddenDim int `json:"hidden_dim"`
	EmbDim    int `json:"emb_dim"`

	// Per-node learned embedding, [num_nodes][emb_dim].
	Embedding [][]float64 `json:"embedding"`

	// Two-layer stack over incoming edges.
	In1 SAGEWeights `json:"in1"`
	In2 SAGEWeights `json:"in2"`

	// Two-layer stack over outgoing (reversed) edges.
	Out1 SAGEWeights `json:"out1"`
	Out2 SAGEWeights `json:"out2"`

	// Projection from the concatenated stack outputs to a single
	// scalar per node, [1][2*hidden_dim].
	Project LinearWeights `json:"project"`
}

func LoadWeights(path string) (*Weights, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading weights: %w", err)
	}

	var w Weights
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("unmarshaling weights: %w", err)
	}
	return &w, nil
}

// Validate checks the blob against the expected node count and
// architecture dimensions.
func (w *Weights) Validate(numNodes, inDim, hiddenDim, embDim int) error {
	if w.NumNodes != numNodes {
		return fmt.Errorf("weights trained for %d nodes, mapping has %d", w.NumNodes, numNodes)
	}
	if w.InDim != inDim || w.HiddenDim != hiddenDim || w.EmbDim != embDim {
		return fmt.Errorf(
			"weights dims (in=%d hidden=%d emb=%d) don't match configuration (in=%d hidden=%d emb=%d)",
			w.InDim, w.HiddenDim, w.EmbDim, inDim, hiddenDim, embDim,
		)
	}

	if err := checkMatrix("embedding", w.Embedding, numNodes, embDim); err != nil {
		return err
	}

	d0 := inDim + embDim
	for _, layer := range []struct {
		name string
		w    SAGEWeights
		in   int
	}{
		{"in1", w.In1, d0},
		{"in2", w.In2, hiddenDim},
		{"out1", w.Out1, d0},
		{"out2", w.Out2, hiddenDim},
	} {
		if err := checkMatrix(layer.name+".self", layer.w.Self, hiddenDim, layer.in); err != nil {
			return err
		}
		if err := checkMatrix(layer.name+".neigh", layer.w.Neigh, hiddenDim, layer.in); err != nil {
			return err
		}
		if err := checkVector(layer.name+".bias", layer.w.Bias, hiddenDim); err != nil {
			return err
		}
	}

	if err := checkMatrix("project.weight", w.Project.Weight, 1, 2*hiddenDim); err != nil {
		return err
	}
	return checkVector("project.bias", w.Project.Bias, 1)
}

func checkMatrix(name string, m [][]float64, rows, cols int) error {
	if len(m) != rows {
		return fmt.Errorf("%s: got %d rows, want %d", name, len(m), rows)
	}
	for i, row := range m {
		if len(row) != cols {
			return fmt.Errorf("%s: row %d has %d cols, want %d", name, i, len(row), cols)
		}
	}
	return nil
}

func checkVector(name string, v []float64, n int) error {
	if len(v) != n {
		return fmt.Errorf("%s: got %d elements, want %d", name, len(v), n)
	}
	return nil
}
