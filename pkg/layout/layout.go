// Package layout computes 2D positions for canvas nodes. All functions are
// deterministic: identical inputs produce identical outputs, with no hidden
// randomness. Inputs are never mutated; repositioned copies are returned.
package layout

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/sketchwork-app/sketchwork-engine/pkg/canvas"
)

// Engine exposes the layout algorithms. Edges referencing unknown node ids
// are skipped with a logged warning, never an error; an empty node list
// yields an empty result.
type Engine interface {
	// Grid arranges nodes in a ceil(sqrt(n))-column grid centered on the
	// configured center, each row centered independently.
	Grid(nodes []canvas.Node, opts Options) []canvas.Node

	// Circle places nodes evenly on a circle around the configured center.
	Circle(nodes []canvas.Node, opts Options) []canvas.Node

	// ForceDirected runs the iterative repulsion/attraction/gravity
	// simulation with a cooling displacement cap.
	ForceDirected(nodes []canvas.Node, edges []canvas.Edge, opts Options) []canvas.Node

	// Tree assigns topological levels from the graph's roots and lays
	// levels out along the direction axis.
	Tree(nodes []canvas.Node, edges []canvas.Edge, opts Options) []canvas.Node

	// AutoArrange picks grid for small or edgeless graphs and tree layout
	// otherwise.
	AutoArrange(nodes []canvas.Node, edges []canvas.Edge, opts Options) []canvas.Node

	// Apply runs the named algorithm.
	Apply(algorithm string, nodes []canvas.Node, edges []canvas.Edge, opts Options) ([]canvas.Node, error)
}

type engine struct {
	logger *zap.Logger
}

// NewEngine creates a layout engine. If logger is nil, a no-op logger is
// used.
func NewEngine(logger *zap.Logger) Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &engine{logger: logger.Named("layout")}
}

var _ Engine = (*engine)(nil)

func (e *engine) Apply(algorithm string, nodes []canvas.Node, edges []canvas.Edge, opts Options) ([]canvas.Node, error) {
	switch algorithm {
	case AlgorithmGrid:
		return e.Grid(nodes, opts), nil
	case AlgorithmCircle:
		return e.Circle(nodes, opts), nil
	case AlgorithmForce:
		return e.ForceDirected(nodes, edges, opts), nil
	case AlgorithmTree:
		return e.Tree(nodes, edges, opts), nil
	case AlgorithmAuto:
		return e.AutoArrange(nodes, edges, opts), nil
	default:
		return nil, fmt.Errorf("unknown layout algorithm %q", algorithm)
	}
}

// validEdges filters edges whose endpoints both resolve to known node ids,
// logging a warning for each skipped edge.
func (e *engine) validEdges(nodes []canvas.Node, edges []canvas.Edge) []canvas.Edge {
	ids := make(map[string]bool, len(nodes))
	for i := range nodes {
		ids[nodes[i].ID] = true
	}

	out := make([]canvas.Edge, 0, len(edges))
	for _, edge := range edges {
		if !ids[edge.Source] || !ids[edge.Target] {
			e.logger.Warn("skipping edge with missing endpoint",
				zap.String("edge_id", edge.ID),
				zap.String("source", edge.Source),
				zap.String("target", edge.Target))
			continue
		}
		out = append(out, edge)
	}
	return out
}

func cloneNodes(nodes []canvas.Node) []canvas.Node {
	out := make([]canvas.Node, len(nodes))
	copy(out, nodes)
	return out
}
