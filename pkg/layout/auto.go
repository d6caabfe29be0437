package layout

import (
	"github.com/sketchwork-app/sketchwork-engine/pkg/canvas"
)

// autoGridThreshold is the node count at or below which auto-arrange prefers
// a grid over the tree layout.
const autoGridThreshold = 3

func (e *engine) AutoArrange(nodes []canvas.Node, edges []canvas.Edge, opts Options) []canvas.Node {
	if len(nodes) <= autoGridThreshold || len(edges) == 0 {
		return e.Grid(nodes, opts)
	}
	if opts.Direction == "" {
		opts.Direction = DirectionVertical
	}
	return e.Tree(nodes, edges, opts)
}
