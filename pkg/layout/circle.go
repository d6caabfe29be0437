package layout

import (
	"math"

	"github.com/sketchwork-app/sketchwork-engine/pkg/canvas"
)

func (e *engine) Circle(nodes []canvas.Node, opts Options) []canvas.Node {
	if len(nodes) == 0 {
		return []canvas.Node{}
	}
	opts = opts.withDefaults()

	n := float64(len(nodes))

	// Radius grows with the node count so nodes keep roughly half a node
	// width of arc between them, but never shrinks below the spacing.
	radius := math.Max(opts.Spacing, n*opts.NodeWidth/(2*math.Pi)*0.5)

	out := cloneNodes(nodes)
	for i := range out {
		angle := float64(i) * 2 * math.Pi / n
		out[i].Position = canvas.Position{
			X: opts.CenterX + radius*math.Cos(angle),
			Y: opts.CenterY + radius*math.Sin(angle),
		}
	}
	return out
}
