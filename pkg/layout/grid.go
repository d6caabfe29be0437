package layout

import (
	"math"

	"github.com/sketchwork-app/sketchwork-engine/pkg/canvas"
)

func (e *engine) Grid(nodes []canvas.Node, opts Options) []canvas.Node {
	if len(nodes) == 0 {
		return []canvas.Node{}
	}
	opts = opts.withDefaults()

	n := len(nodes)
	cols := int(math.Ceil(math.Sqrt(float64(n))))
	rows := (n + cols - 1) / cols

	out := cloneNodes(nodes)
	for i := range out {
		row := i / cols
		col := i % cols

		// Rows are centered independently, so a partial last row sits
		// centered under the full rows rather than left-aligned.
		rowCount := cols
		if row == rows-1 {
			rowCount = n - row*cols
		}

		along := (float64(col) - float64(rowCount-1)/2) * opts.Spacing
		across := (float64(row) - float64(rows-1)/2) * opts.Spacing

		if opts.Direction == DirectionVertical {
			out[i].Position = canvas.Position{
				X: opts.CenterX + across,
				Y: opts.CenterY + along,
			}
		} else {
			out[i].Position = canvas.Position{
				X: opts.CenterX + along,
				Y: opts.CenterY + across,
			}
		}
	}
	return out
}
