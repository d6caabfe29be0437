package layout

import (
	"math"

	"github.com/sketchwork-app/sketchwork-engine/pkg/canvas"
)

// minDistance clamps pairwise distances to avoid singular forces when nodes
// overlap.
const minDistance = 0.1

func (e *engine) ForceDirected(nodes []canvas.Node, edges []canvas.Edge, opts Options) []canvas.Node {
	if len(nodes) == 0 {
		return []canvas.Node{}
	}
	opts = opts.withDefaults()

	out := cloneNodes(nodes)

	// A cold start where every node sits on the same point produces zero
	// repulsion vectors, so seed the simulation from a circle instead.
	if len(out) > 1 && allSamePosition(out) {
		out = e.Circle(out, opts)
	}

	edges = e.validEdges(out, edges)

	index := make(map[string]int, len(out))
	for i := range out {
		index[out[i].ID] = i
	}

	temperature := opts.InitialTemperature
	for iter := 0; iter < opts.Iterations; iter++ {
		disp := make([]canvas.Position, len(out))

		// Pairwise inverse-distance repulsion.
		for i := range out {
			for j := range out {
				if i == j {
					continue
				}
				dx := out[i].Position.X - out[j].Position.X
				dy := out[i].Position.Y - out[j].Position.Y
				dist := math.Hypot(dx, dy)
				if dist < minDistance {
					dist = minDistance
				}
				force := opts.RepulsionStrength / dist
				disp[i].X += dx / dist * force
				disp[i].Y += dy / dist * force
			}
		}

		// Spring attraction along edges toward the optimal distance.
		for _, edge := range edges {
			si := index[edge.Source]
			ti := index[edge.Target]
			dx := out[ti].Position.X - out[si].Position.X
			dy := out[ti].Position.Y - out[si].Position.Y
			dist := math.Hypot(dx, dy)
			if dist < minDistance {
				dist = minDistance
			}
			force := opts.AttractionStrength * (dist - opts.OptimalDistance)
			ux := dx / dist
			uy := dy / dist
			disp[si].X += ux * force
			disp[si].Y += uy * force
			disp[ti].X -= ux * force
			disp[ti].Y -= uy * force
		}

		// Weak gravity toward the configured center.
		for i := range out {
			disp[i].X += (opts.CenterX - out[i].Position.X) * opts.GravityStrength
			disp[i].Y += (opts.CenterY - out[i].Position.Y) * opts.GravityStrength
		}

		// Apply displacements, capped by the current temperature.
		for i := range out {
			mag := math.Hypot(disp[i].X, disp[i].Y)
			if mag > temperature && mag > 0 {
				scale := temperature / mag
				disp[i].X *= scale
				disp[i].Y *= scale
			}
			out[i].Position.X += disp[i].X
			out[i].Position.Y += disp[i].Y
		}

		temperature *= opts.CoolingFactor
	}

	return out
}

func allSamePosition(nodes []canvas.Node) bool {
	first := nodes[0].Position
	for i := 1; i < len(nodes); i++ {
		if nodes[i].Position != first {
			return false
		}
	}
	return true
}
