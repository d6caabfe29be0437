package layout

import (
	"github.com/sketchwork-app/sketchwork-engine/pkg/canvas"
)

func (e *engine) Tree(nodes []canvas.Node, edges []canvas.Edge, opts Options) []canvas.Node {
	if len(nodes) == 0 {
		return []canvas.Node{}
	}
	opts = opts.withDefaults()
	edges = e.validEdges(nodes, edges)

	index := make(map[string]int, len(nodes))
	for i := range nodes {
		index[nodes[i].ID] = i
	}

	adj := make([][]int, len(nodes))
	indeg := make([]int, len(nodes))
	for _, edge := range edges {
		s := index[edge.Source]
		t := index[edge.Target]
		adj[s] = append(adj[s], t)
		indeg[t]++
	}

	roots := rootIndexes(indeg)
	forward := dropBackEdges(len(nodes), adj, roots)
	levels := levelNodes(len(nodes), forward)

	// Group nodes by level in input order.
	maxLevel := 0
	for _, l := range levels {
		if l > maxLevel {
			maxLevel = l
		}
	}
	byLevel := make([][]int, maxLevel+1)
	for i, l := range levels {
		byLevel[l] = append(byLevel[l], i)
	}

	out := cloneNodes(nodes)
	for level, members := range byLevel {
		for pos, i := range members {
			along := opts.Spacing * (float64(pos) - float64(len(members)-1)/2)
			main := opts.Spacing * float64(level)

			if opts.Direction == DirectionHorizontal {
				out[i].Position = canvas.Position{
					X: opts.CenterX + main,
					Y: opts.CenterY + along,
				}
			} else {
				out[i].Position = canvas.Position{
					X: opts.CenterX + along,
					Y: opts.CenterY + main,
				}
			}
		}
	}
	return out
}

// rootIndexes picks traversal roots: nodes with zero in-degree, falling back
// to minimum in-degree when the graph is cyclic, and finally the first node.
// The fallback keeps cyclic graphs laying out instead of failing.
func rootIndexes(indeg []int) []int {
	var roots []int
	for i, d := range indeg {
		if d == 0 {
			roots = append(roots, i)
		}
	}
	if len(roots) > 0 {
		return roots
	}

	min := indeg[0]
	for _, d := range indeg[1:] {
		if d < min {
			min = d
		}
	}
	for i, d := range indeg {
		if d == min {
			roots = append(roots, i)
		}
	}
	if len(roots) == 0 {
		roots = []int{0}
	}
	return roots
}

// dropBackEdges walks the graph depth-first from the chosen roots and
// returns the adjacency with cycle-closing edges removed, leaving a DAG for
// level assignment.
func dropBackEdges(n int, adj [][]int, roots []int) [][]int {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make([]int, n)
	forward := make([][]int, n)

	var visit func(u int)
	visit = func(u int) {
		color[u] = gray
		for _, v := range adj[u] {
			if color[v] == gray {
				continue
			}
			forward[u] = append(forward[u], v)
			if color[v] == white {
				visit(v)
			}
		}
		color[u] = black
	}

	for _, r := range roots {
		if color[r] == white {
			visit(r)
		}
	}
	for i := 0; i < n; i++ {
		if color[i] == white {
			visit(i)
		}
	}
	return forward
}

// levelNodes assigns each node a level equal to one more than the maximum
// level of its predecessors, processing nodes in topological order.
func levelNodes(n int, forward [][]int) []int {
	indeg := make([]int, n)
	for _, succs := range forward {
		for _, v := range succs {
			indeg[v]++
		}
	}

	levels := make([]int, n)
	var queue []int
	for i := 0; i < n; i++ {
		if indeg[i] == 0 {
			queue = append(queue, i)
		}
	}

	for len(queue) > 0 {
		u := queue[0]
		queue = queue[1:]
		for _, v := range forward[u] {
			if levels[u]+1 > levels[v] {
				levels[v] = levels[u] + 1
			}
			indeg[v]--
			if indeg[v] == 0 {
				queue = append(queue, v)
			}
		}
	}
	return levels
}
