package canvas

// Change kinds understood by ApplyNodeChanges and ApplyEdgeChanges.
const (
	ChangeAdd        = "add"
	ChangeRemove     = "remove"
	ChangePosition   = "position"
	ChangeSelect     = "select"
	ChangeDimensions = "dimensions"
)

// NodeChange is one incremental update to the node list. Only the fields
// relevant to its Type are consulted.
type NodeChange struct {
	Type     string
	ID       string
	Position *Position
	Width    *float64
	Height   *float64
	Selected *bool
	Node     *Node
}

// EdgeChange is one incremental update to the edge list.
type EdgeChange struct {
	Type     string
	ID       string
	Selected *bool
	Edge     *Edge
}

// ApplyNodeChanges returns the node list with all changes applied in order.
// Elements untouched by any change are carried over unchanged, preserving
// their payload identity. Changes referencing unknown ids are ignored.
func ApplyNodeChanges(nodes []Node, changes []NodeChange) []Node {
	out := make([]Node, len(nodes))
	copy(out, nodes)

	for _, ch := range changes {
		switch ch.Type {
		case ChangeAdd:
			if ch.Node != nil && FindNode(out, ch.Node.ID) < 0 {
				out = append(out, *ch.Node)
			}
		case ChangeRemove:
			if i := FindNode(out, ch.ID); i >= 0 {
				out = append(out[:i], out[i+1:]...)
			}
		case ChangePosition:
			if i := FindNode(out, ch.ID); i >= 0 && ch.Position != nil {
				out[i].Position = *ch.Position
			}
		case ChangeSelect:
			if i := FindNode(out, ch.ID); i >= 0 && ch.Selected != nil {
				out[i].Selected = *ch.Selected
			}
		case ChangeDimensions:
			if i := FindNode(out, ch.ID); i >= 0 {
				if ch.Width != nil {
					out[i].Width = *ch.Width
				}
				if ch.Height != nil {
					out[i].Height = *ch.Height
				}
			}
		}
	}
	return out
}

// ApplyEdgeChanges returns the edge list with all changes applied in order.
func ApplyEdgeChanges(edges []Edge, changes []EdgeChange) []Edge {
	out := make([]Edge, len(edges))
	copy(out, edges)

	for _, ch := range changes {
		switch ch.Type {
		case ChangeAdd:
			if ch.Edge != nil && FindEdge(out, ch.Edge.ID) < 0 {
				out = append(out, *ch.Edge)
			}
		case ChangeRemove:
			if i := FindEdge(out, ch.ID); i >= 0 {
				out = append(out[:i], out[i+1:]...)
			}
		case ChangeSelect:
			if i := FindEdge(out, ch.ID); i >= 0 && ch.Selected != nil {
				out[i].Selected = *ch.Selected
			}
		}
	}
	return out
}
