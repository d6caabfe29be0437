// Package canvas holds the visual-layer graph structures a rendering library
// binds to: ordered node and edge lists, an incremental change protocol, and
// connect events. Node and edge payloads reference domain entities but the
// canvas itself treats them as opaque.
package canvas

// Position is a 2D canvas coordinate.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Node is the visual wrapper around one domain entity. ID is assigned at
// graph construction and is independent of the entity's name; after
// construction it is the only identifier edges refer to.
type Node struct {
	ID       string   `json:"id"`
	Type     string   `json:"type"`
	Position Position `json:"position"`
	Data     any      `json:"data"`
	Width    float64  `json:"width,omitempty"`
	Height   float64  `json:"height,omitempty"`
	Selected bool     `json:"selected,omitempty"`
}

// Edge is the visual wrapper around one relationship. Source and Target are
// node ids, never entity names.
type Edge struct {
	ID           string `json:"id"`
	Source       string `json:"source"`
	Target       string `json:"target"`
	SourceHandle string `json:"sourceHandle,omitempty"`
	TargetHandle string `json:"targetHandle,omitempty"`
	Data         any    `json:"data"`
	Selected     bool   `json:"selected,omitempty"`
}

// Connection is the payload of a connect gesture from the renderer.
type Connection struct {
	Source        string
	Target        string
	SourceHandle  string
	TargetHandle  string
	RequestedType string
}

// FindNode returns the index of the node with the given id, or -1.
func FindNode(nodes []Node, id string) int {
	for i := range nodes {
		if nodes[i].ID == id {
			return i
		}
	}
	return -1
}

// FindEdge returns the index of the edge with the given id, or -1.
func FindEdge(edges []Edge, id string) int {
	for i := range edges {
		if edges[i].ID == id {
			return i
		}
	}
	return -1
}
