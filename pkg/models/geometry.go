package models

// NodeGeometry is one record of the geometry sidecar file: the persisted
// position and optional size of a visual node, keyed by node id rather than
// entity name so it survives renames.
type NodeGeometry struct {
	ID     string  `json:"id"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width,omitempty"`
	Height float64 `json:"height,omitempty"`
}
