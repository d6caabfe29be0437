// Package geometry persists node positions in sidecar files next to diagram
// files. The diagram file stays pure domain content; everything visual lives
// in the sidecar and losing it only costs the arrangement.
package geometry

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/sketchwork-app/sketchwork-engine/pkg/bridge"
	"github.com/sketchwork-app/sketchwork-engine/pkg/canvas"
	"github.com/sketchwork-app/sketchwork-engine/pkg/models"
)

// SidecarExtension is the suffix of geometry sidecar files.
const SidecarExtension = ".geometry.json"

// SidecarPath derives the sidecar path for a diagram file: the final
// extension is replaced with ".geometry.json", or the suffix is appended
// when the name has no extension.
func SidecarPath(primary string) string {
	ext := filepath.Ext(primary)
	if ext == "" {
		return primary + SidecarExtension
	}
	return strings.TrimSuffix(primary, ext) + SidecarExtension
}

// IsSidecarPath reports whether path names a geometry sidecar file.
func IsSidecarPath(path string) bool {
	return strings.HasSuffix(path, SidecarExtension)
}

// Store defines the interface for loading and saving sidecar geometry.
type Store interface {
	// Load reads the sidecar for primaryPath. ok is false when the sidecar
	// is missing, malformed, or empty; the caller then falls back to
	// default positions.
	Load(ctx context.Context, primaryPath string) (records []models.NodeGeometry, ok bool)

	// Save writes the sidecar for primaryPath.
	Save(ctx context.Context, primaryPath string, records []models.NodeGeometry) error
}

// store implements Store over a FileBridge.
type store struct {
	files  bridge.FileBridge
	logger *zap.Logger
}

// NewStore creates a geometry store that reads and writes sidecars through
// the given file bridge.
func NewStore(files bridge.FileBridge, logger *zap.Logger) Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &store{
		files:  files,
		logger: logger.Named("geometry"),
	}
}

var _ Store = (*store)(nil)

// Load reads and parses the sidecar. A missing or unreadable sidecar is the
// normal first-open case, not an error.
func (s *store) Load(ctx context.Context, primaryPath string) ([]models.NodeGeometry, bool) {
	sidecar := SidecarPath(primaryPath)

	text, err := s.files.ReadFileAsText(ctx, sidecar)
	if err != nil {
		return nil, false
	}

	var records []models.NodeGeometry
	if err := json.Unmarshal([]byte(text), &records); err != nil {
		s.logger.Warn("malformed geometry sidecar, using default positions",
			zap.String("path", sidecar),
			zap.Error(err))
		return nil, false
	}
	if len(records) == 0 {
		return nil, false
	}
	return records, true
}

// Save marshals records and writes the sidecar.
func (s *store) Save(ctx context.Context, primaryPath string, records []models.NodeGeometry) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal geometry: %w", err)
	}
	return s.files.SaveFile(ctx, SidecarPath(primaryPath), string(data))
}

// FromNodes extracts the geometry records of nodes, preserving node order.
func FromNodes(nodes []canvas.Node) []models.NodeGeometry {
	records := make([]models.NodeGeometry, 0, len(nodes))
	for _, n := range nodes {
		records = append(records, models.NodeGeometry{
			ID:     n.ID,
			X:      n.Position.X,
			Y:      n.Position.Y,
			Width:  n.Width,
			Height: n.Height,
		})
	}
	return records
}

// Apply returns a copy of nodes with positions and sizes overridden by
// matching records. Records whose id matches no node are ignored; nodes
// without a record keep their current geometry.
func Apply(nodes []canvas.Node, records []models.NodeGeometry) []canvas.Node {
	byID := make(map[string]models.NodeGeometry, len(records))
	for _, r := range records {
		byID[r.ID] = r
	}

	out := make([]canvas.Node, len(nodes))
	copy(out, nodes)
	for i := range out {
		r, ok := byID[out[i].ID]
		if !ok {
			continue
		}
		out[i].Position = canvas.Position{X: r.X, Y: r.Y}
		if r.Width > 0 {
			out[i].Width = r.Width
		}
		if r.Height > 0 {
			out[i].Height = r.Height
		}
	}
	return out
}
