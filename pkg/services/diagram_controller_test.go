package services

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sketchwork-app/sketchwork-engine/pkg/apperrors"
	"github.com/sketchwork-app/sketchwork-engine/pkg/bridge"
	"github.com/sketchwork-app/sketchwork-engine/pkg/canvas"
	"github.com/sketchwork-app/sketchwork-engine/pkg/geometry"
	"github.com/sketchwork-app/sketchwork-engine/pkg/models"
)

func newTestFileStack(t *testing.T) (bridge.FileBridge, geometry.Store, string) {
	t.Helper()

	files, err := bridge.NewLocalBridge(zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = files.Close() })

	return files, geometry.NewStore(files, zap.NewNop()), t.TempDir()
}

func writeDiagramFile(t *testing.T, path string, doc any) {
	t.Helper()
	data, err := json.MarshalIndent(doc, "", "  ")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0644))
}

func openController(t *testing.T, kind DiagramKind, path string, files bridge.FileBridge, geom geometry.Store) DiagramController {
	t.Helper()
	c := NewDiagramController(kind, path, files, geom, zap.NewNop())
	require.NoError(t, c.Load(context.Background()))
	return c
}

// failingSaves wraps a FileBridge and fails SaveFile for one configured path.
type failingSaves struct {
	bridge.FileBridge
	failPath string
}

func (f *failingSaves) SaveFile(ctx context.Context, path, content string) error {
	if f.failPath != "" && path == f.failPath {
		return fmt.Errorf("simulated write failure for %s", path)
	}
	return f.FileBridge.SaveFile(ctx, path, content)
}

func TestControllerLifecycle(t *testing.T) {
	files, geom, dir := newTestFileStack(t)
	path := filepath.Join(dir, "flow.json")
	writeDiagramFile(t, path, sampleUseCaseDiagram())

	c := NewDiagramController(NewUseCaseKind(), path, files, geom, zap.NewNop())
	assert.Equal(t, StateUninitialized, c.State())

	// Edits and saves are rejected until the diagram is loaded.
	err := c.Connect(canvas.Connection{Source: "actor-0", Target: "usecase-0"})
	assert.ErrorIs(t, err, apperrors.ErrNotReady)
	_, err = c.AddNode(models.EntityKindActor)
	assert.ErrorIs(t, err, apperrors.ErrNotReady)
	err = c.Save(context.Background(), "")
	assert.ErrorIs(t, err, apperrors.ErrNotReady)

	require.NoError(t, c.Load(context.Background()))
	assert.Equal(t, StateReady, c.State())
	assert.Equal(t, "Checkout Flow", c.Name())
	assert.Equal(t, path, c.Path())
	assert.Equal(t, path, c.CacheKey())

	err = c.Load(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	require.NoError(t, c.Close())
	assert.Equal(t, StateClosed, c.State())

	err = c.Connect(canvas.Connection{Source: "actor-0", Target: "usecase-0"})
	assert.ErrorIs(t, err, apperrors.ErrClosed)
	err = c.Load(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrClosed)

	// Close is idempotent.
	require.NoError(t, c.Close())
}

func TestControllerLoadMissingFile(t *testing.T) {
	files, geom, dir := newTestFileStack(t)
	path := filepath.Join(dir, "absent.json")

	c := NewDiagramController(NewUseCaseKind(), path, files, geom, zap.NewNop())
	err := c.Load(context.Background())
	require.Error(t, err)
	assert.Equal(t, StateUninitialized, c.State())
}

func TestControllerLoadMalformedDocument(t *testing.T) {
	files, geom, dir := newTestFileStack(t)
	path := filepath.Join(dir, "broken.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	c := NewDiagramController(NewUseCaseKind(), path, files, geom, zap.NewNop())
	err := c.Load(context.Background())
	require.Error(t, err)
	assert.Equal(t, StateUninitialized, c.State())

	// The failed load is retryable once the file is repaired.
	writeDiagramFile(t, path, sampleUseCaseDiagram())
	require.NoError(t, c.Load(context.Background()))
	assert.Equal(t, StateReady, c.State())
}

func TestControllerLoadSynthesizesGeometry(t *testing.T) {
	files, geom, dir := newTestFileStack(t)
	path := filepath.Join(dir, "flow.json")
	writeDiagramFile(t, path, sampleUseCaseDiagram())

	openController(t, NewUseCaseKind(), path, files, geom)

	// First load writes default positions to the sidecar.
	data, err := os.ReadFile(geometry.SidecarPath(path))
	require.NoError(t, err)

	var records []models.NodeGeometry
	require.NoError(t, json.Unmarshal(data, &records))
	require.Len(t, records, 4)
	assert.Equal(t, "actor-0", records[0].ID)
	assert.Equal(t, 80.0, records[0].X)
	assert.Equal(t, 80.0, records[0].Y)
}

func TestControllerLoadAppliesSidecar(t *testing.T) {
	files, geom, dir := newTestFileStack(t)
	path := filepath.Join(dir, "flow.json")
	writeDiagramFile(t, path, sampleUseCaseDiagram())

	sidecar := `[{"id": "actor-0", "x": 500, "y": 600, "width": 90, "height": 120}]`
	require.NoError(t, os.WriteFile(geometry.SidecarPath(path), []byte(sidecar), 0644))

	c := openController(t, NewUseCaseKind(), path, files, geom)
	nodes := c.Nodes()

	i := canvas.FindNode(nodes, "actor-0")
	require.GreaterOrEqual(t, i, 0)
	assert.Equal(t, canvas.Position{X: 500, Y: 600}, nodes[i].Position)
	assert.Equal(t, 90.0, nodes[i].Width)
	assert.Equal(t, 120.0, nodes[i].Height)

	// Nodes without a sidecar record keep their default placement.
	j := canvas.FindNode(nodes, "usecase-0")
	require.GreaterOrEqual(t, j, 0)
	assert.Equal(t, canvas.Position{X: 420, Y: 80}, nodes[j].Position)
}

func TestControllerLoadMalformedSidecar(t *testing.T) {
	files, geom, dir := newTestFileStack(t)
	path := filepath.Join(dir, "flow.json")
	writeDiagramFile(t, path, sampleUseCaseDiagram())
	require.NoError(t, os.WriteFile(geometry.SidecarPath(path), []byte("garbage"), 0644))

	c := openController(t, NewUseCaseKind(), path, files, geom)

	// Defaults are used and persisted over the broken sidecar.
	nodes := c.Nodes()
	i := canvas.FindNode(nodes, "actor-0")
	require.GreaterOrEqual(t, i, 0)
	assert.Equal(t, canvas.Position{X: 80, Y: 80}, nodes[i].Position)

	data, err := os.ReadFile(geometry.SidecarPath(path))
	require.NoError(t, err)
	var records []models.NodeGeometry
	require.NoError(t, json.Unmarshal(data, &records))
	assert.Len(t, records, 4)
}

func TestControllerSaveWritesDocumentAndGeometry(t *testing.T) {
	files, geom, dir := newTestFileStack(t)
	path := filepath.Join(dir, "flow.json")
	writeDiagramFile(t, path, sampleUseCaseDiagram())

	c := openController(t, NewUseCaseKind(), path, files, geom)
	require.NoError(t, c.ApplyNodeChanges([]canvas.NodeChange{
		{Type: canvas.ChangePosition, ID: "actor-0", Position: &canvas.Position{X: 320, Y: 200}},
	}))
	require.NoError(t, c.Save(context.Background(), ""))
	assert.Equal(t, StateReady, c.State())

	// Moving a node changes the sidecar but not the domain document.
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	doc, err := models.ParseUseCaseDiagram(data)
	require.NoError(t, err)
	assert.Equal(t, sampleUseCaseDiagram(), doc)

	raw, err := os.ReadFile(geometry.SidecarPath(path))
	require.NoError(t, err)
	var records []models.NodeGeometry
	require.NoError(t, json.Unmarshal(raw, &records))
	assert.Equal(t, 320.0, records[0].X)
	assert.Equal(t, 200.0, records[0].Y)
}

func TestControllerSaveIsIdempotent(t *testing.T) {
	files, geom, dir := newTestFileStack(t)
	path := filepath.Join(dir, "flow.json")
	writeDiagramFile(t, path, sampleUseCaseDiagram())

	c := openController(t, NewUseCaseKind(), path, files, geom)
	require.NoError(t, c.Save(context.Background(), ""))

	doc1, err := os.ReadFile(path)
	require.NoError(t, err)
	geo1, err := os.ReadFile(geometry.SidecarPath(path))
	require.NoError(t, err)

	require.NoError(t, c.Save(context.Background(), ""))

	doc2, err := os.ReadFile(path)
	require.NoError(t, err)
	geo2, err := os.ReadFile(geometry.SidecarPath(path))
	require.NoError(t, err)

	assert.Equal(t, string(doc1), string(doc2))
	assert.Equal(t, string(geo1), string(geo2))
}

func TestControllerSavePrimaryFailureSkipsGeometry(t *testing.T) {
	files, _, dir := newTestFileStack(t)
	path := filepath.Join(dir, "flow.json")
	writeDiagramFile(t, path, sampleUseCaseDiagram())

	sentinel := `[{"id": "actor-0", "x": 111, "y": 222}]`
	require.NoError(t, os.WriteFile(geometry.SidecarPath(path), []byte(sentinel), 0644))

	flaky := &failingSaves{FileBridge: files, failPath: path}
	geom := geometry.NewStore(flaky, zap.NewNop())

	c := openController(t, NewUseCaseKind(), path, flaky, geom)
	err := c.Save(context.Background(), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "save diagram")

	// The primary write failed, so the sidecar was never touched.
	data, err := os.ReadFile(geometry.SidecarPath(path))
	require.NoError(t, err)
	assert.Equal(t, sentinel, string(data))

	// The controller stays editable and the save can be retried.
	assert.Equal(t, StateReady, c.State())
	flaky.failPath = ""
	require.NoError(t, c.Save(context.Background(), ""))

	data, err = os.ReadFile(geometry.SidecarPath(path))
	require.NoError(t, err)
	var records []models.NodeGeometry
	require.NoError(t, json.Unmarshal(data, &records))
	require.Len(t, records, 4)
	assert.Equal(t, 111.0, records[0].X)
	assert.Equal(t, 222.0, records[0].Y)
}

func TestControllerSaveAs(t *testing.T) {
	files, geom, dir := newTestFileStack(t)
	pathA := filepath.Join(dir, "a.json")
	pathB := filepath.Join(dir, "b.json")
	writeDiagramFile(t, pathA, sampleDatabaseDiagram())

	c := openController(t, NewDatabaseKind(), pathA, files, geom)
	require.NoError(t, c.Save(context.Background(), pathB))

	assert.Equal(t, pathB, c.Path())
	assert.Equal(t, pathB, c.CacheKey())
	assert.FileExists(t, pathB)
	assert.FileExists(t, geometry.SidecarPath(pathB))

	// A failed save-as keeps the previous path.
	pathC := filepath.Join(dir, "c.json")
	flaky := &failingSaves{FileBridge: files, failPath: pathC}
	c2 := openController(t, NewDatabaseKind(), pathB, flaky, geometry.NewStore(flaky, zap.NewNop()))
	require.Error(t, c2.Save(context.Background(), pathC))
	assert.Equal(t, pathB, c2.Path())
}

func TestControllerConnectAppendsValidEdge(t *testing.T) {
	files, geom, dir := newTestFileStack(t)
	path := filepath.Join(dir, "flow.json")
	writeDiagramFile(t, path, sampleUseCaseDiagram())

	c := openController(t, NewUseCaseKind(), path, files, geom)
	require.NoError(t, c.Connect(canvas.Connection{Source: "actor-1", Target: "usecase-1"}))

	edges := c.Edges()
	require.Len(t, edges, 3)
	added := edges[2]
	assert.Equal(t, "actor-1", added.Source)
	assert.Equal(t, "usecase-1", added.Target)
	assert.NotEqual(t, edges[0].ID, added.ID)
	assert.NotEqual(t, edges[1].ID, added.ID)

	rel := added.Data.(*models.UseCaseRelationship)
	assert.Equal(t, "Clerk", rel.From)
	assert.Equal(t, "Payment", rel.To)
	assert.Equal(t, models.UseCaseRelAssociation, rel.Type)
}

func TestControllerConnectRejectionKeepsEdges(t *testing.T) {
	files, geom, dir := newTestFileStack(t)
	path := filepath.Join(dir, "flow.json")
	writeDiagramFile(t, path, sampleUseCaseDiagram())

	c := openController(t, NewUseCaseKind(), path, files, geom)
	before := c.Edges()

	// Invalid connections are dropped without an error.
	require.NoError(t, c.Connect(canvas.Connection{Source: "actor-0", Target: "actor-1"}))
	require.NoError(t, c.Connect(canvas.Connection{
		Source: "usecase-0", Target: "usecase-1", RequestedType: "association",
	}))
	require.NoError(t, c.Connect(canvas.Connection{Source: "actor-0", Target: "ghost-7"}))

	assert.Equal(t, before, c.Edges())
}

func TestControllerAddNodeAssignsUniqueIDs(t *testing.T) {
	files, geom, dir := newTestFileStack(t)
	path := filepath.Join(dir, "flow.json")
	writeDiagramFile(t, path, sampleUseCaseDiagram())

	c := openController(t, NewUseCaseKind(), path, files, geom)
	first, err := c.AddNode(models.EntityKindActor)
	require.NoError(t, err)
	second, err := c.AddNode(models.EntityKindActor)
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	nodes := c.Nodes()
	assert.GreaterOrEqual(t, canvas.FindNode(nodes, first.ID), 0)
	assert.GreaterOrEqual(t, canvas.FindNode(nodes, second.ID), 0)

	_, err = c.AddNode(models.EntityKindTable)
	assert.Error(t, err)
}

func TestControllerDeleteNodeRemovesTouchingEdges(t *testing.T) {
	files, geom, dir := newTestFileStack(t)
	path := filepath.Join(dir, "flow.json")
	writeDiagramFile(t, path, sampleUseCaseDiagram())

	c := openController(t, NewUseCaseKind(), path, files, geom)

	// Checkout participates in both relationships.
	require.NoError(t, c.DeleteNode("usecase-0"))

	assert.Empty(t, c.Edges())
	assert.Equal(t, -1, canvas.FindNode(c.Nodes(), "usecase-0"))

	doc, err := c.DiagramData()
	require.NoError(t, err)
	d := doc.(*models.UseCaseDiagram)
	assert.Len(t, d.UseCases, 1)
	assert.Empty(t, d.Relationships)

	err = c.DeleteNode("usecase-0")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestControllerDeleteEdge(t *testing.T) {
	files, geom, dir := newTestFileStack(t)
	path := filepath.Join(dir, "flow.json")
	writeDiagramFile(t, path, sampleUseCaseDiagram())

	c := openController(t, NewUseCaseKind(), path, files, geom)
	require.NoError(t, c.DeleteEdge("edge-0"))
	require.Len(t, c.Edges(), 1)

	err := c.DeleteEdge("edge-0")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestControllerUpdateEntityRenameSyncsDocument(t *testing.T) {
	files, geom, dir := newTestFileStack(t)
	path := filepath.Join(dir, "shop.json")
	writeDiagramFile(t, path, sampleDatabaseDiagram())

	c := openController(t, NewDatabaseKind(), path, files, geom)

	nodes := c.Nodes()
	i := canvas.FindNode(nodes, "table-1")
	require.GreaterOrEqual(t, i, 0)
	renamed := *nodes[i].Data.(*models.Table)
	renamed.Name = "clients"

	require.NoError(t, c.UpdateEntity("table-1", &renamed))

	doc, err := c.DiagramData()
	require.NoError(t, err)
	d := doc.(*models.DatabaseDiagram)
	assert.Equal(t, "clients", d.Tables[1].Name)
	assert.Equal(t, "clients", d.Relationships[0].ToTable)

	err = c.UpdateEntity("table-9", &renamed)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestControllerUpdateRelationship(t *testing.T) {
	files, geom, dir := newTestFileStack(t)
	path := filepath.Join(dir, "shop.json")
	writeDiagramFile(t, path, sampleDatabaseDiagram())

	c := openController(t, NewDatabaseKind(), path, files, geom)

	card := models.CardinalityOneToOne
	onDelete := models.RefActionCascade
	require.NoError(t, c.UpdateRelationship("edge-0", RelationshipPatch{
		Cardinality: &card,
		OnDelete:    &onDelete,
	}))

	rel := c.Edges()[0].Data.(*models.DatabaseRelationship)
	assert.Equal(t, models.CardinalityOneToOne, rel.Cardinality)
	assert.Equal(t, models.RefActionCascade, rel.OnDelete)

	bogus := "1:N"
	err := c.UpdateRelationship("edge-0", RelationshipPatch{Cardinality: &bogus})
	assert.ErrorIs(t, err, apperrors.ErrInvalidCardinality)

	err = c.UpdateRelationship("edge-9", RelationshipPatch{Cardinality: &card})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestControllerFlipEdgeDirection(t *testing.T) {
	files, geom, dir := newTestFileStack(t)
	path := filepath.Join(dir, "shop.json")
	writeDiagramFile(t, path, sampleDatabaseDiagram())

	c := openController(t, NewDatabaseKind(), path, files, geom)
	require.NoError(t, c.FlipEdgeDirection("edge-0"))

	// Endpoints, handles, and payload all flipped together.
	edge := c.Edges()[0]
	assert.Equal(t, "table-1", edge.Source)
	assert.Equal(t, "table-0", edge.Target)

	rel := edge.Data.(*models.DatabaseRelationship)
	assert.Equal(t, "Customers", rel.FromTable)
	assert.Equal(t, "Orders", rel.ToTable)
	assert.Equal(t, models.CardinalityOneToMany, rel.Cardinality)

	err := c.FlipEdgeDirection("edge-9")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestControllerFlipUnsupportedKind(t *testing.T) {
	files, geom, dir := newTestFileStack(t)
	path := filepath.Join(dir, "flow.json")
	writeDiagramFile(t, path, sampleUseCaseDiagram())

	c := openController(t, NewUseCaseKind(), path, files, geom)
	before := c.Edges()

	err := c.FlipEdgeDirection("edge-0")
	require.Error(t, err)
	assert.Equal(t, before, c.Edges())
}

func TestControllerDiagramDataRoundTrip(t *testing.T) {
	files, geom, dir := newTestFileStack(t)

	tests := []struct {
		name string
		kind DiagramKind
		doc  any
	}{
		{"use case", NewUseCaseKind(), sampleUseCaseDiagram()},
		{"database", NewDatabaseKind(), sampleDatabaseDiagram()},
		{"class", NewClassKind(), sampleClassDiagram()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name+".json")
			writeDiagramFile(t, path, tt.doc)

			c := openController(t, tt.kind, path, files, geom)
			got, err := c.DiagramData()
			require.NoError(t, err)
			assert.Equal(t, tt.doc, got)
		})
	}
}

func TestUnsavedController(t *testing.T) {
	files, geom, dir := newTestFileStack(t)

	kind := NewUseCaseKind()
	c, err := NewUnsavedDiagramController(kind, kind.NewDocument("Draft"), files, geom, zap.NewNop())
	require.NoError(t, err)

	assert.Equal(t, StateReady, c.State())
	assert.Equal(t, "", c.Path())
	assert.Equal(t, "Draft-unsaved", c.CacheKey())

	// No path yet, so a plain save has nowhere to go.
	require.Error(t, c.Save(context.Background(), ""))
	assert.Equal(t, StateReady, c.State())

	_, err = c.AddNode(models.EntityKindActor)
	require.NoError(t, err)

	path := filepath.Join(dir, "draft.json")
	require.NoError(t, c.Save(context.Background(), path))
	assert.Equal(t, path, c.Path())
	assert.Equal(t, path, c.CacheKey())
	assert.FileExists(t, path)
	assert.FileExists(t, geometry.SidecarPath(path))
}

func TestControllerNameFallsBackToFileName(t *testing.T) {
	files, geom, dir := newTestFileStack(t)
	path := filepath.Join(dir, "inventory.json")
	writeDiagramFile(t, path, &models.DatabaseDiagram{
		DiagramType: models.DiagramTypeER,
		Tables:      []models.Table{{Name: "items", Columns: []models.Column{{Name: "id", Type: "integer"}}}},
	})

	c := openController(t, NewDatabaseKind(), path, files, geom)
	assert.Equal(t, "inventory", c.Name())
}
