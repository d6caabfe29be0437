package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sketchwork-app/sketchwork-engine/pkg/apperrors"
	"github.com/sketchwork-app/sketchwork-engine/pkg/canvas"
	"github.com/sketchwork-app/sketchwork-engine/pkg/geometry"
	"github.com/sketchwork-app/sketchwork-engine/pkg/models"
)

func newTestDocumentService(t *testing.T) (DocumentService, string) {
	t.Helper()
	files, geom, dir := newTestFileStack(t)
	svc := NewDocumentService(files, geom, NewControllerCache(zap.NewNop()), zap.NewNop())
	return svc, dir
}

func TestDocumentServiceDetectType(t *testing.T) {
	svc, dir := newTestDocumentService(t)

	path := filepath.Join(dir, "flow.json")
	writeDiagramFile(t, path, sampleUseCaseDiagram())

	tag, err := svc.DetectType(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, models.DiagramTypeUseCase, tag)

	t.Run("unsupported tag", func(t *testing.T) {
		other := filepath.Join(dir, "sequence.json")
		require.NoError(t, os.WriteFile(other, []byte(`{"diagramType": "Sequence Diagram"}`), 0644))

		tag, err := svc.DetectType(context.Background(), other)
		assert.ErrorIs(t, err, apperrors.ErrUnsupportedDiagramType)
		assert.Equal(t, "Sequence Diagram", tag)
	})

	t.Run("unparsable document", func(t *testing.T) {
		broken := filepath.Join(dir, "broken.json")
		require.NoError(t, os.WriteFile(broken, []byte("{not json"), 0644))

		_, err := svc.DetectType(context.Background(), broken)
		assert.ErrorIs(t, err, apperrors.ErrInvalidDiagram)
	})
}

func TestDocumentServiceOpenCachesController(t *testing.T) {
	svc, dir := newTestDocumentService(t)
	path := filepath.Join(dir, "flow.json")
	writeDiagramFile(t, path, sampleUseCaseDiagram())

	ctrl, err := svc.Open(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, StateReady, ctrl.State())
	assert.Equal(t, models.DiagramTypeUseCase, ctrl.Type())

	// Unsaved visual state survives a reopen because the controller is
	// reused, not rebuilt from the file.
	require.NoError(t, ctrl.ApplyNodeChanges([]canvas.NodeChange{
		{Type: canvas.ChangePosition, ID: "actor-0", Position: &canvas.Position{X: 999, Y: 1}},
	}))

	again, err := svc.Open(context.Background(), path)
	require.NoError(t, err)
	assert.Same(t, ctrl, again)

	nodes := again.Nodes()
	i := canvas.FindNode(nodes, "actor-0")
	require.GreaterOrEqual(t, i, 0)
	assert.Equal(t, canvas.Position{X: 999, Y: 1}, nodes[i].Position)
}

func TestDocumentServiceOpenReplacesClosedController(t *testing.T) {
	svc, dir := newTestDocumentService(t)
	path := filepath.Join(dir, "flow.json")
	writeDiagramFile(t, path, sampleUseCaseDiagram())

	ctrl, err := svc.Open(context.Background(), path)
	require.NoError(t, err)
	require.NoError(t, ctrl.Close())

	again, err := svc.Open(context.Background(), path)
	require.NoError(t, err)
	assert.NotSame(t, ctrl, again)
	assert.Equal(t, StateReady, again.State())
}

func TestDocumentServiceOpenUnsupportedType(t *testing.T) {
	svc, dir := newTestDocumentService(t)
	path := filepath.Join(dir, "sequence.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"diagramType": "Sequence Diagram", "diagramName": "X"}`), 0644))

	_, err := svc.Open(context.Background(), path)
	assert.ErrorIs(t, err, apperrors.ErrUnsupportedDiagramType)
}

func TestDocumentServiceOpenMalformed(t *testing.T) {
	svc, dir := newTestDocumentService(t)
	path := filepath.Join(dir, "broken.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	_, err := svc.Open(context.Background(), path)
	assert.ErrorIs(t, err, apperrors.ErrInvalidDiagram)
}

func TestDocumentServiceCreate(t *testing.T) {
	svc, dir := newTestDocumentService(t)
	path := filepath.Join(dir, "warehouse.json")

	ctrl, err := svc.Create(context.Background(), models.DiagramTypeER, "Warehouse", path)
	require.NoError(t, err)
	assert.Equal(t, StateReady, ctrl.State())
	assert.Equal(t, models.DiagramTypeER, ctrl.Type())
	assert.Equal(t, "Warehouse", ctrl.Name())
	assert.Empty(t, ctrl.Nodes())

	assert.FileExists(t, path)
	assert.FileExists(t, geometry.SidecarPath(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	doc, err := models.ParseDatabaseDiagram(data)
	require.NoError(t, err)
	assert.Equal(t, "Warehouse", doc.DiagramName)
	assert.Empty(t, doc.Tables)

	t.Run("name defaults to file base", func(t *testing.T) {
		other := filepath.Join(dir, "sales.json")
		ctrl, err := svc.Create(context.Background(), models.DiagramTypeClass, "", other)
		require.NoError(t, err)
		assert.Equal(t, "sales", ctrl.Name())
	})

	t.Run("unsupported type", func(t *testing.T) {
		_, err := svc.Create(context.Background(), "Sequence Diagram", "X", filepath.Join(dir, "x.json"))
		assert.ErrorIs(t, err, apperrors.ErrUnsupportedDiagramType)
	})
}

func TestDocumentServiceCloseDiagram(t *testing.T) {
	svc, dir := newTestDocumentService(t)
	path := filepath.Join(dir, "flow.json")
	writeDiagramFile(t, path, sampleUseCaseDiagram())

	ctrl, err := svc.Open(context.Background(), path)
	require.NoError(t, err)

	svc.CloseDiagram(path)
	assert.Equal(t, StateClosed, ctrl.State())

	again, err := svc.Open(context.Background(), path)
	require.NoError(t, err)
	assert.NotSame(t, ctrl, again)
}

func TestDocumentServiceKind(t *testing.T) {
	svc, _ := newTestDocumentService(t)

	for _, tag := range models.ValidDiagramTypes {
		kind, err := svc.Kind(tag)
		require.NoError(t, err)
		assert.Equal(t, tag, kind.Type())
	}

	_, err := svc.Kind("Flow Chart")
	assert.ErrorIs(t, err, apperrors.ErrUnsupportedDiagramType)
}
