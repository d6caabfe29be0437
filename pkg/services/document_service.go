package services

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/sketchwork-app/sketchwork-engine/pkg/apperrors"
	"github.com/sketchwork-app/sketchwork-engine/pkg/bridge"
	"github.com/sketchwork-app/sketchwork-engine/pkg/geometry"
	"github.com/sketchwork-app/sketchwork-engine/pkg/models"
)

// DocumentService opens diagram files and hands out controllers. Opening
// goes through the controller cache so a reopened diagram keeps its unsaved
// layout; an unrecognized diagramType surfaces as
// apperrors.ErrUnsupportedDiagramType for the caller to present as an
// unsupported document rather than a crash.
type DocumentService interface {
	// DetectType reads the file at path and returns its diagram type tag.
	DetectType(ctx context.Context, path string) (string, error)

	// Open returns a Ready controller for the diagram at path, reusing a
	// cached controller when one is alive.
	Open(ctx context.Context, path string) (DiagramController, error)

	// Create writes an empty document of the given diagram type to path
	// and returns its loaded controller.
	Create(ctx context.Context, diagramType, name, path string) (DiagramController, error)

	// CloseDiagram closes and evicts the controller for path.
	CloseDiagram(path string)

	// Kind returns the DiagramKind for a diagram type tag.
	Kind(diagramType string) (DiagramKind, error)
}

type documentService struct {
	files  bridge.FileBridge
	geom   geometry.Store
	cache  ControllerCache
	kinds  map[string]DiagramKind
	logger *zap.Logger
}

// NewDocumentService creates a document service wired to the given bridge,
// geometry store, and controller cache.
func NewDocumentService(files bridge.FileBridge, geom geometry.Store, cache ControllerCache, logger *zap.Logger) DocumentService {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &documentService{
		files:  files,
		geom:   geom,
		cache:  cache,
		kinds:  builtinKinds(),
		logger: logger.Named("document-service"),
	}
}

var _ DocumentService = (*documentService)(nil)

func (s *documentService) Kind(diagramType string) (DiagramKind, error) {
	kind, ok := s.kinds[diagramType]
	if !ok {
		return nil, fmt.Errorf("%w: %q", apperrors.ErrUnsupportedDiagramType, diagramType)
	}
	return kind, nil
}

func (s *documentService) DetectType(ctx context.Context, path string) (string, error) {
	text, err := s.files.ReadFileAsText(ctx, path)
	if err != nil {
		return "", err
	}
	return models.DetectDiagramType([]byte(text))
}

func (s *documentService) Open(ctx context.Context, path string) (DiagramController, error) {
	key := diagramCacheKey(path, "")
	if ctrl, ok := s.cache.Get(key); ok {
		if ctrl.State() != StateClosed {
			s.logger.Debug("controller cache hit", zap.String("path", path))
			return ctrl, nil
		}
		s.cache.Evict(key)
	}

	tag, err := s.DetectType(ctx, path)
	if err != nil {
		return nil, err
	}
	kind, err := s.Kind(tag)
	if err != nil {
		return nil, err
	}

	ctrl := NewDiagramController(kind, path, s.files, s.geom, s.logger)
	if err := ctrl.Load(ctx); err != nil {
		return nil, err
	}

	s.cache.Put(key, ctrl)
	return ctrl, nil
}

func (s *documentService) Create(ctx context.Context, diagramType, name, path string) (DiagramController, error) {
	kind, err := s.Kind(diagramType)
	if err != nil {
		return nil, err
	}
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	doc := kind.NewDocument(name)
	text, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal diagram: %w", err)
	}
	if err := s.files.SaveFile(ctx, path, string(text)); err != nil {
		return nil, fmt.Errorf("create diagram: %w", err)
	}

	s.logger.Info("diagram created",
		zap.String("path", path),
		zap.String("diagram_type", diagramType))
	return s.Open(ctx, path)
}

func (s *documentService) CloseDiagram(path string) {
	s.cache.Evict(diagramCacheKey(path, ""))
}
