package services

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/sketchwork-app/sketchwork-engine/pkg/apperrors"
	"github.com/sketchwork-app/sketchwork-engine/pkg/bridge"
	"github.com/sketchwork-app/sketchwork-engine/pkg/canvas"
	"github.com/sketchwork-app/sketchwork-engine/pkg/geometry"
)

// ControllerState is the lifecycle state of a diagram controller.
type ControllerState string

const (
	StateUninitialized ControllerState = "uninitialized"
	StateLoading       ControllerState = "loading"
	StateReady         ControllerState = "ready"
	StateSaving        ControllerState = "saving"
	StateClosed        ControllerState = "closed"
)

// DiagramController owns the editable graph of one open diagram: the node
// and edge arrays, the kind-specific validation rules, and load/save
// orchestration. Controllers are logically single-writer; a mutex serializes
// operations so concurrent misuse cannot corrupt state. Edits are accepted
// only in the Ready state.
type DiagramController interface {
	// Type returns the diagram type tag.
	Type() string

	// Name returns the diagram name.
	Name() string

	// Path returns the diagram file path, empty for unsaved diagrams.
	Path() string

	// CacheKey returns the controller-cache key for this diagram.
	CacheKey() string

	// State returns the current lifecycle state.
	State() ControllerState

	// Load reads and parses the diagram file, derives the visual graph, and
	// resolves geometry. On success the controller becomes Ready. A failed
	// load reverts to Uninitialized so it can be retried.
	Load(ctx context.Context) error

	// Nodes returns a copy of the current node list.
	Nodes() []canvas.Node

	// Edges returns a copy of the current edge list.
	Edges() []canvas.Edge

	// ApplyNodeChanges applies incremental node updates in order.
	ApplyNodeChanges(changes []canvas.NodeChange) error

	// ApplyEdgeChanges applies incremental edge updates in order.
	ApplyEdgeChanges(changes []canvas.EdgeChange) error

	// Connect validates a proposed connection and appends the resulting
	// edge. Connections rejected by the kind's rules are dropped with a
	// logged warning and no state change; Connect returns an error only
	// for lifecycle violations.
	Connect(conn canvas.Connection) error

	// AddNode synthesizes a new node of the given entity kind with a
	// unique id and default placement, and returns it.
	AddNode(entityKind string) (canvas.Node, error)

	// UpdateEntity replaces the domain payload of one node, keeping the
	// entity names embedded in connected edges in sync on rename.
	UpdateEntity(nodeID string, data any) error

	// UpdateRelationship merges patch into one edge's relationship payload.
	UpdateRelationship(edgeID string, patch RelationshipPatch) error

	// FlipEdgeDirection reverses one edge: source/target node ids and the
	// direction-dependent relationship fields swap in a single update.
	FlipEdgeDirection(edgeID string) error

	// DeleteEdge removes one edge.
	DeleteEdge(edgeID string) error

	// DeleteNode removes one node after removing every edge that touches
	// it, so no dangling edge survives.
	DeleteNode(nodeID string) error

	// DiagramData projects the current graph back into the domain
	// document.
	DiagramData() (any, error)

	// Save serializes the graph into the domain document, writes it to
	// path (or the load path when path is empty), then writes the geometry
	// sidecar. The save fails as a whole if either write fails; the
	// geometry write is not attempted after a failed primary write.
	Save(ctx context.Context, path string) error

	// Close ends the editing session. An in-flight save may finish its
	// disk writes but no longer mutates controller state.
	Close() error
}

// diagramController implements DiagramController generically; everything
// kind-specific is delegated to the DiagramKind.
type diagramController struct {
	kind     DiagramKind
	files    bridge.FileBridge
	geometry geometry.Store
	logger   *zap.Logger

	mu    sync.Mutex
	state ControllerState
	path  string
	name  string
	nodes []canvas.Node
	edges []canvas.Edge
}

// NewDiagramController creates a controller for the diagram file at path.
// The controller starts Uninitialized; call Load before editing.
func NewDiagramController(kind DiagramKind, path string, files bridge.FileBridge, geom geometry.Store, logger *zap.Logger) DiagramController {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &diagramController{
		kind:     kind,
		files:    files,
		geometry: geom,
		logger:   logger.Named("diagram-controller"),
		state:    StateUninitialized,
		path:     path,
	}
}

// NewUnsavedDiagramController creates a Ready controller around an
// in-memory document that has no file yet. Save it with an explicit path to
// persist it.
func NewUnsavedDiagramController(kind DiagramKind, doc any, files bridge.FileBridge, geom geometry.Store, logger *zap.Logger) (DiagramController, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	nodes, edges, err := kind.BuildGraph(doc)
	if err != nil {
		return nil, err
	}
	return &diagramController{
		kind:     kind,
		files:    files,
		geometry: geom,
		logger:   logger.Named("diagram-controller"),
		state:    StateReady,
		name:     kind.DocumentName(doc),
		nodes:    nodes,
		edges:    edges,
	}, nil
}

var _ DiagramController = (*diagramController)(nil)

func (c *diagramController) Type() string {
	return c.kind.Type()
}

func (c *diagramController) Name() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.name
}

func (c *diagramController) Path() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.path
}

func (c *diagramController) CacheKey() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return diagramCacheKey(c.path, c.name)
}

// diagramCacheKey derives the controller-cache key: the file path, or
// name-scoped for diagrams that were never saved.
func diagramCacheKey(path, name string) string {
	if path != "" {
		return path
	}
	return name + "-unsaved"
}

func (c *diagramController) State() ControllerState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// requireReady is called with the mutex held.
func (c *diagramController) requireReady() error {
	switch c.state {
	case StateReady:
		return nil
	case StateClosed:
		return apperrors.ErrClosed
	default:
		return apperrors.ErrNotReady
	}
}

func (c *diagramController) Load(ctx context.Context) error {
	c.mu.Lock()
	switch c.state {
	case StateUninitialized:
	case StateClosed:
		c.mu.Unlock()
		return apperrors.ErrClosed
	default:
		c.mu.Unlock()
		return fmt.Errorf("%w: diagram already loaded", apperrors.ErrConflict)
	}
	if c.path == "" {
		c.mu.Unlock()
		return fmt.Errorf("no file path to load")
	}
	c.state = StateLoading
	path := c.path
	c.mu.Unlock()

	text, err := c.files.ReadFileAsText(ctx, path)
	if err != nil {
		return c.failLoad(fmt.Errorf("read diagram: %w", err))
	}

	// A malformed domain document is fatal to opening; an empty diagram is
	// never silently substituted.
	doc, err := c.kind.Parse(text)
	if err != nil {
		return c.failLoad(err)
	}

	nodes, edges, err := c.kind.BuildGraph(doc)
	if err != nil {
		return c.failLoad(err)
	}

	// Two-path geometry resolution: overlay the sidecar when it parses to a
	// non-empty list, otherwise persist the synthesized defaults right away
	// so the diagram always has a geometry artifact after first load.
	if records, ok := c.geometry.Load(ctx, path); ok {
		nodes = geometry.Apply(nodes, records)
	} else if err := c.geometry.Save(ctx, path, geometry.FromNodes(nodes)); err != nil {
		c.logger.Warn("could not persist initial geometry",
			zap.String("path", path),
			zap.Error(err))
	}

	name := c.kind.DocumentName(doc)
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateLoading {
		// Closed while loading; drop the result.
		return apperrors.ErrClosed
	}
	c.name = name
	c.nodes = nodes
	c.edges = edges
	c.state = StateReady

	c.logger.Info("diagram loaded",
		zap.String("path", path),
		zap.String("diagram_type", c.kind.Type()),
		zap.Int("nodes", len(nodes)),
		zap.Int("edges", len(edges)))
	return nil
}

func (c *diagramController) failLoad(err error) error {
	c.mu.Lock()
	if c.state == StateLoading {
		c.state = StateUninitialized
	}
	c.mu.Unlock()
	return err
}

func (c *diagramController) Nodes() []canvas.Node {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]canvas.Node, len(c.nodes))
	copy(out, c.nodes)
	return out
}

func (c *diagramController) Edges() []canvas.Edge {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]canvas.Edge, len(c.edges))
	copy(out, c.edges)
	return out
}

func (c *diagramController) ApplyNodeChanges(changes []canvas.NodeChange) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requireReady(); err != nil {
		return err
	}
	c.nodes = canvas.ApplyNodeChanges(c.nodes, changes)
	return nil
}

func (c *diagramController) ApplyEdgeChanges(changes []canvas.EdgeChange) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requireReady(); err != nil {
		return err
	}
	c.edges = canvas.ApplyEdgeChanges(c.edges, changes)
	return nil
}

func (c *diagramController) Connect(conn canvas.Connection) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requireReady(); err != nil {
		return err
	}

	si := canvas.FindNode(c.nodes, conn.Source)
	ti := canvas.FindNode(c.nodes, conn.Target)
	if si < 0 || ti < 0 {
		c.logger.Warn("connection references unknown node",
			zap.String("source", conn.Source),
			zap.String("target", conn.Target))
		return nil
	}

	data, err := c.kind.ValidateConnection(c.nodes[si], c.nodes[ti], conn)
	if err != nil {
		// Invalid connections are dropped, not raised: the gesture simply
		// does nothing beyond this log line.
		c.logger.Warn("connection rejected",
			zap.String("source", conn.Source),
			zap.String("target", conn.Target),
			zap.String("requested_type", conn.RequestedType),
			zap.Error(err))
		return nil
	}

	c.edges = append(c.edges, canvas.Edge{
		ID:           uniqueEdgeID(c.edges),
		Source:       conn.Source,
		Target:       conn.Target,
		SourceHandle: conn.SourceHandle,
		TargetHandle: conn.TargetHandle,
		Data:         data,
	})
	return nil
}

func (c *diagramController) AddNode(entityKind string) (canvas.Node, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requireReady(); err != nil {
		return canvas.Node{}, err
	}

	node, err := c.kind.NewNode(entityKind, c.nodes)
	if err != nil {
		return canvas.Node{}, err
	}
	c.nodes = append(c.nodes, node)
	return node, nil
}

func (c *diagramController) UpdateEntity(nodeID string, data any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requireReady(); err != nil {
		return err
	}

	i := canvas.FindNode(c.nodes, nodeID)
	if i < 0 {
		return fmt.Errorf("%w: node %s", apperrors.ErrNotFound, nodeID)
	}

	node, edges, err := c.kind.UpdateEntity(c.nodes[i], data, c.edges)
	if err != nil {
		return err
	}
	c.nodes[i] = node
	c.edges = edges
	return nil
}

func (c *diagramController) UpdateRelationship(edgeID string, patch RelationshipPatch) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requireReady(); err != nil {
		return err
	}

	i := canvas.FindEdge(c.edges, edgeID)
	if i < 0 {
		return fmt.Errorf("%w: edge %s", apperrors.ErrNotFound, edgeID)
	}
	edge := c.edges[i]

	si := canvas.FindNode(c.nodes, edge.Source)
	ti := canvas.FindNode(c.nodes, edge.Target)
	if si < 0 || ti < 0 {
		return fmt.Errorf("edge %s has dangling endpoint", edgeID)
	}

	data, err := c.kind.MergeRelationship(edge, c.nodes[si], c.nodes[ti], patch)
	if err != nil {
		return err
	}
	c.edges[i].Data = data
	return nil
}

func (c *diagramController) FlipEdgeDirection(edgeID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requireReady(); err != nil {
		return err
	}

	i := canvas.FindEdge(c.edges, edgeID)
	if i < 0 {
		return fmt.Errorf("%w: edge %s", apperrors.ErrNotFound, edgeID)
	}

	data, err := c.kind.FlipRelationship(c.edges[i].Data)
	if err != nil {
		return err
	}

	// Single swap under the lock: endpoint ids, handles, and the payload
	// change together or not at all.
	edge := c.edges[i]
	edge.Source, edge.Target = edge.Target, edge.Source
	edge.SourceHandle, edge.TargetHandle = edge.TargetHandle, edge.SourceHandle
	edge.Data = data
	c.edges[i] = edge
	return nil
}

func (c *diagramController) DeleteEdge(edgeID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requireReady(); err != nil {
		return err
	}

	i := canvas.FindEdge(c.edges, edgeID)
	if i < 0 {
		return fmt.Errorf("%w: edge %s", apperrors.ErrNotFound, edgeID)
	}
	c.edges = append(c.edges[:i], c.edges[i+1:]...)
	return nil
}

func (c *diagramController) DeleteNode(nodeID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requireReady(); err != nil {
		return err
	}

	i := canvas.FindNode(c.nodes, nodeID)
	if i < 0 {
		return fmt.Errorf("%w: node %s", apperrors.ErrNotFound, nodeID)
	}

	// Edges first, then the node.
	kept := make([]canvas.Edge, 0, len(c.edges))
	for _, e := range c.edges {
		if e.Source == nodeID || e.Target == nodeID {
			continue
		}
		kept = append(kept, e)
	}
	c.edges = kept
	c.nodes = append(c.nodes[:i], c.nodes[i+1:]...)
	return nil
}

func (c *diagramController) DiagramData() (any, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requireReady(); err != nil {
		return nil, err
	}
	return c.kind.ExtractDocument(c.name, c.nodes, c.edges)
}

func (c *diagramController) Save(ctx context.Context, path string) error {
	c.mu.Lock()
	if path == "" {
		path = c.path
	}
	if path == "" {
		c.mu.Unlock()
		return fmt.Errorf("no file path to save to")
	}
	if err := c.requireReady(); err != nil {
		c.mu.Unlock()
		return err
	}
	c.state = StateSaving
	name := c.name
	nodes := make([]canvas.Node, len(c.nodes))
	copy(nodes, c.nodes)
	edges := make([]canvas.Edge, len(c.edges))
	copy(edges, c.edges)
	c.mu.Unlock()

	err := c.writeSnapshot(ctx, path, name, nodes, edges)

	c.mu.Lock()
	defer c.mu.Unlock()
	// A save that finishes after Close may have written to disk, but it no
	// longer touches controller state.
	if c.state == StateSaving {
		c.state = StateReady
		if err == nil {
			c.path = path
		}
	}
	return err
}

// writeSnapshot persists one consistent snapshot: the primary document
// first, the geometry sidecar second. A failed primary write aborts before
// any geometry is written, so geometry never refers to a document that was
// not saved.
func (c *diagramController) writeSnapshot(ctx context.Context, path, name string, nodes []canvas.Node, edges []canvas.Edge) error {
	doc, err := c.kind.ExtractDocument(name, nodes, edges)
	if err != nil {
		return err
	}
	text, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal diagram: %w", err)
	}

	if err := c.files.SaveFile(ctx, path, string(text)); err != nil {
		return fmt.Errorf("save diagram: %w", err)
	}
	if err := c.geometry.Save(ctx, path, geometry.FromNodes(nodes)); err != nil {
		return fmt.Errorf("save geometry: %w", err)
	}

	c.logger.Info("diagram saved",
		zap.String("path", path),
		zap.Int("nodes", len(nodes)),
		zap.Int("edges", len(edges)))
	return nil
}

func (c *diagramController) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateClosed {
		return nil
	}
	c.state = StateClosed
	return nil
}
