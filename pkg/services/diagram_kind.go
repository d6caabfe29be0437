package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/sketchwork-app/sketchwork-engine/pkg/canvas"
	"github.com/sketchwork-app/sketchwork-engine/pkg/models"
)

// RelationshipPatch carries partial updates for one edge's relationship
// payload. Nil fields are left unchanged. Setting a field that does not
// apply to the edge's diagram kind is an error, not a silent drop.
type RelationshipPatch struct {
	Type        *string
	Description *string
	Label       *string
	Cardinality *string
	OnDelete    *string
	OnUpdate    *string
	Name        *string
	FromColumns []string
	ToColumns   []string
}

// DiagramKind defines the behavior one diagram kind plugs into the generic
// controller: the document codec, graph construction, connection validation,
// and the projection from graph back to document. Implementations are
// stateless; all graph state lives in the controller.
type DiagramKind interface {
	// Type returns the diagram type tag this kind handles.
	Type() string

	// Parse parses and validates a document of this kind.
	Parse(text string) (any, error)

	// NewDocument returns an empty document of this kind.
	NewDocument(name string) any

	// DocumentName returns the diagram name stored in doc.
	DocumentName(doc any) string

	// BuildGraph derives visual nodes and edges from doc. Node ids are
	// assigned from entity kind and list index; relationships resolve
	// entity names to node ids, first occurrence winning on duplicates.
	BuildGraph(doc any) ([]canvas.Node, []canvas.Edge, error)

	// ExtractDocument projects nodes and edges back into a document. For a
	// graph built by BuildGraph and not modified since, the result equals
	// the document the graph was built from.
	ExtractDocument(name string, nodes []canvas.Node, edges []canvas.Edge) (any, error)

	// ValidateConnection checks a proposed connection between two live
	// nodes and returns the relationship payload for the new edge.
	ValidateConnection(source, target canvas.Node, conn canvas.Connection) (any, error)

	// NewNode synthesizes a node of the given entity kind with a unique id
	// and this kind's default placement among the existing nodes.
	NewNode(entityKind string, existing []canvas.Node) (canvas.Node, error)

	// UpdateEntity replaces node's payload with data, keeping the entity
	// names embedded in connected edges in sync when the entity is
	// renamed. Connected edges get fresh payloads; untouched edges keep
	// theirs.
	UpdateEntity(node canvas.Node, data any, edges []canvas.Edge) (canvas.Node, []canvas.Edge, error)

	// MergeRelationship applies patch to edge's relationship payload and
	// returns the updated payload. source and target are the edge's
	// endpoint nodes, consulted for kind-dependent type rules.
	MergeRelationship(edge canvas.Edge, source, target canvas.Node, patch RelationshipPatch) (any, error)

	// FlipRelationship reverses the direction of an edge payload. Kinds
	// whose relationships have no flippable direction return an error.
	FlipRelationship(data any) (any, error)
}

// builtinKinds returns the registered diagram kinds keyed by type tag.
func builtinKinds() map[string]DiagramKind {
	kinds := make(map[string]DiagramKind, 3)
	for _, k := range []DiagramKind{NewUseCaseKind(), NewDatabaseKind(), NewClassKind()} {
		kinds[k.Type()] = k
	}
	return kinds
}

// nodeID builds the deterministic id assigned at graph construction. Ids are
// derived from entity kind and list index, not from entity names, so saved
// geometry survives renames.
func nodeID(entityKind string, index int) string {
	return fmt.Sprintf("%s-%d", strings.ToLower(entityKind), index)
}

// edgeID builds the deterministic id assigned at graph construction.
func edgeID(index int) string {
	return fmt.Sprintf("edge-%d", index)
}

// uniqueNodeID returns a timestamp-based id for an interactively added node.
// Uniqueness among the existing nodes is the only contract.
func uniqueNodeID(entityKind string, existing []canvas.Node) string {
	base := fmt.Sprintf("%s-%d", strings.ToLower(entityKind), time.Now().UnixMilli())
	id := base
	for i := 2; canvas.FindNode(existing, id) >= 0; i++ {
		id = fmt.Sprintf("%s-%d", base, i)
	}
	return id
}

// uniqueEdgeID returns a timestamp-based id for an interactively created
// edge.
func uniqueEdgeID(existing []canvas.Edge) string {
	base := fmt.Sprintf("edge-%d", time.Now().UnixMilli())
	id := base
	for i := 2; canvas.FindEdge(existing, id) >= 0; i++ {
		id = fmt.Sprintf("%s-%d", base, i)
	}
	return id
}

// entityName extracts the display name from a node payload.
func entityName(node canvas.Node) (string, error) {
	switch data := node.Data.(type) {
	case *models.Actor:
		return data.Name, nil
	case *models.UseCase:
		return data.Name, nil
	case *models.Table:
		return data.Name, nil
	case *models.UMLClass:
		return data.Name, nil
	default:
		return "", fmt.Errorf("node %s carries unexpected payload %T", node.ID, node.Data)
	}
}

// countNodesOfKind counts nodes of one entity kind, used by placement
// heuristics.
func countNodesOfKind(nodes []canvas.Node, entityKind string) int {
	count := 0
	for i := range nodes {
		if nodes[i].Type == entityKind {
			count++
		}
	}
	return count
}
