package services

import (
	"fmt"

	"github.com/sketchwork-app/sketchwork-engine/pkg/apperrors"
	"github.com/sketchwork-app/sketchwork-engine/pkg/canvas"
	"github.com/sketchwork-app/sketchwork-engine/pkg/models"
)

// Default placement for class diagrams: classes in a row-major grid.
const (
	classGridColumns = 3
	classLeftX       = 80.0
	classTopY        = 80.0
	classColumnGap   = 300.0
	classRowGap      = 240.0
)

func classPosition(index int) canvas.Position {
	return canvas.Position{
		X: classLeftX + float64(index%classGridColumns)*classColumnGap,
		Y: classTopY + float64(index/classGridColumns)*classRowGap,
	}
}

// classKind implements DiagramKind for UML class diagrams.
type classKind struct{}

// NewClassKind returns the DiagramKind for class diagrams.
func NewClassKind() DiagramKind {
	return classKind{}
}

var _ DiagramKind = classKind{}

func (classKind) Type() string {
	return models.DiagramTypeClass
}

func (classKind) Parse(text string) (any, error) {
	return models.ParseClassDiagram([]byte(text))
}

func (classKind) NewDocument(name string) any {
	return models.NewClassDiagram(name)
}

func (classKind) DocumentName(doc any) string {
	if d, ok := doc.(*models.ClassDiagram); ok {
		return d.DiagramName
	}
	return ""
}

func (classKind) BuildGraph(doc any) ([]canvas.Node, []canvas.Edge, error) {
	d, ok := doc.(*models.ClassDiagram)
	if !ok {
		return nil, nil, fmt.Errorf("expected *models.ClassDiagram, got %T", doc)
	}

	nodes := make([]canvas.Node, 0, len(d.Classes))
	nameToID := make(map[string]string, len(d.Classes))
	for i := range d.Classes {
		c := d.Classes[i]
		id := nodeID(models.EntityKindClass, i)
		if _, taken := nameToID[c.Name]; !taken {
			nameToID[c.Name] = id
		}
		nodes = append(nodes, canvas.Node{
			ID:       id,
			Type:     models.EntityKindClass,
			Position: classPosition(i),
			Data:     &c,
		})
	}

	edges := make([]canvas.Edge, 0, len(d.Relationships))
	for i := range d.Relationships {
		r := d.Relationships[i]
		source, okFrom := nameToID[r.FromClass]
		target, okTo := nameToID[r.ToClass]
		if !okFrom || !okTo {
			return nil, nil, fmt.Errorf("%w: relationship %d references unknown class", apperrors.ErrInvalidDiagram, i)
		}
		edges = append(edges, canvas.Edge{
			ID:     edgeID(i),
			Source: source,
			Target: target,
			Data:   &r,
		})
	}
	return nodes, edges, nil
}

func (classKind) ExtractDocument(name string, nodes []canvas.Node, edges []canvas.Edge) (any, error) {
	d := models.NewClassDiagram(name)

	for i := range nodes {
		c, ok := nodes[i].Data.(*models.UMLClass)
		if !ok {
			return nil, fmt.Errorf("node %s carries unexpected payload %T", nodes[i].ID, nodes[i].Data)
		}
		d.Classes = append(d.Classes, *c)
	}
	for i := range edges {
		r, ok := edges[i].Data.(*models.ClassRelationship)
		if !ok {
			return nil, fmt.Errorf("edge %s carries unexpected payload %T", edges[i].ID, edges[i].Data)
		}
		d.Relationships = append(d.Relationships, *r)
	}
	return d, nil
}

// ValidateConnection accepts any class pair. The requested type must be one
// of the class relationship types and defaults to association.
func (classKind) ValidateConnection(source, target canvas.Node, conn canvas.Connection) (any, error) {
	sourceName, err := entityName(source)
	if err != nil {
		return nil, err
	}
	targetName, err := entityName(target)
	if err != nil {
		return nil, err
	}

	t := conn.RequestedType
	if t == "" {
		t = models.ClassRelAssociation
	}
	if !models.IsValidClassRelType(t) {
		return nil, fmt.Errorf("%w: %q", apperrors.ErrInvalidRelationshipType, t)
	}

	return &models.ClassRelationship{
		FromClass: sourceName,
		ToClass:   targetName,
		Type:      t,
	}, nil
}

func (classKind) NewNode(entityKind string, existing []canvas.Node) (canvas.Node, error) {
	if entityKind != models.EntityKindClass {
		return canvas.Node{}, fmt.Errorf("entity kind %q does not belong in a class diagram", entityKind)
	}

	count := countNodesOfKind(existing, entityKind)
	return canvas.Node{
		ID:       uniqueNodeID(entityKind, existing),
		Type:     entityKind,
		Position: classPosition(count),
		Data: &models.UMLClass{
			Name:       fmt.Sprintf("Class%d", count+1),
			Type:       models.ClassKindClass,
			Attributes: []models.Attribute{},
			Methods:    []models.Method{},
		},
	}, nil
}

func (classKind) UpdateEntity(node canvas.Node, data any, edges []canvas.Edge) (canvas.Node, []canvas.Edge, error) {
	oldName, err := entityName(node)
	if err != nil {
		return node, edges, err
	}

	c, ok := data.(*models.UMLClass)
	if !ok {
		return node, edges, fmt.Errorf("class node %s requires *models.UMLClass payload, got %T", node.ID, data)
	}
	if c.Name == "" {
		return node, edges, fmt.Errorf("%w: class name cannot be empty", apperrors.ErrInvalidDiagram)
	}

	node.Data = data
	if c.Name == oldName {
		return node, edges, nil
	}

	out := make([]canvas.Edge, len(edges))
	copy(out, edges)
	for i := range out {
		if out[i].Source != node.ID && out[i].Target != node.ID {
			continue
		}
		r, ok := out[i].Data.(*models.ClassRelationship)
		if !ok {
			return node, edges, fmt.Errorf("edge %s carries unexpected payload %T", out[i].ID, out[i].Data)
		}
		updated := *r
		if out[i].Source == node.ID {
			updated.FromClass = c.Name
		}
		if out[i].Target == node.ID {
			updated.ToClass = c.Name
		}
		out[i].Data = &updated
	}
	return node, out, nil
}

func (classKind) MergeRelationship(edge canvas.Edge, source, target canvas.Node, patch RelationshipPatch) (any, error) {
	r, ok := edge.Data.(*models.ClassRelationship)
	if !ok {
		return nil, fmt.Errorf("edge %s carries unexpected payload %T", edge.ID, edge.Data)
	}
	if patch.Description != nil || patch.Cardinality != nil || patch.OnDelete != nil ||
		patch.OnUpdate != nil || patch.Name != nil || patch.FromColumns != nil || patch.ToColumns != nil {
		return nil, fmt.Errorf("%w: patch fields do not apply to class relationships", apperrors.ErrInvalidRelationshipType)
	}

	updated := *r
	if patch.Type != nil {
		if !models.IsValidClassRelType(*patch.Type) {
			return nil, fmt.Errorf("%w: %q", apperrors.ErrInvalidRelationshipType, *patch.Type)
		}
		updated.Type = *patch.Type
	}
	if patch.Label != nil {
		updated.Label = *patch.Label
	}
	return &updated, nil
}

func (classKind) FlipRelationship(any) (any, error) {
	return nil, fmt.Errorf("class relationships do not support flipping direction")
}
