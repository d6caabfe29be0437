package services

import (
	"fmt"

	"github.com/sketchwork-app/sketchwork-engine/pkg/apperrors"
	"github.com/sketchwork-app/sketchwork-engine/pkg/canvas"
	"github.com/sketchwork-app/sketchwork-engine/pkg/models"
)

// Default placement for use-case diagrams: actors stacked in a left column,
// use cases filling a two-column area to their right.
const (
	actorColumnX      = 80.0
	actorTopY         = 80.0
	actorRowSpacing   = 160.0
	useCaseLeftX      = 420.0
	useCaseTopY       = 80.0
	useCaseColumnGap  = 260.0
	useCaseRowSpacing = 140.0
)

func actorPosition(index int) canvas.Position {
	return canvas.Position{
		X: actorColumnX,
		Y: actorTopY + float64(index)*actorRowSpacing,
	}
}

func useCasePosition(index int) canvas.Position {
	return canvas.Position{
		X: useCaseLeftX + float64(index%2)*useCaseColumnGap,
		Y: useCaseTopY + float64(index/2)*useCaseRowSpacing,
	}
}

// useCaseKind implements DiagramKind for use-case diagrams.
type useCaseKind struct{}

// NewUseCaseKind returns the DiagramKind for use-case diagrams.
func NewUseCaseKind() DiagramKind {
	return useCaseKind{}
}

var _ DiagramKind = useCaseKind{}

func (useCaseKind) Type() string {
	return models.DiagramTypeUseCase
}

func (useCaseKind) Parse(text string) (any, error) {
	return models.ParseUseCaseDiagram([]byte(text))
}

func (useCaseKind) NewDocument(name string) any {
	return models.NewUseCaseDiagram(name)
}

func (useCaseKind) DocumentName(doc any) string {
	if d, ok := doc.(*models.UseCaseDiagram); ok {
		return d.DiagramName
	}
	return ""
}

func (useCaseKind) BuildGraph(doc any) ([]canvas.Node, []canvas.Edge, error) {
	d, ok := doc.(*models.UseCaseDiagram)
	if !ok {
		return nil, nil, fmt.Errorf("expected *models.UseCaseDiagram, got %T", doc)
	}

	nodes := make([]canvas.Node, 0, len(d.Actors)+len(d.UseCases))
	nameToID := make(map[string]string, len(d.Actors)+len(d.UseCases))

	for i := range d.Actors {
		a := d.Actors[i]
		id := nodeID(models.EntityKindActor, i)
		if _, taken := nameToID[a.Name]; !taken {
			nameToID[a.Name] = id
		}
		nodes = append(nodes, canvas.Node{
			ID:       id,
			Type:     models.EntityKindActor,
			Position: actorPosition(i),
			Data:     &a,
		})
	}
	for i := range d.UseCases {
		u := d.UseCases[i]
		id := nodeID(models.EntityKindUseCase, i)
		if _, taken := nameToID[u.Name]; !taken {
			nameToID[u.Name] = id
		}
		nodes = append(nodes, canvas.Node{
			ID:       id,
			Type:     models.EntityKindUseCase,
			Position: useCasePosition(i),
			Data:     &u,
		})
	}

	edges := make([]canvas.Edge, 0, len(d.Relationships))
	for i := range d.Relationships {
		r := d.Relationships[i]
		source, okFrom := nameToID[r.From]
		target, okTo := nameToID[r.To]
		if !okFrom || !okTo {
			return nil, nil, fmt.Errorf("%w: relationship %d references unknown entity", apperrors.ErrInvalidDiagram, i)
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

func (useCaseKind) ExtractDocument(name string, nodes []canvas.Node, edges []canvas.Edge) (any, error) {
	d := models.NewUseCaseDiagram(name)

	for i := range nodes {
		switch data := nodes[i].Data.(type) {
		case *models.Actor:
			d.Actors = append(d.Actors, *data)
		case *models.UseCase:
			d.UseCases = append(d.UseCases, *data)
		default:
			return nil, fmt.Errorf("node %s carries unexpected payload %T", nodes[i].ID, nodes[i].Data)
		}
	}
	for i := range edges {
		r, ok := edges[i].Data.(*models.UseCaseRelationship)
		if !ok {
			return nil, fmt.Errorf("edge %s carries unexpected payload %T", edges[i].ID, edges[i].Data)
		}
		d.Relationships = append(d.Relationships, *r)
	}
	return d, nil
}

// ValidateConnection enforces the use-case pairing rules: actors never
// connect to actors, actor participation is always an association, and two
// use cases connect only with includes, extends, or generalizes.
func (useCaseKind) ValidateConnection(source, target canvas.Node, conn canvas.Connection) (any, error) {
	sourceName, err := entityName(source)
	if err != nil {
		return nil, err
	}
	targetName, err := entityName(target)
	if err != nil {
		return nil, err
	}

	sourceIsActor := source.Type == models.EntityKindActor
	targetIsActor := target.Type == models.EntityKindActor

	switch {
	case sourceIsActor && targetIsActor:
		return nil, fmt.Errorf("%w: actors cannot connect to each other", apperrors.ErrInvalidConnection)

	case sourceIsActor || targetIsActor:
		// Forced to association regardless of the requested type.
		return &models.UseCaseRelationship{
			From: sourceName,
			To:   targetName,
			Type: models.UseCaseRelAssociation,
		}, nil

	default:
		t := conn.RequestedType
		if t == models.UseCaseRelAssociation || !models.IsValidUseCaseRelType(t) {
			return nil, fmt.Errorf("%w: %q between use cases", apperrors.ErrInvalidRelationshipType, t)
		}
		return &models.UseCaseRelationship{
			From: sourceName,
			To:   targetName,
			Type: t,
		}, nil
	}
}

func (useCaseKind) NewNode(entityKind string, existing []canvas.Node) (canvas.Node, error) {
	count := countNodesOfKind(existing, entityKind)

	switch entityKind {
	case models.EntityKindActor:
		return canvas.Node{
			ID:       uniqueNodeID(entityKind, existing),
			Type:     entityKind,
			Position: actorPosition(count),
			Data:     &models.Actor{Name: fmt.Sprintf("Actor %d", count+1)},
		}, nil
	case models.EntityKindUseCase:
		return canvas.Node{
			ID:       uniqueNodeID(entityKind, existing),
			Type:     entityKind,
			Position: useCasePosition(count),
			Data:     &models.UseCase{Name: fmt.Sprintf("Use Case %d", count+1)},
		}, nil
	default:
		return canvas.Node{}, fmt.Errorf("entity kind %q does not belong in a use-case diagram", entityKind)
	}
}

func (useCaseKind) UpdateEntity(node canvas.Node, data any, edges []canvas.Edge) (canvas.Node, []canvas.Edge, error) {
	oldName, err := entityName(node)
	if err != nil {
		return node, edges, err
	}

	var newName string
	switch node.Type {
	case models.EntityKindActor:
		a, ok := data.(*models.Actor)
		if !ok {
			return node, edges, fmt.Errorf("actor node %s requires *models.Actor payload, got %T", node.ID, data)
		}
		newName = a.Name
	case models.EntityKindUseCase:
		u, ok := data.(*models.UseCase)
		if !ok {
			return node, edges, fmt.Errorf("use-case node %s requires *models.UseCase payload, got %T", node.ID, data)
		}
		newName = u.Name
	default:
		return node, edges, fmt.Errorf("node %s has unexpected type %q", node.ID, node.Type)
	}
	if newName == "" {
		return node, edges, fmt.Errorf("%w: entity name cannot be empty", apperrors.ErrInvalidDiagram)
	}

	node.Data = data
	if newName == oldName {
		return node, edges, nil
	}

	out := make([]canvas.Edge, len(edges))
	copy(out, edges)
	for i := range out {
		if out[i].Source != node.ID && out[i].Target != node.ID {
			continue
		}
		r, ok := out[i].Data.(*models.UseCaseRelationship)
		if !ok {
			return node, edges, fmt.Errorf("edge %s carries unexpected payload %T", out[i].ID, out[i].Data)
		}
		updated := *r
		if out[i].Source == node.ID {
			updated.From = newName
		}
		if out[i].Target == node.ID {
			updated.To = newName
		}
		out[i].Data = &updated
	}
	return node, out, nil
}

func (useCaseKind) MergeRelationship(edge canvas.Edge, source, target canvas.Node, patch RelationshipPatch) (any, error) {
	r, ok := edge.Data.(*models.UseCaseRelationship)
	if !ok {
		return nil, fmt.Errorf("edge %s carries unexpected payload %T", edge.ID, edge.Data)
	}
	if patch.Label != nil || patch.Cardinality != nil || patch.OnDelete != nil ||
		patch.OnUpdate != nil || patch.Name != nil || patch.FromColumns != nil || patch.ToColumns != nil {
		return nil, fmt.Errorf("%w: patch fields do not apply to use-case relationships", apperrors.ErrInvalidRelationshipType)
	}

	updated := *r
	if patch.Type != nil {
		t := *patch.Type
		bothUseCases := source.Type == models.EntityKindUseCase && target.Type == models.EntityKindUseCase
		if bothUseCases {
			if t == models.UseCaseRelAssociation || !models.IsValidUseCaseRelType(t) {
				return nil, fmt.Errorf("%w: %q between use cases", apperrors.ErrInvalidRelationshipType, t)
			}
		} else if t != models.UseCaseRelAssociation {
			return nil, fmt.Errorf("%w: actor relationships are always associations", apperrors.ErrInvalidRelationshipType)
		}
		updated.Type = t
	}
	if patch.Description != nil {
		updated.Description = *patch.Description
	}
	return &updated, nil
}

func (useCaseKind) FlipRelationship(any) (any, error) {
	return nil, fmt.Errorf("use-case relationships do not support flipping direction")
}
