package services

import (
	"fmt"

	"github.com/sketchwork-app/sketchwork-engine/pkg/apperrors"
	"github.com/sketchwork-app/sketchwork-engine/pkg/canvas"
	"github.com/sketchwork-app/sketchwork-engine/pkg/models"
)

// Default placement for database diagrams: tables in a row-major grid.
const (
	tableGridColumns = 3
	tableLeftX       = 80.0
	tableTopY        = 80.0
	tableColumnGap   = 320.0
	tableRowGap      = 260.0
)

func tablePosition(index int) canvas.Position {
	return canvas.Position{
		X: tableLeftX + float64(index%tableGridColumns)*tableColumnGap,
		Y: tableTopY + float64(index/tableGridColumns)*tableRowGap,
	}
}

// databaseKind implements DiagramKind for database/ER diagrams.
type databaseKind struct{}

// NewDatabaseKind returns the DiagramKind for database diagrams.
func NewDatabaseKind() DiagramKind {
	return databaseKind{}
}

var _ DiagramKind = databaseKind{}

func (databaseKind) Type() string {
	return models.DiagramTypeER
}

func (databaseKind) Parse(text string) (any, error) {
	return models.ParseDatabaseDiagram([]byte(text))
}

func (databaseKind) NewDocument(name string) any {
	return models.NewDatabaseDiagram(name)
}

func (databaseKind) DocumentName(doc any) string {
	if d, ok := doc.(*models.DatabaseDiagram); ok {
		return d.DiagramName
	}
	return ""
}

func (databaseKind) BuildGraph(doc any) ([]canvas.Node, []canvas.Edge, error) {
	d, ok := doc.(*models.DatabaseDiagram)
	if !ok {
		return nil, nil, fmt.Errorf("expected *models.DatabaseDiagram, got %T", doc)
	}

	nodes := make([]canvas.Node, 0, len(d.Tables))
	nameToID := make(map[string]string, len(d.Tables))
	for i := range d.Tables {
		t := d.Tables[i]
		id := nodeID(models.EntityKindTable, i)
		if _, taken := nameToID[t.Name]; !taken {
			nameToID[t.Name] = id
		}
		nodes = append(nodes, canvas.Node{
			ID:       id,
			Type:     models.EntityKindTable,
			Position: tablePosition(i),
			Data:     &t,
		})
	}

	edges := make([]canvas.Edge, 0, len(d.Relationships))
	for i := range d.Relationships {
		r := d.Relationships[i]
		source, okFrom := nameToID[r.FromTable]
		target, okTo := nameToID[r.ToTable]
		if !okFrom || !okTo {
			return nil, nil, fmt.Errorf("%w: relationship %d references unknown table", apperrors.ErrInvalidDiagram, i)
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

func (databaseKind) ExtractDocument(name string, nodes []canvas.Node, edges []canvas.Edge) (any, error) {
	d := models.NewDatabaseDiagram(name)

	for i := range nodes {
		t, ok := nodes[i].Data.(*models.Table)
		if !ok {
			return nil, fmt.Errorf("node %s carries unexpected payload %T", nodes[i].ID, nodes[i].Data)
		}
		d.Tables = append(d.Tables, *t)
	}
	for i := range edges {
		r, ok := edges[i].Data.(*models.DatabaseRelationship)
		if !ok {
			return nil, fmt.Errorf("edge %s carries unexpected payload %T", edges[i].ID, edges[i].Data)
		}
		d.Relationships = append(d.Relationships, *r)
	}
	return d, nil
}

// ValidateConnection accepts any table pair. The requested type, when
// present, is a cardinality and defaults to one-to-many. Connection handles
// name the joined columns; a handle naming a column the table does not have
// rejects the connection.
func (databaseKind) ValidateConnection(source, target canvas.Node, conn canvas.Connection) (any, error) {
	sourceTable, ok := source.Data.(*models.Table)
	if !ok {
		return nil, fmt.Errorf("node %s carries unexpected payload %T", source.ID, source.Data)
	}
	targetTable, ok := target.Data.(*models.Table)
	if !ok {
		return nil, fmt.Errorf("node %s carries unexpected payload %T", target.ID, target.Data)
	}

	cardinality := conn.RequestedType
	if cardinality == "" {
		cardinality = models.CardinalityOneToMany
	}
	if !models.IsValidCardinality(cardinality) {
		return nil, fmt.Errorf("%w: %q", apperrors.ErrInvalidCardinality, cardinality)
	}

	rel := &models.DatabaseRelationship{
		FromTable:   sourceTable.Name,
		ToTable:     targetTable.Name,
		Cardinality: cardinality,
	}
	if conn.SourceHandle != "" {
		if !tableHasColumn(sourceTable, conn.SourceHandle) {
			return nil, fmt.Errorf("%w: table %q has no column %q", apperrors.ErrInvalidConnection, sourceTable.Name, conn.SourceHandle)
		}
		rel.FromColumns = []string{conn.SourceHandle}
	}
	if conn.TargetHandle != "" {
		if !tableHasColumn(targetTable, conn.TargetHandle) {
			return nil, fmt.Errorf("%w: table %q has no column %q", apperrors.ErrInvalidConnection, targetTable.Name, conn.TargetHandle)
		}
		rel.ToColumns = []string{conn.TargetHandle}
	}
	return rel, nil
}

func (databaseKind) NewNode(entityKind string, existing []canvas.Node) (canvas.Node, error) {
	if entityKind != models.EntityKindTable {
		return canvas.Node{}, fmt.Errorf("entity kind %q does not belong in a database diagram", entityKind)
	}

	count := countNodesOfKind(existing, entityKind)
	return canvas.Node{
		ID:       uniqueNodeID(entityKind, existing),
		Type:     entityKind,
		Position: tablePosition(count),
		Data: &models.Table{
			Name:       fmt.Sprintf("table_%d", count+1),
			Columns:    []models.Column{{Name: "id", Type: "integer"}},
			PrimaryKey: []string{"id"},
		},
	}, nil
}

func (databaseKind) UpdateEntity(node canvas.Node, data any, edges []canvas.Edge) (canvas.Node, []canvas.Edge, error) {
	oldName, err := entityName(node)
	if err != nil {
		return node, edges, err
	}

	t, ok := data.(*models.Table)
	if !ok {
		return node, edges, fmt.Errorf("table node %s requires *models.Table payload, got %T", node.ID, data)
	}
	if t.Name == "" {
		return node, edges, fmt.Errorf("%w: table name cannot be empty", apperrors.ErrInvalidDiagram)
	}

	node.Data = data
	if t.Name == oldName {
		return node, edges, nil
	}

	out := make([]canvas.Edge, len(edges))
	copy(out, edges)
	for i := range out {
		if out[i].Source != node.ID && out[i].Target != node.ID {
			continue
		}
		r, ok := out[i].Data.(*models.DatabaseRelationship)
		if !ok {
			return node, edges, fmt.Errorf("edge %s carries unexpected payload %T", out[i].ID, out[i].Data)
		}
		updated := *r
		if out[i].Source == node.ID {
			updated.FromTable = t.Name
		}
		if out[i].Target == node.ID {
			updated.ToTable = t.Name
		}
		out[i].Data = &updated
	}
	return node, out, nil
}

func (databaseKind) MergeRelationship(edge canvas.Edge, source, target canvas.Node, patch RelationshipPatch) (any, error) {
	r, ok := edge.Data.(*models.DatabaseRelationship)
	if !ok {
		return nil, fmt.Errorf("edge %s carries unexpected payload %T", edge.ID, edge.Data)
	}
	if patch.Type != nil || patch.Description != nil || patch.Label != nil {
		return nil, fmt.Errorf("%w: patch fields do not apply to database relationships", apperrors.ErrInvalidRelationshipType)
	}

	updated := *r
	if patch.Cardinality != nil {
		if !models.IsValidCardinality(*patch.Cardinality) {
			return nil, fmt.Errorf("%w: %q", apperrors.ErrInvalidCardinality, *patch.Cardinality)
		}
		updated.Cardinality = *patch.Cardinality
	}
	if patch.OnDelete != nil {
		if *patch.OnDelete != "" && !models.IsValidReferentialAction(*patch.OnDelete) {
			return nil, fmt.Errorf("%w: onDelete %q", apperrors.ErrInvalidDiagram, *patch.OnDelete)
		}
		updated.OnDelete = *patch.OnDelete
	}
	if patch.OnUpdate != nil {
		if *patch.OnUpdate != "" && !models.IsValidReferentialAction(*patch.OnUpdate) {
			return nil, fmt.Errorf("%w: onUpdate %q", apperrors.ErrInvalidDiagram, *patch.OnUpdate)
		}
		updated.OnUpdate = *patch.OnUpdate
	}
	if patch.Name != nil {
		updated.Name = *patch.Name
	}
	if patch.FromColumns != nil {
		sourceTable, ok := source.Data.(*models.Table)
		if !ok {
			return nil, fmt.Errorf("node %s carries unexpected payload %T", source.ID, source.Data)
		}
		for _, col := range patch.FromColumns {
			if !tableHasColumn(sourceTable, col) {
				return nil, fmt.Errorf("%w: table %q has no column %q", apperrors.ErrInvalidConnection, sourceTable.Name, col)
			}
		}
		updated.FromColumns = patch.FromColumns
	}
	if patch.ToColumns != nil {
		targetTable, ok := target.Data.(*models.Table)
		if !ok {
			return nil, fmt.Errorf("node %s carries unexpected payload %T", target.ID, target.Data)
		}
		for _, col := range patch.ToColumns {
			if !tableHasColumn(targetTable, col) {
				return nil, fmt.Errorf("%w: table %q has no column %q", apperrors.ErrInvalidConnection, targetTable.Name, col)
			}
		}
		updated.ToColumns = patch.ToColumns
	}
	return &updated, nil
}

// FlipRelationship reverses a database relationship: tables, column lists,
// and cardinality all swap ends together.
func (databaseKind) FlipRelationship(data any) (any, error) {
	r, ok := data.(*models.DatabaseRelationship)
	if !ok {
		return nil, fmt.Errorf("expected *models.DatabaseRelationship, got %T", data)
	}
	flipped := r.Flipped()
	return &flipped, nil
}

func tableHasColumn(t *models.Table, name string) bool {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return true
		}
	}
	return false
}
