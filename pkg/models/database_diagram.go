package models

import (
	"encoding/json"
	"fmt"

	"github.com/sketchwork-app/sketchwork-engine/pkg/apperrors"
	"github.com/sketchwork-app/sketchwork-engine/pkg/jsonutil"
)

// Cardinality classifications for database relationships, stored in the
// document exactly as written here.
const (
	CardinalityOneToOne   = "one-to-one"
	CardinalityOneToMany  = "one-to-many"
	CardinalityManyToOne  = "many-to-one"
	CardinalityManyToMany = "many-to-many"
)

// ValidCardinalities lists all accepted cardinality values.
var ValidCardinalities = []string{
	CardinalityOneToOne,
	CardinalityOneToMany,
	CardinalityManyToOne,
	CardinalityManyToMany,
}

// IsValidCardinality reports whether c is a recognized cardinality.
func IsValidCardinality(c string) bool {
	for _, v := range ValidCardinalities {
		if v == c {
			return true
		}
	}
	return false
}

// ReverseCardinality returns the cardinality as seen from the opposite end
// of the relationship. Symmetric cardinalities are unchanged.
func ReverseCardinality(c string) string {
	switch c {
	case CardinalityOneToMany:
		return CardinalityManyToOne
	case CardinalityManyToOne:
		return CardinalityOneToMany
	default:
		return c
	}
}

// Referential actions for foreign key constraints.
const (
	RefActionCascade    = "CASCADE"
	RefActionRestrict   = "RESTRICT"
	RefActionSetNull    = "SET NULL"
	RefActionSetDefault = "SET DEFAULT"
	RefActionNoAction   = "NO ACTION"
)

// ValidReferentialActions lists all accepted referential actions.
var ValidReferentialActions = []string{
	RefActionCascade,
	RefActionRestrict,
	RefActionSetNull,
	RefActionSetDefault,
	RefActionNoAction,
}

// IsValidReferentialAction reports whether a is a recognized referential
// action.
func IsValidReferentialAction(a string) bool {
	for _, v := range ValidReferentialActions {
		if v == a {
			return true
		}
	}
	return false
}

// Column is an ordered table column.
type Column struct {
	Name        string   `json:"name"`
	Type        string   `json:"type"`
	Constraints []string `json:"constraints,omitempty"`
	Default     string   `json:"default,omitempty"`
	Description string   `json:"description,omitempty"`
}

// UnmarshalJSON tolerates assistant-produced documents where constraints
// arrive as a single string and defaults as bare numbers or booleans.
func (c *Column) UnmarshalJSON(data []byte) error {
	type alias struct {
		Name        string          `json:"name"`
		Type        string          `json:"type"`
		Constraints json.RawMessage `json:"constraints"`
		Default     json.RawMessage `json:"default"`
		Description string          `json:"description"`
	}
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	c.Name = a.Name
	c.Type = a.Type
	c.Constraints = jsonutil.FlexibleStringSlice(a.Constraints)
	c.Default = jsonutil.FlexibleStringValue(a.Default)
	c.Description = a.Description
	return nil
}

// Index is an optional secondary index on a table.
type Index struct {
	Name    string   `json:"name"`
	Columns []string `json:"columns"`
	Unique  bool     `json:"unique,omitempty"`
}

// Table is a database table with ordered columns.
type Table struct {
	Name       string   `json:"name"`
	Columns    []Column `json:"columns"`
	PrimaryKey []string `json:"primaryKey,omitempty"`
	Indexes    []Index  `json:"indexes,omitempty"`
}

// ColumnNames returns the column names in declaration order.
func (t *Table) ColumnNames() []string {
	out := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = c.Name
	}
	return out
}

// DatabaseRelationship is a foreign-key style link between two tables.
// FromColumns and ToColumns are parallel lists.
type DatabaseRelationship struct {
	FromTable   string   `json:"fromTable"`
	ToTable     string   `json:"toTable"`
	FromColumns []string `json:"fromColumns"`
	ToColumns   []string `json:"toColumns"`
	Cardinality string   `json:"cardinality"`
	OnDelete    string   `json:"onDelete,omitempty"`
	OnUpdate    string   `json:"onUpdate,omitempty"`
	Name        string   `json:"name,omitempty"`
}

// UnmarshalJSON tolerates single-string column references in
// assistant-produced documents.
func (r *DatabaseRelationship) UnmarshalJSON(data []byte) error {
	type alias struct {
		FromTable   string          `json:"fromTable"`
		ToTable     string          `json:"toTable"`
		FromColumns json.RawMessage `json:"fromColumns"`
		ToColumns   json.RawMessage `json:"toColumns"`
		Cardinality string          `json:"cardinality"`
		OnDelete    string          `json:"onDelete"`
		OnUpdate    string          `json:"onUpdate"`
		Name        string          `json:"name"`
	}
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	r.FromTable = a.FromTable
	r.ToTable = a.ToTable
	r.FromColumns = jsonutil.FlexibleStringSlice(a.FromColumns)
	r.ToColumns = jsonutil.FlexibleStringSlice(a.ToColumns)
	r.Cardinality = a.Cardinality
	r.OnDelete = a.OnDelete
	r.OnUpdate = a.OnUpdate
	r.Name = a.Name
	return nil
}

// Flipped returns the relationship with its direction reversed: table and
// column lists swapped and the cardinality seen from the new source side.
// Referential actions and name are direction-independent and unchanged.
func (r DatabaseRelationship) Flipped() DatabaseRelationship {
	flipped := r
	flipped.FromTable, flipped.ToTable = r.ToTable, r.FromTable
	flipped.FromColumns, flipped.ToColumns = r.ToColumns, r.FromColumns
	flipped.Cardinality = ReverseCardinality(r.Cardinality)
	return flipped
}

// DatabaseDiagram is the persisted document for a database/ER diagram.
type DatabaseDiagram struct {
	DiagramType   string                 `json:"diagramType"`
	DiagramName   string                 `json:"diagramName"`
	Tables        []Table                `json:"tables"`
	Relationships []DatabaseRelationship `json:"relationships"`
}

// NewDatabaseDiagram returns an empty database diagram with the type tag set.
func NewDatabaseDiagram(name string) *DatabaseDiagram {
	return &DatabaseDiagram{
		DiagramType:   DiagramTypeER,
		DiagramName:   name,
		Tables:        []Table{},
		Relationships: []DatabaseRelationship{},
	}
}

// ParseDatabaseDiagram parses and validates a database diagram document.
func ParseDatabaseDiagram(data []byte) (*DatabaseDiagram, error) {
	var d DatabaseDiagram
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrInvalidDiagram, err)
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return &d, nil
}

// Validate checks the type tag, table names, cardinalities, referential
// actions, and relationship table references.
func (d *DatabaseDiagram) Validate() error {
	if d.DiagramType != DiagramTypeER {
		return fmt.Errorf("%w: diagramType %q", apperrors.ErrInvalidDiagram, d.DiagramType)
	}

	names := make(map[string]bool, len(d.Tables))
	for i, t := range d.Tables {
		if t.Name == "" {
			return fmt.Errorf("%w: table %d has no name", apperrors.ErrInvalidDiagram, i)
		}
		names[t.Name] = true
	}

	for i, r := range d.Relationships {
		if !names[r.FromTable] {
			return fmt.Errorf("%w: relationship %d references unknown table %q", apperrors.ErrInvalidDiagram, i, r.FromTable)
		}
		if !names[r.ToTable] {
			return fmt.Errorf("%w: relationship %d references unknown table %q", apperrors.ErrInvalidDiagram, i, r.ToTable)
		}
		if r.Cardinality != "" && !IsValidCardinality(r.Cardinality) {
			return fmt.Errorf("%w: relationship %d cardinality %q", apperrors.ErrInvalidCardinality, i, r.Cardinality)
		}
		if r.OnDelete != "" && !IsValidReferentialAction(r.OnDelete) {
			return fmt.Errorf("%w: relationship %d onDelete %q", apperrors.ErrInvalidDiagram, i, r.OnDelete)
		}
		if r.OnUpdate != "" && !IsValidReferentialAction(r.OnUpdate) {
			return fmt.Errorf("%w: relationship %d onUpdate %q", apperrors.ErrInvalidDiagram, i, r.OnUpdate)
		}
	}
	return nil
}
