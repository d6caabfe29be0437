package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sketchwork-app/sketchwork-engine/pkg/apperrors"
)

func sampleDatabaseDocument() []byte {
	return []byte(`{
		"diagramType": "ER Diagram",
		"diagramName": "Commerce",
		"tables": [
			{
				"name": "Customers",
				"columns": [
					{"name": "id", "type": "integer", "constraints": ["PRIMARY KEY"]},
					{"name": "email", "type": "varchar(255)", "constraints": ["NOT NULL", "UNIQUE"]}
				],
				"primaryKey": ["id"]
			},
			{
				"name": "Orders",
				"columns": [
					{"name": "id", "type": "integer", "constraints": ["PRIMARY KEY"]},
					{"name": "customer_id", "type": "integer", "constraints": ["NOT NULL"]},
					{"name": "total", "type": "numeric(10,2)", "default": 0}
				],
				"primaryKey": ["id"]
			}
		],
		"relationships": [
			{
				"fromTable": "Orders",
				"toTable": "Customers",
				"fromColumns": ["customer_id"],
				"toColumns": ["id"],
				"cardinality": "many-to-one",
				"onDelete": "CASCADE"
			}
		]
	}`)
}

func TestParseDatabaseDiagram(t *testing.T) {
	d, err := ParseDatabaseDiagram(sampleDatabaseDocument())
	require.NoError(t, err)
	assert.Equal(t, "Commerce", d.DiagramName)
	require.Len(t, d.Tables, 2)
	require.Len(t, d.Relationships, 1)
	assert.Equal(t, CardinalityManyToOne, d.Relationships[0].Cardinality)
	assert.Equal(t, RefActionCascade, d.Relationships[0].OnDelete)
}

func TestParseDatabaseDiagram_FlexibleColumnDefault(t *testing.T) {
	d, err := ParseDatabaseDiagram(sampleDatabaseDocument())
	require.NoError(t, err)
	assert.Equal(t, "0", d.Tables[1].Columns[2].Default)
}

func TestColumnUnmarshal_ConstraintsAsString(t *testing.T) {
	var c Column
	err := json.Unmarshal([]byte(`{"name": "email", "type": "text", "constraints": "NOT NULL, UNIQUE"}`), &c)
	require.NoError(t, err)
	assert.Equal(t, []string{"NOT NULL", "UNIQUE"}, c.Constraints)
}

func TestDatabaseRelationshipUnmarshal_SingleColumnString(t *testing.T) {
	var r DatabaseRelationship
	err := json.Unmarshal([]byte(`{
		"fromTable": "Orders", "toTable": "Customers",
		"fromColumns": "customer_id", "toColumns": "id",
		"cardinality": "many-to-one"
	}`), &r)
	require.NoError(t, err)
	assert.Equal(t, []string{"customer_id"}, r.FromColumns)
	assert.Equal(t, []string{"id"}, r.ToColumns)
}

func TestDatabaseRelationshipFlipped(t *testing.T) {
	r := DatabaseRelationship{
		FromTable:   "Orders",
		ToTable:     "Customers",
		FromColumns: []string{"customer_id"},
		ToColumns:   []string{"id"},
		Cardinality: CardinalityManyToOne,
	}

	flipped := r.Flipped()
	assert.Equal(t, "Customers", flipped.FromTable)
	assert.Equal(t, "Orders", flipped.ToTable)
	assert.Equal(t, []string{"id"}, flipped.FromColumns)
	assert.Equal(t, []string{"customer_id"}, flipped.ToColumns)
	assert.Equal(t, CardinalityOneToMany, flipped.Cardinality)
}

func TestDatabaseRelationshipFlipped_TwiceIsIdentity(t *testing.T) {
	r := DatabaseRelationship{
		FromTable:   "Orders",
		ToTable:     "Customers",
		FromColumns: []string{"customer_id"},
		ToColumns:   []string{"id"},
		Cardinality: CardinalityManyToOne,
		OnDelete:    RefActionSetNull,
	}
	assert.Equal(t, r, r.Flipped().Flipped())
}

func TestReverseCardinality(t *testing.T) {
	assert.Equal(t, CardinalityManyToOne, ReverseCardinality(CardinalityOneToMany))
	assert.Equal(t, CardinalityOneToMany, ReverseCardinality(CardinalityManyToOne))
	assert.Equal(t, CardinalityOneToOne, ReverseCardinality(CardinalityOneToOne))
	assert.Equal(t, CardinalityManyToMany, ReverseCardinality(CardinalityManyToMany))
}

func TestDatabaseDiagramValidate_UnknownTable(t *testing.T) {
	d := NewDatabaseDiagram("x")
	d.Tables = []Table{{Name: "Orders"}}
	d.Relationships = []DatabaseRelationship{{FromTable: "Orders", ToTable: "Missing"}}
	assert.ErrorIs(t, d.Validate(), apperrors.ErrInvalidDiagram)
}

func TestDatabaseDiagramValidate_BadCardinality(t *testing.T) {
	d := NewDatabaseDiagram("x")
	d.Tables = []Table{{Name: "A"}, {Name: "B"}}
	d.Relationships = []DatabaseRelationship{{FromTable: "A", ToTable: "B", Cardinality: "1:N"}}
	assert.ErrorIs(t, d.Validate(), apperrors.ErrInvalidCardinality)
}

func TestDatabaseDiagramValidate_BadReferentialAction(t *testing.T) {
	d := NewDatabaseDiagram("x")
	d.Tables = []Table{{Name: "A"}, {Name: "B"}}
	d.Relationships = []DatabaseRelationship{{
		FromTable: "A", ToTable: "B",
		Cardinality: CardinalityOneToMany,
		OnDelete:    "DROP",
	}}
	assert.ErrorIs(t, d.Validate(), apperrors.ErrInvalidDiagram)
}

func TestTableColumnNames(t *testing.T) {
	d, err := ParseDatabaseDiagram(sampleDatabaseDocument())
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "customer_id", "total"}, d.Tables[1].ColumnNames())
}
