package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jinzhu/inflection"
	"go.uber.org/zap"

	"github.com/sketchwork-app/sketchwork-engine/pkg/adapters/dbschema"
	"github.com/sketchwork-app/sketchwork-engine/pkg/models"
)

// SchemaImporter turns a live database schema into a database diagram.
// The caller owns the introspector and closes it after importing.
type SchemaImporter interface {
	Import(ctx context.Context, name string) (*models.DatabaseDiagram, error)
}

type schemaImporter struct {
	introspector dbschema.Introspector
	logger       *zap.Logger
}

// NewSchemaImporter creates an importer reading from the given introspector.
func NewSchemaImporter(introspector dbschema.Introspector, logger *zap.Logger) SchemaImporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &schemaImporter{
		introspector: introspector,
		logger:       logger.Named("schema-import"),
	}
}

var _ SchemaImporter = (*schemaImporter)(nil)

// tableKeys records what makes rows unique in one table, for classifying
// the foreign keys that point at it from the owning side.
type tableKeys struct {
	primary []string
	unique  map[string]bool
}

func (s *schemaImporter) Import(ctx context.Context, name string) (*models.DatabaseDiagram, error) {
	start := time.Now()

	refs, err := s.introspector.ListTables(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}

	diagram := models.NewDatabaseDiagram(name)
	names := make(map[string]string, len(refs))
	keys := make(map[string]tableKeys, len(refs))

	for _, ref := range refs {
		columns, err := s.introspector.ListColumns(ctx, ref.Schema, ref.Name)
		if err != nil {
			return nil, fmt.Errorf("list columns for %s.%s: %w", ref.Schema, ref.Name, err)
		}

		table, tk := buildImportedTable(ref, columns)
		diagram.Tables = append(diagram.Tables, table)

		key := importTableKey(ref.Schema, ref.Name)
		names[key] = table.Name
		keys[key] = tk
	}

	fks, err := s.introspector.ListForeignKeys(ctx)
	if err != nil {
		return nil, fmt.Errorf("list foreign keys: %w", err)
	}

	diagram.Relationships = s.groupForeignKeys(fks, names, keys)

	if err := diagram.Validate(); err != nil {
		return nil, err
	}

	s.logger.Info("schema imported",
		zap.String("diagram_name", name),
		zap.Int("tables", len(diagram.Tables)),
		zap.Int("relationships", len(diagram.Relationships)),
		zap.Duration("elapsed", time.Since(start)))

	return diagram, nil
}

// groupForeignKeys folds per-column foreign key rows into one relationship
// per constraint, preserving column pairing order. Keys that reference a
// table outside the listing (filtered schemas, mostly) are skipped.
func (s *schemaImporter) groupForeignKeys(fks []dbschema.ForeignKey, names map[string]string, keys map[string]tableKeys) []models.DatabaseRelationship {
	rels := make([]models.DatabaseRelationship, 0, len(fks))
	fromKeys := make([]string, 0, len(fks))
	index := make(map[string]int, len(fks))

	for _, fk := range fks {
		fromKey := importTableKey(fk.FromSchema, fk.FromTable)
		toKey := importTableKey(fk.ToSchema, fk.ToTable)

		fromName, okFrom := names[fromKey]
		toName, okTo := names[toKey]
		if !okFrom || !okTo {
			s.logger.Warn("foreign key references unlisted table",
				zap.String("constraint", fk.ConstraintName),
				zap.String("from_table", fromKey),
				zap.String("to_table", toKey))
			continue
		}

		groupKey := fromKey + ":" + fk.ConstraintName
		if i, ok := index[groupKey]; ok {
			rels[i].FromColumns = append(rels[i].FromColumns, fk.FromColumn)
			rels[i].ToColumns = append(rels[i].ToColumns, fk.ToColumn)
			continue
		}

		index[groupKey] = len(rels)
		fromKeys = append(fromKeys, fromKey)
		rels = append(rels, models.DatabaseRelationship{
			FromTable:   fromName,
			ToTable:     toName,
			FromColumns: []string{fk.FromColumn},
			ToColumns:   []string{fk.ToColumn},
			OnDelete:    fk.OnDelete,
			OnUpdate:    fk.OnUpdate,
			Name:        inflection.Singular(fk.ToTable),
		})
	}

	// Cardinality needs the complete column list, so classify after grouping.
	for i := range rels {
		rels[i].Cardinality = inferCardinality(keys[fromKeys[i]], rels[i].FromColumns)
	}

	return rels
}

// inferCardinality classifies a foreign key by key coverage on the owning
// side. A key over a unique column or the full primary key admits at most
// one row per target, making the link one-to-one; everything else is the
// usual many-to-one.
func inferCardinality(keys tableKeys, fromColumns []string) string {
	if len(fromColumns) == 1 && keys.unique[fromColumns[0]] {
		return models.CardinalityOneToOne
	}
	if sameColumnSet(keys.primary, fromColumns) {
		return models.CardinalityOneToOne
	}
	return models.CardinalityManyToOne
}

func sameColumnSet(a, b []string) bool {
	if len(a) == 0 || len(a) != len(b) {
		return false
	}
	set := make(map[string]bool, len(a))
	for _, c := range a {
		set[c] = true
	}
	for _, c := range b {
		if !set[c] {
			return false
		}
	}
	return true
}

func buildImportedTable(ref dbschema.TableRef, columns []dbschema.ColumnInfo) (models.Table, tableKeys) {
	table := models.Table{
		Name:    displayTableName(ref),
		Columns: make([]models.Column, 0, len(columns)),
	}
	tk := tableKeys{unique: make(map[string]bool)}

	for _, col := range columns {
		column := models.Column{
			Name: col.Name,
			Type: col.DataType,
		}
		if !col.IsNullable && !col.IsPrimaryKey {
			column.Constraints = append(column.Constraints, "NOT NULL")
		}
		if col.IsUnique && !col.IsPrimaryKey {
			column.Constraints = append(column.Constraints, "UNIQUE")
			tk.unique[col.Name] = true
		}
		if col.DefaultValue != nil {
			column.Default = trimOuterParens(*col.DefaultValue)
		}
		if col.IsPrimaryKey {
			table.PrimaryKey = append(table.PrimaryKey, col.Name)
			tk.primary = append(tk.primary, col.Name)
		}
		table.Columns = append(table.Columns, column)
	}

	return table, tk
}

// defaultSchemas are the engine default namespaces whose tables read better
// unqualified in a diagram.
var defaultSchemas = map[string]bool{
	"public": true, // postgres
	"dbo":    true, // sql server
}

func displayTableName(ref dbschema.TableRef) string {
	if ref.Schema == "" || defaultSchemas[ref.Schema] {
		return ref.Name
	}
	return ref.Schema + "." + ref.Name
}

func importTableKey(schema, table string) string {
	return schema + "." + table
}

// trimOuterParens strips balanced wrapping parentheses from default
// expressions. SQL Server reports defaults wrapped, as in ((0)) or
// (getdate()).
func trimOuterParens(s string) string {
	s = strings.TrimSpace(s)
	for len(s) >= 2 && s[0] == '(' && wrappedInParens(s) {
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	return s
}

// wrappedInParens reports whether the parenthesis opening s closes at its
// final character.
func wrappedInParens(s string) bool {
	depth := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i == len(s)-1
			}
		}
	}
	return false
}
