// Package dbschema defines the introspection contract database drivers
// implement to feed schema imports. Drivers register themselves from
// build-tagged init functions, so a binary only carries the drivers it was
// built with.
package dbschema

import (
	"context"
	"strings"
)

// TableRef identifies one table within a schema.
type TableRef struct {
	Schema string `json:"schema"`
	Name   string `json:"name"`
}

// ColumnInfo describes one column of an introspected table.
type ColumnInfo struct {
	Name         string  `json:"name"`
	DataType     string  `json:"data_type"`
	IsNullable   bool    `json:"is_nullable"`
	IsPrimaryKey bool    `json:"is_primary_key"`
	IsUnique     bool    `json:"is_unique"`
	Position     int     `json:"position"`
	DefaultValue *string `json:"default_value,omitempty"`
}

// ForeignKey describes one column pair of a foreign key constraint;
// composite keys produce one row per pair under the same ConstraintName.
// OnDelete and OnUpdate carry normalized referential actions; empty means
// the database default.
type ForeignKey struct {
	ConstraintName string `json:"constraint_name"`
	FromSchema     string `json:"from_schema"`
	FromTable      string `json:"from_table"`
	FromColumn     string `json:"from_column"`
	ToSchema       string `json:"to_schema"`
	ToTable        string `json:"to_table"`
	ToColumn       string `json:"to_column"`
	OnDelete       string `json:"on_delete,omitempty"`
	OnUpdate       string `json:"on_update,omitempty"`
}

// Introspector reads schema metadata from a live database.
// Each implementation owns its connection and must be closed when done.
type Introspector interface {
	// ListTables returns all user tables, excluding system schemas.
	ListTables(ctx context.Context) ([]TableRef, error)

	// ListColumns returns the columns of one table in ordinal order.
	ListColumns(ctx context.Context, schema, table string) ([]ColumnInfo, error)

	// ListForeignKeys returns all foreign key constraints between user
	// tables.
	ListForeignKeys(ctx context.Context) ([]ForeignKey, error)

	// Close releases the database connection.
	Close() error
}

// NormalizeReferentialAction converts a driver-reported referential action
// into the canonical spelling used in diagram documents. SQL Server reports
// actions with underscores ("SET_NULL"); the information schema uses spaces.
// "NO ACTION" is the default everywhere and normalizes to empty.
func NormalizeReferentialAction(rule string) string {
	rule = strings.ToUpper(strings.TrimSpace(rule))
	rule = strings.ReplaceAll(rule, "_", " ")
	if rule == "" || rule == "NO ACTION" {
		return ""
	}
	return rule
}
