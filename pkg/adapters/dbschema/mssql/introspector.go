//go:build mssql || all_adapters

package mssql

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/microsoft/go-mssqldb" // register sqlserver driver
	"go.uber.org/zap"

	"github.com/sketchwork-app/sketchwork-engine/pkg/adapters/dbschema"
	"github.com/sketchwork-app/sketchwork-engine/pkg/logging"
	"github.com/sketchwork-app/sketchwork-engine/pkg/retry"
)

// Introspector reads schema metadata from a SQL Server database.
type Introspector struct {
	db     *sql.DB
	logger *zap.Logger
}

var _ dbschema.Introspector = (*Introspector)(nil)

// NewIntrospector connects to SQL Server and verifies the connection.
// If logger is nil, a no-op logger is used.
func NewIntrospector(ctx context.Context, cfg *Config, logger *zap.Logger) (*Introspector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("mssql-introspect")

	db, err := sql.Open("sqlserver", connString(cfg))
	if err != nil {
		return nil, fmt.Errorf("connect to sqlserver: %w", err)
	}

	// sql.Open only validates the DSN, so the ping is where a server that is
	// still starting up shows itself.
	if err := retry.Do(ctx, retry.DefaultConfig(), func() error {
		return db.PingContext(ctx)
	}); err != nil {
		db.Close()
		logger.Error("connection failed after retries",
			zap.String("host", cfg.Host),
			zap.String("database", cfg.Database),
			zap.String("error", logging.SanitizeError(err)))
		return nil, fmt.Errorf("ping failed: %w", err)
	}

	return &Introspector{
		db:     db,
		logger: logger,
	}, nil
}

// Close releases the underlying connection pool.
func (in *Introspector) Close() error {
	if in.db == nil {
		return nil
	}
	return in.db.Close()
}

// ListTables returns all user tables, excluding system objects.
func (in *Introspector) ListTables(ctx context.Context) ([]dbschema.TableRef, error) {
	query := `
	SET NOCOUNT ON;
	SELECT
	    SCHEMA_NAME(t.schema_id) AS table_schema,
	    t.name AS table_name
	FROM sys.tables t
	WHERE t.is_ms_shipped = 0
	ORDER BY table_schema, table_name
	`

	rows, err := in.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query tables: %w", err)
	}
	defer rows.Close()

	var tables []dbschema.TableRef
	for rows.Next() {
		var table dbschema.TableRef
		if err := rows.Scan(&table.Schema, &table.Name); err != nil {
			return nil, fmt.Errorf("scan table row: %w", err)
		}
		tables = append(tables, table)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate table rows: %w", err)
	}

	return tables, nil
}

// ListColumns returns the columns of one table in ordinal order. Primary key
// membership comes from the primary key index, uniqueness from single-column
// unique indexes, so unique constraints created as indexes are detected too.
func (in *Introspector) ListColumns(ctx context.Context, schema, table string) ([]dbschema.ColumnInfo, error) {
	query := `
	SET NOCOUNT ON;
	SELECT
	    c.name AS column_name,
	    tp.name AS data_type,
	    CASE WHEN c.is_nullable = 1 THEN 1 ELSE 0 END AS is_nullable,
	    CASE WHEN pk.column_id IS NOT NULL THEN 1 ELSE 0 END AS is_primary_key,
	    CASE WHEN uq.column_id IS NOT NULL THEN 1 ELSE 0 END AS is_unique,
	    c.column_id AS ordinal_position,
	    dc.definition AS default_value
	FROM sys.columns c
	INNER JOIN sys.types tp ON c.user_type_id = tp.user_type_id
	LEFT JOIN (
	    SELECT ic.object_id, ic.column_id
	    FROM sys.index_columns ic
	    INNER JOIN sys.indexes i ON ic.object_id = i.object_id AND ic.index_id = i.index_id
	    WHERE i.is_primary_key = 1
	) pk ON c.object_id = pk.object_id AND c.column_id = pk.column_id
	LEFT JOIN (
	    SELECT DISTINCT ic.object_id, ic.column_id
	    FROM sys.index_columns ic
	    INNER JOIN sys.indexes i ON ic.object_id = i.object_id AND ic.index_id = i.index_id
	    WHERE i.is_unique = 1
	      AND i.is_primary_key = 0
	      AND ic.is_included_column = 0
	      AND (SELECT COUNT(*)
	           FROM sys.index_columns k
	           WHERE k.object_id = i.object_id
	             AND k.index_id = i.index_id
	             AND k.is_included_column = 0) = 1
	) uq ON c.object_id = uq.object_id AND c.column_id = uq.column_id
	LEFT JOIN sys.default_constraints dc ON c.default_object_id = dc.object_id
	WHERE c.object_id = OBJECT_ID(QUOTENAME(@schema) + N'.' + QUOTENAME(@table))
	ORDER BY c.column_id
	`

	rows, err := in.db.QueryContext(ctx, query,
		sql.Named("schema", schema),
		sql.Named("table", table),
	)
	if err != nil {
		return nil, fmt.Errorf("query columns: %w", err)
	}
	defer rows.Close()

	var columns []dbschema.ColumnInfo
	for rows.Next() {
		var col dbschema.ColumnInfo
		var isNullable, isPrimary, isUnique int

		err := rows.Scan(
			&col.Name,
			&col.DataType,
			&isNullable,
			&isPrimary,
			&isUnique,
			&col.Position,
			&col.DefaultValue,
		)
		if err != nil {
			return nil, fmt.Errorf("scan column row: %w", err)
		}

		col.IsNullable = isNullable == 1
		col.IsPrimaryKey = isPrimary == 1
		col.IsUnique = isUnique == 1
		col.DataType = mapType(col.DataType)

		columns = append(columns, col)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate column rows: %w", err)
	}

	return columns, nil
}

// ListForeignKeys returns all foreign key constraints with their
// referential actions.
func (in *Introspector) ListForeignKeys(ctx context.Context) ([]dbschema.ForeignKey, error) {
	query := `
	SET NOCOUNT ON;
	SELECT
	    fk.name AS constraint_name,
	    SCHEMA_NAME(fk.schema_id) AS from_schema,
	    OBJECT_NAME(fk.parent_object_id) AS from_table,
	    COL_NAME(fkc.parent_object_id, fkc.parent_column_id) AS from_column,
	    SCHEMA_NAME(rt.schema_id) AS to_schema,
	    OBJECT_NAME(fk.referenced_object_id) AS to_table,
	    COL_NAME(fkc.referenced_object_id, fkc.referenced_column_id) AS to_column,
	    fk.delete_referential_action_desc AS on_delete,
	    fk.update_referential_action_desc AS on_update
	FROM sys.foreign_keys fk
	INNER JOIN sys.foreign_key_columns fkc ON fk.object_id = fkc.constraint_object_id
	INNER JOIN sys.tables rt ON fk.referenced_object_id = rt.object_id
	WHERE fk.is_ms_shipped = 0
	ORDER BY from_schema, from_table, fk.name, fkc.constraint_column_id
	`

	rows, err := in.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query foreign keys: %w", err)
	}
	defer rows.Close()

	var fks []dbschema.ForeignKey
	for rows.Next() {
		var fk dbschema.ForeignKey
		var onDelete, onUpdate string

		err := rows.Scan(
			&fk.ConstraintName,
			&fk.FromSchema,
			&fk.FromTable,
			&fk.FromColumn,
			&fk.ToSchema,
			&fk.ToTable,
			&fk.ToColumn,
			&onDelete,
			&onUpdate,
		)
		if err != nil {
			return nil, fmt.Errorf("scan foreign key row: %w", err)
		}

		// SQL Server reports actions as SET_NULL, CASCADE, NO_ACTION.
		fk.OnDelete = dbschema.NormalizeReferentialAction(onDelete)
		fk.OnUpdate = dbschema.NormalizeReferentialAction(onUpdate)

		fks = append(fks, fk)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate foreign key rows: %w", err)
	}

	return fks, nil
}
