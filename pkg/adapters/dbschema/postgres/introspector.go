//go:build postgres || all_adapters

package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/sketchwork-app/sketchwork-engine/pkg/adapters/dbschema"
	"github.com/sketchwork-app/sketchwork-engine/pkg/logging"
	"github.com/sketchwork-app/sketchwork-engine/pkg/retry"
)

// Introspector reads PostgreSQL schema metadata through a pgx pool.
type Introspector struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewIntrospector connects to the database described by cfg and verifies
// the connection before returning, retrying while the server is still
// starting up.
func NewIntrospector(ctx context.Context, cfg *Config, logger *zap.Logger) (*Introspector, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("pg-introspect")

	// A freshly started database can accept the TCP connect and still fail
	// the first ping, so connect and ping run under one retry loop.
	pool, err := retry.DoWithResult(ctx, retry.DefaultConfig(), func() (*pgxpool.Pool, error) {
		p, err := pgxpool.New(ctx, connString(cfg))
		if err != nil {
			return nil, err
		}
		if err := p.Ping(ctx); err != nil {
			p.Close()
			return nil, err
		}
		return p, nil
	})
	if err != nil {
		logger.Error("connection failed after retries",
			zap.String("host", cfg.Host),
			zap.String("database", cfg.Database),
			zap.String("error", logging.SanitizeError(err)))
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	return &Introspector{
		pool:   pool,
		logger: logger,
	}, nil
}

// Close releases the connection pool.
func (in *Introspector) Close() error {
	if in.pool != nil {
		in.pool.Close()
	}
	return nil
}

// ListTables returns all user tables, excluding system schemas.
func (in *Introspector) ListTables(ctx context.Context) ([]dbschema.TableRef, error) {
	const query = `
		SELECT t.table_schema, t.table_name
		FROM information_schema.tables t
		WHERE t.table_type = 'BASE TABLE'
		  AND t.table_schema NOT IN ('pg_catalog', 'information_schema', 'pg_toast')
		ORDER BY t.table_schema, t.table_name
	`

	rows, err := in.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query tables: %w", err)
	}
	defer rows.Close()

	var tables []dbschema.TableRef
	for rows.Next() {
		var t dbschema.TableRef
		if err := rows.Scan(&t.Schema, &t.Name); err != nil {
			return nil, fmt.Errorf("scan table: %w", err)
		}
		tables = append(tables, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tables: %w", err)
	}

	return tables, nil
}

// ListColumns returns the columns of one table in ordinal order.
// Primary key and unique detection goes through pg_index rather than
// information_schema constraints, which catches keys created as unique
// indexes by ORMs.
func (in *Introspector) ListColumns(ctx context.Context, schema, table string) ([]dbschema.ColumnInfo, error) {
	const query = `
		SELECT
			c.column_name,
			c.data_type,
			c.is_nullable = 'YES' as is_nullable,
			COALESCE(pk.is_pk, false) as is_primary_key,
			COALESCE(uq.is_unique, false) as is_unique,
			c.ordinal_position,
			c.column_default
		FROM information_schema.columns c
		LEFT JOIN (
			SELECT a.attname as column_name, true as is_pk
			FROM pg_index ix
			JOIN pg_class t ON t.oid = ix.indrelid
			JOIN pg_namespace n ON n.oid = t.relnamespace
			JOIN pg_attribute a ON a.attrelid = t.oid AND a.attnum = ANY(ix.indkey)
			WHERE ix.indisprimary = true
			  AND n.nspname = $1
			  AND t.relname = $2
		) pk ON c.column_name = pk.column_name
		LEFT JOIN (
			SELECT a.attname as column_name, true as is_unique
			FROM pg_index ix
			JOIN pg_class t ON t.oid = ix.indrelid
			JOIN pg_namespace n ON n.oid = t.relnamespace
			JOIN pg_attribute a ON a.attrelid = t.oid AND a.attnum = ANY(ix.indkey)
			WHERE ix.indisunique = true
			  AND ix.indisprimary = false
			  AND n.nspname = $1
			  AND t.relname = $2
			  AND array_length(ix.indkey, 1) = 1
		) uq ON c.column_name = uq.column_name
		WHERE c.table_schema = $1 AND c.table_name = $2
		ORDER BY c.ordinal_position
	`

	rows, err := in.pool.Query(ctx, query, schema, table)
	if err != nil {
		return nil, fmt.Errorf("query columns: %w", err)
	}
	defer rows.Close()

	var columns []dbschema.ColumnInfo
	for rows.Next() {
		var c dbschema.ColumnInfo
		if err := rows.Scan(&c.Name, &c.DataType, &c.IsNullable, &c.IsPrimaryKey, &c.IsUnique, &c.Position, &c.DefaultValue); err != nil {
			return nil, fmt.Errorf("scan column: %w", err)
		}
		columns = append(columns, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate columns: %w", err)
	}

	return columns, nil
}

// ListForeignKeys returns all foreign key constraints between user tables.
// The referenced side is resolved through the unique constraint with matching
// column positions, so composite keys come back as correctly paired rows.
func (in *Introspector) ListForeignKeys(ctx context.Context) ([]dbschema.ForeignKey, error) {
	const query = `
		SELECT
			tc.constraint_name,
			kcu.table_schema as from_schema,
			kcu.table_name as from_table,
			kcu.column_name as from_column,
			rcu.table_schema as to_schema,
			rcu.table_name as to_table,
			rcu.column_name as to_column,
			rc.delete_rule,
			rc.update_rule
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
			ON tc.constraint_name = kcu.constraint_name
			AND tc.table_schema = kcu.table_schema
		JOIN information_schema.referential_constraints rc
			ON tc.constraint_name = rc.constraint_name
			AND tc.table_schema = rc.constraint_schema
		JOIN information_schema.key_column_usage rcu
			ON rcu.constraint_name = rc.unique_constraint_name
			AND rcu.constraint_schema = rc.unique_constraint_schema
			AND rcu.ordinal_position = kcu.position_in_unique_constraint
		WHERE tc.constraint_type = 'FOREIGN KEY'
		  AND tc.table_schema NOT IN ('pg_catalog', 'information_schema', 'pg_toast')
		ORDER BY kcu.table_schema, kcu.table_name, tc.constraint_name, kcu.ordinal_position
	`

	rows, err := in.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query foreign keys: %w", err)
	}
	defer rows.Close()

	var fks []dbschema.ForeignKey
	for rows.Next() {
		var fk dbschema.ForeignKey
		var deleteRule, updateRule string
		if err := rows.Scan(&fk.ConstraintName, &fk.FromSchema, &fk.FromTable, &fk.FromColumn,
			&fk.ToSchema, &fk.ToTable, &fk.ToColumn, &deleteRule, &updateRule); err != nil {
			return nil, fmt.Errorf("scan foreign key: %w", err)
		}
		fk.OnDelete = dbschema.NormalizeReferentialAction(deleteRule)
		fk.OnUpdate = dbschema.NormalizeReferentialAction(updateRule)
		fks = append(fks, fk)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate foreign keys: %w", err)
	}

	return fks, nil
}

var _ dbschema.Introspector = (*Introspector)(nil)
