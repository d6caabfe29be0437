//go:build postgres || all_adapters

package postgres

import (
	"context"

	"go.uber.org/zap"

	"github.com/sketchwork-app/sketchwork-engine/pkg/adapters/dbschema"
)

func init() {
	dbschema.Register(dbschema.Registration{
		Info: dbschema.DriverInfo{
			Name:        "postgres",
			DisplayName: "PostgreSQL",
			Description: "PostgreSQL 12+, Aurora PostgreSQL, Supabase",
		},
		Open: func(ctx context.Context, config map[string]any, logger *zap.Logger) (dbschema.Introspector, error) {
			cfg, err := FromMap(config)
			if err != nil {
				return nil, err
			}
			return NewIntrospector(ctx, cfg, logger)
		},
	})
}
