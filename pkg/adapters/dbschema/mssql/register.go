//go:build mssql || all_adapters

package mssql

import (
	"context"

	"go.uber.org/zap"

	"github.com/sketchwork-app/sketchwork-engine/pkg/adapters/dbschema"
)

func init() {
	dbschema.Register(dbschema.Registration{
		Info: dbschema.DriverInfo{
			Name:        "mssql",
			DisplayName: "Microsoft SQL Server",
			Description: "SQL Server 2017+, Azure SQL Database",
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
