package dbschema

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// DriverInfo describes a registered schema driver for discovery.
type DriverInfo struct {
	Name        string `json:"name"`         // "postgres", "mssql"
	DisplayName string `json:"display_name"` // "PostgreSQL", "Microsoft SQL Server"
	Description string `json:"description"`
}

// Registration bundles a driver's info with its introspector factory. The
// config map carries driver-specific connection fields; each driver parses
// and validates its own.
type Registration struct {
	Info DriverInfo
	Open func(ctx context.Context, config map[string]any, logger *zap.Logger) (Introspector, error)
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Registration)
)

// Register is called by each driver's init function.
// Thread-safe for concurrent init calls.
func Register(reg Registration) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[reg.Info.Name] = reg
}

// Drivers returns info for all registered drivers, sorted by name.
func Drivers() []DriverInfo {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]DriverInfo, 0, len(registry))
	for _, reg := range registry {
		result = append(result, reg.Info)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

// IsRegistered reports whether a driver is available in this build.
func IsRegistered(name string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := registry[name]
	return ok
}

// Open connects an introspector for the named driver.
func Open(ctx context.Context, name string, config map[string]any, logger *zap.Logger) (Introspector, error) {
	registryMu.RLock()
	reg, ok := registry[name]
	registryMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown schema driver %q", name)
	}
	return reg.Open(ctx, config, logger)
}
