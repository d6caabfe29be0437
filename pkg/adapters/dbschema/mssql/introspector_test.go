//go:build integration && (mssql || all_adapters)

package mssql

import (
	"context"
	"os"
	"strconv"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
)

// introspectorFromEnv connects using MSSQL_* environment variables, skipping
// the test when they are absent. SQL Server has no lightweight container
// image, so these tests run against an externally provisioned instance.
func introspectorFromEnv(t *testing.T) *Introspector {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	host := os.Getenv("MSSQL_HOST")
	user := os.Getenv("MSSQL_USER")
	password := os.Getenv("MSSQL_PASSWORD")
	database := os.Getenv("MSSQL_DATABASE")
	if host == "" || user == "" || password == "" || database == "" {
		t.Skip("skipping integration test: MSSQL_HOST, MSSQL_USER, MSSQL_PASSWORD, or MSSQL_DATABASE not set")
	}

	port := 1433
	if p := os.Getenv("MSSQL_PORT"); p != "" {
		parsed, err := strconv.Atoi(p)
		if err != nil {
			t.Fatalf("invalid MSSQL_PORT: %v", err)
		}
		port = parsed
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)

	cfg := &Config{
		Host:              host,
		Port:              port,
		Username:          user,
		Password:          password,
		Database:          database,
		Encrypt:           false,
		ConnectionTimeout: 30,
	}

	introspector, err := NewIntrospector(ctx, cfg, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	t.Cleanup(func() { introspector.Close() })

	return introspector
}

func TestIntrospector_ListTables(t *testing.T) {
	introspector := introspectorFromEnv(t)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	tables, err := introspector.ListTables(ctx)
	if err != nil {
		t.Fatalf("ListTables returned error: %v", err)
	}

	for _, table := range tables {
		if table.Schema == "sys" || table.Schema == "INFORMATION_SCHEMA" {
			t.Errorf("system table leaked into listing: %s.%s", table.Schema, table.Name)
		}
	}
}

func TestIntrospector_ListColumns_NonexistentTable(t *testing.T) {
	introspector := introspectorFromEnv(t)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	columns, err := introspector.ListColumns(ctx, "dbo", "no_such_table_12345")
	if err != nil {
		t.Fatalf("ListColumns returned error: %v", err)
	}
	if len(columns) != 0 {
		t.Errorf("expected no columns for nonexistent table, got %d", len(columns))
	}
}

func TestIntrospector_ListForeignKeys(t *testing.T) {
	introspector := introspectorFromEnv(t)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	fks, err := introspector.ListForeignKeys(ctx)
	if err != nil {
		t.Fatalf("ListForeignKeys returned error: %v", err)
	}

	// Referential actions must be normalized: SQL Server reports NO_ACTION
	// and SET_NULL with underscores.
	for _, fk := range fks {
		if fk.OnDelete == "NO ACTION" || fk.OnDelete == "NO_ACTION" {
			t.Errorf("expected NO ACTION to normalize to empty, got %q", fk.OnDelete)
		}
		if fk.OnUpdate == "SET_NULL" || fk.OnDelete == "SET_NULL" {
			t.Error("expected underscores replaced in referential actions")
		}
	}
}
