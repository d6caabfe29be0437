//go:build integration

package testhelpers

import (
	"context"
	"testing"
)

func TestTestDB_Connection(t *testing.T) {
	testDB := GetTestDB(t)

	ctx := context.Background()

	var one int
	if err := testDB.Pool.QueryRow(ctx, "SELECT 1").Scan(&one); err != nil {
		t.Fatalf("test query failed: %v", err)
	}
	if one != 1 {
		t.Errorf("expected 1, got %d", one)
	}
}

func TestTestDB_ConnConfig(t *testing.T) {
	testDB := GetTestDB(t)

	cfg := testDB.ConnConfig()
	if cfg["host"] == "" {
		t.Error("host missing from connection config")
	}
	if cfg["database"] != testDBName {
		t.Errorf("database = %v, want %s", cfg["database"], testDBName)
	}
	if port, ok := cfg["port"].(int); !ok || port == 0 {
		t.Errorf("port = %v, want a mapped port", cfg["port"])
	}
}
