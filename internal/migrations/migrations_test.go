package migrations_test

import (
	"context"
	"testing"

	"github.com/epicvibe/platform/internal/database"
	"github.com/epicvibe/platform/internal/migrations"
)

func TestMigrations(t *testing.T) {
	ctx := context.Background()
	db, err := database.Open(ctx, ":memory:")
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	defer db.Close()

	version, err := migrations.Run(ctx, db)
	if err != nil {
		t.Fatalf("running migrations: %v", err)
	}
	if version != 1 {
		t.Errorf("version = %d, want 1", version)
	}

	for _, table := range []string{"games", "counters"} {
		var name string
		err := db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %q not found: %v", table, err)
		}
	}

	var seq int
	if err := db.QueryRow(`SELECT value FROM counters WHERE name = 'games'`).Scan(&seq); err != nil {
		t.Fatalf("reading games counter: %v", err)
	}
	if seq != 0 {
		t.Errorf("games counter = %d, want 0", seq)
	}
}

func TestMigrationsIdempotent(t *testing.T) {
	ctx := context.Background()
	db, err := database.Open(ctx, ":memory:")
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	defer db.Close()

	if _, err := migrations.Run(ctx, db); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if _, err := migrations.Run(ctx, db); err != nil {
		t.Fatalf("second run (should be no-op): %v", err)
	}
}
