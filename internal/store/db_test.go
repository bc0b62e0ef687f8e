package store

import (
	"path/filepath"
	"testing"
)

// setupTestDB creates a migrated database in a temp directory.
func setupTestDB(t *testing.T) *DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.Migrate(); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return db
}

func TestMigrate_Idempotent(t *testing.T) {
	db := setupTestDB(t)

	if err := db.Migrate(); err != nil {
		t.Errorf("second Migrate() error = %v", err)
	}

	var version int
	row := db.QueryRow("SELECT MAX(version) FROM schema_version")
	if err := row.Scan(&version); err != nil {
		t.Fatalf("read schema version: %v", err)
	}
	if version != 3 {
		t.Errorf("schema version = %d, want 3", version)
	}
}

func TestProjects(t *testing.T) {
	db := setupTestDB(t)

	created, err := db.CreateProject("Storefront", "E-commerce revamp")
	if err != nil {
		t.Fatalf("CreateProject() error = %v", err)
	}
	if created.ID == "" {
		t.Error("CreateProject() returned empty id")
	}

	loaded, err := db.GetProject(created.ID)
	if err != nil {
		t.Fatalf("GetProject() error = %v", err)
	}
	if loaded.Name != "Storefront" || loaded.Description != "E-commerce revamp" {
		t.Errorf("GetProject() = %+v, want name/description round-tripped", loaded)
	}

	found, err := db.FindProjectByName("Storefront")
	if err != nil {
		t.Fatalf("FindProjectByName() error = %v", err)
	}
	if found.ID != created.ID {
		t.Errorf("FindProjectByName() id = %s, want %s", found.ID, created.ID)
	}
}

func TestEnsureProject(t *testing.T) {
	db := setupTestDB(t)

	first, err := db.EnsureProject("Inbox")
	if err != nil {
		t.Fatalf("EnsureProject() error = %v", err)
	}
	second, err := db.EnsureProject("Inbox")
	if err != nil {
		t.Fatalf("second EnsureProject() error = %v", err)
	}
	if first.ID != second.ID {
		t.Errorf("EnsureProject() created a duplicate: %s vs %s", first.ID, second.ID)
	}
}
