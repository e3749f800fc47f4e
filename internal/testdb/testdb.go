// Package testdb provides a shared test database helper backed by a
// temporary SQLite file.
package testdb

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/MekdelawitGebre/customer-experience-fintech/infrastructure/persistence"
	"github.com/MekdelawitGebre/customer-experience-fintech/internal/database"
)

// New creates a SQLite database with the schema applied. The database is
// closed when the test finishes.
func New(t *testing.T) database.Database {
	t.Helper()
	db := NewPlain(t)
	if err := persistence.AutoMigrate(db); err != nil {
		t.Fatalf("testdb.New: auto migrate: %v", err)
	}
	return db
}

// NewPlain creates a SQLite database without the schema.
func NewPlain(t *testing.T) database.Database {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := database.NewDatabase(context.Background(), "sqlite:///"+path)
	if err != nil {
		t.Fatalf("testdb.NewPlain: open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// URL returns a sqlite URL for a fresh file in a temporary directory.
func URL(t *testing.T) string {
	t.Helper()
	return "sqlite:///" + filepath.Join(t.TempDir(), "test.db")
}
