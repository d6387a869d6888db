package shared

import (
	"path/filepath"
	"testing"
)

func TestOpenDatabase(t *testing.T) {
	t.Run("file database is migrated", func(t *testing.T) {
		conf := DatabaseConfig{Path: filepath.Join(t.TempDir(), "thumbx.db"), MaxOpenConns: 2, MaxIdleConns: 1}

		db, err := OpenDatabase(conf)
		if err != nil {
			t.Fatalf("OpenDatabase() error = %v", err)
		}
		defer db.Close()

		if got := db.Stats().MaxOpenConnections; got != 2 {
			t.Errorf("expected max open conns 2, got %d", got)
		}

		var value int
		if err := db.QueryRow("SELECT value FROM jobs_sequence WHERE id = 1").Scan(&value); err != nil {
			t.Fatalf("jobs_sequence should be seeded: %v", err)
		}
	})

	t.Run("memory database uses one connection", func(t *testing.T) {
		db, err := OpenDatabase(DatabaseConfig{Path: ":memory:", MaxOpenConns: 10})
		if err != nil {
			t.Fatalf("OpenDatabase() error = %v", err)
		}
		defer db.Close()

		if got := db.Stats().MaxOpenConnections; got != 1 {
			t.Errorf("expected max open conns 1, got %d", got)
		}
	})
}
