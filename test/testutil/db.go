package testutil

import (
	"database/sql"
	"os"
	"testing"

	"github.com/xxxsen/supportrag/internal/config"
	"github.com/xxxsen/supportrag/internal/db"
)

// OpenTestDB connects to the postgres (with pgvector) named by TEST_DB_HOST.
// Tests are skipped when it is unset.
func OpenTestDB(t *testing.T) (*sql.DB, func()) {
	t.Helper()
	host := os.Getenv("TEST_DB_HOST")
	if host == "" {
		t.Skip("TEST_DB_HOST not set, skipping postgres test")
	}
	conn, err := db.Open(config.DatabaseConfig{
		Host:           host,
		Port:           5432,
		User:           "supportrag",
		Password:       "supportrag_pass",
		DBName:         "supportrag_test",
		SSLMode:        "disable",
		ConnectTimeout: 5,
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.ApplyMigrations(conn); err != nil {
		t.Fatalf("migrations: %v", err)
	}
	return conn, func() {
		_ = conn.Close()
	}
}
