// Package integrationtest provides db helpers used in integration tests.
package integrationtest

import (
	"database/sql"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/go-petr/bank-ledger/cmd/httpserver"
	"github.com/go-petr/bank-ledger/internal/events"
	"github.com/go-petr/bank-ledger/internal/middleware"
	"github.com/go-petr/bank-ledger/pkg/configpkg"
	"github.com/go-petr/bank-ledger/pkg/dbpkg"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	configPath   = "../../configs"
	migrationURL = "file://../../configs/db/migration"
)

// LoadConfig loads the test configuration.
func LoadConfig(t *testing.T) configpkg.Config {
	t.Helper()

	config, err := configpkg.Load(configPath)
	if err != nil {
		t.Fatalf(`configpkg.Load(%q) returned error: %v`, configPath, err)
	}

	return config
}

// SetupServer returns test server backed by the test database and an in-memory redis.
// The database is cleaned up after the test.
func SetupServer(t *testing.T) (*httpserver.Server, *miniredis.Miniredis) {
	t.Helper()

	config := LoadConfig(t)

	zerolog.SetGlobalLevel(zerolog.FatalLevel)

	logger := middleware.CreateLogger(config)

	db := SetupDB(t, config.DBDriver, config.DBSource)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	gin.SetMode(gin.ReleaseMode)

	server, err := httpserver.New(db, rdb, events.NopPublisher{}, logger, config)
	if err != nil {
		t.Fatalf(`httpserver.New(db, rdb, publisher, logger, config) returned error: %v`, err)
	}

	return server, mr
}

// Flush flushes all db tables without droping.
func Flush(t *testing.T, db *sql.DB) {
	t.Helper()

	var tables string

	const query = `
	SELECT string_agg(table_name, ', ')
	FROM information_schema.tables
	WHERE table_schema='public' AND table_name <> 'schema_migrations';`

	row := db.QueryRow(query)

	err := row.Scan(&tables)
	if err != nil {
		t.Fatalf("db cleanup failed. err: %v", err)
	}

	if _, err := db.Exec(`TRUNCATE TABLE ` + tables + " CASCADE"); err != nil {
		t.Fatalf("db cleanup failed. err: %v", err)
	}
}

// SetupDB sets up connection with migrated database for testing and then cleans it.
func SetupDB(t *testing.T, driver, source string) *sql.DB {
	t.Helper()

	db, err := dbpkg.Setup(driver, source)
	if err != nil {
		t.Fatalf("db initialization failed. err: %v", err)
	}

	if _, err := dbpkg.Migrate(db, migrationURL); err != nil {
		t.Fatalf("db migration failed. err: %v", err)
	}

	t.Cleanup(func() {
		Flush(t, db)

		if err := db.Close(); err != nil {
			t.Fatalf("db cleanup failed. err: %v", err)
		}
	})

	return db
}

// SetupTX sets up a database transaction to be used in tests.
//
// Once the tests are done it will rollback the transaction.
func SetupTX(t *testing.T, driver, source string) *sql.Tx {
	t.Helper()

	db, err := dbpkg.Setup(driver, source)
	if err != nil {
		t.Fatalf("db initialization failed. err: %v", err)
	}

	if _, err := dbpkg.Migrate(db, migrationURL); err != nil {
		t.Fatalf("db migration failed. err: %v", err)
	}

	tx, err := db.Begin()
	if err != nil {
		t.Fatalf("db.Begin() failed: %v", err)
	}

	t.Cleanup(func() {
		if err := tx.Rollback(); err != nil {
			t.Fatalf("tx.Rollback() failed: %v", err)
		}
		if err := db.Close(); err != nil {
			t.Fatalf("db.Close() failed: %v", err)
		}
	})

	return tx
}
