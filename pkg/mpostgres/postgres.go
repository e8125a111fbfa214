// Package mpostgres manages a primary/replica pgx connection pool and
// runs golang-migrate migrations against the primary on startup.
package mpostgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"path/filepath"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/bxcodec/dbresolver/v2"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/cgcardona/maestro/pkg/mlog"
)

// Connection owns a dbresolver-backed pool split across a primary and an
// optional read replica.
type Connection struct {
	PrimaryDSN     string
	ReplicaDSN     string
	DatabaseName   string
	MigrationsPath string
	Logger         mlog.Logger

	db        *dbresolver.DB
	Connected bool
}

// Connect opens the primary and replica pools, runs pending migrations
// against the primary, and verifies connectivity with a ping.
func (c *Connection) Connect() error {
	logger := c.logger()

	primary, err := sql.Open("pgx", c.PrimaryDSN)
	if err != nil {
		return fmt.Errorf("mpostgres: opening primary: %w", err)
	}

	replicaDSN := c.ReplicaDSN
	if replicaDSN == "" {
		replicaDSN = c.PrimaryDSN
	}

	replica, err := sql.Open("pgx", replicaDSN)
	if err != nil {
		return fmt.Errorf("mpostgres: opening replica: %w", err)
	}

	resolver := dbresolver.New(
		dbresolver.WithPrimaryDBs(primary),
		dbresolver.WithReplicaDBs(replica),
		dbresolver.WithLoadBalancer(dbresolver.RoundRobinLB))

	if c.MigrationsPath != "" {
		if err := c.runMigrations(primary); err != nil {
			return err
		}
	}

	if err := resolver.Ping(); err != nil {
		return fmt.Errorf("mpostgres: ping: %w", err)
	}

	c.db = &resolver
	c.Connected = true

	logger.Info("connected to postgres")

	return nil
}

func (c *Connection) runMigrations(primary *sql.DB) error {
	migrationsPath, err := filepath.Abs(c.MigrationsPath)
	if err != nil {
		return fmt.Errorf("mpostgres: resolving migrations path: %w", err)
	}

	sourceURL := url.URL{Scheme: "file", Path: filepath.ToSlash(migrationsPath)}

	driver, err := postgres.WithInstance(primary, &postgres.Config{
		MultiStatementEnabled: true,
		DatabaseName:          c.DatabaseName,
		SchemaName:            "public",
	})
	if err != nil {
		return fmt.Errorf("mpostgres: building migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(sourceURL.String(), c.DatabaseName, driver)
	if err != nil {
		return fmt.Errorf("mpostgres: loading migrations: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("mpostgres: applying migrations: %w", err)
	}

	return nil
}

// GetDB returns the pool, connecting lazily if necessary.
func (c *Connection) GetDB(_ context.Context) (dbresolver.DB, error) {
	if c.db == nil {
		if err := c.Connect(); err != nil {
			return nil, err
		}
	}

	return *c.db, nil
}

func (c *Connection) logger() mlog.Logger {
	if c.Logger != nil {
		return c.Logger
	}

	return &mlog.NoneLogger{}
}
