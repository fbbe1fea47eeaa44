package db

import (
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migrate applies all pending schema migrations against the database URL.
// ErrNoChange is not an error: a fully migrated schema is the normal case.
func Migrate(databaseURL string) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}
	// The pgx/v5 migrate driver registers the pgx5 scheme; accept the usual
	// postgres:// connection string and rewrite it.
	if rest, ok := strings.CutPrefix(databaseURL, "postgres://"); ok {
		databaseURL = "pgx5://" + rest
	} else if rest, ok := strings.CutPrefix(databaseURL, "postgresql://"); ok {
		databaseURL = "pgx5://" + rest
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, databaseURL)
	if err != nil {
		return fmt.Errorf("open migrator: %w", err)
	}
	defer func() {
		_, _ = m.Close()
	}()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}
