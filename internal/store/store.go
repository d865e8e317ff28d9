package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/roach88/formulon/internal/connector"
	"github.com/roach88/formulon/internal/dialect"
)

// Store is an open connection to one backend.
type Store struct {
	db      *sql.DB
	plugin  connector.Plugin
	dialect dialect.Combo
	version string
}

// Open connects to dsn with plugin's driver and resolves the server's
// dialect version.
func Open(ctx context.Context, plugin connector.Plugin, dsn string) (*Store, error) {
	db, err := sql.Open(plugin.DriverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", plugin.Family, err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to %s database: %w", plugin.Family, err)
	}

	if plugin.Family == dialect.SQLite {
		// One connection keeps :memory: databases alive across queries.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		if err := applyPragmas(ctx, db); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply pragmas: %w", err)
		}
	}

	s := &Store{db: db, plugin: plugin}
	if err := s.resolveDialect(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying sql.DB.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Plugin returns the connector the store was opened with.
func (s *Store) Plugin() connector.Plugin {
	return s.plugin
}

// Dialect returns the exact dialect version of the server.
func (s *Store) Dialect() dialect.Combo {
	return s.dialect
}

// ServerVersion returns the version string reported by the server.
func (s *Store) ServerVersion() string {
	return s.version
}

func (s *Store) resolveDialect(ctx context.Context) error {
	if s.plugin.VersionQuery != "" {
		if err := s.db.QueryRowContext(ctx, s.plugin.VersionQuery).Scan(&s.version); err != nil {
			return fmt.Errorf("query %s server version: %w", s.plugin.Family, err)
		}
	}
	d, err := dialect.Resolve(s.plugin.Family, normalizeVersion(s.version))
	if err != nil {
		return err
	}
	s.dialect = d
	return nil
}

// normalizeVersion strips distribution suffixes such as
// "16.2 (Debian 16.2-1)" or "8.0.36-0ubuntu0.22.04.1".
func normalizeVersion(v string) string {
	v = strings.TrimSpace(v)
	if i := strings.IndexAny(v, " -+"); i >= 0 {
		v = v[:i]
	}
	return v
}

func applyPragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// verifyPragma checks that a pragma is set to the expected value.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	query := fmt.Sprintf("PRAGMA %s", name)
	if err := s.db.QueryRow(query).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
