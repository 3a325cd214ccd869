// Package pgx implements GraphStore on PostgreSQL. Entities and
// relationships live in two tables with jsonb property bags; path
// queries run as a recursive CTE over the edge table.
package pgx

import (
	"context"
	"fmt"

	pgxv5 "github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/chainsight/backend/pkg/store"
)

type pgxIConn interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, optionsAndArgs ...any) (pgxv5.Rows, error)
	QueryRow(ctx context.Context, sql string, optionsAndArgs ...any) pgxv5.Row
	Begin(ctx context.Context) (pgxv5.Tx, error)
}

// GraphDBStore implements the GraphStore interface against Postgres.
type GraphDBStore struct {
	conn pgxIConn
}

var _ store.GraphStore = (*GraphDBStore)(nil)

// NewGraphDBStoreWithConnection wraps an existing connection or pool.
// The caller owns the connection lifecycle; Close is a no-op.
func NewGraphDBStoreWithConnection(conn pgxIConn) *GraphDBStore {
	return &GraphDBStore{conn: conn}
}

// RunMigrations applies the schema migrations in sourceURL (for
// example "file://migrations") against databaseURL.
func RunMigrations(sourceURL, databaseURL string) error {
	m, err := migrate.New(sourceURL, databaseURL)
	if err != nil {
		return fmt.Errorf("failed to init migrations: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}

func (s *GraphDBStore) Reset(ctx context.Context) error {
	_, err := s.conn.Exec(ctx, `TRUNCATE relationships, entities RESTART IDENTITY CASCADE`)
	if err != nil {
		return fmt.Errorf("failed to reset graph: %w", err)
	}
	return nil
}

func (s *GraphDBStore) Close(ctx context.Context) error {
	return nil
}
