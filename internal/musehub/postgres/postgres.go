// Package postgres is the durable pgx-backed implementation of
// musehub.Store, built on the dbresolver primary/replica pool from
// pkg/mpostgres.
package postgres

import (
	"encoding/json"
	"errors"
	"fmt"

	sqrl "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/cgcardona/maestro/internal/musehub"
	"github.com/cgcardona/maestro/pkg/merrors"
	"github.com/cgcardona/maestro/pkg/mpostgres"
)

const pgUniqueViolation = "23505"

var _ musehub.Store = (*Store)(nil)

// Store is a musehub.Store backed by Postgres.
type Store struct {
	conn *mpostgres.Connection
}

// New returns a Store using the given connection. Connect must already
// have been called, or GetDB will connect lazily on first use.
func New(conn *mpostgres.Connection) *Store {
	return &Store{conn: conn}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}

	return false
}

func marshalMap(m map[string]any) ([]byte, error) {
	if m == nil {
		return []byte("{}"), nil
	}

	return json.Marshal(m)
}

func unmarshalMap(raw []byte) (map[string]any, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("postgres: unmarshal jsonb: %w", err)
	}

	return m, nil
}

func notFound(entityType, message string) error {
	return merrors.NotFoundError{EntityType: entityType, Message: message}
}

var psql = sqrl.StatementBuilder.PlaceholderFormat(sqrl.Dollar)
