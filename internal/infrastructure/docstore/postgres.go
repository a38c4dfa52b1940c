package docstore

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fastygo/taskledger/domain"
)

// PostgresStore keeps the ledger document as a JSONB row guarded by an optimistic version.
type PostgresStore struct {
	pool *pgxpool.Pool
	name string
}

// NewPostgres returns a Postgres-backed document store. The ledger_documents
// table is created by the migrations in assets/migrations.
func NewPostgres(pool *pgxpool.Pool, name string) *PostgresStore {
	if name == "" {
		name = "default"
	}
	return &PostgresStore{pool: pool, name: name}
}

func (s *PostgresStore) Load(ctx context.Context) (*Document, error) {
	const query = `
	SELECT version, body
	FROM ledger_documents
	WHERE name = $1
	`
	var (
		version int
		body    []byte
	)
	if err := s.pool.QueryRow(ctx, query, s.name).Scan(&version, &body); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return NewDocument(), nil
		}
		return nil, err
	}
	doc, err := decode(body)
	if err != nil {
		return nil, err
	}
	doc.Version = version
	return doc, nil
}

func (s *PostgresStore) Save(ctx context.Context, doc *Document) error {
	if doc == nil {
		return domain.ErrInvalidPayload
	}

	next := *doc
	next.Version = doc.Version + 1
	body, err := json.Marshal(&next)
	if err != nil {
		return err
	}

	const insert = `
	INSERT INTO ledger_documents (name, version, body, updated_at)
	VALUES ($1, $2, $3, NOW())
	ON CONFLICT (name) DO NOTHING
	`
	const update = `
	UPDATE ledger_documents
	SET version = $2,
		body = $3,
		updated_at = NOW()
	WHERE name = $1 AND version = $4
	`

	var affected int64
	if doc.Version == 0 {
		tag, err := s.pool.Exec(ctx, insert, s.name, next.Version, body)
		if err != nil {
			return err
		}
		affected = tag.RowsAffected()
	} else {
		tag, err := s.pool.Exec(ctx, update, s.name, next.Version, body, doc.Version)
		if err != nil {
			return err
		}
		affected = tag.RowsAffected()
	}
	if affected == 0 {
		return domain.ErrVersionConflict
	}

	doc.Version = next.Version
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close is a no-op; the pool is owned and closed by the caller.
func (s *PostgresStore) Close() error {
	return nil
}

var _ Backend = (*PostgresStore)(nil)
