package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/kirillkom/document-classifier/internal/core/domain"
	"github.com/kirillkom/document-classifier/internal/core/value"
	"github.com/kirillkom/document-classifier/internal/infrastructure/repository"
	"github.com/kirillkom/document-classifier/internal/infrastructure/resilience"
)

// ResultStore keeps analysis records in one table keyed by document_id.
type ResultStore struct {
	db    *sql.DB
	table string
	guard *resilience.Guard
}

func NewResultStore(db *sql.DB, table string, guard *resilience.Guard) (*ResultStore, error) {
	if err := repository.ValidateTableName(table); err != nil {
		return nil, err
	}
	return &ResultStore{
		db:    db,
		table: pgx.Identifier{table}.Sanitize(),
		guard: guard,
	}, nil
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (s *ResultStore) EnsureSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026101701)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	query := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	document_id TEXT PRIMARY KEY,
	sentiment TEXT NOT NULL,
	entities JSONB NOT NULL DEFAULT '[]'::jsonb,
	ingested_at BIGINT NOT NULL
)`, s.table)
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

// Put overwrites any previous record for the same document id.
func (s *ResultStore) Put(ctx context.Context, record domain.AnalysisRecord) error {
	entitiesJSON, err := repository.EncodeEntities(record.Entities)
	if err != nil {
		return fmt.Errorf("marshal entities: %w", err)
	}

	query := fmt.Sprintf(`
INSERT INTO %s (document_id, sentiment, entities, ingested_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (document_id) DO UPDATE
SET sentiment = EXCLUDED.sentiment, entities = EXCLUDED.entities, ingested_at = EXCLUDED.ingested_at
`, s.table)

	err = s.guard.Execute(ctx, "postgres_put", func(ctx context.Context) error {
		_, err := s.db.ExecContext(ctx, query, record.DocumentID, string(record.Sentiment), entitiesJSON, record.IngestedAt)
		return err
	}, resilience.RecordUnlessCaller)
	if err != nil {
		return domain.WrapError(domain.ErrStoreUnavailable, "upsert analysis record", err)
	}
	return nil
}

func (s *ResultStore) Get(ctx context.Context, documentID string) (value.Value, error) {
	query := fmt.Sprintf(`
SELECT document_id, sentiment, entities, ingested_at
FROM %s
WHERE document_id = $1
`, s.table)

	var (
		id, sentiment string
		entitiesRaw   []byte
		ingestedAt    int64
	)
	err := s.guard.Execute(ctx, "postgres_get", func(ctx context.Context) error {
		err := s.db.QueryRowContext(ctx, query, documentID).Scan(&id, &sentiment, &entitiesRaw, &ingestedAt)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.WrapError(domain.ErrDocumentNotFound, "get analysis record", fmt.Errorf("no record for %s", documentID))
		}
		return err
	}, resilience.RecordUnlessCaller)
	if err != nil {
		if domain.IsKind(err, domain.ErrDocumentNotFound) {
			return value.Value{}, err
		}
		return value.Value{}, domain.WrapError(domain.ErrStoreUnavailable, "get analysis record", err)
	}

	item, err := repository.RecordValue(id, sentiment, entitiesRaw, ingestedAt)
	if err != nil {
		return value.Value{}, domain.WrapError(domain.ErrStoreUnavailable, "decode analysis record", err)
	}
	return item, nil
}
