package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/kirillkom/document-classifier/internal/core/domain"
	"github.com/kirillkom/document-classifier/internal/core/value"
	"github.com/kirillkom/document-classifier/internal/infrastructure/repository"
)

// ResultStore is the single-file backend used for local runs.
type ResultStore struct {
	db    *sql.DB
	table string
}

// Open opens (or creates) the database at path and ensures the table.
// ":memory:" keeps everything on one connection.
func Open(ctx context.Context, path, table string) (*ResultStore, error) {
	if err := repository.ValidateTableName(table); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	if path == ":memory:" || strings.Contains(path, "mode=memory") {
		db.SetMaxOpenConns(1)
	} else if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable wal: %w", err)
	}

	s := &ResultStore{db: db, table: `"` + table + `"`}
	if err := s.ensureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *ResultStore) Close() error {
	return s.db.Close()
}

func (s *ResultStore) ensureSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	document_id TEXT PRIMARY KEY,
	sentiment TEXT NOT NULL,
	entities TEXT NOT NULL DEFAULT '[]',
	ingested_at INTEGER NOT NULL
)`, s.table)
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}
	return nil
}

func (s *ResultStore) Put(ctx context.Context, record domain.AnalysisRecord) error {
	entitiesJSON, err := repository.EncodeEntities(record.Entities)
	if err != nil {
		return fmt.Errorf("marshal entities: %w", err)
	}
	query := fmt.Sprintf(`
INSERT INTO %s (document_id, sentiment, entities, ingested_at)
VALUES (?, ?, ?, ?)
ON CONFLICT(document_id) DO UPDATE
SET sentiment = excluded.sentiment, entities = excluded.entities, ingested_at = excluded.ingested_at
`, s.table)
	if _, err := s.db.ExecContext(ctx, query, record.DocumentID, string(record.Sentiment), string(entitiesJSON), record.IngestedAt); err != nil {
		return domain.WrapError(domain.ErrStoreUnavailable, "upsert analysis record", err)
	}
	return nil
}

func (s *ResultStore) Get(ctx context.Context, documentID string) (value.Value, error) {
	query := fmt.Sprintf(`SELECT document_id, sentiment, entities, ingested_at FROM %s WHERE document_id = ?`, s.table)

	var (
		id, sentiment, entities string
		ingestedAt              int64
	)
	err := s.db.QueryRowContext(ctx, query, documentID).Scan(&id, &sentiment, &entities, &ingestedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return value.Value{}, domain.WrapError(domain.ErrDocumentNotFound, "get analysis record", fmt.Errorf("no record for %s", documentID))
		}
		return value.Value{}, domain.WrapError(domain.ErrStoreUnavailable, "get analysis record", err)
	}

	item, err := repository.RecordValue(id, sentiment, []byte(entities), ingestedAt)
	if err != nil {
		return value.Value{}, domain.WrapError(domain.ErrStoreUnavailable, "decode analysis record", err)
	}
	return item, nil
}
