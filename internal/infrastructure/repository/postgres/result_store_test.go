package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/kirillkom/document-classifier/internal/core/domain"
	"github.com/kirillkom/document-classifier/internal/core/value"
)

func newStoreWithMock(t *testing.T) (*ResultStore, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	store, err := NewResultStore(db, "document_analysis", nil)
	if err != nil {
		t.Fatalf("NewResultStore() error = %v", err)
	}
	return store, mock, func() { _ = db.Close() }
}

func TestPutUpsertsByDocumentID(t *testing.T) {
	store, mock, done := newStoreWithMock(t)
	defer done()

	mock.ExpectExec(`INSERT INTO "document_analysis" .* ON CONFLICT \(document_id\) DO UPDATE`).
		WithArgs("s3://docs/a.pdf", "NEUTRAL", []byte(`["Hello"]`), int64(1700000000)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.Put(context.Background(), domain.AnalysisRecord{
		DocumentID: "s3://docs/a.pdf",
		Sentiment:  domain.SentimentNeutral,
		Entities:   []string{"Hello"},
		IngestedAt: 1700000000,
	})
	if err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPutReturnsStoreUnavailable(t *testing.T) {
	store, mock, done := newStoreWithMock(t)
	defer done()

	mock.ExpectExec("INSERT INTO").WillReturnError(errors.New("connection refused"))

	err := store.Put(context.Background(), domain.AnalysisRecord{DocumentID: "s3://docs/a.pdf", Sentiment: domain.SentimentNeutral})
	if !domain.IsKind(err, domain.ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
}

func TestGetReturnsDomainNotFound(t *testing.T) {
	store, mock, done := newStoreWithMock(t)
	defer done()

	mock.ExpectQuery("SELECT document_id, sentiment, entities, ingested_at").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := store.Get(context.Background(), "missing")
	if !domain.IsKind(err, domain.ErrDocumentNotFound) {
		t.Fatalf("expected ErrDocumentNotFound, got %v", err)
	}
	if domain.IsKind(err, domain.ErrStoreUnavailable) {
		t.Fatalf("not found must stay distinct from unavailable: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestGetReturnsStoreUnavailableOnQueryError(t *testing.T) {
	store, mock, done := newStoreWithMock(t)
	defer done()

	mock.ExpectQuery("SELECT document_id").WillReturnError(errors.New("timeout"))

	_, err := store.Get(context.Background(), "s3://docs/a.pdf")
	if !domain.IsKind(err, domain.ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
}

func TestGetBuildsRecordTree(t *testing.T) {
	store, mock, done := newStoreWithMock(t)
	defer done()

	rows := sqlmock.NewRows([]string{"document_id", "sentiment", "entities", "ingested_at"}).
		AddRow("s3://docs/a.pdf", "NEUTRAL", []byte(`["Hello"]`), int64(1700000000))
	mock.ExpectQuery("SELECT document_id").WithArgs("s3://docs/a.pdf").WillReturnRows(rows)

	item, err := store.Get(context.Background(), "s3://docs/a.pdf")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	raw, err := value.Normalize(item).MarshalJSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"document_id":"s3://docs/a.pdf","entities":["Hello"],"ingested_at":1700000000,"sentiment":"NEUTRAL"}`
	if string(raw) != want {
		t.Fatalf("expected %s, got %s", want, raw)
	}
}

func TestNewResultStoreRejectsBadTableName(t *testing.T) {
	if _, err := NewResultStore(nil, "analysis; DROP TABLE x", nil); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}
