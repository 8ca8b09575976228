package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kirillkom/document-classifier/internal/config"
	"github.com/kirillkom/document-classifier/internal/core/domain"
	"github.com/kirillkom/document-classifier/internal/core/usecase"
	"github.com/kirillkom/document-classifier/internal/core/value"
	"github.com/kirillkom/document-classifier/internal/infrastructure/repository/sqlite"
	"github.com/kirillkom/document-classifier/internal/observability/metrics"
)

type readerFake struct {
	items     map[string]value.Value
	err       error
	requested []string
}

func (f *readerFake) GetByID(_ context.Context, documentID string) (value.Value, error) {
	f.requested = append(f.requested, documentID)
	if f.err != nil {
		return value.Value{}, f.err
	}
	item, ok := f.items[documentID]
	if !ok {
		return value.Value{}, domain.WrapError(domain.ErrDocumentNotFound, "get", errors.New(documentID))
	}
	return item, nil
}

func sampleItem(documentID string) value.Value {
	return value.Map(map[string]value.Value{
		domain.AttrDocumentID: value.String(documentID),
		domain.AttrSentiment:  value.String("POSITIVE"),
		domain.AttrEntities:   value.Strings([]string{"Acme"}),
		domain.AttrIngestedAt: value.Int(1700000000),
	})
}

func serve(handler http.Handler, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestGetDocumentDecodesPercentEncodedPath(t *testing.T) {
	reader := &readerFake{items: map[string]value.Value{"s3://bucket/file.pdf": sampleItem("s3://bucket/file.pdf")}}
	handler := NewRouter(config.Config{}, reader, nil).Handler()

	rec := serve(handler, "/doc/s3%3A%2F%2Fbucket%2Ffile.pdf")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(reader.requested) != 1 || reader.requested[0] != "s3://bucket/file.pdf" {
		t.Fatalf("expected decoded identifier, got %v", reader.requested)
	}
	if got := rec.Header().Get("Content-Type"); got != "application/json" {
		t.Fatalf("expected application/json, got %q", got)
	}
	want := `{"document_id":"s3://bucket/file.pdf","entities":["Acme"],"ingested_at":1700000000,"sentiment":"POSITIVE"}`
	if rec.Body.String() != want {
		t.Fatalf("expected %s, got %s", want, rec.Body.String())
	}
}

func TestGetDocumentKeepsEncodedSpecialCharacters(t *testing.T) {
	id := "s3://docs/reports/q1 summary+(2024).pdf"
	reader := &readerFake{items: map[string]value.Value{id: sampleItem(id)}}
	handler := NewRouter(config.Config{}, reader, nil).Handler()

	rec := serve(handler, "/doc/s3%3A%2F%2Fdocs%2Freports%2Fq1%20summary%2B%282024%29.pdf")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if reader.requested[0] != id {
		t.Fatalf("expected %q, got %q", id, reader.requested[0])
	}
}

func TestGetDocumentDecodesPathOnce(t *testing.T) {
	percent := "s3://docs/100%.pdf"
	escapedSlash := "s3://docs/a%2Fb.pdf"
	reader := &readerFake{items: map[string]value.Value{
		percent:      sampleItem(percent),
		escapedSlash: sampleItem(escapedSlash),
	}}
	handler := NewRouter(config.Config{}, reader, nil).Handler()

	tests := []struct {
		target string
		want   string
	}{
		{"/doc/s3%3A%2F%2Fdocs%2F100%25.pdf", percent},
		{"/doc/s3://docs/100%25.pdf", percent},
		{"/doc/s3://docs/a%252Fb.pdf", escapedSlash},
	}
	for _, tc := range tests {
		reader.requested = nil
		rec := serve(handler, tc.target)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d: %s", tc.target, rec.Code, rec.Body.String())
		}
		if len(reader.requested) != 1 || reader.requested[0] != tc.want {
			t.Fatalf("%s: expected lookup of %q, got %v", tc.target, tc.want, reader.requested)
		}
	}
}

func TestGetDocumentAcceptsQueryParameter(t *testing.T) {
	reader := &readerFake{items: map[string]value.Value{"s3://bucket/file.pdf": sampleItem("s3://bucket/file.pdf")}}
	handler := NewRouter(config.Config{}, reader, nil).Handler()

	rec := serve(handler, "/doc?document_id=s3%3A%2F%2Fbucket%2Ffile.pdf")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if reader.requested[0] != "s3://bucket/file.pdf" {
		t.Fatalf("unexpected identifier %q", reader.requested[0])
	}
}

func TestGetDocumentNotFoundIsPlainText(t *testing.T) {
	handler := NewRouter(config.Config{}, &readerFake{}, nil).Handler()

	rec := serve(handler, "/doc/s3%3A%2F%2Fbucket%2Fmissing.pdf")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Fatalf("expected plain text, got %q", ct)
	}
	if json.Valid(rec.Body.Bytes()) {
		t.Fatalf("404 body must not be JSON: %s", rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "s3://bucket/missing.pdf") {
		t.Fatalf("expected identifier in body, got %q", rec.Body.String())
	}
}

func TestGetDocumentMissingIDReturnsBadRequest(t *testing.T) {
	reader := &readerFake{}
	handler := NewRouter(config.Config{}, reader, nil).Handler()

	for _, target := range []string{"/doc", "/doc/", "/doc?document_id=%20"} {
		rec := serve(handler, target)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", target, rec.Code)
		}
		body := rec.Body.String()
		if !strings.Contains(body, "/doc/{percent-encoded document id}") || !strings.Contains(body, "document_id=") {
			t.Fatalf("%s: expected both calling forms in message, got %q", target, body)
		}
	}
	if len(reader.requested) != 0 {
		t.Fatalf("store must not be called without an id")
	}
}

func TestGetDocumentBackendErrorReturnsServerError(t *testing.T) {
	reader := &readerFake{err: domain.WrapError(domain.ErrStoreUnavailable, "get", errors.New("connection refused"))}
	handler := NewRouter(config.Config{}, reader, nil).Handler()

	rec := serve(handler, "/doc/s3%3A%2F%2Fbucket%2Ffile.pdf")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "connection refused") {
		t.Fatalf("expected error detail, got %q", rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Fatalf("expected plain text, got %q", ct)
	}
}

func TestGetDocumentRejectsOtherMethods(t *testing.T) {
	handler := NewRouter(config.Config{}, &readerFake{}, nil).Handler()

	req := httptest.NewRequest(http.MethodPost, "/doc/abc", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}

func TestRouterSetsRequestID(t *testing.T) {
	handler := NewRouter(config.Config{}, &readerFake{}, nil).Handler()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(requestIDHeader, "req-42")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Header().Get(requestIDHeader) != "req-42" {
		t.Fatalf("expected request id echoed, got %q", rec.Header().Get(requestIDHeader))
	}
}

func TestRouterRecordsLookupOutcomes(t *testing.T) {
	httpMetrics := metrics.NewHTTPServerMetrics(serviceName)
	handler := NewRouter(config.Config{}, &readerFake{}, httpMetrics).Handler()

	serve(handler, "/doc/s3%3A%2F%2Fbucket%2Fmissing.pdf")
	rec := serve(handler, "/metrics")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected metrics 200, got %d", rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `docclf_lookup_requests_total{outcome="not_found",service="api"} 1`) {
		t.Fatalf("expected not_found lookup counter, got:\n%s", body)
	}
	if !strings.Contains(string(body), `path="/doc/{document_id}"`) {
		t.Fatalf("expected normalized path label, got:\n%s", body)
	}
}

type staticEngine struct{}

func (staticEngine) Submit(context.Context, string, string) (string, error) { return "job-1", nil }

func (staticEngine) Poll(context.Context, string) (domain.ExtractionJob, error) {
	return domain.ExtractionJob{
		ID:     "job-1",
		Status: domain.JobStatusSucceeded,
		Blocks: []domain.Block{
			{Type: domain.BlockTypeLine, Text: "Hello"},
			{Type: domain.BlockTypeLine, Text: "World"},
		},
	}, nil
}

type staticAnalyzer struct{}

func (staticAnalyzer) DetectLanguage(context.Context, string) (string, error) { return "en", nil }

func (staticAnalyzer) DetectSentiment(context.Context, string, string) (domain.Sentiment, error) {
	return domain.SentimentNeutral, nil
}

func (staticAnalyzer) DetectEntities(context.Context, string, string) ([]domain.Entity, error) {
	return []domain.Entity{{Text: "Hello", Type: "OTHER"}}, nil
}

func TestIngestThenLookupOverHTTP(t *testing.T) {
	ctx := context.Background()
	store, err := sqlite.Open(ctx, ":memory:", "document_analysis")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()

	ingest := usecase.NewIngestDocumentUseCase(
		usecase.NewTextExtractionUseCase(staticEngine{}, usecase.PollConfig{}, nil),
		usecase.NewTextAnalysisUseCase(staticAnalyzer{}, nil, usecase.PolicyTruncate, 0),
		store,
		nil,
	)
	report := ingest.HandleBatch(ctx, []domain.DocumentEvent{{Container: "docs", ObjectKey: "a.pdf"}})
	if err := report.Err(); err != nil {
		t.Fatalf("HandleBatch() error = %v", err)
	}

	handler := NewRouter(config.Config{}, usecase.NewLookupUseCase(store), nil).Handler()
	rec := serve(handler, "/doc/s3%3A%2F%2Fdocs%2Fa.pdf")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	decoder := json.NewDecoder(rec.Body)
	decoder.UseNumber()
	var body map[string]any
	if err := decoder.Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["document_id"] != "s3://docs/a.pdf" || body["sentiment"] != "NEUTRAL" {
		t.Fatalf("unexpected record %v", body)
	}
	entities, ok := body["entities"].([]any)
	if !ok || len(entities) != 1 || entities[0] != "Hello" {
		t.Fatalf("unexpected entities %v", body["entities"])
	}
	ingestedAt, ok := body["ingested_at"].(json.Number)
	if !ok {
		t.Fatalf("expected numeric ingested_at, got %T", body["ingested_at"])
	}
	if _, err := ingestedAt.Int64(); err != nil {
		t.Fatalf("expected integer ingested_at, got %s", ingestedAt)
	}
}
