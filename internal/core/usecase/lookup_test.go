package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/kirillkom/document-classifier/internal/core/domain"
	"github.com/kirillkom/document-classifier/internal/core/value"
)

func TestLookupNormalizesDecimals(t *testing.T) {
	store := newMemoryStoreFake()
	store.records["s3://docs/a.pdf"] = domain.AnalysisRecord{
		DocumentID: "s3://docs/a.pdf",
		Sentiment:  domain.SentimentNeutral,
		Entities:   []string{"Acme"},
		IngestedAt: 1700000000,
	}

	item, err := NewLookupUseCase(store).GetByID(context.Background(), "s3://docs/a.pdf")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	ingested, ok := item.Get(domain.AttrIngestedAt)
	if !ok || ingested.Kind() != value.KindInt {
		t.Fatalf("expected ingested_at as int, got %v", ingested.Kind())
	}
}

func TestLookupErrorKinds(t *testing.T) {
	tests := []struct {
		name   string
		id     string
		getErr error
		want   error
	}{
		{name: "empty id", id: " ", want: domain.ErrInvalidInput},
		{name: "missing", id: "s3://docs/missing.pdf", want: domain.ErrDocumentNotFound},
		{
			name:   "unavailable passes through",
			id:     "s3://docs/a.pdf",
			getErr: domain.WrapError(domain.ErrStoreUnavailable, "get", errors.New("timeout")),
			want:   domain.ErrStoreUnavailable,
		},
		{
			name:   "unclassified becomes unavailable",
			id:     "s3://docs/a.pdf",
			getErr: errors.New("boom"),
			want:   domain.ErrStoreUnavailable,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			store := newMemoryStoreFake()
			store.getErr = tc.getErr
			_, err := NewLookupUseCase(store).GetByID(context.Background(), tc.id)
			if !domain.IsKind(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

type scalarStoreFake struct{ memoryStoreFake }

func (*scalarStoreFake) Get(context.Context, string) (value.Value, error) {
	return value.String("not a record"), nil
}

func TestLookupRejectsNonMapItems(t *testing.T) {
	_, err := NewLookupUseCase(&scalarStoreFake{}).GetByID(context.Background(), "s3://docs/a.pdf")
	if !domain.IsKind(err, domain.ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
}
