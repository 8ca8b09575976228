package ports

import (
	"context"

	"github.com/kirillkom/document-classifier/internal/core/domain"
	"github.com/kirillkom/document-classifier/internal/core/value"
)

// DocumentIngestor is the inbound contract for triggered document batches.
type DocumentIngestor interface {
	HandleBatch(ctx context.Context, events []domain.DocumentEvent) domain.BatchReport
	Process(ctx context.Context, event domain.DocumentEvent) (domain.AnalysisRecord, error)
}

// AnalysisReader is the inbound read model used by the lookup surfaces.
// The returned tree is already normalized.
type AnalysisReader interface {
	GetByID(ctx context.Context, documentID string) (value.Value, error)
}

// TextExtractor drives one extraction job to completion.
type TextExtractor interface {
	Extract(ctx context.Context, container, key string) (string, error)
}

// TextAnalyzer computes sentiment and entities for extracted text.
type TextAnalyzer interface {
	Analyze(ctx context.Context, text string) (domain.Analysis, error)
}
