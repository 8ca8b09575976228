package ports

import (
	"context"
	"time"

	"github.com/kirillkom/document-classifier/internal/core/domain"
	"github.com/kirillkom/document-classifier/internal/core/value"
)

// ExtractionEngine is the asynchronous text extraction collaborator.
type ExtractionEngine interface {
	Submit(ctx context.Context, container, key string) (jobID string, err error)
	Poll(ctx context.Context, jobID string) (domain.ExtractionJob, error)
}

// LanguageAnalyzer is the language/sentiment/entity collaborator.
type LanguageAnalyzer interface {
	DetectLanguage(ctx context.Context, text string) (string, error)
	DetectSentiment(ctx context.Context, text, languageCode string) (domain.Sentiment, error)
	DetectEntities(ctx context.Context, text, languageCode string) ([]domain.Entity, error)
}

// ResultStore persists analysis records keyed by document id.
// Get returns ErrDocumentNotFound or ErrStoreUnavailable kinds on failure.
type ResultStore interface {
	Put(ctx context.Context, record domain.AnalysisRecord) error
	Get(ctx context.Context, documentID string) (value.Value, error)
}

// BatchHandler processes one delivered batch of document events.
type BatchHandler func(ctx context.Context, events []domain.DocumentEvent) domain.BatchReport

// EventSubscriber delivers trigger batches until ctx is done.
type EventSubscriber interface {
	Subscribe(ctx context.Context, handler BatchHandler) error
	Close()
}

// EventPublisher emits storage notifications, used by operator tooling.
type EventPublisher interface {
	PublishDocumentEvents(ctx context.Context, events []domain.DocumentEvent) error
}

// IngestObserver receives pipeline measurements.
type IngestObserver interface {
	StartDocument()
	FinishDocument(duration time.Duration, err error)
	ObserveExtractionPolls(polls int)
}

// Chunker splits text into bounded pieces.
type Chunker interface {
	Split(text string) []string
}
