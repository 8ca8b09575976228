package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kirillkom/document-classifier/internal/core/domain"
	"github.com/kirillkom/document-classifier/internal/core/ports"
)

// IngestDocumentUseCase runs extraction, analysis and persistence per event.
type IngestDocumentUseCase struct {
	extractor ports.TextExtractor
	analyzer  ports.TextAnalyzer
	store     ports.ResultStore
	observer  ports.IngestObserver

	now func() time.Time
}

func NewIngestDocumentUseCase(
	extractor ports.TextExtractor,
	analyzer ports.TextAnalyzer,
	store ports.ResultStore,
	observer ports.IngestObserver,
) *IngestDocumentUseCase {
	return &IngestDocumentUseCase{
		extractor: extractor,
		analyzer:  analyzer,
		store:     store,
		observer:  observer,
		now:       time.Now,
	}
}

// HandleBatch processes every event independently; a failing event never
// stops its siblings.
func (uc *IngestDocumentUseCase) HandleBatch(ctx context.Context, events []domain.DocumentEvent) domain.BatchReport {
	report := domain.BatchReport{Results: make([]domain.EventResult, 0, len(events))}
	for _, event := range events {
		report.Results = append(report.Results, uc.handleOne(ctx, event))
	}
	return report
}

func (uc *IngestDocumentUseCase) handleOne(ctx context.Context, event domain.DocumentEvent) domain.EventResult {
	if uc.observer != nil {
		uc.observer.StartDocument()
	}
	start := time.Now()

	record, err := uc.Process(ctx, event)

	if uc.observer != nil {
		uc.observer.FinishDocument(time.Since(start), err)
	}

	result := domain.EventResult{Event: event, DocumentID: record.DocumentID, Record: record, Err: err}
	if err != nil {
		slog.Warn("document_failed",
			"container", event.Container,
			"key", event.ObjectKey,
			"document_id", record.DocumentID,
			"error", err,
		)
		return result
	}
	slog.Info("document_ingested",
		"document_id", record.DocumentID,
		"sentiment", string(record.Sentiment),
		"entities", len(record.Entities),
	)
	return result
}

// Process runs the pipeline for one event. On failure the returned record
// still carries the derived DocumentID when it could be computed.
func (uc *IngestDocumentUseCase) Process(ctx context.Context, event domain.DocumentEvent) (domain.AnalysisRecord, error) {
	container, key, documentID, err := event.Location()
	if err != nil {
		return domain.AnalysisRecord{}, err
	}
	record := domain.AnalysisRecord{DocumentID: documentID}

	text, err := uc.extractor.Extract(ctx, container, key)
	if err != nil {
		return record, fmt.Errorf("extract %s: %w", documentID, err)
	}

	analysis, err := uc.analyzer.Analyze(ctx, text)
	if err != nil {
		return record, fmt.Errorf("analyze %s: %w", documentID, err)
	}

	record.Sentiment = analysis.Sentiment
	record.Entities = analysis.Entities
	record.IngestedAt = uc.now().Unix()

	if err := uc.store.Put(ctx, record); err != nil {
		return record, fmt.Errorf("store %s: %w", documentID, err)
	}
	return record, nil
}
