package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-lambda-go/events"

	"github.com/kirillkom/document-classifier/internal/core/ports"
	"github.com/kirillkom/document-classifier/internal/infrastructure/s3event"
)

type handler struct {
	ingestor ports.DocumentIngestor
}

func newHandler(ingestor ports.DocumentIngestor) handler {
	return handler{ingestor: ingestor}
}

// handle processes every record of the notification. Failed records are
// returned as one joined error so the invocation is marked failed.
func (h handler) handle(ctx context.Context, evt events.S3Event) error {
	docs := s3event.ToDocumentEvents(evt)
	report := h.ingestor.HandleBatch(ctx, docs)

	slog.Info("batch_processed",
		"records", len(docs),
		"succeeded", report.Succeeded(),
		"failed", len(report.Failures()),
	)
	if err := report.Err(); err != nil {
		return fmt.Errorf("%d of %d documents failed: %w", len(report.Failures()), len(docs), err)
	}
	return nil
}
