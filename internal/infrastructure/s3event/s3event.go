// Package s3event converts S3-style object notifications (also emitted by
// MinIO) to and from document events.
package s3event

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-lambda-go/events"

	"github.com/kirillkom/document-classifier/internal/core/domain"
)

const (
	eventSource  = "aws:s3"
	eventName    = "ObjectCreated:Put"
	eventVersion = "2.1"
)

// ToDocumentEvents keeps object keys exactly as delivered (still encoded).
func ToDocumentEvents(evt events.S3Event) []domain.DocumentEvent {
	out := make([]domain.DocumentEvent, 0, len(evt.Records))
	for _, rec := range evt.Records {
		out = append(out, domain.DocumentEvent{
			Container: rec.S3.Bucket.Name,
			ObjectKey: rec.S3.Object.Key,
		})
	}
	return out
}

func Decode(payload []byte) ([]domain.DocumentEvent, error) {
	var evt events.S3Event
	if err := json.Unmarshal(payload, &evt); err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "decode s3 notification", err)
	}
	return ToDocumentEvents(evt), nil
}

// FromDocumentEvents builds a notification for already encoded keys.
func FromDocumentEvents(docs []domain.DocumentEvent, at time.Time) events.S3Event {
	evt := events.S3Event{Records: make([]events.S3EventRecord, 0, len(docs))}
	for _, doc := range docs {
		evt.Records = append(evt.Records, events.S3EventRecord{
			EventVersion: eventVersion,
			EventSource:  eventSource,
			EventTime:    at.UTC(),
			EventName:    eventName,
			S3: events.S3Entity{
				SchemaVersion: "1.0",
				Bucket:        events.S3Bucket{Name: doc.Container, Arn: "arn:aws:s3:::" + doc.Container},
				Object:        events.S3Object{Key: doc.ObjectKey},
			},
		})
	}
	return evt
}

func Encode(docs []domain.DocumentEvent, at time.Time) ([]byte, error) {
	raw, err := json.Marshal(FromDocumentEvents(docs, at))
	if err != nil {
		return nil, fmt.Errorf("encode s3 notification: %w", err)
	}
	return raw, nil
}
