package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/kirillkom/document-classifier/internal/core/domain"
	"github.com/kirillkom/document-classifier/internal/core/ports"
	"github.com/kirillkom/document-classifier/internal/infrastructure/s3event"
)

type Config struct {
	Brokers []string
	Topic   string
	GroupID string
}

// Queue consumes notifications from Topic with manual commits and writes
// failure reports to Topic + "_dlq".
type Queue struct {
	cfg       Config
	reader    messageReader
	dlqWriter messageWriter
	writer    messageWriter
}

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

func New(cfg Config) *Queue {
	return &Queue{
		cfg: cfg,
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:        cfg.Brokers,
			Topic:          cfg.Topic,
			GroupID:        cfg.GroupID,
			MinBytes:       1e3,
			MaxBytes:       10e6,
			CommitInterval: 0, // manual commit only
		}),
		dlqWriter: &kafka.Writer{
			Addr:        kafka.TCP(cfg.Brokers...),
			Topic:       cfg.DLQTopic(),
			MaxAttempts: 3,
		},
		writer: &kafka.Writer{
			Addr:     kafka.TCP(cfg.Brokers...),
			Topic:    cfg.Topic,
			Balancer: &kafka.Hash{},
		},
	}
}

func (c Config) DLQTopic() string { return c.Topic + "_dlq" }

func (q *Queue) Close() {
	for _, closer := range []interface{ Close() error }{q.reader, q.dlqWriter, q.writer} {
		if err := closer.Close(); err != nil {
			slog.Warn("kafka_close_failed", "error", err)
		}
	}
}

func (q *Queue) PublishDocumentEvents(ctx context.Context, events []domain.DocumentEvent) error {
	payload, err := s3event.Encode(events, time.Now())
	if err != nil {
		return err
	}
	var key []byte
	if len(events) > 0 {
		key = []byte(events[0].Container)
	}
	if err := q.writer.WriteMessages(ctx, kafka.Message{Key: key, Value: payload}); err != nil {
		return domain.WrapError(domain.ErrTemporary, "kafka publish", err)
	}
	return nil
}

// Subscribe processes one message at a time until ctx is done. A message
// is committed only after its failure reports reached the DLQ; when the DLQ
// write fails Subscribe returns with the message uncommitted, so the group
// redelivers it to the next consumer.
func (q *Queue) Subscribe(ctx context.Context, handler ports.BatchHandler) error {
	slog.Info("kafka_consumer_started",
		"topic", q.cfg.Topic,
		"group", q.cfg.GroupID,
		"dlq_topic", q.cfg.DLQTopic(),
	)
	for {
		msg, err := q.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return fmt.Errorf("kafka fetch: %w", err)
		}

		dlq := dlqMessages(msg, failureReports(ctx, msg.Value, handler, time.Now()), time.Now())
		if len(dlq) > 0 {
			if err := q.dlqWriter.WriteMessages(ctx, dlq...); err != nil {
				slog.Error("dlq_write_failed",
					"partition", msg.Partition,
					"offset", msg.Offset,
					"reports", len(dlq),
					"error", err,
				)
				return fmt.Errorf("kafka dlq write at partition %d offset %d: %w", msg.Partition, msg.Offset, err)
			}
		}
		if err := q.reader.CommitMessages(ctx, msg); err != nil {
			slog.Error("kafka_commit_failed", "offset", msg.Offset, "error", err)
		}
	}
}

func failureReports(ctx context.Context, payload []byte, handler ports.BatchHandler, at time.Time) []domain.FailureReport {
	events, err := s3event.Decode(payload)
	if err != nil {
		slog.Warn("notification_rejected", "error", err)
		return []domain.FailureReport{{Error: err.Error(), FailedAt: at.UTC()}}
	}
	return handler(ctx, events).FailureReports(at)
}

// dlqMessages wraps each report with the origin coordinates of msg.
func dlqMessages(msg kafka.Message, reports []domain.FailureReport, at time.Time) []kafka.Message {
	out := make([]kafka.Message, 0, len(reports))
	for _, report := range reports {
		value, err := json.Marshal(report)
		if err != nil {
			slog.Error("failure_report_encode_failed", "document_id", report.DocumentID, "error", err)
			continue
		}
		headers := append([]kafka.Header{}, msg.Headers...)
		headers = append(headers,
			kafka.Header{Key: "original_partition", Value: []byte(strconv.Itoa(msg.Partition))},
			kafka.Header{Key: "original_offset", Value: []byte(strconv.FormatInt(msg.Offset, 10))},
			kafka.Header{Key: "error", Value: []byte(report.Error)},
			kafka.Header{Key: "timestamp", Value: []byte(at.UTC().Format(time.RFC3339))},
		)
		out = append(out, kafka.Message{
			Key:     []byte(report.DocumentID),
			Value:   value,
			Headers: headers,
		})
	}
	return out
}
