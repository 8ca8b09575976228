package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/document-classifier/internal/core/domain"
	"github.com/kirillkom/document-classifier/internal/core/ports"
	"github.com/kirillkom/document-classifier/internal/infrastructure/resilience"
	"github.com/kirillkom/document-classifier/internal/infrastructure/s3event"
)

const queueGroup = "ingest-workers"

// Queue carries S3-style notifications on subject and failure reports on
// subject + ".failed".
type Queue struct {
	conn    *nats.Conn
	subject string
	guard   *resilience.Guard
}

type Options struct {
	ClientName           string
	ConnectTimeout       time.Duration
	ReconnectWait        time.Duration
	MaxReconnects        int
	RetryOnFailedConnect *bool
	Guard                *resilience.Guard
}

func NewWithOptions(url, subject string, options Options) (*Queue, error) {
	connectTimeout := options.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 2 * time.Second
	}
	reconnectWait := options.ReconnectWait
	if reconnectWait <= 0 {
		reconnectWait = 2 * time.Second
	}
	maxReconnects := options.MaxReconnects
	if maxReconnects <= 0 {
		maxReconnects = 60
	}
	retryOnFailedConnect := true
	if options.RetryOnFailedConnect != nil {
		retryOnFailedConnect = *options.RetryOnFailedConnect
	}
	name := options.ClientName
	if name == "" {
		name = "document-classifier"
	}

	conn, err := nats.Connect(
		url,
		nats.Name(name),
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
		nats.RetryOnFailedConnect(retryOnFailedConnect),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			slog.Warn("nats_disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			slog.Info("nats_reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &Queue{
		conn:    conn,
		subject: subject,
		guard:   options.Guard,
	}, nil
}

func (q *Queue) Close() {
	if q.conn != nil {
		q.conn.Close()
	}
}

func (q *Queue) FailureSubject() string { return q.subject + ".failed" }

func (q *Queue) PublishDocumentEvents(ctx context.Context, events []domain.DocumentEvent) error {
	payload, err := s3event.Encode(events, time.Now())
	if err != nil {
		return err
	}
	return q.publish(ctx, q.subject, payload)
}

func (q *Queue) publish(ctx context.Context, subject string, payload []byte) error {
	err := q.guard.Execute(ctx, "nats_publish", func(_ context.Context) error {
		if err := q.conn.Publish(subject, payload); err != nil {
			return fmt.Errorf("nats publish: %w", err)
		}
		return nil
	}, recordNATSFailure)
	return wrapTemporaryIfNeeded(err)
}

// Subscribe handles each message as one batch until ctx is done, then
// drains the subscription.
func (q *Queue) Subscribe(ctx context.Context, handler ports.BatchHandler) error {
	sub, err := q.conn.QueueSubscribe(q.subject, queueGroup, func(msg *nats.Msg) {
		if ctx.Err() != nil {
			return
		}
		for _, payload := range handleMessage(ctx, msg.Data, handler, time.Now()) {
			if err := q.publish(ctx, q.FailureSubject(), payload); err != nil {
				slog.Error("failure_report_publish_failed", "subject", q.FailureSubject(), "error", err)
			}
		}
	})
	if err != nil {
		return fmt.Errorf("nats subscribe: %w", err)
	}

	if err := q.conn.Flush(); err != nil {
		return fmt.Errorf("nats flush: %w", err)
	}

	<-ctx.Done()
	if err := sub.Drain(); err != nil {
		return fmt.Errorf("nats drain subscription: %w", err)
	}
	if err := q.conn.FlushTimeout(5 * time.Second); err != nil {
		return fmt.Errorf("nats flush after drain: %w", err)
	}
	return nil
}

// handleMessage runs one delivered notification and returns the encoded
// failure reports to publish.
func handleMessage(ctx context.Context, data []byte, handler ports.BatchHandler, at time.Time) [][]byte {
	events, err := s3event.Decode(data)
	var reports []domain.FailureReport
	if err != nil {
		slog.Warn("notification_rejected", "error", err)
		reports = []domain.FailureReport{{Error: err.Error(), FailedAt: at.UTC()}}
	} else {
		reports = handler(ctx, events).FailureReports(at)
	}

	out := make([][]byte, 0, len(reports))
	for _, report := range reports {
		raw, err := json.Marshal(report)
		if err != nil {
			slog.Error("failure_report_encode_failed", "document_id", report.DocumentID, "error", err)
			continue
		}
		out = append(out, raw)
	}
	return out
}
