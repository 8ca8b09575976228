package domain

import (
	"errors"
	"time"
)

// EventResult is the outcome of one event of a batch. Err is nil on success.
type EventResult struct {
	Event      DocumentEvent  `json:"event"`
	DocumentID string         `json:"document_id,omitempty"`
	Record     AnalysisRecord `json:"-"`
	Err        error          `json:"-"`
}

func (r EventResult) Failed() bool { return r.Err != nil }

// BatchReport collects per-event results in batch order.
type BatchReport struct {
	Results []EventResult
}

func (b BatchReport) Failures() []EventResult {
	var out []EventResult
	for _, r := range b.Results {
		if r.Failed() {
			out = append(out, r)
		}
	}
	return out
}

func (b BatchReport) Succeeded() int {
	return len(b.Results) - len(b.Failures())
}

// Err joins every per-event error, or returns nil when the batch fully succeeded.
func (b BatchReport) Err() error {
	var errs []error
	for _, r := range b.Failures() {
		errs = append(errs, r.Err)
	}
	return errors.Join(errs...)
}

// FailureReport is published to a transport's failure channel for every
// abandoned event.
type FailureReport struct {
	DocumentID string    `json:"document_id,omitempty"`
	Container  string    `json:"container"`
	ObjectKey  string    `json:"object_key"`
	Error      string    `json:"error"`
	FailedAt   time.Time `json:"failed_at"`
}

func (b BatchReport) FailureReports(at time.Time) []FailureReport {
	failures := b.Failures()
	out := make([]FailureReport, 0, len(failures))
	for _, r := range failures {
		out = append(out, FailureReport{
			DocumentID: r.DocumentID,
			Container:  r.Event.Container,
			ObjectKey:  r.Event.ObjectKey,
			Error:      r.Err.Error(),
			FailedAt:   at.UTC(),
		})
	}
	return out
}
