package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/kirillkom/document-classifier/internal/core/domain"
	"github.com/kirillkom/document-classifier/internal/core/value"
)

type engineFake struct {
	submitErr error
	jobs      []domain.ExtractionJob
	pollErr   error

	submitted []string
	polls     int
}

func (f *engineFake) Submit(_ context.Context, container, key string) (string, error) {
	if f.submitErr != nil {
		return "", f.submitErr
	}
	f.submitted = append(f.submitted, container+"/"+key)
	return "job-1", nil
}

func (f *engineFake) Poll(context.Context, string) (domain.ExtractionJob, error) {
	if f.pollErr != nil {
		return domain.ExtractionJob{}, f.pollErr
	}
	idx := f.polls
	if idx >= len(f.jobs) {
		idx = len(f.jobs) - 1
	}
	f.polls++
	return f.jobs[idx], nil
}

type analyzerEngineFake struct {
	language     string
	sentiment    domain.Sentiment
	sentimentFor func(text string) domain.Sentiment
	entities     []domain.Entity
	entitiesFor  func(text string) []domain.Entity

	languageErr  error
	sentimentErr error
	entitiesErr  error

	languageInputs  []string
	sentimentInputs []string
	entityInputs    []string
	codes           []string
}

func (f *analyzerEngineFake) DetectLanguage(_ context.Context, text string) (string, error) {
	f.languageInputs = append(f.languageInputs, text)
	if f.languageErr != nil {
		return "", f.languageErr
	}
	return f.language, nil
}

func (f *analyzerEngineFake) DetectSentiment(_ context.Context, text, code string) (domain.Sentiment, error) {
	f.sentimentInputs = append(f.sentimentInputs, text)
	f.codes = append(f.codes, code)
	if f.sentimentErr != nil {
		return "", f.sentimentErr
	}
	if f.sentimentFor != nil {
		return f.sentimentFor(text), nil
	}
	return f.sentiment, nil
}

func (f *analyzerEngineFake) DetectEntities(_ context.Context, text, code string) ([]domain.Entity, error) {
	f.entityInputs = append(f.entityInputs, text)
	f.codes = append(f.codes, code)
	if f.entitiesErr != nil {
		return nil, f.entitiesErr
	}
	if f.entitiesFor != nil {
		return f.entitiesFor(text), nil
	}
	return f.entities, nil
}

// memoryStoreFake mimics a key-value backend: numbers come back as decimals.
type memoryStoreFake struct {
	mu      sync.Mutex
	records map[string]domain.AnalysisRecord
	puts    int
	putErr  error
	getErr  error
}

func newMemoryStoreFake() *memoryStoreFake {
	return &memoryStoreFake{records: map[string]domain.AnalysisRecord{}}
}

func (f *memoryStoreFake) Put(_ context.Context, record domain.AnalysisRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.putErr != nil {
		return f.putErr
	}
	f.puts++
	f.records[record.DocumentID] = record
	return nil
}

func (f *memoryStoreFake) Get(_ context.Context, documentID string) (value.Value, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return value.Value{}, f.getErr
	}
	record, ok := f.records[documentID]
	if !ok {
		return value.Value{}, domain.WrapError(domain.ErrDocumentNotFound, "get", errors.New(documentID))
	}
	ingestedAt, _ := value.FromAny(record.IngestedAt)
	return value.Map(map[string]value.Value{
		domain.AttrDocumentID: value.String(record.DocumentID),
		domain.AttrSentiment:  value.String(string(record.Sentiment)),
		domain.AttrEntities:   value.Strings(record.Entities),
		domain.AttrIngestedAt: ingestedAt,
	}), nil
}

type observerFake struct {
	started  int
	finished int
	failed   int
	polls    []int
}

func (o *observerFake) StartDocument() { o.started++ }

func (o *observerFake) FinishDocument(_ time.Duration, err error) {
	o.finished++
	if err != nil {
		o.failed++
	}
}

func (o *observerFake) ObserveExtractionPolls(polls int) { o.polls = append(o.polls, polls) }
