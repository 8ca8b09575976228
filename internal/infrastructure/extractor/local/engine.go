package local

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/kirillkom/document-classifier/internal/core/domain"
	"github.com/kirillkom/document-classifier/internal/infrastructure/storage/localfs"
)

// finishedRetention bounds how long a terminal job nobody polled stays in memory.
const finishedRetention = 10 * time.Minute

// Engine emulates an asynchronous extraction service over local storage.
// Submit starts a background job; Poll reports its progress and forgets the
// job once it has handed out a terminal result.
type Engine struct {
	storage *localfs.Storage
	now     func() time.Time

	mu   sync.Mutex
	jobs map[string]jobEntry
	wg   sync.WaitGroup
}

type jobEntry struct {
	job        domain.ExtractionJob
	finishedAt time.Time
}

func NewEngine(storage *localfs.Storage) *Engine {
	return &Engine{
		storage: storage,
		now:     time.Now,
		jobs:    make(map[string]jobEntry),
	}
}

func (e *Engine) Submit(_ context.Context, container, key string) (string, error) {
	path, err := e.storage.Path(container, key)
	if err != nil {
		return "", err
	}

	jobID := ulid.Make().String()
	e.evictFinished()
	e.setJob(domain.ExtractionJob{ID: jobID, Status: domain.JobStatusInProgress})

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.run(jobID, path)
	}()
	return jobID, nil
}

func (e *Engine) Poll(_ context.Context, jobID string) (domain.ExtractionJob, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	entry, ok := e.jobs[jobID]
	if !ok {
		return domain.ExtractionJob{}, domain.WrapError(domain.ErrInvalidInput, "poll local job", fmt.Errorf("unknown job %s", jobID))
	}
	if entry.job.Status.Terminal() {
		delete(e.jobs, jobID)
	}
	return entry.job, nil
}

// Wait blocks until every submitted job has finished.
func (e *Engine) Wait() { e.wg.Wait() }

func (e *Engine) run(jobID, path string) {
	lines, err := readLines(path)
	if err != nil {
		slog.Warn("local_extraction_failed", "job_id", jobID, "path", path, "error", err)
		e.setJob(domain.ExtractionJob{ID: jobID, Status: domain.JobStatusFailed, Message: err.Error()})
		return
	}
	e.setJob(domain.ExtractionJob{ID: jobID, Status: domain.JobStatusSucceeded, Blocks: toBlocks(lines)})
}

func (e *Engine) setJob(job domain.ExtractionJob) {
	e.mu.Lock()
	defer e.mu.Unlock()
	entry := jobEntry{job: job}
	if job.Status.Terminal() {
		entry.finishedAt = e.now()
	}
	e.jobs[job.ID] = entry
}

// evictFinished drops terminal jobs whose caller gave up before collecting them.
func (e *Engine) evictFinished() {
	e.mu.Lock()
	defer e.mu.Unlock()
	cutoff := e.now().Add(-finishedRetention)
	for id, entry := range e.jobs {
		if entry.job.Status.Terminal() && entry.finishedAt.Before(cutoff) {
			delete(e.jobs, id)
		}
	}
}

// toBlocks lays lines out the way a hosted OCR service does: one PAGE block,
// then each LINE followed by its WORD blocks.
func toBlocks(lines []string) []domain.Block {
	blocks := []domain.Block{{Type: domain.BlockTypePage}}
	for _, line := range lines {
		blocks = append(blocks, domain.Block{Type: domain.BlockTypeLine, Text: line})
		for _, word := range strings.Fields(line) {
			blocks = append(blocks, domain.Block{Type: domain.BlockTypeWord, Text: word})
		}
	}
	return blocks
}
