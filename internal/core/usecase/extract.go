package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/kirillkom/document-classifier/internal/core/domain"
	"github.com/kirillkom/document-classifier/internal/core/ports"
)

type PollConfig struct {
	Interval          time.Duration
	MaxInterval       time.Duration
	BackoffMultiplier float64
	MaxWait           time.Duration
	// MaxPolls bounds status queries; zero leaves only MaxWait in force.
	MaxPolls int
}

func DefaultPollConfig() PollConfig {
	return PollConfig{
		Interval:          2 * time.Second,
		MaxInterval:       2 * time.Second,
		BackoffMultiplier: 1,
		MaxWait:           10 * time.Minute,
	}
}

func (c PollConfig) normalize() PollConfig {
	out := c
	def := DefaultPollConfig()
	if out.Interval <= 0 {
		out.Interval = def.Interval
	}
	if out.MaxInterval < out.Interval {
		out.MaxInterval = out.Interval
	}
	if out.BackoffMultiplier < 1 {
		out.BackoffMultiplier = 1
	}
	if out.MaxWait <= 0 {
		out.MaxWait = def.MaxWait
	}
	if out.MaxPolls < 0 {
		out.MaxPolls = 0
	}
	return out
}

type pollState int

const (
	stateSubmitted pollState = iota
	statePolling
	stateDone
	stateFailed
	stateTimedOut
)

func (s pollState) String() string {
	switch s {
	case stateSubmitted:
		return "submitted"
	case statePolling:
		return "polling"
	case stateDone:
		return "done"
	case stateFailed:
		return "failed"
	case stateTimedOut:
		return "timed_out"
	default:
		return "unknown"
	}
}

// TextExtractionUseCase submits an extraction job and polls it to a terminal state.
type TextExtractionUseCase struct {
	engine   ports.ExtractionEngine
	cfg      PollConfig
	observer ports.IngestObserver

	now  func() time.Time
	wait func(ctx context.Context, d time.Duration) error
}

func NewTextExtractionUseCase(engine ports.ExtractionEngine, cfg PollConfig, observer ports.IngestObserver) *TextExtractionUseCase {
	return &TextExtractionUseCase{
		engine:   engine,
		cfg:      cfg.normalize(),
		observer: observer,
		now:      time.Now,
		wait:     sleepContext,
	}
}

func (uc *TextExtractionUseCase) Extract(ctx context.Context, container, key string) (string, error) {
	jobID, err := uc.engine.Submit(ctx, container, key)
	if err != nil {
		return "", domain.WrapError(domain.ErrExtractionFailed, "submit extraction job", err)
	}

	deadline := uc.now().Add(uc.cfg.MaxWait)
	interval := uc.cfg.Interval
	polls := 0
	state := stateSubmitted

	var job domain.ExtractionJob
	var failure error
	for state == stateSubmitted || state == statePolling {
		if state == statePolling {
			if uc.cfg.MaxPolls > 0 && polls >= uc.cfg.MaxPolls {
				failure = fmt.Errorf("job %s still in progress after %d polls", jobID, polls)
				state = stateTimedOut
				continue
			}
			remaining := deadline.Sub(uc.now())
			if remaining <= 0 {
				failure = fmt.Errorf("job %s still in progress after %s", jobID, uc.cfg.MaxWait)
				state = stateTimedOut
				continue
			}
			if err := uc.wait(ctx, min(interval, remaining)); err != nil {
				failure = err
				state = stateTimedOut
				continue
			}
			interval = uc.nextInterval(interval)
		}

		job, err = uc.engine.Poll(ctx, jobID)
		polls++
		if err != nil {
			failure = err
			state = stateFailed
			if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
				state = stateTimedOut
			}
			continue
		}

		slog.Debug("extraction_poll", "job_id", jobID, "poll", polls, "status", string(job.Status))
		switch {
		case !job.Status.Terminal():
			state = statePolling
		case job.Status == domain.JobStatusSucceeded:
			state = stateDone
		default:
			failure = fmt.Errorf("job %s failed: %s", jobID, job.Message)
			state = stateFailed
		}
	}

	if uc.observer != nil {
		uc.observer.ObserveExtractionPolls(polls)
	}

	switch state {
	case stateDone:
		return job.LineText(), nil
	case stateTimedOut:
		if errors.Is(failure, context.Canceled) {
			return "", fmt.Errorf("poll extraction job: %w", failure)
		}
		return "", domain.WrapError(domain.ErrExtractionTimeout, "poll extraction job", failure)
	default:
		return "", domain.WrapError(domain.ErrExtractionFailed, "poll extraction job", failure)
	}
}

func (uc *TextExtractionUseCase) nextInterval(current time.Duration) time.Duration {
	next := time.Duration(float64(current) * uc.cfg.BackoffMultiplier)
	if next > uc.cfg.MaxInterval {
		next = uc.cfg.MaxInterval
	}
	return next
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
