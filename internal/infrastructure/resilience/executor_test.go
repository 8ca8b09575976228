package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/kirillkom/document-classifier/internal/core/domain"
)

func TestExecuteCallsOperationOnce(t *testing.T) {
	guard := NewGuard(Config{Enabled: true})

	attempts := 0
	errTemp := errors.New("temporary")
	err := guard.Execute(context.Background(), "op", func(context.Context) error {
		attempts++
		return errTemp
	}, RecordAll)
	if !errors.Is(err, errTemp) {
		t.Fatalf("expected operation error, got %v", err)
	}
	if attempts != 1 {
		t.Fatalf("expected exactly 1 attempt, got %d", attempts)
	}
}

func TestExecuteOpensCircuitAfterFailures(t *testing.T) {
	guard := NewGuard(Config{
		Enabled:         true,
		MinRequests:     2,
		FailureRatio:    0.5,
		OpenTimeout:     50 * time.Millisecond,
		HalfOpenMaxCall: 1,
	})

	errTemp := errors.New("temporary")
	for i := 0; i < 2; i++ {
		err := guard.Execute(context.Background(), "op", func(context.Context) error {
			return errTemp
		}, RecordAll)
		if !errors.Is(err, errTemp) {
			t.Fatalf("expected temporary error on iteration %d, got %v", i, err)
		}
	}

	err := guard.Execute(context.Background(), "op", func(context.Context) error {
		t.Fatalf("circuit should be open and must not call operation")
		return nil
	}, RecordAll)
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Fatalf("expected open state error, got %v", err)
	}
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected open circuit to be temporary, got %v", err)
	}
}

func TestExecuteIgnoresCallerErrors(t *testing.T) {
	guard := NewGuard(Config{Enabled: true, MinRequests: 1, FailureRatio: 0.5})

	notFound := domain.WrapError(domain.ErrDocumentNotFound, "get", errors.New("s3://docs/x.pdf"))
	for i := 0; i < 5; i++ {
		err := guard.Execute(context.Background(), "get", func(context.Context) error {
			return notFound
		}, RecordUnlessCaller)
		if !domain.IsKind(err, domain.ErrDocumentNotFound) {
			t.Fatalf("expected not found on iteration %d, got %v", i, err)
		}
	}
}

func TestNilGuardRunsDirectly(t *testing.T) {
	var guard *Guard
	called := false
	if err := guard.Execute(context.Background(), "op", func(context.Context) error {
		called = true
		return nil
	}, nil); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if !called {
		t.Fatalf("operation was not called")
	}
}
