package domain

import (
	"errors"
	"fmt"
)

var (
	ErrExtractionFailed  = errors.New("extraction failed")
	ErrExtractionTimeout = errors.New("extraction timeout")
	ErrAnalysisFailed    = errors.New("analysis failed")
	ErrStoreUnavailable  = errors.New("store unavailable")
	ErrDocumentNotFound  = errors.New("document not found")
	ErrInvalidInput      = errors.New("invalid input")
	ErrTemporary         = errors.New("temporary failure")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
