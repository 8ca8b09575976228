package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kirillkom/document-classifier/internal/core/domain"
	"github.com/kirillkom/document-classifier/internal/core/ports"
	"github.com/kirillkom/document-classifier/internal/core/value"
)

type LookupUseCase struct {
	store ports.ResultStore
}

func NewLookupUseCase(store ports.ResultStore) *LookupUseCase {
	return &LookupUseCase{store: store}
}

// GetByID fetches a stored record and normalizes its numbers for responses.
func (uc *LookupUseCase) GetByID(ctx context.Context, documentID string) (value.Value, error) {
	if strings.TrimSpace(documentID) == "" {
		return value.Value{}, domain.WrapError(domain.ErrInvalidInput, "lookup", errors.New("document id is required"))
	}

	item, err := uc.store.Get(ctx, documentID)
	if err != nil {
		if domain.IsKind(err, domain.ErrDocumentNotFound) || domain.IsKind(err, domain.ErrStoreUnavailable) {
			return value.Value{}, err
		}
		return value.Value{}, domain.WrapError(domain.ErrStoreUnavailable, "lookup", err)
	}
	if item.Kind() != value.KindMap {
		return value.Value{}, domain.WrapError(domain.ErrStoreUnavailable, "lookup", fmt.Errorf("unexpected item kind %s", item.Kind()))
	}
	return value.Normalize(item), nil
}
