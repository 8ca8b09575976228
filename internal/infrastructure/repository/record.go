package repository

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/kirillkom/document-classifier/internal/core/domain"
	"github.com/kirillkom/document-classifier/internal/core/value"
)

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,62}$`)

// ValidateTableName accepts plain SQL identifiers only.
func ValidateTableName(name string) error {
	if !tableNamePattern.MatchString(name) {
		return domain.WrapError(domain.ErrInvalidInput, "validate table name", fmt.Errorf("invalid table name %q", name))
	}
	return nil
}

// EncodeEntities renders entities as a JSON array, never null.
func EncodeEntities(entities []string) ([]byte, error) {
	if entities == nil {
		entities = []string{}
	}
	return json.Marshal(entities)
}

// RecordValue builds the stored item tree for a SQL row. Numbers are kept
// as decimals so every backend hands the same shape to the lookup path.
func RecordValue(documentID, sentiment string, entitiesJSON []byte, ingestedAt int64) (value.Value, error) {
	entities := value.List()
	if len(bytes.TrimSpace(entitiesJSON)) > 0 {
		if err := json.Unmarshal(entitiesJSON, &entities); err != nil {
			return value.Value{}, fmt.Errorf("decode entities: %w", err)
		}
	}
	ingested, err := value.FromAny(ingestedAt)
	if err != nil {
		return value.Value{}, err
	}
	return value.Map(map[string]value.Value{
		domain.AttrDocumentID: value.String(documentID),
		domain.AttrSentiment:  value.String(sentiment),
		domain.AttrEntities:   entities,
		domain.AttrIngestedAt: ingested,
	}), nil
}
