package domain

import (
	"fmt"
	"net/url"
	"strings"
)

// IdentifierScheme prefixes every DocumentIdentifier.
const IdentifierScheme = "s3"

// DocumentEvent is one notification of a newly stored object. ObjectKey is
// kept percent-encoded exactly as the storage notification delivered it.
type DocumentEvent struct {
	Container string `json:"container"`
	ObjectKey string `json:"object_key"`
}

// DecodeObjectKey reverses storage notification key encoding ("+" is a space,
// "%XX" is a byte).
func DecodeObjectKey(encoded string) (string, error) {
	key, err := url.QueryUnescape(encoded)
	if err != nil {
		return "", WrapError(ErrInvalidInput, "decode object key", err)
	}
	return key, nil
}

// EncodeObjectKey applies the notification encoding to a raw key, keeping
// path separators readable.
func EncodeObjectKey(key string) string {
	return strings.ReplaceAll(url.QueryEscape(key), "%2F", "/")
}

// DeriveDocumentID builds the stable record key for a decoded storage location.
func DeriveDocumentID(container, key string) string {
	return fmt.Sprintf("%s://%s/%s", IdentifierScheme, container, key)
}

// Location decodes the event's object key and returns the storage location
// together with the derived identifier.
func (e DocumentEvent) Location() (container, key, documentID string, err error) {
	container = strings.TrimSpace(e.Container)
	if container == "" {
		return "", "", "", WrapError(ErrInvalidInput, "document event", fmt.Errorf("empty container"))
	}
	key, err = DecodeObjectKey(e.ObjectKey)
	if err != nil {
		return "", "", "", err
	}
	if key == "" {
		return "", "", "", WrapError(ErrInvalidInput, "document event", fmt.Errorf("empty object key"))
	}
	return container, key, DeriveDocumentID(container, key), nil
}

type Sentiment string

const (
	SentimentPositive Sentiment = "POSITIVE"
	SentimentNegative Sentiment = "NEGATIVE"
	SentimentNeutral  Sentiment = "NEUTRAL"
	SentimentMixed    Sentiment = "MIXED"
)

func ParseSentiment(raw string) (Sentiment, error) {
	switch s := Sentiment(strings.ToUpper(strings.TrimSpace(raw))); s {
	case SentimentPositive, SentimentNegative, SentimentNeutral, SentimentMixed:
		return s, nil
	default:
		return "", WrapError(ErrInvalidInput, "parse sentiment", fmt.Errorf("unknown label %q", raw))
	}
}

type Entity struct {
	Text  string  `json:"text"`
	Type  string  `json:"type,omitempty"`
	Score float64 `json:"score,omitempty"`
}

// Analysis is the output of the text analyzer for one document.
type Analysis struct {
	Language  string    `json:"language"`
	Sentiment Sentiment `json:"sentiment"`
	Entities  []string  `json:"entities"`
}

// AnalysisRecord is the persisted entity, keyed by DocumentID.
type AnalysisRecord struct {
	DocumentID string    `json:"document_id" dynamodbav:"document_id"`
	Sentiment  Sentiment `json:"sentiment" dynamodbav:"sentiment"`
	Entities   []string  `json:"entities" dynamodbav:"entities"`
	IngestedAt int64     `json:"ingested_at" dynamodbav:"ingested_at"`
}

// Record attribute names shared by every store backend.
const (
	AttrDocumentID = "document_id"
	AttrSentiment  = "sentiment"
	AttrEntities   = "entities"
	AttrIngestedAt = "ingested_at"
)
