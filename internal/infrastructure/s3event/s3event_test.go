package s3event

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kirillkom/document-classifier/internal/core/domain"
)

const notification = `{
  "Records": [
    {
      "eventVersion": "2.1",
      "eventSource": "aws:s3",
      "eventName": "ObjectCreated:Put",
      "s3": {
        "bucket": {"name": "docs"},
        "object": {"key": "reports/q1+summary%282024%29.pdf", "size": 1024}
      }
    },
    {
      "eventSource": "aws:s3",
      "s3": {"bucket": {"name": "docs"}, "object": {"key": "a.pdf"}}
    }
  ]
}`

func TestDecodeKeepsEncodedKeys(t *testing.T) {
	docs, err := Decode([]byte(notification))
	require.NoError(t, err)
	require.Equal(t, []domain.DocumentEvent{
		{Container: "docs", ObjectKey: "reports/q1+summary%282024%29.pdf"},
		{Container: "docs", ObjectKey: "a.pdf"},
	}, docs)

	_, key, id, err := docs[0].Location()
	require.NoError(t, err)
	require.Equal(t, "reports/q1 summary(2024).pdf", key)
	require.Equal(t, "s3://docs/reports/q1 summary(2024).pdf", id)
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, err := Decode([]byte("not json"))
	require.True(t, domain.IsKind(err, domain.ErrInvalidInput))
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	docs := []domain.DocumentEvent{{Container: "docs", ObjectKey: domain.EncodeObjectKey("my file.pdf")}}

	raw, err := Encode(docs, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Contains(t, string(raw), `"eventName":"ObjectCreated:Put"`)

	decoded, err := Decode(raw)
	require.NoError(t, err)
	require.Equal(t, docs, decoded)
}
