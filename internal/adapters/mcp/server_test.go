package mcpadapter

import (
	"context"
	"errors"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirillkom/document-classifier/internal/core/domain"
	"github.com/kirillkom/document-classifier/internal/core/value"
)

type readerFake struct {
	items map[string]value.Value
	err   error
}

func (f *readerFake) GetByID(_ context.Context, documentID string) (value.Value, error) {
	if f.err != nil {
		return value.Value{}, f.err
	}
	item, ok := f.items[documentID]
	if !ok {
		return value.Value{}, domain.WrapError(domain.ErrDocumentNotFound, "get", errors.New(documentID))
	}
	return item, nil
}

func callTool(t *testing.T, s *Server, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	request := mcp.CallToolRequest{}
	request.Params.Name = toolGetDocumentAnalysis
	request.Params.Arguments = args

	result, err := s.handleGetDocumentAnalysis(context.Background(), request)
	require.NoError(t, err)
	require.NotNil(t, result)
	require.Len(t, result.Content, 1)
	return result
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content, got %T", result.Content[0])
	return text.Text
}

func TestGetDocumentAnalysisReturnsRecordJSON(t *testing.T) {
	reader := &readerFake{items: map[string]value.Value{
		"s3://docs/a.pdf": value.Map(map[string]value.Value{
			domain.AttrDocumentID: value.String("s3://docs/a.pdf"),
			domain.AttrSentiment:  value.String("NEUTRAL"),
			domain.AttrEntities:   value.Strings([]string{"Hello"}),
			domain.AttrIngestedAt: value.Int(1700000000),
		}),
	}}
	s := NewServer(reader, "test")

	result := callTool(t, s, map[string]any{argDocumentID: "s3://docs/a.pdf"})
	assert.False(t, result.IsError)
	assert.JSONEq(t,
		`{"document_id":"s3://docs/a.pdf","sentiment":"NEUTRAL","entities":["Hello"],"ingested_at":1700000000}`,
		resultText(t, result),
	)
}

func TestGetDocumentAnalysisErrors(t *testing.T) {
	tests := []struct {
		name     string
		reader   *readerFake
		args     map[string]any
		contains string
	}{
		{
			name:     "missing argument",
			reader:   &readerFake{},
			args:     map[string]any{},
			contains: argDocumentID,
		},
		{
			name:     "not found",
			reader:   &readerFake{},
			args:     map[string]any{argDocumentID: "s3://docs/missing.pdf"},
			contains: "document not found: s3://docs/missing.pdf",
		},
		{
			name:     "store unavailable",
			reader:   &readerFake{err: domain.WrapError(domain.ErrStoreUnavailable, "get", errors.New("timeout"))},
			args:     map[string]any{argDocumentID: "s3://docs/a.pdf"},
			contains: "lookup failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := callTool(t, NewServer(tt.reader, "test"), tt.args)
			assert.True(t, result.IsError)
			assert.Contains(t, resultText(t, result), tt.contains)
		})
	}
}
