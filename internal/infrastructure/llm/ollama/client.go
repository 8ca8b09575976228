package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/document-classifier/internal/core/domain"
	"github.com/kirillkom/document-classifier/internal/infrastructure/resilience"
)

type Client struct {
	baseURL    string
	model      string
	httpClient *http.Client
	guard      *resilience.Guard
}

func New(baseURL, model string, guard *resilience.Guard) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		httpClient: &http.Client{Timeout: 120 * time.Second},
		guard:      guard,
	}
}

// Analyzer answers language, sentiment and entity questions with a local
// model constrained to JSON output.
type Analyzer struct {
	client *Client
}

func NewAnalyzer(client *Client) *Analyzer {
	return &Analyzer{client: client}
}

func (a *Analyzer) DetectLanguage(ctx context.Context, text string) (string, error) {
	var result struct {
		LanguageCode string `json:"language_code"`
	}
	if err := a.client.generateInto(ctx, "detect_language", buildLanguagePrompt(text), &result); err != nil {
		return "", err
	}
	code := strings.ToLower(strings.TrimSpace(result.LanguageCode))
	if code == "" {
		return "", errors.New("ollama returned no language code")
	}
	return code, nil
}

func (a *Analyzer) DetectSentiment(ctx context.Context, text, languageCode string) (domain.Sentiment, error) {
	var result struct {
		Sentiment string `json:"sentiment"`
	}
	if err := a.client.generateInto(ctx, "detect_sentiment", buildSentimentPrompt(text, languageCode), &result); err != nil {
		return "", err
	}
	return domain.ParseSentiment(result.Sentiment)
}

func (a *Analyzer) DetectEntities(ctx context.Context, text, languageCode string) ([]domain.Entity, error) {
	var result struct {
		Entities []domain.Entity `json:"entities"`
	}
	if err := a.client.generateInto(ctx, "detect_entities", buildEntitiesPrompt(text, languageCode), &result); err != nil {
		return nil, err
	}
	if result.Entities == nil {
		result.Entities = []domain.Entity{}
	}
	return result.Entities, nil
}

func (c *Client) generateInto(ctx context.Context, operation, prompt string, out any) error {
	reqBody := map[string]any{
		"model":  c.model,
		"prompt": prompt,
		"stream": false,
		"format": "json",
	}
	var response struct {
		Response string `json:"response"`
	}
	err := c.guard.Execute(ctx, "ollama_"+operation, func(ctx context.Context) error {
		return c.postJSON(ctx, "/api/generate", reqBody, &response, operation)
	}, recordOllamaFailure)
	if err != nil {
		return wrapTemporaryIfNeeded(operation, err)
	}

	if err := json.Unmarshal([]byte(extractJSONObject(response.Response)), out); err != nil {
		return fmt.Errorf("parse %s json: %w", operation, err)
	}
	return nil
}

func extractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}
