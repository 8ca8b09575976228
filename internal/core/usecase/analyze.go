package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kirillkom/document-classifier/internal/core/domain"
	"github.com/kirillkom/document-classifier/internal/core/ports"
)

const DefaultAnalysisCharBudget = 4500

// AnalysisPolicy decides how text longer than the character budget is analyzed.
type AnalysisPolicy string

const (
	// PolicyTruncate analyzes only the first budget characters.
	PolicyTruncate AnalysisPolicy = "truncate"
	// PolicyChunk analyzes every budget-sized chunk and aggregates the results.
	PolicyChunk AnalysisPolicy = "chunk"
)

func ParseAnalysisPolicy(raw string) (AnalysisPolicy, error) {
	switch p := AnalysisPolicy(strings.ToLower(strings.TrimSpace(raw))); p {
	case "", PolicyTruncate:
		return PolicyTruncate, nil
	case PolicyChunk:
		return PolicyChunk, nil
	default:
		return "", domain.WrapError(domain.ErrInvalidInput, "parse analysis policy", fmt.Errorf("unknown policy %q", raw))
	}
}

type TextAnalysisUseCase struct {
	engine  ports.LanguageAnalyzer
	chunker ports.Chunker
	policy  AnalysisPolicy
	budget  int
}

func NewTextAnalysisUseCase(engine ports.LanguageAnalyzer, chunker ports.Chunker, policy AnalysisPolicy, budget int) *TextAnalysisUseCase {
	if budget <= 0 {
		budget = DefaultAnalysisCharBudget
	}
	if policy == "" {
		policy = PolicyTruncate
	}
	return &TextAnalysisUseCase{
		engine:  engine,
		chunker: chunker,
		policy:  policy,
		budget:  budget,
	}
}

func (uc *TextAnalysisUseCase) Analyze(ctx context.Context, text string) (domain.Analysis, error) {
	if strings.TrimSpace(text) == "" {
		return domain.Analysis{}, domain.WrapError(domain.ErrAnalysisFailed, "analyze text", errors.New("extracted text is empty"))
	}

	// Language detection always sees the full text.
	language, err := uc.engine.DetectLanguage(ctx, text)
	if err != nil {
		return domain.Analysis{}, domain.WrapError(domain.ErrAnalysisFailed, "detect language", err)
	}

	parts := []string{truncateRunes(text, uc.budget)}
	if uc.policy == PolicyChunk && uc.chunker != nil && runeLen(text) > uc.budget {
		parts = uc.chunker.Split(text)
	}

	sentiments := make([]domain.Sentiment, 0, len(parts))
	var entities []string
	seen := make(map[string]struct{})
	for _, part := range parts {
		sentiment, err := uc.engine.DetectSentiment(ctx, part, language)
		if err != nil {
			return domain.Analysis{}, domain.WrapError(domain.ErrAnalysisFailed, "detect sentiment", err)
		}
		sentiments = append(sentiments, sentiment)

		found, err := uc.engine.DetectEntities(ctx, part, language)
		if err != nil {
			return domain.Analysis{}, domain.WrapError(domain.ErrAnalysisFailed, "detect entities", err)
		}
		for _, entity := range found {
			if _, dup := seen[entity.Text]; dup || entity.Text == "" {
				continue
			}
			seen[entity.Text] = struct{}{}
			entities = append(entities, entity.Text)
		}
	}

	if entities == nil {
		entities = []string{}
	}
	return domain.Analysis{
		Language:  language,
		Sentiment: aggregateSentiment(sentiments),
		Entities:  entities,
	}, nil
}

// aggregateSentiment folds per-chunk labels: conflicting polarity is MIXED.
func aggregateSentiment(labels []domain.Sentiment) domain.Sentiment {
	if len(labels) == 1 {
		return labels[0]
	}
	var positive, negative bool
	for _, l := range labels {
		switch l {
		case domain.SentimentMixed:
			return domain.SentimentMixed
		case domain.SentimentPositive:
			positive = true
		case domain.SentimentNegative:
			negative = true
		}
	}
	switch {
	case positive && negative:
		return domain.SentimentMixed
	case positive:
		return domain.SentimentPositive
	case negative:
		return domain.SentimentNegative
	default:
		return domain.SentimentNeutral
	}
}

func truncateRunes(text string, limit int) string {
	if limit <= 0 {
		return text
	}
	count := 0
	for i := range text {
		if count == limit {
			return text[:i]
		}
		count++
	}
	return text
}

func runeLen(text string) int {
	return len([]rune(text))
}
