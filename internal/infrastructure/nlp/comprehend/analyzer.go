package comprehend

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/comprehend"
	"github.com/aws/aws-sdk-go-v2/service/comprehend/types"

	"github.com/kirillkom/document-classifier/internal/core/domain"
	"github.com/kirillkom/document-classifier/internal/infrastructure/resilience"
)

// maxLanguageSampleBytes is the DetectDominantLanguage request limit.
const maxLanguageSampleBytes = 100_000

// API is the subset of the Comprehend client the analyzer calls.
type API interface {
	DetectDominantLanguage(ctx context.Context, in *comprehend.DetectDominantLanguageInput, optFns ...func(*comprehend.Options)) (*comprehend.DetectDominantLanguageOutput, error)
	DetectSentiment(ctx context.Context, in *comprehend.DetectSentimentInput, optFns ...func(*comprehend.Options)) (*comprehend.DetectSentimentOutput, error)
	DetectEntities(ctx context.Context, in *comprehend.DetectEntitiesInput, optFns ...func(*comprehend.Options)) (*comprehend.DetectEntitiesOutput, error)
}

type Analyzer struct {
	api   API
	guard *resilience.Guard
}

func NewAnalyzer(api API, guard *resilience.Guard) *Analyzer {
	return &Analyzer{api: api, guard: guard}
}

// DetectLanguage returns the highest scoring language. Text beyond the
// service request limit is not sent.
func (a *Analyzer) DetectLanguage(ctx context.Context, text string) (string, error) {
	var out *comprehend.DetectDominantLanguageOutput
	err := a.guard.Execute(ctx, "comprehend_language", func(ctx context.Context) error {
		var err error
		out, err = a.api.DetectDominantLanguage(ctx, &comprehend.DetectDominantLanguageInput{
			Text: aws.String(sampleBytes(text, maxLanguageSampleBytes)),
		})
		return err
	}, resilience.RecordUnlessCaller)
	if err != nil {
		return "", err
	}

	best, bestScore := "", float32(-1)
	for _, lang := range out.Languages {
		if score := aws.ToFloat32(lang.Score); score > bestScore {
			best, bestScore = aws.ToString(lang.LanguageCode), score
		}
	}
	if best == "" {
		return "", errors.New("no dominant language detected")
	}
	return best, nil
}

func (a *Analyzer) DetectSentiment(ctx context.Context, text, languageCode string) (domain.Sentiment, error) {
	var out *comprehend.DetectSentimentOutput
	err := a.guard.Execute(ctx, "comprehend_sentiment", func(ctx context.Context) error {
		var err error
		out, err = a.api.DetectSentiment(ctx, &comprehend.DetectSentimentInput{
			Text:         aws.String(text),
			LanguageCode: types.LanguageCode(languageCode),
		})
		return err
	}, resilience.RecordUnlessCaller)
	if err != nil {
		return "", err
	}
	sentiment, err := domain.ParseSentiment(string(out.Sentiment))
	if err != nil {
		return "", fmt.Errorf("comprehend sentiment: %w", err)
	}
	return sentiment, nil
}

func (a *Analyzer) DetectEntities(ctx context.Context, text, languageCode string) ([]domain.Entity, error) {
	var out *comprehend.DetectEntitiesOutput
	err := a.guard.Execute(ctx, "comprehend_entities", func(ctx context.Context) error {
		var err error
		out, err = a.api.DetectEntities(ctx, &comprehend.DetectEntitiesInput{
			Text:         aws.String(text),
			LanguageCode: types.LanguageCode(languageCode),
		})
		return err
	}, resilience.RecordUnlessCaller)
	if err != nil {
		return nil, err
	}

	entities := make([]domain.Entity, 0, len(out.Entities))
	for _, e := range out.Entities {
		entities = append(entities, domain.Entity{
			Text:  aws.ToString(e.Text),
			Type:  string(e.Type),
			Score: float64(aws.ToFloat32(e.Score)),
		})
	}
	return entities, nil
}

func sampleBytes(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut]
}
