package textract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/textract"
	"github.com/aws/aws-sdk-go-v2/service/textract/types"

	"github.com/kirillkom/document-classifier/internal/core/domain"
	"github.com/kirillkom/document-classifier/internal/infrastructure/resilience"
)

// API is the subset of the Textract client the engine calls.
type API interface {
	StartDocumentTextDetection(ctx context.Context, in *textract.StartDocumentTextDetectionInput, optFns ...func(*textract.Options)) (*textract.StartDocumentTextDetectionOutput, error)
	GetDocumentTextDetection(ctx context.Context, in *textract.GetDocumentTextDetectionInput, optFns ...func(*textract.Options)) (*textract.GetDocumentTextDetectionOutput, error)
}

type Engine struct {
	api   API
	guard *resilience.Guard
}

func NewEngine(api API, guard *resilience.Guard) *Engine {
	return &Engine{api: api, guard: guard}
}

func (e *Engine) Submit(ctx context.Context, container, key string) (string, error) {
	var out *textract.StartDocumentTextDetectionOutput
	err := e.guard.Execute(ctx, "textract_start", func(ctx context.Context) error {
		var err error
		out, err = e.api.StartDocumentTextDetection(ctx, &textract.StartDocumentTextDetectionInput{
			DocumentLocation: &types.DocumentLocation{
				S3Object: &types.S3Object{Bucket: aws.String(container), Name: aws.String(key)},
			},
		})
		return err
	}, resilience.RecordUnlessCaller)
	if err != nil {
		return "", fmt.Errorf("start text detection: %w", err)
	}
	jobID := aws.ToString(out.JobId)
	if jobID == "" {
		return "", errors.New("start text detection: empty job id")
	}
	return jobID, nil
}

// Poll reads the job status and, once the job is done, every result page.
func (e *Engine) Poll(ctx context.Context, jobID string) (domain.ExtractionJob, error) {
	job := domain.ExtractionJob{ID: jobID}

	var token *string
	for page := 0; ; page++ {
		out, err := e.getPage(ctx, jobID, token)
		if err != nil {
			return domain.ExtractionJob{}, err
		}
		if page == 0 {
			job.Status, job.Message = mapStatus(jobID, out)
			if job.Status != domain.JobStatusSucceeded {
				return job, nil
			}
		}
		job.Blocks = appendBlocks(job.Blocks, out.Blocks)
		if aws.ToString(out.NextToken) == "" {
			return job, nil
		}
		token = out.NextToken
	}
}

func (e *Engine) getPage(ctx context.Context, jobID string, token *string) (*textract.GetDocumentTextDetectionOutput, error) {
	var out *textract.GetDocumentTextDetectionOutput
	err := e.guard.Execute(ctx, "textract_get", func(ctx context.Context) error {
		var err error
		out, err = e.api.GetDocumentTextDetection(ctx, &textract.GetDocumentTextDetectionInput{
			JobId:     aws.String(jobID),
			NextToken: token,
		})
		return err
	}, resilience.RecordUnlessCaller)
	if err != nil {
		return nil, fmt.Errorf("get text detection %s: %w", jobID, err)
	}
	return out, nil
}

func mapStatus(jobID string, out *textract.GetDocumentTextDetectionOutput) (domain.JobStatus, string) {
	message := aws.ToString(out.StatusMessage)
	switch out.JobStatus {
	case types.JobStatusSucceeded:
		return domain.JobStatusSucceeded, message
	case types.JobStatusPartialSuccess:
		slog.Warn("extraction_partial_success", "job_id", jobID, "message", message)
		return domain.JobStatusSucceeded, message
	case types.JobStatusFailed:
		return domain.JobStatusFailed, message
	default:
		return domain.JobStatusInProgress, message
	}
}

func appendBlocks(dst []domain.Block, blocks []types.Block) []domain.Block {
	for _, b := range blocks {
		dst = append(dst, domain.Block{
			Type: domain.BlockType(b.BlockType),
			Text: aws.ToString(b.Text),
		})
	}
	return dst
}
