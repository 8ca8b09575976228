package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awscomprehend "github.com/aws/aws-sdk-go-v2/service/comprehend"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awstextract "github.com/aws/aws-sdk-go-v2/service/textract"
	"github.com/google/uuid"

	"github.com/kirillkom/document-classifier/internal/config"
	"github.com/kirillkom/document-classifier/internal/core/ports"
	"github.com/kirillkom/document-classifier/internal/core/usecase"
	"github.com/kirillkom/document-classifier/internal/infrastructure/chunking"
	"github.com/kirillkom/document-classifier/internal/infrastructure/extractor/local"
	"github.com/kirillkom/document-classifier/internal/infrastructure/extractor/textract"
	"github.com/kirillkom/document-classifier/internal/infrastructure/llm/ollama"
	"github.com/kirillkom/document-classifier/internal/infrastructure/nlp/comprehend"
	"github.com/kirillkom/document-classifier/internal/infrastructure/queue/kafka"
	"github.com/kirillkom/document-classifier/internal/infrastructure/queue/nats"
	"github.com/kirillkom/document-classifier/internal/infrastructure/repository/dynamodb"
	"github.com/kirillkom/document-classifier/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/document-classifier/internal/infrastructure/repository/sqlite"
	"github.com/kirillkom/document-classifier/internal/infrastructure/resilience"
	"github.com/kirillkom/document-classifier/internal/infrastructure/storage/localfs"
	"github.com/kirillkom/document-classifier/internal/observability/metrics"
)

// App holds the wired collaborators for one binary.
type App struct {
	Config config.Config

	Store    ports.ResultStore
	Lookup   ports.AnalysisReader
	Ingestor ports.DocumentIngestor
	Metrics  *metrics.PipelineMetrics
	Guard    *resilience.Guard

	localEngine *local.Engine
	closers     []func()
}

// New wires the result store, the lookup path and the ingestion pipeline.
// service labels pipeline metrics.
func New(ctx context.Context, cfg config.Config, service string) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	app := &App{
		Config:  cfg,
		Metrics: metrics.NewPipelineMetrics(service),
		Guard: resilience.NewGuard(resilience.Config{
			Enabled:      cfg.BreakerEnabled,
			MinRequests:  uint32(max(cfg.BreakerMinRequests, 0)),
			FailureRatio: cfg.BreakerFailureRatio,
			OpenTimeout:  cfg.BreakerOpenTimeout,
		}),
	}

	var awsCfg *aws.Config
	loadAWS := func() (aws.Config, error) {
		if awsCfg != nil {
			return *awsCfg, nil
		}
		loaded, err := loadAWSConfig(ctx, cfg)
		if err != nil {
			return aws.Config{}, err
		}
		awsCfg = &loaded
		return loaded, nil
	}

	store, err := app.newResultStore(ctx, loadAWS)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.Store = store
	app.Lookup = usecase.NewLookupUseCase(store)

	engine, err := app.newExtractionEngine(loadAWS)
	if err != nil {
		app.Close()
		return nil, err
	}
	analyzerEngine, err := app.newLanguageAnalyzer(loadAWS)
	if err != nil {
		app.Close()
		return nil, err
	}
	policy, err := usecase.ParseAnalysisPolicy(cfg.AnalysisPolicy)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("analysis policy: %w", err)
	}

	extractor := usecase.NewTextExtractionUseCase(engine, usecase.PollConfig{
		Interval:          cfg.PollInterval,
		MaxInterval:       cfg.PollMaxInterval,
		BackoffMultiplier: cfg.PollBackoff,
		MaxWait:           cfg.MaxWait,
		MaxPolls:          cfg.MaxPolls,
	}, app.Metrics)
	analyzer := usecase.NewTextAnalysisUseCase(
		analyzerEngine,
		chunking.NewSplitter(cfg.AnalysisCharBudget),
		policy,
		cfg.AnalysisCharBudget,
	)
	app.Ingestor = usecase.NewIngestDocumentUseCase(extractor, analyzer, store, app.Metrics)

	slog.Info("pipeline_wired",
		"result_store", cfg.ResultStoreBackend,
		"extractor", cfg.ExtractorBackend,
		"analyzer", cfg.AnalyzerBackend,
		"analysis_policy", string(policy),
		"table", cfg.ResultTable,
	)
	return app, nil
}

func (a *App) newResultStore(ctx context.Context, loadAWS func() (aws.Config, error)) (ports.ResultStore, error) {
	cfg := a.Config
	switch cfg.ResultStoreBackend {
	case config.BackendPostgres:
		db, err := postgres.OpenDB(cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		a.closers = append(a.closers, func() { _ = db.Close() })
		store, err := postgres.NewResultStore(db, cfg.ResultTable, a.Guard)
		if err != nil {
			return nil, fmt.Errorf("init postgres store: %w", err)
		}
		if err := store.EnsureSchema(ctx); err != nil {
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
		return store, nil
	case config.BackendSQLite:
		store, err := sqlite.Open(ctx, cfg.SQLitePath, cfg.ResultTable)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		a.closers = append(a.closers, func() { _ = store.Close() })
		return store, nil
	case config.BackendDynamoDB:
		awsCfg, err := loadAWS()
		if err != nil {
			return nil, err
		}
		client := awsdynamodb.NewFromConfig(awsCfg, func(o *awsdynamodb.Options) {
			if cfg.AWSEndpointURL != "" {
				o.BaseEndpoint = aws.String(cfg.AWSEndpointURL)
			}
		})
		return dynamodb.NewResultStore(client, cfg.ResultTable, a.Guard), nil
	default:
		return nil, fmt.Errorf("unsupported result store backend %q", cfg.ResultStoreBackend)
	}
}

func (a *App) newExtractionEngine(loadAWS func() (aws.Config, error)) (ports.ExtractionEngine, error) {
	cfg := a.Config
	switch cfg.ExtractorBackend {
	case config.BackendTextract:
		awsCfg, err := loadAWS()
		if err != nil {
			return nil, err
		}
		client := awstextract.NewFromConfig(awsCfg, func(o *awstextract.Options) {
			if cfg.AWSEndpointURL != "" {
				o.BaseEndpoint = aws.String(cfg.AWSEndpointURL)
			}
		})
		return textract.NewEngine(client, a.Guard), nil
	case config.BackendLocal:
		storage, err := localfs.New(cfg.StoragePath)
		if err != nil {
			return nil, fmt.Errorf("init object storage: %w", err)
		}
		a.localEngine = local.NewEngine(storage)
		return a.localEngine, nil
	default:
		return nil, fmt.Errorf("unsupported extractor backend %q", cfg.ExtractorBackend)
	}
}

func (a *App) newLanguageAnalyzer(loadAWS func() (aws.Config, error)) (ports.LanguageAnalyzer, error) {
	cfg := a.Config
	switch cfg.AnalyzerBackend {
	case config.BackendComprehend:
		awsCfg, err := loadAWS()
		if err != nil {
			return nil, err
		}
		client := awscomprehend.NewFromConfig(awsCfg, func(o *awscomprehend.Options) {
			if cfg.AWSEndpointURL != "" {
				o.BaseEndpoint = aws.String(cfg.AWSEndpointURL)
			}
		})
		return comprehend.NewAnalyzer(client, a.Guard), nil
	case config.BackendOllama:
		return ollama.NewAnalyzer(ollama.New(cfg.OllamaURL, cfg.OllamaModel, a.Guard)), nil
	default:
		return nil, fmt.Errorf("unsupported analyzer backend %q", cfg.AnalyzerBackend)
	}
}

func loadAWSConfig(ctx context.Context, cfg config.Config) (aws.Config, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
	if err != nil {
		return aws.Config{}, fmt.Errorf("load aws config: %w", err)
	}
	return awsCfg, nil
}

// Transport is a connected trigger transport; it both delivers batches and
// accepts published notifications.
type Transport interface {
	ports.EventSubscriber
	ports.EventPublisher
}

// NewTransport connects the configured trigger transport.
func NewTransport(cfg config.Config, guard *resilience.Guard) (Transport, error) {
	switch cfg.TriggerTransport {
	case config.TransportNATS:
		queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
			ClientName: "document-classifier-" + uuid.NewString()[:8],
			Guard:      guard,
		})
		if err != nil {
			return nil, fmt.Errorf("init nats transport: %w", err)
		}
		return queue, nil
	case config.TransportKafka:
		return kafka.New(kafka.Config{
			Brokers: cfg.KafkaBrokers,
			Topic:   cfg.KafkaTopic,
			GroupID: cfg.KafkaGroupID,
		}), nil
	default:
		return nil, fmt.Errorf("unsupported trigger transport %q", cfg.TriggerTransport)
	}
}

// Close waits for local extraction jobs and releases store connections.
func (a *App) Close() {
	if a.localEngine != nil {
		a.localEngine.Wait()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
