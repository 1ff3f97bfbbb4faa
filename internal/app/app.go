// Package app wires adapters and services into the CLI.
package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/leasequery/internal/adapters/driven/ai"
	"github.com/custodia-labs/leasequery/internal/adapters/driven/config/file"
	"github.com/custodia-labs/leasequery/internal/adapters/driven/config/layered"
	"github.com/custodia-labs/leasequery/internal/adapters/driven/rerank/lexical"
	"github.com/custodia-labs/leasequery/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/leasequery/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/leasequery/internal/adapters/driven/vector/qdrant"
	"github.com/custodia-labs/leasequery/internal/adapters/driving/cli"
	"github.com/custodia-labs/leasequery/internal/core/domain"
	"github.com/custodia-labs/leasequery/internal/core/ports/driven"
	"github.com/custodia-labs/leasequery/internal/core/services"
	"github.com/custodia-labs/leasequery/internal/logger"
	"github.com/custodia-labs/leasequery/internal/normalisers"
	"github.com/custodia-labs/leasequery/internal/postprocessors"
)

// healthTimeout bounds each dependency check.
const healthTimeout = 5 * time.Second

// qdrantTimeout is the HTTP timeout of the Qdrant client.
const qdrantTimeout = 30 * time.Second

// flagKeys maps command-line flags to the config keys they override.
var flagKeys = map[string]string{
	"auto":          services.KeyWatchAutoMode,
	"processed-dir": services.KeyWatchProcessedDir,
}

// Ensure Bootstrap matches the CLI hook.
var _ cli.BootstrapFunc = Bootstrap

// Bootstrap builds the services cmd needs at level.
func Bootstrap(ctx context.Context, cmd *cobra.Command, opts cli.Options, level cli.Level) (*cli.Services, error) {
	configDir := opts.ConfigDir
	if configDir == "" {
		dir, err := file.DefaultDir()
		if err != nil {
			return nil, fmt.Errorf("resolving config directory: %w", err)
		}
		configDir = dir
	}

	store, err := openConfig(configDir)
	if err != nil {
		return nil, err
	}
	if err := bindFlags(store, cmd); err != nil {
		return nil, err
	}

	settingsService := services.NewSettingsService(store, ai.NewConfigValidator())
	svc := &cli.Services{
		Settings: settingsService,
		Config:   store,
	}
	if level < cli.LevelFull {
		return svc, nil
	}

	settings, err := settingsService.Get()
	if err != nil {
		return nil, fmt.Errorf("loading settings: %w", err)
	}
	if err := settingsService.Validate(settings); err != nil {
		return nil, err
	}

	a, err := build(ctx, settings, configDir)
	if err != nil {
		return nil, err
	}

	svc.Ingestion = a.ingestion
	svc.Registry = a.registry
	svc.Query = a.query
	svc.Leases = a.leases
	svc.Notifications = a.hub
	svc.Loaders = a.loaders
	svc.Health = a.health
	svc.Close = a.close
	return svc, nil
}

func openConfig(configDir string) (*layered.Store, error) {
	fileStore, err := file.NewConfigStore(configDir)
	if err != nil {
		return nil, fmt.Errorf("opening config: %w", err)
	}
	store, err := layered.New(fileStore, layered.Options{
		Defaults:    services.DefaultConfigValues(),
		DotEnvFiles: layered.DefaultDotEnvFiles(configDir),
	})
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return store, nil
}

// bindFlags binds every flag of cmd that overrides a config key.
func bindFlags(store cli.ConfigStore, cmd *cobra.Command) error {
	if cmd == nil {
		return nil
	}
	for name, key := range flagKeys {
		flag := cmd.Flags().Lookup(name)
		if flag == nil {
			continue
		}
		if err := store.BindFlag(key, flag); err != nil {
			return fmt.Errorf("binding --%s: %w", name, err)
		}
	}
	return nil
}

// application holds the wired services and the resources they own.
type application struct {
	db       *sqlite.Store
	aiResult *ai.InitResult
	vectors  driven.VectorIndex
	keywords driven.SearchEngine
	backend  domain.VectorBackend

	registry  *services.Registry
	hub       *services.NotificationHub
	loaders   *normalisers.Registry
	ingestion *services.IngestionOrchestrator
	query     *services.QueryService
	leases    *services.LeaseService
}

func build(ctx context.Context, settings *domain.AppSettings, configDir string) (_ *application, err error) {
	a := &application{backend: settings.Vector.Backend}
	defer func() {
		if err != nil {
			_ = a.close()
		}
	}()

	a.db, err = sqlite.NewStore(settings.DataDir)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	a.aiResult = ai.Initialise(ctx, settings)
	for _, w := range a.aiResult.Warnings {
		logger.Debug("AI: %s", w)
	}
	embedder, llm := a.aiResult.EmbeddingService, a.aiResult.LLMService

	dim := 0
	if embedder != nil {
		dim = embedder.Dimensions()
	}
	a.vectors, err = newVectorIndex(settings.Vector, a.db, dim)
	if err != nil {
		return nil, err
	}
	a.keywords = a.db.SearchEngine()

	prompts, err := file.NewPromptStore(filepath.Join(configDir, "prompts"), services.DefaultPrompts())
	if err != nil {
		return nil, fmt.Errorf("opening prompts: %w", err)
	}

	pipeline, err := postprocessors.DefaultPipeline(settings.Chunking)
	if err != nil {
		return nil, fmt.Errorf("building chunking pipeline: %w", err)
	}

	a.loaders = normalisers.NewDefaultRegistry()
	a.registry = services.NewRegistry()
	a.hub = services.NewNotificationHub()

	clauseExtractor := services.NewClauseExtractor(llm)
	clauseExtractor.SetPromptStore(prompts)
	keyTermsExtractor := services.NewKeyTermsExtractor(llm)
	keyTermsExtractor.SetPromptStore(prompts)

	a.ingestion = services.NewIngestionOrchestrator(
		a.registry, a.loaders, pipeline,
		a.db, a.db, a.db, a.db, a.db,
		clauseExtractor, keyTermsExtractor,
		settings.Ingestion,
	)
	a.ingestion.SetIndexing(embedder, a.vectors, a.keywords)
	a.ingestion.SetNotifier(a.hub)
	a.ingestion.SetProcessedDir(settings.Watch.ProcessedDir)

	retriever := services.NewRetriever(embedder, a.vectors, a.keywords, a.db, a.db, lexical.New(), settings.Retrieval.Timeout)
	router := services.NewQueryRouter(llm)
	router.SetPromptStore(prompts)
	router.SetKeyTerms(a.db)
	analytics := services.NewAnalytics(a.db, a.db)

	a.query = services.NewQueryService(router, analytics, retriever, a.db, a.db, llm, settings.Retrieval)
	a.query.SetPromptStore(prompts)

	a.leases = services.NewLeaseService(
		a.db, a.db, a.db, a.db, a.db,
		a.vectors, a.keywords, a.loaders, keyTermsExtractor,
	)

	logger.Debug("Services ready: vector backend %s, data %s", a.backend, a.db.Path())
	return a, nil
}

// newVectorIndex creates the configured vector backend.
func newVectorIndex(cfg domain.VectorSettings, db *sqlite.Store, dim int) (driven.VectorIndex, error) {
	switch cfg.Backend {
	case domain.VectorBackendSQLite, "":
		return db.VectorIndex(dim), nil
	case domain.VectorBackendMemory:
		return memory.NewVectorIndex(dim), nil
	case domain.VectorBackendQdrant:
		return qdrant.New(qdrant.Config{
			URL:        cfg.QdrantURL,
			APIKey:     cfg.QdrantAPIKey,
			Collection: cfg.QdrantCollection,
			Dimension:  dim,
			Timeout:    qdrantTimeout,
		}), nil
	default:
		return nil, fmt.Errorf("%w: unknown vector backend %q", domain.ErrInvalidInput, cfg.Backend)
	}
}

// pinger is implemented by backends that can report reachability.
type pinger interface {
	Ping(ctx context.Context) error
}

// health checks storage and AI providers. Storage checks are required;
// AI checks are optional because the services degrade without them.
func (a *application) health(ctx context.Context) []cli.HealthCheck {
	var checks []cli.HealthCheck

	check := func(name string, required bool, fn func(ctx context.Context) (string, error)) {
		cctx, cancel := context.WithTimeout(ctx, healthTimeout)
		defer cancel()
		detail, err := fn(cctx)
		if err != nil {
			detail = err.Error()
		}
		checks = append(checks, cli.HealthCheck{Name: name, OK: err == nil, Detail: detail, Required: required})
	}

	check("database", true, func(ctx context.Context) (string, error) {
		v, err := a.db.SchemaVersion(ctx)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("schema v%d at %s", v, a.db.Path()), nil
	})

	check("vector index", true, func(ctx context.Context) (string, error) {
		if p, ok := a.vectors.(pinger); ok {
			if err := p.Ping(ctx); err != nil {
				return "", err
			}
		}
		n, err := a.vectors.Count(ctx)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s, %d vectors", a.backend, n), nil
	})

	check("embedding", false, func(ctx context.Context) (string, error) {
		e := a.aiResult.EmbeddingService
		if e == nil {
			return "", errors.New("not configured")
		}
		if err := e.Ping(ctx); err != nil {
			return "", err
		}
		return fmt.Sprintf("%s (%d dims)", e.ModelName(), e.Dimensions()), nil
	})

	check("llm", false, func(ctx context.Context) (string, error) {
		l := a.aiResult.LLMService
		if l == nil {
			return "", errors.New("not configured")
		}
		if err := l.Ping(ctx); err != nil {
			return "", err
		}
		return l.ModelName(), nil
	})

	return checks
}

// close releases every resource the application opened.
func (a *application) close() error {
	var errs []error
	if a.vectors != nil {
		errs = append(errs, a.vectors.Close())
	}
	if a.keywords != nil {
		errs = append(errs, a.keywords.Close())
	}
	if a.aiResult != nil {
		a.aiResult.Close()
	}
	if a.db != nil {
		errs = append(errs, a.db.Close())
	}
	return errors.Join(errs...)
}
