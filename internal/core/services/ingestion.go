package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/custodia-labs/leasequery/internal/core/domain"
	"github.com/custodia-labs/leasequery/internal/core/ports/driven"
	"github.com/custodia-labs/leasequery/internal/core/ports/driving"
	"github.com/custodia-labs/leasequery/internal/logger"
)

// Ensure IngestionOrchestrator implements the interface.
var _ driving.IngestionService = (*IngestionOrchestrator)(nil)

// Ingestion log statuses.
const (
	logStatusSuccess = "success"
	logStatusFailed  = "failed"
	logStatusSkipped = "skipped"
)

// IngestionOrchestrator runs documents through load, chunk, embed and
// extraction stages and records the outcome.
type IngestionOrchestrator struct {
	registry driving.RegistryService
	notifier driving.NotificationService
	loaders  driven.LoaderRegistry
	pipeline driven.PostProcessorPipeline

	embedder driven.EmbeddingService
	vectors  driven.VectorIndex
	keywords driven.SearchEngine

	leases   driven.LeaseStore
	chunks   driven.ChunkStore
	clauses  driven.ClauseStore
	keyTerms driven.KeyTermsStore
	logs     driven.IngestionLogStore

	clauseExtractor   *ClauseExtractor
	keyTermsExtractor *KeyTermsExtractor

	settings     domain.IngestionSettings
	processedDir string
	now          func() time.Time
}

// NewIngestionOrchestrator creates an orchestrator. Indexing backends and
// the notifier are set separately and are optional.
func NewIngestionOrchestrator(
	registry driving.RegistryService,
	loaders driven.LoaderRegistry,
	pipeline driven.PostProcessorPipeline,
	leases driven.LeaseStore,
	chunks driven.ChunkStore,
	clauses driven.ClauseStore,
	keyTerms driven.KeyTermsStore,
	logs driven.IngestionLogStore,
	clauseExtractor *ClauseExtractor,
	keyTermsExtractor *KeyTermsExtractor,
	settings domain.IngestionSettings,
) *IngestionOrchestrator {
	return &IngestionOrchestrator{
		registry:          registry,
		loaders:           loaders,
		pipeline:          pipeline,
		leases:            leases,
		chunks:            chunks,
		clauses:           clauses,
		keyTerms:          keyTerms,
		logs:              logs,
		clauseExtractor:   clauseExtractor,
		keyTermsExtractor: keyTermsExtractor,
		settings:          settings,
		now:               time.Now,
	}
}

// SetIndexing sets the embedding service, vector index and keyword engine.
// Without an embedder or vector index, full runs skip vector indexing.
func (o *IngestionOrchestrator) SetIndexing(embedder driven.EmbeddingService, vectors driven.VectorIndex, keywords driven.SearchEngine) {
	o.embedder = embedder
	o.vectors = vectors
	o.keywords = keywords
}

// SetNotifier sets the service notified when files are admitted.
func (o *IngestionOrchestrator) SetNotifier(n driving.NotificationService) {
	o.notifier = n
}

// SetProcessedDir sets the directory successful files are moved to.
// Empty leaves files in place.
func (o *IngestionOrchestrator) SetProcessedDir(dir string) {
	o.processedDir = dir
}

// OnFileDetected registers a detected file and notifies subscribers when
// it is admitted. Duplicate detections change nothing.
func (o *IngestionOrchestrator) OnFileDetected(_ context.Context, event domain.FileEvent) domain.RegisterOutcome {
	outcome := o.registry.Register(event)
	if outcome != domain.RegisterAdmitted {
		logger.Debug("Duplicate detection ignored: %s", event.FilePath)
		return outcome
	}

	logger.Info("New file pending: %s", event.FilePath)
	if o.notifier != nil {
		name := event.FileName
		if name == "" {
			name = filepath.Base(event.FilePath)
		}
		o.notifier.Publish(domain.Notification{
			Type:     domain.NotificationNewFile,
			FilePath: event.FilePath,
			FileName: name,
		})
	}
	return outcome
}

// ingestionRun carries the state of one Process call.
type ingestionRun struct {
	path    string
	mode    domain.IngestionMode
	started time.Time
	lease   *domain.Lease
	result  *domain.ProcessResult

	// wrote is set once derived data for the lease has been modified.
	wrote bool

	// clausesReplaced is set once this run's clause records are stored.
	clausesReplaced bool
}

// Process runs the ingestion pipeline for one file. Every failure is
// reported in the result with the stage it occurred in.
//
//nolint:gocyclo,funlen // Orchestration function with necessary sequential steps.
func (o *IngestionOrchestrator) Process(
	ctx context.Context, path string, mode domain.IngestionMode, opts domain.ProcessOptions,
) *domain.ProcessResult {
	run := &ingestionRun{
		path:    path,
		mode:    mode,
		started: o.now(),
		result:  &domain.ProcessResult{FileName: filepath.Base(path), Mode: mode},
	}
	id := domain.LeaseID(path)
	logger.Section("Processing " + run.result.FileName)

	// 1. ADMIT
	if !mode.IsValid() {
		return o.fail(ctx, run, domain.NewStageError(domain.StageAdmitted,
			fmt.Errorf("%w: unknown mode %q", domain.ErrInvalidInput, mode)))
	}
	release, err := o.registry.Acquire(path)
	if err != nil {
		return o.fail(ctx, run, domain.NewStageError(domain.StageAdmitted, err))
	}
	defer release()
	logger.Stage(id, domain.StageAdmitted)

	prior, err := o.leases.GetLease(ctx, id)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return o.fail(ctx, run, domain.NewStageError(domain.StageAdmitted, fmt.Errorf("get lease: %w", err)))
	}
	run.lease = o.leaseFor(id, path, prior)

	// 2. LOAD
	logger.Stage(id, domain.StageLoading)
	text, err := o.load(ctx, path)
	if err != nil {
		return o.fail(ctx, run, domain.NewStageError(domain.StageLoading, err))
	}
	run.lease.Title = text.Title
	run.lease.PageCount = len(text.Pages)

	// 3. FINGERPRINT CHECK
	if prior != nil && !opts.Force && prior.Status == domain.LeaseStatusIndexed &&
		prior.Fingerprint == text.Fingerprint && prior.Mode.Covers(mode) {
		return o.skip(ctx, run, prior)
	}

	// 4. MARK PROCESSING
	run.lease.Status = domain.LeaseStatusProcessing
	run.lease.FailedStage = ""
	run.lease.LastError = ""
	if err := o.saveLease(ctx, run.lease); err != nil {
		return o.fail(ctx, run, domain.NewStageError(domain.StageLoading, err))
	}

	if mode == domain.ModeFull {
		run.wrote = true
		if err := o.purgeIndexes(ctx, id); err != nil {
			return o.fail(ctx, run, domain.NewStageError(domain.StageChunking, fmt.Errorf("purge: %w", err)))
		}

		// 5. CHUNK
		logger.Stage(id, domain.StageChunking)
		chunks, err := o.chunk(ctx, id, text)
		if err != nil {
			return o.fail(ctx, run, domain.NewStageError(domain.StageChunking, err))
		}
		run.result.ChunksProcessed = len(chunks)
		run.lease.ChunkCount = len(chunks)

		// 6. EMBED AND INDEX
		logger.Stage(id, domain.StageEmbedding)
		uploaded, err := o.index(ctx, id, chunks)
		if err != nil {
			return o.fail(ctx, run, domain.NewStageError(domain.StageEmbedding, err))
		}
		run.result.VectorsUploaded = uploaded
	} else if prior != nil && prior.Fingerprint != text.Fingerprint {
		// The text changed, so chunks and key terms of the prior run are stale.
		run.wrote = true
		if err := o.purgeStale(ctx, id); err != nil {
			return o.fail(ctx, run, domain.NewStageError(domain.StageExtracting, fmt.Errorf("purge: %w", err)))
		}
		run.lease.ChunkCount = 0
	}

	// 7. EXTRACT
	logger.Stage(id, domain.StageExtracting)
	if err := o.extract(ctx, run, text.Text); err != nil {
		return o.fail(ctx, run, domain.NewStageError(domain.StageExtracting, err))
	}

	// 8. COMPLETE
	run.lease.Status = domain.LeaseStatusIndexed
	run.lease.Mode = mode
	run.lease.Fingerprint = text.Fingerprint
	if err := o.saveLease(ctx, run.lease); err != nil {
		return o.fail(ctx, run, domain.NewStageError(domain.StageIndexed, err))
	}
	logger.Stage(id, domain.StageIndexed)
	o.moveProcessed(ctx, run)

	run.result.Success = true
	run.result.ProcessingTime = o.elapsed(run)
	o.appendLog(ctx, run, logStatusSuccess)
	logger.Info("Processed %s: %d chunks, %d vectors, %d clauses in %.2fs",
		run.result.FileName, run.result.ChunksProcessed, run.result.VectorsUploaded,
		run.result.ClausesFound, run.result.ProcessingTime)
	return run.result
}

// leaseFor builds the lease record for this run, keeping identity fields
// from the prior record.
func (o *IngestionOrchestrator) leaseFor(id, path string, prior *domain.Lease) *domain.Lease {
	now := o.now().UTC()
	if prior != nil {
		l := *prior
		l.SourcePath = path
		l.Name = filepath.Base(path)
		return &l
	}
	detected := now
	for _, job := range o.registry.ListPending() {
		if domain.LeaseID(job.Path) == id {
			detected = job.DetectedAt
		}
	}
	return &domain.Lease{
		ID:         id,
		Name:       filepath.Base(path),
		SourcePath: path,
		DetectedAt: detected,
		Status:     domain.LeaseStatusPending,
		CreatedAt:  now,
	}
}

func (o *IngestionOrchestrator) load(ctx context.Context, path string) (*domain.NormalizedText, error) {
	if o.loaders == nil {
		return nil, errors.New("no document loaders configured")
	}
	ctx, cancel := o.stageContext(ctx)
	defer cancel()
	return o.loaders.Load(ctx, path)
}

func (o *IngestionOrchestrator) chunk(ctx context.Context, id string, text *domain.NormalizedText) ([]domain.Chunk, error) {
	if o.pipeline == nil {
		return nil, errors.New("no chunk pipeline configured")
	}
	chunks, err := o.pipeline.Process(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("post-process: %w", err)
	}
	for i := range chunks {
		chunks[i].DocumentID = id
	}
	if err := o.chunks.SaveChunks(ctx, chunks); err != nil {
		return nil, fmt.Errorf("save chunks: %w", err)
	}
	logger.Debug("Chunked %s into %d chunks", id, len(chunks))
	return chunks, nil
}

// index embeds chunks in batches and writes the vector and keyword indexes.
// It returns the number of vectors written.
func (o *IngestionOrchestrator) index(ctx context.Context, id string, chunks []domain.Chunk) (int, error) {
	if o.keywords != nil {
		for _, c := range chunks {
			if err := o.keywords.Index(ctx, c); err != nil {
				return 0, fmt.Errorf("keyword index: %w", err)
			}
		}
	}

	if o.embedder == nil || o.vectors == nil {
		logger.Warn("Embedding service or vector index not configured, skipping vector indexing for %s", id)
		return 0, nil
	}

	ctx, cancel := o.stageContext(ctx)
	defer cancel()

	batch := o.settings.EmbedBatchSize
	if batch <= 0 {
		batch = domain.DefaultAppSettings().Ingestion.EmbedBatchSize
	}
	records := make([]driven.VectorRecord, 0, len(chunks))
	for start := 0; start < len(chunks); start += batch {
		end := min(start+batch, len(chunks))
		texts := make([]string, 0, end-start)
		for _, c := range chunks[start:end] {
			texts = append(texts, c.Content)
		}
		vectors, err := o.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return 0, fmt.Errorf("embed batch %d-%d: %w", start, end, err)
		}
		if len(vectors) != len(texts) {
			return 0, fmt.Errorf("%w: got %d embeddings for %d chunks", domain.ErrEmbeddingService, len(vectors), len(texts))
		}
		for i, v := range vectors {
			records = append(records, driven.VectorRecord{ChunkID: chunks[start+i].ID, Vector: v})
		}
		logger.Debug("Embedded %d/%d chunks", end, len(chunks))
	}

	if err := o.vectors.Upsert(ctx, id, records); err != nil {
		return 0, fmt.Errorf("vector upsert: %w", err)
	}
	return len(records), nil
}

// extract runs clause extraction and, in full mode, key-terms extraction.
// A missing LLM skips extraction rather than failing the run.
func (o *IngestionOrchestrator) extract(ctx context.Context, run *ingestionRun, text string) error {
	ctx, cancel := o.stageContext(ctx)
	defer cancel()

	records, violations, err := o.clauseExtractor.ExtractClauses(ctx, text)
	switch {
	case errors.Is(err, domain.ErrLLMUnavailable):
		logger.Warn("LLM not configured, skipping clause extraction for %s", run.lease.ID)
		run.result.Warnings = append(run.result.Warnings, "clause extraction skipped: LLM not configured")
	case err != nil:
		return err
	default:
		ordered := make([]domain.ClauseRecord, 0, len(records))
		for _, ct := range domain.AllClauseTypes() {
			if rec, ok := records[ct]; ok {
				ordered = append(ordered, rec)
			}
		}
		run.wrote = true
		if err := o.clauses.ReplaceClauses(ctx, run.lease.ID, ordered); err != nil {
			return fmt.Errorf("save clauses: %w", err)
		}
		run.clausesReplaced = true
		run.result.ClausesFound = len(ordered)
		run.addViolations(violations)
	}

	if run.mode != domain.ModeFull {
		return nil
	}

	terms, violations, err := o.keyTermsExtractor.ExtractKeyTerms(ctx, text)
	switch {
	case errors.Is(err, domain.ErrLLMUnavailable):
		logger.Warn("LLM not configured, skipping key terms extraction for %s", run.lease.ID)
		run.result.Warnings = append(run.result.Warnings, "key terms extraction skipped: LLM not configured")
		return nil
	case err != nil:
		return err
	case terms == nil:
		run.addViolations(violations)
		return nil
	}
	terms.DocumentID = run.lease.ID
	if err := o.keyTerms.SaveKeyTerms(ctx, terms); err != nil {
		return fmt.Errorf("save key terms: %w", err)
	}
	run.addViolations(violations)
	return nil
}

func (r *ingestionRun) addViolations(vs []domain.Violation) {
	for _, v := range vs {
		logger.Debug("Dropped extractor output: %v", v)
		r.result.Warnings = append(r.result.Warnings, v.Field+": "+v.Reason)
	}
}

// skip completes a run whose document is already indexed unchanged.
func (o *IngestionOrchestrator) skip(ctx context.Context, run *ingestionRun, prior *domain.Lease) *domain.ProcessResult {
	logger.Info("Unchanged since last run, skipping %s (use --force to rebuild)", prior.ID)
	run.result.Success = true
	run.result.Skipped = true
	run.result.ChunksProcessed = prior.ChunkCount
	if prior.Mode == domain.ModeFull && o.vectors != nil {
		run.result.VectorsUploaded = prior.ChunkCount
	}
	if records, err := o.clauses.GetClauses(ctx, prior.ID); err == nil {
		run.result.ClausesFound = len(records)
	}
	run.result.ProcessingTime = o.elapsed(run)
	o.appendLog(ctx, run, logStatusSkipped)
	return run.result
}

// fail rolls back the run's writes, marks the lease failed and records
// the outcome.
func (o *IngestionOrchestrator) fail(ctx context.Context, run *ingestionRun, err *domain.StageError) *domain.ProcessResult {
	logger.Error("Processing %s failed at %s: %v", run.result.FileName, err.Stage, err.Err)
	logger.Stage(domain.LeaseID(run.path), domain.StageFailed)

	// Clean up even when the caller's context is cancelled.
	cleanup := context.WithoutCancel(ctx)

	if run.wrote {
		if perr := o.rollback(cleanup, run); perr != nil {
			logger.Error("Rollback of %s failed: %v", run.lease.ID, perr)
		} else {
			logger.Info("Rolled back %s run for %s", run.mode, run.lease.ID)
		}
	}

	if run.lease != nil {
		run.lease.Status = domain.LeaseStatusFailed
		run.lease.FailedStage = err.Stage
		run.lease.LastError = err.Error()
		if serr := o.saveLease(cleanup, run.lease); serr != nil {
			logger.Error("Could not record failure of %s: %v", run.lease.ID, serr)
		}
	}

	run.result.Success = false
	run.result.Error = err.Error()
	run.result.FailedStage = err.Stage
	run.result.ChunksProcessed = 0
	run.result.VectorsUploaded = 0
	run.result.ClausesFound = 0
	run.result.ProcessingTime = o.elapsed(run)
	o.appendLog(cleanup, run, logStatusFailed)
	return run.result
}

// rollback undoes the writes of a failed run. Full runs purge all derived
// data. Clause-only runs remove only clause records they stored; a failed
// replace leaves the previous records in place.
func (o *IngestionOrchestrator) rollback(ctx context.Context, run *ingestionRun) error {
	if run.mode == domain.ModeFull {
		run.lease.ChunkCount = 0
		return o.purgeDerived(ctx, run.lease.ID)
	}
	if !run.clausesReplaced {
		return nil
	}
	return o.clauses.DeleteClauses(ctx, run.lease.ID)
}

// purgeIndexes removes a lease's chunks and index entries.
func (o *IngestionOrchestrator) purgeIndexes(ctx context.Context, id string) error {
	return purgeIndexes(ctx, id, o.chunks, o.vectors, o.keywords)
}

// purgeStale removes chunks, index entries and key terms of a lease
// whose text changed. Clause records are replaced by the run itself.
func (o *IngestionOrchestrator) purgeStale(ctx context.Context, id string) error {
	var errs []error
	if err := o.purgeIndexes(ctx, id); err != nil {
		errs = append(errs, err)
	}
	if err := o.keyTerms.DeleteKeyTerms(ctx, id); err != nil && !errors.Is(err, domain.ErrNotFound) {
		errs = append(errs, fmt.Errorf("delete key terms: %w", err))
	}
	return errors.Join(errs...)
}

// purgeDerived removes everything derived from a lease, keeping the lease record.
func (o *IngestionOrchestrator) purgeDerived(ctx context.Context, id string) error {
	var errs []error
	if err := o.purgeIndexes(ctx, id); err != nil {
		errs = append(errs, err)
	}
	if err := o.clauses.DeleteClauses(ctx, id); err != nil {
		errs = append(errs, fmt.Errorf("delete clauses: %w", err))
	}
	if err := o.keyTerms.DeleteKeyTerms(ctx, id); err != nil && !errors.Is(err, domain.ErrNotFound) {
		errs = append(errs, fmt.Errorf("delete key terms: %w", err))
	}
	return errors.Join(errs...)
}

// purgeIndexes deletes chunks, vectors and keyword entries of a lease.
// Missing data is not an error.
func purgeIndexes(ctx context.Context, id string, chunks driven.ChunkStore, vectors driven.VectorIndex, keywords driven.SearchEngine) error {
	var errs []error
	if vectors != nil {
		if err := vectors.Delete(ctx, id); err != nil {
			errs = append(errs, fmt.Errorf("delete vectors: %w", err))
		}
	}
	if keywords != nil {
		if err := keywords.DeleteDocument(ctx, id); err != nil {
			errs = append(errs, fmt.Errorf("delete keyword entries: %w", err))
		}
	}
	if chunks != nil {
		if err := chunks.DeleteChunks(ctx, id); err != nil && !errors.Is(err, domain.ErrNotFound) {
			errs = append(errs, fmt.Errorf("delete chunks: %w", err))
		}
	}
	return errors.Join(errs...)
}

func (o *IngestionOrchestrator) saveLease(ctx context.Context, lease *domain.Lease) error {
	lease.UpdatedAt = o.now().UTC()
	if lease.CreatedAt.IsZero() {
		lease.CreatedAt = lease.UpdatedAt
	}
	if err := o.leases.SaveLease(ctx, lease); err != nil {
		return fmt.Errorf("save lease: %w", err)
	}
	return nil
}

// moveProcessed moves the source file of an indexed lease into the
// processed directory and records the new path. Failures are logged and
// leave the file in place.
func (o *IngestionOrchestrator) moveProcessed(ctx context.Context, run *ingestionRun) {
	if o.processedDir == "" {
		return
	}
	if err := os.MkdirAll(o.processedDir, 0o755); err != nil {
		logger.Warn("Could not create processed directory: %v", err)
		return
	}
	dest := filepath.Join(o.processedDir, filepath.Base(run.path))
	if err := os.Rename(run.path, dest); err != nil {
		logger.Warn("Could not move %s to %s: %v", run.path, dest, err)
		return
	}
	run.lease.SourcePath = dest
	if err := o.saveLease(ctx, run.lease); err != nil {
		logger.Warn("Could not record new path of %s: %v", run.lease.ID, err)
		if rerr := os.Rename(dest, run.path); rerr != nil {
			logger.Warn("Could not move %s back: %v", dest, rerr)
			return
		}
		run.lease.SourcePath = run.path
		return
	}
	logger.Debug("Moved %s to %s", run.path, dest)
}

func (o *IngestionOrchestrator) appendLog(ctx context.Context, run *ingestionRun, status string) {
	if o.logs == nil {
		return
	}
	entry := &domain.IngestionLog{
		DocumentName:    run.result.FileName,
		Status:          status,
		Mode:            run.mode,
		ChunksProcessed: run.result.ChunksProcessed,
		VectorsUploaded: run.result.VectorsUploaded,
		ProcessingTime:  run.result.ProcessingTime,
		FailedStage:     run.result.FailedStage,
		ErrorMessage:    run.result.Error,
		CreatedAt:       o.now().UTC(),
	}
	if err := o.logs.AppendLog(ctx, entry); err != nil {
		logger.Warn("Could not write ingestion log: %v", err)
	}
}

func (o *IngestionOrchestrator) stageContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if o.settings.StageTimeout > 0 {
		return context.WithTimeout(ctx, o.settings.StageTimeout)
	}
	return context.WithCancel(ctx)
}

func (o *IngestionOrchestrator) elapsed(run *ingestionRun) float64 {
	return math.Round(o.now().Sub(run.started).Seconds()*100) / 100
}
