package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/custodia-labs/leasequery/internal/core/domain"
	"github.com/custodia-labs/leasequery/internal/core/ports/driven"
	"github.com/custodia-labs/leasequery/internal/core/ports/driving"
	"github.com/custodia-labs/leasequery/internal/logger"
)

// Ensure LeaseService implements the interface.
var _ driving.LeaseService = (*LeaseService)(nil)

// LeaseService exposes stored leases, clause comparison and key terms.
type LeaseService struct {
	leases    driven.LeaseStore
	chunks    driven.ChunkStore
	clauses   driven.ClauseStore
	keyTerms  driven.KeyTermsStore
	logs      driven.IngestionLogStore
	vectors   driven.VectorIndex
	keywords  driven.SearchEngine
	loaders   driven.LoaderRegistry
	extractor *KeyTermsExtractor
	analytics *Analytics
}

// NewLeaseService creates a lease service. vectors, keywords, loaders and
// extractor may be nil.
func NewLeaseService(
	leases driven.LeaseStore,
	chunks driven.ChunkStore,
	clauses driven.ClauseStore,
	keyTerms driven.KeyTermsStore,
	logs driven.IngestionLogStore,
	vectors driven.VectorIndex,
	keywords driven.SearchEngine,
	loaders driven.LoaderRegistry,
	extractor *KeyTermsExtractor,
) *LeaseService {
	return &LeaseService{
		leases:    leases,
		chunks:    chunks,
		clauses:   clauses,
		keyTerms:  keyTerms,
		logs:      logs,
		vectors:   vectors,
		keywords:  keywords,
		loaders:   loaders,
		extractor: extractor,
		analytics: NewAnalytics(keyTerms, leases),
	}
}

// List returns all leases ordered by ID.
func (s *LeaseService) List(ctx context.Context) ([]domain.Lease, error) {
	return s.leases.ListLeases(ctx)
}

// Get retrieves a lease by ID or file name.
func (s *LeaseService) Get(ctx context.Context, id string) (*domain.Lease, error) {
	return s.leases.GetLease(ctx, domain.LeaseID(id))
}

// Delete removes a lease and everything derived from it.
func (s *LeaseService) Delete(ctx context.Context, id string) error {
	id = domain.LeaseID(id)
	if _, err := s.leases.GetLease(ctx, id); err != nil {
		return err
	}
	if err := purgeIndexes(ctx, id, s.chunks, s.vectors, s.keywords); err != nil {
		return fmt.Errorf("delete lease %s: %w", id, err)
	}
	if err := s.leases.DeleteLease(ctx, id); err != nil {
		return fmt.Errorf("delete lease %s: %w", id, err)
	}
	logger.Info("Deleted lease %s", id)
	return nil
}

// Compare groups the clause records of the given leases by clause type.
// Entries follow the order of ids; types no lease contains are omitted.
func (s *LeaseService) Compare(ctx context.Context, ids []string) (domain.Comparison, error) {
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: no leases to compare", domain.ErrInvalidInput)
	}

	out := make(domain.Comparison)
	for _, raw := range ids {
		id := domain.LeaseID(raw)
		if _, err := s.leases.GetLease(ctx, id); err != nil {
			return nil, fmt.Errorf("lease %s: %w", raw, err)
		}
		records, err := s.clauses.GetClauses(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("clauses for %s: %w", id, err)
		}
		for _, rec := range records {
			if !rec.Type.IsValid() {
				continue
			}
			out[rec.Type] = append(out[rec.Type], domain.ComparisonEntry{
				DocumentID:       id,
				Summary:          rec.Summary,
				KeyTerms:         rec.KeyTerms,
				ArticleReference: rec.ArticleReference,
			})
		}
	}
	return out, nil
}

// KeyTerms returns stored key terms for ids. Leases without a stored
// record are extracted on demand; those results are not persisted.
func (s *LeaseService) KeyTerms(ctx context.Context, ids []string) ([]domain.KeyTermsRecord, error) {
	out := make([]domain.KeyTermsRecord, 0, len(ids))
	for _, raw := range ids {
		id := domain.LeaseID(raw)
		rec, err := s.keyTerms.GetKeyTerms(ctx, id)
		if err == nil {
			out = append(out, *rec)
			continue
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("key terms for %s: %w", id, err)
		}

		rec, err = s.extractOnDemand(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, nil
}

func (s *LeaseService) extractOnDemand(ctx context.Context, id string) (*domain.KeyTermsRecord, error) {
	lease, err := s.leases.GetLease(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("lease %s: %w", id, err)
	}
	if s.extractor == nil || s.loaders == nil {
		return nil, fmt.Errorf("key terms for %s: %w", id, domain.ErrLLMUnavailable)
	}

	logger.Info("No stored key terms for %s, extracting on demand", id)
	text, err := s.loaders.Load(ctx, lease.SourcePath)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", lease.SourcePath, err)
	}
	rec, violations, err := s.extractor.ExtractKeyTerms(ctx, text.Text)
	if err != nil {
		return nil, fmt.Errorf("extract key terms for %s: %w", id, err)
	}
	for _, v := range violations {
		logger.Debug("Dropped extractor output: %v", v)
	}
	if rec == nil {
		return nil, fmt.Errorf("extract key terms for %s: %w", id, errors.Join(violationErrors(violations)...))
	}
	rec.DocumentID = id
	return rec, nil
}

// Portfolio summarises all stored key terms.
func (s *LeaseService) Portfolio(ctx context.Context) (*domain.Portfolio, error) {
	return s.analytics.Portfolio(ctx)
}

// IngestionLogs returns recent processing runs, newest first.
func (s *LeaseService) IngestionLogs(ctx context.Context, limit int) ([]domain.IngestionLog, error) {
	if s.logs == nil {
		return []domain.IngestionLog{}, nil
	}
	return s.logs.ListLogs(ctx, limit)
}

func violationErrors(vs []domain.Violation) []error {
	errs := make([]error, 0, len(vs))
	for _, v := range vs {
		errs = append(errs, v)
	}
	return errs
}
