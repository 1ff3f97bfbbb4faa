package mcp

import (
	"context"
	"sync"

	"github.com/custodia-labs/leasequery/internal/core/domain"
)

// mockQueryService is a mock implementation of driving.QueryService.
type mockQueryService struct {
	answer   *domain.Answer
	err      error
	question string
}

func (m *mockQueryService) Ask(_ context.Context, question string) (*domain.Answer, error) {
	m.question = question
	return m.answer, m.err
}

// mockIngestionService is a mock implementation of driving.IngestionService.
type mockIngestionService struct {
	mu     sync.Mutex
	result *domain.ProcessResult
	path   string
	mode   domain.IngestionMode
	opts   domain.ProcessOptions
}

func (m *mockIngestionService) Process(
	_ context.Context,
	path string,
	mode domain.IngestionMode,
	opts domain.ProcessOptions,
) *domain.ProcessResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.path, m.mode, m.opts = path, mode, opts
	return m.result
}

func (m *mockIngestionService) OnFileDetected(_ context.Context, _ domain.FileEvent) domain.RegisterOutcome {
	return domain.RegisterAdmitted
}

// mockRegistryService is a mock implementation of driving.RegistryService.
type mockRegistryService struct {
	jobs []domain.PendingJob
}

func (m *mockRegistryService) Register(_ domain.FileEvent) domain.RegisterOutcome {
	return domain.RegisterAdmitted
}

func (m *mockRegistryService) Acquire(_ string) (func(), error) {
	return func() {}, nil
}

func (m *mockRegistryService) Release(_ string) {}

func (m *mockRegistryService) Abandon(_ string) {}

func (m *mockRegistryService) ListPending() []domain.PendingJob {
	return m.jobs
}

// mockLeaseService is a mock implementation of driving.LeaseService.
type mockLeaseService struct {
	leases      []domain.Lease
	comparison  domain.Comparison
	keyTerms    []domain.KeyTermsRecord
	portfolio   *domain.Portfolio
	logs        []domain.IngestionLog
	err         error
	keyTermsErr error
	compareIDs  []string
}

func (m *mockLeaseService) List(_ context.Context) ([]domain.Lease, error) {
	return m.leases, m.err
}

func (m *mockLeaseService) Get(_ context.Context, id string) (*domain.Lease, error) {
	if m.err != nil {
		return nil, m.err
	}
	for i := range m.leases {
		if m.leases[i].ID == id {
			return &m.leases[i], nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockLeaseService) Delete(_ context.Context, _ string) error {
	return m.err
}

func (m *mockLeaseService) Compare(_ context.Context, ids []string) (domain.Comparison, error) {
	m.compareIDs = ids
	return m.comparison, m.err
}

func (m *mockLeaseService) KeyTerms(_ context.Context, _ []string) ([]domain.KeyTermsRecord, error) {
	if m.keyTermsErr != nil {
		return nil, m.keyTermsErr
	}
	return m.keyTerms, m.err
}

func (m *mockLeaseService) Portfolio(_ context.Context) (*domain.Portfolio, error) {
	return m.portfolio, m.err
}

func (m *mockLeaseService) IngestionLogs(_ context.Context, _ int) ([]domain.IngestionLog, error) {
	return m.logs, m.err
}

func strPtr(s string) *string { return &s }

func floatPtr(f float64) *float64 { return &f }
