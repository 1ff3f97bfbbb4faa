// Package memory provides in-memory implementations of the storage ports.
// They back the "memory" vector backend and the service tests.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/leasequery/internal/core/domain"
	"github.com/custodia-labs/leasequery/internal/core/ports/driven"
)

// Ensure Store implements the interfaces.
var (
	_ driven.LeaseStore        = (*Store)(nil)
	_ driven.ChunkStore        = (*Store)(nil)
	_ driven.ClauseStore       = (*Store)(nil)
	_ driven.KeyTermsStore     = (*Store)(nil)
	_ driven.IngestionLogStore = (*Store)(nil)
)

// Store is an in-memory lease store. Deleting a lease cascades to
// everything stored under it, matching the SQLite foreign keys.
type Store struct {
	mu       sync.RWMutex
	leases   map[string]domain.Lease
	chunks   map[string][]domain.Chunk
	clauses  map[string][]domain.ClauseRecord
	keyTerms map[string]domain.KeyTermsRecord
	logs     []domain.IngestionLog
	nextLog  int64
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		leases:   make(map[string]domain.Lease),
		chunks:   make(map[string][]domain.Chunk),
		clauses:  make(map[string][]domain.ClauseRecord),
		keyTerms: make(map[string]domain.KeyTermsRecord),
	}
}

// ==================== Leases ====================

// SaveLease stores or updates a lease.
func (s *Store) SaveLease(_ context.Context, lease *domain.Lease) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.leases[lease.ID] = *lease
	return nil
}

// GetLease retrieves a lease by ID.
func (s *Store) GetLease(_ context.Context, id string) (*domain.Lease, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	lease, ok := s.leases[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &lease, nil
}

// ListLeases returns all leases ordered by ID.
func (s *Store) ListLeases(_ context.Context) ([]domain.Lease, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]domain.Lease, 0, len(s.leases))
	for id := range s.leases {
		result = append(result, s.leases[id])
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// DeleteLease removes a lease and its chunks, clauses and key terms.
func (s *Store) DeleteLease(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.leases[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.leases, id)
	delete(s.chunks, id)
	delete(s.clauses, id)
	delete(s.keyTerms, id)
	return nil
}

// ==================== Chunks ====================

// SaveChunks stores chunks, replacing any with the same ID.
func (s *Store) SaveChunks(_ context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range chunks {
		existing := s.chunks[c.DocumentID]
		replaced := false
		for i := range existing {
			if existing[i].ID == c.ID {
				existing[i] = c
				replaced = true
				break
			}
		}
		if !replaced {
			existing = append(existing, c)
		}
		sort.SliceStable(existing, func(i, j int) bool { return existing[i].Ordinal < existing[j].Ordinal })
		s.chunks[c.DocumentID] = existing
	}
	return nil
}

// GetChunk retrieves a specific chunk by ID.
func (s *Store) GetChunk(_ context.Context, id string) (*domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, chunks := range s.chunks {
		for _, chunk := range chunks {
			if chunk.ID == id {
				return &chunk, nil
			}
		}
	}
	return nil, domain.ErrNotFound
}

// GetChunks retrieves all chunks for a document in ordinal order.
func (s *Store) GetChunks(_ context.Context, documentID string) ([]domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	chunks := s.chunks[documentID]
	out := make([]domain.Chunk, len(chunks))
	copy(out, chunks)
	return out, nil
}

// GetChunksByIDs retrieves chunks by ID.
func (s *Store) GetChunksByIDs(_ context.Context, ids []string) (map[string]domain.Chunk, error) {
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]domain.Chunk, len(ids))
	for _, chunks := range s.chunks {
		for _, c := range chunks {
			if want[c.ID] {
				out[c.ID] = c
			}
		}
	}
	return out, nil
}

// DeleteChunks removes all chunks for a document.
func (s *Store) DeleteChunks(_ context.Context, documentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.chunks, documentID)
	return nil
}

// ==================== Clauses ====================

// ReplaceClauses replaces all clause records for a document.
func (s *Store) ReplaceClauses(_ context.Context, documentID string, records []domain.ClauseRecord) error {
	out := make([]domain.ClauseRecord, 0, len(records))
	seen := make(map[domain.ClauseType]bool, len(records))
	for _, r := range records {
		if seen[r.Type] {
			continue
		}
		seen[r.Type] = true
		r.DocumentID = documentID
		out = append(out, r)
	}
	sortClauses(out)

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(out) == 0 {
		delete(s.clauses, documentID)
		return nil
	}
	s.clauses[documentID] = out
	return nil
}

// GetClauses returns a document's clause records in taxonomy order.
func (s *Store) GetClauses(_ context.Context, documentID string) ([]domain.ClauseRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	records := s.clauses[documentID]
	out := make([]domain.ClauseRecord, len(records))
	copy(out, records)
	return out, nil
}

// DeleteClauses removes all clause records for a document.
func (s *Store) DeleteClauses(_ context.Context, documentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.clauses, documentID)
	return nil
}

func sortClauses(records []domain.ClauseRecord) {
	order := make(map[domain.ClauseType]int)
	for i, c := range domain.AllClauseTypes() {
		order[c] = i
	}
	sort.SliceStable(records, func(i, j int) bool {
		return order[records[i].Type] < order[records[j].Type]
	})
}

// ==================== Key Terms ====================

// SaveKeyTerms replaces the key-terms record for a document.
func (s *Store) SaveKeyTerms(_ context.Context, record *domain.KeyTermsRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := *record
	rec.RentSchedule = append([]domain.RentStep(nil), record.RentSchedule...)
	s.keyTerms[record.DocumentID] = rec
	return nil
}

// GetKeyTerms retrieves the record for a document.
func (s *Store) GetKeyTerms(_ context.Context, documentID string) (*domain.KeyTermsRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.keyTerms[documentID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &rec, nil
}

// ListKeyTerms returns every stored record ordered by document ID.
func (s *Store) ListKeyTerms(_ context.Context) ([]domain.KeyTermsRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.KeyTermsRecord, 0, len(s.keyTerms))
	for id := range s.keyTerms {
		out = append(out, s.keyTerms[id])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DocumentID < out[j].DocumentID })
	return out, nil
}

// DeleteKeyTerms removes the record for a document.
func (s *Store) DeleteKeyTerms(_ context.Context, documentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.keyTerms, documentID)
	return nil
}

// ==================== Ingestion Logs ====================

// AppendLog stores a run record and assigns its ID.
func (s *Store) AppendLog(_ context.Context, entry *domain.IngestionLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextLog++
	entry.ID = s.nextLog
	s.logs = append(s.logs, *entry)
	return nil
}

// ListLogs returns the most recent records first.
func (s *Store) ListLogs(_ context.Context, limit int) ([]domain.IngestionLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := len(s.logs)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]domain.IngestionLog, 0, n)
	for i := len(s.logs) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, s.logs[i])
	}
	return out, nil
}
