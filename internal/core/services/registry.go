package services

import (
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/leasequery/internal/core/domain"
	"github.com/custodia-labs/leasequery/internal/core/ports/driving"
)

// Ensure Registry implements the interface.
var _ driving.RegistryService = (*Registry)(nil)

// Registry tracks files awaiting or undergoing processing.
// Jobs are keyed by lease ID, so two paths with the same file name
// cannot be processed at the same time.
type Registry struct {
	mu   sync.Mutex
	jobs map[string]*domain.PendingJob
	seq  uint64
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{jobs: make(map[string]*domain.PendingJob)}
}

// Register admits a path as pending unless it is already tracked.
func (r *Registry) Register(event domain.FileEvent) domain.RegisterOutcome {
	key := domain.LeaseID(event.FilePath)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.jobs[key]; ok {
		return domain.RegisterDuplicate
	}
	r.jobs[key] = r.newJob(event.FilePath, event.FileName, event.DetectedAt, domain.JobStatePending)
	return domain.RegisterAdmitted
}

// Acquire marks a path as running, inserting it if absent.
func (r *Registry) Acquire(path string) (func(), error) {
	key := domain.LeaseID(path)

	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[key]
	switch {
	case !ok:
		r.jobs[key] = r.newJob(path, "", time.Time{}, domain.JobStateRunning)
	case job.State == domain.JobStateRunning:
		return nil, domain.ErrJobInFlight
	default:
		job.State = domain.JobStateRunning
	}

	var once sync.Once
	return func() { once.Do(func() { r.Release(path) }) }, nil
}

// Release removes a path.
func (r *Registry) Release(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.jobs, domain.LeaseID(path))
}

// Abandon drops a pending path. Running jobs are left alone.
func (r *Registry) Abandon(path string) {
	key := domain.LeaseID(path)

	r.mu.Lock()
	defer r.mu.Unlock()
	if job, ok := r.jobs[key]; ok && job.State == domain.JobStatePending {
		delete(r.jobs, key)
	}
}

// ListPending returns a snapshot of all tracked jobs in admission order.
func (r *Registry) ListPending() []domain.PendingJob {
	r.mu.Lock()
	out := make([]domain.PendingJob, 0, len(r.jobs))
	for _, job := range r.jobs {
		out = append(out, *job)
	}
	r.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out
}

// newJob must be called with r.mu held.
func (r *Registry) newJob(path, name string, detectedAt time.Time, state domain.JobState) *domain.PendingJob {
	r.seq++
	if name == "" {
		name = filepath.Base(path)
	}
	if detectedAt.IsZero() {
		detectedAt = time.Now()
	}
	return &domain.PendingJob{
		Path:       path,
		FileName:   name,
		DetectedAt: detectedAt,
		State:      state,
		Seq:        r.seq,
	}
}
