package driving

import "github.com/custodia-labs/leasequery/internal/core/domain"

// RegistryService tracks files awaiting or undergoing processing.
// All operations are safe for concurrent use.
type RegistryService interface {
	// Register admits a path as pending. A path that is already pending or
	// running yields RegisterDuplicate and changes nothing.
	Register(event domain.FileEvent) domain.RegisterOutcome

	// Acquire marks a path as running, inserting it if absent.
	// Returns domain.ErrJobInFlight if the path is already running.
	// The returned release function is idempotent.
	Acquire(path string) (release func(), err error)

	// Release removes a path. Idempotent.
	Release(path string)

	// Abandon drops a pending path that was never started.
	// Running jobs are left alone.
	Abandon(path string)

	// ListPending returns jobs in admission order.
	ListPending() []domain.PendingJob
}
