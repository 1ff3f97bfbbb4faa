// Package domain defines the core business entities for leasequery.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Lease: An ingested lease document, keyed by its normalised file name
//   - Chunk: A retrievable span of a lease's normalised text
//   - ClauseRecord: A summary of one clause type from the closed taxonomy
//   - KeyTermsRecord: The scalar fields extracted from a lease
//   - PendingJob: A detected file awaiting processing
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
