package mcp

import (
	"github.com/custodia-labs/leasequery/internal/core/ports/driving"
)

// Ports aggregates the driving port interfaces used by the MCP server.
type Ports struct {
	// Query answers questions. Required.
	Query driving.QueryService

	// Ingestion processes lease files.
	Ingestion driving.IngestionService

	// Registry lists files awaiting processing.
	Registry driving.RegistryService

	// Leases exposes stored leases and extracted data.
	Leases driving.LeaseService
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p == nil || p.Query == nil {
		return ErrMissingQueryService
	}
	return nil
}
