// Package mcp provides an MCP (Model Context Protocol) server adapter for leasequery.
// It lets AI assistants ask questions about the lease portfolio, trigger
// processing and read extracted lease data.
package mcp

import "errors"

// ErrMissingQueryService is returned when the query service is not provided.
var ErrMissingQueryService = errors.New("mcp: query service is required")

// ErrServiceUnavailable is returned by tools whose backing service was not wired.
var ErrServiceUnavailable = errors.New("mcp: service not available")
