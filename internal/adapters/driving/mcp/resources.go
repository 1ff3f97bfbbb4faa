package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/leasequery/internal/core/domain"
	"github.com/custodia-labs/leasequery/internal/logger"
)

const (
	// uriScheme is the custom URI scheme for leasequery resources.
	uriScheme = "leasequery://"

	mimeJSON = "application/json"
)

// leaseDetail is the body of a lease resource.
type leaseDetail struct {
	Lease    LeaseEntry         `json:"lease"`
	KeyTerms *KeyTermsEntry     `json:"key_terms,omitempty"`
	Clauses  []ClauseComparison `json:"clauses"`
}

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "pending",
		Name:        "pending",
		Description: "Lease files detected and awaiting processing",
		MIMEType:    mimeJSON,
	}, s.handlePendingResource)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "leases/{id}",
		Name:        "lease",
		Description: "A stored lease with its key terms and clause summaries",
		MIMEType:    mimeJSON,
	}, s.handleLeaseResource)
}

func (s *Server) handlePendingResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	_, out, err := s.handleListPending(ctx, nil, ListInput{})
	if err != nil {
		return nil, err
	}
	return jsonResource(req.Params.URI, out.Jobs)
}

func (s *Server) handleLeaseResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.Leases == nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	id := extractLeaseID(req.Params.URI)
	if id == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	lease, err := s.ports.Leases.Get(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}
	if err != nil {
		return nil, fmt.Errorf("getting lease: %w", err)
	}

	detail := leaseDetail{Lease: leaseEntry(lease), Clauses: []ClauseComparison{}}

	if records, err := s.ports.Leases.KeyTerms(ctx, []string{id}); err != nil {
		logger.Warn("Lease resource %s: key terms unavailable: %v", id, err)
	} else if len(records) > 0 {
		entry := keyTermsEntry(&records[0])
		detail.KeyTerms = &entry
	}

	_, cmp, err := s.handleCompare(ctx, nil, DocumentsInput{DocumentIDs: []string{id}})
	if err != nil {
		logger.Warn("Lease resource %s: clauses unavailable: %v", id, err)
	} else {
		detail.Clauses = cmp.Clauses
	}

	return jsonResource(req.Params.URI, detail)
}

func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling resource: %w", err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: mimeJSON,
			Text:     string(data),
		}},
	}, nil
}

// extractLeaseID extracts the lease ID from a URI like leasequery://leases/{id}.
func extractLeaseID(uri string) string {
	const prefix = uriScheme + "leases/"

	if !strings.HasPrefix(uri, prefix) {
		return ""
	}
	id, err := url.PathUnescape(strings.TrimPrefix(uri, prefix))
	if err != nil || strings.Contains(id, "/") {
		return ""
	}
	return id
}
