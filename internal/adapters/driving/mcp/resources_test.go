package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/leasequery/internal/core/domain"
)

func readRequest(uri string) *mcp.ReadResourceRequest {
	return &mcp.ReadResourceRequest{Params: &mcp.ReadResourceParams{URI: uri}}
}

func TestServer_handlePendingResource(t *testing.T) {
	registry := &mockRegistryService{jobs: []domain.PendingJob{
		{Path: "/in/a.pdf", FileName: "a.pdf", DetectedAt: time.Now(), State: domain.JobStatePending},
	}}
	server := newTestServer(t, &Ports{Registry: registry})

	res, err := server.handlePendingResource(context.Background(), readRequest("leasequery://pending"))

	require.NoError(t, err)
	require.Len(t, res.Contents, 1)
	assert.Equal(t, "application/json", res.Contents[0].MIMEType)

	var jobs []PendingEntry
	require.NoError(t, json.Unmarshal([]byte(res.Contents[0].Text), &jobs))
	require.Len(t, jobs, 1)
	assert.Equal(t, "a.pdf", jobs[0].FileName)
}

func TestServer_handleLeaseResource(t *testing.T) {
	ctx := context.Background()
	leases := &mockLeaseService{
		leases: []domain.Lease{{ID: "acme lease.pdf", Name: "Acme Lease.pdf", Status: domain.LeaseStatusIndexed}},
		keyTerms: []domain.KeyTermsRecord{{
			DocumentID: "acme lease.pdf",
			TenantName: strPtr("Acme Corp"),
		}},
		comparison: domain.Comparison{
			domain.ClauseSecurityDeposit: {{DocumentID: "acme lease.pdf", Summary: "Two months rent"}},
		},
	}

	t.Run("returns lease detail", func(t *testing.T) {
		server := newTestServer(t, &Ports{Leases: leases})

		res, err := server.handleLeaseResource(ctx, readRequest("leasequery://leases/acme%20lease.pdf"))

		require.NoError(t, err)
		var detail leaseDetail
		require.NoError(t, json.Unmarshal([]byte(res.Contents[0].Text), &detail))
		assert.Equal(t, "acme lease.pdf", detail.Lease.ID)
		require.NotNil(t, detail.KeyTerms)
		assert.Equal(t, "Acme Corp", detail.KeyTerms.TenantName)
		require.Len(t, detail.Clauses, 1)
		assert.Equal(t, "security_deposit", detail.Clauses[0].ClauseType)
	})

	t.Run("key terms failure still returns lease", func(t *testing.T) {
		failing := *leases
		failing.keyTermsErr = errors.New("llm down")
		server := newTestServer(t, &Ports{Leases: &failing})

		res, err := server.handleLeaseResource(ctx, readRequest("leasequery://leases/acme%20lease.pdf"))

		require.NoError(t, err)
		var detail leaseDetail
		require.NoError(t, json.Unmarshal([]byte(res.Contents[0].Text), &detail))
		assert.Nil(t, detail.KeyTerms)
	})

	t.Run("unknown lease is not found", func(t *testing.T) {
		server := newTestServer(t, &Ports{Leases: leases})

		_, err := server.handleLeaseResource(ctx, readRequest("leasequery://leases/missing.pdf"))

		assert.Error(t, err)
	})

	t.Run("no lease service", func(t *testing.T) {
		server := newTestServer(t, &Ports{})

		_, err := server.handleLeaseResource(ctx, readRequest("leasequery://leases/acme.pdf"))

		assert.Error(t, err)
	})
}

func TestExtractLeaseID(t *testing.T) {
	tests := []struct {
		uri  string
		want string
	}{
		{"leasequery://leases/acme.pdf", "acme.pdf"},
		{"leasequery://leases/my%20lease.docx", "my lease.docx"},
		{"leasequery://leases/a/b", ""},
		{"leasequery://pending", ""},
		{"other://leases/acme.pdf", ""},
	}
	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			assert.Equal(t, tt.want, extractLeaseID(tt.uri))
		})
	}
}
