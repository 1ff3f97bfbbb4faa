package mcp

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/leasequery/internal/core/domain"
)

// AskInput is the input schema for the ask tool.
type AskInput struct {
	Question string `json:"question" jsonschema:"natural-language question about the lease portfolio"`
}

// AskOutput is the output schema for the ask tool.
type AskOutput struct {
	Answer     string   `json:"answer"`
	Route      string   `json:"route"`
	Confidence int      `json:"confidence"`
	Sources    []string `json:"sources"`
}

// ProcessInput is the input schema for the process tool.
type ProcessInput struct {
	Path  string `json:"path" jsonschema:"path of the lease file to process"`
	Mode  string `json:"mode,omitempty" jsonschema:"full or clause_only (default full)"`
	Force bool   `json:"force,omitempty" jsonschema:"rebuild even if the file is unchanged"`
}

// ProcessOutput is the output schema for the process tool.
type ProcessOutput struct {
	Success         bool     `json:"success"`
	FileName        string   `json:"file_name"`
	Mode            string   `json:"mode"`
	ChunksProcessed int      `json:"chunks_processed,omitempty"`
	VectorsUploaded int      `json:"vectors_uploaded,omitempty"`
	ProcessingTime  float64  `json:"processing_time,omitempty"`
	Error           string   `json:"error,omitempty"`
	FailedStage     string   `json:"failed_stage,omitempty"`
	Skipped         bool     `json:"skipped,omitempty"`
	Warnings        []string `json:"warnings,omitempty"`
}

// DocumentsInput selects leases by ID.
type DocumentsInput struct {
	DocumentIDs []string `json:"document_ids" jsonschema:"lease IDs (normalised file names)"`
}

// CompareOutput is the output schema for the compare tool.
type CompareOutput struct {
	Clauses []ClauseComparison `json:"clauses"`
}

// ClauseComparison holds one clause type's entries across leases.
type ClauseComparison struct {
	ClauseType string         `json:"clause_type"`
	Entries    []CompareEntry `json:"entries"`
}

// CompareEntry is one lease's clause summary.
type CompareEntry struct {
	DocumentID       string   `json:"document_id"`
	Summary          string   `json:"summary"`
	KeyTerms         []string `json:"key_terms"`
	ArticleReference string   `json:"article_reference,omitempty"`
}

// KeyTermsOutput is the output schema for the key_terms tool.
type KeyTermsOutput struct {
	Records []KeyTermsEntry `json:"records"`
}

// KeyTermsEntry is a flattened key-terms record. Missing values are omitted.
type KeyTermsEntry struct {
	DocumentID           string            `json:"document_id"`
	TenantName           string            `json:"tenant_name,omitempty"`
	TradeName            string            `json:"trade_name,omitempty"`
	LandlordName         string            `json:"landlord_name,omitempty"`
	TenantAddress        string            `json:"tenant_address,omitempty"`
	Indemnifier          string            `json:"indemnifier,omitempty"`
	Premises             string            `json:"premises_description,omitempty"`
	LeaseDate            string            `json:"lease_date,omitempty"`
	CommencementDate     string            `json:"commencement_date,omitempty"`
	ExpirationDate       string            `json:"expiration_date,omitempty"`
	RentableArea         *float64          `json:"rentable_area,omitempty"`
	TermYears            *float64          `json:"term_years,omitempty"`
	DepositAmount        *float64          `json:"deposit_amount,omitempty"`
	RenewalOption        string            `json:"renewal_option,omitempty"`
	PermittedUse         string            `json:"permitted_use,omitempty"`
	FixturingPeriod      string            `json:"fixturing_period,omitempty"`
	FreeRentPeriod       string            `json:"free_rent_period,omitempty"`
	PossessionDate       string            `json:"possession_date,omitempty"`
	ImprovementAllowance string            `json:"improvement_allowance,omitempty"`
	ExclusiveUse         string            `json:"exclusive_use,omitempty"`
	RadiusRestriction    string            `json:"radius_restriction,omitempty"`
	RentSchedule         []domain.RentStep `json:"rent_schedule,omitempty"`
	ExtractedAt          string            `json:"extracted_at,omitempty"`
}

// ListInput is the empty input of the list tools.
type ListInput struct{}

// ListPendingOutput is the output schema for the list_pending tool.
type ListPendingOutput struct {
	Jobs  []PendingEntry `json:"jobs"`
	Count int            `json:"count"`
}

// PendingEntry is one file awaiting processing.
type PendingEntry struct {
	FilePath   string `json:"file_path"`
	FileName   string `json:"file_name"`
	DetectedAt string `json:"detected_at"`
	State      string `json:"state"`
}

// ListLeasesOutput is the output schema for the list_leases tool.
type ListLeasesOutput struct {
	Leases []LeaseEntry `json:"leases"`
	Count  int          `json:"count"`
}

// LeaseEntry summarises one stored lease.
type LeaseEntry struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Status      string `json:"status"`
	Mode        string `json:"mode,omitempty"`
	FailedStage string `json:"failed_stage,omitempty"`
	ChunkCount  int    `json:"chunk_count"`
	PageCount   int    `json:"page_count"`
	UpdatedAt   string `json:"updated_at,omitempty"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ask",
		Description: "Answer a question about the indexed leases, with sources and a confidence score",
	}, s.handleAsk)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "process",
		Description: "Process a lease file: load, chunk, embed and extract clauses and key terms",
	}, s.handleProcess)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "compare",
		Description: "Compare clause summaries across leases, grouped by clause type",
	}, s.handleCompare)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "key_terms",
		Description: "Return extracted key terms (parties, dates, rent schedule) for leases",
	}, s.handleKeyTerms)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_pending",
		Description: "List detected lease files awaiting processing",
	}, s.handleListPending)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_leases",
		Description: "List stored leases and their processing status",
	}, s.handleListLeases)
}

func (s *Server) handleAsk(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AskInput,
) (*mcp.CallToolResult, AskOutput, error) {
	answer, err := s.ports.Query.Ask(ctx, input.Question)
	if err != nil {
		return nil, AskOutput{}, err
	}

	sources := answer.Sources
	if sources == nil {
		sources = []string{}
	}
	return nil, AskOutput{
		Answer:     answer.Answer,
		Route:      answer.Route.String(),
		Confidence: answer.Confidence,
		Sources:    sources,
	}, nil
}

func (s *Server) handleProcess(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ProcessInput,
) (*mcp.CallToolResult, ProcessOutput, error) {
	if s.ports.Ingestion == nil {
		return nil, ProcessOutput{}, fmt.Errorf("process: %w", ErrServiceUnavailable)
	}
	path := strings.TrimSpace(input.Path)
	if path == "" {
		return nil, ProcessOutput{}, fmt.Errorf("%w: path is required", domain.ErrInvalidInput)
	}
	mode := domain.ModeFull
	if input.Mode != "" {
		mode = domain.IngestionMode(input.Mode)
	}

	res := s.ports.Ingestion.Process(ctx, path, mode, domain.ProcessOptions{Force: input.Force})
	return nil, ProcessOutput{
		Success:         res.Success,
		FileName:        res.FileName,
		Mode:            res.Mode.String(),
		ChunksProcessed: res.ChunksProcessed,
		VectorsUploaded: res.VectorsUploaded,
		ProcessingTime:  res.ProcessingTime,
		Error:           res.Error,
		FailedStage:     res.FailedStage.String(),
		Skipped:         res.Skipped,
		Warnings:        res.Warnings,
	}, nil
}

func (s *Server) handleCompare(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input DocumentsInput,
) (*mcp.CallToolResult, CompareOutput, error) {
	if s.ports.Leases == nil {
		return nil, CompareOutput{}, fmt.Errorf("compare: %w", ErrServiceUnavailable)
	}
	comparison, err := s.ports.Leases.Compare(ctx, input.DocumentIDs)
	if err != nil {
		return nil, CompareOutput{}, err
	}

	out := CompareOutput{Clauses: []ClauseComparison{}}
	for _, ct := range domain.AllClauseTypes() {
		entries, ok := comparison[ct]
		if !ok {
			continue
		}
		cc := ClauseComparison{ClauseType: ct.String(), Entries: make([]CompareEntry, len(entries))}
		for i, e := range entries {
			cc.Entries[i] = CompareEntry{
				DocumentID: e.DocumentID,
				Summary:    e.Summary,
				KeyTerms:   e.KeyTerms,
			}
			if e.ArticleReference != nil {
				cc.Entries[i].ArticleReference = *e.ArticleReference
			}
		}
		out.Clauses = append(out.Clauses, cc)
	}
	return nil, out, nil
}

func (s *Server) handleKeyTerms(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input DocumentsInput,
) (*mcp.CallToolResult, KeyTermsOutput, error) {
	if s.ports.Leases == nil {
		return nil, KeyTermsOutput{}, fmt.Errorf("key_terms: %w", ErrServiceUnavailable)
	}
	records, err := s.ports.Leases.KeyTerms(ctx, input.DocumentIDs)
	if err != nil {
		return nil, KeyTermsOutput{}, err
	}

	out := KeyTermsOutput{Records: make([]KeyTermsEntry, len(records))}
	for i := range records {
		out.Records[i] = keyTermsEntry(&records[i])
	}
	return nil, out, nil
}

func (s *Server) handleListPending(
	_ context.Context,
	_ *mcp.CallToolRequest,
	_ ListInput,
) (*mcp.CallToolResult, ListPendingOutput, error) {
	if s.ports.Registry == nil {
		return nil, ListPendingOutput{Jobs: []PendingEntry{}}, nil
	}
	jobs := s.ports.Registry.ListPending()
	out := ListPendingOutput{Jobs: make([]PendingEntry, len(jobs)), Count: len(jobs)}
	for i, j := range jobs {
		out.Jobs[i] = PendingEntry{
			FilePath:   j.Path,
			FileName:   j.FileName,
			DetectedAt: j.DetectedAt.Format(time.RFC3339),
			State:      string(j.State),
		}
	}
	return nil, out, nil
}

func (s *Server) handleListLeases(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ ListInput,
) (*mcp.CallToolResult, ListLeasesOutput, error) {
	if s.ports.Leases == nil {
		return nil, ListLeasesOutput{}, fmt.Errorf("list_leases: %w", ErrServiceUnavailable)
	}
	leases, err := s.ports.Leases.List(ctx)
	if err != nil {
		return nil, ListLeasesOutput{}, err
	}
	out := ListLeasesOutput{Leases: make([]LeaseEntry, len(leases)), Count: len(leases)}
	for i := range leases {
		out.Leases[i] = leaseEntry(&leases[i])
	}
	return nil, out, nil
}

func leaseEntry(l *domain.Lease) LeaseEntry {
	e := LeaseEntry{
		ID:          l.ID,
		Name:        l.Name,
		Status:      string(l.Status),
		Mode:        l.Mode.String(),
		FailedStage: l.FailedStage.String(),
		ChunkCount:  l.ChunkCount,
		PageCount:   l.PageCount,
	}
	if !l.UpdatedAt.IsZero() {
		e.UpdatedAt = l.UpdatedAt.Format(time.RFC3339)
	}
	return e
}

func keyTermsEntry(k *domain.KeyTermsRecord) KeyTermsEntry {
	e := KeyTermsEntry{
		DocumentID:           k.DocumentID,
		TenantName:           deref(k.TenantName),
		TradeName:            deref(k.TradeName),
		LandlordName:         deref(k.LandlordName),
		TenantAddress:        deref(k.TenantAddress),
		Indemnifier:          deref(k.Indemnifier),
		Premises:             deref(k.PremisesDescription),
		LeaseDate:            formatDate(k.LeaseDate),
		CommencementDate:     formatDate(k.CommencementDate),
		ExpirationDate:       formatDate(k.ExpirationDate),
		RentableArea:         k.RentableArea,
		TermYears:            k.TermYears,
		DepositAmount:        k.DepositAmount,
		RenewalOption:        deref(k.RenewalOption),
		PermittedUse:         deref(k.PermittedUse),
		FixturingPeriod:      deref(k.FixturingPeriod),
		FreeRentPeriod:       deref(k.FreeRentPeriod),
		PossessionDate:       deref(k.PossessionDate),
		ImprovementAllowance: deref(k.ImprovementAllowance),
		ExclusiveUse:         deref(k.ExclusiveUse),
		RadiusRestriction:    deref(k.RadiusRestriction),
		RentSchedule:         k.RentSchedule,
	}
	if !k.ExtractedAt.IsZero() {
		e.ExtractedAt = k.ExtractedAt.Format(time.RFC3339)
	}
	return e
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func formatDate(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}
