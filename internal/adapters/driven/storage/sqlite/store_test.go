package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/leasequery/internal/core/domain"
)

// setupTestStore creates a temporary SQLite store for testing.
func setupTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	require.NotNil(t, store)

	t.Cleanup(func() {
		assert.NoError(t, store.Close())
	})
	return store
}

// createTestLease creates a lease to satisfy foreign key constraints.
func createTestLease(t *testing.T, store *Store, id string) *domain.Lease {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Second)
	lease := &domain.Lease{
		ID:          id,
		Name:        id,
		SourcePath:  "/leases/" + id,
		Title:       "Lease " + id,
		DetectedAt:  now.Add(-time.Minute),
		Mode:        domain.ModeFull,
		Fingerprint: "abc123",
		Status:      domain.LeaseStatusIndexed,
		ChunkCount:  2,
		PageCount:   3,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	require.NoError(t, store.SaveLease(context.Background(), lease))
	return lease
}

func strPtr(s string) *string     { return &s }
func floatPtr(f float64) *float64 { return &f }

// ==================== Store Creation and Initialization Tests ====================

func TestNewStore_CreatesDatabase(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")

	store, err := NewStore(dir)
	require.NoError(t, err)
	defer store.Close()

	assert.Equal(t, filepath.Join(dir, dbFileName), store.Path())
	_, err = os.Stat(store.Path())
	assert.NoError(t, err)

	version, err := store.SchemaVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, version)
}

func TestNewStore_ReopenKeepsData(t *testing.T) {
	dir := t.TempDir()

	store, err := NewStore(dir)
	require.NoError(t, err)
	createTestLease(t, store, "a.pdf")
	require.NoError(t, store.Close())

	store, err = NewStore(dir)
	require.NoError(t, err)
	defer store.Close()

	lease, err := store.GetLease(context.Background(), "a.pdf")
	require.NoError(t, err)
	assert.Equal(t, "Lease a.pdf", lease.Title)
}

// ==================== Lease Store Tests ====================

func TestLeaseStore_RoundTrip(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	want := createTestLease(t, store, "harbor.pdf")

	got, err := store.GetLease(ctx, "harbor.pdf")
	require.NoError(t, err)

	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, want.SourcePath, got.SourcePath)
	assert.Equal(t, domain.ModeFull, got.Mode)
	assert.Equal(t, domain.LeaseStatusIndexed, got.Status)
	assert.Equal(t, 2, got.ChunkCount)
	assert.Equal(t, 3, got.PageCount)
	assert.True(t, want.DetectedAt.Equal(got.DetectedAt))
	assert.True(t, want.CreatedAt.Equal(got.CreatedAt))
}

func TestLeaseStore_UpdateKeepsCreatedAt(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	lease := createTestLease(t, store, "a.pdf")
	created := lease.CreatedAt

	lease.Status = domain.LeaseStatusFailed
	lease.FailedStage = domain.StageEmbedding
	lease.LastError = "embedding service down"
	lease.CreatedAt = created.Add(time.Hour)
	lease.UpdatedAt = created.Add(time.Hour)
	require.NoError(t, store.SaveLease(ctx, lease))

	got, err := store.GetLease(ctx, "a.pdf")
	require.NoError(t, err)
	assert.Equal(t, domain.LeaseStatusFailed, got.Status)
	assert.Equal(t, domain.StageEmbedding, got.FailedStage)
	assert.Equal(t, "embedding service down", got.LastError)
	assert.True(t, created.Equal(got.CreatedAt))
}

func TestLeaseStore_NotFound(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	_, err := store.GetLease(ctx, "missing.pdf")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	err = store.DeleteLease(ctx, "missing.pdf")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	err = store.SaveLease(ctx, &domain.Lease{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestLeaseStore_List(t *testing.T) {
	store := setupTestStore(t)
	createTestLease(t, store, "b.pdf")
	createTestLease(t, store, "a.pdf")

	leases, err := store.ListLeases(context.Background())
	require.NoError(t, err)
	require.Len(t, leases, 2)
	assert.Equal(t, "a.pdf", leases[0].ID)
	assert.Equal(t, "b.pdf", leases[1].ID)
}

func TestLeaseStore_DeleteCascades(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	createTestLease(t, store, "a.pdf")
	createTestLease(t, store, "b.pdf")

	require.NoError(t, store.SaveChunks(ctx, []domain.Chunk{
		{ID: "a1", DocumentID: "a.pdf", Content: "x", EndOffset: 1},
		{ID: "b1", DocumentID: "b.pdf", Content: "y", EndOffset: 1},
	}))
	require.NoError(t, store.ReplaceClauses(ctx, "a.pdf", []domain.ClauseRecord{
		{Type: domain.ClauseType("rent_payment"), Summary: "Monthly rent."},
	}))
	require.NoError(t, store.SaveKeyTerms(ctx, &domain.KeyTermsRecord{
		DocumentID:   "a.pdf",
		RentSchedule: []domain.RentStep{{StartYear: 1, EndYear: 5, RatePSF: 20}},
	}))

	require.NoError(t, store.DeleteLease(ctx, "a.pdf"))

	chunks, err := store.GetChunks(ctx, "a.pdf")
	require.NoError(t, err)
	assert.Empty(t, chunks)
	clauses, err := store.GetClauses(ctx, "a.pdf")
	require.NoError(t, err)
	assert.Empty(t, clauses)
	_, err = store.GetKeyTerms(ctx, "a.pdf")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	var steps int
	require.NoError(t, store.db.QueryRow("SELECT COUNT(*) FROM rent_steps").Scan(&steps))
	assert.Zero(t, steps)

	other, err := store.GetChunks(ctx, "b.pdf")
	require.NoError(t, err)
	assert.Len(t, other, 1)
}

// ==================== Chunk Store Tests ====================

func TestChunkStore(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	createTestLease(t, store, "a.pdf")

	chunks := []domain.Chunk{
		{ID: "c2", DocumentID: "a.pdf", Ordinal: 1, Content: "Rent is due.", StartOffset: 20, EndOffset: 32, Page: 2, Section: "ARTICLE 3 RENT"},
		{ID: "c1", DocumentID: "a.pdf", Ordinal: 0, Content: "ARTICLE 1", StartOffset: 0, EndOffset: 9, Page: 1},
	}
	require.NoError(t, store.SaveChunks(ctx, chunks))

	got, err := store.GetChunks(ctx, "a.pdf")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "c1", got[0].ID)
	assert.Equal(t, "c2", got[1].ID)
	assert.Equal(t, "ARTICLE 3 RENT", got[1].Section)
	assert.Equal(t, 2, got[1].Page)
	assert.Equal(t, 12, got[1].Len())

	one, err := store.GetChunk(ctx, "c2")
	require.NoError(t, err)
	assert.Equal(t, "Rent is due.", one.Content)

	_, err = store.GetChunk(ctx, "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	byID, err := store.GetChunksByIDs(ctx, []string{"c1", "nope", "c2"})
	require.NoError(t, err)
	assert.Len(t, byID, 2)
	assert.Equal(t, "ARTICLE 1", byID["c1"].Content)

	empty, err := store.GetChunksByIDs(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)

	// Same ID replaces.
	chunks[0].Content = "Rent is due monthly."
	require.NoError(t, store.SaveChunks(ctx, chunks[:1]))
	one, err = store.GetChunk(ctx, "c2")
	require.NoError(t, err)
	assert.Equal(t, "Rent is due monthly.", one.Content)

	require.NoError(t, store.DeleteChunks(ctx, "a.pdf"))
	require.NoError(t, store.DeleteChunks(ctx, "a.pdf"))
	got, err = store.GetChunks(ctx, "a.pdf")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestChunkStore_RequiresLease(t *testing.T) {
	store := setupTestStore(t)

	err := store.SaveChunks(context.Background(), []domain.Chunk{{ID: "c1", DocumentID: "ghost.pdf"}})
	assert.Error(t, err)
}

// ==================== Clause Store Tests ====================

func TestClauseStore_ReplaceAndOrder(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	createTestLease(t, store, "a.pdf")

	types := domain.AllClauseTypes()
	require.GreaterOrEqual(t, len(types), 3)

	records := []domain.ClauseRecord{
		{Type: types[2], Summary: "third", KeyTerms: []string{"x"}},
		{Type: types[0], Summary: "first", ArticleReference: strPtr("Article 3"), KeyTerms: []string{"$5000", "monthly", "Monthly"}},
		{Type: types[2], Summary: "duplicate is dropped"},
	}
	require.NoError(t, store.ReplaceClauses(ctx, "a.pdf", records))

	got, err := store.GetClauses(ctx, "a.pdf")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, types[0], got[0].Type)
	assert.Equal(t, "a.pdf", got[0].DocumentID)
	require.NotNil(t, got[0].ArticleReference)
	assert.Equal(t, "Article 3", *got[0].ArticleReference)
	assert.Equal(t, []string{"$5000", "monthly"}, got[0].KeyTerms)
	assert.Equal(t, "third", got[1].Summary)
	assert.Nil(t, got[1].ArticleReference)
	assert.Equal(t, []string{"x"}, got[1].KeyTerms)

	require.NoError(t, store.ReplaceClauses(ctx, "a.pdf", []domain.ClauseRecord{{Type: types[1], Summary: "only"}}))
	got, err = store.GetClauses(ctx, "a.pdf")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "only", got[0].Summary)

	require.NoError(t, store.DeleteClauses(ctx, "a.pdf"))
	got, err = store.GetClauses(ctx, "a.pdf")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestClauseStore_KeyTermsWithCommas(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	createTestLease(t, store, "a.pdf")

	require.NoError(t, store.ReplaceClauses(ctx, "a.pdf", []domain.ClauseRecord{{
		Type:     domain.ClauseSecurityDeposit,
		Summary:  "Deposit due on signing.",
		KeyTerms: []string{"$10,000", "on signing", "Landlord, Inc."},
	}}))

	got, err := store.GetClauses(ctx, "a.pdf")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, []string{"$10,000", "on signing", "Landlord, Inc."}, got[0].KeyTerms)
}

func TestClauseStore_ReadsCommaDelimitedKeyTerms(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	createTestLease(t, store, "a.pdf")

	_, err := store.db.ExecContext(ctx, `
		INSERT INTO clause_records (document_id, clause_type, position, summary, key_terms)
		VALUES ('a.pdf', 'security_deposit', 0, 'Deposit.', '$5,000, 30 days')
	`)
	require.NoError(t, err)

	got, err := store.GetClauses(ctx, "a.pdf")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, []string{"$5,000", "30 days"}, got[0].KeyTerms)
}

// ==================== Key Terms Store Tests ====================

func TestKeyTermsStore_RoundTrip(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	createTestLease(t, store, "a.pdf")

	commencement := time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC)
	want := &domain.KeyTermsRecord{
		DocumentID:       "a.pdf",
		TenantName:       strPtr("Acme Foods Ltd."),
		TradeName:        strPtr("Church's Chicken"),
		CommencementDate: &commencement,
		RentableArea:     floatPtr(1850),
		DepositAmount:    floatPtr(10000),
		PermittedUse:     strPtr("Quick service restaurant"),
		RentSchedule: []domain.RentStep{
			{StartYear: 1, EndYear: 5, RatePSF: 22.5, MonthlyRent: floatPtr(3468.75)},
			{StartYear: 6, EndYear: 10, RatePSF: 25},
		},
		ExtractedAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	require.NoError(t, store.SaveKeyTerms(ctx, want))

	got, err := store.GetKeyTerms(ctx, "a.pdf")
	require.NoError(t, err)

	assert.Equal(t, "Church's Chicken", got.DisplayTenant())
	assert.Equal(t, "Acme Foods Ltd.", *got.TenantName)
	assert.Nil(t, got.LandlordName)
	assert.Nil(t, got.LeaseDate)
	require.NotNil(t, got.CommencementDate)
	assert.True(t, commencement.Equal(*got.CommencementDate))
	assert.Equal(t, 10000.0, *got.DepositAmount)
	assert.Nil(t, got.TermYears)
	require.Len(t, got.RentSchedule, 2)
	assert.Equal(t, 3468.75, *got.RentSchedule[0].MonthlyRent)
	assert.Nil(t, got.RentSchedule[1].AnnualRent)
	assert.True(t, want.ExtractedAt.Equal(got.ExtractedAt))

	avg, ok := got.AverageRentPSF()
	assert.True(t, ok)
	assert.Equal(t, 23.75, avg)
}

func TestKeyTermsStore_ReplaceAndList(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	createTestLease(t, store, "b.pdf")
	createTestLease(t, store, "a.pdf")

	require.NoError(t, store.SaveKeyTerms(ctx, &domain.KeyTermsRecord{
		DocumentID:   "b.pdf",
		RentSchedule: []domain.RentStep{{StartYear: 1, EndYear: 3, RatePSF: 10}, {StartYear: 4, EndYear: 6, RatePSF: 12}},
	}))
	require.NoError(t, store.SaveKeyTerms(ctx, &domain.KeyTermsRecord{DocumentID: "a.pdf"}))

	// Replacing drops the old schedule.
	require.NoError(t, store.SaveKeyTerms(ctx, &domain.KeyTermsRecord{
		DocumentID:   "b.pdf",
		RentSchedule: []domain.RentStep{{StartYear: 1, EndYear: 10, RatePSF: 30}},
	}))

	all, err := store.ListKeyTerms(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "a.pdf", all[0].DocumentID)
	assert.Empty(t, all[0].RentSchedule)
	assert.Equal(t, "b.pdf", all[1].DocumentID)
	require.Len(t, all[1].RentSchedule, 1)
	assert.Equal(t, 30.0, all[1].RentSchedule[0].RatePSF)

	require.NoError(t, store.DeleteKeyTerms(ctx, "b.pdf"))
	require.NoError(t, store.DeleteKeyTerms(ctx, "b.pdf"))
	_, err = store.GetKeyTerms(ctx, "b.pdf")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.ErrorIs(t, store.SaveKeyTerms(ctx, &domain.KeyTermsRecord{}), domain.ErrInvalidInput)
}

// ==================== Ingestion Log Store Tests ====================

func TestIngestionLogStore(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	for i, name := range []string{"a.pdf", "b.pdf", "c.pdf"} {
		entry := &domain.IngestionLog{
			DocumentName:    name,
			Status:          "success",
			Mode:            domain.ModeFull,
			ChunksProcessed: i + 1,
			ProcessingTime:  1.5,
		}
		require.NoError(t, store.AppendLog(ctx, entry))
		assert.Equal(t, int64(i+1), entry.ID)
		assert.False(t, entry.CreatedAt.IsZero())
	}
	require.NoError(t, store.AppendLog(ctx, &domain.IngestionLog{
		DocumentName: "d.pdf",
		Status:       "failed",
		FailedStage:  domain.StageLoading,
		ErrorMessage: "corrupt document",
	}))

	recent, err := store.ListLogs(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "d.pdf", recent[0].DocumentName)
	assert.Equal(t, domain.StageLoading, recent[0].FailedStage)
	assert.Equal(t, "corrupt document", recent[0].ErrorMessage)
	assert.Equal(t, "c.pdf", recent[1].DocumentName)
	assert.Equal(t, 3, recent[1].ChunksProcessed)
	assert.Equal(t, 1.5, recent[1].ProcessingTime)

	all, err := store.ListLogs(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 4)
}
