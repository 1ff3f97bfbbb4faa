package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/leasequery/internal/adapters/driven/storage/sqlite/migrations"
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

// dbFileName is the database file inside the data directory.
const dbFileName = "leasequery.db"

// Store is a SQLite-backed store for lease metadata. The vector index and
// keyword engine share its connection.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.leasequery/data/leasequery.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".leasequery", "data")
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, dbFileName)

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_time_format=sqlite")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	// Run migrations
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// VectorIndex returns a vector index stored in this database.
// A dimension of 0 accepts the size of the first vector stored.
func (s *Store) VectorIndex(dimension int) *VectorIndex {
	return &VectorIndex{store: s, dimension: dimension}
}

// SearchEngine returns the FTS5 keyword engine stored in this database.
func (s *Store) SearchEngine() *SearchEngine {
	return &SearchEngine{store: s}
}

// SchemaVersion returns the highest applied migration version.
func (s *Store) SchemaVersion(ctx context.Context) (int, error) {
	var version int
	err := s.db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("reading schema version: %w", err)
	}
	return version, nil
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys fs.FS) error {
	// Ensure schema_migrations table exists
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	currentVersion, err := s.SchemaVersion(context.Background())
	if err != nil {
		return err
	}

	// Find all up migrations
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		if name := entry.Name(); strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_initial.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}
		if version <= currentVersion {
			continue // Already applied
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if err := s.applyMigration(version, string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
	}

	return nil
}

func (s *Store) applyMigration(version int, script string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.Exec(script); err != nil {
		return err
	}
	if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
		return err
	}
	return tx.Commit()
}

// ==================== Lease Store ====================

const leaseColumns = `id, name, source_path, title, detected_at, mode, fingerprint, status,
	failed_stage, last_error, chunk_count, page_count, created_at, updated_at`

// SaveLease stores or updates a lease.
func (s *Store) SaveLease(ctx context.Context, lease *domain.Lease) error {
	if lease == nil || lease.ID == "" {
		return domain.ErrInvalidInput
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO leases (`+leaseColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			source_path = excluded.source_path,
			title = excluded.title,
			detected_at = excluded.detected_at,
			mode = excluded.mode,
			fingerprint = excluded.fingerprint,
			status = excluded.status,
			failed_stage = excluded.failed_stage,
			last_error = excluded.last_error,
			chunk_count = excluded.chunk_count,
			page_count = excluded.page_count,
			updated_at = excluded.updated_at
	`, lease.ID, lease.Name, lease.SourcePath, lease.Title, nullTime(timePtr(lease.DetectedAt)),
		string(lease.Mode), lease.Fingerprint, string(lease.Status), string(lease.FailedStage),
		lease.LastError, lease.ChunkCount, lease.PageCount, lease.CreatedAt.UTC(), lease.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("saving lease: %w", err)
	}
	return nil
}

// GetLease retrieves a lease by ID.
func (s *Store) GetLease(ctx context.Context, id string) (*domain.Lease, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+leaseColumns+" FROM leases WHERE id = ?", id)
	lease, err := scanLease(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return lease, err
}

// ListLeases returns all leases ordered by ID.
func (s *Store) ListLeases(ctx context.Context) ([]domain.Lease, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+leaseColumns+" FROM leases ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("querying leases: %w", err)
	}
	defer rows.Close()

	leases := make([]domain.Lease, 0)
	for rows.Next() {
		lease, err := scanLease(rows)
		if err != nil {
			return nil, err
		}
		leases = append(leases, *lease)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating leases: %w", err)
	}
	return leases, nil
}

// DeleteLease removes a lease. Foreign keys cascade to chunks, clause
// records, key terms and rent steps.
func (s *Store) DeleteLease(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM leases WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting lease: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting lease: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanLease(row rowScanner) (*domain.Lease, error) {
	var (
		l           domain.Lease
		detectedAt  sql.NullTime
		mode        string
		status      string
		failedStage string
	)
	if err := row.Scan(&l.ID, &l.Name, &l.SourcePath, &l.Title, &detectedAt, &mode,
		&l.Fingerprint, &status, &failedStage, &l.LastError, &l.ChunkCount, &l.PageCount,
		&l.CreatedAt, &l.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning lease: %w", err)
	}
	if detectedAt.Valid {
		l.DetectedAt = detectedAt.Time
	}
	l.Mode = domain.IngestionMode(mode)
	l.Status = domain.LeaseStatus(status)
	l.FailedStage = domain.IngestionStage(failedStage)
	return &l, nil
}

// ==================== Chunk Store ====================

const chunkColumns = "id, document_id, ordinal, content, start_offset, end_offset, page, section"

// SaveChunks stores chunks, replacing any with the same ID.
func (s *Store) SaveChunks(ctx context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (`+chunkColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			document_id = excluded.document_id,
			ordinal = excluded.ordinal,
			content = excluded.content,
			start_offset = excluded.start_offset,
			end_offset = excluded.end_offset,
			page = excluded.page,
			section = excluded.section
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for _, c := range chunks {
		if _, err := stmt.ExecContext(ctx, c.ID, c.DocumentID, c.Ordinal, c.Content,
			c.StartOffset, c.EndOffset, c.Page, c.Section); err != nil {
			return fmt.Errorf("saving chunk: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// GetChunk retrieves a specific chunk by ID.
func (s *Store) GetChunk(ctx context.Context, id string) (*domain.Chunk, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+chunkColumns+" FROM chunks WHERE id = ?", id)
	c, err := scanChunk(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return c, err
}

// GetChunks retrieves all chunks for a document in ordinal order.
func (s *Store) GetChunks(ctx context.Context, documentID string) ([]domain.Chunk, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+chunkColumns+" FROM chunks WHERE document_id = ? ORDER BY ordinal", documentID)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	chunks := make([]domain.Chunk, 0)
	for rows.Next() {
		c, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}
	return chunks, nil
}

// GetChunksByIDs retrieves chunks by ID. Missing IDs are absent from the map.
func (s *Store) GetChunksByIDs(ctx context.Context, ids []string) (map[string]domain.Chunk, error) {
	out := make(map[string]domain.Chunk, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+chunkColumns+" FROM chunks WHERE id IN ("+placeholders+")", args...)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		c, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		out[c.ID] = *c
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}
	return out, nil
}

// DeleteChunks removes all chunks for a document.
func (s *Store) DeleteChunks(ctx context.Context, documentID string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM chunks WHERE document_id = ?", documentID); err != nil {
		return fmt.Errorf("deleting chunks: %w", err)
	}
	return nil
}

func scanChunk(row rowScanner) (*domain.Chunk, error) {
	var c domain.Chunk
	if err := row.Scan(&c.ID, &c.DocumentID, &c.Ordinal, &c.Content,
		&c.StartOffset, &c.EndOffset, &c.Page, &c.Section); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning chunk: %w", err)
	}
	return &c, nil
}

// ==================== Clause Store ====================

// ReplaceClauses atomically replaces all clause records for a document.
// The first record of each type wins. Key terms are stored comma-delimited.
func (s *Store) ReplaceClauses(ctx context.Context, documentID string, records []domain.ClauseRecord) error {
	order := make(map[domain.ClauseType]int)
	for i, c := range domain.AllClauseTypes() {
		order[c] = i
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, "DELETE FROM clause_records WHERE document_id = ?", documentID); err != nil {
		return fmt.Errorf("clearing clauses: %w", err)
	}

	seen := make(map[domain.ClauseType]bool, len(records))
	for _, r := range records {
		if seen[r.Type] {
			continue
		}
		seen[r.Type] = true
		pos, ok := order[r.Type]
		if !ok {
			pos = len(order)
		}
		keyTerms, err := encodeKeyTerms(r.KeyTerms)
		if err != nil {
			return fmt.Errorf("encoding key terms of %s: %w", r.Type, err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO clause_records (document_id, clause_type, position, summary, article_reference, key_terms)
			VALUES (?, ?, ?, ?, ?, ?)
		`, documentID, string(r.Type), pos, r.Summary, nullString(r.ArticleReference), keyTerms); err != nil {
			return fmt.Errorf("saving clause %s: %w", r.Type, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// GetClauses returns a document's clause records in taxonomy order.
func (s *Store) GetClauses(ctx context.Context, documentID string) ([]domain.ClauseRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT document_id, clause_type, summary, article_reference, key_terms
		FROM clause_records WHERE document_id = ?
		ORDER BY position, clause_type
	`, documentID)
	if err != nil {
		return nil, fmt.Errorf("querying clauses: %w", err)
	}
	defer rows.Close()

	records := make([]domain.ClauseRecord, 0)
	for rows.Next() {
		var (
			r        domain.ClauseRecord
			typ      string
			article  sql.NullString
			keyTerms string
		)
		if err := rows.Scan(&r.DocumentID, &typ, &r.Summary, &article, &keyTerms); err != nil {
			return nil, fmt.Errorf("scanning clause: %w", err)
		}
		r.Type = domain.ClauseType(typ)
		r.ArticleReference = fromNullString(article)
		r.KeyTerms, err = decodeKeyTerms(keyTerms)
		if err != nil {
			return nil, fmt.Errorf("decoding key terms of %s: %w", typ, err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating clauses: %w", err)
	}
	return records, nil
}

// encodeKeyTerms stores clause key terms as a JSON array so terms
// containing commas survive the round trip.
func encodeKeyTerms(terms []string) (string, error) {
	b, err := json.Marshal(domain.CleanKeyTerms(terms))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// decodeKeyTerms reads a JSON array. Values that are not an array are
// comma-delimited.
func decodeKeyTerms(s string) ([]string, error) {
	if !strings.HasPrefix(strings.TrimSpace(s), "[") {
		return domain.SplitKeyTerms(s), nil
	}
	var terms []string
	if err := json.Unmarshal([]byte(s), &terms); err != nil {
		return nil, err
	}
	return domain.CleanKeyTerms(terms), nil
}

// DeleteClauses removes all clause records for a document.
func (s *Store) DeleteClauses(ctx context.Context, documentID string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM clause_records WHERE document_id = ?", documentID); err != nil {
		return fmt.Errorf("deleting clauses: %w", err)
	}
	return nil
}

// ==================== Key Terms Store ====================

const keyTermsColumns = `document_id, tenant_name, trade_name, landlord_name, tenant_address,
	indemnifier, premises_description, lease_date, commencement_date, expiration_date,
	rentable_area, term_years, deposit_amount, renewal_option, permitted_use,
	fixturing_period, free_rent_period, possession_date, improvement_allowance,
	exclusive_use, radius_restriction, extracted_at`

// SaveKeyTerms replaces the key-terms record and rent steps for a document.
func (s *Store) SaveKeyTerms(ctx context.Context, k *domain.KeyTermsRecord) error {
	if k == nil || k.DocumentID == "" {
		return domain.ErrInvalidInput
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	// Deleting first cascades to the old rent steps.
	if _, err := tx.ExecContext(ctx, "DELETE FROM key_terms WHERE document_id = ?", k.DocumentID); err != nil {
		return fmt.Errorf("clearing key terms: %w", err)
	}

	extractedAt := k.ExtractedAt
	if extractedAt.IsZero() {
		extractedAt = time.Now()
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO key_terms (`+keyTermsColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, k.DocumentID, nullString(k.TenantName), nullString(k.TradeName), nullString(k.LandlordName),
		nullString(k.TenantAddress), nullString(k.Indemnifier), nullString(k.PremisesDescription),
		nullTime(k.LeaseDate), nullTime(k.CommencementDate), nullTime(k.ExpirationDate),
		nullFloat(k.RentableArea), nullFloat(k.TermYears), nullFloat(k.DepositAmount),
		nullString(k.RenewalOption), nullString(k.PermittedUse), nullString(k.FixturingPeriod),
		nullString(k.FreeRentPeriod), nullString(k.PossessionDate), nullString(k.ImprovementAllowance),
		nullString(k.ExclusiveUse), nullString(k.RadiusRestriction), extractedAt.UTC()); err != nil {
		return fmt.Errorf("saving key terms: %w", err)
	}

	for i, step := range k.RentSchedule {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO rent_steps (document_id, position, start_year, end_year, rate_psf, monthly_rent, annual_rent)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, k.DocumentID, i, step.StartYear, step.EndYear, step.RatePSF,
			nullFloat(step.MonthlyRent), nullFloat(step.AnnualRent)); err != nil {
			return fmt.Errorf("saving rent step: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// GetKeyTerms retrieves the record for a document.
func (s *Store) GetKeyTerms(ctx context.Context, documentID string) (*domain.KeyTermsRecord, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+keyTermsColumns+" FROM key_terms WHERE document_id = ?", documentID)
	k, err := scanKeyTerms(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	steps, err := s.rentSteps(ctx, documentID)
	if err != nil {
		return nil, err
	}
	k.RentSchedule = steps
	return k, nil
}

// ListKeyTerms returns every stored record ordered by document ID.
func (s *Store) ListKeyTerms(ctx context.Context) ([]domain.KeyTermsRecord, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+keyTermsColumns+" FROM key_terms ORDER BY document_id")
	if err != nil {
		return nil, fmt.Errorf("querying key terms: %w", err)
	}

	records := make([]domain.KeyTermsRecord, 0)
	for rows.Next() {
		k, err := scanKeyTerms(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		records = append(records, *k)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterating key terms: %w", err)
	}
	rows.Close()

	for i := range records {
		steps, err := s.rentSteps(ctx, records[i].DocumentID)
		if err != nil {
			return nil, err
		}
		records[i].RentSchedule = steps
	}
	return records, nil
}

// DeleteKeyTerms removes the record and rent steps for a document.
func (s *Store) DeleteKeyTerms(ctx context.Context, documentID string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM key_terms WHERE document_id = ?", documentID); err != nil {
		return fmt.Errorf("deleting key terms: %w", err)
	}
	return nil
}

func (s *Store) rentSteps(ctx context.Context, documentID string) ([]domain.RentStep, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT start_year, end_year, rate_psf, monthly_rent, annual_rent
		FROM rent_steps WHERE document_id = ? ORDER BY position
	`, documentID)
	if err != nil {
		return nil, fmt.Errorf("querying rent steps: %w", err)
	}
	defer rows.Close()

	var steps []domain.RentStep //nolint:prealloc // size unknown from query
	for rows.Next() {
		var (
			step            domain.RentStep
			monthly, annual sql.NullFloat64
		)
		if err := rows.Scan(&step.StartYear, &step.EndYear, &step.RatePSF, &monthly, &annual); err != nil {
			return nil, fmt.Errorf("scanning rent step: %w", err)
		}
		step.MonthlyRent = fromNullFloat(monthly)
		step.AnnualRent = fromNullFloat(annual)
		steps = append(steps, step)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rent steps: %w", err)
	}
	return steps, nil
}

func scanKeyTerms(row rowScanner) (*domain.KeyTermsRecord, error) {
	var (
		k                                                    domain.KeyTermsRecord
		tenant, trade, landlord, address, indemnifier, prem  sql.NullString
		leaseDate, commencement, expiration                  sql.NullTime
		area, term, deposit                                  sql.NullFloat64
		renewal, use, fixturing, freeRent, possession, allow sql.NullString
		exclusive, radius                                    sql.NullString
	)
	if err := row.Scan(&k.DocumentID, &tenant, &trade, &landlord, &address, &indemnifier, &prem,
		&leaseDate, &commencement, &expiration, &area, &term, &deposit,
		&renewal, &use, &fixturing, &freeRent, &possession, &allow, &exclusive, &radius,
		&k.ExtractedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning key terms: %w", err)
	}

	k.TenantName = fromNullString(tenant)
	k.TradeName = fromNullString(trade)
	k.LandlordName = fromNullString(landlord)
	k.TenantAddress = fromNullString(address)
	k.Indemnifier = fromNullString(indemnifier)
	k.PremisesDescription = fromNullString(prem)
	k.LeaseDate = fromNullTime(leaseDate)
	k.CommencementDate = fromNullTime(commencement)
	k.ExpirationDate = fromNullTime(expiration)
	k.RentableArea = fromNullFloat(area)
	k.TermYears = fromNullFloat(term)
	k.DepositAmount = fromNullFloat(deposit)
	k.RenewalOption = fromNullString(renewal)
	k.PermittedUse = fromNullString(use)
	k.FixturingPeriod = fromNullString(fixturing)
	k.FreeRentPeriod = fromNullString(freeRent)
	k.PossessionDate = fromNullString(possession)
	k.ImprovementAllowance = fromNullString(allow)
	k.ExclusiveUse = fromNullString(exclusive)
	k.RadiusRestriction = fromNullString(radius)
	return &k, nil
}

// ==================== Ingestion Log Store ====================

// AppendLog stores a run record and assigns its ID.
func (s *Store) AppendLog(ctx context.Context, entry *domain.IngestionLog) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO ingestion_logs (document_name, status, mode, chunks_processed, vectors_uploaded,
			processing_time, failed_stage, error_message, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, entry.DocumentName, entry.Status, string(entry.Mode), entry.ChunksProcessed, entry.VectorsUploaded,
		entry.ProcessingTime, string(entry.FailedStage), entry.ErrorMessage, entry.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("appending log: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("appending log: %w", err)
	}
	entry.ID = id
	return nil
}

// ListLogs returns the most recent records first. A limit <= 0 returns all.
func (s *Store) ListLogs(ctx context.Context, limit int) ([]domain.IngestionLog, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, document_name, status, mode, chunks_processed, vectors_uploaded,
			processing_time, failed_stage, error_message, created_at
		FROM ingestion_logs ORDER BY id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying logs: %w", err)
	}
	defer rows.Close()

	logs := make([]domain.IngestionLog, 0)
	for rows.Next() {
		var (
			e           domain.IngestionLog
			mode, stage string
		)
		if err := rows.Scan(&e.ID, &e.DocumentName, &e.Status, &mode, &e.ChunksProcessed,
			&e.VectorsUploaded, &e.ProcessingTime, &stage, &e.ErrorMessage, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning log: %w", err)
		}
		e.Mode = domain.IngestionMode(mode)
		e.FailedStage = domain.IngestionStage(stage)
		logs = append(logs, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating logs: %w", err)
	}
	return logs, nil
}

// ==================== Helper Functions ====================

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func fromNullString(n sql.NullString) *string {
	if !n.Valid {
		return nil
	}
	s := n.String
	return &s
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func fromNullFloat(n sql.NullFloat64) *float64 {
	if !n.Valid {
		return nil
	}
	f := n.Float64
	return &f
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func fromNullTime(n sql.NullTime) *time.Time {
	if !n.Valid {
		return nil
	}
	t := n.Time
	return &t
}

// timePtr returns nil for the zero time.
func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
