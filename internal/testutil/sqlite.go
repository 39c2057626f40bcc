// Package testutil provides migrated SQLite and Postgres stores and fixtures for package tests
package testutil

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/folio/folio/internal/database"
	"github.com/folio/folio/internal/domain"
)

// NewDB returns a migrated, file-backed SQLite database closed when the test ends
func NewDB(t testing.TB) *sqlx.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "folio.db") + "?_pragma=busy_timeout(5000)"
	db, err := database.Connect(context.Background(), database.DriverSQLite, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, database.Migrate(context.Background(), db))
	return db
}

// Fixture is a seeded organization with one branch, one client and one supplier
type Fixture struct {
	DB           *sqlx.DB
	Organization domain.Organization
	Branch       uuid.UUID
	Client       uuid.UUID
	Supplier     uuid.UUID
}

// Seed creates an organization of the given kind with its basic entities
func Seed(t testing.TB, db *sqlx.DB, kind domain.OrganizationKind) *Fixture {
	t.Helper()

	org := domain.Organization{
		ID:              uuid.New(),
		Name:            "Acme " + string(kind),
		Kind:            kind,
		OAuthClientID:   "client-" + uuid.NewString(),
		OAuthSecretHash: "unused",
		IsActive:        true,
		CreatedAt:       time.Now().UTC(),
		RetentionRate:   decimal.Zero,
	}
	exec(t, db, `INSERT INTO organizations (id, name, kind, oauth_client_id, oauth_secret_hash, is_active, created_at, tax_included, retention_rate)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		org.ID, org.Name, org.Kind, org.OAuthClientID, org.OAuthSecretHash, org.IsActive, org.CreatedAt, org.TaxIncluded, org.RetentionRate)

	f := &Fixture{DB: db, Organization: org}
	f.Branch = f.AddBranch(t, "Main")
	f.Client = f.AddRecipient(t, domain.RecipientClient, "Walk-in Client")
	f.Supplier = f.AddRecipient(t, domain.RecipientSupplier, "Wholesale Supplier")
	return f
}

// AddBranch inserts a branch of the fixture organization
func (f *Fixture) AddBranch(t testing.TB, name string) uuid.UUID {
	t.Helper()
	id := uuid.New()
	exec(t, f.DB, `INSERT INTO branches (id, organization_id, name) VALUES (?, ?, ?)`, id, f.Organization.ID, name)
	return id
}

// AddRecipient inserts a client or supplier
func (f *Fixture) AddRecipient(t testing.TB, kind domain.RecipientKind, name string) uuid.UUID {
	t.Helper()
	id := uuid.New()
	exec(t, f.DB, `INSERT INTO recipients (id, organization_id, kind, name, tax_id) VALUES (?, ?, ?, ?, ?)`,
		id, f.Organization.ID, kind, name, "900"+id.String()[:6])
	return id
}

// AddProduct inserts a catalog product
func (f *Fixture) AddProduct(t testing.TB, name string, price, cost int64) uuid.UUID {
	t.Helper()
	id := uuid.New()
	exec(t, f.DB, `INSERT INTO products (id, organization_id, name, price, cost) VALUES (?, ?, ?, ?, ?)`,
		id, f.Organization.ID, name, price, cost)
	return id
}

// SetStock writes an absolute ledger quantity
func (f *Fixture) SetStock(t testing.TB, product, branch uuid.UUID, qty int64) {
	t.Helper()
	exec(t, f.DB, `INSERT INTO stock_ledger (product_id, branch_id, quantity) VALUES (?, ?, ?)
		ON CONFLICT (product_id, branch_id) DO UPDATE SET quantity = excluded.quantity`, product, branch, qty)
}

// Stock reads a ledger quantity; a missing row reads as zero
func (f *Fixture) Stock(t testing.TB, product, branch uuid.UUID) int64 {
	t.Helper()
	var qty int64
	err := f.DB.Get(&qty, f.DB.Rebind(`SELECT COALESCE(SUM(quantity), 0) FROM stock_ledger WHERE product_id = ? AND branch_id = ?`), product, branch)
	require.NoError(t, err)
	return qty
}

// OpenCashier opens a cashier session at a branch
func (f *Fixture) OpenCashier(t testing.TB, branch uuid.UUID) uuid.UUID {
	t.Helper()
	id := uuid.New()
	exec(t, f.DB, `INSERT INTO cashier_sessions (id, branch_id, opened_at) VALUES (?, ?, ?)`, id, branch, time.Now().UTC())
	return id
}

// AddResolution inserts a numbering window valid from yesterday to tomorrow
func (f *Fixture) AddResolution(t testing.TB, purpose, prefix string, from, to int64, external bool) uuid.UUID {
	t.Helper()
	now := time.Now().UTC()
	return f.AddResolutionValid(t, purpose, prefix, from, to, external, now.Add(-24*time.Hour), now.Add(24*time.Hour))
}

// AddResolutionValid inserts a numbering window with explicit validity
func (f *Fixture) AddResolutionValid(t testing.TB, purpose, prefix string, from, to int64, external bool, validFrom, validTo time.Time) uuid.UUID {
	t.Helper()
	id := uuid.New()
	exec(t, f.DB, `INSERT INTO resolutions (id, organization_id, purpose, prefix, current_count, range_from, range_to, valid_from, valid_to, external_correlation_id, external_validation_enabled)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, f.Organization.ID, purpose, prefix, from, from, to, validFrom, validTo, "tech-key-"+prefix, external)
	return id
}

// ResolutionCount reads a resolution's current count
func (f *Fixture) ResolutionCount(t testing.TB, id uuid.UUID) int64 {
	t.Helper()
	var count int64
	require.NoError(t, f.DB.Get(&count, f.DB.Rebind(`SELECT current_count FROM resolutions WHERE id = ?`), id))
	return count
}

// InternalCounter reads the internal sequence of a document type; zero when never used
func (f *Fixture) InternalCounter(t testing.TB, docType domain.DocumentType) int64 {
	t.Helper()
	var value int64
	err := f.DB.Get(&value, f.DB.Rebind(`SELECT COALESCE(MAX(last_value), 0) FROM internal_sequences WHERE organization_id = ? AND document_type = ?`),
		f.Organization.ID, docType)
	require.NoError(t, err)
	return value
}

// CountDocuments counts persisted documents of the fixture organization
func (f *Fixture) CountDocuments(t testing.TB) int {
	t.Helper()
	var n int
	require.NoError(t, f.DB.Get(&n, f.DB.Rebind(`SELECT COUNT(*) FROM documents WHERE organization_id = ?`), f.Organization.ID))
	return n
}

func exec(t testing.TB, db *sqlx.DB, query string, args ...any) {
	t.Helper()
	_, err := db.Exec(db.Rebind(query), args...)
	require.NoError(t, err)
}
