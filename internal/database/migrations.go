package database

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS organizations (
		id {{uuid}} PRIMARY KEY,
		name TEXT NOT NULL,
		kind TEXT NOT NULL DEFAULT 'standard',
		oauth_client_id TEXT NOT NULL UNIQUE,
		oauth_secret_hash TEXT NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at {{timestamp}} NOT NULL,
		default_branch_id {{uuid}},
		default_client_id {{uuid}},
		default_resolution_id {{uuid}},
		default_price_list_id {{uuid}},
		tax_included BOOLEAN NOT NULL DEFAULT FALSE,
		retention_rate NUMERIC NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS branches (
		id {{uuid}} PRIMARY KEY,
		organization_id {{uuid}} NOT NULL REFERENCES organizations(id),
		name TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS products (
		id {{uuid}} PRIMARY KEY,
		organization_id {{uuid}} NOT NULL REFERENCES organizations(id),
		name TEXT NOT NULL,
		price BIGINT NOT NULL DEFAULT 0,
		cost BIGINT NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS price_lists (
		id {{uuid}} PRIMARY KEY,
		organization_id {{uuid}} NOT NULL REFERENCES organizations(id),
		name TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS price_list_items (
		price_list_id {{uuid}} NOT NULL REFERENCES price_lists(id),
		product_id {{uuid}} NOT NULL REFERENCES products(id),
		price BIGINT NOT NULL,
		PRIMARY KEY (price_list_id, product_id)
	)`,
	`CREATE TABLE IF NOT EXISTS recipients (
		id {{uuid}} PRIMARY KEY,
		organization_id {{uuid}} NOT NULL REFERENCES organizations(id),
		kind TEXT NOT NULL,
		name TEXT NOT NULL,
		tax_id TEXT NOT NULL DEFAULT '',
		email TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS cashier_sessions (
		id {{uuid}} PRIMARY KEY,
		branch_id {{uuid}} NOT NULL REFERENCES branches(id),
		opened_at {{timestamp}} NOT NULL,
		closed_at {{timestamp}}
	)`,
	`CREATE INDEX IF NOT EXISTS idx_cashier_sessions_open ON cashier_sessions (branch_id, opened_at) WHERE closed_at IS NULL`,
	`CREATE TABLE IF NOT EXISTS resolutions (
		id {{uuid}} PRIMARY KEY,
		organization_id {{uuid}} NOT NULL REFERENCES organizations(id),
		purpose TEXT NOT NULL,
		prefix TEXT NOT NULL DEFAULT '',
		current_count BIGINT NOT NULL,
		range_from BIGINT NOT NULL,
		range_to BIGINT NOT NULL,
		valid_from {{timestamp}} NOT NULL,
		valid_to {{timestamp}} NOT NULL,
		external_correlation_id TEXT NOT NULL DEFAULT '',
		external_validation_enabled BOOLEAN NOT NULL DEFAULT FALSE,
		CHECK (range_from <= range_to)
	)`,
	`CREATE TABLE IF NOT EXISTS internal_sequences (
		organization_id {{uuid}} NOT NULL REFERENCES organizations(id),
		document_type TEXT NOT NULL,
		last_value BIGINT NOT NULL,
		PRIMARY KEY (organization_id, document_type)
	)`,
	`CREATE TABLE IF NOT EXISTS stock_ledger (
		product_id {{uuid}} NOT NULL REFERENCES products(id),
		branch_id {{uuid}} NOT NULL REFERENCES branches(id),
		quantity BIGINT NOT NULL,
		PRIMARY KEY (product_id, branch_id)
	)`,
	`CREATE TABLE IF NOT EXISTS documents (
		id {{uuid}} PRIMARY KEY,
		organization_id {{uuid}} NOT NULL REFERENCES organizations(id),
		document_type TEXT NOT NULL,
		internal_number BIGINT NOT NULL,
		resolution_id {{uuid}} REFERENCES resolutions(id),
		legal_number BIGINT,
		legal_numeration TEXT,
		branch_id {{uuid}} NOT NULL REFERENCES branches(id),
		transfer_branch_id {{uuid}} REFERENCES branches(id),
		recipient_id {{uuid}} REFERENCES recipients(id),
		cashier_session_id {{uuid}} REFERENCES cashier_sessions(id),
		origin_document_id {{uuid}} REFERENCES documents(id),
		source_document_id {{uuid}} REFERENCES documents(id),
		correction_reason TEXT NOT NULL DEFAULT '',
		external_reference TEXT NOT NULL DEFAULT '',
		received_at {{timestamp}},
		adjustment_mode TEXT NOT NULL DEFAULT '',
		notes TEXT NOT NULL DEFAULT '',
		tax_included BOOLEAN NOT NULL,
		retention_rate NUMERIC NOT NULL,
		subtotal BIGINT NOT NULL,
		total_tax BIGINT NOT NULL,
		total_discount BIGINT NOT NULL,
		total_retention BIGINT NOT NULL,
		total_refunds BIGINT NOT NULL,
		total BIGINT NOT NULL,
		confirmation_validation_id TEXT,
		confirmation_qr_payload TEXT,
		confirmation_status TEXT,
		confirmed_at {{timestamp}},
		correlation_id TEXT NOT NULL,
		issued_at {{timestamp}} NOT NULL,
		UNIQUE (organization_id, document_type, internal_number)
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_documents_source_type ON documents (source_document_id, document_type)`,
	`CREATE INDEX IF NOT EXISTS idx_documents_confirmation_pending ON documents (confirmation_status) WHERE confirmation_status = 'pending'`,
	`CREATE TABLE IF NOT EXISTS document_lines (
		document_id {{uuid}} NOT NULL REFERENCES documents(id),
		line_id BIGINT NOT NULL,
		product_id {{uuid}} NOT NULL REFERENCES products(id),
		name TEXT NOT NULL DEFAULT '',
		quantity BIGINT NOT NULL CHECK (quantity <> 0),
		price BIGINT NOT NULL,
		cost BIGINT NOT NULL,
		tax_rate NUMERIC NOT NULL,
		discount_rate NUMERIC NOT NULL,
		stock_at_add BIGINT NOT NULL,
		sale_price BIGINT,
		batch TEXT,
		expires_at {{timestamp}},
		registry_code TEXT,
		PRIMARY KEY (document_id, line_id)
	)`,
	`CREATE TABLE IF NOT EXISTS document_payments (
		document_id {{uuid}} NOT NULL REFERENCES documents(id),
		ordinal INTEGER NOT NULL,
		method TEXT NOT NULL,
		amount BIGINT NOT NULL,
		PRIMARY KEY (document_id, ordinal)
	)`,
}

var dialects = map[string]*strings.Replacer{
	DriverPostgres: strings.NewReplacer("{{uuid}}", "UUID", "{{timestamp}}", "TIMESTAMPTZ"),
	DriverSQLite:   strings.NewReplacer("{{uuid}}", "TEXT", "{{timestamp}}", "TIMESTAMP"),
}

// Migrate creates the schema if it does not exist yet
func Migrate(ctx context.Context, db *sqlx.DB) error {
	dialect, ok := dialects[db.DriverName()]
	if !ok {
		return fmt.Errorf("no schema for driver %q", db.DriverName())
	}

	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, dialect.Replace(stmt)); err != nil {
			return fmt.Errorf("failed to apply migration: %w", err)
		}
	}
	return nil
}
