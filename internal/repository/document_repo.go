package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/folio/folio/internal/domain"
)

// DocumentRepository handles issued document persistence.
// Documents are written once; only the confirmation columns change afterwards.
type DocumentRepository struct {
	q Querier
}

// NewDocumentRepository creates a new document repository
func NewDocumentRepository(q Querier) *DocumentRepository {
	return &DocumentRepository{q: q}
}

type documentRow struct {
	ID                 uuid.UUID           `db:"id"`
	OrganizationID     uuid.UUID           `db:"organization_id"`
	DocumentType       domain.DocumentType `db:"document_type"`
	InternalNumber     int64               `db:"internal_number"`
	ResolutionID       *uuid.UUID          `db:"resolution_id"`
	LegalNumber        *int64              `db:"legal_number"`
	LegalNumeration    *string             `db:"legal_numeration"`
	BranchID           uuid.UUID           `db:"branch_id"`
	TransferBranchID   *uuid.UUID          `db:"transfer_branch_id"`
	RecipientID        *uuid.UUID          `db:"recipient_id"`
	CashierSessionID   *uuid.UUID          `db:"cashier_session_id"`
	OriginDocumentID   *uuid.UUID          `db:"origin_document_id"`
	SourceDocumentID   *uuid.UUID          `db:"source_document_id"`
	CorrectionReason   string              `db:"correction_reason"`
	ExternalReference  string              `db:"external_reference"`
	ReceivedAt         *time.Time          `db:"received_at"`
	AdjustmentMode     string              `db:"adjustment_mode"`
	Notes              string              `db:"notes"`
	TaxIncluded        bool                `db:"tax_included"`
	RetentionRate      decimal.Decimal     `db:"retention_rate"`
	Subtotal           int64               `db:"subtotal"`
	TotalTax           int64               `db:"total_tax"`
	TotalDiscount      int64               `db:"total_discount"`
	TotalRetention     int64               `db:"total_retention"`
	TotalRefunds       int64               `db:"total_refunds"`
	Total              int64               `db:"total"`
	ValidationID       *string             `db:"confirmation_validation_id"`
	QRPayload          *string             `db:"confirmation_qr_payload"`
	ConfirmationStatus *string             `db:"confirmation_status"`
	ConfirmedAt        *time.Time          `db:"confirmed_at"`
	CorrelationID      string              `db:"correlation_id"`
	IssuedAt           time.Time           `db:"issued_at"`
}

type lineRow struct {
	DocumentID   uuid.UUID       `db:"document_id"`
	LineID       int64           `db:"line_id"`
	ProductID    uuid.UUID       `db:"product_id"`
	Name         string          `db:"name"`
	Quantity     int64           `db:"quantity"`
	Price        int64           `db:"price"`
	Cost         int64           `db:"cost"`
	TaxRate      decimal.Decimal `db:"tax_rate"`
	DiscountRate decimal.Decimal `db:"discount_rate"`
	StockAtAdd   int64           `db:"stock_at_add"`
	SalePrice    *int64          `db:"sale_price"`
	Batch        *string         `db:"batch"`
	ExpiresAt    *time.Time      `db:"expires_at"`
	RegistryCode *string         `db:"registry_code"`
}

type paymentRow struct {
	DocumentID uuid.UUID `db:"document_id"`
	Ordinal    int       `db:"ordinal"`
	Method     string    `db:"method"`
	Amount     int64     `db:"amount"`
}

const documentColumns = `
	id, organization_id, document_type, internal_number, resolution_id, legal_number,
	legal_numeration, branch_id, transfer_branch_id, recipient_id, cashier_session_id,
	origin_document_id, source_document_id, correction_reason, external_reference,
	received_at, adjustment_mode, notes, tax_included, retention_rate, subtotal, total_tax,
	total_discount, total_retention, total_refunds, total, confirmation_validation_id,
	confirmation_qr_payload, confirmation_status, confirmed_at, correlation_id, issued_at
`

// Create inserts a document with its lines and payment forms.
// A second document of the same type for one source document fails with domain.ErrRelationExists.
func (r *DocumentRepository) Create(ctx context.Context, doc *domain.Document) error {
	row := toDocumentRow(doc)
	query := `
		INSERT INTO documents (` + documentColumns + `)
		VALUES (:id, :organization_id, :document_type, :internal_number, :resolution_id, :legal_number,
		        :legal_numeration, :branch_id, :transfer_branch_id, :recipient_id, :cashier_session_id,
		        :origin_document_id, :source_document_id, :correction_reason, :external_reference,
		        :received_at, :adjustment_mode, :notes, :tax_included, :retention_rate, :subtotal, :total_tax,
		        :total_discount, :total_retention, :total_refunds, :total, :confirmation_validation_id,
		        :confirmation_qr_payload, :confirmation_status, :confirmed_at, :correlation_id, :issued_at)
	`

	if _, err := sqlx.NamedExecContext(ctx, r.q, query, row); err != nil {
		if doc.SourceDocumentID != nil && IsUniqueViolation(err) {
			return domain.ErrRelationExists
		}
		return fmt.Errorf("failed to create document: %w", err)
	}

	lineQuery := `
		INSERT INTO document_lines (document_id, line_id, product_id, name, quantity, price, cost,
		                            tax_rate, discount_rate, stock_at_add, sale_price, batch,
		                            expires_at, registry_code)
		VALUES (:document_id, :line_id, :product_id, :name, :quantity, :price, :cost,
		        :tax_rate, :discount_rate, :stock_at_add, :sale_price, :batch,
		        :expires_at, :registry_code)
	`
	for i, l := range doc.Lines {
		lr := lineRow{
			DocumentID:   doc.ID,
			LineID:       l.ID,
			ProductID:    l.ProductID,
			Name:         l.Name,
			Quantity:     l.Quantity,
			Price:        l.Price,
			Cost:         l.Cost,
			TaxRate:      l.TaxRate,
			DiscountRate: l.DiscountRate,
			StockAtAdd:   l.StockAtAdd,
			SalePrice:    l.SalePrice,
			Batch:        l.Batch,
			ExpiresAt:    l.ExpiresAt,
			RegistryCode: l.RegistryCode,
		}
		if lr.LineID == 0 {
			lr.LineID = int64(i + 1)
		}
		if _, err := sqlx.NamedExecContext(ctx, r.q, lineQuery, lr); err != nil {
			return fmt.Errorf("failed to create document line: %w", err)
		}
	}

	paymentQuery := `
		INSERT INTO document_payments (document_id, ordinal, method, amount)
		VALUES (:document_id, :ordinal, :method, :amount)
	`
	for i, p := range doc.Payments {
		pr := paymentRow{DocumentID: doc.ID, Ordinal: i, Method: p.Method, Amount: p.Amount}
		if _, err := sqlx.NamedExecContext(ctx, r.q, paymentQuery, pr); err != nil {
			return fmt.Errorf("failed to create document payment: %w", err)
		}
	}

	return nil
}

// FindByID finds a document of an organization with its lines and payments
func (r *DocumentRepository) FindByID(ctx context.Context, orgID, id uuid.UUID) (*domain.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE id = ? AND organization_id = ?`

	var row documentRow
	err := sqlx.GetContext(ctx, r.q, &row, r.q.Rebind(query), id, orgID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find document: %w", err)
	}

	doc := row.toDomain()

	var lines []lineRow
	lineQuery := `SELECT * FROM document_lines WHERE document_id = ? ORDER BY line_id`
	if err := sqlx.SelectContext(ctx, r.q, &lines, r.q.Rebind(lineQuery), id); err != nil {
		return nil, fmt.Errorf("failed to find document lines: %w", err)
	}
	doc.Lines = make([]domain.LineItem, len(lines))
	for i, l := range lines {
		doc.Lines[i] = domain.LineItem{
			ID:           l.LineID,
			ProductID:    l.ProductID,
			Name:         l.Name,
			Quantity:     l.Quantity,
			Price:        l.Price,
			Cost:         l.Cost,
			TaxRate:      l.TaxRate,
			DiscountRate: l.DiscountRate,
			StockAtAdd:   l.StockAtAdd,
			SalePrice:    l.SalePrice,
			Batch:        l.Batch,
			ExpiresAt:    l.ExpiresAt,
			RegistryCode: l.RegistryCode,
		}
	}

	var payments []paymentRow
	paymentQuery := `SELECT * FROM document_payments WHERE document_id = ? ORDER BY ordinal`
	if err := sqlx.SelectContext(ctx, r.q, &payments, r.q.Rebind(paymentQuery), id); err != nil {
		return nil, fmt.Errorf("failed to find document payments: %w", err)
	}
	doc.Payments = make([]domain.PaymentForm, len(payments))
	for i, p := range payments {
		doc.Payments[i] = domain.PaymentForm{Method: p.Method, Amount: p.Amount}
	}

	return doc, nil
}

// ProductQuantities sums a document's line quantities per product
func (r *DocumentRepository) ProductQuantities(ctx context.Context, documentID uuid.UUID) (map[uuid.UUID]int64, error) {
	query := `
		SELECT product_id, SUM(quantity) AS quantity
		FROM document_lines
		WHERE document_id = ?
		GROUP BY product_id
	`

	rows, err := r.q.QueryxContext(ctx, r.q.Rebind(query), documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to read document quantities: %w", err)
	}
	defer rows.Close()

	result := make(map[uuid.UUID]int64)
	for rows.Next() {
		var (
			productID uuid.UUID
			quantity  int64
		)
		if err := rows.Scan(&productID, &quantity); err != nil {
			return nil, fmt.Errorf("failed to scan document quantity: %w", err)
		}
		result[productID] = quantity
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating document quantities: %w", err)
	}

	return result, nil
}

// RelationExists reports whether a source document already has a document of docType
func (r *DocumentRepository) RelationExists(ctx context.Context, sourceID uuid.UUID, docType domain.DocumentType) (bool, error) {
	query := `SELECT COUNT(*) FROM documents WHERE source_document_id = ? AND document_type = ?`

	var n int
	if err := sqlx.GetContext(ctx, r.q, &n, r.q.Rebind(query), sourceID, string(docType)); err != nil {
		return false, fmt.Errorf("failed to check document relation: %w", err)
	}
	return n > 0, nil
}

// AttachConfirmation writes the authority's confirmation onto a document
func (r *DocumentRepository) AttachConfirmation(ctx context.Context, id uuid.UUID, c *domain.Confirmation) error {
	query := `
		UPDATE documents
		SET confirmation_validation_id = ?, confirmation_qr_payload = ?, confirmation_status = ?, confirmed_at = ?
		WHERE id = ?
	`

	if _, err := r.q.ExecContext(ctx, r.q.Rebind(query), c.ValidationID, c.QRPayload, string(c.Status), c.ConfirmedAt, id); err != nil {
		return fmt.Errorf("failed to attach confirmation: %w", err)
	}
	return nil
}

// ResolvePendingConfirmation replaces a pending confirmation with a final one.
// It reports false when the document was no longer pending.
func (r *DocumentRepository) ResolvePendingConfirmation(ctx context.Context, id uuid.UUID, c *domain.Confirmation) (bool, error) {
	query := `
		UPDATE documents
		SET confirmation_qr_payload = ?, confirmation_status = ?, confirmed_at = ?
		WHERE id = ? AND confirmation_status = ?
	`

	result, err := r.q.ExecContext(ctx, r.q.Rebind(query), c.QRPayload, string(c.Status), c.ConfirmedAt, id, string(domain.ConfirmationPending))
	if err != nil {
		return false, fmt.Errorf("failed to resolve confirmation: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows > 0, nil
}

func toDocumentRow(doc *domain.Document) documentRow {
	row := documentRow{
		ID:                doc.ID,
		OrganizationID:    doc.OrganizationID,
		DocumentType:      doc.DocumentType,
		InternalNumber:    doc.InternalNumber,
		ResolutionID:      doc.ResolutionID,
		LegalNumber:       doc.LegalNumber,
		LegalNumeration:   doc.LegalNumeration,
		BranchID:          doc.BranchID,
		TransferBranchID:  doc.TransferBranchID,
		RecipientID:       doc.RecipientID,
		CashierSessionID:  doc.CashierSessionID,
		OriginDocumentID:  doc.OriginDocumentID,
		SourceDocumentID:  doc.SourceDocumentID,
		CorrectionReason:  doc.CorrectionReason,
		ExternalReference: doc.ExternalReference,
		ReceivedAt:        doc.ReceivedAt,
		AdjustmentMode:    string(doc.AdjustmentMode),
		Notes:             doc.Notes,
		TaxIncluded:       doc.TaxIncluded,
		RetentionRate:     doc.RetentionRate,
		Subtotal:          doc.Totals.Subtotal,
		TotalTax:          doc.Totals.Tax,
		TotalDiscount:     doc.Totals.Discount,
		TotalRetention:    doc.Totals.Retention,
		TotalRefunds:      doc.Totals.Refunds,
		Total:             doc.Totals.Total,
		CorrelationID:     doc.CorrelationID,
		IssuedAt:          doc.IssuedAt,
	}
	if c := doc.Confirmation; c != nil {
		status := string(c.Status)
		row.ValidationID = &c.ValidationID
		row.QRPayload = &c.QRPayload
		row.ConfirmationStatus = &status
		row.ConfirmedAt = c.ConfirmedAt
	}
	return row
}

func (row documentRow) toDomain() *domain.Document {
	doc := &domain.Document{
		ID:                row.ID,
		OrganizationID:    row.OrganizationID,
		DocumentType:      row.DocumentType,
		InternalNumber:    row.InternalNumber,
		ResolutionID:      row.ResolutionID,
		LegalNumber:       row.LegalNumber,
		LegalNumeration:   row.LegalNumeration,
		BranchID:          row.BranchID,
		TransferBranchID:  row.TransferBranchID,
		RecipientID:       row.RecipientID,
		CashierSessionID:  row.CashierSessionID,
		OriginDocumentID:  row.OriginDocumentID,
		SourceDocumentID:  row.SourceDocumentID,
		CorrectionReason:  row.CorrectionReason,
		ExternalReference: row.ExternalReference,
		ReceivedAt:        row.ReceivedAt,
		AdjustmentMode:    domain.AdjustmentMode(row.AdjustmentMode),
		Notes:             row.Notes,
		TaxIncluded:       row.TaxIncluded,
		RetentionRate:     row.RetentionRate,
		Totals: domain.Totals{
			Subtotal:  row.Subtotal,
			Tax:       row.TotalTax,
			Discount:  row.TotalDiscount,
			Retention: row.TotalRetention,
			Refunds:   row.TotalRefunds,
			Total:     row.Total,
		},
		CorrelationID: row.CorrelationID,
		IssuedAt:      row.IssuedAt,
	}
	if row.ConfirmationStatus != nil {
		doc.Confirmation = &domain.Confirmation{
			Status:      domain.ConfirmationStatus(*row.ConfirmationStatus),
			ConfirmedAt: row.ConfirmedAt,
		}
		if row.ValidationID != nil {
			doc.Confirmation.ValidationID = *row.ValidationID
		}
		if row.QRPayload != nil {
			doc.Confirmation.QRPayload = *row.QRPayload
		}
	}
	return doc
}
