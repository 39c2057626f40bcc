package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"

	"github.com/folio/folio/internal/authority"
	"github.com/folio/folio/internal/domain"
	"github.com/folio/folio/internal/logger"
	"github.com/folio/folio/internal/repository"
	"github.com/folio/folio/internal/totals"
)

// CatalogLookup resolves the organization-scoped entities a draft references
type CatalogLookup interface {
	FindBranch(ctx context.Context, orgID, branchID uuid.UUID) (*domain.Branch, error)
	FindRecipient(ctx context.Context, orgID, recipientID uuid.UUID) (*domain.Recipient, error)
	FindProducts(ctx context.Context, orgID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]domain.Product, error)
}

// DocumentLookup loads previously issued documents
type DocumentLookup interface {
	FindByID(ctx context.Context, orgID, id uuid.UUID) (*domain.Document, error)
}

// Enqueuer schedules post-issuance work
type Enqueuer interface {
	EnqueueNotification(ctx context.Context, orgID, documentID uuid.UUID, email string) error
	EnqueueConfirmationPoll(ctx context.Context, orgID, documentID uuid.UUID, validationID string) error
}

// IssuanceConfig tunes the transactional phase
type IssuanceConfig struct {
	Isolation    sql.IsolationLevel
	TxTimeout    time.Duration
	POSThreshold int64
}

// IssuanceService converts finalized drafts into issued documents
type IssuanceService struct {
	db        *sqlx.DB
	catalog   CatalogLookup
	documents DocumentLookup
	authority authority.Client
	enqueuer  Enqueuer
	cfg       IssuanceConfig
	now       func() time.Time
	log       zerolog.Logger
}

// NewIssuanceService creates a new issuance service. enqueuer may be nil.
func NewIssuanceService(db *sqlx.DB, catalog CatalogLookup, documents DocumentLookup, client authority.Client, enqueuer Enqueuer, cfg IssuanceConfig) *IssuanceService {
	if client == nil {
		client = authority.Disabled{}
	}
	return &IssuanceService{
		db:        db,
		catalog:   catalog,
		documents: documents,
		authority: client,
		enqueuer:  enqueuer,
		cfg:       cfg,
		now:       func() time.Time { return time.Now().UTC() },
		log:       logger.WithComponent("issuance"),
	}
}

// issuance carries one attempt through validation and persistence
type issuance struct {
	org       *domain.Organization
	spec      domain.DocumentSpec
	draft     domain.Draft
	lines     []domain.LineItem
	totals    domain.Totals
	recipient *domain.Recipient
	origin    *domain.Document
	source    *domain.Document
	email     string
	log       zerolog.Logger
}

func (is *issuance) transition(state domain.IssuanceState) {
	is.log.Debug().Str("state", string(state)).Msg("issuance state changed")
}

// Issue validates the draft, then allocates numbers, moves stock, persists the
// document and obtains external validation inside one transaction.
func (s *IssuanceService) Issue(ctx context.Context, org *domain.Organization, d domain.Draft) (*domain.IssuedDocument, error) {
	correlationID := d.CorrelationID
	if correlationID == "" {
		correlationID = uuid.NewString()
	}

	is := &issuance{
		org:   org,
		draft: d,
		log: s.log.With().
			Str("correlation_id", correlationID).
			Str("organization_id", org.ID.String()).
			Str("document_type", string(d.DocumentType)).
			Logger(),
	}
	is.transition(domain.StateDraft)

	issued, err := s.issue(ctx, is, correlationID)
	if err != nil {
		is.transition(domain.StateAborted)
		return nil, s.classify(is, err, correlationID)
	}

	is.transition(domain.StateIssued)
	is.log.Info().
		Str("document_id", issued.DocumentID.String()).
		Int64("internal_number", issued.InternalNumber).
		Msg("document issued")

	s.enqueueFollowUps(ctx, is, issued)
	return issued, nil
}

func (s *IssuanceService) issue(ctx context.Context, is *issuance, correlationID string) (*domain.IssuedDocument, error) {
	is.transition(domain.StateValidating)
	if err := s.validate(ctx, is); err != nil {
		return nil, err
	}

	is.transition(domain.StatePersisting)

	txCtx := ctx
	if s.cfg.TxTimeout > 0 {
		var cancel context.CancelFunc
		txCtx, cancel = context.WithTimeout(ctx, s.cfg.TxTimeout)
		defer cancel()
	}

	var issued *domain.IssuedDocument
	err := repository.WithTx(txCtx, s.db, &sql.TxOptions{Isolation: s.cfg.Isolation}, func(tx *sqlx.Tx) error {
		var err error
		issued, err = s.persist(txCtx, tx, is, correlationID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return issued, nil
}

// validate runs every side-effect free check and fills in the resolved entities
func (s *IssuanceService) validate(ctx context.Context, is *issuance) error {
	d := &is.draft

	spec, ok := domain.SpecFor(d.DocumentType)
	if !ok {
		return preconditionError(ErrUnknownDocumentType)
	}
	is.spec = spec

	if d.BranchID == nil {
		return preconditionError(ErrBranchRequired)
	}
	branch, err := s.catalog.FindBranch(ctx, is.org.ID, *d.BranchID)
	if err != nil {
		return err
	}
	if branch == nil {
		return preconditionError(ErrBranchNotFound)
	}

	if err := s.validateTransfer(ctx, is); err != nil {
		return err
	}
	if err := s.validateRecipient(ctx, is); err != nil {
		return err
	}
	if err := s.validateLines(ctx, is); err != nil {
		return err
	}

	is.totals = totals.Compute(is.lines, totals.ConfigFor(*d))

	if spec.Payable || len(d.Payments) > 0 {
		if paid := totals.SumPayments(d.Payments); paid != is.totals.Total {
			return &IssuanceError{
				Kind:    KindPrecondition,
				Message: fmt.Sprintf("%s: paid %d, total %d", ErrPaymentMismatch, paid, is.totals.Total),
				Err:     ErrPaymentMismatch,
			}
		}
	}

	if spec.Type == domain.DocumentTypePOSInvoice && totals.RequiresElectronicInvoice(is.totals.Total, s.cfg.POSThreshold) {
		return preconditionError(ErrPOSThresholdExceeded)
	}

	if err := s.validateCorrection(ctx, is); err != nil {
		return err
	}
	return s.validateSource(ctx, is)
}

func (s *IssuanceService) validateTransfer(ctx context.Context, is *issuance) error {
	d := is.draft
	if d.TransferBranchID == nil {
		return nil
	}
	if is.spec.Stock != domain.StockAdjustment {
		return preconditionError(ErrTransferNotAllowed)
	}
	if *d.TransferBranchID == *d.BranchID {
		return preconditionError(ErrInvalidTransferBranch)
	}
	dest, err := s.catalog.FindBranch(ctx, is.org.ID, *d.TransferBranchID)
	if err != nil {
		return err
	}
	if dest == nil {
		return preconditionError(ErrInvalidTransferBranch)
	}
	return nil
}

func (s *IssuanceService) validateRecipient(ctx context.Context, is *issuance) error {
	d := is.draft
	if is.spec.Recipient == domain.RecipientNone {
		is.draft.RecipientID = nil
		return nil
	}
	if d.RecipientID == nil {
		if is.spec.RecipientOptional {
			return nil
		}
		return preconditionError(ErrRecipientRequired)
	}

	recipient, err := s.catalog.FindRecipient(ctx, is.org.ID, *d.RecipientID)
	if err != nil {
		return err
	}
	if recipient == nil {
		return preconditionError(ErrRecipientNotFound)
	}
	if recipient.Kind != is.spec.Recipient {
		return preconditionError(ErrRecipientKindMismatch)
	}

	is.recipient = recipient
	is.email = d.RecipientEmail
	if is.email == "" && recipient.Email != nil {
		is.email = *recipient.Email
	}
	return nil
}

func (s *IssuanceService) validateLines(ctx context.Context, is *issuance) error {
	d := is.draft
	if len(d.Lines) == 0 {
		return preconditionError(ErrNoLines)
	}

	ids := make([]uuid.UUID, 0, len(d.Lines))
	seen := make(map[uuid.UUID]bool, len(d.Lines))
	for _, line := range d.Lines {
		if line.Quantity == 0 {
			return preconditionError(ErrZeroQuantity, lineLabel(line))
		}
		if !seen[line.ProductID] {
			seen[line.ProductID] = true
			ids = append(ids, line.ProductID)
		}
	}

	products, err := s.catalog.FindProducts(ctx, is.org.ID, ids)
	if err != nil {
		return err
	}

	var missing []string
	reported := make(map[uuid.UUID]bool)
	for _, line := range d.Lines {
		if _, ok := products[line.ProductID]; !ok && !reported[line.ProductID] {
			reported[line.ProductID] = true
			missing = append(missing, lineLabel(line))
		}
	}
	if len(missing) > 0 {
		return preconditionError(ErrProductsNotFound, missing...)
	}

	if is.org.IsPharmacy() && is.spec.PurchaseSide {
		var incomplete []string
		for _, line := range d.Lines {
			if line.Batch == nil || *line.Batch == "" || line.ExpiresAt == nil {
				incomplete = append(incomplete, lineLabel(line))
			}
		}
		if len(incomplete) > 0 {
			return preconditionError(ErrBatchRequired, incomplete...)
		}
	}

	is.lines = make([]domain.LineItem, len(d.Lines))
	for i, line := range d.Lines {
		line.ID = int64(i + 1)
		if line.Name == "" {
			line.Name = products[line.ProductID].Name
		}
		is.lines[i] = line
	}
	return nil
}

func (s *IssuanceService) validateCorrection(ctx context.Context, is *issuance) error {
	d := is.draft
	if !is.spec.Correction {
		return nil
	}
	if d.CorrectionReason == "" {
		return preconditionError(ErrCorrectionReasonRequired)
	}
	if d.OriginDocumentID == nil {
		return preconditionError(ErrOriginRequired)
	}

	origin, err := s.documents.FindByID(ctx, is.org.ID, *d.OriginDocumentID)
	if err != nil {
		return err
	}
	if origin == nil {
		return preconditionError(ErrOriginNotFound)
	}
	if !origin.IsExternallyConfirmed() {
		return preconditionError(ErrOriginNotConfirmed)
	}
	is.origin = origin
	return nil
}

func (s *IssuanceService) validateSource(ctx context.Context, is *issuance) error {
	d := is.draft
	if d.SourceDocumentID == nil {
		return nil
	}
	if is.spec.SourceType == "" {
		return preconditionError(ErrSourceNotAllowed)
	}

	source, err := s.documents.FindByID(ctx, is.org.ID, *d.SourceDocumentID)
	if err != nil {
		return err
	}
	if source == nil || source.DocumentType != is.spec.SourceType {
		return preconditionError(ErrSourceDocumentNotFound)
	}
	is.source = source
	return nil
}

// persist runs inside the issuance transaction; any error rolls everything back
func (s *IssuanceService) persist(ctx context.Context, tx *sqlx.Tx, is *issuance, correlationID string) (*domain.IssuedDocument, error) {
	d := is.draft
	now := s.now()
	sequences := repository.NewSequenceRepository(tx)
	documents := repository.NewDocumentRepository(tx)

	internalNumber, err := sequences.NextInternalID(ctx, is.org.ID, is.spec.Type)
	if err != nil {
		return nil, err
	}

	var alloc *domain.Allocation
	if is.spec.ResolutionPurpose != "" {
		alloc, err = s.allocate(ctx, tx, is, now)
		if err != nil {
			return nil, err
		}
	}

	var cashierID *uuid.UUID
	if is.spec.RequiresCashier {
		session, err := repository.NewCashierRepository(tx).FindOpenSession(ctx, *d.BranchID)
		if err != nil {
			return nil, err
		}
		if session == nil {
			return nil, domain.ErrNoOpenCashier
		}
		cashierID = &session.ID
	}

	if err := s.moveStock(ctx, tx, is); err != nil {
		return nil, err
	}

	doc := &domain.Document{
		ID:                uuid.New(),
		OrganizationID:    is.org.ID,
		DocumentType:      is.spec.Type,
		InternalNumber:    internalNumber,
		BranchID:          *d.BranchID,
		TransferBranchID:  d.TransferBranchID,
		RecipientID:       d.RecipientID,
		CashierSessionID:  cashierID,
		CorrectionReason:  d.CorrectionReason,
		ExternalReference: d.ExternalReference,
		ReceivedAt:        d.ReceivedAt,
		Notes:             d.Notes,
		TaxIncluded:       d.TaxIncluded,
		RetentionRate:     d.RetentionRate,
		Totals:            is.totals,
		Lines:             is.lines,
		Payments:          d.Payments,
		CorrelationID:     correlationID,
		IssuedAt:          now,
	}
	if is.origin != nil {
		doc.OriginDocumentID = &is.origin.ID
	}
	if is.source != nil {
		doc.SourceDocumentID = &is.source.ID
	}
	if is.spec.Stock == domain.StockAdjustment && d.TransferBranchID == nil {
		doc.AdjustmentMode = adjustmentMode(d)
	}
	if alloc != nil {
		numeration := alloc.Numeration()
		doc.ResolutionID = &alloc.ResolutionID
		doc.LegalNumber = &alloc.Number
		doc.LegalNumeration = &numeration
	}

	if err := documents.Create(ctx, doc); err != nil {
		return nil, err
	}

	if is.spec.PurchaseSide && is.spec.Stock == domain.StockAdd && d.UpdatePrices {
		if err := repository.NewCatalogRepository(tx).UpdatePrices(ctx, is.org.ID, priceUpdates(is.lines)); err != nil {
			return nil, err
		}
	}

	if is.spec.ExternalValidation && alloc != nil && alloc.ExternalValidationEnabled {
		is.transition(domain.StateExternallyConfirming)
		confirmation, err := s.confirm(ctx, is, doc, alloc)
		if err != nil {
			return nil, err
		}
		if err := documents.AttachConfirmation(ctx, doc.ID, confirmation); err != nil {
			return nil, err
		}
		doc.Confirmation = confirmation
	}

	return &domain.IssuedDocument{
		DocumentID:      doc.ID,
		DocumentType:    doc.DocumentType,
		InternalNumber:  doc.InternalNumber,
		LegalNumeration: doc.LegalNumeration,
		Confirmation:    doc.Confirmation,
		Totals:          doc.Totals,
		CorrelationID:   correlationID,
	}, nil
}

func (s *IssuanceService) allocate(ctx context.Context, tx *sqlx.Tx, is *issuance, now time.Time) (*domain.Allocation, error) {
	purpose := is.spec.ResolutionPurpose
	resolutionID := is.draft.ResolutionID
	if resolutionID == nil {
		active, err := repository.NewResolutionRepository(tx).FindActive(ctx, is.org.ID, purpose, now)
		if err != nil {
			return nil, err
		}
		if active == nil {
			return nil, domain.ErrResolutionNotFound
		}
		resolutionID = &active.ID
	}
	return repository.NewSequenceRepository(tx).AllocateResolutionNumber(ctx, *resolutionID, is.org.ID, purpose, now)
}

// moveStock applies the ledger effect of the document type
func (s *IssuanceService) moveStock(ctx context.Context, tx *sqlx.Tx, is *issuance) error {
	d := is.draft
	branchID := *d.BranchID
	stock := repository.NewStockRepository(tx)

	if is.source != nil {
		exists, err := repository.NewDocumentRepository(tx).RelationExists(ctx, is.source.ID, is.spec.Type)
		if err != nil {
			return err
		}
		if exists {
			return domain.ErrRelationExists
		}
		// the source document already moved the goods
		if sourceSpec, _ := domain.SpecFor(is.source.DocumentType); sourceSpec.Stock != domain.StockNone {
			return nil
		}
	}

	switch is.spec.Stock {
	case domain.StockSubtract:
		return stock.Apply(ctx, repository.BuildStockMutation(is.lines, branchID, repository.DirectionSubtract))
	case domain.StockAdd:
		return stock.Apply(ctx, repository.BuildStockMutation(is.lines, branchID, repository.DirectionAdd))
	case domain.StockCorrectionDelta:
		origin, err := repository.NewDocumentRepository(tx).ProductQuantities(ctx, is.origin.ID)
		if err != nil {
			return err
		}
		// the goods being corrected left from the origin's branch
		deltas := repository.CorrectionDeltas(is.lines, origin)
		return stock.Apply(ctx, repository.BuildDeltaMutation(deltas, is.origin.BranchID))
	case domain.StockAdjustment:
		if d.TransferBranchID != nil {
			return stock.ApplyTransfer(ctx, repository.BuildTransfer(is.lines, branchID, *d.TransferBranchID))
		}
		if adjustmentMode(d) == domain.AdjustmentPartial {
			return stock.Apply(ctx, repository.BuildStockMutation(is.lines, branchID, repository.DirectionAdd))
		}
		return stock.ApplyTotalReset(ctx, repository.BuildTotalReset(is.lines, branchID))
	}
	return nil
}

// confirm submits the document to the authority. Any non-success aborts the issuance.
func (s *IssuanceService) confirm(ctx context.Context, is *issuance, doc *domain.Document, alloc *domain.Allocation) (*domain.Confirmation, error) {
	payload := &authority.Payload{
		DocumentID:       doc.ID,
		DocumentType:     doc.DocumentType,
		Numeration:       alloc.Numeration(),
		TechnicalKey:     alloc.ExternalCorrelationID,
		IssuedAt:         doc.IssuedAt,
		TaxIncluded:      doc.TaxIncluded,
		Totals:           doc.Totals,
		Lines:            doc.Lines,
		Payments:         doc.Payments,
		CorrectionReason: doc.CorrectionReason,
	}
	if is.recipient != nil {
		payload.RecipientTaxID = is.recipient.TaxID
	}
	if is.origin != nil && is.origin.Confirmation != nil {
		payload.OriginValidationID = is.origin.Confirmation.ValidationID
	}

	res, err := s.authority.Submit(ctx, payload)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("authority call interrupted: %w", ctxErr)
		}
		if authority.IsTimeout(err) {
			return nil, fmt.Errorf("%w: %v", ErrAuthorityTimeout, err)
		}
		return nil, &externalFailure{payload: payload, err: err}
	}
	if !res.Success || res.Confirmation == nil {
		return nil, &externalFailure{payload: payload, result: res}
	}
	return res.Confirmation, nil
}

// externalFailure keeps the exchange details for the incident log
type externalFailure struct {
	payload *authority.Payload
	result  *authority.SubmitResult
	err     error
}

func (e *externalFailure) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%v: %v", ErrExternalValidation, e.err)
	}
	return fmt.Sprintf("%v: %s", ErrExternalValidation, e.result.Message)
}

func (e *externalFailure) Unwrap() error {
	if e.err != nil {
		return e.err
	}
	return ErrExternalValidation
}

var contentionErrors = []error{
	domain.ErrResolutionExhausted,
	domain.ErrResolutionExpired,
	domain.ErrResolutionNotYetValid,
	domain.ErrNoOpenCashier,
	domain.ErrNegativeStockOnTransfer,
	domain.ErrRelationExists,
}

// classify turns any failure into an IssuanceError and logs incidents
func (s *IssuanceService) classify(is *issuance, err error, correlationID string) *IssuanceError {
	var issErr *IssuanceError
	if errors.As(err, &issErr) {
		is.log.Debug().Err(err).Strs("missing", issErr.Missing).Msg("issuance rejected")
		return issErr
	}

	for _, target := range contentionErrors {
		if errors.Is(err, target) {
			is.log.Debug().Err(err).Msg("issuance rejected")
			return &IssuanceError{Kind: KindContention, Message: err.Error(), Err: err}
		}
	}

	if errors.Is(err, domain.ErrResolutionNotFound) {
		is.log.Debug().Err(err).Msg("issuance rejected")
		return &IssuanceError{Kind: KindPrecondition, Message: err.Error(), Err: err}
	}

	var ext *externalFailure
	if errors.As(err, &ext) {
		referenceID := correlationID
		message := "the tax authority did not validate the document"
		if ext.result != nil {
			if ext.result.ReferenceID != "" {
				referenceID = ext.result.ReferenceID
			}
			if ext.result.Message != "" {
				message = fmt.Sprintf("%s: %s", message, ext.result.Message)
			}
		}
		is.log.Error().
			Err(err).
			Str("reference_id", referenceID).
			Str("path", "/documents").
			Interface("payload", ext.payload).
			Msg("external validation failed")
		return &IssuanceError{Kind: KindExternal, Message: message, ReferenceID: referenceID, Err: err}
	}

	if errors.Is(err, ErrAuthorityTimeout) {
		is.log.Warn().Err(err).Str("reference_id", correlationID).Msg("tax authority timed out")
		return &IssuanceError{
			Kind:        KindTimeout,
			Message:     "the tax authority did not respond in time, please try again",
			ReferenceID: correlationID,
			Err:         err,
		}
	}

	if repository.IsSerializationConflict(err) {
		is.log.Warn().Err(err).Str("reference_id", correlationID).Msg("issuance conflicted with a concurrent transaction")
		return &IssuanceError{
			Kind:        KindTimeout,
			Message:     "the document conflicted with a concurrent issuance, please try again",
			ReferenceID: correlationID,
			Err:         err,
		}
	}

	if repository.IsTransactionAborted(err) {
		is.log.Warn().Err(err).Str("reference_id", correlationID).Msg("issuance transaction timed out")
		return &IssuanceError{
			Kind:        KindTimeout,
			Message:     "the operation timed out, please try again",
			ReferenceID: correlationID,
			Err:         err,
		}
	}

	is.log.Error().Err(err).Str("reference_id", correlationID).Msg("issuance failed")
	return &IssuanceError{
		Kind:        KindInternal,
		Message:     "internal error while issuing the document",
		ReferenceID: correlationID,
		Err:         err,
	}
}

// enqueueFollowUps schedules work that must not affect the committed issuance
func (s *IssuanceService) enqueueFollowUps(ctx context.Context, is *issuance, issued *domain.IssuedDocument) {
	if s.enqueuer == nil || issued.Confirmation == nil {
		return
	}

	if issued.Confirmation.Status == domain.ConfirmationPending {
		if err := s.enqueuer.EnqueueConfirmationPoll(ctx, is.org.ID, issued.DocumentID, issued.Confirmation.ValidationID); err != nil {
			is.log.Warn().Err(err).Msg("failed to enqueue confirmation poll")
		}
	}

	if is.email != "" {
		if err := s.enqueuer.EnqueueNotification(ctx, is.org.ID, issued.DocumentID, is.email); err != nil {
			is.log.Warn().Err(err).Msg("failed to enqueue notification")
		}
	}
}

func adjustmentMode(d domain.Draft) domain.AdjustmentMode {
	if d.AdjustmentMode == "" {
		return domain.AdjustmentTotal
	}
	return d.AdjustmentMode
}

func priceUpdates(lines []domain.LineItem) []repository.PriceUpdate {
	updates := make([]repository.PriceUpdate, 0, len(lines))
	for _, line := range lines {
		updates = append(updates, repository.PriceUpdate{
			ProductID: line.ProductID,
			Cost:      line.Cost,
			SalePrice: line.SalePrice,
		})
	}
	return updates
}

func lineLabel(line domain.LineItem) string {
	if line.Name != "" {
		return line.Name
	}
	return line.ProductID.String()
}
