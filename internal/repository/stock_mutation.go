package repository

import (
	"bytes"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/folio/folio/internal/domain"
)

// Direction is the sign line quantities are applied to the ledger with
type Direction int64

const (
	DirectionAdd      Direction = 1
	DirectionSubtract Direction = -1
)

// StockDelta is a signed quantity for one product
type StockDelta struct {
	ProductID uuid.UUID
	Quantity  int64
}

// StockMutation is a set of relative changes to one branch's ledger.
// Deltas hold at most one entry per product, sorted by product id, none of them zero.
type StockMutation struct {
	BranchID uuid.UUID
	Deltas   []StockDelta
}

// Empty reports whether applying the mutation would change nothing
func (m StockMutation) Empty() bool {
	return len(m.Deltas) == 0
}

// ProductIDs lists the products the mutation touches
func (m StockMutation) ProductIDs() []uuid.UUID {
	ids := make([]uuid.UUID, len(m.Deltas))
	for i, d := range m.Deltas {
		ids[i] = d.ProductID
	}
	return ids
}

// Upsert renders the mutation as one multi-row increment statement.
// Placeholders are '?' and need Rebind for the target driver.
func (m StockMutation) Upsert() (string, []any) {
	return ledgerUpsert(m.BranchID, m.Deltas, "stock_ledger.quantity + excluded.quantity")
}

// BuildStockMutation aggregates line quantities per product and signs them with dir
func BuildStockMutation(lines []domain.LineItem, branchID uuid.UUID, dir Direction) StockMutation {
	deltas := make(map[uuid.UUID]int64, len(lines))
	for _, l := range lines {
		deltas[l.ProductID] += l.Quantity * int64(dir)
	}
	return BuildDeltaMutation(deltas, branchID)
}

// BuildDeltaMutation turns precomputed per-product deltas into a mutation
func BuildDeltaMutation(deltas map[uuid.UUID]int64, branchID uuid.UUID) StockMutation {
	m := StockMutation{BranchID: branchID, Deltas: make([]StockDelta, 0, len(deltas))}
	for productID, qty := range deltas {
		if qty == 0 {
			continue
		}
		m.Deltas = append(m.Deltas, StockDelta{ProductID: productID, Quantity: qty})
	}
	sortDeltas(m.Deltas)
	return m
}

// CorrectionDeltas computes the ledger change of a correction note:
// note quantity minus origin quantity for every product on the note
func CorrectionDeltas(noteLines []domain.LineItem, origin map[uuid.UUID]int64) map[uuid.UUID]int64 {
	note := make(map[uuid.UUID]int64, len(noteLines))
	for _, l := range noteLines {
		note[l.ProductID] += l.Quantity
	}

	deltas := make(map[uuid.UUID]int64, len(note))
	for productID, qty := range note {
		deltas[productID] = qty - origin[productID]
	}
	return deltas
}

// TotalReset sets listed products to absolute quantities and every other
// product of the branch to zero
type TotalReset struct {
	BranchID uuid.UUID
	Targets  []StockDelta
}

// Statements renders the reset as a zeroing update followed by an absolute upsert
func (r TotalReset) Statements() []Statement {
	stmts := []Statement{{
		Query: `UPDATE stock_ledger SET quantity = 0 WHERE branch_id = ?`,
		Args:  []any{r.BranchID},
	}}
	if len(r.Targets) > 0 {
		query, args := ledgerUpsert(r.BranchID, r.Targets, "excluded.quantity")
		stmts = append(stmts, Statement{Query: query, Args: args})
	}
	return stmts
}

// BuildTotalReset aggregates line quantities into absolute targets per product
func BuildTotalReset(lines []domain.LineItem, branchID uuid.UUID) TotalReset {
	targets := make(map[uuid.UUID]int64, len(lines))
	for _, l := range lines {
		targets[l.ProductID] += l.Quantity
	}

	r := TotalReset{BranchID: branchID, Targets: make([]StockDelta, 0, len(targets))}
	for productID, qty := range targets {
		r.Targets = append(r.Targets, StockDelta{ProductID: productID, Quantity: qty})
	}
	sortDeltas(r.Targets)
	return r
}

// Transfer moves quantities between branches
type Transfer struct {
	Source      StockMutation
	Destination StockMutation
}

// BuildTransfer subtracts line quantities at from and adds them at to
func BuildTransfer(lines []domain.LineItem, from, to uuid.UUID) Transfer {
	return Transfer{
		Source:      BuildStockMutation(lines, from, DirectionSubtract),
		Destination: BuildStockMutation(lines, to, DirectionAdd),
	}
}

// Statement is a query with its arguments
type Statement struct {
	Query string
	Args  []any
}

func ledgerUpsert(branchID uuid.UUID, rows []StockDelta, assign string) (string, []any) {
	var b strings.Builder
	b.WriteString("INSERT INTO stock_ledger (product_id, branch_id, quantity) VALUES ")

	args := make([]any, 0, len(rows)*3)
	for i, row := range rows {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("(?, ?, ?)")
		args = append(args, row.ProductID, branchID, row.Quantity)
	}

	b.WriteString(" ON CONFLICT (product_id, branch_id) DO UPDATE SET quantity = ")
	b.WriteString(assign)
	return b.String(), args
}

func sortDeltas(deltas []StockDelta) {
	slices.SortFunc(deltas, func(a, b StockDelta) int {
		return bytes.Compare(a.ProductID[:], b.ProductID[:])
	})
}
