// Package totals derives document totals from line items and tax configuration.
//
// All money is integer smallest-currency-unit; every division truncates toward
// zero so a document is never over-charged by rounding. Percentages are decimals.
package totals

import (
	"github.com/shopspring/decimal"

	"github.com/folio/folio/internal/domain"
)

var hundred = decimal.NewFromInt(100)

// Config is the tax configuration totals are computed under
type Config struct {
	TaxIncluded   bool
	RetentionRate decimal.Decimal
}

// ConfigFor returns the totals configuration carried by a draft
func ConfigFor(d domain.Draft) Config {
	return Config{TaxIncluded: d.TaxIncluded, RetentionRate: d.RetentionRate}
}

// LineAmounts are the computed contributions of a single line
type LineAmounts struct {
	Subtotal int64 // after discount
	Tax      int64
	Discount int64
}

// Total is the line's contribution to the grand total before retention
func (l LineAmounts) Total() int64 {
	return l.Subtotal + l.Tax
}

// Line computes the amounts of one line.
// With taxIncluded the unit price already carries tax and the net is extracted from it.
// Tax is taken on the undiscounted subtotal; the discount only reduces the subtotal.
func Line(line domain.LineItem, taxIncluded bool) LineAmounts {
	gross := decimal.NewFromInt(line.Price).Mul(decimal.NewFromInt(line.Quantity))

	var subtotal, tax int64
	if taxIncluded {
		subtotal = gross.Mul(hundred).Div(hundred.Add(line.TaxRate)).IntPart()
		tax = gross.IntPart() - subtotal
	} else {
		subtotal = gross.IntPart()
		tax = decimal.NewFromInt(subtotal).Mul(line.TaxRate).Div(hundred).IntPart()
	}

	discount := percentOf(subtotal, line.DiscountRate)

	return LineAmounts{
		Subtotal: subtotal - discount,
		Tax:      tax,
		Discount: discount,
	}
}

// Compute returns the totals summary of lines under cfg.
// It is deterministic and independent of line order.
func Compute(lines []domain.LineItem, cfg Config) domain.Totals {
	var t domain.Totals
	for _, line := range lines {
		amounts := Line(line, cfg.TaxIncluded)
		t.Subtotal += amounts.Subtotal
		t.Tax += amounts.Tax
		t.Discount += amounts.Discount
		if line.Quantity < 0 {
			t.Refunds += amounts.Total()
		}
	}

	// Retention only reduces what is payable; subtotal and tax reporting are unaffected.
	t.Retention = percentOf(t.Subtotal, cfg.RetentionRate)
	t.Total = t.Subtotal + t.Tax - t.Retention
	return t
}

// SumPayments adds up the amounts of all payment forms
func SumPayments(payments []domain.PaymentForm) int64 {
	var sum int64
	for _, p := range payments {
		sum += p.Amount
	}
	return sum
}

// POSThreshold is the monetary ceiling of a point of sale document:
// a fixed multiple of the jurisdiction's tax unit value.
func POSThreshold(units, unitValue int64) int64 {
	return units * unitValue
}

// RequiresElectronicInvoice reports whether a POS total must go through the
// externally validated flow instead. A non-positive threshold disables the rule.
func RequiresElectronicInvoice(total, threshold int64) bool {
	return threshold > 0 && total > threshold
}

func percentOf(amount int64, rate decimal.Decimal) int64 {
	if amount == 0 || rate.IsZero() {
		return 0
	}
	return decimal.NewFromInt(amount).Mul(rate).Div(hundred).IntPart()
}
