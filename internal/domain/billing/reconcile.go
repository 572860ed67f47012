package billing

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Candidate is a proposed invoice line from one of the departments, before
// reconciliation has decided whether it survives.
type Candidate struct {
	Description  string
	Dept         string
	Qty          int
	UnitPrice    decimal.Decimal
	Amount       decimal.Decimal
	Batch        *string
	HSNCode      *string
	GSTPercent   decimal.Decimal
	Dosage       *string
	Duration     *string
	NeedsPricing bool
}

// ReconcileInput groups candidates by provenance. The groups, not a flag on
// each item, carry the meaning: SaleItems are backed by an actual stock
// deduction, Suggestions are unfulfilled prescription lines, Manual entries
// were typed in by the billing clerk.
type ReconcileInput struct {
	Consultation *Candidate
	LabItems     []Candidate
	SaleItems    []Candidate
	Suggestions  []Candidate
	Manual       []Candidate
}

// Reconciliation is the merged bill. Subtotal is exact at 2 decimal places;
// AmountDue rounds it up to the next whole currency unit.
type Reconciliation struct {
	Items     []LineItem
	Subtotal  decimal.Decimal
	AmountDue decimal.Decimal
}

// itemKey normalizes a description for duplicate matching. Blank
// descriptions return "" and never match anything.
func itemKey(description string) string {
	return strings.ToLower(strings.TrimSpace(description))
}

// Reconcile merges department candidates into one line-item list. A
// suggestion is dropped when a stock-deducted sale for the same normalized
// drug name exists; everything else is kept in source order: consultation,
// lab, pharmacy sales, surviving suggestions, manual entries. Suggestions
// are never merged with each other and manual entries are never touched, so
// feeding an invoice's own items back in as Manual changes nothing.
//
// Reconcile never fails: a missing qty counts as 1, a missing unit price as
// zero. Billing clerks fix pricing gaps on the draft, the merge must not
// block them.
func Reconcile(in ReconcileInput) Reconciliation {
	realKeys := make(map[string]struct{}, len(in.SaleItems))
	for _, c := range in.SaleItems {
		if key := itemKey(c.Description); key != "" {
			realKeys[key] = struct{}{}
		}
	}

	var items []LineItem
	add := func(c Candidate, p Provenance) {
		qty := c.Qty
		if qty == 0 {
			qty = 1
		}
		amount := c.Amount
		if amount.IsZero() {
			amount = c.UnitPrice.Mul(decimal.NewFromInt(int64(qty)))
		}
		dept := c.Dept
		if dept == "" {
			dept = DeptOther
		}
		items = append(items, LineItem{
			Description:  c.Description,
			Dept:         dept,
			Provenance:   p,
			Qty:          qty,
			UnitPrice:    c.UnitPrice,
			Amount:       amount,
			Batch:        c.Batch,
			HSNCode:      c.HSNCode,
			GSTPercent:   c.GSTPercent,
			Dosage:       c.Dosage,
			Duration:     c.Duration,
			NeedsPricing: c.NeedsPricing,
			Position:     len(items),
		})
	}

	if in.Consultation != nil {
		add(*in.Consultation, Real)
	}
	for _, c := range in.LabItems {
		add(c, Real)
	}
	for _, c := range in.SaleItems {
		add(c, Real)
	}
	for _, c := range in.Suggestions {
		if key := itemKey(c.Description); key != "" {
			if _, superseded := realKeys[key]; superseded {
				continue
			}
		}
		add(c, Suggested)
	}
	for _, c := range in.Manual {
		add(c, Manual)
	}

	subtotal := decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(item.Amount)
	}
	subtotal = subtotal.Round(2)

	return Reconciliation{
		Items:     items,
		Subtotal:  subtotal,
		AmountDue: subtotal.Ceil(),
	}
}
