// Package allocation splits one tender across the line items of its
// transaction so paid amounts can be tracked per item with their own
// tax/pre-tax breakdown.
package allocation

import (
	"fmt"

	"github.com/nimasrn/pos-ledger/internal/model"
	"github.com/nimasrn/pos-ledger/internal/tax"
)

var ErrReconciliation = fmt.Errorf("allocations do not reconcile with tender amount")

// Allocate distributes tender.Amount over the items with a positive unit
// price, weighted by extended price (unit price times quantity). Items keep
// their given order; the last allocatable item absorbs the rounding
// remainder so the applied totals always sum to the tender amount.
func Allocate(items []*model.LineItem, tender *model.Tender) []*model.LineItemTender {
	allocatable := make([]*model.LineItem, 0, len(items))
	var totalWeight int64
	for _, li := range items {
		if li.UnitPrice > 0 {
			allocatable = append(allocatable, li)
			totalWeight += li.Pretax()
		}
	}
	if len(allocatable) == 0 {
		return nil
	}

	out := make([]*model.LineItemTender, 0, len(allocatable))
	var applied int64
	for i, li := range allocatable {
		var share int64
		if i == len(allocatable)-1 {
			share = tender.Amount - applied
		} else {
			share = proportion(tender.Amount, li.Pretax(), totalWeight)
		}
		applied += share

		pretax, taxPart := split(share, li)
		out = append(out, &model.LineItemTender{
			LineItemID:       li.ID,
			TenderID:         tender.ID,
			LineItemPosition: li.Position,
			AppliedPretax:    pretax,
			AppliedTax:       taxPart,
			AppliedTotal:     share,
		})
	}
	return out
}

// proportion is round_half_up(amount * weight / total) in integers.
func proportion(amount, weight, total int64) int64 {
	if amount < 0 {
		return -proportion(-amount, weight, total)
	}
	return (2*amount*weight + total) / (2 * total)
}

func split(share int64, li *model.LineItem) (pretax, taxPart int64) {
	if !li.Taxable || li.TaxRate == 0 {
		return share, 0
	}
	pretax = tax.BackOutPretax(share, li.TaxRate)
	return pretax, share - pretax
}

// Reconcile checks the invariants every allocation set must satisfy before
// it is persisted.
func Reconcile(tender *model.Tender, allocations []*model.LineItemTender) error {
	if len(allocations) == 0 {
		return nil
	}
	var sum int64
	for _, a := range allocations {
		if a.AppliedPretax+a.AppliedTax != a.AppliedTotal {
			return fmt.Errorf("%w: pretax %d + tax %d != total %d", ErrReconciliation, a.AppliedPretax, a.AppliedTax, a.AppliedTotal)
		}
		sum += a.AppliedTotal
	}
	if sum != tender.Amount {
		return fmt.Errorf("%w: applied %d, tender %d", ErrReconciliation, sum, tender.Amount)
	}
	return nil
}

// AllocateTransaction fills Allocations on every tender of tx.
func AllocateTransaction(tx *model.Transaction) error {
	for _, tender := range tx.Tenders {
		tender.Allocations = Allocate(tx.LineItems, tender)
		if err := Reconcile(tender, tender.Allocations); err != nil {
			return err
		}
	}
	return nil
}
