package tax

import (
	"fmt"

	"github.com/nimasrn/pos-ledger/internal/model"
)

var (
	ErrNegativePrice   = fmt.Errorf("unit price must not be negative")
	ErrInvalidQuantity = fmt.Errorf("quantity must be at least 1")
)

// ComputeLineTotal returns the tax and tax-inclusive total for a line.
// Tax is rounded half up to the cent using integer arithmetic only.
func ComputeLineTotal(unitPrice, quantity int64, taxable bool, rate model.Rate) (taxAmount int64, total int64, err error) {
	if unitPrice < 0 {
		return 0, 0, ErrNegativePrice
	}
	if quantity < 1 {
		return 0, 0, ErrInvalidQuantity
	}
	if !rate.Valid() {
		return 0, 0, model.ErrInvalidRate
	}

	pretax := unitPrice * quantity
	if taxable {
		taxAmount = ApplyRate(pretax, rate)
	}
	return taxAmount, pretax + taxAmount, nil
}

// ApplyRate is round_half_up(amount * rate). Negative amounts round half
// away from zero so a sign flip never changes the magnitude.
func ApplyRate(amount int64, rate model.Rate) int64 {
	if amount < 0 {
		return -ApplyRate(-amount, rate)
	}
	return (amount*int64(rate) + model.RateScale/2) / model.RateScale
}

// BackOutPretax splits a tax-inclusive amount: round_half_up(total / (1+rate)).
func BackOutPretax(total int64, rate model.Rate) int64 {
	if total < 0 {
		return -BackOutPretax(-total, rate)
	}
	d := model.RateScale + int64(rate)
	return (2*total*model.RateScale + d) / (2 * d)
}

// Compute recomputes a line item in place from its frozen inputs.
func Compute(li *model.LineItem) error {
	taxAmount, total, err := ComputeLineTotal(li.UnitPrice, li.Quantity, li.Taxable, li.TaxRate)
	if err != nil {
		return err
	}
	li.TaxAmount = taxAmount
	li.Total = total
	return nil
}
