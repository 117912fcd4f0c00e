// Package tax decides whether a sale is taxable and computes line item tax.
// Everything here is pure: the result is frozen onto the line item by the
// caller and never re-derived from reference data later.
package tax

import (
	"strings"

	"github.com/nimasrn/pos-ledger/internal/model"
	"github.com/nimasrn/pos-ledger/pkg/logger"
)

var categoryTaxable = map[string]bool{
	"new_appliance":     true,
	"used_appliance":    true,
	"parts":             true,
	"labor":             true,
	"diagnostic_fee":    true,
	"in_shop_repair":    true,
	"delivery":          true,
	"extended_warranty": false,
	"ebay_sale":         false,
}

// Override forces taxability of one category at one location.
type Override struct {
	Location string
	Category string
	Taxable  bool
}

// Payment types that make an otherwise taxable sale exempt. Other payment
// types flagged non-taxable in reference data (marketplace payouts) do not.
var exemptPayments = map[string]bool{
	"acima": true,
}

var defaultOverrides = []Override{
	{Location: "jennings", Category: "extended_warranty", Taxable: true},
}

type Resolver struct {
	overrides []Override
}

// NewResolver copies overrides; later rules win over earlier ones.
func NewResolver(overrides ...Override) *Resolver {
	rules := make([]Override, 0, len(overrides))
	for _, o := range overrides {
		rules = append(rules, Override{
			Location: Normalize(o.Location),
			Category: Normalize(o.Category),
			Taxable:  o.Taxable,
		})
	}
	return &Resolver{overrides: rules}
}

func DefaultResolver() *Resolver {
	return NewResolver(defaultOverrides...)
}

func Normalize(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "_")
}

// Resolve applies the category table and then the location overrides.
// location may be empty.
func (r *Resolver) Resolve(category string, location string) (bool, model.TaxabilitySource) {
	cat := Normalize(category)
	taxable, known := categoryTaxable[cat]
	if !known {
		logger.Warn("unknown sales category, treating as non-taxable", "category", category)
	}
	source := model.SourceProductDefault

	if location != "" {
		loc := Normalize(location)
		for _, o := range r.overrides {
			if o.Location == loc && o.Category == cat {
				taxable = o.Taxable
				source = model.SourceLocationOverride
			}
		}
	}
	return taxable, source
}

// ResolveWithPayment additionally lets lease to own financing clear
// taxability.
func (r *Resolver) ResolveWithPayment(category, location string, payments []model.PaymentType) (bool, model.TaxabilitySource) {
	taxable, source := r.Resolve(category, location)
	if !taxable {
		return taxable, source
	}
	for _, p := range payments {
		if exemptPayments[Normalize(p.Name)] {
			return false, model.SourcePaymentType
		}
	}
	return taxable, source
}

// Manual wraps a caller supplied decision.
func Manual(taxable bool) (bool, model.TaxabilitySource) {
	return taxable, model.SourceManualOverride
}
