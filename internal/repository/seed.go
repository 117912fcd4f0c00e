package repository

import (
	"context"
	"errors"
	"time"

	"github.com/nimasrn/pos-ledger/internal/model"
	"github.com/nimasrn/pos-ledger/pkg/logger"
	"github.com/nimasrn/pos-ledger/pkg/pg"
)

// SeedRateEffectiveFrom opens the rate history of every seeded location.
var SeedRateEffectiveFrom = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

var seedLocations = []model.Location{
	{Name: "Lake Charles", Code: "lake_charles", CurrentTaxRate: 1075},
	{Name: "Jennings", Code: "jennings", CurrentTaxRate: 1075},
	{Name: "Lafayette", Code: "lafayette", CurrentTaxRate: 1075},
}

var seedCategories = []model.SalesCategory{
	{Name: "new_appliance", TaxDefault: true, Active: true},
	{Name: "used_appliance", TaxDefault: true, Active: true},
	{Name: "parts", TaxDefault: true, Active: true},
	{Name: "labor", TaxDefault: true, Active: true},
	{Name: "diagnostic_fee", TaxDefault: true, Active: true},
	{Name: "in_shop_repair", TaxDefault: true, Active: true},
	{Name: "delivery", TaxDefault: true, Active: true},
	{Name: "extended_warranty", TaxDefault: false, Active: true},
	{Name: "ebay_sale", TaxDefault: false, Active: true},
}

var seedPaymentTypes = []model.PaymentType{
	{Name: "cash", Taxable: true, Active: true},
	{Name: "check", Taxable: true, Active: true},
	{Name: "card", Taxable: true, Active: true},
	{Name: "ebay_payment", Taxable: false, Active: true},
	{Name: "stripe_payment", Taxable: false, Active: true},
	{Name: "acima", Taxable: false, Active: true},
	{Name: "tower_loan", Taxable: true, Active: true},
	{Name: "snap", Taxable: true, Active: true},
}

type SeedResult struct {
	Locations    int
	Categories   int
	PaymentTypes int
}

// Seed loads the reference data. Rows that already exist are skipped, so
// running it twice is harmless. Each insert runs on its own: a unique
// violation would abort a surrounding Postgres transaction.
func Seed(ctx context.Context, db *pg.DB) (*SeedResult, error) {
	locations := NewLocationRepository(db)
	refs := NewReferenceRepository(db)
	res := &SeedResult{}

	for i := range seedLocations {
		loc, err := locations.Create(ctx, &seedLocations[i])
		if errors.Is(err, ErrDuplicateReference) {
			continue
		}
		if err != nil {
			return res, err
		}
		if _, err := locations.CreateTaxRate(ctx, &model.TaxRate{
			LocationID:    loc.ID,
			Rate:          loc.CurrentTaxRate,
			EffectiveFrom: SeedRateEffectiveFrom,
		}); err != nil {
			return res, err
		}
		res.Locations++
	}

	for i := range seedCategories {
		_, err := refs.CreateSalesCategory(ctx, &seedCategories[i])
		if errors.Is(err, ErrDuplicateReference) {
			continue
		}
		if err != nil {
			return res, err
		}
		res.Categories++
	}

	for i := range seedPaymentTypes {
		_, err := refs.CreatePaymentType(ctx, &seedPaymentTypes[i])
		if errors.Is(err, ErrDuplicateReference) {
			continue
		}
		if err != nil {
			return res, err
		}
		res.PaymentTypes++
	}

	logger.Info("reference data seeded", "locations", res.Locations, "categories", res.Categories, "payment_types", res.PaymentTypes)
	return res, nil
}
