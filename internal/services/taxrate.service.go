package services

import (
	"context"
	"time"

	"github.com/nimasrn/pos-ledger/internal/model"
	"github.com/nimasrn/pos-ledger/internal/repository"
	"github.com/nimasrn/pos-ledger/pkg/apperror"
	"github.com/nimasrn/pos-ledger/pkg/bizdate"
	"github.com/nimasrn/pos-ledger/pkg/logger"
	"github.com/nimasrn/pos-ledger/pkg/prom"
)

// TaxRateService maintains the per-location rate history. Tickets read the
// history through LocationRepository.RateAt, so a change only affects tickets
// dated on or after its effective date.
type TaxRateService struct {
	db        Transactor
	locations LocationRepository
	dates     *bizdate.Resolver
	cache     ReportCache
}

func NewTaxRateService(db Transactor, locations LocationRepository, dates *bizdate.Resolver, cache ReportCache) *TaxRateService {
	return &TaxRateService{
		db:        db,
		locations: locations,
		dates:     dates,
		cache:     cache,
	}
}

// SetRate starts a new open-ended period at effectiveFrom. The open period
// that began earlier is closed the day before; any period reaching into the
// new one is a conflict.
func (s *TaxRateService) SetRate(ctx context.Context, locationID int64, rate model.Rate, effectiveFrom time.Time) (*model.TaxRate, error) {
	if !rate.Valid() {
		return nil, apperror.Newf(apperror.CodeValidation, "tax rate %s is out of range", rate)
	}
	if effectiveFrom.IsZero() {
		return nil, apperror.Validation("effective_from is required")
	}
	from := bizdate.Truncate(effectiveFrom)

	var created *model.TaxRate
	err := s.db.WithinTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.locations.GetForUpdate(ctx, locationID); err != nil {
			return mapError(err, locationID)
		}
		periods, err := s.locations.ListTaxRates(ctx, locationID)
		if err != nil {
			return mapError(err, locationID)
		}

		for _, p := range periods {
			if p.EffectiveTo == nil && p.EffectiveFrom.Before(from) {
				closeAt := from.AddDate(0, 0, -1)
				if err := s.locations.CloseTaxRate(ctx, p.ID, closeAt); err != nil {
					return mapError(err, p.ID)
				}
				p.EffectiveTo = &closeAt
			}
			if p.EffectiveTo == nil || !p.EffectiveTo.Before(from) {
				prom.IncConflict("tax_rate_overlap")
				return apperror.Wrap(apperror.CodeConflict, repository.ErrTaxRateOverlap, "tax rate period overlaps an existing one").
					WithDetails("location_id", locationID, "tax_rate_id", p.ID, "effective_from", from.Format(bizdate.DateLayout))
			}
		}

		created, err = s.locations.CreateTaxRate(ctx, &model.TaxRate{
			LocationID:    locationID,
			Rate:          rate,
			EffectiveFrom: from,
		})
		if err != nil {
			return mapError(err, locationID)
		}
		if from.After(s.dates.Today()) {
			return nil
		}
		return mapError(s.locations.UpdateCurrentTaxRate(ctx, locationID, rate), locationID)
	})
	if err != nil {
		return nil, err
	}

	invalidate(ctx, s.cache)
	logger.Info("tax rate set",
		"location_id", locationID,
		"rate", rate.String(),
		"effective_from", from.Format(bizdate.DateLayout),
	)
	return created, nil
}

func (s *TaxRateService) History(ctx context.Context, locationID int64) ([]*model.TaxRate, error) {
	if _, err := s.locations.Get(ctx, locationID); err != nil {
		return nil, mapError(err, locationID)
	}
	periods, err := s.locations.ListTaxRates(ctx, locationID)
	if err != nil {
		return nil, mapError(err, locationID)
	}
	return periods, nil
}
