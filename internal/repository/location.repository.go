package repository

import (
	"context"
	"time"

	"github.com/nimasrn/pos-ledger/internal/model"
	"github.com/nimasrn/pos-ledger/pkg/pg"
	"gorm.io/gorm/clause"
)

type LocationRepository struct {
	*pg.DB
}

func NewLocationRepository(db *pg.DB) *LocationRepository {
	return &LocationRepository{
		db,
	}
}

func (r *LocationRepository) Create(ctx context.Context, loc *model.Location) (*model.Location, error) {
	entity := toLocationEntity(loc)
	if err := r.Write(ctx).Create(entity).Error; err != nil {
		if IsUniqueViolation(err) {
			return nil, ErrDuplicateReference
		}
		return nil, err
	}
	return toLocationModel(entity), nil
}

func (r *LocationRepository) Get(ctx context.Context, id int64) (*model.Location, error) {
	var entity LocationEntity
	if err := r.Read(ctx).First(&entity, id).Error; err != nil {
		return nil, notFound(err, ErrLocationNotFound)
	}
	return toLocationModel(&entity), nil
}

// GetForUpdate row-locks the location; rate history writes serialise on it.
func (r *LocationRepository) GetForUpdate(ctx context.Context, id int64) (*model.Location, error) {
	var entity LocationEntity
	err := r.Write(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&entity, id).Error
	if err != nil {
		return nil, notFound(err, ErrLocationNotFound)
	}
	return toLocationModel(&entity), nil
}

func (r *LocationRepository) GetByCode(ctx context.Context, code string) (*model.Location, error) {
	var entity LocationEntity
	if err := r.Read(ctx).Where("code = ?", code).First(&entity).Error; err != nil {
		return nil, notFound(err, ErrLocationNotFound)
	}
	return toLocationModel(&entity), nil
}

// List returns all locations ordered by id, or only ids when given.
func (r *LocationRepository) List(ctx context.Context, ids ...int64) ([]*model.Location, error) {
	q := r.Read(ctx).Model(&LocationEntity{})
	if len(ids) > 0 {
		q = q.Where("id IN ?", ids)
	}
	var entities []*LocationEntity
	if err := q.Order("id").Find(&entities).Error; err != nil {
		return nil, err
	}
	return toLocationModels(entities), nil
}

func (r *LocationRepository) UpdateCurrentTaxRate(ctx context.Context, id int64, rate model.Rate) error {
	res := r.Write(ctx).Model(&LocationEntity{}).
		Where("id = ?", id).
		Update("current_tax_rate", rate)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrLocationNotFound
	}
	return nil
}

// ListTaxRates returns the location's rate history, oldest period first.
func (r *LocationRepository) ListTaxRates(ctx context.Context, locationID int64) ([]*model.TaxRate, error) {
	var entities []*TaxRateEntity
	err := r.Read(ctx).
		Where("location_id = ?", locationID).
		Order("effective_from").
		Find(&entities).Error
	if err != nil {
		return nil, err
	}
	rates := make([]*model.TaxRate, len(entities))
	for i, e := range entities {
		rates[i] = toTaxRateModel(e)
	}
	return rates, nil
}

func (r *LocationRepository) CreateTaxRate(ctx context.Context, rate *model.TaxRate) (*model.TaxRate, error) {
	entity := toTaxRateEntity(rate)
	if err := r.Write(ctx).Create(entity).Error; err != nil {
		return nil, err
	}
	return toTaxRateModel(entity), nil
}

// CloseTaxRate sets the last covered date of an open period.
func (r *LocationRepository) CloseTaxRate(ctx context.Context, id int64, effectiveTo time.Time) error {
	return r.Write(ctx).Model(&TaxRateEntity{}).
		Where("id = ?", id).
		Update("effective_to", effectiveTo).Error
}

// RateAt resolves the rate in force at the location on date. Locations
// without a matching history period fall back to their cached current rate.
func (r *LocationRepository) RateAt(ctx context.Context, locationID int64, date time.Time) (model.Rate, error) {
	var entity TaxRateEntity
	err := r.Read(ctx).
		Where("location_id = ? AND effective_from <= ?", locationID, date).
		Where("(effective_to IS NULL OR effective_to >= ?)", date).
		Order("effective_from DESC").
		Limit(1).
		Find(&entity).Error
	if err != nil {
		return 0, err
	}
	if entity.ID != 0 {
		return entity.Rate, nil
	}

	loc, err := r.Get(ctx, locationID)
	if err != nil {
		return 0, err
	}
	return loc.CurrentTaxRate, nil
}
