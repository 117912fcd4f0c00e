package repository

import (
	"context"

	"github.com/nimasrn/pos-ledger/internal/model"
	"github.com/nimasrn/pos-ledger/pkg/pg"
)

type DeductionRepository struct {
	*pg.DB
}

func NewDeductionRepository(db *pg.DB) *DeductionRepository {
	return &DeductionRepository{
		db,
	}
}

func (r *DeductionRepository) Create(ctx context.Context, d *model.Deduction) (*model.Deduction, error) {
	entity := toDeductionEntity(d)
	if err := r.Write(ctx).Create(entity).Error; err != nil {
		return nil, err
	}
	return toDeductionModel(entity), nil
}

func (r *DeductionRepository) Get(ctx context.Context, id int64) (*model.Deduction, error) {
	var entity DeductionEntity
	if err := r.Read(ctx).First(&entity, id).Error; err != nil {
		return nil, notFound(err, ErrDeductionNotFound)
	}
	return toDeductionModel(&entity), nil
}

func (r *DeductionRepository) Update(ctx context.Context, d *model.Deduction) error {
	res := r.Write(ctx).Model(&DeductionEntity{}).Where("id = ?", d.ID).Updates(map[string]interface{}{
		"user_id": d.UserID,
		"amount":  d.Amount,
		"reason":  d.Reason,
		"date":    d.Date,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrDeductionNotFound
	}
	return nil
}

func (r *DeductionRepository) Delete(ctx context.Context, id int64) error {
	res := r.Write(ctx).Delete(&DeductionEntity{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrDeductionNotFound
	}
	return nil
}

// List returns deductions ordered by date then id. Date bounds are inclusive.
func (r *DeductionRepository) List(ctx context.Context, f model.DeductionFilter) ([]*model.Deduction, error) {
	q := r.Read(ctx).Model(&DeductionEntity{})
	if len(f.UserIDs) > 0 {
		q = q.Where("user_id IN ?", f.UserIDs)
	}
	if f.From != nil {
		q = q.Where("date >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("date <= ?", *f.To)
	}

	var entities []*DeductionEntity
	if err := q.Order("date, id").Find(&entities).Error; err != nil {
		return nil, err
	}
	return toDeductionModels(entities), nil
}
