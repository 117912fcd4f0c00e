package repository

import (
	"context"

	"github.com/nimasrn/pos-ledger/internal/model"
	"github.com/nimasrn/pos-ledger/pkg/pg"
	"gorm.io/gorm/clause"
)

type SalesDayRepository struct {
	*pg.DB
}

func NewSalesDayRepository(db *pg.DB) *SalesDayRepository {
	return &SalesDayRepository{
		db,
	}
}

// FindOpenForUpdate locks and returns the user's open day at any location,
// newest first. It returns (nil, nil) when the user has none.
func (r *SalesDayRepository) FindOpenForUpdate(ctx context.Context, userID int64) (*model.SalesDay, error) {
	var entities []*SalesDayEntity
	err := r.Write(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ? AND status = ?", userID, string(model.SalesDayOpen)).
		Order("opened_at DESC, id DESC").
		Limit(1).
		Find(&entities).Error
	if err != nil {
		return nil, err
	}
	if len(entities) == 0 {
		return nil, nil
	}
	return toSalesDayModel(entities[0]), nil
}

// Create inserts a day. A second open day for the same user trips the
// partial unique index and comes back as ErrOpenSalesDayExists.
func (r *SalesDayRepository) Create(ctx context.Context, day *model.SalesDay) (*model.SalesDay, error) {
	entity := toSalesDayEntity(day)
	if err := r.Write(ctx).Create(entity).Error; err != nil {
		if IsUniqueViolation(err) {
			return nil, ErrOpenSalesDayExists
		}
		return nil, err
	}
	return toSalesDayModel(entity), nil
}

func (r *SalesDayRepository) Get(ctx context.Context, id int64) (*model.SalesDay, error) {
	var entity SalesDayEntity
	if err := r.Read(ctx).First(&entity, id).Error; err != nil {
		return nil, notFound(err, ErrSalesDayNotFound)
	}
	return toSalesDayModel(&entity), nil
}

func (r *SalesDayRepository) GetForUpdate(ctx context.Context, id int64) (*model.SalesDay, error) {
	var entity SalesDayEntity
	err := r.Write(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&entity, id).Error
	if err != nil {
		return nil, notFound(err, ErrSalesDayNotFound)
	}
	return toSalesDayModel(&entity), nil
}

// Update writes the mutable columns: status and the close figures.
func (r *SalesDayRepository) Update(ctx context.Context, day *model.SalesDay) error {
	res := r.Write(ctx).Model(&SalesDayEntity{}).Where("id = ?", day.ID).Updates(map[string]interface{}{
		"status":          string(day.Status),
		"closed_at":       day.ClosedAt,
		"expected_cash":   day.ExpectedCash,
		"actual_cash":     day.ActualCash,
		"cash_difference": day.CashDifference,
	})
	if res.Error != nil {
		if IsUniqueViolation(res.Error) {
			return ErrOpenSalesDayExists
		}
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrSalesDayNotFound
	}
	return nil
}

// ListOpen returns every open day, oldest first.
func (r *SalesDayRepository) ListOpen(ctx context.Context) ([]*model.SalesDay, error) {
	var entities []*SalesDayEntity
	err := r.Read(ctx).
		Where("status = ?", string(model.SalesDayOpen)).
		Order("opened_at").
		Find(&entities).Error
	if err != nil {
		return nil, err
	}
	days := make([]*model.SalesDay, len(entities))
	for i, e := range entities {
		days[i] = toSalesDayModel(e)
	}
	return days, nil
}
