package repository

import (
	"context"

	"github.com/nimasrn/pos-ledger/internal/model"
	"github.com/nimasrn/pos-ledger/pkg/pg"
)

// ReferenceRepository serves the read-mostly tables: operators, sales
// categories and payment types.
type ReferenceRepository struct {
	*pg.DB
}

func NewReferenceRepository(db *pg.DB) *ReferenceRepository {
	return &ReferenceRepository{
		db,
	}
}

func (r *ReferenceRepository) GetUser(ctx context.Context, id int64) (*model.User, error) {
	var entity UserEntity
	if err := r.Read(ctx).First(&entity, id).Error; err != nil {
		return nil, notFound(err, ErrUserNotFound)
	}
	return toUserModel(&entity), nil
}

// ListUsers returns users by id, by location, or all users when both
// filters are empty.
func (r *ReferenceRepository) ListUsers(ctx context.Context, ids []int64, locationIDs []int64) ([]*model.User, error) {
	q := r.Read(ctx).Model(&UserEntity{})
	if len(ids) > 0 {
		q = q.Where("id IN ?", ids)
	}
	if len(locationIDs) > 0 {
		q = q.Where("location_id IN ?", locationIDs)
	}
	var entities []*UserEntity
	if err := q.Order("id").Find(&entities).Error; err != nil {
		return nil, err
	}
	return toUserModels(entities), nil
}

func (r *ReferenceRepository) CreateUser(ctx context.Context, user *model.User) (*model.User, error) {
	entity := &UserEntity{
		ID:         user.ID,
		FirstName:  user.FirstName,
		LastName:   user.LastName,
		LocationID: user.LocationID,
	}
	if err := r.Write(ctx).Create(entity).Error; err != nil {
		return nil, err
	}
	return toUserModel(entity), nil
}

// SalesCategories loads the given ids keyed by id. Missing ids are
// reported as ErrSalesCategoryNotFound.
func (r *ReferenceRepository) SalesCategories(ctx context.Context, ids []int64) (map[int64]*model.SalesCategory, error) {
	var entities []*SalesCategoryEntity
	if err := r.Read(ctx).Where("id IN ?", uniqueIDs(ids)).Find(&entities).Error; err != nil {
		return nil, err
	}
	out := make(map[int64]*model.SalesCategory, len(entities))
	for _, e := range entities {
		out[e.ID] = toSalesCategoryModel(e)
	}
	for _, id := range ids {
		if _, ok := out[id]; !ok {
			return nil, ErrSalesCategoryNotFound
		}
	}
	return out, nil
}

// PaymentTypes loads the given ids keyed by id. Missing ids are reported
// as ErrPaymentTypeNotFound.
func (r *ReferenceRepository) PaymentTypes(ctx context.Context, ids []int64) (map[int64]*model.PaymentType, error) {
	var entities []*PaymentTypeEntity
	if err := r.Read(ctx).Where("id IN ?", uniqueIDs(ids)).Find(&entities).Error; err != nil {
		return nil, err
	}
	out := make(map[int64]*model.PaymentType, len(entities))
	for _, e := range entities {
		out[e.ID] = toPaymentTypeModel(e)
	}
	for _, id := range ids {
		if _, ok := out[id]; !ok {
			return nil, ErrPaymentTypeNotFound
		}
	}
	return out, nil
}

func (r *ReferenceRepository) CreateSalesCategory(ctx context.Context, c *model.SalesCategory) (*model.SalesCategory, error) {
	entity := &SalesCategoryEntity{ID: c.ID, Name: c.Name, TaxDefault: c.TaxDefault, Active: c.Active}
	if err := r.Write(ctx).Create(entity).Error; err != nil {
		if IsUniqueViolation(err) {
			return nil, ErrDuplicateReference
		}
		return nil, err
	}
	return toSalesCategoryModel(entity), nil
}

func (r *ReferenceRepository) CreatePaymentType(ctx context.Context, p *model.PaymentType) (*model.PaymentType, error) {
	entity := &PaymentTypeEntity{ID: p.ID, Name: p.Name, Taxable: p.Taxable, Active: p.Active}
	if err := r.Write(ctx).Create(entity).Error; err != nil {
		if IsUniqueViolation(err) {
			return nil, ErrDuplicateReference
		}
		return nil, err
	}
	return toPaymentTypeModel(entity), nil
}

func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
