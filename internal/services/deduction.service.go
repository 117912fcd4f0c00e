package services

import (
	"context"

	"github.com/nimasrn/pos-ledger/internal/model"
	"github.com/nimasrn/pos-ledger/pkg/apperror"
	"github.com/nimasrn/pos-ledger/pkg/bizdate"
	"github.com/nimasrn/pos-ledger/pkg/logger"
)

type DeductionService struct {
	db         Transactor
	deductions DeductionRepository
	refs       ReferenceRepository
	cache      ReportCache
}

func NewDeductionService(db Transactor, deductions DeductionRepository, refs ReferenceRepository, cache ReportCache) *DeductionService {
	return &DeductionService{
		db:         db,
		deductions: deductions,
		refs:       refs,
		cache:      cache,
	}
}

func (s *DeductionService) Create(ctx context.Context, req model.DeductionRequest) (*model.Deduction, error) {
	if err := req.Validate(); err != nil {
		return nil, apperror.Validation(err.Error())
	}

	var created *model.Deduction
	err := s.db.WithinTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.refs.GetUser(ctx, req.UserID); err != nil {
			return mapError(err, req.UserID)
		}
		var err error
		created, err = s.deductions.Create(ctx, &model.Deduction{
			UserID: req.UserID,
			Amount: req.Amount,
			Reason: req.Reason,
			Date:   bizdate.Truncate(req.Date),
		})
		return mapError(err, req.UserID)
	})
	if err != nil {
		return nil, err
	}

	invalidate(ctx, s.cache)
	logger.Info("deduction created", "deduction_id", created.ID, "user_id", created.UserID, "amount", created.Amount)
	return created, nil
}

// Update replaces every field of the deduction with the request.
func (s *DeductionService) Update(ctx context.Context, id int64, req model.DeductionRequest) (*model.Deduction, error) {
	if err := req.Validate(); err != nil {
		return nil, apperror.Validation(err.Error())
	}

	var d *model.Deduction
	err := s.db.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		d, err = s.deductions.Get(ctx, id)
		if err != nil {
			return mapError(err, id)
		}
		if d.UserID != req.UserID {
			if _, err := s.refs.GetUser(ctx, req.UserID); err != nil {
				return mapError(err, req.UserID)
			}
		}
		d.UserID = req.UserID
		d.Amount = req.Amount
		d.Reason = req.Reason
		d.Date = bizdate.Truncate(req.Date)
		return mapError(s.deductions.Update(ctx, d), id)
	})
	if err != nil {
		return nil, err
	}

	invalidate(ctx, s.cache)
	logger.Info("deduction updated", "deduction_id", id, "amount", d.Amount)
	return d, nil
}

func (s *DeductionService) Delete(ctx context.Context, id int64) error {
	err := s.db.WithinTransaction(ctx, func(ctx context.Context) error {
		return mapError(s.deductions.Delete(ctx, id), id)
	})
	if err != nil {
		return err
	}
	invalidate(ctx, s.cache)
	logger.Info("deduction deleted", "deduction_id", id)
	return nil
}

func (s *DeductionService) Get(ctx context.Context, id int64) (*model.Deduction, error) {
	d, err := s.deductions.Get(ctx, id)
	if err != nil {
		return nil, mapError(err, id)
	}
	return d, nil
}

func (s *DeductionService) List(ctx context.Context, f model.DeductionFilter) ([]*model.Deduction, error) {
	if f.From != nil && f.To != nil && f.To.Before(*f.From) {
		return nil, apperror.Validation("deduction filter ends before it starts")
	}
	list, err := s.deductions.List(ctx, f)
	if err != nil {
		return nil, mapError(err, nil)
	}
	return list, nil
}
