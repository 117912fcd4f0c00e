package services

import (
	"context"
	"errors"
	"time"

	"github.com/nimasrn/pos-ledger/internal/allocation"
	"github.com/nimasrn/pos-ledger/internal/events"
	"github.com/nimasrn/pos-ledger/internal/ledger"
	"github.com/nimasrn/pos-ledger/internal/model"
	"github.com/nimasrn/pos-ledger/internal/repository"
	"github.com/nimasrn/pos-ledger/internal/salesday"
	"github.com/nimasrn/pos-ledger/internal/tax"
	"github.com/nimasrn/pos-ledger/pkg/apperror"
	"github.com/nimasrn/pos-ledger/pkg/logger"
)

// Transactor runs fn in one storage transaction carried by ctx.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type TicketRepository interface {
	ExistsByNumber(ctx context.Context, number int64) (bool, error)
	Create(ctx context.Context, ticket *model.Ticket) error
	InsertTransaction(ctx context.Context, tx *model.Transaction) error
	DeleteTransaction(ctx context.Context, ticketID, transactionID int64) error
	UpdateTotals(ctx context.Context, ticket *model.Ticket) error
	Get(ctx context.Context, id int64) (*model.Ticket, error)
	GetForUpdate(ctx context.Context, id int64) (*model.Ticket, error)
	ListBySalesDay(ctx context.Context, salesDayID int64) ([]*model.Ticket, error)
}

type LocationRepository interface {
	Get(ctx context.Context, id int64) (*model.Location, error)
	GetForUpdate(ctx context.Context, id int64) (*model.Location, error)
	RateAt(ctx context.Context, locationID int64, date time.Time) (model.Rate, error)
	ListTaxRates(ctx context.Context, locationID int64) ([]*model.TaxRate, error)
	CreateTaxRate(ctx context.Context, rate *model.TaxRate) (*model.TaxRate, error)
	CloseTaxRate(ctx context.Context, id int64, effectiveTo time.Time) error
	UpdateCurrentTaxRate(ctx context.Context, id int64, rate model.Rate) error
}

type ReferenceRepository interface {
	GetUser(ctx context.Context, id int64) (*model.User, error)
	SalesCategories(ctx context.Context, ids []int64) (map[int64]*model.SalesCategory, error)
	PaymentTypes(ctx context.Context, ids []int64) (map[int64]*model.PaymentType, error)
}

type SalesDayRepository interface {
	FindOpenForUpdate(ctx context.Context, userID int64) (*model.SalesDay, error)
	Create(ctx context.Context, day *model.SalesDay) (*model.SalesDay, error)
	Get(ctx context.Context, id int64) (*model.SalesDay, error)
	GetForUpdate(ctx context.Context, id int64) (*model.SalesDay, error)
	Update(ctx context.Context, day *model.SalesDay) error
}

type DeductionRepository interface {
	Create(ctx context.Context, d *model.Deduction) (*model.Deduction, error)
	Get(ctx context.Context, id int64) (*model.Deduction, error)
	Update(ctx context.Context, d *model.Deduction) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, f model.DeductionFilter) ([]*model.Deduction, error)
}

// ReportCache is told about every committed write.
type ReportCache interface {
	Invalidate(ctx context.Context) error
}

type EventPublisher interface {
	Publish(ctx context.Context, evt events.Event) (string, error)
}

func invalidate(ctx context.Context, cache ReportCache) {
	if cache == nil {
		return
	}
	if err := cache.Invalidate(ctx); err != nil {
		logger.Warn("report cache invalidation failed", "error", err)
	}
}

var notFoundResources = []struct {
	err      error
	resource string
}{
	{repository.ErrLocationNotFound, "location"},
	{repository.ErrUserNotFound, "user"},
	{repository.ErrSalesCategoryNotFound, "sales category"},
	{repository.ErrPaymentTypeNotFound, "payment type"},
	{repository.ErrTicketNotFound, "ticket"},
	{repository.ErrTransactionNotFound, "transaction"},
	{ledger.ErrTransactionNotOnTicket, "transaction"},
	{repository.ErrSalesDayNotFound, "sales day"},
	{repository.ErrDeductionNotFound, "deduction"},
}

// mapError classifies lower layer errors into the apperror taxonomy.
// Errors already classified pass through untouched.
func mapError(err error, id any) error {
	if err == nil || apperror.As(err) != nil {
		return err
	}

	for _, nf := range notFoundResources {
		if errors.Is(err, nf.err) {
			return apperror.NotFound(nf.resource, id)
		}
	}

	switch {
	case errors.Is(err, repository.ErrDuplicateTicketNumber),
		errors.Is(err, repository.ErrOpenSalesDayExists),
		errors.Is(err, repository.ErrTaxRateOverlap),
		errors.Is(err, repository.ErrDuplicateReference):
		return apperror.Wrap(apperror.CodeConflict, err, err.Error())
	case repository.IsUniqueViolation(err):
		return apperror.Wrap(apperror.CodeConflict, err, "unique constraint violated")
	case errors.Is(err, salesday.ErrInvalidTransition),
		errors.Is(err, salesday.ErrActualCashInvalid),
		errors.Is(err, tax.ErrNegativePrice),
		errors.Is(err, tax.ErrInvalidQuantity),
		errors.Is(err, model.ErrInvalidRate):
		return apperror.Wrap(apperror.CodeValidation, err, err.Error())
	case errors.Is(err, allocation.ErrReconciliation):
		return apperror.Internal(err, "tender allocation does not reconcile")
	}
	return apperror.Internal(err, "unexpected error")
}

func isOpenDayViolation(err error) bool {
	return errors.Is(err, repository.ErrOpenSalesDayExists) || repository.IsUniqueViolation(err)
}

func isDuplicateTicket(err error) bool {
	return errors.Is(err, repository.ErrDuplicateTicketNumber)
}
