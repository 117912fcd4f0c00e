package services

import (
	"context"
	"strconv"
	"time"

	"github.com/nimasrn/pos-ledger/internal/events"
	"github.com/nimasrn/pos-ledger/internal/model"
	"github.com/nimasrn/pos-ledger/internal/salesday"
	"github.com/nimasrn/pos-ledger/pkg/apperror"
	"github.com/nimasrn/pos-ledger/pkg/bizdate"
	"github.com/nimasrn/pos-ledger/pkg/logger"
	"github.com/nimasrn/pos-ledger/pkg/prom"
)

const openDayConflictMessage = "user already has an open sales day"

// SalesDayService guards the one-open-day-per-user rule. The check runs
// under a row lock inside the caller's transaction and the partial unique
// index on sales_days catches whatever slips past it.
type SalesDayService struct {
	db           Transactor
	days         SalesDayRepository
	tickets      TicketRepository
	locations    LocationRepository
	refs         ReferenceRepository
	dates        *bizdate.Resolver
	startingCash int64
	publisher    EventPublisher
	cache        ReportCache
}

func NewSalesDayService(db Transactor, days SalesDayRepository, tickets TicketRepository, locations LocationRepository, refs ReferenceRepository, dates *bizdate.Resolver, startingCash int64, publisher EventPublisher, cache ReportCache) *SalesDayService {
	if startingCash < 0 {
		startingCash = salesday.DefaultStartingCash
	}
	return &SalesDayService{
		db:           db,
		days:         days,
		tickets:      tickets,
		locations:    locations,
		refs:         refs,
		dates:        dates,
		startingCash: startingCash,
		publisher:    publisher,
		cache:        cache,
	}
}

func openDayConflict(existing *model.SalesDay) error {
	prom.IncConflict("open_sales_day")
	e := apperror.Conflict(openDayConflictMessage)
	if existing != nil {
		e = e.WithDetails("sales_day_id", existing.ID, "location_id", existing.LocationID)
	}
	return e
}

// ResolveForTicket returns the open day a ticket dated ticketDate at
// locationID belongs to, creating it when the user has none. It joins the
// caller's transaction when there is one.
func (s *SalesDayService) ResolveForTicket(ctx context.Context, userID, locationID int64, ticketDate time.Time) (*model.SalesDay, error) {
	var day *model.SalesDay
	err := s.db.WithinTransaction(ctx, func(ctx context.Context) error {
		existing, err := s.days.FindOpenForUpdate(ctx, userID)
		if err != nil {
			return mapError(err, userID)
		}
		if existing != nil {
			if salesday.Reusable(existing, locationID, ticketDate, s.dates) {
				day = existing
				return nil
			}
			return openDayConflict(existing)
		}

		created, err := s.days.Create(ctx, &model.SalesDay{
			UserID:       userID,
			LocationID:   locationID,
			OpenedAt:     s.openedAt(ticketDate),
			Status:       model.SalesDayOpen,
			StartingCash: s.startingCash,
		})
		if err != nil {
			if isOpenDayViolation(err) {
				return openDayConflict(nil)
			}
			return mapError(err, userID)
		}
		logger.Info("sales day opened", "sales_day_id", created.ID, "user_id", userID, "location_id", locationID)
		day = created
		return nil
	})
	if err != nil {
		return nil, err
	}
	return day, nil
}

// openedAt stamps a new day. Back-dated tickets open their day at midnight
// of the ticket's business date so later tickets of that date still match.
func (s *SalesDayService) openedAt(ticketDate time.Time) time.Time {
	now := s.dates.Now()
	if bizdate.SameDate(s.dates.DateOf(now), ticketDate) {
		return now.UTC()
	}
	return time.Date(ticketDate.Year(), ticketDate.Month(), ticketDate.Day(), 0, 0, 0, 0, s.dates.Location()).UTC()
}

// Open explicitly starts a day for the user at the location. A nil
// startingCash takes the configured default.
func (s *SalesDayService) Open(ctx context.Context, userID, locationID int64, startingCash *int64) (*model.SalesDay, error) {
	cash := s.startingCash
	if startingCash != nil {
		if *startingCash < 0 {
			return nil, apperror.Validation("starting cash must not be negative")
		}
		cash = *startingCash
	}

	var day *model.SalesDay
	err := s.db.WithinTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.refs.GetUser(ctx, userID); err != nil {
			return mapError(err, userID)
		}
		if _, err := s.locations.Get(ctx, locationID); err != nil {
			return mapError(err, locationID)
		}

		existing, err := s.days.FindOpenForUpdate(ctx, userID)
		if err != nil {
			return mapError(err, userID)
		}
		if existing != nil {
			return openDayConflict(existing)
		}

		created, err := s.days.Create(ctx, &model.SalesDay{
			UserID:       userID,
			LocationID:   locationID,
			OpenedAt:     s.dates.Now().UTC(),
			Status:       model.SalesDayOpen,
			StartingCash: cash,
		})
		if err != nil {
			if isOpenDayViolation(err) {
				return openDayConflict(nil)
			}
			return mapError(err, userID)
		}
		day = created
		return nil
	})
	if err != nil {
		return nil, err
	}
	logger.Info("sales day opened", "sales_day_id", day.ID, "user_id", userID, "location_id", locationID, "starting_cash", cash)
	return day, nil
}

// Submit closes an open day with the counted drawer and publishes
// sales_day.submitted once the close has committed.
func (s *SalesDayService) Submit(ctx context.Context, id int64, actualCash int64) (*model.SalesDay, error) {
	if actualCash < 0 {
		return nil, apperror.Validation("actual cash must not be negative")
	}

	var (
		day *model.SalesDay
		loc *model.Location
	)
	err := s.db.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		day, err = s.days.GetForUpdate(ctx, id)
		if err != nil {
			return mapError(err, id)
		}
		tickets, err := s.tickets.ListBySalesDay(ctx, id)
		if err != nil {
			return mapError(err, id)
		}
		if err := salesday.Submit(day, actualCash, salesday.CashTendered(tickets), s.dates.Now().UTC()); err != nil {
			return mapError(err, id)
		}
		if err := s.days.Update(ctx, day); err != nil {
			return mapError(err, id)
		}
		loc, err = s.locations.Get(ctx, day.LocationID)
		return mapError(err, day.LocationID)
	})
	if err != nil {
		return nil, err
	}

	prom.AddSalesDayCashDifference(loc.Code, *day.CashDifference)
	invalidate(ctx, s.cache)
	s.publishSubmitted(ctx, day)
	logger.Info("sales day submitted",
		"sales_day_id", day.ID,
		"user_id", day.UserID,
		"expected_cash", *day.ExpectedCash,
		"actual_cash", *day.ActualCash,
		"cash_difference", *day.CashDifference,
	)
	return day, nil
}

func (s *SalesDayService) publishSubmitted(ctx context.Context, day *model.SalesDay) {
	if s.publisher == nil {
		return
	}
	evt, err := events.New(events.SalesDaySubmitted, events.SalesDaySubmittedPayload{
		SalesDayID:     day.ID,
		UserID:         day.UserID,
		LocationID:     day.LocationID,
		BusinessDate:   s.dates.DateOf(day.OpenedAt).Format(bizdate.DateLayout),
		ExpectedCash:   *day.ExpectedCash,
		ActualCash:     *day.ActualCash,
		CashDifference: *day.CashDifference,
	})
	if err == nil {
		_, err = s.publisher.Publish(ctx, evt)
	}
	if err != nil {
		logger.Error("publish sales day submitted failed", "sales_day_id", day.ID, "error", err)
	}
}

// Lock is the administrative submitted -> locked step.
func (s *SalesDayService) Lock(ctx context.Context, id int64) (*model.SalesDay, error) {
	var day *model.SalesDay
	err := s.db.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		day, err = s.days.GetForUpdate(ctx, id)
		if err != nil {
			return mapError(err, id)
		}
		if err := salesday.Lock(day); err != nil {
			return mapError(err, id)
		}
		return mapError(s.days.Update(ctx, day), id)
	})
	if err != nil {
		return nil, err
	}
	logger.Info("sales day locked", "sales_day_id", id)
	return day, nil
}

func (s *SalesDayService) Get(ctx context.Context, id int64) (*model.SalesDay, error) {
	day, err := s.days.Get(ctx, id)
	if err != nil {
		return nil, mapError(err, id)
	}
	return day, nil
}

// ensureWritable locks the day of a ticket about to change and rejects the
// change when the day is locked.
func (s *SalesDayService) ensureWritable(ctx context.Context, id int64) (*model.SalesDay, error) {
	day, err := s.days.GetForUpdate(ctx, id)
	if err != nil {
		return nil, mapError(err, id)
	}
	if day.Status == model.SalesDayLocked {
		return nil, apperror.Conflict("sales day "+strconv.FormatInt(id, 10)+" is locked").
			WithDetails("sales_day_id", id)
	}
	return day, nil
}

// recount keeps the drawer figures of a submitted day in step with its
// tickets. It must run in the same transaction as the ticket change.
func (s *SalesDayService) recount(ctx context.Context, day *model.SalesDay) error {
	if day.Status != model.SalesDaySubmitted {
		return nil
	}
	tickets, err := s.tickets.ListBySalesDay(ctx, day.ID)
	if err != nil {
		return mapError(err, day.ID)
	}
	var before int64
	if day.CashDifference != nil {
		before = *day.CashDifference
	}
	if !salesday.Recount(day, salesday.CashTendered(tickets)) {
		return nil
	}
	if err := s.days.Update(ctx, day); err != nil {
		return mapError(err, day.ID)
	}
	if before != *day.CashDifference {
		logger.Info("submitted sales day recounted",
			"sales_day_id", day.ID,
			"expected_cash", *day.ExpectedCash,
			"cash_difference", *day.CashDifference,
		)
	}
	return nil
}
