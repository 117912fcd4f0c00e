package services

import (
	"context"
	"time"

	"github.com/nimasrn/pos-ledger/internal/ledger"
	"github.com/nimasrn/pos-ledger/internal/model"
	"github.com/nimasrn/pos-ledger/internal/tax"
	"github.com/nimasrn/pos-ledger/pkg/apperror"
	"github.com/nimasrn/pos-ledger/pkg/bizdate"
	"github.com/nimasrn/pos-ledger/pkg/logger"
	"github.com/nimasrn/pos-ledger/pkg/prom"
)

// TicketService owns every write to the ticket aggregate. Each operation
// computes the whole aggregate in memory first and persists it in a single
// transaction.
type TicketService struct {
	db        Transactor
	tickets   TicketRepository
	locations LocationRepository
	refs      ReferenceRepository
	salesDays *SalesDayService
	resolver  *tax.Resolver
	dates     *bizdate.Resolver
	guard     *SubmitGuard
	cache     ReportCache
}

func NewTicketService(db Transactor, tickets TicketRepository, locations LocationRepository, refs ReferenceRepository, salesDays *SalesDayService, resolver *tax.Resolver, dates *bizdate.Resolver, guard *SubmitGuard, cache ReportCache) *TicketService {
	if resolver == nil {
		resolver = tax.DefaultResolver()
	}
	return &TicketService{
		db:        db,
		tickets:   tickets,
		locations: locations,
		refs:      refs,
		salesDays: salesDays,
		resolver:  resolver,
		dates:     dates,
		guard:     guard,
		cache:     cache,
	}
}

// CreateTicket records a new ticket with its first transaction and attaches
// it to the user's sales day for the ticket date.
func (s *TicketService) CreateTicket(ctx context.Context, req model.TicketCreateRequest) (*model.Ticket, error) {
	if err := req.Validate(); err != nil {
		return nil, apperror.Validation(err.Error())
	}
	if len(req.LineItems) == 0 {
		return nil, apperror.Validation("line_items must not be empty")
	}
	ticketDate := bizdate.Truncate(req.Date)

	release, err := s.guard.Acquire(ctx, req.TicketNumber)
	if err != nil {
		return nil, err
	}
	defer release()

	var (
		ticket *model.Ticket
		loc    *model.Location
	)
	err = s.db.WithinTransaction(ctx, func(ctx context.Context) error {
		exists, err := s.tickets.ExistsByNumber(ctx, req.TicketNumber)
		if err != nil {
			return mapError(err, req.TicketNumber)
		}
		if exists {
			return duplicateTicket(req.TicketNumber)
		}

		loc, err = s.locations.Get(ctx, req.LocationID)
		if err != nil {
			return mapError(err, req.LocationID)
		}
		if _, err := s.refs.GetUser(ctx, req.UserID); err != nil {
			return mapError(err, req.UserID)
		}

		tx, err := s.buildTransaction(ctx, loc, req.UserID, ticketDate, req.TransactionType, req.LineItems, req.Tenders, req.ApplyPaymentTaxRules)
		if err != nil {
			return err
		}

		day, err := s.salesDays.ResolveForTicket(ctx, req.UserID, loc.ID, ticketDate)
		if err != nil {
			return err
		}

		ticket = &model.Ticket{
			TicketNumber: req.TicketNumber,
			TicketDate:   ticketDate,
			LocationID:   loc.ID,
			UserID:       req.UserID,
			SalesDayID:   day.ID,
			Transactions: []*model.Transaction{tx},
		}
		if err := ledger.Finalize(ticket); err != nil {
			return mapError(err, req.TicketNumber)
		}

		if err := s.tickets.Create(ctx, ticket); err != nil {
			if isDuplicateTicket(err) {
				return duplicateTicket(req.TicketNumber)
			}
			return mapError(err, req.TicketNumber)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	prom.IncTicketCreated(loc.Code)
	invalidate(ctx, s.cache)
	logger.Info("ticket created",
		"ticket_id", ticket.ID,
		"ticket_number", ticket.TicketNumber,
		"user_id", ticket.UserID,
		"location", loc.Code,
		"total", ticket.Total,
		"balance_owed", ticket.BalanceOwed(),
	)
	return ticket, nil
}

// AddTransaction posts another sale, return or adjustment to an existing
// ticket and recomputes its rollups.
func (s *TicketService) AddTransaction(ctx context.Context, req model.TransactionCreateRequest) (*model.Ticket, error) {
	if err := req.Validate(); err != nil {
		return nil, apperror.Validation(err.Error())
	}
	if len(req.LineItems) == 0 && len(req.Tenders) == 0 {
		return nil, apperror.Validation("transaction needs line items or tenders")
	}

	var ticket *model.Ticket
	err := s.db.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		ticket, err = s.tickets.GetForUpdate(ctx, req.TicketID)
		if err != nil {
			return mapError(err, req.TicketID)
		}
		day, err := s.salesDays.ensureWritable(ctx, ticket.SalesDayID)
		if err != nil {
			return err
		}

		loc, err := s.locations.Get(ctx, req.LocationID)
		if err != nil {
			return mapError(err, req.LocationID)
		}
		if _, err := s.refs.GetUser(ctx, req.UserID); err != nil {
			return mapError(err, req.UserID)
		}

		postedAt := s.dates.Today()
		if !req.PostedAt.IsZero() {
			postedAt = bizdate.Truncate(req.PostedAt)
		}

		tx, err := s.buildTransaction(ctx, loc, req.UserID, postedAt, req.TransactionType, req.LineItems, req.Tenders, req.ApplyPaymentTaxRules)
		if err != nil {
			return err
		}
		if err := ledger.AddTransaction(ticket, tx); err != nil {
			return mapError(err, req.TicketID)
		}
		if err := s.tickets.InsertTransaction(ctx, tx); err != nil {
			return mapError(err, req.TicketID)
		}
		if err := s.tickets.UpdateTotals(ctx, ticket); err != nil {
			return mapError(err, req.TicketID)
		}
		return s.salesDays.recount(ctx, day)
	})
	if err != nil {
		return nil, err
	}

	invalidate(ctx, s.cache)
	logger.Info("transaction added", "ticket_id", ticket.ID, "type", req.TransactionType, "total", ticket.Total)
	return ticket, nil
}

// RemoveTransaction deletes a transaction with everything it owns and
// recomputes the ticket.
func (s *TicketService) RemoveTransaction(ctx context.Context, ticketID, transactionID int64) (*model.Ticket, error) {
	var ticket *model.Ticket
	err := s.db.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		ticket, err = s.tickets.GetForUpdate(ctx, ticketID)
		if err != nil {
			return mapError(err, ticketID)
		}
		day, err := s.salesDays.ensureWritable(ctx, ticket.SalesDayID)
		if err != nil {
			return err
		}
		if _, err := ledger.RemoveTransaction(ticket, transactionID); err != nil {
			return mapError(err, transactionID)
		}
		if err := s.tickets.DeleteTransaction(ctx, ticketID, transactionID); err != nil {
			return mapError(err, transactionID)
		}
		if err := s.tickets.UpdateTotals(ctx, ticket); err != nil {
			return mapError(err, ticketID)
		}
		return s.salesDays.recount(ctx, day)
	})
	if err != nil {
		return nil, err
	}

	invalidate(ctx, s.cache)
	logger.Info("transaction removed", "ticket_id", ticketID, "transaction_id", transactionID, "total", ticket.Total)
	return ticket, nil
}

func (s *TicketService) GetTicket(ctx context.Context, id int64) (*model.Ticket, error) {
	ticket, err := s.tickets.Get(ctx, id)
	if err != nil {
		return nil, mapError(err, id)
	}
	return ticket, nil
}

// buildTransaction resolves references and taxability for a request and
// returns an unsaved transaction ready to be finalized. The rate is the one
// in force at the location on postedAt and is frozen onto every line.
func (s *TicketService) buildTransaction(ctx context.Context, loc *model.Location, userID int64, postedAt time.Time, typ model.TransactionType, lines []model.LineItemRequest, tenders []model.TenderRequest, applyPaymentRules bool) (*model.Transaction, error) {
	rate, err := s.locations.RateAt(ctx, loc.ID, postedAt)
	if err != nil {
		return nil, mapError(err, loc.ID)
	}

	tx := &model.Transaction{
		UserID:          userID,
		LocationID:      loc.ID,
		TransactionType: typ,
		PostedAt:        postedAt,
		LineItems:       make([]*model.LineItem, 0, len(lines)),
		Tenders:         make([]*model.Tender, 0, len(tenders)),
	}

	var payments []model.PaymentType
	if len(tenders) > 0 {
		ids := make([]int64, len(tenders))
		for i, t := range tenders {
			ids[i] = t.PaymentTypeID
		}
		paymentTypes, err := s.refs.PaymentTypes(ctx, ids)
		if err != nil {
			return nil, mapError(err, ids)
		}
		for i, t := range tenders {
			pt := paymentTypes[t.PaymentTypeID]
			if !pt.Active {
				return nil, apperror.Newf(apperror.CodeValidation, "payment type %s is inactive", pt.Name)
			}
			payments = append(payments, *pt)
			tx.Tenders = append(tx.Tenders, &model.Tender{
				PaymentTypeID: pt.ID,
				PaymentType:   pt.Name,
				Position:      i,
				Amount:        t.Amount,
			})
		}
	}

	if len(lines) > 0 {
		ids := make([]int64, len(lines))
		for i, l := range lines {
			ids[i] = l.SalesCategoryID
		}
		categories, err := s.refs.SalesCategories(ctx, ids)
		if err != nil {
			return nil, mapError(err, ids)
		}
		for i, l := range lines {
			cat := categories[l.SalesCategoryID]
			if !cat.Active {
				return nil, apperror.Newf(apperror.CodeValidation, "sales category %s is inactive", cat.Name)
			}
			taxable, source := s.taxability(cat.Name, loc.Code, l.TaxableOverride, applyPaymentRules, payments)
			tx.LineItems = append(tx.LineItems, &model.LineItem{
				SalesCategoryID:  cat.ID,
				SalesCategory:    cat.Name,
				Position:         i,
				UnitPrice:        l.UnitPrice,
				Quantity:         l.Quantity,
				Taxable:          taxable,
				TaxabilitySource: source,
				TaxRate:          rate,
			})
		}
	}
	return tx, nil
}

func (s *TicketService) taxability(category, location string, override *bool, applyPaymentRules bool, payments []model.PaymentType) (bool, model.TaxabilitySource) {
	switch {
	case override != nil:
		return tax.Manual(*override)
	case applyPaymentRules:
		return s.resolver.ResolveWithPayment(category, location, payments)
	default:
		return s.resolver.Resolve(category, location)
	}
}

func duplicateTicket(number int64) error {
	prom.IncConflict("duplicate_ticket_number")
	return apperror.Newf(apperror.CodeConflict, "ticket number %d already exists", number).
		WithDetails("ticket_number", number)
}
