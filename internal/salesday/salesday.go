// Package salesday holds the pure rules of an operator's accounting period:
// its state machine and the cash reconciliation done at submit time.
package salesday

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nimasrn/pos-ledger/internal/model"
	"github.com/nimasrn/pos-ledger/pkg/bizdate"
)

const DefaultStartingCash int64 = 50000

var (
	ErrInvalidTransition = errors.New("invalid sales day transition")
	ErrActualCashInvalid = errors.New("actual cash must not be negative")
)

var transitions = map[model.SalesDayStatus]model.SalesDayStatus{
	model.SalesDayOpen:      model.SalesDaySubmitted,
	model.SalesDaySubmitted: model.SalesDayLocked,
}

// Transition allows open -> submitted -> locked and nothing else.
func Transition(from, to model.SalesDayStatus) error {
	if next, ok := transitions[from]; ok && next == to {
		return nil
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
}

// IsCash matches payment type names case-insensitively.
func IsCash(paymentType string) bool {
	return strings.EqualFold(strings.TrimSpace(paymentType), model.CashPaymentType)
}

// CashTendered sums cash tenders across the tickets of a day. Tenders must
// carry their payment type name.
func CashTendered(tickets []*model.Ticket) int64 {
	var sum int64
	for _, ticket := range tickets {
		for _, tx := range ticket.Transactions {
			for _, tender := range tx.Tenders {
				if IsCash(tender.PaymentType) {
					sum += tender.Amount
				}
			}
		}
	}
	return sum
}

// Submit closes an open day in place with the counted drawer amount.
func Submit(day *model.SalesDay, actualCash int64, cashTendered int64, now time.Time) error {
	if err := Transition(day.Status, model.SalesDaySubmitted); err != nil {
		return err
	}
	if actualCash < 0 {
		return ErrActualCashInvalid
	}
	expected := day.StartingCash + cashTendered
	difference := actualCash - expected
	closedAt := now

	day.Status = model.SalesDaySubmitted
	day.ExpectedCash = &expected
	day.ActualCash = &actualCash
	day.CashDifference = &difference
	day.ClosedAt = &closedAt
	return nil
}

// Recount refreshes expected_cash and cash_difference of a submitted day
// after its tickets changed. Open days have nothing to refresh.
func Recount(day *model.SalesDay, cashTendered int64) bool {
	if day.Status != model.SalesDaySubmitted || day.ActualCash == nil {
		return false
	}
	expected := day.StartingCash + cashTendered
	difference := *day.ActualCash - expected
	day.ExpectedCash = &expected
	day.CashDifference = &difference
	return true
}

func Lock(day *model.SalesDay) error {
	if err := Transition(day.Status, model.SalesDayLocked); err != nil {
		return err
	}
	day.Status = model.SalesDayLocked
	return nil
}

// Reusable reports whether an open day can take a ticket dated ticketDate
// at locationID. The day's date comes from its opened_at in business time.
func Reusable(day *model.SalesDay, locationID int64, ticketDate time.Time, dates *bizdate.Resolver) bool {
	if day == nil || day.Status != model.SalesDayOpen || day.LocationID != locationID {
		return false
	}
	return bizdate.SameDate(dates.DateOf(day.OpenedAt), ticketDate)
}
