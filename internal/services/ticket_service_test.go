package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/nimasrn/pos-ledger/internal/model"
	"github.com/nimasrn/pos-ledger/pkg/apperror"
	"github.com/nimasrn/pos-ledger/pkg/bizdate"
	"github.com/nimasrn/pos-ledger/pkg/redis"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var today = bizdate.Date(2024, time.March, 15)

func TestTicketService_CreateTicket_WorkedExample(t *testing.T) {
	f := newFixture(t)
	svc := f.ticketService(nil, nil)
	ctx := context.Background()

	ticket, err := svc.CreateTicket(ctx, saleRequest(1001, ada, lakeCharles, today,
		[]model.LineItemRequest{line(newAppliance, 9999, 1)},
		tender(cash, 11074),
	))
	require.NoError(t, err)

	require.Len(t, ticket.Transactions, 1)
	li := ticket.Transactions[0].LineItems[0]
	assert.Equal(t, int64(1075), li.TaxAmount)
	assert.Equal(t, int64(11074), li.Total)
	assert.Equal(t, model.Rate(1075), li.TaxRate)
	assert.Equal(t, model.SourceProductDefault, li.TaxabilitySource)

	assert.Equal(t, int64(9999), ticket.Subtotal)
	assert.Equal(t, int64(1075), ticket.TaxTotal)
	assert.Equal(t, int64(11074), ticket.Total)
	assert.Equal(t, int64(0), ticket.BalanceOwed())
	assert.NotZero(t, ticket.SalesDayID)

	stored, err := svc.GetTicket(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, ticket.Total, stored.Total)
	assert.Equal(t, int64(11074), stored.TotalPaid())
	require.Len(t, stored.Transactions[0].Tenders, 1)
	alloc := stored.Transactions[0].Tenders[0].Allocations
	require.Len(t, alloc, 1)
	assert.Equal(t, int64(11074), alloc[0].AppliedTotal)
	assert.Equal(t, alloc[0].AppliedTotal, alloc[0].AppliedPretax+alloc[0].AppliedTax)
}

func TestTicketService_CreateTicket_Taxability(t *testing.T) {
	f := newFixture(t)
	svc := f.ticketService(nil, nil)
	ctx := context.Background()
	no := false

	t.Run("location override", func(t *testing.T) {
		ticket, err := svc.CreateTicket(ctx, saleRequest(2001, remy, jennings, today,
			[]model.LineItemRequest{line(extendedWarranty, 5000, 1)},
		))
		require.NoError(t, err)
		li := ticket.Transactions[0].LineItems[0]
		assert.True(t, li.Taxable)
		assert.Equal(t, model.SourceLocationOverride, li.TaxabilitySource)
		assert.Equal(t, int64(500), li.TaxAmount)
		assert.Equal(t, int64(5500), ticket.BalanceOwed())
	})

	t.Run("manual override", func(t *testing.T) {
		req := saleRequest(2002, remy, jennings, today,
			[]model.LineItemRequest{{SalesCategoryID: newAppliance, UnitPrice: 10000, Quantity: 1, TaxableOverride: &no}},
		)
		ticket, err := svc.CreateTicket(ctx, req)
		require.NoError(t, err)
		li := ticket.Transactions[0].LineItems[0]
		assert.False(t, li.Taxable)
		assert.Equal(t, model.SourceManualOverride, li.TaxabilitySource)
		assert.Equal(t, int64(10000), li.Total)
	})

	t.Run("lease to own payment", func(t *testing.T) {
		req := saleRequest(2003, remy, jennings, today,
			[]model.LineItemRequest{line(newAppliance, 10000, 1)},
			tender(leasing, 10000),
		)
		req.ApplyPaymentTaxRules = true
		ticket, err := svc.CreateTicket(ctx, req)
		require.NoError(t, err)
		li := ticket.Transactions[0].LineItems[0]
		assert.False(t, li.Taxable)
		assert.Equal(t, model.SourcePaymentType, li.TaxabilitySource)
		assert.Equal(t, int64(0), ticket.BalanceOwed())
	})

	t.Run("payment rules off", func(t *testing.T) {
		ticket, err := svc.CreateTicket(ctx, saleRequest(2004, remy, jennings, today,
			[]model.LineItemRequest{line(newAppliance, 10000, 1)},
			tender(leasing, 10000),
		))
		require.NoError(t, err)
		assert.True(t, ticket.Transactions[0].LineItems[0].Taxable)
		assert.Equal(t, int64(1000), ticket.BalanceOwed())
	})
}

func TestTicketService_CreateTicket_SplitTender(t *testing.T) {
	f := newFixture(t)
	svc := f.ticketService(nil, nil)

	ticket, err := svc.CreateTicket(context.Background(), saleRequest(3001, ada, lakeCharles, today,
		[]model.LineItemRequest{line(newAppliance, 10000, 1), line(extendedWarranty, 5000, 1)},
		tender(cash, 10000), tender(card, 6075),
	))
	require.NoError(t, err)
	assert.Equal(t, int64(16075), ticket.Total)
	assert.Equal(t, int64(0), ticket.BalanceOwed())

	for _, tn := range ticket.Transactions[0].Tenders {
		var sum int64
		for _, a := range tn.Allocations {
			sum += a.AppliedTotal
			assert.Equal(t, a.AppliedTotal, a.AppliedPretax+a.AppliedTax)
		}
		assert.Equal(t, tn.Amount, sum, "tender %s", tn.PaymentType)
	}
}

func TestTicketService_CreateTicket_Errors(t *testing.T) {
	f := newFixture(t)
	svc := f.ticketService(nil, nil)
	ctx := context.Background()

	_, err := svc.CreateTicket(ctx, saleRequest(4000, ada, lakeCharles, today,
		[]model.LineItemRequest{line(newAppliance, 100, 1)},
	))
	require.NoError(t, err)

	tests := []struct {
		name string
		req  model.TicketCreateRequest
		code apperror.Code
	}{
		{"no line items", saleRequest(4001, ada, lakeCharles, today, nil), apperror.CodeValidation},
		{"zero quantity", saleRequest(4002, ada, lakeCharles, today, []model.LineItemRequest{line(newAppliance, 100, 0)}), apperror.CodeValidation},
		{"negative price", saleRequest(4003, ada, lakeCharles, today, []model.LineItemRequest{line(newAppliance, -1, 1)}), apperror.CodeValidation},
		{"zero tender", saleRequest(4004, ada, lakeCharles, today, []model.LineItemRequest{line(newAppliance, 100, 1)}, tender(cash, 0)), apperror.CodeValidation},
		{"inactive category", saleRequest(4005, ada, lakeCharles, today, []model.LineItemRequest{line(inactiveParts, 100, 1)}), apperror.CodeValidation},
		{"unknown category", saleRequest(4006, ada, lakeCharles, today, []model.LineItemRequest{line(99, 100, 1)}), apperror.CodeNotFound},
		{"unknown payment type", saleRequest(4007, ada, lakeCharles, today, []model.LineItemRequest{line(newAppliance, 100, 1)}, tender(99, 100)), apperror.CodeNotFound},
		{"unknown location", saleRequest(4008, ada, 99, today, []model.LineItemRequest{line(newAppliance, 100, 1)}), apperror.CodeNotFound},
		{"unknown user", saleRequest(4009, 99, lakeCharles, today, []model.LineItemRequest{line(newAppliance, 100, 1)}), apperror.CodeNotFound},
		{"duplicate number", saleRequest(4000, ada, lakeCharles, today, []model.LineItemRequest{line(newAppliance, 100, 1)}), apperror.CodeConflict},
		{"open day elsewhere", saleRequest(4010, ada, jennings, today, []model.LineItemRequest{line(newAppliance, 100, 1)}), apperror.CodeConflict},
		{"open day other date", saleRequest(4011, ada, lakeCharles, today.AddDate(0, 0, -1), []model.LineItemRequest{line(newAppliance, 100, 1)}), apperror.CodeConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateTicket(ctx, tt.req)
			requireCode(t, err, tt.code)
		})
	}

	var count int64
	require.NoError(t, f.raw.Table("tickets").Count(&count).Error)
	assert.Equal(t, int64(1), count, "failed submits must not leave rows behind")
}

func TestTicketService_SalesDayReuse(t *testing.T) {
	f := newFixture(t)
	svc := f.ticketService(nil, nil)
	ctx := context.Background()
	lines := []model.LineItemRequest{line(newAppliance, 1000, 1)}

	first, err := svc.CreateTicket(ctx, saleRequest(5001, ada, lakeCharles, today, lines))
	require.NoError(t, err)
	second, err := svc.CreateTicket(ctx, saleRequest(5002, ada, lakeCharles, today, lines))
	require.NoError(t, err)
	assert.Equal(t, first.SalesDayID, second.SalesDayID)

	// A back-dated first ticket opens its day at midnight of that date.
	yesterday := today.AddDate(0, 0, -1)
	backdated, err := svc.CreateTicket(ctx, saleRequest(5003, remy, jennings, yesterday, lines))
	require.NoError(t, err)
	day, err := f.days.Get(ctx, backdated.SalesDayID)
	require.NoError(t, err)
	assert.True(t, bizdate.SameDate(f.dates.DateOf(day.OpenedAt), yesterday))

	again, err := svc.CreateTicket(ctx, saleRequest(5004, remy, jennings, yesterday, lines))
	require.NoError(t, err)
	assert.Equal(t, backdated.SalesDayID, again.SalesDayID)
}

func TestTicketService_ConcurrentFirstTickets(t *testing.T) {
	f := newFixture(t)
	svc := f.ticketService(nil, nil)
	ctx := context.Background()

	const n = 5
	var wg sync.WaitGroup
	results := make([]*model.Ticket, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = svc.CreateTicket(ctx, saleRequest(int64(6000+i), ada, lakeCharles, today,
				[]model.LineItemRequest{line(newAppliance, 1000, 1)}))
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, results[0].SalesDayID, results[i].SalesDayID)
	}
	open, err := f.days.ListOpen(ctx)
	require.NoError(t, err)
	assert.Len(t, open, 1)
}

func TestTicketService_RateHistory(t *testing.T) {
	f := newFixture(t)
	svc := f.ticketService(nil, nil)
	rates := NewTaxRateService(f.db, f.locations, f.dates, nil)
	ctx := context.Background()

	_, err := rates.SetRate(ctx, lakeCharles, model.Rate(1200), bizdate.Date(2024, time.April, 1))
	require.NoError(t, err)

	before, err := svc.CreateTicket(ctx, saleRequest(7001, ada, lakeCharles, today,
		[]model.LineItemRequest{line(newAppliance, 10000, 1)}))
	require.NoError(t, err)
	assert.Equal(t, model.Rate(1075), before.Transactions[0].LineItems[0].TaxRate)
	assert.Equal(t, int64(1075), before.TaxTotal)

	after, err := svc.CreateTicket(ctx, saleRequest(7002, remy, lakeCharles, bizdate.Date(2024, time.April, 2),
		[]model.LineItemRequest{line(newAppliance, 10000, 1)}))
	require.NoError(t, err)
	assert.Equal(t, model.Rate(1200), after.Transactions[0].LineItems[0].TaxRate)
	assert.Equal(t, int64(1200), after.TaxTotal)

	stored, err := svc.GetTicket(ctx, before.ID)
	require.NoError(t, err)
	assert.Equal(t, model.Rate(1075), stored.Transactions[0].LineItems[0].TaxRate)
}

func TestTicketService_AddAndRemoveTransaction(t *testing.T) {
	f := newFixture(t)
	cache := new(MockReportCache)
	cache.On("Invalidate", mock.Anything).Return(nil)
	svc := f.ticketService(nil, cache)
	ctx := context.Background()

	ticket, err := svc.CreateTicket(ctx, saleRequest(8001, remy, jennings, today,
		[]model.LineItemRequest{line(newAppliance, 10000, 1)},
		tender(cash, 11000),
	))
	require.NoError(t, err)
	assert.Equal(t, int64(11000), ticket.Total)

	ticket, err = svc.AddTransaction(ctx, model.TransactionCreateRequest{
		TicketID:        ticket.ID,
		UserID:          remy,
		LocationID:      jennings,
		TransactionType: model.TransactionReturn,
		LineItems:       []model.LineItemRequest{line(newAppliance, 2000, 1)},
	})
	require.NoError(t, err)
	require.Len(t, ticket.Transactions, 2)
	ret := ticket.Transactions[1]
	assert.Equal(t, int64(200), ret.LineItems[0].TaxAmount)
	assert.Equal(t, int64(2200), ret.LineItems[0].Total)
	assert.Equal(t, int64(-2200), ret.Total)
	assert.Equal(t, int64(8800), ticket.Total)
	assert.Equal(t, int64(-2200), ticket.BalanceOwed())
	assert.True(t, bizdate.SameDate(today, ret.PostedAt))

	stored, err := svc.GetTicket(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(8800), stored.Total)
	assert.Equal(t, int64(800), stored.TaxTotal)

	ticket, err = svc.RemoveTransaction(ctx, ticket.ID, ret.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(11000), ticket.Total)

	stored, err = svc.GetTicket(ctx, ticket.ID)
	require.NoError(t, err)
	require.Len(t, stored.Transactions, 1)
	assert.Equal(t, int64(11000), stored.Total)
	assert.Equal(t, int64(0), stored.BalanceOwed())

	_, err = svc.RemoveTransaction(ctx, ticket.ID, ret.ID)
	requireCode(t, err, apperror.CodeNotFound)

	_, err = svc.AddTransaction(ctx, model.TransactionCreateRequest{
		TicketID:        ticket.ID,
		UserID:          remy,
		LocationID:      jennings,
		TransactionType: model.TransactionSale,
	})
	requireCode(t, err, apperror.CodeValidation)

	cache.AssertNumberOfCalls(t, "Invalidate", 3)
}

func TestTicketService_LockedDayRejectsChanges(t *testing.T) {
	f := newFixture(t)
	svc := f.ticketService(nil, nil)
	days := f.salesDayService(nil, nil)
	ctx := context.Background()

	ticket, err := svc.CreateTicket(ctx, saleRequest(9001, ada, lakeCharles, today,
		[]model.LineItemRequest{line(newAppliance, 10000, 1)},
		tender(cash, 11075),
	))
	require.NoError(t, err)

	_, err = days.Submit(ctx, ticket.SalesDayID, 61075)
	require.NoError(t, err)

	// Submitted days still accept corrections.
	_, err = svc.AddTransaction(ctx, model.TransactionCreateRequest{
		TicketID:        ticket.ID,
		UserID:          ada,
		LocationID:      lakeCharles,
		TransactionType: model.TransactionAdjustment,
		Tenders:         []model.TenderRequest{tender(card, 100)},
	})
	require.NoError(t, err)

	_, err = days.Lock(ctx, ticket.SalesDayID)
	require.NoError(t, err)

	_, err = svc.AddTransaction(ctx, model.TransactionCreateRequest{
		TicketID:        ticket.ID,
		UserID:          ada,
		LocationID:      lakeCharles,
		TransactionType: model.TransactionAdjustment,
		Tenders:         []model.TenderRequest{tender(card, 100)},
	})
	requireCode(t, err, apperror.CodeConflict)

	_, err = svc.RemoveTransaction(ctx, ticket.ID, ticket.Transactions[0].ID)
	requireCode(t, err, apperror.CodeConflict)
}

func TestTicketService_SubmitGuard(t *testing.T) {
	f := newFixture(t)
	mr := miniredis.RunT(t)
	adapter, err := redis.NewRedisAdapter(t.Name()+"-"+mr.Addr(), "", &goredis.UniversalOptions{
		Addrs: []string{mr.Addr()},
	})
	require.NoError(t, err)
	guard := NewSubmitGuard(adapter, time.Minute)
	svc := f.ticketService(guard, nil)
	ctx := context.Background()

	require.NoError(t, mr.Set(submitKey(10001), "1"))
	_, err = svc.CreateTicket(ctx, saleRequest(10001, ada, lakeCharles, today,
		[]model.LineItemRequest{line(newAppliance, 100, 1)}))
	requireCode(t, err, apperror.CodeConflict)

	mr.Del(submitKey(10001))
	_, err = svc.CreateTicket(ctx, saleRequest(10001, ada, lakeCharles, today,
		[]model.LineItemRequest{line(newAppliance, 100, 1)}))
	require.NoError(t, err)
	assert.False(t, mr.Exists(submitKey(10001)), "guard must be released after the submit")

	mr.Close()
	_, err = svc.CreateTicket(ctx, saleRequest(10002, ada, lakeCharles, today,
		[]model.LineItemRequest{line(newAppliance, 100, 1)}))
	require.NoError(t, err, "an unreachable guard must not block submits")
}
