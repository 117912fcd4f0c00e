package services

import (
	"context"
	"testing"
	"time"

	"github.com/nimasrn/pos-ledger/internal/events"
	"github.com/nimasrn/pos-ledger/internal/model"
	"github.com/nimasrn/pos-ledger/internal/repository"
	"github.com/nimasrn/pos-ledger/pkg/apperror"
	"github.com/nimasrn/pos-ledger/pkg/bizdate"
	"github.com/nimasrn/pos-ledger/pkg/pg"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	lakeCharles = int64(1)
	jennings    = int64(2)

	ada  = int64(1)
	remy = int64(2)

	newAppliance     = int64(1)
	extendedWarranty = int64(2)
	inactiveParts    = int64(3)

	cash    = int64(1)
	card    = int64(2)
	leasing = int64(3)
)

// clock is 13:00 in Chicago on 2024-03-15.
var clock = time.Date(2024, time.March, 15, 18, 0, 0, 0, time.UTC)

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, evt events.Event) (string, error) {
	args := m.Called(ctx, evt)
	return args.String(0), args.Error(1)
}

type MockReportCache struct {
	mock.Mock
}

func (m *MockReportCache) Invalidate(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

type fixture struct {
	raw        *gorm.DB
	db         *pg.DB
	dates      *bizdate.Resolver
	tickets    *repository.TicketRepository
	locations  *repository.LocationRepository
	refs       *repository.ReferenceRepository
	days       *repository.SalesDayRepository
	deductions *repository.DeductionRepository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	raw, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := raw.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, repository.Migrate(raw))

	rows := []interface{}{
		&repository.LocationEntity{ID: lakeCharles, Name: "Lake Charles", Code: "lake_charles", CurrentTaxRate: 1075},
		&repository.LocationEntity{ID: jennings, Name: "Jennings", Code: "jennings", CurrentTaxRate: 1000},
		&repository.UserEntity{ID: ada, FirstName: "Ada", LastName: "Boudreaux", LocationID: lakeCharles},
		&repository.UserEntity{ID: remy, FirstName: "Remy", LastName: "Thibodeaux", LocationID: jennings},
		&repository.SalesCategoryEntity{ID: newAppliance, Name: "new_appliance", TaxDefault: true, Active: true},
		&repository.SalesCategoryEntity{ID: extendedWarranty, Name: "extended_warranty", TaxDefault: false, Active: true},
		&repository.SalesCategoryEntity{ID: inactiveParts, Name: "parts", TaxDefault: true, Active: false},
		&repository.PaymentTypeEntity{ID: cash, Name: "cash", Taxable: true, Active: true},
		&repository.PaymentTypeEntity{ID: card, Name: "card", Taxable: true, Active: true},
		&repository.PaymentTypeEntity{ID: leasing, Name: "acima", Taxable: false, Active: true},
	}
	for _, row := range rows {
		require.NoError(t, raw.Create(row).Error)
	}

	dates, err := bizdate.New("America/Chicago")
	require.NoError(t, err)
	dates.WithNow(func() time.Time { return clock })

	db := pg.New(raw, raw)
	return &fixture{
		raw:        raw,
		db:         db,
		dates:      dates,
		tickets:    repository.NewTicketRepository(db),
		locations:  repository.NewLocationRepository(db),
		refs:       repository.NewReferenceRepository(db),
		days:       repository.NewSalesDayRepository(db),
		deductions: repository.NewDeductionRepository(db),
	}
}

func (f *fixture) salesDayService(publisher EventPublisher, cache ReportCache) *SalesDayService {
	return NewSalesDayService(f.db, f.days, f.tickets, f.locations, f.refs, f.dates, 50000, publisher, cache)
}

func (f *fixture) ticketService(guard *SubmitGuard, cache ReportCache) *TicketService {
	return NewTicketService(f.db, f.tickets, f.locations, f.refs, f.salesDayService(nil, cache), nil, f.dates, guard, cache)
}

func saleRequest(number int64, userID, locationID int64, on time.Time, lines []model.LineItemRequest, tenders ...model.TenderRequest) model.TicketCreateRequest {
	return model.TicketCreateRequest{
		TicketNumber:    number,
		Date:            on,
		LocationID:      locationID,
		UserID:          userID,
		TransactionType: model.TransactionSale,
		LineItems:       lines,
		Tenders:         tenders,
	}
}

func line(categoryID, unitPrice, quantity int64) model.LineItemRequest {
	return model.LineItemRequest{SalesCategoryID: categoryID, UnitPrice: unitPrice, Quantity: quantity}
}

func tender(paymentTypeID, amount int64) model.TenderRequest {
	return model.TenderRequest{PaymentTypeID: paymentTypeID, Amount: amount}
}

func requireCode(t *testing.T, err error, code apperror.Code) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, code, apperror.CodeOf(err), "error: %v", err)
}
