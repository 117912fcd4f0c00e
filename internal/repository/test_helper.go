package repository

import (
	"testing"
	"time"

	"github.com/nimasrn/pos-ledger/internal/model"
	"github.com/nimasrn/pos-ledger/pkg/pg"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type testDB struct {
	*pg.DB
	rawDB *gorm.DB
}

// setupTestDB opens a private in-memory sqlite database. A single
// connection keeps every query on the same database and serialises
// concurrent transactions the way row locks would.
func setupTestDB(t *testing.T) *testDB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, Migrate(db))

	return &testDB{
		DB:    pg.New(db, db),
		rawDB: db,
	}
}

// seedReference inserts one location, one user at that location, two
// categories and two payment types, all with fixed ids.
func seedReference(t *testing.T, db *gorm.DB) {
	t.Helper()
	rows := []interface{}{
		&LocationEntity{ID: 1, Name: "Lake Charles", Code: "lake_charles", CurrentTaxRate: 1075},
		&LocationEntity{ID: 2, Name: "Jennings", Code: "jennings", CurrentTaxRate: 1000},
		&UserEntity{ID: 1, FirstName: "Ada", LastName: "Boudreaux", LocationID: 1},
		&UserEntity{ID: 2, FirstName: "Remy", LastName: "Thibodeaux", LocationID: 2},
		&SalesCategoryEntity{ID: 1, Name: "new_appliance", TaxDefault: true, Active: true},
		&SalesCategoryEntity{ID: 2, Name: "extended_warranty", TaxDefault: false, Active: true},
		&PaymentTypeEntity{ID: 1, Name: "cash", Taxable: true, Active: true},
		&PaymentTypeEntity{ID: 2, Name: "card", Taxable: true, Active: true},
	}
	for _, row := range rows {
		require.NoError(t, db.Create(row).Error)
	}
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// sampleTicket builds a computed two-line sale paid by a single cash tender.
func sampleTicket(number int64, salesDayID int64, on time.Time) *model.Ticket {
	tx := &model.Transaction{
		UserID:          1,
		LocationID:      1,
		TransactionType: model.TransactionSale,
		PostedAt:        on,
		Subtotal:        15000,
		TaxTotal:        1075,
		Total:           16075,
		LineItems: []*model.LineItem{
			{SalesCategoryID: 1, Position: 0, UnitPrice: 10000, Quantity: 1, Taxable: true,
				TaxabilitySource: model.SourceProductDefault, TaxRate: 1075, TaxAmount: 1075, Total: 11075},
			{SalesCategoryID: 2, Position: 1, UnitPrice: 5000, Quantity: 1, Taxable: false,
				TaxabilitySource: model.SourceProductDefault, TaxRate: 1075, TaxAmount: 0, Total: 5000},
		},
		Tenders: []*model.Tender{
			{PaymentTypeID: 1, Position: 0, Amount: 10000, Allocations: []*model.LineItemTender{
				{LineItemPosition: 0, AppliedPretax: 6013, AppliedTax: 654, AppliedTotal: 6667},
				{LineItemPosition: 1, AppliedPretax: 3333, AppliedTax: 0, AppliedTotal: 3333},
			}},
		},
	}
	return &model.Ticket{
		TicketNumber: number,
		TicketDate:   on,
		LocationID:   1,
		UserID:       1,
		SalesDayID:   salesDayID,
		Subtotal:     tx.Subtotal,
		TaxTotal:     tx.TaxTotal,
		Total:        tx.Total,
		Transactions: []*model.Transaction{tx},
	}
}
