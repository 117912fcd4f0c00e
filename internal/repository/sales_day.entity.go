package repository

import (
	"time"

	"github.com/nimasrn/pos-ledger/internal/model"
)

// SalesDayEntity carries a partial unique index on user_id for open rows;
// see OpenSalesDayIndexSQL.
type SalesDayEntity struct {
	ID             int64      `db:"id"              gorm:"primaryKey;autoIncrement;column:id"`
	UserID         int64      `db:"user_id"         gorm:"column:user_id;not null;index"`
	LocationID     int64      `db:"location_id"     gorm:"column:location_id;not null;index"`
	OpenedAt       time.Time  `db:"opened_at"       gorm:"column:opened_at;not null"`
	ClosedAt       *time.Time `db:"closed_at"       gorm:"column:closed_at"`
	Status         string     `db:"status"          gorm:"column:status;size:20;not null;index"`
	StartingCash   int64      `db:"starting_cash"   gorm:"column:starting_cash;not null"`
	ExpectedCash   *int64     `db:"expected_cash"   gorm:"column:expected_cash"`
	ActualCash     *int64     `db:"actual_cash"     gorm:"column:actual_cash"`
	CashDifference *int64     `db:"cash_difference" gorm:"column:cash_difference"`
}

func (SalesDayEntity) TableName() string {
	return "sales_days"
}

const OpenSalesDayIndex = "ux_sales_days_user_open"

const OpenSalesDayIndexSQL = "CREATE UNIQUE INDEX IF NOT EXISTS " + OpenSalesDayIndex + " ON sales_days (user_id) WHERE status = 'open'"

func toSalesDayEntity(m *model.SalesDay) *SalesDayEntity {
	return &SalesDayEntity{
		ID:             m.ID,
		UserID:         m.UserID,
		LocationID:     m.LocationID,
		OpenedAt:       m.OpenedAt,
		ClosedAt:       m.ClosedAt,
		Status:         string(m.Status),
		StartingCash:   m.StartingCash,
		ExpectedCash:   m.ExpectedCash,
		ActualCash:     m.ActualCash,
		CashDifference: m.CashDifference,
	}
}

func toSalesDayModel(e *SalesDayEntity) *model.SalesDay {
	return &model.SalesDay{
		ID:             e.ID,
		UserID:         e.UserID,
		LocationID:     e.LocationID,
		OpenedAt:       e.OpenedAt,
		ClosedAt:       e.ClosedAt,
		Status:         model.SalesDayStatus(e.Status),
		StartingCash:   e.StartingCash,
		ExpectedCash:   e.ExpectedCash,
		ActualCash:     e.ActualCash,
		CashDifference: e.CashDifference,
	}
}
