package repository

import (
	"time"

	"github.com/nimasrn/pos-ledger/internal/model"
)

type TicketEntity struct {
	ID           int64     `db:"id"            gorm:"primaryKey;autoIncrement;column:id"`
	TicketNumber int64     `db:"ticket_number" gorm:"column:ticket_number;not null;uniqueIndex:ux_tickets_ticket_number"`
	TicketDate   time.Time `db:"ticket_date"   gorm:"column:ticket_date;type:date;not null;index"`
	LocationID   int64     `db:"location_id"   gorm:"column:location_id;not null;index"`
	UserID       int64     `db:"user_id"       gorm:"column:user_id;not null;index"`
	SalesDayID   int64     `db:"sales_day_id"  gorm:"column:sales_day_id;not null;index"`
	Subtotal     int64     `db:"subtotal"      gorm:"column:subtotal;not null"`
	TaxTotal     int64     `db:"tax_total"     gorm:"column:tax_total;not null"`
	Total        int64     `db:"total"         gorm:"column:total;not null"`
	CreatedAt    time.Time `db:"created_at"    gorm:"column:created_at"`
}

func (TicketEntity) TableName() string {
	return "tickets"
}

func toTicketEntity(m *model.Ticket) *TicketEntity {
	return &TicketEntity{
		ID:           m.ID,
		TicketNumber: m.TicketNumber,
		TicketDate:   m.TicketDate,
		LocationID:   m.LocationID,
		UserID:       m.UserID,
		SalesDayID:   m.SalesDayID,
		Subtotal:     m.Subtotal,
		TaxTotal:     m.TaxTotal,
		Total:        m.Total,
		CreatedAt:    m.CreatedAt,
	}
}

func toTicketModel(e *TicketEntity) *model.Ticket {
	return &model.Ticket{
		ID:           e.ID,
		TicketNumber: e.TicketNumber,
		TicketDate:   e.TicketDate,
		LocationID:   e.LocationID,
		UserID:       e.UserID,
		SalesDayID:   e.SalesDayID,
		Subtotal:     e.Subtotal,
		TaxTotal:     e.TaxTotal,
		Total:        e.Total,
		CreatedAt:    e.CreatedAt,
	}
}
