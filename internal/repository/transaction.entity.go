package repository

import (
	"time"

	"github.com/nimasrn/pos-ledger/internal/model"
)

type TransactionEntity struct {
	ID              int64     `db:"id"               gorm:"primaryKey;autoIncrement;column:id"`
	TicketID        int64     `db:"ticket_id"        gorm:"column:ticket_id;not null;index"`
	UserID          int64     `db:"user_id"          gorm:"column:user_id;not null;index"`
	LocationID      int64     `db:"location_id"      gorm:"column:location_id;not null;index"`
	TransactionType string    `db:"transaction_type" gorm:"column:transaction_type;size:20;not null"`
	PostedAt        time.Time `db:"posted_at"        gorm:"column:posted_at;type:date;not null;index"`
	Subtotal        int64     `db:"subtotal"         gorm:"column:subtotal;not null"`
	TaxTotal        int64     `db:"tax_total"        gorm:"column:tax_total;not null"`
	Total           int64     `db:"total"            gorm:"column:total;not null"`
}

func (TransactionEntity) TableName() string {
	return "transactions"
}

type LineItemEntity struct {
	ID               int64      `db:"id"                gorm:"primaryKey;autoIncrement;column:id"`
	TransactionID    int64      `db:"transaction_id"    gorm:"column:transaction_id;not null;index"`
	SalesCategoryID  int64      `db:"sales_category_id" gorm:"column:sales_category_id;not null;index"`
	Position         int        `db:"position"          gorm:"column:position;not null"`
	UnitPrice        int64      `db:"unit_price"        gorm:"column:unit_price;not null"`
	Quantity         int64      `db:"quantity"          gorm:"column:quantity;not null"`
	Taxable          bool       `db:"taxable"           gorm:"column:taxable;not null"`
	TaxabilitySource string     `db:"taxability_source" gorm:"column:taxability_source;size:30;not null"`
	TaxRate          model.Rate `db:"tax_rate"          gorm:"column:tax_rate;type:numeric(5,4);not null"`
	TaxAmount        int64      `db:"tax_amount"        gorm:"column:tax_amount;not null"`
	Total            int64      `db:"total"             gorm:"column:total;not null"`
}

func (LineItemEntity) TableName() string {
	return "line_items"
}

type TenderEntity struct {
	ID            int64 `db:"id"              gorm:"primaryKey;autoIncrement;column:id"`
	TransactionID int64 `db:"transaction_id"  gorm:"column:transaction_id;not null;index"`
	PaymentTypeID int64 `db:"payment_type_id" gorm:"column:payment_type_id;not null;index"`
	Position      int   `db:"position"        gorm:"column:position;not null"`
	Amount        int64 `db:"amount"          gorm:"column:amount;not null"`
}

func (TenderEntity) TableName() string {
	return "tenders"
}

type LineItemTenderEntity struct {
	ID            int64 `db:"id"             gorm:"primaryKey;autoIncrement;column:id"`
	LineItemID    int64 `db:"line_item_id"   gorm:"column:line_item_id;not null;uniqueIndex:ux_line_item_tenders_pair,priority:1"`
	TenderID      int64 `db:"tender_id"      gorm:"column:tender_id;not null;uniqueIndex:ux_line_item_tenders_pair,priority:2;index"`
	AppliedPretax int64 `db:"applied_pretax" gorm:"column:applied_pretax;not null"`
	AppliedTax    int64 `db:"applied_tax"    gorm:"column:applied_tax;not null"`
	AppliedTotal  int64 `db:"applied_total"  gorm:"column:applied_total;not null"`
}

func (LineItemTenderEntity) TableName() string {
	return "line_item_tenders"
}

func toTransactionEntity(m *model.Transaction) *TransactionEntity {
	return &TransactionEntity{
		ID:              m.ID,
		TicketID:        m.TicketID,
		UserID:          m.UserID,
		LocationID:      m.LocationID,
		TransactionType: string(m.TransactionType),
		PostedAt:        m.PostedAt,
		Subtotal:        m.Subtotal,
		TaxTotal:        m.TaxTotal,
		Total:           m.Total,
	}
}

func toTransactionModel(e *TransactionEntity) *model.Transaction {
	return &model.Transaction{
		ID:              e.ID,
		TicketID:        e.TicketID,
		UserID:          e.UserID,
		LocationID:      e.LocationID,
		TransactionType: model.TransactionType(e.TransactionType),
		PostedAt:        e.PostedAt,
		Subtotal:        e.Subtotal,
		TaxTotal:        e.TaxTotal,
		Total:           e.Total,
	}
}

func toLineItemEntity(m *model.LineItem) *LineItemEntity {
	return &LineItemEntity{
		ID:               m.ID,
		TransactionID:    m.TransactionID,
		SalesCategoryID:  m.SalesCategoryID,
		Position:         m.Position,
		UnitPrice:        m.UnitPrice,
		Quantity:         m.Quantity,
		Taxable:          m.Taxable,
		TaxabilitySource: string(m.TaxabilitySource),
		TaxRate:          m.TaxRate,
		TaxAmount:        m.TaxAmount,
		Total:            m.Total,
	}
}

func toLineItemModel(e *LineItemEntity) *model.LineItem {
	return &model.LineItem{
		ID:               e.ID,
		TransactionID:    e.TransactionID,
		SalesCategoryID:  e.SalesCategoryID,
		Position:         e.Position,
		UnitPrice:        e.UnitPrice,
		Quantity:         e.Quantity,
		Taxable:          e.Taxable,
		TaxabilitySource: model.TaxabilitySource(e.TaxabilitySource),
		TaxRate:          e.TaxRate,
		TaxAmount:        e.TaxAmount,
		Total:            e.Total,
	}
}

func toTenderEntity(m *model.Tender) *TenderEntity {
	return &TenderEntity{
		ID:            m.ID,
		TransactionID: m.TransactionID,
		PaymentTypeID: m.PaymentTypeID,
		Position:      m.Position,
		Amount:        m.Amount,
	}
}

func toTenderModel(e *TenderEntity) *model.Tender {
	return &model.Tender{
		ID:            e.ID,
		TransactionID: e.TransactionID,
		PaymentTypeID: e.PaymentTypeID,
		Position:      e.Position,
		Amount:        e.Amount,
	}
}

func toLineItemTenderModel(e *LineItemTenderEntity) *model.LineItemTender {
	return &model.LineItemTender{
		ID:            e.ID,
		LineItemID:    e.LineItemID,
		TenderID:      e.TenderID,
		AppliedPretax: e.AppliedPretax,
		AppliedTax:    e.AppliedTax,
		AppliedTotal:  e.AppliedTotal,
	}
}
