package model

import "time"

type LineItem struct {
	ID               int64            `json:"id"`
	TransactionID    int64            `json:"transaction_id"`
	SalesCategoryID  int64            `json:"sales_category_id"`
	SalesCategory    string           `json:"sales_category,omitempty"`
	Position         int              `json:"position"`
	UnitPrice        int64            `json:"unit_price"`
	Quantity         int64            `json:"quantity"`
	Taxable          bool             `json:"taxable"`
	TaxabilitySource TaxabilitySource `json:"taxability_source"`
	TaxRate          Rate             `json:"tax_rate"`
	TaxAmount        int64            `json:"tax_amount"`
	Total            int64            `json:"total"`
}

// Pretax is the untaxed extended price.
func (l *LineItem) Pretax() int64 {
	return l.UnitPrice * l.Quantity
}

type LineItemTender struct {
	ID            int64 `json:"id"`
	LineItemID    int64 `json:"line_item_id"`
	TenderID      int64 `json:"tender_id"`
	AppliedPretax int64 `json:"applied_pretax"`
	AppliedTax    int64 `json:"applied_tax"`
	AppliedTotal  int64 `json:"applied_total"`

	// Position of the line item inside its transaction; ids do not exist
	// before the first insert.
	LineItemPosition int `json:"-"`
}

type Tender struct {
	ID            int64             `json:"id"`
	TransactionID int64             `json:"transaction_id"`
	PaymentTypeID int64             `json:"payment_type_id"`
	PaymentType   string            `json:"payment_type,omitempty"`
	Position      int               `json:"position"`
	Amount        int64             `json:"amount"`
	Allocations   []*LineItemTender `json:"allocations"`
}

type Transaction struct {
	ID              int64           `json:"id"`
	TicketID        int64           `json:"ticket_id"`
	UserID          int64           `json:"user_id"`
	LocationID      int64           `json:"location_id"`
	TransactionType TransactionType `json:"transaction_type"`
	PostedAt        time.Time       `json:"posted_at"`
	Subtotal        int64           `json:"subtotal"`
	TaxTotal        int64           `json:"tax_total"`
	Total           int64           `json:"total"`
	LineItems       []*LineItem     `json:"line_items"`
	Tenders         []*Tender       `json:"tenders"`
}

// TenderTotal is the plain sum of tender amounts. A return carries no
// refund tender; its negative total nets against earlier payments.
func (t *Transaction) TenderTotal() int64 {
	var sum int64
	for _, tender := range t.Tenders {
		sum += tender.Amount
	}
	return sum
}

type Ticket struct {
	ID           int64          `json:"id"`
	TicketNumber int64          `json:"ticket_number"`
	TicketDate   time.Time      `json:"ticket_date"`
	LocationID   int64          `json:"location_id"`
	UserID       int64          `json:"user_id"`
	SalesDayID   int64          `json:"sales_day_id"`
	Subtotal     int64          `json:"subtotal"`
	TaxTotal     int64          `json:"tax_total"`
	Total        int64          `json:"total"`
	Transactions []*Transaction `json:"transactions"`
	CreatedAt    time.Time      `json:"created_at"`
}

// TotalPaid sums every tender on every transaction. It is never cached
// because tenders can be added without touching line items.
func (t *Ticket) TotalPaid() int64 {
	var sum int64
	for _, tx := range t.Transactions {
		sum += tx.TenderTotal()
	}
	return sum
}

func (t *Ticket) BalanceOwed() int64 {
	return t.Total - t.TotalPaid()
}

func (t *Ticket) IsOpen() bool {
	return t.BalanceOwed() > 0
}

type SalesDay struct {
	ID             int64          `json:"id"`
	UserID         int64          `json:"user_id"`
	LocationID     int64          `json:"location_id"`
	OpenedAt       time.Time      `json:"opened_at"`
	ClosedAt       *time.Time     `json:"closed_at,omitempty"`
	Status         SalesDayStatus `json:"status"`
	StartingCash   int64          `json:"starting_cash"`
	ExpectedCash   *int64         `json:"expected_cash,omitempty"`
	ActualCash     *int64         `json:"actual_cash,omitempty"`
	CashDifference *int64         `json:"cash_difference,omitempty"`
}

type Deduction struct {
	ID     int64     `json:"id"`
	UserID int64     `json:"user_id"`
	Amount int64     `json:"amount"`
	Reason string    `json:"reason"`
	Date   time.Time `json:"date"`
}
