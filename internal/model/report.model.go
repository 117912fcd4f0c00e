package model

import "time"

type ReportType string

const (
	ReportUserEOD   ReportType = "user_eod"
	ReportLocation  ReportType = "location"
	ReportMultiUser ReportType = "multi_user"
	ReportMaster    ReportType = "master"
)

func (t ReportType) Valid() bool {
	switch t {
	case ReportUserEOD, ReportLocation, ReportMultiUser, ReportMaster:
		return true
	}
	return false
}

type ReportRequest struct {
	Type           ReportType `json:"report_type"`
	Start          time.Time  `json:"start"`
	End            *time.Time `json:"end,omitempty"`
	UserID         *int64     `json:"user_id,omitempty"`
	LocationID     *int64     `json:"location_id,omitempty"`
	UserIDs        []int64    `json:"user_ids,omitempty"`
	LocationIDs    []int64    `json:"location_ids,omitempty"`
	IncludeTickets bool       `json:"include_tickets"`
}

type Report struct {
	ReportType ReportType  `json:"report_type"`
	Meta       ReportMeta  `json:"meta"`
	Report     *ReportBody `json:"report"`
}

type ReportMeta struct {
	ReportDateStart string  `json:"report_date_start"`
	ReportDateEnd   string  `json:"report_date_end"`
	UserID          *int64  `json:"user_id,omitempty"`
	LocationID      *int64  `json:"location_id,omitempty"`
	UserIDs         []int64 `json:"user_ids,omitempty"`
	LocationIDs     []int64 `json:"location_ids,omitempty"`
}

// ReportBody is the aggregate payload. User, Location, Users and Locations
// are filled depending on the report type.
type ReportBody struct {
	User     *ReportUser     `json:"user,omitempty"`
	Location *LocationHeader `json:"location,omitempty"`

	Sales      SalesSummary      `json:"sales"`
	Receipts   ReceiptsSummary   `json:"receipts"`
	Balances   BalancesSummary   `json:"balances"`
	Breakdowns BreakdownsSummary `json:"breakdowns"`
	Deductions DeductionsSummary `json:"deductions"`
	Cash       CashSummary       `json:"cash"`
	Tickets    []TicketRow       `json:"tickets,omitempty"`

	Users     []*ReportBody `json:"users,omitempty"`
	Locations []*ReportBody `json:"locations,omitempty"`
}

type ReportUser struct {
	ID           int64  `json:"id"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	LocationID   int64  `json:"location_id"`
	LocationName string `json:"location_name,omitempty"`
}

type LocationHeader struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	Code           string `json:"code"`
	CurrentTaxRate Rate   `json:"current_tax_rate"`
}

type SalesSummary struct {
	Subtotal  int64 `json:"subtotal"`
	TaxTotal  int64 `json:"tax_total"`
	TotalSold int64 `json:"total_sold"`
}

type PaymentTypeAmount struct {
	PaymentType string `json:"payment_type"`
	Amount      int64  `json:"amount"`
}

type ReceiptsSummary struct {
	TotalReceived int64               `json:"total_received"`
	ByPaymentType []PaymentTypeAmount `json:"by_payment_type"`
}

type BalancesSummary struct {
	BalanceOwed int64 `json:"balance_owed"`
}

type CategoryTotals struct {
	SalesCategory string `json:"sales_category"`
	Subtotal      int64  `json:"subtotal"`
	TaxTotal      int64  `json:"tax_total"`
	Total         int64  `json:"total"`
}

type BreakdownsSummary struct {
	BySalesCategory []CategoryTotals `json:"by_sales_category"`
}

type DeductionsSummary struct {
	Count           int   `json:"count"`
	TotalDeductions int64 `json:"total_deductions"`
}

type CashSummary struct {
	CashReceivedGross   int64 `json:"cash_received_gross"`
	CashAfterDeductions int64 `json:"cash_after_deductions"`
}

type TicketRow struct {
	ID           int64  `json:"id"`
	TicketNumber int64  `json:"ticket_number"`
	Date         string `json:"date"`
	Subtotal     int64  `json:"subtotal"`
	TaxTotal     int64  `json:"tax_total"`
	Total        int64  `json:"total"`
	TotalPaid    int64  `json:"total_paid"`
	BalanceOwed  int64  `json:"balance_owed"`
	IsOpen       bool   `json:"is_open"`
}
