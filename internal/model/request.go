package model

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

const MaxDeductionReasonLen = 300

type LineItemRequest struct {
	SalesCategoryID int64 `json:"sales_category_id"`
	UnitPrice       int64 `json:"unit_price"`
	Quantity        int64 `json:"quantity"`
	// TaxableOverride forces taxability and marks the item as manually overridden.
	TaxableOverride *bool `json:"taxable_override,omitempty"`
}

type TenderRequest struct {
	PaymentTypeID int64 `json:"payment_type_id"`
	Amount        int64 `json:"amount"`
}

type TicketCreateRequest struct {
	TicketNumber         int64             `json:"ticket_number"`
	Date                 time.Time         `json:"date"`
	LocationID           int64             `json:"location_id"`
	UserID               int64             `json:"user_id"`
	TransactionType      TransactionType   `json:"transaction_type"`
	LineItems            []LineItemRequest `json:"line_items"`
	Tenders              []TenderRequest   `json:"tenders"`
	ApplyPaymentTaxRules bool              `json:"apply_payment_tax_rules,omitempty"`
}

type TransactionCreateRequest struct {
	TicketID             int64             `json:"ticket_id"`
	UserID               int64             `json:"user_id"`
	LocationID           int64             `json:"location_id"`
	PostedAt             time.Time         `json:"posted_at"`
	TransactionType      TransactionType   `json:"transaction_type"`
	LineItems            []LineItemRequest `json:"line_items"`
	Tenders              []TenderRequest   `json:"tenders"`
	ApplyPaymentTaxRules bool              `json:"apply_payment_tax_rules,omitempty"`
}

func validateLines(items []LineItemRequest, tenders []TenderRequest) error {
	for i, li := range items {
		if li.SalesCategoryID <= 0 {
			return fmt.Errorf("line_items[%d]: sales_category_id is required", i)
		}
		if li.UnitPrice < 0 {
			return fmt.Errorf("line_items[%d]: unit_price must not be negative", i)
		}
		if li.Quantity < 1 {
			return fmt.Errorf("line_items[%d]: quantity must be at least 1", i)
		}
	}
	for i, t := range tenders {
		if t.PaymentTypeID <= 0 {
			return fmt.Errorf("tenders[%d]: payment_type_id is required", i)
		}
		if t.Amount <= 0 {
			return fmt.Errorf("tenders[%d]: amount must be positive", i)
		}
	}
	return nil
}

func (r TicketCreateRequest) Validate() error {
	if r.TicketNumber <= 0 {
		return fmt.Errorf("ticket_number must be positive")
	}
	if r.Date.IsZero() {
		return fmt.Errorf("date is required")
	}
	if r.LocationID <= 0 {
		return fmt.Errorf("location_id is required")
	}
	if r.UserID <= 0 {
		return fmt.Errorf("user_id is required")
	}
	if !r.TransactionType.Valid() {
		return fmt.Errorf("unsupported transaction_type %q", r.TransactionType)
	}
	return validateLines(r.LineItems, r.Tenders)
}

func (r TransactionCreateRequest) Validate() error {
	if r.TicketID <= 0 {
		return fmt.Errorf("ticket_id is required")
	}
	if r.UserID <= 0 {
		return fmt.Errorf("user_id is required")
	}
	if r.LocationID <= 0 {
		return fmt.Errorf("location_id is required")
	}
	if !r.TransactionType.Valid() {
		return fmt.Errorf("unsupported transaction_type %q", r.TransactionType)
	}
	return validateLines(r.LineItems, r.Tenders)
}

type DeductionRequest struct {
	UserID int64     `json:"user_id"`
	Amount int64     `json:"amount"`
	Reason string    `json:"reason"`
	Date   time.Time `json:"date"`
}

func (r *DeductionRequest) Validate() error {
	r.Reason = strings.TrimSpace(r.Reason)
	if r.UserID <= 0 {
		return fmt.Errorf("user_id is required")
	}
	if r.Amount <= 0 {
		return fmt.Errorf("amount must be positive")
	}
	if r.Reason == "" {
		return fmt.Errorf("reason is required")
	}
	if utf8.RuneCountInString(r.Reason) > MaxDeductionReasonLen {
		return fmt.Errorf("reason exceeds %d characters", MaxDeductionReasonLen)
	}
	if r.Date.IsZero() {
		return fmt.Errorf("date is required")
	}
	return nil
}

// DeductionFilter narrows deduction listings; nil fields are ignored.
type DeductionFilter struct {
	UserIDs []int64
	From    *time.Time
	To      *time.Time
}

type TicketFilter struct {
	UserIDs     []int64
	LocationIDs []int64
	From        time.Time
	To          time.Time
}
