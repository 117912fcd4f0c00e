package model

type TaxabilitySource string

const (
	SourceProductDefault   TaxabilitySource = "product_default"
	SourcePaymentType      TaxabilitySource = "payment_type"
	SourceLocationOverride TaxabilitySource = "location_override"
	SourceManualOverride   TaxabilitySource = "manual_override"
)

type TransactionType string

const (
	TransactionSale       TransactionType = "sale"
	TransactionReturn     TransactionType = "return"
	TransactionAdjustment TransactionType = "adjustment"
)

func (t TransactionType) Valid() bool {
	switch t {
	case TransactionSale, TransactionReturn, TransactionAdjustment:
		return true
	}
	return false
}

// Sign is -1 for returns and +1 otherwise.
func (t TransactionType) Sign() int64 {
	if t == TransactionReturn {
		return -1
	}
	return 1
}

type SalesDayStatus string

const (
	SalesDayOpen      SalesDayStatus = "open"
	SalesDaySubmitted SalesDayStatus = "submitted"
	SalesDayLocked    SalesDayStatus = "locked"
)

// CashPaymentType is compared case-insensitively against payment type names.
const CashPaymentType = "cash"
