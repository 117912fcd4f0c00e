package model

import "time"

type Location struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	Code           string `json:"code"`
	Address        string `json:"address,omitempty"`
	CurrentTaxRate Rate   `json:"current_tax_rate"`
}

// TaxRate is one period of a location's rate history. A nil EffectiveTo
// means the period is still open.
type TaxRate struct {
	ID            int64      `json:"id"`
	LocationID    int64      `json:"location_id"`
	Rate          Rate       `json:"rate"`
	EffectiveFrom time.Time  `json:"effective_from"`
	EffectiveTo   *time.Time `json:"effective_to,omitempty"`
}

// Covers reports whether date falls inside the period.
func (t *TaxRate) Covers(date time.Time) bool {
	if date.Before(t.EffectiveFrom) {
		return false
	}
	return t.EffectiveTo == nil || !date.After(*t.EffectiveTo)
}

type User struct {
	ID         int64  `json:"id"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	LocationID int64  `json:"location_id"`
}

type SalesCategory struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	TaxDefault bool   `json:"tax_default"`
	Active     bool   `json:"active"`
}

type PaymentType struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Taxable bool   `json:"taxable"`
	Active  bool   `json:"active"`
}
