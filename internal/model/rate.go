package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// RateScale is the fixed-point denominator of a Rate: four fractional digits.
const RateScale = 10000

// Rate is a tax rate in ten-thousandths (1075 is 10.75%).
type Rate int64

var ErrInvalidRate = fmt.Errorf("tax rate must be between 0 and 1 with at most 4 decimal places")

func ParseRate(s string) (Rate, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidRate, s)
	}
	return RateFromDecimal(d)
}

func RateFromDecimal(d decimal.Decimal) (Rate, error) {
	scaled := d.Shift(4)
	if !scaled.Equal(scaled.Truncate(0)) {
		return 0, fmt.Errorf("%w: %s", ErrInvalidRate, d.String())
	}
	r := Rate(scaled.IntPart())
	if !r.Valid() {
		return 0, fmt.Errorf("%w: %s", ErrInvalidRate, d.String())
	}
	return r, nil
}

func (r Rate) Valid() bool {
	return r >= 0 && r <= RateScale
}

func (r Rate) Decimal() decimal.Decimal {
	return decimal.New(int64(r), -4)
}

func (r Rate) String() string {
	return r.Decimal().StringFixed(4)
}

// Value stores the rate as a numeric(5,4) literal.
func (r Rate) Value() (driver.Value, error) {
	return r.String(), nil
}

// Scan accepts whatever the driver returns for a numeric column. Floats
// coming back from sqlite are rounded to the nearest ten-thousandth.
func (r *Rate) Scan(value interface{}) error {
	if value == nil {
		*r = 0
		return nil
	}
	var d decimal.Decimal
	if err := d.Scan(value); err != nil {
		return fmt.Errorf("scan rate: %w", err)
	}
	*r = Rate(d.Shift(4).Round(0).IntPart())
	return nil
}

func (r Rate) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

func (r *Rate) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return fmt.Errorf("%w: %s", ErrInvalidRate, string(b))
		}
		s = n.String()
	}
	parsed, err := ParseRate(s)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
