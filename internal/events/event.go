package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	// SalesDaySubmitted is published after a sales day close commits.
	SalesDaySubmitted Type = "sales_day.submitted"
)

type Event struct {
	ID         string          `json:"id"`
	Type       Type            `json:"type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

func New(typ Type, payload interface{}) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("marshal %s payload: %w", typ, err)
	}
	return Event{
		ID:         uuid.NewString(),
		Type:       typ,
		OccurredAt: time.Now().UTC(),
		Payload:    raw,
	}, nil
}

func (e Event) Decode(out interface{}) error {
	return json.Unmarshal(e.Payload, out)
}

type SalesDaySubmittedPayload struct {
	SalesDayID     int64  `json:"sales_day_id"`
	UserID         int64  `json:"user_id"`
	LocationID     int64  `json:"location_id"`
	BusinessDate   string `json:"business_date"`
	ExpectedCash   int64  `json:"expected_cash"`
	ActualCash     int64  `json:"actual_cash"`
	CashDifference int64  `json:"cash_difference"`
}
