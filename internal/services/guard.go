package services

import (
	"context"
	"fmt"
	"time"

	"github.com/nimasrn/pos-ledger/pkg/apperror"
	"github.com/nimasrn/pos-ledger/pkg/logger"
	"github.com/nimasrn/pos-ledger/pkg/prom"
	"github.com/nimasrn/pos-ledger/pkg/redis"
)

// SubmitGuard rejects a second in-flight submit of the same ticket number
// before it reaches the database. The unique constraint on ticket_number
// still has the final word; the guard only turns double clicks into a fast
// conflict.
type SubmitGuard struct {
	adapter redis.RedisAdapter
	ttl     time.Duration
}

func NewSubmitGuard(adapter redis.RedisAdapter, ttl time.Duration) *SubmitGuard {
	if adapter == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &SubmitGuard{adapter: adapter, ttl: ttl}
}

func submitKey(ticketNumber int64) string {
	return fmt.Sprintf("ticket:submit:%d", ticketNumber)
}

// Acquire returns a release func that must be called once the submit has
// finished, whatever its outcome. A Redis failure lets the submit through.
func (g *SubmitGuard) Acquire(ctx context.Context, ticketNumber int64) (func(), error) {
	if g == nil {
		return func() {}, nil
	}
	key := submitKey(ticketNumber)
	ok, err := g.adapter.SetNX(ctx, key, []byte("1"), g.ttl)
	if err != nil {
		logger.Warn("ticket submit guard unavailable", "ticket_number", ticketNumber, "error", err)
		return func() {}, nil
	}
	if !ok {
		prom.IncConflict("ticket_in_flight")
		return nil, apperror.Newf(apperror.CodeConflict, "ticket %d is already being submitted", ticketNumber).
			WithDetails("ticket_number", ticketNumber)
	}
	return func() {
		if err := g.adapter.Del(context.Background(), key); err != nil {
			logger.Warn("ticket submit guard release failed", "ticket_number", ticketNumber, "error", err)
		}
	}, nil
}
