package processor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nimasrn/pos-ledger/internal/events"
	"github.com/nimasrn/pos-ledger/internal/model"
	"github.com/nimasrn/pos-ledger/pkg/bizdate"
	"github.com/nimasrn/pos-ledger/pkg/logger"
)

type ReportBuilder interface {
	Build(ctx context.Context, req model.ReportRequest) (*model.Report, error)
}

// ReportWarmer rebuilds the end-of-day reports a manager is about to open
// right after a sales day is submitted, so the first read hits the cache.
type ReportWarmer struct {
	reports     ReportBuilder
	idempotency *IdempotencyService
}

func NewReportWarmer(reports ReportBuilder, idempotency *IdempotencyService) *ReportWarmer {
	return &ReportWarmer{
		reports:     reports,
		idempotency: idempotency,
	}
}

func (p *ReportWarmer) GetType() events.Type {
	return events.SalesDaySubmitted
}

// Process returns nil for events it can never handle so they are acked
// rather than retried.
func (p *ReportWarmer) Process(ctx context.Context, d *events.Delivery) error {
	var payload events.SalesDaySubmittedPayload
	if err := d.Event.Decode(&payload); err != nil {
		logger.Error("malformed sales day event", "event_id", d.Event.ID, "error", err)
		return nil
	}
	day, err := bizdate.ParseDate(payload.BusinessDate)
	if err != nil {
		logger.Error("malformed sales day event", "event_id", d.Event.ID, "error", err)
		return nil
	}

	var pc *ProcessingContext
	if p.idempotency != nil {
		pc, err = p.idempotency.AcquireProcessingLock(ctx, d.Event.ID)
		switch {
		case errors.Is(err, ErrAlreadyProcessed):
			return nil
		case errors.Is(err, ErrMaxRetriesExceeded):
			logger.Error("giving up on report warmup", "event_id", d.Event.ID, "sales_day_id", payload.SalesDayID)
			return nil
		case err != nil:
			return err
		}
	}

	if err := p.warm(ctx, payload, day); err != nil {
		if pc != nil {
			_ = p.idempotency.MarkFailure(ctx, pc, err)
		}
		return err
	}

	if pc != nil {
		if err := p.idempotency.MarkSuccess(ctx, pc); err != nil {
			logger.Warn("failed to mark event processed", "event_id", d.Event.ID, "error", err)
		}
	}
	logger.Info("reports warmed", "sales_day_id", payload.SalesDayID, "user_id", payload.UserID, "date", payload.BusinessDate)
	return nil
}

// warm builds the submitting user's day and the whole location's day.
func (p *ReportWarmer) warm(ctx context.Context, payload events.SalesDaySubmittedPayload, day time.Time) error {
	userID, locationID := payload.UserID, payload.LocationID
	requests := []model.ReportRequest{
		{Type: model.ReportUserEOD, Start: day, UserID: &userID},
		{Type: model.ReportLocation, Start: day, LocationID: &locationID},
	}
	for _, req := range requests {
		if _, err := p.reports.Build(ctx, req); err != nil {
			return fmt.Errorf("warm %s report: %w", req.Type, err)
		}
	}
	return nil
}
