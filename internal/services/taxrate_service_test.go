package services

import (
	"context"
	"testing"
	"time"

	"github.com/nimasrn/pos-ledger/internal/model"
	"github.com/nimasrn/pos-ledger/pkg/apperror"
	"github.com/nimasrn/pos-ledger/pkg/bizdate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaxRateService_SetRate(t *testing.T) {
	f := newFixture(t)
	svc := NewTaxRateService(f.db, f.locations, f.dates, nil)
	ctx := context.Background()

	jan := bizdate.Date(2024, time.January, 1)
	first, err := svc.SetRate(ctx, lakeCharles, model.Rate(1000), jan)
	require.NoError(t, err)
	assert.Nil(t, first.EffectiveTo)

	loc, err := f.locations.Get(ctx, lakeCharles)
	require.NoError(t, err)
	assert.Equal(t, model.Rate(1000), loc.CurrentTaxRate, "a period covering today updates the cached rate")

	mar := bizdate.Date(2024, time.March, 1)
	_, err = svc.SetRate(ctx, lakeCharles, model.Rate(1075), mar)
	require.NoError(t, err)

	history, err := svc.History(ctx, lakeCharles)
	require.NoError(t, err)
	require.Len(t, history, 2)
	require.NotNil(t, history[0].EffectiveTo)
	assert.Equal(t, bizdate.Date(2024, time.February, 29), history[0].EffectiveTo.UTC())
	assert.Nil(t, history[1].EffectiveTo)

	rate, err := f.locations.RateAt(ctx, lakeCharles, bizdate.Date(2024, time.February, 10))
	require.NoError(t, err)
	assert.Equal(t, model.Rate(1000), rate)
	rate, err = f.locations.RateAt(ctx, lakeCharles, today)
	require.NoError(t, err)
	assert.Equal(t, model.Rate(1075), rate)

	loc, err = f.locations.Get(ctx, lakeCharles)
	require.NoError(t, err)
	assert.Equal(t, model.Rate(1075), loc.CurrentTaxRate)

	_, err = svc.SetRate(ctx, lakeCharles, model.Rate(1100), bizdate.Date(2024, time.February, 15))
	requireCode(t, err, apperror.CodeConflict)
	_, err = svc.SetRate(ctx, lakeCharles, model.Rate(1100), mar)
	requireCode(t, err, apperror.CodeConflict)

	future, err := svc.SetRate(ctx, lakeCharles, model.Rate(1200), bizdate.Date(2024, time.June, 1))
	require.NoError(t, err)
	assert.Equal(t, model.Rate(1200), future.Rate)
	loc, err = f.locations.Get(ctx, lakeCharles)
	require.NoError(t, err)
	assert.Equal(t, model.Rate(1075), loc.CurrentTaxRate, "future periods leave the cached rate alone")
}

func TestTaxRateService_Validation(t *testing.T) {
	f := newFixture(t)
	svc := NewTaxRateService(f.db, f.locations, f.dates, nil)
	ctx := context.Background()

	_, err := svc.SetRate(ctx, lakeCharles, model.Rate(-1), today)
	requireCode(t, err, apperror.CodeValidation)
	_, err = svc.SetRate(ctx, lakeCharles, model.Rate(10001), today)
	requireCode(t, err, apperror.CodeValidation)
	_, err = svc.SetRate(ctx, lakeCharles, model.Rate(1000), time.Time{})
	requireCode(t, err, apperror.CodeValidation)
	_, err = svc.SetRate(ctx, 99, model.Rate(1000), today)
	requireCode(t, err, apperror.CodeNotFound)
	_, err = svc.History(ctx, 99)
	requireCode(t, err, apperror.CodeNotFound)
}
