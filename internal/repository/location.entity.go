package repository

import (
	"time"

	"github.com/nimasrn/pos-ledger/internal/model"
)

type LocationEntity struct {
	ID             int64      `db:"id"               gorm:"primaryKey;autoIncrement;column:id"`
	Name           string     `db:"name"             gorm:"column:name;size:120;not null;uniqueIndex:ux_locations_name"`
	Code           string     `db:"code"             gorm:"column:code;size:40;not null;uniqueIndex:ux_locations_code"`
	Address        string     `db:"address"          gorm:"column:address;size:255"`
	CurrentTaxRate model.Rate `db:"current_tax_rate" gorm:"column:current_tax_rate;type:numeric(5,4);not null"`
}

func (LocationEntity) TableName() string {
	return "locations"
}

type TaxRateEntity struct {
	ID            int64      `db:"id"             gorm:"primaryKey;autoIncrement;column:id"`
	LocationID    int64      `db:"location_id"    gorm:"column:location_id;not null;index:ix_tax_rates_location_from,priority:1"`
	Rate          model.Rate `db:"rate"           gorm:"column:rate;type:numeric(5,4);not null"`
	EffectiveFrom time.Time  `db:"effective_from" gorm:"column:effective_from;type:date;not null;index:ix_tax_rates_location_from,priority:2"`
	EffectiveTo   *time.Time `db:"effective_to"   gorm:"column:effective_to;type:date"`
}

func (TaxRateEntity) TableName() string {
	return "tax_rates"
}

func toLocationEntity(m *model.Location) *LocationEntity {
	if m == nil {
		return nil
	}
	return &LocationEntity{
		ID:             m.ID,
		Name:           m.Name,
		Code:           m.Code,
		Address:        m.Address,
		CurrentTaxRate: m.CurrentTaxRate,
	}
}

func toLocationModel(e *LocationEntity) *model.Location {
	if e == nil {
		return nil
	}
	return &model.Location{
		ID:             e.ID,
		Name:           e.Name,
		Code:           e.Code,
		Address:        e.Address,
		CurrentTaxRate: e.CurrentTaxRate,
	}
}

func toLocationModels(entities []*LocationEntity) []*model.Location {
	models := make([]*model.Location, len(entities))
	for i, e := range entities {
		models[i] = toLocationModel(e)
	}
	return models
}

func toTaxRateEntity(m *model.TaxRate) *TaxRateEntity {
	return &TaxRateEntity{
		ID:            m.ID,
		LocationID:    m.LocationID,
		Rate:          m.Rate,
		EffectiveFrom: m.EffectiveFrom,
		EffectiveTo:   m.EffectiveTo,
	}
}

func toTaxRateModel(e *TaxRateEntity) *model.TaxRate {
	return &model.TaxRate{
		ID:            e.ID,
		LocationID:    e.LocationID,
		Rate:          e.Rate,
		EffectiveFrom: e.EffectiveFrom,
		EffectiveTo:   e.EffectiveTo,
	}
}
