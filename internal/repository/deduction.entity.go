package repository

import (
	"time"

	"github.com/nimasrn/pos-ledger/internal/model"
)

type DeductionEntity struct {
	ID     int64     `db:"id"      gorm:"primaryKey;autoIncrement;column:id"`
	UserID int64     `db:"user_id" gorm:"column:user_id;not null;index"`
	Amount int64     `db:"amount"  gorm:"column:amount;not null"`
	Reason string    `db:"reason"  gorm:"column:reason;size:300;not null"`
	Date   time.Time `db:"date"    gorm:"column:date;type:date;not null;index"`
}

func (DeductionEntity) TableName() string {
	return "deductions"
}

func toDeductionEntity(m *model.Deduction) *DeductionEntity {
	return &DeductionEntity{
		ID:     m.ID,
		UserID: m.UserID,
		Amount: m.Amount,
		Reason: m.Reason,
		Date:   m.Date,
	}
}

func toDeductionModel(e *DeductionEntity) *model.Deduction {
	return &model.Deduction{
		ID:     e.ID,
		UserID: e.UserID,
		Amount: e.Amount,
		Reason: e.Reason,
		Date:   e.Date,
	}
}

func toDeductionModels(entities []*DeductionEntity) []*model.Deduction {
	models := make([]*model.Deduction, len(entities))
	for i, e := range entities {
		models[i] = toDeductionModel(e)
	}
	return models
}
