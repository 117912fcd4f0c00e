package repository

import (
	"github.com/nimasrn/pos-ledger/internal/model"
)

type UserEntity struct {
	ID         int64  `db:"id"          gorm:"primaryKey;autoIncrement;column:id"`
	FirstName  string `db:"first_name"  gorm:"column:first_name;size:150;not null"`
	LastName   string `db:"last_name"   gorm:"column:last_name;size:150;not null"`
	LocationID int64  `db:"location_id" gorm:"column:location_id;not null;index"`
}

func (UserEntity) TableName() string {
	return "users"
}

type SalesCategoryEntity struct {
	ID         int64  `db:"id"          gorm:"primaryKey;autoIncrement;column:id"`
	Name       string `db:"name"        gorm:"column:name;size:80;not null;uniqueIndex:ux_sales_categories_name"`
	TaxDefault bool   `db:"tax_default" gorm:"column:tax_default;not null"`
	Active     bool   `db:"active"      gorm:"column:active;not null"`
}

func (SalesCategoryEntity) TableName() string {
	return "sales_categories"
}

type PaymentTypeEntity struct {
	ID      int64  `db:"id"      gorm:"primaryKey;autoIncrement;column:id"`
	Name    string `db:"name"    gorm:"column:name;size:80;not null;uniqueIndex:ux_payment_types_name"`
	Taxable bool   `db:"taxable" gorm:"column:taxable;not null"`
	Active  bool   `db:"active"  gorm:"column:active;not null"`
}

func (PaymentTypeEntity) TableName() string {
	return "payment_types"
}

func toUserModel(e *UserEntity) *model.User {
	if e == nil {
		return nil
	}
	return &model.User{
		ID:         e.ID,
		FirstName:  e.FirstName,
		LastName:   e.LastName,
		LocationID: e.LocationID,
	}
}

func toUserModels(entities []*UserEntity) []*model.User {
	models := make([]*model.User, len(entities))
	for i, e := range entities {
		models[i] = toUserModel(e)
	}
	return models
}

func toSalesCategoryModel(e *SalesCategoryEntity) *model.SalesCategory {
	return &model.SalesCategory{ID: e.ID, Name: e.Name, TaxDefault: e.TaxDefault, Active: e.Active}
}

func toPaymentTypeModel(e *PaymentTypeEntity) *model.PaymentType {
	return &model.PaymentType{ID: e.ID, Name: e.Name, Taxable: e.Taxable, Active: e.Active}
}
