package repository

import (
	"gorm.io/gorm"
)

// Entities lists every table owned by the ledger, parents first.
func Entities() []interface{} {
	return []interface{}{
		&LocationEntity{},
		&TaxRateEntity{},
		&UserEntity{},
		&SalesCategoryEntity{},
		&PaymentTypeEntity{},
		&SalesDayEntity{},
		&TicketEntity{},
		&TransactionEntity{},
		&LineItemEntity{},
		&TenderEntity{},
		&LineItemTenderEntity{},
		&DeductionEntity{},
	}
}

// Migrate builds the schema from the entities. Production uses the goose
// files under migrations/; this is for tests and local sqlite runs.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Entities()...); err != nil {
		return err
	}
	return db.Exec(OpenSalesDayIndexSQL).Error
}
