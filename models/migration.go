package models

import (
	"log"

	"bitbucket.org/mmdatafocus/realapp_backend/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&RealappSettings{},
		&Project{}, &Block{}, &BlockPaymentScheme{}, &BlockTowerMilestone{}, &Floor{},
		&Unit{},
		&PaymentSchemeTemplate{}, &PaymentSchemeDetail{},
		&CostSheet{}, &PaymentScheduleRow{},
		&BookingOrder{},
		&SalesInvoice{}, &SalesInvoiceDetail{},
		&IdempotencyKey{},
	)
	if err != nil {
		log.Fatal(err)
	}
}
