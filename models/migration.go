package models

import (
	"log"

	"bitbucket.org/mmdatafocus/pos_backend/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&Business{}, &PosSettings{}, &User{},
		&Unit{}, &RawMaterialUnitConversion{},
		&Supplier{}, &RawMaterial{}, &InventoryTransaction{},
		&PurchaseOrder{}, &PurchaseOrderItem{},
		&Recipe{}, &RecipeRawMaterial{}, &RecipeSubRecipe{},
		&Category{}, &MenuItem{}, &Deal{}, &DealItem{},
		&PrintStation{}, &TokenSequence{},
		&Table{}, &TableSession{}, &Waiter{},
		&Order{}, &OrderItem{}, &Payment{},
		&KitchenVoucher{}, &KitchenVoucherItem{},
	)
	if err != nil {
		log.Fatal(err)
	}
}
