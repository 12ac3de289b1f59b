package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/pos_backend/config"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// InventoryTransaction is the stock ledger. RawMaterial.CurrentStock is a
// running balance maintained here and nowhere else.
type InventoryTransaction struct {
	ID            int                      `gorm:"primary_key" json:"id"`
	BusinessId    string                   `gorm:"index;not null" json:"business_id"`
	RawMaterialId int                      `gorm:"index;not null" json:"raw_material_id"`
	RawMaterial   *RawMaterial             `json:"raw_material,omitempty"`
	Type          InventoryTransactionType `gorm:"type:varchar(20);not null" json:"type"`
	// Quantity is in the material's base unit, always positive. Posting
	// paths convert from the document's unit before they get here.
	Quantity      decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"quantity"`
	ReferenceType string          `gorm:"size:50" json:"reference_type"`
	ReferenceId   int             `json:"reference_id"`
	Note          string          `gorm:"size:255" json:"note"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

type NewInventoryTransaction struct {
	RawMaterialId int                      `json:"raw_material_id" binding:"required"`
	Type          InventoryTransactionType `json:"type" binding:"required"`
	Quantity      decimal.Decimal          `json:"quantity" binding:"required"`
	ReferenceType string                   `json:"reference_type"`
	ReferenceId   int                      `json:"reference_id"`
	Note          string                   `json:"note"`
}

func stockDelta(txType InventoryTransactionType, qty decimal.Decimal) (decimal.Decimal, error) {
	switch txType {
	case InventoryTransactionTypeIn, InventoryTransactionTypeReturn:
		return qty, nil
	case InventoryTransactionTypeOut:
		return qty.Neg(), nil
	default:
		return decimal.Zero, errors.New("unknown inventory transaction type")
	}
}

// postInventoryTransactionTx records the movement and adjusts the running
// balance under a row lock on the material. Callers own the transaction.
func postInventoryTransactionTx(tx *gorm.DB, ctx context.Context, businessId string, input *NewInventoryTransaction) (*InventoryTransaction, error) {
	if !input.Quantity.IsPositive() {
		return nil, errors.New("quantity must be positive")
	}

	delta, err := stockDelta(input.Type, input.Quantity)
	if err != nil {
		return nil, err
	}

	var material RawMaterial
	if err := tx.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("business_id = ? AND id = ?", businessId, input.RawMaterialId).
		First(&material).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("raw material not found")
		}
		return nil, err
	}

	record := InventoryTransaction{
		BusinessId:    businessId,
		RawMaterialId: input.RawMaterialId,
		Type:          input.Type,
		Quantity:      input.Quantity,
		ReferenceType: input.ReferenceType,
		ReferenceId:   input.ReferenceId,
		Note:          input.Note,
	}
	if err := tx.WithContext(ctx).Create(&record).Error; err != nil {
		return nil, err
	}

	newStock := material.CurrentStock.Add(delta)
	if err := tx.WithContext(ctx).Model(&material).
		Update("current_stock", newStock).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

// CreateInventoryTransaction posts a manual stock adjustment.
func CreateInventoryTransaction(ctx context.Context, input *NewInventoryTransaction) (*InventoryTransaction, error) {
	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	var record *InventoryTransaction
	err = db.Transaction(func(tx *gorm.DB) error {
		record, err = postInventoryTransactionTx(tx, ctx, businessId, input)
		return err
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

// PostInventoryTransactions posts a batch atomically, in one transaction.
func PostInventoryTransactions(ctx context.Context, inputs []NewInventoryTransaction) ([]*InventoryTransaction, error) {
	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	records := make([]*InventoryTransaction, 0, len(inputs))
	err = db.Transaction(func(tx *gorm.DB) error {
		for i := range inputs {
			record, err := postInventoryTransactionTx(tx, ctx, businessId, &inputs[i])
			if err != nil {
				return err
			}
			records = append(records, record)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

func GetInventoryTransactions(ctx context.Context, rawMaterialId *int, from *time.Time, to *time.Time) ([]*InventoryTransaction, error) {
	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	var results []*InventoryTransaction
	dbCtx := db.WithContext(ctx).Preload("RawMaterial").Where("business_id = ?", businessId)
	if rawMaterialId != nil {
		dbCtx = dbCtx.Where("raw_material_id = ?", *rawMaterialId)
	}
	if from != nil {
		dbCtx = dbCtx.Where("created_at >= ?", *from)
	}
	if to != nil {
		dbCtx = dbCtx.Where("created_at < ?", *to)
	}
	if err := dbCtx.Order("created_at DESC, id DESC").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
