package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/pos_backend/config"
	"bitbucket.org/mmdatafocus/pos_backend/utils"
	"github.com/shopspring/decimal"
)

// RawMaterial is a stocked ingredient. CurrentStock is maintained only by
// inventory transactions; nothing else writes it.
type RawMaterial struct {
	ID           int             `gorm:"primary_key" json:"id"`
	BusinessId   string          `gorm:"index;not null" json:"business_id"`
	Name         string          `gorm:"size:100;not null" json:"name" binding:"required"`
	UnitId       int             `gorm:"not null" json:"unit_id" binding:"required"`
	Unit         *Unit           `json:"unit,omitempty"`
	CurrentStock decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"current_stock"`
	ReorderLevel decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"reorder_level"`
	SupplierId   int             `gorm:"index" json:"supplier_id"`
	IsActive     *bool           `gorm:"not null;default:true" json:"is_active"`
	CreatedAt    time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewRawMaterial struct {
	Name         string          `json:"name" binding:"required"`
	UnitId       int             `json:"unit_id" binding:"required"`
	ReorderLevel decimal.Decimal `json:"reorder_level"`
	SupplierId   int             `json:"supplier_id"`
}

func (input *NewRawMaterial) validate(ctx context.Context, businessId string, id int) error {
	if err := utils.ValidateUnique[RawMaterial](ctx, businessId, "name", input.Name, id); err != nil {
		return err
	}
	if err := utils.ValidateResourceId[Unit](ctx, businessId, input.UnitId); err != nil {
		return errors.New("unit not found")
	}
	if input.SupplierId > 0 {
		if err := utils.ValidateResourceId[Supplier](ctx, businessId, input.SupplierId); err != nil {
			return errors.New("supplier not found")
		}
	}
	return nil
}

// CreateRawMaterial creates the material and seeds the standard conversion
// factors for it in the same transaction, so costing works out of the box.
func CreateRawMaterial(ctx context.Context, input *NewRawMaterial) (*RawMaterial, error) {
	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}

	if err := input.validate(ctx, businessId, 0); err != nil {
		return nil, err
	}

	material := RawMaterial{
		BusinessId:   businessId,
		Name:         input.Name,
		UnitId:       input.UnitId,
		ReorderLevel: input.ReorderLevel,
		SupplierId:   input.SupplierId,
		IsActive:     utils.NewTrue(),
	}

	db := config.GetDB()
	tx := db.Begin()

	if err := tx.WithContext(ctx).Create(&material).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := seedUnitConversionsTx(tx, ctx, businessId, material.ID); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	if err := clearConversionCache(businessId); err != nil {
		return nil, err
	}
	return &material, nil
}

func UpdateRawMaterial(ctx context.Context, id int, input *NewRawMaterial) (*RawMaterial, error) {
	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}

	if err := input.validate(ctx, businessId, id); err != nil {
		return nil, err
	}

	material, err := utils.FetchModel[RawMaterial](ctx, businessId, id)
	if err != nil {
		return nil, err
	}

	// CurrentStock is deliberately absent: it belongs to the transaction ledger
	db := config.GetDB()
	if err := db.WithContext(ctx).Model(&material).Updates(map[string]interface{}{
		"Name":         input.Name,
		"UnitId":       input.UnitId,
		"ReorderLevel": input.ReorderLevel,
		"SupplierId":   input.SupplierId,
	}).Error; err != nil {
		return nil, err
	}
	return material, nil
}

func DeleteRawMaterial(ctx context.Context, id int) (*RawMaterial, error) {
	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}

	result, err := utils.FetchModel[RawMaterial](ctx, businessId, id)
	if err != nil {
		return nil, err
	}

	count, err := utils.ResourceCountWhere[RecipeRawMaterial](ctx, businessId, "raw_material_id = ?", id)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, errors.New("used by recipe")
	}
	count, err = utils.ResourceCountWhere[PurchaseOrderItem](ctx, businessId, "raw_material_id = ?", id)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, errors.New("used by purchase order")
	}

	db := config.GetDB()
	tx := db.Begin()
	if err := tx.WithContext(ctx).Where("business_id = ? AND raw_material_id = ?", businessId, id).
		Delete(&RawMaterialUnitConversion{}).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.WithContext(ctx).Delete(&result).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	if err := clearConversionCache(businessId); err != nil {
		return nil, err
	}
	return result, nil
}

func GetRawMaterial(ctx context.Context, id int) (*RawMaterial, error) {
	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return utils.FetchModel[RawMaterial](ctx, businessId, id, "Unit")
}

func GetRawMaterials(ctx context.Context, name *string) ([]*RawMaterial, error) {
	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	var results []*RawMaterial
	dbCtx := db.WithContext(ctx).Preload("Unit").Where("business_id = ?", businessId)
	if name != nil && len(*name) > 0 {
		dbCtx = dbCtx.Where("name LIKE ?", "%"+*name+"%")
	}
	if err := dbCtx.Order("name").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// GetLowStockRawMaterials lists materials at or below their reorder level.
func GetLowStockRawMaterials(ctx context.Context) ([]*RawMaterial, error) {
	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	var results []*RawMaterial
	if err := db.WithContext(ctx).Preload("Unit").
		Where("business_id = ? AND reorder_level > 0 AND current_stock <= reorder_level", businessId).
		Order("name").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
