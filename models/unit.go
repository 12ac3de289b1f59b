package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/pos_backend/config"
	"bitbucket.org/mmdatafocus/pos_backend/utils"
)

// Unit is a measurement unit as entered on recipes and purchases, e.g.
// Gram/g, Teaspoon/tsp, Piece/pc.
type Unit struct {
	ID         int       `gorm:"primary_key" json:"id"`
	BusinessId string    `gorm:"index;not null" json:"business_id"`
	Name       string    `gorm:"size:50;not null" json:"name" binding:"required"`
	Symbol     string    `gorm:"size:10;not null" json:"symbol" binding:"required"`
	UnitType   UnitType  `gorm:"type:enum('Mass','Volume','Count');not null" json:"unit_type" binding:"required"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewUnit struct {
	Name     string   `json:"name" binding:"required"`
	Symbol   string   `json:"symbol" binding:"required"`
	UnitType UnitType `json:"unit_type" binding:"required"`
}

func (input *NewUnit) validate(ctx context.Context, businessId string, id int) error {
	if err := utils.ValidateUnique[Unit](ctx, businessId, "name", input.Name, id); err != nil {
		return err
	}
	if err := utils.ValidateUnique[Unit](ctx, businessId, "symbol", input.Symbol, id); err != nil {
		return err
	}
	return nil
}

func CreateUnit(ctx context.Context, input *NewUnit) (*Unit, error) {
	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}

	if err := input.validate(ctx, businessId, 0); err != nil {
		return nil, err
	}

	unit := Unit{
		BusinessId: businessId,
		Name:       input.Name,
		Symbol:     input.Symbol,
		UnitType:   input.UnitType,
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&unit).Error; err != nil {
		return nil, err
	}
	return &unit, nil
}

func UpdateUnit(ctx context.Context, id int, input *NewUnit) (*Unit, error) {
	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}

	if err := input.validate(ctx, businessId, id); err != nil {
		return nil, err
	}

	unit, err := utils.FetchModel[Unit](ctx, businessId, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Model(&unit).Updates(map[string]interface{}{
		"Name":     input.Name,
		"Symbol":   input.Symbol,
		"UnitType": input.UnitType,
	}).Error; err != nil {
		return nil, err
	}

	if err := clearConversionCache(businessId); err != nil {
		return nil, err
	}
	return unit, nil
}

func DeleteUnit(ctx context.Context, id int) (*Unit, error) {
	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}

	result, err := utils.FetchModel[Unit](ctx, businessId, id)
	if err != nil {
		return nil, err
	}

	// don't delete a unit still referenced by materials, recipes or conversions
	count, err := utils.ResourceCountWhere[RawMaterial](ctx, businessId, "unit_id = ?", id)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, errors.New("used by raw material")
	}
	count, err = utils.ResourceCountWhere[RecipeRawMaterial](ctx, businessId, "unit_id = ?", id)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, errors.New("used by recipe")
	}
	count, err = utils.ResourceCountWhere[RawMaterialUnitConversion](ctx, businessId, "unit_id = ?", id)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, errors.New("used by unit conversion")
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Delete(&result).Error; err != nil {
		return nil, err
	}
	return result, nil
}

func GetUnit(ctx context.Context, id int) (*Unit, error) {
	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return utils.FetchModel[Unit](ctx, businessId, id)
}

func GetUnits(ctx context.Context, name *string) ([]*Unit, error) {
	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	var results []*Unit
	dbCtx := db.WithContext(ctx).Where("business_id = ?", businessId)
	if name != nil && len(*name) > 0 {
		dbCtx = dbCtx.Where("name LIKE ?", "%"+*name+"%")
	}
	if err := dbCtx.Order("name").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
