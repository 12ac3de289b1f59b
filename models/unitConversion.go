package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bitbucket.org/mmdatafocus/pos_backend/config"
	"bitbucket.org/mmdatafocus/pos_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// RawMaterialUnitConversion maps one (raw material, unit) pair to the factor
// that turns a quantity in that unit into base units. Base is grams for mass,
// millilitres for volume and pieces for count. A convention, not a column.
type RawMaterialUnitConversion struct {
	ID            int             `gorm:"primary_key" json:"id"`
	BusinessId    string          `gorm:"uniqueIndex:idx_conversion_key;not null" json:"business_id"`
	RawMaterialId int             `gorm:"uniqueIndex:idx_conversion_key;not null" json:"raw_material_id" binding:"required"`
	UnitId        int             `gorm:"uniqueIndex:idx_conversion_key;not null" json:"unit_id" binding:"required"`
	ToBaseFactor  decimal.Decimal `gorm:"type:decimal(12,6);not null" json:"to_base_factor" binding:"required"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewRawMaterialUnitConversion struct {
	RawMaterialId int             `json:"raw_material_id" binding:"required"`
	UnitId        int             `json:"unit_id" binding:"required"`
	ToBaseFactor  decimal.Decimal `json:"to_base_factor" binding:"required"`
}

type conversionKey struct {
	RawMaterialId int
	UnitId        int
}

func conversionCacheKey(businessId string) string {
	return "ConversionMap:" + businessId
}

func clearConversionCache(businessId string) error {
	return config.RemoveRedisKey(conversionCacheKey(businessId))
}

func (input *NewRawMaterialUnitConversion) validate(ctx context.Context, businessId string, id int) error {
	if !input.ToBaseFactor.IsPositive() {
		return errors.New("to_base_factor must be positive")
	}
	if err := utils.ValidateResourceId[RawMaterial](ctx, businessId, input.RawMaterialId); err != nil {
		return errors.New("raw material not found")
	}
	if err := utils.ValidateResourceId[Unit](ctx, businessId, input.UnitId); err != nil {
		return errors.New("unit not found")
	}

	// at most one factor per (raw_material, unit)
	var count int64
	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Model(&RawMaterialUnitConversion{}).
		Where("business_id = ? AND raw_material_id = ? AND unit_id = ?", businessId, input.RawMaterialId, input.UnitId)
	if id > 0 {
		dbCtx = dbCtx.Where("NOT id = ?", id)
	}
	if err := dbCtx.Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return errors.New("conversion already registered for this material and unit")
	}
	return nil
}

func CreateRawMaterialUnitConversion(ctx context.Context, input *NewRawMaterialUnitConversion) (*RawMaterialUnitConversion, error) {
	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}

	if err := input.validate(ctx, businessId, 0); err != nil {
		return nil, err
	}

	conversion := RawMaterialUnitConversion{
		BusinessId:    businessId,
		RawMaterialId: input.RawMaterialId,
		UnitId:        input.UnitId,
		ToBaseFactor:  input.ToBaseFactor,
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&conversion).Error; err != nil {
		return nil, err
	}
	if err := clearConversionCache(businessId); err != nil {
		return nil, err
	}
	return &conversion, nil
}

func UpdateRawMaterialUnitConversion(ctx context.Context, id int, input *NewRawMaterialUnitConversion) (*RawMaterialUnitConversion, error) {
	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}

	if err := input.validate(ctx, businessId, id); err != nil {
		return nil, err
	}

	conversion, err := utils.FetchModel[RawMaterialUnitConversion](ctx, businessId, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Model(&conversion).Updates(map[string]interface{}{
		"RawMaterialId": input.RawMaterialId,
		"UnitId":        input.UnitId,
		"ToBaseFactor":  input.ToBaseFactor,
	}).Error; err != nil {
		return nil, err
	}
	if err := clearConversionCache(businessId); err != nil {
		return nil, err
	}
	return conversion, nil
}

func DeleteRawMaterialUnitConversion(ctx context.Context, id int) (*RawMaterialUnitConversion, error) {
	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}

	result, err := utils.FetchModel[RawMaterialUnitConversion](ctx, businessId, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Delete(&result).Error; err != nil {
		return nil, err
	}
	if err := clearConversionCache(businessId); err != nil {
		return nil, err
	}
	return result, nil
}

func GetRawMaterialUnitConversions(ctx context.Context, rawMaterialId *int) ([]*RawMaterialUnitConversion, error) {
	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	var results []*RawMaterialUnitConversion
	dbCtx := db.WithContext(ctx).Where("business_id = ?", businessId)
	if rawMaterialId != nil && *rawMaterialId > 0 {
		dbCtx = dbCtx.Where("raw_material_id = ?", *rawMaterialId)
	}
	if err := dbCtx.Order("raw_material_id, unit_id").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// loadConversionMap returns the full (raw material, unit) -> factor map for
// the business, redis first then db. Every write to the conversion table
// clears the cached map.
func loadConversionMap(ctx context.Context, businessId string) (map[conversionKey]decimal.Decimal, error) {
	cacheKey := conversionCacheKey(businessId)

	// redis cannot key maps by struct, so the cached form is a slice
	var cached []RawMaterialUnitConversion
	exists, err := config.GetRedisObject(cacheKey, &cached)
	if err != nil {
		return nil, err
	}
	if !exists {
		db := config.GetDB()
		if err := db.WithContext(ctx).Where("business_id = ?", businessId).Find(&cached).Error; err != nil {
			return nil, err
		}
		if err := config.SetRedisObject(cacheKey, &cached, utils.GetCacheLifespan()); err != nil {
			return nil, err
		}
	}

	conversions := make(map[conversionKey]decimal.Decimal, len(cached))
	for _, c := range cached {
		conversions[conversionKey{RawMaterialId: c.RawMaterialId, UnitId: c.UnitId}] = c.ToBaseFactor
	}
	return conversions, nil
}

// defaultConversionFactors is the seed applied to every new raw material,
// keyed by unit symbol: 1 kg -> 1000 g, 1 tbsp -> 15 ml, and so on.
var defaultConversionFactors = map[string]int64{
	"kg":   1000,
	"g":    1,
	"l":    1000,
	"ml":   1,
	"tbsp": 15,
	"tsp":  5,
	"cup":  240,
	"pc":   1,
}

func seedUnitConversionsTx(tx *gorm.DB, ctx context.Context, businessId string, rawMaterialId int) error {
	var units []Unit
	symbols := make([]string, 0, len(defaultConversionFactors))
	for symbol := range defaultConversionFactors {
		symbols = append(symbols, symbol)
	}
	if err := tx.WithContext(ctx).Where("business_id = ? AND symbol IN ?", businessId, symbols).
		Find(&units).Error; err != nil {
		return err
	}

	for _, unit := range units {
		factor := defaultConversionFactors[unit.Symbol]
		conversion := RawMaterialUnitConversion{
			BusinessId:    businessId,
			RawMaterialId: rawMaterialId,
			UnitId:        unit.ID,
			ToBaseFactor:  decimal.NewFromInt(factor),
		}
		if err := tx.WithContext(ctx).Create(&conversion).Error; err != nil {
			return fmt.Errorf("seed conversion %s: %w", unit.Symbol, err)
		}
	}
	return nil
}
