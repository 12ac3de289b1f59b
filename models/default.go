package models

import (
	"context"

	"gorm.io/gorm"
)

// CreateDefaultPosSettings writes the initial settings row for a new
// business. The caller owns the transaction.
func CreateDefaultPosSettings(tx *gorm.DB, ctx context.Context, businessId string, restaurantName string) (*PosSettings, error) {
	settings := PosSettings{
		BusinessId:     businessId,
		RestaurantName: restaurantName,
		StartOfDayTime: DefaultStartOfDayTime,
	}
	if err := tx.WithContext(ctx).Create(&settings).Error; err != nil {
		return nil, err
	}
	return &settings, nil
}

// CreateDefaultUnits seeds the measurement units every new business starts
// with. The symbols line up with the default conversion factor table.
func CreateDefaultUnits(tx *gorm.DB, ctx context.Context, businessId string) ([]*Unit, error) {
	defaults := []Unit{
		{Name: "Kilogram", Symbol: "kg", UnitType: UnitTypeMass},
		{Name: "Gram", Symbol: "g", UnitType: UnitTypeMass},
		{Name: "Litre", Symbol: "l", UnitType: UnitTypeVolume},
		{Name: "Millilitre", Symbol: "ml", UnitType: UnitTypeVolume},
		{Name: "Tablespoon", Symbol: "tbsp", UnitType: UnitTypeVolume},
		{Name: "Teaspoon", Symbol: "tsp", UnitType: UnitTypeVolume},
		{Name: "Cup", Symbol: "cup", UnitType: UnitTypeVolume},
		{Name: "Piece", Symbol: "pc", UnitType: UnitTypeCount},
	}

	results := make([]*Unit, 0, len(defaults))
	for i := range defaults {
		defaults[i].BusinessId = businessId
		if err := tx.WithContext(ctx).Create(&defaults[i]).Error; err != nil {
			return nil, err
		}
		results = append(results, &defaults[i])
	}
	return results, nil
}
