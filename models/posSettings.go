package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/pos_backend/config"
	"bitbucket.org/mmdatafocus/pos_backend/utils"
)

// DefaultStartOfDayTime is the business-day cutoff used when the settings
// row is missing or unreadable.
const DefaultStartOfDayTime = "06:00"

// PosSettings is a per-business singleton. StartOfDayTime ("HH:MM", local to
// the business timezone) decides which calendar date owns a timestamp: before
// the cutoff the previous date does, at or after it the current date does.
type PosSettings struct {
	ID             int       `gorm:"primary_key" json:"id"`
	BusinessId     string    `gorm:"uniqueIndex;not null" json:"business_id"`
	RestaurantName string    `gorm:"size:200;not null" json:"restaurant_name"`
	StartOfDayTime string    `gorm:"size:5;not null;default:'06:00'" json:"start_of_day_time"`
	ThemeColor     string    `gorm:"size:7;default:'#ff5722'" json:"theme_color"`
	ReceiptFooter  string    `gorm:"type:text" json:"receipt_footer"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewPosSettings struct {
	RestaurantName string `json:"restaurant_name" binding:"required"`
	StartOfDayTime string `json:"start_of_day_time" binding:"required"`
	ThemeColor     string `json:"theme_color"`
	ReceiptFooter  string `json:"receipt_footer"`
}

func posSettingsCacheKey(businessId string) string {
	return "PosSettings:" + businessId
}

// GetPosSettings reads the singleton, redis first then db. Callers that only
// need the cutoff should tolerate ErrorRecordNotFound and fall back to
// DefaultStartOfDayTime.
func GetPosSettings(ctx context.Context) (*PosSettings, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	var settings *PosSettings
	exists, err := config.GetRedisObject(posSettingsCacheKey(businessId), &settings)
	if err != nil {
		return nil, err
	}
	if exists {
		return settings, nil
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Where("business_id = ?", businessId).First(&settings).Error; err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	if err := config.SetRedisObject(posSettingsCacheKey(businessId), &settings, 0); err != nil {
		return nil, err
	}
	return settings, nil
}

func UpdatePosSettings(ctx context.Context, input *NewPosSettings) (*PosSettings, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	if _, err := parseStartOfDay(input.StartOfDayTime); err != nil {
		return nil, errors.New("start_of_day_time must be HH:MM")
	}

	var settings PosSettings
	db := config.GetDB()
	if err := db.WithContext(ctx).Where("business_id = ?", businessId).First(&settings).Error; err != nil {
		return nil, utils.ErrorRecordNotFound
	}

	if err := db.WithContext(ctx).Model(&settings).Updates(map[string]interface{}{
		"RestaurantName": input.RestaurantName,
		"StartOfDayTime": input.StartOfDayTime,
		"ThemeColor":     input.ThemeColor,
		"ReceiptFooter":  input.ReceiptFooter,
	}).Error; err != nil {
		return nil, err
	}

	// The cutoff feeds business-day derivation on every sequence request, so
	// a stale cache would shift token numbering. Drop it eagerly.
	if err := config.RemoveRedisKey(posSettingsCacheKey(businessId)); err != nil {
		return nil, err
	}
	return &settings, nil
}
