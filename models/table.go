package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/pos_backend/config"
	"bitbucket.org/mmdatafocus/pos_backend/utils"
)

type Table struct {
	ID         int       `gorm:"primary_key" json:"id"`
	BusinessId string    `gorm:"index;not null" json:"business_id"`
	Name       string    `gorm:"size:50;not null" json:"name" binding:"required"`
	Seats      int       `gorm:"default:0" json:"seats"`
	IsActive   *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewTable struct {
	Name  string `json:"name" binding:"required"`
	Seats int    `json:"seats"`
}

func CreateTable(ctx context.Context, input *NewTable) (*Table, error) {
	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}

	if err := utils.ValidateUnique[Table](ctx, businessId, "name", input.Name, 0); err != nil {
		return nil, err
	}

	table := Table{
		BusinessId: businessId,
		Name:       input.Name,
		Seats:      input.Seats,
		IsActive:   utils.NewTrue(),
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&table).Error; err != nil {
		return nil, err
	}
	return &table, nil
}

func UpdateTable(ctx context.Context, id int, input *NewTable) (*Table, error) {
	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}

	if err := utils.ValidateUnique[Table](ctx, businessId, "name", input.Name, id); err != nil {
		return nil, err
	}

	table, err := utils.FetchModel[Table](ctx, businessId, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Model(&table).Updates(map[string]interface{}{
		"Name":  input.Name,
		"Seats": input.Seats,
	}).Error; err != nil {
		return nil, err
	}
	return table, nil
}

func DeleteTable(ctx context.Context, id int) (*Table, error) {
	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}

	table, err := utils.FetchModel[Table](ctx, businessId, id)
	if err != nil {
		return nil, err
	}

	count, err := utils.ResourceCountWhere[TableSession](ctx, businessId, "table_id = ? AND closed_at IS NULL", id)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, errors.New("table has an open session")
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Delete(&table).Error; err != nil {
		return nil, err
	}
	return table, nil
}

func GetTable(ctx context.Context, id int) (*Table, error) {
	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return utils.FetchModel[Table](ctx, businessId, id)
}

func GetTables(ctx context.Context) ([]*Table, error) {
	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	var results []*Table
	if err := db.WithContext(ctx).Where("business_id = ?", businessId).
		Order("name").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
