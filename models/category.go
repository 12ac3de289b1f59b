package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/pos_backend/config"
	"bitbucket.org/mmdatafocus/pos_backend/utils"
)

type Category struct {
	ID         int       `gorm:"primary_key" json:"id"`
	BusinessId string    `gorm:"index;not null" json:"business_id"`
	Name       string    `gorm:"size:100;not null" json:"name" binding:"required"`
	SortOrder  int       `gorm:"default:0" json:"sort_order"`
	IsActive   *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewCategory struct {
	Name      string `json:"name" binding:"required"`
	SortOrder int    `json:"sort_order"`
}

func CreateCategory(ctx context.Context, input *NewCategory) (*Category, error) {
	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}

	if err := utils.ValidateUnique[Category](ctx, businessId, "name", input.Name, 0); err != nil {
		return nil, err
	}

	category := Category{
		BusinessId: businessId,
		Name:       input.Name,
		SortOrder:  input.SortOrder,
		IsActive:   utils.NewTrue(),
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&category).Error; err != nil {
		return nil, err
	}
	if err := utils.RemoveRedisList[Category](businessId); err != nil {
		return nil, err
	}
	return &category, nil
}

func UpdateCategory(ctx context.Context, id int, input *NewCategory) (*Category, error) {
	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}

	if err := utils.ValidateUnique[Category](ctx, businessId, "name", input.Name, id); err != nil {
		return nil, err
	}

	category, err := utils.FetchModel[Category](ctx, businessId, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Model(&category).Updates(map[string]interface{}{
		"Name":      input.Name,
		"SortOrder": input.SortOrder,
	}).Error; err != nil {
		return nil, err
	}
	if err := utils.RemoveRedisList[Category](businessId); err != nil {
		return nil, err
	}
	return category, nil
}

func DeleteCategory(ctx context.Context, id int) (*Category, error) {
	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}

	category, err := utils.FetchModel[Category](ctx, businessId, id)
	if err != nil {
		return nil, err
	}

	count, err := utils.ResourceCountWhere[MenuItem](ctx, businessId, "category_id = ?", id)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, errors.New("category has menu items")
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Delete(&category).Error; err != nil {
		return nil, err
	}
	if err := utils.RemoveRedisList[Category](businessId); err != nil {
		return nil, err
	}
	return category, nil
}

func GetCategory(ctx context.Context, id int) (*Category, error) {
	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return utils.FetchModel[Category](ctx, businessId, id)
}

func GetCategories(ctx context.Context) ([]*Category, error) {
	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}

	cached, err := utils.RetrieveRedisList[Category](businessId)
	if err != nil {
		return nil, err
	}
	if cached != nil {
		return cached, nil
	}

	db := config.GetDB()
	var results []*Category
	if err := db.WithContext(ctx).Where("business_id = ?", businessId).
		Order("sort_order, name").Find(&results).Error; err != nil {
		return nil, err
	}
	if err := utils.StoreRedisList[Category](results, businessId); err != nil {
		return nil, err
	}
	return results, nil
}
