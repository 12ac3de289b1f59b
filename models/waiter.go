package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/pos_backend/config"
	"bitbucket.org/mmdatafocus/pos_backend/utils"
)

type Waiter struct {
	ID         int       `gorm:"primary_key" json:"id"`
	BusinessId string    `gorm:"index;not null" json:"business_id"`
	Name       string    `gorm:"size:100;not null" json:"name" binding:"required"`
	Phone      string    `gorm:"size:20" json:"phone"`
	IsActive   *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewWaiter struct {
	Name  string `json:"name" binding:"required"`
	Phone string `json:"phone"`
}

func CreateWaiter(ctx context.Context, input *NewWaiter) (*Waiter, error) {
	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}

	if err := utils.ValidateUnique[Waiter](ctx, businessId, "name", input.Name, 0); err != nil {
		return nil, err
	}

	waiter := Waiter{
		BusinessId: businessId,
		Name:       input.Name,
		Phone:      input.Phone,
		IsActive:   utils.NewTrue(),
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&waiter).Error; err != nil {
		return nil, err
	}
	return &waiter, nil
}

func UpdateWaiter(ctx context.Context, id int, input *NewWaiter) (*Waiter, error) {
	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}

	if err := utils.ValidateUnique[Waiter](ctx, businessId, "name", input.Name, id); err != nil {
		return nil, err
	}

	waiter, err := utils.FetchModel[Waiter](ctx, businessId, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Model(&waiter).Updates(map[string]interface{}{
		"Name":  input.Name,
		"Phone": input.Phone,
	}).Error; err != nil {
		return nil, err
	}
	return waiter, nil
}

func DeleteWaiter(ctx context.Context, id int) (*Waiter, error) {
	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}

	waiter, err := utils.FetchModel[Waiter](ctx, businessId, id)
	if err != nil {
		return nil, err
	}

	count, err := utils.ResourceCountWhere[Order](ctx, businessId, "waiter_id = ?", id)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, errors.New("waiter has orders")
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Delete(&waiter).Error; err != nil {
		return nil, err
	}
	return waiter, nil
}

func GetWaiters(ctx context.Context) ([]*Waiter, error) {
	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	var results []*Waiter
	if err := db.WithContext(ctx).Where("business_id = ?", businessId).
		Order("name").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
