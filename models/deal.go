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

// Deal bundles menu items at a combined price. CostPrice is the sum of the
// member items' cost prices times their quantities.
type Deal struct {
	ID         int             `gorm:"primary_key" json:"id"`
	BusinessId string          `gorm:"index;not null" json:"business_id"`
	Name       string          `gorm:"size:100;not null" json:"name" binding:"required"`
	Price      decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"price"`
	CostPrice  decimal.Decimal `gorm:"type:decimal(20,2);default:0" json:"cost_price"`
	IsActive   *bool           `gorm:"not null;default:true" json:"is_active"`
	Items      []DealItem      `json:"items,omitempty"`
	CreatedAt  time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type DealItem struct {
	ID         int       `gorm:"primary_key" json:"id"`
	BusinessId string    `gorm:"index;not null" json:"business_id"`
	DealId     int       `gorm:"index;not null" json:"deal_id"`
	MenuItemId int       `gorm:"index;not null" json:"menu_item_id"`
	MenuItem   *MenuItem `json:"menu_item,omitempty"`
	Quantity   int       `gorm:"not null;default:1" json:"quantity"`
}

type NewDealItem struct {
	MenuItemId int `json:"menu_item_id" binding:"required"`
	Quantity   int `json:"quantity" binding:"required,min=1"`
}

type NewDeal struct {
	Name  string          `json:"name" binding:"required"`
	Price decimal.Decimal `json:"price" binding:"required"`
	Items []NewDealItem   `json:"items" binding:"required,min=1"`
}

func (input *NewDeal) validate(ctx context.Context, businessId string, id int) error {
	if err := utils.ValidateUnique[Deal](ctx, businessId, "name", input.Name, id); err != nil {
		return err
	}
	if input.Price.IsNegative() {
		return errors.New("price must not be negative")
	}
	for _, item := range input.Items {
		if err := utils.ValidateResourceId[MenuItem](ctx, businessId, item.MenuItemId); err != nil {
			return fmt.Errorf("menu item %d not found", item.MenuItemId)
		}
	}
	return nil
}

func dealCostPrice(ctx context.Context, businessId string, items []NewDealItem) (decimal.Decimal, error) {
	cost := decimal.Zero
	for _, item := range items {
		menuItem, err := utils.FetchModel[MenuItem](ctx, businessId, item.MenuItemId)
		if err != nil {
			return decimal.Zero, err
		}
		cost = cost.Add(menuItem.CostPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return cost.Round(2), nil
}

func CreateDeal(ctx context.Context, input *NewDeal) (*Deal, error) {
	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}

	if err := input.validate(ctx, businessId, 0); err != nil {
		return nil, err
	}

	cost, err := dealCostPrice(ctx, businessId, input.Items)
	if err != nil {
		return nil, err
	}

	deal := Deal{
		BusinessId: businessId,
		Name:       input.Name,
		Price:      input.Price,
		CostPrice:  cost,
		IsActive:   utils.NewTrue(),
	}
	for _, item := range input.Items {
		deal.Items = append(deal.Items, DealItem{
			BusinessId: businessId,
			MenuItemId: item.MenuItemId,
			Quantity:   item.Quantity,
		})
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&deal).Error; err != nil {
		return nil, err
	}
	if err := utils.RemoveRedisList[Deal](businessId); err != nil {
		return nil, err
	}
	return &deal, nil
}

func UpdateDeal(ctx context.Context, id int, input *NewDeal) (*Deal, error) {
	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}

	if err := input.validate(ctx, businessId, id); err != nil {
		return nil, err
	}

	deal, err := utils.FetchModel[Deal](ctx, businessId, id)
	if err != nil {
		return nil, err
	}

	cost, err := dealCostPrice(ctx, businessId, input.Items)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.WithContext(ctx).Model(&deal).Updates(map[string]interface{}{
			"Name":      input.Name,
			"Price":     input.Price,
			"CostPrice": cost,
		}).Error; err != nil {
			return err
		}
		if err := tx.WithContext(ctx).Where("business_id = ? AND deal_id = ?", businessId, id).
			Delete(&DealItem{}).Error; err != nil {
			return err
		}
		for _, item := range input.Items {
			if err := tx.WithContext(ctx).Create(&DealItem{
				BusinessId: businessId,
				DealId:     id,
				MenuItemId: item.MenuItemId,
				Quantity:   item.Quantity,
			}).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if err := utils.RemoveRedisList[Deal](businessId); err != nil {
		return nil, err
	}
	return GetDeal(ctx, id)
}

func DeleteDeal(ctx context.Context, id int) (*Deal, error) {
	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}

	deal, err := utils.FetchModel[Deal](ctx, businessId, id)
	if err != nil {
		return nil, err
	}

	count, err := utils.ResourceCountWhere[OrderItem](ctx, businessId, "deal_id = ?", id)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, errors.New("used by order")
	}

	db := config.GetDB()
	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.WithContext(ctx).Where("business_id = ? AND deal_id = ?", businessId, id).
			Delete(&DealItem{}).Error; err != nil {
			return err
		}
		return tx.WithContext(ctx).Delete(&deal).Error
	})
	if err != nil {
		return nil, err
	}
	if err := utils.RemoveRedisList[Deal](businessId); err != nil {
		return nil, err
	}
	return deal, nil
}

func GetDeal(ctx context.Context, id int) (*Deal, error) {
	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return utils.FetchModel[Deal](ctx, businessId, id, "Items", "Items.MenuItem")
}

func GetDeals(ctx context.Context) ([]*Deal, error) {
	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}

	cached, err := utils.RetrieveRedisList[Deal](businessId)
	if err != nil {
		return nil, err
	}
	if cached != nil {
		return cached, nil
	}

	db := config.GetDB()
	var results []*Deal
	if err := db.WithContext(ctx).Preload("Items").Where("business_id = ?", businessId).
		Order("name").Find(&results).Error; err != nil {
		return nil, err
	}
	if err := utils.StoreRedisList[Deal](results, businessId); err != nil {
		return nil, err
	}
	return results, nil
}
