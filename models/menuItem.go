package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/pos_backend/config"
	"bitbucket.org/mmdatafocus/pos_backend/utils"
	"github.com/shopspring/decimal"
)

// MenuItem is a sellable dish. CostPrice is the last computed batch cost of
// its recipe, refreshed by the costing workflow, zero for items without one.
type MenuItem struct {
	ID         int             `gorm:"primary_key" json:"id"`
	BusinessId string          `gorm:"index;not null" json:"business_id"`
	Name       string          `gorm:"size:100;not null" json:"name" binding:"required"`
	CategoryId int             `gorm:"index;not null" json:"category_id" binding:"required"`
	Category   *Category       `json:"category,omitempty"`
	Price      decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"price"`
	CostPrice  decimal.Decimal `gorm:"type:decimal(20,2);default:0" json:"cost_price"`
	RecipeId   *int            `gorm:"index" json:"recipe_id"`
	Recipe     *Recipe         `json:"recipe,omitempty"`
	StationId  *int            `gorm:"index" json:"station_id"`
	IsActive   *bool           `gorm:"not null;default:true" json:"is_active"`
	CreatedAt  time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewMenuItem struct {
	Name       string          `json:"name" binding:"required"`
	CategoryId int             `json:"category_id" binding:"required"`
	Price      decimal.Decimal `json:"price" binding:"required"`
	RecipeId   *int            `json:"recipe_id"`
	StationId  *int            `json:"station_id"`
}

func (input *NewMenuItem) validate(ctx context.Context, businessId string, id int) error {
	if err := utils.ValidateUnique[MenuItem](ctx, businessId, "name", input.Name, id); err != nil {
		return err
	}
	if err := utils.ValidateResourceId[Category](ctx, businessId, input.CategoryId); err != nil {
		return errors.New("category not found")
	}
	if input.Price.IsNegative() {
		return errors.New("price must not be negative")
	}
	if input.RecipeId != nil {
		if err := utils.ValidateResourceId[Recipe](ctx, businessId, *input.RecipeId); err != nil {
			return errors.New("recipe not found")
		}
	}
	if input.StationId != nil {
		if err := utils.ValidateResourceId[PrintStation](ctx, businessId, *input.StationId); err != nil {
			return errors.New("print station not found")
		}
	}
	return nil
}

func CreateMenuItem(ctx context.Context, input *NewMenuItem) (*MenuItem, error) {
	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}

	if err := input.validate(ctx, businessId, 0); err != nil {
		return nil, err
	}

	item := MenuItem{
		BusinessId: businessId,
		Name:       input.Name,
		CategoryId: input.CategoryId,
		Price:      input.Price,
		RecipeId:   input.RecipeId,
		StationId:  input.StationId,
		IsActive:   utils.NewTrue(),
	}
	if input.RecipeId != nil {
		cost, err := ComputeRecipeCost(ctx, *input.RecipeId)
		if err != nil {
			return nil, err
		}
		item.CostPrice = cost
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&item).Error; err != nil {
		return nil, err
	}
	if err := utils.RemoveRedisList[MenuItem](businessId); err != nil {
		return nil, err
	}
	return &item, nil
}

func UpdateMenuItem(ctx context.Context, id int, input *NewMenuItem) (*MenuItem, error) {
	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}

	if err := input.validate(ctx, businessId, id); err != nil {
		return nil, err
	}

	item, err := utils.FetchModel[MenuItem](ctx, businessId, id)
	if err != nil {
		return nil, err
	}

	costPrice := item.CostPrice
	if input.RecipeId == nil {
		costPrice = decimal.Zero
	} else if item.RecipeId == nil || *item.RecipeId != *input.RecipeId {
		costPrice, err = ComputeRecipeCost(ctx, *input.RecipeId)
		if err != nil {
			return nil, err
		}
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Model(&item).Updates(map[string]interface{}{
		"Name":       input.Name,
		"CategoryId": input.CategoryId,
		"Price":      input.Price,
		"CostPrice":  costPrice,
		"RecipeId":   input.RecipeId,
		"StationId":  input.StationId,
	}).Error; err != nil {
		return nil, err
	}
	if err := utils.RemoveRedisList[MenuItem](businessId); err != nil {
		return nil, err
	}
	return item, nil
}

func DeleteMenuItem(ctx context.Context, id int) (*MenuItem, error) {
	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}

	item, err := utils.FetchModel[MenuItem](ctx, businessId, id)
	if err != nil {
		return nil, err
	}

	count, err := utils.ResourceCountWhere[OrderItem](ctx, businessId, "menu_item_id = ?", id)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, errors.New("used by order")
	}
	count, err = utils.ResourceCountWhere[DealItem](ctx, businessId, "menu_item_id = ?", id)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, errors.New("used by deal")
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Delete(&item).Error; err != nil {
		return nil, err
	}
	if err := utils.RemoveRedisList[MenuItem](businessId); err != nil {
		return nil, err
	}
	return item, nil
}

func GetMenuItem(ctx context.Context, id int) (*MenuItem, error) {
	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return utils.FetchModel[MenuItem](ctx, businessId, id, "Category", "Recipe")
}

func GetMenuItems(ctx context.Context, categoryId *int) ([]*MenuItem, error) {
	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}

	// only the unfiltered menu is cached
	if categoryId == nil {
		cached, err := utils.RetrieveRedisList[MenuItem](businessId)
		if err != nil {
			return nil, err
		}
		if cached != nil {
			return cached, nil
		}
	}

	db := config.GetDB()
	var results []*MenuItem
	dbCtx := db.WithContext(ctx).Preload("Category").Where("business_id = ?", businessId)
	if categoryId != nil {
		dbCtx = dbCtx.Where("category_id = ?", *categoryId)
	}
	if err := dbCtx.Order("name").Find(&results).Error; err != nil {
		return nil, err
	}
	if categoryId == nil {
		if err := utils.StoreRedisList[MenuItem](results, businessId); err != nil {
			return nil, err
		}
	}
	return results, nil
}
