package workflow

import (
	"context"

	"bitbucket.org/mmdatafocus/pos_backend/config"
	"bitbucket.org/mmdatafocus/pos_backend/models"
	"bitbucket.org/mmdatafocus/pos_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// RefreshRecipeCosts recomputes every recipe cost off a single snapshot and
// writes the denormalized cost prices back onto menu items and deals.
func RefreshRecipeCosts(ctx context.Context) error {
	logger := config.GetLogger()

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok {
		return utils.ErrorRecordNotFound
	}

	costs, err := models.ComputeRecipeCosts(ctx)
	if err != nil {
		config.LogError(logger, "workflow", "RefreshRecipeCosts", "compute costs", nil, err)
		return err
	}

	db := config.GetDB()

	var menuItems []models.MenuItem
	if err := db.WithContext(ctx).
		Where("business_id = ? AND recipe_id IS NOT NULL", businessId).
		Find(&menuItems).Error; err != nil {
		return err
	}
	itemCosts := map[int]decimal.Decimal{}
	for i := range menuItems {
		cost := costs[*menuItems[i].RecipeId]
		itemCosts[menuItems[i].ID] = cost
		if menuItems[i].CostPrice.Equal(cost) {
			continue
		}
		if err := db.WithContext(ctx).Model(&menuItems[i]).
			Update("cost_price", cost).Error; err != nil {
			return err
		}
	}

	// deals roll up from their members, including items without recipes
	var dealItems []models.DealItem
	if err := db.WithContext(ctx).Where("business_id = ?", businessId).
		Find(&dealItems).Error; err != nil {
		return err
	}
	dealCosts := map[int]decimal.Decimal{}
	for _, member := range dealItems {
		cost, ok := itemCosts[member.MenuItemId]
		if !ok {
			var menuItem models.MenuItem
			if err := db.WithContext(ctx).
				Where("business_id = ? AND id = ?", businessId, member.MenuItemId).
				First(&menuItem).Error; err != nil {
				return err
			}
			cost = menuItem.CostPrice
			itemCosts[member.MenuItemId] = cost
		}
		dealCosts[member.DealId] = dealCosts[member.DealId].
			Add(cost.Mul(decimal.NewFromInt(int64(member.Quantity))))
	}
	for dealId, cost := range dealCosts {
		if err := db.WithContext(ctx).Model(&models.Deal{}).
			Where("business_id = ? AND id = ?", businessId, dealId).
			Update("cost_price", cost.Round(2)).Error; err != nil {
			return err
		}
	}

	if err := utils.RemoveRedisList[models.MenuItem](businessId); err != nil {
		return err
	}
	if err := utils.RemoveRedisList[models.Deal](businessId); err != nil {
		return err
	}

	logger.WithFields(logrus.Fields{
		"module":  "workflow",
		"recipes": len(costs),
		"deals":   len(dealCosts),
	}).Info("recipe costs refreshed")
	return nil
}
