package workflow

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/pos_backend/config"
	"bitbucket.org/mmdatafocus/pos_backend/models"
	"bitbucket.org/mmdatafocus/pos_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// how often to retry a contended sequence row before giving up
const maxTokenAttempts = 5

// OrderPlacement is the result of placing an order: the order itself plus
// the slip token per print station that runs its own sequence.
type OrderPlacement struct {
	Order         *models.Order `json:"order"`
	StationTokens map[int]int   `json:"station_tokens"`
}

func nextTokenWithRetry(ctx context.Context, scope string) (int, error) {
	var lastErr error
	for attempt := 0; attempt < maxTokenAttempts; attempt++ {
		token, err := models.NextTokenNumber(ctx, scope)
		if err == nil {
			return token, nil
		}
		if !errors.Is(err, utils.ErrorTransientContention) {
			return 0, err
		}
		lastErr = err
		time.Sleep(utils.RetryBackoff(attempt))
	}
	return 0, lastErr
}

// stationScopes returns the print stations of the order's menu items that
// keep their own daily sequence.
func stationScopes(ctx context.Context, input *models.NewOrder) (map[int]bool, error) {
	stations := map[int]bool{}
	for _, line := range input.Items {
		var menuItemIds []int
		if line.MenuItemId != nil {
			menuItemIds = append(menuItemIds, *line.MenuItemId)
		}
		if line.DealId != nil {
			deal, err := models.GetDeal(ctx, *line.DealId)
			if err != nil {
				return nil, err
			}
			for _, member := range deal.Items {
				menuItemIds = append(menuItemIds, member.MenuItemId)
			}
		}
		for _, id := range menuItemIds {
			menuItem, err := models.GetMenuItem(ctx, id)
			if err != nil {
				return nil, err
			}
			if menuItem.StationId == nil {
				continue
			}
			station, err := models.GetPrintStation(ctx, *menuItem.StationId)
			if err != nil {
				return nil, err
			}
			if utils.DereferencePtr(station.UseSeparateSequence) {
				stations[station.ID] = true
			}
		}
	}
	return stations, nil
}

// orderMaterialUsage flattens the order into raw material base quantities by
// walking each item's recipe.
func orderMaterialUsage(ctx context.Context, input *models.NewOrder) (map[int]decimal.Decimal, error) {
	usage := map[int]decimal.Decimal{}

	addRecipe := func(recipeId *int, quantity int) error {
		if recipeId == nil {
			return nil
		}
		needs, err := models.RecipeMaterialRequirements(ctx, *recipeId, decimal.NewFromInt(int64(quantity)))
		if err != nil {
			return err
		}
		for materialId, qty := range needs {
			usage[materialId] = usage[materialId].Add(qty)
		}
		return nil
	}

	for _, line := range input.Items {
		if line.MenuItemId != nil {
			menuItem, err := models.GetMenuItem(ctx, *line.MenuItemId)
			if err != nil {
				return nil, err
			}
			if err := addRecipe(menuItem.RecipeId, line.Quantity); err != nil {
				return nil, err
			}
		}
		if line.DealId != nil {
			deal, err := models.GetDeal(ctx, *line.DealId)
			if err != nil {
				return nil, err
			}
			for _, member := range deal.Items {
				menuItem, err := models.GetMenuItem(ctx, member.MenuItemId)
				if err != nil {
					return nil, err
				}
				if err := addRecipe(menuItem.RecipeId, line.Quantity*member.Quantity); err != nil {
					return nil, err
				}
			}
		}
	}
	return usage, nil
}

// PlaceOrder runs the full order creation flow: resolve the business day,
// draw the shared token, create the order under the number retry loop, draw
// per-station tokens and post the recipe-derived stock usage.
func PlaceOrder(ctx context.Context, input *models.NewOrder) (*OrderPlacement, error) {
	logger := config.GetLogger()

	businessDay, err := models.GetBusinessDay(ctx)
	if err != nil {
		return nil, err
	}

	token, err := nextTokenWithRetry(ctx, models.TokenScopeGlobal)
	if err != nil {
		return nil, err
	}

	correlationId, _ := utils.GetCorrelationIdFromContext(ctx)

	order, err := models.CreateOrder(ctx, businessDay, token, input)
	if err != nil {
		config.LogError(logger, "workflow", "PlaceOrder", "create order", logrus.Fields{
			"business_day":   businessDay.Format("2006-01-02"),
			"token":          token,
			"correlation_id": correlationId,
		}, err)
		return nil, err
	}

	stations, err := stationScopes(ctx, input)
	if err != nil {
		return nil, err
	}
	stationTokens := map[int]int{}
	for stationId := range stations {
		slipToken, err := nextTokenWithRetry(ctx, models.StationScope(stationId))
		if err != nil {
			return nil, err
		}
		stationTokens[stationId] = slipToken
	}

	usage, err := orderMaterialUsage(ctx, input)
	if err != nil {
		return nil, err
	}
	if len(usage) > 0 {
		inputs := make([]models.NewInventoryTransaction, 0, len(usage))
		for materialId, qty := range usage {
			if !qty.IsPositive() {
				continue
			}
			inputs = append(inputs, models.NewInventoryTransaction{
				RawMaterialId: materialId,
				Type:          models.InventoryTransactionTypeOut,
				Quantity:      qty,
				ReferenceType: "Order",
				ReferenceId:   order.ID,
			})
		}
		if _, err := models.PostInventoryTransactions(ctx, inputs); err != nil {
			config.LogError(logger, "workflow", "PlaceOrder", "post stock usage", logrus.Fields{
				"order_id":       order.ID,
				"correlation_id": correlationId,
			}, err)
			return nil, err
		}
	}

	return &OrderPlacement{Order: order, StationTokens: stationTokens}, nil
}
