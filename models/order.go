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

type Order struct {
	ID             int             `gorm:"primary_key" json:"id"`
	BusinessId     string          `gorm:"not null;uniqueIndex:idx_order_number" json:"business_id"`
	OrderNumber    string          `gorm:"size:30;not null;uniqueIndex:idx_order_number" json:"order_number"`
	TokenNumber    int             `gorm:"not null" json:"token_number"`
	BusinessDay    time.Time       `gorm:"type:date;index;not null" json:"business_day"`
	Source         OrderSource     `gorm:"type:varchar(20);not null;default:WalkIn" json:"source"`
	Status         OrderStatus     `gorm:"type:varchar(20);not null;default:Pending" json:"status"`
	TableSessionId *int            `gorm:"index" json:"table_session_id"`
	WaiterId       *int            `gorm:"index" json:"waiter_id"`
	Waiter         *Waiter         `json:"waiter,omitempty"`
	Total          decimal.Decimal `gorm:"type:decimal(20,2);default:0" json:"total"`
	Note           string          `gorm:"size:255" json:"note"`
	Items          []OrderItem     `json:"items,omitempty"`
	CreatedAt      time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// OrderItem references either a menu item or a deal, never both.
type OrderItem struct {
	ID         int             `gorm:"primary_key" json:"id"`
	BusinessId string          `gorm:"index;not null" json:"business_id"`
	OrderId    int             `gorm:"index;not null" json:"order_id"`
	MenuItemId *int            `gorm:"index" json:"menu_item_id"`
	MenuItem   *MenuItem       `json:"menu_item,omitempty"`
	DealId     *int            `gorm:"index" json:"deal_id"`
	Deal       *Deal           `json:"deal,omitempty"`
	Quantity   int             `gorm:"not null;default:1" json:"quantity"`
	UnitPrice  decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"unit_price"`
	Note       string          `gorm:"size:255" json:"note"`
	CreatedAt  time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

type NewOrderItem struct {
	MenuItemId *int   `json:"menu_item_id"`
	DealId     *int   `json:"deal_id"`
	Quantity   int    `json:"quantity" binding:"required,min=1"`
	Note       string `json:"note"`
}

type NewOrder struct {
	Source         OrderSource    `json:"source"`
	TableSessionId *int           `json:"table_session_id"`
	WaiterId       *int           `json:"waiter_id"`
	Note           string         `json:"note"`
	Items          []NewOrderItem `json:"items" binding:"required,min=1"`
}

// formatOrderNumber renders the daily order number, e.g. ORD20260831-0001.
func formatOrderNumber(businessDay time.Time, sequence int) string {
	return fmt.Sprintf("ORD%s-%04d", businessDay.Format("20060102"), sequence)
}

// nextOrderNumberTx derives the next number by counting the day's orders.
// Two concurrent calls can derive the same number; callers catch the
// duplicate key error on insert and retry.
func nextOrderNumberTx(tx *gorm.DB, ctx context.Context, businessId string, businessDay time.Time) (string, error) {
	var count int64
	if err := tx.WithContext(ctx).Model(&Order{}).
		Where("business_id = ? AND business_day = ?", businessId, businessDay).
		Count(&count).Error; err != nil {
		return "", err
	}
	return formatOrderNumber(businessDay, int(count)+1), nil
}

func (input *NewOrder) validate(ctx context.Context, businessId string) error {
	for _, item := range input.Items {
		if (item.MenuItemId == nil) == (item.DealId == nil) {
			return errors.New("order item needs exactly one of menu item or deal")
		}
		if item.MenuItemId != nil {
			if err := utils.ValidateResourceId[MenuItem](ctx, businessId, *item.MenuItemId); err != nil {
				return fmt.Errorf("menu item %d not found", *item.MenuItemId)
			}
		}
		if item.DealId != nil {
			if err := utils.ValidateResourceId[Deal](ctx, businessId, *item.DealId); err != nil {
				return fmt.Errorf("deal %d not found", *item.DealId)
			}
		}
	}
	if input.TableSessionId != nil {
		if err := utils.ValidateResourceId[TableSession](ctx, businessId, *input.TableSessionId); err != nil {
			return errors.New("table session not found")
		}
	}
	if input.WaiterId != nil {
		if err := utils.ValidateResourceId[Waiter](ctx, businessId, *input.WaiterId); err != nil {
			return errors.New("waiter not found")
		}
	}
	return nil
}

// createOrderTx inserts the order with a freshly derived number and the given
// token. Returns the raw insert error so callers can inspect duplicates.
func createOrderTx(tx *gorm.DB, ctx context.Context, businessId string, businessDay time.Time, token int, input *NewOrder) (*Order, error) {
	number, err := nextOrderNumberTx(tx, ctx, businessId, businessDay)
	if err != nil {
		return nil, err
	}

	source := input.Source
	if source == "" {
		source = OrderSourceWalkIn
	}

	total := decimal.Zero
	items := make([]OrderItem, 0, len(input.Items))
	for _, line := range input.Items {
		var unitPrice decimal.Decimal
		if line.MenuItemId != nil {
			menuItem, err := utils.FetchModel[MenuItem](ctx, businessId, *line.MenuItemId)
			if err != nil {
				return nil, err
			}
			unitPrice = menuItem.Price
		} else {
			deal, err := utils.FetchModel[Deal](ctx, businessId, *line.DealId)
			if err != nil {
				return nil, err
			}
			unitPrice = deal.Price
		}
		total = total.Add(unitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))))
		items = append(items, OrderItem{
			BusinessId: businessId,
			MenuItemId: line.MenuItemId,
			DealId:     line.DealId,
			Quantity:   line.Quantity,
			UnitPrice:  unitPrice,
			Note:       line.Note,
		})
	}

	order := Order{
		BusinessId:     businessId,
		OrderNumber:    number,
		TokenNumber:    token,
		BusinessDay:    businessDay,
		Source:         source,
		Status:         OrderStatusPending,
		TableSessionId: input.TableSessionId,
		WaiterId:       input.WaiterId,
		Total:          total.Round(2),
		Note:           input.Note,
		Items:          items,
	}
	if err := tx.WithContext(ctx).Create(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

const maxOrderNumberAttempts = 25

// CreateOrder inserts the order, retrying with fresh numbers when a
// concurrent writer claims the same one. The unique index on the order
// number is what detects the race.
func CreateOrder(ctx context.Context, businessDay time.Time, token int, input *NewOrder) (*Order, error) {
	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}

	if err := input.validate(ctx, businessId); err != nil {
		return nil, err
	}

	db := config.GetDB()
	for attempt := 0; attempt < maxOrderNumberAttempts; attempt++ {
		var order *Order
		err := db.Transaction(func(tx *gorm.DB) error {
			var txErr error
			order, txErr = createOrderTx(tx, ctx, businessId, businessDay, token, input)
			return txErr
		})
		if err == nil {
			return order, nil
		}
		if !IsDuplicateKeyError(err) {
			return nil, err
		}
		time.Sleep(utils.RetryBackoff(attempt))
	}
	return nil, utils.ErrorExhaustedRetries
}

var orderStatusTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:   {OrderStatusInKitchen, OrderStatusCancelled},
	OrderStatusInKitchen: {OrderStatusServed, OrderStatusCancelled},
	OrderStatusServed:    {OrderStatusPaid},
}

func canTransition(from OrderStatus, to OrderStatus) bool {
	for _, next := range orderStatusTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func UpdateOrderStatus(ctx context.Context, id int, status OrderStatus) (*Order, error) {
	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}

	order, err := utils.FetchModel[Order](ctx, businessId, id)
	if err != nil {
		return nil, err
	}
	if !canTransition(order.Status, status) {
		return nil, fmt.Errorf("order cannot go from %s to %s", order.Status, status)
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Model(&order).Update("status", status).Error; err != nil {
		return nil, err
	}
	return order, nil
}

func GetOrder(ctx context.Context, id int) (*Order, error) {
	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return utils.FetchModel[Order](ctx, businessId, id, "Items", "Items.MenuItem", "Items.Deal", "Waiter")
}

func GetOrders(ctx context.Context, businessDay *time.Time, status *OrderStatus) ([]*Order, error) {
	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	var results []*Order
	dbCtx := db.WithContext(ctx).Preload("Items").Where("business_id = ?", businessId)
	if businessDay != nil {
		dbCtx = dbCtx.Where("business_day = ?", *businessDay)
	}
	if status != nil {
		dbCtx = dbCtx.Where("status = ?", *status)
	}
	if err := dbCtx.Order("created_at DESC, id DESC").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
