package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/pos_backend/config"
	"bitbucket.org/mmdatafocus/pos_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Payment struct {
	ID         int             `gorm:"primary_key" json:"id"`
	BusinessId string          `gorm:"index;not null" json:"business_id"`
	OrderId    int             `gorm:"index;not null" json:"order_id"`
	Order      *Order          `json:"order,omitempty"`
	Method     PaymentMethod   `gorm:"type:varchar(20);not null" json:"method"`
	Amount     decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"amount"`
	Received   decimal.Decimal `gorm:"type:decimal(20,2);default:0" json:"received"`
	Change     decimal.Decimal `gorm:"type:decimal(20,2);default:0" json:"change"`
	CashierId  int             `gorm:"index" json:"cashier_id"`
	CreatedAt  time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

type NewPayment struct {
	OrderId  int             `json:"order_id" binding:"required"`
	Method   PaymentMethod   `json:"method" binding:"required"`
	Received decimal.Decimal `json:"received"`
}

// CreatePayment settles a served order in full and marks it paid.
func CreatePayment(ctx context.Context, input *NewPayment) (*Payment, error) {
	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}

	order, err := utils.FetchModel[Order](ctx, businessId, input.OrderId)
	if err != nil {
		return nil, err
	}
	if order.Status != OrderStatusServed {
		return nil, errors.New("only served orders can be paid")
	}

	change := decimal.Zero
	received := input.Received
	if input.Method == PaymentMethodCash {
		if received.LessThan(order.Total) {
			return nil, errors.New("received amount is less than the total")
		}
		change = received.Sub(order.Total)
	} else {
		received = order.Total
	}

	cashierId, _ := utils.GetUserIdFromContext(ctx)
	payment := Payment{
		BusinessId: businessId,
		OrderId:    order.ID,
		Method:     input.Method,
		Amount:     order.Total,
		Received:   received,
		Change:     change,
		CashierId:  cashierId,
	}

	db := config.GetDB()
	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.WithContext(ctx).Create(&payment).Error; err != nil {
			return err
		}
		return tx.WithContext(ctx).Model(&order).Update("status", OrderStatusPaid).Error
	})
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func GetPayments(ctx context.Context, businessDay *time.Time) ([]*Payment, error) {
	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	var results []*Payment
	dbCtx := db.WithContext(ctx).Preload("Order").Where("payments.business_id = ?", businessId)
	if businessDay != nil {
		dbCtx = dbCtx.Joins("JOIN orders ON orders.id = payments.order_id").
			Where("orders.business_day = ?", *businessDay)
	}
	if err := dbCtx.Order("payments.created_at DESC").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
