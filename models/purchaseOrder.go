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

type PurchaseOrder struct {
	ID          int                 `gorm:"primary_key" json:"id"`
	BusinessId  string              `gorm:"not null;uniqueIndex:idx_po_number" json:"business_id"`
	OrderNumber string              `gorm:"size:30;not null;uniqueIndex:idx_po_number" json:"order_number"`
	SupplierId  int                 `gorm:"index;not null" json:"supplier_id"`
	Supplier    *Supplier           `json:"supplier,omitempty"`
	Status      PurchaseOrderStatus `gorm:"type:varchar(20);not null;default:Pending" json:"status"`
	OrderDate   time.Time           `gorm:"type:date;not null" json:"order_date"`
	ReceivedAt  *time.Time          `json:"received_at"`
	Total       decimal.Decimal     `gorm:"type:decimal(20,2);default:0" json:"total"`
	Items       []PurchaseOrderItem `json:"items,omitempty"`
	CreatedAt   time.Time           `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time           `gorm:"autoUpdateTime" json:"updated_at"`
}

// PurchaseOrderItem quantities are in the material's purchase unit; UnitId
// records which unit that was so costing can convert to base.
type PurchaseOrderItem struct {
	ID              int             `gorm:"primary_key" json:"id"`
	BusinessId      string          `gorm:"index;not null" json:"business_id"`
	PurchaseOrderId int             `gorm:"index;not null" json:"purchase_order_id"`
	RawMaterialId   int             `gorm:"index;not null" json:"raw_material_id"`
	RawMaterial     *RawMaterial    `json:"raw_material,omitempty"`
	UnitId          int             `gorm:"not null" json:"unit_id"`
	Quantity        decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"quantity"`
	UnitPrice       decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"unit_price"`
	CreatedAt       time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

type NewPurchaseOrderItem struct {
	RawMaterialId int             `json:"raw_material_id" binding:"required"`
	UnitId        int             `json:"unit_id" binding:"required"`
	Quantity      decimal.Decimal `json:"quantity" binding:"required"`
	UnitPrice     decimal.Decimal `json:"unit_price" binding:"required"`
}

type NewPurchaseOrder struct {
	SupplierId int                    `json:"supplier_id" binding:"required"`
	OrderDate  time.Time              `json:"order_date"`
	Items      []NewPurchaseOrderItem `json:"items" binding:"required,min=1"`
}

func (input *NewPurchaseOrder) validate(ctx context.Context, businessId string) error {
	if err := utils.ValidateResourceId[Supplier](ctx, businessId, input.SupplierId); err != nil {
		return errors.New("supplier not found")
	}
	for _, item := range input.Items {
		if err := utils.ValidateResourceId[RawMaterial](ctx, businessId, item.RawMaterialId); err != nil {
			return fmt.Errorf("raw material %d not found", item.RawMaterialId)
		}
		if err := utils.ValidateResourceId[Unit](ctx, businessId, item.UnitId); err != nil {
			return fmt.Errorf("unit %d not found", item.UnitId)
		}
		if !item.Quantity.IsPositive() {
			return errors.New("item quantity must be positive")
		}
		if item.UnitPrice.IsNegative() {
			return errors.New("item unit price must not be negative")
		}
	}
	return nil
}

func nextPurchaseOrderNumber(tx *gorm.DB, ctx context.Context, businessId string) (string, error) {
	var count int64
	if err := tx.WithContext(ctx).Model(&PurchaseOrder{}).
		Where("business_id = ?", businessId).Count(&count).Error; err != nil {
		return "", err
	}
	return fmt.Sprintf("PO-%05d", count+1), nil
}

func CreatePurchaseOrder(ctx context.Context, input *NewPurchaseOrder) (*PurchaseOrder, error) {
	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}

	if err := input.validate(ctx, businessId); err != nil {
		return nil, err
	}

	orderDate := input.OrderDate
	if orderDate.IsZero() {
		orderDate = time.Now()
	}
	// OrderDate is a date column; strip the time-of-day before storing.
	orderDate, err = utils.ConvertToDate(orderDate, "")
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	var order PurchaseOrder
	err = db.Transaction(func(tx *gorm.DB) error {
		number, err := nextPurchaseOrderNumber(tx, ctx, businessId)
		if err != nil {
			return err
		}

		total := decimal.Zero
		items := make([]PurchaseOrderItem, 0, len(input.Items))
		for _, item := range input.Items {
			total = total.Add(item.Quantity.Mul(item.UnitPrice))
			items = append(items, PurchaseOrderItem{
				BusinessId:    businessId,
				RawMaterialId: item.RawMaterialId,
				UnitId:        item.UnitId,
				Quantity:      item.Quantity,
				UnitPrice:     item.UnitPrice,
			})
		}

		order = PurchaseOrder{
			BusinessId:  businessId,
			OrderNumber: number,
			SupplierId:  input.SupplierId,
			Status:      PurchaseOrderStatusPending,
			OrderDate:   orderDate,
			Total:       total.Round(2),
			Items:       items,
		}
		return tx.WithContext(ctx).Create(&order).Error
	})
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// receivePurchaseOrderTx flips a pending order to Received and posts one
// stock-in per line, converted to the material's own unit where a factor
// exists. Receiving is idempotent-guarded by the status check.
func receivePurchaseOrderTx(tx *gorm.DB, ctx context.Context, businessId string, id int) (*PurchaseOrder, error) {
	var order PurchaseOrder
	if err := tx.WithContext(ctx).Preload("Items").
		Where("business_id = ? AND id = ?", businessId, id).
		First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	if order.Status != PurchaseOrderStatusPending {
		return nil, errors.New("purchase order already received")
	}

	conversions, err := loadConversionMap(ctx, businessId)
	if err != nil {
		return nil, err
	}

	for _, item := range order.Items {
		qty := item.Quantity
		if factor, ok := conversions[conversionKey{RawMaterialId: item.RawMaterialId, UnitId: item.UnitId}]; ok {
			qty = item.Quantity.Mul(factor)
		} else if config.StrictUnitConversions() {
			return nil, fmt.Errorf("no conversion for raw material %d unit %d", item.RawMaterialId, item.UnitId)
		}
		if _, err := postInventoryTransactionTx(tx, ctx, businessId, &NewInventoryTransaction{
			RawMaterialId: item.RawMaterialId,
			Type:          InventoryTransactionTypeIn,
			Quantity:      qty,
			ReferenceType: "PurchaseOrder",
			ReferenceId:   order.ID,
		}); err != nil {
			return nil, err
		}
	}

	now := time.Now()
	if err := tx.WithContext(ctx).Model(&order).Updates(map[string]interface{}{
		"Status":     PurchaseOrderStatusReceived,
		"ReceivedAt": &now,
	}).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// ReceivePurchaseOrder runs the receiving transaction.
func ReceivePurchaseOrder(ctx context.Context, id int) (*PurchaseOrder, error) {
	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	var order *PurchaseOrder
	err = db.Transaction(func(tx *gorm.DB) error {
		var txErr error
		order, txErr = receivePurchaseOrderTx(tx, ctx, businessId, id)
		return txErr
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func GetPurchaseOrder(ctx context.Context, id int) (*PurchaseOrder, error) {
	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return utils.FetchModel[PurchaseOrder](ctx, businessId, id, "Supplier", "Items", "Items.RawMaterial")
}

func GetPurchaseOrders(ctx context.Context, status *PurchaseOrderStatus, supplierId *int) ([]*PurchaseOrder, error) {
	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	var results []*PurchaseOrder
	dbCtx := db.WithContext(ctx).Preload("Supplier").Where("business_id = ?", businessId)
	if status != nil {
		dbCtx = dbCtx.Where("status = ?", *status)
	}
	if supplierId != nil {
		dbCtx = dbCtx.Where("supplier_id = ?", *supplierId)
	}
	if err := dbCtx.Order("order_date DESC, id DESC").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func DeletePurchaseOrder(ctx context.Context, id int) (*PurchaseOrder, error) {
	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}

	order, err := utils.FetchModel[PurchaseOrder](ctx, businessId, id)
	if err != nil {
		return nil, err
	}
	if order.Status == PurchaseOrderStatusReceived {
		return nil, errors.New("received purchase order cannot be deleted")
	}

	db := config.GetDB()
	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.WithContext(ctx).Where("business_id = ? AND purchase_order_id = ?", businessId, id).
			Delete(&PurchaseOrderItem{}).Error; err != nil {
			return err
		}
		return tx.WithContext(ctx).Delete(&order).Error
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}
