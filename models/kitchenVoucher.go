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

// KitchenVoucher records raw materials handed to the kitchen (Issue) or
// brought back at close (Return). Posting a voucher writes the matching
// inventory transactions in the same database transaction.
type KitchenVoucher struct {
	ID          int                  `gorm:"primary_key" json:"id"`
	BusinessId  string               `gorm:"index;not null" json:"business_id"`
	Type        VoucherType          `gorm:"type:varchar(20);not null" json:"type"`
	BusinessDay time.Time            `gorm:"type:date;index;not null" json:"business_day"`
	Note        string               `gorm:"size:255" json:"note"`
	Items       []KitchenVoucherItem `json:"items,omitempty"`
	CreatedAt   time.Time            `gorm:"autoCreateTime" json:"created_at"`
}

type KitchenVoucherItem struct {
	ID               int             `gorm:"primary_key" json:"id"`
	BusinessId       string          `gorm:"index;not null" json:"business_id"`
	KitchenVoucherId int             `gorm:"index;not null" json:"kitchen_voucher_id"`
	RawMaterialId    int             `gorm:"index;not null" json:"raw_material_id"`
	RawMaterial      *RawMaterial    `json:"raw_material,omitempty"`
	Quantity         decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"quantity"`
}

type NewKitchenVoucherItem struct {
	RawMaterialId int             `json:"raw_material_id" binding:"required"`
	Quantity      decimal.Decimal `json:"quantity" binding:"required"`
}

type NewKitchenVoucher struct {
	Type  VoucherType             `json:"type" binding:"required"`
	Note  string                  `json:"note"`
	Items []NewKitchenVoucherItem `json:"items" binding:"required,min=1"`
}

func voucherTransactionType(voucherType VoucherType) (InventoryTransactionType, error) {
	switch voucherType {
	case VoucherTypeIssue:
		return InventoryTransactionTypeOut, nil
	case VoucherTypeReturn:
		return InventoryTransactionTypeReturn, nil
	default:
		return "", errors.New("unknown voucher type")
	}
}

func (input *NewKitchenVoucher) validate(ctx context.Context, businessId string) error {
	if _, err := voucherTransactionType(input.Type); err != nil {
		return err
	}
	for _, item := range input.Items {
		if err := utils.ValidateResourceId[RawMaterial](ctx, businessId, item.RawMaterialId); err != nil {
			return fmt.Errorf("raw material %d not found", item.RawMaterialId)
		}
		if !item.Quantity.IsPositive() {
			return errors.New("voucher quantity must be positive")
		}
	}
	return nil
}

func createKitchenVoucherTx(tx *gorm.DB, ctx context.Context, businessId string, businessDay time.Time, input *NewKitchenVoucher) (*KitchenVoucher, error) {
	txType, err := voucherTransactionType(input.Type)
	if err != nil {
		return nil, err
	}

	voucher := KitchenVoucher{
		BusinessId:  businessId,
		Type:        input.Type,
		BusinessDay: businessDay,
		Note:        input.Note,
	}
	for _, item := range input.Items {
		voucher.Items = append(voucher.Items, KitchenVoucherItem{
			BusinessId:    businessId,
			RawMaterialId: item.RawMaterialId,
			Quantity:      item.Quantity,
		})
	}
	if err := tx.WithContext(ctx).Create(&voucher).Error; err != nil {
		return nil, err
	}

	for _, item := range input.Items {
		if _, err := postInventoryTransactionTx(tx, ctx, businessId, &NewInventoryTransaction{
			RawMaterialId: item.RawMaterialId,
			Type:          txType,
			Quantity:      item.Quantity,
			ReferenceType: "KitchenVoucher",
			ReferenceId:   voucher.ID,
		}); err != nil {
			return nil, err
		}
	}
	return &voucher, nil
}

// PostKitchenVoucher validates and posts the voucher in one transaction.
func PostKitchenVoucher(ctx context.Context, businessDay time.Time, input *NewKitchenVoucher) (*KitchenVoucher, error) {
	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}

	if err := input.validate(ctx, businessId); err != nil {
		return nil, err
	}

	db := config.GetDB()
	var voucher *KitchenVoucher
	err = db.Transaction(func(tx *gorm.DB) error {
		var txErr error
		voucher, txErr = createKitchenVoucherTx(tx, ctx, businessId, businessDay, input)
		return txErr
	})
	if err != nil {
		return nil, err
	}
	return voucher, nil
}

func GetKitchenVoucher(ctx context.Context, id int) (*KitchenVoucher, error) {
	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return utils.FetchModel[KitchenVoucher](ctx, businessId, id, "Items", "Items.RawMaterial")
}

func GetKitchenVouchers(ctx context.Context, businessDay *time.Time, voucherType *VoucherType) ([]*KitchenVoucher, error) {
	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	var results []*KitchenVoucher
	dbCtx := db.WithContext(ctx).Preload("Items").Where("business_id = ?", businessId)
	if businessDay != nil {
		dbCtx = dbCtx.Where("business_day = ?", *businessDay)
	}
	if voucherType != nil {
		dbCtx = dbCtx.Where("type = ?", *voucherType)
	}
	if err := dbCtx.Order("created_at DESC").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// KitchenStockLine is the day's net position for one raw material:
// what was purchased in, issued to the kitchen and returned from it.
type KitchenStockLine struct {
	RawMaterialId int             `json:"raw_material_id"`
	Name          string          `json:"name"`
	Purchased     decimal.Decimal `json:"purchased"`
	Issued        decimal.Decimal `json:"issued"`
	Returned      decimal.Decimal `json:"returned"`
	Net           decimal.Decimal `json:"net"`
}

// GetKitchenStockSummary reports the day's kitchen position per raw
// material: purchase receipts in, voucher issues out, voucher returns back.
// Recipe consumption from orders is deliberately excluded; that movement
// already shows in the material's running stock.
func GetKitchenStockSummary(ctx context.Context, businessDay time.Time) ([]*KitchenStockLine, error) {
	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()

	lines := map[int]*KitchenStockLine{}
	order := []int{}
	lineFor := func(rawMaterialId int, name string) *KitchenStockLine {
		line, ok := lines[rawMaterialId]
		if !ok {
			line = &KitchenStockLine{RawMaterialId: rawMaterialId, Name: name}
			lines[rawMaterialId] = line
			order = append(order, rawMaterialId)
		}
		if line.Name == "" {
			line.Name = name
		}
		return line
	}

	// Purchased: stock-in receipts within the business day's instant window,
	// which starts and ends at the cutoff rather than midnight.
	windowStart, windowEnd, err := GetBusinessDayWindow(ctx, businessDay)
	if err != nil {
		return nil, err
	}
	var receipts []InventoryTransaction
	if err := db.WithContext(ctx).Preload("RawMaterial").
		Where("business_id = ? AND reference_type = ? AND type = ? AND created_at >= ? AND created_at < ?",
			businessId, "PurchaseOrder", InventoryTransactionTypeIn, windowStart, windowEnd).
		Find(&receipts).Error; err != nil {
		return nil, err
	}
	for _, record := range receipts {
		name := ""
		if record.RawMaterial != nil {
			name = record.RawMaterial.Name
		}
		line := lineFor(record.RawMaterialId, name)
		line.Purchased = line.Purchased.Add(record.Quantity)
	}

	// Issued and returned come from the vouchers themselves, bucketed by the
	// business day stamped at posting time.
	var vouchers []KitchenVoucher
	if err := db.WithContext(ctx).Preload("Items").Preload("Items.RawMaterial").
		Where("business_id = ? AND business_day = ?", businessId, businessDay).
		Find(&vouchers).Error; err != nil {
		return nil, err
	}
	for _, voucher := range vouchers {
		for _, item := range voucher.Items {
			name := ""
			if item.RawMaterial != nil {
				name = item.RawMaterial.Name
			}
			line := lineFor(item.RawMaterialId, name)
			switch voucher.Type {
			case VoucherTypeIssue:
				line.Issued = line.Issued.Add(item.Quantity)
			case VoucherTypeReturn:
				line.Returned = line.Returned.Add(item.Quantity)
			}
		}
	}

	results := make([]*KitchenStockLine, 0, len(order))
	for _, id := range order {
		line := lines[id]
		line.Net = line.Purchased.Sub(line.Issued).Add(line.Returned)
		results = append(results, line)
	}
	return results, nil
}
