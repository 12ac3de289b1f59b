package models_test

import (
	"os"
	"strings"
	"testing"

	"bitbucket.org/mmdatafocus/pos_backend/models"
	"github.com/shopspring/decimal"
)

// The day's kitchen position counts purchase receipts as purchased and
// voucher movements as issued/returned; stock-outs referencing orders must
// not inflate the issued column.
func TestKitchenStockSummaryIgnoresOrderConsumption(t *testing.T) {
	if strings.TrimSpace(os.Getenv("INTEGRATION_TESTS")) == "" {
		t.Skip("set INTEGRATION_TESTS=1 to run integration tests (requires docker)")
	}

	ctx := setupIntegration(t)

	units, err := models.GetUnits(ctx, nil)
	if err != nil || len(units) == 0 {
		t.Fatalf("GetUnits: %v (%d units)", err, len(units))
	}
	material, err := models.CreateRawMaterial(ctx, &models.NewRawMaterial{
		Name:   "Rice",
		UnitId: units[0].ID,
	})
	if err != nil {
		t.Fatalf("CreateRawMaterial: %v", err)
	}

	if _, err := models.CreateInventoryTransaction(ctx, &models.NewInventoryTransaction{
		RawMaterialId: material.ID,
		Type:          models.InventoryTransactionTypeIn,
		Quantity:      decimal.NewFromInt(10),
		ReferenceType: "PurchaseOrder",
		ReferenceId:   1,
	}); err != nil {
		t.Fatalf("post purchase receipt: %v", err)
	}
	if _, err := models.CreateInventoryTransaction(ctx, &models.NewInventoryTransaction{
		RawMaterialId: material.ID,
		Type:          models.InventoryTransactionTypeOut,
		Quantity:      decimal.NewFromInt(4),
		ReferenceType: "Order",
		ReferenceId:   1,
	}); err != nil {
		t.Fatalf("post order stock-out: %v", err)
	}

	businessDay, err := models.GetBusinessDay(ctx)
	if err != nil {
		t.Fatalf("GetBusinessDay: %v", err)
	}
	if _, err := models.PostKitchenVoucher(ctx, businessDay, &models.NewKitchenVoucher{
		Type: models.VoucherTypeIssue,
		Items: []models.NewKitchenVoucherItem{
			{RawMaterialId: material.ID, Quantity: decimal.NewFromInt(3)},
		},
	}); err != nil {
		t.Fatalf("post issue voucher: %v", err)
	}
	if _, err := models.PostKitchenVoucher(ctx, businessDay, &models.NewKitchenVoucher{
		Type: models.VoucherTypeReturn,
		Items: []models.NewKitchenVoucherItem{
			{RawMaterialId: material.ID, Quantity: decimal.NewFromInt(1)},
		},
	}); err != nil {
		t.Fatalf("post return voucher: %v", err)
	}

	summary, err := models.GetKitchenStockSummary(ctx, businessDay)
	if err != nil {
		t.Fatalf("GetKitchenStockSummary: %v", err)
	}
	if len(summary) != 1 {
		t.Fatalf("expected one summary line, got %d", len(summary))
	}
	line := summary[0]
	if !line.Purchased.Equal(decimal.NewFromInt(10)) {
		t.Errorf("purchased = %s, want 10", line.Purchased)
	}
	if !line.Issued.Equal(decimal.NewFromInt(3)) {
		t.Errorf("issued = %s, want 3 (order consumption must not count)", line.Issued)
	}
	if !line.Returned.Equal(decimal.NewFromInt(1)) {
		t.Errorf("returned = %s, want 1", line.Returned)
	}
	if !line.Net.Equal(decimal.NewFromInt(8)) {
		t.Errorf("net = %s, want 8", line.Net)
	}
}
