package workflow

import (
	"context"

	"bitbucket.org/mmdatafocus/pos_backend/config"
	"bitbucket.org/mmdatafocus/pos_backend/models"
	"github.com/sirupsen/logrus"
)

// ReceivePurchaseOrder marks the order received, posting stock-in for every
// line, then refreshes recipe costs since new purchase history shifts the
// weighted averages.
func ReceivePurchaseOrder(ctx context.Context, id int) (*models.PurchaseOrder, error) {
	logger := config.GetLogger()

	order, err := models.ReceivePurchaseOrder(ctx, id)
	if err != nil {
		config.LogError(logger, "workflow", "ReceivePurchaseOrder", "receive", logrus.Fields{
			"purchase_order_id": id,
		}, err)
		return nil, err
	}

	if err := RefreshRecipeCosts(ctx); err != nil {
		return nil, err
	}
	return order, nil
}
