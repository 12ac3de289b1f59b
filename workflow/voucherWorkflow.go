package workflow

import (
	"context"
	"fmt"
	"time"

	"bitbucket.org/mmdatafocus/pos_backend/config"
	"bitbucket.org/mmdatafocus/pos_backend/models"
	"bitbucket.org/mmdatafocus/pos_backend/utils"
	"github.com/bsm/redislock"
	"github.com/sirupsen/logrus"
)

// PostKitchenVoucher posts an issue or return voucher for the current
// business day. A short redis lock keeps two terminals from posting vouchers
// for the same business at once; the row locks inside the posting
// transaction stay the real guarantee, so a missing lock is not fatal.
func PostKitchenVoucher(ctx context.Context, input *models.NewKitchenVoucher) (*models.KitchenVoucher, error) {
	logger := config.GetLogger()

	businessDay, err := models.GetBusinessDay(ctx)
	if err != nil {
		return nil, err
	}

	if locker := config.GetRedisLock(); locker != nil {
		businessId, _ := utils.GetBusinessIdFromContext(ctx)
		key := fmt.Sprintf("voucher-post:%s", businessId)
		lock, err := locker.Obtain(ctx, key, 10*time.Second, &redislock.Options{
			RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(100*time.Millisecond), 10),
		})
		if err == nil {
			defer lock.Release(ctx)
		} else {
			logger.WithFields(logrus.Fields{
				"module": "workflow",
				"key":    key,
			}).Warn("voucher lock unavailable")
		}
	}

	voucher, err := models.PostKitchenVoucher(ctx, businessDay, input)
	if err != nil {
		config.LogError(logger, "workflow", "PostKitchenVoucher", "post voucher", logrus.Fields{
			"type": input.Type,
		}, err)
		return nil, err
	}
	return voucher, nil
}
