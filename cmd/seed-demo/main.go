// seed-demo bootstraps a demo business: settings, default units and
// conversion factors, a demo admin user and a couple of print stations.
//
// Usage (from backend directory):
//
//	DB_USER=... DB_PASSWORD=... DB_HOST=... DB_PORT=... DB_NAME=... go run ./cmd/seed-demo
package main

import (
	"context"
	"fmt"
	"os"

	"bitbucket.org/mmdatafocus/pos_backend/config"
	"bitbucket.org/mmdatafocus/pos_backend/models"
	"bitbucket.org/mmdatafocus/pos_backend/utils"
	"gorm.io/gorm"
)

const (
	demoBusinessName = "Demo Restaurant"
	adminUsername    = "posAdmin"
	adminPassword    = "P0$Admin!"
	adminName        = "POS Admin"
)

func main() {
	ctx := context.Background()
	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil). Set DB_* env vars.")
		os.Exit(1)
	}
	models.MigrateTable()

	var business models.Business
	err := db.WithContext(ctx).Where("name = ?", demoBusinessName).First(&business).Error
	if err == gorm.ErrRecordNotFound {
		created, err := models.CreateBusiness(ctx, &models.NewBusiness{
			Name:     demoBusinessName,
			Timezone: "Asia/Yangon",
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to create business: %v\n", err)
			os.Exit(1)
		}
		business = *created
	} else if err != nil {
		fmt.Fprintf(os.Stderr, "failed to lookup business: %v\n", err)
		os.Exit(1)
	}

	businessId := business.ID.String()
	ctx = utils.SetBusinessIdInContext(ctx, businessId)
	ctx = utils.SetUserIdInContext(ctx, 1)
	ctx = utils.SetUserNameInContext(ctx, "Seed")
	ctx = utils.SetIsAdminInContext(ctx, true)

	var existing models.User
	err = db.WithContext(ctx).
		Where("business_id = ? AND username = ?", businessId, adminUsername).
		First(&existing).Error
	if err == gorm.ErrRecordNotFound {
		if _, err := models.CreateUser(ctx, &models.NewUser{
			Username: adminUsername,
			Password: adminPassword,
			Name:     adminName,
			Role:     models.UserRoleAdmin,
		}); err != nil {
			fmt.Fprintf(os.Stderr, "failed to create admin user: %v\n", err)
			os.Exit(1)
		}
	} else if err != nil {
		fmt.Fprintf(os.Stderr, "failed to lookup user: %v\n", err)
		os.Exit(1)
	}

	for _, station := range []models.NewPrintStation{
		{Name: "Main Kitchen", UseSeparateSequence: utils.NewFalse()},
		{Name: "Drinks Bar", UseSeparateSequence: utils.NewTrue()},
	} {
		var count int64
		if err := db.WithContext(ctx).Model(&models.PrintStation{}).
			Where("business_id = ? AND name = ?", businessId, station.Name).
			Count(&count).Error; err != nil {
			fmt.Fprintf(os.Stderr, "failed to lookup print station: %v\n", err)
			os.Exit(1)
		}
		if count > 0 {
			continue
		}
		if _, err := models.CreatePrintStation(ctx, &station); err != nil {
			fmt.Fprintf(os.Stderr, "failed to create print station %q: %v\n", station.Name, err)
			os.Exit(1)
		}
	}

	fmt.Printf("demo business ready: business_id=%s username=%s\n", businessId, adminUsername)
}
