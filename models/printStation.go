package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/pos_backend/config"
	"bitbucket.org/mmdatafocus/pos_backend/utils"
)

// PrintStation is a kitchen printer routing target. Stations with
// UseSeparateSequence draw their slip numbers from their own daily sequence
// instead of the shared one.
type PrintStation struct {
	ID                  int       `gorm:"primary_key" json:"id"`
	BusinessId          string    `gorm:"index;not null" json:"business_id"`
	Name                string    `gorm:"size:100;not null" json:"name" binding:"required"`
	PrinterAddress      string    `gorm:"size:100" json:"printer_address"`
	UseSeparateSequence *bool     `gorm:"not null;default:false" json:"use_separate_sequence"`
	IsActive            *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt           time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt           time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewPrintStation struct {
	Name                string `json:"name" binding:"required"`
	PrinterAddress      string `json:"printer_address"`
	UseSeparateSequence *bool  `json:"use_separate_sequence"`
}

func CreatePrintStation(ctx context.Context, input *NewPrintStation) (*PrintStation, error) {
	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}

	if err := utils.ValidateUnique[PrintStation](ctx, businessId, "name", input.Name, 0); err != nil {
		return nil, err
	}

	separate := input.UseSeparateSequence
	if separate == nil {
		separate = utils.NewFalse()
	}
	station := PrintStation{
		BusinessId:          businessId,
		Name:                input.Name,
		PrinterAddress:      input.PrinterAddress,
		UseSeparateSequence: separate,
		IsActive:            utils.NewTrue(),
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&station).Error; err != nil {
		return nil, err
	}
	if err := utils.RemoveRedisList[PrintStation](businessId); err != nil {
		return nil, err
	}
	return &station, nil
}

func UpdatePrintStation(ctx context.Context, id int, input *NewPrintStation) (*PrintStation, error) {
	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}

	if err := utils.ValidateUnique[PrintStation](ctx, businessId, "name", input.Name, id); err != nil {
		return nil, err
	}

	station, err := utils.FetchModel[PrintStation](ctx, businessId, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{
		"Name":           input.Name,
		"PrinterAddress": input.PrinterAddress,
	}
	if input.UseSeparateSequence != nil {
		updates["UseSeparateSequence"] = *input.UseSeparateSequence
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Model(&station).Updates(updates).Error; err != nil {
		return nil, err
	}
	if err := utils.RemoveRedisList[PrintStation](businessId); err != nil {
		return nil, err
	}
	return station, nil
}

func DeletePrintStation(ctx context.Context, id int) (*PrintStation, error) {
	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}

	station, err := utils.FetchModel[PrintStation](ctx, businessId, id)
	if err != nil {
		return nil, err
	}

	count, err := utils.ResourceCountWhere[MenuItem](ctx, businessId, "station_id = ?", id)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, errors.New("station has menu items")
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Delete(&station).Error; err != nil {
		return nil, err
	}
	if err := utils.RemoveRedisList[PrintStation](businessId); err != nil {
		return nil, err
	}
	return station, nil
}

func GetPrintStation(ctx context.Context, id int) (*PrintStation, error) {
	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return utils.FetchModel[PrintStation](ctx, businessId, id)
}

func GetPrintStations(ctx context.Context) ([]*PrintStation, error) {
	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}

	cached, err := utils.RetrieveRedisList[PrintStation](businessId)
	if err != nil {
		return nil, err
	}
	if cached != nil {
		return cached, nil
	}

	db := config.GetDB()
	var results []*PrintStation
	if err := db.WithContext(ctx).Where("business_id = ?", businessId).
		Order("name").Find(&results).Error; err != nil {
		return nil, err
	}
	if err := utils.StoreRedisList[PrintStation](results, businessId); err != nil {
		return nil, err
	}
	return results, nil
}
