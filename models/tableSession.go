package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/pos_backend/config"
	"bitbucket.org/mmdatafocus/pos_backend/utils"
)

// TableSession is one seating at a table. It carries a token from the same
// daily sequence orders draw from, so kitchen tokens stay unique per day.
type TableSession struct {
	ID          int        `gorm:"primary_key" json:"id"`
	BusinessId  string     `gorm:"index;not null" json:"business_id"`
	TableId     int        `gorm:"index;not null" json:"table_id"`
	Table       *Table     `json:"table,omitempty"`
	TokenNumber int        `gorm:"not null" json:"token_number"`
	BusinessDay time.Time  `gorm:"type:date;index;not null" json:"business_day"`
	Guests      int        `gorm:"default:0" json:"guests"`
	OpenedAt    time.Time  `gorm:"autoCreateTime" json:"opened_at"`
	ClosedAt    *time.Time `json:"closed_at"`
}

type NewTableSession struct {
	TableId int `json:"table_id" binding:"required"`
	Guests  int `json:"guests"`
}

func (input *NewTableSession) validate(ctx context.Context, businessId string) error {
	if err := utils.ValidateResourceId[Table](ctx, businessId, input.TableId); err != nil {
		return errors.New("table not found")
	}
	count, err := utils.ResourceCountWhere[TableSession](ctx, businessId,
		"table_id = ? AND closed_at IS NULL", input.TableId)
	if err != nil {
		return err
	}
	if count > 0 {
		return errors.New("table already has an open session")
	}
	return nil
}

// OpenTableSession seats a table and pulls the next token from the shared
// daily sequence.
func OpenTableSession(ctx context.Context, input *NewTableSession) (*TableSession, error) {
	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}

	if err := input.validate(ctx, businessId); err != nil {
		return nil, err
	}

	businessDay, err := GetBusinessDay(ctx)
	if err != nil {
		return nil, err
	}
	token, err := NextTokenNumber(ctx, TokenScopeGlobal)
	if err != nil {
		return nil, err
	}

	session := TableSession{
		BusinessId:  businessId,
		TableId:     input.TableId,
		TokenNumber: token,
		BusinessDay: businessDay,
		Guests:      input.Guests,
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&session).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

func CloseTableSession(ctx context.Context, id int) (*TableSession, error) {
	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}

	session, err := utils.FetchModel[TableSession](ctx, businessId, id)
	if err != nil {
		return nil, err
	}
	if session.ClosedAt != nil {
		return nil, errors.New("session already closed")
	}

	count, err := utils.ResourceCountWhere[Order](ctx, businessId,
		"table_session_id = ? AND status NOT IN ?", id, []OrderStatus{OrderStatusPaid, OrderStatusCancelled})
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, errors.New("session has unpaid orders")
	}

	now := time.Now()
	db := config.GetDB()
	if err := db.WithContext(ctx).Model(&session).Update("closed_at", &now).Error; err != nil {
		return nil, err
	}
	return session, nil
}

func GetTableSession(ctx context.Context, id int) (*TableSession, error) {
	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return utils.FetchModel[TableSession](ctx, businessId, id, "Table")
}

func GetOpenTableSessions(ctx context.Context) ([]*TableSession, error) {
	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	var results []*TableSession
	if err := db.WithContext(ctx).Preload("Table").
		Where("business_id = ? AND closed_at IS NULL", businessId).
		Order("opened_at").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
