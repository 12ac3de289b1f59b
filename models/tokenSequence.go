package models

import (
	"context"
	"fmt"
	"time"

	"bitbucket.org/mmdatafocus/pos_backend/config"
	"bitbucket.org/mmdatafocus/pos_backend/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TokenScopeGlobal is the scope shared by orders and table sessions.
// Stations with their own queue use StationScope(id) instead.
const TokenScopeGlobal = "global"

func StationScope(stationId int) string {
	return fmt.Sprintf("station:%d", stationId)
}

// TokenSequence is one counter row per (business day, scope). Rows are
// created lazily on first use and never deleted here; retention is an
// external housekeeping concern.
//
// `last` is only ever written through NextTokenNumber's lock-increment-commit
// path. Values 1..last have each been handed out exactly once; gaps can only
// appear when a caller's enclosing transaction rolls back after allocation.
type TokenSequence struct {
	ID          int       `gorm:"primary_key" json:"id"`
	BusinessId  string    `gorm:"uniqueIndex:idx_token_seq_key;not null" json:"business_id"`
	BusinessDay time.Time `gorm:"type:date;uniqueIndex:idx_token_seq_key;not null" json:"business_day"`
	Scope       string    `gorm:"size:50;uniqueIndex:idx_token_seq_key;not null" json:"scope"`
	Last        int       `gorm:"not null;default:0" json:"last"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// NextTokenNumber allocates the next token for the scope on the current
// business day. Safe under concurrent callers: the counter row is read under
// SELECT ... FOR UPDATE, so N racing calls for the same key return exactly
// {last+1 .. last+N}. Different scopes never contend.
//
// When InnoDB cannot grant the row lock in time the call fails with
// ErrorTransientContention; it never silently re-issues a value.
func NextTokenNumber(ctx context.Context, scope string) (int, error) {
	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return 0, err
	}

	businessDay, err := GetBusinessDay(ctx)
	if err != nil {
		return 0, err
	}

	db := config.GetDB()
	var token int
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		token, err = nextTokenNumberTx(tx, businessId, businessDay, scope)
		return err
	})
	if err != nil {
		if IsLockContentionError(err) {
			return 0, utils.ErrorTransientContention
		}
		return 0, err
	}
	return token, nil
}

// nextTokenNumberTx does the locked read-increment inside the caller's
// transaction. Exposed at this level so order creation can allocate several
// scopes atomically with the order row itself.
func nextTokenNumberTx(tx *gorm.DB, businessId string, businessDay time.Time, scope string) (int, error) {
	var seq TokenSequence
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("business_id = ? AND business_day = ? AND scope = ?", businessId, businessDay, scope).
		First(&seq).Error
	if err == gorm.ErrRecordNotFound {
		seq = TokenSequence{
			BusinessId:  businessId,
			BusinessDay: businessDay,
			Scope:       scope,
			Last:        0,
		}
		if err := tx.Create(&seq).Error; err != nil {
			// Another caller created the row between our read and insert;
			// take the lock on theirs instead.
			if !IsDuplicateKeyError(err) {
				return 0, err
			}
			if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				Where("business_id = ? AND business_day = ? AND scope = ?", businessId, businessDay, scope).
				First(&seq).Error; err != nil {
				return 0, err
			}
		}
	} else if err != nil {
		return 0, err
	}

	seq.Last++
	if err := tx.Model(&TokenSequence{}).Where("id = ?", seq.ID).
		Update("last", seq.Last).Error; err != nil {
		return 0, err
	}
	return seq.Last, nil
}
