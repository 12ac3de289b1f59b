package models

import (
	"context"
	"errors"

	"bitbucket.org/mmdatafocus/pos_backend/utils"
	"github.com/go-sql-driver/mysql"
)

func businessIdFromContext(ctx context.Context) (string, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return "", errors.New("business id is required")
	}
	return businessId, nil
}

// MySQL server error numbers we branch on.
const (
	mysqlErrDuplicateEntry  = 1062
	mysqlErrLockWaitTimeout = 1205
	mysqlErrDeadlock        = 1213
)

func isMySQLError(err error, number uint16) bool {
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == number
	}
	return false
}

// IsDuplicateKeyError reports a unique-index violation (e.g. an order number
// collision between two concurrent creators).
func IsDuplicateKeyError(err error) bool {
	return isMySQLError(err, mysqlErrDuplicateEntry)
}

// IsLockContentionError reports that InnoDB gave up waiting for a row lock
// or chose this transaction as a deadlock victim. Both cases are safe to
// retry from scratch.
func IsLockContentionError(err error) bool {
	return isMySQLError(err, mysqlErrLockWaitTimeout) || isMySQLError(err, mysqlErrDeadlock)
}
