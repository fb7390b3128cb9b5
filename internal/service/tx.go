package service

import (
	"codegrow_backend/pkg/monitoring"
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/mattn/go-sqlite3"
	"gorm.io/gorm"
)

const (
	txRetryBaseDelay = 20 * time.Millisecond
	txRetryMaxDelay  = 500 * time.Millisecond
)

// MySQL: 1213 死锁, 1205 锁等待超时
const (
	mysqlErrDeadlock    = 1213
	mysqlErrLockTimeout = 1205
)

// runInTx 执行事务，遇到锁冲突时整体重试（重新读取并重新计算）
func runInTx(ctx context.Context, db *gorm.DB, maxRetries int, fn func(tx *gorm.DB) error) error {
	for attempt := 0; ; attempt++ {
		err := db.WithContext(ctx).Transaction(fn)
		if err == nil || !isTxConflict(err) || attempt >= maxRetries {
			return err
		}

		monitoring.TxRetries.Inc()

		delay := txRetryBaseDelay << attempt
		if delay > txRetryMaxDelay {
			delay = txRetryMaxDelay
		}
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// isTxConflict MySQL 死锁/锁等待超时，sqlite 的 BUSY 与共享缓存下的 LOCKED
func isTxConflict(err error) bool {
	if err == nil {
		return false
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == mysqlErrDeadlock || myErr.Number == mysqlErrLockTimeout
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code == sqlite3.ErrBusy || liteErr.Code == sqlite3.ErrLocked
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "database table is locked") ||
		strings.Contains(msg, "SQLITE_BUSY") ||
		strings.Contains(msg, "SQLITE_LOCKED")
}
