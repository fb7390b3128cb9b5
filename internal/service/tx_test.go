package service

import (
	"codegrow_backend/internal/model"
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestIsTxConflict(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"mysql deadlock", &mysql.MySQLError{Number: 1213}, true},
		{"mysql lock wait timeout", &mysql.MySQLError{Number: 1205}, true},
		{"mysql duplicate key", &mysql.MySQLError{Number: 1062}, false},
		{"wrapped deadlock", fmt.Errorf("save progress: %w", &mysql.MySQLError{Number: 1213}), true},
		{"sqlite busy", sqlite3.Error{Code: sqlite3.ErrBusy}, true},
		{"sqlite locked", sqlite3.Error{Code: sqlite3.ErrLocked}, true},
		{"sqlite constraint", sqlite3.Error{Code: sqlite3.ErrConstraint}, false},
		{"database is locked", errors.New("database is locked"), true},
		{"shared cache table lock", errors.New("database table is locked: users"), true},
		{"record not found", gorm.ErrRecordNotFound, false},
		{"nil", nil, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, isTxConflict(tc.err))
		})
	}
}

func countThemes(t *testing.T, db *gorm.DB, name string) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&model.Theme{}).Where("name = ?", name).Count(&n).Error)
	return n
}

func TestRunInTxRetriesWholeClosureOnDeadlock(t *testing.T) {
	db := newTestDB(t)

	calls := 0
	err := runInTx(context.Background(), db, 3, func(tx *gorm.DB) error {
		calls++
		if err := tx.Create(&model.Theme{Name: "retried"}).Error; err != nil {
			return err
		}
		if calls < 3 {
			return &mysql.MySQLError{Number: 1213, Message: "Deadlock found when trying to get lock"}
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, int64(1), countThemes(t, db, "retried"), "failed attempts rolled back")
}

func TestRunInTxGivesUpAfterMaxRetries(t *testing.T) {
	db := newTestDB(t)

	calls := 0
	err := runInTx(context.Background(), db, 2, func(tx *gorm.DB) error {
		calls++
		return sqlite3.Error{Code: sqlite3.ErrBusy}
	})
	require.Error(t, err)
	assert.True(t, isTxConflict(err))
	assert.Equal(t, 3, calls)
}

func TestRunInTxDoesNotRetryOtherErrors(t *testing.T) {
	db := newTestDB(t)
	boom := errors.New("boom")

	calls := 0
	err := runInTx(context.Background(), db, 5, func(tx *gorm.DB) error {
		calls++
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}

func TestRunInTxStopsWhenContextDone(t *testing.T) {
	db := newTestDB(t)
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	err := runInTx(ctx, db, 5, func(tx *gorm.DB) error {
		calls++
		cancel()
		return &mysql.MySQLError{Number: 1205}
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}
