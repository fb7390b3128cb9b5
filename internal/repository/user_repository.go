package repository

import (
	"codegrow_backend/internal/model"
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UserRepository struct {
	DB *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{DB: db}
}

// WithTx 返回绑定到事务的仓库副本
func (r *UserRepository) WithTx(tx *gorm.DB) *UserRepository {
	return &UserRepository{DB: tx}
}

func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	return r.DB.WithContext(ctx).Create(user).Error
}

func (r *UserRepository) FindByID(ctx context.Context, id uint) (*model.User, error) {
	var user model.User
	err := r.DB.WithContext(ctx).First(&user, id).Error
	return &user, err
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	err := r.DB.WithContext(ctx).Where("email = ?", email).First(&user).Error
	return &user, err
}

// FindForUpdate 在事务内读取并锁定用户行（SELECT ... FOR UPDATE），
// 同一用户的进度读改写因此被串行化。不存在时返回 (nil, nil)。
func (r *UserRepository) FindForUpdate(ctx context.Context, id uint) (*model.User, error) {
	var user model.User
	err := r.DB.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&user, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// SaveProgress 只写入进度聚合字段
func (r *UserRepository) SaveProgress(ctx context.Context, user *model.User) error {
	return r.DB.WithContext(ctx).Model(&model.User{}).
		Where("id = ?", user.ID).
		Updates(map[string]interface{}{
			"completed_tasks_count": user.CompletedTasksCount,
			"current_streak":        user.CurrentStreak,
			"longest_streak":        user.LongestStreak,
			"last_completed_date":   user.LastCompletedDate,
			"updated_at":            time.Now(),
		}).Error
}

func (r *UserRepository) UpdateLastLogin(ctx context.Context, userID uint, at time.Time) error {
	return r.DB.WithContext(ctx).Model(&model.User{}).
		Where("id = ?", userID).
		Update("last_login", at).Error
}

func (r *UserRepository) UpdateAvatar(ctx context.Context, userID uint, url string) error {
	return r.DB.WithContext(ctx).Model(&model.User{}).
		Where("id = ?", userID).
		Update("avatar", url).Error
}

// FindTopByStreak 按当前 streak、累计完成数排序
func (r *UserRepository) FindTopByStreak(ctx context.Context, limit int) ([]model.User, error) {
	var users []model.User
	err := r.DB.WithContext(ctx).
		Order("current_streak DESC").
		Order("completed_tasks_count DESC").
		Order("id ASC").
		Limit(limit).
		Find(&users).Error
	return users, err
}
