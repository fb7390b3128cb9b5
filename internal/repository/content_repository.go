package repository

import (
	"codegrow_backend/internal/model"
	"context"

	"gorm.io/gorm"
)

// ContentRepository 主题 / 知识点 / 任务目录，对进度模块只读
type ContentRepository struct {
	DB *gorm.DB
}

func NewContentRepository(db *gorm.DB) *ContentRepository {
	return &ContentRepository{DB: db}
}

func (r *ContentRepository) ListThemes(ctx context.Context) ([]model.Theme, error) {
	var themes []model.Theme
	err := r.DB.WithContext(ctx).Order("sort_order ASC").Order("created_at ASC").Find(&themes).Error
	return themes, err
}

// FindTheme 查询主题并按顺序加载其下知识点
func (r *ContentRepository) FindTheme(ctx context.Context, id string) (*model.Theme, error) {
	var theme model.Theme
	err := r.DB.WithContext(ctx).
		Preload("Topics", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order ASC").Order("created_at ASC")
		}).
		Where("id = ?", id).
		First(&theme).Error
	return &theme, err
}

func (r *ContentRepository) CreateTheme(ctx context.Context, theme *model.Theme) error {
	return r.DB.WithContext(ctx).Create(theme).Error
}

func (r *ContentRepository) FindTopic(ctx context.Context, id string) (*model.Topic, error) {
	var topic model.Topic
	err := r.DB.WithContext(ctx).Where("id = ?", id).First(&topic).Error
	return &topic, err
}

func (r *ContentRepository) CreateTopic(ctx context.Context, topic *model.Topic) error {
	return r.DB.WithContext(ctx).Create(topic).Error
}

// ListTasksByTopic 按创建时间排序
func (r *ContentRepository) ListTasksByTopic(ctx context.Context, topicID string) ([]model.Task, error) {
	var tasks []model.Task
	err := r.DB.WithContext(ctx).
		Where("topic_id = ?", topicID).
		Order("created_at ASC").
		Find(&tasks).Error
	return tasks, err
}

// TaskIDsByTopic 只取任务 ID，用于知识点完成度推导
func (r *ContentRepository) TaskIDsByTopic(ctx context.Context, topicID string) ([]string, error) {
	var ids []string
	err := r.DB.WithContext(ctx).Model(&model.Task{}).
		Where("topic_id = ?", topicID).
		Order("created_at ASC").
		Pluck("id", &ids).Error
	return ids, err
}

func (r *ContentRepository) FindTask(ctx context.Context, id string) (*model.Task, error) {
	var task model.Task
	err := r.DB.WithContext(ctx).Where("id = ?", id).First(&task).Error
	return &task, err
}

func (r *ContentRepository) CreateTask(ctx context.Context, task *model.Task) error {
	return r.DB.WithContext(ctx).Create(task).Error
}

func (r *ContentRepository) CountThemes(ctx context.Context) (int64, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.Theme{}).Count(&count).Error
	return count, err
}
