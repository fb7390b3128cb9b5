package repository

import (
	"codegrow_backend/internal/model"
	"codegrow_backend/internal/util"
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProgressRepository 任务完成与知识点完成记录
type ProgressRepository struct {
	DB *gorm.DB
}

func NewProgressRepository(db *gorm.DB) *ProgressRepository {
	return &ProgressRepository{DB: db}
}

func (r *ProgressRepository) WithTx(tx *gorm.DB) *ProgressRepository {
	return &ProgressRepository{DB: tx}
}

// FindTaskCompletion 不存在时返回 (nil, nil)
func (r *ProgressRepository) FindTaskCompletion(ctx context.Context, userID uint, taskID string) (*model.UserTaskCompletion, error) {
	var completion model.UserTaskCompletion
	err := r.DB.WithContext(ctx).
		Where("user_id = ? AND task_id = ?", userID, taskID).
		First(&completion).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &completion, nil
}

// SaveTaskCompletion 新记录插入，已有记录整行更新
func (r *ProgressRepository) SaveTaskCompletion(ctx context.Context, completion *model.UserTaskCompletion) error {
	if completion.ID == 0 {
		return r.DB.WithContext(ctx).Create(completion).Error
	}
	return r.DB.WithContext(ctx).Save(completion).Error
}

// CompletedTaskIDs 返回 taskIDs 中该用户已完成的子集。
// 按 batchSize 分批做 IN 查询并发执行，规避部分数据库对 IN 列表长度的限制。
func (r *ProgressRepository) CompletedTaskIDs(ctx context.Context, userID uint, taskIDs []string, batchSize int) (map[string]bool, error) {
	completed := make(map[string]bool, len(taskIDs))
	if len(taskIDs) == 0 {
		return completed, nil
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for _, batch := range util.Chunk(taskIDs, batchSize) {
		batch := batch
		g.Go(func() error {
			var ids []string
			err := r.DB.WithContext(gctx).Model(&model.UserTaskCompletion{}).
				Where("user_id = ? AND completed = ? AND task_id IN ?", userID, true, batch).
				Pluck("task_id", &ids).Error
			if err != nil {
				return err
			}
			mu.Lock()
			for _, id := range ids {
				completed[id] = true
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return completed, nil
}

// UpsertTopicCompletion 以 (user_id, topic_id) 为键写入，重复执行结果一致
func (r *ProgressRepository) UpsertTopicCompletion(ctx context.Context, userID uint, topicID string, completed bool, at time.Time) error {
	row := model.UserTopicCompletion{
		UserID:      userID,
		TopicID:     topicID,
		Completed:   completed,
		EvaluatedAt: at,
	}
	return r.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "topic_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"completed", "evaluated_at", "updated_at"}),
	}).Create(&row).Error
}

func (r *ProgressRepository) FindTopicCompletion(ctx context.Context, userID uint, topicID string) (*model.UserTopicCompletion, error) {
	var completion model.UserTopicCompletion
	err := r.DB.WithContext(ctx).
		Where("user_id = ? AND topic_id = ?", userID, topicID).
		First(&completion).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &completion, nil
}

// TaskCompletionsByTask 目录页展示用，按任务 ID 索引
func (r *ProgressRepository) TaskCompletionsByTask(ctx context.Context, userID uint, taskIDs []string) (map[string]model.UserTaskCompletion, error) {
	result := make(map[string]model.UserTaskCompletion, len(taskIDs))
	if len(taskIDs) == 0 {
		return result, nil
	}
	var rows []model.UserTaskCompletion
	err := r.DB.WithContext(ctx).
		Where("user_id = ? AND task_id IN ?", userID, taskIDs).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		result[row.TaskID] = row
	}
	return result, nil
}

// CompletedTopicIDs 主题页展示用
func (r *ProgressRepository) CompletedTopicIDs(ctx context.Context, userID uint, topicIDs []string) (map[string]bool, error) {
	result := make(map[string]bool, len(topicIDs))
	if len(topicIDs) == 0 {
		return result, nil
	}
	var ids []string
	err := r.DB.WithContext(ctx).Model(&model.UserTopicCompletion{}).
		Where("user_id = ? AND completed = ? AND topic_id IN ?", userID, true, topicIDs).
		Pluck("topic_id", &ids).Error
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		result[id] = true
	}
	return result, nil
}

func (r *ProgressRepository) CountCompletedTopics(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.UserTopicCompletion{}).
		Where("user_id = ? AND completed = ?", userID, true).
		Count(&count).Error
	return count, err
}
