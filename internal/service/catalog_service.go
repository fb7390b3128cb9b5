package service

import (
	"codegrow_backend/internal/model"
	"codegrow_backend/internal/repository"
	"codegrow_backend/internal/util"
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// TopicView 知识点及当前用户的完成状态
type TopicView struct {
	model.Topic
	Completed bool `json:"completed"`
}

// ThemeDetail 主题详情
type ThemeDetail struct {
	model.Theme
	Topics []TopicView `json:"topics"`
}

// TaskView 任务及当前用户保存的代码，便于继续作答
type TaskView struct {
	model.Task
	Completed     bool   `json:"completed"`
	SavedCode     string `json:"savedCode,omitempty"`
	LastRunPassed bool   `json:"lastRunPassed"`
	Attempts      int    `json:"attempts"`
}

// TopicDetail 知识点详情，任务按创建时间排序
type TopicDetail struct {
	model.Topic
	Completed bool       `json:"completed"`
	Tasks     []TaskView `json:"tasks"`
}

// CatalogService 课程目录的浏览与管理员创建
type CatalogService struct {
	ContentRepo  *repository.ContentRepository
	ProgressRepo *repository.ProgressRepository
}

func NewCatalogService(contentRepo *repository.ContentRepository, progressRepo *repository.ProgressRepository) *CatalogService {
	return &CatalogService{
		ContentRepo:  contentRepo,
		ProgressRepo: progressRepo,
	}
}

func (s *CatalogService) ListThemes(ctx context.Context) ([]model.Theme, error) {
	return s.ContentRepo.ListThemes(ctx)
}

func (s *CatalogService) GetTheme(ctx context.Context, userID uint, themeID string) (*ThemeDetail, error) {
	theme, err := s.ContentRepo.FindTheme(ctx, themeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrThemeNotFound
		}
		return nil, err
	}

	topicIDs := make([]string, 0, len(theme.Topics))
	for _, t := range theme.Topics {
		topicIDs = append(topicIDs, t.ID)
	}
	done, err := s.ProgressRepo.CompletedTopicIDs(ctx, userID, topicIDs)
	if err != nil {
		return nil, err
	}

	detail := &ThemeDetail{Theme: *theme, Topics: make([]TopicView, 0, len(theme.Topics))}
	for _, t := range theme.Topics {
		detail.Topics = append(detail.Topics, TopicView{Topic: t, Completed: done[t.ID]})
	}
	detail.Theme.Topics = nil
	return detail, nil
}

func (s *CatalogService) GetTopic(ctx context.Context, userID uint, topicID string, revealAnswers bool) (*TopicDetail, error) {
	topic, err := s.ContentRepo.FindTopic(ctx, topicID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrTopicNotFound
		}
		return nil, err
	}

	tasks, err := s.ContentRepo.ListTasksByTopic(ctx, topicID)
	if err != nil {
		return nil, err
	}

	taskIDs := make([]string, 0, len(tasks))
	for _, t := range tasks {
		taskIDs = append(taskIDs, t.ID)
	}
	completions, err := s.ProgressRepo.TaskCompletionsByTask(ctx, userID, taskIDs)
	if err != nil {
		return nil, err
	}
	topicDone, err := s.ProgressRepo.CompletedTopicIDs(ctx, userID, []string{topicID})
	if err != nil {
		return nil, err
	}

	detail := &TopicDetail{Topic: *topic, Completed: topicDone[topicID], Tasks: make([]TaskView, 0, len(tasks))}
	for _, t := range tasks {
		c, ok := completions[t.ID]
		var cp *model.UserTaskCompletion
		if ok {
			cp = &c
		}
		detail.Tasks = append(detail.Tasks, taskView(t, cp, revealAnswers))
	}
	return detail, nil
}

// GetTask 学生看不到期望输出
func (s *CatalogService) GetTask(ctx context.Context, userID uint, taskID string, revealAnswers bool) (*TaskView, error) {
	task, err := s.ContentRepo.FindTask(ctx, taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrTaskNotFound
		}
		return nil, err
	}

	completions, err := s.ProgressRepo.TaskCompletionsByTask(ctx, userID, []string{task.ID})
	if err != nil {
		return nil, err
	}
	var cp *model.UserTaskCompletion
	if c, ok := completions[task.ID]; ok {
		cp = &c
	}
	view := taskView(*task, cp, revealAnswers)
	return &view, nil
}

func taskView(t model.Task, c *model.UserTaskCompletion, revealAnswers bool) TaskView {
	if !revealAnswers {
		t.ExpectedOutput = ""
	}
	view := TaskView{Task: t}
	if c != nil {
		view.Completed = c.Completed
		view.SavedCode = c.Code
		view.LastRunPassed = c.LastRunPassed
		view.Attempts = c.Attempts
	}
	return view
}

func (s *CatalogService) CreateTheme(ctx context.Context, theme *model.Theme) error {
	theme.Name = strings.TrimSpace(theme.Name)
	if theme.Name == "" {
		return fmt.Errorf("%w: theme name is required", util.ErrInvalidContent)
	}
	return s.ContentRepo.CreateTheme(ctx, theme)
}

func (s *CatalogService) CreateTopic(ctx context.Context, topic *model.Topic) error {
	topic.Name = strings.TrimSpace(topic.Name)
	if topic.Name == "" {
		return fmt.Errorf("%w: topic name is required", util.ErrInvalidContent)
	}
	if _, err := s.ContentRepo.FindTheme(ctx, topic.ThemeID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return util.ErrThemeNotFound
		}
		return err
	}
	return s.ContentRepo.CreateTopic(ctx, topic)
}

func (s *CatalogService) CreateTask(ctx context.Context, task *model.Task) error {
	task.Title = strings.TrimSpace(task.Title)
	if task.Title == "" {
		return fmt.Errorf("%w: task title is required", util.ErrInvalidContent)
	}
	if _, err := s.ContentRepo.FindTopic(ctx, task.TopicID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return util.ErrTopicNotFound
		}
		return err
	}
	if strings.TrimSpace(task.StarterCode) == "" {
		task.StarterCode = model.DefaultStarterCode
	}
	return s.ContentRepo.CreateTask(ctx, task)
}
