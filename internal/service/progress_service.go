package service

import (
	"codegrow_backend/internal/config"
	"codegrow_backend/internal/model"
	"codegrow_backend/internal/repository"
	"codegrow_backend/internal/streak"
	"codegrow_backend/internal/util"
	"codegrow_backend/pkg/logger"
	"codegrow_backend/pkg/monitoring"
	"codegrow_backend/pkg/tracing"
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Streak 事件标签
const (
	StreakStarted  = "started"
	StreakKept     = "kept"
	StreakAdvanced = "advanced"
	StreakReset    = "reset"
	StreakDecayed  = "decayed"
)

// LeaderboardInvalidator 进度变化后让排行榜缓存失效
type LeaderboardInvalidator interface {
	Invalidate(ctx context.Context) error
}

// RecordOptions 记录提交时的附加信息
type RecordOptions struct {
	// Output 本次运行的原始输出，保存下来便于回看
	Output string
	// Location 计算自然日使用的时区，为空时使用服务端默认时区
	Location *time.Location
}

// Outcome 一次提交对进度的影响
type Outcome struct {
	FirstCompletion bool                  `json:"firstCompletion"`
	StreakEvent     string                `json:"streakEvent,omitempty"`
	TopicID         string                `json:"topicId"`
	TopicCompleted  *bool                 `json:"topicCompleted,omitempty"`
	Progress        model.ProgressSummary `json:"progress"`
}

// ProgressView GET /api/progress 的返回
type ProgressView struct {
	model.ProgressSummary
	CompletedTopicsCount int64 `json:"completedTopicsCount"`
}

// ProgressService 进度账本：任务完成记录、用户聚合进度（完成数 / streak）与知识点完成度。
// 用户聚合字段的每次读改写都在事务内锁定用户行完成。
type ProgressService struct {
	DB           *gorm.DB
	UserRepo     *repository.UserRepository
	ContentRepo  *repository.ContentRepository
	ProgressRepo *repository.ProgressRepository
	Leaderboard  LeaderboardInvalidator

	location   *time.Location
	batchSize  int
	maxRetries int
	now        func() time.Time
}

func NewProgressService(
	db *gorm.DB,
	userRepo *repository.UserRepository,
	contentRepo *repository.ContentRepository,
	progressRepo *repository.ProgressRepository,
	leaderboard LeaderboardInvalidator,
	cfg config.ProgressConfig,
) *ProgressService {
	loc, err := cfg.Location()
	if err != nil {
		loc = time.Local
	}
	return &ProgressService{
		DB:           db,
		UserRepo:     userRepo,
		ContentRepo:  contentRepo,
		ProgressRepo: progressRepo,
		Leaderboard:  leaderboard,
		location:     loc,
		batchSize:    cfg.LookupBatchSize,
		maxRetries:   cfg.TxMaxRetries,
		now:          time.Now,
	}
}

// SetClock 测试用
func (s *ProgressService) SetClock(now func() time.Time) {
	s.now = now
}

// DefaultLocation 服务端默认时区
func (s *ProgressService) DefaultLocation() *time.Location {
	return s.location
}

func (s *ProgressService) resolveLocation(loc *time.Location) *time.Location {
	if loc != nil {
		return loc
	}
	return s.location
}

// RecordSubmission 保存一次提交并在首次通过时推进用户进度。
//
// 任务完成状态不会回退：已完成的任务再次提交错误答案只会更新代码与最近运行结果。
// 完成数与 streak 只在 isCorrect && !wasCompletedBefore 时变化，每个任务至多一次。
// 知识点完成度在事务提交后重新推导，失败只记录日志，可以通过 RecomputeTopicCompletion 补偿。
func (s *ProgressService) RecordSubmission(
	ctx context.Context,
	userID uint,
	taskID string,
	code string,
	isCorrect bool,
	opts RecordOptions,
) (*model.UserTaskCompletion, *Outcome, error) {
	if userID == 0 {
		return nil, nil, util.ErrUnauthenticated
	}

	task, err := s.ContentRepo.FindTask(ctx, taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, util.ErrTaskNotFound
		}
		return nil, nil, err
	}

	loc := s.resolveLocation(opts.Location)

	// 客户端断开不应中断已经开始的写入
	ctx = context.WithoutCancel(ctx)
	ctx, span := tracing.Tracer.Start(ctx, "ProgressService.RecordSubmission", trace.WithAttributes(
		attribute.Int64("user.id", int64(userID)),
		attribute.String("task.id", task.ID),
		attribute.Bool("submission.correct", isCorrect),
	))
	defer span.End()

	var (
		completion *model.UserTaskCompletion
		outcome    *Outcome
	)
	err = runInTx(ctx, s.DB, s.maxRetries, func(tx *gorm.DB) error {
		users := s.UserRepo.WithTx(tx)
		progress := s.ProgressRepo.WithTx(tx)
		now := s.now()

		user, err := users.FindForUpdate(ctx, userID)
		if err != nil {
			return err
		}
		if user == nil {
			return util.ErrUserNotFound
		}

		existing, err := progress.FindTaskCompletion(ctx, userID, task.ID)
		if err != nil {
			return err
		}
		wasCompletedBefore := existing != nil && existing.Completed

		row := existing
		if row == nil {
			row = &model.UserTaskCompletion{UserID: userID, TaskID: task.ID}
		}
		row.Code = code
		row.LastRunAt = now
		row.LastRunPassed = isCorrect
		row.LastOutput = opts.Output
		row.Attempts++
		row.Completed = wasCompletedBefore || isCorrect

		firstCompletion := isCorrect && !wasCompletedBefore
		if firstCompletion {
			completedAt := now
			row.CompletedAt = &completedAt
		}

		if err := progress.SaveTaskCompletion(ctx, row); err != nil {
			return fmt.Errorf("save task completion: %w", err)
		}

		o := &Outcome{TopicID: task.TopicID}
		if firstCompletion {
			prev := stateOf(user)
			next := streak.Advance(prev, now, loc)
			applyState(user, next)
			if err := users.SaveProgress(ctx, user); err != nil {
				return fmt.Errorf("save progress: %w", err)
			}
			o.FirstCompletion = true
			o.StreakEvent = classifyAdvance(prev, now, loc)
		}
		o.Progress = user.Progress()

		completion = row
		outcome = o
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, nil, err
	}

	if outcome.FirstCompletion {
		monitoring.StreakEvents.WithLabelValues(outcome.StreakEvent).Inc()
		s.invalidateLeaderboard(ctx)
		logger.Log.Info("Task completed",
			zap.Uint("userID", userID),
			zap.String("taskID", task.ID),
			zap.String("streakEvent", outcome.StreakEvent),
			zap.Int("currentStreak", outcome.Progress.CurrentStreak),
		)
	}

	if isCorrect {
		completed, err := s.RecomputeTopicCompletion(ctx, userID, task.TopicID)
		if err != nil {
			monitoring.TopicRecomputeFailures.Inc()
			logger.Log.Error("Topic completion recompute failed",
				zap.Uint("userID", userID),
				zap.String("topicID", task.TopicID),
				zap.Error(err),
			)
		} else {
			outcome.TopicCompleted = &completed
		}
	}

	return completion, outcome, nil
}

// RecomputeTopicCompletion 根据任务完成记录重新推导知识点是否完成，结果写回并返回。
// 没有任何任务的知识点恒为未完成且不写入。重复调用结果一致。
func (s *ProgressService) RecomputeTopicCompletion(ctx context.Context, userID uint, topicID string) (bool, error) {
	if userID == 0 {
		return false, util.ErrUnauthenticated
	}

	if _, err := s.ContentRepo.FindTopic(ctx, topicID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, util.ErrTopicNotFound
		}
		return false, err
	}

	taskIDs, err := s.ContentRepo.TaskIDsByTopic(ctx, topicID)
	if err != nil {
		return false, fmt.Errorf("list topic tasks: %w", err)
	}
	if len(taskIDs) == 0 {
		return false, nil
	}

	done, err := s.ProgressRepo.CompletedTaskIDs(ctx, userID, taskIDs, s.batchSize)
	if err != nil {
		return false, fmt.Errorf("load completed tasks: %w", err)
	}

	completed := true
	for _, id := range taskIDs {
		if !done[id] {
			completed = false
			break
		}
	}

	if err := s.ProgressRepo.UpsertTopicCompletion(ctx, userID, topicID, completed, s.now()); err != nil {
		return false, fmt.Errorf("save topic completion: %w", err)
	}
	return completed, nil
}

// CheckAndDecay 会话开始时调用：连续两个自然日以上没有完成任务则 streak 归零。
// 用户不存在视为无操作。
func (s *ProgressService) CheckAndDecay(ctx context.Context, userID uint, loc *time.Location) (bool, error) {
	if userID == 0 {
		return false, util.ErrUnauthenticated
	}
	loc = s.resolveLocation(loc)
	ctx = context.WithoutCancel(ctx)

	var decayed bool
	err := runInTx(ctx, s.DB, s.maxRetries, func(tx *gorm.DB) error {
		decayed = false
		users := s.UserRepo.WithTx(tx)

		user, err := users.FindForUpdate(ctx, userID)
		if err != nil || user == nil {
			return err
		}

		next, changed := streak.Decay(stateOf(user), s.now(), loc)
		if !changed {
			return nil
		}
		applyState(user, next)
		if err := users.SaveProgress(ctx, user); err != nil {
			return err
		}
		decayed = true
		return nil
	})
	if err != nil {
		return false, err
	}

	if decayed {
		monitoring.StreakEvents.WithLabelValues(StreakDecayed).Inc()
		s.invalidateLeaderboard(ctx)
		logger.Log.Info("Streak decayed", zap.Uint("userID", userID))
	}
	return decayed, nil
}

func (s *ProgressService) GetProgress(ctx context.Context, userID uint) (*ProgressView, error) {
	user, err := s.UserRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrUserNotFound
		}
		return nil, err
	}

	topics, err := s.ProgressRepo.CountCompletedTopics(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &ProgressView{
		ProgressSummary:      user.Progress(),
		CompletedTopicsCount: topics,
	}, nil
}

func (s *ProgressService) invalidateLeaderboard(ctx context.Context) {
	if s.Leaderboard == nil {
		return
	}
	if err := s.Leaderboard.Invalidate(ctx); err != nil {
		logger.Log.Warn("Leaderboard cache invalidation failed", zap.Error(err))
	}
}

func stateOf(u *model.User) streak.State {
	return streak.State{
		CompletedTasksCount: u.CompletedTasksCount,
		CurrentStreak:       u.CurrentStreak,
		LongestStreak:       u.LongestStreak,
		LastCompletedDate:   u.LastCompletedDate,
	}
}

func applyState(u *model.User, st streak.State) {
	u.CompletedTasksCount = st.CompletedTasksCount
	u.CurrentStreak = st.CurrentStreak
	u.LongestStreak = st.LongestStreak
	u.LastCompletedDate = st.LastCompletedDate
}

func classifyAdvance(prev streak.State, now time.Time, loc *time.Location) string {
	if prev.LastCompletedDate == nil {
		return StreakStarted
	}
	switch streak.DaysBetween(*prev.LastCompletedDate, now, loc) {
	case 0:
		return StreakKept
	case 1:
		return StreakAdvanced
	default:
		return StreakReset
	}
}
