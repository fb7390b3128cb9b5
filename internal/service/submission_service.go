package service

import (
	"codegrow_backend/internal/executor"
	"codegrow_backend/internal/repository"
	"codegrow_backend/internal/util"
	"codegrow_backend/pkg/logger"
	"codegrow_backend/pkg/monitoring"
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// SubmissionResult POST /api/tasks/:id/submit 的返回
type SubmissionResult struct {
	TaskID     string `json:"taskId"`
	IsCorrect  bool   `json:"isCorrect"`
	Output     string `json:"output"`
	StatusCode int    `json:"statusCode"`
	Memory     string `json:"memory,omitempty"`
	CPUTime    string `json:"cpuTime,omitempty"`
	// Completed 任务当前是否已完成（包括之前已完成的情况）
	Completed bool `json:"completed"`
	Attempts  int  `json:"attempts"`
	Outcome
}

// SubmissionService 运行 -> 判题 -> 记账
type SubmissionService struct {
	ContentRepo *repository.ContentRepository
	Evaluator   *EvaluatorService
	Progress    *ProgressService
}

func NewSubmissionService(contentRepo *repository.ContentRepository, evaluator *EvaluatorService, progress *ProgressService) *SubmissionService {
	return &SubmissionService{
		ContentRepo: contentRepo,
		Evaluator:   evaluator,
		Progress:    progress,
	}
}

// Submit 执行失败（网关不可达、超时、5xx）时不写入任何记录。
// 请求一旦进入就与客户端连接解绑，唯一的截止时间是执行服务自身的超时。
func (s *SubmissionService) Submit(ctx context.Context, userID uint, taskID, code string, loc *time.Location) (*SubmissionResult, error) {
	if userID == 0 {
		return nil, util.ErrUnauthenticated
	}
	ctx = context.WithoutCancel(ctx)

	task, err := s.ContentRepo.FindTask(ctx, taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrTaskNotFound
		}
		return nil, err
	}

	eval, err := s.Evaluator.Evaluate(ctx, code, task.ExpectedOutput)
	if err != nil {
		if errors.Is(err, executor.ErrExecutionFailed) {
			monitoring.SubmissionCounter.WithLabelValues("execution_failure").Inc()
			logger.Log.Warn("Code execution failed",
				zap.Uint("userID", userID),
				zap.String("taskID", task.ID),
				zap.Error(err),
			)
		}
		return nil, err
	}

	result := "incorrect"
	if eval.IsCorrect {
		result = "correct"
	}
	monitoring.SubmissionCounter.WithLabelValues(result).Inc()

	completion, outcome, err := s.Progress.RecordSubmission(ctx, userID, task.ID, code, eval.IsCorrect, RecordOptions{
		Output:   eval.RawOutput,
		Location: loc,
	})
	if err != nil {
		return nil, err
	}

	return &SubmissionResult{
		TaskID:     task.ID,
		IsCorrect:  eval.IsCorrect,
		Output:     eval.RawOutput,
		StatusCode: eval.StatusCode,
		Memory:     eval.Memory,
		CPUTime:    eval.CPUTime,
		Completed:  completion.Completed,
		Attempts:   completion.Attempts,
		Outcome:    *outcome,
	}, nil
}

// Run 只运行代码，不判题也不记录
func (s *SubmissionService) Run(ctx context.Context, code string) (*executor.Result, error) {
	if strings.TrimSpace(code) == "" {
		return nil, util.ErrEmptyCode
	}
	return s.Evaluator.Executor.Execute(ctx, code)
}

