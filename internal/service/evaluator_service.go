package service

import (
	"codegrow_backend/internal/executor"
	"codegrow_backend/internal/util"
	"context"
	"strings"
)

// Evaluation 一次判题结果
type Evaluation struct {
	RawOutput  string `json:"output"`
	IsCorrect  bool   `json:"isCorrect"`
	StatusCode int    `json:"statusCode"`
	Memory     string `json:"memory,omitempty"`
	CPUTime    string `json:"cpuTime,omitempty"`
}

// EvaluatorService 运行代码并与期望输出比较，不做任何持久化
type EvaluatorService struct {
	Executor executor.Executor
}

func NewEvaluatorService(exec executor.Executor) *EvaluatorService {
	return &EvaluatorService{Executor: exec}
}

// Evaluate 执行失败时返回 *executor.ExecutionError，而不是判定为答案错误
func (s *EvaluatorService) Evaluate(ctx context.Context, code, expectedOutput string) (*Evaluation, error) {
	if strings.TrimSpace(code) == "" {
		return nil, util.ErrEmptyCode
	}

	result, err := s.Executor.Execute(ctx, code)
	if err != nil {
		return nil, err
	}

	return &Evaluation{
		RawOutput:  result.Output,
		IsCorrect:  OutputMatches(result.Output, expectedOutput),
		StatusCode: result.StatusCode,
		Memory:     result.Memory,
		CPUTime:    result.CPUTime,
	}, nil
}

// OutputMatches 只去掉首尾空白后逐字比较，大小写和内部空白都敏感
func OutputMatches(raw, expected string) bool {
	return strings.TrimSpace(raw) == strings.TrimSpace(expected)
}
