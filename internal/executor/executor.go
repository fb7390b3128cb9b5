// Package executor 调用远程代码执行服务（JDoodle 或其代理函数）运行用户提交的代码。
package executor

import (
	"bytes"
	"codegrow_backend/internal/config"
	"codegrow_backend/pkg/monitoring"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"
)

const (
	ModeGateway = "gateway"
	ModeJDoodle = "jdoodle"

	DefaultJDoodleURL = "https://api.jdoodle.com/v1/execute"

	maxResponseBytes = 1 << 20
)

// ErrExecutionFailed 网关不可达、超时、非 2xx 或响应格式错误。
// 与“答案错误”不同，调用方不得据此修改任何进度状态。
var ErrExecutionFailed = errors.New("code execution failed")

// ExecutionError 携带失败细节，errors.Is(err, ErrExecutionFailed) 恒为 true
type ExecutionError struct {
	StatusCode int
	Reason     string
	Err        error
}

func (e *ExecutionError) Error() string {
	msg := "code execution failed: " + e.Reason
	if e.StatusCode != 0 {
		msg += " (status " + strconv.Itoa(e.StatusCode) + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ExecutionError) Is(target error) bool {
	return target == ErrExecutionFailed
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// Result 远程执行结果，判题只依赖 Output
type Result struct {
	Output     string `json:"output"`
	StatusCode int    `json:"statusCode"`
	Memory     string `json:"memory"`
	CPUTime    string `json:"cpuTime"`
}

// Executor 远程代码执行
type Executor interface {
	Execute(ctx context.Context, code string) (*Result, error)
}

// Client 通过 HTTP 调用执行服务。Mode 决定请求体格式：
// gateway 发送 {code}，jdoodle 发送完整的 JDoodle 凭据与语言参数。
type Client struct {
	mode         string
	url          string
	clientID     string
	clientSecret string
	language     string
	versionIndex string
	timeout      atomic.Int64 // time.Duration，可热更新
	maxRetries   int
	httpClient   *http.Client
}

func New(cfg config.ExecutorConfig) (*Client, error) {
	c := &Client{
		mode:         cfg.Mode,
		url:          cfg.URL,
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		language:     cfg.Language,
		versionIndex: cfg.VersionIndex,
		maxRetries:   cfg.MaxRetries,
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	c.timeout.Store(int64(timeout))
	if c.language == "" {
		c.language = "java"
	}
	if c.versionIndex == "" {
		c.versionIndex = "4"
	}

	switch c.mode {
	case ModeGateway:
		if c.url == "" {
			return nil, errors.New("executor: gateway mode requires url")
		}
	case ModeJDoodle:
		if c.url == "" {
			c.url = DefaultJDoodleURL
		}
		if c.clientID == "" || c.clientSecret == "" {
			return nil, errors.New("executor: jdoodle mode requires client id and secret")
		}
	default:
		return nil, fmt.Errorf("executor: unknown mode %q", c.mode)
	}

	// 超时由每次调用的 context 控制，热更新后立即生效
	c.httpClient = &http.Client{}
	return c, nil
}

// SetTimeout 配置热更新时调整超时
func (c *Client) SetTimeout(d time.Duration) {
	if d > 0 {
		c.timeout.Store(int64(d))
	}
}

// Mode gateway 或 jdoodle
func (c *Client) Mode() string {
	return c.mode
}

// Timeout 当前执行超时
func (c *Client) Timeout() time.Duration {
	return time.Duration(c.timeout.Load())
}

type gatewayRequest struct {
	Code string `json:"code"`
}

type jdoodleRequest struct {
	ClientID     string `json:"clientId"`
	ClientSecret string `json:"clientSecret"`
	Script       string `json:"script"`
	Language     string `json:"language"`
	VersionIndex string `json:"versionIndex"`
}

type executeResponse struct {
	Output     *string         `json:"output"`
	StatusCode json.RawMessage `json:"statusCode"`
	Memory     json.RawMessage `json:"memory"`
	CPUTime    json.RawMessage `json:"cpuTime"`
}

func (c *Client) Execute(ctx context.Context, code string) (*Result, error) {
	start := time.Now()
	result, err := c.execute(ctx, code)

	outcome := "ok"
	if err != nil {
		outcome = "failure"
	}
	monitoring.ExecutorDuration.WithLabelValues(c.mode, outcome).Observe(time.Since(start).Seconds())
	return result, err
}

func (c *Client) execute(ctx context.Context, code string) (*Result, error) {
	var payload interface{}
	if c.mode == ModeJDoodle {
		payload = jdoodleRequest{
			ClientID:     c.clientID,
			ClientSecret: c.clientSecret,
			Script:       code,
			Language:     c.language,
			VersionIndex: c.versionIndex,
		}
	} else {
		payload = gatewayRequest{Code: code}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, &ExecutionError{Reason: "encode request", Err: err}
	}

	ctx, cancel := context.WithTimeout(ctx, c.Timeout())
	defer cancel()

	resp, err := doWithRetry(ctx, c.httpClient, c.maxRetries, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		return req, nil
	})
	if err != nil {
		var execErr *ExecutionError
		if errors.As(err, &execErr) {
			return nil, execErr
		}
		if errors.Is(err, context.Canceled) {
			return nil, &ExecutionError{Reason: "canceled", Err: err}
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, &ExecutionError{Reason: "timeout", Err: err}
		}
		return nil, &ExecutionError{Reason: "gateway unreachable", Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &ExecutionError{StatusCode: resp.StatusCode, Reason: "read response", Err: err}
	}

	var decoded executeResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, &ExecutionError{StatusCode: resp.StatusCode, Reason: "malformed response", Err: err}
	}
	if decoded.Output == nil {
		return nil, &ExecutionError{StatusCode: resp.StatusCode, Reason: "response has no output"}
	}

	statusCode, _ := strconv.Atoi(scalar(decoded.StatusCode))
	return &Result{
		Output:     *decoded.Output,
		StatusCode: statusCode,
		Memory:     scalar(decoded.Memory),
		CPUTime:    scalar(decoded.CPUTime),
	}, nil
}

// scalar JDoodle 的 memory/cpuTime 有时是字符串有时是数字
func scalar(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}
