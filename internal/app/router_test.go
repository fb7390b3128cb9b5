package app

import (
	"bytes"
	"codegrow_backend/internal/config"
	"codegrow_backend/internal/executor"
	"codegrow_backend/internal/model"
	"codegrow_backend/internal/util"
	"codegrow_backend/pkg/database"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const testSecret = "router-test-secret-router-test-secret"

type stubExecutor struct {
	output string
	err    error
}

func (s *stubExecutor) Execute(ctx context.Context, code string) (*executor.Result, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &executor.Result{Output: s.output, StatusCode: 200}, nil
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type testServer struct {
	app  *App
	db   *gorm.DB
	exec *stubExecutor
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, database.Migrate(db))

	cfg := &config.Config{
		Server:   config.ServerConfig{Mode: gin.TestMode},
		JWT:      config.JWTConfig{Secret: testSecret, ExpireTime: time.Hour},
		Storage:  config.StorageConfig{Type: "local", LocalPath: t.TempDir()},
		Progress: config.ProgressConfig{Timezone: "UTC", LookupBatchSize: 10, TxMaxRetries: 3},
	}
	exec := &stubExecutor{output: "Hello, Codegrow!"}
	a := New(cfg, db, nil, exec)
	t.Cleanup(a.Close)
	return &testServer{app: a, db: db, exec: exec}
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(util.TimezoneHeader, "UTC")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.app.Router.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		_ = json.Unmarshal(w.Body.Bytes(), &env)
	}
	return w, env
}

func (s *testServer) login(t *testing.T, email string) string {
	t.Helper()
	w, _ := s.do(t, http.MethodPost, "/api/register", "", gin.H{"name": "Learner", "email": email, "password": "password123"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w, env := s.do(t, http.MethodPost, "/api/login", "", gin.H{"email": email, "password": "password123"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var data struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	return data.Token
}

func (s *testServer) seededTask(t *testing.T) model.Task {
	t.Helper()
	var task model.Task
	require.NoError(t, s.db.Where("expected_output = ?", "Hello, Codegrow!").First(&task).Error)
	return task
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	w, env := s.do(t, http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var data struct {
		Status     string `json:"status"`
		Components struct {
			Database string `json:"database"`
			Cache    string `json:"cache"`
		} `json:"components"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, "ok", data.Status)
	assert.Equal(t, "up", data.Components.Database)
	assert.Equal(t, "disabled", data.Components.Cache)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	s := newTestServer(t)
	task := s.seededTask(t)

	w, _ := s.do(t, http.MethodPost, "/api/tasks/"+task.ID+"/submit", "", gin.H{"code": "x"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	var n int64
	s.db.Model(&model.UserTaskCompletion{}).Count(&n)
	assert.Equal(t, int64(0), n)
}

func TestSubmitFlow(t *testing.T) {
	s := newTestServer(t)
	token := s.login(t, "flow@example.com")
	task := s.seededTask(t)

	// 学生看不到期望输出
	w, env := s.do(t, http.MethodGet, "/api/tasks/"+task.ID, token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, string(env.Data), "expectedOutput")

	s.exec.output = "Hello, Codegrow!\n"
	w, env = s.do(t, http.MethodPost, "/api/tasks/"+task.ID+"/submit", token, gin.H{"code": "class Main {}"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var result struct {
		IsCorrect       bool  `json:"isCorrect"`
		Completed       bool  `json:"completed"`
		FirstCompletion bool  `json:"firstCompletion"`
		TopicCompleted  *bool `json:"topicCompleted"`
		Progress        struct {
			CompletedTasksCount int `json:"completedTasksCount"`
			CurrentStreak       int `json:"currentStreak"`
		} `json:"progress"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.True(t, result.IsCorrect)
	assert.True(t, result.Completed)
	assert.True(t, result.FirstCompletion)
	require.NotNil(t, result.TopicCompleted)
	assert.True(t, *result.TopicCompleted)
	assert.Equal(t, 1, result.Progress.CompletedTasksCount)
	assert.Equal(t, 1, result.Progress.CurrentStreak)

	w, env = s.do(t, http.MethodGet, "/api/progress", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), `"completedTopicsCount":1`)

	w, _ = s.do(t, http.MethodPost, "/api/progress/topics/"+task.TopicID+"/recompute", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, env = s.do(t, http.MethodGet, "/api/leaderboard?limit=5", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), `"currentStreak":1`)
}

func TestSubmitErrors(t *testing.T) {
	s := newTestServer(t)
	token := s.login(t, "errors@example.com")
	task := s.seededTask(t)

	w, _ := s.do(t, http.MethodPost, "/api/tasks/"+task.ID+"/submit", token, gin.H{"code": "  "})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = s.do(t, http.MethodPost, "/api/tasks/missing/submit", token, gin.H{"code": "x"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	s.exec.err = &executor.ExecutionError{StatusCode: http.StatusInternalServerError, Reason: "gateway returned 500"}
	w, env := s.do(t, http.MethodPost, "/api/tasks/"+task.ID+"/submit", token, gin.H{"code": "x"})
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.JSONEq(t, `{"retryable":true}`, string(env.Data))

	s.exec.err = errors.New("boom")
	w, _ = s.do(t, http.MethodPost, "/api/execute", token, gin.H{"code": "x"})
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var n int64
	s.db.Model(&model.UserTaskCompletion{}).Count(&n)
	assert.Equal(t, int64(0), n, "failed executions write nothing")
}

func TestBadTimezoneRejected(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set(util.TimezoneHeader, "Mars/Olympus")
	w := httptest.NewRecorder()
	s.app.Router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdminRoutes(t *testing.T) {
	s := newTestServer(t)
	token := s.login(t, "student@example.com")

	w, _ := s.do(t, http.MethodPost, "/api/admin/themes", token, gin.H{"name": "Arrays"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	require.NoError(t, s.db.Model(&model.User{}).Where("email = ?", "student@example.com").Update("role", model.Admin).Error)
	w, env := s.do(t, http.MethodPost, "/api/login", "", gin.H{"email": "student@example.com", "password": "password123"})
	require.Equal(t, http.StatusOK, w.Code)
	var data struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	adminToken := data.Token

	w, env = s.do(t, http.MethodPost, "/api/admin/themes", adminToken, gin.H{"name": "Arrays", "order": 2})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var theme model.Theme
	require.NoError(t, json.Unmarshal(env.Data, &theme))

	w, env = s.do(t, http.MethodPost, "/api/admin/topics", adminToken, gin.H{"themeId": theme.ID, "name": "Indexing"})
	require.Equal(t, http.StatusCreated, w.Code)
	var topic model.Topic
	require.NoError(t, json.Unmarshal(env.Data, &topic))

	w, _ = s.do(t, http.MethodPost, "/api/admin/tasks", adminToken, gin.H{"topicId": "missing", "title": "t"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = s.do(t, http.MethodPost, "/api/admin/tasks", adminToken, gin.H{"topicId": topic.ID, "title": "First element", "expectedOutput": "1"})
	assert.Equal(t, http.StatusCreated, w.Code)

	w, env = s.do(t, http.MethodGet, "/api/topics/"+topic.ID, adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), `"expectedOutput":"1"`)
}

func TestSessionStartDecays(t *testing.T) {
	s := newTestServer(t)
	token := s.login(t, "decay@example.com")

	stale := time.Now().AddDate(0, 0, -5)
	require.NoError(t, s.db.Model(&model.User{}).Where("email = ?", "decay@example.com").Updates(map[string]interface{}{
		"current_streak":      4,
		"last_completed_date": stale,
	}).Error)

	w, env := s.do(t, http.MethodPost, "/api/session/start", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), `"decayed":true`)
	assert.Contains(t, string(env.Data), `"currentStreak":0`)
}
