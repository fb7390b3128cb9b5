package controller

import (
	"codegrow_backend/internal/config"
	"codegrow_backend/internal/executor"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type healthBody struct {
	Data struct {
		Status     string `json:"status"`
		Components struct {
			Database string `json:"database"`
			Cache    string `json:"cache"`
			Executor struct {
				Mode           string  `json:"mode"`
				TimeoutSeconds float64 `json:"timeoutSeconds"`
			} `json:"executor"`
		} `json:"components"`
	} `json:"data"`
}

func healthDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	return db
}

func serveHealth(t *testing.T, hc *HealthController) (int, healthBody) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/api/health", hc.HealthCheck)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	var body healthBody
	if w.Code == http.StatusOK {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	}
	return w.Code, body
}

func TestHealthReportsComponents(t *testing.T) {
	exec, err := executor.New(config.ExecutorConfig{Mode: executor.ModeGateway, URL: "http://127.0.0.1:1", Timeout: 15 * time.Second})
	require.NoError(t, err)

	code, body := serveHealth(t, NewHealthController(healthDB(t), nil, exec))
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body.Data.Status)
	assert.Equal(t, "up", body.Data.Components.Database)
	assert.Equal(t, "disabled", body.Data.Components.Cache)
	assert.Equal(t, executor.ModeGateway, body.Data.Components.Executor.Mode)
	assert.Equal(t, 15.0, body.Data.Components.Executor.TimeoutSeconds)
}

func TestHealthDegradedWhenCacheDown(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 200 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer rdb.Close()

	code, body := serveHealth(t, NewHealthController(healthDB(t), rdb, nil))
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "degraded", body.Data.Status)
	assert.Equal(t, "down", body.Data.Components.Cache)
	assert.Equal(t, "custom", body.Data.Components.Executor.Mode)
}

func TestHealthDatabaseDown(t *testing.T) {
	db := healthDB(t)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	code, _ := serveHealth(t, NewHealthController(db, nil, nil))
	assert.Equal(t, http.StatusServiceUnavailable, code)
}
