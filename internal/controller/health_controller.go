package controller

import (
	"codegrow_backend/internal/executor"
	"codegrow_backend/internal/util"
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

const healthPingTimeout = 2 * time.Second

// HealthController 数据库不可用返回 503；Redis 只是缓存，不可用时降级为 degraded
type HealthController struct {
	DB       *gorm.DB
	Redis    *redis.Client
	Executor executor.Executor
}

func NewHealthController(db *gorm.DB, rdb *redis.Client, exec executor.Executor) *HealthController {
	return &HealthController{DB: db, Redis: rdb, Executor: exec}
}

// @Summary 健康检查
// @Description 检查数据库、Redis 缓存与代码执行配置
// @Tags 系统
// @Produce json
// @Success 200 {object} util.Response
// @Failure 503 {object} util.Response
// @Router /api/health [get]
func (c *HealthController) HealthCheck(ctx *gin.Context) {
	pingCtx, cancel := context.WithTimeout(ctx.Request.Context(), healthPingTimeout)
	defer cancel()

	sqlDB, err := c.DB.DB()
	if err != nil {
		util.InternalServerError(ctx)
		return
	}
	if err := sqlDB.PingContext(pingCtx); err != nil {
		util.Error(ctx, http.StatusServiceUnavailable, "Database unavailable")
		return
	}

	status := "ok"
	cache := "disabled"
	if c.Redis != nil {
		cache = "up"
		if err := c.Redis.Ping(pingCtx).Err(); err != nil {
			cache = "down"
			status = "degraded"
		}
	}

	util.Success(ctx, gin.H{
		"status": status,
		"components": gin.H{
			"database": "up",
			"cache":    cache,
			"executor": executorInfo(c.Executor),
		},
	})
}

// executorInfo 只报告配置，不调用远程服务（每次调用都会消耗额度）
func executorInfo(exec executor.Executor) gin.H {
	client, ok := exec.(*executor.Client)
	if !ok {
		return gin.H{"mode": "custom"}
	}
	return gin.H{
		"mode":           client.Mode(),
		"timeoutSeconds": client.Timeout().Seconds(),
	}
}
