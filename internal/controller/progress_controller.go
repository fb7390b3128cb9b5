package controller

import (
	"codegrow_backend/internal/service"
	"codegrow_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type ProgressController struct {
	ProgressService    *service.ProgressService
	LeaderboardService *service.LeaderboardService
}

func NewProgressController(progressService *service.ProgressService, leaderboardService *service.LeaderboardService) *ProgressController {
	return &ProgressController{
		ProgressService:    progressService,
		LeaderboardService: leaderboardService,
	}
}

// GetProgress godoc
// @Summary 学习进度
// @Tags 进度
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=service.ProgressView}
// @Router /api/progress [get]
func (c *ProgressController) GetProgress(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}

	progress, err := c.ProgressService.GetProgress(ctx.Request.Context(), userID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, progress)
}

// RecomputeTopic godoc
// @Summary 重新计算知识点完成状态
// @Description 幂等操作，用于提交后知识点状态更新失败时补偿
// @Tags 进度
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "知识点ID"
// @Success 200 {object} util.Response{data=object}
// @Failure 404 {object} util.Response
// @Router /api/progress/topics/{id}/recompute [post]
func (c *ProgressController) RecomputeTopic(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}

	topicID := ctx.Param("id")
	completed, err := c.ProgressService.RecomputeTopicCompletion(ctx.Request.Context(), userID, topicID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"topicId": topicID, "completed": completed})
}

// Leaderboard godoc
// @Summary Streak 排行榜
// @Description 按当前 streak 降序、完成数降序
// @Tags 进度
// @Produce json
// @Security ApiKeyAuth
// @Param limit query int false "条数，默认 20，最大 100"
// @Success 200 {object} util.Response{data=[]service.LeaderboardEntry}
// @Router /api/leaderboard [get]
func (c *ProgressController) Leaderboard(ctx *gin.Context) {
	limit := util.ParseLimit(ctx.Query("limit"), 20, 100)

	entries, err := c.LeaderboardService.Top(ctx.Request.Context(), limit)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, entries)
}
