package controller

import (
	"codegrow_backend/internal/middleware"
	"codegrow_backend/internal/service"
	"codegrow_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type SubmissionController struct {
	SubmissionService *service.SubmissionService
}

func NewSubmissionController(submissionService *service.SubmissionService) *SubmissionController {
	return &SubmissionController{SubmissionService: submissionService}
}

// swagger:model CodeRequest
type CodeRequest struct {
	Code string `json:"code"`
}

// Submit godoc
// @Summary 提交任务代码
// @Description 远程运行代码并与期望输出比较（忽略首尾空白）。首次通过时累计完成数并推进 streak。
// @Description 执行服务失败返回 502 且不写入任何记录，可直接重试。
// @Tags 提交
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "任务ID"
// @Param X-Timezone header string false "IANA 时区名"
// @Param body body CodeRequest true "代码"
// @Success 200 {object} util.Response{data=service.SubmissionResult}
// @Failure 400 {object} util.Response "代码为空"
// @Failure 401 {object} util.Response
// @Failure 404 {object} util.Response "任务不存在"
// @Failure 502 {object} util.Response "代码执行失败，可重试"
// @Router /api/tasks/{id}/submit [post]
func (c *SubmissionController) Submit(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}

	var req CodeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	result, err := c.SubmissionService.Submit(ctx.Request.Context(), userID, ctx.Param("id"), req.Code, middleware.LocationFromContext(ctx))
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

// Execute godoc
// @Summary 运行代码
// @Description 只运行不判题，不记录任何进度
// @Tags 提交
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body CodeRequest true "代码"
// @Success 200 {object} util.Response{data=executor.Result}
// @Failure 400 {object} util.Response "代码为空"
// @Failure 502 {object} util.Response "代码执行失败，可重试"
// @Router /api/execute [post]
func (c *SubmissionController) Execute(ctx *gin.Context) {
	var req CodeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	result, err := c.SubmissionService.Run(ctx.Request.Context(), req.Code)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, result)
}
