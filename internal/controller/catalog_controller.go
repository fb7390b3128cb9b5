package controller

import (
	"codegrow_backend/internal/model"
	"codegrow_backend/internal/service"
	"codegrow_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type CatalogController struct {
	CatalogService *service.CatalogService
}

func NewCatalogController(catalogService *service.CatalogService) *CatalogController {
	return &CatalogController{CatalogService: catalogService}
}

// ListThemes godoc
// @Summary 主题列表
// @Tags 课程目录
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=[]model.Theme}
// @Router /api/themes [get]
func (c *CatalogController) ListThemes(ctx *gin.Context) {
	themes, err := c.CatalogService.ListThemes(ctx.Request.Context())
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, themes)
}

// GetTheme godoc
// @Summary 主题详情
// @Description 返回主题及其知识点，知识点附带当前用户的完成状态
// @Tags 课程目录
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "主题ID"
// @Success 200 {object} util.Response{data=service.ThemeDetail}
// @Failure 404 {object} util.Response
// @Router /api/themes/{id} [get]
func (c *CatalogController) GetTheme(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}

	detail, err := c.CatalogService.GetTheme(ctx.Request.Context(), userID, ctx.Param("id"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, detail)
}

// GetTopic godoc
// @Summary 知识点详情
// @Description 返回知识点及其任务（按创建时间排序），包含已保存的代码与完成状态
// @Tags 课程目录
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "知识点ID"
// @Success 200 {object} util.Response{data=service.TopicDetail}
// @Failure 404 {object} util.Response
// @Router /api/topics/{id} [get]
func (c *CatalogController) GetTopic(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}

	detail, err := c.CatalogService.GetTopic(ctx.Request.Context(), userID, ctx.Param("id"), isAdmin(ctx))
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, detail)
}

// GetTask godoc
// @Summary 任务详情
// @Description 学生不可见期望输出
// @Tags 课程目录
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "任务ID"
// @Success 200 {object} util.Response{data=service.TaskView}
// @Failure 404 {object} util.Response
// @Router /api/tasks/{id} [get]
func (c *CatalogController) GetTask(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}

	task, err := c.CatalogService.GetTask(ctx.Request.Context(), userID, ctx.Param("id"), isAdmin(ctx))
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, task)
}

// swagger:model CreateThemeRequest
type CreateThemeRequest struct {
	Name  string `json:"name" binding:"required"`
	Order int    `json:"order"`
}

// CreateTheme godoc
// @Summary 创建主题（管理员）
// @Tags 管理
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body CreateThemeRequest true "主题"
// @Success 201 {object} util.Response{data=model.Theme}
// @Failure 400 {object} util.Response
// @Failure 403 {object} util.Response
// @Router /api/admin/themes [post]
func (c *CatalogController) CreateTheme(ctx *gin.Context) {
	var req CreateThemeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	theme := &model.Theme{Name: req.Name, Order: req.Order}
	if err := c.CatalogService.CreateTheme(ctx.Request.Context(), theme); err != nil {
		respondError(ctx, err)
		return
	}
	util.Created(ctx, theme)
}

// swagger:model CreateTopicRequest
type CreateTopicRequest struct {
	ThemeID string `json:"themeId" binding:"required"`
	Name    string `json:"name" binding:"required"`
	Order   int    `json:"order"`
}

// CreateTopic godoc
// @Summary 创建知识点（管理员）
// @Tags 管理
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body CreateTopicRequest true "知识点"
// @Success 201 {object} util.Response{data=model.Topic}
// @Failure 400 {object} util.Response
// @Failure 404 {object} util.Response "主题不存在"
// @Router /api/admin/topics [post]
func (c *CatalogController) CreateTopic(ctx *gin.Context) {
	var req CreateTopicRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	topic := &model.Topic{ThemeID: req.ThemeID, Name: req.Name, Order: req.Order}
	if err := c.CatalogService.CreateTopic(ctx.Request.Context(), topic); err != nil {
		respondError(ctx, err)
		return
	}
	util.Created(ctx, topic)
}

// swagger:model CreateTaskRequest
type CreateTaskRequest struct {
	TopicID        string `json:"topicId" binding:"required"`
	Title          string `json:"title" binding:"required"`
	Description    string `json:"description"`
	StarterCode    string `json:"starterCode"`
	ExpectedOutput string `json:"expectedOutput"`
}

// CreateTask godoc
// @Summary 创建任务（管理员）
// @Description 未提供初始代码时使用默认 Java 模板
// @Tags 管理
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body CreateTaskRequest true "任务"
// @Success 201 {object} util.Response{data=model.Task}
// @Failure 400 {object} util.Response
// @Failure 404 {object} util.Response "知识点不存在"
// @Router /api/admin/tasks [post]
func (c *CatalogController) CreateTask(ctx *gin.Context) {
	var req CreateTaskRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	task := &model.Task{
		TopicID:        req.TopicID,
		Title:          req.Title,
		Description:    req.Description,
		StarterCode:    req.StarterCode,
		ExpectedOutput: req.ExpectedOutput,
	}
	if err := c.CatalogService.CreateTask(ctx.Request.Context(), task); err != nil {
		respondError(ctx, err)
		return
	}
	util.Created(ctx, task)
}
