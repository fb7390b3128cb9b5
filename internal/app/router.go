package app

import (
	"codegrow_backend/docs"
	"codegrow_backend/internal/middleware"
	"codegrow_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers) {
	docs.SwaggerInfo.BasePath = "/"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	api := router.Group("/api")
	api.Use(middleware.Timezone(a.services.progress.DefaultLocation()))

	// 1. 公共路由(无需登录)
	api.GET("/health", c.health.HealthCheck)
	api.POST("/register", c.auth.Register)
	api.POST("/login", c.auth.Login)

	// 2. 需要登录
	authGroup := api.Group("")
	authGroup.Use(middleware.AuthMiddleware(a.Config.JWT.Secret))
	{
		authGroup.POST("/session/start", c.auth.StartSession)
		authGroup.GET("/profile", c.auth.Profile)
		authGroup.POST("/user/avatar", c.user.UploadAvatar)

		authGroup.GET("/themes", c.catalog.ListThemes)
		authGroup.GET("/themes/:id", c.catalog.GetTheme)
		authGroup.GET("/topics/:id", c.catalog.GetTopic)
		authGroup.GET("/tasks/:id", c.catalog.GetTask)

		authGroup.POST("/tasks/:id/submit", c.submission.Submit)
		authGroup.POST("/execute", c.submission.Execute)

		authGroup.GET("/progress", c.progress.GetProgress)
		authGroup.POST("/progress/topics/:id/recompute", c.progress.RecomputeTopic)
		authGroup.GET("/leaderboard", c.progress.Leaderboard)
	}

	// 3. 管理员
	admin := authGroup.Group("/admin")
	admin.Use(middleware.RoleMiddleware())
	{
		admin.POST("/themes", c.catalog.CreateTheme)
		admin.POST("/topics", c.catalog.CreateTopic)
		admin.POST("/tasks", c.catalog.CreateTask)
	}
}
