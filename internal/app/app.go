package app

import (
	"codegrow_backend/internal/config"
	"codegrow_backend/internal/controller"
	"codegrow_backend/internal/executor"
	"codegrow_backend/internal/repository"
	"codegrow_backend/internal/service"
	"codegrow_backend/pkg/configwatcher"
	"codegrow_backend/pkg/database"
	"codegrow_backend/pkg/logger"
	"codegrow_backend/pkg/monitoring"
	"codegrow_backend/pkg/security"
	"codegrow_backend/pkg/tracing"
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type App struct {
	Config          *config.Config
	Router          *gin.Engine
	DB              *gorm.DB
	Redis           *redis.Client
	Executor        executor.Executor
	services        *services
	configCallbacks []func(*config.Config)
	tracer          *sdktrace.TracerProvider
	stop            chan struct{}
}

type repositories struct {
	user     *repository.UserRepository
	content  *repository.ContentRepository
	progress *repository.ProgressRepository
}

type services struct {
	auth        *service.AuthService
	storage     *service.StorageService
	catalog     *service.CatalogService
	evaluator   *service.EvaluatorService
	progress    *service.ProgressService
	submission  *service.SubmissionService
	leaderboard *service.LeaderboardService
}

type controllers struct {
	auth       *controller.AuthController
	catalog    *controller.CatalogController
	submission *controller.SubmissionController
	progress   *controller.ProgressController
	user       *controller.UserController
	health     *controller.HealthController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

func (a *App) initRepositories(db *gorm.DB) *repositories {
	return &repositories{
		user:     repository.NewUserRepository(db),
		content:  repository.NewContentRepository(db),
		progress: repository.NewProgressRepository(db),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config, db *gorm.DB, rdb *redis.Client, exec executor.Executor) *services {
	s := &services{}

	s.leaderboard = service.NewLeaderboardService(repos.user, rdb, time.Duration(cfg.Progress.LeaderboardTTL)*time.Second)
	s.progress = service.NewProgressService(db, repos.user, repos.content, repos.progress, s.leaderboard, cfg.Progress)
	s.evaluator = service.NewEvaluatorService(exec)
	s.submission = service.NewSubmissionService(repos.content, s.evaluator, s.progress)
	s.auth = service.NewAuthService(repos.user, s.progress, cfg)
	s.catalog = service.NewCatalogService(repos.content, repos.progress)
	s.storage = service.NewStorageService(cfg, repos.user)

	return s
}

func (a *App) initControllers(s *services, db *gorm.DB, rdb *redis.Client, exec executor.Executor) *controllers {
	return &controllers{
		auth:       controller.NewAuthController(s.auth, s.progress),
		catalog:    controller.NewCatalogController(s.catalog),
		submission: controller.NewSubmissionController(s.submission),
		progress:   controller.NewProgressController(s.progress, s.leaderboard),
		user:       controller.NewUserController(s.storage),
		health:     controller.NewHealthController(db, rdb, exec),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())

	if cfg.RateLimit.MaxRequests > 0 {
		window := time.Duration(cfg.RateLimit.WindowMinutes) * time.Minute
		if window <= 0 {
			window = time.Minute
		}
		router.Use(security.NewRateLimiter(cfg.RateLimit.MaxRequests, window).Middleware(a.stop))
	}

	// 分布式追踪中间件
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

// New 组装依赖并注册路由，不建立任何外部连接
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client, exec executor.Executor) *App {
	app := &App{
		Config:   cfg,
		DB:       db,
		Redis:    rdb,
		Executor: exec,
		stop:     make(chan struct{}),
	}

	repos := app.initRepositories(db)
	app.services = app.initServices(repos, cfg, db, rdb, exec)
	controllers := app.initControllers(app.services, db, rdb, exec)

	monitoring.Init()

	router := gin.New()
	router.Use(gin.Recovery())
	if cfg.Server.Mode == gin.DebugMode {
		router.Use(gin.Logger())
	}
	app.Router = router

	app.setupMiddlewares(router, cfg)
	app.registerRoutes(router, controllers)

	if cfg.Storage.Type == "local" {
		router.Static("/uploads", cfg.Storage.LocalPath)
	}

	// 热更新只调整运行时参数，连接类配置需要重启
	app.RegisterConfigCallback(func(newCfg *config.Config) {
		if client, ok := app.Executor.(*executor.Client); ok {
			client.SetTimeout(newCfg.Executor.Timeout)
		}
		app.services.leaderboard.SetTTL(time.Duration(newCfg.Progress.LeaderboardTTL) * time.Second)
	})

	return app
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)
	defer logger.Log.Sync()

	logger.Log.Info("Logger initialized successfully")
	gin.SetMode(cfg.Server.Mode)

	logLevel := gormlogger.Warn
	if cfg.Server.Mode == gin.DebugMode {
		logLevel = gormlogger.Info
	}
	db, err := database.InitDB(&cfg.Database, logLevel)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
	}

	// release 模式默认不自动迁移，需显式 --migrate
	if cfg.Server.Mode != gin.ReleaseMode || cfg.ForceMigrate {
		if err := database.Migrate(db); err != nil {
			logger.Log.Fatal("Failed to migrate database", zap.Error(err))
		}
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		logger.Log.Fatal("Failed to initialize redis", zap.Error(err))
	}

	exec, err := executor.New(cfg.Executor)
	if err != nil {
		logger.Log.Fatal("Failed to initialize code executor", zap.Error(err))
	}

	app := New(cfg, db, rdb, exec)

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer(tracing.ServiceName, cfg.Tracing.CollectorEndpoint)
		if err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
		app.tracer = tp
	}

	return app
}

func (a *App) startBackgroundTasks(ctx context.Context) {
	configPath := filepath.Join("configs", "config.yaml")
	if _, err := os.Stat(configPath); err != nil {
		return
	}
	err := configwatcher.WatchConfig(ctx, configPath, func(newCfg *config.Config) {
		for _, cb := range a.configCallbacks {
			cb(newCfg)
		}
	})
	if err != nil {
		logger.Log.Warn("Config watcher disabled", zap.Error(err))
	}
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	a.startBackgroundTasks(ctx)

	// 启动服务器
	go func() {
		log.Printf("Server running on port %s", a.Config.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// 等待中断信号优雅地关闭服务器（设置5秒的超时时间）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	a.Close()
	log.Println("Server exiting")
}

// Close 释放后台协程与外部连接
func (a *App) Close() {
	select {
	case <-a.stop:
	default:
		close(a.stop)
	}

	if a.tracer != nil {
		if err := a.tracer.Shutdown(context.Background()); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}
	if a.Redis != nil {
		a.Redis.Close()
	}
	if sqlDB, err := a.DB.DB(); err == nil {
		sqlDB.Close()
	}
}
