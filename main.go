// @title CodeGrow 后端 API
// @version 1.0
// @description CodeGrow 编程练习平台的后端服务：任务提交、判题、完成度与连续学习天数（streak）。

// @host localhost:8080
// @BasePath /
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name Authorization

package main

import (
	"codegrow_backend/internal/app"
	"codegrow_backend/internal/config"
	"codegrow_backend/pkg/database"
	"codegrow_backend/pkg/logger"
	"flag"
	"log"

	gormlogger "gorm.io/gorm/logger"
)

func main() {
	// 命令行参数
	migrateOnly := flag.Bool("migrate-only", false, "只执行数据库迁移，完成后退出")
	migrate := flag.Bool("migrate", false, "启动时强制执行数据库迁移（即使是 release 模式）")
	flag.Parse()

	cfg, err := config.LoadConfig("configs")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 设置迁移标志
	cfg.ForceMigrate = *migrate || *migrateOnly
	cfg.MigrateOnly = *migrateOnly

	// 迁移完成后直接退出，不连接 Redis 和执行服务
	if *migrateOnly {
		db, err := database.InitDB(&cfg.Database, gormlogger.Warn)
		if err != nil {
			log.Fatalf("Failed to initialize database: %v", err)
		}
		if err := database.Migrate(db); err != nil {
			log.Fatalf("Failed to migrate database: %v", err)
		}
		log.Println("数据库迁移完成，退出程序")
		return
	}

	application := app.NewApp(cfg)
	defer logger.Log.Sync()

	application.Run()
}
