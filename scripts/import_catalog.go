// 从 YAML 文件批量导入课程目录（主题 -> 知识点 -> 任务）
//
// 管理端只提供逐条创建接口，首次部署或整章导入时使用此脚本。
//
// 用法: go run scripts/import_catalog.go -f catalog.yaml

package main

import (
	"codegrow_backend/internal/config"
	"codegrow_backend/internal/model"
	"codegrow_backend/internal/repository"
	"codegrow_backend/internal/service"
	"codegrow_backend/pkg/database"
	"codegrow_backend/pkg/logger"
	"context"
	"flag"
	"log"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
	gormlogger "gorm.io/gorm/logger"
)

type catalogFile struct {
	Themes []struct {
		Name   string `yaml:"name"`
		Order  int    `yaml:"order"`
		Topics []struct {
			Name  string `yaml:"name"`
			Order int    `yaml:"order"`
			Tasks []struct {
				Title          string `yaml:"title"`
				Description    string `yaml:"description"`
				StarterCode    string `yaml:"starter_code"`
				ExpectedOutput string `yaml:"expected_output"`
			} `yaml:"tasks"`
		} `yaml:"topics"`
	} `yaml:"themes"`
}

func main() {
	file := flag.String("f", "catalog.yaml", "目录文件路径")
	flag.Parse()

	data, err := os.ReadFile(*file)
	if err != nil {
		log.Fatalf("无法读取目录文件: %v", err)
	}

	var catalog catalogFile
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		log.Fatalf("解析目录文件失败: %v", err)
	}

	cfg, err := config.LoadConfig("configs")
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}
	logger.InitLogger(cfg)

	db, err := database.InitDB(&cfg.Database, gormlogger.Warn)
	if err != nil {
		log.Fatalf("数据库连接失败: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("数据库迁移失败: %v", err)
	}

	svc := service.NewCatalogService(repository.NewContentRepository(db), repository.NewProgressRepository(db))
	ctx := context.Background()

	var themes, topics, tasks int
	for _, th := range catalog.Themes {
		theme := &model.Theme{Name: th.Name, Order: th.Order}
		if err := svc.CreateTheme(ctx, theme); err != nil {
			log.Fatalf("创建主题 %q 失败: %v", th.Name, err)
		}
		themes++

		for _, tp := range th.Topics {
			topic := &model.Topic{ThemeID: theme.ID, Name: tp.Name, Order: tp.Order}
			if err := svc.CreateTopic(ctx, topic); err != nil {
				log.Fatalf("创建知识点 %q 失败: %v", tp.Name, err)
			}
			topics++

			for _, tk := range tp.Tasks {
				task := &model.Task{
					TopicID:        topic.ID,
					Title:          tk.Title,
					Description:    tk.Description,
					StarterCode:    tk.StarterCode,
					ExpectedOutput: tk.ExpectedOutput,
				}
				if err := svc.CreateTask(ctx, task); err != nil {
					log.Fatalf("创建任务 %q 失败: %v", tk.Title, err)
				}
				tasks++
			}
		}
	}

	logger.Log.Info("Catalog imported",
		zap.Int("themes", themes),
		zap.Int("topics", topics),
		zap.Int("tasks", tasks),
	)
	log.Println("完成！")
}
