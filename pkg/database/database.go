package database

import (
	"codegrow_backend/internal/config"
	"codegrow_backend/internal/model"
	"fmt"
	"log"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// InitDB 按配置的驱动建立连接。sqlite 用于本地开发和测试。
func InitDB(cfg *config.DatabaseConfig, logLevel logger.LogLevel) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "sqlite":
		dialector = sqlite.Open(cfg.Path)
	case "mysql", "":
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=%t&loc=Local",
			cfg.User,
			cfg.Password,
			cfg.Host,
			cfg.Port,
			cfg.DBName,
			cfg.Charset,
			cfg.ParseTime,
		)
		dialector = mysql.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, err
	}

	if cfg.Driver == "sqlite" {
		// sqlite 同一时刻只允许一个写者
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}

	log.Println("Database connection established")
	return db, nil
}

// Migrate 建表并补齐默认内容
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&model.User{},
		&model.Theme{},
		&model.Topic{},
		&model.Task{},
		&model.UserTaskCompletion{},
		&model.UserTopicCompletion{},
	)
	if err != nil {
		return err
	}

	log.Println("Database migration completed")
	return seed(db)
}

// seed 目录为空时插入一个入门主题，保证新环境可以直接体验提交流程
func seed(db *gorm.DB) error {
	var count int64
	if err := db.Model(&model.Theme{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	return db.Transaction(func(tx *gorm.DB) error {
		theme := &model.Theme{Name: "Java Basics", Order: 1}
		if err := tx.Create(theme).Error; err != nil {
			return err
		}
		topic := &model.Topic{ThemeID: theme.ID, Name: "Hello World", Order: 1}
		if err := tx.Create(topic).Error; err != nil {
			return err
		}
		task := &model.Task{
			TopicID:        topic.ID,
			Title:          "Print a greeting",
			Description:    "Write a program that prints exactly: Hello, Codegrow!",
			StarterCode:    model.DefaultStarterCode,
			ExpectedOutput: "Hello, Codegrow!",
		}
		return tx.Create(task).Error
	})
}
