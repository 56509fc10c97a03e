package database

import (
	"fmt"

	"quizgen_gateway/internal/config"
	"quizgen_gateway/internal/model"
	applog "quizgen_gateway/pkg/logger"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func InitDB(cfg *config.DatabaseConfig, debug bool) (*gorm.DB, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=%t&loc=Local",
		cfg.User,
		cfg.Password,
		cfg.Host,
		cfg.Port,
		cfg.DBName,
		cfg.Charset,
		cfg.ParseTime,
	)

	level := logger.Warn
	if debug {
		level = logger.Info
	}

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(level),
	})
	if err != nil {
		return nil, err
	}

	applog.Log.Info("Database connection established")

	if err := db.AutoMigrate(&model.QuizResultRecord{}); err != nil {
		return nil, err
	}

	applog.Log.Info("Database migration completed")
	return db, nil
}
