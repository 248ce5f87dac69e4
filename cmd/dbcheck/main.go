// dbcheck は DATABASE_URL のMongoDBに接続して ping を実行し、疎通を確認します。
//
//	go run ./cmd/dbcheck
package main

import (
	"context"
	"os"

	charmlog "github.com/charmbracelet/log"
	"github.com/joho/godotenv"

	"todo-list-api/backend/internal/config"
	"todo-list-api/backend/internal/database"
	"todo-list-api/backend/internal/logger"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logger.New(config.LogConfig{}).Fatal("failed to load config", "err", err)
	}
	log := logger.New(cfg.Log)

	if err := check(context.Background(), cfg.Database, log); err != nil {
		log.Error("connection failed", "err", err)
		os.Exit(1)
	}
	log.Info("connection successful", "database", cfg.Database.Name)
}

func check(ctx context.Context, cfg config.DatabaseConfig, log *charmlog.Logger) error {
	db, err := database.Connect(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Disconnect(ctx); err != nil {
			log.Error("MongoDB disconnect", "err", err)
		}
	}()

	return db.Ping(ctx)
}
