package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"todo-list-api/backend/internal/config"
	"todo-list-api/backend/internal/database"
	"todo-list-api/backend/internal/logger"
	"todo-list-api/backend/internal/routes"
)

func main() {
	// .env がなくても環境変数だけで起動できる
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logger.New(config.LogConfig{}).Fatal("failed to load config", "err", err)
	}
	log := logger.New(cfg.Log)

	if cfg.App.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	// リクエストを受け付ける前に接続を確立する (失敗したら終了)
	db, err := database.Connect(context.Background(), cfg.Database)
	if err != nil {
		log.Fatal("failed to connect to MongoDB", "err", err)
	}
	log.Info("connected to MongoDB", "database", cfg.Database.Name)

	router, err := routes.SetupRouter(cfg, db, log)
	if err != nil {
		log.Fatal("failed to set up router", "err", err)
	}

	server := &http.Server{
		Addr:         ":" + cfg.HTTP.Port,
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout.Duration(),
		WriteTimeout: cfg.HTTP.WriteTimeout.Duration(),
		IdleTimeout:  cfg.HTTP.IdleTimeout.Duration(),
	}

	go func() {
		log.Info("server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP server error", "err", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout.Duration())
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error("server shutdown", "err", err)
	}
	if err := db.Disconnect(ctx); err != nil {
		log.Error("MongoDB disconnect", "err", err)
		return
	}
	log.Info("MongoDB connection closed")
}
