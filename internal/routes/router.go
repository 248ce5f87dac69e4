// Package routesはroutingを行います。
package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"todo-list-api/backend/internal/config"
	"todo-list-api/backend/internal/database"
	"todo-list-api/backend/internal/handlers"
	"todo-list-api/backend/internal/repositories"
	"todo-list-api/backend/internal/services"
)

// Pinger はヘルスチェックでデータベースの疎通確認に使います。
type Pinger interface {
	Ping(ctx context.Context) error
}

// SetupRouter はGinルーターをセットアップし、すべてのエンドポイントを登録します。
func SetupRouter(cfg config.Config, db *database.Database, logger *log.Logger) (*gin.Engine, error) {
	coll, err := db.Collection(cfg.Database.Collection)
	if err != nil {
		return nil, err
	}
	todoRepo := repositories.NewMongoTodoRepository(coll)
	return NewRouter(cfg, todoRepo, db, logger), nil
}

// NewRouter は任意のリポジトリを使ってルーターを組み立てます。テストではインメモリ実装を渡します。
func NewRouter(cfg config.Config, todoRepo repositories.TodoRepository, pinger Pinger, logger *log.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.CustomRecovery(recoveryHandler(logger)), RequestIDMiddleware(), LoggerMiddleware(logger))
	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Not Found"})
	})

	// CORS対策
	r.Use(cors.New(corsConfig(cfg.CORS)))

	// サービス
	todoService := services.NewTodoService(todoRepo, cfg.Database.ListLimit)

	// ハンドラー
	todoHandler := handlers.NewTodoHandler(todoService, logger, cfg.App.Production())

	// ルーティング
	r.GET("/", RootHandler)
	r.GET("/health", healthHandler(pinger))

	todos := r.Group("/todos")
	{
		// フロントエンドは末尾スラッシュなしで呼ぶため両方を登録する
		todos.GET("", todoHandler.GetTodosHandler)
		todos.GET("/", todoHandler.GetTodosHandler)
		todos.POST("", todoHandler.CreateTodoHandler)
		todos.POST("/", todoHandler.CreateTodoHandler)
		todos.GET("/:id", todoHandler.GetTodoByIDHandler)
		todos.PUT("/:id", todoHandler.UpdateTodoHandler)
		todos.DELETE("/:id", todoHandler.DeleteTodoHandler)
	}

	return r
}

func corsConfig(cfg config.CORSConfig) cors.Config {
	c := cors.DefaultConfig()
	c.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS", "HEAD"}
	c.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", RequestIDHeader}
	c.ExposeHeaders = []string{"Content-Length", "Content-Type", RequestIDHeader}
	c.MaxAge = 12 * time.Hour

	for _, o := range cfg.AllowOrigins {
		if o == "*" {
			c.AllowAllOrigins = true
			return c
		}
	}
	c.AllowOrigins = cfg.AllowOrigins
	c.AllowCredentials = true
	return c
}

// RootHandler はAPIの案内メッセージを返します。
func RootHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Welcome to the Todo List API"})
}

func healthHandler(pinger Pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := pinger.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error", "detail": "Database connection failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

// recoveryHandler はpanicをログに記録し、{"detail": ...} 形式の500を返します。
func recoveryHandler(logger *log.Logger) gin.RecoveryFunc {
	return func(c *gin.Context, err any) {
		logger.Error("panic recovered", "err", err, "path", c.Request.URL.Path, "request_id", c.GetString("request_id"))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
	}
}
