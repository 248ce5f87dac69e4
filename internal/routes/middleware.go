package routes

import (
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestIDHeader はリクエストIDを受け渡すヘッダー名です。
const RequestIDHeader = "X-Request-ID"

// RequestIDMiddleware はリクエストIDをコンテキストとレスポンスヘッダーに設定するミドルウェアです。
// クライアントが指定したIDはそのまま使い、なければUUIDを採番します。
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

// LoggerMiddleware はリクエストごとにメソッド、パス、ステータス、処理時間をログに出力します。
func LoggerMiddleware(logger *log.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		kv := []interface{}{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"latency", time.Since(start),
			"request_id", c.GetString("request_id"),
		}
		switch {
		case status >= 500:
			logger.Error("request", kv...)
		case status >= 400:
			logger.Warn("request", kv...)
		default:
			logger.Info("request", kv...)
		}
	}
}
