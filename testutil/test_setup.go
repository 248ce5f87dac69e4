package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"todo-list-api/backend/internal/config"
	"todo-list-api/backend/internal/models"
	"todo-list-api/backend/internal/routes"
)

// StubPinger はヘルスチェック用のダミーです。
type StubPinger struct{ Err error }

func (p StubPinger) Ping(ctx context.Context) error { return p.Err }

// TestConfig はテスト用の設定を返します。
func TestConfig() config.Config {
	return config.Config{
		App:      config.AppConfig{Env: "test"},
		Database: config.DatabaseConfig{Name: "todo_test", Collection: "todos", ListLimit: 100},
		CORS:     config.CORSConfig{AllowOrigins: []string{"*"}},
	}
}

// SetupTestRouter はインメモリリポジトリを使ったテスト用のGinルーターをセットアップします。
func SetupTestRouter(t *testing.T) (*gin.Engine, *MemoryTodoRepository) {
	t.Helper()
	repo := NewMemoryTodoRepository()
	return SetupTestRouterWith(t, TestConfig(), repo), repo
}

// SetupTestRouterWith は設定とリポジトリを指定してルーターを作成します。
func SetupTestRouterWith(t *testing.T, cfg config.Config, repo *MemoryTodoRepository) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	return routes.NewRouter(cfg, repo, StubPinger{}, log.New(io.Discard))
}

// DoJSON はJSONボディ付きのリクエストを送り、レスポンスを返します。body が nil の場合はボディなしです。
func DoJSON(t *testing.T, router http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewBuffer(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

// CreateTestTodo はテスト用のTODOをAPI経由で作成します。
func CreateTestTodo(t *testing.T, router http.Handler, payload map[string]interface{}) *models.Todo {
	t.Helper()
	resp := DoJSON(t, router, http.MethodPost, "/todos/", payload)
	require.Equal(t, http.StatusCreated, resp.Code, "TODO作成に失敗しました: %s", resp.Body.String())

	var created models.Todo
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &created))
	return &created
}

// DecodeDetail はエラーレスポンスの detail を取り出します。
func DecodeDetail(t *testing.T, resp *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	return body["detail"]
}
