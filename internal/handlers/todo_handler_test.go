package handlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"todo-list-api/backend/internal/models"
	"todo-list-api/backend/testutil"
)

func TestCreateTodo_Success(t *testing.T) {
	r, repo := testutil.SetupTestRouter(t)

	resp := testutil.DoJSON(t, r, http.MethodPost, "/todos/", map[string]interface{}{
		"title": "Test Todo",
	})

	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	var created models.Todo
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &created))

	assert.False(t, created.ID.IsZero(), "Expected an assigned ID")
	assert.Equal(t, "Test Todo", created.Title)
	assert.False(t, created.Completed)
	assert.Equal(t, models.PriorityMedium, created.Priority)
	assert.Nil(t, created.Description)
	assert.Nil(t, created.DueDate)
	assert.True(t, created.CreatedAt.Equal(created.UpdatedAt), "created_at should equal updated_at")
	assert.WithinDuration(t, time.Now(), created.CreatedAt, 5*time.Second)
	assert.Equal(t, 1, repo.Len())
}

func TestCreateTodo_ResponseShape(t *testing.T) {
	r, _ := testutil.SetupTestRouter(t)
	due := time.Now().Add(48 * time.Hour).UTC().Truncate(time.Millisecond)

	resp := testutil.DoJSON(t, r, http.MethodPost, "/todos", map[string]interface{}{
		"title":       "Shape",
		"description": "check json",
		"priority":    "high",
		"completed":   true,
		"dueDate":     due.Format(time.RFC3339Nano),
		"id":          "ignored",
		"unknown":     42,
	})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &raw))

	id, ok := raw["id"].(string)
	require.True(t, ok, "id should be rendered as a string")
	assert.True(t, models.IsValidID(id))
	assert.NotContains(t, raw, "unknown")
	assert.Equal(t, "high", raw["priority"])
	assert.Equal(t, true, raw["completed"])
	assert.Equal(t, "check json", raw["description"])

	for _, key := range []string{"created_at", "updated_at", "dueDate"} {
		s, ok := raw[key].(string)
		require.True(t, ok, "%s should be a string", key)
		_, err := time.Parse(time.RFC3339Nano, s)
		assert.NoError(t, err, "%s should be ISO-8601", key)
	}
}

func TestCreateTodo_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		payload interface{}
	}{
		{"missing title", map[string]interface{}{"description": "x"}},
		{"empty title", map[string]interface{}{"title": ""}},
		{"title too long", map[string]interface{}{"title": strings.Repeat("a", 101)}},
		{"description too long", map[string]interface{}{"title": "ok", "description": strings.Repeat("d", 501)}},
		{"invalid priority", map[string]interface{}{"title": "ok", "priority": "urgent"}},
		{"past due date", map[string]interface{}{"title": "ok", "dueDate": time.Now().Add(-time.Hour).Format(time.RFC3339)}},
		{"malformed due date", map[string]interface{}{"title": "ok", "dueDate": "tomorrow"}},
		{"malformed json", `{"title": `},
		{"wrong type", `{"title": 12}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, repo := testutil.SetupTestRouter(t)

			resp := testutil.DoJSON(t, r, http.MethodPost, "/todos/", tt.payload)

			assert.Equal(t, http.StatusBadRequest, resp.Code, resp.Body.String())
			assert.NotEmpty(t, testutil.DecodeDetail(t, resp))
			assert.Equal(t, 0, repo.Len(), "nothing should be persisted")
		})
	}
}

func TestGetTodosHandler(t *testing.T) {
	r, _ := testutil.SetupTestRouter(t)

	// --- Test Case 1: 空の場合は空配列を返すこと ---
	t.Run("Empty list is an empty array", func(t *testing.T) {
		resp := testutil.DoJSON(t, r, http.MethodGet, "/todos/", nil)
		require.Equal(t, http.StatusOK, resp.Code)
		assert.JSONEq(t, "[]", resp.Body.String())
	})

	todo1 := testutil.CreateTestTodo(t, r, map[string]interface{}{"title": "first"})
	todo2 := testutil.CreateTestTodo(t, r, map[string]interface{}{"title": "second"})
	todo3 := testutil.CreateTestTodo(t, r, map[string]interface{}{"title": "third"})

	// --- Test Case 2: 作成順に返すこと ---
	t.Run("Returns todos in insertion order", func(t *testing.T) {
		resp := testutil.DoJSON(t, r, http.MethodGet, "/todos", nil)
		require.Equal(t, http.StatusOK, resp.Code)

		var todos []models.Todo
		require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &todos))
		require.Len(t, todos, 3)
		assert.Equal(t, todo1.ID, todos[0].ID)
		assert.Equal(t, todo2.ID, todos[1].ID)
		assert.Equal(t, todo3.ID, todos[2].ID)
	})

	// --- Test Case 3: 書き込みがなければ同じ順序を返すこと ---
	t.Run("Order is stable across calls", func(t *testing.T) {
		first := testutil.DoJSON(t, r, http.MethodGet, "/todos/", nil)
		second := testutil.DoJSON(t, r, http.MethodGet, "/todos/", nil)
		assert.Equal(t, first.Body.String(), second.Body.String())
	})
}

func TestGetTodosHandler_Limit(t *testing.T) {
	cfg := testutil.TestConfig()
	cfg.Database.ListLimit = 2
	repo := testutil.NewMemoryTodoRepository()
	r := testutil.SetupTestRouterWith(t, cfg, repo)

	for _, title := range []string{"a", "b", "c"} {
		testutil.CreateTestTodo(t, r, map[string]interface{}{"title": title})
	}

	resp := testutil.DoJSON(t, r, http.MethodGet, "/todos/", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	var todos []models.Todo
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &todos))
	assert.Len(t, todos, 2)
}

func TestGetTodosHandler_StoreError(t *testing.T) {
	r, repo := testutil.SetupTestRouter(t)
	repo.Err = errors.New("connection refused")

	resp := testutil.DoJSON(t, r, http.MethodGet, "/todos/", nil)

	assert.Equal(t, http.StatusInternalServerError, resp.Code)
	assert.Contains(t, testutil.DecodeDetail(t, resp), "connection refused")
}

func TestStoreError_RedactedInProduction(t *testing.T) {
	cfg := testutil.TestConfig()
	cfg.App.Env = "production"
	repo := testutil.NewMemoryTodoRepository()
	repo.Err = errors.New("secret driver message")
	r := testutil.SetupTestRouterWith(t, cfg, repo)

	resp := testutil.DoJSON(t, r, http.MethodGet, "/todos/", nil)

	assert.Equal(t, http.StatusInternalServerError, resp.Code)
	assert.NotContains(t, testutil.DecodeDetail(t, resp), "secret")
}

func TestGetTodoByIDHandler(t *testing.T) {
	r, repo := testutil.SetupTestRouter(t)
	created := testutil.CreateTestTodo(t, r, map[string]interface{}{"title": "find me"})

	t.Run("Existing todo", func(t *testing.T) {
		resp := testutil.DoJSON(t, r, http.MethodGet, "/todos/"+created.ID.Hex(), nil)
		require.Equal(t, http.StatusOK, resp.Code)
		var fetched models.Todo
		require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &fetched))
		assert.Equal(t, created.ID, fetched.ID)
		assert.Equal(t, "find me", fetched.Title)
	})

	t.Run("Absent but well-formed id", func(t *testing.T) {
		resp := testutil.DoJSON(t, r, http.MethodGet, "/todos/"+primitive.NewObjectID().Hex(), nil)
		assert.Equal(t, http.StatusNotFound, resp.Code)
		assert.Equal(t, "Todo not found", testutil.DecodeDetail(t, resp))
	})

	t.Run("Store error", func(t *testing.T) {
		repo.Err = errors.New("boom")
		defer func() { repo.Err = nil }()
		resp := testutil.DoJSON(t, r, http.MethodGet, "/todos/"+created.ID.Hex(), nil)
		assert.Equal(t, http.StatusInternalServerError, resp.Code)
	})
}

func TestInvalidID_NoStoreAccess(t *testing.T) {
	invalidIDs := []string{"123", "not-an-id", "zzzzzzzzzzzzzzzzzzzzzzzz", strings.Repeat("a", 25)}

	for _, id := range invalidIDs {
		for _, method := range []string{http.MethodGet, http.MethodPut, http.MethodDelete} {
			t.Run(method+" "+id, func(t *testing.T) {
				r, repo := testutil.SetupTestRouter(t)

				var body interface{}
				if method == http.MethodPut {
					body = map[string]interface{}{"title": "x"}
				}
				resp := testutil.DoJSON(t, r, method, "/todos/"+id, body)

				assert.Equal(t, http.StatusBadRequest, resp.Code)
				assert.Equal(t, "Invalid todo ID", testutil.DecodeDetail(t, resp))
				assert.Zero(t, repo.Calls(), "store must not be accessed")
			})
		}
	}
}

func TestUpdateTodoHandler(t *testing.T) {
	r, _ := testutil.SetupTestRouter(t)
	created := testutil.CreateTestTodo(t, r, map[string]interface{}{"title": "A", "priority": "high", "description": "keep"})

	// --- Test Case 1: 省略したフィールドは変更されないこと ---
	t.Run("Omitted fields are untouched", func(t *testing.T) {
		resp := testutil.DoJSON(t, r, http.MethodPut, "/todos/"+created.ID.Hex(), map[string]interface{}{"title": "B"})
		require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

		var updated models.Todo
		require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &updated))
		assert.Equal(t, "B", updated.Title)
		assert.Equal(t, models.PriorityHigh, updated.Priority)
		require.NotNil(t, updated.Description)
		assert.Equal(t, "keep", *updated.Description)
		assert.True(t, created.CreatedAt.Equal(updated.CreatedAt))
		assert.True(t, updated.UpdatedAt.After(created.UpdatedAt), "updated_at should advance")
	})

	// --- Test Case 2: null は省略と同じ扱いになること ---
	t.Run("Null fields are ignored", func(t *testing.T) {
		resp := testutil.DoJSON(t, r, http.MethodPut, "/todos/"+created.ID.Hex(), `{"title": null, "completed": true}`)
		require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

		var updated models.Todo
		require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &updated))
		assert.Equal(t, "B", updated.Title)
		assert.True(t, updated.Completed)
	})

	// --- Test Case 3: 同じ値を書き込んでも 404 にならないこと ---
	t.Run("Writing identical values succeeds", func(t *testing.T) {
		resp := testutil.DoJSON(t, r, http.MethodPut, "/todos/"+created.ID.Hex(), map[string]interface{}{"title": "B"})
		assert.Equal(t, http.StatusOK, resp.Code)
	})

	t.Run("Future due date is accepted", func(t *testing.T) {
		due := time.Now().Add(24 * time.Hour).UTC().Truncate(time.Millisecond)
		resp := testutil.DoJSON(t, r, http.MethodPut, "/todos/"+created.ID.Hex(), map[string]interface{}{"dueDate": due.Format(time.RFC3339Nano)})
		require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

		var updated models.Todo
		require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &updated))
		require.NotNil(t, updated.DueDate)
		assert.True(t, due.Equal(*updated.DueDate))
	})
}

func TestUpdateTodoHandler_UpdatedAtAdvancesImmediately(t *testing.T) {
	r, _ := testutil.SetupTestRouter(t)

	for i := 0; i < 50; i++ {
		created := testutil.CreateTestTodo(t, r, map[string]interface{}{"title": "A"})
		path := "/todos/" + created.ID.Hex()
		prev := created.UpdatedAt

		// 作成直後と連続した更新のどちらでも updated_at が進むこと
		for _, title := range []string{"B", "C"} {
			resp := testutil.DoJSON(t, r, http.MethodPut, path, map[string]interface{}{"title": title})
			require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

			var updated models.Todo
			require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &updated))
			require.True(t, updated.UpdatedAt.After(prev), "updated_at should advance (iteration %d)", i)
			require.True(t, created.CreatedAt.Equal(updated.CreatedAt))
			prev = updated.UpdatedAt
		}
	}
}

func TestUpdateTodoHandler_Errors(t *testing.T) {
	r, repo := testutil.SetupTestRouter(t)
	created := testutil.CreateTestTodo(t, r, map[string]interface{}{"title": "A"})
	path := "/todos/" + created.ID.Hex()

	tests := []struct {
		name   string
		path   string
		body   interface{}
		status int
	}{
		{"empty patch", path, map[string]interface{}{}, http.StatusBadRequest},
		{"all null patch", path, `{"title": null, "priority": null}`, http.StatusBadRequest},
		{"only unknown fields", path, map[string]interface{}{"foo": "bar"}, http.StatusBadRequest},
		{"past due date", path, map[string]interface{}{"dueDate": time.Now().Add(-time.Hour).Format(time.RFC3339)}, http.StatusBadRequest},
		{"invalid priority", path, map[string]interface{}{"priority": "none"}, http.StatusBadRequest},
		{"empty title", path, map[string]interface{}{"title": ""}, http.StatusBadRequest},
		{"malformed json", path, `{`, http.StatusBadRequest},
		{"absent id", "/todos/" + primitive.NewObjectID().Hex(), map[string]interface{}{"title": "x"}, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := testutil.DoJSON(t, r, http.MethodPut, tt.path, tt.body)
			assert.Equal(t, tt.status, resp.Code, resp.Body.String())
			assert.NotEmpty(t, testutil.DecodeDetail(t, resp))
		})
	}

	// 失敗した更新は保存内容を変えないこと
	stored, err := repo.FindByID(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, "A", stored.Title)
	assert.True(t, created.UpdatedAt.Equal(stored.UpdatedAt))
}

func TestDeleteTodoHandler(t *testing.T) {
	r, repo := testutil.SetupTestRouter(t)
	created := testutil.CreateTestTodo(t, r, map[string]interface{}{"title": "delete me"})
	path := "/todos/" + created.ID.Hex()

	// --- Test Case 1: 削除できること ---
	resp := testutil.DoJSON(t, r, http.MethodDelete, path, nil)
	require.Equal(t, http.StatusNoContent, resp.Code)
	assert.Empty(t, resp.Body.String())
	assert.Equal(t, 0, repo.Len())

	// --- Test Case 2: 削除後は取得できないこと ---
	resp = testutil.DoJSON(t, r, http.MethodGet, path, nil)
	assert.Equal(t, http.StatusNotFound, resp.Code)

	// --- Test Case 3: 二度目の削除は 404 になること ---
	resp = testutil.DoJSON(t, r, http.MethodDelete, path, nil)
	assert.Equal(t, http.StatusNotFound, resp.Code)
	assert.Equal(t, "Todo not found", testutil.DecodeDetail(t, resp))
}

func TestWriteHandlers_StoreError(t *testing.T) {
	r, repo := testutil.SetupTestRouter(t)
	created := testutil.CreateTestTodo(t, r, map[string]interface{}{"title": "A"})
	path := "/todos/" + created.ID.Hex()

	tests := []struct {
		name   string
		method string
		path   string
		body   interface{}
		action string
	}{
		{"create", http.MethodPost, "/todos/", map[string]interface{}{"title": "B"}, "Error creating todo"},
		{"update", http.MethodPut, path, map[string]interface{}{"title": "B"}, "Error updating todo"},
		{"delete", http.MethodDelete, path, nil, "Error deleting todo"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo.Err = errors.New("connection refused")
			defer func() { repo.Err = nil }()

			resp := testutil.DoJSON(t, r, tt.method, tt.path, tt.body)

			assert.Equal(t, http.StatusInternalServerError, resp.Code)
			detail := testutil.DecodeDetail(t, resp)
			assert.Contains(t, detail, tt.action)
			assert.Contains(t, detail, "connection refused")
		})
	}

	assert.Equal(t, 1, repo.Len(), "failed writes should not change the store")
}
