package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"

	"todo-list-api/backend/internal/models"
	"todo-list-api/backend/internal/repositories"
	"todo-list-api/backend/internal/services"
)

// TodoHandler はTodo関連のハンドラーを管理します。
type TodoHandler struct {
	todoService  *services.TodoService
	logger       *log.Logger
	redactErrors bool
}

// NewTodoHandler は新しいTodoHandlerを作成します。
// redactErrors が true の場合、500エラーのレスポンスに内部エラーの内容を含めません。
func NewTodoHandler(todoService *services.TodoService, logger *log.Logger, redactErrors bool) *TodoHandler {
	return &TodoHandler{todoService: todoService, logger: logger, redactErrors: redactErrors}
}

// GetTodosHandler はTodoリストを取得します。
func (h *TodoHandler) GetTodosHandler(c *gin.Context) {
	todos, err := h.todoService.GetTodos(c.Request.Context())
	if err != nil {
		h.respondError(c, "Error fetching todos", err)
		return
	}
	c.JSON(http.StatusOK, todos)
}

// GetTodoByIDHandler は指定IDのTodoを取得します。
func (h *TodoHandler) GetTodoByIDHandler(c *gin.Context) {
	todo, err := h.todoService.GetTodoByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, "Error fetching todo", err)
		return
	}
	c.JSON(http.StatusOK, todo)
}

// CreateTodoHandler は新しいTodoを作成します。
func (h *TodoHandler) CreateTodoHandler(c *gin.Context) {
	var req models.TodoCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	createdTodo, err := h.todoService.CreateTodo(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, "Error creating todo", err)
		return
	}
	c.JSON(http.StatusCreated, createdTodo)
}

// UpdateTodoHandler はTodoを更新します。
func (h *TodoHandler) UpdateTodoHandler(c *gin.Context) {
	id := c.Param("id")
	if !models.IsValidID(id) {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid todo ID"})
		return
	}

	var req models.TodoUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	updatedTodo, err := h.todoService.UpdateTodo(c.Request.Context(), id, req)
	if err != nil {
		h.respondError(c, "Error updating todo", err)
		return
	}
	c.JSON(http.StatusOK, updatedTodo)
}

// DeleteTodoHandler はTodoを削除します。
func (h *TodoHandler) DeleteTodoHandler(c *gin.Context) {
	if err := h.todoService.DeleteTodo(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, "Error deleting todo", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// respondError はエラーの種類をHTTPステータスに変換して {"detail": ...} を返します。
func (h *TodoHandler) respondError(c *gin.Context, action string, err error) {
	var verr *models.ValidationError
	switch {
	case errors.Is(err, services.ErrInvalidID):
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid todo ID"})
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"detail": verr.Error()})
	case errors.Is(err, models.ErrEmptyUpdate):
		c.JSON(http.StatusBadRequest, gin.H{"detail": "No valid data provided for update"})
	case errors.Is(err, repositories.ErrTodoNotFound):
		c.JSON(http.StatusNotFound, gin.H{"detail": "Todo not found"})
	default:
		h.logger.Error(action, "err", err, "path", c.Request.URL.Path)
		if h.redactErrors {
			c.JSON(http.StatusInternalServerError, gin.H{"detail": action})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"detail": fmt.Sprintf("%s: %v", action, err)})
	}
}

func respondBindError(c *gin.Context, err error) {
	var verr *models.ValidationError
	if errors.As(err, &verr) {
		c.JSON(http.StatusBadRequest, gin.H{"detail": verr.Error()})
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid request payload: " + err.Error()})
}
