package services

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"todo-list-api/backend/internal/models"
	"todo-list-api/backend/internal/repositories"
)

// ErrInvalidID はIDがObjectIDとして不正な場合のエラーです。
var ErrInvalidID = errors.New("invalid todo id")

// TodoService はTodo関連のビジネスロジックを扱います。
// IDとリクエストの検証はリポジトリへアクセスする前に行います。
type TodoService struct {
	todoRepo  repositories.TodoRepository
	listLimit int64
	now       func() time.Time
}

// NewTodoService は新しいTodoServiceを作成します。
func NewTodoService(todoRepo repositories.TodoRepository, listLimit int64) *TodoService {
	return &TodoService{todoRepo: todoRepo, listLimit: listLimit, now: Now}
}

// WithClock は時刻の取得元を差し替えたコピーを返します。テスト用です。
func (s *TodoService) WithClock(now func() time.Time) *TodoService {
	c := *s
	c.now = now
	return &c
}

// Now はミリ秒に切り詰めたUTCの現在時刻を返します (BSONの日時精度に合わせる)。
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

// GetTodos はTodoを最大 listLimit 件取得します。
func (s *TodoService) GetTodos(ctx context.Context) ([]*models.Todo, error) {
	return s.todoRepo.FindAll(ctx, s.listLimit)
}

// GetTodoByID は指定IDのTodoを取得します。
func (s *TodoService) GetTodoByID(ctx context.Context, idStr string) (*models.Todo, error) {
	id, err := parseID(idStr)
	if err != nil {
		return nil, err
	}
	return s.todoRepo.FindByID(ctx, id)
}

// CreateTodo はリクエストを検証し、新しいTodoを作成します。
func (s *TodoService) CreateTodo(ctx context.Context, req models.TodoCreateRequest) (*models.Todo, error) {
	todo, err := req.Validate(s.now())
	if err != nil {
		return nil, err
	}
	return s.todoRepo.Create(ctx, todo)
}

// UpdateTodo は指定されたフィールドだけをTodoにマージし、updated_at を更新します。
func (s *TodoService) UpdateTodo(ctx context.Context, idStr string, req models.TodoUpdateRequest) (*models.Todo, error) {
	id, err := parseID(idStr)
	if err != nil {
		return nil, err
	}
	patch, err := req.Validate(s.now())
	if err != nil {
		return nil, err
	}
	return s.todoRepo.Update(ctx, id, patch)
}

// DeleteTodo はTodoを削除します。
func (s *TodoService) DeleteTodo(ctx context.Context, idStr string) error {
	id, err := parseID(idStr)
	if err != nil {
		return err
	}
	return s.todoRepo.Delete(ctx, id)
}

func parseID(s string) (primitive.ObjectID, error) {
	if !models.IsValidID(s) {
		return primitive.NilObjectID, ErrInvalidID
	}
	id, err := models.ParseID(s)
	if err != nil {
		return primitive.NilObjectID, ErrInvalidID
	}
	return id, nil
}
