package testutil

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"todo-list-api/backend/internal/models"
	"todo-list-api/backend/internal/repositories"
)

// MemoryTodoRepository はテスト用のインメモリ TodoRepository です。
// MongoDBと同じく挿入順 (_id 昇順) で返します。
type MemoryTodoRepository struct {
	mu    sync.RWMutex
	order []primitive.ObjectID
	todos map[primitive.ObjectID]models.Todo
	calls atomic.Int64

	// Err が設定されている場合、すべての操作がこのエラーを返します。
	Err error
}

// NewMemoryTodoRepository は空のリポジトリを作成します。
func NewMemoryTodoRepository() *MemoryTodoRepository {
	return &MemoryTodoRepository{todos: make(map[primitive.ObjectID]models.Todo)}
}

// Calls はリポジトリが呼び出された回数を返します。
func (r *MemoryTodoRepository) Calls() int64 {
	return r.calls.Load()
}

// Len は保存されているTodoの件数を返します。
func (r *MemoryTodoRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.todos)
}

func (r *MemoryTodoRepository) FindAll(ctx context.Context, limit int64) ([]*models.Todo, error) {
	r.calls.Add(1)
	if r.Err != nil {
		return nil, r.Err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	todos := make([]*models.Todo, 0, len(r.order))
	for _, id := range r.order {
		if int64(len(todos)) >= limit {
			break
		}
		t := r.todos[id]
		todos = append(todos, &t)
	}
	return todos, nil
}

func (r *MemoryTodoRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Todo, error) {
	r.calls.Add(1)
	if r.Err != nil {
		return nil, r.Err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.todos[id]
	if !ok {
		return nil, repositories.ErrTodoNotFound
	}
	return &t, nil
}

func (r *MemoryTodoRepository) Create(ctx context.Context, t *models.Todo) (*models.Todo, error) {
	r.calls.Add(1)
	if r.Err != nil {
		return nil, r.Err
	}
	if t == nil {
		return nil, errors.New("nil todo")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := *t
	stored.ID = primitive.NewObjectID()
	r.todos[stored.ID] = stored
	r.order = append(r.order, stored.ID)
	return &stored, nil
}

func (r *MemoryTodoRepository) Update(ctx context.Context, id primitive.ObjectID, patch models.TodoPatch) (*models.Todo, error) {
	r.calls.Add(1)
	if r.Err != nil {
		return nil, r.Err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.todos[id]
	if !ok {
		return nil, repositories.ErrTodoNotFound
	}
	patch.Apply(&t)
	r.todos[id] = t
	return &t, nil
}

func (r *MemoryTodoRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	r.calls.Add(1)
	if r.Err != nil {
		return r.Err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.todos[id]; !ok {
		return repositories.ErrTodoNotFound
	}
	delete(r.todos, id)
	for i, oid := range r.order {
		if oid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

var _ repositories.TodoRepository = (*MemoryTodoRepository)(nil)
