// Package repositories はデータベース操作を行うリポジトリを提供します。
package repositories

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"todo-list-api/backend/internal/models"
)

// ErrTodoNotFound はTODOが見つからない場合のエラーです。
var ErrTodoNotFound = errors.New("todo not found")

// TodoRepository はTodoの永続化を抽象化します。テストではインメモリ実装に差し替えます。
type TodoRepository interface {
	FindAll(ctx context.Context, limit int64) ([]*models.Todo, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Todo, error)
	Create(ctx context.Context, t *models.Todo) (*models.Todo, error)
	Update(ctx context.Context, id primitive.ObjectID, patch models.TodoPatch) (*models.Todo, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
}

// MongoTodoRepository はMongoDBのコレクションに対する TodoRepository の実装です。
type MongoTodoRepository struct {
	coll *mongo.Collection
}

// NewMongoTodoRepository は新しいMongoTodoRepositoryインスタンスを作成します。
func NewMongoTodoRepository(coll *mongo.Collection) *MongoTodoRepository {
	return &MongoTodoRepository{coll: coll}
}

// FindAll はTodoを _id 昇順 (挿入順) で最大 limit 件取得します。
func (r *MongoTodoRepository) FindAll(ctx context.Context, limit int64) ([]*models.Todo, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "_id", Value: 1}}).
		SetLimit(limit)

	cur, err := r.coll.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("could not query todos: %w", err)
	}
	defer cur.Close(ctx)

	todos := make([]*models.Todo, 0)
	for cur.Next(ctx) {
		var t models.Todo
		if err := cur.Decode(&t); err != nil {
			return nil, fmt.Errorf("could not decode todo: %w", err)
		}
		todos = append(todos, &t)
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("error iterating todos: %w", err)
	}
	return todos, nil
}

// FindByID は指定されたIDのTodoを取得します。
func (r *MongoTodoRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Todo, error) {
	var t models.Todo
	err := r.coll.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&t)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrTodoNotFound
		}
		return nil, fmt.Errorf("could not query todo: %w", err)
	}
	return &t, nil
}

// Create は新しいTodoを挿入し、採番されたIDで読み直したものを返します。
func (r *MongoTodoRepository) Create(ctx context.Context, t *models.Todo) (*models.Todo, error) {
	t.ID = primitive.NilObjectID
	result, err := r.coll.InsertOne(ctx, t)
	if err != nil {
		return nil, fmt.Errorf("could not insert todo: %w", err)
	}

	id, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return nil, fmt.Errorf("unexpected inserted id type %T", result.InsertedID)
	}
	return r.FindByID(ctx, id)
}

// Update は差分をパイプライン更新の $set で書き込み、更新後のTodoを読み直して返します。
// 一致するドキュメントがない場合のみ ErrTodoNotFound を返します。
func (r *MongoTodoRepository) Update(ctx context.Context, id primitive.ObjectID, patch models.TodoPatch) (*models.Todo, error) {
	result, err := r.coll.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: id}},
		mongo.Pipeline{{{Key: "$set", Value: setDocument(patch)}}},
	)
	if err != nil {
		return nil, fmt.Errorf("could not update todo: %w", err)
	}
	if result.MatchedCount == 0 {
		return nil, ErrTodoNotFound
	}
	return r.FindByID(ctx, id)
}

// Delete は指定されたIDのTodoを削除します。
func (r *MongoTodoRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	result, err := r.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: id}})
	if err != nil {
		return fmt.Errorf("could not delete todo: %w", err)
	}
	if result.DeletedCount == 0 {
		return ErrTodoNotFound
	}
	return nil
}

// setDocument は差分のうち指定されたフィールドと updated_at だけを含む $set ステージを作ります。
// パイプライン内では "$" で始まる文字列がフィールド参照になるため、値は $literal で包みます。
// updated_at は now と前回値+1ミリ秒の大きい方にして、同じミリ秒内の更新でも必ず進めます。
func setDocument(p models.TodoPatch) bson.D {
	set := bson.D{}
	if p.Title != nil {
		set = append(set, bson.E{Key: "title", Value: literal(*p.Title)})
	}
	if p.Description != nil {
		set = append(set, bson.E{Key: "description", Value: literal(*p.Description)})
	}
	if p.Completed != nil {
		set = append(set, bson.E{Key: "completed", Value: literal(*p.Completed)})
	}
	if p.Priority != nil {
		set = append(set, bson.E{Key: "priority", Value: literal(*p.Priority)})
	}
	if p.DueDate != nil {
		set = append(set, bson.E{Key: "dueDate", Value: literal(*p.DueDate)})
	}
	return append(set, bson.E{Key: "updated_at", Value: bson.D{{Key: "$max", Value: bson.A{
		p.UpdatedAt,
		bson.D{{Key: "$add", Value: bson.A{"$updated_at", 1}}},
	}}}})
}

func literal(v interface{}) bson.D {
	return bson.D{{Key: "$literal", Value: v}}
}
