// Package database はMongoDBへの接続を管理します。
package database

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"todo-list-api/backend/internal/config"
)

// ErrNotConnected は接続前 (または切断後) にハンドルを要求した場合のエラーです。
var ErrNotConnected = errors.New("database: not connected")

// Database はプロセス全体で共有するMongoDB接続を保持します。
// 起動時に Connect で作成し、ハンドラー層へ渡します。
type Database struct {
	mu     sync.RWMutex
	client *mongo.Client
	db     *mongo.Database
}

// Connect はMongoDBに接続し、pingで疎通を確認します。
func Connect(ctx context.Context, cfg config.DatabaseConfig) (*Database, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout.Duration())
	defer cancel()

	opts := options.Client().
		ApplyURI(cfg.URL).
		SetServerSelectionTimeout(cfg.ConnectTimeout.Duration())
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	return &Database{client: client, db: client.Database(cfg.Name)}, nil
}

// Handle は接続済みのデータベースハンドルを返します。
func (d *Database) Handle() (*mongo.Database, error) {
	if d == nil {
		return nil, ErrNotConnected
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.db == nil {
		return nil, ErrNotConnected
	}
	return d.db, nil
}

// Collection は指定した名前のコレクションを返します。
func (d *Database) Collection(name string) (*mongo.Collection, error) {
	db, err := d.Handle()
	if err != nil {
		return nil, err
	}
	return db.Collection(name), nil
}

// Ping はデータベースへの疎通を確認します。
func (d *Database) Ping(ctx context.Context) error {
	db, err := d.Handle()
	if err != nil {
		return err
	}
	return db.Client().Ping(ctx, readpref.Primary())
}

// Disconnect は接続を閉じます。未接続の場合は何もしません。
func (d *Database) Disconnect(ctx context.Context) error {
	if d == nil {
		return nil
	}
	d.mu.Lock()
	client := d.client
	d.client = nil
	d.db = nil
	d.mu.Unlock()

	if client == nil {
		return nil
	}
	if err := client.Disconnect(ctx); err != nil {
		return fmt.Errorf("mongo disconnect: %w", err)
	}
	return nil
}
