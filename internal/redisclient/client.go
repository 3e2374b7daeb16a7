package redisclient

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"inventory-service/internal/models"
	"inventory-service/internal/store"

	"github.com/go-redis/redis/v8"
)

//go:embed scripts/insert_document.lua
var insertDocumentScript string

//go:embed scripts/update_document.lua
var updateDocumentScript string

//go:embed scripts/delete_document.lua
var deleteDocumentScript string

// Client is a store.Backend on Redis. Each collection is a hash of id to
// encoded document; unique values are claimed under separate keys so the
// Lua scripts can reject collisions atomically.
type Client struct {
	rdb          *redis.Client
	insertScript *redis.Script
	updateScript *redis.Script
	deleteScript *redis.Script

	mu     sync.RWMutex
	unique map[string][]string
}

var _ store.Backend = (*Client)(nil)

// NewClient creates a new Redis client with Lua scripts loaded
func NewClient(ctx context.Context, addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{
		rdb:          rdb,
		insertScript: redis.NewScript(insertDocumentScript),
		updateScript: redis.NewScript(updateDocumentScript),
		deleteScript: redis.NewScript(deleteDocumentScript),
		unique:       make(map[string][]string),
	}, nil
}

// GetClient returns the underlying Redis client
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

func documentsKey(collection string) string {
	return fmt.Sprintf("docs:%s", collection)
}

func claimPrefix(collection string) string {
	return fmt.Sprintf("unique:%s:", collection)
}

// EnsureIndexes records the unique fields of a collection. Claims are
// written by the scripts, so there is nothing to create up front.
func (c *Client) EnsureIndexes(_ context.Context, collection string, unique []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.unique[collection] = append([]string(nil), unique...)
	return nil
}

func (c *Client) uniqueFields(collection string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.unique[collection]
}

func (c *Client) Find(ctx context.Context, collection string, filter store.Filter) ([]models.Document, error) {
	values, err := c.rdb.HVals(ctx, documentsKey(collection)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", collection, err)
	}

	docs := make([]models.Document, 0, len(values))
	for _, raw := range values {
		var doc models.Document
		if err := json.Unmarshal([]byte(raw), &doc); err != nil {
			return nil, fmt.Errorf("failed to decode %s document: %w", collection, err)
		}
		if matchesFilter(doc, filter) {
			docs = append(docs, doc)
		}
	}

	sort.SliceStable(docs, func(i, j int) bool {
		ti, tj := createdAt(docs[i]), createdAt(docs[j])
		if !ti.Equal(tj) {
			return ti.Before(tj)
		}
		return fmt.Sprint(docs[i][models.FieldID]) < fmt.Sprint(docs[j][models.FieldID])
	})
	return docs, nil
}

func (c *Client) FindByID(ctx context.Context, collection, id string) (models.Document, error) {
	raw, err := c.rdb.HGet(ctx, documentsKey(collection), id).Result()
	if errors.Is(err, redis.Nil) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s %s: %w", collection, id, err)
	}

	var doc models.Document
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("failed to decode %s document: %w", collection, err)
	}
	return doc, nil
}

func (c *Client) Insert(ctx context.Context, collection string, doc models.Document) error {
	id, _ := doc[models.FieldID].(string)
	code, err := c.runWrite(ctx, c.insertScript, collection, id, doc)
	if err != nil {
		return err
	}
	switch {
	case code == -2:
		return &store.DuplicateKeyError{Collection: collection, Field: models.FieldID}
	case code > 0:
		return c.duplicate(collection, code)
	}
	return nil
}

func (c *Client) Update(ctx context.Context, collection, id string, doc models.Document) error {
	code, err := c.runWrite(ctx, c.updateScript, collection, id, doc)
	if err != nil {
		return err
	}
	switch {
	case code == -1:
		return store.ErrNotFound
	case code > 0:
		return c.duplicate(collection, code)
	}
	return nil
}

func (c *Client) Delete(ctx context.Context, collection, id string) error {
	args := []interface{}{id, claimPrefix(collection)}
	for _, field := range c.uniqueFields(collection) {
		args = append(args, field)
	}

	result, err := c.deleteScript.Run(ctx, c.rdb, []string{documentsKey(collection)}, args...).Result()
	if err != nil {
		return fmt.Errorf("delete document script failed: %w", err)
	}

	removed, ok := result.(int64)
	if !ok {
		return fmt.Errorf("unexpected script result type")
	}
	if removed == 0 {
		return store.ErrNotFound
	}
	return nil
}

// runWrite executes an insert or update script and returns its status code
func (c *Client) runWrite(ctx context.Context, script *redis.Script, collection, id string, doc models.Document) (int64, error) {
	encoded, err := json.Marshal(doc)
	if err != nil {
		return 0, fmt.Errorf("failed to encode document: %w", err)
	}

	args := []interface{}{id, string(encoded), claimPrefix(collection)}
	for _, field := range c.uniqueFields(collection) {
		args = append(args, field)
	}

	result, err := script.Run(ctx, c.rdb, []string{documentsKey(collection)}, args...).Result()
	if err != nil {
		return 0, fmt.Errorf("write document script failed: %w", err)
	}

	code, ok := result.(int64)
	if !ok {
		return 0, fmt.Errorf("unexpected script result type")
	}
	return code, nil
}

func (c *Client) duplicate(collection string, position int64) error {
	dup := &store.DuplicateKeyError{Collection: collection}
	fields := c.uniqueFields(collection)
	if int(position) <= len(fields) {
		dup.Field = fields[position-1]
	}
	return dup
}

func matchesFilter(doc models.Document, filter store.Filter) bool {
	for k, want := range filter {
		got, ok := doc[k]
		if !ok || got == nil || fmt.Sprint(got) != want {
			return false
		}
	}
	return true
}

func createdAt(doc models.Document) time.Time {
	s, _ := doc[models.FieldCreatedAt].(string)
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}
