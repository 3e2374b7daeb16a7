package store

import (
	"context"
	"fmt"
	"sync"

	"inventory-service/internal/models"
	"inventory-service/internal/util"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Opener establishes a backend connection
type Opener func(ctx context.Context) (Backend, error)

// Lazy is a Backend that opens its underlying connection on first use.
// Concurrent first calls share a single open attempt; a failed attempt is
// not remembered, so the next call tries again.
type Lazy struct {
	open   Opener
	group  singleflight.Group
	mu     sync.RWMutex
	conn   Backend
	logger *zap.Logger
}

// NewLazy creates a lazily connected backend
func NewLazy(open Opener) *Lazy {
	return &Lazy{
		open:   open,
		logger: util.GetLogger(),
	}
}

func (l *Lazy) backend(ctx context.Context) (Backend, error) {
	l.mu.RLock()
	conn := l.conn
	l.mu.RUnlock()
	if conn != nil {
		return conn, nil
	}

	v, err, _ := l.group.Do("connect", func() (interface{}, error) {
		l.mu.RLock()
		existing := l.conn
		l.mu.RUnlock()
		if existing != nil {
			return existing, nil
		}

		// The attempt is shared, so one caller's cancellation must not
		// fail the others.
		b, err := l.open(context.WithoutCancel(ctx))
		if err != nil {
			util.StoreConnectsTotal.WithLabelValues("error").Inc()
			l.logger.Error("Failed to connect to document store", zap.Error(err))
			return nil, err
		}
		util.StoreConnectsTotal.WithLabelValues("ok").Inc()

		l.mu.Lock()
		l.conn = b
		l.mu.Unlock()
		l.logger.Info("Document store connected")
		return b, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to document store: %w", err)
	}
	return v.(Backend), nil
}

func (l *Lazy) Find(ctx context.Context, collection string, filter Filter) ([]models.Document, error) {
	b, err := l.backend(ctx)
	if err != nil {
		return nil, err
	}
	return b.Find(ctx, collection, filter)
}

func (l *Lazy) FindByID(ctx context.Context, collection, id string) (models.Document, error) {
	b, err := l.backend(ctx)
	if err != nil {
		return nil, err
	}
	return b.FindByID(ctx, collection, id)
}

func (l *Lazy) Insert(ctx context.Context, collection string, doc models.Document) error {
	b, err := l.backend(ctx)
	if err != nil {
		return err
	}
	return b.Insert(ctx, collection, doc)
}

func (l *Lazy) Update(ctx context.Context, collection, id string, doc models.Document) error {
	b, err := l.backend(ctx)
	if err != nil {
		return err
	}
	return b.Update(ctx, collection, id, doc)
}

func (l *Lazy) Delete(ctx context.Context, collection, id string) error {
	b, err := l.backend(ctx)
	if err != nil {
		return err
	}
	return b.Delete(ctx, collection, id)
}

func (l *Lazy) EnsureIndexes(ctx context.Context, collection string, unique []string) error {
	b, err := l.backend(ctx)
	if err != nil {
		return err
	}
	return b.EnsureIndexes(ctx, collection, unique)
}

func (l *Lazy) Ping(ctx context.Context) error {
	b, err := l.backend(ctx)
	if err != nil {
		return err
	}
	return b.Ping(ctx)
}

// Close closes the underlying connection if one was opened
func (l *Lazy) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.conn == nil {
		return nil
	}
	err := l.conn.Close()
	l.conn = nil
	return err
}
