package store

import (
	"context"
	"sort"
	"sync"

	"inventory-service/internal/models"
)

// Memory is an in-process Backend. Documents are deep-copied on the way in
// and out so callers never share state with the store.
type Memory struct {
	mu      sync.RWMutex
	data    map[string]map[string]models.Document
	order   map[string][]string
	uniques map[string][]string
}

// NewMemory creates an empty in-memory store
func NewMemory() *Memory {
	return &Memory{
		data:    make(map[string]map[string]models.Document),
		order:   make(map[string][]string),
		uniques: make(map[string][]string),
	}
}

func (m *Memory) Find(ctx context.Context, collection string, filter Filter) ([]models.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	docs := make([]models.Document, 0, len(m.data[collection]))
	for _, id := range m.order[collection] {
		doc := m.data[collection][id]
		if matches(doc, filter) {
			docs = append(docs, models.Clone(doc))
		}
	}
	return docs, nil
}

func (m *Memory) FindByID(ctx context.Context, collection, id string) (models.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	doc, ok := m.data[collection][id]
	if !ok {
		return nil, ErrNotFound
	}
	return models.Clone(doc), nil
}

func (m *Memory) Insert(ctx context.Context, collection string, doc models.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	id, _ := doc[models.FieldID].(string)

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.data[collection][id]; exists {
		return &DuplicateKeyError{Collection: collection, Field: models.FieldID}
	}
	if field := m.conflict(collection, id, doc); field != "" {
		return &DuplicateKeyError{Collection: collection, Field: field}
	}

	if m.data[collection] == nil {
		m.data[collection] = make(map[string]models.Document)
	}
	m.data[collection][id] = models.Clone(doc)
	m.order[collection] = append(m.order[collection], id)
	return nil
}

func (m *Memory) Update(ctx context.Context, collection, id string, doc models.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.data[collection][id]; !ok {
		return ErrNotFound
	}
	if field := m.conflict(collection, id, doc); field != "" {
		return &DuplicateKeyError{Collection: collection, Field: field}
	}

	stored := models.Clone(doc)
	stored[models.FieldID] = id
	m.data[collection][id] = stored
	return nil
}

func (m *Memory) Delete(ctx context.Context, collection, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.data[collection][id]; !ok {
		return ErrNotFound
	}
	delete(m.data[collection], id)

	ids := m.order[collection]
	for i, existing := range ids {
		if existing == id {
			m.order[collection] = append(ids[:i:i], ids[i+1:]...)
			break
		}
	}
	return nil
}

func (m *Memory) EnsureIndexes(_ context.Context, collection string, unique []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	fields := append([]string(nil), unique...)
	sort.Strings(fields)
	m.uniques[collection] = fields
	return nil
}

func (m *Memory) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (m *Memory) Close() error {
	return nil
}

// conflict returns the first unique field of doc already held by another
// document in the collection. Callers hold the lock.
func (m *Memory) conflict(collection, id string, doc models.Document) string {
	for _, field := range m.uniques[collection] {
		value := uniqueValue(doc, field)
		if value == "" {
			continue
		}
		for otherID, other := range m.data[collection] {
			if otherID != id && uniqueValue(other, field) == value {
				return field
			}
		}
	}
	return ""
}
