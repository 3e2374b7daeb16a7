package store

import (
	"context"
	"errors"
	"fmt"

	"inventory-service/internal/models"
)

var (
	// ErrNotFound is returned when no document matches an identifier
	ErrNotFound = errors.New("document not found")

	// ErrDuplicateKey is returned when a write violates a unique field
	ErrDuplicateKey = errors.New("duplicate key")
)

// DuplicateKeyError names the unique field a write collided on. Field is
// empty when the backend cannot tell which index rejected the write.
type DuplicateKeyError struct {
	Collection string
	Field      string
}

func (e *DuplicateKeyError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("duplicate key in %s", e.Collection)
	}
	return fmt.Sprintf("duplicate key in %s: %s", e.Collection, e.Field)
}

func (e *DuplicateKeyError) Is(target error) bool {
	return target == ErrDuplicateKey
}

// Filter selects documents whose top-level fields equal the given values
type Filter map[string]string

// Backend is a document store holding one collection per resource.
// Documents carry their identifier under models.FieldID.
type Backend interface {
	Find(ctx context.Context, collection string, filter Filter) ([]models.Document, error)
	FindByID(ctx context.Context, collection, id string) (models.Document, error)
	Insert(ctx context.Context, collection string, doc models.Document) error
	// Update replaces the whole document stored under id.
	Update(ctx context.Context, collection, id string, doc models.Document) error
	Delete(ctx context.Context, collection, id string) error
	EnsureIndexes(ctx context.Context, collection string, unique []string) error
	Ping(ctx context.Context) error
	Close() error
}

// matches reports whether doc satisfies filter, comparing the string form
// of each field.
func matches(doc models.Document, filter Filter) bool {
	for k, want := range filter {
		got, ok := doc[k]
		if !ok || got == nil {
			return false
		}
		if fmt.Sprint(got) != want {
			return false
		}
	}
	return true
}

// uniqueValue returns the string stored under field, or "" when the field
// is absent or not a string.
func uniqueValue(doc models.Document, field string) string {
	s, _ := doc[field].(string)
	return s
}

func indexName(collection, field string) string {
	return fmt.Sprintf("%s_%s_key", collection, field)
}
