package store

import (
	"context"
	"testing"

	"inventory-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCRUD(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	doc := models.Document{"_id": "a1", "name": "Mouse", "quantity": 20.0}
	require.NoError(t, m.Insert(ctx, "products", doc))

	doc["name"] = "mutated by caller"
	got, err := m.FindByID(ctx, "products", "a1")
	require.NoError(t, err)
	assert.Equal(t, "Mouse", got["name"])

	got["name"] = "Keyboard"
	require.NoError(t, m.Update(ctx, "products", "a1", got))

	updated, err := m.FindByID(ctx, "products", "a1")
	require.NoError(t, err)
	assert.Equal(t, "Keyboard", updated["name"])

	require.NoError(t, m.Delete(ctx, "products", "a1"))
	_, err = m.FindByID(ctx, "products", "a1")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, m.Delete(ctx, "products", "a1"), ErrNotFound)
	assert.ErrorIs(t, m.Update(ctx, "products", "a1", updated), ErrNotFound)
}

func TestMemoryUniqueIndex(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.EnsureIndexes(ctx, "categories", []string{"name"}))

	require.NoError(t, m.Insert(ctx, "categories", models.Document{"_id": "c1", "name": "Electronics"}))
	require.NoError(t, m.Insert(ctx, "categories", models.Document{"_id": "c2", "name": "Garden"}))

	err := m.Insert(ctx, "categories", models.Document{"_id": "c3", "name": "Electronics"})
	require.ErrorIs(t, err, ErrDuplicateKey)
	var dup *DuplicateKeyError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "name", dup.Field)

	err = m.Update(ctx, "categories", "c2", models.Document{"_id": "c2", "name": "Electronics"})
	assert.ErrorIs(t, err, ErrDuplicateKey)

	// Re-saving a document with its own unique value is not a conflict.
	assert.NoError(t, m.Update(ctx, "categories", "c1", models.Document{"_id": "c1", "name": "Electronics", "description": "gadgets"}))

	docs, err := m.Find(ctx, "categories", nil)
	require.NoError(t, err)
	assert.Len(t, docs, 2)
}

func TestMemoryFindFilterAndOrder(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	require.NoError(t, m.Insert(ctx, "items", models.Document{"_id": "i1", "category": "c1", "stock": 3.0}))
	require.NoError(t, m.Insert(ctx, "items", models.Document{"_id": "i2", "category": "c2", "stock": 3.0}))
	require.NoError(t, m.Insert(ctx, "items", models.Document{"_id": "i3", "category": "c1", "stock": 4.0}))

	docs, err := m.Find(ctx, "items", Filter{"category": "c1"})
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "i1", docs[0]["_id"])
	assert.Equal(t, "i3", docs[1]["_id"])

	docs, err = m.Find(ctx, "items", Filter{"stock": "3"})
	require.NoError(t, err)
	assert.Len(t, docs, 2)

	docs, err = m.Find(ctx, "items", Filter{"missing": "x"})
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestMemoryHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewMemory().Find(ctx, "items", nil)
	assert.ErrorIs(t, err, context.Canceled)
}
