package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"inventory-service/internal/models"
	"inventory-service/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []*models.RecordEvent
	err    error
}

func (p *recordingPublisher) PublishRecordEvent(_ context.Context, event *models.RecordEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

// faultyBackend fails every record operation with err
type faultyBackend struct {
	store.Backend
	err error
}

func (f faultyBackend) Find(context.Context, string, store.Filter) ([]models.Document, error) {
	return nil, f.err
}

func (f faultyBackend) FindByID(context.Context, string, string) (models.Document, error) {
	return nil, f.err
}

func (f faultyBackend) Insert(context.Context, string, models.Document) error {
	return f.err
}

func (f faultyBackend) Update(context.Context, string, string, models.Document) error {
	return f.err
}

func (f faultyBackend) Delete(context.Context, string, string) error {
	return f.err
}

func newBackend(t *testing.T) store.Backend {
	backend := store.NewMemory()
	require.NoError(t, EnsureIndexes(context.Background(), backend))
	return backend
}

// tick makes the service clock advance one second per call
func tick[T any](svc *ResourceService[T], start time.Time) {
	var mu sync.Mutex
	current := start
	svc.now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		current = current.Add(time.Second)
		return current
	}
}

func requireKind(t *testing.T, err error, kind Kind) *Error {
	t.Helper()
	var svcErr *Error
	require.ErrorAs(t, err, &svcErr)
	require.Equal(t, kind, svcErr.Kind, svcErr.Message)
	return svcErr
}

func fieldNames(fields []models.FieldError) []string {
	names := make([]string, 0, len(fields))
	for _, fe := range fields {
		names = append(names, fe.Field)
	}
	return names
}

func TestProductLifecycle(t *testing.T) {
	ctx := context.Background()
	svc := NewResourceService(Products, newBackend(t), nil)

	created, err := svc.Create(ctx, models.Document{"name": "Mouse", "quantity": 20.0, "price": 15.0})
	require.NoError(t, err)
	assert.True(t, models.IsValidID(created.ID))
	assert.Equal(t, "Mouse", created.Name)
	assert.Equal(t, 20, *created.Quantity)
	assert.Equal(t, 15.0, *created.Price)
	assert.Nil(t, created.Stock)
	assert.Empty(t, created.Description)
	assert.False(t, created.CreatedAt.IsZero())
	assert.Equal(t, created.CreatedAt, created.UpdatedAt)

	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, got)

	require.NoError(t, svc.Delete(ctx, created.ID))

	_, err = svc.Get(ctx, created.ID)
	notFound := requireKind(t, err, KindNotFound)
	assert.Equal(t, "Product not found", notFound.Message)

	err = svc.Delete(ctx, created.ID)
	requireKind(t, err, KindNotFound)
}

func TestCreateIgnoresClientMetadata(t *testing.T) {
	ctx := context.Background()
	svc := NewResourceService(Products, newBackend(t), nil)

	created, err := svc.Create(ctx, models.Document{
		"_id":       "65a1b2c3d4e5f6a7b8c9d0e1",
		"createdAt": "1999-01-01T00:00:00Z",
		"name":      "Mouse",
		"quantity":  1.0,
		"price":     1.0,
	})
	require.NoError(t, err)
	assert.NotEqual(t, "65a1b2c3d4e5f6a7b8c9d0e1", created.ID)
	assert.NotEqual(t, 1999, created.CreatedAt.Year())
}

func TestInvalidIdentifier(t *testing.T) {
	ctx := context.Background()
	svc := NewResourceService(Products, faultyBackend{err: errors.New("must not be called")}, nil)

	_, err := svc.Get(ctx, "not-an-id")
	invalid := requireKind(t, err, KindInvalidIdentifier)
	assert.Equal(t, "Invalid product ID", invalid.Message)

	_, err = svc.Update(ctx, "not-an-id", models.Document{"name": "x"})
	requireKind(t, err, KindInvalidIdentifier)

	err = svc.Delete(ctx, "not-an-id")
	requireKind(t, err, KindInvalidIdentifier)
}

func TestCreateReportsEveryMissingField(t *testing.T) {
	ctx := context.Background()
	svc := NewResourceService(Items, newBackend(t), nil)

	_, err := svc.Create(ctx, models.Document{"description": "no required fields"})
	verr := requireKind(t, err, KindValidation)
	assert.ElementsMatch(t, []string{"name", "category", "supplier", "stock"}, fieldNames(verr.Fields))

	items, err := svc.List(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestCreateReportsTypeAndRuleFailuresTogether(t *testing.T) {
	ctx := context.Background()
	svc := NewResourceService(Products, newBackend(t), nil)

	_, err := svc.Create(ctx, models.Document{"name": 5.0, "quantity": "many", "price": -1.0})
	verr := requireKind(t, err, KindValidation)

	assert.ElementsMatch(t, []string{"name", "quantity", "price"}, fieldNames(verr.Fields))
	for _, fe := range verr.Fields {
		switch fe.Field {
		case "name":
			assert.Equal(t, "name must be of type string", fe.Message)
		case "quantity":
			assert.Equal(t, "quantity must be of type integer", fe.Message)
		case "price":
			assert.Equal(t, "price must be greater than or equal to 0", fe.Message)
		}
	}
}

func TestCreateRejectsFractionalQuantity(t *testing.T) {
	svc := NewResourceService(Products, newBackend(t), nil)

	_, err := svc.Create(context.Background(), models.Document{"name": "Mouse", "quantity": 2.5, "price": 1.0})
	verr := requireKind(t, err, KindValidation)
	assert.Equal(t, []string{"quantity"}, fieldNames(verr.Fields))
}

func TestDuplicateCategoryName(t *testing.T) {
	ctx := context.Background()
	svc := NewResourceService(Categories, newBackend(t), nil)

	first, err := svc.Create(ctx, models.Document{"name": "Electronics", "description": "first"})
	require.NoError(t, err)

	_, err = svc.Create(ctx, models.Document{"name": "Electronics", "description": "second"})
	dup := requireKind(t, err, KindDuplicateKey)
	assert.Equal(t, "Category with this name already exists", dup.Message)
	assert.Equal(t, []string{"name"}, fieldNames(dup.Fields))

	stored, err := svc.Get(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, first, stored)

	all, err := svc.List(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestDuplicateOrderNumberOnUpdate(t *testing.T) {
	ctx := context.Background()
	svc := NewResourceService(Orders, newBackend(t), nil)

	line := []any{map[string]any{"productId": models.NewID(), "quantity": 1.0, "price": 10.0}}
	a, err := svc.Create(ctx, models.Document{"orderNumber": "A-1", "products": line, "totalAmount": 10.0, "customerName": "Ann"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, models.Document{"orderNumber": "A-2", "products": line, "totalAmount": 10.0, "customerName": "Bob"})
	require.NoError(t, err)

	_, err = svc.Update(ctx, a.ID, models.Document{"orderNumber": "A-2"})
	requireKind(t, err, KindDuplicateKey)

	stored, err := svc.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "A-1", stored.OrderNumber)
}

func TestPartialUpdate(t *testing.T) {
	ctx := context.Background()
	svc := NewResourceService(Products, newBackend(t), nil)
	tick(svc, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))

	created, err := svc.Create(ctx, models.Document{
		"name": "Mouse", "quantity": 20.0, "price": 15.0, "description": "wireless",
	})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, created.ID, models.Document{"quantity": 7.0, "createdAt": "1999-01-01T00:00:00Z"})
	require.NoError(t, err)

	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, 7, *updated.Quantity)
	assert.Equal(t, "Mouse", updated.Name)
	assert.Equal(t, "wireless", updated.Description)
	assert.Equal(t, 15.0, *updated.Price)
	assert.Equal(t, created.CreatedAt, updated.CreatedAt)
	assert.True(t, updated.UpdatedAt.After(created.UpdatedAt))

	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, updated, got)
}

func TestUpdateValidatesMergedRecord(t *testing.T) {
	ctx := context.Background()
	svc := NewResourceService(Products, newBackend(t), nil)

	created, err := svc.Create(ctx, models.Document{"name": "Mouse", "quantity": 20.0, "price": 15.0})
	require.NoError(t, err)

	_, err = svc.Update(ctx, created.ID, models.Document{"price": -3.0, "name": nil})
	verr := requireKind(t, err, KindValidation)
	assert.ElementsMatch(t, []string{"price", "name"}, fieldNames(verr.Fields))

	stored, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, stored)
}

func TestUpdateUnknownIdentifier(t *testing.T) {
	ctx := context.Background()
	svc := NewResourceService(Products, newBackend(t), nil)

	_, err := svc.Create(ctx, models.Document{"name": "Mouse", "quantity": 1.0, "price": 1.0})
	require.NoError(t, err)
	before, err := svc.List(ctx, nil)
	require.NoError(t, err)

	missing := models.NewID()
	_, err = svc.Update(ctx, missing, models.Document{"name": "Ghost", "quantity": 1.0, "price": 1.0})
	requireKind(t, err, KindNotFound)

	after, err := svc.List(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, before, after)
	_, err = svc.Get(ctx, missing)
	requireKind(t, err, KindNotFound)
}

func TestCategoryCannotBeItsOwnParent(t *testing.T) {
	ctx := context.Background()
	svc := NewResourceService(Categories, newBackend(t), nil)

	created, err := svc.Create(ctx, models.Document{"name": "Tools"})
	require.NoError(t, err)

	_, err = svc.Update(ctx, created.ID, models.Document{"parentCategory": created.ID})
	verr := requireKind(t, err, KindValidation)
	assert.Equal(t, []string{"parentCategory"}, fieldNames(verr.Fields))

	parent, err := svc.Create(ctx, models.Document{"name": "Hardware"})
	require.NoError(t, err)
	child, err := svc.Update(ctx, created.ID, models.Document{"parentCategory": parent.ID})
	require.NoError(t, err)
	assert.Equal(t, parent.ID, child.ParentCategory)
}

func TestSupplierIsNormalized(t *testing.T) {
	svc := NewResourceService(Suppliers, newBackend(t), nil)

	created, err := svc.Create(context.Background(), models.Document{
		"name":    "  Acme  ",
		"phone":   " 555-0100 ",
		"email":   " Sales@ACME.com ",
		"address": map[string]any{"city": " Springfield "},
	})
	require.NoError(t, err)
	assert.Equal(t, "Acme", created.Name)
	assert.Equal(t, "555-0100", created.Phone)
	assert.Equal(t, "sales@acme.com", created.Email)
	require.NotNil(t, created.Address)
	assert.Equal(t, "Springfield", created.Address.City)
}

func TestSupplierRejectsBlankName(t *testing.T) {
	svc := NewResourceService(Suppliers, newBackend(t), nil)

	_, err := svc.Create(context.Background(), models.Document{"name": "   ", "phone": "555", "email": "nope"})
	verr := requireKind(t, err, KindValidation)
	assert.ElementsMatch(t, []string{"name", "email"}, fieldNames(verr.Fields))
}

func TestOrdersListedNewestFirst(t *testing.T) {
	ctx := context.Background()
	svc := NewResourceService(Orders, newBackend(t), nil)
	tick(svc, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))

	line := []any{map[string]any{"productId": models.NewID(), "quantity": 2.0, "price": 5.0}}
	for _, number := range []string{"A-1", "A-2", "A-3"} {
		_, err := svc.Create(ctx, models.Document{
			"orderNumber": number, "products": line, "totalAmount": 10.0, "customerName": "Ann",
		})
		require.NoError(t, err)
	}

	orders, err := svc.List(ctx, nil)
	require.NoError(t, err)
	require.Len(t, orders, 3)
	assert.Equal(t, "A-3", orders[0].OrderNumber)
	assert.Equal(t, "A-2", orders[1].OrderNumber)
	assert.Equal(t, "A-1", orders[2].OrderNumber)
}

func TestOrderLineValidation(t *testing.T) {
	svc := NewResourceService(Orders, newBackend(t), nil)

	_, err := svc.Create(context.Background(), models.Document{
		"orderNumber":  "A-1",
		"products":     []any{map[string]any{"productId": "bad", "quantity": 0.0, "price": 1.0}},
		"totalAmount":  1.0,
		"customerName": "Ann",
		"status":       "shipped",
	})
	verr := requireKind(t, err, KindValidation)
	assert.ElementsMatch(t,
		[]string{"products[0].productId", "products[0].quantity", "status"},
		fieldNames(verr.Fields))
}

func TestListFilter(t *testing.T) {
	ctx := context.Background()
	svc := NewResourceService(Items, newBackend(t), nil)

	tools, other, supplier := models.NewID(), models.NewID(), models.NewID()
	for _, category := range []string{tools, other, tools} {
		_, err := svc.Create(ctx, models.Document{
			"name": "Hammer", "category": category, "supplier": supplier, "stock": 3.0,
		})
		require.NoError(t, err)
	}

	filter := svc.Filter(map[string][]string{"category": {tools}, "name": {"ignored"}})
	assert.Equal(t, store.Filter{"category": tools}, filter)

	items, err := svc.List(ctx, filter)
	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestStoreFaultIsInternal(t *testing.T) {
	ctx := context.Background()
	svc := NewResourceService(Products, faultyBackend{err: errors.New("connection refused")}, nil)

	_, err := svc.List(ctx, nil)
	internal := requireKind(t, err, KindInternal)
	assert.Equal(t, "Internal server error", internal.Message)
	assert.NotContains(t, internal.Message, "connection refused")

	_, err = svc.Create(ctx, models.Document{"name": "Mouse", "quantity": 1.0, "price": 1.0})
	requireKind(t, err, KindInternal)

	_, err = svc.Get(ctx, models.NewID())
	requireKind(t, err, KindInternal)

	err = svc.Delete(ctx, models.NewID())
	requireKind(t, err, KindInternal)
}

func TestRecordEventsArePublished(t *testing.T) {
	ctx := context.Background()
	publisher := &recordingPublisher{}
	svc := NewResourceService(Products, newBackend(t), publisher)

	created, err := svc.Create(ctx, models.Document{"name": "Mouse", "quantity": 1.0, "price": 1.0})
	require.NoError(t, err)
	_, err = svc.Update(ctx, created.ID, models.Document{"quantity": 2.0})
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, created.ID))

	require.Len(t, publisher.events, 3)
	assert.Equal(t, models.EventTypeRecordCreated, publisher.events[0].EventType)
	assert.Equal(t, models.EventTypeRecordUpdated, publisher.events[1].EventType)
	assert.Equal(t, models.EventTypeRecordDeleted, publisher.events[2].EventType)
	for _, event := range publisher.events {
		assert.Equal(t, "products", event.Resource)
		assert.Equal(t, created.ID, event.RecordID)
		assert.NotEmpty(t, event.EventID)
	}
	assert.Contains(t, string(publisher.events[1].Record), `"quantity":2`)
	assert.Empty(t, publisher.events[2].Record)
}

func TestPublishFailureDoesNotFailRequest(t *testing.T) {
	publisher := &recordingPublisher{err: errors.New("broker down")}
	svc := NewResourceService(Products, newBackend(t), publisher)

	created, err := svc.Create(context.Background(), models.Document{"name": "Mouse", "quantity": 1.0, "price": 1.0})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Len(t, publisher.events, 1)
}

func TestMergeFieldErrors(t *testing.T) {
	typeErrs := []models.FieldError{{Field: "products.quantity", Message: "type"}}
	ruleErrs := []models.FieldError{
		{Field: "products[0].quantity", Message: "rule"},
		{Field: "customerName", Message: "required"},
	}

	merged := mergeFieldErrors(typeErrs, ruleErrs)
	assert.Equal(t, []string{"products.quantity", "customerName"}, fieldNames(merged))
	assert.Equal(t, ruleErrs, mergeFieldErrors(nil, ruleErrs))
}

func TestKindMapping(t *testing.T) {
	cases := []struct {
		kind   Kind
		status int
		code   string
	}{
		{KindValidation, 400, "VALIDATION_ERROR"},
		{KindInvalidIdentifier, 400, "INVALID_IDENTIFIER"},
		{KindNotFound, 404, "NOT_FOUND"},
		{KindDuplicateKey, 409, "DUPLICATE_KEY"},
		{KindMethodNotAllowed, 405, "METHOD_NOT_ALLOWED"},
		{KindInternal, 500, "INTERNAL_ERROR"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.status, tc.kind.Status())
		assert.Equal(t, tc.code, tc.kind.Code())
	}

	plain := errors.New("boom")
	assert.Equal(t, KindInternal, AsError(plain).Kind)
	assert.ErrorIs(t, AsError(plain), plain)
}
