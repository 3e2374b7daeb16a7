package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"inventory-service/internal/models"
	"inventory-service/internal/store"
	"inventory-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// EventPublisher receives a record event after every successful mutation
type EventPublisher interface {
	PublishRecordEvent(ctx context.Context, event *models.RecordEvent) error
}

// ResourceService implements list, get, create, update and delete for one
// resource on top of a document store.
type ResourceService[T any] struct {
	resource Resource[T]
	store    store.Backend
	events   EventPublisher
	logger   *zap.Logger
	now      func() time.Time
}

// NewResourceService creates a service for resource. events may be nil.
func NewResourceService[T any](resource Resource[T], backend store.Backend, events EventPublisher) *ResourceService[T] {
	return &ResourceService[T]{
		resource: resource,
		store:    backend,
		events:   events,
		logger:   util.GetLogger().With(zap.String("resource", resource.Name)),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Resource returns the descriptor the service was built with
func (s *ResourceService[T]) Resource() Resource[T] {
	return s.resource
}

// Filter keeps the query values the resource accepts as list filters
func (s *ResourceService[T]) Filter(query map[string][]string) store.Filter {
	filter := store.Filter{}
	for _, field := range s.resource.Filters {
		if values := query[field]; len(values) > 0 && values[0] != "" {
			filter[field] = values[0]
		}
	}
	return filter
}

// List returns every record matching filter
func (s *ResourceService[T]) List(ctx context.Context, filter store.Filter) ([]T, error) {
	ctx, span := util.StartSpan(ctx, "ResourceService.List", s.resource.Name)
	defer span.End()

	done := s.observe("find")
	docs, err := s.store.Find(ctx, s.resource.Collection, filter)
	done()
	if err != nil {
		return nil, s.storeFault("list", "", err)
	}

	records := make([]T, 0, len(docs))
	for _, doc := range docs {
		var rec T
		if err := models.FromDocument(doc, &rec); err != nil {
			return nil, s.storeFault("list", fmt.Sprint(doc[models.FieldID]), err)
		}
		records = append(records, rec)
	}

	if s.resource.Less != nil {
		sort.SliceStable(records, func(i, j int) bool {
			return s.resource.Less(&records[i], &records[j])
		})
	}
	return records, nil
}

// Get returns the record stored under id
func (s *ResourceService[T]) Get(ctx context.Context, id string) (*T, error) {
	ctx, span := util.StartSpan(ctx, "ResourceService.Get", s.resource.Name)
	defer span.End()

	if !models.IsValidID(id) {
		return nil, InvalidIdentifier(s.resource.Label)
	}

	doc, err := s.findByID(ctx, "get", id)
	if err != nil {
		return nil, err
	}
	return s.decode("get", doc)
}

// Create validates payload and stores it as a new record. Identifier and
// timestamps in payload are ignored and assigned by the service.
func (s *ResourceService[T]) Create(ctx context.Context, payload models.Document) (*T, error) {
	ctx, span := util.StartSpan(ctx, "ResourceService.Create", s.resource.Name)
	defer span.End()

	rec, verr := s.build("", models.WithoutMeta(payload))
	if verr != nil {
		return nil, verr
	}

	id := models.NewID()
	now := s.now()
	doc, err := models.ToDocument(rec)
	if err != nil {
		return nil, s.storeFault("create", id, err)
	}
	doc[models.FieldID] = id
	doc[models.FieldCreatedAt] = now.Format(time.RFC3339Nano)
	doc[models.FieldUpdatedAt] = now.Format(time.RFC3339Nano)

	done := s.observe("insert")
	err = s.store.Insert(ctx, s.resource.Collection, doc)
	done()
	if err != nil {
		return nil, s.writeFault("create", id, err)
	}

	util.RecordsCreatedTotal.WithLabelValues(s.resource.Name).Inc()
	s.logger.Info("Record created", zap.String("id", id))
	s.publish(ctx, models.EventTypeRecordCreated, id, doc)

	return s.decode("create", doc)
}

// Update applies patch to the record stored under id. Fields absent from
// patch keep their stored values; the merged record is validated as a whole.
func (s *ResourceService[T]) Update(ctx context.Context, id string, patch models.Document) (*T, error) {
	ctx, span := util.StartSpan(ctx, "ResourceService.Update", s.resource.Name)
	defer span.End()

	if !models.IsValidID(id) {
		return nil, InvalidIdentifier(s.resource.Label)
	}

	existing, err := s.findByID(ctx, "update", id)
	if err != nil {
		return nil, err
	}

	rec, verr := s.build(id, models.WithoutMeta(models.Merge(existing, patch)))
	if verr != nil {
		return nil, verr
	}

	doc, err := models.ToDocument(rec)
	if err != nil {
		return nil, s.storeFault("update", id, err)
	}
	doc[models.FieldID] = id
	if createdAt, ok := existing[models.FieldCreatedAt]; ok {
		doc[models.FieldCreatedAt] = createdAt
	}
	doc[models.FieldUpdatedAt] = s.now().Format(time.RFC3339Nano)

	done := s.observe("update")
	err = s.store.Update(ctx, s.resource.Collection, id, doc)
	done()
	if err != nil {
		return nil, s.writeFault("update", id, err)
	}

	util.RecordsUpdatedTotal.WithLabelValues(s.resource.Name).Inc()
	s.logger.Info("Record updated", zap.String("id", id))
	s.publish(ctx, models.EventTypeRecordUpdated, id, doc)

	return s.decode("update", doc)
}

// Delete removes the record stored under id. References held by other
// records are left untouched.
func (s *ResourceService[T]) Delete(ctx context.Context, id string) error {
	ctx, span := util.StartSpan(ctx, "ResourceService.Delete", s.resource.Name)
	defer span.End()

	if !models.IsValidID(id) {
		return InvalidIdentifier(s.resource.Label)
	}

	done := s.observe("delete")
	err := s.store.Delete(ctx, s.resource.Collection, id)
	done()
	if errors.Is(err, store.ErrNotFound) {
		return NotFound(s.resource.Label)
	}
	if err != nil {
		return s.storeFault("delete", id, err)
	}

	util.RecordsDeletedTotal.WithLabelValues(s.resource.Name).Inc()
	s.logger.Info("Record deleted", zap.String("id", id))
	s.publish(ctx, models.EventTypeRecordDeleted, id, nil)
	return nil
}

// build decodes and validates a payload, reporting type and rule failures
// together.
func (s *ResourceService[T]) build(id string, payload models.Document) (*T, *Error) {
	var rec T
	typeErrs := models.Decode(payload, &rec)
	if s.resource.Normalize != nil {
		s.resource.Normalize(&rec)
	}

	var ruleErrs []models.FieldError
	if s.resource.Validate != nil {
		ruleErrs = s.resource.Validate(id, &rec)
	}

	fields := mergeFieldErrors(typeErrs, ruleErrs)
	if len(fields) > 0 {
		util.ValidationFailuresTotal.WithLabelValues(s.resource.Name).Inc()
		return nil, Validation(fmt.Sprintf("%s validation failed", s.resource.Label), fields)
	}
	return &rec, nil
}

func (s *ResourceService[T]) findByID(ctx context.Context, op, id string) (models.Document, error) {
	done := s.observe("find_by_id")
	doc, err := s.store.FindByID(ctx, s.resource.Collection, id)
	done()
	if errors.Is(err, store.ErrNotFound) {
		return nil, NotFound(s.resource.Label)
	}
	if err != nil {
		return nil, s.storeFault(op, id, err)
	}
	return doc, nil
}

func (s *ResourceService[T]) decode(op string, doc models.Document) (*T, error) {
	var rec T
	if err := models.FromDocument(doc, &rec); err != nil {
		return nil, s.storeFault(op, fmt.Sprint(doc[models.FieldID]), err)
	}
	return &rec, nil
}

func (s *ResourceService[T]) writeFault(op, id string, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return NotFound(s.resource.Label)
	}

	var dup *store.DuplicateKeyError
	if errors.As(err, &dup) {
		util.DuplicateKeysTotal.WithLabelValues(s.resource.Name).Inc()
		s.logger.Info("Duplicate key rejected",
			zap.String("operation", op),
			zap.String("field", dup.Field))
		return DuplicateKey(s.resource.Label, dup.Field, err)
	}
	return s.storeFault(op, id, err)
}

func (s *ResourceService[T]) storeFault(op, id string, err error) *Error {
	util.StoreErrorsTotal.WithLabelValues(s.resource.Name, op).Inc()
	s.logger.Error("Store operation failed",
		zap.String("operation", op),
		zap.String("id", id),
		zap.Error(err))
	return Internal(err)
}

func (s *ResourceService[T]) observe(op string) func() {
	start := time.Now()
	return func() {
		util.StoreOperationLatency.WithLabelValues(s.resource.Name, op).Observe(time.Since(start).Seconds())
	}
}

// publish emits a record event. Failures are logged and never fail the
// request that caused them.
func (s *ResourceService[T]) publish(ctx context.Context, eventType, id string, doc models.Document) {
	if s.events == nil {
		return
	}

	event := &models.RecordEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: eventType,
			Timestamp: time.Now(),
		},
		Resource: s.resource.Name,
		RecordID: id,
	}
	if doc != nil {
		raw, err := json.Marshal(doc)
		if err != nil {
			s.logger.Error("Failed to encode record event", zap.String("id", id), zap.Error(err))
			return
		}
		event.Record = raw
	}

	if err := s.events.PublishRecordEvent(ctx, event); err != nil {
		util.EventsPublishFailedTotal.WithLabelValues(eventType).Inc()
		s.logger.Error("Failed to publish record event",
			zap.String("event_type", eventType),
			zap.String("id", id),
			zap.Error(err))
		return
	}
	util.EventsPublishedTotal.WithLabelValues(eventType).Inc()
}

// mergeFieldErrors combines type and rule failures. A field that already
// failed its type check is not reported again by the rules, which only see
// its zero value.
func mergeFieldErrors(typeErrs, ruleErrs []models.FieldError) []models.FieldError {
	if len(typeErrs) == 0 {
		return ruleErrs
	}

	failed := make(map[string]bool, len(typeErrs))
	for _, fe := range typeErrs {
		failed[rootField(fe.Field)] = true
	}

	out := append([]models.FieldError(nil), typeErrs...)
	for _, fe := range ruleErrs {
		if !failed[rootField(fe.Field)] {
			out = append(out, fe)
		}
	}
	return out
}

func rootField(path string) string {
	if i := strings.IndexAny(path, ".["); i >= 0 {
		return path[:i]
	}
	return path
}

// EnsureIndexes creates the unique indexes of every resource on backend
func EnsureIndexes(ctx context.Context, backend store.Backend) error {
	for collection, fields := range UniqueIndexes() {
		if len(fields) == 0 {
			continue
		}
		if err := backend.EnsureIndexes(ctx, collection, fields); err != nil {
			return fmt.Errorf("failed to ensure indexes for %s: %w", collection, err)
		}
	}
	return nil
}
