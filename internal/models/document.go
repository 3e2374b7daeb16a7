package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
)

// Document is the store representation of a record: a JSON object keyed by
// the record's JSON field names.
type Document map[string]any

// ErrNotObject is returned when a payload is not a JSON object
var ErrNotObject = errors.New("request body must be a JSON object")

// ParseDocument parses a JSON object payload
func ParseDocument(body []byte) (Document, error) {
	if len(strings.TrimSpace(string(body))) == 0 {
		return nil, ErrNotObject
	}
	var doc Document
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	if doc == nil {
		return nil, ErrNotObject
	}
	return doc, nil
}

// ToDocument converts a record to its document form
func ToDocument(v any) (Document, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode record: %w", err)
	}
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode record: %w", err)
	}
	return doc, nil
}

// FromDocument converts a stored document back into a record
func FromDocument(doc Document, dst any) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("failed to decode document: %w", err)
	}
	return nil
}

// Decode decodes a payload into dst and reports every field whose JSON type
// does not fit the record, not only the first one. Fields that fail are left
// at their zero value in dst.
func Decode(doc Document, dst any) []FieldError {
	work := make(Document, len(doc))
	for k, v := range doc {
		work[k] = v
	}

	var errs []FieldError
	for attempts := 0; attempts <= len(doc); attempts++ {
		raw, err := json.Marshal(work)
		if err != nil {
			return append(errs, FieldError{Message: err.Error()})
		}

		// Reset dst so a retry does not keep values from a failed pass.
		reflect.ValueOf(dst).Elem().Set(reflect.Zero(reflect.TypeOf(dst).Elem()))

		err = json.Unmarshal(raw, dst)
		if err == nil {
			return errs
		}

		var typeErr *json.UnmarshalTypeError
		if !errors.As(err, &typeErr) || typeErr.Field == "" {
			return append(errs, FieldError{Message: err.Error()})
		}

		top := strings.SplitN(typeErr.Field, ".", 2)[0]
		errs = append(errs, FieldError{
			Field:   typeErr.Field,
			Message: fmt.Sprintf("%s must be of type %s", typeErr.Field, jsonKind(typeErr.Type)),
		})
		if removeKey(work, top) == 0 {
			return errs
		}
	}
	return errs
}

// removeKey deletes every key of doc that encoding/json would decode into
// the field named name, which matches keys case-insensitively.
func removeKey(doc Document, name string) int {
	removed := 0
	for k := range doc {
		if strings.EqualFold(k, name) {
			delete(doc, k)
			removed++
		}
	}
	return removed
}

func jsonKind(t reflect.Type) string {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "integer"
	case reflect.Float32, reflect.Float64:
		return "number"
	case reflect.Bool:
		return "boolean"
	case reflect.String:
		return "string"
	case reflect.Slice, reflect.Array:
		return "array"
	default:
		return "object"
	}
}

// Merge applies patch on top of base for a partial update. Nested objects
// are merged key by key, every other value replaces the base value. The
// identifier and timestamps in patch are ignored.
func Merge(base, patch Document) Document {
	out := make(Document, len(base)+len(patch))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range patch {
		switch k {
		case FieldID, FieldCreatedAt, FieldUpdatedAt:
			continue
		}
		out[k] = mergeValue(out[k], v)
	}
	return out
}

func mergeValue(base, patch any) any {
	pm, ok := patch.(map[string]any)
	if !ok {
		return patch
	}
	bm, ok := base.(map[string]any)
	if !ok {
		return pm
	}
	out := make(map[string]any, len(bm)+len(pm))
	for k, v := range bm {
		out[k] = v
	}
	for k, v := range pm {
		out[k] = mergeValue(out[k], v)
	}
	return out
}

// WithoutMeta returns a copy of doc without identifier and timestamps
func WithoutMeta(doc Document) Document {
	out := make(Document, len(doc))
	for k, v := range doc {
		switch k {
		case FieldID, FieldCreatedAt, FieldUpdatedAt:
			continue
		}
		out[k] = v
	}
	return out
}

// Clone deep-copies a document
func Clone(doc Document) Document {
	if doc == nil {
		return nil
	}
	out := make(Document, len(doc))
	for k, v := range doc {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(val))
		for k, inner := range val {
			m[k] = cloneValue(inner)
		}
		return m
	case Document:
		return Clone(val)
	case []any:
		s := make([]any, len(val))
		for i, inner := range val {
			s[i] = cloneValue(inner)
		}
		return s
	default:
		return val
	}
}
