package models

import (
	"encoding/json"
	"time"
)

// Event types
const (
	EventTypeRecordCreated = "RECORD_CREATED"
	EventTypeRecordUpdated = "RECORD_UPDATED"
	EventTypeRecordDeleted = "RECORD_DELETED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// RecordEvent is published after a record was created, updated or deleted.
// Record holds the stored record and is empty for deletions.
type RecordEvent struct {
	BaseEvent
	Resource string          `json:"resource"`
	RecordID string          `json:"record_id"`
	Record   json.RawMessage `json:"record,omitempty"`
}
