package worker

import (
	"context"
	"encoding/json"
	"testing"

	"inventory-service/internal/models"
	"inventory-service/internal/util"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recordMessage(t *testing.T, eventType, resource, record string) kafka.Message {
	t.Helper()
	event := models.RecordEvent{
		BaseEvent: models.BaseEvent{EventID: "evt", EventType: eventType},
		Resource:  resource,
		RecordID:  "65a1b2c3d4e5f6a7b8c9d0e1",
	}
	if record != "" {
		event.Record = json.RawMessage(record)
	}
	value, err := json.Marshal(event)
	require.NoError(t, err)
	return kafka.Message{Value: value}
}

func alerts(resource string) float64 {
	return testutil.ToFloat64(util.LowStockAlertsTotal.WithLabelValues(resource))
}

func TestStockAlertWorkerItems(t *testing.T) {
	w := NewStockAlertWorker(nil, 5)
	ctx := context.Background()
	before := alerts("items")

	cases := []struct {
		eventType string
		record    string
		alerted   bool
	}{
		{models.EventTypeRecordCreated, `{"name":"Hammer","stock":3}`, true},
		{models.EventTypeRecordUpdated, `{"name":"Hammer","stock":9}`, false},
		{models.EventTypeRecordUpdated, `{"name":"Brush","stock":9,"reorderLevel":10}`, true},
		{models.EventTypeRecordDeleted, "", false},
	}

	expected := before
	for _, tc := range cases {
		require.NoError(t, w.eventHandler.HandleMessage(ctx, recordMessage(t, tc.eventType, "items", tc.record)))
		if tc.alerted {
			expected++
		}
		assert.Equal(t, expected, alerts("items"), tc.record)
	}
}

func TestStockAlertWorkerProducts(t *testing.T) {
	w := NewStockAlertWorker(nil, 5)
	ctx := context.Background()
	before := alerts("products")

	require.NoError(t, w.eventHandler.HandleMessage(ctx, recordMessage(t, models.EventTypeRecordUpdated, "products", `{"name":"Mouse","quantity":5}`)))
	require.NoError(t, w.eventHandler.HandleMessage(ctx, recordMessage(t, models.EventTypeRecordUpdated, "products", `{"name":"Mouse","quantity":50}`)))
	assert.Equal(t, before+1, alerts("products"))
}

func TestStockAlertWorkerRejectsMalformedRecord(t *testing.T) {
	w := NewStockAlertWorker(nil, 5)

	err := w.HandleItemChanged(context.Background(), &models.RecordEvent{
		BaseEvent: models.BaseEvent{EventType: models.EventTypeRecordCreated},
		Resource:  "items",
		RecordID:  "x",
		Record:    json.RawMessage(`{"stock":"lots"}`),
	})
	assert.Error(t, err)
}
