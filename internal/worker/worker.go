package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"inventory-service/internal/broker"
	"inventory-service/internal/models"
	"inventory-service/internal/service"
	"inventory-service/internal/util"

	"go.uber.org/zap"
)

// StockAlertWorker raises alerts for products and items whose stock drops
// to or below their reorder level after a write
type StockAlertWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	threshold    int
	logger       *zap.Logger
}

// NewStockAlertWorker creates a new stock alert worker. threshold applies
// to products, and to items without a reorder level.
func NewStockAlertWorker(consumer *broker.Consumer, threshold int) *StockAlertWorker {
	w := &StockAlertWorker{
		consumer:     consumer,
		eventHandler: broker.NewEventHandler(),
		threshold:    threshold,
		logger:       util.GetLogger(),
	}

	w.eventHandler.OnRecordChanged(service.Items.Name, w.HandleItemChanged)
	w.eventHandler.OnRecordChanged(service.Products.Name, w.HandleProductChanged)
	return w
}

// Start starts the worker
func (w *StockAlertWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting stock alert worker")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *StockAlertWorker) Stop() error {
	w.logger.Info("Stopping stock alert worker")
	return w.consumer.Close()
}

// HandleItemChanged checks an item event against the item's reorder level
func (w *StockAlertWorker) HandleItemChanged(_ context.Context, event *models.RecordEvent) error {
	if !carriesRecord(event) {
		return nil
	}

	var item models.Item
	if err := json.Unmarshal(event.Record, &item); err != nil {
		return fmt.Errorf("failed to decode item %s: %w", event.RecordID, err)
	}

	if item.IsLowStock(w.threshold) {
		w.alert(event, item.Name, *item.Stock)
	}
	return nil
}

// HandleProductChanged checks a product event against the threshold
func (w *StockAlertWorker) HandleProductChanged(_ context.Context, event *models.RecordEvent) error {
	if !carriesRecord(event) {
		return nil
	}

	var product models.Product
	if err := json.Unmarshal(event.Record, &product); err != nil {
		return fmt.Errorf("failed to decode product %s: %w", event.RecordID, err)
	}

	if product.Quantity != nil && *product.Quantity <= w.threshold {
		w.alert(event, product.Name, *product.Quantity)
	}
	return nil
}

func (w *StockAlertWorker) alert(event *models.RecordEvent, name string, stock int) {
	util.LowStockAlertsTotal.WithLabelValues(event.Resource).Inc()
	w.logger.Warn("Low stock",
		zap.String("resource", event.Resource),
		zap.String("id", event.RecordID),
		zap.String("name", name),
		zap.Int("stock", stock))
}

func carriesRecord(event *models.RecordEvent) bool {
	return event.EventType != models.EventTypeRecordDeleted && len(event.Record) > 0
}
