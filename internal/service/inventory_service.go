package service

import (
	"context"
	"sort"
	"time"

	"inventory-service/internal/models"
	"inventory-service/internal/util"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// InventoryService serves the stock views built on top of products and items
type InventoryService struct {
	products          *ResourceService[models.Product]
	items             *ResourceService[models.Item]
	lowStockThreshold int
	logger            *zap.Logger
}

// NewInventoryService creates a new inventory service
func NewInventoryService(
	products *ResourceService[models.Product],
	items *ResourceService[models.Item],
	lowStockThreshold int,
) *InventoryService {
	return &InventoryService{
		products:          products,
		items:             items,
		lowStockThreshold: lowStockThreshold,
		logger:            util.GetLogger(),
	}
}

// Status returns the available quantity of every product
func (s *InventoryService) Status(ctx context.Context) ([]models.InventoryStatus, error) {
	ctx, span := util.StartSpan(ctx, "InventoryService.Status", s.products.resource.Name)
	defer span.End()

	products, err := s.products.List(ctx, nil)
	if err != nil {
		return nil, err
	}

	status := make([]models.InventoryStatus, 0, len(products))
	for _, p := range products {
		entry := models.InventoryStatus{ID: p.ID, Name: p.Name}
		if p.Quantity != nil {
			entry.AvailableQuantity = *p.Quantity
		}
		status = append(status, entry)
	}
	return status, nil
}

// Report summarizes stock and stock value over all items, per category and
// overall, and lists the items running low.
func (s *InventoryService) Report(ctx context.Context) (*models.InventoryReport, error) {
	ctx, span := util.StartSpan(ctx, "InventoryService.Report", s.items.resource.Name)
	defer span.End()

	items, err := s.items.List(ctx, nil)
	if err != nil {
		return nil, err
	}

	report := &models.InventoryReport{
		GeneratedAt:       time.Now().UTC(),
		TotalItems:        len(items),
		ByCategory:        make(map[string]*models.CategorySummary),
		LowStock:          make([]models.Item, 0),
		LowStockThreshold: s.lowStockThreshold,
	}

	total := decimal.Zero
	categoryValues := make(map[string]decimal.Decimal)
	for _, item := range items {
		stock := 0
		if item.Stock != nil {
			stock = *item.Stock
		}
		value := decimal.Zero
		if item.Price != nil {
			value = decimal.NewFromFloat(*item.Price).Mul(decimal.NewFromInt(int64(stock)))
		}

		summary, ok := report.ByCategory[item.Category]
		if !ok {
			summary = &models.CategorySummary{}
			report.ByCategory[item.Category] = summary
		}
		summary.Count++
		summary.TotalStock += stock
		categoryValues[item.Category] = categoryValues[item.Category].Add(value)

		report.TotalStock += stock
		total = total.Add(value)

		if item.IsLowStock(s.lowStockThreshold) {
			report.LowStock = append(report.LowStock, item)
		}
	}

	for category, value := range categoryValues {
		report.ByCategory[category].TotalValue = value.Round(2).InexactFloat64()
	}
	report.TotalValue = total.Round(2).InexactFloat64()

	sort.SliceStable(report.LowStock, func(i, j int) bool {
		return *report.LowStock[i].Stock < *report.LowStock[j].Stock
	})

	s.logger.Debug("Inventory report generated",
		zap.Int("items", report.TotalItems),
		zap.Int("low_stock", len(report.LowStock)))
	return report, nil
}

// Stock returns the stock level of an item
func (s *InventoryService) Stock(ctx context.Context, id string) (*models.StockLevel, error) {
	item, err := s.items.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return stockLevel(item), nil
}

// SetStock updates only the stock of an item. payload must carry "stock";
// any other field in it is ignored.
func (s *InventoryService) SetStock(ctx context.Context, id string, payload models.Document) (*models.StockLevel, error) {
	if !models.IsValidID(id) {
		return nil, InvalidIdentifier(s.items.resource.Label)
	}

	stock, ok := payload["stock"]
	if !ok || stock == nil {
		return nil, Validation("Stock update validation failed", []models.FieldError{
			{Field: "stock", Message: "stock is required"},
		})
	}

	item, err := s.items.Update(ctx, id, models.Document{"stock": stock})
	if err != nil {
		return nil, err
	}

	if item.IsLowStock(s.lowStockThreshold) {
		s.logger.Warn("Item stock is low",
			zap.String("id", item.ID),
			zap.Int("stock", *item.Stock))
	}
	return stockLevel(item), nil
}

func stockLevel(item *models.Item) *models.StockLevel {
	level := &models.StockLevel{ID: item.ID}
	if item.Stock != nil {
		level.Stock = *item.Stock
	}
	return level
}
