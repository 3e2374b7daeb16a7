package models

import "time"

// InventoryStatus is the stock projection of a product
type InventoryStatus struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	AvailableQuantity int    `json:"availableQuantity"`
}

// StockLevel is the stock projection of an item
type StockLevel struct {
	ID    string `json:"id"`
	Stock int    `json:"stock"`
}

// CategorySummary aggregates the items of one category
type CategorySummary struct {
	Count      int     `json:"count"`
	TotalStock int     `json:"totalStock"`
	TotalValue float64 `json:"totalValue"`
}

// InventoryReport summarizes stock across all items
type InventoryReport struct {
	GeneratedAt       time.Time                   `json:"generatedAt"`
	TotalItems        int                         `json:"totalItems"`
	TotalStock        int                         `json:"totalStock"`
	TotalValue        float64                     `json:"totalValue"`
	ByCategory        map[string]*CategorySummary `json:"byCategory"`
	LowStock          []Item                      `json:"lowStock"`
	LowStockThreshold int                         `json:"lowStockThreshold"`
}
