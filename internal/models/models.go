package models

import "time"

// Product is a sellable catalogue entry with an on-hand quantity
type Product struct {
	ID          string    `json:"_id"`
	Name        string    `json:"name" validate:"required"`
	Quantity    *int      `json:"quantity" validate:"required,gte=0"`
	Price       *float64  `json:"price" validate:"required,gte=0"`
	Description string    `json:"description,omitempty"`
	Category    string    `json:"category,omitempty"`
	Stock       *int      `json:"stock,omitempty" validate:"omitempty,gte=0"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Item is a stocked inventory unit supplied by a Supplier
type Item struct {
	ID           string    `json:"_id"`
	Name         string    `json:"name" validate:"required"`
	Category     string    `json:"category" validate:"required,objectid"`
	Supplier     string    `json:"supplier" validate:"required,objectid"`
	Stock        *int      `json:"stock" validate:"required,gte=0"`
	Description  string    `json:"description,omitempty"`
	Price        *float64  `json:"price,omitempty" validate:"omitempty,gte=0"`
	SKU          string    `json:"sku,omitempty"`
	ReorderLevel *int      `json:"reorderLevel,omitempty" validate:"omitempty,gte=0"`
	Location     string    `json:"location,omitempty"`
	Status       string    `json:"status,omitempty" validate:"omitempty,oneof=active inactive discontinued"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type Category struct {
	ID             string    `json:"_id"`
	Name           string    `json:"name" validate:"required"`
	Description    string    `json:"description,omitempty"`
	ParentCategory string    `json:"parentCategory,omitempty" validate:"omitempty,objectid"`
	IsActive       *bool     `json:"isActive,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

type Supplier struct {
	ID            string    `json:"_id"`
	Name          string    `json:"name" validate:"required"`
	Phone         string    `json:"phone" validate:"required"`
	ContactPerson string    `json:"contactPerson,omitempty"`
	Email         string    `json:"email,omitempty" validate:"omitempty,email"`
	Address       *Address  `json:"address,omitempty"`
	Website       string    `json:"website,omitempty" validate:"omitempty,url"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Address is the postal address of a supplier
type Address struct {
	Street  string `json:"street,omitempty"`
	City    string `json:"city,omitempty"`
	State   string `json:"state,omitempty"`
	ZipCode string `json:"zipCode,omitempty"`
	Country string `json:"country,omitempty"`
}

// Order is a customer order over one or more products
type Order struct {
	ID            string      `json:"_id"`
	OrderNumber   string      `json:"orderNumber" validate:"required"`
	Products      []OrderLine `json:"products" validate:"required,min=1,dive"`
	TotalAmount   *float64    `json:"totalAmount" validate:"required,gte=0"`
	CustomerName  string      `json:"customerName" validate:"required"`
	Status        string      `json:"status,omitempty" validate:"omitempty,oneof=pending processing completed cancelled"`
	CustomerEmail string      `json:"customerEmail,omitempty" validate:"omitempty,email"`
	CreatedAt     time.Time   `json:"createdAt"`
	UpdatedAt     time.Time   `json:"updatedAt"`
}

// OrderLine is one product entry of an order
type OrderLine struct {
	ProductID string   `json:"productId" validate:"required,objectid"`
	Quantity  int      `json:"quantity" validate:"gte=1"`
	Price     *float64 `json:"price" validate:"required,gte=0"`
}

// Order statuses
const (
	OrderStatusPending    = "pending"
	OrderStatusProcessing = "processing"
	OrderStatusCompleted  = "completed"
	OrderStatusCancelled  = "cancelled"
)

// Document field names shared by every record
const (
	FieldID        = "_id"
	FieldCreatedAt = "createdAt"
	FieldUpdatedAt = "updatedAt"
)

// IsLowStock reports whether the item is at or below its reorder level, or
// at or below threshold when it has none.
func (i *Item) IsLowStock(threshold int) bool {
	if i.Stock == nil {
		return false
	}
	limit := threshold
	if i.ReorderLevel != nil {
		limit = *i.ReorderLevel
	}
	return *i.Stock <= limit
}
