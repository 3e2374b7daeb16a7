package service

import (
	"strings"

	"inventory-service/internal/models"
)

// Resource describes one record collection exposed through ResourceService
type Resource[T any] struct {
	// Name is the collection segment of the resource path, e.g. "products".
	Name string
	// Label names a single record in messages, e.g. "Product".
	Label      string
	Collection string
	UniqueKeys []string
	// Filters lists the top-level fields List accepts as equality filters.
	Filters []string

	Validate  func(id string, rec *T) []models.FieldError
	Normalize func(rec *T)
	// Less orders List results. Store order is kept when nil.
	Less func(a, b *T) bool
}

var Products = Resource[models.Product]{
	Name:       "products",
	Label:      "Product",
	Collection: "products",
	Filters:    []string{"category"},
	Validate: func(_ string, p *models.Product) []models.FieldError {
		return models.ValidateProduct(p)
	},
}

var Items = Resource[models.Item]{
	Name:       "items",
	Label:      "Item",
	Collection: "items",
	Filters:    []string{"category", "supplier", "status", "location"},
	Validate: func(_ string, i *models.Item) []models.FieldError {
		return models.ValidateItem(i)
	},
}

var Categories = Resource[models.Category]{
	Name:       "categories",
	Label:      "Category",
	Collection: "categories",
	UniqueKeys: []string{"name"},
	Filters:    []string{"parentCategory"},
	Validate:   models.ValidateCategory,
}

var Suppliers = Resource[models.Supplier]{
	Name:       "suppliers",
	Label:      "Supplier",
	Collection: "suppliers",
	Validate: func(_ string, s *models.Supplier) []models.FieldError {
		return models.ValidateSupplier(s)
	},
	Normalize: normalizeSupplier,
}

var Orders = Resource[models.Order]{
	Name:       "orders",
	Label:      "Order",
	Collection: "orders",
	UniqueKeys: []string{"orderNumber"},
	Filters:    []string{"status", "customerName"},
	Validate: func(_ string, o *models.Order) []models.FieldError {
		return models.ValidateOrder(o)
	},
	Less: func(a, b *models.Order) bool {
		return a.CreatedAt.After(b.CreatedAt)
	},
}

// UniqueIndexes maps every collection to the fields that must be unique in it
func UniqueIndexes() map[string][]string {
	return map[string][]string{
		Products.Collection:   Products.UniqueKeys,
		Items.Collection:      Items.UniqueKeys,
		Categories.Collection: Categories.UniqueKeys,
		Suppliers.Collection:  Suppliers.UniqueKeys,
		Orders.Collection:     Orders.UniqueKeys,
	}
}

func normalizeSupplier(s *models.Supplier) {
	s.Name = strings.TrimSpace(s.Name)
	s.Phone = strings.TrimSpace(s.Phone)
	s.ContactPerson = strings.TrimSpace(s.ContactPerson)
	s.Email = strings.ToLower(strings.TrimSpace(s.Email))
	s.Website = strings.TrimSpace(s.Website)
	if a := s.Address; a != nil {
		a.Street = strings.TrimSpace(a.Street)
		a.City = strings.TrimSpace(a.City)
		a.State = strings.TrimSpace(a.State)
		a.ZipCode = strings.TrimSpace(a.ZipCode)
		a.Country = strings.TrimSpace(a.Country)
	}
}
