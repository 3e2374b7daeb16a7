package models

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// FieldError describes one rejected field of a record payload
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		_ = validate.RegisterValidation("objectid", func(fl validator.FieldLevel) bool {
			return IsValidID(fl.Field().String())
		})
	})
	return validate
}

// NewID generates a new record identifier
func NewID() string {
	return primitive.NewObjectID().Hex()
}

// IsValidID reports whether id is a well-formed record identifier
func IsValidID(id string) bool {
	return primitive.IsValidObjectID(id)
}

func ValidateProduct(p *Product) []FieldError {
	return validateStruct(p)
}

func ValidateItem(i *Item) []FieldError {
	return validateStruct(i)
}

// ValidateCategory validates c; id is the category's own identifier and is
// empty on create.
func ValidateCategory(id string, c *Category) []FieldError {
	errs := validateStruct(c)
	if id != "" && c.ParentCategory == id {
		errs = append(errs, FieldError{Field: "parentCategory", Message: "parentCategory cannot reference the category itself"})
	}
	return errs
}

func ValidateSupplier(s *Supplier) []FieldError {
	return validateStruct(s)
}

func ValidateOrder(o *Order) []FieldError {
	return validateStruct(o)
}

func validateStruct(v any) []FieldError {
	err := getValidator().Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []FieldError{{Message: err.Error()}}
	}

	out := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		field := fieldPath(fe.Namespace())
		out = append(out, FieldError{Field: field, Message: fieldMessage(field, fe)})
	}
	return out
}

// fieldPath strips the struct name from a validator namespace:
// "Order.products[0].productId" becomes "products[0].productId".
func fieldPath(namespace string) string {
	if i := strings.IndexByte(namespace, '.'); i >= 0 {
		return namespace[i+1:]
	}
	return namespace
}

func fieldMessage(field string, fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, fe.Param())
	case "min":
		return fmt.Sprintf("%s must contain at least %s entry", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "email":
		return fmt.Sprintf("%s must be a valid email address", field)
	case "url":
		return fmt.Sprintf("%s must be a valid URL", field)
	case "objectid":
		return fmt.Sprintf("%s must be a valid identifier", field)
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
