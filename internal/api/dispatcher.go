package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"inventory-service/internal/models"
	"inventory-service/internal/service"
)

const (
	allowCollection = "GET, POST"
	allowRecord     = "GET, PUT, PATCH, DELETE"
)

// Request is a resource request independent of the HTTP framework serving
// it. ID is empty for the collection route.
type Request struct {
	Method string
	ID     string
	Query  url.Values
	Body   []byte
}

// Response is the outcome of a dispatched request. A nil Body is sent as an
// empty response.
type Response struct {
	Status int
	Header http.Header
	Body   any
}

// ErrorResponse is the JSON body of every failed request
type ErrorResponse struct {
	Message string              `json:"message"`
	Code    string              `json:"code"`
	Errors  []models.FieldError `json:"errors,omitempty"`
}

// MessageResponse confirms an operation without returning a record
type MessageResponse struct {
	Message string `json:"message"`
}

// Resource is the type-erased view of a service.ResourceService
type Resource interface {
	Name() string
	Label() string
	List(ctx context.Context, query url.Values) (any, error)
	Get(ctx context.Context, id string) (any, error)
	Create(ctx context.Context, payload models.Document) (any, error)
	Update(ctx context.Context, id string, patch models.Document) (any, error)
	Delete(ctx context.Context, id string) error
}

type boundResource[T any] struct {
	svc *service.ResourceService[T]
}

// Bind adapts a typed resource service to Resource
func Bind[T any](svc *service.ResourceService[T]) Resource {
	return boundResource[T]{svc: svc}
}

func (b boundResource[T]) Name() string  { return b.svc.Resource().Name }
func (b boundResource[T]) Label() string { return b.svc.Resource().Label }

func (b boundResource[T]) List(ctx context.Context, query url.Values) (any, error) {
	return b.svc.List(ctx, b.svc.Filter(query))
}

func (b boundResource[T]) Get(ctx context.Context, id string) (any, error) {
	return b.svc.Get(ctx, id)
}

func (b boundResource[T]) Create(ctx context.Context, payload models.Document) (any, error) {
	return b.svc.Create(ctx, payload)
}

func (b boundResource[T]) Update(ctx context.Context, id string, patch models.Document) (any, error) {
	return b.svc.Update(ctx, id, patch)
}

func (b boundResource[T]) Delete(ctx context.Context, id string) error {
	return b.svc.Delete(ctx, id)
}

// Dispatch runs exactly one operation of res for req and maps the outcome
// to a response. Preflight requests succeed before anything else is
// checked, then the method, then the identifier.
func Dispatch(ctx context.Context, res Resource, req Request) Response {
	if req.Method == http.MethodOptions {
		return Response{Status: http.StatusOK}
	}

	if req.ID == "" {
		switch req.Method {
		case http.MethodGet:
			return respond(res.List(ctx, req.Query))
		case http.MethodPost:
			payload, err := parsePayload(req.Body)
			if err != nil {
				return errorResponse(err)
			}
			created, err := res.Create(ctx, payload)
			if err != nil {
				return errorResponse(err)
			}
			return Response{Status: http.StatusCreated, Body: created}
		default:
			return methodNotAllowed(req.Method, allowCollection)
		}
	}

	switch req.Method {
	case http.MethodGet:
		return respond(res.Get(ctx, req.ID))
	case http.MethodPut, http.MethodPatch:
		if !models.IsValidID(req.ID) {
			return errorResponse(service.InvalidIdentifier(res.Label()))
		}
		patch, err := parsePayload(req.Body)
		if err != nil {
			return errorResponse(err)
		}
		return respond(res.Update(ctx, req.ID, patch))
	case http.MethodDelete:
		if err := res.Delete(ctx, req.ID); err != nil {
			return errorResponse(err)
		}
		return Response{
			Status: http.StatusOK,
			Body:   MessageResponse{Message: fmt.Sprintf("%s deleted successfully", res.Label())},
		}
	default:
		return methodNotAllowed(req.Method, allowRecord)
	}
}

func respond(body any, err error) Response {
	if err != nil {
		return errorResponse(err)
	}
	return Response{Status: http.StatusOK, Body: body}
}

func methodNotAllowed(method, allow string) Response {
	resp := errorResponse(service.MethodNotAllowed(method))
	resp.Header = http.Header{"Allow": []string{allow}}
	return resp
}

func errorResponse(err error) Response {
	svcErr := service.AsError(err)
	return Response{
		Status: svcErr.Kind.Status(),
		Body: ErrorResponse{
			Message: svcErr.Message,
			Code:    svcErr.Kind.Code(),
			Errors:  svcErr.Fields,
		},
	}
}

// parsePayload parses a JSON object body, rejecting empty bodies and any
// other JSON value.
func parsePayload(body []byte) (models.Document, error) {
	doc, err := models.ParseDocument(body)
	if errors.Is(err, models.ErrNotObject) {
		return nil, service.Validation("Request body must be a JSON object", nil)
	}
	if err != nil {
		return nil, service.Validation("Request body is not valid JSON", nil)
	}
	return doc, nil
}
