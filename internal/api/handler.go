package api

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"inventory-service/internal/models"
	"inventory-service/internal/service"
	"inventory-service/internal/store"
	"inventory-service/internal/util"

	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const (
	readyTimeout = 2 * time.Second
	apiPrefix    = "/api/v1/"
	allowStock   = "GET, PATCH"
)

// fixedRoutes lists the methods served by the routes that are not resources
var fixedRoutes = map[string]string{
	"/health":                       http.MethodGet,
	"/ready":                        http.MethodGet,
	"/metrics":                      http.MethodGet,
	apiPrefix + "inventory/status":  http.MethodGet,
	apiPrefix + "reports/inventory": http.MethodGet,
}

// Handler contains HTTP handlers
type Handler struct {
	resources   []Resource
	inventory   *service.InventoryService
	store       store.Backend
	corsOrigins []string
	logger      *zap.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(
	backend store.Backend,
	inventory *service.InventoryService,
	resources []Resource,
	corsOrigins []string,
) *Handler {
	return &Handler{
		resources:   resources,
		inventory:   inventory,
		store:       backend,
		corsOrigins: corsOrigins,
		logger:      util.GetLogger(),
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(ginzap.Ginzap(h.logger, time.RFC3339, true))
	router.Use(ginzap.RecoveryWithZap(h.logger, true))
	router.Use(h.corsMiddleware())
	router.Use(prometheusMiddleware())
	router.NoRoute(h.fallback)

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		for _, res := range h.resources {
			serve := h.serveResource(res)
			v1.Any("/"+res.Name(), serve)
			v1.Any("/"+res.Name()+"/:id", serve)
		}

		v1.GET("/inventory/status", h.inventoryStatus)
		v1.GET("/reports/inventory", h.inventoryReport)
		v1.GET("/stock/:id", h.getStock)
		v1.PATCH("/stock/:id", h.updateStock)
	}
}

func (h *Handler) corsConfig() cors.Config {
	config := cors.Config{
		AllowMethods:              []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:              []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:             []string{"Content-Length", "Allow"},
		MaxAge:                    12 * time.Hour,
		OptionsResponseStatusCode: http.StatusOK,
	}
	if h.allowAllOrigins() {
		config.AllowAllOrigins = true
	} else {
		config.AllowOrigins = h.corsOrigins
	}
	return config
}

func (h *Handler) allowAllOrigins() bool {
	return len(h.corsOrigins) == 0 || (len(h.corsOrigins) == 1 && h.corsOrigins[0] == "*")
}

func (h *Handler) originAllowed(origin string) bool {
	if origin == "" || h.allowAllOrigins() {
		return true
	}
	for _, allowed := range h.corsOrigins {
		if allowed == "*" || strings.EqualFold(strings.TrimSpace(allowed), origin) {
			return true
		}
	}
	return false
}

// corsMiddleware applies the CORS policy. OPTIONS requests always end with
// an empty 200; CORS headers are added only for allowed origins.
func (h *Handler) corsMiddleware() gin.HandlerFunc {
	applyCORS := cors.New(h.corsConfig())
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodOptions {
			applyCORS(c)
			return
		}
		if h.originAllowed(c.GetHeader("Origin")) {
			applyCORS(c)
		}
		if !c.IsAborted() {
			c.AbortWithStatus(http.StatusOK)
		}
	}
}

// serveResource adapts a gin request to Dispatch
func (h *Handler) serveResource(res Resource) gin.HandlerFunc {
	return func(c *gin.Context) {
		h.dispatch(c, res, c.Param("id"))
	}
}

func (h *Handler) dispatch(c *gin.Context, res Resource, id string) {
	var body []byte
	if c.Request.Body != nil {
		var err error
		body, err = io.ReadAll(c.Request.Body)
		if err != nil {
			h.writeError(c, service.Validation("Failed to read request body", nil))
			return
		}
	}

	resp := Dispatch(c.Request.Context(), res, Request{
		Method: c.Request.Method,
		ID:     id,
		Query:  c.Request.URL.Query(),
		Body:   body,
	})

	if resp.Status == http.StatusInternalServerError {
		h.logger.Error("Request failed",
			zap.String("method", c.Request.Method),
			zap.String("resource", res.Name()),
			zap.String("id", id))
	}
	writeResponse(c, resp)
}

// fallback serves requests that no route matched. Known paths requested
// with a method they do not serve get a 405 with their Allow header.
func (h *Handler) fallback(c *gin.Context) {
	path := c.Request.URL.Path
	if allow, ok := fixedRoutes[path]; ok {
		writeResponse(c, methodNotAllowed(c.Request.Method, allow))
		return
	}

	if rest, ok := strings.CutPrefix(path, apiPrefix); ok {
		name, id, hasID := strings.Cut(rest, "/")
		if hasID && strings.Contains(id, "/") {
			h.notFound(c)
			return
		}
		if name == "stock" && hasID && id != "" {
			writeResponse(c, methodNotAllowed(c.Request.Method, allowStock))
			return
		}
		for _, res := range h.resources {
			if res.Name() != name {
				continue
			}
			if hasID && id == "" {
				break
			}
			h.dispatch(c, res, id)
			return
		}
	}
	h.notFound(c)
}

func (h *Handler) notFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, ErrorResponse{
		Message: "Route not found",
		Code:    service.KindNotFound.Code(),
	})
}

func writeResponse(c *gin.Context, resp Response) {
	for key, values := range resp.Header {
		for _, v := range values {
			c.Writer.Header().Add(key, v)
		}
	}
	if resp.Body == nil {
		c.Status(resp.Status)
		return
	}
	c.JSON(resp.Status, resp.Body)
}

func (h *Handler) writeError(c *gin.Context, err error) {
	resp := errorResponse(err)
	if resp.Status == http.StatusInternalServerError {
		h.logger.Error("Request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Error(err))
	}
	writeResponse(c, resp)
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck reports ready once the document store answers
func (h *Handler) readinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), readyTimeout)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		h.logger.Warn("Readiness check failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"time":   time.Now().Unix(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// inventoryStatus lists the available quantity of every product
func (h *Handler) inventoryStatus(c *gin.Context) {
	status, err := h.inventory.Status(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

// inventoryReport summarizes item stock
func (h *Handler) inventoryReport(c *gin.Context) {
	report, err := h.inventory.Report(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// getStock returns the stock level of an item
func (h *Handler) getStock(c *gin.Context) {
	level, err := h.inventory.Stock(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, level)
}

// updateStock sets the stock level of an item
func (h *Handler) updateStock(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		h.writeError(c, service.Validation("Failed to read request body", nil))
		return
	}

	var payload models.Document
	if models.IsValidID(c.Param("id")) {
		payload, err = parsePayload(body)
		if err != nil {
			h.writeError(c, err)
			return
		}
	}

	level, err := h.inventory.SetStock(c.Request.Context(), c.Param("id"), payload)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, level)
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
