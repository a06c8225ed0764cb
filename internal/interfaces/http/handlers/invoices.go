// internal/interfaces/http/handlers/invoices.go
package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/your-org/erp-backend/internal/config"
	"github.com/your-org/erp-backend/internal/domain/invoice"
	"github.com/your-org/erp-backend/internal/domain/ledger"
	"github.com/your-org/erp-backend/internal/interfaces/http/middleware"
	"gorm.io/gorm"
)

// InvoiceHandler handles sales invoice endpoints
type InvoiceHandler struct {
	invoiceService *invoice.Service
	config         *config.Config
}

// NewInvoiceHandler creates a new invoice handler
func NewInvoiceHandler(db *gorm.DB, redisClient *redis.Client, cfg *config.Config) *InvoiceHandler {
	ledgerService := ledger.NewService(db, cfg, redisClient)
	return &InvoiceHandler{
		invoiceService: invoice.NewService(db, cfg, ledgerService),
		config:         cfg,
	}
}

// CreateInvoice handles POST /invoices
func (h *InvoiceHandler) CreateInvoice(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "User not authenticated",
		})
		return
	}

	var req invoice.CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	created, err := h.invoiceService.CreateInvoice(&req, userID)
	if err != nil {
		var stockErr *ledger.InsufficientStockError
		if errors.As(err, &stockErr) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"error": stockErr.Error(),
			})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Invoice created successfully",
		"data":    created,
	})
}

// GetInvoices handles GET /invoices
func (h *InvoiceHandler) GetInvoices(c *gin.Context) {
	limit := parseLimit(c, 50)

	invoices, err := h.invoiceService.GetInvoices(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to retrieve invoices",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Invoices retrieved successfully",
		"data":    invoices,
	})
}

// GetInvoice handles GET /invoices/:id
func (h *InvoiceHandler) GetInvoice(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid invoice ID",
		})
		return
	}

	found, err := h.invoiceService.GetInvoice(uint(id))
	if err != nil {
		if errors.Is(err, invoice.ErrInvoiceNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": err.Error(),
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to retrieve invoice",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": found,
	})
}

// DeleteInvoice handles DELETE /invoices/:id
func (h *InvoiceHandler) DeleteInvoice(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid invoice ID",
		})
		return
	}

	if err := h.invoiceService.DeleteInvoice(uint(id)); err != nil {
		if errors.Is(err, invoice.ErrInvoiceNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": err.Error(),
			})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Invoice deleted successfully",
	})
}
