// internal/interfaces/http/handlers/stock.go
package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/your-org/erp-backend/internal/config"
	"github.com/your-org/erp-backend/internal/domain/ledger"
	"github.com/your-org/erp-backend/internal/interfaces/http/middleware"
	"gorm.io/gorm"
)

// StockHandler handles stock ledger endpoints
type StockHandler struct {
	ledgerService *ledger.Service
	config        *config.Config
}

// NewStockHandler creates a new stock handler
func NewStockHandler(db *gorm.DB, redisClient *redis.Client, cfg *config.Config) *StockHandler {
	return &StockHandler{
		ledgerService: ledger.NewService(db, cfg, redisClient),
		config:        cfg,
	}
}

// RecordManualStock handles POST /stock/manual
func (h *StockHandler) RecordManualStock(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "User not authenticated",
		})
		return
	}

	var req ledger.ManualStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	entry, err := h.ledgerService.RecordManualStock(&req, userID)
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
		"message": "Stock entry recorded successfully",
		"data":    entry,
	})
}

// GetLocationBalances handles GET /stock/items/:id/balances
func (h *StockHandler) GetLocationBalances(c *gin.Context) {
	itemID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid item ID",
		})
		return
	}

	balances, err := h.ledgerService.LocationBalances(h.ledgerService.DB(), uint(itemID))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to retrieve balances",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Balances retrieved successfully",
		"data":    balances,
	})
}

// GetTotalBalance handles GET /stock/items/:id/total
func (h *StockHandler) GetTotalBalance(c *gin.Context) {
	itemID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid item ID",
		})
		return
	}

	total, err := h.ledgerService.CachedTotalBalance(c.Request.Context(), uint(itemID))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to retrieve total balance",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{
			"item_id": itemID,
			"total":   total,
		},
	})
}

// GetLedgerEntries handles GET /stock/ledger
func (h *StockHandler) GetLedgerEntries(c *gin.Context) {
	itemID, err := strconv.ParseUint(c.Query("item_id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "item_id query parameter is required",
		})
		return
	}

	var locationID *uint
	if loc := c.Query("location_id"); loc != "" {
		parsed, err := strconv.ParseUint(loc, 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid location_id",
			})
			return
		}
		l := uint(parsed)
		locationID = &l
	}

	limit := 50
	if lim := c.Query("limit"); lim != "" {
		if parsed, err := strconv.Atoi(lim); err == nil && parsed > 0 && parsed <= 500 {
			limit = parsed
		}
	}

	entries, err := h.ledgerService.GetEntries(uint(itemID), locationID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to retrieve ledger entries",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Ledger entries retrieved successfully",
		"data":    entries,
	})
}

// GetManualStockSummary handles GET /stock/items/:id/manual-summary
func (h *StockHandler) GetManualStockSummary(c *gin.Context) {
	itemID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid item ID",
		})
		return
	}

	net, err := h.ledgerService.SumByType(uint(itemID), ledger.TxTypeManualStock)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to compute manual stock summary",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{
			"item_id": itemID,
			"net":     net,
		},
	})
}
