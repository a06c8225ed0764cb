// internal/interfaces/http/handlers/transformations.go
package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/your-org/erp-backend/internal/config"
	"github.com/your-org/erp-backend/internal/domain/ledger"
	"github.com/your-org/erp-backend/internal/domain/transformation"
	"github.com/your-org/erp-backend/internal/interfaces/http/middleware"
	"gorm.io/gorm"
)

// TransformationHandler handles bundle, repack and rolls production endpoints
type TransformationHandler struct {
	service *transformation.Service
	config  *config.Config
}

// NewTransformationHandler creates a new transformation handler
func NewTransformationHandler(db *gorm.DB, redisClient *redis.Client, cfg *config.Config) *TransformationHandler {
	ledgerService := ledger.NewService(db, cfg, redisClient)
	return &TransformationHandler{
		service: transformation.NewService(db, cfg, ledgerService),
		config:  cfg,
	}
}

// respondTransformationError maps service errors to HTTP status codes
func respondTransformationError(c *gin.Context, err error) {
	var stockErr *ledger.InsufficientStockError
	if errors.As(err, &stockErr) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error": stockErr.Error(),
		})
		return
	}

	var stateErr *transformation.InvalidStateError
	if errors.As(err, &stateErr) {
		c.JSON(http.StatusConflict, gin.H{
			"error": stateErr.Error(),
		})
		return
	}

	if errors.Is(err, transformation.ErrBundleNotFound) ||
		errors.Is(err, transformation.ErrRepackNotFound) ||
		errors.Is(err, transformation.ErrBatchNotFound) {
		c.JSON(http.StatusNotFound, gin.H{
			"error": err.Error(),
		})
		return
	}

	c.JSON(http.StatusBadRequest, gin.H{
		"error": err.Error(),
	})
}

// BUNDLE ENDPOINTS

// CreateBundle handles POST /bundles
func (h *TransformationHandler) CreateBundle(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "User not authenticated",
		})
		return
	}

	var req transformation.CreateBundleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	bundle, err := h.service.CreateBundle(&req, userID)
	if err != nil {
		respondTransformationError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Bundle created successfully",
		"data":    bundle,
	})
}

// GetBundles handles GET /bundles
func (h *TransformationHandler) GetBundles(c *gin.Context) {
	limit := parseLimit(c, 50)

	bundles, err := h.service.GetBundles(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to retrieve bundles",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Bundles retrieved successfully",
		"data":    bundles,
	})
}

// GetBundle handles GET /bundles/:id
func (h *TransformationHandler) GetBundle(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid bundle ID",
		})
		return
	}

	bundle, err := h.service.GetBundle(uint(id))
	if err != nil {
		respondTransformationError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": bundle,
	})
}

// DeleteBundle handles DELETE /bundles/:id
func (h *TransformationHandler) DeleteBundle(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid bundle ID",
		})
		return
	}

	if err := h.service.DeleteBundle(uint(id)); err != nil {
		respondTransformationError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Bundle deleted successfully",
	})
}

// REPACK ENDPOINTS

// CreateRepack handles POST /repacks
func (h *TransformationHandler) CreateRepack(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "User not authenticated",
		})
		return
	}

	var req transformation.CreateRepackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	repack, err := h.service.CreateRepack(&req, userID)
	if err != nil {
		respondTransformationError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Repack created successfully",
		"data":    repack,
	})
}

// GetRepacks handles GET /repacks
func (h *TransformationHandler) GetRepacks(c *gin.Context) {
	limit := parseLimit(c, 50)

	repacks, err := h.service.GetRepacks(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to retrieve repacks",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Repacks retrieved successfully",
		"data":    repacks,
	})
}

// GetRepack handles GET /repacks/:id
func (h *TransformationHandler) GetRepack(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid repack ID",
		})
		return
	}

	repack, err := h.service.GetRepack(uint(id))
	if err != nil {
		respondTransformationError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": repack,
	})
}

// DeleteRepack handles DELETE /repacks/:id
func (h *TransformationHandler) DeleteRepack(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid repack ID",
		})
		return
	}

	if err := h.service.DeleteRepack(uint(id)); err != nil {
		respondTransformationError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Repack deleted successfully",
	})
}

// ROLLS PRODUCTION ENDPOINTS

// CreateRollsBatch handles POST /rolls
func (h *TransformationHandler) CreateRollsBatch(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "User not authenticated",
		})
		return
	}

	var req transformation.CreateRollsBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	batch, err := h.service.CreateRollsBatch(&req, userID)
	if err != nil {
		respondTransformationError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Rolls batch created successfully",
		"data":    batch,
	})
}

// GetRollsBatches handles GET /rolls
func (h *TransformationHandler) GetRollsBatches(c *gin.Context) {
	limit := parseLimit(c, 50)
	status := transformation.RollsStatus(c.Query("status"))

	batches, err := h.service.GetRollsBatches(status, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to retrieve rolls batches",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Rolls batches retrieved successfully",
		"data":    batches,
	})
}

// GetRollsBatch handles GET /rolls/:id
func (h *TransformationHandler) GetRollsBatch(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid rolls batch ID",
		})
		return
	}

	batch, err := h.service.GetRollsBatch(uint(id))
	if err != nil {
		respondTransformationError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": batch,
	})
}

// StartRollsBatch handles POST /rolls/:id/start
func (h *TransformationHandler) StartRollsBatch(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid rolls batch ID",
		})
		return
	}

	batch, err := h.service.StartRollsBatch(uint(id))
	if err != nil {
		respondTransformationError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Rolls batch started successfully",
		"data":    batch,
	})
}

// CompleteRollsBatch handles POST /rolls/:id/complete
func (h *TransformationHandler) CompleteRollsBatch(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid rolls batch ID",
		})
		return
	}

	var req struct {
		ProducedQuantity decimal.Decimal `json:"produced_quantity" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	batch, err := h.service.CompleteRollsBatch(uint(id), req.ProducedQuantity)
	if err != nil {
		respondTransformationError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Rolls batch completed successfully",
		"data":    batch,
	})
}

// DeleteRollsBatch handles DELETE /rolls/:id
func (h *TransformationHandler) DeleteRollsBatch(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid rolls batch ID",
		})
		return
	}

	if err := h.service.DeleteRollsBatch(uint(id)); err != nil {
		respondTransformationError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Rolls batch deleted successfully",
	})
}

// parseLimit reads a bounded limit query parameter
func parseLimit(c *gin.Context, fallback int) int {
	if lim := c.Query("limit"); lim != "" {
		if parsed, err := strconv.Atoi(lim); err == nil && parsed > 0 && parsed <= 500 {
			return parsed
		}
	}
	return fallback
}
