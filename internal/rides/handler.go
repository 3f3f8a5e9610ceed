package rides

import (
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/taxidata/platform/pkg/common"
	"github.com/taxidata/platform/pkg/pagination"
)

const responseCacheControl = "max-age=600"

// Handler handles HTTP requests for ride queries
type Handler struct {
	service *Service
}

// NewHandler creates a new ride handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// GetRides returns rides filtered by price range
// GET /api/v1/rides?min_price=10&max_price=20&page=0&size=20
func (h *Handler) GetRides(c *gin.Context) {
	minPrice := 0.0
	if minStr := c.Query("min_price"); minStr != "" {
		parsed, err := strconv.ParseFloat(minStr, 64)
		if err != nil || parsed < 0 {
			common.ErrorResponse(c, http.StatusBadRequest, "minimum price must be a non-negative number")
			return
		}
		minPrice = parsed
	}

	maxPrice := math.Inf(1)
	if maxStr := c.Query("max_price"); maxStr != "" {
		parsed, err := strconv.ParseFloat(maxStr, 64)
		if err != nil || parsed < 0 {
			common.ErrorResponse(c, http.StatusBadRequest, "maximum price must be a non-negative number")
			return
		}
		maxPrice = parsed
	}

	if minPrice > maxPrice {
		common.ErrorResponse(c, http.StatusBadRequest, "minimum price cannot exceed maximum price")
		return
	}

	spec := pagination.ParseParams(c)

	page, err := h.service.FindByPriceRange(c.Request.Context(), minPrice, maxPrice, spec)
	if err != nil {
		common.ErrorResponse(c, http.StatusInternalServerError, "failed to search rides")
		return
	}

	c.Header("Cache-Control", responseCacheControl)
	common.SuccessResponse(c, page)
}

// GetRideByID returns a single ride
// GET /api/v1/rides/:id
func (h *Handler) GetRideByID(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		common.ErrorResponse(c, http.StatusBadRequest, "id must be a positive integer")
		return
	}

	ride, err := h.service.FindByID(c.Request.Context(), id)
	if err != nil {
		if appErr, ok := err.(*common.AppError); ok {
			common.AppErrorResponse(c, appErr)
			return
		}
		common.ErrorResponse(c, http.StatusInternalServerError, "failed to get ride")
		return
	}

	c.Header("Cache-Control", responseCacheControl)
	common.SuccessResponse(c, ride)
}

// GetCacheStatus reports whether the cache round trip works
// GET /api/v1/rides/cache/status
func (h *Handler) GetCacheStatus(c *gin.Context) {
	if h.service.CacheStatus(c.Request.Context()) {
		common.SuccessResponse(c, gin.H{"cache": "available"})
		return
	}
	common.SuccessResponse(c, gin.H{"cache": "unavailable"})
}
