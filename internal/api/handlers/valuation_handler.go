package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Listd-Technologies/listd-prd/internal/api/middleware"
	"github.com/Listd-Technologies/listd-prd/internal/models"
	"github.com/Listd-Technologies/listd-prd/internal/refdata"
	"github.com/Listd-Technologies/listd-prd/internal/services"
)

// ValuationHandler handles valuation submissions.
type ValuationHandler struct {
	valuationService services.IValuationService
}

// NewValuationHandler creates a new ValuationHandler.
func NewValuationHandler(valuationService services.IValuationService) *ValuationHandler {
	return &ValuationHandler{valuationService: valuationService}
}

type valuationRequest struct {
	Category   string                 `json:"category" binding:"required"`
	Attributes models.PropertyDetails `json:"attributes" binding:"required"`
	City       string                 `json:"city"`
	Guest      *models.GuestContact   `json:"guest"`
}

// RequestValuation handles POST /v1/valuation. Authenticated callers are
// attached to the snapshot automatically; anonymous callers must supply
// the guest contact tuple. Sending both is rejected.
func (h *ValuationHandler) RequestValuation(c *gin.Context) {
	var req valuationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	valuationReq := services.ValuationRequest{
		Category:   refdata.PropertyCategory(req.Category),
		Attributes: req.Attributes,
		City:       req.City,
		Guest:      req.Guest,
	}
	if userID, ok := middleware.UserIDFromContext(c); ok {
		valuationReq.UserID = &userID
	}

	valuation, err := h.valuationService.RequestValuation(c.Request.Context(), valuationReq)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"id":       valuation.ID,
		"estimate": valuation.Estimate,
	}})
}

// ListOwnValuations handles GET /v1/me/valuations.
func (h *ValuationHandler) ListOwnValuations(c *gin.Context) {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	valuations, err := h.valuationService.ListByUser(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": valuations})
}
