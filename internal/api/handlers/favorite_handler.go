package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/Listd-Technologies/listd-prd/internal/api/middleware"
	"github.com/Listd-Technologies/listd-prd/internal/services"
)

// FavoriteHandler handles favorite endpoints.
type FavoriteHandler struct {
	favoriteService services.IFavoriteService
}

// NewFavoriteHandler creates a new FavoriteHandler.
func NewFavoriteHandler(favoriteService services.IFavoriteService) *FavoriteHandler {
	return &FavoriteHandler{favoriteService: favoriteService}
}

func favoriteParams(c *gin.Context) (primitive.ObjectID, primitive.ObjectID, bool) {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return primitive.NilObjectID, primitive.NilObjectID, false
	}
	listingID, err := primitive.ObjectIDFromHex(c.Param("listing_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid listing ID format"})
		return primitive.NilObjectID, primitive.NilObjectID, false
	}
	return userID, listingID, true
}

// AddFavorite handles PUT /v1/me/favorite/:listing_id.
func (h *FavoriteHandler) AddFavorite(c *gin.Context) {
	userID, listingID, ok := favoriteParams(c)
	if !ok {
		return
	}
	if err := h.favoriteService.AddFavorite(c.Request.Context(), userID, listingID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"favorited": true}})
}

// RemoveFavorite handles DELETE /v1/me/favorite/:listing_id.
func (h *FavoriteHandler) RemoveFavorite(c *gin.Context) {
	userID, listingID, ok := favoriteParams(c)
	if !ok {
		return
	}
	if err := h.favoriteService.RemoveFavorite(c.Request.Context(), userID, listingID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListFavorites handles GET /v1/me/favorite.
func (h *FavoriteHandler) ListFavorites(c *gin.Context) {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}
	listings, err := h.favoriteService.ListFavorites(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": listings})
}
