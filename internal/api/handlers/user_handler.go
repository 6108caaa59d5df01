package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/Listd-Technologies/listd-prd/internal/api/middleware"
	"github.com/Listd-Technologies/listd-prd/internal/models"
	"github.com/Listd-Technologies/listd-prd/internal/services"
	"github.com/Listd-Technologies/listd-prd/internal/storage"
)

// UserHandler handles profile and account endpoints.
type UserHandler struct {
	userService     services.IUserService
	activityService services.IActivityService
	paymentService  services.IPaymentService
	storageService  storage.IObjectStorage
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(userService services.IUserService, activityService services.IActivityService, paymentService services.IPaymentService, storageService storage.IObjectStorage) *UserHandler {
	return &UserHandler{
		userService:     userService,
		activityService: activityService,
		paymentService:  paymentService,
		storageService:  storageService,
	}
}

// GetProfile handles GET /v1/me.
func (h *UserHandler) GetProfile(c *gin.Context) {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	user, err := h.userService.FindByID(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": user})
}

// GetUserByID handles GET /v1/user/:id (public profile).
func (h *UserHandler) GetUserByID(c *gin.Context) {
	userID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID format"})
		return
	}

	var user *models.User
	err = retryStore(func() error {
		var err error
		user, err = h.userService.FindByID(c.Request.Context(), userID)
		return err
	})
	if err != nil {
		respondError(c, err)
		return
	}

	// Public view only; email and quota internals stay private.
	view := gin.H{
		"id":       user.ID,
		"name":     user.Name,
		"whatsapp": user.WhatsApp,
	}
	if user.AvatarKey != "" {
		view["avatar_url"] = h.storageService.PublicURL(user.AvatarKey)
	}
	c.JSON(http.StatusOK, gin.H{"data": view})
}

// UpdateProfile handles PUT /v1/me.
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	var req struct {
		Name     *string `json:"name"`
		Phone    *string `json:"phone"`
		WhatsApp *bool   `json:"whatsapp"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Phone != nil {
		updates["phone"] = *req.Phone
	}
	if req.WhatsApp != nil {
		updates["whatsapp"] = *req.WhatsApp
	}

	user, err := h.userService.UpdateProfile(c.Request.Context(), userID, updates)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": user})
}

// PresignAvatarUpload handles POST /v1/me/avatar/presign.
func (h *UserHandler) PresignAvatarUpload(c *gin.Context) {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	var req struct {
		Filename    string `json:"filename" binding:"required"`
		ContentType string `json:"content_type" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	url, key, err := h.storageService.PresignAvatarUpload(c.Request.Context(), userID.Hex(), req.Filename, req.ContentType)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to presign upload"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"upload_url": url, "key": key}})
}

// SetAvatar handles POST /v1/me/avatar.
func (h *UserHandler) SetAvatar(c *gin.Context) {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	var req struct {
		Key string `json:"key" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	if err := h.userService.SetAvatarKey(c.Request.Context(), userID, req.Key); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"avatar_url": h.storageService.PublicURL(req.Key)}})
}

// DeleteAccount handles DELETE /v1/me. Cascades to listings, images,
// favorites, conversations and messages.
func (h *UserHandler) DeleteAccount(c *gin.Context) {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	if err := h.userService.DeleteUserAndData(c.Request.Context(), userID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListPayments handles GET /v1/me/payments.
func (h *UserHandler) ListPayments(c *gin.Context) {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	payments, err := h.paymentService.ListPayments(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": payments})
}

// ListActivity handles GET /v1/me/activity.
func (h *UserHandler) ListActivity(c *gin.Context) {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	entries, err := h.activityService.ListByUser(c.Request.Context(), userID, 0)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": entries})
}
