package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/Listd-Technologies/listd-prd/internal/api/middleware"
	"github.com/Listd-Technologies/listd-prd/internal/models"
	"github.com/Listd-Technologies/listd-prd/internal/refdata"
	"github.com/Listd-Technologies/listd-prd/internal/services"
	"github.com/Listd-Technologies/listd-prd/internal/storage"
)

// ListingHandler handles listing lifecycle and image endpoints.
type ListingHandler struct {
	listingService services.IListingService
	storageService storage.IObjectStorage
}

// NewListingHandler creates a new ListingHandler.
func NewListingHandler(listingService services.IListingService, storageService storage.IObjectStorage) *ListingHandler {
	return &ListingHandler{listingService: listingService, storageService: storageService}
}

type createListingRequest struct {
	Mode     string                 `json:"mode" binding:"required"`
	Category string                 `json:"category" binding:"required"`
	Title    string                 `json:"title" binding:"required"`
	Body     string                 `json:"body"`
	Price    models.Price           `json:"price" binding:"required"`
	Location models.ListingLocation `json:"location" binding:"required"`
	Details  models.PropertyDetails `json:"details" binding:"required"`
}

// CreateListing handles POST /v1/listing.
func (h *ListingHandler) CreateListing(c *gin.Context) {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	var req createListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	listing, err := h.listingService.CreateListing(c.Request.Context(), userID, services.CreateListingInput{
		Mode:     refdata.TransactionMode(req.Mode),
		Category: refdata.PropertyCategory(req.Category),
		Title:    req.Title,
		Body:     req.Body,
		Price:    req.Price,
		Location: req.Location,
		Details:  req.Details,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": listing})
}

// GetListingByID handles GET /v1/listing/:id.
func (h *ListingHandler) GetListingByID(c *gin.Context) {
	listingID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid listing ID format"})
		return
	}

	var listing *models.Listing
	err = retryStore(func() error {
		var err error
		listing, err = h.listingService.FindListingByID(c.Request.Context(), listingID)
		return err
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": listing})
}

// UpdateListing handles PUT /v1/listing/:id.
func (h *ListingHandler) UpdateListing(c *gin.Context) {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}
	listingID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid listing ID format"})
		return
	}

	var req struct {
		Title    *string                 `json:"title"`
		Body     *string                 `json:"body"`
		Price    *models.Price           `json:"price"`
		Location *models.ListingLocation `json:"location"`
		Details  *models.PropertyDetails `json:"details"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	updates := map[string]interface{}{}
	if req.Title != nil {
		updates["title"] = *req.Title
	}
	if req.Body != nil {
		updates["body"] = *req.Body
	}
	if req.Price != nil {
		updates["price"] = *req.Price
	}
	if req.Location != nil {
		updates["location"] = *req.Location
	}
	if req.Details != nil {
		updates["details"] = *req.Details
	}

	listing, err := h.listingService.UpdateListing(c.Request.Context(), listingID, userID, updates)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": listing})
}

// TransitionListing handles POST /v1/listing/:id/status.
func (h *ListingHandler) TransitionListing(c *gin.Context) {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}
	listingID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid listing ID format"})
		return
	}

	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	if err := h.listingService.Transition(c.Request.Context(), listingID, userID, refdata.ListingStatus(req.Status)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"status": req.Status}})
}

// ListOwnListings handles GET /v1/me/listings.
func (h *ListingHandler) ListOwnListings(c *gin.Context) {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	listings, err := h.listingService.FindListingsByUserID(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": listings})
}

// PresignImageUpload handles POST /v1/listing/:id/image/presign. The
// client PUTs the file to the returned URL, then registers the key via
// AttachImage.
func (h *ListingHandler) PresignImageUpload(c *gin.Context) {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}
	listingID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid listing ID format"})
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

	// Ownership check before handing out an upload URL.
	listing, err := h.listingService.FindListingByID(c.Request.Context(), listingID)
	if err != nil || listing.UserID != userID {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
		return
	}

	url, key, err := h.storageService.PresignListingImageUpload(c.Request.Context(), userID.Hex(), listingID.Hex(), req.Filename, req.ContentType)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to presign upload"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"upload_url": url, "key": key}})
}

// AttachImage handles POST /v1/listing/:id/image.
func (h *ListingHandler) AttachImage(c *gin.Context) {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}
	listingID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid listing ID format"})
		return
	}

	var req struct {
		Key string `json:"key" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	image, err := h.listingService.AttachImage(c.Request.Context(), listingID, userID, req.Key)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": image})
}

// DetachImage handles DELETE /v1/listing/:id/image/:image_id.
func (h *ListingHandler) DetachImage(c *gin.Context) {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}
	listingID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid listing ID format"})
		return
	}
	imageID, err := primitive.ObjectIDFromHex(c.Param("image_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid image ID format"})
		return
	}

	if err := h.listingService.DetachImage(c.Request.Context(), listingID, userID, imageID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListImages handles GET /v1/listing/:id/image.
func (h *ListingHandler) ListImages(c *gin.Context) {
	listingID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid listing ID format"})
		return
	}

	var images []models.ListingImage
	err = retryStore(func() error {
		var err error
		images, err = h.listingService.ListImages(c.Request.Context(), listingID)
		return err
	})
	if err != nil {
		respondError(c, err)
		return
	}

	type imageView struct {
		models.ListingImage
		URL string `json:"url"`
	}
	views := make([]imageView, len(images))
	for i, img := range images {
		views[i] = imageView{ListingImage: img, URL: h.storageService.PublicURL(img.Key)}
	}
	c.JSON(http.StatusOK, gin.H{"data": views})
}
