package handlers

import (
	"crypto/subtle"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/Listd-Technologies/listd-prd/internal/models"
	"github.com/Listd-Technologies/listd-prd/internal/services"
)

// PaymentHandler receives the payment processor's completed-transaction
// callbacks. The core never initiates charges.
type PaymentHandler struct {
	paymentService services.IPaymentService
	webhookSecret  string
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(paymentService services.IPaymentService, webhookSecret string) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService, webhookSecret: webhookSecret}
}

type paymentWebhookRequest struct {
	UserID       string  `json:"user_id" binding:"required"`
	Type         string  `json:"type" binding:"required"`
	Amount       float64 `json:"amount" binding:"required"`
	CurrencyCode string  `json:"currency_code" binding:"required"`
	ProcessorRef string  `json:"processor_ref" binding:"required"`
	ListingID    string  `json:"listing_id"`
}

// HandleWebhook handles POST /v1/webhook/payment. Authenticated by the
// shared webhook secret, not a user token.
func (h *PaymentHandler) HandleWebhook(c *gin.Context) {
	// An unconfigured secret must not mean an open endpoint.
	if h.webhookSecret == "" {
		log.Println("WARN: payment webhook rejected; PAYMENT_WEBHOOK_SECRET is not configured")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Webhook not configured"})
		return
	}

	provided := c.GetHeader("X-Webhook-Secret")
	if subtle.ConstantTimeCompare([]byte(provided), []byte(h.webhookSecret)) != 1 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid webhook secret"})
		return
	}

	var req paymentWebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}
	userID, err := primitive.ObjectIDFromHex(req.UserID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID format"})
		return
	}

	payment := services.CompletedPayment{
		UserID:       userID,
		Type:         models.PaymentType(req.Type),
		Amount:       req.Amount,
		CurrencyCode: req.CurrencyCode,
		ProcessorRef: req.ProcessorRef,
	}
	if req.ListingID != "" {
		listingID, err := primitive.ObjectIDFromHex(req.ListingID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid listing ID format"})
			return
		}
		payment.ListingID = &listingID
	}

	record, err := h.paymentService.RecordPayment(c.Request.Context(), payment)
	if err != nil {
		// A recorded payment with a failed unlock still acknowledges;
		// the processor must not re-deliver forever.
		if record != nil {
			c.JSON(http.StatusOK, gin.H{"data": record, "warning": "payment recorded, listing unlock pending"})
			return
		}
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": record})
}
