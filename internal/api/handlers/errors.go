package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Listd-Technologies/listd-prd/internal/apperrors"
	"github.com/Listd-Technologies/listd-prd/internal/db"
)

var storeRetryLimit = 2

// ConfigureStoreRetries sets how many times read handlers re-run a
// store operation that failed transiently. Called once at router setup.
func ConfigureStoreRetries(n int) {
	if n >= 0 {
		storeRetryLimit = n
	}
}

// retryStore re-runs a read when the store reports a transient fault.
// Only reads go through here: a timed-out write may still have
// committed, so repeating it is not safe.
func retryStore(op db.Operation) error {
	return db.WithRetries(op, storeRetryLimit, apperrors.IsStoreUnavailable)
}

// respondError maps domain errors onto HTTP responses. Business-rule
// refusals carry their specific message through; infrastructure faults
// collapse into a generic retryable 503.
func respondError(c *gin.Context, err error) {
	var (
		validation   *apperrors.ValidationError
		transition   *apperrors.InvalidTransitionError
		images       *apperrors.InsufficientImagesError
		quota        *apperrors.QuotaExceededError
		storeFailure *apperrors.StoreUnavailableError
	)

	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, gin.H{"error": validation.Error()})
	case errors.As(err, &transition):
		c.JSON(http.StatusConflict, gin.H{"error": transition.Error()})
	case errors.As(err, &images):
		c.JSON(http.StatusConflict, gin.H{"error": images.Error()})
	case errors.As(err, &quota):
		c.JSON(http.StatusForbidden, gin.H{"error": quota.Error()})
	case errors.As(err, &storeFailure):
		log.Printf("Store unavailable on %s: %v", storeFailure.Op, storeFailure.Err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Temporarily unavailable, please try again"})
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error"})
	}
}
