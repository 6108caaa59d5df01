package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/Listd-Technologies/listd-prd/internal/auth"
	"github.com/Listd-Technologies/listd-prd/internal/services"
)

const (
	// ContextKeyUserID holds the local user ObjectID (hex) in Gin context.
	ContextKeyUserID = "userID"
	// ContextKeySubjectID holds the identity provider's subject id.
	ContextKeySubjectID = "subjectID"
)

// AuthMiddleware verifies the identity provider's token and maps its
// subject to a local User record, creating one on first sight. Handlers
// downstream read the local user id from context.
func AuthMiddleware(jwtSecret string, userService services.IUserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header format must be Bearer {token}"})
			return
		}

		claims, err := auth.VerifyIdentityToken(parts[1], jwtSecret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		user, err := userService.EnsureUser(c.Request.Context(), claims.Subject, claims.Email)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve user identity"})
			return
		}

		c.Set(ContextKeyUserID, user.ID.Hex())
		c.Set(ContextKeySubjectID, claims.Subject)
		c.Next()
	}
}

// OptionalAuthMiddleware resolves the caller's identity when a bearer
// token is present and proceeds anonymously otherwise. Valuation
// submissions use it: registered users attach their account, guests
// supply a contact tuple instead.
func OptionalAuthMiddleware(jwtSecret string, userService services.IUserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.Next()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			c.Next()
			return
		}
		claims, err := auth.VerifyIdentityToken(parts[1], jwtSecret)
		if err != nil {
			// A malformed token on an optional route is still a refusal.
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}
		user, err := userService.EnsureUser(c.Request.Context(), claims.Subject, claims.Email)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve user identity"})
			return
		}
		c.Set(ContextKeyUserID, user.ID.Hex())
		c.Set(ContextKeySubjectID, claims.Subject)
		c.Next()
	}
}

// UserIDFromContext returns the authenticated user's ObjectID. Only
// valid behind AuthMiddleware.
func UserIDFromContext(c *gin.Context) (primitive.ObjectID, bool) {
	hexID := c.GetString(ContextKeyUserID)
	if hexID == "" {
		return primitive.NilObjectID, false
	}
	id, err := primitive.ObjectIDFromHex(hexID)
	if err != nil {
		return primitive.NilObjectID, false
	}
	return id, true
}
