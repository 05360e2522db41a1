package middlewares

import (
	"net/http"
	"strings"

	"bitbucket.org/mmdatafocus/realapp_backend/utils"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	HeaderBusinessId     = "x-business-id"
	HeaderUsername       = "x-username"
	HeaderCorrelationId  = "x-correlation-id"
	HeaderIdempotencyKey = "Idempotency-Key"
)

// CorrelationMiddleware generates a correlation id once per request and echoes it back.
func CorrelationMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		cid := c.GetHeader(HeaderCorrelationId)
		if cid == "" {
			cid = uuid.NewString()
		}
		c.Header(HeaderCorrelationId, cid)
		c.Request = c.Request.WithContext(utils.SetCorrelationIdInContext(c.Request.Context(), cid))
		c.Next()
	}
}

// SessionMiddleware scopes the request to one business. Authentication happens upstream.
func SessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		businessId := strings.TrimSpace(c.GetHeader(HeaderBusinessId))
		if businessId == "" {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": utils.ErrorBusinessRequired.Error()})
			return
		}
		ctx := utils.SetBusinessIdInContext(c.Request.Context(), businessId)
		if username := strings.TrimSpace(c.GetHeader(HeaderUsername)); username != "" {
			ctx = utils.SetUsernameInContext(ctx, username)
		}
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// IdempotencyMiddleware carries the Idempotency-Key header into the context.
// Only handlers that check the key make use of it.
func IdempotencyMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := strings.TrimSpace(c.GetHeader(HeaderIdempotencyKey))
		if key != "" {
			if len(key) > 255 {
				c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "idempotency key too long"})
				return
			}
			c.Request = c.Request.WithContext(utils.SetIdempotencyKeyInContext(c.Request.Context(), key))
		}
		c.Next()
	}
}
