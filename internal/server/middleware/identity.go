// Package middleware contains the HTTP request plumbing: identity
// extraction, structured logging, panic recovery, rate limiting and the
// error-to-status mapping used by every handler.
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"afx-market/internal/common"
)

const userIDKey = "auth.userID"

// Identity extracts the authenticated user id from the X-User-ID header.
// Session issuance is external; the gateway in front of this service
// verifies the session and forwards the identity. No header means the
// caller is anonymous — handlers that require identity use RequireUser.
func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader("X-User-ID")
		if raw != "" {
			if id, err := uuid.Parse(raw); err == nil {
				c.Set(userIDKey, id)
			}
		}
		c.Next()
	}
}

// UserID returns the authenticated user id, if any.
func UserID(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(userIDKey)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}

// RequireUser returns the user id or aborts with an auth error.
func RequireUser(c *gin.Context) (uuid.UUID, bool) {
	id, ok := UserID(c)
	if !ok {
		RespondError(c, common.ErrUnauthenticated)
		return uuid.Nil, false
	}
	return id, true
}

// RespondError maps an error's category to an HTTP status and writes the
// structured error body. Unexpected errors are logged with full detail but
// reported generically so internals never leak.
func RespondError(c *gin.Context, err error) {
	category := common.CategoryOf(err)
	message := err.Error()

	var status int
	switch category {
	case common.CategoryValidation:
		status = http.StatusUnprocessableEntity
	case common.CategoryConflict:
		status = http.StatusConflict
	case common.CategoryAuth:
		status = http.StatusUnauthorized
	default:
		status = http.StatusInternalServerError
		log.WithError(err).WithField("path", c.FullPath()).Error("Unexpected error")
		message = "an unexpected error occurred, please try again"
	}

	c.AbortWithStatusJSON(status, gin.H{
		"error":    message,
		"category": category,
	})
}
