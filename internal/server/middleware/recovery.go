package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// Recovery turns a handler panic into a 500 and logs the stack.
// One bad request must not take the process down.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.WithFields(log.Fields{
					"component": "panic_recovery",
					"panic":     fmt.Sprintf("%v", r),
					"stack":     string(debug.Stack()),
				}).Error("PANIC in handler — recovered")
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error":    "an unexpected error occurred, please try again",
					"category": "unexpected",
				})
			}
		}()
		c.Next()
	}
}
