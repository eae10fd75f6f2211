package middleware

import (
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	HeaderRequestID = "X-Request-ID"
	CtxRequestID    = "request_id"
)

// RequestID tags each request with an id (reusing the caller's if sent) and logs one
// access line once the handler chain has run.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		c.Set(CtxRequestID, id)
		c.Header(HeaderRequestID, id)

		start := time.Now()
		c.Next()

		log.Printf("[req] id=%s method=%s path=%s status=%d latency=%s",
			id, c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}
