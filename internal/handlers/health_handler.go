package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type HealthHandler struct {
	db Pinger
}

// NewHealthHandler accepts a nil db when running on the in-memory store.
func NewHealthHandler(db Pinger) *HealthHandler {
	return &HealthHandler{db: db}
}

// @Summary      Health check
// @Tags         System
// @Produce      json
// @Success      200  {object}  Response
// @Failure      503  {object}  Response
// @Router       /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	store := "memory"
	if h.db != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, Response{Success: false, Message: "Database unavailable"})
			return
		}
		store = "postgres"
	}
	respond(c, http.StatusOK, "OK", gin.H{"store": store, "time": time.Now().UTC()})
}
