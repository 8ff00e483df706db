package mempool

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mbd888/watchdog/internal/realtime"
)

// Handler provides HTTP handlers for the mempool simulator
type Handler struct {
	sim *Simulator
	hub *realtime.Hub
}

// NewHandler creates a new mempool handler
func NewHandler(sim *Simulator, hub *realtime.Hub) *Handler {
	return &Handler{sim: sim, hub: hub}
}

// RegisterRoutes sets up the mempool routes
func (h *Handler) RegisterRoutes(r gin.IRoutes) {
	r.POST("/rug", h.Rug)
	r.GET("/stats", h.Stats)
	r.GET("/ws", gin.WrapF(h.hub.HandleWebSocket))
}

// RugRequest is the request body for a rug trigger
type RugRequest struct {
	Token string `json:"token"`
}

// Rug handles POST /rug
func (h *Handler) Rug(c *gin.Context) {
	var req RugRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Invalid request body",
		})
		return
	}

	status, err := h.sim.Rug(c.Request.Context(), req.Token)
	if err != nil {
		if errors.Is(err, ErrMissingToken) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "invalid_request",
				"message": "token is required",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "rug_failed",
			"message": "Failed to broadcast rug simulation",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": status})
}

// Stats handles GET /stats
func (h *Handler) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, h.hub.Stats())
}
