package classify

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mbd888/watchdog/internal/attestation"
	"github.com/mbd888/watchdog/internal/risk"
)

// Handler provides HTTP handlers for classification
type Handler struct {
	service *Service
}

// NewHandler creates a new classification handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes sets up the classification routes
func (h *Handler) RegisterRoutes(r gin.IRoutes) {
	r.POST("/classify", h.Classify)
	r.GET("/attestation/signer", h.GetSigner)
}

// Classify handles POST /classify
func (h *Handler) Classify(c *gin.Context) {
	var req risk.RawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Invalid request body",
		})
		return
	}

	result, err := h.service.Classify(c.Request.Context(), req)
	if err != nil {
		var ve *ValidationError
		var se *attestation.SigningError
		switch {
		case errors.As(err, &ve):
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "invalid_request",
				"message": ve.Error(),
				"fields":  ve.Fields,
			})
		case errors.As(err, &se):
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "signing_failed",
				"message": "Failed to produce attestation",
			})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "internal_error",
				"message": "Classification failed",
			})
		}
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetSigner handles GET /attestation/signer
func (h *Handler) GetSigner(c *gin.Context) {
	addr, ok := h.service.SignerAddress()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "not_found",
			"message": "Signer address not available",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"address":  addr.Hex(),
		"strategy": h.service.Strategy(),
		"encoding": "abi.encode(string,string,string,uint256)",
		"digest":   "eip191(keccak256(encoding))",
	})
}
