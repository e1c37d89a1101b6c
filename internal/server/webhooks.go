package server

import (
	"errors"
	"io"
	"net/http"

	webhookdomain "github.com/annpale/payments/internal/webhook/domain"
	"github.com/gin-gonic/gin"
)

// HandlePaymentWebhook receives provider callbacks. The provider retries on
// any non-2xx, so everything except a bad signature is acknowledged.
func (s *Server) HandlePaymentWebhook(c *gin.Context) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	err = s.webhookSvc.Ingest(c.Request.Context(), payload, c.Request.Header)
	if err != nil {
		if errors.Is(err, webhookdomain.ErrEventAlreadyProcessed) {
			c.JSON(http.StatusOK, gin.H{"received": true})
			return
		}
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}
