package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mssola/user_agent"
	"github.com/sirupsen/logrus"
	"github.com/voltride/ev-rental-backend/internal/services"
)

// WebhookHandler receives payment gateway callbacks
type WebhookHandler struct {
	depositService *services.DepositService
	logger         *logrus.Logger
}

// NewWebhookHandler creates a new WebhookHandler
func NewWebhookHandler(depositService *services.DepositService, logger *logrus.Logger) *WebhookHandler {
	return &WebhookHandler{
		depositService: depositService,
		logger:         logger,
	}
}

// PaymentWebhook handles payment gateway webhook callbacks.
// Every delivery the pipeline has dealt with, including ignored ones, is
// answered 200 so the gateway stops redelivering. Only internal faults
// return 500, which makes the gateway retry later.
// @Summary Payment gateway webhook
// @Tags Webhooks
// @Accept json
// @Produce json
// @Param request body map[string]interface{} true "Webhook payload from gateway"
// @Success 200 {object} map[string]interface{} "Webhook acknowledged"
// @Failure 500 {object} map[string]interface{} "Processing error, redeliver"
// @Router /api/v1/webhooks/payos [post]
func (h *WebhookHandler) PaymentWebhook(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		h.logger.WithError(err).Error("Failed to read webhook body")
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read request body"})
		return
	}

	// The audit trail stores the parsed caller identity, not the raw header:
	// gateway deliveries arrive from server-side HTTP clients and the parsed
	// form is what operators grep for when tracing a redelivery storm.
	rawUA := c.GetHeader("User-Agent")
	ua := user_agent.New(rawUA)
	browserName, browserVersion := ua.Browser()
	callerUA := rawUA
	if browserName != "" {
		callerUA = fmt.Sprintf("%s %s (bot=%t)", browserName, browserVersion, ua.Bot())
	}
	h.logger.WithFields(logrus.Fields{
		"ip":         c.ClientIP(),
		"user_agent": callerUA,
		"bytes":      len(body),
	}).Debug("Webhook delivery received")

	result, err := h.depositService.HandleWebhook(body, c.ClientIP(), callerUA)
	if err != nil {
		h.logger.WithError(err).Error("Webhook processing failed")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":  "processing-error: " + err.Error(),
			"result": "retry",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"result":       result,
		"acknowledged": true,
	})
}
