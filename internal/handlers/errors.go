package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/voltride/ev-rental-backend/internal/models"
)

// respondServiceError maps service-layer errors onto HTTP responses. Business
// rejections carry their reason to the client; everything else is logged and
// answered generically.
func respondServiceError(c *gin.Context, logger *logrus.Logger, err error, logMsg string) {
	var ve *models.ValidationError
	switch {
	case errors.As(err, &ve):
		c.JSON(http.StatusBadRequest, gin.H{"error": ve.Reason})
	case errors.Is(err, models.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	case errors.Is(err, models.ErrVehicleConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "Vehicle is not available for the requested window"})
	case errors.Is(err, models.ErrInvalidState):
		c.JSON(http.StatusConflict, gin.H{"error": "Booking state does not permit this operation"})
	case errors.Is(err, models.ErrGateway):
		logger.WithError(err).Error(logMsg)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Payment gateway error, please retry"})
	default:
		logger.WithError(err).Error(logMsg)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
