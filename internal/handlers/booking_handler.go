package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/voltride/ev-rental-backend/internal/database"
	"github.com/voltride/ev-rental-backend/internal/middleware"
	"github.com/voltride/ev-rental-backend/internal/models"
	"github.com/voltride/ev-rental-backend/internal/services"
)

// BookingHandler handles renter booking operations
type BookingHandler struct {
	bookingService *services.BookingService
	txnRepo        *database.TransactionRepository
	logger         *logrus.Logger
}

// NewBookingHandler creates a new BookingHandler
func NewBookingHandler(bookingService *services.BookingService, txnRepo *database.TransactionRepository, logger *logrus.Logger) *BookingHandler {
	return &BookingHandler{
		bookingService: bookingService,
		txnRepo:        txnRepo,
		logger:         logger,
	}
}

// CreateBooking creates a new vehicle booking
// @Summary Create a new booking
// @Description Reserve a vehicle for a time window and get a holding deposit payment link
// @Tags Bookings
// @Accept json
// @Produce json
// @Param request body models.CreateBookingRequest true "Booking request"
// @Success 201 {object} models.CreateBookingResponse "Booking created"
// @Failure 400 {object} map[string]interface{} "Invalid request"
// @Failure 409 {object} map[string]interface{} "Vehicle not available"
// @Failure 502 {object} map[string]interface{} "Payment gateway error"
// @Security BearerAuth
// @Router /api/v1/bookings [post]
func (h *BookingHandler) CreateBooking(c *gin.Context) {
	userCtx, exists := middleware.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req models.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	resp, err := h.bookingService.CreateBooking(userCtx.UserID, &req)
	if err != nil {
		h.respondError(c, err, "Failed to create booking")
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// ListMyBookings returns the caller's bookings
// @Summary List my bookings
// @Tags Bookings
// @Produce json
// @Param limit query int false "Page size" default(20)
// @Param offset query int false "Offset" default(0)
// @Success 200 {object} map[string]interface{} "Bookings"
// @Security BearerAuth
// @Router /api/v1/bookings [get]
func (h *BookingHandler) ListMyBookings(c *gin.Context) {
	userCtx, exists := middleware.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	bookings, err := h.bookingService.GetMyBookings(userCtx.UserID, limit, offset)
	if err != nil {
		h.respondError(c, err, "Failed to list bookings")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"bookings": bookings,
		"count":    len(bookings),
	})
}

// GetBooking returns one of the caller's bookings
// @Summary Get a booking
// @Tags Bookings
// @Produce json
// @Param id path int true "Booking ID"
// @Success 200 {object} models.Booking "Booking"
// @Failure 404 {object} map[string]interface{} "Not found"
// @Security BearerAuth
// @Router /api/v1/bookings/{id} [get]
func (h *BookingHandler) GetBooking(c *gin.Context) {
	userCtx, exists := middleware.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	bookingID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid booking id"})
		return
	}

	booking, err := h.bookingService.GetBooking(userCtx.UserID, bookingID)
	if err != nil {
		h.respondError(c, err, "Failed to get booking")
		return
	}

	c.JSON(http.StatusOK, booking)
}

// CancelBooking cancels the caller's booking
// @Summary Cancel a booking
// @Description Cancel a PENDING or CONFIRMED booking. A paid holding deposit moves the booking to CANCELLED_AWAIT_REFUND.
// @Tags Bookings
// @Produce json
// @Param id path int true "Booking ID"
// @Success 200 {object} map[string]interface{} "Cancelled"
// @Failure 404 {object} map[string]interface{} "Not found"
// @Failure 409 {object} map[string]interface{} "Booking state does not permit cancellation"
// @Security BearerAuth
// @Router /api/v1/bookings/{id}/cancel [post]
func (h *BookingHandler) CancelBooking(c *gin.Context) {
	userCtx, exists := middleware.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	bookingID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid booking id"})
		return
	}

	status, err := h.bookingService.CancelBooking(userCtx.UserID, bookingID)
	if err != nil {
		h.respondError(c, err, "Failed to cancel booking")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"booking_id": bookingID,
		"status":     status,
	})
}

// RetryPaymentLink issues a fresh holding deposit payment link
// @Summary Retry the holding deposit payment link
// @Tags Bookings
// @Produce json
// @Param id path int true "Booking ID"
// @Success 200 {object} models.CreateBookingResponse "New payment link"
// @Failure 409 {object} map[string]interface{} "Booking is not PENDING"
// @Security BearerAuth
// @Router /api/v1/bookings/{id}/payment-link [post]
func (h *BookingHandler) RetryPaymentLink(c *gin.Context) {
	userCtx, exists := middleware.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	bookingID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid booking id"})
		return
	}

	resp, err := h.bookingService.RetryHoldingDepositLink(userCtx.UserID, bookingID)
	if err != nil {
		h.respondError(c, err, "Failed to create payment link")
		return
	}

	c.JSON(http.StatusOK, resp)
}

// RequestRentalDepositLink issues a payment link for the rental deposit
// @Summary Request a rental deposit payment link
// @Tags Bookings
// @Produce json
// @Param id path int true "Booking ID"
// @Success 200 {object} models.CreateBookingResponse "Payment link"
// @Failure 409 {object} map[string]interface{} "Booking is not CONFIRMED"
// @Security BearerAuth
// @Router /api/v1/bookings/{id}/rental-deposit-link [post]
func (h *BookingHandler) RequestRentalDepositLink(c *gin.Context) {
	userCtx, exists := middleware.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	bookingID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid booking id"})
		return
	}

	resp, err := h.bookingService.RequestRentalDepositLink(userCtx.UserID, bookingID)
	if err != nil {
		h.respondError(c, err, "Failed to create rental deposit link")
		return
	}

	c.JSON(http.StatusOK, resp)
}

// ListBookingTransactions returns the ledger of one of the caller's bookings
// @Summary List a booking's ledger entries
// @Tags Bookings
// @Produce json
// @Param id path int true "Booking ID"
// @Success 200 {object} map[string]interface{} "Transactions"
// @Failure 404 {object} map[string]interface{} "Not found"
// @Security BearerAuth
// @Router /api/v1/bookings/{id}/transactions [get]
func (h *BookingHandler) ListBookingTransactions(c *gin.Context) {
	userCtx, exists := middleware.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	bookingID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid booking id"})
		return
	}

	// Ownership check before exposing the ledger
	if _, err := h.bookingService.GetBooking(userCtx.UserID, bookingID); err != nil {
		h.respondError(c, err, "Failed to get booking")
		return
	}

	txns, err := h.txnRepo.ListByBooking(bookingID)
	if err != nil {
		h.respondError(c, err, "Failed to list transactions")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"booking_id":   bookingID,
		"transactions": txns,
		"count":        len(txns),
	})
}

// respondError maps service errors onto HTTP responses
func (h *BookingHandler) respondError(c *gin.Context, err error, logMsg string) {
	respondServiceError(c, h.logger, err, logMsg)
}
