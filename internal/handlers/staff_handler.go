package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/voltride/ev-rental-backend/internal/database"
	"github.com/voltride/ev-rental-backend/internal/middleware"
	"github.com/voltride/ev-rental-backend/internal/services"
)

// StaffHandler handles counter operations performed by station staff
type StaffHandler struct {
	depositService *services.DepositService
	auditRepo      *database.PaymentAuditRepository
	logger         *logrus.Logger
}

// NewStaffHandler creates a new StaffHandler
func NewStaffHandler(depositService *services.DepositService, auditRepo *database.PaymentAuditRepository, logger *logrus.Logger) *StaffHandler {
	return &StaffHandler{
		depositService: depositService,
		auditRepo:      auditRepo,
		logger:         logger,
	}
}

// confirmDepositRequest is the payload for staff deposit confirmations
type confirmDepositRequest struct {
	Note string `json:"note"`
}

// ConfirmHoldingDeposit records an over-the-counter holding deposit payment
// @Summary Confirm holding deposit (staff)
// @Description Record a cash holding deposit payment; confirming an already CONFIRMED booking is a no-op
// @Tags Staff
// @Accept json
// @Produce json
// @Param id path int true "Booking ID"
// @Param request body confirmDepositRequest false "Optional note"
// @Success 200 {object} map[string]interface{} "Confirmed or already confirmed"
// @Failure 404 {object} map[string]interface{} "Booking not found"
// @Failure 409 {object} map[string]interface{} "Booking state does not permit confirmation"
// @Security BearerAuth
// @Router /api/v1/staff/bookings/{id}/confirm-holding [post]
func (h *StaffHandler) ConfirmHoldingDeposit(c *gin.Context) {
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

	var req confirmDepositRequest
	_ = c.ShouldBindJSON(&req) // body is optional

	transitioned, err := h.depositService.ConfirmHoldingByStaff(userCtx.UserID, bookingID, req.Note)
	if err != nil {
		respondServiceError(c, h.logger, err, "Staff holding deposit confirmation failed")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"booking_id":        bookingID,
		"confirmed":         true,
		"already_confirmed": !transitioned,
	})
}

// ConfirmRentalDeposit records an over-the-counter rental deposit payment
// @Summary Confirm rental deposit (staff)
// @Tags Staff
// @Accept json
// @Produce json
// @Param id path int true "Booking ID"
// @Param request body confirmDepositRequest false "Optional note"
// @Success 200 {object} map[string]interface{} "Confirmed or already paid"
// @Failure 404 {object} map[string]interface{} "Booking not found"
// @Failure 409 {object} map[string]interface{} "Booking state does not permit confirmation"
// @Security BearerAuth
// @Router /api/v1/staff/bookings/{id}/confirm-rental [post]
func (h *StaffHandler) ConfirmRentalDeposit(c *gin.Context) {
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

	var req confirmDepositRequest
	_ = c.ShouldBindJSON(&req)

	transitioned, err := h.depositService.ConfirmRentalByStaff(userCtx.UserID, bookingID, req.Note)
	if err != nil {
		respondServiceError(c, h.logger, err, "Staff rental deposit confirmation failed")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"booking_id":   bookingID,
		"confirmed":    true,
		"already_paid": !transitioned,
	})
}

// ListPaymentAudit returns the audit trail for a gateway order code.
// Support tooling for webhook-redelivery and reconciliation questions.
// @Summary List payment audit entries for an order code (staff)
// @Tags Staff
// @Produce json
// @Param orderCode path int true "Gateway order code"
// @Success 200 {object} map[string]interface{} "Audit entries"
// @Security BearerAuth
// @Router /api/v1/staff/payments/{orderCode}/audit [get]
func (h *StaffHandler) ListPaymentAudit(c *gin.Context) {
	orderCode, err := strconv.ParseInt(c.Param("orderCode"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid order code"})
		return
	}

	audits, err := h.auditRepo.ListByOrderCode(orderCode)
	if err != nil {
		respondServiceError(c, h.logger, err, "Failed to list payment audits")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"order_code": orderCode,
		"entries":    audits,
		"count":      len(audits),
	})
}
