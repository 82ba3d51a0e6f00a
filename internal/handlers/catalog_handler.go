package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/voltride/ev-rental-backend/internal/config"
	"github.com/voltride/ev-rental-backend/internal/database"
	"github.com/voltride/ev-rental-backend/internal/models"
)

// CatalogHandler serves the station and vehicle catalog
type CatalogHandler struct {
	stationRepo *database.StationRepository
	vehicleRepo *database.VehicleRepository
	config      config.BookingConfig
	logger      *logrus.Logger
}

// NewCatalogHandler creates a new CatalogHandler
func NewCatalogHandler(
	stationRepo *database.StationRepository,
	vehicleRepo *database.VehicleRepository,
	cfg config.BookingConfig,
	logger *logrus.Logger,
) *CatalogHandler {
	return &CatalogHandler{
		stationRepo: stationRepo,
		vehicleRepo: vehicleRepo,
		config:      cfg,
		logger:      logger,
	}
}

// ListStations returns all active stations
// @Summary List active stations
// @Tags Catalog
// @Produce json
// @Success 200 {object} map[string]interface{} "Stations"
// @Router /api/v1/stations [get]
func (h *CatalogHandler) ListStations(c *gin.Context) {
	stations, err := h.stationRepo.ListActive()
	if err != nil {
		respondServiceError(c, h.logger, err, "Failed to list stations")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"stations": stations,
		"count":    len(stations),
	})
}

// ListStationVehicles returns vehicles parked at a station.
// With rentable=true only vehicles a renter could actually book are
// returned: AVAILABLE and battery at or above the configured minimum.
// @Summary List vehicles at a station
// @Tags Catalog
// @Produce json
// @Param id path int true "Station ID"
// @Param rentable query bool false "Only bookable vehicles" default(false)
// @Success 200 {object} map[string]interface{} "Vehicles"
// @Failure 404 {object} map[string]interface{} "Station not found"
// @Router /api/v1/stations/{id}/vehicles [get]
func (h *CatalogHandler) ListStationVehicles(c *gin.Context) {
	stationID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid station id"})
		return
	}

	station, err := h.stationRepo.GetByID(stationID)
	if err != nil {
		respondServiceError(c, h.logger, err, "Failed to get station")
		return
	}
	if station == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Station not found"})
		return
	}

	rentableOnly := c.DefaultQuery("rentable", "false") == "true"
	vehicles, err := h.vehicleRepo.ListByStation(stationID, rentableOnly, h.config.MinBatteryLevel)
	if err != nil {
		respondServiceError(c, h.logger, err, "Failed to list station vehicles")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"station":  station,
		"vehicles": vehicles,
		"count":    len(vehicles),
	})
}

// setVehicleStatusRequest is the payload for maintenance status changes
type setVehicleStatusRequest struct {
	Status models.VehicleStatus `json:"status" binding:"required"`
}

// SetVehicleStatus moves a vehicle in or out of maintenance (staff only)
// @Summary Set vehicle status (staff)
// @Description Move a vehicle between AVAILABLE and UNAVAILABLE. Vehicles held by a booking cannot be touched.
// @Tags Staff
// @Accept json
// @Produce json
// @Param id path int true "Vehicle ID"
// @Param request body setVehicleStatusRequest true "Target status"
// @Success 200 {object} map[string]interface{} "Updated"
// @Failure 409 {object} map[string]interface{} "Vehicle is held by a booking"
// @Security BearerAuth
// @Router /api/v1/staff/vehicles/{id}/status [put]
func (h *CatalogHandler) SetVehicleStatus(c *gin.Context) {
	vehicleID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid vehicle id"})
		return
	}

	var req setVehicleStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}
	if req.Status != models.VehicleStatusAvailable && req.Status != models.VehicleStatusUnavailable {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Status must be AVAILABLE or UNAVAILABLE"})
		return
	}

	if err := h.vehicleRepo.SetStatus(vehicleID, req.Status); err != nil {
		respondServiceError(c, h.logger, err, "Failed to set vehicle status")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"vehicle_id": vehicleID,
		"status":     req.Status,
	})
}
