package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sm8ta/safaride_ride_microservice/internal/core/domain"
	"github.com/sm8ta/safaride_ride_microservice/internal/core/ports"
	"github.com/sm8ta/safaride_ride_microservice/internal/core/services"
)

// alertStream upgrades a request into a live subscription on a ride.
type alertStream interface {
	Serve(w http.ResponseWriter, r *http.Request, rideID, userID uuid.UUID) error
}

type SOSHandler struct {
	sosService *services.SOSService
	stream     alertStream
	logger     ports.LoggerPort
	metrics    ports.MetricsPort
}

type TriggerSOSRequest struct {
	Message  string              `json:"message,omitempty" example:"Front tyre blowout near Gilgil"`
	Location *domain.Coordinates `json:"location,omitempty"`
}

type AlertListResponse struct {
	Alerts []*domain.SOSAlert `json:"alerts"`
	Count  int                `json:"count"`
}

func NewSOSHandler(sosService *services.SOSService, stream alertStream, logger ports.LoggerPort, metrics ports.MetricsPort) *SOSHandler {
	return &SOSHandler{
		sosService: sosService,
		stream:     stream,
		logger:     logger,
		metrics:    metrics,
	}
}

// @Summary Raise an SOS
// @Description Alerts everyone watching the ride and snapshots the caller's emergency contacts
// @Tags sos
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Ride ID"
// @Param request body TriggerSOSRequest false "Message and location"
// @Success 201 {object} domain.SOSAlert
// @Failure 403 {object} errorResponse
// @Failure 404 {object} errorResponse
// @Failure 409 {object} errorResponse
// @Router /rides/{id}/sos [post]
func (h *SOSHandler) Trigger(c *gin.Context) {
	start := time.Now()
	defer func() {
		h.metrics.RecordMetrics(c, start)
	}()

	id, ok := identity(c, h.logger, "TriggerSOS")
	if !ok {
		return
	}
	rideID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	var req TriggerSOSRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			newErrorResponse(c, http.StatusBadRequest, "Invalid JSON format")
			return
		}
	}

	alert, err := h.sosService.Trigger(c.Request.Context(), id, rideID, req.Message, req.Location)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, alert)
}

// @Summary List SOS alerts
// @Tags sos
// @Security BearerAuth
// @Produce json
// @Param id path string true "Ride ID"
// @Success 200 {object} AlertListResponse
// @Failure 403 {object} errorResponse
// @Failure 404 {object} errorResponse
// @Router /rides/{id}/sos [get]
func (h *SOSHandler) ListAlerts(c *gin.Context) {
	start := time.Now()
	defer func() {
		h.metrics.RecordMetrics(c, start)
	}()

	id, ok := identity(c, h.logger, "ListAlerts")
	if !ok {
		return
	}
	rideID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	alerts, err := h.sosService.ListAlerts(c.Request.Context(), id, rideID)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, AlertListResponse{Alerts: alerts, Count: len(alerts)})
}

// @Summary Watch ride alerts
// @Description Websocket stream of ride and SOS events; pass the token as ?token=
// @Tags sos
// @Param id path string true "Ride ID"
// @Param token query string true "Bearer token"
// @Success 101
// @Failure 403 {object} errorResponse
// @Router /rides/{id}/alerts/ws [get]
func (h *SOSHandler) WatchAlerts(c *gin.Context) {
	id, ok := identity(c, h.logger, "WatchAlerts")
	if !ok {
		return
	}
	rideID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	if err := h.sosService.CanWatch(c.Request.Context(), id, rideID); err != nil {
		handleError(c, err)
		return
	}

	if err := h.stream.Serve(c.Writer, c.Request, rideID, id.UserID); err != nil {
		h.logger.Warn("Websocket upgrade failed", map[string]interface{}{
			"error":   err.Error(),
			"ride_id": rideID.String(),
		})
	}
}
