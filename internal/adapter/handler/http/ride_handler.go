package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sm8ta/safaride_ride_microservice/internal/core/domain"
	"github.com/sm8ta/safaride_ride_microservice/internal/core/ports"
	"github.com/sm8ta/safaride_ride_microservice/internal/core/services"
)

type RideHandler struct {
	rideService *services.RideService
	logger      ports.LoggerPort
	metrics     ports.MetricsPort
}

type CreateRideRequest struct {
	Title              string              `json:"title" example:"Sunday coffee run"`
	MeetingPoint       string              `json:"meeting_point" example:"Shell station, Ring Road"`
	MeetingPointCoords *domain.Coordinates `json:"meeting_point_coords,omitempty"`
	Destination        string              `json:"destination" example:"Lake Naivasha"`
	DestinationCoords  *domain.Coordinates `json:"destination_coords,omitempty"`
	Date               string              `json:"date" example:"2026-11-01"`
	Time               string              `json:"time" example:"07:30"`
	Duration           string              `json:"duration" example:"4h"`
	RideType           string              `json:"ride_type" example:"Long Ride"`
	Description        string              `json:"description,omitempty" example:"Easy pace, fuel stop halfway"`
	MaxParticipants    int                 `json:"max_participants" example:"12"`
}

type RideListResponse struct {
	Rides []*domain.Ride `json:"rides"`
	Count int            `json:"count"`
}

func NewRideHandler(rideService *services.RideService, logger ports.LoggerPort, metrics ports.MetricsPort) *RideHandler {
	return &RideHandler{
		rideService: rideService,
		logger:      logger,
		metrics:     metrics,
	}
}

// identity reads the caller from the auth payload or writes a 401.
func identity(c *gin.Context, logger ports.LoggerPort, handler string) (domain.Identity, bool) {
	payload, exists := getAuthPayload(c, authorizationPayloadKey)
	if !exists {
		logger.Warn("Unauthorized access attempt to "+handler, map[string]interface{}{
			"ip": c.ClientIP(),
		})
		newErrorResponse(c, http.StatusUnauthorized, "Unauthorized")
		return domain.Identity{}, false
	}
	return payload.Identity(), true
}

func uuidParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		newErrorResponse(c, http.StatusBadRequest, "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

// @Summary Create a ride
// @Description Verified organizers and admins create a group ride
// @Tags rides
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body CreateRideRequest true "Ride details"
// @Success 201 {object} domain.Ride
// @Failure 400 {object} errorResponse
// @Failure 401 {object} errorResponse
// @Failure 403 {object} errorResponse
// @Router /rides [post]
func (h *RideHandler) CreateRide(c *gin.Context) {
	start := time.Now()
	defer func() {
		h.metrics.RecordMetrics(c, start)
	}()

	id, ok := identity(c, h.logger, "CreateRide")
	if !ok {
		return
	}

	var req CreateRideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Failed JSON parse in create ride", map[string]interface{}{
			"error": err.Error(),
		})
		newErrorResponse(c, http.StatusBadRequest, "Invalid JSON format")
		return
	}

	ride, err := h.rideService.CreateRide(c.Request.Context(), id, &domain.Ride{
		Title:              req.Title,
		MeetingPoint:       req.MeetingPoint,
		MeetingPointCoords: req.MeetingPointCoords,
		Destination:        req.Destination,
		DestinationCoords:  req.DestinationCoords,
		Date:               req.Date,
		Time:               req.Time,
		Duration:           req.Duration,
		RideType:           req.RideType,
		Description:        req.Description,
		MaxParticipants:    req.MaxParticipants,
	})
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, ride)
}

// @Summary List joinable rides
// @Description Upcoming and ongoing rides, optionally filtered by ride type
// @Tags rides
// @Security BearerAuth
// @Produce json
// @Param type query string false "Ride type, or All Rides"
// @Success 200 {object} RideListResponse
// @Failure 400 {object} errorResponse
// @Router /rides [get]
func (h *RideHandler) ListRides(c *gin.Context) {
	start := time.Now()
	defer func() {
		h.metrics.RecordMetrics(c, start)
	}()

	rides, err := h.rideService.ListJoinable(c.Request.Context(), c.Query("type"))
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, RideListResponse{Rides: rides, Count: len(rides)})
}

// @Summary My rides
// @Description Rides the caller organizes or joined, newest first
// @Tags rides
// @Security BearerAuth
// @Produce json
// @Param limit query int false "Max rides (default 3)"
// @Success 200 {object} RideListResponse
// @Failure 401 {object} errorResponse
// @Router /rides/my [get]
func (h *RideHandler) MyRides(c *gin.Context) {
	start := time.Now()
	defer func() {
		h.metrics.RecordMetrics(c, start)
	}()

	id, ok := identity(c, h.logger, "MyRides")
	if !ok {
		return
	}

	limit := 0
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			newErrorResponse(c, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	rides, err := h.rideService.MyRides(c.Request.Context(), id, limit)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, RideListResponse{Rides: rides, Count: len(rides)})
}

// @Summary Get a ride
// @Tags rides
// @Security BearerAuth
// @Produce json
// @Param id path string true "Ride ID"
// @Success 200 {object} domain.Ride
// @Failure 404 {object} errorResponse
// @Router /rides/{id} [get]
func (h *RideHandler) GetRide(c *gin.Context) {
	start := time.Now()
	defer func() {
		h.metrics.RecordMetrics(c, start)
	}()

	rideID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	ride, err := h.rideService.GetRide(c.Request.Context(), rideID)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, ride)
}

type rideAction func(c *gin.Context, id domain.Identity, rideID uuid.UUID) (*domain.Ride, error)

func (h *RideHandler) runAction(c *gin.Context, name string, action rideAction) {
	start := time.Now()
	defer func() {
		h.metrics.RecordMetrics(c, start)
	}()

	id, ok := identity(c, h.logger, name)
	if !ok {
		return
	}
	rideID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	ride, err := action(c, id, rideID)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, ride)
}

// @Summary Join a ride
// @Tags rides
// @Security BearerAuth
// @Produce json
// @Param id path string true "Ride ID"
// @Success 200 {object} domain.Ride
// @Failure 404 {object} errorResponse
// @Failure 409 {object} errorResponse "Full, already joined or not joinable"
// @Router /rides/{id}/join [post]
func (h *RideHandler) JoinRide(c *gin.Context) {
	h.runAction(c, "JoinRide", func(c *gin.Context, id domain.Identity, rideID uuid.UUID) (*domain.Ride, error) {
		return h.rideService.JoinRide(c.Request.Context(), id, rideID)
	})
}

// @Summary Leave a ride
// @Tags rides
// @Security BearerAuth
// @Produce json
// @Param id path string true "Ride ID"
// @Success 200 {object} domain.Ride
// @Failure 404 {object} errorResponse
// @Failure 409 {object} errorResponse "Not a participant or ride finished"
// @Router /rides/{id}/leave [post]
func (h *RideHandler) LeaveRide(c *gin.Context) {
	h.runAction(c, "LeaveRide", func(c *gin.Context, id domain.Identity, rideID uuid.UUID) (*domain.Ride, error) {
		return h.rideService.LeaveRide(c.Request.Context(), id, rideID)
	})
}

// @Summary Start a ride
// @Tags rides
// @Security BearerAuth
// @Produce json
// @Param id path string true "Ride ID"
// @Success 200 {object} domain.Ride
// @Failure 403 {object} errorResponse
// @Failure 409 {object} errorResponse
// @Router /rides/{id}/start [post]
func (h *RideHandler) StartRide(c *gin.Context) {
	h.runAction(c, "StartRide", func(c *gin.Context, id domain.Identity, rideID uuid.UUID) (*domain.Ride, error) {
		return h.rideService.StartRide(c.Request.Context(), id, rideID)
	})
}

// @Summary Complete a ride
// @Tags rides
// @Security BearerAuth
// @Produce json
// @Param id path string true "Ride ID"
// @Success 200 {object} domain.Ride
// @Failure 403 {object} errorResponse
// @Failure 409 {object} errorResponse
// @Router /rides/{id}/complete [post]
func (h *RideHandler) CompleteRide(c *gin.Context) {
	h.runAction(c, "CompleteRide", func(c *gin.Context, id domain.Identity, rideID uuid.UUID) (*domain.Ride, error) {
		return h.rideService.CompleteRide(c.Request.Context(), id, rideID)
	})
}

// @Summary Cancel a ride
// @Tags rides
// @Security BearerAuth
// @Produce json
// @Param id path string true "Ride ID"
// @Success 200 {object} domain.Ride
// @Failure 403 {object} errorResponse
// @Failure 409 {object} errorResponse
// @Router /rides/{id}/cancel [post]
func (h *RideHandler) CancelRide(c *gin.Context) {
	h.runAction(c, "CancelRide", func(c *gin.Context, id domain.Identity, rideID uuid.UUID) (*domain.Ride, error) {
		return h.rideService.CancelRide(c.Request.Context(), id, rideID)
	})
}

// @Summary Delete a ride
// @Description Admin-only removal, recorded in the audit log
// @Tags admin
// @Security BearerAuth
// @Produce json
// @Param id path string true "Ride ID"
// @Param reason query string true "Why the ride is removed"
// @Success 200 {object} messageResponse
// @Failure 400 {object} errorResponse
// @Failure 403 {object} errorResponse
// @Failure 404 {object} errorResponse
// @Router /rides/{id} [delete]
func (h *RideHandler) DeleteRide(c *gin.Context) {
	start := time.Now()
	defer func() {
		h.metrics.RecordMetrics(c, start)
	}()

	id, ok := identity(c, h.logger, "DeleteRide")
	if !ok {
		return
	}
	rideID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	if err := h.rideService.DeleteRide(c.Request.Context(), id, rideID, c.Query("reason")); err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, messageResponse{Message: "Ride deleted successfully"})
}
