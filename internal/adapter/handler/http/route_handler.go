package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sm8ta/safaride_ride_microservice/internal/core/domain"
	"github.com/sm8ta/safaride_ride_microservice/internal/core/ports"
	"github.com/sm8ta/safaride_ride_microservice/internal/core/services"
)

type RouteHandler struct {
	rideService *services.RideService
	logger      ports.LoggerPort
	metrics     ports.MetricsPort
}

func NewRouteHandler(rideService *services.RideService, logger ports.LoggerPort, metrics ports.MetricsPort) *RouteHandler {
	return &RouteHandler{
		rideService: rideService,
		logger:      logger,
		metrics:     metrics,
	}
}

// @Summary Estimate a route
// @Description Driving distance and duration between two points
// @Tags routes
// @Security BearerAuth
// @Produce json
// @Param from_lat query number true "Start latitude"
// @Param from_lng query number true "Start longitude"
// @Param to_lat query number true "End latitude"
// @Param to_lng query number true "End longitude"
// @Success 200 {object} domain.Route
// @Failure 400 {object} errorResponse
// @Failure 404 {object} errorResponse
// @Failure 502 {object} errorResponse
// @Router /routes/estimate [get]
func (h *RouteHandler) Estimate(c *gin.Context) {
	start := time.Now()
	defer func() {
		h.metrics.RecordMetrics(c, start)
	}()

	var vals [4]float64
	for i, name := range []string{"from_lat", "from_lng", "to_lat", "to_lng"} {
		v, err := strconv.ParseFloat(c.Query(name), 64)
		if err != nil {
			newErrorResponse(c, http.StatusBadRequest, "invalid "+name)
			return
		}
		vals[i] = v
	}

	route, err := h.rideService.EstimateRoute(
		c.Request.Context(),
		domain.Coordinates{Lat: vals[0], Lng: vals[1]},
		domain.Coordinates{Lat: vals[2], Lng: vals[3]},
	)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, route)
}
