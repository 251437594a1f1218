package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sm8ta/safaride_ride_microservice/internal/core/domain"
	"github.com/sm8ta/safaride_ride_microservice/internal/core/ports"
	"github.com/sm8ta/safaride_ride_microservice/internal/core/services"
)

type UserHandler struct {
	userService *services.UserService
	logger      ports.LoggerPort
	metrics     ports.MetricsPort
}

type EmergencyInfoRequest struct {
	Contacts    []domain.EmergencyContact `json:"emergency_contacts"`
	MedicalInfo domain.MedicalInfo        `json:"medical_info"`
}

func NewUserHandler(userService *services.UserService, logger ports.LoggerPort, metrics ports.MetricsPort) *UserHandler {
	return &UserHandler{
		userService: userService,
		logger:      logger,
		metrics:     metrics,
	}
}

// @Summary Current user
// @Tags users
// @Security BearerAuth
// @Produce json
// @Success 200 {object} domain.User
// @Failure 401 {object} errorResponse
// @Failure 403 {object} errorResponse
// @Router /users/me [get]
func (h *UserHandler) GetMe(c *gin.Context) {
	start := time.Now()
	defer func() {
		h.metrics.RecordMetrics(c, start)
	}()

	id, ok := identity(c, h.logger, "GetMe")
	if !ok {
		return
	}

	user, err := h.userService.GetProfile(c.Request.Context(), id)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

// @Summary Update emergency contacts
// @Description Replaces the caller's emergency contacts and medical info
// @Tags users
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body EmergencyInfoRequest true "Contacts and medical info"
// @Success 200 {object} domain.User
// @Failure 400 {object} errorResponse
// @Failure 401 {object} errorResponse
// @Router /users/me/emergency-contacts [put]
func (h *UserHandler) UpdateEmergencyContacts(c *gin.Context) {
	start := time.Now()
	defer func() {
		h.metrics.RecordMetrics(c, start)
	}()

	id, ok := identity(c, h.logger, "UpdateEmergencyContacts")
	if !ok {
		return
	}

	var req EmergencyInfoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Failed JSON parse in update emergency contacts", map[string]interface{}{
			"error": err.Error(),
		})
		newErrorResponse(c, http.StatusBadRequest, "Invalid JSON format")
		return
	}

	user, err := h.userService.UpdateEmergencyContacts(c.Request.Context(), id, req.Contacts, req.MedicalInfo)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}
