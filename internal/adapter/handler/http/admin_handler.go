package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sm8ta/safaride_ride_microservice/internal/core/ports"
	"github.com/sm8ta/safaride_ride_microservice/internal/core/services"
)

type AdminHandler struct {
	adminService *services.AdminService
	logger       ports.LoggerPort
	metrics      ports.MetricsPort
}

func NewAdminHandler(adminService *services.AdminService, logger ports.LoggerPort, metrics ports.MetricsPort) *AdminHandler {
	return &AdminHandler{
		adminService: adminService,
		logger:       logger,
		metrics:      metrics,
	}
}

// @Summary Admin dashboard
// @Description User, ride and verification totals
// @Tags admin
// @Security BearerAuth
// @Produce json
// @Success 200 {object} domain.DashboardStats
// @Failure 403 {object} errorResponse
// @Router /admin/dashboard [get]
func (h *AdminHandler) Dashboard(c *gin.Context) {
	start := time.Now()
	defer func() {
		h.metrics.RecordMetrics(c, start)
	}()

	id, ok := identity(c, h.logger, "Dashboard")
	if !ok {
		return
	}

	stats, err := h.adminService.Dashboard(c.Request.Context(), id)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}
