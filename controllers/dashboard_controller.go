package controllers

import (
	"log/slog"
	"net/http"

	"github.com/fasttech-foods/backoffice-api/services"
	"github.com/gin-gonic/gin"
)

// DashboardController serves the analytics page
type DashboardController struct {
	dashboard *services.DashboardService
	logger    *slog.Logger
}

// NewDashboardController creates a dashboard controller
func NewDashboardController(dashboard *services.DashboardService, logger *slog.Logger) *DashboardController {
	return &DashboardController{dashboard: dashboard, logger: logger}
}

// GetDashboard handles GET /api/v1/dashboard?range=today|week|month|all&status=
func (ctl *DashboardController) GetDashboard(c *gin.Context) {
	view, err := ctl.dashboard.Load(c.Request.Context(), c.Query("range"), c.Query("status"))
	if err != nil {
		respondError(c, ctl.logger, err)
		return
	}
	respondOK(c, http.StatusOK, view)
}
