package controllers

import (
	"log/slog"
	"net/http"

	"github.com/fasttech-foods/backoffice-api/services"
	"github.com/gin-gonic/gin"
)

// DiagnosticsController exposes upstream health for administrators
type DiagnosticsController struct {
	diagnostics *services.DiagnosticsService
	logger      *slog.Logger
}

// NewDiagnosticsController creates a diagnostics controller
func NewDiagnosticsController(diagnostics *services.DiagnosticsService, logger *slog.Logger) *DiagnosticsController {
	return &DiagnosticsController{diagnostics: diagnostics, logger: logger}
}

// Upstreams handles GET /api/v1/diagnostics/upstreams. It always answers 200;
// unhealthy upstreams are reported in the body.
func (ctl *DiagnosticsController) Upstreams(c *gin.Context) {
	results := ctl.diagnostics.Upstreams(c.Request.Context())

	healthy := true
	for _, r := range results {
		healthy = healthy && r.Healthy
	}
	respondOK(c, http.StatusOK, gin.H{
		"healthy":   healthy,
		"upstreams": results,
	})
}

// Instance handles GET /api/v1/diagnostics/instance
func (ctl *DiagnosticsController) Instance(c *gin.Context) {
	info, err := ctl.diagnostics.Instance(c.Request.Context())
	if err != nil {
		respondError(c, ctl.logger, err)
		return
	}
	respondOK(c, http.StatusOK, info)
}

// AdminAccess handles GET /api/v1/diagnostics/admin
func (ctl *DiagnosticsController) AdminAccess(c *gin.Context) {
	access, err := ctl.diagnostics.AdminAccess(c.Request.Context())
	if err != nil {
		respondError(c, ctl.logger, err)
		return
	}
	respondOK(c, http.StatusOK, access)
}
