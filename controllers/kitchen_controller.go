package controllers

import (
	"log/slog"
	"net/http"

	"github.com/fasttech-foods/backoffice-api/middleware"
	"github.com/fasttech-foods/backoffice-api/services"
	"github.com/gin-gonic/gin"
)

// KitchenActionRequest is a button press on the order board
type KitchenActionRequest struct {
	Action string `json:"action" binding:"required"`
	Code   string `json:"code"`
}

// KitchenController serves the staff order board
type KitchenController struct {
	kitchen *services.KitchenService
	logger  *slog.Logger
}

// NewKitchenController creates a kitchen controller
func NewKitchenController(kitchen *services.KitchenService, logger *slog.Logger) *KitchenController {
	return &KitchenController{kitchen: kitchen, logger: logger}
}

// ListOrders handles GET /api/v1/kitchen/orders?status=
func (ctl *KitchenController) ListOrders(c *gin.Context) {
	board, err := ctl.kitchen.ListOrders(c.Request.Context(), c.Query("status"))
	if err != nil {
		respondError(c, ctl.logger, err)
		return
	}
	respondOK(c, http.StatusOK, board)
}

// PendingOrders handles GET /api/v1/kitchen/orders/pending
func (ctl *KitchenController) PendingOrders(c *gin.Context) {
	orders, err := ctl.kitchen.PendingOrders(c.Request.Context())
	if err != nil {
		respondError(c, ctl.logger, err)
		return
	}
	respondOK(c, http.StatusOK, orders)
}

// PerformAction handles POST /api/v1/kitchen/orders/:id/actions
func (ctl *KitchenController) PerformAction(c *gin.Context) {
	var req KitchenActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	board, err := ctl.kitchen.PerformAction(c.Request.Context(), middleware.GetActor(c), c.Param("id"), req.Action, req.Code)
	if err != nil {
		respondError(c, ctl.logger, err)
		return
	}
	respondOK(c, http.StatusOK, board)
}
