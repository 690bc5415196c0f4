package controllers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/fasttech-foods/backoffice-api/clients"
	"github.com/fasttech-foods/backoffice-api/middleware"
	"github.com/fasttech-foods/backoffice-api/models"
	"github.com/fasttech-foods/backoffice-api/utils"
	"github.com/gin-gonic/gin"
)

func respondOK(c *gin.Context, status int, data interface{}) {
	c.JSON(status, gin.H{
		"success": true,
		"data":    data,
	})
}

func respondFailure(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}

func respondBindingError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"success": false,
		"error": gin.H{
			"code":    "VALIDATION_ERROR",
			"message": "Invalid request data",
			"details": err.Error(),
		},
	})
}

// errorStatus maps an error from the service or client layer onto the response envelope
func errorStatus(err error) (int, string, string) {
	var (
		validationErr *models.ValidationError
		transitionErr *models.TransitionError
		fileErr       *utils.FileUploadError
		apiErr        *clients.APIError
		networkErr    *clients.NetworkError
	)

	switch {
	case errors.As(err, &validationErr):
		return http.StatusBadRequest, validationErr.Code, validationErr.Message
	case errors.As(err, &fileErr):
		return http.StatusBadRequest, fileErr.Code, fileErr.Message
	case errors.As(err, &transitionErr):
		return http.StatusConflict, "INVALID_TRANSITION", transitionErr.Error()
	case errors.Is(err, models.ErrOrderNotFound):
		return http.StatusNotFound, "ORDER_NOT_FOUND", "Order not found"
	case errors.Is(err, models.ErrEmployeeExists):
		return http.StatusConflict, "EMPLOYEE_EXISTS", "An employee with this email already exists"
	case errors.Is(err, models.ErrNotAuthenticated):
		return http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required"
	case errors.As(err, &apiErr):
		switch apiErr.StatusCode {
		case http.StatusUnauthorized:
			return http.StatusUnauthorized, "UNAUTHORIZED", apiErr.Message
		case http.StatusForbidden:
			return http.StatusForbidden, "FORBIDDEN", apiErr.Message
		case http.StatusNotFound:
			return http.StatusNotFound, "NOT_FOUND", apiErr.Message
		case http.StatusConflict:
			return http.StatusConflict, "CONFLICT", apiErr.Message
		default:
			return http.StatusBadGateway, "UPSTREAM_ERROR", apiErr.Message
		}
	case errors.As(err, &networkErr):
		return http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", networkErr.Error()
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error"
	}
}

// respondError logs the failure and writes the error envelope
func respondError(c *gin.Context, logger *slog.Logger, err error) {
	status, code, message := errorStatus(err)

	attrs := []interface{}{"method", c.Request.Method, "path", c.FullPath(), "status", status, "code", code, "error", err}
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", attrs...)
	} else {
		logger.Info("request rejected", attrs...)
	}

	respondFailure(c, status, code, message)
}

// currentSession returns the request's session, answering 401 when there is none
func currentSession(c *gin.Context) (*models.Session, bool) {
	session, err := middleware.GetSession(c)
	if err != nil {
		respondFailure(c, http.StatusUnauthorized, "UNAUTHORIZED", "Could not extract session information")
		return nil, false
	}
	return session, true
}
