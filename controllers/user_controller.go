package controllers

import (
	"log/slog"
	"net/http"

	"github.com/fasttech-foods/backoffice-api/middleware"
	"github.com/fasttech-foods/backoffice-api/models"
	"github.com/fasttech-foods/backoffice-api/services"
	"github.com/gin-gonic/gin"
)

// CreateEmployeeRequest represents the request body for registering a staff member.
// Field rules are checked by the employee service so each failure gets its own code.
type CreateEmployeeRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	CPF      string `json:"cpf"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// UserController manages staff accounts
type UserController struct {
	employees *services.EmployeeService
	logger    *slog.Logger
}

// NewUserController creates a user controller
func NewUserController(employees *services.EmployeeService, logger *slog.Logger) *UserController {
	return &UserController{employees: employees, logger: logger}
}

// ListEmployees handles GET /api/v1/users - the staff directory, newest first
func (ctl *UserController) ListEmployees(c *gin.Context) {
	employees, err := ctl.employees.List(c.Request.Context())
	if err != nil {
		respondError(c, ctl.logger, err)
		return
	}
	respondOK(c, http.StatusOK, employees)
}

// CreateEmployee handles POST /api/v1/users - registers a staff account with the
// identity service and records it in the directory
func (ctl *UserController) CreateEmployee(c *gin.Context) {
	var req CreateEmployeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	employee, err := ctl.employees.Create(c.Request.Context(), middleware.GetActor(c), models.RegisterRequest{
		Name:     req.Name,
		Email:    req.Email,
		CPF:      req.CPF,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		respondError(c, ctl.logger, err)
		return
	}
	respondOK(c, http.StatusCreated, employee)
}

// GetMyProfile handles GET /api/v1/users/me - the signed-in user as the session knows them
func (ctl *UserController) GetMyProfile(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}
	if session.User == nil {
		respondFailure(c, http.StatusUnauthorized, "UNAUTHORIZED", "Could not extract user information")
		return
	}

	respondOK(c, http.StatusOK, gin.H{
		"user":         session.User,
		"primary_role": session.User.PrimaryRole(),
		"stateless":    session.Stateless,
	})
}
