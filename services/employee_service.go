package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"

	"github.com/fasttech-foods/backoffice-api/models"
	"gorm.io/gorm"
)

// Registrar creates accounts in the identity service
type Registrar interface {
	Register(ctx context.Context, req models.RegisterRequest) (*models.User, error)
}

// EmployeeService registers staff accounts and keeps the local directory used to list them
type EmployeeService struct {
	db       *gorm.DB
	identity Registrar
	logger   *slog.Logger
}

// NewEmployeeService creates an employee service
func NewEmployeeService(db *gorm.DB, identity Registrar, logger *slog.Logger) *EmployeeService {
	return &EmployeeService{db: db, identity: identity, logger: logger}
}

// List returns the directory, newest first
func (s *EmployeeService) List(ctx context.Context) ([]models.Employee, error) {
	var employees []models.Employee
	if err := s.db.WithContext(ctx).Order("created_at DESC, id DESC").Find(&employees).Error; err != nil {
		return nil, fmt.Errorf("failed to list employees: %w", err)
	}
	return employees, nil
}

func validateEmployee(req *models.RegisterRequest) error {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	if req.Name == "" || req.Email == "" || req.Password == "" {
		return &models.ValidationError{Code: "VALIDATION_ERROR", Message: "Name, email and password are required"}
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		return &models.ValidationError{Code: "INVALID_EMAIL", Message: "Email address is not valid"}
	}
	if len(req.Password) < 6 {
		return &models.ValidationError{Code: "WEAK_PASSWORD", Message: "Password must have at least 6 characters"}
	}

	if req.Role == "" {
		req.Role = models.RoleEmployee
	}
	for _, role := range models.StaffRoles {
		if strings.EqualFold(req.Role, role) {
			req.Role = role
			return nil
		}
	}
	return &models.ValidationError{
		Code:    "INVALID_ROLE",
		Message: fmt.Sprintf("Role must be one of %s", strings.Join(models.StaffRoles, ", ")),
	}
}

// Create registers the account with the identity service and records it in the directory
func (s *EmployeeService) Create(ctx context.Context, actor models.Actor, req models.RegisterRequest) (*models.Employee, error) {
	if err := validateEmployee(&req); err != nil {
		return nil, err
	}

	var existing int64
	if err := s.db.WithContext(ctx).Model(&models.Employee{}).Where("email = ?", req.Email).Count(&existing).Error; err != nil {
		return nil, fmt.Errorf("failed to check employee directory: %w", err)
	}
	if existing > 0 {
		return nil, models.ErrEmployeeExists
	}

	user, err := s.identity.Register(ctx, req)
	if err != nil {
		return nil, err
	}

	employee := models.Employee{
		IdentityID: user.ID,
		Name:       req.Name,
		Email:      req.Email,
		CPF:        req.CPF,
		Role:       req.Role,
		CreatedBy:  actor.ID,
	}
	if employee.IdentityID == "" {
		employee.IdentityID = req.Email
	}

	if err := s.db.WithContext(ctx).Create(&employee).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, models.ErrEmployeeExists
		}
		return nil, fmt.Errorf("failed to record employee: %w", err)
	}

	s.logger.Info("employee registered", "employee_id", employee.ID, "role", employee.Role, "created_by", actor.ID)
	return &employee, nil
}

// isUniqueViolation works for both PostgreSQL and SQLite
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate") || strings.Contains(msg, "unique")
}
