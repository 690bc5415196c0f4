package models

import (
	"time"

	"gorm.io/gorm"
)

// Employee is a staff account registered through the back office
type Employee struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	IdentityID string         `gorm:"uniqueIndex;not null" json:"identity_id"` // user id issued by the identity service
	Name       string         `gorm:"not null" json:"name"`
	Email      string         `gorm:"uniqueIndex;not null" json:"email"`
	CPF        string         `json:"cpf,omitempty"`
	Role       string         `gorm:"not null;default:'Employee'" json:"role"` // Employee, Manager or Admin
	CreatedBy  string         `json:"created_by"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for the Employee model
func (Employee) TableName() string {
	return "employees"
}

// RegisterRequest is the identity service's registration body
type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	CPF      string `json:"cpf,omitempty"`
	Password string `json:"password" binding:"required,min=6"`
	Name     string `json:"name" binding:"required"`
	Role     string `json:"role"`
}

// StaffRoles are the roles a manager may assign
var StaffRoles = []string{RoleEmployee, RoleManager, RoleAdmin}
