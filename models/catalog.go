package models

import (
	"strings"
)

// Category mirrors the catalog service contract
type Category struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	IsActive    bool   `json:"isActive"`
	CreatedDate string `json:"createdDate,omitempty"`
}

// Product mirrors the catalog service contract
type Product struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Description  string  `json:"description"`
	Price        float64 `json:"price"`
	Availability bool    `json:"availability"`
	CategoryID   string  `json:"categoryId"`
	ImageURL     string  `json:"imageUrl,omitempty"`
	CreatedDate  string  `json:"createdDate,omitempty"`
}

// Matches reports whether the search term occurs in the name or description, ignoring case.
// An empty term matches everything.
func (p *Product) Matches(term string) bool {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return true
	}
	return strings.Contains(strings.ToLower(p.Name), term) ||
		strings.Contains(strings.ToLower(p.Description), term)
}

// CategoryRequest is the body for creating or updating a category
type CategoryRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	IsActive    bool   `json:"isActive"`
}

// ProductRequest is the body for creating or updating a product
type ProductRequest struct {
	Name         string  `json:"name" form:"name" binding:"required"`
	Description  string  `json:"description" form:"description"`
	Price        float64 `json:"price" form:"price" binding:"gt=0"`
	Availability bool    `json:"availability" form:"availability"`
	CategoryID   string  `json:"categoryId" form:"categoryId" binding:"required"`
	ImageURL     string  `json:"imageUrl,omitempty" form:"-"`
}

// AvailabilityRequest toggles whether a product can be ordered
type AvailabilityRequest struct {
	Availability bool `json:"availability"`
}
