package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTableNames(t *testing.T) {
	assert.Equal(t, "employees", Employee{}.TableName())
	assert.Equal(t, "local_orders", Order{}.TableName())
	assert.Equal(t, "local_order_items", LineItem{}.TableName())
}

func TestStaffRoles(t *testing.T) {
	tests := []struct {
		name string
		role string
	}{
		{"employee role", RoleEmployee},
		{"manager role", RoleManager},
		{"admin role", RoleAdmin},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Contains(t, StaffRoles, tt.role)
		})
	}
	assert.NotContains(t, StaffRoles, RoleClient)
}
