package models

// KitchenOrderItem mirrors a line of a kitchen service order
type KitchenOrderItem struct {
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unitPrice"`
}

// KitchenOrder mirrors the kitchen service order contract
type KitchenOrder struct {
	ID        string             `json:"id"`
	Items     []KitchenOrderItem `json:"items"`
	Total     float64            `json:"total"`
	Status    string             `json:"status"`
	OrderDate string             `json:"orderDate"`
}

// UpdateOrderStatusRequest is the body of PUT /orders/{id}/status
type UpdateOrderStatusRequest struct {
	Status    string `json:"status"`
	UpdatedBy string `json:"updatedBy,omitempty"`
	UserName  string `json:"userName,omitempty"`
	Notes     string `json:"notes,omitempty"`
}

// DashboardTotals is the analytics service's aggregate block
type DashboardTotals struct {
	TotalOrders     int     `json:"totalOrders"`
	TotalRevenue    float64 `json:"totalRevenue"`
	AvgOrderValue   float64 `json:"avgOrderValue"`
	PendingOrders   int     `json:"pendingOrders"`
	AcceptedOrders  int     `json:"acceptedOrders"`
	PreparingOrders int     `json:"preparingOrders"`
	ReadyOrders     int     `json:"readyOrders"`
	CancelledOrders int     `json:"cancelledOrders"`
}

// StatusCount is one entry of the orders-by-status breakdown
type StatusCount struct {
	Status string `json:"status"`
	Count  int    `json:"count"`
}

// TopProduct is one entry of the best-sellers ranking
type TopProduct struct {
	ProductName string  `json:"productName"`
	Quantity    int     `json:"quantity"`
	Revenue     float64 `json:"revenue"`
}

// Actor identifies the staff member behind a status change
type Actor struct {
	ID   string
	Name string
}
