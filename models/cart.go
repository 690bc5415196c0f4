package models

import (
	"github.com/shopspring/decimal"
)

// ProductRef is the slice of a catalog product that a cart needs
type ProductRef struct {
	ID        string          `json:"id" binding:"required"`
	Name      string          `json:"name" binding:"required"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// LineItem is a product with a quantity inside a cart or an order
type LineItem struct {
	ID        uint            `gorm:"primaryKey" json:"-"`
	OrderID   string          `gorm:"not null;index" json:"-"` // foreign key to local_orders
	ProductID string          `gorm:"not null" json:"product_id"`
	Name      string          `gorm:"not null" json:"name"`
	UnitPrice decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"unit_price"`
	Quantity  int             `gorm:"not null;check:quantity > 0" json:"quantity"`
}

// TableName specifies the table name for the LineItem model
func (LineItem) TableName() string {
	return "local_order_items"
}

// Total returns unit price times quantity
func (l LineItem) Total() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Cart holds the line items a session is about to order
type Cart struct {
	Items []LineItem `json:"items"`
}

// Add increments the quantity of an existing line or appends a new one with quantity 1
func (c *Cart) Add(product ProductRef) {
	for i := range c.Items {
		if c.Items[i].ProductID == product.ID {
			c.Items[i].Quantity++
			return
		}
	}
	c.Items = append(c.Items, LineItem{
		ProductID: product.ID,
		Name:      product.Name,
		UnitPrice: product.UnitPrice,
		Quantity:  1,
	})
}

// Remove decrements the quantity of a line, dropping it when it would reach zero.
// Unknown product ids are ignored.
func (c *Cart) Remove(productID string) {
	for i := range c.Items {
		if c.Items[i].ProductID != productID {
			continue
		}
		if c.Items[i].Quantity > 1 {
			c.Items[i].Quantity--
			return
		}
		c.Items = append(c.Items[:i], c.Items[i+1:]...)
		return
	}
}

// Subtotal is the sum of unit price times quantity over all lines
func (c *Cart) Subtotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range c.Items {
		total = total.Add(item.Total())
	}
	return total
}

// IsEmpty reports whether the cart has no lines
func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// Snapshot returns a copy of the lines that later cart changes cannot affect
func (c *Cart) Snapshot() []LineItem {
	items := make([]LineItem, len(c.Items))
	copy(items, c.Items)
	return items
}

// Clear empties the cart
func (c *Cart) Clear() {
	c.Items = nil
}
