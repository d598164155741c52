package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	StatusProcessing = "processing"
	StatusCancelled  = "cancelled"
)

// Order is a placed order header. Totals are stored exactly as submitted.
type Order struct {
	ID               uint            `gorm:"primaryKey"`
	UserID           uint            `gorm:"not null;index"`
	User             *User           `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	ShippingName     string          `gorm:"size:100;not null"`
	ShippingAddress1 string          `gorm:"size:200;not null"`
	ShippingAddress2 string          `gorm:"size:200;not null;default:''"`
	ShippingCity     string          `gorm:"size:100;not null"`
	ShippingState    string          `gorm:"size:50;not null"`
	ShippingZip      string          `gorm:"size:20;not null"`
	ShippingPhone    string          `gorm:"size:20;not null;index"`
	Subtotal         decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	Tax              decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	ShippingFee      decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	Total            decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	Status           string          `gorm:"size:50;not null;default:processing"`
	OrderDate        time.Time       `gorm:"not null;index"`
	Items            []OrderItem

	// UserEmail is filled by admin reads that join the owner.
	UserEmail string `gorm:"-"`
}

// OrderItem is one line of an order, a snapshot of the product at purchase time.
type OrderItem struct {
	ID           uint            `gorm:"primaryKey"`
	OrderID      uint            `gorm:"not null;index"`
	Order        *Order          `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	ProductTitle string          `gorm:"size:255;not null"`
	ProductPrice decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	ProductImage string          `gorm:"size:500;not null;default:''"`
	Quantity     int             `gorm:"not null;default:1"`
}

// Cancellable reports whether the owner may still cancel the order.
func (o Order) Cancellable() bool { return o.Status == StatusProcessing }
