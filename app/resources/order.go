// Package resources shapes models into the JSON the API returns.
package resources

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/kumarketplace/marketplace/app/models"
)

type Shipping struct {
	Name     string `json:"name"`
	Address1 string `json:"address1"`
	Address2 string `json:"address2"`
	City     string `json:"city"`
	State    string `json:"state"`
	Zip      string `json:"zip"`
	Phone    string `json:"phone"`
}

type Item struct {
	ID       uint    `json:"id"`
	Title    string  `json:"title"`
	Price    float64 `json:"price"`
	Image    string  `json:"image"`
	Quantity int     `json:"quantity"`
}

// Order is the nested order shape shared by the customer and admin views.
// UserEmail is only present in admin responses.
type Order struct {
	ID          uint      `json:"id"`
	UserEmail   string    `json:"user_email,omitempty"`
	Date        time.Time `json:"date"`
	Status      string    `json:"status"`
	Shipping    Shipping  `json:"shipping"`
	Subtotal    float64   `json:"subtotal"`
	Tax         float64   `json:"tax"`
	ShippingFee float64   `json:"shippingFee"`
	Total       float64   `json:"total"`
	Items       []Item    `json:"items"`
}

func NewOrder(o models.Order) Order {
	items := make([]Item, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, Item{
			ID:       it.ID,
			Title:    it.ProductTitle,
			Price:    money(it.ProductPrice),
			Image:    it.ProductImage,
			Quantity: it.Quantity,
		})
	}

	return Order{
		ID:        o.ID,
		UserEmail: o.UserEmail,
		Date:      o.OrderDate,
		Status:    o.Status,
		Shipping: Shipping{
			Name:     o.ShippingName,
			Address1: o.ShippingAddress1,
			Address2: o.ShippingAddress2,
			City:     o.ShippingCity,
			State:    o.ShippingState,
			Zip:      o.ShippingZip,
			Phone:    o.ShippingPhone,
		},
		Subtotal:    money(o.Subtotal),
		Tax:         money(o.Tax),
		ShippingFee: money(o.ShippingFee),
		Total:       money(o.Total),
		Items:       items,
	}
}

func NewOrders(orders []models.Order) []Order {
	out := make([]Order, 0, len(orders))
	for _, o := range orders {
		out = append(out, NewOrder(o))
	}
	return out
}

// money renders a stored amount as a JSON number with cents precision.
func money(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}
