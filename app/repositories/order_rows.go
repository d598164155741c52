package repositories

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/kumarketplace/marketplace/app/models"
)

// orderRow is one row of the order ⋈ order_items left join. Item columns are
// null for an order without lines.
type orderRow struct {
	ID               uint
	UserID           uint
	UserEmail        *string
	ShippingName     string
	ShippingAddress1 string
	ShippingAddress2 *string
	ShippingCity     string
	ShippingState    string
	ShippingZip      string
	ShippingPhone    string
	Subtotal         decimal.Decimal
	Tax              decimal.Decimal
	ShippingFee      decimal.Decimal
	Total            decimal.Decimal
	Status           string
	OrderDate        time.Time

	ItemID       *uint
	ProductTitle *string
	ProductPrice decimal.NullDecimal
	ProductImage *string
	Quantity     *int
}

// groupOrderRows folds joined rows into orders with nested items. Orders keep
// the order in which they first appear; items keep row order.
func groupOrderRows(rows []orderRow) []models.Order {
	orders := make([]models.Order, 0)
	index := make(map[uint]int)

	for _, row := range rows {
		i, seen := index[row.ID]
		if !seen {
			i = len(orders)
			index[row.ID] = i
			orders = append(orders, row.header())
		}
		if item, ok := row.item(); ok {
			orders[i].Items = append(orders[i].Items, item)
		}
	}
	return orders
}

func (row orderRow) header() models.Order {
	return models.Order{
		ID:               row.ID,
		UserID:           row.UserID,
		UserEmail:        deref(row.UserEmail),
		ShippingName:     row.ShippingName,
		ShippingAddress1: row.ShippingAddress1,
		ShippingAddress2: deref(row.ShippingAddress2),
		ShippingCity:     row.ShippingCity,
		ShippingState:    row.ShippingState,
		ShippingZip:      row.ShippingZip,
		ShippingPhone:    row.ShippingPhone,
		Subtotal:         row.Subtotal,
		Tax:              row.Tax,
		ShippingFee:      row.ShippingFee,
		Total:            row.Total,
		Status:           row.Status,
		OrderDate:        row.OrderDate,
		Items:            []models.OrderItem{},
	}
}

func (row orderRow) item() (models.OrderItem, bool) {
	if row.ItemID == nil {
		return models.OrderItem{}, false
	}
	item := models.OrderItem{
		ID:           *row.ItemID,
		OrderID:      row.ID,
		ProductTitle: deref(row.ProductTitle),
		ProductImage: deref(row.ProductImage),
		Quantity:     1,
	}
	if row.ProductPrice.Valid {
		item.ProductPrice = row.ProductPrice.Decimal
	}
	if row.Quantity != nil {
		item.Quantity = *row.Quantity
	}
	return item, true
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
