package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kumarketplace/marketplace/app/models"
	"github.com/kumarketplace/marketplace/app/repositories"
	"github.com/kumarketplace/marketplace/pkg/apperr"
	"github.com/kumarketplace/marketplace/pkg/logger"
	"github.com/kumarketplace/marketplace/pkg/metrics"
)

// OrderStore is the persistence OrderService needs.
type OrderStore interface {
	Create(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id uint) (models.Order, error)
	FindForUser(ctx context.Context, id, userID uint) (models.Order, error)
	ListByUser(ctx context.Context, userID uint) ([]models.Order, error)
	Cancel(ctx context.Context, id, userID uint) error
}

// Notifier announces a committed order. It must not block on delivery.
type Notifier interface {
	OrderPlaced(ctx context.Context, order models.Order) error
}

type ShippingInput struct {
	Name     string `json:"name" validate:"required,max=100"`
	Address1 string `json:"address1" validate:"required,max=200" message:"Address is required"`
	Address2 string `json:"address2" validate:"nullable,max=200"`
	City     string `json:"city" validate:"required,max=100" message:"City is required"`
	State    string `json:"state" validate:"required,max=50" message:"State is required"`
	Zip      string `json:"zip" validate:"required,postcode" message:"Invalid zip code"`
	Phone    string `json:"phone" validate:"required,phone" message:"Invalid phone number"`
}

// ItemInput is one cart line. Price accepts a JSON number or a numeric string.
type ItemInput struct {
	Title    string          `json:"title" validate:"required,max=255" message:"Item title required"`
	Price    decimal.Decimal `json:"price" validate:"gt=0,decimals=2" message:"Invalid price"`
	Image    string          `json:"image" validate:"nullable,max=500"`
	Quantity *int            `json:"quantity" validate:"nullable,gt=0" message:"Invalid quantity"`
}

type PlaceOrderInput struct {
	Shipping    ShippingInput    `json:"shipping"`
	Items       []ItemInput      `json:"items" validate:"required" message:"Order must contain at least one item"`
	Subtotal    decimal.Decimal  `json:"subtotal" validate:"gt=0,decimals=2" message:"Invalid subtotal"`
	Tax         *decimal.Decimal `json:"tax" validate:"required,gte=0,decimals=2" message:"Invalid tax amount"`
	ShippingFee *decimal.Decimal `json:"shippingFee" validate:"required,gte=0,decimals=2" message:"Invalid shipping fee"`
	Total       decimal.Decimal  `json:"total" validate:"gt=0,decimals=2" message:"Invalid total amount"`
}

type OrderService struct {
	orders   OrderStore
	notifier Notifier
	now      func() time.Time
}

func NewOrderService(orders OrderStore, notifier Notifier) *OrderService {
	return &OrderService{orders: orders, notifier: notifier, now: time.Now}
}

// Place records a validated order for userID and returns it as stored.
// The admin notification is queued after commit; its failure never fails
// the order.
func (s *OrderService) Place(ctx context.Context, userID uint, in PlaceOrderInput) (models.Order, error) {
	if len(in.Items) == 0 {
		return models.Order{}, apperr.Invalid("Validation failed", map[string]string{
			"items": "Order must contain at least one item",
		})
	}

	order := newOrder(userID, in, s.now())
	if err := s.orders.Create(ctx, &order); err != nil {
		return models.Order{}, apperr.Internalf(err, "place order")
	}

	stored, err := s.orders.FindByID(ctx, order.ID)
	if err != nil {
		logger.WithCtx(ctx).Warn("order re-read failed, answering from write", "order_id", order.ID, "error", err)
		stored = order
	}

	metrics.OrdersCreated.Inc()
	logger.WithCtx(ctx).Info("order placed", "order_id", stored.ID, "user_id", userID, "items", len(stored.Items))

	if s.notifier != nil {
		if err := s.notifier.OrderPlaced(ctx, stored); err != nil {
			logger.WithCtx(ctx).Error("order notification not queued", "order_id", stored.ID, "error", err)
		}
	}
	return stored, nil
}

// ListMine returns the user's orders, newest first. No orders is an empty list.
func (s *OrderService) ListMine(ctx context.Context, userID uint) ([]models.Order, error) {
	orders, err := s.orders.ListByUser(ctx, userID)
	if err != nil {
		return nil, apperr.Internalf(err, "list orders")
	}
	return orders, nil
}

// Get returns one order owned by userID. Orders of other users are reported
// as missing.
func (s *OrderService) Get(ctx context.Context, userID, orderID uint) (models.Order, error) {
	order, err := s.orders.FindForUser(ctx, orderID, userID)
	if errors.Is(err, repositories.ErrNotFound) {
		return models.Order{}, apperr.New(apperr.NotFound, "Order not found")
	}
	if err != nil {
		return models.Order{}, apperr.Internalf(err, "get order")
	}
	return order, nil
}

// Cancel moves the user's order from processing to cancelled.
func (s *OrderService) Cancel(ctx context.Context, userID, orderID uint) error {
	err := s.orders.Cancel(ctx, orderID, userID)
	switch {
	case err == nil:
		metrics.OrderStatusChanges.WithLabelValues(models.StatusCancelled, "owner").Inc()
		logger.WithCtx(ctx).Info("order cancelled", "order_id", orderID, "user_id", userID)
		return nil
	case errors.Is(err, repositories.ErrNotFound):
		return apperr.New(apperr.NotFound, "Order not found")
	case errors.Is(err, repositories.ErrNotCancellable):
		return apperr.New(apperr.InvalidTransition, "Order cannot be cancelled at this stage")
	default:
		return apperr.Internalf(err, "cancel order")
	}
}

func newOrder(userID uint, in PlaceOrderInput, now time.Time) models.Order {
	items := make([]models.OrderItem, 0, len(in.Items))
	for _, it := range in.Items {
		qty := 1
		if it.Quantity != nil {
			qty = *it.Quantity
		}
		items = append(items, models.OrderItem{
			ProductTitle: strings.TrimSpace(it.Title),
			ProductPrice: it.Price,
			ProductImage: strings.TrimSpace(it.Image),
			Quantity:     qty,
		})
	}

	return models.Order{
		UserID:           userID,
		ShippingName:     strings.TrimSpace(in.Shipping.Name),
		ShippingAddress1: strings.TrimSpace(in.Shipping.Address1),
		ShippingAddress2: strings.TrimSpace(in.Shipping.Address2),
		ShippingCity:     strings.TrimSpace(in.Shipping.City),
		ShippingState:    strings.TrimSpace(in.Shipping.State),
		ShippingZip:      strings.TrimSpace(in.Shipping.Zip),
		ShippingPhone:    strings.TrimSpace(in.Shipping.Phone),
		Subtotal:         in.Subtotal,
		Tax:              amount(in.Tax),
		ShippingFee:      amount(in.ShippingFee),
		Total:            in.Total,
		Status:           models.StatusProcessing,
		OrderDate:        now,
		Items:            items,
	}
}

func amount(d *decimal.Decimal) decimal.Decimal {
	if d == nil {
		return decimal.Zero
	}
	return *d
}
