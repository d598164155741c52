package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/kumarketplace/marketplace/app/models"
)

// ErrNotCancellable is returned by Cancel when the order exists but has left
// the processing state.
var ErrNotCancellable = errors.New("repositories: order is not cancellable")

const orderColumns = "o.id, o.user_id, o.shipping_name, o.shipping_address1, o.shipping_address2, " +
	"o.shipping_city, o.shipping_state, o.shipping_zip, o.shipping_phone, " +
	"o.subtotal, o.tax, o.shipping_fee, o.total, o.status, o.order_date, " +
	"oi.id AS item_id, oi.product_title, oi.product_price, oi.product_image, oi.quantity"

// SearchFilter narrows the admin order search. A zero From disables the date
// range; an empty Phone disables the phone match.
type SearchFilter struct {
	From  time.Time
	To    time.Time
	Phone string
}

// OrderRepository handles database operations for Order and OrderItem.
type OrderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// Create inserts the header and every item in one transaction and fills in
// the generated ids. Nothing is written if any insert fails.
func (r *OrderRepository) Create(ctx context.Context, order *models.Order) error {
	order.OrderDate = order.OrderDate.UTC()
	items := order.Items

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(order).Error; err != nil {
			return fmt.Errorf("insert order: %w", err)
		}
		for i := range items {
			items[i].ID = 0
			items[i].OrderID = order.ID
		}
		if len(items) > 0 {
			if err := tx.Create(&items).Error; err != nil {
				return fmt.Errorf("insert order items: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	order.Items = items
	return nil
}

// FindByID loads one order with its items.
func (r *OrderRepository) FindByID(ctx context.Context, id uint) (models.Order, error) {
	return r.first(r.joined(ctx, false).Where("o.id = ?", id))
}

// FindForUser loads one order only if userID owns it.
func (r *OrderRepository) FindForUser(ctx context.Context, id, userID uint) (models.Order, error) {
	return r.first(r.joined(ctx, false).Where("o.id = ? AND o.user_id = ?", id, userID))
}

// ListByUser returns the user's orders, newest first, items loaded by a
// second query.
func (r *OrderRepository) ListByUser(ctx context.Context, userID uint) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("order_date DESC").Order("id DESC").
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Find(&orders).Error
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	for i := range orders {
		if orders[i].Items == nil {
			orders[i].Items = []models.OrderItem{}
		}
	}
	return orders, nil
}

// ListAll returns every order with its owner's email, newest first.
func (r *OrderRepository) ListAll(ctx context.Context) ([]models.Order, error) {
	return r.all(r.joined(ctx, true))
}

// Search returns the orders matching every set filter, newest first.
// Values are always bound, never spliced into the SQL.
func (r *OrderRepository) Search(ctx context.Context, f SearchFilter) ([]models.Order, error) {
	q := r.joined(ctx, true)
	if !f.From.IsZero() {
		q = q.Where("o.order_date >= ? AND o.order_date < ?", f.From.UTC(), f.To.UTC())
	}
	if f.Phone != "" {
		q = q.Where("o.shipping_phone LIKE ?", "%"+f.Phone+"%")
	}
	return r.all(q)
}

// Cancel moves a processing order owned by userID to cancelled. The state
// check and the write are one statement so concurrent cancels cannot both
// win. Returns ErrNotFound or ErrNotCancellable when nothing changed.
func (r *OrderRepository) Cancel(ctx context.Context, id, userID uint) error {
	res := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND user_id = ? AND status = ?", id, userID, models.StatusProcessing).
		Update("status", models.StatusCancelled)
	if res.Error != nil {
		return fmt.Errorf("cancel order: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		return nil
	}

	var statuses []string
	err := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND user_id = ?", id, userID).
		Limit(1).Pluck("status", &statuses).Error
	if err != nil {
		return fmt.Errorf("load order status: %w", err)
	}
	if len(statuses) == 0 {
		return ErrNotFound
	}
	return ErrNotCancellable
}

// UpdateStatus overwrites the status of any order.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id uint, status string) error {
	res := r.db.WithContext(ctx).Model(&models.Order{}).Where("id = ?", id).Update("status", status)
	if res.Error != nil {
		return fmt.Errorf("update order status: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		return nil
	}

	// Some drivers report zero affected rows when the value is unchanged.
	var n int64
	if err := r.db.WithContext(ctx).Model(&models.Order{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return fmt.Errorf("count orders: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *OrderRepository) joined(ctx context.Context, withOwner bool) *gorm.DB {
	q := r.db.WithContext(ctx).Table("orders AS o")
	cols := orderColumns
	if withOwner {
		q = q.Joins("JOIN users AS u ON u.id = o.user_id")
		cols += ", u.email AS user_email"
	}
	return q.Select(cols).
		Joins("LEFT JOIN order_items AS oi ON oi.order_id = o.id").
		Order("o.order_date DESC").Order("o.id DESC").Order("oi.id ASC")
}

func (r *OrderRepository) all(q *gorm.DB) ([]models.Order, error) {
	var rows []orderRow
	if err := q.Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("load orders: %w", err)
	}
	return groupOrderRows(rows), nil
}

func (r *OrderRepository) first(q *gorm.DB) (models.Order, error) {
	orders, err := r.all(q)
	if err != nil {
		return models.Order{}, err
	}
	if len(orders) == 0 {
		return models.Order{}, ErrNotFound
	}
	return orders[0], nil
}
