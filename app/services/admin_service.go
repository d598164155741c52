package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/kumarketplace/marketplace/app/models"
	"github.com/kumarketplace/marketplace/app/repositories"
	"github.com/kumarketplace/marketplace/pkg/apperr"
	"github.com/kumarketplace/marketplace/pkg/logger"
	"github.com/kumarketplace/marketplace/pkg/metrics"
	"github.com/kumarketplace/marketplace/pkg/validate"
)

const searchDateLayout = "2006-01-02"

type UserLister interface {
	List(ctx context.Context) ([]models.User, error)
}

// AdminOrderStore is the persistence AdminService needs.
type AdminOrderStore interface {
	ListAll(ctx context.Context) ([]models.Order, error)
	Search(ctx context.Context, f repositories.SearchFilter) ([]models.Order, error)
	UpdateStatus(ctx context.Context, id uint, status string) error
}

// SearchInput comes from the query string. Phone is a fragment, so only its
// alphabet is checked.
type SearchInput struct {
	Date  string `json:"date" validate:"nullable,date_format=2006-01-02" message:"Invalid date format (use YYYY-MM-DD)"`
	Phone string `json:"phone" validate:"nullable,max=20,regex=^[0-9+()\\-. ]+$" message:"Invalid phone number"`
}

type StatusInput struct {
	Status string `json:"status" validate:"required,max=50" message:"Status is required"`
}

type AdminService struct {
	users  UserLister
	orders AdminOrderStore
	loc    *time.Location
}

// NewAdminService returns an AdminService. Search dates are calendar days
// in loc; nil means time.Local.
func NewAdminService(users UserLister, orders AdminOrderStore, loc *time.Location) *AdminService {
	if loc == nil {
		loc = time.Local
	}
	return &AdminService{users: users, orders: orders, loc: loc}
}

// Users lists every account, newest first.
func (s *AdminService) Users(ctx context.Context) ([]models.User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, apperr.Internalf(err, "admin: list users")
	}
	return users, nil
}

// Orders lists every order with its owner's email, newest first.
func (s *AdminService) Orders(ctx context.Context) ([]models.Order, error) {
	orders, err := s.orders.ListAll(ctx)
	if err != nil {
		return nil, apperr.Internalf(err, "admin: list orders")
	}
	return orders, nil
}

// Search finds orders placed on a calendar day and/or whose shipping phone
// contains a fragment. At least one filter is required; both are AND-ed.
func (s *AdminService) Search(ctx context.Context, in SearchInput) ([]models.Order, error) {
	in.Date = strings.TrimSpace(in.Date)
	in.Phone = strings.TrimSpace(in.Phone)

	if in.Date == "" && in.Phone == "" {
		return nil, apperr.New(apperr.Validation, "Please provide date or phone number to search")
	}
	if errs := validate.Struct(in); validate.HasErrors(errs) {
		return nil, apperr.Invalid("Validation failed", errs)
	}

	filter := repositories.SearchFilter{Phone: in.Phone}
	if in.Date != "" {
		day, err := time.ParseInLocation(searchDateLayout, in.Date, s.loc)
		if err != nil {
			return nil, apperr.Invalid("Validation failed", map[string]string{
				"date": "Invalid date format (use YYYY-MM-DD)",
			})
		}
		filter.From = day
		filter.To = day.AddDate(0, 0, 1)
	}

	orders, err := s.orders.Search(ctx, filter)
	if err != nil {
		return nil, apperr.Internalf(err, "admin: search orders")
	}
	return orders, nil
}

// UpdateStatus overwrites an order's status with any value.
func (s *AdminService) UpdateStatus(ctx context.Context, orderID uint, in StatusInput) error {
	status := strings.TrimSpace(in.Status)
	if status == "" {
		return apperr.Invalid("Validation failed", map[string]string{"status": "Status is required"})
	}

	err := s.orders.UpdateStatus(ctx, orderID, status)
	if errors.Is(err, repositories.ErrNotFound) {
		return apperr.New(apperr.NotFound, "Order not found")
	}
	if err != nil {
		return apperr.Internalf(err, "admin: update status")
	}

	metrics.OrderStatusChanges.WithLabelValues(status, "admin").Inc()
	logger.WithCtx(ctx).Info("order status updated", "order_id", orderID, "status", status)
	return nil
}
