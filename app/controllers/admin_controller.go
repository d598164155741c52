package controllers

import (
	"net/http"

	"github.com/kumarketplace/marketplace/app/resources"
	"github.com/kumarketplace/marketplace/app/services"
	"github.com/kumarketplace/marketplace/pkg/bind"
	"github.com/kumarketplace/marketplace/pkg/response"
)

type AdminController struct {
	service *services.AdminService
	bind    bind.Binder
}

func NewAdminController(service *services.AdminService, binder bind.Binder) *AdminController {
	return &AdminController{service: service, bind: binder}
}

// Users handles GET /api/admin/users.
func (c *AdminController) Users(w http.ResponseWriter, r *http.Request) {
	users, err := c.service.Users(r.Context())
	if err != nil {
		response.Fail(w, r, err)
		return
	}
	response.Success(w, resources.NewAdminUsers(users))
}

// Orders handles GET /api/admin/orders.
func (c *AdminController) Orders(w http.ResponseWriter, r *http.Request) {
	orders, err := c.service.Orders(r.Context())
	if err != nil {
		response.Fail(w, r, err)
		return
	}
	response.Success(w, resources.NewOrders(orders))
}

// Search handles GET /api/admin/orders/search?date=YYYY-MM-DD&phone=....
func (c *AdminController) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	orders, err := c.service.Search(r.Context(), services.SearchInput{
		Date:  q.Get("date"),
		Phone: q.Get("phone"),
	})
	if err != nil {
		response.Fail(w, r, err)
		return
	}
	response.Success(w, resources.NewOrders(orders))
}

// UpdateStatus handles PUT /api/admin/orders/{id}.
func (c *AdminController) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := orderID(w, r)
	if !ok {
		return
	}

	var in services.StatusInput
	if err := c.bind.JSON(w, r, &in); err != nil {
		response.Fail(w, r, err)
		return
	}

	if err := c.service.UpdateStatus(r.Context(), id, in); err != nil {
		response.Fail(w, r, err)
		return
	}
	response.Message(w, "Order status updated")
}
