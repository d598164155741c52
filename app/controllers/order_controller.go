package controllers

import (
	"net/http"

	"github.com/kumarketplace/marketplace/app/resources"
	"github.com/kumarketplace/marketplace/app/services"
	"github.com/kumarketplace/marketplace/pkg/bind"
	"github.com/kumarketplace/marketplace/pkg/response"
)

type OrderController struct {
	service *services.OrderService
	bind    bind.Binder
}

func NewOrderController(service *services.OrderService, binder bind.Binder) *OrderController {
	return &OrderController{service: service, bind: binder}
}

// Store handles POST /api/orders.
func (c *OrderController) Store(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	var in services.PlaceOrderInput
	if err := c.bind.JSON(w, r, &in); err != nil {
		response.Fail(w, r, err)
		return
	}

	order, err := c.service.Place(r.Context(), userID, in)
	if err != nil {
		response.Fail(w, r, err)
		return
	}
	response.Created(w, resources.NewOrder(order))
}

// Index handles GET /api/orders.
func (c *OrderController) Index(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	orders, err := c.service.ListMine(r.Context(), userID)
	if err != nil {
		response.Fail(w, r, err)
		return
	}
	response.Success(w, resources.NewOrders(orders))
}

// Show handles GET /api/orders/{id}.
func (c *OrderController) Show(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := orderID(w, r)
	if !ok {
		return
	}

	order, err := c.service.Get(r.Context(), userID, id)
	if err != nil {
		response.Fail(w, r, err)
		return
	}
	response.Success(w, resources.NewOrder(order))
}

// Cancel handles DELETE /api/orders/{id}.
func (c *OrderController) Cancel(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := orderID(w, r)
	if !ok {
		return
	}

	if err := c.service.Cancel(r.Context(), userID, id); err != nil {
		response.Fail(w, r, err)
		return
	}
	response.Message(w, "Order cancelled successfully")
}
