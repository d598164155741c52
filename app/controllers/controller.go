// Package controllers adapts HTTP requests to the services.
package controllers

import (
	"net/http"
	"strconv"

	"github.com/kumarketplace/marketplace/pkg/apperr"
	"github.com/kumarketplace/marketplace/pkg/middleware"
	"github.com/kumarketplace/marketplace/pkg/response"
	"github.com/kumarketplace/marketplace/pkg/router"
)

// currentUser returns the id set by the Authenticate middleware, answering
// 401 itself when there is none.
func currentUser(w http.ResponseWriter, r *http.Request) (uint, bool) {
	id, ok := middleware.UserIDFromCtx(r)
	if !ok {
		response.Fail(w, r, apperr.New(apperr.Unauthenticated, "No token provided"))
		return 0, false
	}
	return id, true
}

// orderID parses the {id} URL param. An id that cannot name an order is
// answered like a missing order.
func orderID(w http.ResponseWriter, r *http.Request) (uint, bool) {
	id, err := strconv.ParseUint(router.Param(r, "id"), 10, 64)
	if err != nil || id == 0 {
		response.Fail(w, r, apperr.New(apperr.NotFound, "Order not found"))
		return 0, false
	}
	return uint(id), true
}
