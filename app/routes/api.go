package routes

import (
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/kumarketplace/marketplace/app/controllers"
	"github.com/kumarketplace/marketplace/pkg/metrics"
	"github.com/kumarketplace/marketplace/pkg/middleware"
	"github.com/kumarketplace/marketplace/pkg/rbac"
	"github.com/kumarketplace/marketplace/pkg/reqid"
	"github.com/kumarketplace/marketplace/pkg/response"
	"github.com/kumarketplace/marketplace/pkg/router"
)

// Deps is everything the route table needs. A zero Deps is enough to list
// the routes; serving requests needs every field.
type Deps struct {
	Auth   *controllers.AuthController
	Orders *controllers.OrderController
	Admin  *controllers.AdminController

	Authenticator middleware.Authenticator
	Admins        rbac.AdminChecker
	AuthLimiter   *middleware.Limiter

	CORS       middleware.CORSOptions
	HSTS       bool
	TrustProxy bool
	Health     http.HandlerFunc
}

// Register installs the global middleware stack and every route on r.
//
// Global middleware (outermost → innermost):
//  1. Prometheus metrics
//  2. Request ID
//  3. Logger
//  4. Recovery
//  5. Security headers
//  6. CORS
func Register(r *router.Router, d Deps) {
	if d.TrustProxy {
		r.Use(chimw.RealIP)
	}
	r.Use(metrics.Middleware())
	r.Use(reqid.Middleware())
	r.Use(middleware.Logger)
	r.Use(middleware.Recovery)
	r.Use(middleware.SecureHeaders(d.HSTS))
	r.Use(middleware.CORS(d.CORS))

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		response.NotFound(w)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		response.Error(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	if d.Health != nil {
		r.Get("/healthz", "health", d.Health)
	}
	r.Handle("/metrics", "metrics", metrics.Handler())

	RegisterAPI(r, d)
}

// RegisterAPI mounts the /api routes only.
func RegisterAPI(r *router.Router, d Deps) {
	api := r.Group("/api")

	var authMW []router.Middleware
	if d.AuthLimiter != nil {
		authMW = append(authMW, d.AuthLimiter.Middleware)
	}
	authGroup := api.Group("/auth", authMW...)
	authGroup.Post("/signup", "auth.signup", d.Auth.Signup)
	authGroup.Post("/login", "auth.login", d.Auth.Login)

	protected := api.Group("", middleware.Authenticate(d.Authenticator))
	protected.Get("/auth/me", "auth.me", d.Auth.Me, authMW...)

	orders := protected.Group("/orders")
	orders.Post("/", "orders.store", d.Orders.Store)
	orders.Get("/", "orders.index", d.Orders.Index)
	orders.Get("/{id}", "orders.show", d.Orders.Show)
	orders.Delete("/{id}", "orders.cancel", d.Orders.Cancel)

	admin := protected.Group("/admin", rbac.RequireAdmin(d.Admins))
	admin.Get("/users", "admin.users", d.Admin.Users)
	admin.Get("/orders", "admin.orders", d.Admin.Orders)
	admin.Get("/orders/search", "admin.orders.search", d.Admin.Search)
	admin.Put("/orders/{id}", "admin.orders.status", d.Admin.UpdateStatus)
}
