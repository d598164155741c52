package controllers_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/kumarketplace/marketplace/app/controllers"
	"github.com/kumarketplace/marketplace/app/models"
	"github.com/kumarketplace/marketplace/app/repositories"
	"github.com/kumarketplace/marketplace/app/resources"
	"github.com/kumarketplace/marketplace/app/routes"
	"github.com/kumarketplace/marketplace/app/services"
	"github.com/kumarketplace/marketplace/internal/testdb"
	"github.com/kumarketplace/marketplace/pkg/auth"
	"github.com/kumarketplace/marketplace/pkg/bind"
	"github.com/kumarketplace/marketplace/pkg/middleware"
	"github.com/kumarketplace/marketplace/pkg/router"
	"github.com/kumarketplace/marketplace/pkg/testkit"
)

type countingNotifier struct{ n int }

func (c *countingNotifier) OrderPlaced(context.Context, models.Order) error {
	c.n++
	return nil
}

type api struct {
	h        http.Handler
	db       *gorm.DB
	users    *repositories.UserRepository
	tokens   *auth.Tokens
	notifier *countingNotifier
}

func newAPI(t *testing.T) *api {
	t.Helper()
	db := testdb.Open(t)

	users := repositories.NewUserRepository(db)
	orders := repositories.NewOrderRepository(db)
	tokens := auth.NewTokens("test-secret", time.Hour)
	notifier := &countingNotifier{}
	binder := bind.New(0)

	authSvc := services.NewAuthService(users, tokens)

	r := router.New()
	routes.Register(r, routes.Deps{
		Auth:          controllers.NewAuthController(authSvc, binder),
		Orders:        controllers.NewOrderController(services.NewOrderService(orders, notifier), binder),
		Admin:         controllers.NewAdminController(services.NewAdminService(users, orders, time.UTC), binder),
		Authenticator: tokens,
		Admins:        authSvc,
		AuthLimiter:   middleware.NewLimiter(1000, time.Minute),
		CORS:          middleware.DefaultCORSOptions("http://localhost:5500"),
	})

	return &api{h: r.Handler(), db: db, users: users, tokens: tokens, notifier: notifier}
}

func (a *api) do(t *testing.T, s testkit.Scenario) *httptest.ResponseRecorder {
	t.Helper()
	return testkit.Do(t, a.h, s)
}

// signup registers a customer and returns its token.
func (a *api) signup(t *testing.T, email string) string {
	t.Helper()
	rec := a.do(t, testkit.Scenario{
		Method: http.MethodPost,
		URL:    "/api/auth/signup",
		Body:   map[string]string{"fullname": "Jane Doe", "email": email, "password": "correct horse"},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var payload resources.AuthPayload
	testkit.DecodeJSON(t, rec, &payload)
	return payload.Token
}

func (a *api) admin(t *testing.T, email string) string {
	t.Helper()
	token := a.signup(t, email)
	require.NoError(t, a.users.SetAdmin(context.Background(), email, true))
	return token
}

func lamp() map[string]any {
	return map[string]any{
		"shipping": map[string]any{
			"name": "Jane Doe", "address1": "1 Main St", "city": "Lawrence",
			"state": "KS", "zip": "66045", "phone": "785-555-0100",
		},
		"items":       []map[string]any{{"title": "Lamp", "price": 19.99, "quantity": 2, "image": "lamp.png"}},
		"subtotal":    39.98,
		"tax":         3.20,
		"shippingFee": 5.00,
		"total":       48.18,
	}
}

func (a *api) place(t *testing.T, token string, body any) resources.Order {
	t.Helper()
	rec := a.do(t, testkit.Scenario{Method: http.MethodPost, URL: "/api/orders", Token: token, Body: body})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var o resources.Order
	testkit.DecodeJSON(t, rec, &o)
	return o
}

// ─── Auth ───────────────────────────────────────────────────────────────────

func TestAuthValidationScenarios(t *testing.T) {
	testkit.RunFile(t, newAPI(t).h, "testdata/auth_scenarios.json")
}

func TestSignupLoginMe(t *testing.T) {
	a := newAPI(t)

	rec := a.do(t, testkit.Scenario{
		Method: http.MethodPost,
		URL:    "/api/auth/signup",
		Body:   map[string]string{"fullname": "Jane Doe", "email": " Jane@Example.com", "password": "correct horse"},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created resources.AuthPayload
	testkit.DecodeJSON(t, rec, &created)
	assert.Equal(t, "User created successfully", created.Message)
	assert.Equal(t, "jane@example.com", created.User.Email)
	assert.NotContains(t, rec.Body.String(), "password")

	dup := a.do(t, testkit.Scenario{
		Method: http.MethodPost,
		URL:    "/api/auth/signup",
		Body:   map[string]string{"fullname": "Again", "email": "jane@example.com", "password": "correct horse"},
	})
	testkit.AssertError(t, dup, http.StatusConflict, "Email already in use")

	rec = a.do(t, testkit.Scenario{
		Method: http.MethodPost,
		URL:    "/api/auth/login",
		Body:   map[string]string{"email": "jane@example.com", "password": "correct horse"},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var login resources.AuthPayload
	testkit.DecodeJSON(t, rec, &login)
	assert.Equal(t, "Login successful", login.Message)

	testkit.Run(t, a.h,
		testkit.Scenario{
			Name:         "me",
			URL:          "/api/auth/me",
			Token:        login.Token,
			ExpectedCode: http.StatusOK,
			ExpectedBody: fmt.Sprintf(`{"user":{"id":%d,"full_name":"Jane Doe","email":"jane@example.com"}}`, created.User.ID),
		},
		testkit.Scenario{
			Name:         "wrong password",
			Method:       http.MethodPost,
			URL:          "/api/auth/login",
			Body:         map[string]string{"email": "jane@example.com", "password": "not the one"},
			ExpectedCode: http.StatusUnauthorized,
			ExpectedBody: `{"status":401,"error":"Invalid credentials"}`,
		},
		testkit.Scenario{
			Name:         "unknown email",
			Method:       http.MethodPost,
			URL:          "/api/auth/login",
			Body:         map[string]string{"email": "ghost@example.com", "password": "not the one"},
			ExpectedCode: http.StatusUnauthorized,
			ExpectedBody: `{"status":401,"error":"Invalid credentials"}`,
		},
	)
}

func TestSignupRejectsPasswordOverBcryptLimit(t *testing.T) {
	a := newAPI(t)

	rec := a.do(t, testkit.Scenario{
		Method: http.MethodPost,
		URL:    "/api/auth/signup",
		Body:   map[string]string{"fullname": "Jane Doe", "email": "jane@example.com", "password": strings.Repeat("x", 73)},
	})
	require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "Password must be at most 72 bytes")

	var n int64
	require.NoError(t, a.db.Model(&models.User{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestMeForDeletedUser(t *testing.T) {
	a := newAPI(t)
	token := a.signup(t, "jane@example.com")
	require.NoError(t, a.db.Where("email = ?", "jane@example.com").Delete(&models.User{}).Error)

	rec := a.do(t, testkit.Scenario{URL: "/api/auth/me", Token: token})
	testkit.AssertError(t, rec, http.StatusNotFound, "User not found")
}

func TestAuthRateLimit(t *testing.T) {
	db := testdb.Open(t)
	users := repositories.NewUserRepository(db)
	tokens := auth.NewTokens("test-secret", time.Hour)
	authSvc := services.NewAuthService(users, tokens)

	r := router.New()
	routes.RegisterAPI(r, routes.Deps{
		Auth:          controllers.NewAuthController(authSvc, bind.New(0)),
		Authenticator: tokens,
		Admins:        authSvc,
		AuthLimiter:   middleware.NewLimiter(2, time.Minute),
	})

	login := testkit.Scenario{
		Method: http.MethodPost,
		URL:    "/api/auth/login",
		Body:   map[string]string{"email": "ghost@example.com", "password": "whatever1"},
	}
	for i := 0; i < 2; i++ {
		assert.Equal(t, http.StatusUnauthorized, testkit.Do(t, r.Handler(), login).Code)
	}
	assert.Equal(t, http.StatusTooManyRequests, testkit.Do(t, r.Handler(), login).Code)
}

// ─── Identity ───────────────────────────────────────────────────────────────

func TestProtectedRoutesRequireToken(t *testing.T) {
	a := newAPI(t)
	expired, err := auth.NewTokens("test-secret", -time.Minute).Issue(1)
	require.NoError(t, err)
	forged, err := auth.NewTokens("other-secret", time.Hour).Issue(1)
	require.NoError(t, err)

	for _, url := range []string{"/api/orders", "/api/orders/1", "/api/auth/me", "/api/admin/users"} {
		testkit.AssertError(t, a.do(t, testkit.Scenario{URL: url}), http.StatusUnauthorized, "No token provided")
		assert.Equal(t, http.StatusUnauthorized, a.do(t, testkit.Scenario{URL: url, Token: "garbage"}).Code)
		assert.Equal(t, http.StatusUnauthorized, a.do(t, testkit.Scenario{URL: url, Token: expired}).Code)
		assert.Equal(t, http.StatusUnauthorized, a.do(t, testkit.Scenario{URL: url, Token: forged}).Code)
	}
}

func TestAdminRoutesRequireAdmin(t *testing.T) {
	a := newAPI(t)
	customer := a.signup(t, "jane@example.com")

	testkit.Run(t, a.h,
		testkit.Scenario{Name: "users", URL: "/api/admin/users", Token: customer, ExpectedCode: http.StatusForbidden},
		testkit.Scenario{Name: "orders", URL: "/api/admin/orders", Token: customer, ExpectedCode: http.StatusForbidden},
		testkit.Scenario{Name: "search", URL: "/api/admin/orders/search?phone=555", Token: customer, ExpectedCode: http.StatusForbidden},
		testkit.Scenario{
			Name: "status", Method: http.MethodPut, URL: "/api/admin/orders/1", Token: customer,
			Body: map[string]string{"status": "shipped"}, ExpectedCode: http.StatusForbidden,
		},
	)
}

func TestRevokedAdminLosesAccessImmediately(t *testing.T) {
	a := newAPI(t)
	token := a.admin(t, "boss@example.com")

	assert.Equal(t, http.StatusOK, a.do(t, testkit.Scenario{URL: "/api/admin/users", Token: token}).Code)
	require.NoError(t, a.users.SetAdmin(context.Background(), "boss@example.com", false))
	assert.Equal(t, http.StatusForbidden, a.do(t, testkit.Scenario{URL: "/api/admin/users", Token: token}).Code)
}

// ─── Orders ─────────────────────────────────────────────────────────────────

func TestPlaceOrder(t *testing.T) {
	a := newAPI(t)
	token := a.signup(t, "jane@example.com")

	o := a.place(t, token, lamp())

	assert.NotZero(t, o.ID)
	assert.Equal(t, "processing", o.Status)
	assert.Equal(t, 48.18, o.Total)
	assert.Equal(t, 3.2, o.Tax)
	assert.Equal(t, "1 Main St", o.Shipping.Address1)
	assert.Empty(t, o.UserEmail)
	require.Len(t, o.Items, 1)
	assert.Equal(t, resources.Item{ID: o.Items[0].ID, Title: "Lamp", Price: 19.99, Image: "lamp.png", Quantity: 2}, o.Items[0])
	assert.Equal(t, 1, a.notifier.n)
}

func TestPlaceOrderAcceptsTextPriceAndDefaultsQuantity(t *testing.T) {
	a := newAPI(t)
	token := a.signup(t, "jane@example.com")

	body := lamp()
	body["items"] = []map[string]any{{"title": "Lamp", "price": "19.99"}}
	o := a.place(t, token, body)

	require.Len(t, o.Items, 1)
	assert.Equal(t, 19.99, o.Items[0].Price)
	assert.Equal(t, 1, o.Items[0].Quantity)
}

func TestPlaceOrderTrimsPaddedShipping(t *testing.T) {
	a := newAPI(t)
	token := a.signup(t, " jane@example.com ")

	body := lamp()
	shipping := body["shipping"].(map[string]any)
	shipping["zip"] = " 66045 "
	shipping["phone"] = " 785-555-0100 "
	o := a.place(t, token, body)

	assert.Equal(t, "66045", o.Shipping.Zip)
	assert.Equal(t, "785-555-0100", o.Shipping.Phone)
}

func TestPlaceOrderRejectsSubCentAmounts(t *testing.T) {
	a := newAPI(t)
	token := a.signup(t, "jane@example.com")

	body := lamp()
	body["items"] = []map[string]any{{"title": "Lamp", "price": "0.001"}}
	body["shippingFee"] = 5.005

	rec := a.do(t, testkit.Scenario{Method: http.MethodPost, URL: "/api/orders", Token: token, Body: body})
	require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"items.0.price":"Invalid price"`)
	assert.Contains(t, rec.Body.String(), `"shippingFee":"Invalid shipping fee"`)
}

func TestPlaceOrderValidation(t *testing.T) {
	a := newAPI(t)
	token := a.signup(t, "jane@example.com")

	body := lamp()
	shipping := body["shipping"].(map[string]any)
	delete(shipping, "city")
	shipping["zip"] = "!"
	body["items"] = []map[string]any{{"title": "Lamp", "price": 0}, {"title": "", "price": 2, "quantity": -1}}
	body["tax"] = -1

	rec := a.do(t, testkit.Scenario{Method: http.MethodPost, URL: "/api/orders", Token: token, Body: body})
	require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())

	var got struct {
		Error  string            `json:"error"`
		Errors map[string]string `json:"errors"`
	}
	testkit.DecodeJSON(t, rec, &got)
	assert.Equal(t, "Validation failed", got.Error)
	assert.Equal(t, map[string]string{
		"shipping.city":    "City is required",
		"shipping.zip":     "Invalid zip code",
		"items.0.price":    "Invalid price",
		"items.1.title":    "Item title required",
		"items.1.quantity": "Invalid quantity",
		"tax":              "Invalid tax amount",
	}, got.Errors)

	var n int64
	require.NoError(t, a.db.Model(&models.Order{}).Count(&n).Error)
	assert.Zero(t, n)
	assert.Zero(t, a.notifier.n)
}

func TestPlaceOrderRejectsEmptyCartAndBadJSON(t *testing.T) {
	a := newAPI(t)
	token := a.signup(t, "jane@example.com")

	body := lamp()
	body["items"] = []map[string]any{}
	rec := a.do(t, testkit.Scenario{Method: http.MethodPost, URL: "/api/orders", Token: token, Body: body})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Order must contain at least one item")

	rec = a.do(t, testkit.Scenario{Method: http.MethodPost, URL: "/api/orders", Token: token, Body: `{"items":`})
	testkit.AssertError(t, rec, http.StatusBadRequest, "Invalid JSON body")
}

func TestListAndShowOwnOrders(t *testing.T) {
	a := newAPI(t)
	jane := a.signup(t, "jane@example.com")
	bob := a.signup(t, "bob@example.com")

	first := a.place(t, jane, lamp())
	second := a.place(t, jane, lamp())
	bobs := a.place(t, bob, lamp())

	var mine []resources.Order
	testkit.DecodeJSON(t, a.do(t, testkit.Scenario{URL: "/api/orders", Token: jane}), &mine)
	require.Len(t, mine, 2)
	assert.Equal(t, second.ID, mine[0].ID)
	assert.Equal(t, first.ID, mine[1].ID)
	assert.Len(t, mine[0].Items, 1)

	var one resources.Order
	rec := a.do(t, testkit.Scenario{URL: fmt.Sprintf("/api/orders/%d", first.ID), Token: jane})
	require.Equal(t, http.StatusOK, rec.Code)
	testkit.DecodeJSON(t, rec, &one)
	assert.Equal(t, first, one)

	testkit.Run(t, a.h,
		testkit.Scenario{
			Name: "other user's order", URL: fmt.Sprintf("/api/orders/%d", bobs.ID), Token: jane,
			ExpectedCode: http.StatusNotFound, ExpectedBody: `{"status":404,"error":"Order not found"}`,
		},
		testkit.Scenario{
			Name: "missing order", URL: "/api/orders/99999", Token: jane,
			ExpectedCode: http.StatusNotFound, ExpectedBody: `{"status":404,"error":"Order not found"}`,
		},
		testkit.Scenario{
			Name: "non-numeric id", URL: "/api/orders/abc", Token: jane,
			ExpectedCode: http.StatusNotFound, ExpectedBody: `{"status":404,"error":"Order not found"}`,
		},
	)
}

func TestShowIsByteStable(t *testing.T) {
	a := newAPI(t)
	token := a.signup(t, "jane@example.com")
	o := a.place(t, token, lamp())

	url := fmt.Sprintf("/api/orders/%d", o.ID)
	first := a.do(t, testkit.Scenario{URL: url, Token: token}).Body.String()
	second := a.do(t, testkit.Scenario{URL: url, Token: token}).Body.String()
	assert.Equal(t, first, second)
}

func TestListMineEmpty(t *testing.T) {
	a := newAPI(t)
	token := a.signup(t, "jane@example.com")

	testkit.Run(t, a.h, testkit.Scenario{
		Name: "no orders", URL: "/api/orders", Token: token,
		ExpectedCode: http.StatusOK, ExpectedBody: `[]`,
	})
}

func TestCancelOrder(t *testing.T) {
	a := newAPI(t)
	jane := a.signup(t, "jane@example.com")
	bob := a.signup(t, "bob@example.com")
	o := a.place(t, jane, lamp())
	url := fmt.Sprintf("/api/orders/%d", o.ID)

	testkit.Run(t, a.h,
		testkit.Scenario{
			Name: "not the owner", Method: http.MethodDelete, URL: url, Token: bob,
			ExpectedCode: http.StatusNotFound, ExpectedBody: `{"status":404,"error":"Order not found"}`,
		},
		testkit.Scenario{
			Name: "owner cancels", Method: http.MethodDelete, URL: url, Token: jane,
			ExpectedCode: http.StatusOK, ExpectedBody: `{"message":"Order cancelled successfully"}`,
		},
		testkit.Scenario{
			Name: "second cancel", Method: http.MethodDelete, URL: url, Token: jane,
			ExpectedCode: http.StatusBadRequest,
			ExpectedBody: `{"status":400,"error":"Order cannot be cancelled at this stage"}`,
		},
		testkit.Scenario{
			Name: "status is cancelled", URL: url, Token: jane,
			ExpectedCode: http.StatusOK, Contains: []string{`"status":"cancelled"`},
		},
	)
}

// ─── Admin ──────────────────────────────────────────────────────────────────

func TestAdminUsersAndOrders(t *testing.T) {
	a := newAPI(t)
	jane := a.signup(t, "jane@example.com")
	boss := a.admin(t, "boss@example.com")
	a.place(t, jane, lamp())

	var users []resources.AdminUser
	testkit.DecodeJSON(t, a.do(t, testkit.Scenario{URL: "/api/admin/users", Token: boss}), &users)
	require.Len(t, users, 2)
	assert.Equal(t, "boss@example.com", users[0].Email)
	assert.True(t, users[0].IsAdmin)
	assert.False(t, users[1].IsAdmin)

	var orders []resources.Order
	testkit.DecodeJSON(t, a.do(t, testkit.Scenario{URL: "/api/admin/orders", Token: boss}), &orders)
	require.Len(t, orders, 1)
	assert.Equal(t, "jane@example.com", orders[0].UserEmail)
	assert.Len(t, orders[0].Items, 1)
}

func TestAdminSearch(t *testing.T) {
	a := newAPI(t)
	jane := a.signup(t, "jane@example.com")
	boss := a.admin(t, "boss@example.com")
	o := a.place(t, jane, lamp())
	today := o.Date.UTC().Format("2006-01-02")

	var found []resources.Order
	rec := a.do(t, testkit.Scenario{URL: "/api/admin/orders/search?date=" + today + "&phone=555", Token: boss})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	testkit.DecodeJSON(t, rec, &found)
	require.Len(t, found, 1)
	assert.Equal(t, o.ID, found[0].ID)
	assert.Equal(t, "jane@example.com", found[0].UserEmail)

	testkit.Run(t, a.h,
		testkit.Scenario{
			Name: "no filters", URL: "/api/admin/orders/search", Token: boss,
			ExpectedCode: http.StatusBadRequest,
			ExpectedBody: `{"status":400,"error":"Please provide date or phone number to search"}`,
		},
		testkit.Scenario{
			Name: "bad date", URL: "/api/admin/orders/search?date=01-15-2024", Token: boss,
			ExpectedCode: http.StatusBadRequest,
			Contains:     []string{`"date":"Invalid date format (use YYYY-MM-DD)"`},
		},
		testkit.Scenario{
			Name: "other day", URL: "/api/admin/orders/search?date=2000-01-01", Token: boss,
			ExpectedCode: http.StatusOK, ExpectedBody: `[]`,
		},
		testkit.Scenario{
			Name: "phone miss", URL: "/api/admin/orders/search?phone=000", Token: boss,
			ExpectedCode: http.StatusOK, ExpectedBody: `[]`,
		},
	)
}

func TestAdminUpdateStatus(t *testing.T) {
	a := newAPI(t)
	jane := a.signup(t, "jane@example.com")
	boss := a.admin(t, "boss@example.com")
	o := a.place(t, jane, lamp())
	url := fmt.Sprintf("/api/admin/orders/%d", o.ID)

	testkit.Run(t, a.h,
		testkit.Scenario{
			Name: "ship", Method: http.MethodPut, URL: url, Token: boss,
			Body:         map[string]string{"status": "shipped"},
			ExpectedCode: http.StatusOK, ExpectedBody: `{"message":"Order status updated"}`,
		},
		testkit.Scenario{
			Name: "owner sees new status", URL: fmt.Sprintf("/api/orders/%d", o.ID), Token: jane,
			ExpectedCode: http.StatusOK, Contains: []string{`"status":"shipped"`},
		},
		testkit.Scenario{
			Name: "owner can no longer cancel", Method: http.MethodDelete, URL: fmt.Sprintf("/api/orders/%d", o.ID), Token: jane,
			ExpectedCode: http.StatusBadRequest,
		},
		testkit.Scenario{
			Name: "missing status", Method: http.MethodPut, URL: url, Token: boss,
			Body:         map[string]string{},
			ExpectedCode: http.StatusBadRequest, Contains: []string{`"status":"Status is required"`},
		},
		testkit.Scenario{
			Name: "unknown order", Method: http.MethodPut, URL: "/api/admin/orders/99999", Token: boss,
			Body:         map[string]string{"status": "shipped"},
			ExpectedCode: http.StatusNotFound, ExpectedBody: `{"status":404,"error":"Order not found"}`,
		},
	)
}

// ─── Surface ────────────────────────────────────────────────────────────────

func TestUnknownRouteAndMethod(t *testing.T) {
	a := newAPI(t)

	testkit.Run(t, a.h,
		testkit.Scenario{Name: "unknown path", URL: "/api/nope", ExpectedCode: http.StatusNotFound},
		testkit.Scenario{Name: "wrong method", Method: http.MethodPatch, URL: "/api/auth/login", ExpectedCode: http.StatusMethodNotAllowed},
	)

	rec := a.do(t, testkit.Scenario{URL: "/api/nope"})
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}
