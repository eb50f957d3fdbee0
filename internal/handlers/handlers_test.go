package handlers_test

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Windi-Fikriyansyah/platform_jasa/internal/handlers"
	"github.com/Windi-Fikriyansyah/platform_jasa/internal/middleware"
	"github.com/Windi-Fikriyansyah/platform_jasa/internal/repository/repositorytest"
	"github.com/Windi-Fikriyansyah/platform_jasa/internal/services/accounts"
	"github.com/Windi-Fikriyansyah/platform_jasa/internal/services/booking"
	"github.com/Windi-Fikriyansyah/platform_jasa/internal/services/catalog"
	"github.com/Windi-Fikriyansyah/platform_jasa/internal/services/dashboard"
	"github.com/Windi-Fikriyansyah/platform_jasa/internal/services/esewa"
)

const jwtSecret = "handler-test-secret"

type env struct {
	app   *fiber.App
	store *repositorytest.Store
	gw    *esewa.EsewaService
}

func newEnv(t *testing.T) *env {
	t.Helper()
	store := repositorytest.New()
	cat := catalog.New(store)
	acc := accounts.New(store, cat)
	n := 0
	gw := &esewa.EsewaService{
		SecretKey:      "8gBm/:&EnhH.1/q",
		ProductCode:    "EPAYTEST",
		FormURL:        "https://rc-epay.esewa.com.np/api/epay/main/v2/form",
		VerifyResponse: true,
		NewTransactionID: func() string {
			n++
			return fmt.Sprintf("txn-%d", n)
		},
	}
	engine := booking.NewEngine(store, gw, nil)
	auth := &handlers.AuthHandler{Accounts: acc, JWTSecret: jwtSecret, Expires: 60}

	r := &handlers.Router{
		Auth:      auth,
		Profile:   handlers.NewProfileHandler(acc),
		Catalog:   handlers.NewCatalogHandler(cat),
		Booking:   handlers.NewBookingHandler(engine, "http://api.test"),
		Payment:   handlers.NewPaymentHandler(engine),
		Dashboard: handlers.NewDashboardHandler(dashboard.New(store, engine)),
		Actors:    acc,
		JWTSecret: jwtSecret,
	}
	require.NoError(t, acc.SeedAdmin(context.Background(), "admin", "admin@example.com", "admin-pass-123"))
	return &env{app: r.NewApp(), store: store, gw: gw}
}

type envelope struct {
	Success  bool                `json:"success"`
	Message  string              `json:"message"`
	Data     json.RawMessage     `json:"data"`
	Errors   map[string][]string `json:"errors"`
	Redirect string              `json:"redirect"`
	RetryURL string              `json:"retry_url"`
}

func (e *env) do(t *testing.T, method, path string, body interface{}, token string) (int, envelope, *http.Response) {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.AddCookie(&http.Cookie{Name: middleware.TokenCookie, Value: token})
	}
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out envelope
	_ = json.Unmarshal(raw, &out)
	return resp.StatusCode, out, resp
}

func sessionToken(t *testing.T, resp *http.Response) string {
	t.Helper()
	for _, c := range resp.Cookies() {
		if c.Name == middleware.TokenCookie {
			return c.Value
		}
	}
	t.Fatal("no session cookie")
	return ""
}

func (e *env) login(t *testing.T, login, password string) string {
	t.Helper()
	code, _, resp := e.do(t, http.MethodPost, "/api/auth/login", fiber.Map{"login": login, "password": password}, "")
	require.Equal(t, http.StatusOK, code)
	return sessionToken(t, resp)
}

type marketplace struct {
	provider, customer string
	serviceID          uint
}

func (e *env) seed(t *testing.T) marketplace {
	t.Helper()
	code, body, resp := e.do(t, http.MethodPost, "/api/auth/register", fiber.Map{
		"username":         "hari",
		"email":            "hari@example.com",
		"password":         "plumber-pass",
		"role":             "provider",
		"service_name":     []string{"Tap fitting", "Broken"},
		"service_category": []string{"Plumbing", "Gardening"},
		"service_price":    []string{"800", "100"},
	}, "")
	require.Equal(t, http.StatusCreated, code, body.Message)
	provider := sessionToken(t, resp)

	var reg struct {
		Created []struct {
			ID uint `json:"id"`
		} `json:"services_created"`
		Skipped []catalog.SkippedLine `json:"services_skipped"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &reg))
	require.Len(t, reg.Created, 1)
	require.Len(t, reg.Skipped, 1)

	code, _, resp = e.do(t, http.MethodPost, "/api/auth/register", fiber.Map{
		"username": "ram",
		"email":    "ram@example.com",
		"password": "customer-pass",
		"role":     "customer",
	}, "")
	require.Equal(t, http.StatusCreated, code)

	return marketplace{provider: provider, customer: sessionToken(t, resp), serviceID: reg.Created[0].ID}
}

func (e *env) book(t *testing.T, m marketplace, method string) uint {
	t.Helper()
	code, body, _ := e.do(t, http.MethodPost, fmt.Sprintf("/api/services/%d/bookings", m.serviceID), fiber.Map{
		"date":           "2026-11-01",
		"time":           "10:30",
		"address":        "Baneshwor, Kathmandu",
		"phone_number":   "9800000000",
		"payment_method": method,
	}, m.customer)
	require.Equal(t, http.StatusCreated, code, body.Message)
	var b struct {
		ID uint `json:"id"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &b))
	return b.ID
}

type bookingView struct {
	Status          string `json:"status"`
	PaymentStatus   string `json:"payment_status"`
	PaymentReceived bool   `json:"payment_received"`
}

func (e *env) bookingState(t *testing.T, id uint) bookingView {
	t.Helper()
	b, err := e.store.FindBooking(context.Background(), id)
	require.NoError(t, err)
	return bookingView{Status: string(b.Status), PaymentStatus: string(b.PaymentStatus), PaymentReceived: b.PaymentReceived}
}

func TestAuthFlow(t *testing.T) {
	e := newEnv(t)
	m := e.seed(t)

	code, body, _ := e.do(t, http.MethodGet, "/api/me", nil, m.customer)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(body.Data), `"username":"ram"`)

	code, _, _ = e.do(t, http.MethodGet, "/api/me", nil, "")
	assert.Equal(t, http.StatusUnauthorized, code)

	code, body, _ = e.do(t, http.MethodPost, "/api/auth/login", fiber.Map{"login": "ram", "password": "wrong-pass"}, "")
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.False(t, body.Success)

	code, body, _ = e.do(t, http.MethodPost, "/api/auth/register", fiber.Map{"username": "ram", "email": "x", "password": "short", "role": "customer"}, "")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, body.Errors, "username")
	assert.Contains(t, body.Errors, "password")

	e.login(t, "ram@example.com", "customer-pass")

	code, _, _ = e.do(t, http.MethodPut, "/api/me", fiber.Map{"email": "ram@new.example.com", "first_name": "Ram"}, m.customer)
	assert.Equal(t, http.StatusOK, code)
	code, _, _ = e.do(t, http.MethodPost, "/api/me/password", fiber.Map{
		"old_password": "customer-pass", "new_password": "brand-new-pass", "confirm_password": "brand-new-pass",
	}, m.customer)
	assert.Equal(t, http.StatusOK, code)
	e.login(t, "ram", "brand-new-pass")
}

func TestCatalogRoutes(t *testing.T) {
	e := newEnv(t)
	m := e.seed(t)

	code, body, _ := e.do(t, http.MethodGet, "/api/services?search=tap", nil, "")
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(body.Data), "Tap fitting")

	code, _, _ = e.do(t, http.MethodGet, "/api/services?category=gardening", nil, "")
	assert.Equal(t, http.StatusBadRequest, code)

	code, body, _ = e.do(t, http.MethodGet, "/api/services/category/plumbing", nil, "")
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(body.Data), `"service_count":1`)

	code, _, _ = e.do(t, http.MethodGet, "/api/services/providers", nil, "")
	assert.Equal(t, http.StatusOK, code)

	code, _, _ = e.do(t, http.MethodGet, fmt.Sprintf("/api/services/%d", m.serviceID), nil, "")
	assert.Equal(t, http.StatusOK, code)

	code, body, _ = e.do(t, http.MethodGet, "/api/services/999", nil, "")
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "/", body.Redirect)

	code, _, _ = e.do(t, http.MethodPost, "/api/services", fiber.Map{"name": "Sofa clean", "category": "Cleaning", "price": "1500"}, m.customer)
	assert.Equal(t, http.StatusForbidden, code)
	code, _, _ = e.do(t, http.MethodPost, "/api/services", fiber.Map{"name": "Sofa clean", "category": "Cleaning", "price": "1500"}, m.provider)
	assert.Equal(t, http.StatusCreated, code)

	code, body, _ = e.do(t, http.MethodPatch, fmt.Sprintf("/api/services/%d/availability", m.serviceID), nil, m.provider)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(body.Data), `"is_available":false`)
}

func TestCashBookingLifecycle(t *testing.T) {
	e := newEnv(t)
	m := e.seed(t)
	id := e.book(t, m, "")

	code, body, _ := e.do(t, http.MethodPost, fmt.Sprintf("/api/provider/bookings/%d/payment-received", id), nil, m.provider)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "/provider/bookings", body.Redirect)

	code, _, _ = e.do(t, http.MethodPost, fmt.Sprintf("/api/bookings/%d/payment", id), nil, m.customer)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Paid", e.bookingState(t, id).PaymentStatus)

	code, _, _ = e.do(t, http.MethodPatch, fmt.Sprintf("/api/provider/bookings/%d/status", id), fiber.Map{"status": "Accepted"}, m.customer)
	assert.Equal(t, http.StatusForbidden, code)

	code, _, _ = e.do(t, http.MethodPatch, fmt.Sprintf("/api/provider/bookings/%d/status", id), fiber.Map{"status": "Accepted"}, m.provider)
	require.Equal(t, http.StatusOK, code)
	code, _, _ = e.do(t, http.MethodPatch, fmt.Sprintf("/api/provider/bookings/%d/status", id), fiber.Map{"status": "Pending"}, m.provider)
	assert.Equal(t, http.StatusConflict, code)
	code, _, _ = e.do(t, http.MethodPatch, fmt.Sprintf("/api/provider/bookings/%d/status", id), fiber.Map{"status": "Completed"}, m.provider)
	require.Equal(t, http.StatusOK, code)

	code, _, _ = e.do(t, http.MethodPost, fmt.Sprintf("/api/provider/bookings/%d/payment-received", id), nil, m.provider)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, bookingView{Status: "Completed", PaymentStatus: "Received", PaymentReceived: true}, e.bookingState(t, id))

	code, body, _ = e.do(t, http.MethodGet, "/api/provider/bookings", nil, m.provider)
	require.Equal(t, http.StatusOK, code)
	var overview struct {
		Stats struct {
			Completed int64 `json:"completed_bookings"`
			Earnings  int64 `json:"total_earnings"`
		} `json:"stats"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &overview))
	assert.Equal(t, int64(1), overview.Stats.Completed)
	assert.Equal(t, int64(800), overview.Stats.Earnings)

	code, body, _ = e.do(t, http.MethodGet, "/api/bookings/mine", nil, m.customer)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(body.Data), `"payment_status":"Received"`)
}

func (e *env) callbackData(t *testing.T, txn, status string) string {
	t.Helper()
	fields := map[string]string{
		"transaction_code":   "000AWEO",
		"status":             status,
		"total_amount":       "800.0",
		"transaction_uuid":   txn,
		"product_code":       "EPAYTEST",
		"signed_field_names": "transaction_code,status,total_amount,transaction_uuid,product_code,signed_field_names",
	}
	var parts []string
	for _, k := range strings.Split(fields["signed_field_names"], ",") {
		parts = append(parts, k+"="+fields[k])
	}
	fields["signature"] = e.gw.Sign(strings.Join(parts, ","))
	raw, err := json.Marshal(fields)
	require.NoError(t, err)
	return base64.StdEncoding.EncodeToString(raw)
}

func TestEsewaPaymentFlow(t *testing.T) {
	e := newEnv(t)
	m := e.seed(t)
	id := e.book(t, m, "Esewa")

	code, body, _ := e.do(t, http.MethodPost, fmt.Sprintf("/api/bookings/%d/payment", id), nil, m.customer)
	require.Equal(t, http.StatusOK, code)
	var out struct {
		Gateway esewa.PaymentRequest `json:"gateway"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &out))
	assert.Equal(t, "txn-1", out.Gateway.TransactionUUID)
	assert.Equal(t, fmt.Sprintf("http://api.test/api/payments/esewa/%d/success", id), out.Gateway.SuccessURL)
	assert.Equal(t, "Pending", e.bookingState(t, id).PaymentStatus)

	success := fmt.Sprintf("/api/payments/esewa/%d/success", id)

	code, _, _ = e.do(t, http.MethodGet, success, nil, "")
	assert.Equal(t, http.StatusBadRequest, code)

	code, _, _ = e.do(t, http.MethodGet, success+"?data=not-base64!!", nil, "")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Pending", e.bookingState(t, id).PaymentStatus)

	code, body, _ = e.do(t, http.MethodGet, success+"?data="+url.QueryEscape(e.callbackData(t, "txn-1", "CANCELED")), nil, "")
	require.Equal(t, http.StatusOK, code)
	assert.False(t, body.Success)
	assert.Equal(t, fmt.Sprintf("/api/bookings/%d/payment", id), body.RetryURL)
	assert.Equal(t, "Failed", e.bookingState(t, id).PaymentStatus)

	code, body, _ = e.do(t, http.MethodGet, fmt.Sprintf("/api/payments/esewa/%d/failure", id), nil, "")
	assert.Equal(t, http.StatusOK, code)
	assert.NotEmpty(t, body.RetryURL)
	assert.Equal(t, "Failed", e.bookingState(t, id).PaymentStatus)

	code, _, _ = e.do(t, http.MethodPost, fmt.Sprintf("/api/bookings/%d/payment", id), nil, m.customer)
	require.Equal(t, http.StatusOK, code)

	code, body, _ = e.do(t, http.MethodGet, success+"?data="+url.QueryEscape(e.callbackData(t, "txn-2", "COMPLETE")), nil, "")
	require.Equal(t, http.StatusOK, code)
	assert.True(t, body.Success)
	assert.Equal(t, "Paid", e.bookingState(t, id).PaymentStatus)

	attempts := e.store.Attempts(id)
	require.Len(t, attempts, 2)

	cashID := e.book(t, m, "Cash")
	replay := fmt.Sprintf("/api/payments/esewa/%d/success?data=%s", cashID, url.QueryEscape(e.callbackData(t, "txn-2", "COMPLETE")))
	code, body, _ = e.do(t, http.MethodGet, replay, nil, "")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.False(t, body.Success)
	assert.Equal(t, "Pending", e.bookingState(t, cashID).PaymentStatus)
}

func TestAdminDashboard(t *testing.T) {
	e := newEnv(t)
	m := e.seed(t)
	id := e.book(t, m, "Cash")
	admin := e.login(t, "admin", "admin-pass-123")

	code, _, _ := e.do(t, http.MethodGet, "/api/admin/", nil, m.customer)
	assert.Equal(t, http.StatusForbidden, code)

	code, body, _ := e.do(t, http.MethodGet, "/api/admin/", nil, admin)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(body.Data), `"total_bookings":1`)

	code, body, _ = e.do(t, http.MethodGet, "/api/admin/providers", nil, admin)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(body.Data), `"username":"hari"`)
	assert.NotContains(t, string(body.Data), `"username":"ram"`)

	code, _, _ = e.do(t, http.MethodGet, "/api/admin/bookings/pending", nil, admin)
	assert.Equal(t, http.StatusOK, code)

	code, _, _ = e.do(t, http.MethodPatch, fmt.Sprintf("/api/admin/bookings/%d/status", id), fiber.Map{"status": "Not Available"}, admin)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, bookingView{Status: "Not Available", PaymentStatus: "Pending"}, e.bookingState(t, id))

	adminUser, err := e.store.FindUserByLogin(context.Background(), "admin")
	require.NoError(t, err)
	code, _, _ = e.do(t, http.MethodDelete, "/api/admin/users/"+adminUser.ID.String(), nil, admin)
	assert.Equal(t, http.StatusConflict, code)

	code, _, _ = e.do(t, http.MethodDelete, fmt.Sprintf("/api/admin/bookings/%d", id), nil, admin)
	assert.Equal(t, http.StatusOK, code)
	code, _, _ = e.do(t, http.MethodDelete, fmt.Sprintf("/api/admin/services/%d", m.serviceID), nil, admin)
	assert.Equal(t, http.StatusOK, code)
}
