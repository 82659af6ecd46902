package httppresentation_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	apporder "github.com/skyvolt/storefront/internal/application/order"
	appotp "github.com/skyvolt/storefront/internal/application/otp"
	apppayment "github.com/skyvolt/storefront/internal/application/payment"
	"github.com/skyvolt/storefront/internal/domain/cart"
	domaininventory "github.com/skyvolt/storefront/internal/domain/inventory"
	"github.com/skyvolt/storefront/internal/infrastructure/id"
	"github.com/skyvolt/storefront/internal/infrastructure/memory"
	httppresentation "github.com/skyvolt/storefront/internal/presentation/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGateway struct {
	mu sync.Mutex
	n  int
}

func (g *fakeGateway) CreateIntent(_ context.Context, amount float64, currency, _ string) (*apppayment.Intent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return &apppayment.Intent{
		GatewayOrderID: fmt.Sprintf("rzp_order_%d", g.n),
		Amount:         amount,
		Currency:       currency,
	}, nil
}

func (g *fakeGateway) VerifySignature(_, _, signature string) bool {
	return signature == "good-signature"
}

func (g *fakeGateway) KeyID() string { return "rzp_test_key" }

type openLimiter struct{}

func (openLimiter) Allow(context.Context, string, int, time.Duration) (bool, error) {
	return true, nil
}

type closedLimiter struct{}

func (closedLimiter) Allow(context.Context, string, int, time.Duration) (bool, error) {
	return false, nil
}

type stack struct {
	carts   *memory.CartStore
	handler http.Handler
}

func newStack(t *testing.T, limiter appotp.RateLimiter) *stack {
	t.Helper()

	orders := memory.NewOrderStore()
	inventory := memory.NewInventoryStore()
	carts := memory.NewCartStore()
	addresses := memory.NewAddressStore()
	checkout := memory.NewCheckoutStore(orders, inventory, carts)
	payments := memory.NewPaymentStore(orders)
	otps := memory.NewOtpStore()
	idGen := id.NewUUIDGenerator()

	addresses.Seed(&apporder.Address{ID: "addr-1", UserID: "user-1", Name: "Asha", Line1: "12 MG Road", City: "Bengaluru", State: "KA", PostalCode: "560001", Phone: "9999999999"})
	item, err := domaininventory.NewItem("prod-1", 10, 2)
	require.NoError(t, err)
	inventory.Seed(item)
	carts.SetLines("user-1", []cart.Line{
		{ProductID: "prod-1", ProductName: "Widget", ProductActive: true, Quantity: 2, UnitPrice: 500},
	})

	orderSvc := apporder.NewService(orders, inventory, carts, addresses, checkout, idGen, nil, nil)
	adminSvc := apporder.NewAdminService(orders, nil)
	paymentSvc := apppayment.NewService(payments, orders, &fakeGateway{}, idGen, nil)
	otpSvc := appotp.NewService(otps, limiter, idGen, nil, nil)

	h := httppresentation.NewHandler(orderSvc, adminSvc, paymentSvc, otpSvc, nil, nil)
	return &stack{carts: carts, handler: h.Router()}
}

func (s *stack) do(t *testing.T, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func userHeaders() map[string]string {
	return map[string]string{
		"X-User-ID":    "user-1",
		"X-User-Email": "asha@example.com",
	}
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func (s *stack) placeOrder(t *testing.T) map[string]any {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/orders", map[string]string{"address_id": "addr-1"}, userHeaders())
	require.Equal(t, http.StatusCreated, rec.Code)
	return decodeBody(t, rec)
}

func TestPlaceOrderEndpoint(t *testing.T) {
	t.Parallel()

	s := newStack(t, openLimiter{})
	body := s.placeOrder(t)

	assert.Contains(t, body["order_number"], "SKY-")
	assert.Equal(t, "pending", body["status"])
	assert.Equal(t, "unpaid", body["payment_status"])
	assert.Equal(t, 1180.0, body["total"])
	assert.Zero(t, s.carts.Len("user-1"))
}

func TestPlaceOrderRequiresAuth(t *testing.T) {
	t.Parallel()

	s := newStack(t, openLimiter{})
	rec := s.do(t, http.MethodPost, "/orders", map[string]string{"address_id": "addr-1"}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestPlaceOrderUnknownAddress(t *testing.T) {
	t.Parallel()

	s := newStack(t, openLimiter{})
	rec := s.do(t, http.MethodPost, "/orders", map[string]string{"address_id": "addr-ghost"}, userHeaders())
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetOrderScopedToOwner(t *testing.T) {
	t.Parallel()

	s := newStack(t, openLimiter{})
	body := s.placeOrder(t)
	orderID := body["id"].(string)

	rec := s.do(t, http.MethodGet, "/orders/"+orderID, nil, userHeaders())
	assert.Equal(t, http.StatusOK, rec.Code)

	other := map[string]string{"X-User-ID": "user-2"}
	rec = s.do(t, http.MethodGet, "/orders/"+orderID, nil, other)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCancelOrderEndpoint(t *testing.T) {
	t.Parallel()

	s := newStack(t, openLimiter{})
	body := s.placeOrder(t)
	orderID := body["id"].(string)

	rec := s.do(t, http.MethodPost, "/orders/"+orderID+"/cancel", nil, userHeaders())
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "cancelled", decodeBody(t, rec)["status"])

	rec = s.do(t, http.MethodPost, "/orders/"+orderID+"/cancel", nil, userHeaders())
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPaymentFlow(t *testing.T) {
	t.Parallel()

	s := newStack(t, openLimiter{})
	body := s.placeOrder(t)
	orderID := body["id"].(string)

	rec := s.do(t, http.MethodPost, "/payments/intent", map[string]string{"order_id": orderID}, userHeaders())
	require.Equal(t, http.StatusCreated, rec.Code)
	intent := decodeBody(t, rec)
	assert.Equal(t, "rzp_test_key", intent["key_id"])
	gatewayOrderID := intent["gateway_order_id"].(string)

	rec = s.do(t, http.MethodPost, "/payments/verify", map[string]string{
		"gateway_order_id":   gatewayOrderID,
		"gateway_payment_id": "rzp_pay_1",
		"signature":          "forged",
	}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rejected := decodeBody(t, rec)
	assert.Equal(t, false, rejected["verified"])
	assert.Equal(t, "signature_invalid", rejected["reason"])

	rec = s.do(t, http.MethodPost, "/payments/verify", map[string]string{
		"gateway_order_id":   gatewayOrderID,
		"gateway_payment_id": "rzp_pay_1",
		"signature":          "good-signature",
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	settled := decodeBody(t, rec)
	assert.Equal(t, true, settled["verified"])
	payment, ok := settled["payment"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "success", payment["status"])

	rec = s.do(t, http.MethodGet, "/orders/"+orderID, nil, userHeaders())
	require.Equal(t, http.StatusOK, rec.Code)
	paid := decodeBody(t, rec)
	assert.Equal(t, "paid", paid["payment_status"])
	assert.Equal(t, "confirmed", paid["status"])

	rec = s.do(t, http.MethodGet, "/payments/"+orderID, nil, userHeaders())
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAdminStatusEndpoint(t *testing.T) {
	t.Parallel()

	s := newStack(t, openLimiter{})
	body := s.placeOrder(t)
	orderID := body["id"].(string)

	rec := s.do(t, http.MethodPost, "/admin/orders/"+orderID+"/status",
		map[string]string{"status": "shipped"}, userHeaders())
	assert.Equal(t, http.StatusForbidden, rec.Code)

	adminHeaders := map[string]string{"X-User-ID": "admin-1", "X-Admin-Role": "admin"}
	rec = s.do(t, http.MethodPost, "/admin/orders/"+orderID+"/status",
		map[string]any{"status": "shipped", "tracking_number": "TRK42"}, adminHeaders)
	require.Equal(t, http.StatusOK, rec.Code)
	updated := decodeBody(t, rec)
	assert.Equal(t, "shipped", updated["status"])
	assert.Equal(t, "TRK42", updated["tracking_number"])
	assert.NotEmpty(t, updated["shipped_at"])

	rec = s.do(t, http.MethodPost, "/admin/orders/"+orderID+"/status",
		map[string]string{"status": "misrouted"}, adminHeaders)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOtpEndpoints(t *testing.T) {
	t.Parallel()

	s := newStack(t, openLimiter{})

	rec := s.do(t, http.MethodPost, "/otp/request",
		map[string]string{"email": "asha@example.com", "purpose": "login"}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decodeBody(t, rec)["accepted"])

	rec = s.do(t, http.MethodPost, "/otp/request",
		map[string]string{"email": "asha@example.com", "purpose": "mischief"}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/otp/verify",
		map[string]string{"email": "asha@example.com", "code": "000000", "purpose": "login"}, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	rejected := decodeBody(t, rec)
	assert.Equal(t, false, rejected["verified"])
	assert.Equal(t, "invalid", rejected["reason"])
}

func TestOtpRequestThrottled(t *testing.T) {
	t.Parallel()

	s := newStack(t, closedLimiter{})

	rec := s.do(t, http.MethodPost, "/otp/request",
		map[string]string{"email": "asha@example.com", "purpose": "login"}, nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, false, body["accepted"])
	assert.Equal(t, "rate_limited", body["reason"])
}

func TestHealthEndpoint(t *testing.T) {
	t.Parallel()

	s := newStack(t, openLimiter{})
	rec := s.do(t, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestRequestIDEchoed(t *testing.T) {
	t.Parallel()

	s := newStack(t, openLimiter{})
	rec := s.do(t, http.MethodGet, "/health", nil, map[string]string{"X-Request-ID": "req-123"})
	assert.Equal(t, "req-123", rec.Header().Get("X-Request-ID"))
}
