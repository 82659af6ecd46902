package httppresentation

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	appOrder "github.com/skyvolt/storefront/internal/application/order"
	appOtp "github.com/skyvolt/storefront/internal/application/otp"
	appPayment "github.com/skyvolt/storefront/internal/application/payment"
	domainInventory "github.com/skyvolt/storefront/internal/domain/inventory"
	domainOrder "github.com/skyvolt/storefront/internal/domain/order"
	domainOtp "github.com/skyvolt/storefront/internal/domain/otp"
	domainPayment "github.com/skyvolt/storefront/internal/domain/payment"
	"github.com/skyvolt/storefront/internal/observability"
	"github.com/skyvolt/storefront/internal/observability/logctx"
	"github.com/skyvolt/storefront/internal/pkg/identity"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const (
	componentHTTPHandler = "http_server"
	headerRequestID      = "X-Request-ID"
	headerUserID         = "X-User-ID"
	headerUserEmail      = "X-User-Email"
	headerAdminRole      = "X-Admin-Role"
)

type Handler struct {
	orderService   *appOrder.Service
	adminService   *appOrder.AdminService
	paymentService *appPayment.Service
	otpService     *appOtp.Service
	log            observability.Logger
	tel            observability.Telemetry
}

func NewHandler(
	orderSvc *appOrder.Service,
	adminSvc *appOrder.AdminService,
	paymentSvc *appPayment.Service,
	otpSvc *appOtp.Service,
	logger observability.Logger,
	tel observability.Telemetry,
) *Handler {
	baseLogger := logger
	if baseLogger == nil {
		baseLogger = observability.NopLogger()
	}
	return &Handler{
		orderService:   orderSvc,
		adminService:   adminSvc,
		paymentService: paymentSvc,
		otpService:     otpSvc,
		log:            baseLogger.With(observability.F("component", componentHTTPHandler)),
		tel:            tel,
	}
}

func (h *Handler) Router() http.Handler {
	mux := http.NewServeMux()

	// Wire each route with middlewares:
	// Trace → ObservabilityMiddleware (request logger) → Identity → Access log → Handler
	h.muxHandle(mux, http.MethodPost, "/orders", h.handlePlaceOrder)
	h.muxHandle(mux, http.MethodGet, "/orders", h.handleListOrders)
	h.muxHandle(mux, http.MethodGet, "/orders/{id}", h.handleGetOrder)
	h.muxHandle(mux, http.MethodPost, "/orders/{id}/cancel", h.handleCancelOrder)
	h.muxHandle(mux, http.MethodPost, "/payments/intent", h.handleCreateIntent)
	h.muxHandle(mux, http.MethodPost, "/payments/verify", h.handleVerifyPayment)
	h.muxHandle(mux, http.MethodGet, "/payments/{orderID}", h.handlePaymentStatus)
	h.muxHandle(mux, http.MethodPost, "/otp/request", h.handleRequestOtp)
	h.muxHandle(mux, http.MethodPost, "/otp/verify", h.handleVerifyOtp)
	h.muxHandle(mux, http.MethodPost, "/admin/orders/{id}/status", h.handleAdminSetStatus)
	h.muxHandle(mux, http.MethodGet, "/health", h.handleHealth)

	return mux
}

func (h *Handler) muxHandle(mux *http.ServeMux, method, route string, handler http.HandlerFunc) {
	mux.HandleFunc(method+" "+route, func(w http.ResponseWriter, r *http.Request) {
		// Store stable route template for low-cardinality labels
		ctx := contextWithRoute(r.Context(), method+" "+route)
		r = r.WithContext(ctx)

		wrapped := h.withTrace(
			ObservabilityMiddleware(logctx.FromOr(ctx, h.log), h.tel)(
				IdentityMiddleware(
					h.withAccessLog(http.HandlerFunc(handler)),
				),
			),
		)
		wrapped.ServeHTTP(w, r)
	})
}

type orderItemResponse struct {
	ProductID   string  `json:"product_id"`
	ProductName string  `json:"product_name"`
	UnitPrice   float64 `json:"unit_price"`
	Quantity    int     `json:"quantity"`
	Total       float64 `json:"total"`
	ImagePath   string  `json:"image_path,omitempty"`
}

type orderResponse struct {
	ID             string              `json:"id"`
	OrderNumber    string              `json:"order_number"`
	Status         domainOrder.Status  `json:"status"`
	PaymentStatus  string              `json:"payment_status"`
	Subtotal       float64             `json:"subtotal"`
	Tax            float64             `json:"tax"`
	Shipping       float64             `json:"shipping"`
	Total          float64             `json:"total"`
	Notes          string              `json:"notes,omitempty"`
	TrackingNumber string              `json:"tracking_number,omitempty"`
	Items          []orderItemResponse `json:"items"`
	ShippedAt      *time.Time          `json:"shipped_at,omitempty"`
	DeliveredAt    *time.Time          `json:"delivered_at,omitempty"`
	CreatedAt      time.Time           `json:"created_at"`
}

func toOrderResponse(o *domainOrder.Order) orderResponse {
	items := make([]orderItemResponse, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, orderItemResponse{
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			UnitPrice:   it.UnitPrice,
			Quantity:    it.Quantity,
			Total:       it.Total,
			ImagePath:   it.ImagePath,
		})
	}
	return orderResponse{
		ID:             o.ID,
		OrderNumber:    o.Number,
		Status:         o.Status,
		PaymentStatus:  string(o.PaymentStatus),
		Subtotal:       o.Subtotal,
		Tax:            o.Tax,
		Shipping:       o.Shipping,
		Total:          o.Total,
		Notes:          o.Notes,
		TrackingNumber: o.TrackingNumber,
		Items:          items,
		ShippedAt:      o.ShippedAt,
		DeliveredAt:    o.DeliveredAt,
		CreatedAt:      o.CreatedAt,
	}
}

type placeOrderRequest struct {
	AddressID string `json:"address_id"`
	Notes     string `json:"notes"`
}

func (h *Handler) handlePlaceOrder(w http.ResponseWriter, r *http.Request) {
	ident, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	var req placeOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	result, err := h.orderService.PlaceOrder(r.Context(), appOrder.PlaceOrderInput{
		UserID:    ident.UserID,
		Email:     ident.Email,
		AddressID: req.AddressID,
		Notes:     req.Notes,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toOrderResponse(result.Order))
}

func (h *Handler) handleListOrders(w http.ResponseWriter, r *http.Request) {
	ident, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	orders, err := h.orderService.List(r.Context(), ident.UserID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	out := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		out = append(out, toOrderResponse(o))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	ident, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	o, err := h.orderService.Get(r.Context(), ident.UserID, r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(o))
}

func (h *Handler) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	ident, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	o, err := h.orderService.Cancel(r.Context(), ident.UserID, r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(o))
}

type paymentResponse struct {
	OrderID        string               `json:"order_id"`
	GatewayOrderID string               `json:"gateway_order_id"`
	Amount         float64              `json:"amount"`
	Currency       string               `json:"currency"`
	Status         domainPayment.Status `json:"status"`
	FailureReason  string               `json:"failure_reason,omitempty"`
}

func toPaymentResponse(p *domainPayment.Payment) paymentResponse {
	return paymentResponse{
		OrderID:        p.OrderID,
		GatewayOrderID: p.GatewayOrderID,
		Amount:         p.Amount,
		Currency:       p.Currency,
		Status:         p.Status,
		FailureReason:  p.FailureReason,
	}
}

type createIntentRequest struct {
	OrderID string `json:"order_id"`
}

type createIntentResponse struct {
	paymentResponse
	KeyID string `json:"key_id"`
}

func (h *Handler) handleCreateIntent(w http.ResponseWriter, r *http.Request) {
	ident, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	var req createIntentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	result, err := h.paymentService.CreateIntent(r.Context(), ident.UserID, req.OrderID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, createIntentResponse{
		paymentResponse: toPaymentResponse(result.Payment),
		KeyID:           result.KeyID,
	})
}

type verifyPaymentRequest struct {
	GatewayOrderID   string `json:"gateway_order_id"`
	GatewayPaymentID string `json:"gateway_payment_id"`
	Signature        string `json:"signature"`
}

type verifyPaymentResponse struct {
	Verified bool             `json:"verified"`
	Reason   string           `json:"reason,omitempty"`
	Payment  *paymentResponse `json:"payment,omitempty"`
}

func (h *Handler) handleVerifyPayment(w http.ResponseWriter, r *http.Request) {
	var req verifyPaymentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	p, err := h.paymentService.Verify(r.Context(), appPayment.VerifyInput{
		GatewayOrderID:   req.GatewayOrderID,
		GatewayPaymentID: req.GatewayPaymentID,
		Signature:        req.Signature,
	})
	if err != nil {
		if errors.Is(err, appPayment.ErrSignatureInvalid) {
			writeJSON(w, http.StatusBadRequest, verifyPaymentResponse{Verified: false, Reason: "signature_invalid"})
			return
		}
		writeDomainError(w, err)
		return
	}
	settled := toPaymentResponse(p)
	writeJSON(w, http.StatusOK, verifyPaymentResponse{Verified: true, Payment: &settled})
}

func (h *Handler) handlePaymentStatus(w http.ResponseWriter, r *http.Request) {
	ident, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	p, err := h.paymentService.Status(r.Context(), ident.UserID, r.PathValue("orderID"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPaymentResponse(p))
}

type requestOtpRequest struct {
	Email   string `json:"email"`
	Purpose string `json:"purpose"`
}

type requestOtpResponse struct {
	Accepted  bool       `json:"accepted"`
	Reason    string     `json:"reason,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

func (h *Handler) handleRequestOtp(w http.ResponseWriter, r *http.Request) {
	var req requestOtpRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	result, err := h.otpService.Issue(r.Context(), appOtp.IssueInput{
		Email:   req.Email,
		Purpose: req.Purpose,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if !result.Accepted {
		writeJSON(w, http.StatusTooManyRequests, requestOtpResponse{Accepted: false, Reason: "rate_limited"})
		return
	}
	writeJSON(w, http.StatusOK, requestOtpResponse{Accepted: true, ExpiresAt: &result.ExpiresAt})
}

type verifyOtpRequest struct {
	Email   string `json:"email"`
	Code    string `json:"code"`
	Purpose string `json:"purpose"`
}

type verifyOtpResponse struct {
	Verified bool   `json:"verified"`
	Reason   string `json:"reason,omitempty"`
}

func (h *Handler) handleVerifyOtp(w http.ResponseWriter, r *http.Request) {
	var req verifyOtpRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	outcome, err := h.otpService.Verify(r.Context(), appOtp.VerifyInput{
		Email:   req.Email,
		Code:    req.Code,
		Purpose: req.Purpose,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if outcome != domainOtp.VerifySuccess {
		writeJSON(w, http.StatusBadRequest, verifyOtpResponse{Verified: false, Reason: string(outcome)})
		return
	}
	writeJSON(w, http.StatusOK, verifyOtpResponse{Verified: true})
}

type adminSetStatusRequest struct {
	Status         string  `json:"status"`
	TrackingNumber *string `json:"tracking_number"`
}

func (h *Handler) handleAdminSetStatus(w http.ResponseWriter, r *http.Request) {
	ident, ok := identity.From(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, errors.New("authentication required"))
		return
	}
	if !ident.Admin {
		writeError(w, http.StatusForbidden, errors.New("admin role required"))
		return
	}

	var req adminSetStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	o, err := h.adminService.SetStatus(r.Context(), appOrder.SetStatusInput{
		OrderID:        r.PathValue("id"),
		Status:         req.Status,
		TrackingNumber: req.TrackingNumber,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(o))
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) requireUser(w http.ResponseWriter, r *http.Request) (identity.Identity, bool) {
	ident, ok := identity.From(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, errors.New("authentication required"))
		return identity.Identity{}, false
	}
	return ident, true
}

// withAccessLog writes a single access log after the handler completes.
// It relies on the request-scoped logger already injected by ObservabilityMiddleware.
func (h *Handler) withAccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(lrw, r)

		logctx.FromOr(r.Context(), h.log).Info("http_access",
			observability.F("method", r.Method),
			observability.F("route", routeFromContext(r.Context())),
			observability.F("path", r.URL.Path),
			observability.F("status", lrw.status),
			observability.F("latency_ms", time.Since(start).Milliseconds()),
		)
	})
}

// withTrace creates a server span for the request using OTel and W3C propagation.
func (h *Handler) withTrace(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tracer := otel.Tracer("storefront.http")
		parentCtx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))

		spanName := routeFromContext(parentCtx)
		if spanName == "unknown" {
			spanName = r.Method + " " + r.URL.Path
		}

		ctxWithSpan, span := tracer.Start(parentCtx,
			spanName,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.method", r.Method),
				attribute.String("http.target", r.URL.Path),
				attribute.String("http.user_agent", r.UserAgent()),
			),
		)
		defer span.End()

		next.ServeHTTP(w, r.WithContext(ctxWithSpan))
	})
}

func decodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeDomainError(w http.ResponseWriter, err error) {
	var unavailable *domainOrder.ProductUnavailableError
	var insufficient *domainOrder.InsufficientStockError

	switch {
	case errors.Is(err, domainOrder.ErrNotFound),
		errors.Is(err, appOrder.ErrAddressNotFound),
		errors.Is(err, domainPayment.ErrNotFound),
		errors.Is(err, domainInventory.ErrNotFound):
		writeError(w, http.StatusNotFound, err)
	case errors.As(err, &unavailable),
		errors.As(err, &insufficient),
		errors.Is(err, appOrder.ErrValidation),
		errors.Is(err, appOtp.ErrValidation),
		errors.Is(err, appPayment.ErrValidation),
		errors.Is(err, domainOrder.ErrEmptyCart),
		errors.Is(err, domainOrder.ErrNotCancellable),
		errors.Is(err, domainOrder.ErrInvalidStatus),
		errors.Is(err, domainOtp.ErrInvalidPurpose),
		errors.Is(err, domainPayment.ErrAlreadyPaid):
		writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, appPayment.ErrGatewayUnavailable):
		writeError(w, http.StatusBadGateway, err)
	default:
		writeError(w, http.StatusInternalServerError, err)
	}
}

type routeKey struct{}

// contextWithRoute stores the stable route template in the context so downstream
// metrics/logging can rely on low-cardinality values.
func contextWithRoute(ctx context.Context, route string) context.Context {
	if route == "" {
		return ctx
	}
	return context.WithValue(ctx, routeKey{}, route)
}

func routeFromContext(ctx context.Context) string {
	if ctx == nil {
		return "unknown"
	}
	if route, ok := ctx.Value(routeKey{}).(string); ok && route != "" {
		return route
	}
	return "unknown"
}
