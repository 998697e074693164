package httppresentation

import (
	"context"
	"net/http"
	"time"

	appInventory "github.com/Zhima-Mochi/travelshop/internal/application/inventory"
	appOrder "github.com/Zhima-Mochi/travelshop/internal/application/order"
	appPayment "github.com/Zhima-Mochi/travelshop/internal/application/payment"
	"github.com/Zhima-Mochi/travelshop/internal/observability"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const (
	componentHTTPHandler = "http_server"
	headerRequestID      = "X-Request-ID"
	maxBodyBytes         = 1 << 20
	healthTimeout        = 2 * time.Second
)

// UseCases are the application entry points the routes call.
type UseCases struct {
	CreateOrder      *appOrder.CreateOrderUseCase
	GetOrder         *appOrder.GetOrderUseCase
	ListOrders       *appOrder.ListOrdersUseCase
	ListAdminOrders  *appOrder.ListAdminOrdersUseCase
	UpdateStatus     *appOrder.UpdateStatusUseCase
	BulkUpdateStatus *appOrder.BulkUpdateStatusUseCase
	DeleteOrder      *appOrder.DeleteOrderUseCase
	Inventory        *appInventory.Adjuster
	InitiatePayment  *appPayment.InitiatePaymentUseCase
	ConfirmPayment   *appPayment.ConfirmPaymentUseCase
}

type Options struct {
	// Dev adds the underlying error text to error responses.
	Dev              bool
	SessionSecret    []byte
	PaymentRateRPS   float64
	PaymentRateBurst int
	// Metrics serves GET /metrics when set.
	Metrics http.Handler
	// Ready is probed by GET /health; nil means always ready.
	Ready func(ctx context.Context) error
}

type Handler struct {
	uc      UseCases
	auth    *Authenticator
	limiter *IPRateLimiter
	dev     bool
	metrics http.Handler
	ready   func(ctx context.Context) error
	log     observability.Logger
	tel     observability.Observability

	httpRequests observability.Counter
	httpDuration observability.Histogram
}

func NewHandler(uc UseCases, opts Options, logger observability.Logger, tel observability.Observability) *Handler {
	if tel == nil {
		tel = observability.Nop()
	}
	baseLogger := logger
	if baseLogger == nil {
		baseLogger = tel.Logger()
	}
	rps, burst := opts.PaymentRateRPS, opts.PaymentRateBurst
	if rps <= 0 {
		rps = 1
	}
	if burst <= 0 {
		burst = 5
	}
	return &Handler{
		uc:           uc,
		auth:         NewAuthenticator(opts.SessionSecret),
		limiter:      NewIPRateLimiter(rps, burst),
		dev:          opts.Dev,
		metrics:      opts.Metrics,
		ready:        opts.Ready,
		log:          baseLogger.With(observability.F("component", componentHTTPHandler)),
		tel:          tel,
		httpRequests: tel.Metrics().Counter(observability.MHTTPRequests),
		httpDuration: tel.Metrics().Histogram(observability.MHTTPRequestDuration),
	}
}

func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: msgNotFound, Code: "NOT_FOUND"})
	})

	h.handle(r, http.MethodGet, "/health", h.handleHealth)
	if h.metrics != nil {
		r.Method(http.MethodGet, "/metrics", h.metrics)
	}

	h.handle(r, http.MethodPost, "/api/orders", h.handleCreateOrder)
	h.handle(r, http.MethodGet, "/api/orders", h.handleListOrders)
	h.handle(r, http.MethodPatch, "/api/orders", h.handleAdminUpdateStatus)
	h.handle(r, http.MethodGet, "/api/orders/{id}", h.handleGetOrder)
	h.handle(r, http.MethodPatch, "/api/orders/{id}", h.handleUpdateStatus)
	h.handle(r, http.MethodDelete, "/api/orders/{id}", h.handleDeleteOrder)

	h.handle(r, http.MethodGet, "/api/admin/orders", h.handleAdminListOrders)
	h.handle(r, http.MethodPatch, "/api/admin/orders", h.handleBulkUpdateStatus)
	h.handle(r, http.MethodGet, "/api/admin/inventory/{id}", h.handleGetInventory)
	h.handle(r, http.MethodPut, "/api/admin/inventory/{id}", h.handleSetInventory)

	h.handle(r, http.MethodPost, "/api/payments/{provider}", h.withPaymentRateLimit(h.handleInitiatePayment))
	h.handle(r, http.MethodGet, "/api/payments/{provider}", h.handleConfirmPayment)

	return r
}

// handle wires one route: Trace → Request Logger → Session → Access Log → Metrics → Handler.
// The chain is built once; the route template is stored for low-cardinality labels.
func (h *Handler) handle(r chi.Router, method, pattern string, handler http.HandlerFunc) {
	route := method + " " + pattern
	chain := h.withTrace(
		ObservabilityMiddleware(
			h.log,
			func(r *http.Request) string { return r.Header.Get(headerRequestID) },
			h.tel,
		)(
			h.auth.Middleware(
				h.withAccessLog(
					h.withHTTPMetrics(handler),
				),
			),
		),
	)
	r.Method(method, pattern, http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		chain.ServeHTTP(w, req.WithContext(contextWithRoute(req.Context(), route)))
	}))
}

func (h *Handler) withPaymentRateLimit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !h.limiter.Allow(remoteIP(r)) {
			writeJSON(w, http.StatusTooManyRequests, paymentErrorResponse{Error: msgRateLimited, Code: "RATE_LIMITED"})
			return
		}
		next(w, r)
	}
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if h.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()
		if err := h.ready(ctx); err != nil {
			h.logFailure(r, http.StatusServiceUnavailable, err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
