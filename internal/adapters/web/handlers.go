package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"farmgate/internal/app"
)

// Handler holds the ApplicationService and the chi router.
type Handler struct {
	svc       app.ApplicationService
	jwtSecret string
	logger    *zap.Logger
}

// NewHandler creates and wires the chi router with all routes.
func NewHandler(svc app.ApplicationService, allowedOrigins, jwtSecret string, logger *zap.Logger) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Handler{svc: svc, jwtSecret: jwtSecret, logger: logger}

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(Logger(logger))
	r.Use(Recoverer(logger))
	r.Use(CORS(allowedOrigins))

	// ── Health (public) ───────────────────────────────────────────────────────
	r.Get("/api/health", h.health)

	// ── Protected API routes ─────────────────────────────────────────────────
	r.Group(func(r chi.Router) {
		r.Use(h.RequireAuth)
		r.Use(RequestBodyLimit(1 << 20)) // 1 MB

		// Master data
		r.Get("/api/customers", h.apiListCustomers)
		r.Post("/api/customers", h.apiCreateCustomer)
		r.Get("/api/products", h.apiListProducts)
		r.Post("/api/products", h.apiCreateProduct)

		// Orders and lifecycle
		r.Get("/api/orders", h.apiListOrders)
		r.Post("/api/orders", h.apiCreateOrder)
		r.Get("/api/orders/{ref}", h.apiGetOrder)
		r.Get("/api/orders/{ref}/transitions", h.apiAvailableTransitions)
		r.Post("/api/orders/{ref}/transition", h.apiTransition)
		r.Get("/api/orders/{ref}/reconcile", h.apiReconcilePreview)
		r.Post("/api/orders/{ref}/security-check", h.apiSecurityCheck)

		// Payments
		r.Post("/api/orders/{ref}/payments", h.apiRecordPayment)
		r.Get("/api/orders/{ref}/payments", h.apiListPayments)
		r.Post("/api/orders/consolidate", h.apiConsolidateOrders)
		r.Post("/api/orders/group-payment", h.apiRecordGroupPayment)
		r.Get("/api/payments/summary", h.apiPaymentSummary)

		// Returns
		r.Post("/api/returns", h.apiProcessReturn)
		r.Get("/api/orders/{ref}/returns", h.apiListReturns)
	})

	return r
}

// health handles GET /api/health.
func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	type response struct {
		Status string `json:"status"`
	}
	writeJSON(w, response{Status: "ok"})
}

// orderRef extracts the {ref} URL parameter.
func orderRef(r *http.Request) string {
	return chi.URLParam(r, "ref")
}
