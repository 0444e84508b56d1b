package web

import (
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"

	"farmgate/internal/app"
	"farmgate/internal/core"
)

// apiListCustomers handles GET /api/customers.
func (h *Handler) apiListCustomers(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.ListCustomers(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// apiCreateCustomer handles POST /api/customers.
func (h *Handler) apiCreateCustomer(w http.ResponseWriter, r *http.Request) {
	var req app.CreateCustomerRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	customer, err := h.svc.CreateCustomer(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
	writeJSON(w, customer)
}

// apiListProducts handles GET /api/products.
func (h *Handler) apiListProducts(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.ListProducts(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// apiCreateProduct handles POST /api/products.
func (h *Handler) apiCreateProduct(w http.ResponseWriter, r *http.Request) {
	var req app.CreateProductRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	product, err := h.svc.CreateProduct(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
	writeJSON(w, product)
}

// apiListOrders handles GET /api/orders?status=... With mine=true the list is
// scoped to orders the caller placed or is assigned to deliver.
func (h *Handler) apiListOrders(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("mine") == "true" {
		actor, ok := actorOrFail(w, r)
		if !ok {
			return
		}
		result, err := h.svc.ListOrdersForUser(r.Context(), actor.UserID)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, result)
		return
	}

	var statusPtr *core.OrderStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		status := core.OrderStatus(raw)
		statusPtr = &status
	}
	result, err := h.svc.ListOrders(r.Context(), statusPtr)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// apiCreateOrder handles POST /api/orders.
func (h *Handler) apiCreateOrder(w http.ResponseWriter, r *http.Request) {
	var body struct {
		CustomerCode  string `json:"customer_code"`
		DeliveryDate  string `json:"delivery_date"`
		VehicleNumber string `json:"vehicle_number"`
		VATApplicable bool   `json:"is_vat_applicable"`
		Lines         []struct {
			ProductCode string `json:"product_code"`
			Quantity    string `json:"quantity"`
			Price       string `json:"price"`
			Discount    string `json:"discount"`
		} `json:"lines"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}

	if body.CustomerCode == "" {
		writeError(w, r, "customer_code is required", "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	if len(body.Lines) == 0 {
		writeError(w, r, "at least one line is required", "BAD_REQUEST", http.StatusBadRequest)
		return
	}

	req := app.CreateOrderRequest{
		CustomerCode:  body.CustomerCode,
		DeliveryDate:  body.DeliveryDate,
		VehicleNumber: body.VehicleNumber,
		VATApplicable: body.VATApplicable,
	}
	for i, l := range body.Lines {
		qty, err := decimal.NewFromString(l.Quantity)
		if err != nil || qty.IsZero() {
			writeError(w, r, fmt.Sprintf("line %d: invalid quantity", i+1), "BAD_REQUEST", http.StatusBadRequest)
			return
		}
		price, _ := decimal.NewFromString(l.Price)
		line := app.OrderLineInput{
			ProductCode: l.ProductCode,
			Quantity:    qty,
			Price:       price,
		}
		if l.Discount != "" {
			d, err := decimal.NewFromString(l.Discount)
			if err != nil {
				writeError(w, r, fmt.Sprintf("line %d: invalid discount", i+1), "BAD_REQUEST", http.StatusBadRequest)
				return
			}
			line.Discount = &d
		}
		req.Lines = append(req.Lines, line)
	}

	result, err := h.svc.CreateOrder(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
	writeJSON(w, result.Order)
}

// apiGetOrder handles GET /api/orders/{ref}.
func (h *Handler) apiGetOrder(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.GetOrder(r.Context(), orderRef(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result.Order)
}

// apiAvailableTransitions handles GET /api/orders/{ref}/transitions. The menu
// is scoped to the authenticated actor's role.
func (h *Handler) apiAvailableTransitions(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOrFail(w, r)
	if !ok {
		return
	}
	options, err := h.svc.AvailableTransitions(r.Context(), orderRef(r), actor.Role)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	type response struct {
		Transitions []core.TransitionOption `json:"transitions"`
	}
	writeJSON(w, response{Transitions: options})
}

// apiTransition handles POST /api/orders/{ref}/transition.
func (h *Handler) apiTransition(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOrFail(w, r)
	if !ok {
		return
	}
	var req app.TransitionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Target == "" {
		writeError(w, r, "target status is required", "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	result, err := h.svc.Transition(r.Context(), orderRef(r), actor, req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result.Order)
}

// apiReconcilePreview handles GET /api/orders/{ref}/reconcile.
func (h *Handler) apiReconcilePreview(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.ReconcilePreview(r.Context(), orderRef(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// apiSecurityCheck handles POST /api/orders/{ref}/security-check.
// Body: { actual_total }.
func (h *Handler) apiSecurityCheck(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOrFail(w, r)
	if !ok {
		return
	}
	var body struct {
		ActualTotal string `json:"actual_total"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	actual, err := decimal.NewFromString(body.ActualTotal)
	if err != nil {
		writeError(w, r, "invalid actual_total", "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	result, err := h.svc.ApplySecurityCheck(r.Context(), orderRef(r), actor, app.SecurityCheckRequest{ActualTotal: actual})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result.Order)
}
