package web

import (
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"

	"farmgate/internal/app"
	"farmgate/internal/core"
)

// apiRecordPayment handles POST /api/orders/{ref}/payments.
// Body: { amount, method, cheque_number?, cheque_date?, delivery_weights_kg?,
// requested_target?, expected_version?, idempotency_key? }.
func (h *Handler) apiRecordPayment(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOrFail(w, r)
	if !ok {
		return
	}
	var body struct {
		Amount            string            `json:"amount"`
		Method            string            `json:"method"`
		ChequeNumber      *string           `json:"cheque_number"`
		ChequeDate        *string           `json:"cheque_date"`
		DeliveryWeightsKg map[string]string `json:"delivery_weights_kg"`
		RequestedTarget   string            `json:"requested_target"`
		ExpectedVersion   *int              `json:"expected_version"`
		IdempotencyKey    string            `json:"idempotency_key"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}

	amount, err := decimal.NewFromString(body.Amount)
	if err != nil {
		writeError(w, r, "invalid amount", "BAD_REQUEST", http.StatusBadRequest)
		return
	}

	req := app.PaymentRequest{
		Amount:          amount,
		Method:          body.Method,
		ChequeNumber:    body.ChequeNumber,
		ChequeDate:      body.ChequeDate,
		RequestedTarget: core.OrderStatus(body.RequestedTarget),
		ExpectedVersion: body.ExpectedVersion,
		IdempotencyKey:  body.IdempotencyKey,
	}
	if len(body.DeliveryWeightsKg) > 0 {
		req.DeliveryWeightsKg = make(map[int]decimal.Decimal, len(body.DeliveryWeightsKg))
		for rawID, rawWeight := range body.DeliveryWeightsKg {
			itemID, err := strconv.Atoi(rawID)
			if err != nil {
				writeError(w, r, "invalid delivery weight item id: "+rawID, "BAD_REQUEST", http.StatusBadRequest)
				return
			}
			weight, err := decimal.NewFromString(rawWeight)
			if err != nil {
				writeError(w, r, "invalid delivery weight for item "+rawID, "BAD_REQUEST", http.StatusBadRequest)
				return
			}
			req.DeliveryWeightsKg[itemID] = weight
		}
	}

	result, err := h.svc.RecordPayment(r.Context(), orderRef(r), actor, req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
	writeJSON(w, result.Bill)
}

// apiListPayments handles GET /api/orders/{ref}/payments.
func (h *Handler) apiListPayments(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.ListPayments(r.Context(), orderRef(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// apiConsolidateOrders handles POST /api/orders/consolidate.
// Body: { order_ids }.
func (h *Handler) apiConsolidateOrders(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOrFail(w, r)
	if !ok {
		return
	}
	var req app.ConsolidateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	result, err := h.svc.ConsolidateOrders(r.Context(), actor, req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// apiRecordGroupPayment handles POST /api/orders/group-payment.
// Body: { order_ids, amount, method, cheque_number?, cheque_date? }.
func (h *Handler) apiRecordGroupPayment(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOrFail(w, r)
	if !ok {
		return
	}
	var body struct {
		OrderIDs     []int   `json:"order_ids"`
		Amount       string  `json:"amount"`
		Method       string  `json:"method"`
		ChequeNumber *string `json:"cheque_number"`
		ChequeDate   *string `json:"cheque_date"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	amount, err := decimal.NewFromString(body.Amount)
	if err != nil {
		writeError(w, r, "invalid amount", "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	result, err := h.svc.RecordGroupPayment(r.Context(), actor, app.GroupPaymentRequest{
		OrderIDs:     body.OrderIDs,
		Amount:       amount,
		Method:       body.Method,
		ChequeNumber: body.ChequeNumber,
		ChequeDate:   body.ChequeDate,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
	writeJSON(w, result.Bill)
}

// apiPaymentSummary handles GET /api/payments/summary?from=YYYY-MM-DD&to=YYYY-MM-DD.
func (h *Handler) apiPaymentSummary(w http.ResponseWriter, r *http.Request) {
	from := r.URL.Query().Get("from")
	to := r.URL.Query().Get("to")
	if from == "" || to == "" {
		writeError(w, r, "from and to query parameters are required", "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	result, err := h.svc.PaymentSummary(r.Context(), from, to)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}
