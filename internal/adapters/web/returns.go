package web

import (
	"net/http"

	"github.com/shopspring/decimal"

	"farmgate/internal/app"
)

// apiProcessReturn handles POST /api/returns.
// Body: { order_item_id, quantity, reason }.
func (h *Handler) apiProcessReturn(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOrFail(w, r)
	if !ok {
		return
	}
	var body struct {
		OrderItemID int    `json:"order_item_id"`
		Quantity    string `json:"quantity"`
		Reason      string `json:"reason"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	quantity, err := decimal.NewFromString(body.Quantity)
	if err != nil {
		writeError(w, r, "invalid quantity", "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	result, err := h.svc.ProcessReturn(r.Context(), actor, app.ReturnRequest{
		OrderItemID: body.OrderItemID,
		Quantity:    quantity,
		Reason:      body.Reason,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
	writeJSON(w, result.Return)
}

// apiListReturns handles GET /api/orders/{ref}/returns.
func (h *Handler) apiListReturns(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.ListReturns(r.Context(), orderRef(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}
