package app

import (
	"github.com/shopspring/decimal"

	"farmgate/internal/core"
)

type CustomerListResult struct {
	Customers []core.Customer `json:"customers"`
}

type ProductListResult struct {
	Products []core.Product `json:"products"`
}

type OrderListResult struct {
	Orders []core.Order `json:"orders"`
}

type OrderResult struct {
	Order *core.Order `json:"order"`
}

type ReconcilePreviewResult struct {
	SuggestedTotal decimal.Decimal `json:"suggested_total"`
	CommonUnit     string          `json:"common_unit"`
	AllConvertible bool            `json:"all_convertible"`
}

type BillResult struct {
	Bill *core.BillData `json:"bill"`
}

type ConsolidateResult struct {
	GroupReceiptNo string `json:"group_receipt_no"`
}

type PaymentListResult struct {
	Payments []core.OrderPayment `json:"payments"`
}

type PaymentSummaryResult struct {
	Rows   []core.PaymentSummaryRow `json:"rows"`
	Cached bool                     `json:"cached"`
}

type ReturnResult struct {
	Return *core.OrderReturn `json:"return"`
}

type ReturnListResult struct {
	Returns []core.OrderReturn `json:"returns"`
}
