package app

import (
	"github.com/shopspring/decimal"

	"farmgate/internal/core"
)

type CreateCustomerRequest struct {
	Code    string `json:"code"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

type CreateProductRequest struct {
	Code            string           `json:"code"`
	Name            string           `json:"name"`
	CategoryCode    string           `json:"category_code"`
	UnitType        core.UnitType    `json:"unit_type"`
	Price           decimal.Decimal  `json:"price"`
	WeightPerPackKg *decimal.Decimal `json:"weight_per_pack_kg,omitempty"`
	GramsPerUnit    *decimal.Decimal `json:"grams_per_unit,omitempty"`
}

type OrderLineInput struct {
	ProductCode string           `json:"product_code"`
	Quantity    decimal.Decimal  `json:"quantity"`
	Price       decimal.Decimal  `json:"price,omitempty"` // zero means product default
	Discount    *decimal.Decimal `json:"discount,omitempty"`
}

type CreateOrderRequest struct {
	CustomerCode  string           `json:"customer_code"`
	DeliveryDate  string           `json:"delivery_date"` // YYYY-MM-DD
	VehicleNumber string           `json:"vehicle_number"`
	VATApplicable bool             `json:"is_vat_applicable"`
	Lines         []OrderLineInput `json:"lines"`
}

type TransitionRequest struct {
	Target            core.OrderStatus `json:"target"`
	AssignTo          *int             `json:"assign_to,omitempty"`
	BypassReason      string           `json:"bypass_reason,omitempty"`
	BypassNote        string           `json:"bypass_note,omitempty"`
	IncompleteReasons []string         `json:"incomplete_reasons,omitempty"`
	IncompleteNote    string           `json:"incomplete_note,omitempty"`
	ExpectedVersion   *int             `json:"expected_version,omitempty"`
}

type SecurityCheckRequest struct {
	ActualTotal decimal.Decimal `json:"actual_total"`
}

type PaymentRequest struct {
	Amount            decimal.Decimal            `json:"amount"`
	Method            string                     `json:"method"`
	ChequeNumber      *string                    `json:"cheque_number,omitempty"`
	ChequeDate        *string                    `json:"cheque_date,omitempty"`
	DeliveryWeightsKg map[int]decimal.Decimal    `json:"delivery_weights_kg,omitempty"`
	RequestedTarget   core.OrderStatus           `json:"requested_target,omitempty"`
	ExpectedVersion   *int                       `json:"expected_version,omitempty"`
	IdempotencyKey    string                     `json:"idempotency_key,omitempty"`
}

type ConsolidateRequest struct {
	OrderIDs []int `json:"order_ids"`
}

type GroupPaymentRequest struct {
	OrderIDs     []int           `json:"order_ids"`
	Amount       decimal.Decimal `json:"amount"`
	Method       string          `json:"method"`
	ChequeNumber *string         `json:"cheque_number,omitempty"`
	ChequeDate   *string         `json:"cheque_date,omitempty"`
}

type ReturnRequest struct {
	OrderItemID int             `json:"order_item_id"`
	Quantity    decimal.Decimal `json:"quantity"`
	Reason      string          `json:"reason"`
}
