package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is one of the thirteen lifecycle statuses an order moves through,
// from intake (Pending) to the terminal Completed / Cancelled states.
type OrderStatus string

const (
	StatusPending            OrderStatus = "Pending"
	StatusAssigned           OrderStatus = "Assigned"
	StatusProductsLoaded     OrderStatus = "Products Loaded"
	StatusProductReloaded    OrderStatus = "Product Reloaded"
	StatusSecurityIncomplete OrderStatus = "Security Check Incomplete"
	StatusSecurityChecked    OrderStatus = "Security Checked"
	StatusSecurityBypassed   OrderStatus = "Security Check Bypassed Due to Off Hours"
	StatusDepartedFarm       OrderStatus = "Departed Farm"
	StatusDeliveredUnpaid    OrderStatus = "Delivered - Payment Not Collected"
	StatusDeliveredPartial   OrderStatus = "Delivered - Payment Partially Collected"
	StatusDelivered          OrderStatus = "Delivered"
	StatusCompleted          OrderStatus = "Completed"
	StatusCancelled          OrderStatus = "Cancelled"
)

// AllStatuses lists every order status in canonical lifecycle order.
// Transition menus preserve this ordering.
var AllStatuses = []OrderStatus{
	StatusPending,
	StatusAssigned,
	StatusProductsLoaded,
	StatusProductReloaded,
	StatusSecurityIncomplete,
	StatusSecurityChecked,
	StatusSecurityBypassed,
	StatusDepartedFarm,
	StatusDeliveredUnpaid,
	StatusDeliveredPartial,
	StatusDelivered,
	StatusCompleted,
	StatusCancelled,
}

// Role is the acting user's role string as supplied by the identity
// collaborator. It is an opaque key into the transition table; unknown roles
// get a read-only menu.
type Role string

const (
	RoleSalesRep      Role = "Sales Rep"
	RoleSecurityGuard Role = "Security Guard"
	RoleAdmin         Role = "Admin"
	RoleSuperAdmin    Role = "Super Admin"
	RoleOrderManager  Role = "Order Manager"
	RoleFinanceAdmin  Role = "Finance Admin"
)

// SecurityCheckStatus tracks the outcome of the pre-departure weight verification.
type SecurityCheckStatus string

const (
	SecurityCheckNone       SecurityCheckStatus = "none"
	SecurityCheckCompleted  SecurityCheckStatus = "completed"
	SecurityCheckIncomplete SecurityCheckStatus = "incomplete"
	SecurityCheckBypassed   SecurityCheckStatus = "bypassed"
)

// PaymentStatus is always a pure function of collected_amount vs total_amount
// (see DerivePaymentStatus); it is stored denormalized for querying.
type PaymentStatus string

const (
	PaymentUnpaid        PaymentStatus = "unpaid"
	PaymentPartiallyPaid PaymentStatus = "partially_paid"
	PaymentFullyPaid     PaymentStatus = "fully_paid"
)

// UnitType is a product's native ordering unit.
type UnitType string

const (
	UnitKg    UnitType = "Kg"
	UnitGram  UnitType = "g"
	UnitPacks UnitType = "Packs"
)

// User is a minimal projection of the identity collaborator's user record.
type User struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

// Customer is the buyer on an order.
type Customer struct {
	ID      int    `json:"id"`
	Code    string `json:"code"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

// Category groups products; its code decides weighed-goods pricing (see PricingEngine).
type Category struct {
	ID   int    `json:"id"`
	Code string `json:"code"`
	Name string `json:"name"`
}

// Product is a sellable farm product. Exactly one conversion factor is
// required depending on UnitType: WeightPerPackKg for Packs, GramsPerUnit for g.
type Product struct {
	ID              int              `json:"id"`
	Code            string           `json:"code"`
	Name            string           `json:"name"`
	CategoryID      int              `json:"category_id"`
	CategoryCode    string           `json:"category_code"` // joined from categories
	CategoryName    string           `json:"category_name"` // joined from categories
	UnitType        UnitType         `json:"unit_type"`
	Price           decimal.Decimal  `json:"price"`
	WeightPerPackKg *decimal.Decimal `json:"weight_per_pack_kg,omitempty"`
	GramsPerUnit    *decimal.Decimal `json:"grams_per_unit,omitempty"`
	QuantityOnHand  decimal.Decimal  `json:"quantity_on_hand"`
	IsActive        bool             `json:"is_active"`
}

// Order is a sales order header.
//
// Status progresses through the role-gated state machine (see Transitions);
// terminal states are Completed and Cancelled. CollectedAmount never exceeds
// TotalAmount by more than Epsilon, and PaymentStatus is re-derived from the
// two amounts on every payment write.
type Order struct {
	ID                  int                 `json:"id"`
	DisplayID           string              `json:"display_id"`
	CustomerID          int                 `json:"customer_id"`
	CustomerName        string              `json:"customer_name"`  // joined from customers
	CustomerEmail       string              `json:"customer_email"` // joined from customers
	OrderedBy           int                 `json:"ordered_by"`
	AssignedTo          *int                `json:"assigned_to,omitempty"`
	CompletedBy         *int                `json:"completed_by,omitempty"`
	Status              OrderStatus         `json:"status"`
	SecurityCheckStatus SecurityCheckStatus `json:"security_check_status"`
	SecurityCheckNotes  *string             `json:"security_check_notes,omitempty"` // JSON payload, see SecurityNotes
	VehicleNumber       string              `json:"vehicle_number"`
	DeliveryDate        string              `json:"delivery_date"` // YYYY-MM-DD
	TotalAmount         decimal.Decimal     `json:"total_amount"`
	VATAmount           decimal.Decimal     `json:"vat_amount"`
	IsVATApplicable     bool                `json:"is_vat_applicable"`
	CollectedAmount     decimal.Decimal     `json:"collected_amount"`
	PaymentStatus       PaymentStatus       `json:"payment_status"`
	PaymentMethod       string              `json:"payment_method"`
	ReceiptNo           string              `json:"receipt_no"`
	Version             int                 `json:"version"` // optimistic concurrency guard
	Items               []OrderItem         `json:"items"`
	CreatedAt           time.Time           `json:"created_at"`
	CompletedAt         *time.Time          `json:"completed_at,omitempty"`
}

// OrderItem is one line on an order. Quantity is in the product's native unit.
// ActualQuantity is written once per security-check cycle; FinalDeliveryWeightKg
// is set only for weighed goods and overrides Quantity for pricing.
type OrderItem struct {
	ID                    int              `json:"id"`
	OrderID               int              `json:"order_id"`
	ProductID             int              `json:"product_id"`
	ProductName           string           `json:"product_name"`  // joined from products
	CategoryCode          string           `json:"category_code"` // joined from categories
	CategoryName          string           `json:"category_name"` // joined from categories
	UnitType              UnitType         `json:"unit_type"`     // joined from products
	WeightPerPackKg       *decimal.Decimal `json:"weight_per_pack_kg,omitempty"`
	GramsPerUnit          *decimal.Decimal `json:"grams_per_unit,omitempty"`
	Quantity              decimal.Decimal  `json:"quantity"`
	Price                 decimal.Decimal  `json:"price"`
	Discount              *decimal.Decimal `json:"discount,omitempty"` // percent, 0-100
	ReturnedQuantity      decimal.Decimal  `json:"returned_quantity"`
	ActualQuantity        *decimal.Decimal `json:"actual_quantity_after_security_check,omitempty"`
	FinalDeliveryWeightKg *decimal.Decimal `json:"final_delivery_weight_kg,omitempty"`
}

// OrderPayment is an append-only record of a collection event. For
// consolidated groups one payment row carries the shared receipt number.
type OrderPayment struct {
	ID             int             `json:"id"`
	OrderID        int             `json:"order_id"`
	Amount         decimal.Decimal `json:"amount"`
	PaymentMethod  string          `json:"payment_method"`
	ReceiptNo      string          `json:"receipt_no"`
	CollectedBy    int             `json:"collected_by"`
	ChequeNumber   *string         `json:"cheque_number,omitempty"`
	ChequeDate     *string         `json:"cheque_date,omitempty"`
	IdempotencyKey string          `json:"idempotency_key,omitempty"`
	PaymentDate    time.Time       `json:"payment_date"`
}

// OrderReturn is an immutable audit record of a partial-quantity return.
type OrderReturn struct {
	ID          int             `json:"id"`
	OrderItemID int             `json:"order_item_id"`
	Quantity    decimal.Decimal `json:"quantity"`
	Reason      string          `json:"reason"`
	ReturnedBy  int             `json:"returned_by"`
	CreatedAt   time.Time       `json:"created_at"`
}

// SecurityNotes is the structured payload persisted into
// orders.security_check_notes for the incomplete-check and bypass paths.
type SecurityNotes struct {
	Bypassed   bool      `json:"bypassed,omitempty"`
	Reason     string    `json:"reason,omitempty"`
	Timestamp  time.Time `json:"timestamp,omitempty"`
	BypassedBy int       `json:"bypassed_by,omitempty"`
	Note       string    `json:"note,omitempty"`
	Reasons    []string  `json:"reasons,omitempty"`
	CustomNote string    `json:"custom_note,omitempty"`
}

// BillData carries exactly the fields the print/render collaborator needs to
// produce a human-readable bill for one payment event. No formatting happens
// in core.
type BillData struct {
	OrderDisplayID      string          `json:"order_display_id"`
	ReceiptNo           string          `json:"receipt_no"`
	CustomerName        string          `json:"customer_name"`
	TransactionAmount   decimal.Decimal `json:"transaction_amount"`
	PreviouslyCollected decimal.Decimal `json:"previously_collected"`
	RemainingBalance    decimal.Decimal `json:"remaining_balance"`
	TotalAmount         decimal.Decimal `json:"total_amount"`
	VATAmount           decimal.Decimal `json:"vat_amount"`
	PaymentStatusText   string          `json:"payment_status_text"`
	PaymentMethod       string          `json:"payment_method"`
	Items               []OrderItem     `json:"items"`
}

// OrderLineInput is used when creating a new order.
// If Price is zero, the product's default price is used.
type OrderLineInput struct {
	ProductCode string
	Quantity    decimal.Decimal
	Price       decimal.Decimal  // zero means "use product default"
	Discount    *decimal.Decimal // percent, nil means no discount
}
