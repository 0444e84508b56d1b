package app

import (
	"context"

	"farmgate/internal/core"
)

// ApplicationService is the single interface all transport adapters call.
// It decouples presentation from business logic: implementations contain no
// HTTP types and no display logic of any kind.
type ApplicationService interface {
	// Master data
	ListCustomers(ctx context.Context) (*CustomerListResult, error)
	CreateCustomer(ctx context.Context, req CreateCustomerRequest) (*core.Customer, error)
	ListProducts(ctx context.Context) (*ProductListResult, error)
	CreateProduct(ctx context.Context, req CreateProductRequest) (*core.Product, error)

	// Orders
	ListOrders(ctx context.Context, status *core.OrderStatus) (*OrderListResult, error)
	// ListOrdersForUser returns the orders a user placed or is assigned to.
	ListOrdersForUser(ctx context.Context, userID int) (*OrderListResult, error)
	// GetOrder accepts a numeric ID or a display id string like "FG-000042".
	GetOrder(ctx context.Context, ref string) (*OrderResult, error)
	CreateOrder(ctx context.Context, req CreateOrderRequest) (*OrderResult, error)

	// Lifecycle
	// AvailableTransitions returns the role-scoped status menu for an order.
	AvailableTransitions(ctx context.Context, ref string, role core.Role) ([]core.TransitionOption, error)
	Transition(ctx context.Context, ref string, actor core.Actor, req TransitionRequest) (*OrderResult, error)
	// ReconcilePreview returns the suggested total the guard verifies against.
	ReconcilePreview(ctx context.Context, ref string) (*ReconcilePreviewResult, error)
	ApplySecurityCheck(ctx context.Context, ref string, actor core.Actor, req SecurityCheckRequest) (*OrderResult, error)

	// Payments
	RecordPayment(ctx context.Context, ref string, actor core.Actor, req PaymentRequest) (*BillResult, error)
	ConsolidateOrders(ctx context.Context, actor core.Actor, req ConsolidateRequest) (*ConsolidateResult, error)
	RecordGroupPayment(ctx context.Context, actor core.Actor, req GroupPaymentRequest) (*BillResult, error)
	ListPayments(ctx context.Context, ref string) (*PaymentListResult, error)
	PaymentSummary(ctx context.Context, from, to string) (*PaymentSummaryResult, error)

	// Returns
	ProcessReturn(ctx context.Context, actor core.Actor, req ReturnRequest) (*ReturnResult, error)
	ListReturns(ctx context.Context, ref string) (*ReturnListResult, error)
}
