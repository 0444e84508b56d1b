package app

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"farmgate/internal/cache"
	"farmgate/internal/core"
	"farmgate/internal/notify"
)

type applicationService struct {
	orders     core.OrderService
	payments   core.PaymentService
	returns    core.ReturnService
	summaries  cache.SummaryCache
	sender     notify.Sender
	logger     *zap.Logger
	summaryTTL time.Duration
}

// NewApplicationService wires the domain services behind the transport-facing
// facade. summaries and sender may be nil; caching and receipt delivery are
// then skipped.
func NewApplicationService(
	orders core.OrderService,
	payments core.PaymentService,
	returns core.ReturnService,
	summaries cache.SummaryCache,
	sender notify.Sender,
	logger *zap.Logger,
	summaryTTL time.Duration,
) ApplicationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &applicationService{
		orders:     orders,
		payments:   payments,
		returns:    returns,
		summaries:  summaries,
		sender:     sender,
		logger:     logger,
		summaryTTL: summaryTTL,
	}
}

// ── Master data ──────────────────────────────────────────────────────────────

func (s *applicationService) ListCustomers(ctx context.Context) (*CustomerListResult, error) {
	customers, err := s.orders.GetCustomers(ctx)
	if err != nil {
		return nil, err
	}
	return &CustomerListResult{Customers: customers}, nil
}

func (s *applicationService) CreateCustomer(ctx context.Context, req CreateCustomerRequest) (*core.Customer, error) {
	if strings.TrimSpace(req.Code) == "" || strings.TrimSpace(req.Name) == "" {
		return nil, fmt.Errorf("%w: customer code and name are required", core.ErrValidation)
	}
	return s.orders.CreateCustomer(ctx, req.Code, req.Name, req.Email, req.Phone, req.Address)
}

func (s *applicationService) ListProducts(ctx context.Context) (*ProductListResult, error) {
	products, err := s.orders.GetProducts(ctx)
	if err != nil {
		return nil, err
	}
	return &ProductListResult{Products: products}, nil
}

func (s *applicationService) CreateProduct(ctx context.Context, req CreateProductRequest) (*core.Product, error) {
	if strings.TrimSpace(req.Code) == "" || strings.TrimSpace(req.Name) == "" {
		return nil, fmt.Errorf("%w: product code and name are required", core.ErrValidation)
	}
	return s.orders.CreateProduct(ctx, req.Code, req.Name, req.CategoryCode, req.UnitType, req.Price, req.WeightPerPackKg, req.GramsPerUnit)
}

// ── Orders ───────────────────────────────────────────────────────────────────

func (s *applicationService) ListOrders(ctx context.Context, status *core.OrderStatus) (*OrderListResult, error) {
	orders, err := s.orders.GetOrders(ctx, status)
	if err != nil {
		return nil, err
	}
	return &OrderListResult{Orders: orders}, nil
}

func (s *applicationService) ListOrdersForUser(ctx context.Context, userID int) (*OrderListResult, error) {
	orders, err := s.orders.GetOrdersForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &OrderListResult{Orders: orders}, nil
}

func (s *applicationService) GetOrder(ctx context.Context, ref string) (*OrderResult, error) {
	order, err := s.resolveOrder(ctx, ref)
	if err != nil {
		return nil, err
	}
	return &OrderResult{Order: order}, nil
}

func (s *applicationService) CreateOrder(ctx context.Context, req CreateOrderRequest) (*OrderResult, error) {
	actor, ok := ActorFrom(ctx)
	if !ok {
		return nil, fmt.Errorf("%w: missing actor", core.ErrValidation)
	}
	lines := make([]core.OrderLineInput, len(req.Lines))
	for i, l := range req.Lines {
		lines[i] = core.OrderLineInput{
			ProductCode: l.ProductCode,
			Quantity:    l.Quantity,
			Price:       l.Price,
			Discount:    l.Discount,
		}
	}
	order, err := s.orders.CreateOrder(ctx, req.CustomerCode, actor.UserID, req.DeliveryDate, req.VehicleNumber, req.VATApplicable, lines)
	if err != nil {
		return nil, err
	}
	s.logger.Info("order created",
		zap.String("display_id", order.DisplayID),
		zap.Int("customer_id", order.CustomerID),
		zap.Int("lines", len(order.Items)))
	return &OrderResult{Order: order}, nil
}

// ── Lifecycle ────────────────────────────────────────────────────────────────

func (s *applicationService) AvailableTransitions(ctx context.Context, ref string, role core.Role) ([]core.TransitionOption, error) {
	order, err := s.resolveOrder(ctx, ref)
	if err != nil {
		return nil, err
	}
	return core.AvailableTransitions(order, role), nil
}

func (s *applicationService) Transition(ctx context.Context, ref string, actor core.Actor, req TransitionRequest) (*OrderResult, error) {
	order, err := s.resolveOrder(ctx, ref)
	if err != nil {
		return nil, err
	}
	updated, err := s.orders.Transition(ctx, order.ID, actor, req.Target, core.TransitionOptions{
		AssignTo:          req.AssignTo,
		BypassNote:        req.BypassNote,
		BypassReason:      req.BypassReason,
		IncompleteReasons: req.IncompleteReasons,
		IncompleteNote:    req.IncompleteNote,
		ExpectedVersion:   req.ExpectedVersion,
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("order transitioned",
		zap.String("display_id", updated.DisplayID),
		zap.String("from", string(order.Status)),
		zap.String("to", string(updated.Status)),
		zap.Int("actor", actor.UserID),
		zap.String("role", string(actor.Role)))
	return &OrderResult{Order: updated}, nil
}

func (s *applicationService) ReconcilePreview(ctx context.Context, ref string) (*ReconcilePreviewResult, error) {
	order, err := s.resolveOrder(ctx, ref)
	if err != nil {
		return nil, err
	}
	suggestion := core.SuggestTotal(order.Items)
	return &ReconcilePreviewResult{
		SuggestedTotal: suggestion.Total,
		CommonUnit:     suggestion.CommonUnit,
		AllConvertible: suggestion.AllConvertible,
	}, nil
}

func (s *applicationService) ApplySecurityCheck(ctx context.Context, ref string, actor core.Actor, req SecurityCheckRequest) (*OrderResult, error) {
	order, err := s.resolveOrder(ctx, ref)
	if err != nil {
		return nil, err
	}
	updated, err := s.orders.ApplySecurityCheck(ctx, order.ID, actor, req.ActualTotal)
	if err != nil {
		return nil, err
	}
	s.logger.Info("security check applied",
		zap.String("display_id", updated.DisplayID),
		zap.String("actual_total", req.ActualTotal.String()),
		zap.Int("guard", actor.UserID))
	return &OrderResult{Order: updated}, nil
}

// ── Payments ─────────────────────────────────────────────────────────────────

func (s *applicationService) RecordPayment(ctx context.Context, ref string, actor core.Actor, req PaymentRequest) (*BillResult, error) {
	order, err := s.resolveOrder(ctx, ref)
	if err != nil {
		return nil, err
	}
	bill, err := s.payments.RecordPayment(ctx, order.ID, actor, core.PaymentParams{
		Amount:            req.Amount,
		Method:            req.Method,
		ChequeNumber:      req.ChequeNumber,
		ChequeDate:        req.ChequeDate,
		DeliveryWeightsKg: req.DeliveryWeightsKg,
		RequestedTarget:   req.RequestedTarget,
		ExpectedVersion:   req.ExpectedVersion,
		IdempotencyKey:    req.IdempotencyKey,
	})
	if err != nil {
		return nil, err
	}
	s.afterPayment(ctx, order.CustomerEmail, bill)
	return &BillResult{Bill: bill}, nil
}

func (s *applicationService) ConsolidateOrders(ctx context.Context, actor core.Actor, req ConsolidateRequest) (*ConsolidateResult, error) {
	groupReceipt, err := s.payments.ConsolidateOrders(ctx, req.OrderIDs, actor)
	if err != nil {
		return nil, err
	}
	s.logger.Info("orders consolidated",
		zap.Ints("order_ids", req.OrderIDs),
		zap.String("group_receipt_no", groupReceipt))
	return &ConsolidateResult{GroupReceiptNo: groupReceipt}, nil
}

func (s *applicationService) RecordGroupPayment(ctx context.Context, actor core.Actor, req GroupPaymentRequest) (*BillResult, error) {
	bill, err := s.payments.RecordGroupPayment(ctx, req.OrderIDs, actor, core.GroupPaymentParams{
		Amount:       req.Amount,
		Method:       req.Method,
		ChequeNumber: req.ChequeNumber,
		ChequeDate:   req.ChequeDate,
	})
	if err != nil {
		return nil, err
	}
	s.afterPayment(ctx, "", bill)
	return &BillResult{Bill: bill}, nil
}

func (s *applicationService) ListPayments(ctx context.Context, ref string) (*PaymentListResult, error) {
	order, err := s.resolveOrder(ctx, ref)
	if err != nil {
		return nil, err
	}
	payments, err := s.payments.ListPayments(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	return &PaymentListResult{Payments: payments}, nil
}

func (s *applicationService) PaymentSummary(ctx context.Context, from, to string) (*PaymentSummaryResult, error) {
	key := from + ":" + to
	if s.summaries != nil {
		rows, hit, err := s.summaries.Get(ctx, key)
		if err != nil {
			s.logger.Warn("summary cache read failed", zap.Error(err))
		} else if hit {
			return &PaymentSummaryResult{Rows: rows, Cached: true}, nil
		}
	}

	rows, err := s.payments.PaymentSummary(ctx, from, to)
	if err != nil {
		return nil, err
	}
	if s.summaries != nil {
		if err := s.summaries.Set(ctx, key, rows, s.summaryTTL); err != nil {
			s.logger.Warn("summary cache write failed", zap.Error(err))
		}
	}
	return &PaymentSummaryResult{Rows: rows}, nil
}

// afterPayment performs the non-transactional tail of a payment: cache
// invalidation and receipt delivery. Failures here are logged, never
// propagated; the payment is already committed.
func (s *applicationService) afterPayment(ctx context.Context, customerEmail string, bill *core.BillData) {
	if s.summaries != nil {
		if err := s.summaries.Invalidate(ctx); err != nil {
			s.logger.Warn("summary cache invalidation failed", zap.Error(err))
		}
	}
	if s.sender != nil && customerEmail != "" && bill.ReceiptNo != "" {
		if err := s.sender.SendReceipt(ctx, customerEmail, *bill); err != nil {
			s.logger.Warn("receipt delivery failed",
				zap.String("receipt_no", bill.ReceiptNo),
				zap.Error(err))
		}
	}
	s.logger.Info("payment recorded",
		zap.String("order", bill.OrderDisplayID),
		zap.String("receipt_no", bill.ReceiptNo),
		zap.String("amount", bill.TransactionAmount.StringFixed(2)),
		zap.String("payment_status", bill.PaymentStatusText))
}

// ── Returns ──────────────────────────────────────────────────────────────────

func (s *applicationService) ProcessReturn(ctx context.Context, actor core.Actor, req ReturnRequest) (*ReturnResult, error) {
	ret, err := s.returns.ProcessReturn(ctx, req.OrderItemID, req.Quantity, req.Reason, actor)
	if err != nil {
		return nil, err
	}
	s.logger.Info("return processed",
		zap.Int("order_item_id", req.OrderItemID),
		zap.String("quantity", req.Quantity.String()),
		zap.Int("actor", actor.UserID))
	return &ReturnResult{Return: ret}, nil
}

func (s *applicationService) ListReturns(ctx context.Context, ref string) (*ReturnListResult, error) {
	order, err := s.resolveOrder(ctx, ref)
	if err != nil {
		return nil, err
	}
	returns, err := s.returns.ListReturns(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	return &ReturnListResult{Returns: returns}, nil
}

// resolveOrder looks up an order by numeric ID or by display id.
func (s *applicationService) resolveOrder(ctx context.Context, ref string) (*core.Order, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, fmt.Errorf("%w: empty order reference", core.ErrValidation)
	}
	if id, err := strconv.Atoi(ref); err == nil {
		return s.orders.GetOrder(ctx, id)
	}
	return s.orders.GetOrderByDisplayID(ctx, strings.ToUpper(ref))
}
