package notify

import (
	"context"

	"go.uber.org/zap"

	"farmgate/internal/core"
)

// Sender delivers a receipt to the customer after a successful payment.
// Delivery failure is never fatal to the payment itself.
type Sender interface {
	SendReceipt(ctx context.Context, email string, bill core.BillData) error
}

// LogSender is the default Sender: it records the receipt event instead of
// emailing it. Swap in a real mail integration behind the same interface.
type LogSender struct {
	logger *zap.Logger
}

func NewLogSender(logger *zap.Logger) *LogSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSender{logger: logger}
}

func (s *LogSender) SendReceipt(_ context.Context, email string, bill core.BillData) error {
	s.logger.Info("receipt issued",
		zap.String("email", email),
		zap.String("order", bill.OrderDisplayID),
		zap.String("receipt_no", bill.ReceiptNo),
		zap.String("amount", bill.TransactionAmount.StringFixed(2)),
		zap.String("remaining", bill.RemainingBalance.StringFixed(2)),
		zap.String("payment_status", bill.PaymentStatusText),
	)
	return nil
}
