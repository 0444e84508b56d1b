package cache

import (
	"context"
	"time"

	"farmgate/internal/core"
)

// SummaryCache caches payment summary reports, which are read far more often
// than payments are written. A nil cache is a valid no-op.
type SummaryCache interface {
	Get(ctx context.Context, key string) ([]core.PaymentSummaryRow, bool, error)
	Set(ctx context.Context, key string, rows []core.PaymentSummaryRow, ttl time.Duration) error
	Invalidate(ctx context.Context) error
}
