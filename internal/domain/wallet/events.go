package wallet

import (
	"context"
	"time"
)

// TransactionEvent is emitted after a balance-changing operation commits.
// Consumers (the back-office realtime feed) get it best-effort; the ledger
// row is the source of truth.
type TransactionEvent struct {
	Type            TransactionType `json:"type"`
	Phone           string          `json:"phone"`
	Amount          int64           `json:"amount"`
	RealDelta       int64           `json:"real_delta"`
	VirtualDelta    int64           `json:"virtual_delta"`
	TransactionCode string          `json:"transaction_code"`
	OrderID         string          `json:"order_id,omitempty"`
	OccurredAt      time.Time       `json:"occurred_at"`
}

// EventPublisher pushes committed transaction events to subscribers.
type EventPublisher interface {
	PublishTransaction(ctx context.Context, event TransactionEvent)
}
