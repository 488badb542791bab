package wallet

import (
	"time"

	"github.com/google/uuid"
)

// CreditView is the API shape of a virtual credit grant.
type CreditView struct {
	ID              uuid.UUID    `json:"id"`
	OriginalAmount  int64        `json:"original_amount"`
	RemainingAmount int64        `json:"remaining_amount"`
	Status          CreditStatus `json:"status"`
	SourceType      SourceType   `json:"source_type"`
	SourceNote      string       `json:"source_note,omitempty"`
	IssuedAt        time.Time    `json:"issued_at"`
	ExpiresAt       time.Time    `json:"expires_at"`
}

// TransactionView is the API shape of a ledger entry.
type TransactionView struct {
	ID              uuid.UUID       `json:"id"`
	Phone           string          `json:"phone"`
	Type            TransactionType `json:"type"`
	Amount          int64           `json:"amount"`
	RealDelta       int64           `json:"real_delta"`
	VirtualDelta    int64           `json:"virtual_delta"`
	TransactionCode string          `json:"transaction_code"`
	OrderID         string          `json:"order_id,omitempty"`
	SourceType      string          `json:"source_type,omitempty"`
	Description     string          `json:"description,omitempty"`
	PerformedBy     uuid.UUID       `json:"performed_by"`
	PerformedRole   string          `json:"performed_role,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

func toCreditViews(credits []VirtualCredit) []CreditView {
	views := make([]CreditView, 0, len(credits))
	for _, c := range credits {
		views = append(views, CreditView{
			ID:              c.ID,
			OriginalAmount:  c.OriginalAmount,
			RemainingAmount: c.RemainingAmount,
			Status:          c.Status,
			SourceType:      c.SourceType,
			SourceNote:      c.SourceNote.String,
			IssuedAt:        c.IssuedAt,
			ExpiresAt:       c.ExpiresAt,
		})
	}
	return views
}

func toTransactionViews(txns []Transaction) []TransactionView {
	views := make([]TransactionView, 0, len(txns))
	for _, t := range txns {
		views = append(views, TransactionView{
			ID:              t.ID,
			Phone:           t.Phone,
			Type:            t.Type,
			Amount:          t.Amount,
			RealDelta:       t.RealDelta,
			VirtualDelta:    t.VirtualDelta,
			TransactionCode: t.TransactionCode,
			OrderID:         t.OrderID.String,
			SourceType:      t.SourceType.String,
			Description:     t.Description,
			PerformedBy:     t.PerformedBy,
			PerformedRole:   t.PerformedRole,
			CreatedAt:       t.CreatedAt,
		})
	}
	return views
}
