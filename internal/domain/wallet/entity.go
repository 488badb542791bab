package wallet

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// TransactionType classifies ledger entries.
type TransactionType string

const (
	TransactionTypeDeposit     TransactionType = "DEPOSIT"
	TransactionTypeWithdraw    TransactionType = "WITHDRAW"
	TransactionTypeIssueCredit TransactionType = "ISSUE_CREDIT"
)

// CreditStatus is the lifecycle state of a virtual credit grant.
type CreditStatus string

const (
	CreditStatusActive  CreditStatus = "ACTIVE"
	CreditStatusUsed    CreditStatus = "USED"
	CreditStatusExpired CreditStatus = "EXPIRED"
)

// SourceType categorizes where money or credit came from.
type SourceType string

const (
	SourcePromotion     SourceType = "promotion"
	SourceCompensation  SourceType = "compensation"
	SourceReturnShipper SourceType = "return_shipper"
	SourceManual        SourceType = "manual"
)

// Valid reports whether s is one of the known source types.
func (s SourceType) Valid() bool {
	switch s {
	case SourcePromotion, SourceCompensation, SourceReturnShipper, SourceManual:
		return true
	}
	return false
}

// Wallet holds a customer's balances, keyed by normalized phone.
// real_balance is spendable money; virtual_balance mirrors the sum of
// remaining amounts of the phone's ACTIVE, non-expired credits and is
// resynced lazily whenever credits are touched.
type Wallet struct {
	Phone              string    `db:"phone"`
	RealBalance        int64     `db:"real_balance"`
	VirtualBalance     int64     `db:"virtual_balance"`
	TotalDeposited     int64     `db:"total_deposited"`
	TotalWithdrawn     int64     `db:"total_withdrawn"`
	TotalVirtualIssued int64     `db:"total_virtual_issued"`
	TotalVirtualUsed   int64     `db:"total_virtual_used"`
	IsFrozen           bool      `db:"is_frozen"`
	CreatedAt          time.Time `db:"created_at"`
	UpdatedAt          time.Time `db:"updated_at"`
}

// VirtualCredit is one time-limited promotional or compensatory grant.
type VirtualCredit struct {
	ID              uuid.UUID      `db:"id"`
	Phone           string         `db:"phone"`
	OriginalAmount  int64          `db:"original_amount"`
	RemainingAmount int64          `db:"remaining_amount"`
	Status          CreditStatus   `db:"status"`
	SourceType      SourceType     `db:"source_type"`
	SourceNote      sql.NullString `db:"source_note"`
	IssuedAt        time.Time      `db:"issued_at"`
	ExpiresAt       time.Time      `db:"expires_at"`
}

// ExpiredAt reports whether the credit is past its expiry at the given time.
// Expiry is a read-time classification: rows are not flipped to EXPIRED here.
func (c *VirtualCredit) ExpiredAt(now time.Time) bool {
	return !c.ExpiresAt.After(now)
}

// Consumable reports whether the credit can cover part of a withdrawal.
func (c *VirtualCredit) Consumable(now time.Time) bool {
	return c.Status == CreditStatusActive && c.RemainingAmount > 0 && !c.ExpiredAt(now)
}

// Transaction is an append-only ledger row. Every balance mutation writes
// exactly one, in the same database transaction.
type Transaction struct {
	ID              uuid.UUID       `db:"id"`
	Phone           string          `db:"phone"`
	Type            TransactionType `db:"type"`
	Amount          int64           `db:"amount"`
	RealDelta       int64           `db:"real_delta"`
	VirtualDelta    int64           `db:"virtual_delta"`
	TransactionCode string          `db:"transaction_code"`
	OrderID         sql.NullString  `db:"order_id"`
	SourceType      sql.NullString  `db:"source_type"`
	Description     string          `db:"description"`
	PerformedBy     uuid.UUID       `db:"performed_by"`
	PerformedRole   string          `db:"performed_role"`
	CreatedAt       time.Time       `db:"created_at"`
}

// Actor identifies who triggered an operation, for the audit trail.
type Actor struct {
	ID   uuid.UUID
	Role string
}

// BalanceResult is the read-only balance view.
type BalanceResult struct {
	RealBalance    int64 `json:"real_balance"`
	VirtualBalance int64 `json:"virtual_balance"`
	TotalBalance   int64 `json:"total_balance"`
}

// DepositResult reports the outcome of a deposit.
type DepositResult struct {
	NewRealBalance    int64  `json:"new_real_balance"`
	NewVirtualBalance int64  `json:"new_virtual_balance"`
	TotalBalance      int64  `json:"total_balance"`
	TransactionCode   string `json:"transaction_code"`
}

// CreditUsage describes one credit touched by a withdrawal, in consumption
// order. RemainingAfter is meaningful only while Status is still ACTIVE.
type CreditUsage struct {
	CreditID       uuid.UUID    `json:"credit_id"`
	Amount         int64        `json:"amount"`
	Status         CreditStatus `json:"status"`
	RemainingAfter int64        `json:"remaining_after"`
}

// WithdrawResult reports the outcome of a withdrawal, including the exact
// credit consumption breakdown needed for reconciliation and receipts.
type WithdrawResult struct {
	VirtualUsed       int64         `json:"virtual_used"`
	RealUsed          int64         `json:"real_used"`
	TotalUsed         int64         `json:"total_used"`
	NewRealBalance    int64         `json:"new_real_balance"`
	NewVirtualBalance int64         `json:"new_virtual_balance"`
	UsedCredits       []CreditUsage `json:"used_credits"`
	TransactionCode   string        `json:"transaction_code"`
	AlreadyApplied    bool          `json:"already_applied,omitempty"`
}

// IssueCreditResult reports the outcome of a credit grant.
type IssueCreditResult struct {
	CreditID          uuid.UUID `json:"credit_id"`
	OriginalAmount    int64     `json:"original_amount"`
	ExpiresAt         time.Time `json:"expires_at"`
	NewVirtualBalance int64     `json:"new_virtual_balance"`
	TransactionCode   string    `json:"transaction_code"`
}
