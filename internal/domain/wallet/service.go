package wallet

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// Service is the wallet balance engine. It is stateless: every operation
// reads and writes through the repository under the wallet's row lock, and
// the store is the single source of truth for balances.
type Service struct {
	repo   *Repository
	events EventPublisher
}

// NewService creates the engine. events may be nil.
func NewService(repo *Repository, events EventPublisher) *Service {
	return &Service{repo: repo, events: events}
}

// Deposit adds real money to the wallet identified by the normalized phone.
func (s *Service) Deposit(ctx context.Context, phone string, amount int64, sourceType SourceType, description string, actor Actor) (*DepositResult, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if sourceType != "" && !sourceType.Valid() {
		return nil, ErrInvalidSourceType
	}

	res, err := s.repo.Deposit(ctx, phone, amount, sourceType, description, actor)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("phone", phone).
		Int64("amount", amount).
		Str("transaction_code", res.TransactionCode).
		Msg("wallet deposit applied")

	s.publish(ctx, TransactionEvent{
		Type:            TransactionTypeDeposit,
		Phone:           phone,
		Amount:          amount,
		RealDelta:       amount,
		TransactionCode: res.TransactionCode,
		OccurredAt:      time.Now(),
	})
	return res, nil
}

// Withdraw debits the wallet, consuming virtual credits soonest-expiry
// first, then real balance. orderID correlates the ledger entry with the
// triggering order and deduplicates caller retries.
func (s *Service) Withdraw(ctx context.Context, phone string, amount int64, orderID, note string, actor Actor) (*WithdrawResult, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	res, err := s.repo.Withdraw(ctx, phone, amount, orderID, note, actor)
	if err != nil {
		return nil, err
	}

	if res.AlreadyApplied {
		log.Info().
			Str("phone", phone).
			Str("order_id", orderID).
			Str("transaction_code", res.TransactionCode).
			Msg("wallet withdraw already applied, returning prior result")
		return res, nil
	}

	log.Info().
		Str("phone", phone).
		Int64("amount", amount).
		Int64("virtual_used", res.VirtualUsed).
		Int64("real_used", res.RealUsed).
		Str("order_id", orderID).
		Str("transaction_code", res.TransactionCode).
		Msg("wallet withdraw applied")

	s.publish(ctx, TransactionEvent{
		Type:            TransactionTypeWithdraw,
		Phone:           phone,
		Amount:          amount,
		RealDelta:       -res.RealUsed,
		VirtualDelta:    -res.VirtualUsed,
		TransactionCode: res.TransactionCode,
		OrderID:         orderID,
		OccurredAt:      time.Now(),
	})
	return res, nil
}

// IssueVirtualCredit grants time-limited promotional or compensatory credit.
func (s *Service) IssueVirtualCredit(ctx context.Context, phone string, amount int64, expiryDays int, sourceType SourceType, sourceNote string, actor Actor) (*IssueCreditResult, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if expiryDays <= 0 {
		return nil, ErrInvalidExpiry
	}
	if !sourceType.Valid() {
		return nil, ErrInvalidSourceType
	}

	expiresAt := time.Now().AddDate(0, 0, expiryDays)
	res, err := s.repo.IssueCredit(ctx, phone, amount, expiresAt, sourceType, sourceNote, actor)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("phone", phone).
		Int64("amount", amount).
		Str("source_type", string(sourceType)).
		Time("expires_at", res.ExpiresAt).
		Str("transaction_code", res.TransactionCode).
		Msg("virtual credit issued")

	s.publish(ctx, TransactionEvent{
		Type:            TransactionTypeIssueCredit,
		Phone:           phone,
		Amount:          amount,
		VirtualDelta:    amount,
		TransactionCode: res.TransactionCode,
		OccurredAt:      time.Now(),
	})
	return res, nil
}

// GetBalance returns committed balances. No exclusive lock is taken.
func (s *Service) GetBalance(ctx context.Context, phone string) (*BalanceResult, error) {
	return s.repo.GetBalance(ctx, phone)
}

// ListCredits returns the phone's credit grants.
func (s *Service) ListCredits(ctx context.Context, phone string) ([]VirtualCredit, error) {
	return s.repo.ListCredits(ctx, phone)
}

// ListTransactions returns the phone's ledger history, newest first.
func (s *Service) ListTransactions(ctx context.Context, phone string, limit, offset int) ([]Transaction, error) {
	return s.repo.ListTransactions(ctx, phone, limit, offset)
}

// SearchTransactions returns filtered ledger entries (admin use).
func (s *Service) SearchTransactions(ctx context.Context, filters SearchFilters) ([]Transaction, error) {
	return s.repo.SearchTransactions(ctx, filters)
}

func (s *Service) publish(ctx context.Context, event TransactionEvent) {
	if s.events == nil {
		return
	}
	s.events.PublishTransaction(ctx, event)
}
