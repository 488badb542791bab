package wallet

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const (
	queryTimeout = 5 * time.Second

	// Postgres error codes
	pqUniqueViolation    = "23505"
	pqLockNotAvailable   = "55P03"
	codeUniqueConstraint = "wallet_transactions_transaction_code_key"

	// How long a transaction waits for the wallet row lock before the
	// operation fails with ErrLockTimeout.
	rowLockTimeout = "3s"

	// Attempts to regenerate a transaction code after a unique-constraint
	// collision. Collisions only happen when two wallets race the same
	// per-day sequence value.
	maxCodeAttempts = 5
)

// Repository implements the ledger store: per-wallet pessimistic locking,
// atomic multi-row commits and transaction-code generation on Postgres.
type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// SearchFilters provides admin-facing ledger filtering.
type SearchFilters struct {
	Phone   *string
	Type    *string
	OrderID *string
	From    *time.Time
	To      *time.Time
	Limit   int
	Offset  int
}

/* ---------- reads (committed state, no exclusive lock) ---------- */

// GetBalance returns the committed balances for a phone. The virtual part
// is computed from ACTIVE, non-expired credits so that expiry is reflected
// without any write.
func (r *Repository) GetBalance(ctx context.Context, phone string) (*BalanceResult, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var real int64
	err := r.db.GetContext(ctx2, &real, `SELECT real_balance FROM wallets WHERE phone = $1`, phone)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrWalletNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get wallet", ErrInternal)
	}

	var virtual int64
	err = r.db.GetContext(ctx2, &virtual, `
		SELECT COALESCE(SUM(remaining_amount), 0)
		FROM virtual_credits
		WHERE phone = $1 AND status = 'ACTIVE' AND expires_at > now()
	`, phone)
	if err != nil {
		return nil, fmt.Errorf("%w: sum active credits", ErrInternal)
	}

	return &BalanceResult{
		RealBalance:    real,
		VirtualBalance: virtual,
		TotalBalance:   real + virtual,
	}, nil
}

// ListCredits returns all credit grants for a phone, newest expiry last.
func (r *Repository) ListCredits(ctx context.Context, phone string) ([]VirtualCredit, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	credits := make([]VirtualCredit, 0)
	err := r.db.SelectContext(ctx2, &credits, `
		SELECT id, phone, original_amount, remaining_amount, status, source_type, source_note, issued_at, expires_at
		FROM virtual_credits
		WHERE phone = $1
		ORDER BY expires_at ASC, issued_at ASC, id ASC
	`, phone)
	if err != nil {
		return nil, fmt.Errorf("%w: list credits", ErrInternal)
	}
	return credits, nil
}

// ListTransactions returns a phone's ledger entries, newest first.
func (r *Repository) ListTransactions(ctx context.Context, phone string, limit, offset int) ([]Transaction, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	if limit <= 0 {
		limit = 20
	}

	txns := make([]Transaction, 0)
	err := r.db.SelectContext(ctx2, &txns, `
		SELECT id, phone, type, amount, real_delta, virtual_delta, transaction_code,
		       order_id, source_type, description, performed_by, performed_role, created_at
		FROM wallet_transactions
		WHERE phone = $1
		ORDER BY created_at DESC, transaction_code DESC
		LIMIT $2 OFFSET $3
	`, phone, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%w: list transactions", ErrInternal)
	}
	return txns, nil
}

// SearchTransactions returns filtered ledger entries (admin use).
func (r *Repository) SearchTransactions(ctx context.Context, filters SearchFilters) ([]Transaction, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	base := `
		SELECT id, phone, type, amount, real_delta, virtual_delta, transaction_code,
		       order_id, source_type, description, performed_by, performed_role, created_at
		FROM wallet_transactions
		WHERE 1=1`
	args := make([]interface{}, 0, 8)
	idx := 1

	if filters.Phone != nil && *filters.Phone != "" {
		base += fmt.Sprintf(" AND phone = $%d", idx)
		args = append(args, *filters.Phone)
		idx++
	}
	if filters.Type != nil && *filters.Type != "" {
		base += fmt.Sprintf(" AND type = $%d", idx)
		args = append(args, *filters.Type)
		idx++
	}
	if filters.OrderID != nil && *filters.OrderID != "" {
		base += fmt.Sprintf(" AND order_id = $%d", idx)
		args = append(args, *filters.OrderID)
		idx++
	}
	if filters.From != nil {
		base += fmt.Sprintf(" AND created_at >= $%d", idx)
		args = append(args, *filters.From)
		idx++
	}
	if filters.To != nil {
		base += fmt.Sprintf(" AND created_at <= $%d", idx)
		args = append(args, *filters.To)
		idx++
	}

	limit := filters.Limit
	if limit <= 0 {
		limit = 50
	}
	base += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", idx, idx+1)
	args = append(args, limit, filters.Offset)

	txns := make([]Transaction, 0)
	if err := r.db.SelectContext(ctx2, &txns, base, args...); err != nil {
		return nil, fmt.Errorf("%w: search transactions", ErrInternal)
	}
	return txns, nil
}

// ListTransactionsBetween returns all ledger entries in [from, to), oldest
// first. Used by the reconciliation snapshot.
func (r *Repository) ListTransactionsBetween(ctx context.Context, from, to time.Time) ([]Transaction, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	txns := make([]Transaction, 0)
	err := r.db.SelectContext(ctx2, &txns, `
		SELECT id, phone, type, amount, real_delta, virtual_delta, transaction_code,
		       order_id, source_type, description, performed_by, performed_role, created_at
		FROM wallet_transactions
		WHERE created_at >= $1 AND created_at < $2
		ORDER BY created_at ASC, transaction_code ASC
	`, from, to)
	if err != nil {
		return nil, fmt.Errorf("%w: list transactions between", ErrInternal)
	}
	return txns, nil
}

/* ---------- lock discipline ---------- */

func (r *Repository) beginTx(ctx context.Context) (*sqlx.Tx, error) {
	tx, err := r.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, fmt.Errorf("%w: begin tx", ErrInternal)
	}
	// Bound the wait for the wallet row lock so a stuck holder surfaces as
	// a transient, retryable failure instead of hanging the caller.
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("SET LOCAL lock_timeout = '%s'", rowLockTimeout)); err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("%w: set lock timeout", ErrInternal)
	}
	return tx, nil
}

// lockWallet acquires the exclusive row lock on the wallet. All mutations,
// including virtual credit updates, happen only while this lock is held.
func (r *Repository) lockWallet(ctx context.Context, tx *sqlx.Tx, phone string) (*Wallet, error) {
	var w Wallet
	err := tx.GetContext(ctx, &w, `
		SELECT phone, real_balance, virtual_balance, total_deposited, total_withdrawn,
		       total_virtual_issued, total_virtual_used, is_frozen, created_at, updated_at
		FROM wallets
		WHERE phone = $1
		FOR UPDATE
	`, phone)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrWalletNotFound
	}
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == pqLockNotAvailable {
			return nil, ErrLockTimeout
		}
		return nil, fmt.Errorf("%w: lock wallet row", ErrInternal)
	}
	return &w, nil
}

// lockedCredits reads the phone's ACTIVE credits inside the transaction.
// Credits are never locked independently: the wallet row lock is what
// serializes access to them.
func (r *Repository) lockedCredits(ctx context.Context, tx *sqlx.Tx, phone string) ([]VirtualCredit, error) {
	credits := make([]VirtualCredit, 0)
	err := tx.SelectContext(ctx, &credits, `
		SELECT id, phone, original_amount, remaining_amount, status, source_type, source_note, issued_at, expires_at
		FROM virtual_credits
		WHERE phone = $1 AND status = 'ACTIVE'
		ORDER BY expires_at ASC, issued_at ASC, id ASC
	`, phone)
	if err != nil {
		return nil, fmt.Errorf("%w: load credits", ErrInternal)
	}
	return credits, nil
}

/* ---------- transaction codes ---------- */

// nextCodeSeq returns the next per-day sequence value by scanning the
// committed maximum for that date prefix. Two wallets can race to the same
// value; the unique constraint on transaction_code catches that and the
// caller regenerates.
func (r *Repository) nextCodeSeq(ctx context.Context, tx *sqlx.Tx, day string) (int, error) {
	var last int
	err := tx.GetContext(ctx, &last, `
		SELECT COALESCE(MAX(SUBSTRING(transaction_code FROM 13)::int), 0)
		FROM wallet_transactions
		WHERE transaction_code LIKE 'WT-' || $1 || '-%'
	`, day)
	if err != nil {
		return 0, fmt.Errorf("%w: next code sequence", ErrInternal)
	}
	return last + 1, nil
}

func formatCode(day string, seq int) string {
	return fmt.Sprintf("WT-%s-%06d", day, seq)
}

// insertTransaction writes the ledger row, generating the transaction code.
// A code collision forces regeneration with the next sequence value; it is
// never silently overwritten.
func (r *Repository) insertTransaction(ctx context.Context, tx *sqlx.Tx, t *Transaction) (string, error) {
	day := time.Now().UTC().Format("20060102")

	seq, err := r.nextCodeSeq(ctx, tx, day)
	if err != nil {
		return "", err
	}

	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code := formatCode(day, seq)
		_, err := tx.ExecContext(ctx, `
			INSERT INTO wallet_transactions (
				id, phone, type, amount, real_delta, virtual_delta,
				transaction_code, order_id, source_type, description,
				performed_by, performed_role
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		`, uuid.New(), t.Phone, string(t.Type), t.Amount, t.RealDelta, t.VirtualDelta,
			code, t.OrderID, t.SourceType, t.Description, t.PerformedBy, t.PerformedRole)
		if err == nil {
			return code, nil
		}

		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == pqUniqueViolation && pqErr.Constraint == codeUniqueConstraint {
			seq++
			continue
		}
		return "", fmt.Errorf("%w: insert ledger entry", ErrInternal)
	}
	return "", fmt.Errorf("%w: transaction code collision not resolved", ErrInternal)
}

/* ---------- operations ---------- */

// Deposit adds real money to a wallet under its row lock.
func (r *Repository) Deposit(ctx context.Context, phone string, amount int64, sourceType SourceType, description string, actor Actor) (*DepositResult, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	tx, err := r.beginTx(ctx2)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	w, err := r.lockWallet(ctx2, tx, phone)
	if err != nil {
		return nil, err
	}
	if w.IsFrozen {
		return nil, ErrWalletFrozen
	}

	newReal := w.RealBalance + amount
	if _, err := tx.ExecContext(ctx2, `
		UPDATE wallets
		SET real_balance = $2, total_deposited = total_deposited + $3, updated_at = now()
		WHERE phone = $1
	`, phone, newReal, amount); err != nil {
		return nil, fmt.Errorf("%w: update wallet", ErrInternal)
	}

	// No interaction with credits; the virtual part of the result is still
	// computed so expired grants are not reported as balance.
	credits, err := r.lockedCredits(ctx2, tx, phone)
	if err != nil {
		return nil, err
	}
	virtual := ActiveTotal(credits, time.Now())

	code, err := r.insertTransaction(ctx2, tx, &Transaction{
		Phone:         phone,
		Type:          TransactionTypeDeposit,
		Amount:        amount,
		RealDelta:     amount,
		SourceType:    sql.NullString{String: string(sourceType), Valid: sourceType != ""},
		Description:   description,
		PerformedBy:   actor.ID,
		PerformedRole: actor.Role,
	})
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%w: commit tx", ErrInternal)
	}

	return &DepositResult{
		NewRealBalance:    newReal,
		NewVirtualBalance: virtual,
		TotalBalance:      newReal + virtual,
		TransactionCode:   code,
	}, nil
}

// Withdraw debits a wallet, consuming virtual credits FIFO before real
// balance. The availability check and every write happen under the same
// wallet row lock, so racing withdrawals fully serialize.
func (r *Repository) Withdraw(ctx context.Context, phone string, amount int64, orderID, note string, actor Actor) (*WithdrawResult, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	tx, err := r.beginTx(ctx2)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	w, err := r.lockWallet(ctx2, tx, phone)
	if err != nil {
		return nil, err
	}
	if w.IsFrozen {
		return nil, ErrWalletFrozen
	}

	// A retried withdrawal with the same order id is a no-op returning the
	// prior outcome.
	if orderID != "" {
		prior, found, err := r.priorWithdrawal(ctx2, tx, phone, orderID)
		if err != nil {
			return nil, err
		}
		if found {
			now := time.Now()
			credits, err := r.lockedCredits(ctx2, tx, phone)
			if err != nil {
				return nil, err
			}
			virtual := ActiveTotal(credits, now)
			return &WithdrawResult{
				VirtualUsed:       -prior.VirtualDelta,
				RealUsed:          -prior.RealDelta,
				TotalUsed:         prior.Amount,
				NewRealBalance:    w.RealBalance,
				NewVirtualBalance: virtual,
				TransactionCode:   prior.TransactionCode,
				AlreadyApplied:    true,
			}, nil
		}
	}

	now := time.Now()
	credits, err := r.lockedCredits(ctx2, tx, phone)
	if err != nil {
		return nil, err
	}

	plan := PlanConsumption(credits, amount, now)
	available := w.RealBalance + plan.ActiveTotal
	if amount > available {
		return nil, ErrInsufficientBalance
	}
	realUsed := amount - plan.VirtualUsed

	for _, usage := range plan.Usages {
		if _, err := tx.ExecContext(ctx2, `
			UPDATE virtual_credits
			SET remaining_amount = $2, status = $3
			WHERE id = $1
		`, usage.CreditID, usage.RemainingAfter, string(usage.Status)); err != nil {
			return nil, fmt.Errorf("%w: update credit", ErrInternal)
		}
	}

	newReal := w.RealBalance - realUsed
	newVirtual := plan.ActiveTotal - plan.VirtualUsed
	if _, err := tx.ExecContext(ctx2, `
		UPDATE wallets
		SET real_balance = $2,
		    virtual_balance = $3,
		    total_withdrawn = total_withdrawn + $4,
		    total_virtual_used = total_virtual_used + $5,
		    updated_at = now()
		WHERE phone = $1
	`, phone, newReal, newVirtual, amount, plan.VirtualUsed); err != nil {
		return nil, fmt.Errorf("%w: update wallet", ErrInternal)
	}

	code, err := r.insertTransaction(ctx2, tx, &Transaction{
		Phone:         phone,
		Type:          TransactionTypeWithdraw,
		Amount:        amount,
		RealDelta:     -realUsed,
		VirtualDelta:  -plan.VirtualUsed,
		OrderID:       sql.NullString{String: orderID, Valid: orderID != ""},
		Description:   note,
		PerformedBy:   actor.ID,
		PerformedRole: actor.Role,
	})
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%w: commit tx", ErrInternal)
	}

	return &WithdrawResult{
		VirtualUsed:       plan.VirtualUsed,
		RealUsed:          realUsed,
		TotalUsed:         amount,
		NewRealBalance:    newReal,
		NewVirtualBalance: newVirtual,
		UsedCredits:       plan.Usages,
		TransactionCode:   code,
	}, nil
}

func (r *Repository) priorWithdrawal(ctx context.Context, tx *sqlx.Tx, phone, orderID string) (*Transaction, bool, error) {
	var t Transaction
	err := tx.GetContext(ctx, &t, `
		SELECT id, phone, type, amount, real_delta, virtual_delta, transaction_code,
		       order_id, source_type, description, performed_by, performed_role, created_at
		FROM wallet_transactions
		WHERE phone = $1 AND type = 'WITHDRAW' AND order_id = $2
		LIMIT 1
	`, phone, orderID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("%w: check prior withdrawal", ErrInternal)
	}
	return &t, true, nil
}

// IssueCredit grants a new ACTIVE virtual credit under the wallet lock.
func (r *Repository) IssueCredit(ctx context.Context, phone string, amount int64, expiresAt time.Time, sourceType SourceType, sourceNote string, actor Actor) (*IssueCreditResult, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	tx, err := r.beginTx(ctx2)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	w, err := r.lockWallet(ctx2, tx, phone)
	if err != nil {
		return nil, err
	}
	if w.IsFrozen {
		return nil, ErrWalletFrozen
	}

	creditID := uuid.New()
	if _, err := tx.ExecContext(ctx2, `
		INSERT INTO virtual_credits (id, phone, original_amount, remaining_amount, status, source_type, source_note, expires_at)
		VALUES ($1, $2, $3, $3, 'ACTIVE', $4, $5, $6)
	`, creditID, phone, amount, string(sourceType),
		sql.NullString{String: sourceNote, Valid: sourceNote != ""}, expiresAt); err != nil {
		return nil, fmt.Errorf("%w: insert credit", ErrInternal)
	}

	now := time.Now()
	credits, err := r.lockedCredits(ctx2, tx, phone)
	if err != nil {
		return nil, err
	}
	newVirtual := ActiveTotal(credits, now)

	if _, err := tx.ExecContext(ctx2, `
		UPDATE wallets
		SET virtual_balance = $2, total_virtual_issued = total_virtual_issued + $3, updated_at = now()
		WHERE phone = $1
	`, phone, newVirtual, amount); err != nil {
		return nil, fmt.Errorf("%w: update wallet", ErrInternal)
	}

	code, err := r.insertTransaction(ctx2, tx, &Transaction{
		Phone:         phone,
		Type:          TransactionTypeIssueCredit,
		Amount:        amount,
		VirtualDelta:  amount,
		SourceType:    sql.NullString{String: string(sourceType), Valid: true},
		Description:   sourceNote,
		PerformedBy:   actor.ID,
		PerformedRole: actor.Role,
	})
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%w: commit tx", ErrInternal)
	}

	return &IssueCreditResult{
		CreditID:          creditID,
		OriginalAmount:    amount,
		ExpiresAt:         expiresAt,
		NewVirtualBalance: newVirtual,
		TransactionCode:   code,
	}, nil
}

/* ---------- batch sweep (reporting only) ---------- */

// SweepExpiredCredits flips ACTIVE credits whose expiry passed more than
// grace ago to EXPIRED and resyncs the stored virtual balance, one wallet
// at a time under its lock. Withdraw-time availability never depends on
// this: expiry is evaluated at read time there.
func (r *Repository) SweepExpiredCredits(ctx context.Context, grace time.Duration) (int, error) {
	cutoff := time.Now().Add(-grace)

	phones := make([]string, 0)
	if err := r.db.SelectContext(ctx, &phones, `
		SELECT DISTINCT phone
		FROM virtual_credits
		WHERE status = 'ACTIVE' AND expires_at <= $1
	`, cutoff); err != nil {
		return 0, fmt.Errorf("%w: find stale credits", ErrInternal)
	}

	swept := 0
	for _, phone := range phones {
		n, err := r.sweepWallet(ctx, phone, cutoff)
		if err != nil {
			return swept, err
		}
		swept += n
	}
	return swept, nil
}

func (r *Repository) sweepWallet(ctx context.Context, phone string, cutoff time.Time) (int, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	tx, err := r.beginTx(ctx2)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	if _, err := r.lockWallet(ctx2, tx, phone); err != nil {
		return 0, err
	}

	res, err := tx.ExecContext(ctx2, `
		UPDATE virtual_credits
		SET status = 'EXPIRED'
		WHERE phone = $1 AND status = 'ACTIVE' AND expires_at <= $2
	`, phone, cutoff)
	if err != nil {
		return 0, fmt.Errorf("%w: expire credits", ErrInternal)
	}
	flipped, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: rows affected", ErrInternal)
	}

	credits, err := r.lockedCredits(ctx2, tx, phone)
	if err != nil {
		return 0, err
	}
	newVirtual := ActiveTotal(credits, time.Now())

	if _, err := tx.ExecContext(ctx2, `
		UPDATE wallets SET virtual_balance = $2, updated_at = now() WHERE phone = $1
	`, phone, newVirtual); err != nil {
		return 0, fmt.Errorf("%w: update wallet", ErrInternal)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("%w: commit tx", ErrInternal)
	}
	return int(flipped), nil
}
