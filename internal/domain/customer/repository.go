package customer

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const queryTimeout = 3 * time.Second

const pqUniqueViolation = "23505"

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// Create provisions a customer and their zero-balance wallet in one atomic
// unit. The wallet row exists from this point on; deposits never create it.
func (r *Repository) Create(ctx context.Context, c *Customer) error {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	tx, err := r.db.BeginTxx(ctx2, &sql.TxOptions{})
	if err != nil {
		return fmt.Errorf("%w: begin tx", ErrInternal)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx2, `
		INSERT INTO customers (phone, full_name)
		VALUES ($1, $2)
	`, c.Phone, c.FullName); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == pqUniqueViolation {
			return ErrAlreadyExists
		}
		return fmt.Errorf("%w: insert customer", ErrInternal)
	}

	if _, err := tx.ExecContext(ctx2, `
		INSERT INTO wallets (phone) VALUES ($1)
	`, c.Phone); err != nil {
		return fmt.Errorf("%w: provision wallet", ErrInternal)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit tx", ErrInternal)
	}
	return nil
}

// GetByPhone returns the customer for a normalized phone.
func (r *Repository) GetByPhone(ctx context.Context, phone string) (*Customer, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var c Customer
	err := r.db.GetContext(ctx2, &c, `
		SELECT phone, full_name, is_frozen, created_at, updated_at
		FROM customers
		WHERE phone = $1
	`, phone)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get customer", ErrInternal)
	}
	return &c, nil
}

// List returns customers ordered by creation, newest first.
func (r *Repository) List(ctx context.Context, limit, offset int) ([]Customer, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	if limit <= 0 {
		limit = 20
	}

	customers := make([]Customer, 0)
	err := r.db.SelectContext(ctx2, &customers, `
		SELECT phone, full_name, is_frozen, created_at, updated_at
		FROM customers
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%w: list customers", ErrInternal)
	}
	return customers, nil
}

// SetFrozen flips the freeze flag on the customer and their wallet in one
// atomic unit, so the engine's under-lock check observes it consistently.
func (r *Repository) SetFrozen(ctx context.Context, phone string, frozen bool) error {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	tx, err := r.db.BeginTxx(ctx2, &sql.TxOptions{})
	if err != nil {
		return fmt.Errorf("%w: begin tx", ErrInternal)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx2, `
		UPDATE customers SET is_frozen = $2, updated_at = now() WHERE phone = $1
	`, phone, frozen)
	if err != nil {
		return fmt.Errorf("%w: update customer", ErrInternal)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: rows affected", ErrInternal)
	}
	if rows == 0 {
		return ErrNotFound
	}

	if _, err := tx.ExecContext(ctx2, `
		UPDATE wallets SET is_frozen = $2, updated_at = now() WHERE phone = $1
	`, phone, frozen); err != nil {
		return fmt.Errorf("%w: update wallet", ErrInternal)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit tx", ErrInternal)
	}
	return nil
}
