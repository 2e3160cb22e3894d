package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/squadmint/treasury/internal/treasury"
)

// Balance returns the ledger balance of an account. Accounts with no row
// hold zero.
func (s *Store) Balance(ctx context.Context, account string) (uint64, error) {
	return s.balance(ctx, s.db, account)
}

func (s *Store) balance(ctx context.Context, r runner, account string) (uint64, error) {
	var amount uint64
	err := r.QueryRowContext(ctx, `SELECT amount FROM balances WHERE account = ?`, account).Scan(&amount)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("balance %s: %w", account, err)
	}
	return amount, nil
}

// Credit adds amount to an account, creating the row if needed.
func (s *Store) Credit(ctx context.Context, tx *sql.Tx, account string, amount uint64) error {
	_, err := s.on(tx).ExecContext(ctx, `
		INSERT INTO balances (account, amount) VALUES (?, ?)
		ON CONFLICT(account) DO UPDATE SET amount = amount + excluded.amount
	`, account, amount)
	if err != nil {
		return fmt.Errorf("credit %s: %w", account, err)
	}
	return nil
}

// Debit subtracts amount from an account. Fails with an
// INSUFFICIENT_FUNDS treasury error when the balance cannot cover it, so
// a short debit aborts the surrounding transaction.
func (s *Store) Debit(ctx context.Context, tx *sql.Tx, account string, amount uint64) error {
	res, err := s.on(tx).ExecContext(ctx, `
		UPDATE balances SET amount = amount - ? WHERE account = ? AND amount >= ?
	`, amount, account, amount)
	if err != nil {
		return fmt.Errorf("debit %s: %w", account, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("debit %s: %w", account, err)
	}
	if n == 0 {
		return &treasury.Error{
			Code:    treasury.ErrCodeInsufficientFunds,
			Message: fmt.Sprintf("account %s cannot cover %d", account, amount),
		}
	}
	return nil
}

// Apply executes a transfer as an atomic debit/credit pair within the
// caller's transaction.
func (s *Store) Apply(ctx context.Context, tx *sql.Tx, tr *treasury.Transfer) error {
	if tr == nil {
		return nil
	}
	if err := s.Debit(ctx, tx, tr.From, tr.Amount); err != nil {
		return err
	}
	return s.Credit(ctx, tx, tr.To, tr.Amount)
}
