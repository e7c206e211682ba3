package wallet

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
)

var ErrInsufficientBalance = errors.New("insufficient wallet balance")

// LockTx loads the user's wallet under FOR UPDATE inside the caller's
// transaction, creating it with a zero balance when absent. The insert uses
// ON CONFLICT so concurrent first-touch callers cannot create duplicates;
// the loser of that race re-reads the winner's row.
func LockTx(ctx context.Context, tx *sqlx.Tx, userID int, currency string) (*Wallet, error) {
	w := &Wallet{}
	err := tx.QueryRowxContext(ctx,
		`SELECT id, user_id, balance, currency, created_at, updated_at
		 FROM wallets
		 WHERE user_id = $1
		 FOR UPDATE`,
		userID,
	).StructScan(w)
	if err == nil {
		return w, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO wallets (user_id, currency)
		 VALUES ($1, $2)
		 ON CONFLICT (user_id) DO NOTHING`,
		userID, currency,
	)
	if err != nil {
		return nil, err
	}

	err = tx.QueryRowxContext(ctx,
		`SELECT id, user_id, balance, currency, created_at, updated_at
		 FROM wallets
		 WHERE user_id = $1
		 FOR UPDATE`,
		userID,
	).StructScan(w)
	if err != nil {
		return nil, err
	}
	return w, nil
}

// ApplyTx mutates an already-locked wallet and journals the entry, both
// inside the caller's transaction. A debit that would drive the balance
// negative fails with ErrInsufficientBalance and writes nothing. The
// in-memory wallet balance is updated so a later ApplyTx on the same
// locked wallet sees the new balance.
func ApplyTx(ctx context.Context, tx *sqlx.Tx, w *Wallet, e Entry) (*Transaction, error) {
	if !e.Amount.IsPositive() {
		return nil, errors.New("wallet: entry amount must be positive")
	}

	var newBalance = w.Balance
	switch e.Direction {
	case DirectionCredit:
		newBalance = newBalance.Add(e.Amount)
	case DirectionDebit:
		newBalance = newBalance.Sub(e.Amount)
		if newBalance.IsNegative() {
			return nil, ErrInsufficientBalance
		}
	default:
		return nil, errors.New("wallet: unknown direction")
	}

	_, err := tx.ExecContext(ctx,
		`UPDATE wallets
		 SET balance = $1, updated_at = NOW()
		 WHERE id = $2`,
		newBalance, w.ID,
	)
	if err != nil {
		return nil, err
	}

	txn := &Transaction{}
	err = tx.QueryRowxContext(ctx,
		`INSERT INTO wallet_transactions
		     (user_id, wallet_id, direction, amount, currency, status, gateway, gateway_reference, description, metadata)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 RETURNING id, user_id, wallet_id, direction, amount, currency, status, gateway, gateway_reference, description, metadata, created_at`,
		w.UserID, w.ID, e.Direction, e.Amount, w.Currency, StatusCompleted,
		e.Gateway, e.GatewayReference, e.Description, e.Metadata,
	).StructScan(txn)
	if err != nil {
		return nil, err
	}

	w.Balance = newBalance
	return txn, nil
}

// Apply locks the wallet and applies one entry within the caller's
// transaction. The balance guard and the mutation share the row lock, so
// two concurrent debits can never both pass the check against a stale
// balance.
func Apply(ctx context.Context, tx *sqlx.Tx, userID int, currency string, e Entry) (*Transaction, error) {
	w, err := LockTx(ctx, tx, userID, currency)
	if err != nil {
		return nil, err
	}
	return ApplyTx(ctx, tx, w, e)
}
