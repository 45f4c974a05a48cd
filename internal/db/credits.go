package db

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/videogen-ai/backend/internal/models"
)

// Ledger is the Postgres-backed credit ledger. Reservations are a single
// conditional UPDATE, so a concurrent request for the same user can never
// drive the balance negative. Every reserve and refund also writes an audit
// entry — including for admins and Enterprise users, whose balance is never
// touched but whose usage still has to be accountable.
type Ledger struct {
	db *DB
}

func NewLedger(db *DB) *Ledger {
	return &Ledger{db: db}
}

// Reserve deducts amount from the user's balance. Returns false without
// deducting when the balance is insufficient. Privileged users (admin role
// or Enterprise plan) always reserve successfully with no balance change.
func (l *Ledger) Reserve(ctx context.Context, userID, generationID uuid.UUID, amount int) (bool, error) {
	user, err := l.db.GetUser(ctx, userID)
	if err != nil {
		return false, err
	}

	if user.Unlimited() {
		l.recordEntry(ctx, userID, generationID, models.CreditEntryReserve, amount, nil)
		return true, nil
	}

	var balance int
	err = l.db.QueryRowContext(ctx, `
		UPDATE users
		SET credits = credits - $1, updated_at = NOW()
		WHERE id = $2 AND credits >= $1
		RETURNING credits
	`, amount, userID).Scan(&balance)

	if err == sql.ErrNoRows {
		return false, nil // insufficient balance, nothing deducted
	}
	if err != nil {
		return false, fmt.Errorf("failed to reserve credits: %w", err)
	}

	l.recordEntry(ctx, userID, generationID, models.CreditEntryReserve, amount, &balance)
	return true, nil
}

// Refund returns amount to the user's balance. For privileged users whose
// reservation never deducted anything, only the audit entry is written.
func (l *Ledger) Refund(ctx context.Context, userID, generationID uuid.UUID, amount int) error {
	user, err := l.db.GetUser(ctx, userID)
	if err != nil {
		return err
	}

	if user.Unlimited() {
		l.recordEntry(ctx, userID, generationID, models.CreditEntryRefund, amount, nil)
		return nil
	}

	var balance int
	err = l.db.QueryRowContext(ctx, `
		UPDATE users
		SET credits = credits + $1, updated_at = NOW()
		WHERE id = $2
		RETURNING credits
	`, amount, userID).Scan(&balance)

	if err == sql.ErrNoRows {
		return fmt.Errorf("user not found")
	}
	if err != nil {
		return fmt.Errorf("failed to refund credits: %w", err)
	}

	l.recordEntry(ctx, userID, generationID, models.CreditEntryRefund, amount, &balance)
	return nil
}

// recordEntry writes the audit row. Audit failures are logged, not
// propagated — the balance mutation has already committed.
func (l *Ledger) recordEntry(ctx context.Context, userID, generationID uuid.UUID, entryType models.CreditEntryType, amount int, balanceAfter *int) {
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO credit_entries (id, user_id, generation_id, type, amount, balance_after)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, uuid.New(), userID, generationID, entryType, amount, balanceAfter)

	if err != nil {
		log.Printf("[Ledger] failed to record %s entry for user %s: %v", entryType, userID, err)
	}
}
