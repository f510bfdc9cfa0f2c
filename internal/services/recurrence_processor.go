package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"walletwatch/internal/core"
	"walletwatch/internal/storage"
)

// RecurrenceProcessor consumes one recurrence event: it revalidates
// due-ness against the store, posts the derived child transaction
// atomically with the balance adjustment, and advances the parent's
// schedule. Duplicate or stale deliveries become no-ops.
type RecurrenceProcessor struct {
	storage *storage.SQLiteRepository
}

func NewRecurrenceProcessor(storage *storage.SQLiteRepository) *RecurrenceProcessor {
	return &RecurrenceProcessor{storage: storage}
}

// Process handles a single recurrence event at now.
//
// Malformed events fail with core.ErrInvalidEvent and must not be
// retried. A vanished transaction is a no-op. An unknown interval fails
// that one transaction with core.ErrUnsupportedInterval and is not
// retried either, since the stored record will not improve on redelivery.
func (p *RecurrenceProcessor) Process(ctx context.Context, event core.RecurrenceEvent, now time.Time) error {
	if err := event.Validate(); err != nil {
		return err
	}

	parent, err := p.storage.GetTransactionForUser(ctx, event.TransactionID, event.UserID)
	if errors.Is(err, storage.ErrNotFound) {
		slog.InfoContext(ctx, "Recurring transaction no longer exists, skipping",
			"transaction_id", event.TransactionID,
			"user_id", event.UserID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("load recurring transaction: %w", err)
	}

	// Recheck due-ness locally. A duplicate delivery arrives after the
	// first one advanced next_recurring_date past now and becomes a
	// no-op, which makes processing idempotent.
	if !parent.Due(now) {
		slog.InfoContext(ctx, "Recurring transaction not due, skipping",
			"transaction_id", parent.ID,
			"next_recurring_date", parent.NextRecurringDate)
		return nil
	}

	next, err := core.NextOccurrence(now, parent.RecurringInterval)
	if err != nil {
		return fmt.Errorf("transaction %s: %w", parent.ID, err)
	}

	child := deriveChild(parent, now)
	if err := p.storage.PostRecurring(ctx, parent.ID, &child, now, next); err != nil {
		return fmt.Errorf("post recurring transaction %s: %w", parent.ID, err)
	}

	slog.InfoContext(ctx, "Processed recurring transaction",
		"transaction_id", parent.ID,
		"child_id", child.ID,
		"interval", parent.RecurringInterval,
		"next_recurring_date", next)

	return nil
}

// deriveChild builds the concrete posting created from a recurring
// parent. The child is itself non-recurring.
func deriveChild(parent *core.Transaction, now time.Time) core.Transaction {
	return core.Transaction{
		UserID:      parent.UserID,
		AccountID:   parent.AccountID,
		Type:        parent.Type,
		Amount:      parent.Amount,
		Description: parent.Description + " (Recurring)",
		Date:        now,
		Category:    parent.Category,
		Status:      core.StatusCompleted,
		IsRecurring: false,
	}
}
