// Package services holds the two background engines: recurring
// transaction processing and budget threshold alerting, plus the
// monthly report dispatch built on the same ledger store.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"walletwatch/internal/storage"
)

// EventPublisher fans recurrence work out to the processing queue.
type EventPublisher interface {
	PublishRecurrenceEvent(ctx context.Context, transactionID, userID string) error
}

// RecurrenceScheduler performs the daily sweep over recurring
// transactions, emitting one processing event per due transaction. It
// never mutates the store itself; the sweep is safe to retry.
type RecurrenceScheduler struct {
	storage   *storage.SQLiteRepository
	publisher EventPublisher
}

func NewRecurrenceScheduler(storage *storage.SQLiteRepository, publisher EventPublisher) *RecurrenceScheduler {
	return &RecurrenceScheduler{
		storage:   storage,
		publisher: publisher,
	}
}

// SweepDue finds all due recurring transactions and emits one event per
// match. It returns the number of events emitted. A query failure aborts
// the sweep before any emission; a publish failure aborts mid-fan-out,
// which is safe because delivery is at-least-once and the processor
// rechecks due-ness.
func (s *RecurrenceScheduler) SweepDue(ctx context.Context, now time.Time) (int, error) {
	due, err := s.storage.ListDueRecurring(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("list due recurring transactions: %w", err)
	}

	slog.InfoContext(ctx, "Sweeping due recurring transactions",
		"due", len(due),
		"sweep_date", now.Format("2006-01-02"))

	emitted := 0
	for _, tx := range due {
		if err := s.publisher.PublishRecurrenceEvent(ctx, tx.ID, tx.UserID); err != nil {
			return emitted, fmt.Errorf("publish recurrence event for %s: %w", tx.ID, err)
		}
		emitted++
	}

	slog.InfoContext(ctx, "Recurrence sweep complete", "emitted", emitted)
	return emitted, nil
}
