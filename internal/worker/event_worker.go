// Package worker adapts queued recurrence events to the processing
// service, applying the per-user throttle before each one runs.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"walletwatch/internal/amqp"
	"walletwatch/internal/core"
	"walletwatch/internal/throttle"
)

// RecurrenceHandler processes a single validated recurrence event.
type RecurrenceHandler interface {
	Process(ctx context.Context, event core.RecurrenceEvent, now time.Time) error
}

// EventWorker is the queue-facing side of recurring transaction
// processing. It decodes each delivery, waits for throttle capacity
// keyed by user, and hands the event to the processor.
type EventWorker struct {
	processor RecurrenceHandler
	limiter   *throttle.Limiter
}

func NewEventWorker(processor RecurrenceHandler, limiter *throttle.Limiter) *EventWorker {
	return &EventWorker{
		processor: processor,
		limiter:   limiter,
	}
}

// HandleRecurrenceEvent processes one recurrence event message. When a
// user exceeds the per-minute rate, the event waits for the next window
// instead of being dropped.
func (w *EventWorker) HandleRecurrenceEvent(ctx context.Context, msg *amqp.RecurrenceEventMessage) error {
	event, err := msg.Event()
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "Processing recurrence event",
		"transaction_id", event.TransactionID,
		"user_id", event.UserID)

	if err := w.limiter.Wait(ctx, event.UserID); err != nil {
		return fmt.Errorf("wait for throttle slot: %w", err)
	}

	return w.processor.Process(ctx, event, time.Now())
}
