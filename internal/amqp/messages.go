package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"walletwatch/internal/core"
)

// RecurrenceEventMessage is the wire form of a core.RecurrenceEvent.
// It carries only identifiers; the worker fetches the full transaction
// from the ledger store on delivery.
type RecurrenceEventMessage struct {
	TransactionID string    `json:"transaction_id"`
	UserID        string    `json:"user_id"`
	Timestamp     time.Time `json:"timestamp"`
}

func NewRecurrenceEventMessage(transactionID, userID string) *RecurrenceEventMessage {
	return &RecurrenceEventMessage{
		TransactionID: transactionID,
		UserID:        userID,
		Timestamp:     time.Now(),
	}
}

// Event converts the message to its domain form, rejecting malformed
// payloads at the boundary.
func (m *RecurrenceEventMessage) Event() (core.RecurrenceEvent, error) {
	event := core.RecurrenceEvent{
		TransactionID: m.TransactionID,
		UserID:        m.UserID,
	}
	if err := event.Validate(); err != nil {
		return core.RecurrenceEvent{}, err
	}
	return event, nil
}

func (m *RecurrenceEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func RecurrenceEventMessageFromJSON(data []byte) (*RecurrenceEventMessage, error) {
	var msg RecurrenceEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("unmarshal recurrence event: %w", err)
	}
	return &msg, nil
}
