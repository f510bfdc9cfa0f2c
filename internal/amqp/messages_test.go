package amqp

import (
	"errors"
	"testing"

	"walletwatch/internal/core"
)

func TestRecurrenceEventMessageRoundTrip(t *testing.T) {
	msg := NewRecurrenceEventMessage("tx-123", "user-456")

	body, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON() error = %v", err)
	}

	decoded, err := RecurrenceEventMessageFromJSON(body)
	if err != nil {
		t.Fatalf("FromJSON() error = %v", err)
	}
	if decoded.TransactionID != "tx-123" || decoded.UserID != "user-456" {
		t.Errorf("decoded = %+v, want transaction tx-123 / user user-456", decoded)
	}
}

func TestRecurrenceEventMessageFromJSON_Malformed(t *testing.T) {
	if _, err := RecurrenceEventMessageFromJSON([]byte("{not json")); err == nil {
		t.Error("expected error for malformed JSON")
	}
}

func TestRecurrenceEventMessage_Event(t *testing.T) {
	tests := []struct {
		name    string
		msg     RecurrenceEventMessage
		wantErr bool
	}{
		{
			name: "valid",
			msg:  RecurrenceEventMessage{TransactionID: "tx-1", UserID: "user-1"},
		},
		{
			name:    "missing transaction id",
			msg:     RecurrenceEventMessage{UserID: "user-1"},
			wantErr: true,
		},
		{
			name:    "missing user id",
			msg:     RecurrenceEventMessage{TransactionID: "tx-1"},
			wantErr: true,
		},
		{
			name:    "whitespace ids",
			msg:     RecurrenceEventMessage{TransactionID: "  ", UserID: "user-1"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event, err := tt.msg.Event()
			if tt.wantErr {
				if !errors.Is(err, core.ErrInvalidEvent) {
					t.Errorf("Event() error = %v, want ErrInvalidEvent", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Event() error = %v", err)
			}
			if event.TransactionID != tt.msg.TransactionID {
				t.Errorf("event transaction id = %q, want %q", event.TransactionID, tt.msg.TransactionID)
			}
		})
	}
}
