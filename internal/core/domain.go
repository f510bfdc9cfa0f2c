package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Income  TransactionType = "INCOME"
	Expense TransactionType = "EXPENSE"
)

const (
	StatusPending   TransactionStatus = "PENDING"
	StatusCompleted TransactionStatus = "COMPLETED"
)

const (
	Daily   RecurringInterval = "DAILY"
	Weekly  RecurringInterval = "WEEKLY"
	Monthly RecurringInterval = "MONTHLY"
	Yearly  RecurringInterval = "YEARLY"
)

type (
	TransactionType   string
	TransactionStatus string
	RecurringInterval string

	User struct {
		ID    string
		Name  string
		Email string
	}

	Account struct {
		ID        string
		UserID    string
		Name      string
		Balance   decimal.Decimal
		IsDefault bool
	}

	Transaction struct {
		ID          string
		UserID      string
		AccountID   string
		Type        TransactionType
		Amount      decimal.Decimal
		Description string
		Date        time.Time
		Category    string
		Status      TransactionStatus

		IsRecurring       bool
		RecurringInterval RecurringInterval // set only when IsRecurring
		LastProcessed     *time.Time
		NextRecurringDate *time.Time
	}

	Budget struct {
		ID            string
		UserID        string
		Amount        decimal.Decimal // monthly ceiling
		LastAlertSent *time.Time
	}

	// RecurrenceEvent is the transient unit of work handed from the
	// scheduler to the processor. It has no lifecycle beyond a single
	// delivery.
	RecurrenceEvent struct {
		TransactionID string
		UserID        string
	}
)

var (
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrInvalidType         = errors.New("invalid transaction type")
	ErrInvalidStatus       = errors.New("invalid transaction status")
	ErrEmptyDescription    = errors.New("empty description")
	ErrMissingInterval     = errors.New("recurring transaction without interval")
	ErrUnsupportedInterval = errors.New("unsupported recurring interval")

	// ErrInvalidEvent marks a malformed recurrence event. Retrying cannot
	// fix malformed input, so consumers drop these instead of requeueing.
	ErrInvalidEvent = errors.New("invalid recurrence event")
)

func (t TransactionType) Valid() bool {
	return t == Income || t == Expense
}

func (s TransactionStatus) Valid() bool {
	return s == StatusPending || s == StatusCompleted
}

func (i RecurringInterval) Valid() bool {
	switch i {
	case Daily, Weekly, Monthly, Yearly:
		return true
	default:
		return false
	}
}

// SignedAmount returns the amount with the sign applied to an account
// balance when the transaction posts: positive for income, negative for
// expense.
func (t Transaction) SignedAmount() decimal.Decimal {
	if t.Type == Expense {
		return t.Amount.Neg()
	}
	return t.Amount
}

func (t Transaction) Validate() error {
	if !t.Type.Valid() {
		return ErrInvalidType
	}
	if !t.Status.Valid() {
		return ErrInvalidStatus
	}
	if t.Amount.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidAmount
	}
	if strings.TrimSpace(t.Description) == "" {
		return ErrEmptyDescription
	}
	if t.IsRecurring && !t.RecurringInterval.Valid() {
		return ErrMissingInterval
	}
	return nil
}

func (b Budget) Validate() error {
	if b.Amount.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidAmount
	}
	return nil
}

// Validate rejects events missing either identifier.
func (e RecurrenceEvent) Validate() error {
	if strings.TrimSpace(e.TransactionID) == "" || strings.TrimSpace(e.UserID) == "" {
		return ErrInvalidEvent
	}
	return nil
}

// Due reports whether a recurring transaction should be processed at now.
// A recurring transaction that never ran is always due; otherwise it is
// due once its next scheduled occurrence has arrived.
func (t Transaction) Due(now time.Time) bool {
	if !t.IsRecurring {
		return false
	}
	if t.LastProcessed == nil {
		return true
	}
	return t.NextRecurringDate != nil && !t.NextRecurringDate.After(now)
}
