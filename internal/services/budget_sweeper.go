package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"walletwatch/internal/core"
	"walletwatch/internal/notify"
	"walletwatch/internal/storage"
)

// alertThreshold is the fraction of the monthly budget, as a
// percentage, at which an alert fires.
var alertThreshold = decimal.NewFromInt(80)

// BudgetSweeper periodically walks every budget, compares the current
// month's spending on the user's default account against the budget
// ceiling, and emails an alert at 80% usage. At most one alert goes out
// per budget per calendar month.
type BudgetSweeper struct {
	storage *storage.SQLiteRepository
	gateway notify.Gateway
}

func NewBudgetSweeper(storage *storage.SQLiteRepository, gateway notify.Gateway) *BudgetSweeper {
	return &BudgetSweeper{storage: storage, gateway: gateway}
}

// Sweep evaluates all budgets at now and returns the number of alerts
// sent. A failure to list budgets aborts the sweep; a failure on one
// budget is logged and does not stop the others.
func (s *BudgetSweeper) Sweep(ctx context.Context, now time.Time) (int, error) {
	rows, err := s.storage.ListBudgetsForAlerting(ctx)
	if err != nil {
		return 0, fmt.Errorf("list budgets: %w", err)
	}

	sent := 0
	for _, row := range rows {
		fired, err := s.checkBudget(ctx, row, now)
		if err != nil {
			slog.ErrorContext(ctx, "Budget check failed",
				"budget_id", row.Budget.ID,
				"user_id", row.Budget.UserID,
				"error", err)
			continue
		}
		if fired {
			sent++
		}
	}

	slog.InfoContext(ctx, "Budget sweep complete",
		"budgets", len(rows),
		"alerts_sent", sent)

	return sent, nil
}

func (s *BudgetSweeper) checkBudget(ctx context.Context, row storage.BudgetAlertRow, now time.Time) (bool, error) {
	if row.Account == nil {
		slog.InfoContext(ctx, "User has no default account, skipping budget",
			"budget_id", row.Budget.ID,
			"user_id", row.Budget.UserID)
		return false, nil
	}

	spent, err := s.storage.SumAccountExpenses(ctx, row.Budget.UserID, row.Account.ID, core.StartOfMonth(now), now)
	if err != nil {
		return false, fmt.Errorf("sum expenses: %w", err)
	}

	used := core.PercentageUsed(spent, row.Budget.Amount)
	if used.LessThan(alertThreshold) {
		return false, nil
	}
	if row.Budget.LastAlertSent != nil && core.SameCalendarMonth(*row.Budget.LastAlertSent, now) {
		return false, nil
	}

	body := notify.RenderBudgetAlert(notify.BudgetAlertData{
		UserName:       row.User.Name,
		AccountName:    row.Account.Name,
		BudgetAmount:   row.Budget.Amount,
		TotalExpenses:  spent,
		PercentageUsed: used,
	})
	result := s.gateway.Send(ctx, notify.Message{
		To:       row.User.Email,
		Subject:  notify.SubjectBudgetAlert,
		HTMLBody: body,
	})
	if !result.Success {
		// The alert condition was real either way. Record the attempt
		// so a flaky mail provider does not re-alert every six hours.
		slog.ErrorContext(ctx, "Budget alert delivery failed",
			"budget_id", row.Budget.ID,
			"user_id", row.Budget.UserID,
			"error", result.Err)
	}

	if err := s.storage.UpdateLastAlertSent(ctx, row.Budget.ID, now); err != nil {
		slog.ErrorContext(ctx, "Failed to record alert timestamp",
			"budget_id", row.Budget.ID,
			"error", err)
	}

	slog.InfoContext(ctx, "Budget alert processed",
		"budget_id", row.Budget.ID,
		"user_id", row.Budget.UserID,
		"percentage_used", used.StringFixed(1),
		"delivered", result.Success)

	return true, nil
}
