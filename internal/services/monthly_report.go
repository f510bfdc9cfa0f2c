package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"walletwatch/internal/core"
	"walletwatch/internal/notify"
	"walletwatch/internal/storage"
)

// ReportGenerator emails every user a summary of the previous calendar
// month. Users are processed concurrently with a bounded fan-out so a
// large user base does not exhaust SQLite or the mail gateway.
type ReportGenerator struct {
	storage     *storage.SQLiteRepository
	gateway     notify.Gateway
	concurrency int
}

func NewReportGenerator(storage *storage.SQLiteRepository, gateway notify.Gateway, concurrency int) *ReportGenerator {
	if concurrency < 1 {
		concurrency = 1
	}
	return &ReportGenerator{storage: storage, gateway: gateway, concurrency: concurrency}
}

// GenerateAll sends the previous month's report to every user and
// returns the number of reports delivered. One user failing is logged
// and does not block the others.
func (g *ReportGenerator) GenerateAll(ctx context.Context, now time.Time) (int, error) {
	users, err := g.storage.ListUsers(ctx)
	if err != nil {
		return 0, fmt.Errorf("list users: %w", err)
	}

	first := core.StartOfMonth(now)
	from := first.AddDate(0, -1, 0)
	to := first.Add(-time.Nanosecond)
	month := from.Format("January 2006")

	var eg errgroup.Group
	eg.SetLimit(g.concurrency)

	results := make(chan bool, len(users))
	for _, u := range users {
		u := u
		eg.Go(func() error {
			if err := g.reportUser(ctx, u, month, from, to); err != nil {
				slog.ErrorContext(ctx, "Monthly report failed",
					"user_id", u.ID,
					"month", month,
					"error", err)
				return nil
			}
			results <- true
			return nil
		})
	}
	_ = eg.Wait()
	close(results)

	sent := len(results)
	slog.InfoContext(ctx, "Monthly report run complete",
		"month", month,
		"users", len(users),
		"reports_sent", sent)

	return sent, nil
}

func (g *ReportGenerator) reportUser(ctx context.Context, u core.User, month string, from, to time.Time) error {
	stats, err := g.storage.UserMonthStats(ctx, u.ID, from, to)
	if err != nil {
		return fmt.Errorf("month stats: %w", err)
	}

	body := notify.RenderMonthlyReport(notify.MonthlyReportData{
		UserName:      u.Name,
		Month:         month,
		TotalIncome:   stats.TotalIncome,
		TotalExpenses: stats.TotalExpenses,
		ByCategory:    stats.ByCategory,
		Insights:      buildInsights(stats),
	})
	result := g.gateway.Send(ctx, notify.Message{
		To:       u.Email,
		Subject:  notify.SubjectMonthlyReport,
		HTMLBody: body,
	})
	if !result.Success {
		return fmt.Errorf("send report: %w", result.Err)
	}
	return nil
}

// buildInsights derives short observations from a month's totals.
func buildInsights(stats storage.MonthStats) []string {
	var insights []string

	if stats.TotalIncome.IsZero() && stats.TotalExpenses.IsZero() {
		return []string{"No transactions recorded this month."}
	}

	if stats.TotalExpenses.GreaterThan(stats.TotalIncome) {
		insights = append(insights, "You spent more than you earned this month. Review your expenses to get back on track.")
	} else if stats.TotalIncome.IsPositive() {
		saved := stats.TotalIncome.Sub(stats.TotalExpenses)
		rate := saved.Div(stats.TotalIncome).Mul(decimal.NewFromInt(100))
		if rate.GreaterThanOrEqual(decimal.NewFromInt(20)) {
			insights = append(insights, fmt.Sprintf("Great job! You saved %s%% of your income this month.", rate.StringFixed(1)))
		} else {
			insights = append(insights, fmt.Sprintf("You saved %s%% of your income this month.", rate.StringFixed(1)))
		}
	}

	if category, amount, ok := topCategory(stats.ByCategory); ok {
		insights = append(insights, fmt.Sprintf("Your largest spending category was %s at %s.", category, core.FormatUSD(amount)))
	}

	return insights
}

func topCategory(byCategory map[string]decimal.Decimal) (string, decimal.Decimal, bool) {
	var (
		topName   string
		topAmount decimal.Decimal
		found     bool
	)
	for name, amount := range byCategory {
		if !found || amount.GreaterThan(topAmount) || (amount.Equal(topAmount) && name < topName) {
			topName, topAmount, found = name, amount, true
		}
	}
	return topName, topAmount, found
}
