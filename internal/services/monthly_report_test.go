package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"walletwatch/internal/core"
	"walletwatch/internal/storage"
)

func TestGenerateAll_ReportsPreviousMonth(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	user, account := seedUserWithAccount(t, repo, "0")

	// the report run happens in August and covers July
	now := time.Date(2024, 8, 1, 9, 0, 0, 0, time.UTC)
	july := time.Date(2024, 7, 10, 0, 0, 0, 0, time.UTC)

	add := func(txType core.TransactionType, amount, category string, date time.Time) {
		tx := core.Transaction{
			UserID:      user.ID,
			AccountID:   account.ID,
			Type:        txType,
			Amount:      decimal.RequireFromString(amount),
			Description: "tx",
			Category:    category,
			Date:        date,
			Status:      core.StatusCompleted,
		}
		require.NoError(t, repo.CreateTransaction(ctx, &tx))
	}
	add(core.Income, "10000", "salary", july)
	add(core.Expense, "3000", "rent", july.AddDate(0, 0, 1))
	add(core.Expense, "400", "groceries", july.AddDate(0, 0, 5))
	add(core.Expense, "999", "rent", now) // August, outside the window

	gateway := &fakeGateway{}
	gen := NewReportGenerator(repo, gateway, 4)

	sent, err := gen.GenerateAll(ctx, now)
	require.NoError(t, err)
	require.Equal(t, 1, sent)

	msgs := gateway.sent()
	require.Len(t, msgs, 1)
	require.Equal(t, user.Email, msgs[0].To)
	require.Equal(t, "Your Monthly Financial Report", msgs[0].Subject)
	require.True(t, strings.Contains(msgs[0].HTMLBody, "July 2024"))
	require.True(t, strings.Contains(msgs[0].HTMLBody, "$10000.00"))
	require.True(t, strings.Contains(msgs[0].HTMLBody, "$3400.00"))
	require.False(t, strings.Contains(msgs[0].HTMLBody, "$999"))
}

func TestGenerateAll_GatewayFailureDoesNotAbortRun(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	seedUserWithAccount(t, repo, "0")

	gateway := &fakeGateway{fail: true}
	gen := NewReportGenerator(repo, gateway, 2)

	sent, err := gen.GenerateAll(ctx, time.Date(2024, 8, 1, 9, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Zero(t, sent)
}

func TestGenerateAll_NoUsers(t *testing.T) {
	repo := setupRepo(t)
	gateway := &fakeGateway{}
	gen := NewReportGenerator(repo, gateway, 2)

	sent, err := gen.GenerateAll(context.Background(), time.Now())
	require.NoError(t, err)
	require.Zero(t, sent)
	require.Empty(t, gateway.sent())
}

func TestBuildInsights(t *testing.T) {
	tests := []struct {
		name     string
		stats    storage.MonthStats
		contains []string
	}{
		{
			name:     "no activity",
			stats:    storage.MonthStats{TotalIncome: decimal.Zero, TotalExpenses: decimal.Zero},
			contains: []string{"No transactions recorded"},
		},
		{
			name: "overspent",
			stats: storage.MonthStats{
				TotalIncome:   decimal.NewFromInt(1000),
				TotalExpenses: decimal.NewFromInt(1500),
			},
			contains: []string{"spent more than you earned"},
		},
		{
			name: "healthy savings",
			stats: storage.MonthStats{
				TotalIncome:   decimal.NewFromInt(10000),
				TotalExpenses: decimal.NewFromInt(5000),
			},
			contains: []string{"Great job", "50.0%"},
		},
		{
			name: "top category",
			stats: storage.MonthStats{
				TotalIncome:   decimal.NewFromInt(10000),
				TotalExpenses: decimal.NewFromInt(5000),
				ByCategory: map[string]decimal.Decimal{
					"rent":      decimal.NewFromInt(3000),
					"groceries": decimal.NewFromInt(2000),
				},
			},
			contains: []string{"rent", "$3000.00"},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			insights := buildInsights(tc.stats)
			joined := strings.Join(insights, "\n")
			for _, want := range tc.contains {
				require.Contains(t, joined, want)
			}
		})
	}
}
