package services

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"walletwatch/internal/core"
)

func TestProcess_PostsChildAndAdvancesParent(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	user, account := seedUserWithAccount(t, repo, "100")
	now := time.Date(2024, 6, 15, 9, 0, 0, 0, time.UTC)

	parent := recurringTx(user, account, core.Weekly)
	require.NoError(t, repo.CreateTransaction(ctx, &parent))

	processor := NewRecurrenceProcessor(repo)
	event := core.RecurrenceEvent{TransactionID: parent.ID, UserID: user.ID}
	require.NoError(t, processor.Process(ctx, event, now))

	acct, err := repo.GetAccount(ctx, account.ID)
	require.NoError(t, err)
	require.True(t, acct.Balance.Equal(decimal.NewFromInt(85)),
		"balance = %s, want 85", acct.Balance)

	updated, err := repo.GetTransactionForUser(ctx, parent.ID, user.ID)
	require.NoError(t, err)
	require.NotNil(t, updated.LastProcessed)
	require.True(t, updated.LastProcessed.UTC().Equal(now))
	require.NotNil(t, updated.NextRecurringDate)
	require.True(t, updated.NextRecurringDate.UTC().Equal(now.AddDate(0, 0, 7)))

	due, err := repo.ListDueRecurring(ctx, now)
	require.NoError(t, err)
	require.Empty(t, due, "parent should no longer be due")
}

func TestProcess_ChildCarriesRecurringSuffix(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	user, account := seedUserWithAccount(t, repo, "100")
	now := time.Date(2024, 6, 15, 9, 0, 0, 0, time.UTC)

	parent := recurringTx(user, account, core.Monthly)
	parent.Description = "Rent"
	require.NoError(t, repo.CreateTransaction(ctx, &parent))

	processor := NewRecurrenceProcessor(repo)
	event := core.RecurrenceEvent{TransactionID: parent.ID, UserID: user.ID}
	require.NoError(t, processor.Process(ctx, event, now))

	stats, err := repo.UserMonthStats(ctx, user.ID, now.AddDate(0, 0, -1), now.AddDate(0, 0, 1))
	require.NoError(t, err)
	require.True(t, stats.TotalExpenses.Equal(decimal.NewFromInt(15)))
}

func TestProcess_DuplicateDeliveryIsNoOp(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	user, account := seedUserWithAccount(t, repo, "100")
	now := time.Date(2024, 6, 15, 9, 0, 0, 0, time.UTC)

	parent := recurringTx(user, account, core.Weekly)
	require.NoError(t, repo.CreateTransaction(ctx, &parent))

	processor := NewRecurrenceProcessor(repo)
	event := core.RecurrenceEvent{TransactionID: parent.ID, UserID: user.ID}
	require.NoError(t, processor.Process(ctx, event, now))
	require.NoError(t, processor.Process(ctx, event, now))

	// second delivery must not double-post
	acct, err := repo.GetAccount(ctx, account.ID)
	require.NoError(t, err)
	require.True(t, acct.Balance.Equal(decimal.NewFromInt(85)),
		"balance = %s, want 85 after duplicate delivery", acct.Balance)
}

func TestProcess_InvalidEvent(t *testing.T) {
	processor := NewRecurrenceProcessor(setupRepo(t))

	err := processor.Process(context.Background(), core.RecurrenceEvent{}, time.Now())
	require.ErrorIs(t, err, core.ErrInvalidEvent)
}

func TestProcess_MissingTransactionIsNoOp(t *testing.T) {
	processor := NewRecurrenceProcessor(setupRepo(t))

	event := core.RecurrenceEvent{TransactionID: "gone", UserID: "nobody"}
	require.NoError(t, processor.Process(context.Background(), event, time.Now()))
}
