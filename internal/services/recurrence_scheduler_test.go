package services

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"walletwatch/internal/core"
)

func TestSweepDue_EmitsOnlyDueTransactions(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	user, account := seedUserWithAccount(t, repo, "1000")
	now := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)

	due := recurringTx(user, account, core.Daily)
	require.NoError(t, repo.CreateTransaction(ctx, &due))

	past := now.AddDate(0, 0, -3)
	future := now.AddDate(0, 0, 3)
	notDue := recurringTx(user, account, core.Monthly)
	notDue.LastProcessed = &past
	notDue.NextRecurringDate = &future
	require.NoError(t, repo.CreateTransaction(ctx, &notDue))

	pub := &fakePublisher{}
	scheduler := NewRecurrenceScheduler(repo, pub)

	emitted, err := scheduler.SweepDue(ctx, now)
	require.NoError(t, err)
	require.Equal(t, 1, emitted)
	require.Len(t, pub.events, 1)
	require.Equal(t, due.ID, pub.events[0].TransactionID)
	require.Equal(t, user.ID, pub.events[0].UserID)
}

func TestSweepDue_PublishFailureAbortsMidSweep(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	user, account := seedUserWithAccount(t, repo, "1000")
	now := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		tx := recurringTx(user, account, core.Daily)
		require.NoError(t, repo.CreateTransaction(ctx, &tx))
	}

	pub := &fakePublisher{failAfter: 2}
	scheduler := NewRecurrenceScheduler(repo, pub)

	emitted, err := scheduler.SweepDue(ctx, now)
	require.ErrorIs(t, err, errPublishBroken)
	require.Equal(t, 2, emitted)
	require.Len(t, pub.events, 2)
}

func TestSweepDue_EmptySweep(t *testing.T) {
	repo := setupRepo(t)
	pub := &fakePublisher{}
	scheduler := NewRecurrenceScheduler(repo, pub)

	emitted, err := scheduler.SweepDue(context.Background(), time.Now())
	require.NoError(t, err)
	require.Zero(t, emitted)
	require.Empty(t, pub.events)
}

func recurringTx(user core.User, account core.Account, interval core.RecurringInterval) core.Transaction {
	return core.Transaction{
		UserID:            user.ID,
		AccountID:         account.ID,
		Type:              core.Expense,
		Amount:            decimal.NewFromInt(15),
		Description:       "Netflix",
		Date:              time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Category:          "entertainment",
		Status:            core.StatusCompleted,
		IsRecurring:       true,
		RecurringInterval: interval,
	}
}
