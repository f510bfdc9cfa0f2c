package services

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"walletwatch/internal/core"
	"walletwatch/internal/notify"
	"walletwatch/internal/storage"
)

func setupRepo(t *testing.T) *storage.SQLiteRepository {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func seedUserWithAccount(t *testing.T, repo *storage.SQLiteRepository, balance string) (core.User, core.Account) {
	t.Helper()
	ctx := context.Background()
	user := core.User{Name: "Ada", Email: t.Name() + "@example.com"}
	require.NoError(t, repo.CreateUser(ctx, &user))
	account := core.Account{
		UserID:    user.ID,
		Name:      "Checking",
		Balance:   decimal.RequireFromString(balance),
		IsDefault: true,
	}
	require.NoError(t, repo.CreateAccount(ctx, &account))
	return user, account
}

type publishedEvent struct {
	TransactionID string
	UserID        string
}

// fakePublisher records published events and can fail from a given call
// number onward.
type fakePublisher struct {
	mu        sync.Mutex
	events    []publishedEvent
	failAfter int // fail once len(events) reaches this count; 0 disables
}

var errPublishBroken = errors.New("broker unavailable")

func (p *fakePublisher) PublishRecurrenceEvent(_ context.Context, transactionID, userID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failAfter > 0 && len(p.events) >= p.failAfter {
		return errPublishBroken
	}
	p.events = append(p.events, publishedEvent{TransactionID: transactionID, UserID: userID})
	return nil
}

// fakeGateway records sent messages; fail makes every Send report a
// delivery failure.
type fakeGateway struct {
	mu       sync.Mutex
	messages []notify.Message
	fail     bool
}

var errGatewayDown = errors.New("smtp unavailable")

func (g *fakeGateway) Send(_ context.Context, msg notify.Message) notify.Result {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.fail {
		return notify.Failed(errGatewayDown)
	}
	g.messages = append(g.messages, msg)
	return notify.Ok()
}

func (g *fakeGateway) sent() []notify.Message {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]notify.Message(nil), g.messages...)
}
