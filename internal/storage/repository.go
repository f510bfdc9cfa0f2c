package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"walletwatch/internal/core"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a referenced row does not exist. Callers
// in the processing engines treat it as "the record vanished", not as a
// failure.
var ErrNotFound = errors.New("not found")

// SQLiteRepository is the ledger store: users, accounts, transactions
// and budgets backed by a single SQLite database.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// utcOrNil normalizes optional timestamps to UTC so that stored values
// compare correctly in SQL.
func utcOrNil(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}

// CreateUser inserts a user, generating an ID when none is set.
func (r *SQLiteRepository) CreateUser(ctx context.Context, u *core.User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, name, email) VALUES (?, ?, ?)`,
		u.ID, u.Name, u.Email)
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) CreateAccount(ctx context.Context, a *core.Account) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO accounts (id, user_id, name, balance, is_default) VALUES (?, ?, ?, ?, ?)`,
		a.ID, a.UserID, a.Name, a.Balance.String(), a.IsDefault)
	if err != nil {
		return fmt.Errorf("create account: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) CreateBudget(ctx context.Context, b *core.Budget) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO budgets (id, user_id, amount, last_alert_sent) VALUES (?, ?, ?, ?)`,
		b.ID, b.UserID, b.Amount.String(), utcOrNil(b.LastAlertSent))
	if err != nil {
		return fmt.Errorf("create budget: %w", err)
	}
	return nil
}

// CreateTransaction inserts a transaction without touching any account
// balance. Posting side effects belong to PostRecurring or the caller.
func (r *SQLiteRepository) CreateTransaction(ctx context.Context, t *core.Transaction) error {
	if err := t.Validate(); err != nil {
		return err
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	interval := any(nil)
	if t.RecurringInterval != "" {
		interval = string(t.RecurringInterval)
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO transactions
			(id, user_id, account_id, type, amount, description, date, category,
			 status, is_recurring, recurring_interval, last_processed, next_recurring_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.UserID, t.AccountID, string(t.Type), t.Amount.String(),
		t.Description, t.Date.UTC(), t.Category, string(t.Status),
		t.IsRecurring, interval, utcOrNil(t.LastProcessed), utcOrNil(t.NextRecurringDate))
	if err != nil {
		return fmt.Errorf("create transaction: %w", err)
	}
	return nil
}

const transactionColumns = `
	id, user_id, account_id, type, amount, description, date, category,
	status, is_recurring, recurring_interval, last_processed, next_recurring_date`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (core.Transaction, error) {
	var (
		t        core.Transaction
		amount   string
		interval sql.NullString
		date     time.Time
		lastProc sql.NullTime
		nextDate sql.NullTime
	)
	err := row.Scan(&t.ID, &t.UserID, &t.AccountID, (*string)(&t.Type), &amount,
		&t.Description, &date, &t.Category, (*string)(&t.Status),
		&t.IsRecurring, &interval, &lastProc, &nextDate)
	if err != nil {
		return core.Transaction{}, err
	}
	t.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("parse amount %q: %w", amount, err)
	}
	t.Date = date
	if interval.Valid {
		t.RecurringInterval = core.RecurringInterval(interval.String)
	}
	if lastProc.Valid {
		v := lastProc.Time
		t.LastProcessed = &v
	}
	if nextDate.Valid {
		v := nextDate.Time
		t.NextRecurringDate = &v
	}
	return t, nil
}

// ListDueRecurring returns all completed recurring transactions that are
// due at now: never processed, or with a next occurrence at or before now.
func (r *SQLiteRepository) ListDueRecurring(ctx context.Context, now time.Time) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT`+transactionColumns+`
		FROM transactions
		WHERE is_recurring = 1
		  AND status = 'COMPLETED'
		  AND (last_processed IS NULL OR next_recurring_date <= ?)`,
		now.UTC())
	if err != nil {
		return nil, fmt.Errorf("list due recurring: %w", err)
	}
	defer rows.Close()

	var due []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan due recurring: %w", err)
		}
		due = append(due, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list due recurring: %w", err)
	}
	return due, nil
}

// GetTransactionForUser fetches a transaction scoped to its owner.
// Returns ErrNotFound when the row no longer exists or was reassigned.
func (r *SQLiteRepository) GetTransactionForUser(ctx context.Context, txID, userID string) (*core.Transaction, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT`+transactionColumns+`
		FROM transactions
		WHERE id = ? AND user_id = ?`,
		txID, userID)
	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get transaction: %w", err)
	}
	return &t, nil
}

func scanAccount(row rowScanner) (core.Account, error) {
	var (
		a       core.Account
		balance string
	)
	if err := row.Scan(&a.ID, &a.UserID, &a.Name, &balance, &a.IsDefault); err != nil {
		return core.Account{}, err
	}
	var err error
	a.Balance, err = decimal.NewFromString(balance)
	if err != nil {
		return core.Account{}, fmt.Errorf("parse balance %q: %w", balance, err)
	}
	return a, nil
}

func (r *SQLiteRepository) GetAccount(ctx context.Context, accountID string) (*core.Account, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, name, balance, is_default FROM accounts WHERE id = ?`,
		accountID)
	a, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}
	return &a, nil
}

// PostRecurring applies one recurrence atomically: it inserts the derived
// child transaction, adjusts the account balance by the child's signed
// amount, and advances the parent's bookkeeping to (processedAt, next).
// All three writes commit or roll back together.
func (r *SQLiteRepository) PostRecurring(ctx context.Context, parentID string, child *core.Transaction, processedAt, next time.Time) error {
	if err := child.Validate(); err != nil {
		return err
	}
	if child.ID == "" {
		child.ID = uuid.NewString()
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin posting transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO transactions
			(id, user_id, account_id, type, amount, description, date, category,
			 status, is_recurring)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 0)`,
		child.ID, child.UserID, child.AccountID, string(child.Type),
		child.Amount.String(), child.Description, child.Date.UTC(),
		child.Category, string(child.Status))
	if err != nil {
		return fmt.Errorf("insert child transaction: %w", err)
	}

	var balanceStr string
	err = tx.QueryRowContext(ctx,
		`SELECT balance FROM accounts WHERE id = ?`, child.AccountID).Scan(&balanceStr)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("read account balance: %w", err)
	}
	balance, err := decimal.NewFromString(balanceStr)
	if err != nil {
		return fmt.Errorf("parse balance %q: %w", balanceStr, err)
	}
	newBalance := balance.Add(child.SignedAmount())

	_, err = tx.ExecContext(ctx,
		`UPDATE accounts SET balance = ? WHERE id = ?`,
		newBalance.String(), child.AccountID)
	if err != nil {
		return fmt.Errorf("update account balance: %w", err)
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE transactions
		SET last_processed = ?, next_recurring_date = ?
		WHERE id = ?`,
		processedAt.UTC(), next.UTC(), parentID)
	if err != nil {
		return fmt.Errorf("advance parent transaction: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit posting transaction: %w", err)
	}

	slog.InfoContext(ctx, "Posted recurring transaction",
		"parent_id", parentID,
		"child_id", child.ID,
		"account_id", child.AccountID,
		"amount", child.Amount.String(),
		"new_balance", newBalance.String())

	return nil
}

// SumAccountExpenses totals EXPENSE amounts on one account within
// [from, to]. The sum is computed in decimal arithmetic, not SQL floats.
func (r *SQLiteRepository) SumAccountExpenses(ctx context.Context, userID, accountID string, from, to time.Time) (decimal.Decimal, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT amount
		FROM transactions
		WHERE user_id = ? AND account_id = ? AND type = 'EXPENSE'
		  AND date >= ? AND date <= ?`,
		userID, accountID, from.UTC(), to.UTC())
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum account expenses: %w", err)
	}
	defer rows.Close()

	total := decimal.Zero
	for rows.Next() {
		var amount string
		if err := rows.Scan(&amount); err != nil {
			return decimal.Zero, fmt.Errorf("scan expense amount: %w", err)
		}
		d, err := decimal.NewFromString(amount)
		if err != nil {
			return decimal.Zero, fmt.Errorf("parse expense amount %q: %w", amount, err)
		}
		total = total.Add(d)
	}
	if err := rows.Err(); err != nil {
		return decimal.Zero, fmt.Errorf("sum account expenses: %w", err)
	}
	return total, nil
}

// BudgetAlertRow is one budget joined with its owner and the owner's
// default account. Account is nil when the user has no default account.
type BudgetAlertRow struct {
	Budget  core.Budget
	User    core.User
	Account *core.Account
}

// ListBudgetsForAlerting returns every budget with its owning user and
// default account, if any. Budgets without a default account are still
// returned so the sweeper can log the skip.
func (r *SQLiteRepository) ListBudgetsForAlerting(ctx context.Context) ([]BudgetAlertRow, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT b.id, b.user_id, b.amount, b.last_alert_sent,
		       u.name, u.email,
		       a.id, a.name, a.balance, a.is_default
		FROM budgets b
		JOIN users u ON u.id = b.user_id
		LEFT JOIN accounts a ON a.user_id = u.id AND a.is_default = 1`)
	if err != nil {
		return nil, fmt.Errorf("list budgets for alerting: %w", err)
	}
	defer rows.Close()

	var result []BudgetAlertRow
	for rows.Next() {
		var (
			row         BudgetAlertRow
			amount      string
			lastAlert   sql.NullTime
			acctID      sql.NullString
			acctName    sql.NullString
			acctBalance sql.NullString
			acctDefault sql.NullBool
		)
		err := rows.Scan(&row.Budget.ID, &row.Budget.UserID, &amount, &lastAlert,
			&row.User.Name, &row.User.Email,
			&acctID, &acctName, &acctBalance, &acctDefault)
		if err != nil {
			return nil, fmt.Errorf("scan budget row: %w", err)
		}
		row.User.ID = row.Budget.UserID
		row.Budget.Amount, err = decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("parse budget amount %q: %w", amount, err)
		}
		if lastAlert.Valid {
			v := lastAlert.Time
			row.Budget.LastAlertSent = &v
		}
		if acctID.Valid {
			balance, err := decimal.NewFromString(acctBalance.String)
			if err != nil {
				return nil, fmt.Errorf("parse account balance %q: %w", acctBalance.String, err)
			}
			row.Account = &core.Account{
				ID:        acctID.String,
				UserID:    row.Budget.UserID,
				Name:      acctName.String,
				Balance:   balance,
				IsDefault: acctDefault.Bool,
			}
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list budgets for alerting: %w", err)
	}
	return result, nil
}

// UpdateLastAlertSent records that a budget alert went out at the given
// time.
func (r *SQLiteRepository) UpdateLastAlertSent(ctx context.Context, budgetID string, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE budgets SET last_alert_sent = ? WHERE id = ?`,
		at.UTC(), budgetID)
	if err != nil {
		return fmt.Errorf("update last alert sent: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) ListUsers(ctx context.Context) ([]core.User, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, email FROM users`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []core.User
	for rows.Next() {
		var u core.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// MonthStats aggregates one user's transactions for a report period.
type MonthStats struct {
	TotalIncome   decimal.Decimal
	TotalExpenses decimal.Decimal
	ByCategory    map[string]decimal.Decimal // EXPENSE amounts per category
}

// UserMonthStats totals a user's transactions across all accounts within
// [from, to], grouped for the monthly report.
func (r *SQLiteRepository) UserMonthStats(ctx context.Context, userID string, from, to time.Time) (MonthStats, error) {
	stats := MonthStats{
		TotalIncome:   decimal.Zero,
		TotalExpenses: decimal.Zero,
		ByCategory:    make(map[string]decimal.Decimal),
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT type, category, amount
		FROM transactions
		WHERE user_id = ? AND date >= ? AND date <= ?`,
		userID, from.UTC(), to.UTC())
	if err != nil {
		return stats, fmt.Errorf("user month stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var txType, category, amount string
		if err := rows.Scan(&txType, &category, &amount); err != nil {
			return stats, fmt.Errorf("scan month stats: %w", err)
		}
		d, err := decimal.NewFromString(amount)
		if err != nil {
			return stats, fmt.Errorf("parse amount %q: %w", amount, err)
		}
		switch core.TransactionType(txType) {
		case core.Income:
			stats.TotalIncome = stats.TotalIncome.Add(d)
		case core.Expense:
			stats.TotalExpenses = stats.TotalExpenses.Add(d)
			if category == "" {
				category = "uncategorized"
			}
			stats.ByCategory[category] = stats.ByCategory[category].Add(d)
		}
	}
	if err := rows.Err(); err != nil {
		return stats, fmt.Errorf("user month stats: %w", err)
	}
	return stats, nil
}
