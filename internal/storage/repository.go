// Package storage persists the ledger in SQLite. ApplyDelta is the one write
// path needing transactional isolation: it wraps the snapshot merge and the
// aggregate update in a single transaction and retries the whole
// read-compute-write cycle on lock conflicts up to a bounded budget.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"khata/internal/core"
	"khata/internal/ledger"

	_ "modernc.org/sqlite"
)

// DefaultRetryBudget bounds conflict retries of one ApplyDelta call.
const DefaultRetryBudget = 5

type SQLiteRepository struct {
	db          *sql.DB
	retryBudget int
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	return NewSQLiteRepositoryWithBudget(dbPath, DefaultRetryBudget)
}

func NewSQLiteRepositoryWithBudget(dbPath string, retryBudget int) (*SQLiteRepository, error) {
	if retryBudget < 1 {
		retryBudget = DefaultRetryBudget
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dsn(dbPath))
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

	return &SQLiteRepository{
		db:          db,
		retryBudget: retryBudget,
	}, nil
}

// dsn carries the pragmas in the connection string so every pooled
// connection gets them. _txlock=immediate opens write transactions as
// immediate: overlapping writers queue on busy_timeout instead of aborting
// when a deferred read transaction tries to upgrade to a write lock.
func dsn(dbPath string) string {
	return "file:" + dbPath +
		"?_txlock=immediate" +
		"&_pragma=busy_timeout(5000)" +
		"&_pragma=journal_mode(WAL)" +
		"&_pragma=foreign_keys(1)"
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// ApplyDelta applies one signed delta to an account. Lock conflicts abort
// the transaction and the whole cycle restarts from the reads; past the
// budget the call fails with ErrTransactionFailed and nothing was applied.
func (r *SQLiteRepository) ApplyDelta(ctx context.Context, account core.AccountRef, amount core.Money, dir core.Effect, day core.Date) error {
	delta := dir.Signed(amount)

	var lastErr error
	for attempt := 0; attempt < r.retryBudget; attempt++ {
		err := r.applyDeltaOnce(ctx, account, delta, day)
		if err == nil {
			return nil
		}
		if !isLockConflict(err) {
			return fmt.Errorf("apply delta: %w", err)
		}
		lastErr = err
		slog.DebugContext(ctx, "Ledger write conflict, retrying",
			"attempt", attempt+1,
			"society", account.Society,
			"account", account.Name)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt+1) * 10 * time.Millisecond):
		}
	}

	return fmt.Errorf("%w: after %d attempts: %v", ledger.ErrTransactionFailed, r.retryBudget, lastErr)
}

func (r *SQLiteRepository) applyDeltaOnce(ctx context.Context, account core.AccountRef, delta int64, day core.Date) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	accountID, err := ensureAccountTx(ctx, tx, account)
	if err != nil {
		return err
	}

	// Reads precede writes inside the transaction.
	var prevChange int64
	err = tx.QueryRowContext(ctx,
		`SELECT change_paise FROM daily_snapshots WHERE account_id = ? AND day = ?`,
		accountID, string(day)).Scan(&prevChange)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("read snapshot: %w", err)
	}

	var total int64
	var lastDay string
	err = tx.QueryRowContext(ctx,
		`SELECT total_paise, last_updated_day FROM account_aggregates WHERE account_id = ?`,
		accountID).Scan(&total, &lastDay)
	if err != nil {
		return fmt.Errorf("read aggregate: %w", err)
	}

	newChange := prevChange + delta
	newLastDay := lastDay
	if lastDay == "" || string(day) > lastDay {
		newLastDay = string(day)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO daily_snapshots (account_id, day, change_paise) VALUES (?, ?, ?)
		 ON CONFLICT (account_id, day) DO UPDATE SET change_paise = excluded.change_paise`,
		accountID, string(day), newChange); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE account_aggregates SET total_paise = total_paise + ?, last_updated_day = ? WHERE account_id = ?`,
		delta, newLastDay, accountID); err != nil {
		return fmt.Errorf("write aggregate: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// ensureAccountTx resolves the account row, creating the account and its
// aggregate on first use so the first balance-affecting entry is enough to
// bring an account into existence.
func ensureAccountTx(ctx context.Context, tx *sql.Tx, account core.AccountRef) (int64, error) {
	var id int64
	err := tx.QueryRowContext(ctx,
		`SELECT id FROM accounts WHERE society = ? AND category = ? AND name = ?`,
		account.Society, string(account.Category), account.Name).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("find account: %w", err)
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO accounts (society, category, name) VALUES (?, ?, ?)`,
		account.Society, string(account.Category), account.Name)
	if err != nil {
		return 0, fmt.Errorf("create account: %w", err)
	}
	id, err = res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("account id: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO account_aggregates (account_id, total_paise, last_updated_day) VALUES (?, 0, '')`,
		id); err != nil {
		return 0, fmt.Errorf("create aggregate: %w", err)
	}
	return id, nil
}

// BalanceAsOf returns the cumulative balance at or before day; zero when the
// account has no history there.
func (r *SQLiteRepository) BalanceAsOf(ctx context.Context, account core.AccountRef, day core.Date) (core.Money, error) {
	return r.sumChanges(ctx, account, `s.day <= ?`, day)
}

// BalanceBefore returns the cumulative balance strictly before day.
func (r *SQLiteRepository) BalanceBefore(ctx context.Context, account core.AccountRef, day core.Date) (core.Money, error) {
	return r.sumChanges(ctx, account, `s.day < ?`, day)
}

func (r *SQLiteRepository) sumChanges(ctx context.Context, account core.AccountRef, dayCond string, day core.Date) (core.Money, error) {
	var total int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(s.change_paise), 0)
		   FROM daily_snapshots s
		   JOIN accounts a ON a.id = s.account_id
		  WHERE a.society = ? AND a.category = ? AND a.name = ? AND `+dayCond,
		account.Society, string(account.Category), account.Name, string(day)).Scan(&total)
	if err != nil {
		return core.Money{}, fmt.Errorf("sum daily changes: %w", err)
	}
	return core.Money{Paise: total}, nil
}

// ListAccounts enumerates a society's accounts, optionally scoped to one
// category. An unknown society yields an empty slice.
func (r *SQLiteRepository) ListAccounts(ctx context.Context, society string, category core.AccountCategory) ([]core.AccountRef, error) {
	query := `SELECT society, category, name FROM accounts WHERE society = ?`
	args := []any{society}
	if category != "" {
		query += ` AND category = ?`
		args = append(args, string(category))
	}
	query += ` ORDER BY category, name`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var refs []core.AccountRef
	for rows.Next() {
		var ref core.AccountRef
		var cat string
		if err := rows.Scan(&ref.Society, &cat, &ref.Name); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		ref.Category = core.AccountCategory(cat)
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}

// Aggregate returns the running total and watermark; an account with no
// history yields a zero aggregate.
func (r *SQLiteRepository) Aggregate(ctx context.Context, account core.AccountRef) (core.AccountAggregate, error) {
	var total int64
	var lastDay string
	err := r.db.QueryRowContext(ctx,
		`SELECT g.total_paise, g.last_updated_day
		   FROM account_aggregates g
		   JOIN accounts a ON a.id = g.account_id
		  WHERE a.society = ? AND a.category = ? AND a.name = ?`,
		account.Society, string(account.Category), account.Name).Scan(&total, &lastDay)
	if errors.Is(err, sql.ErrNoRows) {
		return core.AccountAggregate{Account: account}, nil
	}
	if err != nil {
		return core.AccountAggregate{}, fmt.Errorf("read aggregate: %w", err)
	}
	return core.AccountAggregate{
		Account:        account,
		Total:          core.Money{Paise: total},
		LastUpdatedDay: core.Date(lastDay),
	}, nil
}

// ListDailySnapshots returns the ordered per-day trail of an account within
// [from, to].
func (r *SQLiteRepository) ListDailySnapshots(ctx context.Context, account core.AccountRef, from, to core.Date) ([]core.DailySnapshot, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT s.day, s.change_paise
		   FROM daily_snapshots s
		   JOIN accounts a ON a.id = s.account_id
		  WHERE a.society = ? AND a.category = ? AND a.name = ? AND s.day BETWEEN ? AND ?
		  ORDER BY s.day`,
		account.Society, string(account.Category), account.Name, string(from), string(to))
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	var snaps []core.DailySnapshot
	for rows.Next() {
		var day string
		var change int64
		if err := rows.Scan(&day, &change); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		snaps = append(snaps, core.DailySnapshot{
			Account: account,
			Day:     core.Date(day),
			Change:  core.Money{Paise: change},
		})
	}
	return snaps, rows.Err()
}

func (r *SQLiteRepository) CreateBill(ctx context.Context, bill core.Bill) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO bills (id, society, category, account, description, amount_paise,
		                    due_day, occurrence, frequency_days, penalty_type, penalty_value,
		                    penalties_applied, settled)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		bill.ID, bill.Account.Society, string(bill.Account.Category), bill.Account.Name,
		bill.Description, bill.Amount.Paise,
		string(bill.Policy.DueDate), string(bill.Policy.Occurrence), bill.Policy.FrequencyDays,
		string(bill.Policy.Type), bill.Policy.Value,
		bill.PenaltiesApplied, boolToInt(bill.Settled))
	if err != nil {
		return fmt.Errorf("insert bill: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetBill(ctx context.Context, id string) (core.Bill, error) {
	row := r.db.QueryRowContext(ctx, selectBills+` WHERE id = ?`, id)
	bill, err := scanBill(row)
	if err != nil {
		return core.Bill{}, fmt.Errorf("get bill %s: %w", id, err)
	}
	return bill, nil
}

func (r *SQLiteRepository) ListBills(ctx context.Context, society string) ([]core.Bill, error) {
	return r.queryBills(ctx, selectBills+` WHERE society = ? ORDER BY due_day, id`, society)
}

func (r *SQLiteRepository) ListOpenBills(ctx context.Context) ([]core.Bill, error) {
	return r.queryBills(ctx, selectBills+` WHERE settled = 0 ORDER BY due_day, id`)
}

func (r *SQLiteRepository) SetBillPenaltiesApplied(ctx context.Context, id string, applied int64) error {
	res, err := r.db.ExecContext(ctx, `UPDATE bills SET penalties_applied = ? WHERE id = ?`, applied, id)
	if err != nil {
		return fmt.Errorf("update bill penalties: %w", err)
	}
	return requireRow(res, id)
}

func (r *SQLiteRepository) SettleBill(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE bills SET settled = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("settle bill: %w", err)
	}
	return requireRow(res, id)
}

const selectBills = `SELECT id, society, category, account, description, amount_paise,
       due_day, occurrence, frequency_days, penalty_type, penalty_value,
       penalties_applied, settled
  FROM bills`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBill(row rowScanner) (core.Bill, error) {
	var b core.Bill
	var category, dueDay, occurrence, penaltyType string
	var settled int
	err := row.Scan(&b.ID, &b.Account.Society, &category, &b.Account.Name,
		&b.Description, &b.Amount.Paise,
		&dueDay, &occurrence, &b.Policy.FrequencyDays, &penaltyType, &b.Policy.Value,
		&b.PenaltiesApplied, &settled)
	if err != nil {
		return core.Bill{}, err
	}
	b.Account.Category = core.AccountCategory(category)
	b.Policy.DueDate = core.Date(dueDay)
	b.Policy.Occurrence = core.PenaltyOccurrence(occurrence)
	b.Policy.Type = core.PenaltyType(penaltyType)
	b.Settled = settled != 0
	return b, nil
}

func (r *SQLiteRepository) queryBills(ctx context.Context, query string, args ...any) ([]core.Bill, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query bills: %w", err)
	}
	defer rows.Close()

	var bills []core.Bill
	for rows.Next() {
		bill, err := scanBill(rows)
		if err != nil {
			return nil, fmt.Errorf("scan bill: %w", err)
		}
		bills = append(bills, bill)
	}
	return bills, rows.Err()
}

func requireRow(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("bill %s not found", id)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// isLockConflict reports whether err is a SQLite busy/locked abort, the
// conflict signal the retry loop reacts to.
func isLockConflict(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") ||
		strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "database table is locked")
}
