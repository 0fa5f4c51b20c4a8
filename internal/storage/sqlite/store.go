package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/dyike/audney/internal/models"
)

// ErrUsernameTaken is returned by CreateAccount for a duplicate username.
var ErrUsernameTaken = errors.New("username already taken")

type Store struct {
	db  *sql.DB
	now func() time.Time
}

type Option func(*Store)

// WithClock overrides the clock used to stamp new rows.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func Open(dbPath string, opts ...Option) (*Store, error) {
	if strings.TrimSpace(dbPath) == "" {
		return nil, fmt.Errorf("db path is required")
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA busy_timeout=3000;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("set pragma %s: %w", p, err)
		}
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &Store{db: db, now: func() time.Time { return time.Now().UTC() }}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Now() time.Time {
	return s.now()
}

// Timestamps are stored as unix nanoseconds so that window comparisons are
// plain integer comparisons.
func initSchema(db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS accounts (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    username TEXT NOT NULL UNIQUE COLLATE NOCASE,
    password_hash TEXT NOT NULL,
    created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS profiles (
    account_id INTEGER PRIMARY KEY REFERENCES accounts(id) ON DELETE CASCADE,
    date_of_birth TEXT,
    city TEXT NOT NULL DEFAULT '',
    state TEXT NOT NULL DEFAULT '',
    financial_goal TEXT NOT NULL DEFAULT '',
    risk_tolerance TEXT NOT NULL DEFAULT '',
    income_level TEXT NOT NULL DEFAULT '',
    dependents TEXT NOT NULL DEFAULT '',
    savings_months TEXT NOT NULL DEFAULT '',
    updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS sessions (
    token TEXT PRIMARY KEY,
    account_id INTEGER NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
    created_at INTEGER NOT NULL,
    last_seen_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS user_messages (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    account_id INTEGER NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
    message TEXT NOT NULL,
    created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS audney_messages (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    account_id INTEGER NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
    message TEXT NOT NULL,
    user_query TEXT NOT NULL DEFAULT '',
    contains_html INTEGER NOT NULL DEFAULT 0,
    created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS stock_price_responses (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    account_id INTEGER NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
    query TEXT NOT NULL,
    ticker_quote TEXT NOT NULL,
    created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS market_conditions (
    ticker TEXT PRIMARY KEY,
    condition TEXT NOT NULL,
    last_updated INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_user_messages_account_created ON user_messages(account_id, created_at);
CREATE INDEX IF NOT EXISTS idx_audney_messages_account_created ON audney_messages(account_id, created_at);
CREATE INDEX IF NOT EXISTS idx_stock_responses_account_created ON stock_price_responses(account_id, created_at);
`

	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}

// CreateAccount inserts the account and its empty profile in one transaction.
func (s *Store) CreateAccount(ctx context.Context, username, passwordHash string, profile models.UserProfile) (*models.Account, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, fmt.Errorf("username is required")
	}
	now := s.now()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin create account: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
INSERT INTO accounts (username, password_hash, created_at)
VALUES (?, ?, ?)
ON CONFLICT(username) DO NOTHING
`, username, passwordHash, now.UnixNano())
	if err != nil {
		return nil, fmt.Errorf("insert account: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return nil, ErrUsernameTaken
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("account id: %w", err)
	}

	profile.AccountID = id
	profile.UpdatedAt = now
	if err := saveProfile(ctx, tx, &profile); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit create account: %w", err)
	}
	return &models.Account{ID: id, Username: username, PasswordHash: passwordHash, CreatedAt: now}, nil
}

func (s *Store) GetAccountByUsername(ctx context.Context, username string) (*models.Account, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT id, username, password_hash, created_at
FROM accounts
WHERE username = ?
LIMIT 1
`, strings.TrimSpace(username))
	return scanAccount(row)
}

func (s *Store) GetAccount(ctx context.Context, id int64) (*models.Account, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT id, username, password_hash, created_at
FROM accounts
WHERE id = ?
`, id)
	return scanAccount(row)
}

func scanAccount(row *sql.Row) (*models.Account, error) {
	var (
		acc     models.Account
		created int64
	)
	if err := row.Scan(&acc.ID, &acc.Username, &acc.PasswordHash, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get account: %w", err)
	}
	acc.CreatedAt = fromNanos(created)
	return &acc, nil
}

func (s *Store) CreateSession(ctx context.Context, session models.Session) error {
	if strings.TrimSpace(session.Token) == "" {
		return fmt.Errorf("session token is required")
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO sessions (token, account_id, created_at, last_seen_at)
VALUES (?, ?, ?, ?)
ON CONFLICT(token) DO UPDATE SET
    account_id=excluded.account_id,
    last_seen_at=excluded.last_seen_at
`, session.Token, session.AccountID, session.CreatedAt.UnixNano(), session.LastSeenAt.UnixNano())
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (s *Store) GetSession(ctx context.Context, token string) (*models.Session, error) {
	if strings.TrimSpace(token) == "" {
		return nil, nil
	}
	row := s.db.QueryRowContext(ctx, `
SELECT token, account_id, created_at, last_seen_at
FROM sessions
WHERE token = ?
`, token)

	var (
		sess          models.Session
		created, seen int64
	)
	if err := row.Scan(&sess.Token, &sess.AccountID, &created, &seen); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	sess.CreatedAt = fromNanos(created)
	sess.LastSeenAt = fromNanos(seen)
	return &sess, nil
}

func (s *Store) TouchSession(ctx context.Context, token string, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
UPDATE sessions SET last_seen_at = ? WHERE token = ?
`, at.UnixNano(), token)
	if err != nil {
		return fmt.Errorf("touch session: %w", err)
	}
	return nil
}

func (s *Store) DeleteSession(ctx context.Context, token string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE token = ?`, token); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// DeleteIdleSessions removes sessions not seen since the cutoff.
func (s *Store) DeleteIdleSessions(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE last_seen_at < ?`, cutoff.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("delete idle sessions: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func (s *Store) GetProfile(ctx context.Context, accountID int64) (*models.UserProfile, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT account_id, date_of_birth, city, state, financial_goal, risk_tolerance,
       income_level, dependents, savings_months, updated_at
FROM profiles
WHERE account_id = ?
`, accountID)

	var (
		p       models.UserProfile
		dob     sql.NullString
		updated int64
	)
	err := row.Scan(&p.AccountID, &dob, &p.City, &p.State, &p.FinancialGoal, &p.RiskTolerance,
		&p.IncomeLevel, &p.Dependents, &p.SavingsMonths, &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get profile: %w", err)
	}
	if dob.Valid && dob.String != "" {
		if t, err := time.Parse(time.DateOnly, dob.String); err == nil {
			p.DateOfBirth = &t
		}
	}
	p.UpdatedAt = fromNanos(updated)
	return &p, nil
}

// SaveProfile overwrites the stored profile row for p.AccountID.
func (s *Store) SaveProfile(ctx context.Context, p *models.UserProfile) error {
	p.UpdatedAt = s.now()
	return saveProfile(ctx, s.db, p)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func saveProfile(ctx context.Context, db execer, p *models.UserProfile) error {
	var dob any
	if p.DateOfBirth != nil {
		dob = p.DateOfBirth.Format(time.DateOnly)
	}
	_, err := db.ExecContext(ctx, `
INSERT INTO profiles (account_id, date_of_birth, city, state, financial_goal, risk_tolerance,
                      income_level, dependents, savings_months, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(account_id) DO UPDATE SET
    date_of_birth=excluded.date_of_birth,
    city=excluded.city,
    state=excluded.state,
    financial_goal=excluded.financial_goal,
    risk_tolerance=excluded.risk_tolerance,
    income_level=excluded.income_level,
    dependents=excluded.dependents,
    savings_months=excluded.savings_months,
    updated_at=excluded.updated_at
`, p.AccountID, dob, p.City, p.State, string(p.FinancialGoal), string(p.RiskTolerance),
		string(p.IncomeLevel), string(p.Dependents), string(p.SavingsMonths), p.UpdatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}

func fromNanos(n int64) time.Time {
	return time.Unix(0, n).UTC()
}
