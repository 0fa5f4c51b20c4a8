package sqlite

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dyike/audney/internal/models"
)

func (s *Store) InsertUserMessage(ctx context.Context, msg *models.UserMessage) error {
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = s.now()
	}
	res, err := s.db.ExecContext(ctx, `
INSERT INTO user_messages (account_id, message, created_at)
VALUES (?, ?, ?)
`, msg.AccountID, msg.Message, msg.CreatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("insert user message: %w", err)
	}
	msg.ID, _ = res.LastInsertId()
	return nil
}

func (s *Store) InsertAudneyMessage(ctx context.Context, msg *models.AudneyMessage) error {
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = s.now()
	}
	res, err := s.db.ExecContext(ctx, `
INSERT INTO audney_messages (account_id, message, user_query, contains_html, created_at)
VALUES (?, ?, ?, ?, ?)
`, msg.AccountID, msg.Message, msg.UserQuery, msg.ContainsHTML, msg.CreatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("insert audney message: %w", err)
	}
	msg.ID, _ = res.LastInsertId()
	return nil
}

func (s *Store) InsertStockPriceResponse(ctx context.Context, msg *models.StockPriceResponse) error {
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = s.now()
	}
	res, err := s.db.ExecContext(ctx, `
INSERT INTO stock_price_responses (account_id, query, ticker_quote, created_at)
VALUES (?, ?, ?, ?)
`, msg.AccountID, msg.Query, msg.TickerQuote, msg.CreatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("insert stock price response: %w", err)
	}
	msg.ID, _ = res.LastInsertId()
	return nil
}

func (s *Store) UserMessageExistsSince(ctx context.Context, accountID int64, message string, since time.Time) (bool, error) {
	return s.exists(ctx, "user message", `
SELECT EXISTS (
    SELECT 1 FROM user_messages
    WHERE account_id = ? AND message = ? AND created_at >= ?
)`, accountID, message, since.UnixNano())
}

func (s *Store) AudneyMessageExistsSince(ctx context.Context, accountID int64, message string, since time.Time) (bool, error) {
	return s.exists(ctx, "audney message", `
SELECT EXISTS (
    SELECT 1 FROM audney_messages
    WHERE account_id = ? AND message = ? AND created_at >= ?
)`, accountID, message, since.UnixNano())
}

func (s *Store) StockPriceResponseExistsSince(ctx context.Context, accountID int64, query, tickerQuote string, since time.Time) (bool, error) {
	return s.exists(ctx, "stock price response", `
SELECT EXISTS (
    SELECT 1 FROM stock_price_responses
    WHERE account_id = ? AND query = ? AND ticker_quote = ? AND created_at >= ?
)`, accountID, query, tickerQuote, since.UnixNano())
}

func (s *Store) exists(ctx context.Context, what, query string, args ...any) (bool, error) {
	var found bool
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&found); err != nil {
		return false, fmt.Errorf("check recent %s: %w", what, err)
	}
	return found, nil
}

// ChatHistory merges the three message kinds of an account in creation order.
func (s *Store) ChatHistory(ctx context.Context, accountID int64) ([]models.HistoryEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, 'user' AS kind, message, NULL AS query, NULL AS ticker_quote, created_at
FROM user_messages WHERE account_id = ?
UNION ALL
SELECT id, 'audney', message, NULL, NULL, created_at
FROM audney_messages WHERE account_id = ?
UNION ALL
SELECT id, 'stock_response', ticker_quote, query, ticker_quote, created_at
FROM stock_price_responses WHERE account_id = ?
ORDER BY created_at ASC, id ASC
`, accountID, accountID, accountID)
	if err != nil {
		return nil, fmt.Errorf("list chat history: %w", err)
	}
	defer rows.Close()

	var entries []models.HistoryEntry
	for rows.Next() {
		var (
			e       models.HistoryEntry
			kind    string
			query   *string
			quote   *string
			created int64
		)
		if err := rows.Scan(&e.ID, &kind, &e.Message, &query, &quote, &created); err != nil {
			return nil, fmt.Errorf("scan chat history: %w", err)
		}
		e.Type = models.HistoryKind(kind)
		e.Query = query
		e.TickerQuote = quote
		e.CreatedAt = fromNanos(created)
		e.Timestamp = e.CreatedAt.Format(models.TimestampLayout)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("chat history rows: %w", err)
	}
	return entries, nil
}

// RecentTurns returns up to limit user and assistant messages, oldest first.
// Assistant replies that carry HTML are skipped.
func (s *Store) RecentTurns(ctx context.Context, accountID int64, limit int) ([]models.Turn, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT role, content FROM (
    SELECT 'user' AS role, message AS content, created_at, id FROM user_messages WHERE account_id = ?
    UNION ALL
    SELECT 'assistant', message, created_at, id FROM audney_messages WHERE account_id = ? AND contains_html = 0
    ORDER BY created_at DESC, id DESC
    LIMIT ?
) ORDER BY created_at ASC, id ASC
`, accountID, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent turns: %w", err)
	}
	defer rows.Close()

	var turns []models.Turn
	for rows.Next() {
		var t models.Turn
		if err := rows.Scan(&t.Role, &t.Content); err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		if strings.TrimSpace(t.Content) == "" {
			continue
		}
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("recent turns rows: %w", err)
	}
	return turns, nil
}
