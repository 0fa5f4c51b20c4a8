package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/dyike/audney/internal/models"
)

// UpsertMarketCondition overwrites the whole row for the ticker.
func (s *Store) UpsertMarketCondition(ctx context.Context, mc models.MarketCondition) error {
	ticker := strings.ToUpper(strings.TrimSpace(mc.Ticker))
	if ticker == "" {
		return fmt.Errorf("ticker is required")
	}
	if mc.LastUpdated.IsZero() {
		mc.LastUpdated = s.now()
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO market_conditions (ticker, condition, last_updated)
VALUES (?, ?, ?)
ON CONFLICT(ticker) DO UPDATE SET
    condition=excluded.condition,
    last_updated=excluded.last_updated
`, ticker, string(mc.Condition), mc.LastUpdated.UnixNano())
	if err != nil {
		return fmt.Errorf("upsert market condition: %w", err)
	}
	return nil
}

func (s *Store) ListMarketConditions(ctx context.Context) ([]models.MarketCondition, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT ticker, condition, last_updated
FROM market_conditions
ORDER BY ticker ASC
`)
	if err != nil {
		return nil, fmt.Errorf("list market conditions: %w", err)
	}
	defer rows.Close()

	var out []models.MarketCondition
	for rows.Next() {
		var (
			mc      models.MarketCondition
			cond    string
			updated int64
		)
		if err := rows.Scan(&mc.Ticker, &cond, &updated); err != nil {
			return nil, fmt.Errorf("scan market condition: %w", err)
		}
		mc.Condition = models.Condition(cond)
		mc.LastUpdated = fromNanos(updated)
		out = append(out, mc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("market conditions rows: %w", err)
	}
	return out, nil
}
