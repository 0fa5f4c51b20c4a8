package models

import "time"

// TimestampLayout is the wall-clock format used in chat payloads.
const TimestampLayout = "2006-01-02 15:04:05"

type Account struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

type Session struct {
	Token      string
	AccountID  int64
	CreatedAt  time.Time
	LastSeenAt time.Time
}

// UserMessage is an utterance typed by the account holder.
type UserMessage struct {
	ID        int64
	AccountID int64
	Message   string
	CreatedAt time.Time
}

// AudneyMessage is an assistant reply. HTML replies are sanitized before
// they are stored.
type AudneyMessage struct {
	ID           int64
	AccountID    int64
	Message      string
	UserQuery    string
	ContainsHTML bool
	CreatedAt    time.Time
}

// StockPriceResponse is a system record of a resolved quote.
type StockPriceResponse struct {
	ID          int64
	AccountID   int64
	Query       string
	TickerQuote string
	CreatedAt   time.Time
}

type HistoryKind string

const (
	HistoryUser          HistoryKind = "user"
	HistoryAudney        HistoryKind = "audney"
	HistoryStockResponse HistoryKind = "stock_response"
)

// HistoryEntry is one row of the merged chat history.
type HistoryEntry struct {
	ID          int64       `json:"id"`
	Type        HistoryKind `json:"type"`
	Message     string      `json:"message"`
	Query       *string     `json:"query"`
	TickerQuote *string     `json:"ticker_quote"`
	CreatedAt   time.Time   `json:"-"`
	Timestamp   string      `json:"timestamp"`
}

// Turn is a prior user or assistant utterance fed back to the model.
type Turn struct {
	Role    string
	Content string
}
