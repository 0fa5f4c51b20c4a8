package models

import "time"

type Condition string

const (
	ConditionBull    Condition = "Bull"
	ConditionBear    Condition = "Bear"
	ConditionNeutral Condition = "Neutral"
)

type MarketCondition struct {
	Ticker      string    `json:"ticker"`
	Condition   Condition `json:"condition"`
	LastUpdated time.Time `json:"last_updated"`
}

// PricePoint is one daily close of a price history, oldest first.
type PricePoint struct {
	Date  time.Time `json:"date"`
	Close float64   `json:"close"`
}

type SymbolMatch struct {
	Name   string `json:"name"`
	Symbol string `json:"symbol"`
}

type NewsItem struct {
	Title   string    `json:"title"`
	Summary string    `json:"summary"`
	Source  string    `json:"source"`
	URL     string    `json:"url"`
	Time    time.Time `json:"time"`
}
