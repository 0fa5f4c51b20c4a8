// Package service runs one chat turn end to end: log the user message,
// classify it, compose the reply and log the reply.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/net/html"

	"github.com/dyike/audney/internal/composer"
	"github.com/dyike/audney/internal/dataflows"
	"github.com/dyike/audney/internal/intent"
	"github.com/dyike/audney/internal/messagelog"
	"github.com/dyike/audney/internal/models"
	"github.com/dyike/audney/internal/stocks"
)

// ErrEmptyMessage is returned for a chat request without text.
var ErrEmptyMessage = errors.New("message is required")

type Classifier interface {
	Classify(ctx context.Context, text string) intent.Intent
}

type Composer interface {
	Compose(ctx context.Context, req composer.Request) composer.Reply
}

type PriceFetcher interface {
	Price(ctx context.Context, ticker string) (string, error)
}

type Store interface {
	GetProfile(ctx context.Context, accountID int64) (*models.UserProfile, error)
	ChatHistory(ctx context.Context, accountID int64) ([]models.HistoryEntry, error)
	Now() time.Time
}

// ChatResponse is the payload of the chat endpoint.
type ChatResponse struct {
	Message   string `json:"message"`
	HTML      bool   `json:"html"`
	Timestamp string `json:"timestamp"`
}

// StockPriceResult is the payload of the stock price endpoint.
type StockPriceResult struct {
	Success     bool   `json:"success"`
	Price       string `json:"price,omitempty"`
	CompanyName string `json:"companyName,omitempty"`
	Error       string `json:"error,omitempty"`
}

type ChatService struct {
	classifier Classifier
	composer   Composer
	prices     PriceFetcher
	log        *messagelog.Log
	store      Store
	logger     zerolog.Logger
}

func NewChatService(classifier Classifier, comp Composer, prices PriceFetcher, log *messagelog.Log, store Store, logger zerolog.Logger) *ChatService {
	return &ChatService{
		classifier: classifier,
		composer:   comp,
		prices:     prices,
		log:        log,
		store:      store,
		logger:     logger.With().Str("component", "chat").Logger(),
	}
}

// Respond answers one chat message for an authenticated account. Only an
// empty message is an error; pipeline failures become reply text.
func (s *ChatService) Respond(ctx context.Context, accountID int64, text string) (ChatResponse, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return ChatResponse{}, ErrEmptyMessage
	}

	if _, err := s.log.RecordUser(ctx, accountID, text); err != nil {
		s.logger.Error().Err(err).Int64("account_id", accountID).Msg("record user message failed")
	}

	profile, err := s.store.GetProfile(ctx, accountID)
	if err != nil {
		s.logger.Warn().Err(err).Int64("account_id", accountID).Msg("load profile failed")
		profile = nil
	}

	in := s.classifier.Classify(ctx, text)
	reply := s.composer.Compose(ctx, composer.Request{
		AccountID: accountID,
		Text:      text,
		Intent:    in,
		Profile:   profile,
	})

	if reply.Quote != nil {
		_, err = s.log.RecordStockResponse(ctx, accountID, text, reply.Message)
	} else {
		_, err = s.log.RecordReply(ctx, accountID, reply.Message, text, reply.ContainsHTML)
	}
	if err != nil {
		s.logger.Error().Err(err).Int64("account_id", accountID).Msg("record reply failed")
	}

	s.logger.Info().
		Int64("account_id", accountID).
		Str("intent", string(in)).
		Bool("html", reply.ContainsHTML).
		Msg("chat reply composed")

	return ChatResponse{
		Message:   reply.Message,
		HTML:      reply.ContainsHTML,
		Timestamp: s.store.Now().Format(models.TimestampLayout),
	}, nil
}

// StockPrice prices a candidate the user picked from a list and records it.
func (s *ChatService) StockPrice(ctx context.Context, accountID int64, symbol, companyName string) StockPriceResult {
	symbol = dataflows.NormalizeSymbol(symbol)
	if err := dataflows.ValidateSymbol(symbol); err != nil {
		return StockPriceResult{Error: "Invalid symbol"}
	}

	price, err := s.prices.Price(ctx, symbol)
	if err != nil {
		kind := dataflows.KindOf(err)
		s.logger.Warn().Err(err).Str("ticker", symbol).Str("kind", string(kind)).Msg("stock price lookup failed")
		return StockPriceResult{Error: stocks.FailureText(symbol, kind)}
	}

	query := fmt.Sprintf("Stock price check for %s (%s)", companyName, symbol)
	quote := fmt.Sprintf("%s is currently priced at %s", companyName, price)
	if _, err := s.log.RecordStockResponse(ctx, accountID, query, quote); err != nil {
		s.logger.Error().Err(err).Int64("account_id", accountID).Msg("record stock price failed")
	}

	return StockPriceResult{
		Success:     true,
		Price:       price,
		CompanyName: html.EscapeString(companyName),
	}
}

// History returns the merged message history of the account.
func (s *ChatService) History(ctx context.Context, accountID int64) ([]models.HistoryEntry, error) {
	entries, err := s.store.ChatHistory(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("chat history: %w", err)
	}
	return entries, nil
}
