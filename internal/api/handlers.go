package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/dyike/audney/internal/api/middleware"
	"github.com/dyike/audney/internal/auth"
	"github.com/dyike/audney/internal/models"
	"github.com/dyike/audney/internal/service"
)

// LoginRequiredMessage is the chat reply for callers without a session.
const LoginRequiredMessage = "You must be logged in to chat."

// StockPriceUnavailable is the companion endpoint error for a missing symbol or session.
const StockPriceUnavailable = "No symbol provided or user not authenticated"

const version = "0.1.0"

// Chat is the chat pipeline exposed over HTTP.
type Chat interface {
	Respond(ctx context.Context, accountID int64, text string) (service.ChatResponse, error)
	StockPrice(ctx context.Context, accountID int64, symbol, companyName string) service.StockPriceResult
	History(ctx context.Context, accountID int64) ([]models.HistoryEntry, error)
}

// Store is the slice of the record store the handlers touch directly.
type Store interface {
	Ping(ctx context.Context) error
	GetProfile(ctx context.Context, accountID int64) (*models.UserProfile, error)
	SaveProfile(ctx context.Context, p *models.UserProfile) error
}

// Handler contains shared dependencies for all HTTP handlers.
type Handler struct {
	auth   *auth.Service
	chat   Chat
	store  Store
	logger zerolog.Logger
}

func NewHandler(a *auth.Service, chat Chat, store Store, logger zerolog.Logger) *Handler {
	return &Handler{auth: a, chat: chat, store: store, logger: logger}
}

// JSON sends a JSON response with the given status code.
func (h *Handler) JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// Error sends a JSON error response with the given status code.
func (h *Handler) Error(w http.ResponseWriter, status int, message string) {
	h.JSON(w, status, map[string]string{"error": message})
}

type Check struct {
	Status  string `json:"status"`
	Latency string `json:"latency,omitempty"`
	Message string `json:"message,omitempty"`
}

type HealthResponse struct {
	Status    string           `json:"status"`
	Version   string           `json:"version"`
	Checks    map[string]Check `json:"checks"`
	Timestamp string           `json:"timestamp"`
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	resp := HealthResponse{
		Status:    "healthy",
		Version:   version,
		Checks:    make(map[string]Check),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	start := time.Now()
	if err := h.store.Ping(ctx); err != nil {
		resp.Checks["sqlite"] = Check{Status: "fail", Message: "connection failed"}
		resp.Status = "degraded"
		h.JSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	resp.Checks["sqlite"] = Check{Status: "pass", Latency: time.Since(start).String()}
	h.JSON(w, http.StatusOK, resp)
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req auth.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	acc, err := h.auth.Register(r.Context(), req)
	if err != nil {
		var verr *auth.ValidationError
		switch {
		case errors.As(err, &verr):
			h.Error(w, http.StatusBadRequest, verr.Error())
		case errors.Is(err, auth.ErrUsernameTaken):
			h.Error(w, http.StatusConflict, "username already taken")
		default:
			h.logger.Error().Err(err).Msg("register failed")
			h.Error(w, http.StatusInternalServerError, "registration failed")
		}
		return
	}
	h.JSON(w, http.StatusCreated, map[string]any{"id": acc.ID, "username": acc.Username})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	sess, err := h.auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			h.Error(w, http.StatusUnauthorized, err.Error())
			return
		}
		h.logger.Error().Err(err).Msg("login failed")
		h.Error(w, http.StatusInternalServerError, "login failed")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    sess.Token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   r.TLS != nil,
	})
	h.JSON(w, http.StatusOK, map[string]any{
		"token":      sess.Token,
		"expires_in": int(h.auth.IdleTimeout().Seconds()),
	})
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.auth.Logout(r.Context(), middleware.TokenFromRequest(r)); err != nil {
		h.logger.Error().Err(err).Msg("logout failed")
	}
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	h.JSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}

type chatRequest struct {
	Message string `json:"message"`
}

// ChatResponse answers one chat message, taken from the query string on
// GET and from the JSON body on POST.
func (h *Handler) ChatResponse(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromContext(r.Context())
	if sess == nil {
		h.JSON(w, http.StatusOK, service.ChatResponse{Message: LoginRequiredMessage})
		return
	}

	text := r.URL.Query().Get("message")
	if r.Method == http.MethodPost {
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.Error(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		text = req.Message
	}

	resp, err := h.chat.Respond(r.Context(), sess.AccountID, text)
	if err != nil {
		if errors.Is(err, service.ErrEmptyMessage) {
			h.Error(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error().Err(err).Int64("account_id", sess.AccountID).Msg("chat failed")
		h.Error(w, http.StatusInternalServerError, "chat failed")
		return
	}
	h.JSON(w, http.StatusOK, resp)
}

// GetStockPrice prices a ticker the user picked from a candidate list.
func (h *Handler) GetStockPrice(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromContext(r.Context())
	symbol := strings.TrimSpace(r.URL.Query().Get("symbol"))
	if sess == nil || symbol == "" {
		h.JSON(w, http.StatusOK, service.StockPriceResult{Error: StockPriceUnavailable})
		return
	}
	companyName := strings.TrimSpace(r.URL.Query().Get("companyName"))
	h.JSON(w, http.StatusOK, h.chat.StockPrice(r.Context(), sess.AccountID, symbol, companyName))
}

func (h *Handler) ChatHistory(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromContext(r.Context())
	entries, err := h.chat.History(r.Context(), sess.AccountID)
	if err != nil {
		h.logger.Error().Err(err).Int64("account_id", sess.AccountID).Msg("load history failed")
		h.Error(w, http.StatusInternalServerError, "failed to load history")
		return
	}
	if entries == nil {
		entries = []models.HistoryEntry{}
	}
	h.JSON(w, http.StatusOK, map[string]any{"history": entries})
}

func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromContext(r.Context())
	profile, ok := h.loadProfile(r.Context(), w, sess.AccountID)
	if !ok {
		return
	}
	h.JSON(w, http.StatusOK, profile)
}

// UpdateProfile applies a partial profile update.
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromContext(r.Context())

	var upd models.ProfileUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := upd.Validate(); err != nil {
		h.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	profile, ok := h.loadProfile(r.Context(), w, sess.AccountID)
	if !ok {
		return
	}
	upd.Apply(profile)
	if err := h.store.SaveProfile(r.Context(), profile); err != nil {
		h.logger.Error().Err(err).Int64("account_id", sess.AccountID).Msg("save profile failed")
		h.Error(w, http.StatusInternalServerError, "failed to save profile")
		return
	}
	h.logger.Info().Int64("account_id", sess.AccountID).Msg("profile updated")
	h.JSON(w, http.StatusOK, profile)
}

func (h *Handler) loadProfile(ctx context.Context, w http.ResponseWriter, accountID int64) (*models.UserProfile, bool) {
	profile, err := h.store.GetProfile(ctx, accountID)
	if err != nil {
		h.logger.Error().Err(err).Int64("account_id", accountID).Msg("load profile failed")
		h.Error(w, http.StatusInternalServerError, "failed to load profile")
		return nil, false
	}
	if profile == nil {
		h.Error(w, http.StatusNotFound, "profile not found")
		return nil, false
	}
	return profile, true
}
