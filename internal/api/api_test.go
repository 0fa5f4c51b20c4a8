package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/dyike/audney/internal/api/middleware"
	"github.com/dyike/audney/internal/auth"
	"github.com/dyike/audney/internal/models"
	"github.com/dyike/audney/internal/service"
	"github.com/dyike/audney/internal/storage/sqlite"
)

type fakeChat struct {
	mu       sync.Mutex
	calls    []string
	accounts []int64
}

func (f *fakeChat) record(call string, accountID int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
	f.accounts = append(f.accounts, accountID)
}

func (f *fakeChat) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeChat) Respond(_ context.Context, accountID int64, text string) (service.ChatResponse, error) {
	f.record(text, accountID)
	if strings.TrimSpace(text) == "" {
		return service.ChatResponse{}, service.ErrEmptyMessage
	}
	return service.ChatResponse{Message: "echo: " + text, Timestamp: "2025-01-10 08:00:00"}, nil
}

func (f *fakeChat) StockPrice(_ context.Context, accountID int64, symbol, companyName string) service.StockPriceResult {
	f.record("price:"+symbol, accountID)
	return service.StockPriceResult{Success: true, Price: "$12.34", CompanyName: companyName}
}

func (f *fakeChat) History(context.Context, int64) ([]models.HistoryEntry, error) {
	return nil, nil
}

type testServer struct {
	srv   *httptest.Server
	chat  *fakeChat
	clock *time.Time
}

func newTestServer(t *testing.T, ratePerMinute int) *testServer {
	t.Helper()
	now := time.Date(2025, 1, 10, 8, 0, 0, 0, time.UTC)
	clock := &now
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "audney.db"), sqlite.WithClock(func() time.Time { return *clock }))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	authSvc := auth.NewService(store, 30*time.Minute, zerolog.Nop(), auth.WithBcryptCost(bcrypt.MinCost))
	chat := &fakeChat{}
	router := NewRouter(RouterConfig{ChatRatePerMinute: ratePerMinute}, zerolog.Nop(), authSvc, chat, store)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return &testServer{srv: srv, chat: chat, clock: clock}
}

func (ts *testServer) do(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, ts.srv.URL+path, &buf)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func (ts *testServer) login(t *testing.T, username string) string {
	t.Helper()
	resp := ts.do(t, http.MethodPost, "/register", "", auth.RegisterRequest{
		Username:      username,
		Password:      "password1",
		FinancialGoal: models.GoalBudgeting,
		City:          "Austin",
		State:         "TX",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = ts.do(t, http.MethodPost, "/login", "", map[string]string{"username": username, "password": "password1"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[map[string]any](t, resp)
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)

	var cookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == middleware.SessionCookie {
			cookie = c
		}
	}
	require.NotNil(t, cookie)
	assert.Equal(t, token, cookie.Value)
	return token
}

func TestChatRequiresLogin(t *testing.T) {
	ts := newTestServer(t, 0)

	resp := ts.do(t, http.MethodGet, "/chat/response?message=hello", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[service.ChatResponse](t, resp)
	assert.Equal(t, LoginRequiredMessage, body.Message)
	assert.False(t, body.HTML)
	assert.Empty(t, body.Timestamp)
	assert.Empty(t, ts.chat.Calls())

	resp = ts.do(t, http.MethodGet, "/chat/response?message=hello", "not-a-token", nil)
	body = decode[service.ChatResponse](t, resp)
	assert.Equal(t, LoginRequiredMessage, body.Message)
	assert.Empty(t, ts.chat.Calls())
}

func TestChatAuthenticated(t *testing.T) {
	ts := newTestServer(t, 0)
	token := ts.login(t, "hana")

	resp := ts.do(t, http.MethodGet, "/chat/response?message=hello", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "echo: hello", decode[service.ChatResponse](t, resp).Message)

	resp = ts.do(t, http.MethodPost, "/chat/response", token, map[string]string{"message": "budget tips"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "echo: budget tips", decode[service.ChatResponse](t, resp).Message)
	assert.Equal(t, []string{"hello", "budget tips"}, ts.chat.Calls())

	resp = ts.do(t, http.MethodPost, "/chat/response", token, map[string]string{"message": "  "})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestStockPriceEndpoint(t *testing.T) {
	ts := newTestServer(t, 0)

	resp := ts.do(t, http.MethodGet, "/get_stock_price?symbol=CLX", "", nil)
	body := decode[service.StockPriceResult](t, resp)
	assert.False(t, body.Success)
	assert.Equal(t, StockPriceUnavailable, body.Error)

	token := ts.login(t, "ivan")
	resp = ts.do(t, http.MethodGet, "/get_stock_price", token, nil)
	body = decode[service.StockPriceResult](t, resp)
	assert.False(t, body.Success)
	assert.Equal(t, StockPriceUnavailable, body.Error)

	resp = ts.do(t, http.MethodGet, "/get_stock_price?symbol=CLX&companyName=Clorox", token, nil)
	body = decode[service.StockPriceResult](t, resp)
	assert.True(t, body.Success)
	assert.Equal(t, "$12.34", body.Price)
	assert.Equal(t, []string{"price:CLX"}, ts.chat.Calls())
}

func TestRegisterErrors(t *testing.T) {
	ts := newTestServer(t, 0)
	ts.login(t, "jules")

	resp := ts.do(t, http.MethodPost, "/register", "", auth.RegisterRequest{Username: "JULES", Password: "password1"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = ts.do(t, http.MethodPost, "/register", "", auth.RegisterRequest{Username: "kai", Password: "short"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = ts.do(t, http.MethodPost, "/login", "", map[string]string{"username": "jules", "password": "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestProfileEndpoints(t *testing.T) {
	ts := newTestServer(t, 0)

	resp := ts.do(t, http.MethodGet, "/profile", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	token := ts.login(t, "lena")

	resp = ts.do(t, http.MethodPut, "/profile", token, map[string]string{"risk_tolerance": "reckless"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = ts.do(t, http.MethodPut, "/profile", token, map[string]string{
		"risk_tolerance": "conservative",
		"city":           "Denver",
		"state":          "CO",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = ts.do(t, http.MethodGet, "/profile", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	profile := decode[models.UserProfile](t, resp)
	assert.Equal(t, models.RiskConservative, profile.RiskTolerance)
	assert.Equal(t, "Denver", profile.City)
	assert.Equal(t, models.GoalBudgeting, profile.FinancialGoal)
}

func TestSessionExpiryAndLogout(t *testing.T) {
	ts := newTestServer(t, 0)
	token := ts.login(t, "milo")

	resp := ts.do(t, http.MethodGet, "/chat/history", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, resp.Header.Get(middleware.ExpiringHeader))
	body := decode[map[string][]models.HistoryEntry](t, resp)
	assert.NotNil(t, body["history"])

	*ts.clock = ts.clock.Add(28 * time.Minute)
	resp = ts.do(t, http.MethodGet, "/chat/history", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "true", resp.Header.Get(middleware.ExpiringHeader))

	resp = ts.do(t, http.MethodPost, "/logout", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp = ts.do(t, http.MethodGet, "/chat/history", token, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestChatRateLimit(t *testing.T) {
	ts := newTestServer(t, 2)
	token := ts.login(t, "nora")

	for i := 0; i < 2; i++ {
		resp := ts.do(t, http.MethodGet, "/chat/response?message=hi", token, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}
	resp := ts.do(t, http.MethodGet, "/chat/response?message=hi", token, nil)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("Retry-After"))
	assert.Len(t, ts.chat.Calls(), 2)
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, 0)
	resp := ts.do(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[HealthResponse](t, resp)
	assert.Equal(t, "healthy", body.Status)
	assert.Equal(t, "pass", body.Checks["sqlite"].Status)
}
