package http

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"ledger/internal/auth"
	"ledger/internal/cache"
	"ledger/internal/core"
	"ledger/internal/log"
	"ledger/internal/services"
	"ledger/internal/storage"
)

const testSecret = "test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

type testEnv struct {
	store *storage.Store
	srv   *Server
}

func newTestEnv(t *testing.T, rpm int) *testEnv {
	t.Helper()
	store, err := storage.NewSQLiteStore(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	verifier, err := auth.NewVerifier(testSecret, "", "")
	if err != nil {
		t.Fatalf("verifier: %v", err)
	}
	logCfg := log.DefaultConfig()
	logCfg.Output = io.Discard

	srv := NewServer(Options{
		Addr:     ":0",
		Logger:   log.New(logCfg),
		Verifier: verifier,
		DB:       store,
		Services: Services{
			Users:        services.NewUserService(store, cache.NewLRUCache[core.User](100, time.Minute)),
			Wallets:      services.NewWalletService(store),
			Transactions: services.NewTransactionService(store, nil),
			Categories:   services.NewTaxonomyService(store, core.KindCategory),
			Tags:         services.NewTaxonomyService(store, core.KindTag),
		},
		RateLimitPerMinute: rpm,
	})
	t.Cleanup(srv.limiter.Stop)
	return &testEnv{store: store, srv: srv}
}

func token(t *testing.T, subject string) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": subject,
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return tok
}

func (e *testEnv) do(t *testing.T, method, path, subject, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	if subject != "" {
		req.Header.Set("Authorization", "Bearer "+token(t, subject))
	}
	rr := httptest.NewRecorder()
	e.srv.Engine().ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
	return v
}

func expectStatus(t *testing.T, rr *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rr.Code != want {
		t.Fatalf("expected status %d, got %d: %s", want, rr.Code, rr.Body.String())
	}
}

func (e *testEnv) createWallet(t *testing.T, subject, body string) walletResponse {
	t.Helper()
	rr := e.do(t, http.MethodPost, "/wallets", subject, body)
	expectStatus(t, rr, http.StatusCreated)
	return decode[walletResponse](t, rr)
}

func (e *testEnv) categoryID(t *testing.T, subject, name string) string {
	t.Helper()
	rr := e.do(t, http.MethodGet, "/categories?include_hidden=true&include_archived=true", subject, "")
	expectStatus(t, rr, http.StatusOK)
	for _, l := range decode[[]labelResponse](t, rr) {
		if l.Name == name {
			return l.ID
		}
	}
	t.Fatalf("category %q not found", name)
	return ""
}

func TestHealthAndReady(t *testing.T) {
	env := newTestEnv(t, 100)
	for _, path := range []string{"/healthz", "/readyz"} {
		rr := env.do(t, http.MethodGet, path, "", "")
		expectStatus(t, rr, http.StatusOK)
		if rr.Header().Get("X-Request-ID") == "" {
			t.Errorf("%s: missing request id", path)
		}
	}
}

func TestMetrics(t *testing.T) {
	env := newTestEnv(t, 1)
	env.do(t, http.MethodGet, "/wallets", "alice", "")
	expectStatus(t, env.do(t, http.MethodGet, "/wallets", "alice", ""), http.StatusTooManyRequests)
	env.do(t, http.MethodGet, "/.git/config", "", "")

	rr := env.do(t, http.MethodGet, "/metrics", "", "")
	expectStatus(t, rr, http.StatusOK)
	body := rr.Body.String()
	for _, want := range []string{
		"http_requests_total 4\n",
		"rate_limit_hits_total 1\n",
		"suspicious_requests_total 1\n",
		"http_response_time_avg_microseconds ",
		"uptime_seconds ",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics missing %q:\n%s", want, body)
		}
	}
}

func TestTrustedProxies(t *testing.T) {
	logCfg := log.DefaultConfig()
	logCfg.Output = io.Discard
	srv := NewServer(Options{
		Logger:         log.New(logCfg),
		TrustedProxies: []string{"100.64.0.0/10", "not-a-cidr"},
	})
	t.Cleanup(srv.limiter.Stop)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "100.64.1.1:5000"
	req.Header.Set("X-Forwarded-For", "198.51.100.7")
	if got := srv.detector.ExtractClientIP(req); got != "198.51.100.7" {
		t.Fatalf("client ip = %q, want forwarded address", got)
	}
}

func TestAuthentication(t *testing.T) {
	env := newTestEnv(t, 100)

	rr := env.do(t, http.MethodGet, "/me", "", "")
	expectStatus(t, rr, http.StatusUnauthorized)
	if decode[errorResponse](t, rr).Code != codeUnauthorized {
		t.Fatalf("unexpected body %s", rr.Body.String())
	}

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	rr = httptest.NewRecorder()
	env.srv.Engine().ServeHTTP(rr, req)
	expectStatus(t, rr, http.StatusUnauthorized)

	req = httptest.NewRequest(http.MethodGet, "/me?token="+token(t, "alice"), nil)
	rr = httptest.NewRecorder()
	env.srv.Engine().ServeHTTP(rr, req)
	expectStatus(t, rr, http.StatusOK)
	if decode[userResponse](t, rr).ID != "alice" {
		t.Fatalf("unexpected user %s", rr.Body.String())
	}
}

func TestFirstRequestSeedsCategories(t *testing.T) {
	env := newTestEnv(t, 100)
	rr := env.do(t, http.MethodGet, "/categories", "alice", "")
	expectStatus(t, rr, http.StatusOK)
	if got := len(decode[[]labelResponse](t, rr)); got != len(core.DefaultCategories) {
		t.Fatalf("expected %d seeded categories, got %d", len(core.DefaultCategories), got)
	}
}

func TestWalletBalanceAndSummary(t *testing.T) {
	env := newTestEnv(t, 100)
	w := env.createWallet(t, "alice", `{"name":"Main","currency":"USD","initial_value":"1000.00"}`)
	if w.Currency != "usd" || w.Balance != "1000.00" {
		t.Fatalf("unexpected wallet %+v", w)
	}

	groceries := env.categoryID(t, "alice", "Groceries")
	salary := env.categoryID(t, "alice", "Salary")
	for _, body := range []string{
		`{"note":"Market","amount":"-150.50","currency":"usd","date":"2025-12-03","category_id":"` + groceries + `"}`,
		`{"note":"Pay","amount":5000,"currency":"usd","date":"2025-12-01T09:00:00Z","category_id":"` + salary + `"}`,
		`{"note":"Cafe","amount":"-42,00","currency":"usd","date":"2025-11-30T23:59:59"}`,
	} {
		expectStatus(t, env.do(t, http.MethodPost, "/wallets/"+w.ID+"/transactions", "alice", body), http.StatusCreated)
	}

	rr := env.do(t, http.MethodGet, "/wallets/"+w.ID, "alice", "")
	expectStatus(t, rr, http.StatusOK)
	if got := decode[walletResponse](t, rr).Balance; got != "5807.50" {
		t.Fatalf("expected balance 5807.50, got %s", got)
	}

	rr = env.do(t, http.MethodGet, "/wallets/"+w.ID+"/transactions?month=12&year=2025", "alice", "")
	expectStatus(t, rr, http.StatusOK)
	txs := decode[[]transactionResponse](t, rr)
	if len(txs) != 2 {
		t.Fatalf("expected 2 December transactions, got %d", len(txs))
	}
	if txs[0].Note != "Market" || txs[0].Category == nil || txs[0].Category.Name != "Groceries" {
		t.Fatalf("expected newest first with category, got %+v", txs[0])
	}

	rr = env.do(t, http.MethodGet, "/wallets/"+w.ID+"/summary?month=12&year=2025", "alice", "")
	expectStatus(t, rr, http.StatusOK)
	sum := decode[summaryResponse](t, rr)
	if sum.Balance != "5807.50" || sum.Totals.Income != "5000.00" || sum.Totals.Expense != "-150.50" || sum.Totals.Net != "4849.50" {
		t.Fatalf("unexpected summary %+v", sum)
	}
	if len(sum.Categories) != 2 || sum.Categories[0].Name != "Groceries" || sum.Categories[0].Percentage != "100.00" {
		t.Fatalf("unexpected category breakdown %+v", sum.Categories)
	}
	if len(sum.Tags) != 1 || sum.Tags[0].Name != core.UntaggedName || sum.Tags[0].ID != nil {
		t.Fatalf("unexpected tag breakdown %+v", sum.Tags)
	}
}

func TestTransactionErrors(t *testing.T) {
	env := newTestEnv(t, 100)
	w := env.createWallet(t, "alice", `{"name":"Main","currency":"eur","initial_value":"0"}`)
	path := "/wallets/" + w.ID + "/transactions"

	tests := []struct {
		name   string
		body   string
		status int
		field  string
	}{
		{"currency mismatch", `{"note":"x","amount":"-1","currency":"usd"}`, http.StatusUnprocessableEntity, "currency"},
		{"zero amount", `{"note":"x","amount":"0","currency":"eur"}`, http.StatusUnprocessableEntity, "amount"},
		{"amount not a number", `{"note":"x","amount":"abc","currency":"eur"}`, http.StatusUnprocessableEntity, "amount"},
		{"too many decimals", `{"note":"x","amount":"1.234","currency":"eur"}`, http.StatusUnprocessableEntity, "amount"},
		{"missing note", `{"amount":"1","currency":"eur"}`, http.StatusUnprocessableEntity, "note"},
		{"bad date", `{"note":"x","amount":"1","currency":"eur","date":"03/12/2025"}`, http.StatusUnprocessableEntity, "date"},
		{"explicit zero date", `{"note":"x","amount":"1","currency":"eur","date":"0001-01-01"}`, http.StatusUnprocessableEntity, "date"},
		{"unknown category", `{"note":"x","amount":"1","currency":"eur","category_id":"nope"}`, http.StatusUnprocessableEntity, "category_id"},
		{"unknown tag", `{"note":"x","amount":"1","currency":"eur","tag_ids":["nope"]}`, http.StatusUnprocessableEntity, "tag_ids"},
		{"malformed json", `{"note":`, http.StatusBadRequest, ""},
		{"unknown field", `{"note":"x","amount":"1","currency":"eur","colour":"red"}`, http.StatusBadRequest, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := env.do(t, http.MethodPost, path, "alice", tt.body)
			expectStatus(t, rr, tt.status)
			if tt.field == "" {
				return
			}
			body := decode[errorResponse](t, rr)
			if _, ok := body.Fields[tt.field]; !ok {
				t.Fatalf("expected error on %s, got %+v", tt.field, body)
			}
		})
	}

	rr := env.do(t, http.MethodGet, "/wallets/"+w.ID, "alice", "")
	if decode[walletResponse](t, rr).TransactionCount != 0 {
		t.Fatal("rejected requests must not write")
	}
}

func TestPatchTransaction(t *testing.T) {
	env := newTestEnv(t, 100)
	w := env.createWallet(t, "alice", `{"name":"Main","currency":"usd"}`)
	cat := env.categoryID(t, "alice", "Travel")

	rr := env.do(t, http.MethodPost, "/tags", "alice", `{"name":"trip"}`)
	expectStatus(t, rr, http.StatusCreated)
	tag := decode[labelResponse](t, rr)

	rr = env.do(t, http.MethodPost, "/wallets/"+w.ID+"/transactions", "alice",
		`{"note":"Train","amount":"-30","currency":"usd","category_id":"`+cat+`","tag_ids":["`+tag.ID+`"]}`)
	expectStatus(t, rr, http.StatusCreated)
	tx := decode[transactionResponse](t, rr)

	rr = env.do(t, http.MethodPatch, "/transactions/"+tx.ID, "alice", `{"note":"Night train"}`)
	expectStatus(t, rr, http.StatusOK)
	got := decode[transactionResponse](t, rr)
	if got.Note != "Night train" || got.Category == nil || len(got.Tags) != 1 || got.Amount != "-30.00" {
		t.Fatalf("patch must keep untouched fields, got %+v", got)
	}
	if !got.Date.Equal(tx.Date) {
		t.Fatalf("patch must keep the date, got %v want %v", got.Date, tx.Date)
	}

	rr = env.do(t, http.MethodPatch, "/transactions/"+tx.ID, "alice", `{"category_id":null,"tag_ids":[]}`)
	expectStatus(t, rr, http.StatusOK)
	got = decode[transactionResponse](t, rr)
	if got.Category != nil || len(got.Tags) != 0 {
		t.Fatalf("explicit null must clear the category, got %+v", got)
	}

	expectStatus(t, env.do(t, http.MethodDelete, "/transactions/"+tx.ID, "alice", ""), http.StatusNoContent)
	expectStatus(t, env.do(t, http.MethodGet, "/transactions/"+tx.ID, "alice", ""), http.StatusNotFound)
}

func TestOwnershipIsolation(t *testing.T) {
	env := newTestEnv(t, 100)
	w := env.createWallet(t, "alice", `{"name":"Main","currency":"usd"}`)
	rr := env.do(t, http.MethodPost, "/wallets/"+w.ID+"/transactions", "alice", `{"note":"x","amount":"-1","currency":"usd"}`)
	expectStatus(t, rr, http.StatusCreated)
	tx := decode[transactionResponse](t, rr)
	cat := env.categoryID(t, "alice", "Other")

	for _, tt := range []struct{ method, path, body string }{
		{http.MethodGet, "/wallets/" + w.ID, ""},
		{http.MethodPatch, "/wallets/" + w.ID, `{"name":"mine"}`},
		{http.MethodDelete, "/wallets/" + w.ID, ""},
		{http.MethodGet, "/wallets/" + w.ID + "/transactions", ""},
		{http.MethodPost, "/wallets/" + w.ID + "/transactions", `{"note":"x","amount":"-1","currency":"usd"}`},
		{http.MethodGet, "/wallets/" + w.ID + "/summary", ""},
		{http.MethodGet, "/transactions/" + tx.ID, ""},
		{http.MethodDelete, "/transactions/" + tx.ID, ""},
		{http.MethodGet, "/categories/" + cat, ""},
		{http.MethodDelete, "/categories/" + cat, ""},
	} {
		rr := env.do(t, tt.method, tt.path, "bob", tt.body)
		if rr.Code != http.StatusNotFound {
			t.Errorf("%s %s as bob: expected 404, got %d", tt.method, tt.path, rr.Code)
		}
	}

	rr = env.do(t, http.MethodGet, "/wallets", "bob", "")
	expectStatus(t, rr, http.StatusOK)
	if len(decode[[]walletResponse](t, rr)) != 0 {
		t.Fatal("bob must not see alice's wallets")
	}

	w2 := env.createWallet(t, "bob", `{"name":"Bob","currency":"usd"}`)
	rr = env.do(t, http.MethodPost, "/wallets/"+w2.ID+"/transactions", "bob",
		`{"note":"x","amount":"-1","currency":"usd","category_id":"`+cat+`"}`)
	expectStatus(t, rr, http.StatusUnprocessableEntity)
}

func TestLabelsLifecycle(t *testing.T) {
	env := newTestEnv(t, 100)

	rr := env.do(t, http.MethodPost, "/categories", "alice", `{"name":"Pets","icon":"paw"}`)
	expectStatus(t, rr, http.StatusCreated)
	pets := decode[labelResponse](t, rr)
	if pets.Color != core.DefaultCategoryColor || !pets.IsVisible {
		t.Fatalf("unexpected defaults %+v", pets)
	}

	rr = env.do(t, http.MethodPost, "/categories", "alice", `{"name":"pets"}`)
	expectStatus(t, rr, http.StatusConflict)
	if decode[errorResponse](t, rr).Field != "name" {
		t.Fatalf("conflict must name the field: %s", rr.Body.String())
	}

	expectStatus(t, env.do(t, http.MethodPost, "/tags", "alice", `{"name":"x","color":"red"}`), http.StatusUnprocessableEntity)

	rr = env.do(t, http.MethodPatch, "/categories/"+pets.ID, "alice", `{"is_visible":false}`)
	expectStatus(t, rr, http.StatusOK)
	if got := decode[labelResponse](t, rr); got.IsVisible || got.Icon != "paw" {
		t.Fatalf("patch must only toggle visibility, got %+v", got)
	}

	w := env.createWallet(t, "alice", `{"name":"Main","currency":"usd"}`)
	txPath := "/wallets/" + w.ID + "/transactions"
	body := `{"note":"Vet","amount":"-80","currency":"usd","category_id":"` + pets.ID + `"}`
	expectStatus(t, env.do(t, http.MethodPost, txPath, "alice", body), http.StatusCreated)

	expectStatus(t, env.do(t, http.MethodDelete, "/categories/"+pets.ID, "alice", ""), http.StatusNoContent)
	expectStatus(t, env.do(t, http.MethodDelete, "/categories/"+pets.ID, "alice", ""), http.StatusNoContent)
	expectStatus(t, env.do(t, http.MethodPost, txPath, "alice", body), http.StatusUnprocessableEntity)

	rr = env.do(t, http.MethodGet, "/categories?include_hidden=true", "alice", "")
	for _, l := range decode[[]labelResponse](t, rr) {
		if l.ID == pets.ID {
			t.Fatal("archived category must be excluded by default")
		}
	}
	rr = env.do(t, http.MethodGet, "/categories/"+pets.ID, "alice", "")
	expectStatus(t, rr, http.StatusOK)
	if got := decode[labelResponse](t, rr); !got.IsArchived || got.Selectable || got.TransactionCount != 1 {
		t.Fatalf("archived category keeps its transactions, got %+v", got)
	}

	expectStatus(t, env.do(t, http.MethodGet, "/categories?include_hidden=maybe", "alice", ""), http.StatusUnprocessableEntity)
}

func TestWalletCurrencyLockAndDelete(t *testing.T) {
	env := newTestEnv(t, 100)
	w := env.createWallet(t, "alice", `{"name":"Main","currency":"usd","initial_value":"10"}`)

	rr := env.do(t, http.MethodPatch, "/wallets/"+w.ID, "alice", `{"currency":"eur"}`)
	expectStatus(t, rr, http.StatusOK)
	if got := decode[walletResponse](t, rr); got.Currency != "eur" || got.Name != "Main" || got.InitialValue != "10.00" {
		t.Fatalf("unexpected patched wallet %+v", got)
	}

	expectStatus(t, env.do(t, http.MethodPost, "/wallets/"+w.ID+"/transactions", "alice",
		`{"note":"x","amount":"1","currency":"eur"}`), http.StatusCreated)

	rr = env.do(t, http.MethodPut, "/wallets/"+w.ID, "alice", `{"name":"Main","currency":"gbp","initial_value":"10"}`)
	expectStatus(t, rr, http.StatusUnprocessableEntity)

	expectStatus(t, env.do(t, http.MethodPut, "/wallets/"+w.ID, "alice", `{"name":"Main"}`), http.StatusUnprocessableEntity)

	expectStatus(t, env.do(t, http.MethodDelete, "/wallets/"+w.ID, "alice", ""), http.StatusNoContent)
	expectStatus(t, env.do(t, http.MethodGet, "/wallets/"+w.ID, "alice", ""), http.StatusNotFound)
}

func TestExport(t *testing.T) {
	env := newTestEnv(t, 100)
	w := env.createWallet(t, "alice", `{"name":"Main","currency":"usd"}`)
	expectStatus(t, env.do(t, http.MethodPost, "/wallets/"+w.ID+"/transactions", "alice",
		`{"note":"Lunch","amount":"-12.5","currency":"usd","date":"2025-12-05"}`), http.StatusCreated)

	rr := env.do(t, http.MethodGet, "/wallets/"+w.ID+"/export?format=csv&month=12&year=2025", "alice", "")
	expectStatus(t, rr, http.StatusOK)
	if !strings.Contains(rr.Header().Get("Content-Disposition"), "transactions_2025-12.csv") {
		t.Fatalf("unexpected disposition %q", rr.Header().Get("Content-Disposition"))
	}
	if !strings.Contains(rr.Body.String(), "Lunch,-12.50,USD") {
		t.Fatalf("unexpected csv %q", rr.Body.String())
	}

	rr = env.do(t, http.MethodGet, "/wallets/"+w.ID+"/export?month=12&year=2025", "alice", "")
	expectStatus(t, rr, http.StatusOK)
	if rr.Header().Get("Content-Type") != xlsxContentType {
		t.Fatalf("default export must be xlsx, got %q", rr.Header().Get("Content-Type"))
	}

	expectStatus(t, env.do(t, http.MethodGet, "/wallets/"+w.ID+"/export?format=pdf", "alice", ""), http.StatusUnprocessableEntity)
}

func TestDeleteMe(t *testing.T) {
	env := newTestEnv(t, 100)
	env.createWallet(t, "alice", `{"name":"Main","currency":"usd"}`)

	expectStatus(t, env.do(t, http.MethodDelete, "/me", "alice", ""), http.StatusNoContent)

	// the next request starts over with a fresh, seeded account
	rr := env.do(t, http.MethodGet, "/wallets", "alice", "")
	expectStatus(t, rr, http.StatusOK)
	if len(decode[[]walletResponse](t, rr)) != 0 {
		t.Fatal("wallets must be gone after account deletion")
	}
}

func TestRateLimit(t *testing.T) {
	env := newTestEnv(t, 2)
	expectStatus(t, env.do(t, http.MethodGet, "/me", "alice", ""), http.StatusOK)
	expectStatus(t, env.do(t, http.MethodGet, "/me", "alice", ""), http.StatusOK)
	rr := env.do(t, http.MethodGet, "/me", "alice", "")
	expectStatus(t, rr, http.StatusTooManyRequests)
	if rr.Header().Get("Retry-After") == "" {
		t.Fatal("expected Retry-After")
	}
	// health probes are not limited
	expectStatus(t, env.do(t, http.MethodGet, "/healthz", "", ""), http.StatusOK)
}

func TestUnknownRoute(t *testing.T) {
	env := newTestEnv(t, 100)
	rr := env.do(t, http.MethodGet, "/nope", "", "")
	expectStatus(t, rr, http.StatusNotFound)
	if decode[errorResponse](t, rr).Code != codeNotFound {
		t.Fatalf("unexpected body %s", rr.Body.String())
	}
}
