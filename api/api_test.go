package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/0xcafe-io/iz"
	"github.com/StrawThePie/expense-tracker-api/config"
	"github.com/StrawThePie/expense-tracker-api/internal/auth"
	"github.com/StrawThePie/expense-tracker-api/internal/expense"
	"github.com/StrawThePie/expense-tracker-api/internal/storage"
	"github.com/StrawThePie/expense-tracker-api/logging"
	"github.com/sirupsen/logrus"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	logging.Logger = logrus.New()

	tokenService, err := auth.NewTokenService(config.Config{
		JWTSecret:     "test-secret",
		JWTAlgorithm:  "HS256",
		TokenLifetime: 30 * time.Minute,
	})
	if err != nil {
		t.Fatalf("failed to create token service: %v", err)
	}

	tracker := expense.NewTracker(storage.NewInMemoryStorage(), tokenService)
	api := NewApi(&tracker)

	server := http.NewServeMux()
	server.HandleFunc("POST /auth/signup", iz.Bind(api.SaveUserHandler))
	server.HandleFunc("POST /auth/login", iz.Bind(api.LoginUserHandler))
	server.HandleFunc("POST /expenses/", iz.Bind(api.SaveExpenseHandler))
	server.HandleFunc("GET /expenses/", iz.Bind(api.GetFilteredExpensesHandler))
	server.HandleFunc("GET /expenses/{id}", iz.Bind(api.GetExpenseByIdHandler))
	server.HandleFunc("PUT /expenses/{id}", iz.Bind(api.UpdateExpenseHandler))
	server.HandleFunc("DELETE /expenses/{id}", iz.Bind(api.DeleteExpenseHandler))
	server.HandleFunc("GET /health", iz.Bind(api.HealthHandler))

	ts := httptest.NewServer(server)
	t.Cleanup(ts.Close)
	return ts
}

func doRequest(t *testing.T, method, url, token string, body interface{}) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}

	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	return resp
}

func signupAndLogin(t *testing.T, baseURL, email, password string) string {
	t.Helper()

	resp := doRequest(t, http.MethodPost, baseURL+"/auth/signup", "", map[string]string{
		"email":    email,
		"password": password,
	})
	defer resp.Body.Close()
	if resp.StatusCode != 201 {
		t.Fatalf("signup for %s: expected 201, got %d", email, resp.StatusCode)
	}

	resp = doRequest(t, http.MethodPost, baseURL+"/auth/login", "", map[string]string{
		"email":    email,
		"password": password,
	})
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		t.Fatalf("login for %s: expected 200, got %d", email, resp.StatusCode)
	}

	var login LoginResponse
	if err := json.NewDecoder(resp.Body).Decode(&login); err != nil {
		t.Fatalf("failed to decode login response: %v", err)
	}
	if login.TokenType != "bearer" {
		t.Errorf("expected token_type bearer, got %q", login.TokenType)
	}
	if login.AccessToken == "" {
		t.Fatalf("expected a non-empty access token")
	}
	return login.AccessToken
}

func TestHealthEndpoint(t *testing.T) {
	ts := newTestServer(t)

	resp := doRequest(t, http.MethodGet, ts.URL+"/health", "", nil)
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var health HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		t.Fatalf("failed to decode health response: %v", err)
	}
	if health.Status != "ok" {
		t.Errorf("expected status ok, got %q", health.Status)
	}
}

func TestSignupDuplicateEmail(t *testing.T) {
	ts := newTestServer(t)

	resp := doRequest(t, http.MethodPost, ts.URL+"/auth/signup", "", map[string]string{
		"email":    "a@x.com",
		"password": "pw1",
	})
	resp.Body.Close()
	if resp.StatusCode != 201 {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	resp = doRequest(t, http.MethodPost, ts.URL+"/auth/signup", "", map[string]string{
		"email":    "a@x.com",
		"password": "pw2",
	})
	resp.Body.Close()
	if resp.StatusCode != 409 {
		t.Errorf("expected 409 for duplicate email, got %d", resp.StatusCode)
	}
}

func TestLoginFailures(t *testing.T) {
	ts := newTestServer(t)
	signupAndLogin(t, ts.URL, "a@x.com", "pw1")

	for name, body := range map[string]map[string]string{
		"wrong password": {"email": "a@x.com", "password": "nope"},
		"unknown email":  {"email": "ghost@x.com", "password": "pw1"},
	} {
		resp := doRequest(t, http.MethodPost, ts.URL+"/auth/login", "", body)
		resp.Body.Close()
		if resp.StatusCode != 401 {
			t.Errorf("%s: expected 401, got %d", name, resp.StatusCode)
		}
	}
}

func TestExpensesRequireToken(t *testing.T) {
	ts := newTestServer(t)

	resp := doRequest(t, http.MethodGet, ts.URL+"/expenses/", "", nil)
	resp.Body.Close()
	if resp.StatusCode != 401 {
		t.Errorf("expected 401 without token, got %d", resp.StatusCode)
	}

	resp = doRequest(t, http.MethodGet, ts.URL+"/expenses/", "bogus-token", nil)
	resp.Body.Close()
	if resp.StatusCode != 401 {
		t.Errorf("expected 401 with a bogus token, got %d", resp.StatusCode)
	}
}

func TestExpenseLifecycle(t *testing.T) {
	ts := newTestServer(t)
	token := signupAndLogin(t, ts.URL, "a@x.com", "pw1")

	resp := doRequest(t, http.MethodPost, ts.URL+"/expenses/", token, map[string]interface{}{
		"amount":   12.5,
		"category": "food",
	})
	if resp.StatusCode != 201 {
		t.Fatalf("create: expected 201, got %d", resp.StatusCode)
	}
	var created ExpenseItem
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("failed to decode created expense: %v", err)
	}
	resp.Body.Close()
	if created.ID == "" || created.Amount != 12.5 || created.Category != "food" {
		t.Fatalf("unexpected created expense: %+v", created)
	}

	resp = doRequest(t, http.MethodGet, ts.URL+"/expenses/", token, nil)
	if resp.StatusCode != 200 {
		t.Fatalf("list: expected 200, got %d", resp.StatusCode)
	}
	var listed ListExpensesResponse
	if err := json.NewDecoder(resp.Body).Decode(&listed); err != nil {
		t.Fatalf("failed to decode expense list: %v", err)
	}
	resp.Body.Close()
	if len(listed.Expenses) != 1 || listed.Expenses[0].Amount != 12.5 {
		t.Fatalf("expected exactly one row with amount 12.5, got %+v", listed.Expenses)
	}

	newCategory := "groceries"
	resp = doRequest(t, http.MethodPut, fmt.Sprintf("%s/expenses/%s", ts.URL, created.ID), token, map[string]interface{}{
		"category": newCategory,
	})
	if resp.StatusCode != 200 {
		t.Fatalf("update: expected 200, got %d", resp.StatusCode)
	}
	var updated ExpenseItem
	if err := json.NewDecoder(resp.Body).Decode(&updated); err != nil {
		t.Fatalf("failed to decode updated expense: %v", err)
	}
	resp.Body.Close()
	if updated.Category != "groceries" {
		t.Errorf("expected updated category, got %q", updated.Category)
	}
	if updated.Amount != 12.5 {
		t.Errorf("amount must stay unchanged, got %v", updated.Amount)
	}

	resp = doRequest(t, http.MethodDelete, fmt.Sprintf("%s/expenses/%s", ts.URL, created.ID), token, nil)
	resp.Body.Close()
	if resp.StatusCode != 204 {
		t.Fatalf("delete: expected 204, got %d", resp.StatusCode)
	}

	resp = doRequest(t, http.MethodGet, fmt.Sprintf("%s/expenses/%s", ts.URL, created.ID), token, nil)
	resp.Body.Close()
	if resp.StatusCode != 404 {
		t.Errorf("get after delete: expected 404, got %d", resp.StatusCode)
	}
}

func TestExpenseCrossUserAccess(t *testing.T) {
	ts := newTestServer(t)
	tokenA := signupAndLogin(t, ts.URL, "a@x.com", "pw1")
	tokenB := signupAndLogin(t, ts.URL, "b@x.com", "pw2")

	resp := doRequest(t, http.MethodPost, ts.URL+"/expenses/", tokenA, map[string]interface{}{
		"amount":   42.0,
		"category": "travel",
	})
	var created ExpenseItem
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("failed to decode created expense: %v", err)
	}
	resp.Body.Close()

	urls := map[string]func() *http.Response{
		"get": func() *http.Response {
			return doRequest(t, http.MethodGet, fmt.Sprintf("%s/expenses/%s", ts.URL, created.ID), tokenB, nil)
		},
		"update": func() *http.Response {
			return doRequest(t, http.MethodPut, fmt.Sprintf("%s/expenses/%s", ts.URL, created.ID), tokenB, map[string]interface{}{"category": "stolen"})
		},
		"delete": func() *http.Response {
			return doRequest(t, http.MethodDelete, fmt.Sprintf("%s/expenses/%s", ts.URL, created.ID), tokenB, nil)
		},
	}
	for name, call := range urls {
		resp := call()
		resp.Body.Close()
		if resp.StatusCode != 404 {
			t.Errorf("%s with wrong owner: expected 404, got %d", name, resp.StatusCode)
		}
	}

	resp = doRequest(t, http.MethodGet, ts.URL+"/expenses/", tokenB, nil)
	var listed ListExpensesResponse
	if err := json.NewDecoder(resp.Body).Decode(&listed); err != nil {
		t.Fatalf("failed to decode expense list: %v", err)
	}
	resp.Body.Close()
	if len(listed.Expenses) != 0 {
		t.Errorf("user B's listing must not contain user A's rows, got %+v", listed.Expenses)
	}
}

func TestListCustomPeriodMissingRange(t *testing.T) {
	ts := newTestServer(t)
	token := signupAndLogin(t, ts.URL, "a@x.com", "pw1")

	resp := doRequest(t, http.MethodGet, ts.URL+"/expenses/?period=custom&start_date=2026-01-01", token, nil)
	resp.Body.Close()
	if resp.StatusCode != 400 {
		t.Errorf("expected 400 for custom period without end_date, got %d", resp.StatusCode)
	}

	resp = doRequest(t, http.MethodGet, ts.URL+"/expenses/?period=fortnight", token, nil)
	resp.Body.Close()
	if resp.StatusCode != 200 {
		t.Errorf("unrecognized period must fall through to an unfiltered listing, got %d", resp.StatusCode)
	}
}
