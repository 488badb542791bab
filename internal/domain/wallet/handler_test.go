package wallet_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/livesale/livesale-api/internal/domain/wallet"
	"github.com/livesale/livesale-api/internal/middleware"
	"github.com/livesale/livesale-api/internal/pkg/jwt"
)

func newTestRouter(db *sqlx.DB) (http.Handler, string) {
	jwtService := jwt.NewService("test-secret", time.Hour)
	token, _ := jwtService.GenerateAccessToken(uuid.New(), "operator")

	service := wallet.NewService(wallet.NewRepository(db), nil)
	handler := wallet.NewHandler(service)
	return handler.Routes(middleware.Auth(jwtService)), token
}

func doJSON(t *testing.T, router http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func TestWalletRoutesUnauthorizedWithoutToken(t *testing.T) {
	router, _ := newTestRouter(nil)

	rr := doJSON(t, router, http.MethodGet, "/0912345678/balance", "", "")
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}

func TestWalletRoutesInvalidPhone(t *testing.T) {
	db := setupTestDB(t)
	defer cleanupTestDB(db)

	router, token := newTestRouter(db)

	rr := doJSON(t, router, http.MethodGet, "/not-a-phone/balance", token, "")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestDepositEndpoint(t *testing.T) {
	db := setupTestDB(t)
	defer cleanupTestDB(db)

	phone := createTestWallet(t, db)
	router, token := newTestRouter(db)

	rr := doJSON(t, router, http.MethodPost, "/"+phone+"/deposit", token,
		`{"amount": 100000, "source_type": "manual", "description": "top up"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var envelope struct {
		Success bool                 `json:"success"`
		Data    wallet.DepositResult `json:"data"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("invalid response JSON: %v", err)
	}
	if !envelope.Success || envelope.Data.NewRealBalance != 100000 {
		t.Fatalf("unexpected response: %s", rr.Body.String())
	}
	if !strings.HasPrefix(envelope.Data.TransactionCode, "WT-") {
		t.Fatalf("unexpected transaction code %q", envelope.Data.TransactionCode)
	}
}

func TestDepositEndpointValidation(t *testing.T) {
	db := setupTestDB(t)
	defer cleanupTestDB(db)

	phone := createTestWallet(t, db)
	router, token := newTestRouter(db)

	rr := doJSON(t, router, http.MethodPost, "/"+phone+"/deposit", token,
		`{"amount": -5, "source_type": "manual"}`)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", rr.Code, rr.Body.String())
	}

	rr = doJSON(t, router, http.MethodPost, "/"+phone+"/deposit", token, `not json`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestWithdrawEndpointInsufficientBalance(t *testing.T) {
	db := setupTestDB(t)
	defer cleanupTestDB(db)

	phone := createTestWallet(t, db)
	router, token := newTestRouter(db)

	rr := doJSON(t, router, http.MethodPost, "/"+phone+"/withdraw", token,
		`{"amount": 5000, "order_id": "ORD-H001"}`)
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestBalanceEndpointNotFound(t *testing.T) {
	db := setupTestDB(t)
	defer cleanupTestDB(db)

	router, token := newTestRouter(db)

	rr := doJSON(t, router, http.MethodGet, "/0999999998/balance", token, "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestIssueCreditEndpoint(t *testing.T) {
	db := setupTestDB(t)
	defer cleanupTestDB(db)

	phone := createTestWallet(t, db)
	router, token := newTestRouter(db)

	rr := doJSON(t, router, http.MethodPost, "/"+phone+"/credits", token,
		`{"amount": 30000, "expiry_days": 5, "source_type": "promotion", "source_note": "spring promo"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}

	rr = doJSON(t, router, http.MethodPost, "/"+phone+"/credits", token,
		`{"amount": 30000, "expiry_days": 5, "source_type": "lottery"}`)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for unknown source type, got %d: %s", rr.Code, rr.Body.String())
	}

	rr = doJSON(t, router, http.MethodGet, "/"+phone+"/credits", token, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if !strings.Contains(rr.Body.String(), `"credits"`) {
		t.Fatalf("expected credits list in response: %s", rr.Body.String())
	}
}

func TestSearchTransactionsEndpoint(t *testing.T) {
	db := setupTestDB(t)
	defer cleanupTestDB(db)

	phone := createTestWallet(t, db)
	router, token := newTestRouter(db)

	rr := doJSON(t, router, http.MethodPost, "/"+phone+"/deposit", token,
		`{"amount": 20000, "source_type": "manual"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("deposit failed: %d %s", rr.Code, rr.Body.String())
	}

	rr = doJSON(t, router, http.MethodGet, "/transactions?phone="+phone+"&type=DEPOSIT", token, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if !strings.Contains(rr.Body.String(), `"DEPOSIT"`) {
		t.Fatalf("expected a deposit entry in search results: %s", rr.Body.String())
	}

	rr = doJSON(t, router, http.MethodGet, "/transactions?from=yesterday", token, "")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad timestamp, got %d", rr.Code)
	}
}
