package server

import (
	"net/http"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/epicvibe/platform/internal/auth"
	"github.com/epicvibe/platform/internal/epicvibe"
	"github.com/epicvibe/platform/internal/ledger"
)

func TestLogin(t *testing.T) {
	api := newTestAPI(t, true, nil)

	tests := []struct {
		name     string
		body     LoginRequest
		wantCode int
		wantMsg  string
	}{
		{"ok", LoginRequest{Username: "DemoUser", Password: "epicvibe"}, http.StatusOK, "Login successful"},
		{"wrong password", LoginRequest{Username: "demouser", Password: "nope"}, http.StatusUnauthorized, "Invalid username or password"},
		{"unknown user", LoginRequest{Username: "ghost", Password: "epicvibe"}, http.StatusUnauthorized, "Invalid username or password"},
		{"missing fields", LoginRequest{Username: "demouser"}, http.StatusBadRequest, "Username and password are required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := api.do(t, http.MethodPost, "/api/auth/login", "", tt.body)
			if res.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d", res.Code, tt.wantCode)
			}
			if res.Message != tt.wantMsg {
				t.Errorf("message = %q, want %q", res.Message, tt.wantMsg)
			}
			if tt.wantCode != http.StatusOK {
				return
			}

			login := decodeData[LoginResponse](t, res)
			if login.User.ID != auth.DemoUser.ID {
				t.Errorf("user = %+v", login.User)
			}
			me := api.do(t, http.MethodGet, "/api/auth/me", login.Token, nil)
			if me.Code != http.StatusOK {
				t.Errorf("token from login rejected: %d %s", me.Code, me.Message)
			}
		})
	}
}

func TestTokenRoutes(t *testing.T) {
	api := newTestAPI(t, false, nil)

	res := api.do(t, http.MethodGet, "/api/tokens/balance", "", nil)
	if res.Code != http.StatusOK {
		t.Fatalf("balance status = %d", res.Code)
	}
	bal := decodeData[BalanceResponse](t, res)
	if bal.WalletAddress != auth.DemoUser.WalletAddress || bal.Mode != ledger.ModeSimulation {
		t.Errorf("balance = %+v", bal)
	}
	if want := ledger.SimulatedBalance(auth.DemoUser.WalletAddress); !bal.Balance.Equal(want) {
		t.Errorf("balance = %s, want %s", bal.Balance, want)
	}

	hist := decodeData[HistoryResponse](t, api.do(t, http.MethodGet, "/api/tokens/history", "", nil))
	if len(hist.Transactions) == 0 {
		t.Fatal("empty history")
	}
	for i := 1; i < len(hist.Transactions); i++ {
		if hist.Transactions[i].Timestamp.After(hist.Transactions[i-1].Timestamp) {
			t.Errorf("history not newest first at %d", i)
		}
	}

	buy := api.do(t, http.MethodPost, "/api/tokens/purchase", "", PurchaseRequest{ItemID: "skin_gold", Amount: decimal.NewFromInt(5)})
	if buy.Code != http.StatusOK {
		t.Fatalf("purchase status = %d: %s", buy.Code, buy.Message)
	}
	tx := decodeData[TransactionResponse](t, buy).Transaction
	if tx.Reason != "purchase_skin_gold" || !tx.Amount.Equal(decimal.NewFromInt(-5)) || tx.Type != epicvibe.RewardTypePurchase {
		t.Errorf("transaction = %+v", tx)
	}

	bad := api.do(t, http.MethodPost, "/api/tokens/purchase", "", PurchaseRequest{ItemID: "skin_gold"})
	if bad.Code != http.StatusBadRequest || bad.Message != "Purchase amount must be positive" {
		t.Errorf("zero purchase = %d %q", bad.Code, bad.Message)
	}
}
