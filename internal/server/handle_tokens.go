package server

import (
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/epicvibe/platform/internal/epicvibe"
	"github.com/epicvibe/platform/internal/ledger"
)

type BalanceResponse struct {
	WalletAddress string          `json:"walletAddress"`
	Balance       decimal.Decimal `json:"balance"`
	Mode          string          `json:"mode"`
}

type HistoryResponse struct {
	Transactions []epicvibe.RewardEvent `json:"transactions"`
}

// PurchaseRequest is the body of POST /api/tokens/purchase.
type PurchaseRequest struct {
	ItemID string          `json:"itemId"`
	Amount decimal.Decimal `json:"amount"`
}

type TransactionResponse struct {
	Transaction epicvibe.RewardEvent `json:"transaction"`
}

func handleBalance(l ledger.Ledger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u := userFrom(r)
		bal, err := l.Balance(r.Context(), u.WalletAddress)
		if err != nil {
			writeFailure(w, r, err, "Failed to get token balance")
			return
		}
		writeData(w, http.StatusOK, BalanceResponse{
			WalletAddress: u.WalletAddress,
			Balance:       bal,
			Mode:          l.Mode(),
		}, "")
	}
}

func handleHistory(l ledger.Ledger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		events, err := l.History(r.Context(), userFrom(r).WalletAddress)
		if err != nil {
			writeFailure(w, r, err, "Failed to get transaction history")
			return
		}
		if events == nil {
			events = []epicvibe.RewardEvent{}
		}
		writeData(w, http.StatusOK, HistoryResponse{Transactions: events}, "")
	}
}

func handlePurchase(l ledger.Ledger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req PurchaseRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, "Invalid request body", err)
			return
		}

		ev, err := l.Purchase(r.Context(), userFrom(r).WalletAddress, req.Amount, req.ItemID)
		if err != nil {
			writeFailure(w, r, err, "Failed to complete purchase")
			return
		}
		writeData(w, http.StatusOK, TransactionResponse{Transaction: ev},
			fmt.Sprintf("Purchased %s for %s $EPIC tokens", req.ItemID, req.Amount))
	}
}
