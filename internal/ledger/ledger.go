// Package ledger issues $EPIC reward credits and purchase debits, either
// simulated in-process or delegated to a chain RPC gateway.
package ledger

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/epicvibe/platform/internal/epicvibe"
)

const (
	ModeSimulation = "simulation"
	ModeLive       = "live"
)

type Ledger interface {
	// Award credits wallet. Amount may be negative for a debit.
	Award(ctx context.Context, wallet string, amount decimal.Decimal, reason string) (epicvibe.RewardEvent, error)
	// Purchase debits amount from wallet for itemID.
	Purchase(ctx context.Context, wallet string, amount decimal.Decimal, itemID string) (epicvibe.RewardEvent, error)
	Balance(ctx context.Context, wallet string) (decimal.Decimal, error)
	// History lists events newest first.
	History(ctx context.Context, wallet string) ([]epicvibe.RewardEvent, error)
	Mode() string
}

func checkWallet(wallet string) error {
	if strings.TrimSpace(wallet) == "" {
		return fmt.Errorf("wallet address is required: %w", epicvibe.ErrValidation)
	}
	return nil
}

func checkPurchase(wallet string, amount decimal.Decimal, itemID string) error {
	if err := checkWallet(wallet); err != nil {
		return err
	}
	if !amount.IsPositive() {
		return fmt.Errorf("purchase amount must be positive: %w", epicvibe.ErrValidation)
	}
	if strings.TrimSpace(itemID) == "" {
		return fmt.Errorf("item id is required: %w", epicvibe.ErrValidation)
	}
	return nil
}

func purchaseReason(itemID string) string {
	return "purchase_" + itemID
}
