package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/epicvibe/platform/internal/epicvibe"
)

// ChainClient moves tokens on the chain. Implementations make a single
// attempt per call.
type ChainClient interface {
	Transfer(ctx context.Context, from, to string, amount decimal.Decimal) (signature string, err error)
	Balance(ctx context.Context, wallet string) (decimal.Decimal, error)
}

// HistoryLog is an append-only record of confirmed events per wallet.
type HistoryLog interface {
	Append(ctx context.Context, ev epicvibe.RewardEvent) error
	List(ctx context.Context, wallet string) ([]epicvibe.RewardEvent, error)
}

// Live pays rewards out of a pool wallet through a ChainClient and keeps its
// own history of what it sent.
type Live struct {
	client ChainClient
	pool   string
	log    HistoryLog
	now    func() time.Time
}

func NewLive(client ChainClient, poolAddress string, log HistoryLog) *Live {
	return &Live{
		client: client,
		pool:   poolAddress,
		log:    log,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (l *Live) Mode() string { return ModeLive }

func (l *Live) Award(ctx context.Context, wallet string, amount decimal.Decimal, reason string) (epicvibe.RewardEvent, error) {
	if err := checkWallet(wallet); err != nil {
		return epicvibe.RewardEvent{}, err
	}

	from, to, typ := l.pool, wallet, epicvibe.RewardTypeReward
	if amount.IsNegative() {
		from, to, typ = wallet, l.pool, epicvibe.RewardTypePurchase
	}
	sig, err := l.client.Transfer(ctx, from, to, amount.Abs())
	if err != nil {
		return epicvibe.RewardEvent{}, fmt.Errorf("transfer %s to %s: %w: %w", amount, wallet, epicvibe.ErrUpstream, err)
	}

	ev := epicvibe.RewardEvent{
		Signature: sig,
		Recipient: wallet,
		Amount:    amount,
		Type:      typ,
		Reason:    reason,
		Timestamp: l.now(),
		Status:    epicvibe.StatusConfirmed,
	}
	// The transfer already happened; a failed append only loses the record.
	if err := l.log.Append(ctx, ev); err != nil {
		return ev, fmt.Errorf("recording %s: %w", sig, err)
	}
	return ev, nil
}

func (l *Live) Purchase(ctx context.Context, wallet string, amount decimal.Decimal, itemID string) (epicvibe.RewardEvent, error) {
	if err := checkPurchase(wallet, amount, itemID); err != nil {
		return epicvibe.RewardEvent{}, err
	}
	return l.Award(ctx, wallet, amount.Neg(), purchaseReason(itemID))
}

func (l *Live) Balance(ctx context.Context, wallet string) (decimal.Decimal, error) {
	if err := checkWallet(wallet); err != nil {
		return decimal.Zero, err
	}
	b, err := l.client.Balance(ctx, wallet)
	if err != nil {
		return decimal.Zero, fmt.Errorf("balance of %s: %w: %w", wallet, epicvibe.ErrUpstream, err)
	}
	return b, nil
}

func (l *Live) History(ctx context.Context, wallet string) ([]epicvibe.RewardEvent, error) {
	if err := checkWallet(wallet); err != nil {
		return nil, err
	}
	return l.log.List(ctx, wallet)
}
