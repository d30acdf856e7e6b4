package ledger

import (
	"context"
	"math/rand/v2"
	"slices"
	"sync"
	"time"
	"unicode/utf16"

	"github.com/shopspring/decimal"

	"github.com/epicvibe/platform/internal/epicvibe"
)

// Simulated fakes chain operations. Nothing is stored: Balance is a pure
// function of the wallet and History is invented on every call, so the two
// never agree with the awards made.
type Simulated struct {
	mu  sync.Mutex
	rnd *rand.Rand
	now func() time.Time
}

func NewSimulated(rnd *rand.Rand) *Simulated {
	return &Simulated{rnd: rnd, now: func() time.Time { return time.Now().UTC() }}
}

func (s *Simulated) Mode() string { return ModeSimulation }

func (s *Simulated) Award(_ context.Context, wallet string, amount decimal.Decimal, reason string) (epicvibe.RewardEvent, error) {
	if err := checkWallet(wallet); err != nil {
		return epicvibe.RewardEvent{}, err
	}
	typ := epicvibe.RewardTypeReward
	if amount.IsNegative() {
		typ = epicvibe.RewardTypePurchase
	}
	return s.event(wallet, amount, typ, reason, s.now()), nil
}

func (s *Simulated) Purchase(ctx context.Context, wallet string, amount decimal.Decimal, itemID string) (epicvibe.RewardEvent, error) {
	if err := checkPurchase(wallet, amount, itemID); err != nil {
		return epicvibe.RewardEvent{}, err
	}
	return s.Award(ctx, wallet, amount.Neg(), purchaseReason(itemID))
}

func (s *Simulated) Balance(_ context.Context, wallet string) (decimal.Decimal, error) {
	return SimulatedBalance(wallet), nil
}

func (s *Simulated) History(_ context.Context, wallet string) ([]epicvibe.RewardEvent, error) {
	now := s.now()
	day := 24 * time.Hour

	events := []epicvibe.RewardEvent{
		s.event(wallet, decimal.NewFromInt(25), epicvibe.RewardTypeReward, "game_creation", now.Add(-7*day)),
	}
	for i := range 3 {
		s.mu.Lock()
		amount := decimal.NewFromInt(int64(2 + s.rnd.IntN(5)))
		s.mu.Unlock()
		events = append(events, s.event(wallet, amount, epicvibe.RewardTypeReward, "game_play", now.Add(-time.Duration(6-i)*day)))
	}
	events = append(events,
		s.event(wallet, decimal.NewFromInt(-10), epicvibe.RewardTypePurchase, "advanced_feature", now.Add(-3*day)),
		s.event(wallet, decimal.NewFromInt(-50), epicvibe.RewardTypeStake, "governance_voting", now.Add(-2*day)),
		s.event(wallet, decimal.NewFromInt(15), epicvibe.RewardTypeReward, "community_upvote", now.Add(-day)),
	)

	slices.SortStableFunc(events, func(a, b epicvibe.RewardEvent) int {
		return b.Timestamp.Compare(a.Timestamp)
	})
	return events, nil
}

func (s *Simulated) event(wallet string, amount decimal.Decimal, typ epicvibe.RewardType, reason string, at time.Time) epicvibe.RewardEvent {
	return epicvibe.RewardEvent{
		Signature: "EPIC" + s.signature(),
		Recipient: wallet,
		Amount:    amount,
		Type:      typ,
		Reason:    reason,
		Timestamp: at,
		Status:    epicvibe.StatusConfirmed,
	}
}

const base36 = "0123456789abcdefghijklmnopqrstuvwxyz"

func (s *Simulated) signature() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	b := make([]byte, 26)
	for i := range b {
		b[i] = base36[s.rnd.IntN(len(base36))]
	}
	return string(b)
}

// SimulatedBalance derives a stable balance in [10, 500) with two decimal
// places from a 32-bit rolling hash of the wallet's UTF-16 code units.
func SimulatedBalance(wallet string) decimal.Decimal {
	var h int32
	for _, c := range utf16.Encode([]rune(wallet)) {
		h = (h << 5) - h + int32(c)
	}

	whole := abs(h % 490)
	cents := abs((h >> 8) % 100)
	return decimal.NewFromInt(int64(10 + whole)).Add(decimal.New(int64(cents), -2))
}

func abs(n int32) int32 {
	if n < 0 {
		return -n
	}
	return n
}
