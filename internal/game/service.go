// Package game orchestrates the catalog, generator, ledger, and relay for the
// game lifecycle: generate, publish, edit, play, like, share.
package game

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/epicvibe/platform/internal/catalog"
	"github.com/epicvibe/platform/internal/epicvibe"
	"github.com/epicvibe/platform/internal/generate"
	"github.com/epicvibe/platform/internal/ledger"
	"github.com/epicvibe/platform/internal/relay"
)

// Reward amounts in $EPIC.
var (
	CreationReward    = decimal.NewFromInt(25)
	PlayCreatorReward = decimal.RequireFromString("0.1")
	PlayPlayerReward  = decimal.RequireFromString("0.5")
	LikeCreatorReward = decimal.NewFromInt(1)
	ShareSharerReward = decimal.NewFromInt(2)
)

const (
	DefaultTrendingSize = 5
	rewardSource        = "epicvibe_reward_pool"
)

type Generator interface {
	Generate(ctx context.Context, req generate.Request) (generate.Draft, error)
}

// Notifier pushes realtime events. Delivery is best effort.
type Notifier interface {
	NotifyWallet(wallet, event string, data any)
	Broadcast(event string, data any)
}

type Service struct {
	store  catalog.Store
	gen    Generator
	ledger ledger.Ledger
	notify Notifier
	logger *slog.Logger
	now    func() time.Time
}

func NewService(store catalog.Store, gen Generator, l ledger.Ledger, notify Notifier, logger *slog.Logger) *Service {
	return &Service{
		store:  store,
		gen:    gen,
		ledger: l,
		notify: notify,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

type GenerateRequest struct {
	Description string              `json:"description"`
	Type        string              `json:"gameType"`
	Style       string              `json:"gameStyle"`
	Complexity  epicvibe.Complexity `json:"complexity"`
}

// Generate creates an unpublished game owned by u from a description.
func (s *Service) Generate(ctx context.Context, u epicvibe.User, req GenerateRequest) (epicvibe.Game, error) {
	if strings.TrimSpace(req.Description) == "" {
		return epicvibe.Game{}, fmt.Errorf("game description is required: %w", epicvibe.ErrValidation)
	}
	switch req.Complexity {
	case "", epicvibe.ComplexitySimple, epicvibe.ComplexityAdvanced:
	default:
		return epicvibe.Game{}, fmt.Errorf("complexity must be Simple or Advanced: %w", epicvibe.ErrValidation)
	}

	d, err := s.gen.Generate(ctx, generate.Request{
		Description: req.Description,
		Type:        req.Type,
		Style:       req.Style,
		Complexity:  req.Complexity,
	})
	if err != nil {
		return epicvibe.Game{}, fmt.Errorf("generating game: %w", err)
	}

	now := s.now()
	assets := d.Assets
	code := d.Code
	g := epicvibe.Game{
		Title:       d.Title,
		Description: d.Description,
		Creator:     epicvibe.CreatorOf(u),
		Type:        d.Type,
		Style:       d.Style,
		Complexity:  d.Complexity,
		MainImage:   d.Assets.MainImage,
		CreatedAt:   now,
		UpdatedAt:   now,
		Stats:       epicvibe.Stats{TokensEarned: decimal.Zero},
		Hash:        d.Hash,
		Assets:      &assets,
		Mechanics:   d.Mechanics,
		Code:        &code,
	}

	id, err := s.store.Insert(ctx, g)
	if err != nil {
		return epicvibe.Game{}, fmt.Errorf("storing generated game: %w", err)
	}
	g, err = s.store.Modify(ctx, id, func(g *epicvibe.Game) error {
		g.PlayURL = "/play/" + strings.TrimPrefix(id, "game_")
		return nil
	})
	if err != nil {
		return epicvibe.Game{}, err
	}

	s.logger.Info("game generated", "id", id, "creator", u.ID, "type", g.Type, "style", g.Style)
	return g, nil
}

type PublishResult struct {
	Game        epicvibe.Game
	Transaction *epicvibe.RewardEvent
}

// Publish marks a game published. The creation reward is paid at most once
// per game: the eligibility flag is claimed inside the same atomic update
// that publishes, and released again if the payment fails.
func (s *Service) Publish(ctx context.Context, u epicvibe.User, id string) (PublishResult, error) {
	claimed := false
	g, err := s.store.Modify(ctx, id, func(g *epicvibe.Game) error {
		claimed = false
		if g.Creator.ID != u.ID {
			return fmt.Errorf("publish %s: %w", id, epicvibe.ErrForbidden)
		}
		g.IsPublished = true
		g.UpdatedAt = s.now()
		if !g.CreationRewarded {
			g.CreationRewarded = true
			claimed = true
		}
		return nil
	})
	if err != nil {
		return PublishResult{}, err
	}

	res := PublishResult{Game: g}
	if claimed {
		ev, err := s.ledger.Award(ctx, g.Creator.WalletAddress, CreationReward, "game_creation")
		if err != nil {
			_, rerr := s.store.Modify(ctx, id, func(g *epicvibe.Game) error {
				g.CreationRewarded = false
				return nil
			})
			return PublishResult{}, errors.Join(fmt.Errorf("paying creation reward: %w", err), rerr)
		}
		g, err = s.addEarnings(ctx, id, CreationReward)
		if err != nil {
			return PublishResult{}, err
		}
		res = PublishResult{Game: g, Transaction: &ev}
		s.announceReward(ev)
	}

	s.notify.Broadcast(relay.EventGameNew, relay.NewGameAnnouncement(
		g.ID, g.Title, g.Description, g.Type, g.Style, g.Creator.ID, g.Creator.Username, s.now()))
	s.logger.Info("game published", "id", id, "creator", u.ID, "rewarded", claimed)
	return res, nil
}

func (s *Service) Update(ctx context.Context, u epicvibe.User, id string, patch catalog.Patch) (epicvibe.Game, error) {
	return s.store.Update(ctx, id, patch, u.ID)
}

func (s *Service) Delete(ctx context.Context, u epicvibe.User, id string) (epicvibe.Game, error) {
	g, err := s.store.Remove(ctx, id, u.ID)
	if err != nil {
		return epicvibe.Game{}, err
	}
	s.logger.Info("game deleted", "id", id, "creator", u.ID)
	return g, nil
}

func (s *Service) Get(ctx context.Context, id string) (epicvibe.Game, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, opts catalog.ListOptions) ([]epicvibe.Game, int, error) {
	return s.store.List(ctx, opts)
}

// ListUser returns every game whose creator id or username is userID.
func (s *Service) ListUser(ctx context.Context, userID string) ([]epicvibe.Game, error) {
	games, _, err := s.store.List(ctx, catalog.ListOptions{
		Filter: catalog.Filter{Creator: userID},
		Sort:   catalog.SortRecent,
	})
	return games, err
}

func (s *Service) Trending(ctx context.Context, limit int) ([]epicvibe.Game, error) {
	if limit <= 0 {
		limit = DefaultTrendingSize
	}
	games, _, err := s.store.List(ctx, catalog.ListOptions{Sort: catalog.SortTrending, Limit: limit})
	return games, err
}

func (s *Service) Styles() []generate.StyleTemplate { return generate.Styles() }

func (s *Service) Types() []generate.TypeTemplate { return generate.Types() }

type RewardResult struct {
	Game        epicvibe.Game
	Reward      decimal.Decimal
	Transaction epicvibe.RewardEvent
}

// Play records a play, paying the creator and the player. Repeat plays pay
// every time.
func (s *Service) Play(ctx context.Context, u epicvibe.User, id string) (RewardResult, error) {
	g, _, err := s.countAndPay(ctx, id, PlayCreatorReward, "game_play_creator", func(st *epicvibe.Stats, n int64) {
		st.Plays += n
	})
	if err != nil {
		return RewardResult{}, err
	}

	playerEv, err := s.ledger.Award(ctx, u.WalletAddress, PlayPlayerReward, "game_play_player")
	if err != nil {
		return RewardResult{}, fmt.Errorf("paying player: %w", err)
	}
	s.announceReward(playerEv)

	return RewardResult{Game: g, Reward: PlayPlayerReward, Transaction: playerEv}, nil
}

func (s *Service) Like(ctx context.Context, u epicvibe.User, id string) (RewardResult, error) {
	g, ev, err := s.countAndPay(ctx, id, LikeCreatorReward, "game_like", func(st *epicvibe.Stats, n int64) {
		st.Likes += n
	})
	if err != nil {
		return RewardResult{}, err
	}
	s.logger.Debug("game liked", "id", id, "by", u.ID)
	return RewardResult{Game: g, Reward: LikeCreatorReward, Transaction: ev}, nil
}

// countAndPay bumps a counter and the creator's earnings, then pays the
// creator. A failed payment takes both back.
func (s *Service) countAndPay(ctx context.Context, id string, reward decimal.Decimal, reason string, bump func(*epicvibe.Stats, int64)) (epicvibe.Game, epicvibe.RewardEvent, error) {
	g, err := s.store.Modify(ctx, id, func(g *epicvibe.Game) error {
		bump(&g.Stats, 1)
		g.Stats.TokensEarned = g.Stats.TokensEarned.Add(reward)
		return nil
	})
	if err != nil {
		return epicvibe.Game{}, epicvibe.RewardEvent{}, err
	}

	ev, err := s.ledger.Award(ctx, g.Creator.WalletAddress, reward, reason)
	if err != nil {
		_, rerr := s.store.Modify(ctx, id, func(g *epicvibe.Game) error {
			bump(&g.Stats, -1)
			g.Stats.TokensEarned = g.Stats.TokensEarned.Sub(reward)
			return nil
		})
		return epicvibe.Game{}, epicvibe.RewardEvent{}, errors.Join(fmt.Errorf("paying creator (%s): %w", reason, err), rerr)
	}
	s.announceReward(ev)
	return g, ev, nil
}

func (s *Service) Share(ctx context.Context, u epicvibe.User, id, platform string) (RewardResult, error) {
	g, err := s.store.Modify(ctx, id, func(g *epicvibe.Game) error {
		g.Stats.Shares++
		return nil
	})
	if err != nil {
		return RewardResult{}, err
	}

	if platform == "" {
		platform = "unknown"
	}
	ev, err := s.ledger.Award(ctx, u.WalletAddress, ShareSharerReward, "game_share_"+platform)
	if err != nil {
		return RewardResult{}, fmt.Errorf("paying sharer: %w", err)
	}
	s.announceReward(ev)

	return RewardResult{Game: g, Reward: ShareSharerReward, Transaction: ev}, nil
}

func (s *Service) addEarnings(ctx context.Context, id string, amount decimal.Decimal) (epicvibe.Game, error) {
	return s.store.Modify(ctx, id, func(g *epicvibe.Game) error {
		g.Stats.TokensEarned = g.Stats.TokensEarned.Add(amount)
		return nil
	})
}

func (s *Service) announceReward(ev epicvibe.RewardEvent) {
	s.logger.Info("reward paid", "wallet", ev.Recipient, "amount", ev.Amount.String(), "reason", ev.Reason, "signature", ev.Signature)
	s.notify.NotifyWallet(ev.Recipient, relay.EventTokenReceived, relay.TokenReceived{
		Amount:    ev.Amount,
		Reason:    ev.Reason,
		From:      rewardSource,
		Signature: ev.Signature,
		Timestamp: ev.Timestamp,
	})
}
