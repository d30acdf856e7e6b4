// Package epicvibe defines the core domain types shared by the catalog,
// generator, ledger, and realtime relay.
package epicvibe

import (
	"errors"
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
	ErrValidation   = errors.New("validation failed")
	ErrUnauthorized = errors.New("unauthorized")
	ErrUpstream     = errors.New("upstream failure")
)

type Complexity string

const (
	ComplexitySimple   Complexity = "Simple"
	ComplexityAdvanced Complexity = "Advanced"
)

// User is the identity attached to a request or realtime connection.
type User struct {
	ID            string `json:"id"`
	Username      string `json:"username"`
	WalletAddress string `json:"walletAddress,omitempty"`
	Role          string `json:"role,omitempty"`
	IsGuest       bool   `json:"isGuest"`
}

type Creator struct {
	ID            string `json:"id"`
	Username      string `json:"username"`
	WalletAddress string `json:"walletAddress"`
}

func CreatorOf(u User) Creator {
	return Creator{ID: u.ID, Username: u.Username, WalletAddress: u.WalletAddress}
}

// Stats counters only grow, except when a count whose payment failed is
// taken back.
type Stats struct {
	Plays        int64           `json:"plays"`
	Likes        int64           `json:"likes"`
	Shares       int64           `json:"shares"`
	TokensEarned decimal.Decimal `json:"tokensEarned"`
}

// TrendingScore weighs shares over likes over plays.
func (s Stats) TrendingScore() int64 {
	return s.Plays + 2*s.Likes + 3*s.Shares
}

type Game struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Creator     Creator    `json:"creator"`
	Type        string     `json:"gameType"`
	Style       string     `json:"gameStyle"`
	Complexity  Complexity `json:"complexity"`
	MainImage   string     `json:"mainImage"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	Stats       Stats      `json:"stats"`
	Hash        string     `json:"hash"`
	PlayURL     string     `json:"playUrl"`
	IsPublished bool       `json:"isPublished"`

	// CreationRewarded flips once, when the one-time publish bonus is claimed.
	CreationRewarded bool `json:"creationRewarded"`

	Assets    *Assets         `json:"assets,omitempty"`
	Mechanics []Mechanic      `json:"mechanics,omitempty"`
	Code      *CodeDescriptor `json:"code,omitempty"`
}

// Clone returns a copy of g that shares no slices or pointers with it.
func (g Game) Clone() Game {
	if g.Assets != nil {
		a := *g.Assets
		a.Characters = slices.Clone(a.Characters)
		a.Levels = slices.Clone(a.Levels)
		a.Sound.Effects = slices.Clone(a.Sound.Effects)
		g.Assets = &a
	}
	g.Mechanics = slices.Clone(g.Mechanics)
	if g.Code != nil {
		c := *g.Code
		c.Files = slices.Clone(c.Files)
		g.Code = &c
	}
	return g
}

type Assets struct {
	MainImage  string      `json:"mainImage"`
	Characters []string    `json:"characters"`
	Levels     []string    `json:"levels"`
	UI         UIAssets    `json:"ui"`
	Sound      SoundAssets `json:"sound"`
}

type UIAssets struct {
	Buttons string `json:"buttons"`
	HUD     string `json:"hud"`
}

type SoundAssets struct {
	Background string   `json:"background"`
	Effects    []string `json:"effects"`
}

type Mechanic struct {
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Parameters  MechanicParameters `json:"parameters"`
}

// MechanicParameters are cosmetic; nothing reads them back.
type MechanicParameters struct {
	Speed    int `json:"speed"`
	Power    int `json:"power"`
	Duration int `json:"duration"`
}

type CodeDescriptor struct {
	EntryPoint string   `json:"entryPoint"`
	MainScript string   `json:"mainScript"`
	Files      []string `json:"files"`
}

type RewardType string

const (
	RewardTypeReward   RewardType = "reward"
	RewardTypePurchase RewardType = "purchase"
	RewardTypeStake    RewardType = "stake"
)

const StatusConfirmed = "confirmed"

// RewardEvent is an immutable credit (positive amount) or debit (negative).
type RewardEvent struct {
	Signature string          `json:"signature"`
	Recipient string          `json:"recipient"`
	Amount    decimal.Decimal `json:"amount"`
	Type      RewardType      `json:"type"`
	Reason    string          `json:"reason"`
	Timestamp time.Time       `json:"timestamp"`
	Status    string          `json:"status"`
}

// Session is one live realtime connection.
type Session struct {
	ID       string    `json:"id"`
	User     User      `json:"user"`
	JoinedAt time.Time `json:"joinedAt"`
}
