package game

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/epicvibe/platform/internal/catalog"
	"github.com/epicvibe/platform/internal/epicvibe"
	"github.com/epicvibe/platform/internal/generate"
)

const sampleCount = 12

// SeedSamples fills an empty catalog with published showcase games. It is a
// no-op when the catalog already has games.
func SeedSamples(ctx context.Context, store catalog.Store, rnd *rand.Rand, now time.Time) (int, error) {
	n, err := store.Count(ctx)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		return 0, nil
	}

	types := generate.Types()
	styles := generate.Styles()

	for i := range sampleCount {
		typ := types[i%len(types)].Type
		style := styles[i%len(styles)].Style
		owner := i%5 + 1
		complexity := epicvibe.ComplexitySimple
		if i%2 == 1 {
			complexity = epicvibe.ComplexityAdvanced
		}
		g := epicvibe.Game{
			Title: fmt.Sprintf("Sample %s %s %d", style, typ, i+1),
			Description: fmt.Sprintf("This is a %s style %s game showcasing the EpicVibe platform capabilities.",
				strings.ToLower(style), strings.ToLower(typ)),
			Creator: epicvibe.Creator{
				ID:            fmt.Sprintf("user_%d", owner),
				Username:      fmt.Sprintf("creator%d", owner),
				WalletAddress: SampleWallet(owner),
			},
			Type:       typ,
			Style:      style,
			Complexity: complexity,
			MainImage:  generate.Placeholder(style, "600x400", fmt.Sprintf("%s+%d", typ, i+1)),
			CreatedAt:  now.Add(-time.Duration(i) * 24 * time.Hour),
			UpdatedAt:  now.Add(-time.Duration(i) * 12 * time.Hour),
			Stats: epicvibe.Stats{
				Plays:        int64(rnd.IntN(1000)),
				Likes:        int64(rnd.IntN(500)),
				Shares:       int64(rnd.IntN(200)),
				TokensEarned: decimal.NewFromInt(int64(rnd.IntN(100))),
			},
			Hash:             fmt.Sprintf("GAME%dHASH%s", i+1, randomBase36(rnd, 8)),
			PlayURL:          fmt.Sprintf("/play/%d", i+1),
			IsPublished:      true,
			CreationRewarded: true,
		}
		if _, err := store.Insert(ctx, g); err != nil {
			return i, fmt.Errorf("seeding sample %d: %w", i+1, err)
		}
	}
	return sampleCount, nil
}

// SampleWallet is the placeholder wallet of sample creator n.
func SampleWallet(n int) string {
	return fmt.Sprintf("WALLET%dXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXX", n)
}

func randomBase36(rnd *rand.Rand, n int) string {
	const alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
	b := make([]byte, n)
	for i := range b {
		b[i] = alphabet[rnd.IntN(len(alphabet))]
	}
	return string(b)
}
