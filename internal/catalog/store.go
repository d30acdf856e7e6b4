// Package catalog stores game records and answers filtered, sorted, paginated
// listings over them.
package catalog

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/epicvibe/platform/internal/epicvibe"
)

type SortOrder string

const (
	SortRecent   SortOrder = "recent"
	SortPopular  SortOrder = "popular"
	SortTrending SortOrder = "trending"
)

func ParseSort(s string) (SortOrder, bool) {
	switch SortOrder(s) {
	case "", SortRecent:
		return SortRecent, true
	case SortPopular, SortTrending:
		return SortOrder(s), true
	}
	return "", false
}

type Filter struct {
	Type  string
	Style string
	// Creator matches either the creator's id or username.
	Creator string
}

type ListOptions struct {
	Filter
	Sort   SortOrder
	Limit  int // zero means no cap
	Offset int
}

// Patch carries optional metadata edits; nil and empty fields are left alone.
type Patch struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
}

// Store is the capability the game service needs from a catalog backend.
//
// Modify runs fn against the stored record atomically with respect to other
// writers of the same id. If fn returns an error nothing is written and the
// error is returned as-is.
type Store interface {
	List(ctx context.Context, opts ListOptions) ([]epicvibe.Game, int, error)
	Get(ctx context.Context, id string) (epicvibe.Game, error)
	Insert(ctx context.Context, g epicvibe.Game) (string, error)
	Update(ctx context.Context, id string, patch Patch, actingUserID string) (epicvibe.Game, error)
	Remove(ctx context.Context, id, actingUserID string) (epicvibe.Game, error)
	Modify(ctx context.Context, id string, fn func(*epicvibe.Game) error) (epicvibe.Game, error)
	Count(ctx context.Context) (int, error)
}

func gameID(seq int64) string {
	return fmt.Sprintf("game_%d", seq)
}

func notFound(id string) error {
	return fmt.Errorf("game %s: %w", id, epicvibe.ErrNotFound)
}

// applyPatch enforces creator ownership and applies the non-empty fields.
func applyPatch(g *epicvibe.Game, patch Patch, actingUserID string, now time.Time) error {
	if err := checkOwner(*g, actingUserID); err != nil {
		return err
	}
	if patch.Title != nil && *patch.Title != "" {
		g.Title = *patch.Title
	}
	if patch.Description != nil && *patch.Description != "" {
		g.Description = *patch.Description
	}
	g.UpdatedAt = now
	return nil
}

func checkOwner(g epicvibe.Game, actingUserID string) error {
	if g.Creator.ID != actingUserID {
		return fmt.Errorf("game %s belongs to %s: %w", g.ID, g.Creator.ID, epicvibe.ErrForbidden)
	}
	return nil
}

// query filters, sorts, and paginates games, which must be in insertion
// order. Sorting is stable so ties keep insertion order.
func query(games []epicvibe.Game, opts ListOptions) ([]epicvibe.Game, int) {
	matched := make([]epicvibe.Game, 0, len(games))
	for _, g := range games {
		if opts.Type != "" && g.Type != opts.Type {
			continue
		}
		if opts.Style != "" && g.Style != opts.Style {
			continue
		}
		if opts.Creator != "" && g.Creator.ID != opts.Creator && g.Creator.Username != opts.Creator {
			continue
		}
		matched = append(matched, g)
	}

	switch opts.Sort {
	case SortPopular:
		slices.SortStableFunc(matched, func(a, b epicvibe.Game) int {
			return cmp.Compare(b.Stats.Plays, a.Stats.Plays)
		})
	case SortTrending:
		slices.SortStableFunc(matched, func(a, b epicvibe.Game) int {
			return cmp.Compare(b.Stats.TrendingScore(), a.Stats.TrendingScore())
		})
	case SortRecent, "":
		slices.SortStableFunc(matched, func(a, b epicvibe.Game) int {
			return b.CreatedAt.Compare(a.CreatedAt)
		})
	}

	total := len(matched)
	start := min(max(opts.Offset, 0), total)
	end := total
	if opts.Limit > 0 {
		end = min(start+opts.Limit, total)
	}
	return matched[start:end], total
}

// normalize trims filter values coming from query strings.
func (o ListOptions) normalize() ListOptions {
	o.Type = strings.TrimSpace(o.Type)
	o.Style = strings.TrimSpace(o.Style)
	o.Creator = strings.TrimSpace(o.Creator)
	return o
}
